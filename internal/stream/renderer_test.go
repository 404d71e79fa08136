package stream

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/davekiss/hue-midi-sub000/internal/color"
)

type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	connectN  int
	closeN    int
	dialErr   error
	sent      [][]byte
}

func (f *fakeTransport) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectN++
	if f.dialErr != nil {
		return f.dialErr
	}
	f.connected = true
	return nil
}

func (f *fakeTransport) Send(payload []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return false
	}
	f.sent = append(f.sent, append([]byte(nil), payload...))
	return true
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.closeN++
	return nil
}

func (f *fakeTransport) payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestRenderer(t *testing.T, tr Transport, cfg RendererConfig) *Renderer {
	t.Helper()
	enc, err := NewEncoder(testZoneID, ColorSpaceRGB)
	if err != nil {
		t.Fatal(err)
	}
	return NewRenderer(enc, tr, cfg)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRendererResendsSteadyFrame(t *testing.T) {
	tr := &fakeTransport{}
	r := newTestRenderer(t, tr, RendererConfig{Interval: 2 * time.Millisecond, Keepalive: time.Hour})

	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()

	r.SetChannel(0, color.RGB{R: 200, G: 10, B: 10})
	waitFor(t, time.Second, func() bool { return tr.sentCount() >= 5 })

	// An unchanged buffer is resent every tick, and the payloads differ
	// only in the rolling sequence byte.
	sent := tr.payloads()
	base := append([]byte(nil), sent[0]...)
	base[seqByteOffset] = 0
	for i, p := range sent[:5] {
		got := append([]byte(nil), p...)
		got[seqByteOffset] = 0
		if !bytes.Equal(got, base) {
			t.Errorf("payload %d differs beyond the sequence byte", i)
		}
	}
}

func TestRendererIdleSendsNothing(t *testing.T) {
	tr := &fakeTransport{}
	r := newTestRenderer(t, tr, RendererConfig{Interval: 2 * time.Millisecond, Keepalive: time.Hour})

	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()

	time.Sleep(20 * time.Millisecond)
	if got := tr.sentCount(); got != 0 {
		t.Errorf("empty buffer produced %d sends, want 0", got)
	}
}

func TestKeepaliveResendsLastPayload(t *testing.T) {
	tr := &fakeTransport{}
	r := newTestRenderer(t, tr, RendererConfig{Interval: 2 * time.Millisecond, Keepalive: 5 * time.Millisecond})

	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()

	r.SetChannel(0, color.RGB{R: 42})
	waitFor(t, time.Second, func() bool { return tr.sentCount() >= 1 })

	// Clearing the buffer stops render sends; the keepalive takes over and
	// repeats the last payload verbatim, sequence byte included.
	r.Clear()
	time.Sleep(5 * time.Millisecond) // drain in-flight render ticks
	before := tr.payloads()
	last := before[len(before)-1]

	waitFor(t, time.Second, func() bool { return tr.sentCount() > len(before) })
	after := tr.payloads()
	for _, p := range after[len(before):] {
		if !bytes.Equal(p, last) {
			t.Errorf("keepalive payload differs from last rendered payload")
		}
	}
}

func TestRendererStartActivateFailure(t *testing.T) {
	tr := &fakeTransport{}
	deactivated := 0
	r := newTestRenderer(t, tr, RendererConfig{
		Interval: time.Millisecond,
		Activate: func(context.Context) error {
			return errors.New("zone busy")
		},
		Deactivate: func(context.Context) error {
			deactivated++
			return nil
		},
	})

	if err := r.Start(context.Background()); err == nil {
		t.Fatal("Start should fail when activation fails")
	}
	if tr.connectN != 0 {
		t.Error("transport should not connect when activation fails")
	}
	if deactivated != 0 {
		t.Error("deactivate must not run when activation never succeeded")
	}
	if r.Running() {
		t.Error("renderer should not be running")
	}
}

func TestRendererStartConnectFailureRollsBack(t *testing.T) {
	tr := &fakeTransport{dialErr: errors.New("handshake failed")}
	activated, deactivated := 0, 0
	r := newTestRenderer(t, tr, RendererConfig{
		Interval:   time.Millisecond,
		Activate:   func(context.Context) error { activated++; return nil },
		Deactivate: func(context.Context) error { deactivated++; return nil },
	})

	if err := r.Start(context.Background()); err == nil {
		t.Fatal("Start should fail when the transport cannot connect")
	}
	if activated != 1 {
		t.Errorf("activate called %d times, want 1", activated)
	}
	if deactivated != 1 {
		t.Errorf("deactivate rollback called %d times, want 1", deactivated)
	}
	if r.Running() {
		t.Error("renderer should not be running")
	}
}

func TestRendererStartTwice(t *testing.T) {
	tr := &fakeTransport{}
	r := newTestRenderer(t, tr, RendererConfig{Interval: time.Millisecond})

	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()

	if err := r.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start error = %v, want ErrAlreadyStarted", err)
	}
}

// Concurrent Starts must resolve to exactly one winner: one activation,
// one handshake, one pair of loops. The guard has to cover the whole
// activate-and-connect window, not just the running flag.
func TestRendererConcurrentStart(t *testing.T) {
	tr := &fakeTransport{}
	var activations atomic.Int32
	r := newTestRenderer(t, tr, RendererConfig{
		Interval: time.Millisecond,
		Activate: func(context.Context) error {
			activations.Add(1)
			time.Sleep(10 * time.Millisecond) // hold the start window open
			return nil
		},
	})

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { errs <- r.Start(context.Background()) }()
	}

	started, rejected := 0, 0
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			started++
		case errors.Is(err, ErrAlreadyStarted):
			rejected++
		default:
			t.Fatalf("unexpected Start error: %v", err)
		}
	}
	defer r.Stop()

	if started != 1 || rejected != 1 {
		t.Errorf("got %d successful and %d rejected Starts, want 1 and 1", started, rejected)
	}
	if got := activations.Load(); got != 1 {
		t.Errorf("activate called %d times, want 1", got)
	}
	if tr.connectN != 1 {
		t.Errorf("transport connected %d times, want 1", tr.connectN)
	}
}

// A failed Start must release the slot so a later Start can proceed.
func TestRendererStartRetriesAfterFailure(t *testing.T) {
	tr := &fakeTransport{dialErr: errors.New("handshake failed")}
	r := newTestRenderer(t, tr, RendererConfig{Interval: time.Millisecond})

	if err := r.Start(context.Background()); err == nil {
		t.Fatal("Start should fail while the transport cannot connect")
	}

	tr.mu.Lock()
	tr.dialErr = nil
	tr.mu.Unlock()

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start after a failed attempt: %v", err)
	}
	r.Stop()
}

func TestRendererStopClosesAndDeactivates(t *testing.T) {
	tr := &fakeTransport{}
	deactivated := 0
	r := newTestRenderer(t, tr, RendererConfig{
		Interval:   time.Millisecond,
		Deactivate: func(context.Context) error { deactivated++; return nil },
	})

	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}

	if tr.closeN != 1 {
		t.Errorf("transport closed %d times, want 1", tr.closeN)
	}
	if deactivated != 1 {
		t.Errorf("deactivate called %d times, want 1", deactivated)
	}
	if r.Running() {
		t.Error("renderer still reports running after Stop")
	}

	// Stopping again is a no-op.
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}
	if tr.closeN != 1 || deactivated != 1 {
		t.Error("second Stop repeated shutdown work")
	}
}

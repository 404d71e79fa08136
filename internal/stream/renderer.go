package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/davekiss/hue-midi-sub000/internal/color"
)

// ErrAlreadyStarted is returned by Start when the renderer is running.
var ErrAlreadyStarted = errors.New("renderer already started")

// Transport is the secured connection the renderer streams frames over.
type Transport interface {
	Connect(ctx context.Context) error
	Send(payload []byte) bool
	Close() error
}

// RendererConfig configures tick rates and the external activation hooks.
type RendererConfig struct {
	// Interval is the render tick period. Default 20ms (50 Hz).
	Interval time.Duration
	// Keepalive is the idle resend period. Default 1s.
	Keepalive time.Duration
	// Activate is called before the secured handshake is attempted; the
	// stream never starts when it fails.
	Activate func(ctx context.Context) error
	// Deactivate is called on Stop, and as rollback when the handshake
	// fails after a successful activation.
	Deactivate func(ctx context.Context) error
}

// Renderer owns the live frame buffer and streams it at a fixed rate.
//
// The render tick serializes and sends the full current buffer whenever it
// is non-empty - generators keep overwriting the same entries, so frames
// are resent continuously rather than diffed. The keepalive tick resends
// the last sent payload verbatim while the buffer is empty, so the bridge
// does not time out an idle stream.
type Renderer struct {
	enc       *Encoder
	tr        Transport
	interval  time.Duration
	keepalive time.Duration

	activate   func(ctx context.Context) error
	deactivate func(ctx context.Context) error

	mu    sync.Mutex
	frame map[uint8]color.RGB
	last  []byte
	// starting holds the Start slot through activation and handshake, so a
	// concurrent Start fails with ErrAlreadyStarted instead of activating
	// twice and leaking a second pair of loops.
	starting bool
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewRenderer creates a renderer over the given encoder and transport.
func NewRenderer(enc *Encoder, tr Transport, cfg RendererConfig) *Renderer {
	if cfg.Interval <= 0 {
		cfg.Interval = 20 * time.Millisecond
	}
	if cfg.Keepalive <= 0 {
		cfg.Keepalive = 1 * time.Second
	}
	return &Renderer{
		enc:        enc,
		tr:         tr,
		interval:   cfg.Interval,
		keepalive:  cfg.Keepalive,
		activate:   cfg.Activate,
		deactivate: cfg.Deactivate,
		frame:      make(map[uint8]color.RGB),
	}
}

// SetChannel writes one channel into the frame buffer. Last write per
// channel per tick wins.
func (r *Renderer) SetChannel(id uint8, c color.RGB) {
	r.mu.Lock()
	r.frame[id] = c
	r.mu.Unlock()
}

// SetChannels writes multiple channels atomically with respect to the
// render tick, so a gradient never straddles two frames.
func (r *Renderer) SetChannels(channels map[uint8]color.RGB) {
	r.mu.Lock()
	for id, c := range channels {
		r.frame[id] = c
	}
	r.mu.Unlock()
}

// Clear empties the frame buffer. The last sent payload is kept so the
// keepalive holds the final look instead of letting the stream time out.
func (r *Renderer) Clear() {
	r.mu.Lock()
	r.frame = make(map[uint8]color.RGB)
	r.mu.Unlock()
}

// Running reports whether the render loops are active.
func (r *Renderer) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start invokes the activation hook, connects the secured transport and
// launches the render and keepalive loops. On any failure partial state is
// rolled back; the renderer never ends up half-started.
func (r *Renderer) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running || r.starting {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.starting = true
	r.mu.Unlock()

	if r.activate != nil {
		if err := r.activate(ctx); err != nil {
			r.setStarting(false)
			return fmt.Errorf("activate streaming: %w", err)
		}
	}

	if err := r.tr.Connect(ctx); err != nil {
		r.rollback()
		r.setStarting(false)
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.running = true
	r.starting = false
	r.cancel = cancel
	r.mu.Unlock()

	r.wg.Add(2)
	go r.renderLoop(loopCtx)
	go r.keepaliveLoop(loopCtx)

	log.Info().Dur("interval", r.interval).Msg("Render scheduler started")
	return nil
}

func (r *Renderer) setStarting(v bool) {
	r.mu.Lock()
	r.starting = v
	r.mu.Unlock()
}

func (r *Renderer) rollback() {
	if r.deactivate == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.deactivate(ctx); err != nil {
		log.Warn().Err(err).Msg("Deactivate rollback failed")
	}
}

// Stop cancels both loops, closes the transport and invokes the external
// deactivation hook.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	r.wg.Wait()

	err := r.tr.Close()

	if r.deactivate != nil {
		ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer ctxCancel()
		if derr := r.deactivate(ctx); derr != nil {
			log.Warn().Err(derr).Msg("Deactivate streaming failed")
			if err == nil {
				err = derr
			}
		}
	}

	log.Info().Msg("Render scheduler stopped")
	return err
}

func (r *Renderer) renderLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.renderTick()
		}
	}
}

func (r *Renderer) renderTick() {
	r.mu.Lock()
	if len(r.frame) == 0 {
		r.mu.Unlock()
		return
	}
	payload := r.enc.Encode(r.frame)
	r.last = payload
	r.mu.Unlock()

	r.tr.Send(payload)
}

func (r *Renderer) keepaliveLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.keepaliveTick()
		}
	}
}

func (r *Renderer) keepaliveTick() {
	r.mu.Lock()
	var payload []byte
	if len(r.frame) == 0 && r.last != nil {
		payload = r.last
	}
	r.mu.Unlock()

	if payload != nil {
		r.tr.Send(payload)
	}
}

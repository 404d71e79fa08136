package stream

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pion/dtls/v2"
	"github.com/rs/zerolog/log"
)

// DefaultStreamPort is the bridge's fixed DTLS streaming port.
const DefaultStreamPort = 2100

// ErrClosed is returned when Connect is interrupted by a concurrent Close.
var ErrClosed = errors.New("stream connection closed")

// ConnectionConfig contains settings for the secured transport connection.
type ConnectionConfig struct {
	Address          string // bridge host, port optional (defaults to 2100)
	Identity         string // application key, used as the PSK identity
	ClientKey        string // bridge-issued client key, 32 hex characters
	HandshakeTimeout time.Duration
	ReconnectDelay   time.Duration // base delay; attempt n waits n*delay
	MaxReconnects    int
	// OnLost is invoked once when reconnection attempts are exhausted.
	OnLost func(error)
}

type dialFunc func(ctx context.Context) (net.Conn, error)

// Connection owns one DTLS-PSK datagram socket to the bridge streaming port.
//
// A socket error before the handshake completes fails the pending Connect
// call; a socket error after the handshake triggers a bounded number of
// reconnection attempts with linearly increasing delay, then a terminal
// OnLost notification.
type Connection struct {
	addr             string
	identity         string
	psk              []byte
	handshakeTimeout time.Duration
	reconnectDelay   time.Duration
	maxReconnects    int
	onLost           func(error)

	dial dialFunc // replaced in tests

	mu        sync.Mutex
	conn      net.Conn
	connected bool
	// sess invalidates outstanding watch/reconnect goroutines whenever the
	// connection transitions state (connect, drop, close).
	sess int
}

// NewConnection decodes the provisioned client key (raw bytes, not text)
// and prepares a connection. No I/O happens until Connect.
func NewConnection(cfg ConnectionConfig) (*Connection, error) {
	psk, err := hex.DecodeString(cfg.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("client key is not valid hex: %w", err)
	}
	if len(psk) != 16 {
		return nil, fmt.Errorf("client key must decode to 16 bytes, got %d", len(psk))
	}

	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 1 * time.Second
	}
	if cfg.MaxReconnects <= 0 {
		cfg.MaxReconnects = 3
	}

	c := &Connection{
		addr:             cfg.Address,
		identity:         cfg.Identity,
		psk:              psk,
		handshakeTimeout: cfg.HandshakeTimeout,
		reconnectDelay:   cfg.ReconnectDelay,
		maxReconnects:    cfg.MaxReconnects,
		onLost:           cfg.OnLost,
	}
	c.dial = c.dialDTLS
	return c, nil
}

func (c *Connection) dialDTLS(ctx context.Context) (net.Conn, error) {
	addr := c.addr
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, fmt.Sprintf("%d", DefaultStreamPort))
	}
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}

	cfg := &dtls.Config{
		PSK: func([]byte) ([]byte, error) {
			return c.psk, nil
		},
		PSKIdentityHint: []byte(c.identity),
		CipherSuites:    []dtls.CipherSuiteID{dtls.TLS_PSK_WITH_AES_128_GCM_SHA256},
	}

	hsCtx, cancel := context.WithTimeout(ctx, c.handshakeTimeout)
	defer cancel()
	return dtls.DialWithContext(hsCtx, "udp", raddr, cfg)
}

// Connect performs the PSK handshake. It resolves only once the handshake
// completes and fails if it does not complete within the configured timeout.
// Handshake failure does not schedule reconnection.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	token := c.sess
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("dtls handshake with %s failed: %w", c.addr, err)
	}

	c.mu.Lock()
	if token != c.sess {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.sess++
	sess := c.sess
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.watch(conn, sess)
	log.Info().Str("address", c.addr).Msg("Stream connection established")
	return nil
}

// Send writes one encoded frame, fire-and-forget. Returns false when not
// connected or when the socket rejects the write.
func (c *Connection) Send(payload []byte) bool {
	c.mu.Lock()
	conn, sess, ok := c.conn, c.sess, c.connected
	c.mu.Unlock()
	if !ok || conn == nil {
		return false
	}

	if _, err := conn.Write(payload); err != nil {
		go c.drop(sess, err)
		return false
	}
	return true
}

// Connected reports whether the socket is currently usable.
func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close tears down the socket without reconnection and cancels any pending
// reconnection attempts.
func (c *Connection) Close() error {
	c.mu.Lock()
	c.sess++
	c.connected = false
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// watch blocks on the socket to detect an unexpected remote close. The
// bridge sends nothing on the streaming socket, so any read completion is
// an error or a close.
func (c *Connection) watch(conn net.Conn, sess int) {
	buf := make([]byte, 64)
	for {
		if _, err := conn.Read(buf); err != nil {
			c.drop(sess, err)
			return
		}
	}
}

// drop handles a post-handshake socket failure: marks the connection down
// and starts the bounded reconnection loop. Stale notifications (from a
// session that has already been replaced or closed) are ignored.
func (c *Connection) drop(sess int, cause error) {
	c.mu.Lock()
	if sess != c.sess || !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.sess++
	token := c.sess
	c.mu.Unlock()

	log.Warn().Err(cause).Str("address", c.addr).Msg("Stream connection dropped, reconnecting")
	go c.retryLoop(token, cause)
}

func (c *Connection) retryLoop(token int, cause error) {
	for attempt := 1; attempt <= c.maxReconnects; attempt++ {
		delay := time.Duration(attempt) * c.reconnectDelay
		time.Sleep(delay)

		c.mu.Lock()
		stale := token != c.sess
		c.mu.Unlock()
		if stale {
			return
		}

		conn, err := c.dial(context.Background())
		if err != nil {
			cause = err
			log.Warn().Err(err).
				Int("attempt", attempt).
				Int("max_reconnects", c.maxReconnects).
				Msg("Stream reconnect attempt failed")
			continue
		}

		c.mu.Lock()
		if token != c.sess {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.sess++
		sess := c.sess
		c.conn = conn
		c.connected = true
		c.mu.Unlock()

		go c.watch(conn, sess)
		log.Info().Int("attempt", attempt).Msg("Stream connection restored")
		return
	}

	log.Error().Err(cause).
		Int("max_reconnects", c.maxReconnects).
		Msg("Stream reconnects exhausted, connection lost")
	if c.onLost != nil {
		c.onLost(cause)
	}
}

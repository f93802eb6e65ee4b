// Package discord is a client for Discord's local IPC socket, enabling Rich
// Presence updates via the SET_ACTIVITY command.
//
// A [Session] is one handshaken connection. Commands are written from the
// caller's goroutine; responses are decoded by a background reader and handed
// back only when the caller invokes [Session.Pump], so completion callbacks
// always run on the caller's goroutine and never concurrently with it.
// Platform-specific socket discovery lives in conn_unix.go and conn_windows.go.
package discord

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

var (
	// ErrNotConnected is returned when an operation requires an open session.
	ErrNotConnected = errors.New("not connected")
	// ErrHandshakeFailed wraps any failure between dialing and READY.
	ErrHandshakeFailed = errors.New("handshake failed")
	// ErrConnectionLost is returned once the socket is found broken or the
	// peer sent CLOSE. The session is unusable afterwards.
	ErrConnectionLost = errors.New("connection lost")
)

// closeRateLimited is the RPC close code Discord uses for rate limiting.
const closeRateLimited = 4002

// RPCError is an ERROR response from the peer.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("discord rpc error %d: %s", e.Code, e.Message)
}

// Throttled reports whether the peer rejected the command for rate limiting.
func (e *RPCError) Throttled() bool {
	if e.Code == closeRateLimited {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "ratelimit")
}

// ///////////////////////////////////////////////
// Data Types
// ///////////////////////////////////////////////

// Button represents a clickable button in a Discord Rich Presence activity.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Timestamps holds the start timestamp for an activity.
type Timestamps struct {
	Start int64 `json:"start,omitempty"`
}

// Assets holds image keys and tooltip text for an activity.
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Activity represents a Discord Rich Presence activity.
type Activity struct {
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	Assets     *Assets     `json:"assets,omitempty"`
	Buttons    []Button    `json:"buttons,omitempty"`
}

// User is the Discord account the peer is logged in as, reported in READY.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

// message is the envelope of every OpFrame payload in both directions.
type message struct {
	Cmd   string          `json:"cmd,omitempty"`
	Evt   string          `json:"evt,omitempty"`
	Nonce string          `json:"nonce,omitempty"`
	Args  any             `json:"args,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// inbound is one decoded frame handed from the reader to Pump.
type inbound struct {
	op      Opcode
	payload []byte
}

// completion is a callback ready to run once the session lock is released.
type completion struct {
	fn  func(error)
	err error
}

// ///////////////////////////////////////////////
// Options
// ///////////////////////////////////////////////

// Option customizes [Dial].
type Option func(*options)

type options struct {
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	dial             func(timeout time.Duration) (net.Conn, error)
}

// WithHandshakeTimeout bounds the wait for the READY dispatch.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) { o.handshakeTimeout = d }
}

// WithWriteTimeout bounds every frame write. Zero disables the deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.writeTimeout = d }
}

// WithDialer replaces socket discovery, e.g. with one end of a net.Pipe.
func WithDialer(dial func(timeout time.Duration) (net.Conn, error)) Option {
	return func(o *options) { o.dial = dial }
}

// ///////////////////////////////////////////////
// Session
// ///////////////////////////////////////////////

// Session is an established, handshaken IPC connection to Discord.
type Session struct {
	// appID is the Discord application (OAuth2 client) identifier.
	appID string
	// user is the account reported by the READY dispatch.
	user User
	// writeTimeout bounds each frame write so a stalled peer cannot block.
	writeTimeout time.Duration

	// mu guards conn and pending.
	mu sync.Mutex
	// conn is the socket, or nil once the session is closed or lost.
	conn net.Conn
	// pending maps command nonces to their completion callbacks.
	pending map[string]func(error)

	// frames carries decoded frames from readLoop; closed when it exits.
	frames chan inbound
	// done is closed on teardown so a blocked readLoop send returns.
	done chan struct{}
	// readerDone is closed after readLoop has returned.
	readerDone chan struct{}
	// readErr is the error that ended readLoop. Safe to read after frames
	// is observed closed.
	readErr error
}

// Dial connects to the local Discord client and performs the handshake for
// appID. It returns an error wrapping [ErrIPCNotAvailable] when no socket
// accepts, or [ErrHandshakeFailed] when the peer does not answer READY.
func Dial(appID string, opts ...Option) (*Session, error) {
	o := options{
		handshakeTimeout: 5 * time.Second,
		writeTimeout:     2 * time.Second,
		dial:             dialIPC,
	}
	for _, opt := range opts {
		opt(&o)
	}

	conn, err := o.dial(o.handshakeTimeout)
	if err != nil {
		return nil, err
	}

	s := &Session{
		appID:        appID,
		writeTimeout: o.writeTimeout,
		conn:         conn,
		pending:      make(map[string]func(error)),
		frames:       make(chan inbound, 16),
		done:         make(chan struct{}),
		readerDone:   make(chan struct{}),
	}
	if err := s.handshake(o.handshakeTimeout); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}

	go s.readLoop(conn)
	return s, nil
}

// User returns the Discord account reported during the handshake.
func (s *Session) User() User {
	return s.user
}

// Connected reports whether the session still has a usable socket.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// SetActivity sends a SET_ACTIVITY command. If it returns nil, done (when
// non-nil) is invoked exactly once from a later [Session.Pump]: with nil on
// success, an [*RPCError] on rejection, or [ErrConnectionLost]. It is never
// invoked after [Session.Close].
func (s *Session) SetActivity(activity *Activity, done func(error)) error {
	return s.command("SET_ACTIVITY", map[string]any{
		"pid":      os.Getpid(),
		"activity": activity,
	}, done)
}

// ClearActivity sends a SET_ACTIVITY command with a null activity.
func (s *Session) ClearActivity(done func(error)) error {
	return s.SetActivity(nil, done)
}

// Pump delivers every frame received since the last call and returns without
// waiting for more. It answers PING, resolves pending commands, and returns
// an error wrapping [ErrConnectionLost] if the socket broke or the peer sent
// CLOSE; pending callbacks are then failed with the same error.
func (s *Session) Pump() error {
	var ready []completion
	err := s.pump(&ready)
	for _, c := range ready {
		c.fn(c.err)
	}
	return err
}

// Close clears the activity, sends CLOSE and releases the socket before
// returning. Pending callbacks are dropped. Calling Close on a closed or lost
// session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return nil
	}

	// Best effort: the peer clears the card sooner than its own timeout.
	_ = s.writeMessageLocked(OpFrame, message{
		Cmd:   "SET_ACTIVITY",
		Nonce: uuid.NewString(),
		Args:  map[string]any{"pid": os.Getpid(), "activity": nil},
	})
	_ = s.writeLocked(OpClose, []byte(`{}`))

	err := s.conn.Close()
	s.conn = nil
	s.pending = nil
	close(s.done)
	s.mu.Unlock()

	<-s.readerDone
	return err
}

// ///////////////////////////////////////////////
// Internals
// ///////////////////////////////////////////////

// handshake sends the HANDSHAKE frame and waits for READY under a deadline.
// It runs before readLoop starts, so it reads the socket directly.
func (s *Session) handshake(timeout time.Duration) error {
	if timeout > 0 {
		if err := s.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return fmt.Errorf("setting handshake deadline: %w", err)
		}
		defer s.conn.SetDeadline(time.Time{})
	}

	payload, err := json.Marshal(map[string]any{"v": 1, "client_id": s.appID})
	if err != nil {
		return fmt.Errorf("marshaling handshake: %w", err)
	}
	if err := s.writeLocked(OpHandshake, payload); err != nil {
		return err
	}

	for {
		op, data, err := DecodeFrame(s.conn)
		if err != nil {
			return fmt.Errorf("reading handshake response: %w", err)
		}
		switch op {
		case OpClose:
			return fmt.Errorf("peer closed during handshake: %w", parseRPCError(data))
		case OpFrame:
		default:
			continue
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("parsing handshake response: %w", err)
		}
		switch msg.Evt {
		case "READY":
			var ready struct {
				User User `json:"user"`
			}
			if len(msg.Data) > 0 {
				_ = json.Unmarshal(msg.Data, &ready)
			}
			s.user = ready.User
			return nil
		case "ERROR":
			return fmt.Errorf("handshake rejected: %w", parseRPCError(msg.Data))
		}
	}
}

// readLoop decodes frames until the socket fails or the session is closed.
func (s *Session) readLoop(conn net.Conn) {
	defer close(s.readerDone)
	defer close(s.frames)
	for {
		op, payload, err := DecodeFrame(conn)
		if err != nil {
			s.readErr = err
			return
		}
		select {
		case s.frames <- inbound{op: op, payload: payload}:
		case <-s.done:
			return
		}
	}
}

// pump drains buffered frames under the lock, collecting callbacks in ready.
func (s *Session) pump(ready *[]completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrNotConnected
	}
	for {
		select {
		case f, ok := <-s.frames:
			if !ok {
				return s.loseLocked(s.readErr, ready)
			}
			if err := s.handleLocked(f, ready); err != nil {
				return s.loseLocked(err, ready)
			}
		default:
			return nil
		}
	}
}

// handleLocked processes one inbound frame. A non-nil error is terminal.
func (s *Session) handleLocked(f inbound, ready *[]completion) error {
	switch f.op {
	case OpPing:
		return s.writeLocked(OpPong, f.payload)
	case OpClose:
		return fmt.Errorf("peer sent close: %w", parseRPCError(f.payload))
	case OpFrame:
		var msg message
		if err := json.Unmarshal(f.payload, &msg); err != nil {
			// A malformed frame from the peer is dropped, not fatal.
			return nil
		}
		done, ok := s.pending[msg.Nonce]
		if !ok {
			return nil
		}
		delete(s.pending, msg.Nonce)
		var err error
		if msg.Evt == "ERROR" {
			err = parseRPCError(msg.Data)
		}
		*ready = append(*ready, completion{fn: done, err: err})
	}
	return nil
}

// loseLocked tears the socket down after a terminal error and fails every
// pending callback with the returned error.
func (s *Session) loseLocked(cause error, ready *[]completion) error {
	err := ErrConnectionLost
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrConnectionLost, cause)
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
		close(s.done)
	}
	for _, done := range s.pending {
		*ready = append(*ready, completion{fn: done, err: err})
	}
	s.pending = nil
	return err
}

// command writes a command frame and registers done under its nonce.
func (s *Session) command(cmd string, args map[string]any, done func(error)) error {
	var ready []completion
	err := func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.conn == nil {
			return ErrNotConnected
		}
		nonce := uuid.NewString()
		if err := s.writeMessageLocked(OpFrame, message{Cmd: cmd, Args: args, Nonce: nonce}); err != nil {
			if errors.Is(err, ErrPayloadTooLarge) {
				return err
			}
			return s.loseLocked(err, &ready)
		}
		if done != nil {
			s.pending[nonce] = done
		}
		return nil
	}()
	for _, c := range ready {
		c.fn(c.err)
	}
	return err
}

// writeMessageLocked marshals msg and writes it as a frame of type op.
func (s *Session) writeMessageLocked(op Opcode, msg message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", msg.Cmd, err)
	}
	return s.writeLocked(op, payload)
}

// writeLocked encodes and writes a single frame under the write deadline.
func (s *Session) writeLocked(op Opcode, payload []byte) error {
	frame, err := EncodeFrame(op, payload)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", op, err)
	}
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		defer s.conn.SetWriteDeadline(time.Time{})
	}
	if _, err := s.conn.Write(frame); err != nil {
		return fmt.Errorf("writing %s: %w", op, err)
	}
	return nil
}

// parseRPCError decodes an error body; unparseable bodies still yield an
// RPCError so callers can rely on the type.
func parseRPCError(data []byte) *RPCError {
	e := &RPCError{}
	if len(data) == 0 || json.Unmarshal(data, e) != nil {
		e.Message = strings.TrimSpace(string(data))
	}
	return e
}

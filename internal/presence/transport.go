package presence

import (
	"time"

	"tools.zach/dev/editorcord/internal/discord"
)

// Session is one established channel to the peer.
//
// SetActivity either returns an error and never calls done, or returns nil
// and calls done at most once from a later Pump. Callbacks still pending
// when Close is called are dropped.
type Session interface {
	SetActivity(a *discord.Activity, done func(error)) error
	Pump() error
	Close() error
}

// Transport opens sessions to the peer.
type Transport interface {
	Connect(appID string) (Session, error)
}

// IPC is the [Transport] backed by Discord's local socket or named pipe.
type IPC struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// Connect dials the local Discord client and completes the handshake.
func (t IPC) Connect(appID string) (Session, error) {
	var opts []discord.Option
	if t.HandshakeTimeout > 0 {
		opts = append(opts, discord.WithHandshakeTimeout(t.HandshakeTimeout))
	}
	if t.WriteTimeout > 0 {
		opts = append(opts, discord.WithWriteTimeout(t.WriteTimeout))
	}
	s, err := discord.Dial(appID, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

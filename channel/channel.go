// Package channel carries gateway requests to the host and responses back.
//
// A [Channel] is the client half: it sends one request and blocks until the
// matching response arrives, the context ends, or the channel closes. A
// [Handler] is the host half, normally a gateway.Dispatcher. Three
// transports are provided:
//
//   - [Loopback] runs the handler on a dedicated goroutine standing in for
//     the host's main thread, inside the same process.
//   - [Stream] speaks framed JSON over any byte stream (TCP, stdio pipes);
//     [Server] is its host side.
//   - [Redis] exchanges messages through Redis lists; [ServeRedis] is its
//     host side.
package channel

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/caffeineduck/reabind/wire"
)

// Channel sends one request and waits for its response.
type Channel interface {
	Call(ctx context.Context, req wire.Request) (wire.Response, error)
	Close() error
}

// Handler executes a request on the host and returns its response.
type Handler interface {
	Handle(ctx context.Context, req wire.Request) wire.Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req wire.Request) wire.Response

func (f HandlerFunc) Handle(ctx context.Context, req wire.Request) wire.Response {
	return f(ctx, req)
}

type options struct {
	logger   *zap.Logger
	replyTTL time.Duration
	queue    int
}

// Option configures a channel or server.
type Option func(*options)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithReplyTTL bounds how long an unread Redis reply is kept.
func WithReplyTTL(d time.Duration) Option {
	return func(o *options) {
		o.replyTTL = d
	}
}

// WithQueue sets the loopback request queue length.
func WithQueue(n int) Option {
	return func(o *options) {
		o.queue = n
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   zap.NewNop(),
		replyTTL: time.Minute,
		queue:    64,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

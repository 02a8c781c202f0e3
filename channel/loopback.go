package channel

import (
	"context"
	"sync"

	"go.uber.org/zap"

	rerrors "github.com/caffeineduck/reabind/errors"
	"github.com/caffeineduck/reabind/wire"
)

type loopbackCall struct {
	req   wire.Request
	reply chan wire.Response
}

// Loopback serves requests on one goroutine, in arrival order, the way the
// host's main thread runs scripts to completion one at a time.
type Loopback struct {
	h      Handler
	calls  chan loopbackCall
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	log    *zap.Logger
}

// NewLoopback starts the host goroutine. Close stops it.
func NewLoopback(h Handler, opts ...Option) *Loopback {
	o := buildOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loopback{
		h:      h,
		calls:  make(chan loopbackCall, o.queue),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		log:    o.logger,
	}
	go l.loop()
	return l
}

func (l *Loopback) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case c := <-l.calls:
			// Once accepted a call runs to completion even if its caller
			// has given up; the reply buffer keeps the send from blocking.
			c.reply <- l.h.Handle(l.ctx, c.req)
		}
	}
}

func (l *Loopback) Call(ctx context.Context, req wire.Request) (wire.Response, error) {
	c := loopbackCall{req: req, reply: make(chan wire.Response, 1)}

	select {
	case l.calls <- c:
	case <-ctx.Done():
		return wire.Response{}, ctx.Err()
	case <-l.ctx.Done():
		return wire.Response{}, rerrors.Closed(req.Fn)
	}

	select {
	case resp := <-c.reply:
		return resp, nil
	case <-ctx.Done():
		l.log.Debug("caller gave up on loopback call", zap.String("fn", req.Fn), zap.String("id", req.ID))
		return wire.Response{}, ctx.Err()
	case <-l.done:
		return wire.Response{}, rerrors.Closed(req.Fn)
	}
}

// Close stops the host goroutine and waits for it to exit.
func (l *Loopback) Close() error {
	l.once.Do(l.cancel)
	<-l.done
	return nil
}

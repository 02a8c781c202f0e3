package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	rerrors "github.com/caffeineduck/reabind/errors"
	"github.com/caffeineduck/reabind/hostctx"
	"github.com/caffeineduck/reabind/hostfunc"
	"github.com/caffeineduck/reabind/wire"
)

// Dispatcher is the host half of the gateway: it decodes a request, runs it
// against the registry inside the host context and encodes the outputs.
// It implements channel.Handler.
type Dispatcher struct {
	registry *hostfunc.Registry
	marker   *hostctx.Marker
	log      *zap.Logger
}

// NewDispatcher serves reg. A nil logger disables logging.
func NewDispatcher(reg *hostfunc.Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{registry: reg, marker: hostctx.NewInside(), log: logger}
}

// Marker is the dispatcher's own marker, which is always inside.
func (d *Dispatcher) Marker() *hostctx.Marker { return d.marker }

func (d *Dispatcher) Handle(ctx context.Context, req wire.Request) wire.Response {
	args, err := rawCodec.DecodeAll(req.Args)
	if err != nil {
		return wire.ErrorResponse(req.ID, rerrors.Wrap(rerrors.KindRemoteCall, req.Fn, err))
	}

	start := time.Now()
	var out []any
	err = hostctx.Run(d.marker, func() error {
		var callErr error
		out, callErr = d.registry.Call(ctx, req.Fn, args)
		return callErr
	})
	if err != nil {
		d.log.Debug("call failed", zap.String("fn", req.Fn), zap.String("id", req.ID), zap.Error(err))
		return wire.ErrorResponse(req.ID, err)
	}

	vals, err := rawCodec.EncodeAll(out)
	if err != nil {
		return wire.ErrorResponse(req.ID, rerrors.Wrap(rerrors.KindRemoteCall, req.Fn, err))
	}
	d.log.Debug("call", zap.String("fn", req.Fn), zap.String("id", req.ID), zap.Duration("took", time.Since(start)))
	return wire.Response{ID: req.ID, Data: vals}
}

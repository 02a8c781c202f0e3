// Package gateway is the single path by which wrapper code reaches the host.
//
// A [Gateway] checks its execution context marker on every call. Inside the
// host it calls the local remote API table directly; outside it encodes the
// call, sends it over a channel and blocks for the response. Both paths
// validate against the declared signature and rehydrate handles through the
// same codec, so callers cannot tell them apart.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/caffeineduck/reabind/channel"
	rerrors "github.com/caffeineduck/reabind/errors"
	"github.com/caffeineduck/reabind/handle"
	"github.com/caffeineduck/reabind/hostctx"
	"github.com/caffeineduck/reabind/hostfunc"
	"github.com/caffeineduck/reabind/wire"
)

// rawCodec decodes responses without rehydration so outputs can be checked
// against their declared kinds first.
var rawCodec = wire.NewCodec()

// Gateway routes host calls: directly to the registry while on the host
// thread, otherwise over its channel with a timeout.
type Gateway struct {
	registry *hostfunc.Registry
	ch       channel.Channel
	marker   *hostctx.Marker
	catalog  *hostfunc.Catalog
	codec    *wire.Codec
	timeout  time.Duration
	log      *zap.Logger

	// mu keeps at most one forwarded call outstanding.
	mu sync.Mutex
}

// New builds a gateway. At least one of WithRegistry and WithChannel is
// required.
func New(opts ...Option) (*Gateway, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil && cfg.ch == nil {
		return nil, errors.New("gateway: need a registry or a channel")
	}
	if cfg.timeout <= 0 {
		return nil, fmt.Errorf("gateway: invalid timeout %v", cfg.timeout)
	}
	if cfg.marker == nil {
		cfg.marker = hostctx.New()
	}
	if cfg.codec == nil {
		cfg.codec = wire.NewCodec()
	}
	return &Gateway{
		registry: cfg.registry,
		ch:       cfg.ch,
		marker:   cfg.marker,
		catalog:  cfg.catalog,
		codec:    cfg.codec,
		timeout:  cfg.timeout,
		log:      cfg.logger,
	}, nil
}

func (g *Gateway) Marker() *hostctx.Marker { return g.marker }

func (g *Gateway) Codec() *wire.Codec { return g.codec }

func (g *Gateway) Logger() *zap.Logger { return g.log }

func (g *Gateway) Timeout() time.Duration { return g.timeout }

// Enter marks the following calls as running inside the host. The returned
// func restores the previous state and must be called on every exit path.
func (g *Gateway) Enter() (release func()) {
	return g.marker.Enter()
}

// Inside runs fn with the marker entered.
func (g *Gateway) Inside(fn func() error) error {
	return hostctx.Run(g.marker, fn)
}

// Invoke calls a remote function by name. With a catalog, unknown names
// fail before anything is sent.
func (g *Gateway) Invoke(ctx context.Context, name string, args ...any) ([]any, error) {
	if sig, ok := g.lookup(name); ok {
		return g.Call(ctx, sig, args...)
	}
	if g.catalog != nil || g.ch == nil {
		return nil, rerrors.UnknownFunction(name)
	}
	// No declaration to check against: forward as is and let the host judge.
	in := make([]any, len(args))
	for i, a := range args {
		if id, ok := a.(handle.Identifier); ok {
			a = id.Handle()
		}
		in[i] = a
	}
	if g.marker.Inside() && g.registry != nil {
		return nil, rerrors.UnknownFunction(name)
	}
	return g.forward(ctx, name, in, nil)
}

func (g *Gateway) lookup(name string) (hostfunc.Signature, bool) {
	if g.catalog != nil {
		return g.catalog.Lookup(name)
	}
	if g.registry != nil {
		sig, _, ok := g.registry.Get(name)
		return sig, ok
	}
	return hostfunc.Signature{}, false
}

// Call invokes the function declared by sig. Arguments are checked and
// coerced before dispatch; the output tuple is checked against the declared
// shape and its handles rehydrated.
func (g *Gateway) Call(ctx context.Context, sig hostfunc.Signature, args ...any) ([]any, error) {
	in, err := sig.CoerceArgs(args)
	if err != nil {
		return nil, err
	}

	if g.marker.Inside() && g.registry != nil {
		out, err := g.registry.Call(ctx, sig.Name, in)
		if err != nil {
			return nil, err
		}
		return g.codec.RehydrateAll(out)
	}
	return g.forward(ctx, sig.Name, in, &sig)
}

func (g *Gateway) forward(ctx context.Context, name string, args []any, sig *hostfunc.Signature) ([]any, error) {
	if g.ch == nil {
		return nil, rerrors.RemoteCall(name, "outside the host and no channel configured")
	}

	vals, err := g.codec.EncodeAll(args)
	if err != nil {
		return nil, err
	}
	req := wire.NewRequest(name, vals)

	g.mu.Lock()
	defer g.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.ch.Call(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			g.log.Warn("remote call timed out", zap.String("fn", name), zap.String("id", req.ID), zap.Duration("timeout", g.timeout))
			return nil, rerrors.Timeout(name, time.Since(start).Round(time.Millisecond))
		}
		return nil, err
	}
	g.log.Debug("remote call", zap.String("fn", name), zap.String("id", req.ID), zap.Duration("took", time.Since(start)))

	if err := resp.Err(name); err != nil {
		return nil, err
	}

	if sig == nil {
		return g.codec.DecodeAll(resp.Data)
	}
	out, err := rawCodec.DecodeAll(resp.Data)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.KindRemoteCall, name, err)
	}
	out, err = sig.CoerceOutputs(out)
	if err != nil {
		return nil, err
	}
	return g.codec.RehydrateAll(out)
}

// Close closes the channel, if any.
func (g *Gateway) Close() error {
	if g.ch != nil {
		return g.ch.Close()
	}
	return nil
}

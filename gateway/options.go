package gateway

import (
	"time"

	"go.uber.org/zap"

	"github.com/caffeineduck/reabind/channel"
	"github.com/caffeineduck/reabind/hostctx"
	"github.com/caffeineduck/reabind/hostfunc"
	"github.com/caffeineduck/reabind/wire"
)

// DefaultTimeout bounds a call forwarded over a channel.
const DefaultTimeout = 30 * time.Second

// Option configures a Gateway.
type Option func(*config)

type config struct {
	timeout  time.Duration
	registry *hostfunc.Registry
	ch       channel.Channel
	marker   *hostctx.Marker
	catalog  *hostfunc.Catalog
	codec    *wire.Codec
	logger   *zap.Logger
}

func defaultConfig() config {
	return config{
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
}

// WithTimeout sets how long a forwarded call may wait for its response.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithRegistry supplies the remote API table for direct calls made while
// the marker is inside the host.
func WithRegistry(r *hostfunc.Registry) Option {
	return func(c *config) {
		c.registry = r
	}
}

// WithChannel supplies the channel used while the marker is outside.
func WithChannel(ch channel.Channel) Option {
	return func(c *config) {
		c.ch = ch
	}
}

// WithMarker injects the execution context marker. Gateways created
// without one get a private marker that starts outside.
func WithMarker(m *hostctx.Marker) Option {
	return func(c *config) {
		c.marker = m
	}
}

// WithCatalog makes Invoke resolve and validate names against catalog.
func WithCatalog(cat *hostfunc.Catalog) Option {
	return func(c *config) {
		c.catalog = cat
	}
}

// WithCodec sets the codec used to rehydrate outputs into wrappers.
func WithCodec(codec *wire.Codec) Option {
	return func(c *config) {
		c.codec = codec
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// Package reaper wraps the host's scripting API in typed objects.
//
// Projects, tracks, envelopes, items and sends are thin identities over the
// native handles the host hands out. Every method is a call through a
// [gateway.Gateway], so the same code runs inside the host or in another
// process. Wrappers hold no state beyond their identity: a wrapper may
// outlive the object it names, and [Object.IsValid] asks the host whether
// it still does.
package reaper

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	rerrors "github.com/caffeineduck/reabind/errors"
	"github.com/caffeineduck/reabind/gateway"
	"github.com/caffeineduck/reabind/handle"
	"github.com/caffeineduck/reabind/hostfunc"
	"github.com/caffeineduck/reabind/wire"
)

// nameBuf is the buffer size passed for names the host writes back.
const nameBuf = 512

// Client binds wrappers to one gateway.
type Client struct {
	gw  *gateway.Gateway
	log *zap.Logger

	mu      sync.Mutex
	parents map[handle.Handle]handle.Handle // track -> project
}

// Option configures a Client.
type Option func(*Client)

// WithLogger overrides the logger. The gateway's logger is used by default.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient returns a client over gw and installs the wrapper constructors
// in the gateway codec, so handles returned by the host come back as
// wrappers on both the direct and the forwarded path.
func NewClient(gw *gateway.Gateway, opts ...Option) *Client {
	c := &Client{
		gw:      gw,
		log:     gw.Logger(),
		parents: make(map[handle.Handle]handle.Handle),
	}
	for _, opt := range opts {
		opt(c)
	}

	codec := gw.Codec()
	codec.RegisterTag(handle.TagProject, func(h handle.Handle) any { return c.Project(h) })
	codec.RegisterTag(handle.TagTrack, func(h handle.Handle) any { return c.Track(h) })
	codec.RegisterTag(handle.TagEnvelope, func(h handle.Handle) any { return c.Envelope(nil, h) })
	codec.RegisterTag(handle.TagItem, func(h handle.Handle) any { return c.Item(h) })

	codec.RegisterKind(KindProject, func(args []any) (any, error) {
		h, err := handleArg(KindProject, args, 0, handle.TagProject)
		if err != nil {
			return nil, err
		}
		return c.Project(h), nil
	})
	codec.RegisterKind(KindTrack, func(args []any) (any, error) {
		h, err := handleArg(KindTrack, args, 0, handle.TagTrack)
		if err != nil {
			return nil, err
		}
		return c.Track(h), nil
	})
	codec.RegisterKind(KindItem, func(args []any) (any, error) {
		h, err := handleArg(KindItem, args, 0, handle.TagItem)
		if err != nil {
			return nil, err
		}
		return c.Item(h), nil
	})
	codec.RegisterKind(KindEnvelope, c.envelopeFromArgs)
	codec.RegisterKind(KindSend, c.sendFromArgs)
	return c
}

// Gateway returns the gateway the client calls through.
func (c *Client) Gateway() *gateway.Gateway { return c.gw }

// Deserialize rebuilds a wrapper from its serialized form.
func (c *Client) Deserialize(o wire.Object) (Object, error) {
	v, err := c.gw.Codec().Rehydrate(o)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(Object)
	if !ok {
		return nil, rerrors.Value("Deserialize", "unknown object kind", o.Kind)
	}
	return obj, nil
}

// Projects returns every open project in tab order.
func (c *Client) Projects(ctx context.Context) ([]*Project, error) {
	var projects []*Project
	for i := 0; ; i++ {
		p, err := c.enumProject(ctx, i)
		if err != nil {
			return nil, err
		}
		if p.h.IsSentinel() {
			return projects, nil
		}
		projects = append(projects, p)
	}
}

// CurrentProject returns the project in the active tab.
func (c *Client) CurrentProject(ctx context.Context) (*Project, error) {
	return c.enumProject(ctx, -1)
}

func (c *Client) enumProject(ctx context.Context, idx int) (*Project, error) {
	out, err := c.call(ctx, opEnumProjects, idx, "", 0)
	if err != nil {
		return nil, err
	}
	return c.Project(handleOf(out[0])), nil
}

// HostVersion returns the host's version string, e.g. "7.27/linux-x86_64".
func (c *Client) HostVersion(ctx context.Context) (string, error) {
	out, err := c.call(ctx, opGetAppVersion)
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

// CheckHostVersion fails with a ValueError when the host's version does not
// satisfy constraint (for example ">= 6.0").
func (c *Client) CheckHostVersion(ctx context.Context, constraint string) error {
	want, err := semver.NewConstraint(constraint)
	if err != nil {
		return rerrors.Value("CheckHostVersion", "invalid constraint: "+err.Error(), constraint)
	}
	raw, err := c.HostVersion(ctx)
	if err != nil {
		return err
	}
	num, _, _ := strings.Cut(raw, "/")
	v, err := semver.NewVersion(num)
	if err != nil {
		return rerrors.Value("CheckHostVersion", "unparsable host version", raw)
	}
	if !want.Check(v) {
		return rerrors.Value("CheckHostVersion", fmt.Sprintf("host version %s does not satisfy %q", v, constraint), raw)
	}
	return nil
}

func (c *Client) call(ctx context.Context, sig hostfunc.Signature, args ...any) ([]any, error) {
	return c.gw.Call(ctx, sig, args...)
}

func (c *Client) callInt(ctx context.Context, sig hostfunc.Signature, args ...any) (int, error) {
	out, err := c.call(ctx, sig, args...)
	if err != nil {
		return 0, err
	}
	return int(out[0].(int64)), nil
}

func (c *Client) callFloat(ctx context.Context, sig hostfunc.Signature, args ...any) (float64, error) {
	out, err := c.call(ctx, sig, args...)
	if err != nil {
		return 0, err
	}
	return out[0].(float64), nil
}

func (c *Client) callBool(ctx context.Context, sig hostfunc.Signature, args ...any) (bool, error) {
	out, err := c.call(ctx, sig, args...)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// remember records which project a track belongs to. Tracks never move
// between projects, so entries only go stale when the track dies, and
// IsValid catches that.
func (c *Client) remember(track, project handle.Handle) {
	if track.IsSentinel() || project.IsSentinel() {
		return
	}
	c.mu.Lock()
	c.parents[track] = project
	c.mu.Unlock()
}

func (c *Client) forget(track handle.Handle) {
	c.mu.Lock()
	delete(c.parents, track)
	c.mu.Unlock()
}

func (c *Client) parentOf(track handle.Handle) (handle.Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.parents[track]
	return p, ok
}

// findProject scans every open project for track. It costs one call per
// project plus one per track, so results go into the parent index.
func (c *Client) findProject(ctx context.Context, track handle.Handle) (handle.Handle, error) {
	projects, err := c.Projects(ctx)
	if err != nil {
		return handle.Handle{}, err
	}
	for _, p := range projects {
		out, err := c.call(ctx, opGetMasterTrack, p)
		if err != nil {
			return handle.Handle{}, err
		}
		if handleOf(out[0]) == track {
			c.remember(track, p.h)
			return p.h, nil
		}
		n, err := c.callInt(ctx, opCountTracks, p)
		if err != nil {
			return handle.Handle{}, err
		}
		for i := 0; i < n; i++ {
			out, err := c.call(ctx, opGetTrack, p, i)
			if err != nil {
				return handle.Handle{}, err
			}
			if handleOf(out[0]) == track {
				c.remember(track, p.h)
				return p.h, nil
			}
		}
	}
	c.log.Debug("track not found in any open project", zap.Stringer("track", track))
	return handle.Sentinel(handle.TagProject), nil
}

// handleOf extracts the handle from a decoded output, which is either a raw
// handle or a wrapper the codec built from one.
func handleOf(v any) handle.Handle {
	switch x := v.(type) {
	case handle.Handle:
		return x
	case handle.Identifier:
		return x.Handle()
	}
	return handle.Handle{}
}

func handleArg(kind string, args []any, i int, tag string) (handle.Handle, error) {
	if i >= len(args) {
		return handle.Handle{}, rerrors.Value("Deserialize", fmt.Sprintf("%s needs %d arguments", kind, i+1), len(args))
	}
	h, err := hostfunc.Coerce(args[i], hostfunc.KindHandle)
	if err != nil {
		return handle.Handle{}, rerrors.Value("Deserialize", err.Error(), args[i])
	}
	hh := h.(handle.Handle)
	if tag != "" && hh.Tag != tag {
		return handle.Handle{}, rerrors.Value("Deserialize", "expected "+tag+"*", hh.String())
	}
	return hh, nil
}

func intArg(kind string, args []any, i int) (int, error) {
	if i >= len(args) {
		return 0, rerrors.Value("Deserialize", fmt.Sprintf("%s needs %d arguments", kind, i+1), len(args))
	}
	n, err := hostfunc.Coerce(args[i], hostfunc.KindInt)
	if err != nil {
		return 0, rerrors.Value("Deserialize", err.Error(), args[i])
	}
	return int(n.(int64)), nil
}

package gateway

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/reabind/channel"
	rerrors "github.com/caffeineduck/reabind/errors"
	"github.com/caffeineduck/reabind/handle"
	"github.com/caffeineduck/reabind/hostctx"
	"github.com/caffeineduck/reabind/hostfunc"
	"github.com/caffeineduck/reabind/wire"
)

var (
	sigGetTrack = hostfunc.Signature{
		Name: "GetTrack",
		Params: []hostfunc.Param{
			{Name: "proj", Kind: hostfunc.KindHandle, Tag: handle.TagProject},
			{Name: "idx", Kind: hostfunc.KindInt},
		},
		Returns: hostfunc.KindHandle,
	}
	sigTrackName = hostfunc.Signature{
		Name: "GetTrackName",
		Params: []hostfunc.Param{
			{Name: "track", Kind: hostfunc.KindHandle, Tag: handle.TagTrack},
			{Name: "buf", Kind: hostfunc.KindString, InOut: true},
			{Name: "size", Kind: hostfunc.KindInt},
		},
		Returns: hostfunc.KindBool,
	}
	sigUndo = hostfunc.Signature{
		Name:    "Undo_DoUndo2",
		Params:  []hostfunc.Param{{Name: "proj", Kind: hostfunc.KindHandle, Tag: handle.TagProject}},
		Returns: hostfunc.KindInt,
	}
)

var proj = handle.New(handle.TagProject, 0x100)

// mockTable is a small remote API table with two tracks.
func mockTable(t *testing.T) *hostfunc.Registry {
	t.Helper()
	cat, err := hostfunc.NewCatalog(sigGetTrack, sigTrackName, sigUndo)
	require.NoError(t, err)
	reg := hostfunc.NewRegistry(cat)

	names := map[uint64]string{0x200: "Drums", 0x201: "Bass"}
	require.NoError(t, reg.RegisterDeclared("GetTrack", func(ctx context.Context, args []any) ([]any, error) {
		idx := args[1].(int64)
		if idx < 0 || idx > 1 {
			return []any{handle.Sentinel(handle.TagTrack)}, nil
		}
		return []any{handle.New(handle.TagTrack, 0x200+uint64(idx))}, nil
	}))
	require.NoError(t, reg.RegisterDeclared("GetTrackName", func(ctx context.Context, args []any) ([]any, error) {
		h := args[0].(handle.Handle)
		name, ok := names[h.Value]
		return []any{ok, h, name, args[2]}, nil
	}))
	require.NoError(t, reg.RegisterDeclared("Undo_DoUndo2", func(ctx context.Context, args []any) ([]any, error) {
		return nil, rerrors.Undo("Undo_DoUndo2")
	}))
	return reg
}

type counting struct {
	channel.Channel
	calls atomic.Int32
}

func (c *counting) Call(ctx context.Context, req wire.Request) (wire.Response, error) {
	c.calls.Add(1)
	return c.Channel.Call(ctx, req)
}

// never accepts requests and never answers them.
type never struct{ calls atomic.Int32 }

func (n *never) Call(ctx context.Context, req wire.Request) (wire.Response, error) {
	n.calls.Add(1)
	<-ctx.Done()
	return wire.Response{}, ctx.Err()
}

func (n *never) Close() error { return nil }

type track struct{ h handle.Handle }

func (t *track) Handle() handle.Handle { return t.h }

func newPair(t *testing.T) (*Gateway, *counting) {
	t.Helper()
	reg := mockTable(t)
	ch := &counting{Channel: channel.NewLoopback(NewDispatcher(reg, nil))}
	t.Cleanup(func() { ch.Close() })

	g, err := New(WithRegistry(reg), WithChannel(ch))
	require.NoError(t, err)
	return g, ch
}

func TestChannelTransparency(t *testing.T) {
	g, ch := newPair(t)
	ctx := context.Background()

	tr := handle.New(handle.TagTrack, 0x201)
	for _, tc := range []struct {
		fn   string
		args []any
	}{
		{"GetTrack", []any{proj, 1}},
		{"GetTrack", []any{proj, 7}},
		{"GetTrackName", []any{tr, "", 64}},
	} {
		before := ch.calls.Load()
		outside, err := g.Invoke(ctx, tc.fn, tc.args...)
		require.NoError(t, err)
		assert.Equal(t, before+1, ch.calls.Load(), "outside call crosses the channel once")

		var inside []any
		require.NoError(t, g.Inside(func() error {
			var err error
			inside, err = g.Invoke(ctx, tc.fn, tc.args...)
			return err
		}))
		assert.Equal(t, before+1, ch.calls.Load(), "inside call stays local")
		assert.Equal(t, inside, outside, tc.fn)
	}
}

func TestRehydratesOnBothPaths(t *testing.T) {
	g, _ := newPair(t)
	g.Codec().RegisterTag(handle.TagTrack, func(h handle.Handle) any { return &track{h} })

	out, err := g.Call(context.Background(), sigGetTrack, proj, 0)
	require.NoError(t, err)
	require.IsType(t, &track{}, out[0])
	assert.Equal(t, uint64(0x200), out[0].(*track).h.Value)

	release := g.Enter()
	out, err = g.Call(context.Background(), sigTrackName, out[0], "", 64)
	release()
	require.NoError(t, err)
	assert.Equal(t, "Drums", out[2])
	assert.IsType(t, &track{}, out[1])
}

func TestErrorKindsCrossBoundary(t *testing.T) {
	g, _ := newPair(t)

	_, err := g.Invoke(context.Background(), "Undo_DoUndo2", proj)
	assert.True(t, errors.Is(err, rerrors.ErrUndo), "got %v", err)

	_, err = g.Invoke(context.Background(), "GetTrack", proj)
	assert.True(t, errors.Is(err, rerrors.ErrRemoteCall), "arity: got %v", err)
}

func TestUnknownFunction(t *testing.T) {
	reg := mockTable(t)
	ch := &counting{Channel: channel.NewLoopback(NewDispatcher(reg, nil))}
	defer ch.Close()

	// Without any declaration the name reaches the host, which rejects it.
	bare, err := New(WithChannel(ch))
	require.NoError(t, err)
	_, err = bare.Invoke(context.Background(), "GetTrak", proj, 0)
	assert.True(t, errors.Is(err, rerrors.ErrRemoteCall), "got %v", err)
	assert.Equal(t, int32(1), ch.calls.Load())

	// With a catalog the typo never leaves the process.
	cat, err := hostfunc.NewCatalog(sigGetTrack)
	require.NoError(t, err)
	checked, err := New(WithChannel(ch), WithCatalog(cat))
	require.NoError(t, err)
	_, err = checked.Invoke(context.Background(), "GetTrak", proj, 0)
	assert.True(t, errors.Is(err, rerrors.ErrRemoteCall))
	assert.Equal(t, int32(1), ch.calls.Load())
}

func TestTimeoutLeavesMarkerUnchanged(t *testing.T) {
	for _, entered := range []bool{false, true} {
		n := &never{}
		m := hostctx.New()
		g, err := New(WithChannel(n), WithMarker(m), WithTimeout(time.Millisecond))
		require.NoError(t, err)

		var release func()
		if entered {
			// Inside without a local table still forwards.
			release = m.Enter()
		}
		_, err = g.Call(context.Background(), sigGetTrack, proj, 0)
		assert.True(t, errors.Is(err, rerrors.ErrTimeout), "got %v", err)
		assert.Equal(t, int32(1), n.calls.Load())
		assert.Equal(t, entered, m.Inside())
		assert.Equal(t, btoi(entered), m.Depth())
		if release != nil {
			release()
		}
	}
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

// inflight records the largest number of simultaneous calls.
type inflight struct {
	cur, max atomic.Int32
}

func (c *inflight) Call(ctx context.Context, req wire.Request) (wire.Response, error) {
	n := c.cur.Add(1)
	for {
		m := c.max.Load()
		if n <= m || c.max.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	c.cur.Add(-1)
	v, _ := wire.NewCodec().Encode(handle.New(handle.TagTrack, 1))
	return wire.Response{ID: req.ID, Data: []wire.Value{v}}, nil
}

func (c *inflight) Close() error { return nil }

func TestOneOutstandingCall(t *testing.T) {
	ch := &inflight{}
	g, err := New(WithChannel(ch))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Call(context.Background(), sigGetTrack, proj, 0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), ch.max.Load())
}

type fixed struct{ resp wire.Response }

func (f fixed) Call(ctx context.Context, req wire.Request) (wire.Response, error) {
	r := f.resp
	r.ID = req.ID
	return r, nil
}

func (f fixed) Close() error { return nil }

func TestOutputShapeChecked(t *testing.T) {
	c := wire.NewCodec()
	a, _ := c.Encode(int64(1))
	b, _ := c.Encode(int64(2))
	g, err := New(WithChannel(fixed{wire.Response{Data: []wire.Value{a, b}}}))
	require.NoError(t, err)

	_, err = g.Call(context.Background(), sigGetTrack, proj, 0)
	assert.True(t, errors.Is(err, rerrors.ErrRemoteCall), "got %v", err)
}

func TestNewValidates(t *testing.T) {
	_, err := New()
	assert.Error(t, err)

	_, err = New(WithChannel(&never{}), WithTimeout(0))
	assert.Error(t, err)
}

func TestInsideWithoutChannel(t *testing.T) {
	g, err := New(WithRegistry(mockTable(t)))
	require.NoError(t, err)

	_, err = g.Call(context.Background(), sigGetTrack, proj, 0)
	assert.True(t, errors.Is(err, rerrors.ErrRemoteCall), "outside with no channel: %v", err)

	err = g.Inside(func() error {
		out, err := g.Call(context.Background(), sigGetTrack, proj, 0)
		if err == nil {
			assert.Equal(t, handle.New(handle.TagTrack, 0x200), out[0])
		}
		return err
	})
	assert.NoError(t, err)
}

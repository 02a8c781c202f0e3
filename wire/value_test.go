package wire

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/caffeineduck/reabind/errors"
	"github.com/caffeineduck/reabind/handle"
)

type fakeTrack struct{ h handle.Handle }

func (f *fakeTrack) Handle() handle.Handle { return f.h }

type fakeSend struct {
	track handle.Handle
	index int64
}

func (s fakeSend) WireObject() Object {
	return Object{Kind: "Send", Args: []any{s.track, s.index}}
}

func TestCodecPrimitives(t *testing.T) {
	c := NewCodec()
	tr := handle.New(handle.TagTrack, 0x2A)

	in := []any{nil, true, 3, int64(-4), 2.5, "Drums", tr, []any{int64(1), "x"}}
	want := []any{nil, true, int64(3), int64(-4), 2.5, "Drums", tr, []any{int64(1), "x"}}

	vals, err := c.EncodeAll(in)
	require.NoError(t, err)

	data, err := json.Marshal(vals)
	require.NoError(t, err)
	var back []Value
	require.NoError(t, json.Unmarshal(data, &back))

	out, err := c.DecodeAll(back)
	require.NoError(t, err)
	assert.Equal(t, want, out)
}

func TestCodecEncodesEveryIntegerWidth(t *testing.T) {
	c := NewCodec()
	for _, v := range []any{int8(-8), int16(-16), uint(7), uint8(8), uint16(16), uint64(1 << 40)} {
		enc, err := c.Encode(v)
		require.NoError(t, err, "%T", v)
		assert.Equal(t, TypeInt, enc.T, "%T", v)
	}

	enc, err := c.Encode(uint64(math.MaxInt64))
	require.NoError(t, err)
	got, err := c.Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got)

	_, err = c.Encode(uint64(math.MaxInt64) + 1)
	assert.True(t, errors.Is(err, rerrors.ErrValue), "got %v", err)
}

func TestCodecKeepsIntFloatApart(t *testing.T) {
	c := NewCodec()
	v, err := c.Encode(1.0)
	require.NoError(t, err)
	got, err := c.Decode(v)
	require.NoError(t, err)
	assert.IsType(t, float64(0), got)
}

func TestCodecEncodesHandleAsString(t *testing.T) {
	v, err := NewCodec().Encode(&fakeTrack{handle.New(handle.TagTrack, 1)})
	require.NoError(t, err)
	assert.Equal(t, TypeHandle, v.T)
	assert.JSONEq(t, `"(MediaTrack*)0x0000000000000001"`, string(v.V))
}

func TestCodecRehydratesTags(t *testing.T) {
	c := NewCodec()
	c.RegisterTag(handle.TagTrack, func(h handle.Handle) any { return &fakeTrack{h} })

	tr := handle.New(handle.TagTrack, 9)
	proj := handle.New(handle.TagProject, 1)
	vals, err := c.EncodeAll([]any{tr, proj})
	require.NoError(t, err)

	out, err := c.DecodeAll(vals)
	require.NoError(t, err)
	require.IsType(t, &fakeTrack{}, out[0])
	assert.Equal(t, tr, out[0].(*fakeTrack).h)
	assert.Equal(t, proj, out[1], "unregistered tag stays a raw handle")
}

func TestCodecObjects(t *testing.T) {
	send := fakeSend{track: handle.New(handle.TagTrack, 3), index: 1}

	raw := NewCodec()
	v, err := raw.Encode(send)
	require.NoError(t, err)
	got, err := raw.Decode(v)
	require.NoError(t, err)
	assert.Equal(t, Object{Kind: "Send", Args: []any{send.track, int64(1)}}, got)

	c := NewCodec()
	c.RegisterKind("Send", func(args []any) (any, error) {
		return fakeSend{track: args[0].(handle.Handle), index: args[1].(int64)}, nil
	})
	got, err = c.Decode(v)
	require.NoError(t, err)
	assert.Equal(t, send, got)
}

func TestCodecErrors(t *testing.T) {
	c := NewCodec()

	_, err := c.Encode(struct{}{})
	assert.True(t, errors.Is(err, rerrors.ErrValue))

	_, err = c.Decode(Value{T: "mystery"})
	assert.True(t, errors.Is(err, rerrors.ErrValue))

	_, err = c.Decode(Value{T: TypeInt, V: json.RawMessage(`"x"`)})
	assert.True(t, errors.Is(err, rerrors.ErrValue))

	_, err = c.Decode(Value{T: TypeHandle, V: json.RawMessage(`"(MediaTrack*)0x1"`)})
	assert.True(t, errors.Is(err, rerrors.ErrFormat))
}

func TestResponseErrorKind(t *testing.T) {
	resp := ErrorResponse("7", rerrors.Undo("Undo_DoUndo2"))
	assert.Equal(t, "7", resp.ID)
	assert.Equal(t, "undo", resp.Code)
	assert.Equal(t, "host cannot undo", resp.Error)

	err := resp.Err("Undo_DoUndo2")
	assert.True(t, errors.Is(err, rerrors.ErrUndo))

	plain := ErrorResponse("8", errors.New("disk full"))
	assert.Equal(t, "remote_call", plain.Code)
	assert.Equal(t, "disk full", plain.Error)

	assert.NoError(t, Response{ID: "9"}.Err("CountTracks"))
}

func TestNewRequestIDs(t *testing.T) {
	a := NewRequest("CountTracks", nil)
	b := NewRequest("CountTracks", nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

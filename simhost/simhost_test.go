package simhost

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/reabind/handle"
	"github.com/caffeineduck/reabind/hostfunc"
	"github.com/caffeineduck/reabind/reascript"
)

func setup(t *testing.T) (*Host, *hostfunc.Registry) {
	t.Helper()
	h := New()
	reg, err := h.Registry()
	require.NoError(t, err)
	return h, reg
}

func call(t *testing.T, reg *hostfunc.Registry, name string, args ...any) []any {
	t.Helper()
	out, err := reg.Call(context.Background(), name, args)
	require.NoError(t, err, name)
	return out
}

func current() handle.Handle { return handle.Sentinel(handle.TagProject) }

func TestEveryDeclaredFunctionIsRegistered(t *testing.T) {
	_, reg := setup(t)
	assert.Equal(t, reascript.Catalog().Names(), reg.List())
}

func TestInsertAndCountTracks(t *testing.T) {
	_, reg := setup(t)

	assert.Equal(t, []any{int64(0)}, call(t, reg, "CountTracks", current()))
	call(t, reg, "InsertTrackAtIndex", 0, true)
	call(t, reg, "InsertTrackAtIndex", 99, true)
	assert.Equal(t, []any{int64(2)}, call(t, reg, "CountTracks", current()))

	out := call(t, reg, "GetTrack", current(), 5)
	assert.True(t, out[0].(handle.Handle).IsSentinel())
}

func TestHandlesAreNeverReused(t *testing.T) {
	_, reg := setup(t)
	call(t, reg, "InsertTrackAtIndex", 0, true)
	first := call(t, reg, "GetTrack", current(), 0)[0].(handle.Handle)
	call(t, reg, "DeleteTrack", first)
	call(t, reg, "InsertTrackAtIndex", 0, true)
	second := call(t, reg, "GetTrack", current(), 0)[0].(handle.Handle)

	assert.NotEqual(t, first, second)
	assert.Equal(t, []any{false}, call(t, reg, "ValidatePtr2", current(), first, "MediaTrack*"))
	assert.Equal(t, []any{true}, call(t, reg, "ValidatePtr2", current(), second, "MediaTrack*"))
}

func TestValidatePtr2ScopesToProject(t *testing.T) {
	h, reg := setup(t)
	call(t, reg, "InsertTrackAtIndex", 0, true)
	tr := call(t, reg, "GetTrack", current(), 0)[0]
	other := h.OpenProject("other")

	assert.Equal(t, []any{true}, call(t, reg, "ValidatePtr2", h.Current(), tr, "MediaTrack*"))
	assert.Equal(t, []any{false}, call(t, reg, "ValidatePtr2", other, tr, "MediaTrack*"))
	assert.Equal(t, []any{false}, call(t, reg, "ValidatePtr2", h.Current(), tr, "TrackEnvelope*"))
	assert.Equal(t, []any{true}, call(t, reg, "ValidatePtr", other, "ReaProject*"))

	require.NoError(t, h.CloseProject(other))
	assert.Equal(t, []any{false}, call(t, reg, "ValidatePtr", other, "ReaProject*"))
}

func TestEnumAndSelectProjects(t *testing.T) {
	h, reg := setup(t)
	first := h.Current()
	second := h.OpenProject("second")

	out := call(t, reg, "EnumProjects", -1, "", 512)
	assert.Equal(t, first, out[0])
	assert.Equal(t, "Untitled.rpp", out[2])

	call(t, reg, "SelectProjectInstance", second)
	assert.Equal(t, second, h.Current())

	out = call(t, reg, "EnumProjects", 7, "", 512)
	assert.True(t, out[0].(handle.Handle).IsSentinel())

	out = call(t, reg, "GetProjectName", second, "", 512)
	assert.Equal(t, "second", out[1])
}

func TestTrackNamesAndInfo(t *testing.T) {
	_, reg := setup(t)
	call(t, reg, "InsertTrackAtIndex", 0, true)
	call(t, reg, "InsertTrackAtIndex", 1, true)
	tr := call(t, reg, "GetTrack", current(), 1)[0]

	assert.Equal(t, "Track 2", call(t, reg, "GetTrackName", tr, "", 512)[2])

	call(t, reg, "GetSetMediaTrackInfo_String", tr, "P_NAME", "Bass", true)
	assert.Equal(t, "Bass", call(t, reg, "GetTrackName", tr, "", 512)[2])
	assert.Equal(t, "Bass", call(t, reg, "GetSetMediaTrackInfo_String", tr, "P_NAME", "", false)[3])

	assert.Equal(t, []any{2.0}, call(t, reg, "GetMediaTrackInfo_Value", tr, "IP_TRACKNUMBER"))
	assert.Equal(t, []any{1.0}, call(t, reg, "GetMediaTrackInfo_Value", tr, "D_VOL"))
	assert.Equal(t, []any{false}, call(t, reg, "SetMediaTrackInfo_Value", tr, "IP_TRACKNUMBER", 5.0))

	master := call(t, reg, "GetMasterTrack", current())[0]
	assert.Equal(t, "MASTER", call(t, reg, "GetTrackName", master, "", 512)[2])
	assert.Equal(t, []any{-1.0}, call(t, reg, "GetMediaTrackInfo_Value", master, "IP_TRACKNUMBER"))
}

func TestUndoRedoInsert(t *testing.T) {
	_, reg := setup(t)
	assert.Equal(t, []any{int64(0)}, call(t, reg, "Undo_DoUndo2", current()))

	call(t, reg, "InsertTrackAtIndex", 0, true)
	tr := call(t, reg, "GetTrack", current(), 0)[0]
	assert.Equal(t, []any{"Insert track"}, call(t, reg, "Undo_CanUndo2", current()))

	assert.Equal(t, []any{int64(1)}, call(t, reg, "Undo_DoUndo2", current()))
	assert.Equal(t, []any{int64(0)}, call(t, reg, "CountTracks", current()))
	assert.Equal(t, []any{false}, call(t, reg, "ValidatePtr2", current(), tr, "MediaTrack*"))

	assert.Equal(t, []any{int64(1)}, call(t, reg, "Undo_DoRedo2", current()))
	assert.Equal(t, []any{int64(1)}, call(t, reg, "CountTracks", current()))
	assert.Equal(t, []any{true}, call(t, reg, "ValidatePtr2", current(), tr, "MediaTrack*"))
	assert.Equal(t, []any{""}, call(t, reg, "Undo_CanRedo2", current()))
}

func TestProjExtState(t *testing.T) {
	_, reg := setup(t)

	assert.Equal(t, []any{int64(1)}, call(t, reg, "SetProjExtState", current(), "mixer", "k", "hello"))
	out := call(t, reg, "GetProjExtState", current(), "mixer", "k", "", 512)
	assert.Equal(t, int64(5), out[0])
	assert.Equal(t, "hello", out[4])

	out = call(t, reg, "GetProjExtState", current(), "mixer", "k", "", 3)
	assert.Equal(t, "he", out[4])

	call(t, reg, "SetProjExtState", current(), "mixer", "k", "")
	out = call(t, reg, "GetProjExtState", current(), "mixer", "k", "", 512)
	assert.Equal(t, int64(0), out[0])
}

func TestEnvelopes(t *testing.T) {
	_, reg := setup(t)
	call(t, reg, "InsertTrackAtIndex", 0, true)
	tr := call(t, reg, "GetTrack", current(), 0)[0]

	assert.Equal(t, []any{int64(2)}, call(t, reg, "CountTrackEnvelopes", tr))
	vol := call(t, reg, "GetTrackEnvelopeByName", tr, "Volume")[0].(handle.Handle)
	assert.False(t, vol.IsSentinel())
	assert.Equal(t, vol, call(t, reg, "GetTrackEnvelopeByChunkName", tr, "<VOLENV2")[0])
	assert.True(t, call(t, reg, "GetTrackEnvelopeByName", tr, "Mute")[0].(handle.Handle).IsSentinel())

	out := call(t, reg, "Envelope_Evaluate", vol, 1.0, 44100.0, 1, 0.0, 0.0, 0.0, 0.0)
	assert.Equal(t, 1.0, out[5])

	call(t, reg, "InsertEnvelopePoint", vol, 2.0, 0.0, 0, 0.0, false, false)
	call(t, reg, "InsertEnvelopePoint", vol, 0.0, 1.0, 0, 0.0, false, false)
	assert.Equal(t, []any{int64(2)}, call(t, reg, "CountEnvelopePoints", vol))

	out = call(t, reg, "Envelope_Evaluate", vol, 1.0, 44100.0, 1, 0.0, 0.0, 0.0, 0.0)
	assert.InDelta(t, 0.5, out[5], 1e-9)
}

func TestItemsAndSends(t *testing.T) {
	_, reg := setup(t)
	call(t, reg, "InsertTrackAtIndex", 0, true)
	call(t, reg, "InsertTrackAtIndex", 1, true)
	a := call(t, reg, "GetTrack", current(), 0)[0]
	b := call(t, reg, "GetTrack", current(), 1)[0]

	it := call(t, reg, "AddMediaItemToTrack", a)[0]
	call(t, reg, "SetMediaItemInfo_Value", it, "D_POSITION", 4.0)
	assert.Equal(t, []any{4.0}, call(t, reg, "GetMediaItemInfo_Value", it, "D_POSITION"))
	assert.Equal(t, []any{a}, call(t, reg, "GetMediaItem_Track", it))
	assert.Equal(t, []any{true}, call(t, reg, "DeleteTrackMediaItem", a, it))
	assert.Equal(t, []any{int64(0)}, call(t, reg, "CountTrackMediaItems", a))

	assert.Equal(t, []any{int64(0)}, call(t, reg, "CreateTrackSend", a, b))
	assert.Equal(t, []any{int64(1)}, call(t, reg, "GetTrackNumSends", a, 0))
	assert.Equal(t, []any{int64(1)}, call(t, reg, "GetTrackNumSends", b, -1))
	assert.Equal(t, []any{1.0}, call(t, reg, "GetTrackSendInfo_Value", a, 0, 0, "D_VOL"))

	call(t, reg, "DeleteTrack", b)
	assert.Equal(t, []any{int64(0)}, call(t, reg, "GetTrackNumSends", a, 0))
}

func TestUndoDeleteTrackRestoresSends(t *testing.T) {
	_, reg := setup(t)
	for i := 0; i < 3; i++ {
		call(t, reg, "InsertTrackAtIndex", i, true)
	}
	a := call(t, reg, "GetTrack", current(), 0)[0]
	b := call(t, reg, "GetTrack", current(), 1)[0]
	c := call(t, reg, "GetTrack", current(), 2)[0]

	call(t, reg, "CreateTrackSend", a, b)
	call(t, reg, "CreateTrackSend", a, c)
	call(t, reg, "CreateTrackSend", a, b)
	call(t, reg, "SetTrackSendInfo_Value", a, 0, 2, "D_VOL", 0.5)

	call(t, reg, "DeleteTrack", b)
	assert.Equal(t, []any{int64(1)}, call(t, reg, "GetTrackNumSends", a, 0))

	assert.Equal(t, []any{int64(1)}, call(t, reg, "Undo_DoUndo2", current()))
	assert.Equal(t, []any{int64(3)}, call(t, reg, "GetTrackNumSends", a, 0))
	assert.Equal(t, []any{int64(2)}, call(t, reg, "GetTrackNumSends", b, -1))
	assert.Equal(t, []any{1.0}, call(t, reg, "GetTrackSendInfo_Value", a, 0, 0, "D_VOL"))
	assert.Equal(t, []any{0.5}, call(t, reg, "GetTrackSendInfo_Value", a, 0, 2, "D_VOL"))

	assert.Equal(t, []any{int64(1)}, call(t, reg, "Undo_DoRedo2", current()))
	assert.Equal(t, []any{int64(1)}, call(t, reg, "GetTrackNumSends", a, 0))
	assert.Equal(t, []any{int64(1)}, call(t, reg, "GetTrackNumSends", c, -1))
}

func TestCloseCurrentProject(t *testing.T) {
	h, reg := setup(t)
	first := h.Current()
	require.NoError(t, h.CloseProject(first))
	assert.NotEqual(t, first, h.Current())
	assert.Error(t, h.CloseProject(first))
	assert.Equal(t, []any{int64(0)}, call(t, reg, "CountTracks", current()))
}

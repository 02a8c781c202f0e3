// Package reascript declares the signatures of the host scripting functions
// this module calls. Both the client gateway and the simulated host resolve
// functions through [Catalog], so the two sides cannot drift apart.
package reascript

import (
	"github.com/caffeineduck/reabind/handle"
	"github.com/caffeineduck/reabind/hostfunc"
)

func ptr(name, tag string) hostfunc.Param {
	return hostfunc.Param{Name: name, Kind: hostfunc.KindHandle, Tag: tag}
}

func anyPtr(name string) hostfunc.Param {
	return hostfunc.Param{Name: name, Kind: hostfunc.KindHandle}
}

func num(name string) hostfunc.Param { return hostfunc.Param{Name: name, Kind: hostfunc.KindInt} }

func dbl(name string) hostfunc.Param { return hostfunc.Param{Name: name, Kind: hostfunc.KindFloat} }

func flag(name string) hostfunc.Param { return hostfunc.Param{Name: name, Kind: hostfunc.KindBool} }

func str(name string) hostfunc.Param { return hostfunc.Param{Name: name, Kind: hostfunc.KindString} }

func out(p hostfunc.Param) hostfunc.Param {
	p.InOut = true
	return p
}

func fn(name string, returns hostfunc.Kind, params ...hostfunc.Param) hostfunc.Signature {
	return hostfunc.Signature{Name: name, Params: params, Returns: returns}
}

const (
	void   = hostfunc.KindVoid
	kInt   = hostfunc.KindInt
	kFloat = hostfunc.KindFloat
	kBool  = hostfunc.KindBool
	kStr   = hostfunc.KindString
	kPtr   = hostfunc.KindHandle
)

var (
	proj  = ptr("proj", handle.TagProject)
	track = ptr("track", handle.TagTrack)
	env   = ptr("envelope", handle.TagEnvelope)
	item  = ptr("item", handle.TagItem)
)

var signatures = []hostfunc.Signature{
	fn("GetAppVersion", kStr),

	// projects
	fn("EnumProjects", kPtr, num("idx"), out(str("projfn")), num("projfn_sz")),
	fn("SelectProjectInstance", void, proj),
	fn("GetProjectName", void, proj, out(str("buf")), num("buf_sz")),
	fn("ValidatePtr", kBool, anyPtr("pointer"), str("ctypename")),
	fn("ValidatePtr2", kBool, proj, anyPtr("pointer"), str("ctypename")),
	fn("SetProjExtState", kInt, proj, str("extname"), str("key"), str("value")),
	fn("GetProjExtState", kInt, proj, str("extname"), str("key"), out(str("valOut")), num("valOut_sz")),
	fn("Undo_DoUndo2", kInt, proj),
	fn("Undo_DoRedo2", kInt, proj),
	fn("Undo_CanUndo2", kStr, proj),
	fn("Undo_CanRedo2", kStr, proj),

	// tracks
	fn("CountTracks", kInt, proj),
	fn("GetTrack", kPtr, proj, num("trackidx")),
	fn("GetMasterTrack", kPtr, proj),
	fn("InsertTrackAtIndex", void, num("idx"), flag("wantDefaults")),
	fn("DeleteTrack", void, track),
	fn("GetTrackName", kBool, track, out(str("buf")), num("buf_sz")),
	fn("GetSetMediaTrackInfo_String", kBool, track, str("parmname"), out(str("stringNeedBig")), flag("setNewValue")),
	fn("GetMediaTrackInfo_Value", kFloat, track, str("parmname")),
	fn("SetMediaTrackInfo_Value", kBool, track, str("parmname"), dbl("newvalue")),

	// envelopes
	fn("CountTrackEnvelopes", kInt, track),
	fn("GetTrackEnvelope", kPtr, track, num("envidx")),
	fn("GetTrackEnvelopeByName", kPtr, track, str("envname")),
	fn("GetTrackEnvelopeByChunkName", kPtr, track, str("cfgchunkname")),
	fn("GetEnvelopeName", kBool, env, out(str("buf")), num("buf_sz")),
	fn("CountEnvelopePoints", kInt, env),
	fn("InsertEnvelopePoint", kBool, env, dbl("time"), dbl("value"), num("shape"), dbl("tension"), flag("selected"), flag("noSort")),
	fn("Envelope_Evaluate", kInt, env, dbl("time"), dbl("samplerate"), num("samplesRequested"),
		out(dbl("value")), out(dbl("dVdS")), out(dbl("ddVdS")), out(dbl("dddVdS"))),

	// items
	fn("AddMediaItemToTrack", kPtr, track),
	fn("CountTrackMediaItems", kInt, track),
	fn("GetTrackMediaItem", kPtr, track, num("itemidx")),
	fn("GetMediaItem_Track", kPtr, item),
	fn("GetMediaItemInfo_Value", kFloat, item, str("parmname")),
	fn("SetMediaItemInfo_Value", kBool, item, str("parmname"), dbl("newvalue")),
	fn("DeleteTrackMediaItem", kBool, track, item),

	// sends
	fn("CreateTrackSend", kInt, track, ptr("desttr", handle.TagTrack)),
	fn("GetTrackNumSends", kInt, track, num("category")),
	fn("GetTrackSendInfo_Value", kFloat, track, num("category"), num("sendidx"), str("parmname")),
	fn("SetTrackSendInfo_Value", kBool, track, num("category"), num("sendidx"), str("parmname"), dbl("newvalue")),
}

var catalog = func() *hostfunc.Catalog {
	c, err := hostfunc.NewCatalog(signatures...)
	if err != nil {
		panic(err)
	}
	return c
}()

// Catalog returns the declared signatures.
func Catalog() *hostfunc.Catalog {
	return catalog
}

// Must returns the signature for name, panicking if it is not declared.
func Must(name string) hostfunc.Signature {
	return catalog.Must(name)
}

package reaper

import "github.com/caffeineduck/reabind/reascript"

// Remote functions used by the wrappers, resolved once so a misspelt name
// fails at startup.
var (
	opGetAppVersion = reascript.Must("GetAppVersion")

	opEnumProjects          = reascript.Must("EnumProjects")
	opSelectProjectInstance = reascript.Must("SelectProjectInstance")
	opGetProjectName        = reascript.Must("GetProjectName")
	opValidatePtr           = reascript.Must("ValidatePtr")
	opValidatePtr2          = reascript.Must("ValidatePtr2")
	opSetProjExtState       = reascript.Must("SetProjExtState")
	opGetProjExtState       = reascript.Must("GetProjExtState")
	opUndo                  = reascript.Must("Undo_DoUndo2")
	opRedo                  = reascript.Must("Undo_DoRedo2")
	opCanUndo               = reascript.Must("Undo_CanUndo2")
	opCanRedo               = reascript.Must("Undo_CanRedo2")

	opCountTracks        = reascript.Must("CountTracks")
	opGetTrack           = reascript.Must("GetTrack")
	opGetMasterTrack     = reascript.Must("GetMasterTrack")
	opInsertTrackAtIndex = reascript.Must("InsertTrackAtIndex")
	opDeleteTrack        = reascript.Must("DeleteTrack")
	opGetTrackName       = reascript.Must("GetTrackName")
	opTrackInfoString    = reascript.Must("GetSetMediaTrackInfo_String")
	opGetTrackInfo       = reascript.Must("GetMediaTrackInfo_Value")
	opSetTrackInfo       = reascript.Must("SetMediaTrackInfo_Value")

	opCountTrackEnvelopes  = reascript.Must("CountTrackEnvelopes")
	opGetTrackEnvelope     = reascript.Must("GetTrackEnvelope")
	opEnvelopeByName       = reascript.Must("GetTrackEnvelopeByName")
	opEnvelopeByChunkName  = reascript.Must("GetTrackEnvelopeByChunkName")
	opGetEnvelopeName      = reascript.Must("GetEnvelopeName")
	opCountEnvelopePoints  = reascript.Must("CountEnvelopePoints")
	opInsertEnvelopePoint  = reascript.Must("InsertEnvelopePoint")
	opEnvelopeEvaluate     = reascript.Must("Envelope_Evaluate")
	opAddMediaItemToTrack  = reascript.Must("AddMediaItemToTrack")
	opCountTrackMediaItems = reascript.Must("CountTrackMediaItems")
	opGetTrackMediaItem    = reascript.Must("GetTrackMediaItem")
	opGetMediaItemTrack    = reascript.Must("GetMediaItem_Track")
	opGetItemInfo          = reascript.Must("GetMediaItemInfo_Value")
	opSetItemInfo          = reascript.Must("SetMediaItemInfo_Value")
	opDeleteTrackMediaItem = reascript.Must("DeleteTrackMediaItem")
	opCreateTrackSend      = reascript.Must("CreateTrackSend")
	opGetTrackNumSends     = reascript.Must("GetTrackNumSends")
	opGetTrackSendInfo     = reascript.Must("GetTrackSendInfo_Value")
	opSetTrackSendInfo     = reascript.Must("SetTrackSendInfo_Value")
)

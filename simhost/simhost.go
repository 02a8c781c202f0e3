// Package simhost is an in-memory stand-in for the DAW host. It keeps
// projects, tracks, envelopes, items and sends the way the host does,
// hands out pointer-like handles that are never reused, and implements the
// remote functions declared in package reascript.
//
// The simulated host backs "reabind serve" and the tests of every layer
// above the gateway.
package simhost

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/caffeineduck/reabind/extstate"
	"github.com/caffeineduck/reabind/handle"
	"github.com/caffeineduck/reabind/hostfunc"
	"github.com/caffeineduck/reabind/reascript"
)

// DefaultVersion is reported by GetAppVersion.
const DefaultVersion = "7.27/linux-x86_64"

type action struct {
	label      string
	undo, redo func()
}

type project struct {
	ptr    uint64
	name   string
	tracks []*track
	master *track
	undo   []action
	redo   []action
}

type track struct {
	ptr       uint64
	proj      *project
	name      string
	master    bool
	info      map[string]float64
	strs      map[string]string
	envelopes []*envelope
	items     []*item
	sends     []*send
}

type point struct {
	time, value float64
	shape       int64
	tension     float64
	selected    bool
}

type envelope struct {
	ptr    uint64
	track  *track
	name   string
	chunk  string
	deflt  float64
	points []point
}

type item struct {
	ptr   uint64
	track *track
	info  map[string]float64
}

type send struct {
	dest *track
	info map[string]float64
}

// Host is the simulated host. All remote functions run under one lock, as
// the real host runs script calls on its main thread.
type Host struct {
	mu       sync.Mutex
	nextPtr  uint64
	projects []*project
	current  *project
	live     map[uint64]any
	store    extstate.Store
	version  string
	log      *zap.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithExtState sets the extended-state store. The default is in memory.
func WithExtState(s extstate.Store) Option {
	return func(h *Host) {
		h.store = s
	}
}

// WithVersion sets the string GetAppVersion reports.
func WithVersion(v string) Option {
	return func(h *Host) {
		h.version = v
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.log = l
		}
	}
}

// New returns a host with one open, current project.
func New(opts ...Option) *Host {
	h := &Host{
		nextPtr: 0x10000,
		live:    make(map[uint64]any),
		version: DefaultVersion,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.store == nil {
		h.store = extstate.NewMemory(extstate.DefaultLimits())
	}
	h.current = h.newProject("Untitled")
	return h
}

func (h *Host) alloc() uint64 {
	h.nextPtr += 0x40
	return h.nextPtr
}

func (h *Host) newProject(name string) *project {
	p := &project{ptr: h.alloc(), name: name}
	h.live[p.ptr] = p
	p.master = &track{ptr: h.alloc(), proj: p, master: true, info: defaultTrackInfo(), strs: map[string]string{}}
	h.live[p.master.ptr] = p.master
	h.projects = append(h.projects, p)
	return p
}

// OpenProject opens a new project tab and returns its handle. The current
// project does not change.
func (h *Host) OpenProject(name string) handle.Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return projectHandle(h.newProject(name))
}

// CloseProject closes a project tab. Its handle and the handles of
// everything in it go stale. Closing the current project makes the first
// remaining one current; closing the last one opens a fresh project.
func (h *Host) CloseProject(ph handle.Handle) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.liveProject(ph)
	if !ok {
		return fmt.Errorf("project %s is not open", ph)
	}
	for i, q := range h.projects {
		if q == p {
			h.projects = append(h.projects[:i], h.projects[i+1:]...)
			break
		}
	}
	delete(h.live, p.ptr)
	h.forget(p.master)
	for _, t := range p.tracks {
		h.forget(t)
	}
	if h.current == p {
		if len(h.projects) == 0 {
			h.newProject("Untitled")
		}
		h.current = h.projects[0]
	}
	h.log.Debug("closed project", zap.String("name", p.name))
	return nil
}

// Current returns the current project's handle.
func (h *Host) Current() handle.Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return projectHandle(h.current)
}

// Registry returns a registry holding every remote function.
func (h *Host) Registry() (*hostfunc.Registry, error) {
	reg := hostfunc.NewRegistry(reascript.Catalog())
	if err := h.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Register adds every remote function to reg, which must use the reascript
// catalog.
func (h *Host) Register(reg *hostfunc.Registry) error {
	for name, fn := range h.funcs() {
		if err := reg.RegisterDeclared(name, h.locked(fn)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Host) locked(fn hostfunc.Func) hostfunc.Func {
	return func(ctx context.Context, args []any) ([]any, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		return fn(ctx, args)
	}
}

func (h *Host) funcs() map[string]hostfunc.Func {
	return map[string]hostfunc.Func{
		"GetAppVersion": h.getAppVersion,

		"EnumProjects":          h.enumProjects,
		"SelectProjectInstance": h.selectProjectInstance,
		"GetProjectName":        h.getProjectName,
		"ValidatePtr":           h.validatePtr,
		"ValidatePtr2":          h.validatePtr2,
		"SetProjExtState":       h.setProjExtState,
		"GetProjExtState":       h.getProjExtState,
		"Undo_DoUndo2":          h.doUndo,
		"Undo_DoRedo2":          h.doRedo,
		"Undo_CanUndo2":         h.canUndo,
		"Undo_CanRedo2":         h.canRedo,

		"CountTracks":                 h.countTracks,
		"GetTrack":                    h.getTrack,
		"GetMasterTrack":              h.getMasterTrack,
		"InsertTrackAtIndex":          h.insertTrackAtIndex,
		"DeleteTrack":                 h.deleteTrack,
		"GetTrackName":                h.getTrackName,
		"GetSetMediaTrackInfo_String": h.getSetTrackInfoString,
		"GetMediaTrackInfo_Value":     h.getTrackInfoValue,
		"SetMediaTrackInfo_Value":     h.setTrackInfoValue,

		"CountTrackEnvelopes":         h.countTrackEnvelopes,
		"GetTrackEnvelope":            h.getTrackEnvelope,
		"GetTrackEnvelopeByName":      h.getTrackEnvelopeByName,
		"GetTrackEnvelopeByChunkName": h.getTrackEnvelopeByChunkName,
		"GetEnvelopeName":             h.getEnvelopeName,
		"CountEnvelopePoints":         h.countEnvelopePoints,
		"InsertEnvelopePoint":         h.insertEnvelopePoint,
		"Envelope_Evaluate":           h.envelopeEvaluate,

		"AddMediaItemToTrack":    h.addMediaItemToTrack,
		"CountTrackMediaItems":   h.countTrackMediaItems,
		"GetTrackMediaItem":      h.getTrackMediaItem,
		"GetMediaItem_Track":     h.getMediaItemTrack,
		"GetMediaItemInfo_Value": h.getMediaItemInfoValue,
		"SetMediaItemInfo_Value": h.setMediaItemInfoValue,
		"DeleteTrackMediaItem":   h.deleteTrackMediaItem,

		"CreateTrackSend":        h.createTrackSend,
		"GetTrackNumSends":       h.getTrackNumSends,
		"GetTrackSendInfo_Value": h.getTrackSendInfoValue,
		"SetTrackSendInfo_Value": h.setTrackSendInfoValue,
	}
}

func (h *Host) getAppVersion(ctx context.Context, args []any) ([]any, error) {
	return []any{h.version}, nil
}

func projectHandle(p *project) handle.Handle {
	if p == nil {
		return handle.Sentinel(handle.TagProject)
	}
	return handle.New(handle.TagProject, p.ptr)
}

func trackHandle(t *track) handle.Handle {
	if t == nil {
		return handle.Sentinel(handle.TagTrack)
	}
	return handle.New(handle.TagTrack, t.ptr)
}

func envelopeHandle(e *envelope) handle.Handle {
	if e == nil {
		return handle.Sentinel(handle.TagEnvelope)
	}
	return handle.New(handle.TagEnvelope, e.ptr)
}

func itemHandle(it *item) handle.Handle {
	if it == nil {
		return handle.Sentinel(handle.TagItem)
	}
	return handle.New(handle.TagItem, it.ptr)
}

// liveProject resolves a project handle. The sentinel means the current
// project, as it does for the host.
func (h *Host) liveProject(ph handle.Handle) (*project, bool) {
	if ph.IsSentinel() {
		return h.current, h.current != nil
	}
	p, ok := h.live[ph.Value].(*project)
	return p, ok
}

func (h *Host) liveTrack(th handle.Handle) (*track, bool) {
	t, ok := h.live[th.Value].(*track)
	return t, ok
}

func (h *Host) liveEnvelope(eh handle.Handle) (*envelope, bool) {
	e, ok := h.live[eh.Value].(*envelope)
	return e, ok
}

func (h *Host) liveItem(ih handle.Handle) (*item, bool) {
	it, ok := h.live[ih.Value].(*item)
	return it, ok
}

// forget marks a track and everything it owns as destroyed.
func (h *Host) forget(t *track) {
	delete(h.live, t.ptr)
	for _, e := range t.envelopes {
		delete(h.live, e.ptr)
	}
	for _, it := range t.items {
		delete(h.live, it.ptr)
	}
}

// revive undoes forget.
func (h *Host) revive(t *track) {
	h.live[t.ptr] = t
	for _, e := range t.envelopes {
		h.live[e.ptr] = e
	}
	for _, it := range t.items {
		h.live[it.ptr] = it
	}
}

// owner returns the project a live object belongs to.
func (h *Host) owner(v any) *project {
	switch x := v.(type) {
	case *project:
		return x
	case *track:
		return x.proj
	case *envelope:
		return x.track.proj
	case *item:
		return x.track.proj
	}
	return nil
}

func tagOf(v any) string {
	switch v.(type) {
	case *project:
		return handle.TagProject
	case *track:
		return handle.TagTrack
	case *envelope:
		return handle.TagEnvelope
	case *item:
		return handle.TagItem
	}
	return ""
}

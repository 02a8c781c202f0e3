package reaper

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	rerrors "github.com/caffeineduck/reabind/errors"
	"github.com/caffeineduck/reabind/handle"
)

// MaxExtStateLen is the first value length the host cannot store.
const MaxExtStateLen = 1<<31 - 1

// Project is an open project tab.
type Project struct {
	c *Client
	h handle.Handle
}

// Project wraps h. It makes no host call.
func (c *Client) Project(h handle.Handle) *Project {
	return &Project{c: c, h: h}
}

func (p *Project) Handle() handle.Handle { return p.h }
func (p *Project) Kind() string          { return KindProject }
func (p *Project) Args() []any           { return []any{p.h} }
func (p *Project) String() string        { return p.h.String() }

func (p *Project) IsValid(ctx context.Context) bool {
	ok, err := p.c.callBool(ctx, opValidatePtr, p.h, p.h.TypeName())
	return err == nil && ok
}

func (p *Project) Name(ctx context.Context) (string, error) {
	out, err := p.c.call(ctx, opGetProjectName, p, "", nameBuf)
	if err != nil {
		return "", err
	}
	return out[1].(string), nil
}

// IsCurrent reports whether p is the project in the active tab.
func (p *Project) IsCurrent(ctx context.Context) (bool, error) {
	cur, err := p.c.CurrentProject(ctx)
	if err != nil {
		return false, err
	}
	return cur.h == p.h, nil
}

func (p *Project) NumTracks(ctx context.Context) (int, error) {
	return p.c.callInt(ctx, opCountTracks, p)
}

// Tracks returns a live view of the project's tracks.
func (p *Project) Tracks() *TrackList {
	return newTrackList(p)
}

func (p *Project) MasterTrack(ctx context.Context) (*Track, error) {
	out, err := p.c.call(ctx, opGetMasterTrack, p)
	if err != nil {
		return nil, err
	}
	t := p.c.Track(handleOf(out[0]))
	if t.h.IsSentinel() {
		return nil, rerrors.InvalidObject("Project.MasterTrack", p)
	}
	t.proj = p.h
	p.c.remember(t.h, p.h)
	return t, nil
}

// MakeCurrent enters the host context and selects p as the current
// project. The returned restore func reselects the previously current
// project if it is still open, and otherwise leaves p current and logs a
// warning. restore also leaves the host context; it is safe to call more
// than once.
func (p *Project) MakeCurrent(ctx context.Context) (restore func(), err error) {
	release := p.c.gw.Enter()

	prev, err := p.c.CurrentProject(ctx)
	if err != nil {
		release()
		return nil, err
	}
	if _, err := p.c.call(ctx, opSelectProjectInstance, p); err != nil {
		release()
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			defer release()
			if !prev.IsValid(ctx) {
				p.c.log.Warn("previous project is no longer open, leaving current project selected",
					zap.Stringer("previous", prev.h), zap.Stringer("current", p.h))
				return
			}
			if _, err := p.c.call(ctx, opSelectProjectInstance, prev); err != nil {
				p.c.log.Warn("failed to restore previous project", zap.Stringer("previous", prev.h), zap.Error(err))
			}
		})
	}, nil
}

// WithCurrent runs fn with p selected as the current project.
func (p *Project) WithCurrent(ctx context.Context, fn func(ctx context.Context) error) error {
	restore, err := p.MakeCurrent(ctx)
	if err != nil {
		return err
	}
	defer restore()
	return fn(ctx)
}

// AddTrack inserts a track at index and names it. Negative indices count
// from the end; out-of-range ones are clamped.
func (p *Project) AddTrack(ctx context.Context, index int, name string) (*Track, error) {
	n, err := p.NumTracks(ctx)
	if err != nil {
		return nil, err
	}
	index = max(-n, min(index, n))
	if index < 0 {
		index += n
	}

	err = p.WithCurrent(ctx, func(ctx context.Context) error {
		_, err := p.c.call(ctx, opInsertTrackAtIndex, index, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	t, err := p.Tracks().At(ctx, index)
	if err != nil {
		return nil, err
	}
	if name != "" {
		if err := t.SetName(ctx, name); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Undo undoes the last action, failing with an UndoError when there is
// nothing to undo.
func (p *Project) Undo(ctx context.Context) error {
	n, err := p.c.callInt(ctx, opUndo, p)
	if err != nil {
		return err
	}
	if n == 0 {
		return rerrors.Undo("Project.Undo")
	}
	return nil
}

func (p *Project) Redo(ctx context.Context) error {
	n, err := p.c.callInt(ctx, opRedo, p)
	if err != nil {
		return err
	}
	if n == 0 {
		return rerrors.Redo("Project.Redo")
	}
	return nil
}

// CanUndo returns the label of the action Undo would revert, or "".
func (p *Project) CanUndo(ctx context.Context) (string, error) {
	out, err := p.c.call(ctx, opCanUndo, p)
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

func (p *Project) CanRedo(ctx context.Context) (string, error) {
	out, err := p.c.call(ctx, opCanRedo, p)
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

// CheckExtStateLen fails with a ValueError for a value of n bytes the host
// cannot store.
func CheckExtStateLen(n int) error {
	if n >= MaxExtStateLen {
		return rerrors.Value("Project.SetExtState", "value too long for ext state", n)
	}
	return nil
}

// SetExtState stores value under section and key in the project file.
// An empty value deletes the key.
func (p *Project) SetExtState(ctx context.Context, section, key, value string) error {
	if err := CheckExtStateLen(len(value)); err != nil {
		return err
	}
	_, err := p.c.call(ctx, opSetProjExtState, p, section, key, value)
	return err
}

// SetExtStateJSON stores v encoded as JSON.
func (p *Project) SetExtStateJSON(ctx context.Context, section, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return rerrors.Value("Project.SetExtStateJSON", err.Error(), nil)
	}
	return p.SetExtState(ctx, section, key, string(data))
}

// ExtState returns the value stored under section and key, or "" when
// there is none.
func (p *Project) ExtState(ctx context.Context, section, key string) (string, error) {
	out, err := p.c.call(ctx, opGetProjExtState, p, section, key, "", MaxExtStateLen)
	if err != nil {
		return "", err
	}
	return out[4].(string), nil
}

// ExtStateJSON decodes the JSON value stored under section and key into v.
// It fails with a KeyError when nothing is stored.
func (p *Project) ExtStateJSON(ctx context.Context, section, key string, v any) error {
	s, err := p.ExtState(ctx, section, key)
	if err != nil {
		return err
	}
	if s == "" {
		return rerrors.KeyNotFound("Project.ExtStateJSON", section+"/"+key)
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return rerrors.Value("Project.ExtStateJSON", err.Error(), s)
	}
	return nil
}

func (p *Project) DeleteExtState(ctx context.Context, section, key string) error {
	return p.SetExtState(ctx, section, key, "")
}

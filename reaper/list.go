package reaper

import (
	"context"
	"strings"

	rerrors "github.com/caffeineduck/reabind/errors"
	"github.com/caffeineduck/reabind/handle"
)

// Slice selects elements the way a Python slice does. Nil fields take their
// defaults: Start and Stop span the whole collection, Step is 1.
type Slice struct {
	Start, Stop, Step *int
}

// Int returns a pointer to i, for building a Slice.
func Int(i int) *int { return &i }

// Indices expands s over a collection of length n.
func (s Slice) Indices(n int) ([]int, error) {
	step := 1
	if s.Step != nil {
		step = *s.Step
	}
	if step == 0 {
		return nil, rerrors.Value("Slice.Indices", "slice step cannot be zero", 0)
	}

	lower, upper := 0, n
	if step < 0 {
		lower, upper = -1, n-1
	}
	bound := func(p *int, def int) int {
		if p == nil {
			return def
		}
		i := *p
		if i < 0 {
			i += n
			if i < lower {
				i = lower
			}
		} else if i > upper {
			i = upper
		}
		return i
	}

	var start, stop int
	if step > 0 {
		start, stop = bound(s.Start, lower), bound(s.Stop, upper)
	} else {
		start, stop = bound(s.Start, upper), bound(s.Stop, lower)
	}

	var out []int
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		out = append(out, i)
	}
	return out, nil
}

// view is the shared part of the collection views. It caches nothing: every
// operation starts from a fresh count.
type view[T Object] struct {
	op    string
	count func(ctx context.Context) (int, error)
	get   func(ctx context.Context, i int) (T, handle.Handle, error)
}

func (v view[T]) Len(ctx context.Context) (int, error) {
	return v.count(ctx)
}

// At returns the i-th element. Negative indices count from the end.
func (v view[T]) At(ctx context.Context, i int) (T, error) {
	var zero T
	n, err := v.count(ctx)
	if err != nil {
		return zero, err
	}
	j := i
	if j < 0 {
		j += n
	}
	if j < 0 || j >= n {
		return zero, rerrors.IndexOutOfRange(v.op+".At", i, n)
	}
	return v.resolve(ctx, j, n)
}

func (v view[T]) resolve(ctx context.Context, i, n int) (T, error) {
	var zero T
	el, h, err := v.get(ctx, i)
	if err != nil {
		return zero, err
	}
	if h.IsSentinel() {
		return zero, rerrors.IndexOutOfRange(v.op+".At", i, n)
	}
	return el, nil
}

// Slice returns the elements s selects, in order.
func (v view[T]) Slice(ctx context.Context, s Slice) ([]T, error) {
	n, err := v.count(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := s.Indices(n)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(idx))
	for _, i := range idx {
		el, err := v.resolve(ctx, i, n)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

// All returns every element.
func (v view[T]) All(ctx context.Context) ([]T, error) {
	return v.Slice(ctx, Slice{})
}

// TrackList is a live view of a project's tracks.
type TrackList struct {
	view[*Track]
	project *Project
}

func newTrackList(p *Project) *TrackList {
	l := &TrackList{project: p}
	l.view = view[*Track]{
		op:    "TrackList",
		count: p.NumTracks,
		get: func(ctx context.Context, i int) (*Track, handle.Handle, error) {
			out, err := p.c.call(ctx, opGetTrack, p, i)
			if err != nil {
				return nil, handle.Handle{}, err
			}
			t := p.c.Track(handleOf(out[0]))
			t.proj = p.h
			p.c.remember(t.h, p.h)
			return t, t.h, nil
		},
	}
	return l
}

func (l *TrackList) Project() *Project { return l.project }

// ByName returns the first track called name, or a KeyError.
func (l *TrackList) ByName(ctx context.Context, name string) (*Track, error) {
	tracks, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tracks {
		n, err := t.Name(ctx)
		if err != nil {
			return nil, err
		}
		if n == name {
			return t, nil
		}
	}
	return nil, rerrors.KeyNotFound("TrackList.ByName", name)
}

// Delete removes the i-th track.
func (l *TrackList) Delete(ctx context.Context, i int) error {
	t, err := l.At(ctx, i)
	if err != nil {
		return err
	}
	return t.Delete(ctx)
}

// DeleteSlice removes the tracks s selects. The tracks are resolved first
// and then deleted one at a time, so indices do not shift underneath. It is
// not atomic: when a delete fails the earlier ones stay done.
func (l *TrackList) DeleteSlice(ctx context.Context, s Slice) error {
	tracks, err := l.Slice(ctx, s)
	if err != nil {
		return err
	}
	for _, t := range tracks {
		if err := t.Delete(ctx); err != nil {
			return err
		}
	}
	return nil
}

// EnvelopeList is a live view of a track's envelopes.
type EnvelopeList struct {
	view[*Envelope]
	parent *Track
}

func newEnvelopeList(t *Track) *EnvelopeList {
	l := &EnvelopeList{parent: t}
	l.view = view[*Envelope]{
		op:    "EnvelopeList",
		count: t.NumEnvelopes,
		get: func(ctx context.Context, i int) (*Envelope, handle.Handle, error) {
			out, err := t.c.call(ctx, opGetTrackEnvelope, t, i)
			if err != nil {
				return nil, handle.Handle{}, err
			}
			e := t.c.Envelope(t, handleOf(out[0]))
			return e, e.h, nil
		},
	}
	return l
}

func (l *EnvelopeList) Parent() *Track { return l.parent }

// ByName returns the envelope called name, or a KeyError. Names starting
// with "<" are matched against the envelope's chunk name, e.g. "<VOLENV2".
func (l *EnvelopeList) ByName(ctx context.Context, name string) (*Envelope, error) {
	op := opEnvelopeByName
	if strings.HasPrefix(name, "<") {
		op = opEnvelopeByChunkName
	}
	out, err := l.parent.c.call(ctx, op, l.parent, name)
	if err != nil {
		return nil, err
	}
	e := l.parent.c.Envelope(l.parent, handleOf(out[0]))
	if e.h.IsSentinel() {
		return nil, rerrors.KeyNotFound("EnvelopeList.ByName", name)
	}
	return e, nil
}

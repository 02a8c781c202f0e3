package reaper

import (
	"context"

	rerrors "github.com/caffeineduck/reabind/errors"
	"github.com/caffeineduck/reabind/handle"
)

// Envelope is an automation envelope on a track or an item.
type Envelope struct {
	c      *Client
	h      handle.Handle
	parent Object // *Track, *Item or nil when unknown
}

// Point is one envelope point.
type Point struct {
	Time     float64
	Value    float64
	Shape    int
	Tension  float64
	Selected bool
}

// Envelope wraps h. parent may be nil, in which case IsValid reports false
// until the envelope is reached through a track.
func (c *Client) Envelope(parent Object, h handle.Handle) *Envelope {
	return &Envelope{c: c, h: h, parent: parent}
}

func (c *Client) envelopeFromArgs(args []any) (any, error) {
	h, err := handleArg(KindEnvelope, args, 1, handle.TagEnvelope)
	if err != nil {
		return nil, err
	}
	ph, err := handleArg(KindEnvelope, args, 0, "")
	if err != nil {
		return nil, err
	}
	var parent Object
	switch ph.Tag {
	case handle.TagTrack:
		parent = c.Track(ph)
	case handle.TagItem:
		parent = c.Item(ph)
	default:
		return nil, rerrors.Value("Deserialize", "envelope parent must be a track or an item", ph.String())
	}
	return c.Envelope(parent, h), nil
}

func (e *Envelope) Handle() handle.Handle { return e.h }
func (e *Envelope) Kind() string          { return KindEnvelope }
func (e *Envelope) String() string        { return e.h.String() }

// Args is the parent's handle followed by the envelope's.
func (e *Envelope) Args() []any {
	ph := handle.Sentinel(handle.TagTrack)
	if id, ok := e.parent.(handle.Identifier); ok {
		ph = id.Handle()
	}
	return []any{ph, e.h}
}

// Parent returns the owning track or item.
func (e *Envelope) Parent() Object { return e.parent }

func (e *Envelope) project(ctx context.Context) (*Project, error) {
	switch p := e.parent.(type) {
	case *Track:
		return p.Project(ctx)
	case *Item:
		t, err := p.Track(ctx)
		if err != nil {
			return nil, err
		}
		return t.Project(ctx)
	}
	return nil, rerrors.InvalidObject("Envelope.Project", e)
}

func (e *Envelope) IsValid(ctx context.Context) bool {
	if e.h.IsSentinel() {
		return false
	}
	p, err := e.project(ctx)
	if err != nil {
		return false
	}
	return validIn(ctx, e.c, p, e.h)
}

func (e *Envelope) Name(ctx context.Context) (string, error) {
	out, err := e.c.call(ctx, opGetEnvelopeName, e, "", nameBuf)
	if err != nil {
		return "", err
	}
	if !out[0].(bool) {
		return "", rerrors.InvalidObject("Envelope.Name", e)
	}
	return out[2].(string), nil
}

func (e *Envelope) NumPoints(ctx context.Context) (int, error) {
	return e.c.callInt(ctx, opCountEnvelopePoints, e)
}

// InsertPoint adds pt and keeps the points sorted by time.
func (e *Envelope) InsertPoint(ctx context.Context, pt Point) error {
	ok, err := e.c.callBool(ctx, opInsertEnvelopePoint, e, pt.Time, pt.Value, pt.Shape, pt.Tension, pt.Selected, false)
	if err != nil {
		return err
	}
	if !ok {
		return rerrors.InvalidObject("Envelope.InsertPoint", e)
	}
	return nil
}

// Evaluate returns the envelope's value at time seconds.
func (e *Envelope) Evaluate(ctx context.Context, time float64) (float64, error) {
	out, err := e.c.call(ctx, opEnvelopeEvaluate, e, time, 44100.0, 1, 0.0, 0.0, 0.0, 0.0)
	if err != nil {
		return 0, err
	}
	if out[0].(int64) == 0 {
		return 0, rerrors.InvalidObject("Envelope.Evaluate", e)
	}
	return out[5].(float64), nil
}

package reaper

import (
	"context"

	rerrors "github.com/caffeineduck/reabind/errors"
	"github.com/caffeineduck/reabind/handle"
)

// Send categories for Track.NumSends and Track.Sends.
const (
	CategoryReceive  = -1
	CategorySend     = 0
	CategoryHardware = 1
)

// Track is a track, including a project's master track.
type Track struct {
	c    *Client
	h    handle.Handle
	proj handle.Handle // zero until resolved
}

// Track wraps h. It makes no host call.
func (c *Client) Track(h handle.Handle) *Track {
	t := &Track{c: c, h: h}
	if p, ok := c.parentOf(h); ok {
		t.proj = p
	}
	return t
}

func (t *Track) Handle() handle.Handle { return t.h }
func (t *Track) Kind() string          { return KindTrack }
func (t *Track) Args() []any           { return []any{t.h} }
func (t *Track) String() string        { return t.h.String() }

// Project returns the project that owns t. The first lookup of a track not
// reached through a project scans every open project.
func (t *Track) Project(ctx context.Context) (*Project, error) {
	if t.proj.IsSentinel() {
		p, err := t.c.findProject(ctx, t.h)
		if err != nil {
			return nil, err
		}
		if p.IsSentinel() {
			return nil, rerrors.InvalidObject("Track.Project", t)
		}
		t.proj = p
	}
	return t.c.Project(t.proj), nil
}

func (t *Track) IsValid(ctx context.Context) bool {
	if t.h.IsSentinel() {
		return false
	}
	p, err := t.Project(ctx)
	if err != nil {
		return false
	}
	return validIn(ctx, t.c, p, t.h)
}

func validIn(ctx context.Context, c *Client, p *Project, h handle.Handle) bool {
	ok, err := c.callBool(ctx, opValidatePtr2, p, h, h.TypeName())
	return err == nil && ok
}

func (t *Track) Name(ctx context.Context) (string, error) {
	out, err := t.c.call(ctx, opGetTrackName, t, "", nameBuf)
	if err != nil {
		return "", err
	}
	if !out[0].(bool) {
		return "", rerrors.InvalidObject("Track.Name", t)
	}
	return out[2].(string), nil
}

func (t *Track) SetName(ctx context.Context, name string) error {
	out, err := t.c.call(ctx, opTrackInfoString, t, "P_NAME", name, true)
	if err != nil {
		return err
	}
	if !out[0].(bool) {
		return rerrors.RemoteCall(opTrackInfoString.Name, "host refused to rename "+t.String())
	}
	return nil
}

// Index returns the track's position in its project, or -1 for the master
// track.
func (t *Track) Index(ctx context.Context) (int, error) {
	n, err := t.InfoValue(ctx, "IP_TRACKNUMBER")
	if err != nil {
		return 0, err
	}
	switch n {
	case 0:
		return 0, rerrors.InvalidObject("Track.Index", t)
	case -1:
		return -1, nil
	}
	return int(n) - 1, nil
}

// InfoValue reads a numeric track attribute such as "D_VOL".
func (t *Track) InfoValue(ctx context.Context, param string) (float64, error) {
	return t.c.callFloat(ctx, opGetTrackInfo, t, param)
}

func (t *Track) SetInfoValue(ctx context.Context, param string, v float64) error {
	ok, err := t.c.callBool(ctx, opSetTrackInfo, t, param, v)
	if err != nil {
		return err
	}
	if !ok {
		return rerrors.RemoteCall(opSetTrackInfo.Name, "host refused to set "+param)
	}
	return nil
}

// Delete removes the track from its project.
func (t *Track) Delete(ctx context.Context) error {
	if _, err := t.c.call(ctx, opDeleteTrack, t); err != nil {
		return err
	}
	t.c.forget(t.h)
	return nil
}

func (t *Track) NumEnvelopes(ctx context.Context) (int, error) {
	return t.c.callInt(ctx, opCountTrackEnvelopes, t)
}

// Envelopes returns a live view of the track's envelopes.
func (t *Track) Envelopes() *EnvelopeList {
	return newEnvelopeList(t)
}

// AddItem creates an empty media item on the track.
func (t *Track) AddItem(ctx context.Context) (*Item, error) {
	out, err := t.c.call(ctx, opAddMediaItemToTrack, t)
	if err != nil {
		return nil, err
	}
	it := t.c.Item(handleOf(out[0]))
	if it.h.IsSentinel() {
		return nil, rerrors.InvalidObject("Track.AddItem", t)
	}
	it.track = t
	return it, nil
}

func (t *Track) NumItems(ctx context.Context) (int, error) {
	return t.c.callInt(ctx, opCountTrackMediaItems, t)
}

// Items returns the track's media items.
func (t *Track) Items(ctx context.Context) ([]*Item, error) {
	n, err := t.NumItems(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]*Item, 0, n)
	for i := 0; i < n; i++ {
		out, err := t.c.call(ctx, opGetTrackMediaItem, t, i)
		if err != nil {
			return nil, err
		}
		it := t.c.Item(handleOf(out[0]))
		if it.h.IsSentinel() {
			return nil, rerrors.IndexOutOfRange("Track.Items", i, n)
		}
		it.track = t
		items = append(items, it)
	}
	return items, nil
}

// AddSend creates a send from t to dest.
func (t *Track) AddSend(ctx context.Context, dest *Track) (*Send, error) {
	idx, err := t.c.callInt(ctx, opCreateTrackSend, t, dest)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, rerrors.RemoteCall(opCreateTrackSend.Name, "host refused to create send to "+dest.String())
	}
	return t.c.Send(t, CategorySend, idx), nil
}

func (t *Track) NumSends(ctx context.Context, category int) (int, error) {
	return t.c.callInt(ctx, opGetTrackNumSends, t, category)
}

// Sends returns the track's sends in category.
func (t *Track) Sends(ctx context.Context, category int) ([]*Send, error) {
	n, err := t.NumSends(ctx, category)
	if err != nil {
		return nil, err
	}
	sends := make([]*Send, n)
	for i := range sends {
		sends[i] = t.c.Send(t, category, i)
	}
	return sends, nil
}

package reaper

import (
	"context"

	rerrors "github.com/caffeineduck/reabind/errors"
	"github.com/caffeineduck/reabind/handle"
)

// Item is a media item.
type Item struct {
	c     *Client
	h     handle.Handle
	track *Track // nil until resolved
}

// Item wraps h. It makes no host call.
func (c *Client) Item(h handle.Handle) *Item {
	return &Item{c: c, h: h}
}

func (it *Item) Handle() handle.Handle { return it.h }
func (it *Item) Kind() string          { return KindItem }
func (it *Item) Args() []any           { return []any{it.h} }
func (it *Item) String() string        { return it.h.String() }

// Track returns the track the item sits on.
func (it *Item) Track(ctx context.Context) (*Track, error) {
	if it.track != nil {
		return it.track, nil
	}
	out, err := it.c.call(ctx, opGetMediaItemTrack, it)
	if err != nil {
		return nil, err
	}
	t := it.c.Track(handleOf(out[0]))
	if t.h.IsSentinel() {
		return nil, rerrors.InvalidObject("Item.Track", it)
	}
	it.track = t
	return t, nil
}

func (it *Item) IsValid(ctx context.Context) bool {
	if it.h.IsSentinel() {
		return false
	}
	t, err := it.Track(ctx)
	if err != nil {
		return false
	}
	p, err := t.Project(ctx)
	if err != nil {
		return false
	}
	return validIn(ctx, it.c, p, it.h)
}

// InfoValue reads a numeric item attribute such as "D_POSITION".
func (it *Item) InfoValue(ctx context.Context, param string) (float64, error) {
	return it.c.callFloat(ctx, opGetItemInfo, it, param)
}

func (it *Item) SetInfoValue(ctx context.Context, param string, v float64) error {
	ok, err := it.c.callBool(ctx, opSetItemInfo, it, param, v)
	if err != nil {
		return err
	}
	if !ok {
		return rerrors.InvalidObject("Item.SetInfoValue", it)
	}
	return nil
}

// Position is the item's start time in seconds.
func (it *Item) Position(ctx context.Context) (float64, error) {
	return it.InfoValue(ctx, "D_POSITION")
}

func (it *Item) SetPosition(ctx context.Context, seconds float64) error {
	return it.SetInfoValue(ctx, "D_POSITION", seconds)
}

// Length is the item's duration in seconds.
func (it *Item) Length(ctx context.Context) (float64, error) {
	return it.InfoValue(ctx, "D_LENGTH")
}

func (it *Item) SetLength(ctx context.Context, seconds float64) error {
	return it.SetInfoValue(ctx, "D_LENGTH", seconds)
}

// Delete removes the item from its track.
func (it *Item) Delete(ctx context.Context) error {
	t, err := it.Track(ctx)
	if err != nil {
		return err
	}
	ok, err := it.c.callBool(ctx, opDeleteTrackMediaItem, t, it)
	if err != nil {
		return err
	}
	if !ok {
		return rerrors.InvalidObject("Item.Delete", it)
	}
	return nil
}

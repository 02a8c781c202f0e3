package reaper

import (
	"context"
	"fmt"

	rerrors "github.com/caffeineduck/reabind/errors"
	"github.com/caffeineduck/reabind/handle"
)

// Send is a track send, receive or hardware output. The host has no handle
// for it, so it is identified by its track, category and index.
type Send struct {
	c        *Client
	track    *Track
	category int
	index    int
}

// Send wraps the index-th send of track in category. It makes no host call.
func (c *Client) Send(track *Track, category, index int) *Send {
	return &Send{c: c, track: track, category: category, index: index}
}

func (c *Client) sendFromArgs(args []any) (any, error) {
	th, err := handleArg(KindSend, args, 0, handle.TagTrack)
	if err != nil {
		return nil, err
	}
	category, err := intArg(KindSend, args, 1)
	if err != nil {
		return nil, err
	}
	index, err := intArg(KindSend, args, 2)
	if err != nil {
		return nil, err
	}
	return c.Send(c.Track(th), category, index), nil
}

func (s *Send) Kind() string { return KindSend }

func (s *Send) Args() []any {
	return []any{s.track.h, int64(s.category), int64(s.index)}
}

func (s *Send) String() string {
	return fmt.Sprintf("send %d/%d of %s", s.category, s.index, s.track)
}

func (s *Send) Track() *Track { return s.track }
func (s *Send) Category() int { return s.category }
func (s *Send) Index() int    { return s.index }

// IsValid reports whether the owning track is still live.
func (s *Send) IsValid(ctx context.Context) bool {
	return s.track.IsValid(ctx)
}

// Info reads a numeric send attribute such as "D_VOL".
func (s *Send) Info(ctx context.Context, param string) (float64, error) {
	return s.c.callFloat(ctx, opGetTrackSendInfo, s.track, s.category, s.index, param)
}

func (s *Send) SetInfo(ctx context.Context, param string, v float64) error {
	ok, err := s.c.callBool(ctx, opSetTrackSendInfo, s.track, s.category, s.index, param, v)
	if err != nil {
		return err
	}
	if !ok {
		return rerrors.InvalidObject("Send.SetInfo", s)
	}
	return nil
}

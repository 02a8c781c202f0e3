package simhost

import (
	"context"
	"slices"
	"strings"

	"github.com/caffeineduck/reabind/handle"
)

func (h *Host) countTrackEnvelopes(ctx context.Context, args []any) ([]any, error) {
	t, ok := h.liveTrack(args[0].(handle.Handle))
	if !ok {
		return []any{int64(0)}, nil
	}
	return []any{int64(len(t.envelopes))}, nil
}

func (h *Host) getTrackEnvelope(ctx context.Context, args []any) ([]any, error) {
	t, ok := h.liveTrack(args[0].(handle.Handle))
	idx := args[1].(int64)
	if !ok || idx < 0 || idx >= int64(len(t.envelopes)) {
		return []any{envelopeHandle(nil)}, nil
	}
	return []any{envelopeHandle(t.envelopes[idx])}, nil
}

func (h *Host) getTrackEnvelopeByName(ctx context.Context, args []any) ([]any, error) {
	t, ok := h.liveTrack(args[0].(handle.Handle))
	if !ok {
		return []any{envelopeHandle(nil)}, nil
	}
	name := args[1].(string)
	for _, e := range t.envelopes {
		if e.name == name {
			return []any{envelopeHandle(e)}, nil
		}
	}
	return []any{envelopeHandle(nil)}, nil
}

func (h *Host) getTrackEnvelopeByChunkName(ctx context.Context, args []any) ([]any, error) {
	t, ok := h.liveTrack(args[0].(handle.Handle))
	if !ok {
		return []any{envelopeHandle(nil)}, nil
	}
	chunk := args[1].(string)
	if !strings.HasPrefix(chunk, "<") {
		chunk = "<" + chunk
	}
	for _, e := range t.envelopes {
		if e.chunk == chunk {
			return []any{envelopeHandle(e)}, nil
		}
	}
	return []any{envelopeHandle(nil)}, nil
}

func (h *Host) getEnvelopeName(ctx context.Context, args []any) ([]any, error) {
	e, ok := h.liveEnvelope(args[0].(handle.Handle))
	if !ok {
		return []any{false, args[0], "", args[2]}, nil
	}
	return []any{true, args[0], truncate(e.name, args[2].(int64)), args[2]}, nil
}

func (h *Host) countEnvelopePoints(ctx context.Context, args []any) ([]any, error) {
	e, ok := h.liveEnvelope(args[0].(handle.Handle))
	if !ok {
		return []any{int64(0)}, nil
	}
	return []any{int64(len(e.points))}, nil
}

func (h *Host) insertEnvelopePoint(ctx context.Context, args []any) ([]any, error) {
	e, ok := h.liveEnvelope(args[0].(handle.Handle))
	if !ok {
		return []any{false}, nil
	}
	pt := point{
		time:     args[1].(float64),
		value:    args[2].(float64),
		shape:    args[3].(int64),
		tension:  args[4].(float64),
		selected: args[5].(bool),
	}
	e.points = append(e.points, pt)
	if !args[6].(bool) {
		sortPoints(e.points)
	}
	return []any{true}, nil
}

func sortPoints(pts []point) {
	slices.SortStableFunc(pts, func(a, b point) int {
		switch {
		case a.time < b.time:
			return -1
		case a.time > b.time:
			return 1
		}
		return 0
	})
}

// value interpolates linearly between points. Square points (shape 1) hold
// their value until the next one.
func (e *envelope) value(at float64) float64 {
	if len(e.points) == 0 {
		return e.deflt
	}
	pts := slices.Clone(e.points)
	sortPoints(pts)
	if at <= pts[0].time {
		return pts[0].value
	}
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		if at < b.time {
			if a.shape == 1 || b.time == a.time {
				return a.value
			}
			frac := (at - a.time) / (b.time - a.time)
			return a.value + frac*(b.value-a.value)
		}
	}
	return pts[len(pts)-1].value
}

func (h *Host) envelopeEvaluate(ctx context.Context, args []any) ([]any, error) {
	e, ok := h.liveEnvelope(args[0].(handle.Handle))
	if !ok {
		return []any{int64(0), args[0], args[1], args[2], args[3], 0.0, 0.0, 0.0, 0.0}, nil
	}
	v := e.value(args[1].(float64))
	return []any{int64(1), args[0], args[1], args[2], args[3], v, 0.0, 0.0, 0.0}, nil
}

func (h *Host) addMediaItemToTrack(ctx context.Context, args []any) ([]any, error) {
	t, ok := h.liveTrack(args[0].(handle.Handle))
	if !ok {
		return []any{itemHandle(nil)}, nil
	}
	it := &item{
		ptr:   h.alloc(),
		track: t,
		info:  map[string]float64{"D_POSITION": 0, "D_LENGTH": 0, "D_VOL": 1.0},
	}
	t.items = append(t.items, it)
	h.live[it.ptr] = it
	return []any{itemHandle(it)}, nil
}

func (h *Host) countTrackMediaItems(ctx context.Context, args []any) ([]any, error) {
	t, ok := h.liveTrack(args[0].(handle.Handle))
	if !ok {
		return []any{int64(0)}, nil
	}
	return []any{int64(len(t.items))}, nil
}

func (h *Host) getTrackMediaItem(ctx context.Context, args []any) ([]any, error) {
	t, ok := h.liveTrack(args[0].(handle.Handle))
	idx := args[1].(int64)
	if !ok || idx < 0 || idx >= int64(len(t.items)) {
		return []any{itemHandle(nil)}, nil
	}
	return []any{itemHandle(t.items[idx])}, nil
}

func (h *Host) getMediaItemTrack(ctx context.Context, args []any) ([]any, error) {
	it, ok := h.liveItem(args[0].(handle.Handle))
	if !ok {
		return []any{trackHandle(nil)}, nil
	}
	return []any{trackHandle(it.track)}, nil
}

func (h *Host) getMediaItemInfoValue(ctx context.Context, args []any) ([]any, error) {
	it, ok := h.liveItem(args[0].(handle.Handle))
	if !ok {
		return []any{0.0}, nil
	}
	return []any{it.info[args[1].(string)]}, nil
}

func (h *Host) setMediaItemInfoValue(ctx context.Context, args []any) ([]any, error) {
	it, ok := h.liveItem(args[0].(handle.Handle))
	if !ok {
		return []any{false}, nil
	}
	it.info[args[1].(string)] = args[2].(float64)
	return []any{true}, nil
}

func (h *Host) deleteTrackMediaItem(ctx context.Context, args []any) ([]any, error) {
	t, ok := h.liveTrack(args[0].(handle.Handle))
	it, itemOK := h.liveItem(args[1].(handle.Handle))
	if !ok || !itemOK || it.track != t {
		return []any{false}, nil
	}
	t.items = slices.DeleteFunc(t.items, func(x *item) bool { return x == it })
	delete(h.live, it.ptr)
	return []any{true}, nil
}

// Send categories: 0 sends, -1 receives, 1 hardware outputs.
func (h *Host) receives(t *track) []*send {
	var out []*send
	for _, src := range t.proj.tracks {
		for _, s := range src.sends {
			if s.dest == t {
				out = append(out, s)
			}
		}
	}
	return out
}

func (h *Host) sendList(t *track, category int64) []*send {
	switch category {
	case 0:
		return t.sends
	case -1:
		return h.receives(t)
	}
	return nil
}

func (h *Host) createTrackSend(ctx context.Context, args []any) ([]any, error) {
	t, ok := h.liveTrack(args[0].(handle.Handle))
	dest, destOK := h.liveTrack(args[1].(handle.Handle))
	if !ok || !destOK || dest == t || dest.proj != t.proj {
		return []any{int64(-1)}, nil
	}
	t.sends = append(t.sends, &send{dest: dest, info: map[string]float64{"D_VOL": 1.0, "D_PAN": 0, "B_MUTE": 0}})
	return []any{int64(len(t.sends) - 1)}, nil
}

func (h *Host) getTrackNumSends(ctx context.Context, args []any) ([]any, error) {
	t, ok := h.liveTrack(args[0].(handle.Handle))
	if !ok {
		return []any{int64(0)}, nil
	}
	return []any{int64(len(h.sendList(t, args[1].(int64))))}, nil
}

func (h *Host) lookupSend(args []any) (*send, bool) {
	t, ok := h.liveTrack(args[0].(handle.Handle))
	if !ok {
		return nil, false
	}
	list := h.sendList(t, args[1].(int64))
	idx := args[2].(int64)
	if idx < 0 || idx >= int64(len(list)) {
		return nil, false
	}
	return list[idx], true
}

func (h *Host) getTrackSendInfoValue(ctx context.Context, args []any) ([]any, error) {
	s, ok := h.lookupSend(args)
	if !ok {
		return []any{0.0}, nil
	}
	return []any{s.info[args[3].(string)]}, nil
}

func (h *Host) setTrackSendInfoValue(ctx context.Context, args []any) ([]any, error) {
	s, ok := h.lookupSend(args)
	if !ok {
		return []any{false}, nil
	}
	s.info[args[3].(string)] = args[4].(float64)
	return []any{true}, nil
}

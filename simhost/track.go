package simhost

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/caffeineduck/reabind/handle"
)

func defaultTrackInfo() map[string]float64 {
	return map[string]float64{
		"D_VOL":  1.0,
		"D_PAN":  0.0,
		"B_MUTE": 0,
		"I_SOLO": 0,
	}
}

func (h *Host) newTrack(p *project) *track {
	t := &track{
		ptr:  h.alloc(),
		proj: p,
		info: defaultTrackInfo(),
		strs: map[string]string{},
	}
	t.envelopes = []*envelope{
		{ptr: h.alloc(), track: t, name: "Volume", chunk: "<VOLENV2", deflt: 1.0},
		{ptr: h.alloc(), track: t, name: "Pan", chunk: "<PANENV2", deflt: 0.0},
	}
	return t
}

func (p *project) indexOf(t *track) int {
	for i, x := range p.tracks {
		if x == t {
			return i
		}
	}
	return -1
}

func (p *project) insertAt(i int, t *track) {
	p.tracks = append(p.tracks, nil)
	copy(p.tracks[i+1:], p.tracks[i:])
	p.tracks[i] = t
}

func (p *project) removeAt(i int) {
	p.tracks = append(p.tracks[:i], p.tracks[i+1:]...)
}

func (h *Host) countTracks(ctx context.Context, args []any) ([]any, error) {
	p, ok := h.liveProject(args[0].(handle.Handle))
	if !ok {
		return []any{int64(0)}, nil
	}
	return []any{int64(len(p.tracks))}, nil
}

func (h *Host) getTrack(ctx context.Context, args []any) ([]any, error) {
	p, ok := h.liveProject(args[0].(handle.Handle))
	idx := args[1].(int64)
	if !ok || idx < 0 || idx >= int64(len(p.tracks)) {
		return []any{trackHandle(nil)}, nil
	}
	return []any{trackHandle(p.tracks[idx])}, nil
}

func (h *Host) getMasterTrack(ctx context.Context, args []any) ([]any, error) {
	p, ok := h.liveProject(args[0].(handle.Handle))
	if !ok {
		return []any{trackHandle(nil)}, nil
	}
	return []any{trackHandle(p.master)}, nil
}

// insertTrackAtIndex always acts on the current project.
func (h *Host) insertTrackAtIndex(ctx context.Context, args []any) ([]any, error) {
	p := h.current
	idx := int(args[0].(int64))
	idx = max(0, min(idx, len(p.tracks)))

	t := h.newTrack(p)
	p.insertAt(idx, t)
	h.revive(t)
	h.record(p, action{
		label: "Insert track",
		undo: func() {
			if i := p.indexOf(t); i >= 0 {
				p.removeAt(i)
				h.forget(t)
			}
		},
		redo: func() {
			p.insertAt(min(idx, len(p.tracks)), t)
			h.revive(t)
		},
	})
	h.log.Debug("inserted track", zap.Int("index", idx), zap.Uint64("ptr", t.ptr))
	return nil, nil
}

func (h *Host) deleteTrack(ctx context.Context, args []any) ([]any, error) {
	t, ok := h.liveTrack(args[0].(handle.Handle))
	if !ok || t.master {
		return nil, nil
	}
	p := t.proj
	idx := p.indexOf(t)
	if idx < 0 {
		return nil, nil
	}
	p.removeAt(idx)
	h.forget(t)
	dropped := p.dropSendsTo(t)
	h.record(p, action{
		label: "Delete track",
		undo: func() {
			p.insertAt(min(idx, len(p.tracks)), t)
			h.revive(t)
			for _, d := range dropped {
				d.src.sends = slices.Insert(d.src.sends, min(d.idx, len(d.src.sends)), d.send)
			}
		},
		redo: func() {
			if i := p.indexOf(t); i >= 0 {
				p.removeAt(i)
				h.forget(t)
				p.dropSendsTo(t)
			}
		},
	})
	h.log.Debug("deleted track", zap.Int("index", idx), zap.Uint64("ptr", t.ptr))
	return nil, nil
}

// droppedSend is a send removed along with its destination track.
type droppedSend struct {
	src  *track
	idx  int
	send *send
}

// dropSendsTo removes every send to dest and returns them in source order.
func (p *project) dropSendsTo(dest *track) []droppedSend {
	var dropped []droppedSend
	for _, src := range p.tracks {
		kept := make([]*send, 0, len(src.sends))
		for i, s := range src.sends {
			if s.dest == dest {
				dropped = append(dropped, droppedSend{src: src, idx: i, send: s})
				continue
			}
			kept = append(kept, s)
		}
		src.sends = kept
	}
	return dropped
}

func (t *track) displayName() string {
	if t.master {
		return "MASTER"
	}
	if t.name != "" {
		return t.name
	}
	return fmt.Sprintf("Track %d", t.proj.indexOf(t)+1)
}

func (h *Host) getTrackName(ctx context.Context, args []any) ([]any, error) {
	t, ok := h.liveTrack(args[0].(handle.Handle))
	if !ok {
		return []any{false, args[0], "", args[2]}, nil
	}
	return []any{true, args[0], truncate(t.displayName(), args[2].(int64)), args[2]}, nil
}

func (h *Host) getSetTrackInfoString(ctx context.Context, args []any) ([]any, error) {
	t, ok := h.liveTrack(args[0].(handle.Handle))
	parm, value, set := args[1].(string), args[2].(string), args[3].(bool)
	if !ok {
		return []any{false, args[0], parm, value, set}, nil
	}

	if parm == "P_NAME" {
		if !set {
			return []any{true, args[0], parm, t.name, set}, nil
		}
		if t.master {
			return []any{false, args[0], parm, value, set}, nil
		}
		old := t.name
		t.name = value
		h.record(t.proj, action{
			label: "Rename track",
			undo:  func() { t.name = old },
			redo:  func() { t.name = value },
		})
		return []any{true, args[0], parm, value, set}, nil
	}

	if set {
		t.strs[parm] = value
		return []any{true, args[0], parm, value, set}, nil
	}
	v, found := t.strs[parm]
	return []any{found, args[0], parm, v, set}, nil
}

func (h *Host) getTrackInfoValue(ctx context.Context, args []any) ([]any, error) {
	t, ok := h.liveTrack(args[0].(handle.Handle))
	if !ok {
		return []any{0.0}, nil
	}
	parm := args[1].(string)
	if parm == "IP_TRACKNUMBER" {
		if t.master {
			return []any{-1.0}, nil
		}
		return []any{float64(t.proj.indexOf(t) + 1)}, nil
	}
	return []any{t.info[parm]}, nil
}

func (h *Host) setTrackInfoValue(ctx context.Context, args []any) ([]any, error) {
	t, ok := h.liveTrack(args[0].(handle.Handle))
	parm := args[1].(string)
	if !ok || parm == "IP_TRACKNUMBER" {
		return []any{false}, nil
	}
	t.info[parm] = args[2].(float64)
	return []any{true}, nil
}

package simhost

import (
	"context"

	"go.uber.org/zap"

	"github.com/caffeineduck/reabind/handle"
)

func (h *Host) enumProjects(ctx context.Context, args []any) ([]any, error) {
	idx := args[0].(int64)
	var p *project
	switch {
	case idx == -1:
		p = h.current
	case idx >= 0 && idx < int64(len(h.projects)):
		p = h.projects[idx]
	}
	fn := ""
	if p != nil {
		fn = p.name + ".rpp"
	}
	return []any{projectHandle(p), idx, fn, args[2]}, nil
}

func (h *Host) selectProjectInstance(ctx context.Context, args []any) ([]any, error) {
	ph := args[0].(handle.Handle)
	if p, ok := h.live[ph.Value].(*project); ok {
		h.current = p
	}
	return nil, nil
}

func (h *Host) getProjectName(ctx context.Context, args []any) ([]any, error) {
	name := ""
	if p, ok := h.liveProject(args[0].(handle.Handle)); ok {
		name = p.name
	}
	return []any{args[0], truncate(name, args[2].(int64)), args[2]}, nil
}

// validatePtr checks against the current project.
func (h *Host) validatePtr(ctx context.Context, args []any) ([]any, error) {
	return []any{h.validIn(h.current, args[0].(handle.Handle), args[1].(string))}, nil
}

func (h *Host) validatePtr2(ctx context.Context, args []any) ([]any, error) {
	p, ok := h.liveProject(args[0].(handle.Handle))
	if !ok {
		return []any{false}, nil
	}
	return []any{h.validIn(p, args[1].(handle.Handle), args[2].(string))}, nil
}

func (h *Host) validIn(p *project, ptr handle.Handle, typename string) bool {
	v, ok := h.live[ptr.Value]
	if !ok || ptr.IsSentinel() {
		return false
	}
	if tagOf(v)+"*" != typename || ptr.Tag+"*" != typename {
		return false
	}
	if _, isProject := v.(*project); isProject {
		return true
	}
	return h.owner(v) == p
}

func (h *Host) setProjExtState(ctx context.Context, args []any) ([]any, error) {
	p, ok := h.liveProject(args[0].(handle.Handle))
	if !ok {
		return []any{int64(0)}, nil
	}
	scope := projectHandle(p).String()
	section, key, value := args[1].(string), args[2].(string), args[3].(string)

	if key == "" {
		keys, err := h.store.Keys(ctx, scope, section)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			if err := h.store.Delete(ctx, scope, section, k); err != nil {
				return nil, err
			}
		}
		return []any{int64(1)}, nil
	}
	if value == "" {
		if err := h.store.Delete(ctx, scope, section, key); err != nil {
			return nil, err
		}
		return []any{int64(1)}, nil
	}
	if err := h.store.Set(ctx, scope, section, key, value); err != nil {
		return nil, err
	}
	return []any{int64(1)}, nil
}

func (h *Host) getProjExtState(ctx context.Context, args []any) ([]any, error) {
	value := ""
	if p, ok := h.liveProject(args[0].(handle.Handle)); ok {
		v, found, err := h.store.Get(ctx, projectHandle(p).String(), args[1].(string), args[2].(string))
		if err != nil {
			return nil, err
		}
		if found {
			value = v
		}
	}
	value = truncate(value, args[4].(int64))
	return []any{int64(len(value)), args[0], args[1], args[2], value, args[4]}, nil
}

// truncate mimics a C buffer of size bytes, one of which holds the NUL.
func truncate(s string, size int64) string {
	if size <= 0 {
		return s
	}
	if int64(len(s)) > size-1 {
		return s[:size-1]
	}
	return s
}

func (h *Host) record(p *project, a action) {
	p.undo = append(p.undo, a)
	p.redo = nil
}

func (h *Host) doUndo(ctx context.Context, args []any) ([]any, error) {
	p, ok := h.liveProject(args[0].(handle.Handle))
	if !ok || len(p.undo) == 0 {
		return []any{int64(0)}, nil
	}
	a := p.undo[len(p.undo)-1]
	p.undo = p.undo[:len(p.undo)-1]
	a.undo()
	p.redo = append(p.redo, a)
	h.log.Debug("undo", zap.String("action", a.label))
	return []any{int64(1)}, nil
}

func (h *Host) doRedo(ctx context.Context, args []any) ([]any, error) {
	p, ok := h.liveProject(args[0].(handle.Handle))
	if !ok || len(p.redo) == 0 {
		return []any{int64(0)}, nil
	}
	a := p.redo[len(p.redo)-1]
	p.redo = p.redo[:len(p.redo)-1]
	a.redo()
	p.undo = append(p.undo, a)
	h.log.Debug("redo", zap.String("action", a.label))
	return []any{int64(1)}, nil
}

func (h *Host) canUndo(ctx context.Context, args []any) ([]any, error) {
	p, ok := h.liveProject(args[0].(handle.Handle))
	if !ok || len(p.undo) == 0 {
		return []any{""}, nil
	}
	return []any{p.undo[len(p.undo)-1].label}, nil
}

func (h *Host) canRedo(ctx context.Context, args []any) ([]any, error) {
	p, ok := h.liveProject(args[0].(handle.Handle))
	if !ok || len(p.redo) == 0 {
		return []any{""}, nil
	}
	return []any{p.redo[len(p.redo)-1].label}, nil
}

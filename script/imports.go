package script

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/caffeineduck/reabind/handle"
	"github.com/caffeineduck/reabind/hostfunc"
)

// ModuleName is the import module scripts take host functions from.
const ModuleName = "reaper"

// valueType maps a declared kind to its wasm representation. Handles travel
// as their raw i64 value; the declared tag is restored on the way in.
func valueType(k hostfunc.Kind) (api.ValueType, bool) {
	switch k {
	case hostfunc.KindInt, hostfunc.KindHandle:
		return api.ValueTypeI64, true
	case hostfunc.KindFloat:
		return api.ValueTypeF64, true
	case hostfunc.KindBool:
		return api.ValueTypeI32, true
	}
	return 0, false
}

// importable reports whether sig can be called with plain wasm numbers:
// no strings, no in/out params, and every handle param has a fixed tag.
func importable(sig hostfunc.Signature) bool {
	if sig.HasOutParams() {
		return false
	}
	for _, p := range sig.Params {
		if _, ok := valueType(p.Kind); !ok {
			return false
		}
		if p.Kind == hostfunc.KindHandle && p.Tag == "" {
			return false
		}
	}
	if sig.Returns == hostfunc.KindVoid {
		return true
	}
	_, ok := valueType(sig.Returns)
	return ok
}

func wasmTypes(sig hostfunc.Signature) (params, results []api.ValueType) {
	for _, p := range sig.Params {
		t, _ := valueType(p.Kind)
		params = append(params, t)
	}
	if sig.Returns != hostfunc.KindVoid {
		t, _ := valueType(sig.Returns)
		results = append(results, t)
	}
	return params, results
}

func decodeArgs(sig hostfunc.Signature, stack []uint64) []any {
	args := make([]any, len(sig.Params))
	for i, p := range sig.Params {
		switch p.Kind {
		case hostfunc.KindInt:
			args[i] = int64(stack[i])
		case hostfunc.KindFloat:
			args[i] = api.DecodeF64(stack[i])
		case hostfunc.KindBool:
			args[i] = api.DecodeI32(stack[i]) != 0
		case hostfunc.KindHandle:
			args[i] = handle.New(p.Tag, stack[i])
		}
	}
	return args
}

func encodeResult(kind hostfunc.Kind, v any) uint64 {
	switch kind {
	case hostfunc.KindInt:
		return uint64(v.(int64))
	case hostfunc.KindFloat:
		return api.EncodeF64(v.(float64))
	case hostfunc.KindBool:
		if v.(bool) {
			return 1
		}
		return 0
	case hostfunc.KindHandle:
		switch h := v.(type) {
		case handle.Handle:
			return h.Value
		case handle.Identifier:
			return h.Handle().Value
		}
	}
	return 0
}

// instantiateImports builds the host module from every importable
// signature in the catalog. Each function forwards through the runner's
// gateway; a failed call traps the script with the call's error.
func (r *Runner) instantiateImports(ctx context.Context) (api.Module, error) {
	builder := r.runtime.NewHostModuleBuilder(ModuleName)
	for _, name := range r.catalog.Names() {
		sig, _ := r.catalog.Lookup(name)
		if !importable(sig) {
			continue
		}
		params, results := wasmTypes(sig)
		builder.NewFunctionBuilder().
			WithGoModuleFunction(r.forward(sig), params, results).
			Export(sig.Name)
		r.imports = append(r.imports, sig.Name)
	}
	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s imports: %w", ModuleName, err)
	}
	return mod, nil
}

func (r *Runner) forward(sig hostfunc.Signature) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		out, err := r.gw.Call(ctx, sig, decodeArgs(sig, stack)...)
		if err != nil {
			r.log.Debug("script host call failed", zap.String("fn", sig.Name), zap.Error(err))
			panic(err)
		}
		if sig.Returns != hostfunc.KindVoid {
			stack[0] = encodeResult(sig.Returns, out[0])
		}
	}
}

// Package script runs WebAssembly scripts against the host.
//
// A script imports host functions from the "reaper" module by their
// declared names, e.g. (import "reaper" "CountTracks" (func (param i64)
// (result i64))). Every signature in the catalog that takes and returns
// only numbers and tagged handles is importable: ints and handles are i64,
// floats f64 and bools i32. Calls go through a gateway, so a script runs
// the same inside the host or against a remote one.
//
//	r, err := script.New(ctx, gw)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	res := r.Run(ctx, wasm, script.WithEntry("run"))
package script

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/caffeineduck/reabind/gateway"
	"github.com/caffeineduck/reabind/hostfunc"
	"github.com/caffeineduck/reabind/reascript"
)

// Result holds the output and metadata from one run.
type Result struct {
	Output   string
	Values   []uint64 // results of the entry function
	Duration time.Duration
	Error    error
}

// Runner owns a wasm runtime with the host imports instantiated and caches
// compiled scripts.
type Runner struct {
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	gw       *gateway.Gateway
	catalog  *hostfunc.Catalog
	log      *zap.Logger
	imports  []string
	compiled map[[sha256.Size]byte]wazero.CompiledModule
	mu       sync.RWMutex
	closed   bool
}

// New creates a Runner whose imports call through gw.
func New(ctx context.Context, gw *gateway.Gateway, opts ...Option) (*Runner, error) {
	cfg := defaultRunnerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.catalog == nil {
		cfg.catalog = reascript.Catalog()
	}

	var cache wazero.CompilationCache
	if cfg.diskCache {
		dir := cfg.cacheDir
		if dir == "" {
			dir = defaultCacheDir()
		}
		var err error
		cache, err = wazero.NewCompilationCacheWithDir(dir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	r := &Runner{
		runtime:  wazero.NewRuntimeWithConfig(ctx, rtConfig),
		cache:    cache,
		gw:       gw,
		catalog:  cfg.catalog,
		log:      cfg.logger,
		compiled: make(map[[sha256.Size]byte]wazero.CompiledModule),
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r.runtime); err != nil {
		r.Close()
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}
	if _, err := r.instantiateImports(ctx); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// Imports lists the host functions scripts can import, sorted.
func (r *Runner) Imports() []string {
	return append([]string(nil), r.imports...)
}

// Run instantiates the script, runs its start function and, with
// WithEntry, the named export.
func (r *Runner) Run(ctx context.Context, wasm []byte, opts ...RunOption) Result {
	start := time.Now()

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	compiled, err := r.getCompiled(ctx, wasm)
	if err != nil {
		return Result{Error: err, Duration: time.Since(start)}
	}

	var stdout bytes.Buffer
	modConfig := wazero.NewModuleConfig().
		WithStdout(&stdout).
		WithStderr(&stdout).
		WithName("")

	result := Result{}
	mod, err := r.runtime.InstantiateModule(ctx, compiled, modConfig)
	if err != nil {
		var exit *sys.ExitError
		if !errors.As(err, &exit) || exit.ExitCode() != 0 {
			result.Error = r.runError(ctx, cfg, err)
		}
	} else {
		defer mod.Close(ctx)
		if cfg.entry != "" {
			fn := mod.ExportedFunction(cfg.entry)
			if fn == nil {
				result.Error = fmt.Errorf("script does not export %q", cfg.entry)
			} else if vals, err := fn.Call(ctx, cfg.params...); err != nil {
				result.Error = r.runError(ctx, cfg, err)
			} else {
				result.Values = vals
			}
		}
	}

	result.Output = stdout.String()
	result.Duration = time.Since(start)
	r.log.Debug("script finished", zap.String("entry", cfg.entry), zap.Duration("took", result.Duration), zap.Error(result.Error))
	return result
}

func (r *Runner) runError(ctx context.Context, cfg runConfig, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timeout after %v", cfg.timeout)
	}
	return fmt.Errorf("execution failed: %w", err)
}

// getCompiled returns a cached compiled module, compiling if necessary.
func (r *Runner) getCompiled(ctx context.Context, wasm []byte) (wazero.CompiledModule, error) {
	key := sha256.Sum256(wasm)

	r.mu.RLock()
	if compiled, ok := r.compiled[key]; ok {
		r.mu.RUnlock()
		return compiled, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if compiled, ok := r.compiled[key]; ok {
		return compiled, nil
	}
	compiled, err := r.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("compile script: %w", err)
	}
	r.compiled[key] = compiled
	return compiled, nil
}

// Close releases the runtime and the compilation cache.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	ctx := context.Background()
	var errs []error
	if err := r.runtime.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if r.cache != nil {
		if err := r.cache.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "reabind")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "reabind")
	}
	return filepath.Join(os.TempDir(), "reabind-cache")
}

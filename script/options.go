package script

import (
	"time"

	"go.uber.org/zap"

	"github.com/caffeineduck/reabind/hostfunc"
)

// Option configures a Runner at creation time.
type Option func(*runnerConfig)

type runnerConfig struct {
	diskCache        bool
	cacheDir         string
	memoryLimitPages uint32 // 0 = wazero default (4GB)
	catalog          *hostfunc.Catalog
	logger           *zap.Logger
}

func defaultRunnerConfig() runnerConfig {
	return runnerConfig{logger: zap.NewNop()}
}

// WithDiskCache enables a persistent compilation cache. Without a directory
// it uses ~/.cache/reabind or XDG_CACHE_HOME/reabind.
func WithDiskCache(dir ...string) Option {
	return func(c *runnerConfig) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithMemoryLimit caps script memory in 64KB pages.
func WithMemoryLimit(pages uint32) Option {
	return func(c *runnerConfig) {
		c.memoryLimitPages = pages
	}
}

// WithCatalog sets the signatures exposed as imports. The default is the
// reascript catalog.
func WithCatalog(cat *hostfunc.Catalog) Option {
	return func(c *runnerConfig) {
		c.catalog = cat
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(c *runnerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// RunOption configures one Run.
type RunOption func(*runConfig)

type runConfig struct {
	timeout time.Duration
	entry   string
	params  []uint64
}

func defaultRunConfig() runConfig {
	return runConfig{timeout: 30 * time.Second}
}

// WithTimeout bounds the whole run, host calls included.
func WithTimeout(d time.Duration) RunOption {
	return func(c *runConfig) {
		c.timeout = d
	}
}

// WithEntry calls the named export after instantiation, passing params.
// Without it only the module's start function runs.
func WithEntry(name string, params ...uint64) RunOption {
	return func(c *runConfig) {
		c.entry = name
		c.params = params
	}
}

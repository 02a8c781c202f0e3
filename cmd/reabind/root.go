package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caffeineduck/reabind/channel"
	"github.com/caffeineduck/reabind/config"
	"github.com/caffeineduck/reabind/extstate"
	"github.com/caffeineduck/reabind/gateway"
	"github.com/caffeineduck/reabind/hostfunc"
	"github.com/caffeineduck/reabind/internal/logging"
	"github.com/caffeineduck/reabind/reaper"
	"github.com/caffeineduck/reabind/reascript"
	"github.com/caffeineduck/reabind/simhost"
)

var rootCmd = &cobra.Command{
	Use:   "reabind",
	Short: "Call a DAW host's scripting API from outside the host",
	Long: `reabind - Drive a DAW host's scripting API from another process.

Calls are forwarded to the host over TCP, stdio or Redis and answered on
the host's own thread. The serve command runs a simulated host; every
other command is a client. With --transport loopback the client starts a
simulated host in-process.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (YAML)")
	pf.String("transport", "", "Transport: loopback, tcp, stdio, redis")
	pf.String("address", "", "Host address for tcp")
	pf.Duration("timeout", 0, "Per-call timeout")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: console, json")
}

// env is the resolved configuration and logger of one command run.
type env struct {
	cfg *config.Config
	log *zap.Logger
}

type envKey struct{}

// envFrom returns the env loadConfig stored on cmd's context.
func envFrom(cmd *cobra.Command) *env {
	if e, ok := cmd.Context().Value(envKey{}).(*env); ok {
		return e
	}
	return &env{cfg: config.Default(), log: zap.NewNop()}
}

// loadConfig builds the env from defaults, the config file, REABIND_*
// variables and finally flags, in that order, and stores it on the
// command's context.
func loadConfig(cmd *cobra.Command, args []string) error {
	pf := cmd.Root().PersistentFlags()

	c := config.Default()
	if path, _ := pf.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		c = loaded
	}
	if err := config.FromEnv(c); err != nil {
		return err
	}

	if pf.Changed("transport") {
		c.Transport, _ = pf.GetString("transport")
	}
	if pf.Changed("address") {
		c.Address, _ = pf.GetString("address")
	}
	if pf.Changed("timeout") {
		c.Timeout, _ = pf.GetDuration("timeout")
	}
	if pf.Changed("log-level") {
		c.Log.Level, _ = pf.GetString("log-level")
	}
	if pf.Changed("log-format") {
		c.Log.Format, _ = pf.GetString("log-format")
	}
	if err := c.Validate(); err != nil {
		return err
	}

	l, err := logging.New(c.Log.Level, c.Log.Format)
	if err != nil {
		return err
	}
	cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, &env{cfg: c, log: l}))
	return nil
}

// openStore returns the ext state backend the config selects.
func (e *env) openStore(ctx context.Context) (extstate.Store, error) {
	switch e.cfg.ExtState.Driver {
	case config.DriverSQLite:
		return extstate.OpenSQLite(ctx, e.cfg.ExtState.DSN, extstate.DefaultLimits())
	default:
		return extstate.NewMemory(extstate.DefaultLimits()), nil
	}
}

// newHost builds a simulated host and its function table.
func (e *env) newHost(ctx context.Context, version string) (*hostfunc.Registry, extstate.Store, error) {
	store, err := e.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	opts := []simhost.Option{simhost.WithExtState(store), simhost.WithLogger(e.log)}
	if version != "" {
		opts = append(opts, simhost.WithVersion(version))
	}
	reg, err := simhost.New(opts...).Registry()
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return reg, store, nil
}

// session is a connected client.
type session struct {
	gw     *gateway.Gateway
	client *reaper.Client
	closer []io.Closer
}

// Close releases everything connect opened, last opened first.
func (s *session) Close() error {
	var first error
	for i := len(s.closer) - 1; i >= 0; i-- {
		if err := s.closer[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// connect opens the configured transport and checks the host version when
// a constraint is configured.
func (e *env) connect(ctx context.Context) (*session, error) {
	cfg, log := e.cfg, e.log
	var (
		ch   channel.Channel
		s    = &session{}
		opts = []gateway.Option{
			gateway.WithCatalog(reascript.Catalog()),
			gateway.WithTimeout(cfg.Timeout),
			gateway.WithLogger(log),
		}
		err error
	)

	switch cfg.Transport {
	case config.TransportLoopback:
		reg, store, err := e.newHost(ctx, "")
		if err != nil {
			return nil, err
		}
		s.closer = append(s.closer, store)
		ch = channel.NewLoopback(gateway.NewDispatcher(reg, log), channel.WithLogger(log))
		opts = append(opts, gateway.WithRegistry(reg))
	case config.TransportTCP:
		ch, err = channel.Dial(ctx, "tcp", cfg.Address, channel.WithLogger(log))
	case config.TransportStdio:
		ch, err = e.spawnHost()
	case config.TransportRedis:
		ch, err = channel.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix, channel.WithLogger(log))
	default:
		err = fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	if err != nil {
		s.Close()
		return nil, err
	}

	gw, err := gateway.New(append(opts, gateway.WithChannel(ch))...)
	if err != nil {
		ch.Close()
		s.Close()
		return nil, err
	}
	s.gw = gw
	s.client = reaper.NewClient(gw, reaper.WithLogger(log))
	s.closer = append(s.closer, gw)

	if cfg.Host.MinVersion != "" {
		if err := s.client.CheckHostVersion(ctx, cfg.Host.MinVersion); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// childHost is a host started as "reabind serve --transport stdio".
type childHost struct {
	io.Reader
	io.WriteCloser
	cmd *exec.Cmd
}

func (c *childHost) Close() error {
	c.WriteCloser.Close()
	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		c.cmd.Process.Kill()
		return <-done
	}
}

func (e *env) spawnHost() (channel.Channel, error) {
	cfg, log := e.cfg, e.log
	self, err := os.Executable()
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(self, "serve", "--transport", config.TransportStdio,
		"--log-level", cfg.Log.Level, "--log-format", cfg.Log.Format)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start host: %w", err)
	}
	log.Debug("host started", zap.Int("pid", cmd.Process.Pid))
	return channel.NewStream(&childHost{Reader: stdout, WriteCloser: stdin, cmd: cmd}, channel.WithLogger(log)), nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caffeineduck/reabind/channel"
	"github.com/caffeineduck/reabind/config"
	"github.com/caffeineduck/reabind/gateway"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a simulated host that answers remote calls",
	Long: `Run a simulated host and answer calls until interrupted.

Transports:
  tcp     listen on --address (default 127.0.0.1:2306)
  stdio   answer framed calls on stdin/stdout
  redis   pop calls from the <prefix>:requests list

Calls from every client run one at a time, in the order received.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host-version", "", "Version string the host reports")
	rootCmd.AddCommand(serveCmd)
}

type stdio struct {
	io.Reader
	io.Writer
}

func runServe(cmd *cobra.Command, args []string) error {
	hostVersion, _ := cmd.Flags().GetString("host-version")
	e := envFrom(cmd)
	cfg, log := e.cfg, e.log

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, store, err := e.newHost(ctx, hostVersion)
	if err != nil {
		return err
	}
	defer store.Close()

	dispatcher := gateway.NewDispatcher(reg, log)

	switch cfg.Transport {
	case config.TransportTCP:
		ln, err := net.Listen("tcp", cfg.Address)
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return serveListener(ctx, ln, dispatcher, log)
	case config.TransportStdio:
		log.Info("host serving on stdio")
		srv := channel.NewServer(dispatcher, channel.WithLogger(log))
		return srv.ServeConn(ctx, stdio{os.Stdin, os.Stdout})
	case config.TransportRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		log.Info("host serving on redis", zap.String("addr", cfg.Redis.Addr), zap.String("prefix", cfg.Redis.Prefix))
		return channel.ServeRedis(ctx, client, cfg.Redis.Prefix, dispatcher, channel.WithLogger(log))
	default:
		return fmt.Errorf("serve needs transport tcp, stdio or redis, not %q", cfg.Transport)
	}
}

func serveListener(ctx context.Context, ln net.Listener, h channel.Handler, log *zap.Logger) error {
	log.Info("host listening", zap.String("addr", ln.Addr().String()))
	fmt.Fprintf(os.Stderr, "reabind host listening on %s\n", ln.Addr())
	return channel.NewServer(h, channel.WithLogger(log)).Serve(ctx, ln)
}

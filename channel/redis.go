package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	rerrors "github.com/caffeineduck/reabind/errors"
	"github.com/caffeineduck/reabind/wire"
)

// DefaultRedisPrefix namespaces the request list and reply keys.
const DefaultRedisPrefix = "reabind"

func requestKey(prefix string) string { return prefix + ":requests" }

func replyKey(prefix, id string) string { return prefix + ":reply:" + id }

// Redis is a message-based channel: requests are pushed onto one list and
// each reply arrives on a per-request list that expires if never read.
type Redis struct {
	client *redis.Client
	prefix string
	mu     sync.Mutex
	log    *zap.Logger
}

// NewRedis returns a channel sharing client. An empty prefix uses
// DefaultRedisPrefix.
func NewRedis(client *redis.Client, prefix string, opts ...Option) *Redis {
	o := buildOptions(opts)
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix, log: o.logger}
}

// DialRedis connects to addr and returns a channel over it.
func DialRedis(ctx context.Context, addr, password string, db int, prefix string, opts ...Option) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedis(client, prefix, opts...), nil
}

func (r *Redis) Call(ctx context.Context, req wire.Request) (wire.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		return wire.Response{}, err
	}
	if err := r.client.LPush(ctx, requestKey(r.prefix), data).Err(); err != nil {
		return wire.Response{}, rerrors.Wrap(rerrors.KindClosed, req.Fn, err)
	}

	// A zero BRPOP timeout blocks indefinitely; the context deadline, when
	// there is one, bounds the wait instead.
	var wait time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		wait = time.Until(deadline)
		if wait <= 0 {
			return wire.Response{}, context.DeadlineExceeded
		}
	}

	res, err := r.client.BRPop(ctx, wait, replyKey(r.prefix, req.ID)).Result()
	if err != nil {
		if ctx.Err() != nil {
			return wire.Response{}, ctx.Err()
		}
		if errors.Is(err, redis.Nil) {
			return wire.Response{}, context.DeadlineExceeded
		}
		return wire.Response{}, rerrors.Wrap(rerrors.KindClosed, req.Fn, err)
	}

	var resp wire.Response
	if err := json.Unmarshal([]byte(res[1]), &resp); err != nil {
		return wire.Response{}, rerrors.Wrap(rerrors.KindRemoteCall, req.Fn, err)
	}
	return resp, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// ServeRedis pops requests from the request list and answers them one at a
// time until ctx is done.
func ServeRedis(ctx context.Context, client *redis.Client, prefix string, h Handler, opts ...Option) error {
	o := buildOptions(opts)
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		res, err := client.BRPop(ctx, time.Second, requestKey(prefix)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("redis pop: %w", err)
		}

		var req wire.Request
		if err := json.Unmarshal([]byte(res[1]), &req); err != nil {
			o.logger.Warn("invalid call format", zap.Error(err))
			continue
		}

		resp := h.Handle(ctx, req)
		resp.ID = req.ID
		data, err := json.Marshal(resp)
		if err != nil {
			data, _ = json.Marshal(wire.ErrorResponse(req.ID, err))
		}

		key := replyKey(prefix, req.ID)
		pipe := client.TxPipeline()
		pipe.LPush(ctx, key, data)
		pipe.Expire(ctx, key, o.replyTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			o.logger.Warn("failed to publish reply", zap.String("id", req.ID), zap.Error(err))
		}
	}
}

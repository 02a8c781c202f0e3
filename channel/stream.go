package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	rerrors "github.com/caffeineduck/reabind/errors"
	"github.com/caffeineduck/reabind/wire"
)

// Stream is a client channel over a framed byte stream. It allows one
// outstanding call at a time; a response that arrives after its caller
// timed out is recognised by its ID and dropped.
type Stream struct {
	fw     *wire.FrameWriter
	fr     *wire.FrameReader
	closer io.Closer

	mu        sync.Mutex
	responses chan wire.Response
	done      chan struct{}
	readErr   error
	closeOnce sync.Once
	log       *zap.Logger
}

// NewStream wraps rwc and starts reading responses from it.
func NewStream(rwc io.ReadWriteCloser, opts ...Option) *Stream {
	o := buildOptions(opts)
	s := &Stream{
		fw:        wire.NewFrameWriter(rwc),
		fr:        wire.NewFrameReader(rwc, nil),
		closer:    rwc,
		responses: make(chan wire.Response, 1),
		done:      make(chan struct{}),
		log:       o.logger,
	}
	go s.readLoop()
	return s
}

// Dial connects to a host server.
func Dial(ctx context.Context, network, addr string, opts ...Option) (*Stream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewStream(conn, opts...), nil
}

func (s *Stream) readLoop() {
	defer close(s.done)
	for {
		payload, err := s.fr.Next()
		if err != nil {
			s.readErr = err
			return
		}
		var resp wire.Response
		if err := json.Unmarshal(payload, &resp); err != nil {
			s.log.Warn("discarding malformed response frame", zap.Error(err))
			continue
		}
		select {
		case s.responses <- resp:
		default:
			// No caller is waiting; only a late reply to a timed-out call
			// can get here.
			s.log.Debug("dropping unsolicited response", zap.String("id", resp.ID))
		}
	}
}

func (s *Stream) Call(ctx context.Context, req wire.Request) (wire.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return wire.Response{}, rerrors.Wrap(rerrors.KindClosed, req.Fn, s.readErr)
	default:
	}

	if err := s.fw.Write(req); err != nil {
		return wire.Response{}, rerrors.Wrap(rerrors.KindClosed, req.Fn, err)
	}

	for {
		select {
		case resp := <-s.responses:
			if resp.ID != req.ID {
				s.log.Debug("dropping stale response", zap.String("id", resp.ID), zap.String("want", req.ID))
				continue
			}
			return resp, nil
		case <-ctx.Done():
			return wire.Response{}, ctx.Err()
		case <-s.done:
			return wire.Response{}, rerrors.Wrap(rerrors.KindClosed, req.Fn, s.readErr)
		}
	}
}

func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.closer.Close()
	})
	return err
}

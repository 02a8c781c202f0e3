package channel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/caffeineduck/reabind/wire"
)

// Server is the host side of Stream. Requests from every connection are
// executed one at a time, as the host runs only one script call at once;
// requests on a single connection are executed in the order received.
type Server struct {
	h      Handler
	hostMu sync.Mutex
	log    *zap.Logger

	mu    sync.Mutex
	conns map[io.Closer]struct{}
	wg    sync.WaitGroup
}

func NewServer(h Handler, opts ...Option) *Server {
	o := buildOptions(opts)
	return &Server{h: h, log: o.logger, conns: make(map[io.Closer]struct{})}
}

// Serve accepts connections until ctx is done or ln fails. It closes ln and
// every open connection before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	defer func() {
		s.mu.Lock()
		for c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
		s.wg.Wait()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.log.Debug("client connected", zap.String("remote", conn.RemoteAddr().String()))

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
				conn.Close()
			}()
			if err := s.ServeConn(ctx, conn); err != nil {
				s.log.Warn("connection ended", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
			}
		}()
	}
}

// ServeConn answers framed requests read from rw until EOF or until rw is
// closed. Non-frame bytes are ignored.
func (s *Server) ServeConn(ctx context.Context, rw io.ReadWriter) error {
	fr := wire.NewFrameReader(rw, nil)
	fw := wire.NewFrameWriter(rw)

	for {
		payload, err := fr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}

		var req wire.Request
		if err := json.Unmarshal(payload, &req); err != nil {
			s.log.Warn("invalid call format", zap.Error(err))
			if err := fw.Write(wire.Response{Error: "invalid call format"}); err != nil {
				return err
			}
			continue
		}

		resp := s.dispatch(ctx, req)
		if err := fw.Write(resp); err != nil {
			return err
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req wire.Request) wire.Response {
	s.hostMu.Lock()
	defer s.hostMu.Unlock()
	resp := s.h.Handle(ctx, req)
	resp.ID = req.ID
	return resp
}

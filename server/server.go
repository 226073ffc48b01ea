package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Server accepts dispatcher connections, one goroutine per connection,
// gated by a fixed-size slot pool so concurrency cannot grow without bound.
// Implements runtime.Worker.
type Server struct {
	addr        string
	dispatcher  *Dispatcher
	log         *slog.Logger
	readTimeout time.Duration
	maxConns    int
}

func New(addr string, dispatcher *Dispatcher, log *slog.Logger,
	readTimeout time.Duration, maxConns int) *Server {
	return &Server{
		addr:        addr,
		dispatcher:  dispatcher,
		log:         log,
		readTimeout: readTimeout,
		maxConns:    maxConns,
	}
}

func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()
	s.log.Info("Server listening", "address", listener.Addr().String())

	slots := make(chan struct{}, s.maxConns)
	var wg sync.WaitGroup

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				wg.Wait()
				return ctx.Err()
			}
			s.log.Error("Accept failed", "err", err)
			continue
		}

		// Blocks when all slots are taken: the accept loop itself applies
		// the connection cap.
		slots <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-slots }()

			if s.readTimeout > 0 {
				_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
			}
			s.dispatcher.Handle(conn)
		}()
	}
}

package intercept

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"mitm-lab/protocol"
)

// Relay accepts client connections and pairs each with a fresh connection
// to the real dispatcher, pumping bytes both ways. The client-to-upstream
// direction runs the inspector; the upstream-to-client direction forwards raw
// bytes and only observes. Implements runtime.Worker.
type Relay struct {
	listenAddr   string
	upstreamAddr string
	inspector    *Inspector
	observer     *Observer
	log          *slog.Logger
}

func NewRelay(listenAddr, upstreamAddr string, inspector *Inspector,
	observer *Observer, log *slog.Logger) *Relay {
	return &Relay{
		listenAddr:   listenAddr,
		upstreamAddr: upstreamAddr,
		inspector:    inspector,
		observer:     observer,
		log:          log,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", r.listenAddr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()
	r.log.Info("Relay listening",
		"address", listener.Addr().String(), "upstream", r.upstreamAddr)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}
			r.log.Error("Accept failed", "err", err)
			continue
		}
		go r.handle(conn)
	}
}

// handle wires one client connection to one upstream connection and runs
// the two pumps. An error on one pump ends that direction only; the
// connections are fully closed once both directions have drained.
func (r *Relay) handle(clientConn net.Conn) {
	upstream, err := net.Dial("tcp", r.upstreamAddr)
	if err != nil {
		r.log.Error("Upstream dial failed", "upstream", r.upstreamAddr, "err", err)
		_ = clientConn.Close()
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.pumpClient(clientConn, upstream)
	}()
	go func() {
		defer wg.Done()
		r.pumpUpstream(upstream, clientConn)
	}()
	wg.Wait()

	_ = clientConn.Close()
	_ = upstream.Close()
}

// pumpClient moves client bytes to the upstream dispatcher, one chunk per
// read, applying the filter policy. Blocked chunks are dropped silently:
// the upstream never sees them and the client observes a hang.
func (r *Relay) pumpClient(client, upstream net.Conn) {
	defer halfClose(upstream)

	buf := make([]byte, protocol.MaxPayloadSize)
	for {
		n, err := client.Read(buf)
		if n > 0 {
			insp := r.inspector.Inspect(buf[:n])
			r.observer.ClientChunk(insp, buf[:n])
			if insp.Verdict != VerdictBlock {
				if _, werr := upstream.Write(insp.Forward); werr != nil {
					r.log.Error("Client to upstream write failed", "err", werr)
					return
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				r.log.Error("Client to upstream read failed", "err", err)
			}
			return
		}
	}
}

// pumpUpstream moves dispatcher bytes back to the client verbatim.
func (r *Relay) pumpUpstream(upstream, client net.Conn) {
	defer halfClose(client)

	buf := make([]byte, protocol.MaxPayloadSize)
	for {
		n, err := upstream.Read(buf)
		if n > 0 {
			r.observer.UpstreamChunk(buf[:n])
			if _, werr := client.Write(buf[:n]); werr != nil {
				r.log.Error("Upstream to client write failed", "err", werr)
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				r.log.Error("Upstream to client read failed", "err", err)
			}
			return
		}
	}
}

// halfClose propagates end-of-stream to the destination without tearing
// down the opposite direction, so the one-shot request/response cycle can
// complete after one side stops sending.
func halfClose(conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
	}
}

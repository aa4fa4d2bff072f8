// Package console implements the standalone debug console: app instances in
// dev mode stream their zerolog JSON events over TCP and the console renders
// them as colorized lines, one session per connection.
package console

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// Server accepts log streams and renders them to out.
type Server struct {
	Address string
	Verbose bool
	Out     io.Writer
}

func NewServer(address string, verbose bool) *Server {
	return &Server{
		Address: address,
		Verbose: verbose,
		Out:     os.Stdout,
	}
}

// Run listens until the context is cancelled. Every connection gets a short
// session id so interleaved streams stay readable.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", s.Address)
	if err != nil {
		return eris.Wrapf(err, "failed to listen on %s", s.Address)
	}

	renderer := NewRenderer(s.Out, s.Verbose)
	renderer.Systemf("console listening on %s", s.Address)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		listener.Close()
		return nil
	})

	g.Go(func() error {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return eris.Wrap(err, "accept failed")
			}

			session := nanoid.New()[:6]
			g.Go(func() error {
				defer conn.Close()
				s.handle(renderer, session, conn)
				return nil
			})
		}
	})

	err = g.Wait()
	renderer.Systemf("console stopped")
	return err
}

func (s *Server) handle(renderer *Renderer, session string, conn net.Conn) {
	renderer.Systemf("session %s connected from %s", session, conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		renderer.Render(session, scanner.Bytes())
	}

	if err := scanner.Err(); err != nil {
		renderer.Systemf("session %s dropped: %v", session, err)
		return
	}

	renderer.Systemf("session %s closed", session)
}

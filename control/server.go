package control

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/noctum/noctum/orchestrator"
)

// Server listens on a Unix-domain socket and dispatches each connection's
// request against a single orchestrator.Handle. One Server serves exactly
// one daemon instance.
type Server struct {
	handle   *orchestrator.Handle
	logger   *slog.Logger
	listener net.Listener

	wg sync.WaitGroup
}

// NewServer constructs a Server bound to handle. Listen must be called
// before it accepts any connections.
func NewServer(handle *orchestrator.Handle, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Server{handle: handle, logger: logger}
}

// Listen binds the control socket at path, removing any stale socket file
// left behind by a previous, uncleanly-terminated process.
func (s *Server) Listen(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return err
	}
	s.listener = l
	return nil
}

// Serve accepts connections until the listener is closed by Close. Each
// connection is handled on its own goroutine and carries at most one
// request; the client closes the connection after reading the response.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Close stops accepting new connections by closing the listener; it does
// not wait for in-flight ones (Serve does that before it returns). It
// does not itself call handle.Stop: stopping the daemon is a
// request a client sends, not something closing the control socket
// implies.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		s.writeResponse(conn, Response{OK: false, Error: "malformed request: " + err.Error()})
		return
	}

	resp := s.dispatch(req)
	s.writeResponse(conn, resp)
}

func (s *Server) dispatch(req Request) Response {
	switch req.Command {
	case CommandTriggerNow:
		s.handle.TriggerNow()
		return Response{OK: true}
	case CommandStop:
		s.handle.Stop()
		return Response{OK: true}
	case CommandStatus:
		return Response{OK: true, Status: s.handle.Status().String()}
	default:
		return Response{OK: false, Error: "unknown command: " + req.Command}
	}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.logger.Warn("write control response failed", "error", err)
	}
}

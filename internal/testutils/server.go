package testutils

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pior/riak/pbc"
)

// HandlerFunc answers one request with zero or more frames. Returning no
// frame leaves the client waiting; set Hangup to drop the connection.
type HandlerFunc func(msg pbc.Message) Reply

// Reply is the answer of a HandlerFunc.
type Reply struct {
	Frames []Frame
	Hangup bool
}

// Respond replies with a single frame.
func Respond(code pbc.Code, msg pbc.Message) Reply {
	return Reply{Frames: []Frame{{Code: code, Msg: msg}}}
}

// FakeServer is an in-process node speaking the Protocol Buffers framing.
// Requests are routed to handlers by message code. Ping is answered by
// default; requests without a handler get an error response.
type FakeServer struct {
	t        testing.TB
	listener net.Listener

	mu       sync.Mutex
	handlers map[pbc.Code]HandlerFunc
	conns    map[net.Conn]struct{}

	accepted atomic.Int32
	requests atomic.Int32
	wg       sync.WaitGroup
}

// NewFakeServer starts a server on a random local port. It is closed when
// the test ends.
func NewFakeServer(t testing.TB) *FakeServer {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start fake server: %v", err)
	}

	s := &FakeServer{
		t:        t,
		listener: listener,
		handlers: map[pbc.Code]HandlerFunc{},
		conns:    map[net.Conn]struct{}{},
	}
	s.Handle(pbc.CodePingReq, func(pbc.Message) Reply {
		return Respond(pbc.CodePingResp, nil)
	})

	s.wg.Add(1)
	go s.acceptLoop()

	t.Cleanup(s.Close)
	return s
}

// Addr returns the "host:port" address of the server.
func (s *FakeServer) Addr() string {
	return s.listener.Addr().String()
}

// Handle sets the handler of a request code.
func (s *FakeServer) Handle(code pbc.Code, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[code] = h
}

// Accepted returns the number of connections accepted so far.
func (s *FakeServer) Accepted() int {
	return int(s.accepted.Load())
}

// Requests returns the number of requests received so far.
func (s *FakeServer) Requests() int {
	return int(s.requests.Load())
}

// DropConnections closes every open connection, as a restarting node would.
func (s *FakeServer) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

// Close stops the server and closes its connections.
func (s *FakeServer) Close() {
	s.listener.Close()
	s.DropConnections()
	s.wg.Wait()
}

func (s *FakeServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.accepted.Add(1)

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
			s.serve(conn)
		}()
	}
}

func (s *FakeServer) serve(conn net.Conn) {
	w := bufio.NewWriter(conn)
	p := pbc.NewParser(nil)

	for {
		code, msg, err := pbc.ReadFrame(conn, p)
		if err != nil {
			return
		}
		p.Reset(p.Tail())
		s.requests.Add(1)

		s.mu.Lock()
		h, ok := s.handlers[code]
		s.mu.Unlock()

		reply := Reply{Frames: []Frame{ErrorFrame(fmt.Sprintf("no handler for %s", code))}}
		if ok {
			reply = h(msg)
		}

		for _, f := range reply.Frames {
			if err := pbc.WriteFrame(w, f.Code, f.Msg); err != nil {
				return
			}
		}
		if err := w.Flush(); err != nil {
			return
		}
		if reply.Hangup {
			return
		}
	}
}

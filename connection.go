package riak

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pior/riak/pbc"
)

// a deadline in the past interrupts blocked reads and writes
var aLongTimeAgo = time.Unix(1, 0)

// Connection is a single Protocol Buffers connection to a Riak node.
//
// Requests are strictly sequential: a Connection serves one request at a time
// and concurrent callers wait for the previous request to finish. Pipelining
// is not supported. Use a Pool to run requests in parallel.
//
// Bytes received past the end of a response are kept and seed the parse of
// the next response, so no byte is dropped between requests.
type Connection struct {
	netConn net.Conn
	writer  *bufio.Writer

	mu     sync.Mutex // held for the whole request, or until a stream ends
	parser *pbc.Parser
	tail   []byte

	broken    atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewConnection wraps an established network connection.
func NewConnection(netConn net.Conn) *Connection {
	return &Connection{
		netConn: netConn,
		writer:  bufio.NewWriter(netConn),
		parser:  pbc.NewParser(nil),
	}
}

// Request writes one request frame and reads exactly one response frame.
//
// A nil msg sends a header-only frame. The response must carry the code
// expect; a ServerError is returned as is and leaves the connection usable.
// Every other failure marks the connection broken.
//
// The context deadline is applied to the socket. A context cancelled while
// the request is in flight interrupts it and marks the connection broken,
// since the rest of the response can no longer be read by anyone.
func (c *Connection) Request(ctx context.Context, code pbc.Code, msg pbc.Message, expect pbc.Code) (pbc.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stop, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer stop()

	if err := c.send(ctx, code, msg); err != nil {
		return nil, err
	}

	c.parser.Reset(c.tail)
	c.tail = nil

	got, resp, err := pbc.ReadFrame(c.netConn, c.parser)
	if err != nil {
		var serverErr *pbc.ServerError
		if errors.As(err, &serverErr) {
			c.tail = c.parser.Tail()
			return nil, err
		}
		if err == io.EOF {
			err = &pbc.ConnectionError{Op: "read", Err: io.EOF}
		}
		return nil, c.fail(ctx, err)
	}

	if got != expect {
		return nil, c.fail(ctx, &pbc.UnexpectedResponseCodeError{Expected: expect, Actual: got})
	}

	c.tail = c.parser.Tail()
	return resp, nil
}

// StreamRequest writes one request frame and returns the multi-part response.
//
// The connection stays reserved for the stream: other requests wait until
// the stream has ended or has been closed. Callers must either read the
// stream to the end or Close it.
func (c *Connection) StreamRequest(ctx context.Context, code pbc.Code, msg pbc.Message, expect pbc.Code) (*ResponseStream, error) {
	c.mu.Lock()

	stop, err := c.begin(ctx)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	if err := c.send(ctx, code, msg); err != nil {
		stop()
		c.mu.Unlock()
		return nil, err
	}

	seed := c.tail
	c.tail = nil

	return &ResponseStream{
		ctx:    ctx,
		conn:   c,
		stream: pbc.NewStream(c.netConn, seed, expect),
		stop:   stop,
	}, nil
}

// begin checks that the connection can serve a request and applies the
// context to the socket. The returned function detaches the context.
// Must be called with mu held.
func (c *Connection) begin(ctx context.Context) (func(), error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}
	if c.broken.Load() {
		return nil, ErrConnectionBroken
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deadline, _ := ctx.Deadline()
	if err := c.netConn.SetDeadline(deadline); err != nil {
		c.broken.Store(true)
		return nil, &pbc.ConnectionError{Op: "set deadline", Err: err}
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.netConn.SetDeadline(aLongTimeAgo)
	})

	return func() {
		if !stop() {
			// the socket deadline was moved to the past
			c.broken.Store(true)
		}
	}, nil
}

// send writes and flushes one frame. Encoding failures happen before
// anything is written and leave the connection usable.
func (c *Connection) send(ctx context.Context, code pbc.Code, msg pbc.Message) error {
	if err := pbc.WriteFrame(c.writer, code, msg); err != nil {
		var protoErr *pbc.ProtocolError
		if errors.As(err, &protoErr) {
			return err
		}
		return c.fail(ctx, err)
	}
	if err := c.writer.Flush(); err != nil {
		return c.fail(ctx, &pbc.ConnectionError{Op: "write", Err: err})
	}
	return nil
}

// fail records err against the connection and returns the error to report.
// Errors caused by the context are reported as the context error.
func (c *Connection) fail(ctx context.Context, err error) error {
	c.broken.Store(true)

	if cause := context.Cause(ctx); cause != nil {
		var connErr *pbc.ConnectionError
		if errors.As(err, &connErr) {
			return &pbc.ConnectionError{Op: connErr.Op, Err: cause}
		}
	}
	return err
}

// IsBroken reports whether a failed request left the connection unusable.
func (c *Connection) IsBroken() bool {
	return c.broken.Load()
}

// IsClosed reports whether Close was called.
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// RemoteAddr returns the address of the node.
func (c *Connection) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// Close closes the socket. It is safe to call several times and from any
// goroutine, including while a request is in flight, which then fails.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.netConn.Close()
	})
	return c.closeErr
}

// ResponseStream is a multi-part response read from a Connection.
//
//	s, err := conn.StreamRequest(ctx, pbc.CodeListKeysReq, req, pbc.CodeListKeysResp)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	for s.Next() {
//	    resp := s.Message().(*pbc.ListKeysResp)
//	}
//	return s.Err()
type ResponseStream struct {
	ctx    context.Context
	conn   *Connection
	stream *pbc.Stream
	stop   func()

	sawDone  bool
	released bool
	err      error
}

// Next reads the next part of the response.
func (s *ResponseStream) Next() bool {
	if s.released {
		return false
	}
	if s.stream.Next() {
		if s.stream.Done() {
			// final part
			s.sawDone = true
			s.release()
		}
		return true
	}
	s.release()
	return false
}

// Message returns the part read by the last call to Next.
func (s *ResponseStream) Message() pbc.Message {
	return s.stream.Message()
}

// Err returns the error that ended the stream, if any.
func (s *ResponseStream) Err() error {
	return s.err
}

// Close releases the connection. Closing a stream before its final part has
// been read marks the connection broken.
func (s *ResponseStream) Close() error {
	s.release()
	return nil
}

// release hands the connection back, keeping the tail when the framing state
// is known to be intact.
func (s *ResponseStream) release() {
	if s.released {
		return
	}
	s.released = true

	c := s.conn
	err := s.stream.Err()
	var serverErr *pbc.ServerError

	switch {
	case err == nil && s.sawDone:
		c.tail = s.stream.Tail()
	case err == nil && s.stream.Done():
		// the node hung up before the final part
		c.broken.Store(true)
		s.err = &pbc.ConnectionError{Op: "read", Err: io.ErrUnexpectedEOF}
	case err == nil:
		// closed early
		c.broken.Store(true)
	case errors.As(err, &serverErr):
		c.tail = s.stream.Tail()
		s.err = err
	default:
		s.err = c.fail(s.ctx, err)
	}

	s.stop()
	c.mu.Unlock()
}

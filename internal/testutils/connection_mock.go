package testutils

import (
	"bytes"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pior/riak/pbc"
)

// ConnectionMock is a net.Conn replaying scripted response bytes and
// recording what was written.
type ConnectionMock struct {
	mu       sync.Mutex
	readBuf  *bytes.Buffer
	writeBuf *bytes.Buffer
	closed   bool
}

// NewConnectionMock creates a mock connection that reads the given raw
// bytes, in order.
func NewConnectionMock(responses ...[]byte) *ConnectionMock {
	return &ConnectionMock{
		readBuf:  bytes.NewBuffer(bytes.Join(responses, nil)),
		writeBuf: &bytes.Buffer{},
	}
}

// NewFrameMock creates a mock connection that reads the given frames.
func NewFrameMock(frames ...Frame) *ConnectionMock {
	var raw [][]byte
	for _, f := range frames {
		raw = append(raw, f.Bytes())
	}
	return NewConnectionMock(raw...)
}

// Frame is a scripted frame.
type Frame struct {
	Code pbc.Code
	Msg  pbc.Message
}

// Bytes encodes the frame and panics on invalid messages.
func (f Frame) Bytes() []byte {
	b, err := pbc.EncodeFrame(f.Code, f.Msg)
	if err != nil {
		panic(err)
	}
	return b
}

// ErrorFrame returns an ErrorResp frame.
func ErrorFrame(msg string) Frame {
	return Frame{Code: pbc.CodeErrorResp, Msg: &pbc.ErrorResp{ErrMsg: []byte(msg)}}
}

func (m *ConnectionMock) Read(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readBuf.Read(b)
}

func (m *ConnectionMock) Write(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, net.ErrClosed
	}
	return m.writeBuf.Write(b)
}

func (m *ConnectionMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (m *ConnectionMock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *ConnectionMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *ConnectionMock) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8087}
}

func (m *ConnectionMock) SetDeadline(t time.Time) error      { return nil }
func (m *ConnectionMock) SetReadDeadline(t time.Time) error  { return nil }
func (m *ConnectionMock) SetWriteDeadline(t time.Time) error { return nil }

// Written returns the raw bytes written to the mock connection.
func (m *ConnectionMock) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.writeBuf.Bytes())
}

// WrittenFrames decodes the frames written to the mock connection.
func (m *ConnectionMock) WrittenFrames() ([]Frame, error) {
	var frames []Frame
	p := pbc.NewParser(m.Written())
	for {
		code, msg, err := pbc.ReadFrame(bytes.NewReader(nil), p)
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, Frame{Code: code, Msg: msg})
		p.Reset(p.Tail())
	}
}

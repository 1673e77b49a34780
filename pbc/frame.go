package pbc

import (
	"bufio"
	"encoding/binary"
	"io"
	"sync"
)

// Buffer pool for building frames
var framePool = sync.Pool{
	New: func() any {
		// Most requests are small; bodies with object values grow the buffer
		b := make([]byte, 0, 512)
		return &b
	},
}

const maxPooledFrame = 1 << 20

// AppendFrame appends the frame for code and body to dst.
// Format: <length:4 big-endian><code:1><body>, where length counts code and body.
func AppendFrame(dst []byte, code Code, body []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(body)+1))
	dst = append(dst, byte(code))
	return append(dst, body...)
}

// EncodeFrame encodes msg as a complete frame.
// A nil msg produces a header-only frame.
func EncodeFrame(code Code, msg Message) ([]byte, error) {
	var body []byte
	if msg != nil {
		var err error
		body, err = msg.Marshal()
		if err != nil {
			return nil, &ProtocolError{Message: "encode message", Code: code, Err: err}
		}
	}
	if len(body)+1 > MaxFrameLength {
		return nil, &ProtocolError{Message: "message exceeds maximum frame length", Code: code}
	}
	return AppendFrame(make([]byte, 0, HeaderLength+1+len(body)), code, body), nil
}

// WriteFrame encodes msg and writes the frame to w.
// The frame is not flushed when w is a *bufio.Writer.
//
// Encoding failures are returned as ProtocolError and leave w untouched.
// Write failures are returned as ConnectionError.
func WriteFrame(w io.Writer, code Code, msg Message) error {
	var body []byte
	if msg != nil {
		var err error
		body, err = msg.Marshal()
		if err != nil {
			return &ProtocolError{Message: "encode message", Code: code, Err: err}
		}
	}
	if len(body)+1 > MaxFrameLength {
		return &ProtocolError{Message: "message exceeds maximum frame length", Code: code}
	}

	if bw, ok := w.(*bufio.Writer); ok {
		var header [HeaderLength + 1]byte
		binary.BigEndian.PutUint32(header[:], uint32(len(body)+1))
		header[HeaderLength] = byte(code)
		bw.Write(header[:])
		if _, err := bw.Write(body); err != nil {
			return &ConnectionError{Op: "write", Err: err}
		}
		return nil
	}

	bp := framePool.Get().(*[]byte)
	defer func() {
		if cap(*bp) <= maxPooledFrame {
			*bp = (*bp)[:0]
			framePool.Put(bp)
		}
	}()

	*bp = AppendFrame((*bp)[:0], code, body)
	if _, err := w.Write(*bp); err != nil {
		return &ConnectionError{Op: "write", Err: err}
	}
	return nil
}

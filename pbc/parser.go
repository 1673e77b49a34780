package pbc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
)

// ErrParserDone is returned by Feed once the parser holds a complete frame
// or has failed. Call Reset to parse the next frame.
var ErrParserDone = errors.New("pbc: parser already finished, call Reset")

type parserState uint8

const (
	stateHeader   parserState = iota // waiting for the 4-byte length prefix
	stateBody                        // length known, waiting for code and body
	stateComplete                    // frame decoded, tail available
	stateFailed                      // framing error, parser unusable until Reset
)

// retained buffers above this size are dropped on Reset
const maxRetainedBuffer = 1 << 20

// Parser incrementally assembles a single frame from arbitrary chunks.
//
// Bytes are supplied with Feed and never read from a socket directly, so the
// same parser serves tests, in-memory buffers and network connections. Bytes
// past the end of the frame are kept as the tail and seed the next parser.
//
// The result does not depend on how the input is split into chunks.
type Parser struct {
	state  parserState
	buf    []byte
	length int // value of the length prefix: code byte + body
	code   Code
	msg    Message
	tail   []byte
	err    error
}

// NewParser returns a parser seeded with bytes left over from a previous frame.
// The seed is copied.
func NewParser(seed []byte) *Parser {
	p := &Parser{}
	p.Reset(seed)
	return p
}

// Reset prepares the parser for a new frame starting with seed.
func (p *Parser) Reset(seed []byte) {
	if cap(p.buf) > maxRetainedBuffer {
		p.buf = nil
	}
	p.buf = append(p.buf[:0], seed...)
	p.state = stateHeader
	p.length = 0
	p.code = 0
	p.msg = nil
	p.tail = nil
	p.err = nil
}

// Feed appends chunk to the buffered input and advances the state machine.
// Feed(nil) processes the seed alone.
//
// Returns true once a frame is complete. A complete error frame returns true
// together with a *ServerError; the tail is valid in that case. Any other
// error leaves the parser failed.
func (p *Parser) Feed(chunk []byte) (bool, error) {
	switch p.state {
	case stateComplete, stateFailed:
		return p.state == stateComplete, ErrParserDone
	}

	p.buf = append(p.buf, chunk...)

	if p.state == stateHeader {
		if len(p.buf) < HeaderLength {
			return false, nil
		}
		n := binary.BigEndian.Uint32(p.buf[:HeaderLength])
		if n == 0 {
			return false, p.fail(&ProtocolError{Message: "zero frame length"})
		}
		if n > MaxFrameLength {
			return false, p.fail(&ProtocolError{
				Message: fmt.Sprintf("frame length %d exceeds maximum %d", n, MaxFrameLength),
			})
		}
		p.length = int(n)
		if missing := HeaderLength + p.length - len(p.buf); missing > 0 {
			p.buf = slices.Grow(p.buf, missing)
		}
		p.state = stateBody
	}

	end := HeaderLength + p.length
	if len(p.buf) < end {
		return false, nil
	}

	p.code = Code(p.buf[HeaderLength])
	body := p.buf[HeaderLength+1 : end]
	if rest := p.buf[end:]; len(rest) > 0 {
		p.tail = bytes.Clone(rest)
	}

	if p.code == CodeErrorResp {
		var resp ErrorResp
		if err := resp.Unmarshal(body); err != nil {
			return false, p.fail(&ProtocolError{Message: "malformed error response", Code: p.code, Err: err})
		}
		p.state = stateComplete
		p.err = &ServerError{Message: string(resp.ErrMsg), Code: resp.ErrCode}
		return true, p.err
	}

	msg, err := Decode(p.code, body)
	if err != nil {
		return false, p.fail(err)
	}
	p.msg = msg
	p.state = stateComplete
	return true, nil
}

func (p *Parser) fail(err error) error {
	p.state = stateFailed
	p.err = err
	return err
}

// Complete reports whether a whole frame has been parsed.
func (p *Parser) Complete() bool { return p.state == stateComplete }

// Buffered returns the number of bytes held for the frame in progress.
func (p *Parser) Buffered() int {
	if p.state == stateComplete {
		return 0
	}
	return len(p.buf)
}

// Code returns the code of the completed frame.
func (p *Parser) Code() Code { return p.code }

// Message returns the decoded body of the completed frame,
// or nil for header-only and error frames.
func (p *Parser) Message() Message { return p.msg }

// Tail returns the bytes received after the end of the completed frame.
func (p *Parser) Tail() []byte { return p.tail }

// Err returns the error of the last Feed, if any.
func (p *Parser) Err() error { return p.err }

// Chunk buffers for socket reads
var chunkPool = sync.Pool{
	New: func() any {
		b := make([]byte, MaxChunkSize)
		return &b
	},
}

// ReadFrame reads from r until p holds a complete frame.
// The parser's seed is consumed first, and r is only read when the seed does
// not already contain a whole frame.
//
// Returns io.EOF, unwrapped, when r ends before any byte of the frame was seen.
// An EOF inside a frame is a *ConnectionError wrapping io.ErrUnexpectedEOF.
// Server error frames return the frame code with a *ServerError.
func ReadFrame(r io.Reader, p *Parser) (Code, Message, error) {
	done, err := p.Feed(nil)
	if done || err != nil {
		return p.Code(), p.Message(), err
	}

	bp := chunkPool.Get().(*[]byte)
	defer chunkPool.Put(bp)
	chunk := *bp

	for {
		n, rerr := r.Read(chunk)
		if n > 0 {
			done, err = p.Feed(chunk[:n])
			if done || err != nil {
				return p.Code(), p.Message(), err
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				if p.Buffered() == 0 {
					return 0, nil, io.EOF
				}
				rerr = io.ErrUnexpectedEOF
			}
			return 0, nil, &ConnectionError{Op: "read", Err: rerr}
		}
	}
}

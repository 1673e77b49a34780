package pbc

import (
	"errors"
	"io"
)

// Stream reads the frames of a multi-part response in order.
//
// Iteration follows bufio.Scanner:
//
//	s := pbc.NewStream(conn, tail, pbc.CodeListKeysResp)
//	for s.Next() {
//	    resp := s.Message().(*pbc.ListKeysResp)
//	    ...
//	}
//	if err := s.Err(); err != nil {
//	    ...
//	}
//
// The sequence ends after the first message reporting IsDone (that message is
// yielded), or when the reader ends cleanly between frames. A Stream is single
// use and cannot be restarted.
type Stream struct {
	r      io.Reader
	p      *Parser
	expect Code

	msg      Message
	err      error
	started  bool
	finished bool
}

// NewStream returns a stream reading frames with code expect from r,
// starting with the bytes in seed.
func NewStream(r io.Reader, seed []byte, expect Code) *Stream {
	return &Stream{
		r:      r,
		p:      NewParser(seed),
		expect: expect,
	}
}

// Next advances to the next message. It returns false when the stream has
// ended or failed; Err distinguishes the two.
func (s *Stream) Next() bool {
	if s.finished {
		return false
	}
	if s.started {
		s.p.Reset(s.p.Tail())
	}
	s.started = true
	s.msg = nil

	code, msg, err := ReadFrame(s.r, s.p)
	if err != nil {
		s.finished = true
		if !errors.Is(err, io.EOF) {
			s.err = err
		}
		return false
	}
	if code != s.expect {
		s.finished = true
		s.err = &UnexpectedResponseCodeError{Expected: s.expect, Actual: code}
		return false
	}

	s.msg = msg
	if d, ok := msg.(Doner); !ok || d.IsDone() {
		s.finished = true
	}
	return true
}

// Message returns the message read by the last call to Next.
func (s *Stream) Message() Message { return s.msg }

// Code returns the code every message of the stream carries.
func (s *Stream) Code() Code { return s.expect }

// Err returns the first error that ended the stream, or nil when the stream
// ended normally.
func (s *Stream) Err() error { return s.err }

// Done reports whether the stream has ended.
func (s *Stream) Done() bool { return s.finished }

// Tail returns the bytes read past the last frame of the stream.
// It is meaningful once the stream has ended without a framing error.
func (s *Stream) Tail() []byte {
	if !s.started {
		return s.p.buf
	}
	return s.p.Tail()
}

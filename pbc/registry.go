package pbc

import "fmt"

// registry maps every known code to a constructor of its message.
// A nil constructor marks a code whose frames carry no body.
var registry = map[Code]func() Message{
	CodeErrorResp:         func() Message { return new(ErrorResp) },
	CodePingReq:           nil,
	CodePingResp:          nil,
	CodeGetClientIDReq:    nil,
	CodeGetClientIDResp:   func() Message { return new(GetClientIDResp) },
	CodeSetClientIDReq:    func() Message { return new(SetClientIDReq) },
	CodeSetClientIDResp:   nil,
	CodeGetServerInfoReq:  nil,
	CodeGetServerInfoResp: func() Message { return new(GetServerInfoResp) },
	CodeGetReq:            func() Message { return new(GetReq) },
	CodeGetResp:           func() Message { return new(GetResp) },
	CodePutReq:            func() Message { return new(PutReq) },
	CodePutResp:           func() Message { return new(PutResp) },
	CodeDelReq:            func() Message { return new(DelReq) },
	CodeDelResp:           nil,
	CodeListBucketsReq:    func() Message { return new(ListBucketsReq) },
	CodeListBucketsResp:   func() Message { return new(ListBucketsResp) },
	CodeListKeysReq:       func() Message { return new(ListKeysReq) },
	CodeListKeysResp:      func() Message { return new(ListKeysResp) },
	CodeGetBucketReq:      func() Message { return new(GetBucketReq) },
	CodeGetBucketResp:     func() Message { return new(GetBucketResp) },
	CodeSetBucketReq:      func() Message { return new(SetBucketReq) },
	CodeSetBucketResp:     nil,
	CodeMapRedReq:         func() Message { return new(MapRedReq) },
	CodeMapRedResp:        func() Message { return new(MapRedResp) },
	CodeIndexReq:          func() Message { return new(IndexReq) },
	CodeIndexResp:         func() Message { return new(IndexResp) },
	CodeResetBucketReq:    func() Message { return new(ResetBucketReq) },
	CodeResetBucketResp:   nil,
	CodeGetBucketTypeReq:  func() Message { return new(GetBucketTypeReq) },
	CodeSetBucketTypeReq:  func() Message { return new(SetBucketTypeReq) },
	CodeDtFetchReq:        func() Message { return new(DtFetchReq) },
	CodeDtFetchResp:       func() Message { return new(DtFetchResp) },
	CodeDtUpdateReq:       func() Message { return new(DtUpdateReq) },
	CodeDtUpdateResp:      func() Message { return new(DtUpdateResp) },
}

// IsKnown reports whether code is part of the protocol.
func IsKnown(code Code) bool {
	_, ok := registry[code]
	return ok
}

// NewMessage returns an empty message for code.
// It returns nil for known codes without a body and a ProtocolError for unknown codes.
func NewMessage(code Code) (Message, error) {
	ctor, ok := registry[code]
	if !ok {
		return nil, &ProtocolError{Message: "unknown message code", Code: code}
	}
	if ctor == nil {
		return nil, nil
	}
	return ctor(), nil
}

// Decode decodes the body of a frame with the given code.
// Bodies of header-only codes must be empty; the returned message is nil.
func Decode(code Code, body []byte) (Message, error) {
	msg, err := NewMessage(code)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		if len(body) != 0 {
			return nil, &ProtocolError{
				Message: fmt.Sprintf("unexpected %d byte body", len(body)),
				Code:    code,
			}
		}
		return nil, nil
	}
	if err := msg.Unmarshal(body); err != nil {
		return nil, &ProtocolError{Message: "malformed message body", Code: code, Err: err}
	}
	return msg, nil
}

package pbc

import (
	"bytes"

	"google.golang.org/protobuf/encoding/protowire"
)

// encoder appends protobuf fields to a buffer.
// Absent optional fields (nil pointers, nil byte slices) are not written.
type encoder struct {
	b   []byte
	err error
}

func (e *encoder) bytes(num protowire.Number, v []byte) {
	if v == nil {
		return
	}
	e.requiredBytes(num, v)
}

func (e *encoder) requiredBytes(num protowire.Number, v []byte) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, v)
}

func (e *encoder) repeatedBytes(num protowire.Number, vs [][]byte) {
	for _, v := range vs {
		e.requiredBytes(num, v)
	}
}

func (e *encoder) uint32(num protowire.Number, v *uint32) {
	if v == nil {
		return
	}
	e.varint(num, uint64(*v))
}

func (e *encoder) uint64(num protowire.Number, v *uint64) {
	if v == nil {
		return
	}
	e.varint(num, *v)
}

func (e *encoder) bool(num protowire.Number, v *bool) {
	if v == nil {
		return
	}
	e.varint(num, protowire.EncodeBool(*v))
}

func (e *encoder) sint64(num protowire.Number, v *int64) {
	if v == nil {
		return
	}
	e.varint(num, protowire.EncodeZigZag(*v))
}

func (e *encoder) enum(num protowire.Number, v int32) {
	e.varint(num, uint64(int64(v)))
}

func (e *encoder) varint(num protowire.Number, v uint64) {
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, v)
}

func (e *encoder) message(num protowire.Number, m Message) {
	if e.err != nil {
		return
	}
	body, err := m.Marshal()
	if err != nil {
		e.err = err
		return
	}
	e.requiredBytes(num, body)
}

func (e *encoder) result() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	if e.b == nil {
		return []byte{}, nil
	}
	return e.b, nil
}

// unmarshalFields walks the fields of b. The field callback returns the number
// of bytes it consumed; zero means the field is unknown (or has an unexpected
// wire type) and is skipped.
func unmarshalFields(b []byte, field func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, err := field(num, typ, b)
		if err != nil {
			return err
		}
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
		}
		b = b[n:]
	}
	return nil
}

func consumeVarint(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, nil
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, nil
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	// Decoded values outlive the read buffer.
	if v == nil {
		v = []byte{}
	}
	return bytes.Clone(v), n, nil
}

func decodeBytes(typ protowire.Type, b []byte, dst *[]byte) (int, error) {
	v, n, err := consumeBytes(typ, b)
	if n > 0 {
		*dst = v
	}
	return n, err
}

func decodeRepeatedBytes(typ protowire.Type, b []byte, dst *[][]byte) (int, error) {
	v, n, err := consumeBytes(typ, b)
	if n > 0 {
		*dst = append(*dst, v)
	}
	return n, err
}

func decodeUint32(typ protowire.Type, b []byte, dst **uint32) (int, error) {
	v, n, err := consumeVarint(typ, b)
	if n > 0 {
		u := uint32(v)
		*dst = &u
	}
	return n, err
}

func decodeUint64(typ protowire.Type, b []byte, dst **uint64) (int, error) {
	v, n, err := consumeVarint(typ, b)
	if n > 0 {
		*dst = &v
	}
	return n, err
}

func decodeBool(typ protowire.Type, b []byte, dst **bool) (int, error) {
	v, n, err := consumeVarint(typ, b)
	if n > 0 {
		t := protowire.DecodeBool(v)
		*dst = &t
	}
	return n, err
}

func decodeSint64(typ protowire.Type, b []byte, dst **int64) (int, error) {
	v, n, err := consumeVarint(typ, b)
	if n > 0 {
		i := protowire.DecodeZigZag(v)
		*dst = &i
	}
	return n, err
}

func decodeEnum[T ~int32](typ protowire.Type, b []byte, dst *T) (int, error) {
	v, n, err := consumeVarint(typ, b)
	if n > 0 {
		*dst = T(int32(v))
	}
	return n, err
}

func decodeEnumPtr[T ~int32](typ protowire.Type, b []byte, dst **T) (int, error) {
	v, n, err := consumeVarint(typ, b)
	if n > 0 {
		t := T(int32(v))
		*dst = &t
	}
	return n, err
}

func decodeMessage[T any, PT interface {
	*T
	Message
}](typ protowire.Type, b []byte, dst *PT) (int, error) {
	body, n, err := consumeBytes(typ, b)
	if n == 0 || err != nil {
		return n, err
	}
	m := PT(new(T))
	if err := m.Unmarshal(body); err != nil {
		return 0, err
	}
	*dst = m
	return n, nil
}

func decodeRepeatedMessage[T any, PT interface {
	*T
	Message
}](typ protowire.Type, b []byte, dst *[]PT) (int, error) {
	var m PT
	n, err := decodeMessage[T, PT](typ, b, &m)
	if n > 0 && err == nil {
		*dst = append(*dst, m)
	}
	return n, err
}

// ErrorResp

func (m *ErrorResp) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.ErrMsg)
	e.varint(2, uint64(m.ErrCode))
	return e.result()
}

func (m *ErrorResp) Unmarshal(b []byte) error {
	*m = ErrorResp{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.ErrMsg)
		case 2:
			v, n, err := consumeVarint(typ, b)
			m.ErrCode = uint32(v)
			return n, err
		}
		return 0, nil
	})
}

// Client id and server info

func (m *GetClientIDResp) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.ClientID)
	return e.result()
}

func (m *GetClientIDResp) Unmarshal(b []byte) error {
	*m = GetClientIDResp{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return decodeBytes(typ, b, &m.ClientID)
		}
		return 0, nil
	})
}

func (m *SetClientIDReq) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.ClientID)
	return e.result()
}

func (m *SetClientIDReq) Unmarshal(b []byte) error {
	*m = SetClientIDReq{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return decodeBytes(typ, b, &m.ClientID)
		}
		return 0, nil
	})
}

func (m *GetServerInfoResp) Marshal() ([]byte, error) {
	var e encoder
	e.bytes(1, m.Node)
	e.bytes(2, m.ServerVersion)
	return e.result()
}

func (m *GetServerInfoResp) Unmarshal(b []byte) error {
	*m = GetServerInfoResp{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Node)
		case 2:
			return decodeBytes(typ, b, &m.ServerVersion)
		}
		return 0, nil
	})
}

// Objects

func (m *Pair) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.Key)
	e.bytes(2, m.Value)
	return e.result()
}

func (m *Pair) Unmarshal(b []byte) error {
	*m = Pair{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Key)
		case 2:
			return decodeBytes(typ, b, &m.Value)
		}
		return 0, nil
	})
}

func (m *Link) Marshal() ([]byte, error) {
	var e encoder
	e.bytes(1, m.Bucket)
	e.bytes(2, m.Key)
	e.bytes(3, m.Tag)
	return e.result()
}

func (m *Link) Unmarshal(b []byte) error {
	*m = Link{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Bucket)
		case 2:
			return decodeBytes(typ, b, &m.Key)
		case 3:
			return decodeBytes(typ, b, &m.Tag)
		}
		return 0, nil
	})
}

func (m *Content) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.Value)
	e.bytes(2, m.ContentType)
	e.bytes(3, m.Charset)
	e.bytes(4, m.ContentEncoding)
	e.bytes(5, m.VTag)
	for _, l := range m.Links {
		e.message(6, l)
	}
	e.uint32(7, m.LastMod)
	e.uint32(8, m.LastModUsecs)
	for _, p := range m.UserMeta {
		e.message(9, p)
	}
	for _, p := range m.Indexes {
		e.message(10, p)
	}
	e.bool(11, m.Deleted)
	e.uint32(12, m.TTL)
	return e.result()
}

func (m *Content) Unmarshal(b []byte) error {
	*m = Content{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Value)
		case 2:
			return decodeBytes(typ, b, &m.ContentType)
		case 3:
			return decodeBytes(typ, b, &m.Charset)
		case 4:
			return decodeBytes(typ, b, &m.ContentEncoding)
		case 5:
			return decodeBytes(typ, b, &m.VTag)
		case 6:
			return decodeRepeatedMessage(typ, b, &m.Links)
		case 7:
			return decodeUint32(typ, b, &m.LastMod)
		case 8:
			return decodeUint32(typ, b, &m.LastModUsecs)
		case 9:
			return decodeRepeatedMessage(typ, b, &m.UserMeta)
		case 10:
			return decodeRepeatedMessage(typ, b, &m.Indexes)
		case 11:
			return decodeBool(typ, b, &m.Deleted)
		case 12:
			return decodeUint32(typ, b, &m.TTL)
		}
		return 0, nil
	})
}

func (m *GetReq) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.Bucket)
	e.requiredBytes(2, m.Key)
	e.uint32(3, m.R)
	e.uint32(4, m.PR)
	e.bool(5, m.BasicQuorum)
	e.bool(6, m.NotFoundOK)
	e.bytes(7, m.IfModified)
	e.bool(8, m.Head)
	e.bool(9, m.DeletedVClock)
	e.uint32(10, m.Timeout)
	e.bool(11, m.SloppyQuorum)
	e.uint32(12, m.NVal)
	e.bytes(13, m.Type)
	return e.result()
}

func (m *GetReq) Unmarshal(b []byte) error {
	*m = GetReq{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Bucket)
		case 2:
			return decodeBytes(typ, b, &m.Key)
		case 3:
			return decodeUint32(typ, b, &m.R)
		case 4:
			return decodeUint32(typ, b, &m.PR)
		case 5:
			return decodeBool(typ, b, &m.BasicQuorum)
		case 6:
			return decodeBool(typ, b, &m.NotFoundOK)
		case 7:
			return decodeBytes(typ, b, &m.IfModified)
		case 8:
			return decodeBool(typ, b, &m.Head)
		case 9:
			return decodeBool(typ, b, &m.DeletedVClock)
		case 10:
			return decodeUint32(typ, b, &m.Timeout)
		case 11:
			return decodeBool(typ, b, &m.SloppyQuorum)
		case 12:
			return decodeUint32(typ, b, &m.NVal)
		case 13:
			return decodeBytes(typ, b, &m.Type)
		}
		return 0, nil
	})
}

func (m *GetResp) Marshal() ([]byte, error) {
	var e encoder
	for _, c := range m.Content {
		e.message(1, c)
	}
	e.bytes(2, m.VClock)
	e.bool(3, m.Unchanged)
	return e.result()
}

func (m *GetResp) Unmarshal(b []byte) error {
	*m = GetResp{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeRepeatedMessage(typ, b, &m.Content)
		case 2:
			return decodeBytes(typ, b, &m.VClock)
		case 3:
			return decodeBool(typ, b, &m.Unchanged)
		}
		return 0, nil
	})
}

func (m *PutReq) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.Bucket)
	e.bytes(2, m.Key)
	e.bytes(3, m.VClock)
	if m.Content != nil {
		e.message(4, m.Content)
	}
	e.uint32(5, m.W)
	e.uint32(6, m.DW)
	e.bool(7, m.ReturnBody)
	e.uint32(8, m.PW)
	e.bool(9, m.IfNotModified)
	e.bool(10, m.IfNoneMatch)
	e.bool(11, m.ReturnHead)
	e.uint32(12, m.Timeout)
	e.bool(13, m.Asis)
	e.bool(14, m.SloppyQuorum)
	e.uint32(15, m.NVal)
	e.bytes(16, m.Type)
	return e.result()
}

func (m *PutReq) Unmarshal(b []byte) error {
	*m = PutReq{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Bucket)
		case 2:
			return decodeBytes(typ, b, &m.Key)
		case 3:
			return decodeBytes(typ, b, &m.VClock)
		case 4:
			return decodeMessage(typ, b, &m.Content)
		case 5:
			return decodeUint32(typ, b, &m.W)
		case 6:
			return decodeUint32(typ, b, &m.DW)
		case 7:
			return decodeBool(typ, b, &m.ReturnBody)
		case 8:
			return decodeUint32(typ, b, &m.PW)
		case 9:
			return decodeBool(typ, b, &m.IfNotModified)
		case 10:
			return decodeBool(typ, b, &m.IfNoneMatch)
		case 11:
			return decodeBool(typ, b, &m.ReturnHead)
		case 12:
			return decodeUint32(typ, b, &m.Timeout)
		case 13:
			return decodeBool(typ, b, &m.Asis)
		case 14:
			return decodeBool(typ, b, &m.SloppyQuorum)
		case 15:
			return decodeUint32(typ, b, &m.NVal)
		case 16:
			return decodeBytes(typ, b, &m.Type)
		}
		return 0, nil
	})
}

func (m *PutResp) Marshal() ([]byte, error) {
	var e encoder
	for _, c := range m.Content {
		e.message(1, c)
	}
	e.bytes(2, m.VClock)
	e.bytes(3, m.Key)
	return e.result()
}

func (m *PutResp) Unmarshal(b []byte) error {
	*m = PutResp{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeRepeatedMessage(typ, b, &m.Content)
		case 2:
			return decodeBytes(typ, b, &m.VClock)
		case 3:
			return decodeBytes(typ, b, &m.Key)
		}
		return 0, nil
	})
}

func (m *DelReq) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.Bucket)
	e.requiredBytes(2, m.Key)
	e.uint32(3, m.RW)
	e.bytes(4, m.VClock)
	e.uint32(5, m.R)
	e.uint32(6, m.W)
	e.uint32(7, m.PR)
	e.uint32(8, m.PW)
	e.uint32(9, m.DW)
	e.uint32(10, m.Timeout)
	e.bool(11, m.SloppyQuorum)
	e.uint32(12, m.NVal)
	e.bytes(13, m.Type)
	return e.result()
}

func (m *DelReq) Unmarshal(b []byte) error {
	*m = DelReq{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Bucket)
		case 2:
			return decodeBytes(typ, b, &m.Key)
		case 3:
			return decodeUint32(typ, b, &m.RW)
		case 4:
			return decodeBytes(typ, b, &m.VClock)
		case 5:
			return decodeUint32(typ, b, &m.R)
		case 6:
			return decodeUint32(typ, b, &m.W)
		case 7:
			return decodeUint32(typ, b, &m.PR)
		case 8:
			return decodeUint32(typ, b, &m.PW)
		case 9:
			return decodeUint32(typ, b, &m.DW)
		case 10:
			return decodeUint32(typ, b, &m.Timeout)
		case 11:
			return decodeBool(typ, b, &m.SloppyQuorum)
		case 12:
			return decodeUint32(typ, b, &m.NVal)
		case 13:
			return decodeBytes(typ, b, &m.Type)
		}
		return 0, nil
	})
}

// Listing

func (m *ListBucketsReq) Marshal() ([]byte, error) {
	var e encoder
	e.uint32(1, m.Timeout)
	e.bool(2, m.Stream)
	e.bytes(3, m.Type)
	return e.result()
}

func (m *ListBucketsReq) Unmarshal(b []byte) error {
	*m = ListBucketsReq{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeUint32(typ, b, &m.Timeout)
		case 2:
			return decodeBool(typ, b, &m.Stream)
		case 3:
			return decodeBytes(typ, b, &m.Type)
		}
		return 0, nil
	})
}

func (m *ListBucketsResp) Marshal() ([]byte, error) {
	var e encoder
	e.repeatedBytes(1, m.Buckets)
	e.bool(2, m.Done)
	return e.result()
}

func (m *ListBucketsResp) Unmarshal(b []byte) error {
	*m = ListBucketsResp{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeRepeatedBytes(typ, b, &m.Buckets)
		case 2:
			return decodeBool(typ, b, &m.Done)
		}
		return 0, nil
	})
}

func (m *ListKeysReq) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.Bucket)
	e.uint32(2, m.Timeout)
	e.bytes(3, m.Type)
	return e.result()
}

func (m *ListKeysReq) Unmarshal(b []byte) error {
	*m = ListKeysReq{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Bucket)
		case 2:
			return decodeUint32(typ, b, &m.Timeout)
		case 3:
			return decodeBytes(typ, b, &m.Type)
		}
		return 0, nil
	})
}

func (m *ListKeysResp) Marshal() ([]byte, error) {
	var e encoder
	e.repeatedBytes(1, m.Keys)
	e.bool(2, m.Done)
	return e.result()
}

func (m *ListKeysResp) Unmarshal(b []byte) error {
	*m = ListKeysResp{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeRepeatedBytes(typ, b, &m.Keys)
		case 2:
			return decodeBool(typ, b, &m.Done)
		}
		return 0, nil
	})
}

// Bucket properties

func (m *ModFun) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.Module)
	e.requiredBytes(2, m.Function)
	return e.result()
}

func (m *ModFun) Unmarshal(b []byte) error {
	*m = ModFun{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Module)
		case 2:
			return decodeBytes(typ, b, &m.Function)
		}
		return 0, nil
	})
}

func (m *CommitHook) Marshal() ([]byte, error) {
	var e encoder
	if m.ModFun != nil {
		e.message(1, m.ModFun)
	}
	e.bytes(2, m.Name)
	return e.result()
}

func (m *CommitHook) Unmarshal(b []byte) error {
	*m = CommitHook{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeMessage(typ, b, &m.ModFun)
		case 2:
			return decodeBytes(typ, b, &m.Name)
		}
		return 0, nil
	})
}

func (m *BucketProps) Marshal() ([]byte, error) {
	var e encoder
	e.uint32(1, m.NVal)
	e.bool(2, m.AllowMult)
	e.bool(3, m.LastWriteWins)
	for _, h := range m.Precommit {
		e.message(4, h)
	}
	e.bool(5, m.HasPrecommit)
	for _, h := range m.Postcommit {
		e.message(6, h)
	}
	e.bool(7, m.HasPostcommit)
	if m.ChashKeyfun != nil {
		e.message(8, m.ChashKeyfun)
	}
	if m.Linkfun != nil {
		e.message(9, m.Linkfun)
	}
	e.uint32(10, m.OldVClock)
	e.uint32(11, m.YoungVClock)
	e.uint32(12, m.BigVClock)
	e.uint32(13, m.SmallVClock)
	e.uint32(14, m.PR)
	e.uint32(15, m.R)
	e.uint32(16, m.W)
	e.uint32(17, m.PW)
	e.uint32(18, m.DW)
	e.uint32(19, m.RW)
	e.bool(20, m.BasicQuorum)
	e.bool(21, m.NotFoundOK)
	e.bytes(22, m.Backend)
	e.bool(23, m.Search)
	if m.Repl != nil {
		e.enum(24, int32(*m.Repl))
	}
	e.bytes(25, m.SearchIndex)
	e.bytes(26, m.Datatype)
	e.bool(27, m.Consistent)
	e.bool(28, m.WriteOnce)
	e.uint32(29, m.HLLPrecision)
	e.uint32(30, m.TTL)
	return e.result()
}

func (m *BucketProps) Unmarshal(b []byte) error {
	*m = BucketProps{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeUint32(typ, b, &m.NVal)
		case 2:
			return decodeBool(typ, b, &m.AllowMult)
		case 3:
			return decodeBool(typ, b, &m.LastWriteWins)
		case 4:
			return decodeRepeatedMessage(typ, b, &m.Precommit)
		case 5:
			return decodeBool(typ, b, &m.HasPrecommit)
		case 6:
			return decodeRepeatedMessage(typ, b, &m.Postcommit)
		case 7:
			return decodeBool(typ, b, &m.HasPostcommit)
		case 8:
			return decodeMessage(typ, b, &m.ChashKeyfun)
		case 9:
			return decodeMessage(typ, b, &m.Linkfun)
		case 10:
			return decodeUint32(typ, b, &m.OldVClock)
		case 11:
			return decodeUint32(typ, b, &m.YoungVClock)
		case 12:
			return decodeUint32(typ, b, &m.BigVClock)
		case 13:
			return decodeUint32(typ, b, &m.SmallVClock)
		case 14:
			return decodeUint32(typ, b, &m.PR)
		case 15:
			return decodeUint32(typ, b, &m.R)
		case 16:
			return decodeUint32(typ, b, &m.W)
		case 17:
			return decodeUint32(typ, b, &m.PW)
		case 18:
			return decodeUint32(typ, b, &m.DW)
		case 19:
			return decodeUint32(typ, b, &m.RW)
		case 20:
			return decodeBool(typ, b, &m.BasicQuorum)
		case 21:
			return decodeBool(typ, b, &m.NotFoundOK)
		case 22:
			return decodeBytes(typ, b, &m.Backend)
		case 23:
			return decodeBool(typ, b, &m.Search)
		case 24:
			return decodeEnumPtr(typ, b, &m.Repl)
		case 25:
			return decodeBytes(typ, b, &m.SearchIndex)
		case 26:
			return decodeBytes(typ, b, &m.Datatype)
		case 27:
			return decodeBool(typ, b, &m.Consistent)
		case 28:
			return decodeBool(typ, b, &m.WriteOnce)
		case 29:
			return decodeUint32(typ, b, &m.HLLPrecision)
		case 30:
			return decodeUint32(typ, b, &m.TTL)
		}
		return 0, nil
	})
}

func (m *GetBucketReq) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.Bucket)
	e.bytes(2, m.Type)
	return e.result()
}

func (m *GetBucketReq) Unmarshal(b []byte) error {
	*m = GetBucketReq{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Bucket)
		case 2:
			return decodeBytes(typ, b, &m.Type)
		}
		return 0, nil
	})
}

func (m *GetBucketResp) Marshal() ([]byte, error) {
	var e encoder
	props := m.Props
	if props == nil {
		props = &BucketProps{}
	}
	e.message(1, props)
	return e.result()
}

func (m *GetBucketResp) Unmarshal(b []byte) error {
	*m = GetBucketResp{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return decodeMessage(typ, b, &m.Props)
		}
		return 0, nil
	})
}

func (m *SetBucketReq) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.Bucket)
	props := m.Props
	if props == nil {
		props = &BucketProps{}
	}
	e.message(2, props)
	e.bytes(3, m.Type)
	return e.result()
}

func (m *SetBucketReq) Unmarshal(b []byte) error {
	*m = SetBucketReq{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Bucket)
		case 2:
			return decodeMessage(typ, b, &m.Props)
		case 3:
			return decodeBytes(typ, b, &m.Type)
		}
		return 0, nil
	})
}

func (m *ResetBucketReq) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.Bucket)
	e.bytes(2, m.Type)
	return e.result()
}

func (m *ResetBucketReq) Unmarshal(b []byte) error {
	*m = ResetBucketReq{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Bucket)
		case 2:
			return decodeBytes(typ, b, &m.Type)
		}
		return 0, nil
	})
}

func (m *GetBucketTypeReq) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.Type)
	return e.result()
}

func (m *GetBucketTypeReq) Unmarshal(b []byte) error {
	*m = GetBucketTypeReq{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return decodeBytes(typ, b, &m.Type)
		}
		return 0, nil
	})
}

func (m *SetBucketTypeReq) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.Type)
	props := m.Props
	if props == nil {
		props = &BucketProps{}
	}
	e.message(2, props)
	return e.result()
}

func (m *SetBucketTypeReq) Unmarshal(b []byte) error {
	*m = SetBucketTypeReq{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Type)
		case 2:
			return decodeMessage(typ, b, &m.Props)
		}
		return 0, nil
	})
}

// MapReduce

func (m *MapRedReq) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.Request)
	e.requiredBytes(2, m.ContentType)
	return e.result()
}

func (m *MapRedReq) Unmarshal(b []byte) error {
	*m = MapRedReq{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Request)
		case 2:
			return decodeBytes(typ, b, &m.ContentType)
		}
		return 0, nil
	})
}

func (m *MapRedResp) Marshal() ([]byte, error) {
	var e encoder
	e.uint32(1, m.Phase)
	e.bytes(2, m.Response)
	e.bool(3, m.Done)
	return e.result()
}

func (m *MapRedResp) Unmarshal(b []byte) error {
	*m = MapRedResp{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeUint32(typ, b, &m.Phase)
		case 2:
			return decodeBytes(typ, b, &m.Response)
		case 3:
			return decodeBool(typ, b, &m.Done)
		}
		return 0, nil
	})
}

// Secondary indexes

func (m *IndexReq) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.Bucket)
	e.requiredBytes(2, m.Index)
	e.enum(3, int32(m.QType))
	e.bytes(4, m.Key)
	e.bytes(5, m.RangeMin)
	e.bytes(6, m.RangeMax)
	e.bool(7, m.ReturnTerms)
	e.bool(8, m.Stream)
	e.uint32(9, m.MaxResults)
	e.bytes(10, m.Continuation)
	e.uint32(11, m.Timeout)
	e.bytes(12, m.Type)
	e.bytes(13, m.TermRegex)
	e.bool(14, m.PaginationSort)
	return e.result()
}

func (m *IndexReq) Unmarshal(b []byte) error {
	*m = IndexReq{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Bucket)
		case 2:
			return decodeBytes(typ, b, &m.Index)
		case 3:
			return decodeEnum(typ, b, &m.QType)
		case 4:
			return decodeBytes(typ, b, &m.Key)
		case 5:
			return decodeBytes(typ, b, &m.RangeMin)
		case 6:
			return decodeBytes(typ, b, &m.RangeMax)
		case 7:
			return decodeBool(typ, b, &m.ReturnTerms)
		case 8:
			return decodeBool(typ, b, &m.Stream)
		case 9:
			return decodeUint32(typ, b, &m.MaxResults)
		case 10:
			return decodeBytes(typ, b, &m.Continuation)
		case 11:
			return decodeUint32(typ, b, &m.Timeout)
		case 12:
			return decodeBytes(typ, b, &m.Type)
		case 13:
			return decodeBytes(typ, b, &m.TermRegex)
		case 14:
			return decodeBool(typ, b, &m.PaginationSort)
		}
		return 0, nil
	})
}

func (m *IndexResp) Marshal() ([]byte, error) {
	var e encoder
	e.repeatedBytes(1, m.Keys)
	for _, p := range m.Results {
		e.message(2, p)
	}
	e.bytes(3, m.Continuation)
	e.bool(4, m.Done)
	return e.result()
}

func (m *IndexResp) Unmarshal(b []byte) error {
	*m = IndexResp{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeRepeatedBytes(typ, b, &m.Keys)
		case 2:
			return decodeRepeatedMessage(typ, b, &m.Results)
		case 3:
			return decodeBytes(typ, b, &m.Continuation)
		case 4:
			return decodeBool(typ, b, &m.Done)
		}
		return 0, nil
	})
}

// Datatypes

func (m *MapField) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.Name)
	e.enum(2, int32(m.Type))
	return e.result()
}

func (m *MapField) Unmarshal(b []byte) error {
	*m = MapField{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Name)
		case 2:
			return decodeEnum(typ, b, &m.Type)
		}
		return 0, nil
	})
}

func (m *MapEntry) Marshal() ([]byte, error) {
	var e encoder
	field := m.Field
	if field == nil {
		field = &MapField{}
	}
	e.message(1, field)
	e.sint64(2, m.CounterValue)
	e.repeatedBytes(3, m.SetValue)
	e.bytes(4, m.RegisterValue)
	e.bool(5, m.FlagValue)
	for _, entry := range m.MapValue {
		e.message(6, entry)
	}
	return e.result()
}

func (m *MapEntry) Unmarshal(b []byte) error {
	*m = MapEntry{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeMessage(typ, b, &m.Field)
		case 2:
			return decodeSint64(typ, b, &m.CounterValue)
		case 3:
			return decodeRepeatedBytes(typ, b, &m.SetValue)
		case 4:
			return decodeBytes(typ, b, &m.RegisterValue)
		case 5:
			return decodeBool(typ, b, &m.FlagValue)
		case 6:
			return decodeRepeatedMessage(typ, b, &m.MapValue)
		}
		return 0, nil
	})
}

func (m *DtFetchReq) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.Bucket)
	e.requiredBytes(2, m.Key)
	e.requiredBytes(3, m.Type)
	e.uint32(4, m.R)
	e.uint32(5, m.PR)
	e.bool(6, m.BasicQuorum)
	e.bool(7, m.NotFoundOK)
	e.uint32(8, m.Timeout)
	e.bool(9, m.SloppyQuorum)
	e.uint32(10, m.NVal)
	e.bool(11, m.IncludeContext)
	return e.result()
}

func (m *DtFetchReq) Unmarshal(b []byte) error {
	*m = DtFetchReq{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Bucket)
		case 2:
			return decodeBytes(typ, b, &m.Key)
		case 3:
			return decodeBytes(typ, b, &m.Type)
		case 4:
			return decodeUint32(typ, b, &m.R)
		case 5:
			return decodeUint32(typ, b, &m.PR)
		case 6:
			return decodeBool(typ, b, &m.BasicQuorum)
		case 7:
			return decodeBool(typ, b, &m.NotFoundOK)
		case 8:
			return decodeUint32(typ, b, &m.Timeout)
		case 9:
			return decodeBool(typ, b, &m.SloppyQuorum)
		case 10:
			return decodeUint32(typ, b, &m.NVal)
		case 11:
			return decodeBool(typ, b, &m.IncludeContext)
		}
		return 0, nil
	})
}

func (m *DtValue) Marshal() ([]byte, error) {
	var e encoder
	e.sint64(1, m.CounterValue)
	e.repeatedBytes(2, m.SetValue)
	for _, entry := range m.MapValue {
		e.message(3, entry)
	}
	e.uint64(4, m.HLLValue)
	e.repeatedBytes(5, m.GSetValue)
	return e.result()
}

func (m *DtValue) Unmarshal(b []byte) error {
	*m = DtValue{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeSint64(typ, b, &m.CounterValue)
		case 2:
			return decodeRepeatedBytes(typ, b, &m.SetValue)
		case 3:
			return decodeRepeatedMessage(typ, b, &m.MapValue)
		case 4:
			return decodeUint64(typ, b, &m.HLLValue)
		case 5:
			return decodeRepeatedBytes(typ, b, &m.GSetValue)
		}
		return 0, nil
	})
}

func (m *DtFetchResp) Marshal() ([]byte, error) {
	var e encoder
	e.bytes(1, m.Context)
	e.enum(2, int32(m.Type))
	if m.Value != nil {
		e.message(3, m.Value)
	}
	return e.result()
}

func (m *DtFetchResp) Unmarshal(b []byte) error {
	*m = DtFetchResp{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Context)
		case 2:
			return decodeEnum(typ, b, &m.Type)
		case 3:
			return decodeMessage(typ, b, &m.Value)
		}
		return 0, nil
	})
}

func (m *CounterOp) Marshal() ([]byte, error) {
	var e encoder
	e.sint64(1, m.Increment)
	return e.result()
}

func (m *CounterOp) Unmarshal(b []byte) error {
	*m = CounterOp{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return decodeSint64(typ, b, &m.Increment)
		}
		return 0, nil
	})
}

func (m *SetOp) Marshal() ([]byte, error) {
	var e encoder
	e.repeatedBytes(1, m.Adds)
	e.repeatedBytes(2, m.Removes)
	return e.result()
}

func (m *SetOp) Unmarshal(b []byte) error {
	*m = SetOp{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeRepeatedBytes(typ, b, &m.Adds)
		case 2:
			return decodeRepeatedBytes(typ, b, &m.Removes)
		}
		return 0, nil
	})
}

func (m *MapUpdate) Marshal() ([]byte, error) {
	var e encoder
	field := m.Field
	if field == nil {
		field = &MapField{}
	}
	e.message(1, field)
	if m.CounterOp != nil {
		e.message(2, m.CounterOp)
	}
	if m.SetOp != nil {
		e.message(3, m.SetOp)
	}
	e.bytes(4, m.RegisterOp)
	if m.FlagOp != nil {
		e.enum(5, int32(*m.FlagOp))
	}
	if m.MapOp != nil {
		e.message(6, m.MapOp)
	}
	return e.result()
}

func (m *MapUpdate) Unmarshal(b []byte) error {
	*m = MapUpdate{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeMessage(typ, b, &m.Field)
		case 2:
			return decodeMessage(typ, b, &m.CounterOp)
		case 3:
			return decodeMessage(typ, b, &m.SetOp)
		case 4:
			return decodeBytes(typ, b, &m.RegisterOp)
		case 5:
			return decodeEnumPtr(typ, b, &m.FlagOp)
		case 6:
			return decodeMessage(typ, b, &m.MapOp)
		}
		return 0, nil
	})
}

func (m *MapOp) Marshal() ([]byte, error) {
	var e encoder
	for _, f := range m.Removes {
		e.message(1, f)
	}
	for _, u := range m.Updates {
		e.message(2, u)
	}
	return e.result()
}

func (m *MapOp) Unmarshal(b []byte) error {
	*m = MapOp{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeRepeatedMessage(typ, b, &m.Removes)
		case 2:
			return decodeRepeatedMessage(typ, b, &m.Updates)
		}
		return 0, nil
	})
}

func (m *DtOp) Marshal() ([]byte, error) {
	var e encoder
	if m.CounterOp != nil {
		e.message(1, m.CounterOp)
	}
	if m.SetOp != nil {
		e.message(2, m.SetOp)
	}
	if m.MapOp != nil {
		e.message(3, m.MapOp)
	}
	return e.result()
}

func (m *DtOp) Unmarshal(b []byte) error {
	*m = DtOp{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeMessage(typ, b, &m.CounterOp)
		case 2:
			return decodeMessage(typ, b, &m.SetOp)
		case 3:
			return decodeMessage(typ, b, &m.MapOp)
		}
		return 0, nil
	})
}

func (m *DtUpdateReq) Marshal() ([]byte, error) {
	var e encoder
	e.requiredBytes(1, m.Bucket)
	e.bytes(2, m.Key)
	e.requiredBytes(3, m.Type)
	e.bytes(4, m.Context)
	op := m.Op
	if op == nil {
		op = &DtOp{}
	}
	e.message(5, op)
	e.uint32(6, m.W)
	e.uint32(7, m.DW)
	e.uint32(8, m.PW)
	e.bool(9, m.ReturnBody)
	e.uint32(10, m.Timeout)
	e.bool(11, m.SloppyQuorum)
	e.uint32(12, m.NVal)
	e.bool(13, m.IncludeContext)
	return e.result()
}

func (m *DtUpdateReq) Unmarshal(b []byte) error {
	*m = DtUpdateReq{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Bucket)
		case 2:
			return decodeBytes(typ, b, &m.Key)
		case 3:
			return decodeBytes(typ, b, &m.Type)
		case 4:
			return decodeBytes(typ, b, &m.Context)
		case 5:
			return decodeMessage(typ, b, &m.Op)
		case 6:
			return decodeUint32(typ, b, &m.W)
		case 7:
			return decodeUint32(typ, b, &m.DW)
		case 8:
			return decodeUint32(typ, b, &m.PW)
		case 9:
			return decodeBool(typ, b, &m.ReturnBody)
		case 10:
			return decodeUint32(typ, b, &m.Timeout)
		case 11:
			return decodeBool(typ, b, &m.SloppyQuorum)
		case 12:
			return decodeUint32(typ, b, &m.NVal)
		case 13:
			return decodeBool(typ, b, &m.IncludeContext)
		}
		return 0, nil
	})
}

func (m *DtUpdateResp) Marshal() ([]byte, error) {
	var e encoder
	e.bytes(1, m.Key)
	e.bytes(2, m.Context)
	e.sint64(3, m.CounterValue)
	e.repeatedBytes(4, m.SetValue)
	for _, entry := range m.MapValue {
		e.message(5, entry)
	}
	e.uint64(6, m.HLLValue)
	e.repeatedBytes(7, m.GSetValue)
	return e.result()
}

func (m *DtUpdateResp) Unmarshal(b []byte) error {
	*m = DtUpdateResp{}
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return decodeBytes(typ, b, &m.Key)
		case 2:
			return decodeBytes(typ, b, &m.Context)
		case 3:
			return decodeSint64(typ, b, &m.CounterValue)
		case 4:
			return decodeRepeatedBytes(typ, b, &m.SetValue)
		case 5:
			return decodeRepeatedMessage(typ, b, &m.MapValue)
		case 6:
			return decodeUint64(typ, b, &m.HLLValue)
		case 7:
			return decodeRepeatedBytes(typ, b, &m.GSetValue)
		}
		return 0, nil
	})
}

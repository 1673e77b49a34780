package riak

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/pior/riak/internal"
)

const (
	ContentTypeJSON   = "application/json"
	ContentTypeText   = "text/plain"
	ContentTypeOctets = "application/octet-stream"

	ContentEncodingGzip = "gzip"
	ContentEncodingZstd = "zstd"
)

// ContentCodec converts Go values to and from the bytes of a content type.
type ContentCodec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// ContentCodecs maps content types to codecs. It is safe for concurrent use.
type ContentCodecs struct {
	codecs *xsync.MapOf[string, ContentCodec]
}

// NewContentCodecs returns a table with codecs for JSON, plain text and
// octet streams.
func NewContentCodecs() *ContentCodecs {
	c := &ContentCodecs{codecs: xsync.NewMapOf[string, ContentCodec]()}
	c.Register(ContentTypeJSON, jsonCodec{})
	c.Register(ContentTypeText, textCodec{})
	c.Register(ContentTypeOctets, octetCodec{})
	return c
}

var defaultCodecs = NewContentCodecs()

// Register sets the codec for a content type, replacing any previous one.
func (c *ContentCodecs) Register(contentType string, codec ContentCodec) {
	c.codecs.Store(mediaType(contentType), codec)
}

// Unregister removes the codec of a content type.
func (c *ContentCodecs) Unregister(contentType string) {
	c.codecs.Delete(mediaType(contentType))
}

func (c *ContentCodecs) lookup(contentType string) (ContentCodec, error) {
	if contentType == "" {
		contentType = ContentTypeOctets
	}
	codec, ok := c.codecs.Load(mediaType(contentType))
	if !ok {
		return nil, fmt.Errorf("riak: no codec for content type %q", contentType)
	}
	return codec, nil
}

// mediaType strips parameters such as charset.
func mediaType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// textCodec handles string and []byte values.
type textCodec struct{}

func (textCodec) Marshal(v any) ([]byte, error) {
	switch t := v.(type) {
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	case fmt.Stringer:
		return []byte(t.String()), nil
	}
	return nil, fmt.Errorf("riak: cannot encode %T as text", v)
}

func (textCodec) Unmarshal(data []byte, v any) error {
	switch t := v.(type) {
	case *string:
		*t = string(data)
	case *[]byte:
		*t = bytes.Clone(data)
	default:
		return fmt.Errorf("riak: cannot decode text into %T", v)
	}
	return nil
}

// octetCodec passes bytes through.
type octetCodec struct{}

func (octetCodec) Marshal(v any) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	return nil, fmt.Errorf("riak: cannot encode %T as octets", v)
}

func (octetCodec) Unmarshal(data []byte, v any) error {
	p, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("riak: cannot decode octets into %T", v)
	}
	*p = bytes.Clone(data)
	return nil
}

var errUnknownEncoding = errors.New("riak: unsupported content encoding")

var compressBuffers = internal.NewBufferPool(4096, 1<<20)

var gzipWriters = sync.Pool{
	New: func() any { return gzip.NewWriter(nil) },
}

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

// encodeContent applies a content encoding. Identity encodings return b.
func encodeContent(encoding string, b []byte) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "", "identity":
		return b, nil
	case ContentEncodingZstd:
		return zstdEncoder.EncodeAll(b, make([]byte, 0, len(b))), nil
	case ContentEncodingGzip:
		buf := compressBuffers.Get()
		defer compressBuffers.Put(buf)

		zw := gzipWriters.Get().(*gzip.Writer)
		defer gzipWriters.Put(zw)
		zw.Reset(buf)

		if _, err := zw.Write(b); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return bytes.Clone(buf.Bytes()), nil
	}
	return nil, fmt.Errorf("%w: %q", errUnknownEncoding, encoding)
}

// decodeContent removes a content encoding.
func decodeContent(encoding string, b []byte) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "", "identity":
		return b, nil
	case ContentEncodingZstd:
		return zstdDecoder.DecodeAll(b, nil)
	case ContentEncodingGzip:
		zr, err := gzip.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		defer zr.Close()

		buf := compressBuffers.Get()
		defer compressBuffers.Put(buf)
		if _, err := io.Copy(buf, zr); err != nil {
			return nil, err
		}
		return bytes.Clone(buf.Bytes()), nil
	}
	return nil, fmt.Errorf("%w: %q", errUnknownEncoding, encoding)
}

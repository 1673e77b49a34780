package riak

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type user struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func TestObjectEncodeDecodeJSON(t *testing.T) {
	obj := &Object{}
	require.NoError(t, obj.Encode(user{Name: "alice", Email: "alice@example.com"}))

	contentType, err := obj.ContentType()
	require.NoError(t, err)
	require.Equal(t, ContentTypeJSON, contentType)

	var got user
	require.NoError(t, obj.Decode(&got))
	require.Equal(t, "alice", got.Name)
}

func TestObjectEncodeText(t *testing.T) {
	obj := &Object{}
	require.NoError(t, obj.SetContentType("text/plain; charset=utf-8"))
	require.NoError(t, obj.Encode("hello"))

	var got string
	require.NoError(t, obj.Decode(&got))
	require.Equal(t, "hello", got)
}

func TestObjectUnknownContentType(t *testing.T) {
	obj := &Object{}
	require.NoError(t, obj.SetContentType("application/x-custom"))
	require.Error(t, obj.Encode("hello"))
}

func TestContentCodecsRegister(t *testing.T) {
	codecs := NewContentCodecs()
	codecs.Register("Application/X-Custom", octetCodec{})

	codec, err := codecs.lookup("application/x-custom; v=1")
	require.NoError(t, err)
	require.Equal(t, octetCodec{}, codec)

	codecs.Unregister("application/x-custom")
	_, err = codecs.lookup("application/x-custom")
	require.Error(t, err)
}

func TestSiblingContentEncoding(t *testing.T) {
	value := bytes.Repeat([]byte("riak "), 1000)

	for _, encoding := range []string{"", ContentEncodingGzip, ContentEncodingZstd} {
		t.Run(encoding, func(t *testing.T) {
			s := &Sibling{ContentEncoding: encoding}
			require.NoError(t, s.SetData(value))
			if encoding != "" {
				require.Less(t, len(s.Value), len(value))
			}

			got, err := s.Data()
			require.NoError(t, err)
			require.Equal(t, value, got)
		})
	}
}

func TestSiblingUnknownContentEncoding(t *testing.T) {
	s := &Sibling{ContentEncoding: "br"}
	require.ErrorIs(t, s.SetData([]byte("v")), errUnknownEncoding)
}

func TestObjectConflict(t *testing.T) {
	obj := &Object{
		Location: Location{Bucket: "users", Key: "alice"},
		Siblings: []*Sibling{{Value: []byte("a")}, {Value: []byte("b")}},
	}

	var conflict *ConflictError
	require.ErrorAs(t, obj.SetValue([]byte("c")), &conflict)
	require.Equal(t, "alice", conflict.Key)

	_, err := encodePutReq(obj, PutOptions{})
	require.ErrorAs(t, err, &conflict)
}

func TestLastWriteWinsResolver(t *testing.T) {
	now := time.Now()
	obj := &Object{Siblings: []*Sibling{
		{Value: []byte("old"), LastModified: now.Add(-time.Minute)},
		{Value: []byte("new"), LastModified: now},
		{Value: []byte("older"), LastModified: now.Add(-time.Hour)},
	}}

	obj.Resolve(LastWriteWinsResolver)
	value, err := obj.Value()
	require.NoError(t, err)
	require.Equal(t, "new", string(value))
}

func TestResolveSkipsSingleSibling(t *testing.T) {
	obj := &Object{Siblings: []*Sibling{{Value: []byte("v")}}}
	obj.Resolve(func(*Object) { t.Fatal("resolver called") })
}

func TestSiblingIndexesAndLinks(t *testing.T) {
	s := &Sibling{}
	s.AddIndex("email_bin", "a@b.c")
	s.AddIndex("email_bin", "a@b.c")
	s.AddIndex("age_int", "42")
	require.Len(t, s.Indexes, 2)

	s.RemoveIndex("email_bin", "a@b.c")
	require.Equal(t, []IndexEntry{{Field: "age_int", Value: "42"}}, s.Indexes)

	s.AddLink("users", "bob", "friend")
	require.Equal(t, []Link{{Bucket: "users", Key: "bob", Tag: "friend"}}, s.Links)
}

func TestUnboundObject(t *testing.T) {
	obj := &Object{}
	require.ErrorIs(t, obj.Store(t.Context(), PutOptions{}), errUnboundObject)
}

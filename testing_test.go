package riak

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pior/riak/internal/testutils"
	"github.com/pior/riak/pbc"
)

// newMockConnection returns a connection reading the given frames.
func newMockConnection(t testing.TB, frames ...testutils.Frame) (*Connection, *testutils.ConnectionMock) {
	t.Helper()
	mock := testutils.NewFrameMock(frames...)
	conn := NewConnection(mock)
	t.Cleanup(func() { conn.Close() })
	return conn, mock
}

// newTestClient returns a client for the given fake servers, closed when the
// test ends.
func newTestClient(t testing.TB, config Config, servers ...*testutils.FakeServer) *Client {
	t.Helper()
	if config.MaxSize == 0 {
		config.MaxSize = 2
	}
	addrs := make([]string, len(servers))
	for i, s := range servers {
		addrs[i] = s.Addr()
	}
	client, err := NewClient(NewStaticNodes(addrs...), config)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

// writtenFrames returns the frames sent on a mock connection.
func writtenFrames(t testing.TB, mock *testutils.ConnectionMock) []testutils.Frame {
	t.Helper()
	frames, err := mock.WrittenFrames()
	require.NoError(t, err)
	return frames
}

func frame(code pbc.Code, msg pbc.Message) testutils.Frame {
	return testutils.Frame{Code: code, Msg: msg}
}

func ptr[T any](v T) *T {
	return &v
}

package riak

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/riak/internal/testutils"
	"github.com/pior/riak/pbc"
)

func TestConnectionPing(t *testing.T) {
	server := testutils.NewFakeServer(t)

	netConn, err := net.Dial("tcp", server.Addr())
	require.NoError(t, err)
	conn := NewConnection(netConn)
	defer conn.Close()

	for range 3 {
		require.NoError(t, conn.Ping(context.Background()))
	}
	require.Equal(t, 3, server.Requests())
	require.False(t, conn.IsBroken())
}

func TestConnectionRequestFrame(t *testing.T) {
	conn, mock := newMockConnection(t,
		frame(pbc.CodeGetServerInfoResp, &pbc.GetServerInfoResp{Node: []byte("riak@127.0.0.1"), ServerVersion: []byte("3.2.0")}),
	)

	info, err := conn.ServerInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, ServerInfo{Node: "riak@127.0.0.1", Version: "3.2.0"}, info)

	require.Equal(t, []byte{0, 0, 0, 1, byte(pbc.CodeGetServerInfoReq)}, mock.Written())
}

func TestConnectionTailSeedsNextResponse(t *testing.T) {
	// both responses arrive in the first read
	conn, _ := newMockConnection(t,
		frame(pbc.CodePingResp, nil),
		frame(pbc.CodeGetClientIDResp, &pbc.GetClientIDResp{ClientID: []byte("abcd")}),
	)

	require.NoError(t, conn.Ping(context.Background()))

	id, err := conn.ClientID(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("abcd"), id)
}

func TestConnectionServerErrorKeepsConnection(t *testing.T) {
	conn, _ := newMockConnection(t,
		testutils.ErrorFrame("no such bucket type"),
		frame(pbc.CodePingResp, nil),
	)

	err := conn.Ping(context.Background())
	var serverErr *pbc.ServerError
	require.ErrorAs(t, err, &serverErr)
	require.Equal(t, "no such bucket type", serverErr.Message)
	require.False(t, conn.IsBroken())

	require.NoError(t, conn.Ping(context.Background()))
}

func TestConnectionUnexpectedCodeBreaksConnection(t *testing.T) {
	conn, _ := newMockConnection(t,
		frame(pbc.CodeDelResp, nil),
		frame(pbc.CodePingResp, nil),
	)

	err := conn.Ping(context.Background())
	var codeErr *pbc.UnexpectedResponseCodeError
	require.ErrorAs(t, err, &codeErr)
	require.Equal(t, pbc.CodePingResp, codeErr.Expected)
	require.Equal(t, pbc.CodeDelResp, codeErr.Actual)
	require.True(t, conn.IsBroken())

	require.ErrorIs(t, conn.Ping(context.Background()), ErrConnectionBroken)
}

func TestConnectionEOF(t *testing.T) {
	conn, _ := newMockConnection(t)

	err := conn.Ping(context.Background())
	var connErr *pbc.ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.ErrorIs(t, err, io.EOF)
	require.True(t, conn.IsBroken())
}

func TestConnectionTruncatedFrame(t *testing.T) {
	mock := testutils.NewConnectionMock([]byte{0, 0, 0, 5, byte(pbc.CodeGetClientIDResp), 0x0a})
	conn := NewConnection(mock)
	defer conn.Close()

	_, err := conn.ClientID(context.Background())
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.True(t, conn.IsBroken())
}

func TestConnectionContextCancelBreaksConnection(t *testing.T) {
	server := testutils.NewFakeServer(t)
	unblock := make(chan struct{})
	defer close(unblock)
	server.Handle(pbc.CodePingReq, func(pbc.Message) testutils.Reply {
		<-unblock
		return testutils.Respond(pbc.CodePingResp, nil)
	})

	netConn, err := net.Dial("tcp", server.Addr())
	require.NoError(t, err)
	conn := NewConnection(netConn)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	err = conn.Ping(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, conn.IsBroken())
}

func TestConnectionCancelledContextSendsNothing(t *testing.T) {
	conn, mock := newMockConnection(t, frame(pbc.CodePingResp, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, conn.Ping(ctx), context.Canceled)
	require.Empty(t, mock.Written())
	require.False(t, conn.IsBroken())
}

func TestConnectionClose(t *testing.T) {
	conn, mock := newMockConnection(t)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	require.True(t, conn.IsClosed())
	require.True(t, mock.IsClosed())

	require.ErrorIs(t, conn.Ping(context.Background()), ErrConnectionClosed)
}

func TestConnectionListKeys(t *testing.T) {
	conn, mock := newMockConnection(t,
		frame(pbc.CodeListKeysResp, &pbc.ListKeysResp{Keys: [][]byte{[]byte("a"), []byte("b")}}),
		frame(pbc.CodeListKeysResp, &pbc.ListKeysResp{}),
		frame(pbc.CodeListKeysResp, &pbc.ListKeysResp{Keys: [][]byte{[]byte("c")}, Done: ptr(true)}),
		frame(pbc.CodePingResp, nil),
	)

	keys, err := conn.ListKeys(context.Background(), "users", "accounts")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, keys)

	// the ping response was read along with the listing
	require.NoError(t, conn.Ping(context.Background()))

	frames := writtenFrames(t, mock)
	require.Len(t, frames, 2)
	req := frames[0].Msg.(*pbc.ListKeysReq)
	require.Equal(t, "accounts", string(req.Bucket))
	require.Equal(t, "users", string(req.Type))
}

func TestConnectionStreamStoppedByCallback(t *testing.T) {
	conn, _ := newMockConnection(t,
		frame(pbc.CodeListKeysResp, &pbc.ListKeysResp{Keys: [][]byte{[]byte("a")}}),
		frame(pbc.CodeListKeysResp, &pbc.ListKeysResp{Keys: [][]byte{[]byte("b")}, Done: ptr(true)}),
	)

	stop := errors.New("enough")
	err := conn.StreamListKeys(context.Background(), "", "accounts", func([]string) error {
		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.True(t, conn.IsBroken(), "the rest of the listing is still on the wire")
}

func TestConnectionStreamHangupBeforeDone(t *testing.T) {
	conn, _ := newMockConnection(t,
		frame(pbc.CodeListKeysResp, &pbc.ListKeysResp{Keys: [][]byte{[]byte("a")}}),
	)

	var keys []string
	err := conn.StreamListKeys(context.Background(), "", "accounts", func(part []string) error {
		keys = append(keys, part...)
		return nil
	})
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, []string{"a"}, keys)
	require.True(t, conn.IsBroken())
}

func TestConnectionStreamServerError(t *testing.T) {
	conn, _ := newMockConnection(t,
		frame(pbc.CodeListBucketsResp, &pbc.ListBucketsResp{Buckets: [][]byte{[]byte("a")}}),
		testutils.ErrorFrame("listing timed out"),
		frame(pbc.CodePingResp, nil),
	)

	_, err := conn.ListBuckets(context.Background(), "")
	var serverErr *pbc.ServerError
	require.ErrorAs(t, err, &serverErr)
	require.False(t, conn.IsBroken())

	require.NoError(t, conn.Ping(context.Background()))
}

func TestConnectionRequestWaitsForStream(t *testing.T) {
	conn, _ := newMockConnection(t,
		frame(pbc.CodeListKeysResp, &pbc.ListKeysResp{Keys: [][]byte{[]byte("a")}, Done: ptr(true)}),
		frame(pbc.CodePingResp, nil),
	)

	s, err := conn.StreamRequest(context.Background(), pbc.CodeListKeysReq, &pbc.ListKeysReq{Bucket: []byte("b")}, pbc.CodeListKeysResp)
	require.NoError(t, err)

	pinged := make(chan error, 1)
	go func() { pinged <- conn.Ping(context.Background()) }()

	select {
	case <-pinged:
		t.Fatal("ping ran while the stream held the connection")
	case <-time.After(20 * time.Millisecond):
	}

	require.True(t, s.Next())
	require.False(t, s.Next())
	require.NoError(t, s.Err())
	require.NoError(t, <-pinged)
}

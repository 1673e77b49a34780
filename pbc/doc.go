// Package pbc implements the wire layer of the Riak Protocol Buffers API.
//
// It covers framing, message encoding and incremental parsing. Connection
// management, pooling and the object model live in the parent package.
//
// # Frames
//
// Every request and response is a single frame:
//
//	<length:uint32 big-endian><code:uint8><body:length-1 bytes>
//
// The length counts the code byte and the protobuf body. Messages such as
// PingReq and PingResp have no body and are sent as header-only frames
// (length 1).
//
// # Writing
//
// WriteFrame encodes a message and writes the frame:
//
//	err := pbc.WriteFrame(w, pbc.CodeGetReq, &pbc.GetReq{
//	    Bucket: []byte("users"),
//	    Key:    []byte("alice"),
//	})
//
// # Parsing
//
// Parser is a state machine that accepts arbitrary chunks and reports when a
// whole frame is available. Bytes beyond the frame are kept as the tail and
// seed the next parse:
//
//	p := pbc.NewParser(tail)
//	code, msg, err := pbc.ReadFrame(conn, p)
//	tail = p.Tail()
//
// Stream reads multi-part responses (key listings, MapReduce, index queries)
// until a message reports done:
//
//	s := pbc.NewStream(conn, tail, pbc.CodeListKeysResp)
//	for s.Next() {
//	    keys := s.Message().(*pbc.ListKeysResp).Keys
//	}
//	if err := s.Err(); err != nil {
//	    return err
//	}
//
// # Error Handling
//
// Errors indicate whether the connection can be reused:
//
//   - ServerError: ErrorResp frame from Riak, connection can be REUSED
//   - ProtocolError: Unknown code, bad length or malformed body, CLOSE connection
//   - UnexpectedResponseCodeError: Response does not match the request, CLOSE connection
//   - ConnectionError: Network/I/O error, connection already broken
//
// Use ShouldCloseConnection to choose between releasing and discarding a connection:
//
//	if err != nil {
//	    if pbc.ShouldCloseConnection(err) {
//	        conn.Close()
//	    }
//	    return err
//	}
package pbc

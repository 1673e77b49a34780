package riak

import (
	"github.com/zeebo/blake3"
)

// clientIDSize is the size of the client ids Riak generates itself.
const clientIDSize = 4

// NewClientID derives a client id from a seed, such as a host name. The same
// seed always gives the same id, so a restarted process keeps its vector
// clock entries instead of adding new actors.
func NewClientID(seed string) []byte {
	h := blake3.New()
	_, _ = h.Write([]byte(seed))
	return h.Sum(nil)[:clientIDSize]
}

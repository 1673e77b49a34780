package riak

import (
	"github.com/zeebo/xxh3"

	"github.com/pior/riak/internal"
)

// Nodes provides the addresses of the Riak nodes.
type Nodes interface {
	List() []string
}

// StaticNodes is a fixed list of node addresses.
type StaticNodes []string

// NewStaticNodes returns a fixed list of nodes, as "host:port" addresses.
func NewStaticNodes(addrs ...string) StaticNodes {
	return StaticNodes(addrs)
}

func (n StaticNodes) List() []string {
	return n
}

// SelectNodeFunc picks the node for a key among nodes.
// Every node of a Riak cluster can serve every key; spreading keys over
// nodes keeps the connections of each node warm.
type SelectNodeFunc func(key string, nodes []string) (string, error)

// DefaultSelectNode hashes the key with xxh3 and picks a node by jump hash,
// so that few keys move when a node is added.
func DefaultSelectNode(key string, nodes []string) (string, error) {
	switch len(nodes) {
	case 0:
		return "", ErrNoNodes
	case 1:
		return nodes[0], nil
	}
	return nodes[internal.JumpHash(xxh3.HashString(key), len(nodes))], nil
}

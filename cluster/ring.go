package cluster

import (
	"sync"

	"github.com/buraksezer/consistent"
	"github.com/spaolacci/murmur3"
	"github.com/tommyyama2020/corda/logger"
	"github.com/tommyyama2020/corda/util"
	"go.uber.org/zap"
)

type hasher struct{}

func NewHasher() *hasher {
	return &hasher{}
}

func (h hasher) Sum64(data []byte) uint64 {
	return murmur3.Sum64(data)
}

type RingConfig struct {
	PartitionCount int
}

type Node struct {
	name string
	addr string
}

func (n Node) String() string {
	return n.name
}

// Ring maps queue keys (flow ids for retries, party names for session
// messages) onto queue partitions and partitions onto nodes with a
// consistent hash, so all traffic for one key lands on the same partition.
type Ring struct {
	RingConfig
	hring     *consistent.Consistent
	nodes     map[string]Node
	localNode Node
	mu        sync.Mutex
}

func NewRing(c RingConfig) *Ring {
	cfg := consistent.Config{
		PartitionCount:    c.PartitionCount,
		ReplicationFactor: 20,
		Load:              1.25,
		Hasher:            NewHasher(),
	}
	return &Ring{
		RingConfig: c,
		hring:      consistent.New(nil, cfg),
		nodes:      make(map[string]Node),
	}
}

func (r *Ring) Join(name, addr string, isLocal bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[name]; ok {
		return nil
	}
	node := Node{name: name, addr: addr}
	logger.Info("adding member to cluster", zap.String("node", name), zap.String("address", addr))
	if isLocal {
		r.localNode = node
	}
	r.nodes[name] = node
	r.hring.Add(node)
	return nil
}

func (r *Ring) Leave(name string) error {
	logger.Info("removing member from cluster", zap.String("node", name))
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, name)
	r.hring.Remove(name)
	return nil
}

func (r *Ring) GetPartition(key string) int {
	return r.hring.FindPartitionID([]byte(key))
}

// GetPartitions lists the partitions owned by the local node, in a
// shuffled order so pollers do not starve the tail.
func (r *Ring) GetPartitions() []int {
	r.mu.Lock()
	local := r.localNode.name
	r.mu.Unlock()
	partitions := make([]int, 0)
	for i := 0; i < r.PartitionCount; i++ {
		owner := r.hring.GetPartitionOwner(i)
		if owner != nil && owner.String() == local {
			partitions = append(partitions, i)
		}
	}
	util.Shuffle(partitions)
	return partitions
}

// GetAddr resolves a node name to its advertised address.
func (r *Ring) GetAddr(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[name]
	return node.addr, ok
}

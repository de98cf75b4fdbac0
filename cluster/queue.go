package cluster

import (
	"strconv"
	"time"

	"github.com/tommyyama2020/corda/persistence"
)

// Queue routes every message for a key onto the ring partition owned by
// that key, on top of the partitioned persistence queue.
type Queue interface {
	Push(queueName string, key string, message []byte) error
	Pop(queueName string, batchSize int) ([]string, error)
	Ack(queueName string, key string, message []byte) error
}

var _ Queue = new(clusterQueue)

type clusterQueue struct {
	queue persistence.Queue
	ring  *Ring
}

func NewQueue(queue persistence.Queue, ring *Ring) *clusterQueue {
	return &clusterQueue{
		queue: queue,
		ring:  ring,
	}
}

func (cq *clusterQueue) Push(queueName string, key string, message []byte) error {
	partition := strconv.Itoa(cq.ring.GetPartition(key))
	return cq.queue.Push(queueName, partition, message)
}

func (cq *clusterQueue) Pop(queueName string, batchSize int) ([]string, error) {
	result := make([]string, 0)
	for _, partition := range cq.ring.GetPartitions() {
		if len(result) >= batchSize {
			break
		}
		items, err := cq.queue.Pop(queueName, strconv.Itoa(partition), batchSize-len(result))
		if err != nil {
			return nil, err
		}
		result = append(result, items...)
	}
	return result, nil
}

func (cq *clusterQueue) Ack(queueName string, key string, message []byte) error {
	partition := strconv.Itoa(cq.ring.GetPartition(key))
	return cq.queue.Ack(queueName, partition, message)
}

// DelayQueue is the ring-routed variant of the persistence delay queue,
// used for retry-from-safe-point scheduling.
type DelayQueue interface {
	PushWithDelay(queueName string, key string, delay time.Duration, message []byte) error
	Pop(queueName string) ([]string, error)
}

var _ DelayQueue = new(clusterDelayQueue)

type clusterDelayQueue struct {
	queue persistence.DelayQueue
	ring  *Ring
}

func NewDelayQueue(queue persistence.DelayQueue, ring *Ring) *clusterDelayQueue {
	return &clusterDelayQueue{
		queue: queue,
		ring:  ring,
	}
}

func (dq *clusterDelayQueue) PushWithDelay(queueName string, key string, delay time.Duration, message []byte) error {
	partition := strconv.Itoa(dq.ring.GetPartition(key))
	return dq.queue.PushWithDelay(queueName, partition, delay, message)
}

func (dq *clusterDelayQueue) Pop(queueName string) ([]string, error) {
	result := make([]string, 0)
	for _, partition := range dq.ring.GetPartitions() {
		res, err := dq.queue.Pop(queueName, strconv.Itoa(partition))
		if err != nil {
			return nil, err
		}
		result = append(result, res...)
	}
	return result, nil
}

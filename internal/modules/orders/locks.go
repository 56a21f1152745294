package orders

import (
	"hash/fnv"
	"strconv"
	"sync"
)

const lockShards = 64

// portfolioLocks serializes capital and holdings writes per portfolio.
// Portfolios hash onto a fixed set of mutexes, so two portfolios may share
// a shard but one portfolio always maps to the same one.
type portfolioLocks struct {
	shards [lockShards]sync.Mutex
}

func (l *portfolioLocks) shard(portfolioID int64) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(portfolioID, 10)))
	return &l.shards[h.Sum32()%lockShards]
}

// with runs fn while holding the portfolio's shard
func (l *portfolioLocks) with(portfolioID int64, fn func() error) error {
	mu := l.shard(portfolioID)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

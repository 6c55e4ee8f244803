package sharding

import "github.com/cespare/xxhash/v2"

type ShardRouter struct {
	ShardCount int // Number of shards
}

func NewShardRouter(shardCount int) *ShardRouter {
	if shardCount < 1 {
		shardCount = 1
	}
	return &ShardRouter{ShardCount: shardCount}
}

// GetShard maps a snapshot id to a shard index. The mapping only depends on the id and
// ShardCount, so a snapshot is always read from the shard it was written to.
func (r *ShardRouter) GetShard(id string) int {
	// Hash the ID and get the shard index
	shardIndex := xxhash.Sum64String(id) % uint64(r.ShardCount)
	return int(shardIndex)
}

// Package sequence provides pid.SequenceAllocator implementations.
//
// Each allocator hands out integers unique within a pid.Period and never
// reuses them. Uniqueness is enforced by the backing store: a mutex for the
// in-memory counter, INCR for Redis, an upsert for PostgreSQL and a write
// transaction for BoltDB. Random is the reference mock and guarantees
// nothing.
package sequence

import (
	"prms/internal/pid"
)

var (
	_ pid.SequenceAllocator = (*InMemory)(nil)
	_ pid.SequenceAllocator = (*Random)(nil)
	_ pid.SequenceAllocator = (*Redis)(nil)
	_ pid.SequenceAllocator = (*Postgres)(nil)
	_ pid.SequenceAllocator = (*Bolt)(nil)
)

// Store names accepted by configuration.
const (
	StoreMemory   = "memory"
	StoreRandom   = "random"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreBolt     = "bolt"
)

// periodKey is the store key suffix for a period, e.g. "KTH:2508".
func periodKey(p pid.Period) string {
	return p.SiteCode + ":" + p.Year + p.Month
}

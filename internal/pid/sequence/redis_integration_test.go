//go:build integration

package sequence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"prms/internal/pid"
	"prms/internal/pid/sequence"
	"prms/pkg/testutil/containers"
)

type RedisAllocatorSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	alloc *sequence.Redis
}

func TestRedisAllocatorSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisAllocatorSuite))
}

func (s *RedisAllocatorSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.alloc = sequence.NewRedis(s.redis.Client)
}

func (s *RedisAllocatorSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

// TestConcurrentAllocationIsGapFree verifies INCR hands every caller a
// distinct value and leaves no holes.
func (s *RedisAllocatorSuite) TestConcurrentAllocationIsGapFree() {
	ctx := context.Background()
	period := pid.Period{SiteCode: "KTH", Year: "25", Month: "08"}

	const callers = 200
	results := make([]int, callers)
	g, gctx := errgroup.WithContext(ctx)
	for i := range callers {
		g.Go(func() error {
			n, err := s.alloc.Next(gctx, period)
			results[i] = n
			return err
		})
	}
	s.Require().NoError(g.Wait())

	seen := make(map[int]bool, callers)
	for _, n := range results {
		s.False(seen[n], "duplicate sequence %d", n)
		seen[n] = true
	}
	for n := 1; n <= callers; n++ {
		s.True(seen[n], "missing sequence %d", n)
	}
}

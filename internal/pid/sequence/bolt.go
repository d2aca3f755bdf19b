package sequence

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"prms/internal/pid"
)

var boltRootBucket = []byte("pid_sequences")

// Bolt keeps counters in a local BoltDB file, one nested bucket per period.
// The file lock makes it single-process; pidctl uses it for offline batches.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens or creates the counter file at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt sequence store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltRootBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bolt sequence store: %w", err)
	}
	return &Bolt{db: db}, nil
}

// Next returns the period bucket's next sequence.
func (a *Bolt) Next(ctx context.Context, period pid.Period) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var next uint64
	err := a.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(boltRootBucket).CreateBucketIfNotExists([]byte(periodKey(period)))
		if err != nil {
			return err
		}
		next, err = b.NextSequence()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("next sequence for %s: %w", period, err)
	}
	return int(next), nil
}

// Close releases the file lock.
func (a *Bolt) Close() error {
	return a.db.Close()
}

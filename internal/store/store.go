package store

import (
	"context"
	"errors"
	"fmt"
	"path"
)

// ErrNotFound is returned by Get when no object exists at the key. Callers
// treat it as "not yet written", never as a failure.
var ErrNotFound = errors.New("object not found")

// ObjectStore is a key-addressed blob store. Both the staging store (job
// inputs) and the result store (worker outputs) are instances of it,
// partitioned by key prefix. Every operation is atomic at single-key
// granularity, which is all the bridge needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the object at key. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// GetDelete reads the object at key and removes it in one atomic step.
	// When readers race on the same key, exactly one receives the data and
	// every other gets ErrNotFound. Delete-on-read retention depends on
	// this: a result must be redeemable exactly once.
	GetDelete(ctx context.Context, key string) ([]byte, error)

	// Ping reports backend reachability for health checks.
	Ping(ctx context.Context) error
}

// StagingKey builds the staging store key for a submission.
func StagingKey(prefix, correlationID, filename string) string {
	return path.Join(prefix, correlationID, filename)
}

// ResultKey builds the result store key a worker writes to.
func ResultKey(prefix, correlationID string) string {
	return fmt.Sprintf("%s/%s.json", prefix, correlationID)
}

// Package keylock serializes work on a single key, either inside one process
// or across instances through redis.
package keylock

import (
	"context"
	"errors"
)

var ErrNotAcquired = errors.New("keylock: lock not acquired")

// Unlock releases a held lock. Calling it more than once is a no-op.
type Unlock func()

type Locker interface {
	Acquire(ctx context.Context, key string) (Unlock, error)
}

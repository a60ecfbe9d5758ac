package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Edit locks are heartbeat keys: the editor holding a post refreshes its lock
// every few seconds and the key expires shortly after the editor goes away.
const (
	lockKeyPrefix = "editlock:"
	lockTTL       = 150 * time.Second
)

// LockRepository tracks which user currently holds a post open for editing
type LockRepository interface {
	// Holder returns the user id holding the lock, or 0 when unlocked
	Holder(ctx context.Context, postID uint64) (uint64, error)
	// IsLockedByOther reports whether someone other than userID holds the lock
	IsLockedByOther(ctx context.Context, postID uint64, userID uint64) (bool, error)
	// Refresh takes or extends the lock for a user
	Refresh(ctx context.Context, postID uint64, userID uint64) error
	// Release drops the lock if the user holds it
	Release(ctx context.Context, postID uint64, userID uint64) error
}

type lockRepository struct {
	client *redis.Client
}

// NewLockRepository creates a Redis-backed LockRepository
func NewLockRepository(client *redis.Client) LockRepository {
	return &lockRepository{client: client}
}

func lockKey(postID uint64) string {
	return fmt.Sprintf("%s%d", lockKeyPrefix, postID)
}

// Holder returns the user id holding the lock, or 0 when unlocked
func (r *lockRepository) Holder(ctx context.Context, postID uint64) (uint64, error) {
	if r.client == nil {
		return 0, nil
	}

	val, err := r.client.Get(ctx, lockKey(postID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}

	holder, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, nil // stale or malformed key, treat as unlocked
	}
	return holder, nil
}

// IsLockedByOther reports whether someone other than userID holds the lock
func (r *lockRepository) IsLockedByOther(ctx context.Context, postID uint64, userID uint64) (bool, error) {
	holder, err := r.Holder(ctx, postID)
	if err != nil {
		return false, err
	}
	return holder != 0 && holder != userID, nil
}

// Refresh takes or extends the lock for a user
func (r *lockRepository) Refresh(ctx context.Context, postID uint64, userID uint64) error {
	if r.client == nil {
		return nil
	}
	return r.client.Set(ctx, lockKey(postID), strconv.FormatUint(userID, 10), lockTTL).Err()
}

// Release drops the lock if the user holds it
func (r *lockRepository) Release(ctx context.Context, postID uint64, userID uint64) error {
	if r.client == nil {
		return nil
	}

	holder, err := r.Holder(ctx, postID)
	if err != nil {
		return err
	}
	if holder != userID {
		return nil
	}
	return r.client.Del(ctx, lockKey(postID)).Err()
}

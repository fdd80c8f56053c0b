// Package hasher hashes and verifies passwords with bcrypt.
//
// bcrypt is deliberately slow, so the hasher bounds how many hash or compare
// operations run at once; callers beyond the limit wait for a slot or for
// their context to end.
package hasher

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Bcrypt is safe for concurrent use.
type Bcrypt struct {
	cost int
	sem  *semaphore.Weighted
}

// New returns a Bcrypt hasher with the given cost. A non-positive cost means
// bcrypt.DefaultCost; a non-positive concurrency means GOMAXPROCS.
func New(cost, concurrency int) *Bcrypt {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	return &Bcrypt{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(concurrency)),
	}
}

// Hash returns the salted bcrypt hash of password.
func (b *Bcrypt) Hash(ctx context.Context, password string) (string, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer b.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare reports whether password matches hash. A mismatch is (false, nil);
// an error means the comparison could not run (malformed hash, cancelled
// context).
func (b *Bcrypt) Compare(ctx context.Context, hash, password string) (bool, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer b.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

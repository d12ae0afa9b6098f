// Package auth issues and checks credentials: bcrypt password hashes, signed
// session tokens, bearer header extraction and the ownership guard used by
// mutating post routes.
package auth

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"inkwell/internal/observability"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 12

// ErrPasswordTooLong is returned for passwords bcrypt would silently truncate.
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// PasswordHasher hashes and checks passwords with bcrypt. Work runs on its own
// goroutine and at most GOMAXPROCS hashes run at once, so a burst of logins
// queues here instead of saturating every core.
type PasswordHasher struct {
	cost  int
	slots chan struct{}

	decoyOnce sync.Once
	decoy     []byte
}

// NewPasswordHasher returns a hasher using cost, or DefaultCost when cost is
// outside bcrypt's accepted range.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &PasswordHasher{
		cost:  cost,
		slots: make(chan struct{}, runtime.GOMAXPROCS(0)),
	}
}

// Cost returns the configured work factor.
func (h *PasswordHasher) Cost() int {
	return h.cost
}

type hashResult struct {
	hash []byte
	err  error
}

// Hash returns a salted bcrypt hash of password. It returns ctx.Err() if ctx is
// done before a slot frees up or before hashing finishes.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.acquire(ctx); err != nil {
		return "", err
	}

	out := make(chan hashResult, 1)
	go func() {
		defer h.release()
		start := time.Now()
		b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
		observability.ObservePasswordHash(start)
		out <- hashResult{hash: b, err: err}
	}()

	select {
	case r := <-out:
		if r.err != nil {
			return "", r.err
		}
		return string(r.hash), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Verify reports whether password matches hash. A malformed hash, an empty
// hash or a cancelled ctx all yield false.
func (h *PasswordHasher) Verify(ctx context.Context, password, hash string) bool {
	if hash == "" {
		return false
	}
	return h.compare(ctx, []byte(hash), password)
}

// CompareDecoy spends the same work as Verify against a throwaway hash. Login
// calls it for unknown emails so response time does not reveal which
// addresses are registered.
func (h *PasswordHasher) CompareDecoy(ctx context.Context, password string) {
	h.decoyOnce.Do(func() {
		h.decoy, _ = bcrypt.GenerateFromPassword([]byte("inkwell-decoy-password"), h.cost)
	})
	_ = h.compare(ctx, h.decoy, password)
}

func (h *PasswordHasher) compare(ctx context.Context, hash []byte, password string) bool {
	if err := h.acquire(ctx); err != nil {
		return false
	}

	out := make(chan error, 1)
	go func() {
		defer h.release()
		out <- bcrypt.CompareHashAndPassword(hash, []byte(password))
	}()

	select {
	case err := <-out:
		return err == nil
	case <-ctx.Done():
		return false
	}
}

func (h *PasswordHasher) acquire(ctx context.Context) error {
	select {
	case h.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *PasswordHasher) release() {
	<-h.slots
}

// IsPasswordTooLong reports whether err came from a password over bcrypt's 72 byte limit.
func IsPasswordTooLong(err error) bool {
	return errors.Is(err, ErrPasswordTooLong)
}

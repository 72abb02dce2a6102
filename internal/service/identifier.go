package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/presenza-app/presenza/internal/domain"
	"go.uber.org/zap"
)

// GlobalIdentifierPrefix is the fixed prefix of self-service visitor
// identifiers. Admin-created users get their tenant's code instead.
const GlobalIdentifierPrefix = "VP"

const (
	identifierAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	identifierSuffixLen = 7

	// DefaultIdentifierMaxAttempts bounds allocation retries. The
	// identifier space holds 36^7 codes, so hitting this limit means a
	// broken store or random source, not an exhausted space.
	DefaultIdentifierMaxAttempts = 25
)

// ErrIdentifierExhausted means allocation kept colliding until the
// attempt budget ran out. Configuration-level failure; never expected.
var ErrIdentifierExhausted = errors.New("identifier allocation attempts exhausted")

// IdentifierAllocator generates globally unique opaque visitor
// identifiers of the form PREFIX-XXXXXXX. The pre-check against the
// store avoids most collisions; the unique index on the identifier
// column is the source of truth, and callers retry on a late conflict
// at insert time.
type IdentifierAllocator struct {
	users       domain.UserStore
	maxAttempts int
	logger      *zap.Logger
}

func NewIdentifierAllocator(users domain.UserStore, maxAttempts int, logger *zap.Logger) *IdentifierAllocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultIdentifierMaxAttempts
	}
	return &IdentifierAllocator{users: users, maxAttempts: maxAttempts, logger: logger}
}

// AllocateVisitorIdentifier returns an unused identifier with the
// global prefix.
func (a *IdentifierAllocator) AllocateVisitorIdentifier(ctx context.Context) (string, error) {
	return a.allocate(ctx, GlobalIdentifierPrefix)
}

// AllocateTenantScopedCode returns an unused identifier prefixed with
// the owning tenant's code. Uniqueness is still checked against the
// global identifier space.
func (a *IdentifierAllocator) AllocateTenantScopedCode(ctx context.Context, tenantCode string) (string, error) {
	return a.allocate(ctx, tenantCode)
}

func (a *IdentifierAllocator) allocate(ctx context.Context, prefix string) (string, error) {
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		candidate, err := generateIdentifier(prefix)
		if err != nil {
			return "", err
		}

		exists, err := a.users.IdentifierExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}

		a.logger.Warn("identifier collision, regenerating",
			zap.String("prefix", prefix),
			zap.Int("attempt", attempt+1))
	}

	a.logger.Error("identifier space lookup kept colliding",
		zap.String("prefix", prefix),
		zap.Int("max_attempts", a.maxAttempts))
	return "", ErrIdentifierExhausted
}

func generateIdentifier(prefix string) (string, error) {
	suffix := make([]byte, identifierSuffixLen)
	max := big.NewInt(int64(len(identifierAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate identifier: %w", err)
		}
		suffix[i] = identifierAlphabet[n.Int64()]
	}
	return prefix + "-" + string(suffix), nil
}

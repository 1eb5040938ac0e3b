package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store kinds selectable through configuration
const (
	KindMemory   = "memory"
	KindPostgres = "postgres"
	KindRedis    = "redis"
)

// ErrUnknownStore is returned by the factory for an unsupported kind
var ErrUnknownStore = errors.New("unknown quota store")

// Store tracks successful generations per session. Implementations must make
// TryIncrement atomic so concurrent requests cannot exceed the limit.
type Store interface {
	// Get returns the used count, zero for an unseen session
	Get(ctx context.Context, sessionID string) (int, error)
	// TryIncrement adds one only while the count is below limit. It returns the
	// resulting count and whether the increment happened.
	TryIncrement(ctx context.Context, sessionID string, limit int) (int, bool, error)
	// Name identifies the backing store in logs
	Name() string
}

// ParseKind normalizes a configured store kind
func ParseKind(kind string) (string, error) {
	switch k := strings.ToLower(strings.TrimSpace(kind)); k {
	case "", KindMemory:
		return KindMemory, nil
	case KindPostgres, KindRedis:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownStore, kind)
	}
}

package scoring

import (
	"context"
	"time"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

// Cache port: absorbs repeated score requests for the same client. Explicit
// and injectable; a cache miss is never an error. Not required for
// correctness, since scores are always recomputable from the store.
type Cache interface {
	Get(ctx context.Context, tenant string, id entities.ClientID) (*Bundle, bool, error)
	Set(ctx context.Context, tenant string, id entities.ClientID, b *Bundle, ttl time.Duration) error
}

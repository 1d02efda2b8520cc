package adapters

import (
	"context"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

// Credentials is an opaque map of named fields; each adapter declares the
// fields it requires and validates them before any network call.
type Credentials map[string]string

// Adapter port. One implementation per vendor; implementations are
// independent and share no state (parallel syncs must not interfere).
type Adapter interface {
	// Vendor is the stable source tag written onto normalized rows.
	Vendor() entities.Source

	// RequiredFields lists the credential fields Sync validates up front.
	RequiredFields() []string

	// Sync fetches from the vendor and maps into normalized shape. It never
	// writes to the store and returns no partial batch on error.
	Sync(ctx context.Context, creds Credentials) (*entities.NormalizedBatch, error)
}

// ValidateCredentials checks the required fields synchronously. Returns an
// *Error with KindInvalidCredentials naming every missing field.
func ValidateCredentials(vendor entities.Source, creds Credentials, required []string) error {
	var missing []string
	for _, f := range required {
		if creds[f] == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return MissingFields(vendor, missing)
	}
	return nil
}

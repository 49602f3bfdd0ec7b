package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrOwnerNotFound reports that no registered lookup recognizes the
// resource identifier.
var ErrOwnerNotFound = errors.New("resource owner not found")

// OwnerLookup resolves the owning tenant for one kind of resource.
// Implementations return ErrOwnerNotFound (or a wrapper of it) when the
// identifier does not belong to their kind; any other error is treated
// as an infrastructure failure, not as absence.
type OwnerLookup interface {
	// Kind names the resource kind this lookup covers, e.g. "issuer"
	Kind() string
	// Resolve returns the tenant that owns the identified resource
	Resolve(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// Ownership is a successful resolution result
type Ownership struct {
	Kind     string
	TenantID uuid.UUID
}

// LookupError wraps a lookup failure with the kind that failed, so the
// caller can tell a broken lookup apart from a resource that simply
// does not exist.
type LookupError struct {
	Kind string
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("ownership lookup for %s failed: %v", e.Kind, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Resolver probes its lookups in registration order and returns the
// first ownership found. Identifiers are unique across kinds, so the
// first hit is authoritative and later lookups are skipped. A lookup
// failure aborts resolution immediately rather than falling through to
// the next kind: a missing answer must never be mistaken for absence.
type Resolver struct {
	lookups []OwnerLookup
}

// NewResolver creates a resolver over the given lookups. Order matters:
// more frequent kinds should come first.
func NewResolver(lookups ...OwnerLookup) *Resolver {
	return &Resolver{lookups: lookups}
}

// Resolve finds the tenant owning the identified resource
func (r *Resolver) Resolve(ctx context.Context, id uuid.UUID) (Ownership, error) {
	for _, lookup := range r.lookups {
		tenantID, err := lookup.Resolve(ctx, id)
		if err == nil {
			return Ownership{Kind: lookup.Kind(), TenantID: tenantID}, nil
		}
		if errors.Is(err, ErrOwnerNotFound) {
			continue
		}
		return Ownership{}, &LookupError{Kind: lookup.Kind(), Err: err}
	}
	return Ownership{}, ErrOwnerNotFound
}

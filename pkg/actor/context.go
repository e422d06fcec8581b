package actor

import (
	"context"
	"errors"
)

// Context keys for actor information
type contextKey string

const (
	actorIDKey        contextKey = "actorId"
	roleKey           contextKey = "actorRole"
	organizationIDKey contextKey = "organizationId"
)

// Errors for actor context operations
var (
	ErrMissingActorContext = errors.New("actor context is required")
	ErrUnauthorizedAccess  = errors.New("unauthorized access to organization resource")
	ErrMissingActorID      = errors.New("actorId is required")
	ErrMissingRole         = errors.New("actor role is required")
)

// Role identifies the kind of caller acting on the scheduling API.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleAgent        Role = "AGENT"
	RoleOrganization Role = "ORGANIZATION"
)

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleOrganization:
		return true
	}
	return false
}

// Context holds the authenticated caller identity resolved by the upstream
// identity service. The service trusts these values; authentication itself
// happens at the edge.
type Context struct {
	// ActorID is the identifier of the authenticated caller
	ActorID string `json:"actorId"`

	// Role is the caller's role (ADMIN, AGENT, ORGANIZATION)
	Role Role `json:"role"`

	// OrganizationID scopes the request to a tenant organization
	OrganizationID string `json:"organizationId"`
}

// FromContext extracts the actor Context from context.Context.
// Returns an error if the actor identity is missing.
func FromContext(ctx context.Context) (*Context, error) {
	ac := &Context{}

	if v := ctx.Value(actorIDKey); v != nil {
		if id, ok := v.(string); ok {
			ac.ActorID = id
		}
	}
	if v := ctx.Value(roleKey); v != nil {
		if r, ok := v.(Role); ok {
			ac.Role = r
		}
	}
	if v := ctx.Value(organizationIDKey); v != nil {
		if id, ok := v.(string); ok {
			ac.OrganizationID = id
		}
	}

	if ac.ActorID == "" {
		return nil, ErrMissingActorContext
	}

	return ac, nil
}

// FromContextOptional extracts the actor Context, returning an empty
// context when none exists.
func FromContextOptional(ctx context.Context) *Context {
	ac, _ := FromContext(ctx)
	if ac == nil {
		return &Context{}
	}
	return ac
}

// ToContext adds actor Context values to context.Context.
func ToContext(ctx context.Context, ac *Context) context.Context {
	if ac == nil {
		return ctx
	}

	if ac.ActorID != "" {
		ctx = context.WithValue(ctx, actorIDKey, ac.ActorID)
	}
	if ac.Role != "" {
		ctx = context.WithValue(ctx, roleKey, ac.Role)
	}
	if ac.OrganizationID != "" {
		ctx = context.WithValue(ctx, organizationIDKey, ac.OrganizationID)
	}

	return ctx
}

// WithActorID returns a new context with the actor ID set
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// WithRole returns a new context with the actor role set
func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

// WithOrganizationID returns a new context with the organization ID set
func WithOrganizationID(ctx context.Context, organizationID string) context.Context {
	return context.WithValue(ctx, organizationIDKey, organizationID)
}

// GetActorID extracts the actor ID from context
func GetActorID(ctx context.Context) string {
	if v := ctx.Value(actorIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// GetRole extracts the actor role from context
func GetRole(ctx context.Context) Role {
	if v := ctx.Value(roleKey); v != nil {
		if r, ok := v.(Role); ok {
			return r
		}
	}
	return ""
}

// GetOrganizationID extracts the organization ID from context
func GetOrganizationID(ctx context.Context) string {
	if v := ctx.Value(organizationIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// IsEmpty returns true if the context has no actor identity set
func (ac *Context) IsEmpty() bool {
	return ac.ActorID == "" && ac.Role == "" && ac.OrganizationID == ""
}

// IsAdmin returns true for administrative callers
func (ac *Context) IsAdmin() bool {
	return ac.Role == RoleAdmin
}

// Validate checks that the actor context carries a usable identity.
func (ac *Context) Validate() error {
	if ac.ActorID == "" {
		return ErrMissingActorID
	}
	if ac.Role == "" {
		return ErrMissingRole
	}
	return nil
}

// ValidateOwnership verifies that a resource belongs to the caller's
// organization. Admins may cross organization boundaries.
func (ac *Context) ValidateOwnership(resourceOrganizationID string) error {
	if ac.IsAdmin() {
		return nil
	}
	if ac.OrganizationID != "" && resourceOrganizationID != "" && ac.OrganizationID != resourceOrganizationID {
		return ErrUnauthorizedAccess
	}
	return nil
}

package actor

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// RepositoryHelper provides organization-aware query building for MongoDB
// repositories. Embed this in repository structs to scope queries to the
// caller's organization.
type RepositoryHelper struct {
	// EnforceOrganization when true, returns an error if actor context is missing
	EnforceOrganization bool
}

// NewRepositoryHelper creates a new RepositoryHelper
func NewRepositoryHelper(enforceOrganization bool) *RepositoryHelper {
	return &RepositoryHelper{
		EnforceOrganization: enforceOrganization,
	}
}

// WithOrganizationFilter adds organization scoping to a MongoDB query filter.
// Admin callers are not scoped.
func (h *RepositoryHelper) WithOrganizationFilter(ctx context.Context, filter bson.M) (bson.M, error) {
	ac, err := FromContext(ctx)
	if err != nil {
		if h.EnforceOrganization {
			return nil, err
		}
		return filter, nil
	}

	if ac.IsAdmin() || ac.OrganizationID == "" {
		return filter, nil
	}

	scoped := bson.M{}
	for k, v := range filter {
		scoped[k] = v
	}
	scoped["organizationId"] = ac.OrganizationID

	return scoped, nil
}

// ValidateOwnership verifies that a fetched resource belongs to the caller's
// organization.
func (h *RepositoryHelper) ValidateOwnership(ctx context.Context, resourceOrganizationID string) error {
	ac, err := FromContext(ctx)
	if err != nil {
		if h.EnforceOrganization {
			return err
		}
		return nil
	}

	return ac.ValidateOwnership(resourceOrganizationID)
}

// OrganizationIndexes returns standard MongoDB index definitions for
// organization-scoped collections.
func OrganizationIndexes() []bson.D {
	return []bson.D{
		{{Key: "organizationId", Value: 1}},
		{{Key: "organizationId", Value: 1}, {Key: "createdAt", Value: -1}},
	}
}

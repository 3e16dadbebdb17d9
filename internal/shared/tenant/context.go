package tenant

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Role values carried in the request context.
const (
	RoleAdmin            = "ADMIN"
	RoleWarehouseManager = "WAREHOUSE_MANAGER"
	RoleStaff            = "STAFF"
)

const contextKey = "tenantContext"

var (
	ErrMissingContext = errors.New("missing tenant context")
	ErrRoleDenied     = errors.New("role not permitted for this operation")
)

// Context is the request-scoped identity every core operation runs under.
// All data access is filtered by OrganizationID.
type Context struct {
	OrganizationID string
	UserID         uuid.UUID
	Role           string
}

func (c Context) Valid() bool {
	return c.OrganizationID != "" && c.UserID != uuid.Nil
}

// CanManageTransfers reports whether the caller may approve or reject
// transfer requests.
func (c Context) CanManageTransfers() bool {
	return c.Role == RoleAdmin || c.Role == RoleWarehouseManager
}

// Set stores the tenant context on the gin context. Called by the auth
// middleware once the JWT is verified.
func Set(c *gin.Context, tc Context) {
	c.Set(contextKey, tc)
}

// FromGin extracts the tenant context populated by the auth middleware.
func FromGin(c *gin.Context) (Context, error) {
	v, ok := c.Get(contextKey)
	if !ok {
		return Context{}, ErrMissingContext
	}
	tc, ok := v.(Context)
	if !ok || !tc.Valid() {
		return Context{}, ErrMissingContext
	}
	return tc, nil
}

package authz

import (
	"context"

	"github.com/gin-gonic/gin"
)

// IdentityKey is the gin context key holding the caller's Identity.
const IdentityKey = "authz_identity"

// Identity is the verified caller of a request.
type Identity struct {
	MemberID    string `json:"memberId"`
	IsAdmin     bool   `json:"isAdmin"`
	IsExecutive bool   `json:"isExecutive"`
}

// Role returns the most privileged role the identity holds.
func (i Identity) Role() string {
	switch {
	case i.IsAdmin:
		return RoleAdmin
	case i.IsExecutive:
		return RoleExecutive
	default:
		return RoleMember
	}
}

type identityCtxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFrom returns the identity stored in ctx.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// SetIdentity stores the identity in the gin context and in the request
// context, so services reached from the handler can read it as well.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(IdentityKey, id)
	c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
}

// GetIdentity retrieves the caller identity from the gin context.
func GetIdentity(c *gin.Context) (Identity, bool) {
	if v, exists := c.Get(IdentityKey); exists {
		if id, ok := v.(Identity); ok {
			return id, true
		}
	}
	return Identity{}, false
}

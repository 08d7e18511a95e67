package jwt

import (
	jwtx "github.com/golang-jwt/jwt/v4"
)

// Claims represents the JWT claims of a member session. Roles are not carried
// in the token; they are read from the member document on every request.
type Claims struct {
	MemberID              string `json:"member_id"` // Member document id
	Email                 string `json:"email"`     // Member email address
	jwtx.RegisteredClaims        // Embedded standard JWT claims
}

// CreateJwtParams contains the parameters required to generate a JWT for a member.
type CreateJwtParams struct {
	MemberID string // Member document id
	Email    string // Member email address
}

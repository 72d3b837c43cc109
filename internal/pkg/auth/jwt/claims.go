package jwt

import "github.com/golang-jwt/jwt"

const (
	// RoleOperator may manage media: upload, delete, list and check storage health.
	RoleOperator = "operator"

	// RoleViewer may only read: list, existence checks and the storage health check.
	RoleViewer = "viewer"
)

// Payload defines the structure of the JSON Web Token (JWT) claims for dashboard operators.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID identifies the operator the token was minted for. It appears in audit logs.
	ID string `json:"id"`

	// Role decides which media operations the holder may perform.
	Role string `json:"role"`
}

// CanWrite reports whether the holder may change stored objects.
func (p *Payload) CanWrite() bool {
	return p != nil && p.Role == RoleOperator
}

// IsValidRole reports whether role is one the server knows.
func IsValidRole(role string) bool {
	return role == RoleOperator || role == RoleViewer
}

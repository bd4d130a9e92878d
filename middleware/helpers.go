package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Dosada05/competition-engine/services"
	"github.com/golang-jwt/jwt/v4"
)

const (
	jwtClaimUserID = "user_id"
	jwtClaimRole   = "role"
)

// Claims is the token payload issued by the identity provider.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Caller validates the claims and converts them to an engine identity. The
// subject is used when user_id is absent.
func (c *Claims) Caller() (services.Caller, error) {
	userID := c.UserID
	if userID == "" {
		userID = c.Subject
	}
	if userID == "" {
		return services.Caller{}, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	}

	role := services.Role(c.Role)
	switch role {
	case services.RoleAdmin, services.RoleOrganizer, services.RolePlayer:
		return services.Caller{UserID: userID, Role: role}, nil
	case "":
		return services.Caller{}, fmt.Errorf("missing '%s' claim in token", jwtClaimRole)
	default:
		return services.Caller{}, fmt.Errorf("invalid role value in claim: %q", c.Role)
	}
}

// IssueToken signs an HS256 token for userID. It backs local tooling and
// tests; production tokens come from the identity provider.
func IssueToken(secret, userID string, role services.Role, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"kind": services.KindPermissionDenied, "message": message},
	})
}

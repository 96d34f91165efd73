package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nagendrasomala/quizy-gateway/internal/response"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
	// ContextKeyToken is the Gin context key for the raw bearer token. The
	// session forwards it on its own calls to the quiz service.
	ContextKeyToken = "bearer_token"
)

// RoleCandidate is the token role the external auth service issues to
// students taking a quiz.
const RoleCandidate = "student"

// Claims are the fields of candidate tokens issued by the external
// authentication service. The gateway validates them; it never issues tokens.
type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Name  string `json:"name"`
	RegNo string `json:"regNo"`
}

// RequireCandidateJWT validates a candidate JWT from the Authorization header
// (with a ?token= fallback for transports that cannot send headers).
func RequireCandidateJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		admit(c, extractToken(c), secret)
	}
}

// RequireCandidateWSAuth validates a candidate JWT from the query param
// ?token=... Used for WebSocket upgrade requests, where the browser API
// cannot set headers.
func RequireCandidateWSAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		admit(c, c.Query("token"), secret)
	}
}

// admit validates the token, gates on the candidate role, and stashes both
// the claims and the raw token (the session forwards it upstream).
func admit(c *gin.Context, tokenStr, secret string) {
	if tokenStr == "" {
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	claims, err := validateToken(tokenStr, secret)
	if err != nil {
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	if claims.Role != RoleCandidate {
		response.AbortFail(c, http.StatusForbidden, response.ErrCandidateOnly)
		return
	}

	c.Set(ContextKeyClaims, claims)
	c.Set(ContextKeyToken, tokenStr)
	c.Next()
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetToken retrieves the raw bearer token from the Gin context.
func GetToken(c *gin.Context) string {
	return c.GetString(ContextKeyToken)
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	return c.Query("token")
}

func validateToken(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

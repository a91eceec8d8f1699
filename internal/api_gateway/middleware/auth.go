package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bookstore-ledger/internal/domain/shared"
)

// IdentityKey is the key used to store the caller's identity in the context
const IdentityKey = "identity"

var (
	errMissingToken = errors.New("missing bearer token")
	errBadSubject   = errors.New("token user_id is not a valid id")
	errBadRole      = errors.New("token role is not recognized")
)

// Claims is the bearer token payload issued by the identity provider
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Auth requires an HS256 bearer token and stores the caller's identity
func Auth(secret string, logger *slog.Logger) gin.HandlerFunc {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		identity, err := authenticate(parser, key, c.GetHeader("Authorization"))
		if err != nil {
			logger.Warn("Rejected request credentials",
				"path", c.Request.URL.Path,
				"correlation_id", GetCorrelationID(c),
				"error", err,
			)
			abortWithError(c, http.StatusUnauthorized, string(shared.KindUnauthorized), "missing or invalid bearer token")
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

func authenticate(parser *jwt.Parser, key []byte, header string) (shared.Identity, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return shared.Identity{}, errMissingToken
	}

	var claims Claims
	_, err := parser.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return shared.Identity{}, err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil || userID == uuid.Nil {
		return shared.Identity{}, errBadSubject
	}

	role := claims.Role
	if role == "" {
		role = shared.RoleUser
	}
	if role != shared.RoleUser && role != shared.RoleAdmin {
		return shared.Identity{}, errBadRole
	}

	return shared.Identity{UserID: userID, Role: role}, nil
}

// GetIdentity returns the authenticated caller, if the request passed Auth
func GetIdentity(c *gin.Context) (shared.Identity, bool) {
	if v, exists := c.Get(IdentityKey); exists {
		identity, ok := v.(shared.Identity)
		return identity, ok
	}
	return shared.Identity{}, false
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"studyhub/apperrors"
	"studyhub/logger"
	"studyhub/models"
)

const principalKey = "principal"

// Claims is the token payload issued by the identity provider.
type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

type PrincipalResolver interface {
	Principal(ctx context.Context, userID uint) (models.Principal, error)
}

type AuthMiddleware struct {
	secret   []byte
	resolver PrincipalResolver
	log      *logger.Logger
}

func NewAuthMiddleware(secret string, resolver PrincipalResolver, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret), resolver: resolver, log: log.With("middleware", "AuthMiddleware")}
}

// Authenticate resolves the caller when a token is present. Requests
// without a token pass through anonymously; bad tokens are rejected.
func (am *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.Next()
			return
		}

		userID, err := am.parse(tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		principal, err := am.resolver.Principal(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
				return
			}
			am.log.Error("resolve principal failed", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if !principal.IsActive || principal.IsDeleted {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account is inactive or deleted"})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

func (am *AuthMiddleware) parse(tokenString string) (uint, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}
	if claims.UserID == 0 {
		return 0, errors.New("token has no user_id")
	}
	return claims.UserID, nil
}

// RequireAuth rejects anonymous requests. It must run after Authenticate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := PrincipalFrom(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !principal.IsSuperuser {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the authenticated caller of the request, if any.
func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	principal, ok := v.(models.Principal)
	return principal, ok
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return c.Query("token")
}

package middleware

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"matatu_hub/internal/authz"
	"matatu_hub/internal/models"
)

const principalKey = "principal"

var (
	mu       sync.RWMutex
	secret   = []byte("supersecret")
	tokenTTL = 72 * time.Hour
)

// Claims carries only the user id; roles are resolved per request.
type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// ConfigureJWT sets the signing secret and token lifetime.
func ConfigureJWT(key string, ttl time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	if key != "" {
		secret = []byte(key)
	}
	if ttl > 0 {
		tokenTTL = ttl
	}
}

func signingKey() []byte {
	mu.RLock()
	defer mu.RUnlock()
	return secret
}

func GenerateToken(userID uint) (string, error) {
	mu.RLock()
	ttl := tokenTTL
	mu.RUnlock()
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey())
}

// ValidateToken parses and verifies an HS256 token.
func ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return signingKey(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// RequireAuth ensures a valid JWT is present and stores the caller's
// principal in the context.
func RequireAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		claims, err := ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		p, err := authz.Resolve(c.Request.Context(), db, claims.UserID)
		if err != nil {
			if errors.Is(err, authz.ErrUnknownUser) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unknown user"})
				return
			}
			logrus.WithError(err).WithField("request_id", GetRequestID(c)).Error("RequireAuth: resolving principal failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not resolve permissions"})
			return
		}

		c.Set("user_id", p.UserID)
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		if !p.Has(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

// CurrentPrincipal returns the principal set by RequireAuth.
func CurrentPrincipal(c *gin.Context) (authz.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return authz.Principal{}, false
	}
	p, ok := v.(authz.Principal)
	return p, ok
}

// SetPrincipal stores p on the context. Handlers under test use it in
// place of RequireAuth.
func SetPrincipal(c *gin.Context, p authz.Principal) {
	c.Set("user_id", p.UserID)
	c.Set(principalKey, p)
}

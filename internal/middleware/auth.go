package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// UserRole represents user roles in the system
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleOperator UserRole = "operator"
)

// Context keys set by Authentication
const (
	ActorKey = "actor"
	RolesKey = "roles"
)

// ErrUnauthorized is returned for a missing, malformed or expired token
var ErrUnauthorized = errors.New("unauthorized")

// Claims represents JWT claims. Subject identifies the shop staff member.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret     string
	TokenDuration time.Duration
	Issuer        string
}

// AuthService validates the tokens that guard destructive endpoints. Tokens are issued by
// the shop's identity provider; GenerateToken exists for tooling and tests.
type AuthService struct {
	config *AuthConfig
	logger *logrus.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(config *AuthConfig, logger *logrus.Logger) *AuthService {
	if config.TokenDuration == 0 {
		config.TokenDuration = 12 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "autoservice-billing-api"
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &AuthService{config: config, logger: logger}
}

// GenerateToken signs a token for the given actor
func (a *AuthService) GenerateToken(actor string, roles []string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    a.config.Issuer,
			Subject:   actor,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken validates a JWT token and returns the claims
func (a *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.config.JWTSecret), nil
	}, jwt.WithIssuer(a.config.Issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	return claims, nil
}

// Authentication validates the bearer token and stores the actor in the context.
// A nil service disables the check.
func Authentication(authService *AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authService == nil {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		scheme, tokenString, found := strings.Cut(header, " ")
		if header == "" || !found || scheme != "Bearer" || tokenString == "" {
			abort(c, http.StatusUnauthorized, "Unauthorized", "Expected Authorization: Bearer <token>")
			return
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			authService.logger.WithFields(logrus.Fields{
				"error":      err.Error(),
				"path":       c.Request.URL.Path,
				"request_id": c.GetString(RequestIDKey),
			}).Warn("Token validation failed")
			abort(c, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
			return
		}

		c.Set(ActorKey, claims.Subject)
		c.Set(RolesKey, claims.Roles)
		c.Next()
	}
}

// Authorization requires one of the given roles. It must run after Authentication;
// when authentication is disabled no actor is set and the request passes.
func Authorization(authService *AuthService, requiredRoles ...UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authService == nil || len(requiredRoles) == 0 {
			c.Next()
			return
		}

		roles := c.GetStringSlice(RolesKey)
		allowed := slices.ContainsFunc(requiredRoles, func(r UserRole) bool {
			return slices.Contains(roles, string(r))
		})
		if !allowed {
			authService.logger.WithFields(logrus.Fields{
				"actor":          c.GetString(ActorKey),
				"roles":          roles,
				"required_roles": requiredRoles,
				"path":           c.Request.URL.Path,
			}).Warn("Authorization failed - insufficient permissions")
			abort(c, http.StatusForbidden, "Forbidden", "Insufficient permissions")
			return
		}

		c.Next()
	}
}

// RequireRole chains Authentication and Authorization for a single route
func RequireRole(authService *AuthService, roles ...UserRole) []gin.HandlerFunc {
	return []gin.HandlerFunc{Authentication(authService), Authorization(authService, roles...)}
}

// ActorFromContext returns the authenticated actor, if any
func ActorFromContext(c *gin.Context) (string, bool) {
	actor := c.GetString(ActorKey)
	return actor, actor != ""
}

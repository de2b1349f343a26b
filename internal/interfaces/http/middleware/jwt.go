package middleware

import (
	"errors"
	"strings"

	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey     = "jwt_claims"
	JWTOperatorIDKey = "jwt_operator_id"
	AuthHeaderKey    = "Authorization"
	BearerPrefix     = "Bearer "
)

// Roles carried in operator tokens
const (
	RoleCashier = "cashier"
	RoleAdmin   = "admin"
)

// TokenValidator validates a bearer token. *auth.JWTService implements it.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	Validator TokenValidator
	// SkipPaths are exact paths served without a token
	SkipPaths []string
	// SkipPathPrefixes are path prefixes served without a token
	SkipPathPrefixes []string
	Logger           *zap.Logger
}

// DefaultJWTConfig returns default JWT middleware configuration
func DefaultJWTConfig(validator TokenValidator) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		Validator:        validator,
		SkipPaths:        []string{"/health", "/ready", "/metrics"},
		SkipPathPrefixes: []string{"/swagger"},
	}
}

// JWTAuthMiddleware creates JWT authentication middleware
func JWTAuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(validator))
}

// JWTAuthMiddlewareWithConfig authenticates the operator behind each request.
// The operator id ends up in the gin context, the request context and the
// request logger so services can stamp "applied by" on allocations.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip {
				c.Next()
				return
			}
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		token, ok := bearerToken(c)
		if !ok {
			denyAuth(c, cfg.Logger, auth.ErrInvalidToken, "Missing or malformed authorization header")
			return
		}

		claims, err := cfg.Validator.Validate(token)
		if err != nil {
			denyAuth(c, cfg.Logger, err, "Token validation failed")
			return
		}
		setClaims(c, claims)

		if cfg.Logger != nil {
			cfg.Logger.Debug("Operator authenticated",
				zap.String("operator_id", claims.Subject),
				zap.Strings("roles", claims.Roles),
			)
		}
		c.Next()
	}
}

// OptionalJWTAuthMiddleware extracts claims when a valid token is present and
// lets anonymous requests through otherwise
func OptionalJWTAuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if ok {
			if claims, err := validator.Validate(token); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// RequireRole lets the request through when the operator holds any of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			abort(c, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		for _, role := range roles {
			if claims.HasRole(role) {
				c.Next()
				return
			}
		}
		logger.L(c.Request.Context()).Warn("Operator lacks required role",
			zap.Strings("required_any", roles),
			zap.Strings("roles", claims.Roles),
		)
		abort(c, dto.ErrCodeForbidden, "Operation not allowed for this operator")
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	operatorID, _ := claims.OperatorID()
	c.Set(JWTClaimsKey, claims)
	c.Set(JWTOperatorIDKey, operatorID)

	ctx := c.Request.Context()
	ctx, enriched := logger.WithOperatorID(ctx, logger.FromContext(ctx), operatorID.String())
	if _, ok := c.Get("logger"); ok {
		c.Set("logger", enriched)
	}
	c.Request = c.Request.WithContext(ctx)
}

func denyAuth(c *gin.Context, log *zap.Logger, err error, message string) {
	if log != nil {
		log.Warn("JWT authentication failed",
			zap.Error(err),
			zap.String("message", message),
			zap.String("path", c.Request.URL.Path),
		)
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		abort(c, dto.ErrCodeTokenExpired, "Token has expired")
	case errors.Is(err, auth.ErrTokenNotYetValid):
		abort(c, dto.ErrCodeTokenInvalid, "Token is not yet valid")
	case errors.Is(err, auth.ErrMissingOperator), errors.Is(err, auth.ErrInvalidClaims):
		abort(c, dto.ErrCodeTokenInvalid, "Token does not identify an operator")
	case errors.Is(err, auth.ErrInvalidToken):
		abort(c, dto.ErrCodeTokenInvalid, "Invalid token")
	default:
		abort(c, dto.ErrCodeUnauthorized, "Authentication required")
	}
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetOperatorID returns the authenticated operator, or nil for anonymous
// requests
func GetOperatorID(c *gin.Context) *uuid.UUID {
	if v, exists := c.Get(JWTOperatorIDKey); exists {
		if id, ok := v.(uuid.UUID); ok && id != uuid.Nil {
			return &id
		}
	}
	return nil
}

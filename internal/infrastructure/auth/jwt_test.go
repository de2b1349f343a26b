package auth

import (
	"testing"
	"time"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{Enabled: true, Secret: testSecret, Issuer: "school-idp"})
}

func signRaw(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestJWTService_IssueAndValidate(t *testing.T) {
	svc := newTestJWTService()
	operator := uuid.New()

	token, err := svc.Issue(operator, "Caja 1", []string{"cashier"}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)

	id, err := claims.OperatorID()
	require.NoError(t, err)
	assert.Equal(t, operator, id)
	assert.Equal(t, "Caja 1", claims.Name)
	assert.True(t, claims.HasRole("cashier"))
	assert.False(t, claims.HasRole("admin"))
	assert.NotEmpty(t, claims.ID)
}

func TestJWTService_Validate_Rejects(t *testing.T) {
	svc := newTestJWTService()
	now := time.Now()
	valid := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Issuer:    "school-idp",
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		}
	}

	tests := []struct {
		name    string
		token   func() string
		wantErr error
	}{
		{"garbage", func() string { return "not.a.jwt" }, ErrInvalidToken},
		{"wrong secret", func() string {
			return signRaw(t, jwt.SigningMethodHS256, []byte("another-secret-of-32-characters!!"), &Claims{RegisteredClaims: valid()})
		}, ErrInvalidToken},
		{"wrong algorithm", func() string {
			return signRaw(t, jwt.SigningMethodHS512, []byte(testSecret), &Claims{RegisteredClaims: valid()})
		}, ErrInvalidToken},
		{"expired", func() string {
			rc := valid()
			rc.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))
			return signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), &Claims{RegisteredClaims: rc})
		}, ErrExpiredToken},
		{"not yet valid", func() string {
			rc := valid()
			rc.NotBefore = jwt.NewNumericDate(now.Add(time.Hour))
			return signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), &Claims{RegisteredClaims: rc})
		}, ErrTokenNotYetValid},
		{"wrong issuer", func() string {
			rc := valid()
			rc.Issuer = "someone-else"
			return signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), &Claims{RegisteredClaims: rc})
		}, ErrInvalidClaims},
		{"no expiry", func() string {
			rc := valid()
			rc.ExpiresAt = nil
			return signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), &Claims{RegisteredClaims: rc})
		}, ErrInvalidClaims},
		{"subject is not an operator id", func() string {
			rc := valid()
			rc.Subject = "cashier-1"
			return signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), &Claims{RegisteredClaims: rc})
		}, ErrMissingOperator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(tt.token())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestJWTService_WithoutIssuerAcceptsAny(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: testSecret})
	token := signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "anything",
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}})

	_, err := svc.Validate(token)
	assert.NoError(t, err)
}

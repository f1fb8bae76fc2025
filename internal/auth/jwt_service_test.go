package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "userhub/internal/errors"
)

const testSecret = "test-signing-key"

func tamper(token string) string {
	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	parts[2] = string(sig)
	return strings.Join(parts, ".")
}

func TestJWTService_IssueAndValidate(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)
	userID := uuid.New()

	token, expiresAt, err := svc.IssueToken(userID, "Alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "Alice", claims.Name)

	id := claims.Identity()
	assert.Equal(t, userID, id.UserID)
	assert.Equal(t, "Alice", id.Name)
}

func TestJWTService_DefaultTTL(t *testing.T) {
	svc := NewJWTService(testSecret, 0)
	assert.Equal(t, DefaultTokenTTL, svc.TTL())
}

func TestJWTService_Expired(t *testing.T) {
	svc := NewJWTService(testSecret, time.Minute)
	issued := time.Now().Add(-2 * time.Minute)
	svc.now = func() time.Time { return issued }

	token, _, err := svc.IssueToken(uuid.New(), "Bob")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)
	valid, _, err := svc.IssueToken(uuid.New(), "Carol")
	require.NoError(t, err)

	otherKey, _, err := NewJWTService("another-key", time.Hour).IssueToken(uuid.New(), "Mallory")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	noneToken, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: "not-a-uuid",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	badSubjectToken, err := badSubject.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"tampered signature", tamper(valid)},
		{"different secret", otherKey},
		{"alg none", noneToken},
		{"non-uuid user id", badSubjectToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestMiddleware(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)
	userID := uuid.New()
	valid, _, err := svc.IssueToken(userID, "Dana")
	require.NoError(t, err)

	stale := NewJWTService(testSecret, time.Minute)
	stale.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _, err := stale.IssueToken(userID, "Dana")
	require.NoError(t, err)

	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		ctxID, ok := IdentityFromContext(c.Request().Context())
		if !ok || ctxID != id {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, echo.Map{"id": id.UserID.String(), "name": id.Name})
	}, Middleware(svc))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"tampered token", "Bearer " + tamper(valid), http.StatusUnauthorized},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, userID.String(), body["id"])
				assert.Equal(t, "Dana", body["name"])
				return
			}
			var body apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, apperrors.CodeUnauthorized, body.Code)
		})
	}
}

func TestIdentityFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := IdentityFromContext(req.Context())
	assert.False(t, ok)
}

package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/voicebot/codexreview/consts"
	"github.com/voicebot/codexreview/internal/api/middleware"
	"github.com/voicebot/codexreview/pkg/errors"
	"github.com/voicebot/codexreview/pkg/logger"
)

// AuthHandler issues and validates operator tokens signed with a shared secret.
// Tokens are minted by the CLI; the API only validates them.
type AuthHandler struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewAuthHandler creates an auth handler. An empty secret rejects every token.
func NewAuthHandler(secret string, expiry time.Duration) *AuthHandler {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &AuthHandler{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

// Claims represents JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Enabled reports whether a signing secret is configured
func (h *AuthHandler) Enabled() bool {
	return len(h.secret) > 0
}

// IssueToken signs a token for subject and returns it with its expiry
func (h *AuthHandler) IssueToken(subject string) (string, time.Time, error) {
	if !h.Enabled() {
		return "", time.Time{}, errors.New(errors.ErrCodeConfigInvalid, "auth.jwt_secret is not configured")
	}

	now := h.now()
	expiresAt := now.Add(h.expiry)
	claims := &Claims{
		Username: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    consts.ServiceName,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", time.Time{}, errors.ErrInternal("failed to sign token", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a JWT token and returns the username
func (h *AuthHandler) ValidateToken(tokenString string) (string, error) {
	if !h.Enabled() {
		return "", errors.ErrUnauthorized("token authentication is disabled")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return h.secret, nil
	}, jwt.WithTimeFunc(h.now))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", errors.ErrUnauthorized("invalid token")
	}
	return claims.Username, nil
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	username, exists := c.Get(middleware.ContextKeySubject)
	if !exists {
		logger.Warn("Username missing from authenticated request", zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    errors.ErrCodeUnauthorized,
			"message": "Not authenticated",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": username})
}

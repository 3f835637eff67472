package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"sandflake/internal/config"
)

const (
	headerAPIKey   = "X-API-Key"
	bearerPrefix   = "Bearer "
	authFailureMsg = "Authorization is failure"
)

var errUnauthorized = errors.New("unauthorized")

// authenticator 校验 HS256 Bearer Token 或 X-API-Key
type authenticator struct {
	enabled bool
	secret  []byte
	hashes  [][]byte // API Key 的 bcrypt 哈希
	logger  *zap.Logger
}

func newAuthenticator(cfg config.AuthConfig, logger *zap.Logger) (*authenticator, error) {
	if cfg.Enabled && cfg.JWTSecret == "" && len(cfg.APIKeyHashes) == 0 {
		return nil, errors.New("auth is enabled but neither auth.jwt_secret nor auth.api_key_hashes is set")
	}

	a := &authenticator{
		enabled: cfg.Enabled,
		secret:  []byte(cfg.JWTSecret),
		logger:  logger,
	}
	for i, h := range cfg.APIKeyHashes {
		if _, err := bcrypt.Cost([]byte(h)); err != nil {
			return nil, fmt.Errorf("auth.api_key_hashes[%d]: %w", i, err)
		}
		a.hashes = append(a.hashes, []byte(h))
	}
	return a, nil
}

// middleware 授权失败时返回 401
func (a *authenticator) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.enabled {
			c.Next()
			return
		}
		if err := a.authorize(c.Request); err != nil {
			a.logger.Debug("授权失败",
				zap.String("path", c.FullPath()),
				zap.String("client_ip", c.ClientIP()),
				zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": authFailureMsg})
			return
		}
		c.Next()
	}
}

func (a *authenticator) authorize(r *http.Request) error {
	if key := r.Header.Get(headerAPIKey); key != "" {
		return a.checkAPIKey(key)
	}

	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return fmt.Errorf("%w: missing credentials", errUnauthorized)
	}
	return a.checkToken(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
}

func (a *authenticator) checkToken(raw string) error {
	if len(a.secret) == 0 {
		return fmt.Errorf("%w: bearer tokens are not accepted", errUnauthorized)
	}
	_, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %v", errUnauthorized, err)
	}
	return nil
}

func (a *authenticator) checkAPIKey(key string) error {
	for _, h := range a.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(key)) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown api key", errUnauthorized)
}

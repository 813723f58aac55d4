// Package auth implements the single-admin session gate that protects the
// dashboard API.
package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/igoorng/webhook/internal/config"
	"github.com/igoorng/webhook/internal/constants"
	apperrors "github.com/igoorng/webhook/pkg/errors"
)

type Gate struct {
	username     string
	passwordHash []byte
	ttl          time.Duration
	cookieName   string
	secureCookie bool
	clock        func() time.Time

	mu       sync.Mutex
	sessions map[string]time.Time
}

// NewGate prepares the gate from config. A plain password is hashed once
// here so only the bcrypt hash is kept in memory.
func NewGate(cfg config.AuthConfig) (*Gate, error) {
	hash := []byte(cfg.PasswordHash)
	if len(hash) == 0 {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash admin password: %w", err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("invalid admin password hash: %w", err)
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = constants.DefaultSessionTTL
	}
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = constants.DefaultCookieName
	}

	return &Gate{
		username:     cfg.Username,
		passwordHash: hash,
		ttl:          ttl,
		cookieName:   cookieName,
		secureCookie: cfg.SecureCookie,
		clock:        time.Now,
		sessions:     make(map[string]time.Time),
	}, nil
}

// Login checks the credentials and opens a session.
func (g *Gate) Login(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(g.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return "", apperrors.ErrUnauthorized.WithMessage("Invalid username or password")
	}

	token := uuid.NewString()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.evictExpired()
	g.sessions[token] = g.clock().Add(g.ttl)
	return token, nil
}

func (g *Gate) Logout(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, token)
}

func (g *Gate) Valid(token string) bool {
	if token == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	expires, ok := g.sessions[token]
	if !ok {
		return false
	}
	if g.clock().After(expires) {
		delete(g.sessions, token)
		return false
	}
	return true
}

func (g *Gate) evictExpired() {
	now := g.clock()
	for token, expires := range g.sessions {
		if now.After(expires) {
			delete(g.sessions, token)
		}
	}
}

func (g *Gate) SetCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(g.cookieName, token, int(g.ttl.Seconds()), "/", "", g.secureCookie, true)
}

func (g *Gate) ClearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(g.cookieName, "", -1, "/", "", g.secureCookie, true)
}

// Token returns the session token carried by the request, if any.
func (g *Gate) Token(c *gin.Context) string {
	token, err := c.Cookie(g.cookieName)
	if err != nil {
		return ""
	}
	return token
}

// Middleware rejects requests without a live session with 401.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.Valid(g.Token(c)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperrors.ToErrorResponse(apperrors.ErrUnauthorized))
			return
		}
		c.Next()
	}
}

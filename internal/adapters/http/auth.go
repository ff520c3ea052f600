package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dkeye/talks/internal/adapters/signal"
	"github.com/dkeye/talks/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// TokenName is the query parameter, cookie and session key a socket token
// may be carried under when no Authorization header is sent.
const TokenName = "socket_token"

var ErrNoToken = errors.New("no token")

// Claims is the payload of a socket token.
type Claims struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 socket tokens signed with the shared secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

func (v *Verifier) Verify(raw string) (*domain.Identity, error) {
	claims := &Claims{}
	tok, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthRejected, err)
	}
	if !tok.Valid {
		return nil, domain.ErrAuthRejected
	}
	who, err := domain.NewIdentity(claims.ID, claims.Username, claims.DisplayName, claims.AvatarURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthRejected, err)
	}
	return who, nil
}

// Issue signs a token for who. Only tests and local tooling call it; the
// login flow lives outside this service.
func (v *Verifier) Issue(who domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:          string(who.ID),
		Username:    who.Username,
		DisplayName: who.DisplayName,
		AvatarURL:   who.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func tokenFrom(c *gin.Context) (string, error) {
	if h := c.GetHeader("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok && tok != "" {
			return tok, nil
		}
	}
	if tok := c.Query("token"); tok != "" {
		return tok, nil
	}
	if tok, err := c.Cookie(TokenName); err == nil && tok != "" {
		return tok, nil
	}
	if tok, ok := sessions.Default(c).Get(TokenName).(string); ok && tok != "" {
		return tok, nil
	}
	return "", ErrNoToken
}

// IdentityMiddleware rejects the request with 401 unless it carries a valid
// token, and stores the verified identity under signal.IdentityKey.
func IdentityMiddleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := tokenFrom(c)
		if err == nil {
			var who *domain.Identity
			who, err = v.Verify(raw)
			if err == nil {
				c.Set(signal.IdentityKey, who)
				c.Next()
				return
			}
		}
		log.Warn().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("auth rejected")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication error"})
	}
}

func identity(c *gin.Context) *domain.Identity {
	v, _ := c.Get(signal.IdentityKey)
	who, _ := v.(*domain.Identity)
	return who
}

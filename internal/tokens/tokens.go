package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gogotex/pagebuilder/internal/config"
	"github.com/gogotex/pagebuilder/pkg/middleware"
)

// Subject identifies whom an access token is issued to.
type Subject struct {
	Sub         string
	Name        string
	Email       string
	Roles       []string
	Permissions []string
}

// GenerateAccessToken creates a signed HS256 JWT carrying the subject's
// roles and pagebuilder permissions.
func GenerateAccessToken(cfg *config.Config, s Subject, ttl time.Duration) (string, error) {
	if cfg.JWT.Secret == "" {
		return "", errors.New("JWT secret is not configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"jti":         uuid.NewString(),
		"iss":         cfg.JWT.Issuer,
		"sub":         s.Sub,
		"name":        s.Name,
		"email":       s.Email,
		"roles":       s.Roles,
		"permissions": s.Permissions,
		"iat":         now.Unix(),
		"exp":         now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}

// Revocations answers whether a token id was revoked.
type Revocations interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Revoker marks a token id as revoked for ttl.
type Revoker interface {
	Revocations
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// MemoryRevocations is the single-process Revoker.
type MemoryRevocations struct {
	mu    sync.Mutex
	until map[string]time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{until: map[string]time.Time{}}
}

func (m *MemoryRevocations) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.until[jti] = time.Now().Add(ttl)
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.until[jti]
	if ok && time.Now().After(until) {
		delete(m.until, jti)
		return false, nil
	}
	return ok, nil
}

// SubjectFromClaims reads the identity of verified claims. Roles and
// permissions accept JSON arrays or space-separated strings.
func SubjectFromClaims(claims map[string]interface{}) Subject {
	str := func(k string) string { s, _ := claims[k].(string); return s }
	name := str("name")
	if name == "" {
		name = str("preferred_username")
	}
	return Subject{
		Sub:         str("sub"),
		Name:        name,
		Email:       str("email"),
		Roles:       listClaim(claims["roles"]),
		Permissions: listClaim(claims["permissions"]),
	}
}

func listClaim(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return strings.Fields(t)
	}
	return nil
}

// RevocationTTL returns how long the token described by claims stays
// valid: the time left until its "exp" claim.
func RevocationTTL(claims map[string]interface{}) time.Duration {
	exp, ok := claims["exp"].(float64)
	if !ok {
		return 0
	}
	return time.Until(time.Unix(int64(exp), 0))
}

// RedisRevocations keeps revoked token ids under "revoked:access:<jti>"
// until the token would have expired anyway.
type RedisRevocations struct {
	client *redis.Client
}

func NewRedisRevocations(c *redis.Client) *RedisRevocations {
	return &RedisRevocations{client: c}
}

func (r *RedisRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, "revoked:access:"+jti, "1", ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := r.client.Exists(ctx, "revoked:access:"+jti).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

type claimsToken map[string]interface{}

func (t claimsToken) Claims(v interface{}) error {
	b, err := json.Marshal(map[string]interface{}(t))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Verifier checks tokens minted by GenerateAccessToken. It implements
// middleware.Verifier.
type Verifier struct {
	secret  []byte
	issuer  string
	revoked Revocations
}

// NewVerifier builds a verifier; revoked may be nil.
func NewVerifier(cfg *config.Config, revoked Revocations) *Verifier {
	return &Verifier{secret: []byte(cfg.JWT.Secret), issuer: cfg.JWT.Issuer, revoked: revoked}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if exp, err := claims.GetExpirationTime(); err != nil || exp == nil {
		return nil, errors.New("token has no expiry")
	}
	if v.revoked != nil {
		jti, _ := claims["jti"].(string)
		revoked, err := v.revoked.IsRevoked(ctx, jti)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, errors.New("token has been revoked")
		}
	}
	return claimsToken(claims), nil
}

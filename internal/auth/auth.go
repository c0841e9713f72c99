package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthorized = errors.New("unauthorized")

// Authenticator resolves the caller of a request. A nil user ID with a nil
// error means the request carried no credentials.
type Authenticator interface {
	UserID(r *http.Request) (*int64, error)
}

type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// JWT authenticates HS256 bearer tokens carrying a user_id claim. Tokens
// are minted by the identity provider that shares the secret.
type JWT struct {
	secret []byte
}

func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret)}
}

// Issue signs a token for userID that expires after ttl. The server never
// calls it; it exists for tests and for operators minting tokens by hand.
func (j *JWT) Issue(userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

func (j *JWT) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return j.secret, nil
		},
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (j *JWT) UserID(r *http.Request) (*int64, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, fmt.Errorf("%w: expected bearer token", ErrUnauthorized)
	}
	claims, err := j.Validate(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return &claims.UserID, nil
}

// Header trusts an X-User-ID header. Only for local development.
type Header struct{}

func (Header) UserID(r *http.Request) (*int64, error) {
	v := r.Header.Get("X-User-ID")
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: bad X-User-ID %q", ErrUnauthorized, v)
	}
	return &id, nil
}

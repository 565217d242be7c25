package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer signs credentials that a Verifier with the same secret and issuer accepts
type Issuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer producing tokens valid for ttl
func NewIssuer(secret, issuer string, ttl time.Duration, opts ...Option) *Issuer {
	o := buildOptions(opts)
	return &Issuer{
		key:    []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    o.now,
	}
}

// Issue signs a credential for the given user and returns it with its expiry
func (i *Issuer) Issue(userID, email, role string) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

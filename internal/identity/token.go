package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session is an authenticated identity. Token is what the client sends back
// in the authorization metadata.
type Session struct {
	Token            string    `json:"token"`
	ID               string    `json:"-"`
	UserID           string    `json:"user_id"`
	Email            string    `json:"email"`
	AccountCreatedAt time.Time `json:"account_created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

type sessionClaims struct {
	jwt.RegisteredClaims

	Email          string `json:"email"`
	AccountCreated int64  `json:"acc"`
}

type tokenSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func (s tokenSigner) issue(userID, email string, accountCreated time.Time) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:               uuid.NewString(),
		UserID:           userID,
		Email:            email,
		AccountCreatedAt: accountCreated.UTC(),
		ExpiresAt:        now.Add(s.ttl).Truncate(time.Second),
	}

	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
		Email:          email,
		AccountCreated: accountCreated.UnixMilli(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	sess.Token = token
	return sess, nil
}

func (s tokenSigner) parse(token string) (*Session, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.Join(ErrUnauthenticated, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrUnauthenticated
	}

	return &Session{
		Token:            token,
		ID:               claims.ID,
		UserID:           claims.Subject,
		Email:            claims.Email,
		AccountCreatedAt: time.UnixMilli(claims.AccountCreated).UTC(),
		ExpiresAt:        claims.ExpiresAt.Time.UTC(),
	}, nil
}

package statetoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pkazanov/diskbot/internal/apperrors"
)

const defaultSigningMethod = "HS256"

// StateClaims bind the user identity to the pending insert token.
// The whole payload travels through the provider redirect and must be
// verified before any field is trusted
type StateClaims struct {
	jwt.RegisteredClaims
	UserID      uuid.UUID `json:"uid"`
	InsertToken string    `json:"itn"`
}

type Config struct {
	// Secret key to sign the state payload
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string
}

// Codec produces and verifies the tamper-evident state parameter
type Codec struct {
	key string
	alg jwt.SigningMethod
}

func New(cfg Config) (*Codec, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}

	return &Codec{
		key: cfg.SecretKey,
		alg: jwt.GetSigningMethod(cfg.Alg),
	}, nil
}

// Encode signs {user_id, insert_token} into a compact state string
func (c *Codec) Encode(userID uuid.UUID, insertToken string) (string, error) {
	token := jwt.NewWithClaims(
		c.alg,
		StateClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:       uuid.NewString(),
				IssuedAt: jwt.NewNumericDate(time.Now().UTC()),
			},
			UserID:      userID,
			InsertToken: insertToken,
		},
	)

	state, err := token.SignedString([]byte(c.key))
	if err != nil {
		return "", fmt.Errorf("error while signing state. Err: %w", err)
	}

	return state, nil
}

// Decode verifies the signature and returns the embedded identity.
// Every failure mode collapses into apperrors.ErrInvalidState: a forged
// callback gets no detail about what exactly was wrong
func (c *Codec) Decode(state string) (StateClaims, error) {
	claims := &StateClaims{}

	_, err := jwt.ParseWithClaims(
		state,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(c.key), nil },
		jwt.WithValidMethods([]string{c.alg.Alg()}),
	)
	if err != nil {
		return StateClaims{}, fmt.Errorf("%v: %w", err, apperrors.ErrInvalidState)
	}

	if claims.UserID == uuid.Nil || claims.InsertToken == "" {
		return StateClaims{}, fmt.Errorf("state payload incomplete: %w", apperrors.ErrInvalidState)
	}

	return *claims, nil
}

package apperrors

import (
	"errors"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrChatNotFound      = errors.New("chat not found")

	ErrTokenRecordNotFound = errors.New("token record not found")
	ErrTokenRecordExists   = errors.New("token record already exists")

	// Expected control-flow signals from the token record accessors
	ErrTokenAbsent  = errors.New("token is absent")
	ErrTokenExpired = errors.New("token is expired")

	// Security-relevant rejections of the oauth callback
	ErrInvalidState = errors.New("state signature invalid or payload malformed")
	ErrUnknownUser  = errors.New("state refers to unknown user")
	ErrStaleState   = errors.New("state is stale or replayed")

	// Provider token endpoint reported an error or was unreachable
	ErrProviderExchange = errors.New("provider token exchange failed")

	// Cipher key or ciphertext problems
	ErrCrypto = errors.New("crypto error")
)

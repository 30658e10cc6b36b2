package services

import (
	"errors"

	"github.com/gematria-field/api/internal/cipher"
)

var (
	// ErrEmptyInput reports text with no letters to evaluate.
	ErrEmptyInput = errors.New("services: input has no letters")
	// ErrTooManyCiphers reports an active set larger than the configured maximum.
	ErrTooManyCiphers = errors.New("services: too many active ciphers")
	// ErrUnknownCipher reports a cipher name missing from the registry.
	ErrUnknownCipher = cipher.ErrUnknownCipher
	// ErrStoreUnavailable reports that no phrase store is configured.
	ErrStoreUnavailable = errors.New("services: phrase store unavailable")
	// ErrInvalidNumber reports a numeric query outside the int64 range.
	ErrInvalidNumber = errors.New("services: invalid number")
	// ErrInvalidAggregate reports an unfold aggregate selection of the wrong size.
	ErrInvalidAggregate = errors.New("services: invalid aggregate cipher selection")
	// ErrPhraseTooLong reports a phrase over the storable length.
	ErrPhraseTooLong = errors.New("services: phrase too long")
)

// Package password hashes and verifies user passwords with salted, slow
// one-way functions. Stored hashes are self-describing, so Verify accepts
// bcrypt and argon2id hashes regardless of which algorithm new hashes use.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used when no valid cost is configured.
const DefaultBcryptCost = 10

// argon2id parameters
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

const argon2Prefix = "$argon2id$"

// MaxBcryptBytes is the longest password bcrypt hashes without truncation.
const MaxBcryptBytes = 72

var (
	// ErrUnknownAlgorithm is returned for a hash whose format is not recognized.
	ErrUnknownAlgorithm = errors.New("unknown password hash format")
	// ErrTooLong is returned by Hash for a password the algorithm cannot take whole.
	ErrTooLong = errors.New("password too long")
)

// Hasher hashes new passwords and compares candidates against stored hashes.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// BcryptHasher produces bcrypt hashes.
type BcryptHasher struct {
	cost int
}

// NewBcrypt returns a bcrypt hasher. Costs outside bcrypt's range fall back to DefaultBcryptCost.
func NewBcrypt(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns a bcrypt hash with a fresh random salt. Passwords over
// MaxBcryptBytes fail with ErrTooLong.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > MaxBcryptBytes {
		return "", ErrTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hashed), nil
}

// Compare reports whether password matches hash.
func (h *BcryptHasher) Compare(hash, password string) bool {
	return Verify(hash, password)
}

// Argon2Hasher produces argon2id hashes in the PHC string format.
type Argon2Hasher struct{}

// NewArgon2 returns an argon2id hasher.
func NewArgon2() *Argon2Hasher {
	return &Argon2Hasher{}
}

// Hash returns $argon2id$v=19$m=65536,t=3,p=4$salt$hash.
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Compare reports whether password matches hash.
func (h *Argon2Hasher) Compare(hash, password string) bool {
	return Verify(hash, password)
}

// New returns the hasher for algo ("bcrypt" or "argon2id").
func New(algo string, bcryptCost int) (Hasher, error) {
	switch algo {
	case "bcrypt", "":
		return NewBcrypt(bcryptCost), nil
	case "argon2id":
		return NewArgon2(), nil
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", algo)
	}
}

// Verify compares password against a bcrypt or argon2id hash.
func Verify(hash, password string) bool {
	if strings.HasPrefix(hash, argon2Prefix) {
		ok, err := verifyArgon2(hash, password)
		return err == nil && ok
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func verifyArgon2(encoded, password string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false, ErrUnknownAlgorithm
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, ErrUnknownAlgorithm
	}
	if version != argon2.Version {
		return false, ErrUnknownAlgorithm
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, ErrUnknownAlgorithm
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrUnknownAlgorithm
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, ErrUnknownAlgorithm
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

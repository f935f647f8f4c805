// Package secrets holds the credential hashing and reset-code primitives.
// Everything here is pure over crypto/rand; no storage.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "tenderdesk/pkg/domain-errors"
)

// ResetCodeDigits is the length of generated password reset codes.
const ResetCodeDigits = 6

// HashPassword creates a bcrypt hash of the provided password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "password is too long")
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword checks a plaintext password against a bcrypt hash.
// Returns false for any mismatch; errors are reserved for malformed hashes.
func VerifyPassword(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("could not verify password: %w", err)
}

// dummyHash is a valid bcrypt hash of an unguessable value. Login compares
// against it when the email is unknown so the unknown-identity path costs
// the same as a real comparison.
var dummyHash = func() string {
	h, err := bcrypt.GenerateFromPassword(randomBytes(24), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("secrets: dummy hash generation failed: %v", err))
	}
	return string(h)
}()

// BurnPasswordCheck performs a bcrypt comparison that always fails, taking
// approximately the same time as a genuine verification.
func BurnPasswordCheck(password string) {
	_, _ = VerifyPassword(password, dummyHash)
}

// GenerateResetCode returns a random numeric code of ResetCodeDigits digits,
// zero-padded.
func GenerateResetCode() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("could not generate reset code: %w", err)
	}
	n := binary.BigEndian.Uint64(buf[:]) % 1_000_000
	return fmt.Sprintf("%06d", n), nil
}

// HashCode returns the hex SHA-256 digest of a reset code. Codes are short
// lived and low entropy, so the digest only guards against casual exposure
// of the challenge store, not offline brute force.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// CodeMatches compares a candidate code against a stored digest in
// constant time.
func CodeMatches(code, storedDigest string) bool {
	candidate := HashCode(code)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedDigest)) == 1
}

func randomBytes(n int) []byte {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("secrets: random source unavailable: %v", err))
	}
	return buf
}

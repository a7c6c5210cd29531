package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	hashKeyLen = 32
	saltLen    = 16
)

// PasswordHasher produces and verifies argon2id password hashes. The work
// factor comes from configuration and is encoded into each hash record, so
// records remain verifiable after the parameters change.
//
// Hashing is the one CPU-heavy operation in the service; a semaphore bounds
// how many hashes run at once so a burst of signups cannot starve every other
// request of CPU.
type PasswordHasher struct {
	time    uint32
	memory  uint32 // KiB
	threads uint8
	sem     chan struct{}
}

func NewPasswordHasher(time, memory uint32, threads uint8) *PasswordHasher {
	return &PasswordHasher{
		time:    time,
		memory:  memory,
		threads: threads,
		sem:     make(chan struct{}, runtime.GOMAXPROCS(0)),
	}
}

func (h *PasswordHasher) acquire(ctx context.Context) error {
	select {
	case h.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *PasswordHasher) release() {
	<-h.sem
}

// Hash creates an argon2id hash of the password with a fresh random salt.
// Two calls with the same password yield different records.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.release()

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, hashKeyLen)

	// Encoded as: $argon2id$v=19$m=65536,t=3,p=4$salt$hash
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory,
		h.time,
		h.threads,
		encodedSalt,
		encodedHash,
	), nil
}

// Verify reports whether the password matches the stored record. Malformed
// records verify false rather than erroring; callers treat both identically.
func (h *PasswordHasher) Verify(ctx context.Context, encodedHash, password string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	// argon2.IDKey panics on degenerate parameters (zero rounds or threads,
	// memory under 8 KiB per thread) and on a zero key length. A record that
	// parses but carries such values is corrupt; it must not verify.
	if len(salt) == 0 || len(decodedHash) == 0 {
		return false
	}
	if time < 1 || threads < 1 || memory < 8*uint32(threads) {
		return false
	}

	if err := h.acquire(ctx); err != nil {
		return false
	}
	defer h.release()

	// Recompute with the parameters stored in the record, not the current
	// configuration.
	inputHash := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(decodedHash)))

	return subtle.ConstantTimeCompare(decodedHash, inputHash) == 1
}

package security

import (
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/homestock-backend/pkg/config"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// ErrInvalidHash signals a stored hash in no format we know how to verify.
var ErrInvalidHash = errors.New("invalid password hash")

// HashPassword hashes password with the configured algorithm. New hashes use
// bcrypt unless the config selects argon2id.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Algorithm)) {
	case "", AlgorithmBcrypt:
		return hashBcrypt(password, cfg.BcryptCost)
	case AlgorithmArgon2id:
		return hashArgon2id(password, argonParamsFromConfig(cfg))
	default:
		return "", fmt.Errorf("unsupported password algorithm %q", cfg.Algorithm)
	}
}

// VerifyPassword reports whether password matches encoded. The algorithm is
// taken from the hash itself, so hashes written under an older setting keep
// verifying after the config changes. Comparison is constant-time.
func VerifyPassword(password, encoded string) (bool, error) {
	switch {
	case isBcryptHash(encoded):
		return verifyBcrypt(password, encoded)
	case strings.HasPrefix(encoded, "$argon2id$"):
		return verifyArgon2id(password, encoded)
	default:
		return false, ErrInvalidHash
	}
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

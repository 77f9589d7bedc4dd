package secrets

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// DefaultSecretLength is the length of a generated secret.
const DefaultSecretLength = 32

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generator produces a new secret of the given length.
type Generator func(length int) (string, error)

// GenerateSecret returns a random alphanumeric string of the given length
// drawn from crypto/rand.
func GenerateSecret(length int) (string, error) {
	return generateFrom(rand.Reader, length)
}

func generateFrom(r io.Reader, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("secret length must be positive, got %d", length)
	}

	limit := big.NewInt(int64(len(alphanumeric)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(r, limit)
		if err != nil {
			return "", fmt.Errorf("failed to read randomness: %w", err)
		}
		out[i] = alphanumeric[n.Int64()]
	}
	return string(out), nil
}

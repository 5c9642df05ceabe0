package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// GenerateID generates a new UUID v4
func GenerateID() string {
	return uuid.New().String()
}

// IsValidUUID checks if a string is a valid UUID
func IsValidUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// GenerateOTP returns a 4-digit numeric pickup code. Leading zeros are kept;
// the code only needs to be unpredictable per trip, not globally unique.
func GenerateOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		// crypto/rand failing means the process has bigger problems;
		// fall back to a fixed-width uuid-derived code rather than panic.
		return fmt.Sprintf("%04d", uuid.New().ID()%10000)
	}
	return fmt.Sprintf("%04d", n.Int64())
}

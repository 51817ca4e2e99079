package usecase

import (
	"crypto/rand"
	"io"
	"math/big"
	"strings"

	"github.com/oklog/ulid/v2"
)

// generateCheckInToken creates a unique bearer token for a registration.
// ULID prefix keeps tokens sortable and collision-free; the random suffix
// uses a character set that avoids ambiguous characters like O/0, I/1, l.
func generateCheckInToken() (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const suffixLength = 8

	buffer := make([]byte, suffixLength)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}
	for i := 0; i < suffixLength; i++ {
		buffer[i] = chars[int(buffer[i])%len(chars)]
	}
	return strings.ToLower(ulid.Make().String()) + "-" + strings.ToLower(string(buffer)), nil
}

// generateNumericCode returns n secure random digits for email verification.
func generateNumericCode(n int) (string, error) {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}

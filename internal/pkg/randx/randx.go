/*
Package randx generates the random identifiers used across the application.

It mints fixed-length room codes from a cryptographically secure source and
UUID identifiers for lazily created room members.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// RoomCodeChars is the character set room codes are drawn from
	// (uppercase letters and digits, 36 symbols).
	RoomCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// RoomCodeLength is the fixed length of a generated room code.
	RoomCodeLength = 6
)

// RoomCode generates a room code of RoomCodeLength characters drawn uniformly
// from RoomCodeChars using crypto/rand.
//
// Collisions are possible and not checked against existing rooms here; the
// expected cardinality of concurrent rooms is low, and the store's create
// path reports a conflict if the code is already taken.
func RoomCode() (string, error) {
	charCount := big.NewInt(int64(len(RoomCodeChars)))
	result := make([]byte, RoomCodeLength)

	for i := range RoomCodeLength {
		num, err := rand.Int(rand.Reader, charCount)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for room code: %v", err)
		}

		result[i] = RoomCodeChars[num.Int64()]
	}

	return string(result), nil
}

// IsValidRoomCode reports whether the given string has the shape of a room
// code: exactly RoomCodeLength characters, all from RoomCodeChars.
func IsValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}

	for _, char := range code {
		if !strings.ContainsRune(RoomCodeChars, char) {
			return false
		}
	}

	return true
}

// UserID generates a UUID v4 string identifying a room member.
func UserID() string {
	return uuid.New().String()
}

package booking

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

const referenceLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var referencePattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{6}$`)

// NewReference returns three uppercase letters followed by six digits.
func NewReference() (string, error) {
	buf := make([]byte, 9)
	for i := range buf {
		alphabet := "0123456789"
		if i < 3 {
			alphabet = referenceLetters
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

func IsValidReference(s string) bool {
	return referencePattern.MatchString(s)
}

package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

const (
	digitChars = "0123456789"

	CodeLength = 6
)

// GenerateCode returns a uniformly random CodeLength-digit verification code.
func GenerateCode() (string, error) {
	result := make([]byte, CodeLength)
	for i := range result {
		ch, err := randChar(digitChars)
		if err != nil {
			return "", err
		}
		result[i] = ch
	}
	return string(result), nil
}

// HashCode returns the hex HMAC-SHA256 of code keyed with secret.
func HashCode(code, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// CodeMatches compares code against a stored hash in constant time.
func CodeMatches(code, secret, storedHash string) bool {
	return hmac.Equal([]byte(HashCode(code, secret)), []byte(storedHash))
}

// randChar picks a random character from charset using crypto/rand.
func randChar(charset string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
	if err != nil {
		return 0, err
	}
	return charset[n.Int64()], nil
}

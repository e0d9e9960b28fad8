package random

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// GetUUID returns a hyphen-free random UUID.
func GetUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

const lowerAlnum = "0123456789abcdefghijklmnopqrstuvwxyz"

// GetRandomString returns length characters drawn from [0-9a-z] using crypto/rand.
func GetRandomString(length int) string {
	key := make([]byte, length)
	for i := range length {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(lowerAlnum))))
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			panic(err)
		}
		key[i] = lowerAlnum[n.Int64()]
	}
	return string(key)
}

package store

import (
	"fmt"

	"github.com/zeebo/blake3"
)

// Digest returns the hex encoded blake3-256 of data
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

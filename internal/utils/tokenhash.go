package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashRefreshRaw returns the hex SHA-256 of a raw refresh token. The ledger
// stores only this digest so a leaked table cannot be replayed.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

package dataset

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the hex digest used as the dataset content key.
func SHA256Hex(b []byte) string {
	x := sha256.Sum256(b)
	return hex.EncodeToString(x[:])
}

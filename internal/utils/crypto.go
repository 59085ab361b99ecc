// internal/utils/crypto.go
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
)

// HashBytes returns the hex SHA-256 digest used for evidence integrity.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashReader streams r through SHA-256 and returns the hex digest and the
// number of bytes read.
func HashReader(r io.Reader) (string, int64, error) {
	hasher := sha256.New()
	n, err := io.Copy(hasher, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}

// ValidateFileHash reports whether fileData matches a client supplied hex
// digest. Case and surrounding space are ignored.
func ValidateFileHash(fileData []byte, expectedHash string) bool {
	return strings.EqualFold(HashBytes(fileData), strings.TrimSpace(expectedHash))
}

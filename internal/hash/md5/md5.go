// Package md5 derives stable hex ids from content.
//
// App and image ids are md5(url) so re-indexing a URL overwrites its
// previous screenshots and record instead of accumulating new ones.
package md5

import (
	"crypto/md5" //nolint:gosec // identifier derivation, not integrity
	"encoding/hex"
	"fmt"
)

// Hasher implements indexer.Hasher with MD5 hex digests.
type Hasher struct{}

// New creates a new Hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the hex MD5 digest of data.
func (Hasher) Hash(data []byte) (string, error) {
	if data == nil {
		return "", fmt.Errorf("nil data")
	}
	sum := md5.Sum(data) //nolint:gosec
	return hex.EncodeToString(sum[:]), nil
}

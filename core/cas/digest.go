// Package cas computes the content digests recorded for every exported
// artifact. SHA-256 is the primary identity; BLAKE3 is carried alongside it
// for fast verification.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/zeebo/blake3"
)

// digestPattern matches a lowercase 256-bit hex digest (64 characters).
var digestPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// HashResult contains both SHA-256 and BLAKE3 hashes for a blob.
type HashResult struct {
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

// Hash computes the SHA-256 hash of the given data.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Blake3Hash computes the BLAKE3 hash of the given data.
func Blake3Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Sum returns both digests of data.
func Sum(data []byte) HashResult {
	return HashResult{
		SHA256: Hash(data),
		BLAKE3: Blake3Hash(data),
	}
}

// SumReader streams r through both hashes and returns the digests and the
// number of bytes read.
func SumReader(r io.Reader) (HashResult, int64, error) {
	s := sha256.New()
	b := blake3.New()
	n, err := io.Copy(io.MultiWriter(s, b), r)
	if err != nil {
		return HashResult{}, n, err
	}
	return HashResult{
		SHA256: hex.EncodeToString(s.Sum(nil)),
		BLAKE3: hex.EncodeToString(b.Sum(nil)),
	}, n, nil
}

// SumFile returns the digests and size of the file at path.
func SumFile(path string) (HashResult, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return HashResult{}, 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return SumReader(f)
}

// IsValidHash reports whether hash is a lowercase 256-bit hex digest, the
// form both SHA-256 and BLAKE3 digests take in a manifest.
func IsValidHash(hash string) bool {
	return digestPattern.MatchString(hash)
}

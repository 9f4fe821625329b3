package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 characters, enough for display
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// FileFingerprint identifies one version of a file on disk
type FileFingerprint Hash

func (f FileFingerprint) String() string { return Hash(f).String() }

// ComputeFileFingerprint hashes path, size and modification time. It does not
// read the file contents.
func ComputeFileFingerprint(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	data := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	return FileFingerprint(NewHash([]byte(data))), nil
}

// ComputeQueryHash hashes a set of query parameters independent of key order
func ComputeQueryHash(params map[string][]string) Hash {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		values := append([]string(nil), params[key]...)
		sort.Strings(values)
		data.WriteString(key)
		data.WriteString("=")
		data.WriteString(strings.Join(values, ","))
		data.WriteString(";")
	}
	return NewHash([]byte(data.String()))
}

// Package fingerprint derives stable keys from habit documents and file contents.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/hyperjump/habitsim/internal/tfidf"
)

const prefix = "corpus:"

// Documents returns a key that is equal for equal (id, text) sequences, order included.
// Fields are NUL-separated so ("ab", "c") and ("a", "bc") differ.
func Documents(docs []tfidf.Document) string {
	h := sha256.New()
	for _, d := range docs {
		h.Write([]byte(d.ID))
		h.Write([]byte{0})
		h.Write([]byte(d.Text))
		h.Write([]byte{0})
	}
	return prefix + hex.EncodeToString(h.Sum(nil))
}

// Bytes returns the hex SHA-256 of content.
func Bytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

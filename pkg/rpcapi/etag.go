package rpcapi

import (
	"crypto/rand"
	"fmt"
)

const runIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newRunID returns a random 6-character alphanumeric string, chosen
// once per process start per the etag definition.
func newRunID() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 6)
	for i, b := range buf {
		out[i] = runIDAlphabet[int(b)%len(runIDAlphabet)]
	}
	return string(out), nil
}

// computeETag formats the etag for a given run and modifications count.
func computeETag(runID string, modifications int64) string {
	return fmt.Sprintf("%s-%d", runID, modifications)
}

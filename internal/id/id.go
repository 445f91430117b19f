// Package id generates the prefixed NanoIDs used for sync idempotency keys
// and seeded story ids.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate creates a prefixed unique id, e.g. "sync-V1StGXR8_Z5jdHi6B-myT".
// The prefix names the id's purpose so mixed-up ids surface in logs.
//
// Returns an error only when the system cannot supply secure randomness.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics when no entropy is available.
// Suitable for idempotency keys, where a dead entropy pool should crash
// the sync rather than silently reuse a key.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate id: %v", err))
	}
	return id
}

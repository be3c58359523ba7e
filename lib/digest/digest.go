// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest computes BLAKE3 content digests for release artifacts
// and installed binaries. Digests are recorded in the deployment
// history at deploy time; the health check recomputes the entry-point
// digest to detect out-of-band modification of a release that is
// supposed to be immutable.
package digest

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Size is the digest length in bytes.
const Size = 32

// File computes the BLAKE3 digest of the file at path, returned as a
// lowercase hex string. The file is streamed through the hasher so
// memory usage is constant regardless of artifact size, since deploys run
// on a 512 MB Raspberry Pi.
func File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Bytes computes the BLAKE3 digest of data as a lowercase hex string.
func Bytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Validate checks that s is a well-formed hex digest of the expected
// length.
func Validate(s string) error {
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != Size {
		return fmt.Errorf("digest is %d bytes, expected %d", len(decoded), Size)
	}
	return nil
}

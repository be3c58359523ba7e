// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package backup

import (
	"fmt"
	"io"
	"os"

	"filippo.io/age"
)

// encryptTo wraps destination in an age encryption layer addressed to
// all recipient public keys. The returned WriteCloser must be closed
// before the underlying destination to flush the final chunk.
func encryptTo(destination io.Writer, recipientKeys []string) (io.WriteCloser, error) {
	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("parsing age recipient %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	writer, err := age.Encrypt(destination, recipients...)
	if err != nil {
		return nil, fmt.Errorf("initializing age encryption: %w", err)
	}
	return writer, nil
}

// decryptFrom wraps source in an age decryption layer using the
// identities in identityFile.
func decryptFrom(source io.Reader, identityFile string) (io.Reader, error) {
	if identityFile == "" {
		return nil, fmt.Errorf("snapshot is encrypted but no identity file was provided")
	}

	file, err := os.Open(identityFile)
	if err != nil {
		return nil, fmt.Errorf("opening identity file %s: %w", identityFile, err)
	}
	defer file.Close()

	identities, err := age.ParseIdentities(file)
	if err != nil {
		return nil, fmt.Errorf("parsing identity file %s: %w", identityFile, err)
	}

	reader, err := age.Decrypt(source, identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting snapshot: %w", err)
	}
	return reader, nil
}

// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package release

import "errors"

// Each failure condition is a distinct sentinel so callers can map it
// to a specific exit code. None of these are retried automatically.
var (
	// ErrArtifactNotFound means the artifact path does not reference a
	// readable file.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrVersionAlreadyExists means a release with the requested
	// version label is already in the store. Deploy refuses to
	// overwrite; the existing release is left untouched.
	ErrVersionAlreadyExists = errors.New("version already exists")

	// ErrValidationFailed means the extracted release does not contain
	// the expected entry-point executable. The partial release
	// directory is left on disk for inspection.
	ErrValidationFailed = errors.New("release validation failed")

	// ErrVersionNotFound means Switch was asked for a version label
	// with no release directory in the store.
	ErrVersionNotFound = errors.New("version not found")

	// ErrNoPreviousRelease means Rollback was requested with no
	// previous pointer set, or with its target removed out-of-band.
	ErrNoPreviousRelease = errors.New("no previous release")
)

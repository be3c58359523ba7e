// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

// Package release implements versioned release deployment with atomic
// switching and single-step rollback for the gateway's backend service.
//
// Layout under the deployment prefix:
//
//	<prefix>/releases/<version>/   immutable extracted release payloads
//	<prefix>/current               symlink to the active release
//	<prefix>/previous              symlink to the prior active release
//
// The systemd unit executes the service through the current symlink, so
// activating a release is a single atomic symlink replacement. Both
// pointer updates go through a write-aside-then-rename sequence: a
// reader sampling the pointer mid-switch sees either the old or the new
// target, never a partial value.
//
// Previous is updated before current. A crash between the two steps can
// leave previous one generation stale, but never loses the ability to
// roll back, and never leaves a dangling or truncated pointer.
//
// Failure handling favors diagnosability over self-healing: a deploy
// that fails extraction or validation leaves the partial release
// directory on disk for inspection and never touches the pointers.
// Nothing is retried automatically and no existing release is ever
// deleted as a side effect of a failed deploy.
package release

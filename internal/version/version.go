/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version holds build information set at link time:
//
//	-X github.com/friendsincode/classboard/internal/version.Version=X.Y.Z
//	-X github.com/friendsincode/classboard/internal/version.Commit=abc1234
package version

var (
	// Version is the release version.
	Version = "0.1.0"
	// Commit is the git revision the binary was built from.
	Commit = "dev"
)

// String renders version and commit.
func String() string {
	return Version + " (" + Commit + ")"
}

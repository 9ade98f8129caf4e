//go:build tools

package tools

// This file tracks versions of CLI tool dependencies.
// It is not compiled into the binary.
//
// Migrations are applied programmatically (cmd/migrate), so the goose CLI
// is optional for local use: go install github.com/pressly/goose/v3/cmd/goose

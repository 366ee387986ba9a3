// Package repository holds the MySQL-backed credential store and refresh
// token ledger. The sentinel values below let the session layer tell
// "nothing matched" apart from infrastructure failures.
package repository

import "errors"

// ErrNotFound is returned when no row matches the lookup or update.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when creating a user whose email is taken.
// Handlers should translate this into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

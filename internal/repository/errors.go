// Package repository implements MySQL-backed persistence for users and
// one-time passcodes. Sentinel errors defined here let the service layer
// distinguish failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row. Services translate
// it into a 404-class domain error.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert violates the unique email
// constraint. Handlers translate it into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

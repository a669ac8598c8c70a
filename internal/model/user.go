package model

import (
	"database/sql"
	"time"
)

// Role names stored in users.role. The set is closed; anything else is
// rejected at registration time.
const (
	RoleAdmin   = "ADMIN"
	RoleOfficer = "OFFICER"
)

// ValidRole reports whether name is one of the known role names.
func ValidRole(name string) bool {
	return name == RoleAdmin || name == RoleOfficer
}

// User represents a row in the `users` table. PasswordHash is nullable:
// accounts created without a password must go through the OTP set-password
// flow before they can log in by password. Status is the active flag and
// IsDeleted the soft-delete marker; a disabled or soft-deleted user never
// passes authorization regardless of token validity.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address (stored lower-cased).
//  FirstName    – given name.
//  LastName     – family name.
//  PasswordHash – bcrypt hash, NULL until a password has been set.
//  Role         – role name (ADMIN or OFFICER).
//  Status       – whether the account is active.
//  IsDeleted    – soft-delete flag.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64         // users.id
	Email        string         // users.email
	FirstName    string         // users.first_name
	LastName     string         // users.last_name
	PasswordHash sql.NullString // users.password_hash (NULL until first set)
	Role         string         // users.role
	Status       bool           // users.status
	IsDeleted    bool           // users.is_deleted
	CreatedAt    time.Time      // users.created_at
	UpdatedAt    time.Time      // users.updated_at
}

// HasPassword reports whether a password has ever been set for the account.
func (u *User) HasPassword() bool { return u.PasswordHash.Valid && u.PasswordHash.String != "" }

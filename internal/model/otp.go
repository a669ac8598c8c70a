package model

import "time"

// OTP models a row in the `otps` table: an ephemeral proof that the caller
// controls an email address. Rows are keyed by email rather than user id so
// codes can be issued before an account has finished onboarding. Multiple
// rows per email may exist transiently; callers delete existing rows before
// issuing a new code so that lookup by email stays unambiguous.
//
// Fields:
//  ID        – primary key identifier.
//  Email     – address the code was issued for.
//  Code      – the 6-digit numeric code.
//  CreatedAt – when the code was issued.
//  ExpiresAt – when the code stops being acceptable. Checked lazily at
//              validation time; rows are not swept by a background job.
type OTP struct {
	ID        uint64    // otps.id
	Email     string    // otps.email
	Code      string    // otps.otp
	CreatedAt time.Time // otps.created_at
	ExpiresAt time.Time // otps.expires_at
}

// Expired reports whether the code is past its expiry at the given instant.
func (o *OTP) Expired(now time.Time) bool { return now.After(o.ExpiresAt) }

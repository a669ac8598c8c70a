// Package queue defines message payloads exchanged over the message broker.
package queue

// OTPIssuedEvent is published whenever a one-time passcode is issued. The
// mailer consumes it to deliver the code out of band; the API never blocks
// on delivery.
type OTPIssuedEvent struct {
	Email     string `json:"email"`
	Code      string `json:"otp"`
	ExpiresAt string `json:"expires_at"`
	IssuedAt  string `json:"issued_at"`
}

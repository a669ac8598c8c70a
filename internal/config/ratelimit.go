package config

import (
	"os"
	"time"
)

// RateLimitPolicy describes one fixed-window counter: how many requests a
// single key may make inside the window, and the message returned when the
// ceiling is hit. Name doubles as the counter-key prefix so different
// policies never share a window.
type RateLimitPolicy struct {
	Name    string        // counter-key prefix, e.g. "auth"
	Window  time.Duration // window length
	Max     int64         // allowed requests per key per window
	Message string        // client-facing rejection message
}

// RateLimitPolicies bundles the policies applied across the API. Values
// follow the abuse model of the platform: authentication and recovery
// endpoints are throttled hard, everything else sits under a generous
// global ceiling.
type RateLimitPolicies struct {
	Enabled      bool
	Auth         RateLimitPolicy // login, check-user: brute-force protection
	PasswordRst  RateLimitPolicy // forgot/validate/reset/resend OTP flows
	Registration RateLimitPolicy // account creation, keyed by IP only
	FileUpload   RateLimitPolicy // reserved for the survey upload surface; no route mounts it yet
	Global       RateLimitPolicy // baseline ceiling for the whole API
	Strict       RateLimitPolicy // sensitive operations (set-password, status changes)
}

// LoadRateLimitPolicies returns the policy table. RATE_LIMIT_ENABLED=false
// turns limiting off entirely, which is only intended for local development.
func LoadRateLimitPolicies() RateLimitPolicies {
	enabled := true
	switch os.Getenv("RATE_LIMIT_ENABLED") {
	case "0", "false", "FALSE", "False", "no", "off":
		enabled = false
	}
	return RateLimitPolicies{
		Enabled: enabled,
		Auth: RateLimitPolicy{
			Name:    "auth",
			Window:  15 * time.Minute,
			Max:     5,
			Message: "Too many login attempts. Please try again after 15 minutes.",
		},
		PasswordRst: RateLimitPolicy{
			Name:    "password-reset",
			Window:  time.Hour,
			Max:     3,
			Message: "Too many password reset requests. Please try again in 1 hour.",
		},
		Registration: RateLimitPolicy{
			Name:    "register",
			Window:  time.Hour,
			Max:     3,
			Message: "Registration limit exceeded. Please try again later.",
		},
		FileUpload: RateLimitPolicy{
			Name:    "file-upload",
			Window:  time.Hour,
			Max:     50,
			Message: "File upload limit exceeded. Please try again in 1 hour.",
		},
		Global: RateLimitPolicy{
			Name:    "global",
			Window:  15 * time.Minute,
			Max:     100,
			Message: "Too many requests. Please try again in 15 minutes.",
		},
		Strict: RateLimitPolicy{
			Name:    "strict",
			Window:  time.Hour,
			Max:     5,
			Message: "Too many attempts. Please try again in 1 hour.",
		},
	}
}

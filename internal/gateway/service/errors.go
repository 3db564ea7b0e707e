package service

import (
	"errors"
	"fmt"
)

var (
	// ErrChallengeNotFound means the temp id is unknown or the challenge
	// expired; the caller must start the login over.
	ErrChallengeNotFound = errors.New("login challenge expired, log in again")

	// ErrSessionNotFound means the session id is unknown.
	ErrSessionNotFound = errors.New("session not found")
)

// LoginFailedError carries the portal's own rejection message for a
// credentials attempt. Terminal for that attempt.
type LoginFailedError struct {
	Message string
}

func (e *LoginFailedError) Error() string {
	if e.Message == "" {
		return "login failed"
	}
	return e.Message
}

// InvalidCodeError reports a wrong SMS code. The challenge stays alive,
// so the caller may retry until it expires.
type InvalidCodeError struct {
	Message string
}

func (e *InvalidCodeError) Error() string {
	if e.Message == "" {
		return "invalid code"
	}
	return e.Message
}

// RefreshFailedError reports that a silent refresh could not complete,
// most commonly because the portal demanded a second factor, which needs
// a live user. Non-fatal: the stale session stays in place.
type RefreshFailedError struct {
	Reason string
	Err    error
}

func (e *RefreshFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("refresh failed: %s: %v", e.Reason, e.Err)
	}
	return "refresh failed: " + e.Reason
}

func (e *RefreshFailedError) Unwrap() error { return e.Err }

// Package errors provides structured error handling for Cryptodial.
// It defines sentinel errors for the wallet, chain, and session layers,
// plus helpers for adding context and details to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// DialError is the structured error type for Cryptodial.
type DialError struct {
	Code    string            // Machine-readable error code
	Message string            // Human-readable message
	Details map[string]string // Additional context
	Cause   error             // Underlying error
}

func (e *DialError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *DialError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for DialError.
func (e *DialError) Is(target error) bool {
	var t *DialError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	// ErrValidation indicates malformed user input (wallet id, PIN, amount).
	// Handled at the flow step by re-prompting.
	ErrValidation = &DialError{
		Code:    "VALIDATION",
		Message: "invalid input",
	}

	// ErrSessionExpired indicates the phone session is missing or past expiry.
	// Terminal for the current flow.
	ErrSessionExpired = &DialError{
		Code:    "SESSION_EXPIRED",
		Message: "session expired",
	}

	// ErrInvalidCredentials indicates a wallet id / PIN pair that did not
	// verify. Never says which half failed.
	ErrInvalidCredentials = &DialError{
		Code:    "INVALID_CREDENTIALS",
		Message: "invalid credentials",
	}

	// Vault errors.
	ErrDecryption = &DialError{
		Code:    "DECRYPTION_FAILED",
		Message: "decryption failed",
	}

	// Chain errors.
	ErrChainSubmission = &DialError{
		Code:    "CHAIN_SUBMISSION",
		Message: "transaction submission failed",
	}

	ErrAddressInvalid = &DialError{
		Code:    "ADDRESS_INVALID",
		Message: "invalid address format",
	}

	ErrNotFound = &DialError{
		Code:    "NOT_FOUND",
		Message: "resource not found",
	}

	ErrInvalidAmount = &DialError{
		Code:    "INVALID_AMOUNT",
		Message: "amount must be a positive finite number",
	}

	ErrInvalidSeed = &DialError{
		Code:    "INVALID_SEED",
		Message: "invalid seed phrase",
	}

	ErrUnsupportedOperation = &DialError{
		Code:    "UNSUPPORTED_OPERATION",
		Message: "operation not supported for this chain",
	}

	ErrUnsupportedChain = &DialError{
		Code:    "UNSUPPORTED_CHAIN",
		Message: "unsupported chain",
	}

	// Persistence errors.
	ErrPersistence = &DialError{
		Code:    "PERSISTENCE",
		Message: "storage operation failed",
	}

	ErrWalletNotFound = &DialError{
		Code:    "WALLET_NOT_FOUND",
		Message: "wallet not found",
	}

	ErrIDGenerationExhausted = &DialError{
		Code:    "ID_GENERATION_EXHAUSTED",
		Message: "could not generate a unique wallet id",
	}

	// ErrNotification indicates an SMS dispatch failure. Best-effort at most
	// call sites; required on the wallet-creation disclosure path.
	ErrNotification = &DialError{
		Code:    "NOTIFICATION",
		Message: "notification dispatch failed",
	}
)

// New creates a new DialError with the given code and message.
func New(code, message string) *DialError {
	return &DialError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context. The wrapped error keeps the
// code of the innermost DialError so errors.Is checks still match sentinels.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var de *DialError
	if errors.As(err, &de) {
		return &DialError{
			Code:    de.Code,
			Message: fmt.Sprintf("%s: %s", msg, de.Message),
			Details: de.Details,
			Cause:   err,
		}
	}

	return &DialError{
		Code:    "GENERAL_ERROR",
		Message: msg,
		Cause:   err,
	}
}

// WrapWith wraps an underlying error under a sentinel's code so that
// errors.Is against the sentinel matches while the cause stays inspectable.
func WrapWith(err error, sentinel *DialError, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &DialError{
		Code:    sentinel.Code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var de *DialError
	if errors.As(err, &de) {
		return &DialError{
			Code:    de.Code,
			Message: de.Message,
			Details: details,
			Cause:   de.Cause,
		}
	}

	return &DialError{
		Code:    "GENERAL_ERROR",
		Message: err.Error(),
		Details: details,
		Cause:   err,
	}
}

// Code returns the error code for an error.
func Code(err error) string {
	var de *DialError
	if errors.As(err, &de) {
		return de.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}

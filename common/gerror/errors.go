package gerror

import (
	"errors"
)

const (
	ErrCodeInternal         Code = "Internal"
	ErrCodeValidationFailed Code = "ValidationFailed"
	ErrCodeNotFound         Code = "NotFound"
	ErrCodeAlreadyExists    Code = "AlreadyExists"
	ErrCodeDigestMismatch   Code = "DigestMismatch"
	ErrCodeMalformedCdx     Code = "MalformedCdx"
	ErrCodeRateLimited      Code = "RateLimited"
	ErrCodeTimeout          Code = "Timeout"
)

// ToError locates an Error in the provided error chain and returns it if it
// matches the provided code. Otherwise, returns nil.
func ToError(err error, code Code) *Error {
	if err == nil {
		return nil
	}
	var gErr Error
	if errors.As(err, &gErr) && gErr.Code() == code {
		return &gErr
	}
	return nil
}

func NewErrInternal() Error {
	return NewError("An internal error occurred", AudienceExternal, ErrCodeInternal, nil)
}

func ToInternal(err error) *Error {
	return ToError(err, ErrCodeInternal)
}

func IsInternal(err error) bool {
	return ToInternal(err) != nil
}

func NewErrValidationFailed(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeValidationFailed, nil)
}

func ToValidationFailed(err error) *Error {
	return ToError(err, ErrCodeValidationFailed)
}

func IsValidationFailed(err error) bool {
	return ToValidationFailed(err) != nil
}

func NewErrNotFound(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeNotFound, nil)
}

func ToNotFound(err error) *Error {
	return ToError(err, ErrCodeNotFound)
}

func IsNotFound(err error) bool {
	return ToNotFound(err) != nil
}

func NewErrAlreadyExists(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeAlreadyExists, nil)
}

func ToAlreadyExists(err error) *Error {
	return ToError(err, ErrCodeAlreadyExists)
}

func IsAlreadyExists(err error) bool {
	return ToAlreadyExists(err) != nil
}

// NewErrDigestMismatch reports content whose recomputed SHA-1 does not match
// the digest it was stored or requested under. Both digests are attached as
// external details.
func NewErrDigestMismatch(expected, found interface{}) Error {
	return NewError("Digest mismatch", AudienceExternal, ErrCodeDigestMismatch, nil).
		EDetail("expected", expected).
		EDetail("found", found)
}

func ToDigestMismatch(err error) *Error {
	return ToError(err, ErrCodeDigestMismatch)
}

func IsDigestMismatch(err error) bool {
	return ToDigestMismatch(err) != nil
}

func NewErrMalformedCdx(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeMalformedCdx, nil)
}

func ToMalformedCdx(err error) *Error {
	return ToError(err, ErrCodeMalformedCdx)
}

func IsMalformedCdx(err error) bool {
	return ToMalformedCdx(err) != nil
}

func NewErrRateLimited(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeRateLimited, nil)
}

func ToRateLimited(err error) *Error {
	return ToError(err, ErrCodeRateLimited)
}

func IsRateLimited(err error) bool {
	return ToRateLimited(err) != nil
}

func NewErrTimeout(description string) Error {
	return NewError("Timeout: "+description, AudienceInternal, ErrCodeTimeout, nil)
}

func ToTimeout(err error) *Error {
	return ToError(err, ErrCodeTimeout)
}

func IsTimeout(err error) bool {
	return ToTimeout(err) != nil
}

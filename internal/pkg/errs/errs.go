/*
Package errs provides the application's error type and error-code catalogue.

This file defines CustomError, which implements the standard error interface
and carries a numeric business code, a user-facing message, and the HTTP
status the error maps to.
*/
package errs

import (
	"fmt"
	"net/http"
	"strings"

	"famhub/internal/pkg/logx"
)

// CustomError is the error type used throughout the application.
type CustomError struct {
	// Code is the business error code (see the constants in codes.go).
	Code int

	// Message is the user-facing description.
	Message string

	// Status is the HTTP status code this error maps to.
	Status int
}

// Error implements the error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError constructs a *CustomError from a predefined code. Optional details
// are applied printf-style when the catalogue message has placeholders. An
// unknown code falls back to ErrUnknown and is logged.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("unknown error code %d requested", code),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &CustomError{
			Code:    unknownErr.Code,
			Message: unknownErr.Message,
			Status:  unknownErr.Status,
		}
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if code == ErrUnknown && len(details) > 0 {
		if originalErr, ok := details[0].(error); ok {
			logx.Error(originalErr, "Handling ErrUnknown with underlying error")
		}
	} else if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn("Details provided for error without formatting placeholders. Details ignored.")
		}
	}

	return &customErr
}

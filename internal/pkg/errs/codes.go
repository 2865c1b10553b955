/*
Package errs provides the application's error type and error-code catalogue.

This file declares the error-code constants and the catalogue mapping each
code to its user message and HTTP status.
*/
package errs

import "net/http"

// 1xxx: Request Handling and Validation Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates an unsupported Content-Type header.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates a malformed request body.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after the JSON document.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates the request rate exceeded the allowed limit.
	ErrRateLimitExceeded = 1005

	// ErrPasswordRequired indicates a missing room password in the request.
	ErrPasswordRequired = 1006

	// ErrUserNameRequired indicates a missing display name in the request.
	ErrUserNameRequired = 1007
)

// 2xxx: Room Business Logic Errors
const (
	// ErrRoomCodeInvalid indicates a room code with the wrong shape.
	ErrRoomCodeInvalid = 2001

	// ErrRoomCodeExists indicates the generated room code is already taken.
	ErrRoomCodeExists = 2002

	// ErrRoomNotFound indicates the room does not exist or could not be read.
	// A missing room and a failed remote read are deliberately reported the
	// same way; the session controller treats both as a forced re-login.
	ErrRoomNotFound = 2003
)

// 3xxx: Session Errors
const (
	// ErrNoActiveSession indicates an operation that requires a bound room
	// session was called while the session was unbound.
	ErrNoActiveSession = 3001

	// ErrNotAuthenticated indicates a protected page was requested without
	// usable stored credentials.
	ErrNotAuthenticated = 3002
)

// 4xxx: Remote Store Errors
const (
	// ErrRemoteUnavailable indicates the shared remote store is not
	// configured or not reachable.
	ErrRemoteUnavailable = 4001
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000

	// ErrBackupFailed indicates a room snapshot export did not complete.
	ErrBackupFailed = 5001

	// ErrBackupDisabled indicates backup storage is not configured.
	ErrBackupDisabled = 5002
)

// errorMap is the catalogue of every application error code. Entries without
// an explicit Status default to HTTP 200 with a non-zero business code, which
// keeps client-side handling uniform for expected business failures.
var errorMap = map[int]CustomError{
	// 1xxx: Request Handling and Validation Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrPasswordRequired:     {Code: ErrPasswordRequired, Message: "A room password is required."},
	ErrUserNameRequired:     {Code: ErrUserNameRequired, Message: "A display name is required."},

	// 2xxx: Room Business Logic Errors
	ErrRoomCodeInvalid: {Code: ErrRoomCodeInvalid, Message: "Invalid room code."},
	ErrRoomCodeExists:  {Code: ErrRoomCodeExists, Message: "Room code already exists."},
	ErrRoomNotFound:    {Code: ErrRoomNotFound, Message: "Room not found."},

	// 3xxx: Session Errors
	ErrNoActiveSession:  {Code: ErrNoActiveSession, Message: "No active room session."},
	ErrNotAuthenticated: {Code: ErrNotAuthenticated, Message: "Please join a room to continue.", Status: http.StatusUnauthorized},

	// 4xxx: Remote Store Errors
	ErrRemoteUnavailable: {Code: ErrRemoteUnavailable, Message: "The shared store is unavailable. Please try again later.", Status: http.StatusServiceUnavailable},

	// 5xxx: Internal System Errors
	ErrUnknown:        {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrBackupFailed:   {Code: ErrBackupFailed, Message: "Backup failed. Please try again.", Status: http.StatusInternalServerError},
	ErrBackupDisabled: {Code: ErrBackupDisabled, Message: "Backups are not configured."},
}

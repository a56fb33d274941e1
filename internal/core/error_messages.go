package core

// error_messages.go maps technical errors to user-facing messages with a
// support code. Clients get the code in every failed response body.
//
// Codes by category:
//
//	AUTH001  missing bearer token
//	AUTH002  invalid bearer token
//	FILE001  file too large
//	FILE002  file not found in storage
//	FILE003  encoding error
//	FILE004  no file in upload request
//	FILE005  empty file (no header line)
//	FILE006  invalid file path
//	DB000    persistence failure with no more specific match
//	DB001-7  database constraint and connection errors
//	UPL002   too many concurrent ingestions
//	UPL004   request cancelled
//	UPL005   request timed out
//	DS001    dataset not found
//	DS002    dataset name missing
//	DS003    file path missing
//	DS004    malformed request body
//	RATE001  rate limited
//	ERR000   anything else; check the logs for the technical error
//
// Lookup order: sentinel errors (errors.Is), then message patterns
// (case-insensitive substring, first match wins), then the ingestion kind,
// then ERR000.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/csvdatasets/internal/auth"
	"github.com/JonMunkholm/csvdatasets/internal/csv"
	"github.com/JonMunkholm/csvdatasets/internal/files"
	"github.com/JonMunkholm/csvdatasets/internal/storage"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

var sentinelMessages = []sentinelMessage{
	{auth.ErrMissingToken, UserMessage{"Authorization is required", "Send a bearer token in the Authorization header", "AUTH001"}},
	{auth.ErrInvalidToken, UserMessage{"Invalid authorization token", "Sign in again to get a fresh token", "AUTH002"}},
	{files.ErrTooLarge, UserMessage{"File exceeds the maximum upload size", "Split the file into smaller chunks", "FILE001"}},
	{files.ErrNotFound, UserMessage{"Failed to download file", "Upload the file again, then retry", "FILE002"}},
	{files.ErrInvalidPath, UserMessage{"Invalid file path", "Use the path returned by the upload endpoint", "FILE006"}},
	{csv.ErrEmptyInput, UserMessage{"The uploaded file is empty", "Upload a CSV file with a header line", "FILE005"}},
	{ErrTooManyIngestions, UserMessage{"System is busy processing other files", "Please wait a moment and try again", "UPL002"}},
	{storage.ErrDatasetNotFound, UserMessage{"Dataset not found", "Check the dataset id", "DS001"}},
	{ErrDatasetNameRequired, UserMessage{"Dataset name is required", "Give the dataset a name", "DS002"}},
	{ErrFilePathRequired, UserMessage{"File path is required", "Upload a file first and pass its path", "DS003"}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched against the lowercased error text. Specific
// patterns come before general ones.
var errorPatterns = []errorPattern{
	// Database constraints
	{"duplicate key", UserMessage{"A record with this ID already exists", "Please try again", "DB001"}},
	{"unique constraint", UserMessage{"This value must be unique but already exists", "Please try again", "DB002"}},
	{"violates foreign key", UserMessage{"Referenced dataset does not exist", "The dataset may have been deleted; ingest the file again", "DB003"}},
	{"foreign key constraint", UserMessage{"Referenced dataset does not exist", "The dataset may have been deleted; ingest the file again", "DB003"}},

	// Database connectivity
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},

	// Request lifecycle; before "timeout" so deadline errors keep their code
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or check your connection", "UPL005"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB006"}},

	// Files and request bodies
	{"encoding error", UserMessage{"File contains invalid characters", "Save the file as UTF-8", "FILE003"}},
	{"no file provided", UserMessage{"No file was provided", "Attach a CSV file in the \"file\" form field", "FILE004"}},
	{"invalid request body", UserMessage{"Request body is not valid JSON", "Send {\"datasetName\": ..., \"filePath\": ...}", "DS004"}},
	{"invalid dataset id", UserMessage{"Invalid dataset id", "Use the id returned when the dataset was created", "DS005"}},

	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var persistenceMessage = UserMessage{
	Message: "Failed to save dataset",
	Action:  "Please try again; rows saved before the failure are kept",
	Code:    "DB000",
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(fmt.Errorf("download: %w", files.ErrNotFound))
//	// msg.Code == "FILE002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if KindOf(err) == KindPersistence {
		return persistenceMessage
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error (for logs) with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err; it returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

// Package core provides the CSV bulk-import pipeline.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When admins hit an error during an import, they can quote the code to support
// staff for faster diagnosis.
//
// Error codes are grouped by category:
//
// # Import Errors (IMP001-IMP099)
//
// Errors raised by the import pipeline itself:
//
//	IMP001 - Decode failed: The file could not be decoded at all
//	         Action: Check that the file is a valid CSV export
//	         Patterns: "could not be decoded"
//
//	IMP002 - Unusable file: Decoding left no readable content
//	         Action: Re-export the file as "CSV UTF-8" and upload it again
//	         Patterns: "unusable file"
//
//	IMP003 - Invalid CSV: Malformed quoting or inconsistent columns
//	         Action: Ensure the file is comma-separated with consistent columns
//	         Patterns: "invalid csv"
//
//	IMP004 - No data rows: The file has a header but no data
//	         Action: Re-export the file as "CSV UTF-8" and upload it again
//	         Patterns: "no data rows"
//
//	IMP005 - Missing columns: Required columns are missing from the header
//	         Action: Download the template and compare the header row
//	         Patterns: "missing required column"
//
//	IMP006 - Submission rejected: The bulk endpoint refused the records
//	         Action: Fix the reported problem and submit again
//	         Patterns: "rejected"
//
// # Database Errors (DB001-DB099)
//
// Errors related to the bulk endpoint's storage:
//
//	DB001 - Duplicate key: A record with this key already exists
//	        Patterns: "duplicate key", "duplicate slug"
//
//	DB002 - Unique constraint: This value must be unique but already exists
//	        Patterns: "unique constraint", "violates unique"
//
//	DB004 - Connection refused: Unable to connect to database
//	        Patterns: "connection refused"
//
//	DB005 - Connection reset: Database connection was interrupted
//	        Patterns: "connection reset"
//
//	DB007 - Deadlock: Database was busy with conflicting operations
//	        Patterns: "deadlock"
//
// # Validation Errors (VAL001-VAL099)
//
// Row-scoped problems reported by the target row checks, plus malformed
// bulk request bodies:
//
//	VAL001 - Invalid request: Request body is not a valid record list
//	         Patterns: "invalid request body"
//
//	VAL002 - Invalid number: Invalid number format detected
//	         Patterns: "invalid number"
//
//	VAL003 - Required field: Required field is empty
//	         Patterns: "required field"
//
//	VAL006 - Invalid value: Value is not in the allowed list
//	         Patterns: "invalid category", "invalid boolean"
//
//	VAL007 - Invalid slug: Slug is not lowercase kebab-case
//	         Patterns: "invalid slug"
//
//	VAL008 - Invalid URL: Value is not an absolute http(s) URL
//	         Patterns: "invalid url"
//
//	VAL009 - Invalid query: A list filter could not be parsed
//	         Patterns: "invalid query parameter"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the upload size limit
//	          Patterns: "file too large"
//
//	FILE003 - Encoding error: File contains invalid characters
//	          Patterns: "encoding error"
//
//	FILE004 - No file: No file was selected
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The uploaded file is empty
//	          Patterns: "empty file"
//
//	FILE006 - Not a CSV: Only .csv files are accepted
//	          Patterns: "only .csv files"
//
// # Session Errors (UPL001-UPL099)
//
//	UPL001 - Not ready: The import has errors or is still running
//	         Patterns: "not ready to submit"
//
//	UPL002 - System busy: Too many imports in progress
//	         Patterns: "too many imports"
//
//	UPL003 - Session expired: Import session not found
//	         Patterns: "session not found"
//
//	UPL004 - Request cancelled: Request was cancelled
//	         Patterns: "context canceled", "superseded"
//
//	UPL005 - Request timeout: Request timed out
//	         Patterns: "context deadline exceeded", "timeout"
//
// # Target Errors (TGT001-TGT099)
//
//	TGT001 - Unknown target: No import target with that name
//	         Patterns: "unknown import target"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are listed
// before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message" yaml:"message"` // What happened (user-friendly)
	Action  string `json:"action" yaml:"action"`   // What to do about it
	Code    string `json:"code" yaml:"code"`       // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Patterns are matched using strings.Contains, so partial matches work.
// The first matching pattern wins, so order matters:
//   - More specific patterns should come before general ones
//   - Multiple patterns can map to the same error code
//
// To add a new error pattern:
//  1. Choose the appropriate category and code range
//  2. Add the pattern in the correct position (specific before general)
//  3. Update the package documentation at the top of this file
var errorPatterns = []errorPattern{
	// =========================================================================
	// Import Errors (IMP001-IMP006)
	// These errors come from the import pipeline before anything is submitted.
	// =========================================================================
	{
		pattern: "could not be decoded",
		msg: UserMessage{
			Message: "The file could not be decoded",
			Action:  "Check that the file is a valid CSV export",
			Code:    "IMP001",
		},
	},
	{
		pattern: "unusable file",
		msg: UserMessage{
			Message: "Decoding left no readable content",
			Action:  "Re-export the file as \"CSV UTF-8\" and upload it again",
			Code:    "IMP002",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with consistent columns",
			Code:    "IMP003",
		},
	},
	{
		pattern: "no data rows",
		msg: UserMessage{
			Message: "The file has no data rows",
			Action:  "Re-export the file as \"CSV UTF-8\" and upload it again",
			Code:    "IMP004",
		},
	},
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Required columns are missing from the file",
			Action:  "Download the template and compare the header row",
			Code:    "IMP005",
		},
	},
	{
		pattern: "rejected",
		msg: UserMessage{
			Message: "The import was rejected by the server",
			Action:  "Fix the reported problem and submit again",
			Code:    "IMP006",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB007)
	// These errors come back from the bulk endpoint's storage.
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Check for duplicate slugs in your CSV",
			Code:    "DB001",
		},
	},
	{
		pattern: "duplicate slug",
		msg: UserMessage{
			Message: "A record with this slug appears more than once",
			Action:  "Check for duplicate slugs in your CSV",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your CSV",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL009)
	// These errors occur when a row does not match the expected formats.
	// =========================================================================
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request body is not a valid record list",
			Action:  "Send a JSON array of records in the template's format",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "Invalid number format detected",
			Action:  "Use whole numbers without units or separators",
			Code:    "VAL002",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Ensure all required columns have values",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid category",
		msg: UserMessage{
			Message: "Value is not in the allowed list",
			Action:  "Check the allowed values for this field",
			Code:    "VAL006",
		},
	},
	{
		pattern: "invalid boolean",
		msg: UserMessage{
			Message: "Value is not in the allowed list",
			Action:  "Use yes/no, true/false or 1/0",
			Code:    "VAL006",
		},
	},
	{
		pattern: "invalid slug",
		msg: UserMessage{
			Message: "Slug must be lowercase letters, digits and hyphens",
			Action:  "Leave the slug empty to derive it from the name, or fix it",
			Code:    "VAL007",
		},
	},
	{
		pattern: "invalid url",
		msg: UserMessage{
			Message: "Value is not a valid web address",
			Action:  "Use a full http:// or https:// URL",
			Code:    "VAL008",
		},
	},
	{
		pattern: "invalid query parameter",
		msg: UserMessage{
			Message: "A filter value could not be read",
			Action:  "Use dates like 2026-01-31 and whole page numbers",
			Code:    "VAL009",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE006)
	// These errors occur when receiving uploaded files.
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save file as UTF-8 encoding",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with data rows",
			Code:    "FILE005",
		},
	},
	{
		pattern: "only .csv files",
		msg: UserMessage{
			Message: "Only .csv files can be imported",
			Action:  "Save the spreadsheet as CSV and try again",
			Code:    "FILE006",
		},
	},

	// =========================================================================
	// Session Errors (UPL001-UPL005)
	// These errors occur while driving an import session.
	// =========================================================================
	{
		pattern: "not ready to submit",
		msg: UserMessage{
			Message: "This import cannot be submitted yet",
			Action:  "Fix the listed errors and upload the file again",
			Code:    "UPL001",
		},
	},
	{
		pattern: "too many imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Import session not found",
			Action:  "The session may have expired. Please start a new import",
			Code:    "UPL003",
		},
	},
	{
		pattern: "superseded",
		msg: UserMessage{
			Message: "The import was replaced by a newer file",
			Action:  "Review the new file before submitting",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Target Errors (TGT001)
	// These errors occur when an import target is addressed by name.
	// =========================================================================
	{
		pattern: "unknown import target",
		msg: UserMessage{
			Message: "Unknown import target",
			Action:  "Choose one of cities, triplists or carousel",
			Code:    "TGT001",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// These errors occur when request limits are exceeded.
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// This is the fallback for unexpected errors. Support staff should check
// application logs for the original technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	err := errors.New("invalid csv: line 4 has a different number of columns than the header")
//	msg := MapError(err)
//	// msg.Code == "IMP003"
//	// msg.Message == "File is not a valid CSV"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
//
// Example output: "The file has no data rows (Code: IMP004). Re-export the file as \"CSV UTF-8\" and upload it again"
//
// This is the primary function for displaying errors to end users.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
// Use this to decide whether to show the raw error or the mapped user message.
//
// Example:
//
//	if IsUserFacing(err) {
//	    showToUser(FormatUserError(err))
//	} else {
//	    log.Error(err) // Log technical error
//	    showToUser("An error occurred. Please try again.")
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// The returned UserError preserves the original technical error for logging via Unwrap(),
// while providing a clean user message via Error().
//
// Returns nil if err is nil.
//
// Example:
//
//	ue := NewUserError(submitErr)
//	log.Error(ue.Technical)          // Log original error
//	fmt.Println(ue.Error())           // Show "A record with this slug appears more than once"
//	fmt.Println(ue.User.Code)         // Show "DB001"
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

// SummarizeErrors formats at most limit errors for display and collapses the
// rest into a trailing "...and N more" line. A limit <= 0 shows everything.
func SummarizeErrors(errs []ValidationError, limit int) []string {
	if len(errs) == 0 {
		return nil
	}
	shown := len(errs)
	if limit > 0 && shown > limit {
		shown = limit
	}

	lines := make([]string, 0, shown+1)
	for _, e := range errs[:shown] {
		lines = append(lines, e.Error())
	}
	if rest := len(errs) - shown; rest > 0 {
		lines = append(lines, fmt.Sprintf("...and %d more", rest))
	}
	return lines
}

package core

// error_messages.go maps technical errors to user-facing messages with a
// support code.
//
// # Error Codes Reference
//
// # Dataset Errors (DATA001-DATA099)
//
//	DATA001 - No dataset: Nothing to clean
//	          Patterns: "no dataset provided"
//
//	DATA002 - Empty CSV: The file has no header row
//	          Patterns: "csv has no header row"
//
//	DATA003 - Column mismatch: Rows and header disagree
//	          Patterns: "column length mismatch"
//
//	DATA004 - Duplicate column: Two columns share a name
//	          Patterns: "duplicate column"
//
// # Cleaning Errors (CLN001-CLN099)
//
//	CLN001 - Column not found
//	         Patterns: "column not found"
//
//	CLN002 - Incompatible type: Operation does not fit the column type
//	         Patterns: "incompatible column type"
//
//	CLN003 - Invalid bounds: Lower bound above upper bound
//	         Patterns: "invalid bounds"
//
//	CLN004 - Unknown strategy: Unsupported keep, method or strategy value
//	         Patterns: "unknown strategy"
//
//	CLN005 - Unbound field: No column matched the canonical field
//	         Patterns: "canonical field not bound"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Invalid CSV
//	          Patterns: "invalid csv"
//
//	FILE003 - Compression error: The gzip stream could not be read
//	          Patterns: "gzip"
//
//	FILE004 - No file
//	          Patterns: "no file provided"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - System busy: Every run slot is taken
//	         Patterns: "too many concurrent runs"
//
//	RUN002 - Run expired: Run not found
//	         Patterns: "run not found"
//
//	RUN003 - Request cancelled
//	         Patterns: "context canceled"
//
//	RUN004 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused
//	        Patterns: "connection refused"
//
//	DB002 - Table not found
//	        Patterns: "does not exist", "no such table"
//
//	DB003 - Database disabled: No database source is configured
//	        Patterns: "database not configured"
//
//	DB004 - Row limit: The table exceeds DB_MAX_ROWS
//	        Patterns: "too many rows"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the logs for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Run Errors (RUN001-RUN004)
	// =========================================================================
	{
		pattern: "too many concurrent runs",
		msg: UserMessage{
			Message: "The cleaner is busy with other datasets",
			Action:  "Please wait a moment and try again",
			Code:    "RUN001",
		},
	},
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "Cleaning run not found",
			Action:  "Runs expire after a while. Please clean the dataset again",
			Code:    "RUN002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "RUN003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller dataset or try again later",
			Code:    "RUN004",
		},
	},

	// =========================================================================
	// Dataset Errors (DATA001-DATA004)
	// =========================================================================
	{
		pattern: "no dataset provided",
		msg: UserMessage{
			Message: "No dataset was provided",
			Action:  "Upload a CSV file with a header row and at least one column",
			Code:    "DATA001",
		},
	},
	{
		pattern: "csv has no header row",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Upload a CSV file whose first line names the columns",
			Code:    "DATA002",
		},
	},
	{
		pattern: "column length mismatch",
		msg: UserMessage{
			Message: "Rows do not match the header",
			Action:  "Ensure every row has the same number of fields as the header",
			Code:    "DATA003",
		},
	},
	{
		pattern: "duplicate column",
		msg: UserMessage{
			Message: "Two columns share the same name",
			Action:  "Rename one of the columns",
			Code:    "DATA004",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE004)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Compress the file with gzip or split it into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Compress the file with gzip or split it into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with consistent columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "gzip",
		msg: UserMessage{
			Message: "Compressed file could not be read",
			Action:  "Check that the file is a complete gzip archive",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to clean",
			Code:    "FILE004",
		},
	},

	// =========================================================================
	// Cleaning Errors (CLN001-CLN005)
	// =========================================================================
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "Column not found in dataset",
			Action:  "Check the column name against the dataset header",
			Code:    "CLN001",
		},
	},
	{
		pattern: "incompatible column type",
		msg: UserMessage{
			Message: "Operation does not apply to this column type",
			Action:  "Cast the column first or pick a different strategy",
			Code:    "CLN002",
		},
	},
	{
		pattern: "invalid bounds",
		msg: UserMessage{
			Message: "Lower bound is greater than upper bound",
			Action:  "Swap or correct the bounds",
			Code:    "CLN003",
		},
	},
	{
		pattern: "unknown strategy",
		msg: UserMessage{
			Message: "Unsupported cleaning option",
			Action:  "Check the allowed values for this option",
			Code:    "CLN004",
		},
	},
	{
		pattern: "canonical field not bound",
		msg: UserMessage{
			Message: "No column matched the expected field",
			Action:  "Rename the column to one of the known aliases",
			Code:    "CLN005",
		},
	},

	// =========================================================================
	// Advisor Errors (ADV001-ADV003)
	// =========================================================================
	{
		pattern: "requires an api key",
		msg: UserMessage{
			Message: "The Gemini advisor needs an API key",
			Action:  "Set GOOGLE_API_KEY or switch ADVISOR_PROVIDER to heuristic",
			Code:    "ADV001",
		},
	},
	{
		pattern: "unknown advisor provider",
		msg: UserMessage{
			Message: "Unknown advisor provider",
			Action:  "Use none, heuristic or gemini",
			Code:    "ADV002",
		},
	},
	{
		pattern: "advisor: status",
		msg: UserMessage{
			Message: "The advisor service rejected the request",
			Action:  "Check the API key and model name",
			Code:    "ADV003",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB004)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "Table not found",
			Action:  "Verify the table name is correct",
			Code:    "DB002",
		},
	},
	{
		pattern: "no such table",
		msg: UserMessage{
			Message: "Table not found",
			Action:  "Verify the table name is correct",
			Code:    "DB002",
		},
	},
	{
		pattern: "database not configured",
		msg: UserMessage{
			Message: "No database source is configured",
			Action:  "Set DATABASE_URL to clean tables",
			Code:    "DB003",
		},
	},
	{
		pattern: "too many rows",
		msg: UserMessage{
			Message: "The table is too large to clean in memory",
			Action:  "Select fewer rows with a query or raise DB_MAX_ROWS",
			Code:    "DB004",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. The first
// matching pattern wins; ERR000 is returned when none match.
//
// Example:
//
//	msg := MapError(ErrTooManyRuns)
//	// msg.Code == "RUN001"
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
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
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

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

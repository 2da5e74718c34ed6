package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// Visitors and admins quote the code so staff can find the cause in the logs.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A record with this ID already exists
//	DB002 - Unique constraint: Only one cover image is allowed per listing
//	DB003 - Foreign key: Referenced record does not exist
//	DB004 - Connection refused: Unable to connect to database
//	DB005 - Connection reset: Database connection was interrupted
//	DB006 - Timeout: Operation timed out
//	DB007 - Deadlock: Database was busy with conflicting operations
//	DB008 - Listing not found
//	DB009 - Financing request not found
//	DB010 - Blog post not found
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid listing data
//	VAL002 - Invalid blog post data
//	VAL003 - Invalid status
//	VAL004 - Unknown feature
//	VAL005 - Unknown financing field
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large (the configured limit is quoted when known)
//	FILE002 - Empty file
//	FILE003 - No file selected
//	FILE004 - Too many concurrent uploads
//
// # Image Errors (IMG001-IMG099)
//
//	IMG001 - Too many images for one listing (the configured cap is quoted when known)
//	IMG002 - Image not found
//
// # Wizard Errors (WIZ001-WIZ099)
//
//	WIZ001 - Session expired or unknown
//	WIZ002 - Malformed session id
//	WIZ003 - Unknown document type
//
// # Authentication Errors (AUTH001-AUTH099)
//
//	AUTH001 - Wrong username or password
//	AUTH002 - Session expired
//	AUTH003 - Invalid or revoked session
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled
//	REQ002 - Request timed out
//	REQ003 - Malformed request
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check the application logs for
// the original error.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones. Patterns in
// detailPatterns append the text that follows "<pattern>: " in the error, which
// is how limits from the upload config reach the user.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Order matters: "wizard session not found" must precede "session not found".
var errorPatterns = []errorPattern{
	// Database
	{"duplicate key", UserMessage{"A record with this ID already exists", "Reload the page and try again", "DB001"}},
	{"uq_car_images_primary", UserMessage{"Only one cover image is allowed per listing", "Reload the listing and pick the cover again", "DB002"}},
	{"violates unique", UserMessage{"A duplicate value was found", "Reload the page and try again", "DB002"}},
	{"foreign key", UserMessage{"Referenced record does not exist", "The listing may have been deleted. Reload the page", "DB003"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},
	{"listing not found", UserMessage{"Vehicle not found", "The listing may have been removed", "DB008"}},
	{"financing request not found", UserMessage{"Financing request not found", "The request may have been deleted", "DB009"}},
	{"blog post not found", UserMessage{"Post not found", "The post may have been deleted", "DB010"}},

	// Wizard, before the generic session patterns
	{"wizard session not found", UserMessage{"Your application session has expired", "Start the financing form again", "WIZ001"}},
	{"invalid wizard session id", UserMessage{"Invalid application session", "Start the financing form again", "WIZ002"}},
	{"unknown document type", UserMessage{"Unknown document type", "Attach a residence proof, income proof or driver license", "WIZ003"}},

	// Authentication
	{"invalid username or password", UserMessage{"Wrong username or password", "Check your credentials and try again", "AUTH001"}},
	{"session expired", UserMessage{"Your session has expired", "Log in again", "AUTH002"}},
	{"invalid session token", UserMessage{"You are not logged in", "Log in again", "AUTH003"}},
	{"session not found", UserMessage{"You are not logged in", "Log in again", "AUTH003"}},

	// Validation
	{"invalid listing data", UserMessage{"Some vehicle details are missing or invalid", "Review the highlighted fields", "VAL001"}},
	{"invalid blog post data", UserMessage{"Some post details are missing or invalid", "A post needs a title and content", "VAL002"}},
	{"invalid status", UserMessage{"Unknown status", "Use new, reviewing, approved or denied", "VAL003"}},
	{"unknown feature", UserMessage{"Unknown vehicle feature", "Pick features from the list", "VAL004"}},
	{"unknown financing field", UserMessage{"Unknown form field", "Reload the form and try again", "VAL005"}},

	// Files
	{"file too large", UserMessage{"File is too large", "Choose a smaller file", "FILE001"}},
	{"request body too large", UserMessage{"File is too large", "Choose a smaller file", "FILE001"}},
	{"file is empty", UserMessage{"The selected file is empty", "Choose another file", "FILE002"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a file to upload", "FILE003"}},
	{"too many concurrent uploads", UserMessage{"System is busy processing other uploads", "Please wait a moment and try again", "FILE004"}},

	// Images
	{"too many images", UserMessage{"Too many images for this listing", "Remove some images and try again", "IMG001"}},
	{"image entry not found", UserMessage{"Image not found", "Reload the listing", "IMG002"}},
	{"image not found", UserMessage{"Image not found", "Reload the listing", "IMG002"}},

	// Requests
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "REQ001"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Check your connection and try again", "REQ002"}},
	{"timeout", UserMessage{"Operation timed out", "Please try again later", "DB006"}},

	// Rate limiting
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},

	// Catch-all for malformed input, after every specific pattern
	{"invalid request", UserMessage{"The request could not be read", "Check the submitted form and try again", "REQ003"}},
}

// detailPatterns quote the limit carried by the wrapped error.
var detailPatterns = map[string]bool{
	"file too large":  true,
	"too many images": true,
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
//
// Example:
//
//	msg := MapError(domain.ErrListingNotFound)
//	// msg.Code == "DB008"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			msg := ep.msg
			if detailPatterns[ep.pattern] {
				if d := errorDetail(err.Error(), ep.pattern); d != "" {
					msg.Message += " (" + d + ")"
				}
			}
			return msg
		}
	}

	return defaultMessage
}

// errorDetail returns the text following "<pattern>: " in errStr, up to the
// end of the line. Joined errors put each error on its own line.
func errorDetail(errStr, pattern string) string {
	i := strings.Index(errStr, pattern+": ")
	if i < 0 {
		return ""
	}
	d := errStr[i+len(pattern)+2:]
	if j := strings.IndexByte(d, '\n'); j >= 0 {
		d = d[:j]
	}
	return strings.TrimSpace(d)
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

// IsUserFacing reports whether err matches a known pattern, i.e. it is not
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
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

// NewUserError maps err into a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

package utils

import "strings"

// Classified category strings shown to users in place of raw error text.
const (
	CategoryConnectivity = "Connection failed (Mail server or Database unreachable)"
	CategoryDatabase     = "Database error occurred during query execution. Please check your SQL syntax or table names."
	CategoryFilesystem   = "File system error: Could not save or access report file"
	CategoryTimeout      = "Operation timed out. Please try again later."
	CategoryInternal     = "Operation failed due to an internal error"
	CategoryUnknown      = "Unknown error during execution"
)

// sanitizeRule maps raw error substrings onto a user-safe category.
// Rules are ordered; the first match wins.
type sanitizeRule struct {
	substrings []string
	category   string
}

var sanitizeRules = []sanitizeRule{
	{
		substrings: []string{"connect:", "connection refused", "unreachable", "no such host", "dial tcp"},
		category:   CategoryConnectivity,
	},
	{
		substrings: []string{"ora-", "sqlstate", "bad sql grammar", "syntax error", "does not exist", "pq:"},
		category:   CategoryDatabase,
	},
	{
		substrings: []string{"no such file", "file not found", "permission denied", "access denied"},
		category:   CategoryFilesystem,
	},
	{
		substrings: []string{"timeout", "deadline exceeded"},
		category:   CategoryTimeout,
	},
}

// SanitizeErrorMessage maps a raw failure message onto a fixed category so
// vendor error text, stack traces, and credentials never reach users.
func SanitizeErrorMessage(message string) string {
	if message == "" {
		return CategoryUnknown
	}

	lower := strings.ToLower(message)
	for _, rule := range sanitizeRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return rule.category
			}
		}
	}

	return CategoryInternal
}

// SanitizeError is a convenience wrapper for non-nil errors.
func SanitizeError(err error) string {
	if err == nil {
		return CategoryUnknown
	}
	return SanitizeErrorMessage(err.Error())
}

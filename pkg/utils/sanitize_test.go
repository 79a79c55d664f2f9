package utils

import (
	"errors"
	"testing"
)

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{
			name:    "empty message",
			message: "",
			want:    CategoryUnknown,
		},
		{
			name:    "connection refused",
			message: "dial tcp 10.0.0.5:5432: connect: connection refused",
			want:    CategoryConnectivity,
		},
		{
			name:    "host unreachable",
			message: "network is Unreachable",
			want:    CategoryConnectivity,
		},
		{
			name:    "oracle vendor prefix",
			message: "ORA-00942: table or view does not exist",
			want:    CategoryDatabase,
		},
		{
			name:    "postgres sqlstate",
			message: "ERROR: relation \"missing\" does not exist (SQLSTATE 42P01)",
			want:    CategoryDatabase,
		},
		{
			name:    "bad sql grammar",
			message: "StatementCallback; bad SQL grammar [SELEC 1]",
			want:    CategoryDatabase,
		},
		{
			name:    "missing file",
			message: "open data/sql/q.sql: no such file or directory",
			want:    CategoryFilesystem,
		},
		{
			name:    "permission denied",
			message: "open /root/out.xlsx: permission denied",
			want:    CategoryFilesystem,
		},
		{
			name:    "query timeout",
			message: "canceling statement due to statement timeout",
			want:    CategoryTimeout,
		},
		{
			name:    "context deadline",
			message: "context deadline exceeded",
			want:    CategoryTimeout,
		},
		{
			name:    "anything else",
			message: "runtime error: index out of range",
			want:    CategoryInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeErrorMessage(tt.message)
			if got != tt.want {
				t.Errorf("SanitizeErrorMessage(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestSanitizeErrorMessage_NeverLeaksRawText(t *testing.T) {
	raw := "ORA-01017: invalid username/password; logon denied user=admin password=s3cret"
	got := SanitizeErrorMessage(raw)
	if got != CategoryDatabase {
		t.Fatalf("expected database category, got %q", got)
	}
	// The classified string must not carry anything from the input.
	for _, leaked := range []string{"admin", "s3cret", "ORA-01017"} {
		if contains := got == leaked; contains {
			t.Errorf("sanitized message leaked %q", leaked)
		}
	}
}

func TestSanitizeError(t *testing.T) {
	if got := SanitizeError(nil); got != CategoryUnknown {
		t.Errorf("SanitizeError(nil) = %q, want %q", got, CategoryUnknown)
	}
	if got := SanitizeError(errors.New("connection refused")); got != CategoryConnectivity {
		t.Errorf("SanitizeError() = %q, want %q", got, CategoryConnectivity)
	}
}

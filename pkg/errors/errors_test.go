package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidPathQuery, "start and end are both %q", "Tony")

	if err.Code != ErrCodeInvalidPathQuery {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidPathQuery)
	}

	if err.Message != `start and end are both "Tony"` {
		t.Errorf("Message = %v, want %v", err.Message, `start and end are both "Tony"`)
	}

	expected := `INVALID_PATH_QUERY: start and end are both "Tony"`
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeNetworkFailure, cause, "fetch expansion")

	if err.Code != ErrCodeNetworkFailure {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNetworkFailure)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeEmptyDataset, "no nodes"),
			code:     ErrCodeEmptyDataset,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeEmptyDataset, "no nodes"),
			code:     ErrCodeNetworkFailure,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodePathNotFound, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodePathNotFound,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodePathNotFound, "no path"), ErrCodePathNotFound},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Error type", New(ErrCodePathNotFound, "no path between A and C"), "no path between A and C"},
		{"plain error", errors.New("plain error"), "plain error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDismissible(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{New(ErrCodeNetworkFailure, "status 502"), true},
		{New(ErrCodePathNotFound, "no path"), true},
		{New(ErrCodeInvalidPathQuery, "same"), true},
		{New(ErrCodeEmptyDataset, "no nodes"), false},
		{errors.New("plain"), false},
	}

	for _, tt := range tests {
		if got := Dismissible(tt.err); got != tt.want {
			t.Errorf("Dismissible(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

package errors

import (
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "Tony Stark", false},
		{"numeric id", "42", false},
		{"unicode", "钢铁侠", false},

		{"empty", "", true},
		{"blank", "   ", true},
		{"too long", string(make([]byte, 300)), true},
		{"path traversal", "foo..bar", true},
		{"slash", "foo/bar", true},
		{"backslash", "foo\\bar", true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidateName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidatePathQuery(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		wantErr    bool
	}{
		{"distinct", "Tony", "Steve", false},
		{"identical", "Tony", "Tony", true},
		{"identical with spaces", " Tony", "Tony ", true},
		{"empty start", "", "Tony", true},
		{"empty end", "Tony", "", true},
		{"slash in name", "AC/DC", "Tony", false},
		{"control character", "To\nny", "Steve", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathQuery(tt.start, tt.end)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidatePathQuery(%q, %q) error = %v, wantErr %v", tt.start, tt.end, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPathQuery) {
				t.Errorf("code = %v, want %v", GetCode(err), ErrCodeInvalidPathQuery)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"http://localhost:3001", false},
		{"https://example.com", false},
		{"", true},
		{"ftp://example.com", true},
		{"localhost:3001", true},
	}

	for _, tt := range tests {
		if err := ValidateURL(tt.input); (err != nil) != tt.wantErr {
			t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeNetworkFailure,
		ErrCodeEmptyDataset,
		ErrCodeInvalidPathQuery,
		ErrCodePathNotFound,
		ErrCodeInvalidInput,
		ErrCodeInvalidConfig,
		ErrCodeNotFound,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}

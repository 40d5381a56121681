package services

import (
	"testing"
)

func TestIsDemoEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"manager@demo.com", true},
		{"employee@demo.com", true},
		{"someone@demo.com", false},
		{"manager@example.com", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.email, func(t *testing.T) {
			if got := IsDemoEmail(tc.email); got != tc.want {
				t.Errorf("Expected %v for %q, got %v", tc.want, tc.email, got)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name    string
		pw      string
		wantErr bool
	}{
		{"too short", "abc12", true},
		{"minimum length", "abc123", false},
		{"typical", "StrongPass123!", false},
		{"empty", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePassword(tc.pw)
			if (err != nil) != tc.wantErr {
				t.Errorf("Expected error=%v for %q, got %v", tc.wantErr, tc.pw, err)
			}
		})
	}
}

func TestEmailRegex(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"user.name+tag@sub.example.co", true},
		{"no-at-sign", false},
		{"user@", false},
		{"@example.com", false},
		{"user@example", false},
	}

	for _, tc := range tests {
		t.Run(tc.email, func(t *testing.T) {
			if got := emailRegex.MatchString(tc.email); got != tc.want {
				t.Errorf("Expected %v for %q, got %v", tc.want, tc.email, got)
			}
		})
	}
}

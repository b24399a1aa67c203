package errors

import (
	"strings"
	"testing"
)

func TestValidateDescription(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "show quarterly revenue as bars", false},
		{"multiline", "revenue by region\nfor 2024", false},
		{"tab", "sales\tby month", false},

		{"empty", "", true},
		{"whitespace", "   \n\t", true},
		{"too long", strings.Repeat("a", MaxDescriptionLength+1), true},
		{"null byte", "bar\x00chart", true},
		{"escape", "bar\x1bchart", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDescription(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDescription(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidateDescription(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidateArtifactID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"uuid", "chart_0b7e4c9e-58f4-4f0c-8d0c-2c7bb1f2b0a1", false},
		{"short", "abc", false},

		{"empty", "", true},
		{"slash", "a/b", true},
		{"backslash", "a\\b", true},
		{"traversal", "..", true},
		{"hidden", ".env", true},
		{"control", "a\nb", true},
		{"too long", strings.Repeat("x", 129), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArtifactID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArtifactID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "Bar/bar_dark_01.html", false},
		{"valid nested", "charts/Line/line_light_02.html", false},

		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "charts/../secret", true},
		{"backslash", "charts\\x.html", true},
		{"null byte", "a\x00b", true},
		{"too long", strings.Repeat("a", 501), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRows(t *testing.T) {
	tests := []struct {
		rows, limit int
		wantErr     bool
	}{
		{0, 1000, false},
		{12, 1000, false},
		{1000, 1000, false},
		{12, 0, false},
		{-1, 1000, true},
		{1001, 1000, true},
	}
	for _, tt := range tests {
		err := ValidateRows(tt.rows, tt.limit)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateRows(%d, %d) error = %v, wantErr %v", tt.rows, tt.limit, err, tt.wantErr)
		}
	}
}

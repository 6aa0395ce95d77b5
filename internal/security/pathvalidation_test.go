package security

import (
	"strings"
	"testing"
)

func TestValidateStorageKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"flat key", "uploads/0b5c.pdf", nil},
		{"nested key", "uploads/2024/0b5c.pdf", nil},
		{"empty", "", ErrEmptyPath},
		{"traversal", "../etc/passwd", ErrPathTraversal},
		{"traversal in middle", "uploads/../secret", ErrPathTraversal},
		{"absolute", "/etc/passwd", ErrAbsolutePath},
		{"backslash absolute", `\windows\system32`, ErrAbsolutePath},
		{"null byte", "uploads/a\x00.pdf", ErrInvalidPath},
		{"empty segment", "uploads//a.pdf", ErrPathTraversal},
		{"dot segment", "uploads/./a.pdf", ErrPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStorageKey(tt.key)
			if err != tt.wantErr {
				t.Errorf("ValidateStorageKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestCleanUploadName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"  report.pdf  ", "report.pdf"},
		{`C:\Users\me\scan.PDF`, "scan.PDF"},
		{"/home/me/photos/img 1.png", "img 1.png"},
		{"", "upload"},
		{"..", "upload"},
		{"dir/", "upload"},
		{"na\x00me.pdf", "name.pdf"},
	}

	for _, tt := range tests {
		if got := CleanUploadName(tt.in); got != tt.want {
			t.Errorf("CleanUploadName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanUploadNameTruncatesKeepingExtension(t *testing.T) {
	long := strings.Repeat("a", 400) + ".pdf"
	got := CleanUploadName(long)
	if len(got) != maxNameBytes {
		t.Fatalf("len = %d, want %d", len(got), maxNameBytes)
	}
	if !strings.HasSuffix(got, ".pdf") {
		t.Errorf("extension lost: %q", got[len(got)-8:])
	}
}

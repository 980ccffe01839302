package utils

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestMediaKey(t *testing.T) {
	tests := []struct {
		folder, name string
		want         string
	}{
		{"failures", "Main Prize.PNG", `^failures/main-prize-[0-9a-f]{8}\.png$`},
		{"", "banner.jpg", `^media/banner-[0-9a-f]{8}\.jpg$`},
		{"Ad Buttons", "!!!.webp", `^ad-buttons/file-[0-9a-f]{8}\.webp$`},
		{"rules", "no-extension", `^rules/no-extension-[0-9a-f]{8}$`},
	}
	for _, tt := range tests {
		got := MediaKey(tt.folder, tt.name)
		if !regexp.MustCompile(tt.want).MatchString(got) {
			t.Errorf("MediaKey(%q, %q) = %q, want match %s", tt.folder, tt.name, got, tt.want)
		}
	}
}

func TestLocalStore_Put(t *testing.T) {
	dir := t.TempDir()
	store := &LocalStore{Dir: dir, URLPrefix: "/uploads/"}

	url, err := store.Put(context.Background(), "failures/prize-1234abcd.png", strings.NewReader("png"), "image/png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "/uploads/failures/prize-1234abcd.png" {
		t.Errorf("unexpected url %q", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "failures", "prize-1234abcd.png"))
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if string(data) != "png" {
		t.Errorf("unexpected content %q", data)
	}
}

package youtubeapi

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildCookieHeader(t *testing.T) {
	content := strings.Join([]string{
		"# Netscape HTTP Cookie File",
		".youtube.com\tTRUE\t/\tTRUE\t1999999999\tSID\tabc123",
		"www.youtube.com\tTRUE\t/\tTRUE\t1999999999\tHSID\tdef456",
		".google.com\tTRUE\t/\tTRUE\t1999999999\tNID\tshould-not-appear",
		"malformed line",
		"",
	}, "\n")
	path := filepath.Join(t.TempDir(), "cookies.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	header := buildCookieHeader(path)
	if !strings.Contains(header, "SID=abc123") || !strings.Contains(header, "HSID=def456") {
		t.Errorf("youtube cookies missing from header: %q", header)
	}
	if strings.Contains(header, "NID") {
		t.Errorf("non-youtube cookie leaked into header: %q", header)
	}
}

func TestBuildCookieHeaderMissingFile(t *testing.T) {
	if got := buildCookieHeader("/nonexistent/cookies.txt"); got != "" {
		t.Errorf("expected empty header for missing file, got %q", got)
	}
	if got := buildCookieHeader(""); got != "" {
		t.Errorf("expected empty header for empty path, got %q", got)
	}
}

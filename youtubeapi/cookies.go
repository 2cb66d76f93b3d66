package youtubeapi

import (
	"os"
	"strings"
)

// buildCookieHeader reads a Netscape cookie file and returns a Cookie header
// string with cookies scoped to youtube.com. Missing file or no matching
// cookies returns empty string; members-only replays need these cookies,
// everything else works without them.
func buildCookieHeader(path string) string {
	if path == "" {
		return ""
	}
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	lines := strings.Split(string(data), "\n")
	pairs := make([]string, 0, 16)
	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, "#") {
			continue
		}
		// Netscape format: domain\tflag\tpath\tsecure\texpiry\tname\tvalue
		cols := strings.Split(ln, "\t")
		if len(cols) < 7 {
			continue
		}
		domain := cols[0]
		name := cols[5]
		value := cols[6]
		if domain == "youtube.com" || domain == ".youtube.com" || strings.HasSuffix(domain, ".youtube.com") {
			if name != "" {
				value = strings.ReplaceAll(value, ";", "")
				value = strings.ReplaceAll(value, "\n", "")
				value = strings.ReplaceAll(value, "\r", "")
				pairs = append(pairs, name+"="+value)
			}
		}
	}
	if len(pairs) == 0 {
		return ""
	}
	return strings.Join(pairs, "; ")
}

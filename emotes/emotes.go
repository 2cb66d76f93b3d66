// Package emotes formats the two emoji kinds found in chat messages: Unicode
// emojis embedded directly in the text, and custom channel emotes referenced
// by :name: placeholders with image metadata alongside the message.
package emotes

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/onnwee/ytchat-tender/crawl"
)

// customEmojiPattern matches :name: placeholders while rejecting timestamps
// like 1:30, which require the first character after the colon to be a letter.
var customEmojiPattern = regexp.MustCompile(`:[a-zA-Z][a-zA-Z0-9_-]*:`)

// emojiRanges covers the main Unicode emoji blocks.
var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F300, 0x1F5FF}, // symbols and pictographs
	{0x1F680, 0x1F6FF}, // transport and map symbols
	{0x1F1E0, 0x1F1FF}, // regional indicators (flags)
	{0x2702, 0x27B0},   // dingbats
	{0x24C2, 0x1F251},
	{0x1F900, 0x1F9FF}, // supplemental symbols
	{0x1FA00, 0x1FA6F}, // extended symbols
}

// FormatMessage replaces each known :name: placeholder with a readable
// [Emoji: name] marker. Unicode emojis pass through untouched.
func FormatMessage(message string, ems []crawl.Emote) string {
	if message == "" || len(ems) == 0 {
		return message
	}
	out := message
	for _, e := range ems {
		if e.Name == "" {
			continue
		}
		out = strings.ReplaceAll(out, ":"+e.Name+":", fmt.Sprintf("[Emoji: %s]", e.Name))
	}
	return out
}

// ToMarkdown renders emotes as markdown images; emotes without an image URL
// fall back to their :name: placeholder.
func ToMarkdown(ems []crawl.Emote) string {
	if len(ems) == 0 {
		return ""
	}
	parts := make([]string, 0, len(ems))
	for _, e := range ems {
		name := e.Name
		if name == "" {
			name = "emoji"
		}
		if e.URL != "" {
			parts = append(parts, fmt.Sprintf("![%s](%s)", name, e.URL))
		} else {
			parts = append(parts, ":"+name+":")
		}
	}
	return strings.Join(parts, " ")
}

// Names returns the non-empty emote names in order.
func Names(ems []crawl.Emote) []string {
	var out []string
	for _, e := range ems {
		if e.Name != "" {
			out = append(out, e.Name)
		}
	}
	return out
}

// HasCustomEmoji reports whether the message text contains a :name:
// placeholder.
func HasCustomEmoji(message string) bool {
	return message != "" && customEmojiPattern.MatchString(message)
}

// HasUnicodeEmoji reports whether the message contains a Unicode emoji.
func HasUnicodeEmoji(message string) bool {
	for _, r := range message {
		if isEmojiRune(r) {
			return true
		}
	}
	return false
}

// ExtractUnicodeEmojis returns runs of consecutive Unicode emoji characters
// in the order they appear.
func ExtractUnicodeEmojis(message string) []string {
	var out []string
	var run []rune
	for _, r := range message {
		if isEmojiRune(r) {
			run = append(run, r)
			continue
		}
		if len(run) > 0 {
			out = append(out, string(run))
			run = run[:0]
		}
	}
	if len(run) > 0 {
		out = append(out, string(run))
	}
	return out
}

func isEmojiRune(r rune) bool {
	for _, rg := range emojiRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

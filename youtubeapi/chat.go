package youtubeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/ytchat-tender/crawl"
)

const (
	defaultBaseURL = "https://www.youtube.com"
	userAgent      = "Mozilla/5.0 (compatible; ytchat-tender/1.0)"
)

// ChatReplay implements crawl.ChatProvider over the live chat replay
// continuation endpoint. The replay is paged: the watch page yields an
// innertube key and an initial continuation token, then each page returns
// events plus the next token until the replay is exhausted.
type ChatReplay struct {
	// BaseURL is swapped for an httptest server in tests.
	BaseURL      string
	http         *http.Client
	cookieHeader string
	log          *slog.Logger
}

// NewChatReplay builds the provider. cookiesPath may name a Netscape cookie
// file whose youtube.com cookies are forwarded (members-only replays).
func NewChatReplay(cookiesPath string) *ChatReplay {
	return &ChatReplay{
		BaseURL:      defaultBaseURL,
		http:         &http.Client{Timeout: 30 * time.Second},
		cookieHeader: buildCookieHeader(cookiesPath),
		log:          slog.Default().With(slog.String("component", "chat_replay")),
	}
}

// GetChat bootstraps the replay from the watch page and returns an iterator
// over its events.
func (c *ChatReplay) GetChat(ctx context.Context, videoID string) (crawl.ChatIterator, error) {
	apiKey, clientVersion, continuation, err := c.bootstrap(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return &replayIterator{
		provider:      c,
		apiKey:        apiKey,
		clientVersion: clientVersion,
		continuation:  continuation,
	}, nil
}

// bootstrap fetches the watch page and scrapes the innertube credentials and
// the initial live chat continuation out of it.
func (c *ChatReplay) bootstrap(ctx context.Context, videoID string) (apiKey, clientVersion, continuation string, err error) {
	watchURL := fmt.Sprintf("%s/watch?v=%s", c.BaseURL, url.QueryEscape(videoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
	if err != nil {
		return "", "", "", err
	}
	req.Header.Set("User-Agent", userAgent)
	if c.cookieHeader != "" {
		req.Header.Set("Cookie", c.cookieHeader)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", "", fmt.Errorf("fetch watch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", "", fmt.Errorf("watch page status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", "", "", err
	}
	text := string(body)

	apiKey = scanQuoted(text, `"INNERTUBE_API_KEY":"`)
	clientVersion = scanQuoted(text, `"INNERTUBE_CLIENT_VERSION":"`)
	if apiKey == "" || clientVersion == "" {
		return "", "", "", errors.New("innertube credentials not found on watch page")
	}

	var initJSON string
	for _, marker := range []string{
		`ytInitialData"] = `,
		`ytInitialData":`,
		`ytInitialData = `,
	} {
		if initJSON = scanJSONObject(text, marker); initJSON != "" {
			break
		}
	}
	if initJSON == "" {
		return "", "", "", errors.New("initial data not found on watch page")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(initJSON), &data); err != nil {
		return "", "", "", fmt.Errorf("parse initial data: %w", err)
	}
	continuation = findChatContinuation(data)
	if continuation == "" {
		return "", "", "", errors.New("chat replay unavailable for this video")
	}
	return apiKey, clientVersion, continuation, nil
}

// fetchPage posts one continuation to the replay endpoint and returns its
// events plus the next token; an empty token means the replay is exhausted.
func (c *ChatReplay) fetchPage(ctx context.Context, apiKey, clientVersion, continuation string) ([]crawl.RawChatEvent, string, error) {
	endpoint := fmt.Sprintf("%s/youtubei/v1/live_chat/get_live_chat_replay?key=%s",
		c.BaseURL, url.QueryEscape(apiKey))
	payload := map[string]any{
		"context": map[string]any{
			"client": map[string]any{
				"clientName":    "WEB",
				"clientVersion": clientVersion,
				"hl":            "en",
			},
		},
		"continuation": continuation,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.cookieHeader != "" {
		req.Header.Set("Cookie", c.cookieHeader)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch replay page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return nil, "", fmt.Errorf("replay page status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, "", err
	}
	var page map[string]any
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, "", fmt.Errorf("decode replay page: %w", err)
	}
	return extractEvents(page), nextContinuation(page), nil
}

// replayIterator pages through the replay lazily, buffering one page of
// events at a time.
type replayIterator struct {
	provider      *ChatReplay
	apiKey        string
	clientVersion string
	continuation  string
	buf           []crawl.RawChatEvent
	pos           int
	done          bool
}

func (it *replayIterator) Next(ctx context.Context) (crawl.RawChatEvent, error) {
	for {
		if it.pos < len(it.buf) {
			ev := it.buf[it.pos]
			it.pos++
			return ev, nil
		}
		if it.done || it.continuation == "" {
			return crawl.RawChatEvent{}, io.EOF
		}
		events, next, err := it.provider.fetchPage(ctx, it.apiKey, it.clientVersion, it.continuation)
		if err != nil {
			return crawl.RawChatEvent{}, err
		}
		// A token identical to the one just used would loop forever.
		if next == "" || next == it.continuation {
			it.done = true
		}
		it.continuation = next
		it.buf, it.pos = events, 0
		if len(events) == 0 && it.done {
			return crawl.RawChatEvent{}, io.EOF
		}
	}
}

func (it *replayIterator) Close() error { return nil }

// extractEvents walks a replay page's actions and normalizes every renderer
// it understands. Replay pages wrap live actions in replayChatItemAction.
func extractEvents(page map[string]any) []crawl.RawChatEvent {
	var out []crawl.RawChatEvent
	for _, action := range pageActions(page) {
		inner := action
		if replay := digMap(action, "replayChatItemAction"); replay != nil {
			if acts, ok := replay["actions"].([]any); ok {
				for _, a := range acts {
					if m, ok := a.(map[string]any); ok {
						if ev, ok := eventFromItem(digMap(m, "addChatItemAction", "item")); ok {
							out = append(out, ev)
						}
					}
				}
			}
			continue
		}
		if ev, ok := eventFromItem(digMap(inner, "addChatItemAction", "item")); ok {
			out = append(out, ev)
		}
	}
	return out
}

func pageActions(page map[string]any) []map[string]any {
	var out []map[string]any
	collect := func(arr []any) {
		for _, item := range arr {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
	}
	if lc := digMap(page, "continuationContents", "liveChatContinuation"); lc != nil {
		if arr, ok := lc["actions"].([]any); ok {
			collect(arr)
		}
	}
	if arr, ok := page["actions"].([]any); ok {
		collect(arr)
	}
	return out
}

// eventFromItem maps one chat item renderer onto the provider-boundary
// event. Unknown renderer types are skipped.
func eventFromItem(item map[string]any) (crawl.RawChatEvent, bool) {
	if item == nil {
		return crawl.RawChatEvent{}, false
	}
	if r, ok := item["liveChatTextMessageRenderer"].(map[string]any); ok {
		ev := baseEvent(r)
		ev.Kind = "text"
		return ev, true
	}
	if r, ok := item["liveChatPaidMessageRenderer"].(map[string]any); ok {
		ev := baseEvent(r)
		ev.Kind = "paid"
		if amountText := simpleText(r, "purchaseAmountText"); amountText != "" {
			amount, currency := parsePaidAmount(amountText)
			ev.Money = &crawl.Money{Amount: amount, Currency: currency}
		}
		return ev, true
	}
	if r, ok := item["liveChatMembershipItemRenderer"].(map[string]any); ok {
		ev := baseEvent(r)
		ev.Kind = "membership"
		ev.Membership = true
		if ev.Message == "" {
			ev.Message = runsText(r, "headerSubtext", nil)
		}
		return ev, true
	}
	return crawl.RawChatEvent{}, false
}

func baseEvent(r map[string]any) crawl.RawChatEvent {
	ev := crawl.RawChatEvent{
		MessageID:     stringVal(r, "id"),
		AuthorName:    simpleText(r, "authorName"),
		AuthorID:      stringVal(r, "authorExternalChannelId"),
		TimestampText: simpleText(r, "timestampText"),
	}
	if usec := stringVal(r, "timestampUsec"); usec != "" {
		if n, err := strconv.ParseInt(usec, 10, 64); err == nil {
			ev.TimestampUsec = n
		}
	}
	ev.Message = runsText(r, "message", &ev.Emotes)
	if badges, ok := r["authorBadges"].([]any); ok {
		for _, b := range badges {
			if m, ok := b.(map[string]any); ok {
				if br := digMap(m, "liveChatAuthorBadgeRenderer"); br != nil {
					if tip := stringVal(br, "tooltip"); tip != "" {
						ev.Badges = append(ev.Badges, tip)
					}
				}
			}
		}
	}
	return ev
}

// runsText flattens a message's runs into text. Emoji runs contribute their
// :shortcut: to the text and, when emotes is non-nil, their metadata to it.
func runsText(m map[string]any, key string, ems *[]crawl.Emote) string {
	nested, ok := m[key].(map[string]any)
	if !ok {
		return ""
	}
	if s, ok := nested["simpleText"].(string); ok {
		return s
	}
	runs, ok := nested["runs"].([]any)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, run := range runs {
		part, ok := run.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := part["text"].(string); ok {
			b.WriteString(text)
			continue
		}
		emoji := digMap(part, "emoji")
		if emoji == nil {
			continue
		}
		name := emojiShortcut(emoji)
		b.WriteString(name)
		if ems != nil {
			*ems = append(*ems, crawl.Emote{
				Name: strings.Trim(name, ":"),
				ID:   stringVal(emoji, "emojiId"),
				URL:  emojiImageURL(emoji),
			})
		}
	}
	return b.String()
}

func emojiShortcut(emoji map[string]any) string {
	if shortcuts, ok := emoji["shortcuts"].([]any); ok && len(shortcuts) > 0 {
		if s, ok := shortcuts[0].(string); ok && s != "" {
			return s
		}
	}
	if id := stringVal(emoji, "emojiId"); id != "" {
		return id
	}
	return ""
}

func emojiImageURL(emoji map[string]any) string {
	if img := digMap(emoji, "image"); img != nil {
		if thumbs, ok := img["thumbnails"].([]any); ok && len(thumbs) > 0 {
			if last, ok := thumbs[len(thumbs)-1].(map[string]any); ok {
				return stringVal(last, "url")
			}
		}
	}
	return ""
}

// parsePaidAmount splits a rendered superchat amount like "$5.00" or
// "¥1,000" into its numeric value and currency prefix.
func parsePaidAmount(s string) (float64, string) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) {
		c := s[i]
		if c >= '0' && c <= '9' {
			break
		}
		i++
	}
	currency := strings.TrimSpace(s[:i])
	num := strings.ReplaceAll(s[i:], ",", "")
	amount, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, currency
	}
	return amount, currency
}

func nextContinuation(page map[string]any) string {
	lc := digMap(page, "continuationContents", "liveChatContinuation")
	if lc == nil {
		return ""
	}
	arr, ok := lc["continuations"].([]any)
	if !ok {
		return ""
	}
	for _, elem := range arr {
		m, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		for _, key := range []string{"liveChatReplayContinuationData", "timedContinuationData", "invalidationContinuationData", "reloadContinuationData"} {
			if next := digMap(m, key); next != nil {
				if s, ok := next["continuation"].(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return ""
}

// findChatContinuation breadth-first searches the watch page's initial data
// for a continuation token under a live-chat-related subtree.
func findChatContinuation(data map[string]any) string {
	type queueItem struct {
		value      any
		inLiveChat bool
	}
	queue := []queueItem{{value: data}}
	for len(queue) > 0 {
		var item queueItem
		item, queue = queue[0], queue[1:]
		switch v := item.value.(type) {
		case map[string]any:
			current := item.inLiveChat || hasLiveChatKey(v)
			if current {
				if cont := continuationFromNode(v); cont != "" {
					return cont
				}
			}
			for key, child := range v {
				queue = append(queue, queueItem{value: child, inLiveChat: current || isLiveChatKey(key)})
			}
		case []any:
			for _, child := range v {
				queue = append(queue, queueItem{value: child, inLiveChat: item.inLiveChat})
			}
		}
	}
	return ""
}

func isLiveChatKey(key string) bool {
	return strings.Contains(strings.ToLower(key), "livechat")
}

func hasLiveChatKey(m map[string]any) bool {
	for key := range m {
		if isLiveChatKey(key) {
			return true
		}
	}
	return false
}

func continuationFromNode(node map[string]any) string {
	if arr, ok := node["continuations"].([]any); ok {
		for _, elem := range arr {
			if m, ok := elem.(map[string]any); ok {
				for _, key := range []string{"reloadContinuationData", "liveChatReplayContinuationData", "invalidationContinuationData", "timedContinuationData"} {
					if next := digMap(m, key); next != nil {
						if s, ok := next["continuation"].(string); ok && s != "" {
							return s
						}
					}
				}
			}
		}
	}
	if endpoint := digMap(node, "continuationEndpoint", "continuationCommand"); endpoint != nil {
		if s, ok := endpoint["token"].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func digMap(m map[string]any, keys ...string) map[string]any {
	current := m
	for _, key := range keys {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

func stringVal(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func simpleText(m map[string]any, key string) string {
	if nested, ok := m[key].(map[string]any); ok {
		if s, ok := nested["simpleText"].(string); ok {
			return s
		}
	}
	return runsText(m, key, nil)
}

// scanQuoted returns the text between marker and the next double quote.
func scanQuoted(text, marker string) string {
	idx := strings.Index(text, marker)
	if idx == -1 {
		return ""
	}
	start := idx + len(marker)
	end := strings.Index(text[start:], `"`)
	if end == -1 {
		return ""
	}
	return text[start : start+end]
}

// scanJSONObject returns the balanced JSON object following marker.
func scanJSONObject(text, marker string) string {
	idx := strings.Index(text, marker)
	if idx == -1 {
		return ""
	}
	start := idx + len(marker)
	for start < len(text) && (text[start] == ' ' || text[start] == '\n' || text[start] == '\r' || text[start] == '\t') {
		start++
	}
	if start >= len(text) || text[start] != '{' {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

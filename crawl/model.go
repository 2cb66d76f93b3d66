// Package crawl implements the incremental channel crawl pipeline: resolving
// a channel reference to its livestream videos, narrowing the list through a
// filter chain, gating each video against already-archived state, fetching
// and normalizing the full chat replay, and writing the result through the
// configured sinks, one video at a time, paced.
package crawl

// Message classifications assigned once at ingestion.
const (
	TypeText       = "text_message"
	TypeSuperchat  = "superchat"
	TypeMembership = "membership"
	TypeOther      = "other"
)

// VideoDescriptor is the immutable metadata snapshot for one video, produced
// during resolution. Zero values mean "unknown" for optional fields.
type VideoDescriptor struct {
	VideoID            string   `json:"video_id"`
	Title              string   `json:"title"`
	UploadDate         string   `json:"upload_date"` // YYYYMMDD, empty when unknown
	Duration           int      `json:"duration"`    // seconds
	ViewCount          int64    `json:"view_count"`
	ChannelID          string   `json:"channel_id"`
	ChannelName        string   `json:"channel_name"`
	Description        string   `json:"description"`
	IsLive             bool     `json:"is_live"`
	WasLive            bool     `json:"was_live"`
	LiveStartTimestamp int64    `json:"live_start_timestamp"` // unix seconds
	LiveEndTimestamp   int64    `json:"live_end_timestamp"`
	ReleaseTimestamp   int64    `json:"release_timestamp"`
	Thumbnail          string   `json:"thumbnail"`
	Categories         []string `json:"categories"`
	Tags               []string `json:"tags"`
	LikeCount          int64    `json:"like_count"`
	CommentCount       int64    `json:"comment_count"`
	LiveStatus         string   `json:"live_status"`
	Availability       string   `json:"availability"`
	Uploader           string   `json:"uploader"`
	UploaderID         string   `json:"uploader_id"`
}

// IsStream reports whether the descriptor carries a livestream indicator.
func (v VideoDescriptor) IsStream() bool { return v.IsLive || v.WasLive }

// Emote is one custom emote referenced by a chat message.
type Emote struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	URL  string `json:"url"`
}

// ChatMessageRecord is the normalized form of one chat event, unique per
// (video_id, message_id). Never mutated after persistence.
type ChatMessageRecord struct {
	MessageID         string   `json:"message_id"`
	VideoID           string   `json:"video_id"`
	AuthorName        string   `json:"author_name"`
	AuthorID          string   `json:"author_id"`
	Message           string   `json:"message"`
	TimestampUsec     int64    `json:"timestamp_usec"`
	TimestampText     string   `json:"timestamp_text"`
	MessageType       string   `json:"message_type"`
	SuperchatAmount   float64  `json:"superchat_amount,omitempty"`
	SuperchatCurrency string   `json:"superchat_currency,omitempty"`
	Badges            []string `json:"badges,omitempty"`
	Emotes            []Emote  `json:"emotes,omitempty"`
}

// Money is the paid amount attached to a raw chat event.
type Money struct {
	Amount   float64
	Currency string
}

// RawChatEvent is the loosely shaped event a ChatProvider yields before
// classification. Provider fields with no column here are dropped at the
// provider boundary, deliberately.
type RawChatEvent struct {
	MessageID     string
	AuthorName    string
	AuthorID      string
	Message       string
	TimestampUsec int64
	TimestampText string
	Kind          string // provider tag, e.g. "text"
	Money         *Money
	Membership    bool
	Badges        []string
	Emotes        []Emote
}

// Summary is the per-run outcome returned by the Driver.
type Summary struct {
	Considered  int
	Skipped     int
	Downloaded  int
	Failed      int
	HaltedEarly bool
}

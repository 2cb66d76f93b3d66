package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/onnwee/ytchat-tender/crawl"
)

// base holds the query implementations shared by both dialects. Query text is
// written with '?' placeholders; rebind converts them for the dialect.
type base struct {
	db     *sql.DB
	rebind func(string) string
}

func (b *base) Close() error { return b.db.Close() }

func (b *base) UpsertVideo(ctx context.Context, v crawl.VideoDescriptor) error {
	categories, err := jsonText(v.Categories)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	tags, err := jsonText(v.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	q := b.rebind(`INSERT INTO videos (
			video_id, title, upload_date, duration, view_count, channel_id,
			channel_name, description, is_live, was_live, live_start_timestamp,
			live_end_timestamp, release_timestamp, thumbnail, categories, tags,
			like_count, comment_count, live_status, availability, uploader, uploader_id
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(video_id) DO UPDATE SET
			title=excluded.title,
			upload_date=excluded.upload_date,
			duration=excluded.duration,
			view_count=excluded.view_count,
			channel_id=excluded.channel_id,
			channel_name=excluded.channel_name,
			description=excluded.description,
			is_live=excluded.is_live,
			was_live=excluded.was_live,
			live_start_timestamp=excluded.live_start_timestamp,
			live_end_timestamp=excluded.live_end_timestamp,
			release_timestamp=excluded.release_timestamp,
			thumbnail=excluded.thumbnail,
			categories=excluded.categories,
			tags=excluded.tags,
			like_count=excluded.like_count,
			comment_count=excluded.comment_count,
			live_status=excluded.live_status,
			availability=excluded.availability,
			uploader=excluded.uploader,
			uploader_id=excluded.uploader_id`)
	_, err = b.db.ExecContext(ctx, q,
		v.VideoID, v.Title, v.UploadDate, v.Duration, v.ViewCount, v.ChannelID,
		v.ChannelName, v.Description, v.IsLive, v.WasLive, v.LiveStartTimestamp,
		v.LiveEndTimestamp, v.ReleaseTimestamp, v.Thumbnail, categories, tags,
		v.LikeCount, v.CommentCount, v.LiveStatus, v.Availability, v.Uploader, v.UploaderID)
	if err != nil {
		return fmt.Errorf("upsert video %s: %w", v.VideoID, err)
	}
	return nil
}

func (b *base) InsertMessages(ctx context.Context, msgs []crawl.ChatMessageRecord) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := b.rebind(`INSERT INTO chat_messages (
			message_id, video_id, author_name, author_id, message,
			timestamp_usec, timestamp_text, message_type,
			superchat_amount, superchat_currency, badges, emotes
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(video_id, message_id) DO NOTHING`)
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, m := range msgs {
		badges, err := jsonText(m.Badges)
		if err != nil {
			return 0, fmt.Errorf("encode badges for %s: %w", m.MessageID, err)
		}
		emotes, err := jsonText(m.Emotes)
		if err != nil {
			return 0, fmt.Errorf("encode emotes for %s: %w", m.MessageID, err)
		}
		res, err := stmt.ExecContext(ctx,
			m.MessageID, m.VideoID, m.AuthorName, m.AuthorID, m.Message,
			m.TimestampUsec, m.TimestampText, m.MessageType,
			m.SuperchatAmount, m.SuperchatCurrency, badges, emotes)
		if err != nil {
			return 0, fmt.Errorf("insert message %s: %w", m.MessageID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit messages: %w", err)
	}
	return inserted, nil
}

func (b *base) HasMessages(ctx context.Context, videoID string) (bool, error) {
	q := b.rebind(`SELECT EXISTS (SELECT 1 FROM chat_messages WHERE video_id = ?)`)
	var exists bool
	if err := b.db.QueryRowContext(ctx, q, videoID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check messages for %s: %w", videoID, err)
	}
	return exists, nil
}

func (b *base) GetVideo(ctx context.Context, videoID string) (crawl.VideoDescriptor, error) {
	q := b.rebind(`SELECT video_id, title, upload_date, duration, view_count,
			channel_id, channel_name, description, is_live, was_live,
			live_start_timestamp, live_end_timestamp, release_timestamp,
			thumbnail, categories, tags, like_count, comment_count,
			live_status, availability, uploader, uploader_id
		FROM videos WHERE video_id = ?`)
	var v crawl.VideoDescriptor
	var categories, tags sql.NullString
	err := b.db.QueryRowContext(ctx, q, videoID).Scan(
		&v.VideoID, &v.Title, &v.UploadDate, &v.Duration, &v.ViewCount,
		&v.ChannelID, &v.ChannelName, &v.Description, &v.IsLive, &v.WasLive,
		&v.LiveStartTimestamp, &v.LiveEndTimestamp, &v.ReleaseTimestamp,
		&v.Thumbnail, &categories, &tags, &v.LikeCount, &v.CommentCount,
		&v.LiveStatus, &v.Availability, &v.Uploader, &v.UploaderID)
	if err == sql.ErrNoRows {
		return crawl.VideoDescriptor{}, fmt.Errorf("video %s: %w", videoID, sql.ErrNoRows)
	}
	if err != nil {
		return crawl.VideoDescriptor{}, fmt.Errorf("get video %s: %w", videoID, err)
	}
	if err := jsonList(categories, &v.Categories); err != nil {
		return crawl.VideoDescriptor{}, fmt.Errorf("decode categories: %w", err)
	}
	if err := jsonList(tags, &v.Tags); err != nil {
		return crawl.VideoDescriptor{}, fmt.Errorf("decode tags: %w", err)
	}
	return v, nil
}

func (b *base) ListVideos(ctx context.Context, channelID string) ([]VideoSummary, error) {
	q := `SELECT v.video_id, v.title, v.upload_date, v.duration, v.view_count,
			v.live_status, COUNT(m.id)
		FROM videos v
		LEFT JOIN chat_messages m ON m.video_id = v.video_id`
	var args []any
	if channelID != "" {
		q += ` WHERE v.channel_id = ?`
		args = append(args, channelID)
	}
	q += ` GROUP BY v.video_id, v.title, v.upload_date, v.duration, v.view_count, v.live_status
		ORDER BY v.upload_date DESC, v.video_id`

	rows, err := b.db.QueryContext(ctx, b.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var out []VideoSummary
	for rows.Next() {
		var s VideoSummary
		if err := rows.Scan(&s.VideoID, &s.Title, &s.UploadDate, &s.Duration,
			&s.ViewCount, &s.LiveStatus, &s.MessageCount); err != nil {
			return nil, fmt.Errorf("scan video summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (b *base) MessagesForVideo(ctx context.Context, videoID string) ([]crawl.ChatMessageRecord, error) {
	q := b.rebind(`SELECT message_id, video_id, author_name, author_id, message,
			timestamp_usec, timestamp_text, message_type,
			superchat_amount, superchat_currency, badges, emotes
		FROM chat_messages WHERE video_id = ? ORDER BY timestamp_usec`)
	rows, err := b.db.QueryContext(ctx, q, videoID)
	if err != nil {
		return nil, fmt.Errorf("load messages for %s: %w", videoID, err)
	}
	defer rows.Close()

	var out []crawl.ChatMessageRecord
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (b *base) Stats(ctx context.Context, channelID string) (Stats, error) {
	var st Stats
	where, args := "", []any(nil)
	if channelID != "" {
		where = ` WHERE v.channel_id = ?`
		args = append(args, channelID)
	}

	q := b.rebind(`SELECT COUNT(DISTINCT v.video_id),
			COUNT(m.id),
			COUNT(DISTINCT m.author_id),
			COALESCE(SUM(CASE WHEN m.message_type = 'superchat' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN m.message_type = 'membership' THEN 1 ELSE 0 END), 0),
			COALESCE(MIN(v.upload_date), ''),
			COALESCE(MAX(v.upload_date), '')
		FROM videos v
		LEFT JOIN chat_messages m ON m.video_id = v.video_id` + where)
	err := b.db.QueryRowContext(ctx, q, args...).Scan(
		&st.Videos, &st.Messages, &st.UniqueAuthors,
		&st.Superchats, &st.Memberships, &st.FirstDate, &st.LastDate)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	return st, nil
}

func (b *base) TopChatters(ctx context.Context, videoID string, limit int) ([]ChatterCount, error) {
	if limit <= 0 {
		limit = 10
	}
	q := `SELECT author_name, author_id, COUNT(*) AS n FROM chat_messages`
	var args []any
	if videoID != "" {
		q += ` WHERE video_id = ?`
		args = append(args, videoID)
	}
	q += ` GROUP BY author_name, author_id ORDER BY n DESC, author_name LIMIT ?`
	args = append(args, limit)

	rows, err := b.db.QueryContext(ctx, b.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("top chatters: %w", err)
	}
	defer rows.Close()

	var out []ChatterCount
	for rows.Next() {
		var c ChatterCount
		if err := rows.Scan(&c.AuthorName, &c.AuthorID, &c.Messages); err != nil {
			return nil, fmt.Errorf("scan chatter: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (b *base) ExportRows(ctx context.Context, videoID string) ([]ExportRow, error) {
	q := `SELECT m.message_id, m.video_id, m.author_name, m.author_id, m.message,
			m.timestamp_usec, m.timestamp_text, m.message_type,
			m.superchat_amount, m.superchat_currency, m.badges, m.emotes,
			COALESCE(v.title, '')
		FROM chat_messages m
		LEFT JOIN videos v ON v.video_id = m.video_id`
	var args []any
	if videoID != "" {
		q += ` WHERE m.video_id = ?`
		args = append(args, videoID)
	}
	q += ` ORDER BY m.video_id, m.timestamp_usec`

	rows, err := b.db.QueryContext(ctx, b.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("export rows: %w", err)
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var r ExportRow
		var badges, emotes sql.NullString
		if err := rows.Scan(&r.MessageID, &r.VideoID, &r.AuthorName, &r.AuthorID,
			&r.Message, &r.TimestampUsec, &r.TimestampText, &r.MessageType,
			&r.SuperchatAmount, &r.SuperchatCurrency, &badges, &emotes,
			&r.VideoTitle); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		if err := jsonList(badges, &r.Badges); err != nil {
			return nil, fmt.Errorf("decode badges: %w", err)
		}
		if err := jsonList(emotes, &r.Emotes); err != nil {
			return nil, fmt.Errorf("decode emotes: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanMessage(rows *sql.Rows) (crawl.ChatMessageRecord, error) {
	var m crawl.ChatMessageRecord
	var badges, emotes sql.NullString
	if err := rows.Scan(&m.MessageID, &m.VideoID, &m.AuthorName, &m.AuthorID,
		&m.Message, &m.TimestampUsec, &m.TimestampText, &m.MessageType,
		&m.SuperchatAmount, &m.SuperchatCurrency, &badges, &emotes); err != nil {
		return crawl.ChatMessageRecord{}, fmt.Errorf("scan message: %w", err)
	}
	if err := jsonList(badges, &m.Badges); err != nil {
		return crawl.ChatMessageRecord{}, fmt.Errorf("decode badges: %w", err)
	}
	if err := jsonList(emotes, &m.Emotes); err != nil {
		return crawl.ChatMessageRecord{}, fmt.Errorf("decode emotes: %w", err)
	}
	return m, nil
}

// jsonText encodes a slice as JSON text for storage; empty slices store NULL
// to keep rows compact.
func jsonText(v any) (sql.NullString, error) {
	switch s := v.(type) {
	case []string:
		if len(s) == 0 {
			return sql.NullString{}, nil
		}
	case []crawl.Emote:
		if len(s) == 0 {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func jsonList[T any](src sql.NullString, dst *T) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(src.String), dst)
}

// Package youtubeapi implements the crawl provider interfaces against
// YouTube: video metadata through the Data API and chat history through the
// live chat replay endpoint.
package youtubeapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/onnwee/ytchat-tender/crawl"
)

// listPageCap bounds how many result pages a single listing walks. Channels
// with enormous archives are narrowed by filters afterwards anyway.
const listPageCap = 4

// Client implements crawl.MetadataProvider on the YouTube Data API.
type Client struct {
	svc *yt.Service
	log *slog.Logger
}

// NewClient builds a Data API client. An access token takes precedence over
// an API key; extra options (custom endpoint, http client) are appended last
// so tests can override the transport.
func NewClient(ctx context.Context, apiKey, accessToken string, extra ...option.ClientOption) (*Client, error) {
	var opts []option.ClientOption
	switch {
	case accessToken != "":
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
		opts = append(opts, option.WithTokenSource(src))
	case apiKey != "":
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	opts = append(opts, extra...)

	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &Client{
		svc: svc,
		log: slog.Default().With(slog.String("component", "youtubeapi")),
	}, nil
}

// LookupChannel resolves a channel URL to its canonical UC id. The URL form
// picks the API query: /channel/ verifies the id, @handle and /user/ use the
// dedicated filters, /c/ custom URLs fall back to a channel search.
func (c *Client) LookupChannel(ctx context.Context, channelURL string) (string, error) {
	u, err := url.Parse(channelURL)
	if err != nil {
		return "", fmt.Errorf("parse channel url: %w", err)
	}
	path := strings.Trim(u.Path, "/")

	call := c.svc.Channels.List([]string{"id"}).MaxResults(1)
	switch {
	case strings.HasPrefix(path, "channel/"):
		call = call.Id(strings.TrimPrefix(path, "channel/"))
	case strings.HasPrefix(path, "@"):
		call = call.ForHandle(path)
	case strings.HasPrefix(path, "user/"):
		call = call.ForUsername(strings.TrimPrefix(path, "user/"))
	case strings.HasPrefix(path, "c/"):
		return c.lookupByCustomURL(ctx, strings.TrimPrefix(path, "c/"))
	default:
		return "", crawl.ErrLookupMiss
	}

	res, err := call.Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("channels.list: %w", err)
	}
	if len(res.Items) == 0 {
		return "", crawl.ErrLookupMiss
	}
	return res.Items[0].Id, nil
}

// lookupByCustomURL has no direct API filter; a channel-type search for the
// name is the documented workaround.
func (c *Client) lookupByCustomURL(ctx context.Context, name string) (string, error) {
	res, err := c.svc.Search.List([]string{"snippet"}).
		Q(name).Type("channel").MaxResults(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("search channel %q: %w", name, err)
	}
	if len(res.Items) == 0 || res.Items[0].Snippet == nil {
		return "", crawl.ErrLookupMiss
	}
	return res.Items[0].Snippet.ChannelId, nil
}

// ListStreams enumerates the channel's completed and ongoing broadcasts,
// newest first.
func (c *Client) ListStreams(ctx context.Context, channelID string) ([]crawl.VideoDescriptor, error) {
	var ids []string
	for _, eventType := range []string{"completed", "live"} {
		pageIDs, err := c.searchVideoIDs(ctx, func(call *yt.SearchListCall) *yt.SearchListCall {
			return call.ChannelId(channelID).EventType(eventType)
		})
		if err != nil {
			return nil, fmt.Errorf("list %s broadcasts: %w", eventType, err)
		}
		ids = append(ids, pageIDs...)
	}
	return c.hydrate(ctx, ids)
}

// ListVideos enumerates the channel's uploads playlist, newest first.
func (c *Client) ListVideos(ctx context.Context, channelID string) ([]crawl.VideoDescriptor, error) {
	ch, err := c.svc.Channels.List([]string{"contentDetails"}).Id(channelID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("channels.list contentDetails: %w", err)
	}
	if len(ch.Items) == 0 || ch.Items[0].ContentDetails == nil {
		return nil, nil
	}
	uploads := ch.Items[0].ContentDetails.RelatedPlaylists.Uploads
	if uploads == "" {
		return nil, nil
	}

	var ids []string
	pageToken := ""
	for page := 0; page < listPageCap; page++ {
		res, err := c.svc.PlaylistItems.List([]string{"contentDetails"}).
			PlaylistId(uploads).MaxResults(50).PageToken(pageToken).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("playlistitems.list: %w", err)
		}
		for _, it := range res.Items {
			if it.ContentDetails != nil && it.ContentDetails.VideoId != "" {
				ids = append(ids, it.ContentDetails.VideoId)
			}
		}
		pageToken = res.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return c.hydrate(ctx, ids)
}

// Search runs a general video search, newest first.
func (c *Client) Search(ctx context.Context, query string) ([]crawl.VideoDescriptor, error) {
	ids, err := c.searchVideoIDs(ctx, func(call *yt.SearchListCall) *yt.SearchListCall {
		return call.Q(query)
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return c.hydrate(ctx, ids)
}

func (c *Client) searchVideoIDs(ctx context.Context, narrow func(*yt.SearchListCall) *yt.SearchListCall) ([]string, error) {
	var ids []string
	pageToken := ""
	for page := 0; page < listPageCap; page++ {
		call := c.svc.Search.List([]string{"id"}).
			Type("video").Order("date").MaxResults(50).PageToken(pageToken)
		res, err := narrow(call).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		for _, it := range res.Items {
			if it.Id != nil && it.Id.VideoId != "" {
				ids = append(ids, it.Id.VideoId)
			}
		}
		pageToken = res.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return ids, nil
}

// hydrate loads full metadata for the ids in batches of 50, preserving the
// input order.
func (c *Client) hydrate(ctx context.Context, ids []string) ([]crawl.VideoDescriptor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	byID := make(map[string]crawl.VideoDescriptor, len(ids))
	parts := []string{"snippet", "contentDetails", "statistics", "liveStreamingDetails", "status", "topicDetails"}

	for start := 0; start < len(ids); start += 50 {
		end := start + 50
		if end > len(ids) {
			end = len(ids)
		}
		res, err := c.svc.Videos.List(parts).
			Id(strings.Join(ids[start:end], ",")).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("videos.list: %w", err)
		}
		for _, v := range res.Items {
			byID[v.Id] = descriptorFromVideo(v)
		}
	}

	out := make([]crawl.VideoDescriptor, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func descriptorFromVideo(v *yt.Video) crawl.VideoDescriptor {
	d := crawl.VideoDescriptor{VideoID: v.Id}
	if sn := v.Snippet; sn != nil {
		d.Title = sn.Title
		d.Description = sn.Description
		d.ChannelID = sn.ChannelId
		d.ChannelName = sn.ChannelTitle
		d.Uploader = sn.ChannelTitle
		d.UploaderID = sn.ChannelId
		d.Tags = sn.Tags
		d.UploadDate = compactDate(sn.PublishedAt)
		d.Thumbnail = bestThumbnail(sn.Thumbnails)
		d.IsLive = sn.LiveBroadcastContent == "live"
	}
	if cd := v.ContentDetails; cd != nil {
		d.Duration = parseISO8601Duration(cd.Duration)
	}
	if st := v.Statistics; st != nil {
		d.ViewCount = int64(st.ViewCount)
		d.LikeCount = int64(st.LikeCount)
		d.CommentCount = int64(st.CommentCount)
	}
	if ls := v.LiveStreamingDetails; ls != nil {
		d.LiveStartTimestamp = unixOrZero(ls.ActualStartTime)
		d.LiveEndTimestamp = unixOrZero(ls.ActualEndTime)
		d.ReleaseTimestamp = unixOrZero(ls.ScheduledStartTime)
		d.WasLive = ls.ActualEndTime != ""
		if ls.ActualStartTime != "" && ls.ActualEndTime == "" {
			d.IsLive = true
		}
	}
	switch {
	case d.IsLive:
		d.LiveStatus = "is_live"
	case d.WasLive:
		d.LiveStatus = "was_live"
	default:
		d.LiveStatus = "not_live"
	}
	if st := v.Status; st != nil {
		d.Availability = st.PrivacyStatus
	}
	if td := v.TopicDetails; td != nil {
		for _, u := range td.TopicCategories {
			if i := strings.LastIndex(u, "/"); i >= 0 && i+1 < len(u) {
				d.Categories = append(d.Categories, strings.ReplaceAll(u[i+1:], "_", " "))
			}
		}
	}
	return d
}

// compactDate converts an RFC3339 timestamp to the YYYYMMDD form used
// throughout the archive. Unknown in, empty out.
func compactDate(rfc3339 string) string {
	if rfc3339 == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return ""
	}
	return t.UTC().Format("20060102")
}

func unixOrZero(rfc3339 string) int64 {
	if rfc3339 == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return 0
	}
	return t.Unix()
}

func bestThumbnail(t *yt.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*yt.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

// parseISO8601Duration handles the PT#H#M#S durations the Data API returns.
// Malformed input yields 0.
func parseISO8601Duration(s string) int {
	s = strings.TrimPrefix(s, "P")
	if s == "" {
		return 0
	}
	var days, total int
	if i := strings.Index(s, "T"); i >= 0 {
		if i > 0 {
			fmt.Sscanf(s[:i], "%dD", &days)
		}
		s = s[i+1:]
	} else if strings.HasSuffix(s, "D") {
		fmt.Sscanf(s, "%dD", &days)
		s = ""
	}
	total = days * 86400

	num := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num = num*10 + int(r-'0')
		case r == 'H':
			total += num * 3600
			num = 0
		case r == 'M':
			total += num * 60
			num = 0
		case r == 'S':
			total += num
			num = 0
		default:
			return 0
		}
	}
	return total
}

package crawl

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// MetadataProvider enumerates channel and video metadata. Implementations
// must return videos newest-first; the incremental halt policy depends on it.
type MetadataProvider interface {
	// LookupChannel resolves a candidate channel URL to the canonical
	// channel id, or ErrLookupMiss when the URL does not identify a channel.
	LookupChannel(ctx context.Context, channelURL string) (string, error)
	// ListStreams enumerates the channel's streams listing.
	ListStreams(ctx context.Context, channelID string) ([]VideoDescriptor, error)
	// ListVideos enumerates the channel's uploads listing.
	ListVideos(ctx context.Context, channelID string) ([]VideoDescriptor, error)
	// Search runs a general keyword search.
	Search(ctx context.Context, query string) ([]VideoDescriptor, error)
}

// searchKeywords is the livestream vocabulary used by the search fallback,
// covering the languages the archive most often encounters.
var searchKeywords = []string{"live", "live stream", "直播", "실시간", "ライブ"}

// Resolver turns a user-supplied channel reference into a canonical channel
// id and its livestream videos. Stateless; every call hits the provider.
type Resolver struct {
	meta MetadataProvider
	log  *slog.Logger
}

func NewResolver(meta MetadataProvider) *Resolver {
	return &Resolver{meta: meta, log: slog.Default().With(slog.String("component", "resolver"))}
}

// Resolve tries the URL-pattern strategies in fixed order, then falls back to
// a multilingual livestream search. Returns ErrChannelNotFound when no
// strategy yields a canonical id, and ErrNoLivestreams (with the resolved id)
// when the channel exists but no qualifying videos were found anywhere.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, []VideoDescriptor, error) {
	name := strings.TrimPrefix(strings.TrimSpace(ref), "@")
	if name == "" {
		return "", nil, ErrChannelNotFound
	}

	var channelID string
	for _, u := range candidateURLs(name) {
		id, err := r.meta.LookupChannel(ctx, u)
		if err != nil {
			if !errors.Is(err, ErrLookupMiss) {
				r.log.Debug("channel lookup failed", slog.String("url", u), slog.Any("err", err))
			}
			continue
		}
		if channelID == "" {
			channelID = id
		}
		vids, err := r.listLive(ctx, id)
		if err != nil {
			r.log.Debug("listing failed", slog.String("channel_id", id), slog.Any("err", err))
			continue
		}
		if len(vids) > 0 {
			r.log.Info("channel resolved",
				slog.String("url", u), slog.String("channel_id", id), slog.Int("videos", len(vids)))
			return id, vids, nil
		}
	}

	// No direct strategy produced candidates; search for the channel's
	// livestreams by keyword.
	vids := r.searchFallback(ctx, name)
	if len(vids) > 0 {
		if channelID == "" {
			channelID = vids[0].ChannelID
		}
		return channelID, vids, nil
	}

	if channelID == "" {
		return "", nil, ErrChannelNotFound
	}
	return channelID, nil, ErrNoLivestreams
}

// candidateURLs builds the lookup strategies for a cleaned reference. A raw
// UC… id addresses the channel directly; anything else is tried as a handle,
// a custom URL, and a legacy username, in that order.
func candidateURLs(name string) []string {
	if strings.HasPrefix(name, "UC") {
		return []string{"https://www.youtube.com/channel/" + name}
	}
	return []string{
		"https://www.youtube.com/@" + name,
		"https://www.youtube.com/c/" + name,
		"https://www.youtube.com/user/" + name,
	}
}

// listLive enumerates the streams listing first, then the uploads listing,
// keeping only descriptors carrying a livestream indicator.
func (r *Resolver) listLive(ctx context.Context, channelID string) ([]VideoDescriptor, error) {
	streams, err := r.meta.ListStreams(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if live := keepStreams(streams); len(live) > 0 {
		return live, nil
	}
	uploads, err := r.meta.ListVideos(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return keepStreams(uploads), nil
}

func (r *Resolver) searchFallback(ctx context.Context, name string) []VideoDescriptor {
	seen := make(map[string]struct{})
	var out []VideoDescriptor
	for _, kw := range searchKeywords {
		res, err := r.meta.Search(ctx, name+" "+kw)
		if err != nil {
			r.log.Debug("search failed", slog.String("keyword", kw), slog.Any("err", err))
			continue
		}
		for _, v := range keepStreams(res) {
			if _, ok := seen[v.VideoID]; ok {
				continue
			}
			seen[v.VideoID] = struct{}{}
			out = append(out, v)
		}
	}
	if len(out) > 0 {
		r.log.Info("resolved via search fallback", slog.Int("videos", len(out)))
	}
	return out
}

func keepStreams(vids []VideoDescriptor) []VideoDescriptor {
	out := make([]VideoDescriptor, 0, len(vids))
	for _, v := range vids {
		if v.IsStream() {
			out = append(out, v)
		}
	}
	return out
}

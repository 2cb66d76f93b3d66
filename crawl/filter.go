package crawl

import "time"

const uploadDateLayout = "20060102"

// FilterSpec narrows a resolved video list for one crawl invocation.
// Zero values leave the corresponding filter off.
type FilterSpec struct {
	StartDate  time.Time
	EndDate    time.Time
	StartIndex int
	EndIndex   int // exclusive; <= 0 means "to end"
	MaxVideos  int // 0 means no cap
}

// Apply narrows vids in the fixed order date -> index -> cap, preserving the
// input order. The order is not reorderable: the index window addresses
// positions in the already date-filtered list, so swapping the stages would
// change which videos a combined spec selects.
func (s FilterSpec) Apply(vids []VideoDescriptor) []VideoDescriptor {
	out := s.filterByDate(vids)
	out = s.filterByIndex(out)
	if s.MaxVideos > 0 && len(out) > s.MaxVideos {
		out = out[:s.MaxVideos]
	}
	return out
}

// filterByDate keeps descriptors whose upload date falls inside the
// configured bounds, inclusive on both ends. When any bound is set,
// descriptors with an unknown or unparseable upload date are excluded.
func (s FilterSpec) filterByDate(vids []VideoDescriptor) []VideoDescriptor {
	if s.StartDate.IsZero() && s.EndDate.IsZero() {
		return vids
	}
	out := make([]VideoDescriptor, 0, len(vids))
	for _, v := range vids {
		d, err := time.Parse(uploadDateLayout, v.UploadDate)
		if err != nil {
			continue
		}
		if !s.StartDate.IsZero() && d.Before(s.StartDate) {
			continue
		}
		if !s.EndDate.IsZero() && d.After(s.EndDate) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// filterByIndex keeps the [StartIndex, EndIndex) window of the list, 0-based,
// end exclusive. Out-of-range bounds clamp rather than error.
func (s FilterSpec) filterByIndex(vids []VideoDescriptor) []VideoDescriptor {
	start := s.StartIndex
	if start < 0 {
		start = 0
	}
	end := len(vids)
	if s.EndIndex > 0 && s.EndIndex < end {
		end = s.EndIndex
	}
	if start >= end {
		return nil
	}
	return vids[start:end]
}

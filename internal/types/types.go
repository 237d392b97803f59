package types

import "time"

// Topic is a label drawn from the configured topic catalog
type Topic string

// ChannelKind identifies the platform behind a channel
type ChannelKind string

const (
	ChannelFacebook ChannelKind = "facebook"
	ChannelTwitter  ChannelKind = "twitter"
)

// ChannelProfile holds the per-platform formatting rules for one channel.
// MaxLength is always positive once the config has been validated.
type ChannelProfile struct {
	ID          string      `json:"id" toml:"id"`
	Kind        ChannelKind `json:"kind" toml:"kind"`
	MaxLength   int         `json:"max_length" toml:"max_length"`
	IncludeTags bool        `json:"include_tags" toml:"include_tags"`
	RequireCTA  bool        `json:"require_cta" toml:"require_cta"`
	CTA         string      `json:"cta" toml:"cta"`
}

// MediaAsset is an image that can accompany a post.
// LocalPath is empty until the asset has been staged for a cycle.
type MediaAsset struct {
	URL       string `json:"url" toml:"url"`
	Topic     Topic  `json:"topic" toml:"topic"`
	MIMEType  string `json:"mime_type,omitempty" toml:"mime_type"`
	LocalPath string `json:"local_path,omitempty" toml:"-"`
}

// Staged reports whether the asset has a local file
func (m MediaAsset) Staged() bool {
	return m.LocalPath != ""
}

// CyclePlan is the per-cycle decision made by the selector
type CyclePlan struct {
	UseMedia        bool             `json:"use_media"`
	MediaAsset      *MediaAsset      `json:"media_asset,omitempty"`
	TopicsByChannel map[string]Topic `json:"topics_by_channel"`
}

// PostOutcome records a single publish attempt
type PostOutcome struct {
	Channel    string    `json:"channel"`
	Topic      Topic     `json:"topic"`
	Success    bool      `json:"success"`
	ExternalID string    `json:"external_id,omitempty"`
	Error      ErrorKind `json:"error,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	WithMedia  bool      `json:"with_media"`
	Fallback   bool      `json:"fallback_text"`
	Message    string    `json:"message,omitempty"`
}

// CycleReport aggregates every outcome of one cycle
type CycleReport struct {
	CycleID         string        `json:"cycle_id"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
	Region          string        `json:"region"`
	TrendCount      int           `json:"trend_count"`
	Trends          []string      `json:"trends,omitempty"`
	UsedMedia       bool          `json:"used_media"`
	MediaDowngraded bool          `json:"media_downgraded"`
	Outcomes        []PostOutcome `json:"outcomes"`
}

// Succeeded counts successful outcomes
func (r CycleReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Success {
			n++
		}
	}
	return n
}

// Failed counts failed outcomes
func (r CycleReport) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Duration is the wall time the cycle took
func (r CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

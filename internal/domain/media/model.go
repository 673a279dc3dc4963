package media

import "time"

const KindVideo = "video"

// Item is a media catalog entry. The sync core consumes the catalog
// read-only; upload and management live elsewhere.
type Item struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Kind         string    `json:"kind"`
	DurationMs   *int64    `json:"duration_ms,omitempty"`
	DurationSecs *int64    `json:"duration_secs,omitempty"`
	LocalPath    string    `json:"local_path"`
	Resolution   *string   `json:"resolution,omitempty"`
	FPS          *float64  `json:"fps,omitempty"`
	Codec        string    `json:"codec"`
	CreatedAt    time.Time `json:"created_at"`
}

// EffectiveDurationMs resolves the item duration in milliseconds, preferring
// the explicit millisecond field and falling back to whole seconds. The
// result is never below 1ms.
func (i Item) EffectiveDurationMs() int64 {
	var ms int64
	switch {
	case i.DurationMs != nil:
		ms = *i.DurationMs
	case i.DurationSecs != nil:
		ms = *i.DurationSecs * 1000
	}
	if ms < 1 {
		ms = 1
	}
	return ms
}

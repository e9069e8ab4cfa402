package stories

// ProcessingStatus is the state of the media processing of a story, only
// ready stories are visible.
type ProcessingStatus string

const (
	StatusPending ProcessingStatus = "pending"
	StatusReady   ProcessingStatus = "ready"
	StatusFailed  ProcessingStatus = "failed"
)

// Story represents a user story.
type Story struct {
	ID              string           `json:"id"`
	UserID          int              `json:"user_id"`
	Media           string           `json:"media"`
	Status          ProcessingStatus `json:"processing_status"`
	ExpiresAt       int64            `json:"expires_at"`
	DeviceTimestamp int64            `json:"device_timestamp"`
}

// IsActive reports whether the story is visible at now, in unix milliseconds.
func (s *Story) IsActive(now int64) bool {
	return s.Status == StatusReady && s.ExpiresAt > now
}

package types

// ExperimentOverview is the lightweight summary used to list experiments
// and to look one up without loading its body.
type ExperimentOverview struct {
	ExperimentID   string `json:"experiment_id"`
	Title          string `json:"title"`
	ImagePath      string `json:"image_path,omitempty"` // relative to the storage root
	LastUsedTimeMs int64  `json:"last_used_time_ms"`
	SortKey        int32  `json:"sort_key"`
	Archived       bool   `json:"archived"`
}

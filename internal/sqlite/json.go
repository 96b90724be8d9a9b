package sqlite

import "github.com/mesh-intelligence/journal/pkg/types"

// overviewJSON is one line of overviews.jsonl.
type overviewJSON struct {
	ExperimentID   string `json:"experiment_id"`
	Title          string `json:"title"`
	ImagePath      string `json:"image_path"`
	LastUsedTimeMs int64  `json:"last_used_time_ms"`
	SortKey        int32  `json:"sort_key"`
	Archived       bool   `json:"archived"`
}

func toOverviewJSON(o types.ExperimentOverview) overviewJSON {
	return overviewJSON{
		ExperimentID:   o.ExperimentID,
		Title:          o.Title,
		ImagePath:      o.ImagePath,
		LastUsedTimeMs: o.LastUsedTimeMs,
		SortKey:        o.SortKey,
		Archived:       o.Archived,
	}
}

func (j overviewJSON) overview() types.ExperimentOverview {
	return types.ExperimentOverview{
		ExperimentID:   j.ExperimentID,
		Title:          j.Title,
		ImagePath:      j.ImagePath,
		LastUsedTimeMs: j.LastUsedTimeMs,
		SortKey:        j.SortKey,
		Archived:       j.Archived,
	}
}

package types

import "fmt"

// Schema versions this code reads and writes. Major versions are breaking;
// minor versions only add fields and can always be upgraded in place.
const (
	CurrentMajorVersion int32 = 1
	CurrentMinorVersion int32 = 1
)

// Version is the (major, minor) pair stamped on every stored schema.
type Version struct {
	Major int32 `json:"major"`
	Minor int32 `json:"minor"`
}

// CurrentVersion returns the version new experiments are stamped with.
func CurrentVersion() Version {
	return Version{Major: CurrentMajorVersion, Minor: CurrentMinorVersion}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Label types.
const (
	LabelTypeText    = "text"
	LabelTypePicture = "picture"
	LabelTypeSensor  = "sensor"
)

// Label is a note attached to an experiment.
type Label struct {
	LabelID        string `json:"label_id"`
	LabelType      string `json:"label_type"`
	CreationTimeMs int64  `json:"creation_time_ms"`
	Text           string `json:"text,omitempty"`
	FilePath       string `json:"file_path,omitempty"` // relative to the experiment directory
}

// SensorLayout records which sensor a card shows and where.
type SensorLayout struct {
	SensorID     string `json:"sensor_id"`
	CardPosition int32  `json:"card_position"`
}

// ExperimentSchema is the full stored body of an experiment. The cache only
// interprets Version; the remaining fields are payload.
type ExperimentSchema struct {
	Version        Version        `json:"version"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	CreationTimeMs int64          `json:"creation_time_ms"`
	SortKey        int32          `json:"sort_key"`
	Archived       bool           `json:"archived"`
	Labels         []Label        `json:"labels,omitempty"`
	SensorLayouts  []SensorLayout `json:"sensor_layouts,omitempty"`
}

// Clone returns a deep copy of the schema.
func (s *ExperimentSchema) Clone() *ExperimentSchema {
	if s == nil {
		return nil
	}
	c := *s
	if s.Labels != nil {
		c.Labels = append([]Label(nil), s.Labels...)
	}
	if s.SensorLayouts != nil {
		c.SensorLayouts = append([]SensorLayout(nil), s.SensorLayouts...)
	}
	return &c
}

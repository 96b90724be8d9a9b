package types

import "time"

// Experiment is the in-memory, mutable record the cache keeps active. It
// wraps the stored schema together with its overview; mutators keep the
// two consistent.
type Experiment struct {
	schema   *ExperimentSchema
	overview *ExperimentOverview
}

// NewExperiment creates a fresh experiment stamped with the current schema
// version. The overview's last-used time starts at the creation time.
func NewExperiment(creationTimeMs int64, experimentID string, sortKey int32) *Experiment {
	return &Experiment{
		schema: &ExperimentSchema{
			Version:        CurrentVersion(),
			CreationTimeMs: creationTimeMs,
			SortKey:        sortKey,
		},
		overview: &ExperimentOverview{
			ExperimentID:   experimentID,
			LastUsedTimeMs: creationTimeMs,
			SortKey:        sortKey,
		},
	}
}

// FromExperiment reconstitutes an experiment from a decoded schema and the
// overview it was looked up by. Title, sort key and archived state are
// taken from the schema, which is authoritative for them.
func FromExperiment(schema *ExperimentSchema, overview ExperimentOverview) *Experiment {
	overview.Title = schema.Title
	overview.SortKey = schema.SortKey
	overview.Archived = schema.Archived
	return &Experiment{schema: schema, overview: &overview}
}

// ID returns the experiment identifier.
func (e *Experiment) ID() string { return e.overview.ExperimentID }

// Schema returns the stored body. Callers must not retain it across
// mutations of the experiment.
func (e *Experiment) Schema() *ExperimentSchema { return e.schema }

// Overview returns a copy of the current overview.
func (e *Experiment) Overview() ExperimentOverview { return *e.overview }

func (e *Experiment) Title() string         { return e.schema.Title }
func (e *Experiment) Description() string   { return e.schema.Description }
func (e *Experiment) CreationTimeMs() int64 { return e.schema.CreationTimeMs }
func (e *Experiment) SortKey() int32        { return e.schema.SortKey }
func (e *Experiment) Archived() bool        { return e.schema.Archived }
func (e *Experiment) ImagePath() string     { return e.overview.ImagePath }
func (e *Experiment) LastUsedTimeMs() int64 { return e.overview.LastUsedTimeMs }
func (e *Experiment) Version() Version      { return e.schema.Version }
func (e *Experiment) Labels() []Label       { return append([]Label(nil), e.schema.Labels...) }
func (e *Experiment) SensorLayouts() []SensorLayout {
	return append([]SensorLayout(nil), e.schema.SensorLayouts...)
}

// SetTitle updates the title in both the schema and the overview.
func (e *Experiment) SetTitle(title string) {
	e.schema.Title = title
	e.overview.Title = title
}

func (e *Experiment) SetDescription(description string) {
	e.schema.Description = description
}

// SetImagePath sets the cover image path shown in listings.
func (e *Experiment) SetImagePath(path string) {
	e.overview.ImagePath = path
}

func (e *Experiment) SetArchived(archived bool) {
	e.schema.Archived = archived
	e.overview.Archived = archived
}

// SetLastUsedTime records when the experiment was last opened.
func (e *Experiment) SetLastUsedTime(t time.Time) {
	e.overview.LastUsedTimeMs = t.UnixMilli()
}

// AddLabel appends a label. Returns ErrInvalidLabel when the label has no
// ID or an unknown type.
func (e *Experiment) AddLabel(label Label) error {
	if label.LabelID == "" {
		return ErrInvalidLabel
	}
	switch label.LabelType {
	case LabelTypeText, LabelTypePicture, LabelTypeSensor:
	default:
		return ErrInvalidLabel
	}
	e.schema.Labels = append(e.schema.Labels, label)
	return nil
}

// SetSensorLayouts replaces the sensor card layout.
func (e *Experiment) SetSensorLayouts(layouts []SensorLayout) {
	if len(layouts) == 0 {
		e.schema.SensorLayouts = nil
		return
	}
	e.schema.SensorLayouts = append([]SensorLayout(nil), layouts...)
}

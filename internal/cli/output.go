package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mesh-intelligence/journal/internal/controller"
	"github.com/mesh-intelligence/journal/pkg/types"
)

// await blocks until the controller call started by start completes.
func await[T any](start func(controller.Consumer[T])) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	start(controller.ConsumerFuncs[T]{
		OnSuccess: func(v T) { ch <- result{v: v} },
		OnFail:    func(err error) { ch <- result{err: err} },
	})
	r := <-ch
	return r.v, r.err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// experimentView is the JSON form of an experiment.
type experimentView struct {
	ExperimentID   string               `json:"experiment_id"`
	Title          string               `json:"title"`
	Description    string               `json:"description,omitempty"`
	Version        string               `json:"version"`
	CreationTimeMs int64                `json:"creation_time_ms"`
	LastUsedTimeMs int64                `json:"last_used_time_ms"`
	SortKey        int32                `json:"sort_key"`
	Archived       bool                 `json:"archived"`
	ImagePath      string               `json:"image_path,omitempty"`
	Labels         []types.Label        `json:"labels,omitempty"`
	SensorLayouts  []types.SensorLayout `json:"sensor_layouts,omitempty"`
}

func viewOf(exp *types.Experiment) experimentView {
	return experimentView{
		ExperimentID:   exp.ID(),
		Title:          exp.Title(),
		Description:    exp.Description(),
		Version:        exp.Version().String(),
		CreationTimeMs: exp.CreationTimeMs(),
		LastUsedTimeMs: exp.LastUsedTimeMs(),
		SortKey:        exp.SortKey(),
		Archived:       exp.Archived(),
		ImagePath:      exp.ImagePath(),
		Labels:         exp.Labels(),
		SensorLayouts:  exp.SensorLayouts(),
	}
}

func printExperiment(w io.Writer, exp *types.Experiment, jsonMode bool) error {
	if jsonMode {
		return printJSON(w, viewOf(exp))
	}
	fmt.Fprintf(w, "ID:          %s\n", exp.ID())
	fmt.Fprintf(w, "Title:       %s\n", exp.Title())
	if exp.Description() != "" {
		fmt.Fprintf(w, "Description: %s\n", exp.Description())
	}
	fmt.Fprintf(w, "Version:     %s\n", exp.Version())
	fmt.Fprintf(w, "Created:     %s\n", formatMs(exp.CreationTimeMs()))
	fmt.Fprintf(w, "Last used:   %s\n", formatMs(exp.LastUsedTimeMs()))
	fmt.Fprintf(w, "Archived:    %t\n", exp.Archived())
	if exp.ImagePath() != "" {
		fmt.Fprintf(w, "Image:       %s\n", exp.ImagePath())
	}
	fmt.Fprintf(w, "Labels:      %d\n", len(exp.Labels()))
	return nil
}

func formatMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

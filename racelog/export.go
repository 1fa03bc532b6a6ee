package racelog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ExportVersion is written to every export header.
const ExportVersion = 1

// ExportHeader is the YAML half of an episode export.
type ExportHeader struct {
	Version      int      `yaml:"export_version"`
	Sources      []string `yaml:"sources,omitempty"`
	EpisodeCount int      `yaml:"episode_count"`
	EventCount   int      `yaml:"event_count"`
	Meta         LogMeta  `yaml:"meta"`
}

// exportColumns are the CSV columns: raw fields first, then derived.
var exportColumns = []string{
	"episode", "step", "iteration", "quarter",
	"x", "y", "heading", "steering_angle", "speed", "action", "reward",
	"done", "all_wheels_on_track", "progress", "closest_waypoint",
	"track_length", "time", "status",
	"track_speed", "progress_speed", "true_bearing", "slide",
	"reward_total", "distance", "time_elapsed",
}

// ExportEpisodes writes the log metadata (YAML) and one CSV row per event of
// the given episodes to separate files. Debug text is not exported.
func ExportEpisodes(meta *LogMeta, sources []string, episodes []*Episode, headerPath, dataPath string) error {
	header := ExportHeader{
		Version:      ExportVersion,
		Sources:      sources,
		EpisodeCount: len(episodes),
		Meta:         *meta,
	}
	for _, ep := range episodes {
		header.EventCount += len(ep.Events)
	}

	headerData, err := yaml.Marshal(&header)
	if err != nil {
		return fmt.Errorf("marshaling export header: %w", err)
	}
	if err := os.WriteFile(headerPath, headerData, 0644); err != nil {
		return fmt.Errorf("writing export header: %w", err)
	}

	file, err := os.Create(dataPath)
	if err != nil {
		return fmt.Errorf("creating export data file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := writeEventRows(file, episodes); err != nil {
		return err
	}
	return nil
}

func writeEventRows(w io.Writer, episodes []*Episode) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, ep := range episodes {
		for _, e := range ep.Events {
			row := []string{
				strconv.Itoa(e.Episode),
				strconv.Itoa(e.Step),
				strconv.Itoa(ep.Iteration),
				strconv.Itoa(ep.Quarter),
				formatFloat(e.X),
				formatFloat(e.Y),
				formatFloat(e.Heading),
				formatFloat(e.SteeringAngle),
				formatFloat(e.Speed),
				strconv.Itoa(e.Action),
				formatFloat(e.Reward),
				strconv.FormatBool(e.Done),
				strconv.FormatBool(e.AllWheelsOnTrack),
				formatFloat(e.Progress),
				strconv.Itoa(e.ClosestWaypoint),
				formatFloat(e.TrackLength),
				formatFloat(e.Time),
				e.Status,
				formatFloat(e.TrackSpeed),
				formatFloat(e.ProgressSpeed),
				formatFloat(e.TrueBearing),
				formatFloat(e.Slide),
				formatFloat(e.RewardTotal),
				formatFloat(e.Distance),
				formatFloat(e.TimeElapsed),
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("writing CSV row for episode %d step %d: %w", e.Episode, e.Step, err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// LoadExport reads an export back. Events come back with their raw and
// derived fields as written; they are not regrouped into episodes.
func LoadExport(headerPath, dataPath string) (*ExportHeader, []*Event, error) {
	headerData, err := os.ReadFile(headerPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading export header: %w", err)
	}
	var header ExportHeader
	if err := yaml.Unmarshal(headerData, &header); err != nil {
		return nil, nil, fmt.Errorf("parsing export header: %w", err)
	}

	file, err := os.Open(dataPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening export data: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		return nil, nil, fmt.Errorf("reading CSV header: %w", err)
	}

	var events []*Event
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading CSV row: %w", err)
		}
		if len(row) < len(exportColumns) {
			return nil, nil, fmt.Errorf("%w: CSV row has %d columns, expected %d", ErrMalformed, len(row), len(exportColumns))
		}
		e, err := parseExportRow(row)
		if err != nil {
			return nil, nil, fmt.Errorf("CSV row %d: %w", len(events)+1, err)
		}
		events = append(events, e)
	}
	return &header, events, nil
}

func parseExportRow(row []string) (*Event, error) {
	p := fieldParser{fields: row}
	e := &Event{
		Episode:          p.intAt(0, "episode"),
		Step:             p.intAt(1, "step"),
		X:                p.floatAt(4, "x"),
		Y:                p.floatAt(5, "y"),
		Heading:          p.floatAt(6, "heading"),
		SteeringAngle:    p.floatAt(7, "steering_angle"),
		Speed:            p.floatAt(8, "speed"),
		Action:           p.intAt(9, "action"),
		Reward:           p.floatAt(10, "reward"),
		Done:             p.boolAt(11, "done"),
		AllWheelsOnTrack: p.boolAt(12, "all_wheels_on_track"),
		Progress:         p.floatAt(13, "progress"),
		ClosestWaypoint:  p.intAt(14, "closest_waypoint"),
		TrackLength:      p.floatAt(15, "track_length"),
		Time:             p.floatAt(16, "time"),
		Status:           row[17],
		TrackSpeed:       p.floatAt(18, "track_speed"),
		ProgressSpeed:    p.floatAt(19, "progress_speed"),
		TrueBearing:      p.floatAt(20, "true_bearing"),
		Slide:            p.floatAt(21, "slide"),
		RewardTotal:      p.floatAt(22, "reward_total"),
		Distance:         p.floatAt(23, "distance"),
		TimeElapsed:      p.floatAt(24, "time_elapsed"),
	}
	if p.err != nil {
		return nil, p.err
	}
	return e, nil
}

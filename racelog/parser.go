package racelog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LineKind classifies one line of a trace log.
type LineKind int

const (
	// LineDebug is free text, usually printed by the reward function. It is
	// attached to the next step record.
	LineDebug LineKind = iota
	LineHyperparameter
	LineRunParameter
	LineModelName
	LineActionSpace
	LineObjectLocations
	LineStep
	LineEvaluationReward
	LineEvaluationProgress
)

var lineKindNames = map[LineKind]string{
	LineDebug:              "debug",
	LineHyperparameter:     "hyperparameter",
	LineRunParameter:       "run-parameter",
	LineModelName:          "model-name",
	LineActionSpace:        "action-space",
	LineObjectLocations:    "object-locations",
	LineStep:               "step",
	LineEvaluationReward:   "evaluation-reward",
	LineEvaluationProgress: "evaluation-progress",
}

func (k LineKind) String() string {
	if s, ok := lineKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("LineKind(%d)", int(k))
}

const (
	stepMarker             = "SIM_TRACE_LOG:"
	sigtermMarker          = "sent SIGTERM"
	evaluationRewardPrefix = "Evaluation episode reward:"
	actionSpacePrefix      = "Action space from file:"
	objectLocationsPrefix  = "Object locations:"

	// stepFieldCount is the arity of the oldest step record still parsed.
	// Newer simulators append extra columns, which are ignored.
	stepFieldCount = 16
)

var (
	evaluationProgressPattern = regexp.MustCompile(`^Number of evaluations:\s*(\d+)\s+Evaluation progresses:\s*\[(.*)\]\s*$`)
	objectPointPattern        = regexp.MustCompile(`\(\s*([-+0-9.eE]+)\s*,\s*([-+0-9.eE]+)\s*\)`)

	modelNamePatterns = []struct {
		re      *regexp.Regexp
		extract func(path string) string
	}{
		{regexp.MustCompile(`^Successfully loaded model metadata from local file (\S+)`), modelNameFromLocalPath},
		{regexp.MustCompile(`^(?:\[s3\] )?Successfully downloaded model metadata from s3 key (\S+)`), modelNameFromKey},
		{regexp.MustCompile(`^(?:\[s3\] )?Successfully downloaded yaml file from s3 key (\S+)`), modelNameFromKey},
	}
)

// runParameters maps the ROS parameter dump labels onto LogMeta fields.
var runParameters = []struct {
	label string
	set   func(m *LogMeta, v string)
}{
	{"* /WORLD_NAME:", func(m *LogMeta, v string) { m.WorldName = v }},
	{"* /RACE_TYPE:", func(m *LogMeta, v string) { m.RaceType = v }},
	{"* /JOB_TYPE:", func(m *LogMeta, v string) { m.JobType = v }},
}

// hyperparameters maps the quoted JSON labels of the training settings dump
// onto Hyperparameters fields.
var hyperparameters = []struct {
	label string
	set   func(h *Hyperparameters, v string) error
}{
	{`"batch_size":`, intSetter(func(h *Hyperparameters, v int) { h.BatchSize = v })},
	{`"beta_entropy":`, floatSetter(func(h *Hyperparameters, v float64) { h.BetaEntropy = v })},
	{`"discount_factor":`, floatSetter(func(h *Hyperparameters, v float64) { h.DiscountFactor = v })},
	{`"loss_type":`, func(h *Hyperparameters, v string) error { h.LossType = v; return nil }},
	{`"lr":`, floatSetter(func(h *Hyperparameters, v float64) { h.LearningRate = v })},
	{`"num_episodes_between_training":`, intSetter(func(h *Hyperparameters, v int) { h.EpisodesPerIteration = v })},
	{`"num_epochs":`, intSetter(func(h *Hyperparameters, v int) { h.Epochs = v })},
	{`"exploration_type":`, func(h *Hyperparameters, v string) error { h.ExplorationType = v; return nil }},
	{`"stack_size":`, intSetter(func(h *Hyperparameters, v int) { h.StackSize = v })},
	{`"term_cond_max_episodes":`, intSetter(func(h *Hyperparameters, v int) { h.TermCondMaxEpisodes = v })},
	{`"term_cond_avg_score":`, floatSetter(func(h *Hyperparameters, v float64) { h.TermCondAvgScore = v })},
}

func intSetter(set func(*Hyperparameters, int)) func(*Hyperparameters, string) error {
	return func(h *Hyperparameters, v string) error {
		n, err := parseInt(v)
		if err != nil {
			return err
		}
		set(h, n)
		return nil
	}
}

func floatSetter(set func(*Hyperparameters, float64)) func(*Hyperparameters, string) error {
	return func(h *Hyperparameters, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		set(h, f)
		return nil
	}
}

// ClassifyLine reports which kind of record a raw log line holds.
// Anything unrecognised is LineDebug.
func ClassifyLine(line string) LineKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, stepMarker):
		return LineStep
	case strings.Contains(trimmed, sigtermMarker) && strings.Contains(trimmed, stepMarker):
		return LineStep
	case strings.HasPrefix(trimmed, evaluationRewardPrefix):
		return LineEvaluationReward
	case evaluationProgressPattern.MatchString(trimmed):
		return LineEvaluationProgress
	case strings.HasPrefix(trimmed, actionSpacePrefix):
		return LineActionSpace
	case strings.HasPrefix(trimmed, objectLocationsPrefix):
		return LineObjectLocations
	}
	for _, p := range hyperparameters {
		if strings.HasPrefix(trimmed, p.label) {
			return LineHyperparameter
		}
	}
	for _, p := range runParameters {
		if strings.HasPrefix(trimmed, p.label) {
			return LineRunParameter
		}
	}
	for _, p := range modelNamePatterns {
		if p.re.MatchString(trimmed) {
			return LineModelName
		}
	}
	return LineDebug
}

// ParseStep decodes a step record. The record may follow a forced
// termination notice on the same line; everything before the marker is
// ignored.
func ParseStep(line string) (*Event, error) {
	idx := strings.Index(line, stepMarker)
	if idx < 0 {
		return nil, fmt.Errorf("no %s marker", stepMarker)
	}
	fields := strings.Split(strings.TrimSpace(line[idx+len(stepMarker):]), ",")
	if len(fields) < stepFieldCount {
		return nil, fmt.Errorf("step record has %d fields, want at least %d", len(fields), stepFieldCount)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	p := fieldParser{fields: fields}
	e := &Event{
		Episode:          p.intAt(0, "episode"),
		Step:             p.intAt(1, "step"),
		X:                p.floatAt(2, "x"),
		Y:                p.floatAt(3, "y"),
		Heading:          p.floatAt(4, "heading"),
		SteeringAngle:    p.floatAt(5, "steering_angle"),
		Speed:            p.floatAt(6, "speed"),
		Action:           p.intAt(7, "action"),
		Reward:           p.floatAt(8, "reward"),
		Done:             p.boolAt(9, "done"),
		AllWheelsOnTrack: p.boolAt(10, "all_wheels_on_track"),
		Progress:         p.floatAt(11, "progress"),
		ClosestWaypoint:  p.intAt(12, "closest_waypoint"),
		TrackLength:      p.floatAt(13, "track_length"),
		Time:             p.floatAt(14, "time"),
		Status:           fields[15],
	}
	if p.err != nil {
		return nil, p.err
	}
	return e, nil
}

// fieldParser decodes positional fields, keeping the first error.
type fieldParser struct {
	fields []string
	err    error
}

func (p *fieldParser) fail(i int, name string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("field %d (%s) %q: %w", i, name, p.fields[i], err)
	}
}

func (p *fieldParser) intAt(i int, name string) int {
	n, err := parseInt(p.fields[i])
	if err != nil {
		p.fail(i, name, err)
	}
	return n
}

func (p *fieldParser) floatAt(i int, name string) float64 {
	f, err := strconv.ParseFloat(p.fields[i], 64)
	if err != nil {
		p.fail(i, name, err)
	}
	return f
}

func (p *fieldParser) boolAt(i int, name string) bool {
	b, err := strconv.ParseBool(p.fields[i])
	if err != nil {
		p.fail(i, name, err)
	}
	return b
}

// parseInt accepts integers written either plainly or as whole floats ("3.0").
func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return int(f), nil
}

// ParseEvaluationReward decodes the reward scalar of one evaluation episode.
func ParseEvaluationReward(line string) (float64, error) {
	v := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), evaluationRewardPrefix))
	r, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("evaluation reward %q: %w", v, err)
	}
	return r, nil
}

// ParseEvaluationProgresses decodes the progress list that closes an
// evaluation phase. The declared count must equal the number of values.
func ParseEvaluationProgresses(line string) ([]float64, error) {
	m := evaluationProgressPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return nil, fmt.Errorf("%w: not an evaluation progress line", ErrMalformed)
	}
	count, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("%w: evaluation count %q", ErrMalformed, m[1])
	}
	progresses, err := parseFloatList(m[2])
	if err != nil {
		return nil, fmt.Errorf("%w: evaluation progresses: %v", ErrMalformed, err)
	}
	if len(progresses) != count {
		return nil, fmt.Errorf("%w: %d evaluations declared but %d progresses listed", ErrMalformed, count, len(progresses))
	}
	return progresses, nil
}

func parseFloatList(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func modelNameFromKey(key string) string {
	key = strings.TrimSuffix(strings.TrimLeft(key, "/"), ".")
	if i := strings.Index(key, "/"); i > 0 {
		return key[:i]
	}
	return ""
}

func modelNameFromLocalPath(path string) string {
	parts := strings.FieldsFunc(strings.TrimSuffix(path, "."), func(r rune) bool { return r == '/' || r == '\\' })
	if len(parts) < 2 {
		return ""
	}
	name := parts[len(parts)-2]
	if name == "model" && len(parts) >= 3 {
		name = parts[len(parts)-3]
	}
	return name
}

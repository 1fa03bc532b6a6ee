package racelog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/racelog/racelog/racelog/geometry"
)

// ParseHeaderLine applies a header line (hyperparameter, run parameter,
// model name, action space or object locations) to meta. Lines of any
// other kind are ignored. Only the action space can fail fatally; a
// hyperparameter that does not decode is reported as an error for the
// caller to log.
func ParseHeaderLine(kind LineKind, line string, meta *LogMeta) error {
	trimmed := strings.TrimSpace(line)
	switch kind {
	case LineHyperparameter:
		return parseHyperparameter(trimmed, &meta.Hyperparameters)
	case LineRunParameter:
		for _, p := range runParameters {
			if strings.HasPrefix(trimmed, p.label) {
				p.set(meta, strings.TrimSpace(strings.TrimPrefix(trimmed, p.label)))
				return nil
			}
		}
	case LineModelName:
		if meta.ModelName != "" {
			return nil
		}
		for _, p := range modelNamePatterns {
			if m := p.re.FindStringSubmatch(trimmed); m != nil {
				meta.ModelName = p.extract(m[1])
				return nil
			}
		}
	case LineActionSpace:
		actions, err := ParseActionSpace(trimmed)
		if err != nil {
			return err
		}
		meta.ActionSpace = actions
	case LineObjectLocations:
		meta.ObjectLocations = ParseObjectLocations(trimmed)
	}
	return nil
}

func parseHyperparameter(line string, h *Hyperparameters) error {
	for _, p := range hyperparameters {
		if !strings.HasPrefix(line, p.label) {
			continue
		}
		v := strings.TrimSpace(strings.TrimPrefix(line, p.label))
		v = strings.TrimSuffix(v, ",")
		v = strings.Trim(strings.TrimSpace(v), `"`)
		if err := p.set(h, v); err != nil {
			return fmt.Errorf("hyperparameter %s %q: %w", strings.Trim(p.label, `":`), v, err)
		}
		return nil
	}
	return nil
}

// ParseActionSpace decodes the discrete action table. The table is written
// as a Python literal, so single quotes are normalised before decoding.
// Entry i must declare index i because the step records refer to actions
// by position.
func ParseActionSpace(line string) ([]Action, error) {
	body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), actionSpacePrefix))
	body = strings.ReplaceAll(body, "'", `"`)

	var actions []Action
	if err := json.Unmarshal([]byte(body), &actions); err != nil {
		return nil, fmt.Errorf("%w: action space: %v", ErrMalformed, err)
	}
	for i, a := range actions {
		if a.Index != i {
			return nil, fmt.Errorf("%w: action space entry %d declares index %d", ErrMalformed, i, a.Index)
		}
	}
	return actions, nil
}

// ParseObjectLocations extracts every "(x, y)" pair from an object
// locations line.
func ParseObjectLocations(line string) []geometry.Point {
	var points []geometry.Point
	for _, m := range objectPointPattern.FindAllStringSubmatch(line, -1) {
		x, errX := strconv.ParseFloat(m[1], 64)
		y, errY := strconv.ParseFloat(m[2], 64)
		if errX != nil || errY != nil {
			continue
		}
		points = append(points, geometry.Point{X: x, Y: y})
	}
	return points
}

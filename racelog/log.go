package racelog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// maxLineBytes caps a single log line; reward-function debug output can be
// long.
const maxLineBytes = 16 * 1024 * 1024

// Progress receives incremental progress of a long computation. done and
// total share a unit chosen by the caller (bytes for parsing, episodes for
// grid population).
type Progress interface {
	Report(done, total int64)
}

// LoadOptions configures LoadFile and LoadFiles.
type LoadOptions struct {
	Assembler AssemblerConfig
	Quarters  QuarterMode
	Progress  Progress // may be nil
}

// Log is the parsed content of one training run.
type Log struct {
	Sources     []string
	Meta        LogMeta
	Episodes    []*Episode
	Evaluations []*EvaluationPhase
}

// LoadFile parses one log file.
func LoadFile(path string, opts LoadOptions) (*Log, error) {
	return LoadFiles([]string{path}, opts)
}

// LoadFiles parses the logs of one run written by several simulation
// workers, one file each. Every file is assembled on its own; the episodes
// are then merged into a single sequence ordered by episode index.
//
// On error no partial Log is returned.
func LoadFiles(paths []string, opts LoadOptions) (*Log, error) {
	var total int64
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		total += info.Size()
	}

	log := &Log{Sources: paths}
	var groups [][]*Event
	var done int64
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		r := &countingReader{r: f, progress: opts.Progress, done: done, total: total}
		fileGroups, evaluations, err := parseStream(r, &log.Meta, opts.Assembler)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s %w", path, err)
		}
		done = r.done
		groups = append(groups, fileGroups...)
		log.Evaluations = append(log.Evaluations, evaluations...)
		logrus.Debugf("%s: %d episodes, %d evaluation phases", path, len(fileGroups), len(evaluations))
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i][0].Episode < groups[j][0].Episode })
	log.Episodes = buildEpisodes(groups, log.Meta.Hyperparameters.EpisodesPerIteration)
	AssignQuarters(log.Episodes, opts.Quarters)
	log.Meta.Stats = Summarize(log.Episodes)
	return log, nil
}

// Parse reads a single log stream.
func Parse(r io.Reader, opts LoadOptions) (*Log, error) {
	log := &Log{}
	groups, evaluations, err := parseStream(r, &log.Meta, opts.Assembler)
	if err != nil {
		return nil, fmt.Errorf("parsing %w", err)
	}
	log.Evaluations = evaluations
	log.Episodes = buildEpisodes(groups, log.Meta.Hyperparameters.EpisodesPerIteration)
	AssignQuarters(log.Episodes, opts.Quarters)
	log.Meta.Stats = Summarize(log.Episodes)
	return log, nil
}

func buildEpisodes(groups [][]*Event, episodesPerIteration int) []*Episode {
	episodes := make([]*Episode, 0, len(groups))
	for i, events := range groups {
		iteration := 0
		if episodesPerIteration > 0 {
			iteration = i / episodesPerIteration
		}
		episodes = append(episodes, NewEpisode(events, iteration))
	}
	return episodes
}

// streamParser carries the little state a pass over one stream needs on top
// of the memoryless line parsers.
type streamParser struct {
	meta        *LogMeta
	assembler   *Assembler
	debug       strings.Builder
	rewards     []float64
	evaluations []*EvaluationPhase
}

// parseStream returns the closed episodes' events and the evaluation
// phases. Errors carry the offending line number.
func parseStream(r io.Reader, meta *LogMeta, cfg AssemblerConfig) ([][]*Event, []*EvaluationPhase, error) {
	p := &streamParser{meta: meta, assembler: NewAssembler(cfg)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := p.consume(scanner.Text()); err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("line %d: %w", lineNo+1, err)
	}
	return p.assembler.Finish(), p.evaluations, nil
}

func (p *streamParser) consume(line string) error {
	kind := ClassifyLine(line)
	switch kind {
	case LineStep:
		e, err := ParseStep(line)
		if err != nil {
			logrus.Warnf("skipping step record: %v", err)
			return nil
		}
		e.Debug = p.debug.String()
		p.debug.Reset()
		return p.assembler.Add(e)

	case LineEvaluationReward:
		reward, err := ParseEvaluationReward(line)
		if err != nil {
			logrus.Warnf("skipping evaluation reward: %v", err)
			return nil
		}
		p.rewards = append(p.rewards, reward)

	case LineEvaluationProgress:
		progresses, err := ParseEvaluationProgresses(line)
		if err != nil {
			return err
		}
		if len(p.rewards) != len(progresses) {
			logrus.Warnf("evaluation phase has %d rewards for %d progresses", len(p.rewards), len(progresses))
		}
		iteration := 0
		if n := p.meta.Hyperparameters.EpisodesPerIteration; n > 0 {
			iteration = p.assembler.Completed() / n
		}
		p.evaluations = append(p.evaluations, &EvaluationPhase{
			Iteration:  iteration,
			Rewards:    p.rewards,
			Progresses: progresses,
		})
		p.rewards = nil

	case LineDebug:
		p.debug.WriteString(line)
		p.debug.WriteByte('\n')

	case LineActionSpace:
		return ParseHeaderLine(kind, line, p.meta)

	default:
		if err := ParseHeaderLine(kind, line, p.meta); err != nil {
			logrus.Warnf("ignoring %s line: %v", kind, err)
		}
	}
	return nil
}

// countingReader reports bytes read to a Progress.
type countingReader struct {
	r        io.Reader
	progress Progress
	done     int64
	total    int64
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.done += int64(n)
	if c.progress != nil && n > 0 {
		c.progress.Report(c.done, c.total)
	}
	return n, err
}

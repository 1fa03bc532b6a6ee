// Package racelog reconstructs driving episodes from the trace logs written
// by a simulated-racing reinforcement learning job.
//
// # Reading Guide
//
//   - parser.go: classifies one log line and extracts its payload
//   - assembler.go: regroups interleaved step lines into ordered episodes
//   - episode.go, kinematics.go: per-episode summaries and derived per-step values
//   - log.go: the batch entry point tying the pieces together
//
// # Architecture
//
// Parsing is a single synchronous pass. Sub-packages consume the resulting
// Episodes:
//   - racelog/grid: visit and statistic heatmaps over track positions
//   - racelog/palette: colour palettes and the session-owned lookup cache
//   - racelog/render: drawing surfaces (PNG via gonum/plot, HTML via go-echarts)
//   - racelog/analyze: analysis kinds that populate and draw grids
//   - racelog/metacache: persisted LogMeta so logs can be listed without re-parsing
//   - racelog/race: timed replay of finished episodes
package racelog

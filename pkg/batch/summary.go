package batch

import (
	"cmp"
	"encoding/json"
	"slices"
	"time"

	"github.com/matzehuels/chartforge/pkg/fsutil"
	"github.com/matzehuels/chartforge/pkg/instructions"
)

// SummaryFile is the name the CLI writes the summary under, inside the
// batch output directory.
const SummaryFile = "batch_summary.json"

// Summary is the outcome of a batch run.
type Summary struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	OutputDir string        `json:"output_dir"`

	// Total is the number of planned jobs. Attempted counts the jobs that
	// ran: Succeeded + Failed.
	Total     int `json:"total"`
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	// Fallbacks counts successes rendered from template instructions.
	Fallbacks int `json:"fallbacks"`

	// Jobs are sorted by family, theme and variation.
	Jobs []JobResult `json:"jobs"`
}

// Failure pinpoints one failed combination.
type Failure struct {
	Family    string `json:"family"`
	Theme     string `json:"theme"`
	Variation int    `json:"variation"`
	Output    string `json:"output"`
	Reason    string `json:"reason"`
}

func (s *Summary) add(results []JobResult) {
	for _, r := range results {
		s.Total++
		switch r.Status {
		case StatusSucceeded:
			s.Succeeded++
			if r.Source == instructions.SourceFallback {
				s.Fallbacks++
			}
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
	}
	s.Attempted = s.Succeeded + s.Failed

	s.Jobs = append(s.Jobs, results...)
	slices.SortStableFunc(s.Jobs, func(a, b JobResult) int {
		return cmp.Or(
			cmp.Compare(a.Family, b.Family),
			cmp.Compare(a.Theme, b.Theme),
			cmp.Compare(a.Variation, b.Variation),
		)
	})
}

// Failures lists the failed jobs in summary order.
func (s *Summary) Failures() []Failure {
	var out []Failure
	for _, j := range s.Jobs {
		if j.Status != StatusFailed {
			continue
		}
		out = append(out, Failure{
			Family:    j.Family,
			Theme:     j.Theme,
			Variation: j.Variation,
			Output:    j.Output,
			Reason:    j.Error,
		})
	}
	return out
}

// Artifacts lists the paths of every written document.
func (s *Summary) Artifacts() []string {
	var out []string
	for _, j := range s.Jobs {
		if j.Status == StatusSucceeded {
			out = append(out, j.Artifact)
		}
	}
	return out
}

// Write stores the summary as indented JSON at path, atomically.
func (s *Summary) Write(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

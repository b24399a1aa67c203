// Package pipeline provides the single-request chart generation pipeline.
//
// This package implements the select → data → instructions → render flow
// used by the CLI, the HTTP API and the batch coordinator. Centralizing it
// keeps every entry point on the same defaults, validation and logging.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Select: resolve a [catalog.ChartSpec] from the description and hint
//  2. Data: synthesize a dataset matching the family's shape
//  3. Instructions: ask the generative service, or fall back to the template
//  4. Render: write the HTML document
//
// Only stages 1, 2 and 4 can fail. The instruction stage degrades to the
// template when the generative service is missing, failing or answering
// with something that does not validate.
//
// # Usage
//
//	runner := pipeline.NewRunner(catalog.Default(), gen, pipeline.RunnerOptions{
//	    DocumentsRoot: "charts",
//	    Logger:        logger,
//	})
//	result, err := runner.Execute(ctx, pipeline.Request{
//	    Description: "monthly revenue for 2024",
//	    ChartType:   "Bar",
//	})
//	fmt.Println(result.Artifact.Path, result.Source)
package pipeline

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/matzehuels/chartforge/pkg/catalog"
	"github.com/matzehuels/chartforge/pkg/dataset"
	"github.com/matzehuels/chartforge/pkg/errors"
	"github.com/matzehuels/chartforge/pkg/instructions"
	"github.com/matzehuels/chartforge/pkg/render"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultDocumentsRoot is where documents go when the request names no
	// output path.
	DefaultDocumentsRoot = "charts"

	// MaxTitleLength caps titles derived from descriptions.
	MaxTitleLength = 60
)

// =============================================================================
// Request - Pipeline Input
// =============================================================================

// Request is one chart to generate. It supports JSON for API requests.
type Request struct {
	// Description is the free-text chart request.
	Description string `json:"description"`
	// ChartType optionally names a catalog family.
	ChartType string `json:"chart_type,omitempty"`
	// Rows is the dataset size; 0 selects the family default.
	Rows int `json:"rows,omitempty"`
	// Theme optionally names a catalog theme; empty selects the family's.
	Theme string `json:"theme,omitempty"`
	// Output is the document path; empty writes
	// <documents root>/chart_<id>.html.
	Output string `json:"output,omitempty"`
	// Seed makes the dataset reproducible; 0 picks one at random.
	Seed int64 `json:"seed,omitempty"`
	// Title overrides the title derived from the description.
	Title string `json:"title,omitempty"`

	// ID names the request in logs and default output paths. Empty
	// generates a UUID.
	ID string `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks the request and fills ID, Seed and Output.
// It is idempotent.
func (r *Request) ValidateAndSetDefaults(documentsRoot string) error {
	if r.validated {
		return nil
	}
	if strings.TrimSpace(r.Description) == "" && strings.TrimSpace(r.ChartType) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "description or chart type is required")
	}
	if r.Description != "" {
		if err := errors.ValidateDescription(r.Description); err != nil {
			return err
		}
	}
	if err := errors.ValidateRows(r.Rows, dataset.MaxRows); err != nil {
		return err
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Seed == 0 {
		r.Seed = rand.Int64N(1<<53) + 1
	}
	if r.Output == "" {
		if documentsRoot == "" {
			documentsRoot = DefaultDocumentsRoot
		}
		r.Output = filepath.Join(documentsRoot, fmt.Sprintf("chart_%s.html", r.ID))
	}
	if err := errors.ValidatePath(r.Output); err != nil {
		return err
	}
	r.validated = true
	return nil
}

// TitleFor derives a chart title: the explicit title, else the first
// sentence of the description trimmed to [MaxTitleLength] runes, else
// "<Family> chart".
func TitleFor(req Request, family string) string {
	if t := strings.TrimSpace(req.Title); t != "" {
		return t
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return family + " chart"
	}
	if i := strings.IndexAny(desc, ".\n"); i > 0 {
		desc = desc[:i]
	}
	if utf8.RuneCountInString(desc) > MaxTitleLength {
		runes := []rune(desc)[:MaxTitleLength]
		cut := string(runes)
		if i := strings.LastIndexByte(cut, ' '); i > MaxTitleLength/2 {
			cut = cut[:i]
		}
		desc = strings.TrimSpace(cut) + "…"
	}
	runes := []rune(desc)
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	return string(runes)
}

// =============================================================================
// Result - Pipeline Output
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// RequestID echoes [Request.ID].
	RequestID string

	// Spec is the resolved chart family.
	Spec catalog.ChartSpec

	// Theme is the canonical theme name used.
	Theme string

	// Seed is the dataset seed actually used.
	Seed int64

	// Dataset is the synthesized data.
	Dataset dataset.Dataset

	// Instructions is what was rendered.
	Instructions instructions.Instructions

	// Source tells whether the instructions came from the generative
	// service or the template.
	Source instructions.Source

	// FallbackReason is set when Source is fallback.
	FallbackReason string

	// Artifact is the written document.
	Artifact render.Artifact

	// Stats contains timing information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Rows               int
	GenerativeAttempts int
	SelectTime         time.Duration
	DataTime           time.Duration
	InstructionsTime   time.Duration
	RenderTime         time.Duration
}

// Total is the sum of all stage durations.
func (s Stats) Total() time.Duration {
	return s.SelectTime + s.DataTime + s.InstructionsTime + s.RenderTime
}

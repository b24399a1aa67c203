package raster

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/matzehuels/chartforge/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const chartDoc = `<!DOCTYPE html>
<html><head><meta name="generator" content="chartforge"></head><body><div id="chart"></div></body></html>`

const foreignDoc = `<html><body><p>hello</p></body></html>`

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeLauncher scripts session behavior per launch. Each step's nil funcs
// behave like a healthy browser.
type fakeLauncher struct {
	t     *testing.T
	scale int

	mu        sync.Mutex
	launches  int
	closes    int
	failFirst int
	loadErr   error
	capture   []byte
	waits     []bool
}

func (f *fakeLauncher) Launch(_ context.Context, vp Viewport) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launches++
	if f.launches <= f.failFirst {
		return nil, errors.New(errors.ErrCodeConversionCrash, "chrome exited")
	}
	return &fakeSession{f: f, vp: vp}, nil
}

type fakeSession struct {
	f  *fakeLauncher
	vp Viewport
}

func (s *fakeSession) Load(_ context.Context, _ string, opts LoadOptions) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.waits = append(s.f.waits, opts.WaitReady)
	return s.f.loadErr
}

func (s *fakeSession) Capture(context.Context) ([]byte, error) {
	if s.f.capture != nil {
		return s.f.capture, nil
	}
	scale := max(s.f.scale, 1)
	return solidPNG(s.f.t, s.vp.Width*scale, s.vp.Height*scale), nil
}

func (s *fakeSession) Close() error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.closes++
	return nil
}

func fastOptions() Options {
	return Options{Backoff: time.Millisecond, Settle: time.Millisecond}
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func assertSize(t *testing.T, path string, w, h int) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	gw, gh, err := Size(data)
	if err != nil {
		t.Fatal(err)
	}
	if gw != w || gh != h {
		t.Errorf("%s is %dx%d, want %dx%d", path, gw, gh, w, h)
	}
}

func assertAbsent(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("%s exists after failure (stat err = %v)", path, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		t.Errorf("unexpected file left in output dir: %s", e.Name())
	}
}

func TestConvertValidDocument(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "in", "line_dark_01.html"), chartDoc)
	outDir := filepath.Join(dir, "out")
	fl := &fakeLauncher{t: t}

	report, err := NewConverter(fl, fastOptions()).Convert(context.Background(), in, outDir)
	if err != nil {
		t.Fatal(err)
	}
	if report.Written != 1 || report.Failed != 0 {
		t.Fatalf("report = %+v", report)
	}
	task := report.Tasks[0]
	if task.State != StateWritten || task.Attempts != 1 || task.Rescaled {
		t.Errorf("task = %+v", task)
	}
	out := filepath.Join(outDir, "line_dark_01.png")
	if task.Output != out {
		t.Errorf("Output = %s, want %s", task.Output, out)
	}
	assertSize(t, out, 1280, 720)
	if diff := cmp.Diff([]bool{true}, fl.waits); diff != "" {
		t.Errorf("ready waits (-want +got):\n%s", diff)
	}
	if fl.launches != fl.closes {
		t.Errorf("%d sessions launched, %d closed", fl.launches, fl.closes)
	}
}

func TestConvertRescalesHiDPI(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "doc.html"), foreignDoc)
	fl := &fakeLauncher{t: t, scale: 2}

	report, err := NewConverter(fl, fastOptions()).Convert(context.Background(), in, dir)
	if err != nil {
		t.Fatal(err)
	}
	task := report.Tasks[0]
	if task.State != StateWritten || !task.Rescaled {
		t.Fatalf("task = %+v", task)
	}
	assertSize(t, task.Output, 1280, 720)
	if diff := cmp.Diff([]bool{false}, fl.waits); diff != "" {
		t.Errorf("foreign document should settle, not wait (-want +got):\n%s", diff)
	}
}

func TestConvertCustomSize(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "doc.html"), chartDoc)
	opts := fastOptions()
	opts.Width, opts.Height = 640, 480

	report, err := NewConverter(&fakeLauncher{t: t}, opts).Convert(context.Background(), in, filepath.Join(dir, "png"))
	if err != nil {
		t.Fatal(err)
	}
	assertSize(t, report.Tasks[0].Output, 640, 480)
}

func TestConvertPreflightFailures(t *testing.T) {
	tests := []struct {
		name string
		body *string
		code errors.Code
	}{
		{"missing", nil, errors.ErrCodeFileNotFound},
		{"empty", ptr(""), errors.ErrCodeInvalidInput},
		{"corrupt", ptr("\x89PNG\r\n\x1a\n not a document"), errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			in := filepath.Join(dir, "doc.html")
			if tt.body != nil {
				writeFile(t, in, *tt.body)
			}
			outDir := filepath.Join(dir, "out")
			fl := &fakeLauncher{t: t}

			report, err := NewConverter(fl, fastOptions()).Convert(context.Background(), in, outDir)
			if err != nil {
				t.Fatal(err)
			}
			task := report.Tasks[0]
			if task.State != StateFailed || !errors.Is(task.Err, tt.code) {
				t.Errorf("task = %s / %v, want failed with %s", task.State, task.Err, tt.code)
			}
			if fl.launches != 0 {
				t.Errorf("browser launched %d times for a bad document", fl.launches)
			}
			assertAbsent(t, filepath.Join(outDir, "doc.png"))
		})
	}
}

func ptr(s string) *string { return &s }

func TestConvertRetriesCrash(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "doc.html"), chartDoc)
	fl := &fakeLauncher{t: t, failFirst: 2}

	report, err := NewConverter(fl, fastOptions()).Convert(context.Background(), in, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatal(err)
	}
	task := report.Tasks[0]
	if task.State != StateWritten || task.Attempts != 3 {
		t.Errorf("task = %s after %d attempts, want written after 3", task.State, task.Attempts)
	}
}

func TestConvertTimeoutExhaustsRetries(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "doc.html"), chartDoc)
	outDir := filepath.Join(dir, "out")
	fl := &fakeLauncher{t: t, loadErr: context.DeadlineExceeded}

	report, err := NewConverter(fl, fastOptions()).Convert(context.Background(), in, outDir)
	if err != nil {
		t.Fatal(err)
	}
	task := report.Tasks[0]
	if task.State != StateFailed || task.Attempts != 3 || !errors.Is(task.Err, errors.ErrCodeConversionTimeout) {
		t.Errorf("task = %s after %d attempts (%v), want failed CONVERSION_TIMEOUT after 3", task.State, task.Attempts, task.Err)
	}
	if fl.launches != 3 || fl.closes != 3 {
		t.Errorf("launches/closes = %d/%d, want 3/3", fl.launches, fl.closes)
	}
	assertAbsent(t, filepath.Join(outDir, "doc.png"))
}

func TestConvertCorruptCapture(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "doc.html"), chartDoc)
	outDir := filepath.Join(dir, "out")
	fl := &fakeLauncher{t: t, capture: []byte("garbage")}

	report, err := NewConverter(fl, fastOptions()).Convert(context.Background(), in, outDir)
	if err != nil {
		t.Fatal(err)
	}
	task := report.Tasks[0]
	if task.State != StateFailed || !errors.Is(task.Err, errors.ErrCodeConversionCrash) {
		t.Errorf("task = %s (%v), want failed CONVERSION_CRASH", task.State, task.Err)
	}
	assertAbsent(t, filepath.Join(outDir, "doc.png"))
}

func TestConvertDirectory(t *testing.T) {
	dir := t.TempDir()
	docs := filepath.Join(dir, "charts")
	writeFile(t, filepath.Join(docs, "Line", "line_light_01.html"), chartDoc)
	writeFile(t, filepath.Join(docs, "Pie", "pie_dark_02.html"), chartDoc)
	writeFile(t, filepath.Join(docs, "Pie", "pie_dark_02.json"), `{}`)
	writeFile(t, filepath.Join(docs, "broken.html"), "plain text")
	outDir := filepath.Join(dir, "pngs")

	opts := fastOptions()
	opts.Parallelism = 2
	report, err := NewConverter(&fakeLauncher{t: t}, opts).Convert(context.Background(), docs, outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Tasks) != 3 || report.Written != 2 || report.Failed != 1 {
		t.Fatalf("report: %d tasks, %d written, %d failed", len(report.Tasks), report.Written, report.Failed)
	}
	assertSize(t, filepath.Join(outDir, "Line", "line_light_01.png"), 1280, 720)
	assertSize(t, filepath.Join(outDir, "Pie", "pie_dark_02.png"), 1280, 720)
	if f := report.Failures(); len(f) != 1 || filepath.Base(f[0].Input) != "broken.html" {
		t.Errorf("Failures() = %+v", f)
	}
}

func TestConvertCancelled(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "doc.html"), chartDoc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fl := &fakeLauncher{t: t}
	report, err := NewConverter(fl, fastOptions()).Convert(ctx, in, dir)
	if err != nil {
		t.Fatal(err)
	}
	if report.Skipped != 1 || fl.launches != 0 {
		t.Errorf("report = %+v, launches = %d", report, fl.launches)
	}
}

func TestExactPNG(t *testing.T) {
	same := solidPNG(t, 40, 30)
	out, rescaled, err := ExactPNG(same, 40, 30)
	if err != nil || rescaled || !bytes.Equal(out, same) {
		t.Errorf("ExactPNG(same size) = rescaled %v, err %v", rescaled, err)
	}

	out, rescaled, err = ExactPNG(solidPNG(t, 80, 60), 40, 30)
	if err != nil || !rescaled {
		t.Fatalf("ExactPNG(2x) = rescaled %v, err %v", rescaled, err)
	}
	if w, h, _ := Size(out); w != 40 || h != 30 {
		t.Errorf("rescaled to %dx%d", w, h)
	}

	if _, _, err := ExactPNG([]byte("nope"), 40, 30); err == nil {
		t.Error("ExactPNG(garbage) succeeded")
	}
}

func TestStateTerminal(t *testing.T) {
	for s, want := range map[State]bool{
		StatePending: false, StateLaunched: false, StateLoaded: false, StateCaptured: false,
		StateWritten: true, StateFailed: true, StateSkipped: true,
	} {
		if s.Terminal() != want {
			t.Errorf("%s.Terminal() = %v", s, !want)
		}
	}
}

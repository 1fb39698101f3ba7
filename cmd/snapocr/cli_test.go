package main

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snapocr/snapocr/internal/capture"
	"github.com/snapocr/snapocr/internal/config"
	"github.com/snapocr/snapocr/internal/model"
	"github.com/snapocr/snapocr/internal/store"
)

// stubCapturer returns a small fixed image.
type stubCapturer struct{}

func (stubCapturer) CaptureFullScreen() (*capture.Result, error) {
	return &capture.Result{Image: testImage(120, 60), Timestamp: time.Now()}, nil
}

func (stubCapturer) CaptureRegion(r capture.Region) (*capture.Result, error) {
	return &capture.Result{Image: testImage(r.Width, r.Height), Region: r, Timestamp: time.Now()}, nil
}

func (stubCapturer) DisplayCount() int { return 1 }

// fixedEngine returns the same text for every image.
type fixedEngine struct {
	text string
}

func (e *fixedEngine) Name() string    { return "fixed" }
func (e *fixedEngine) Available() bool { return true }

func (e *fixedEngine) Recognize(_ context.Context, _ []byte) (*model.OCRResult, error) {
	return &model.OCRResult{Text: e.text, Confidence: 0.9, EngineName: "fixed"}, nil
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(0, 0, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	return img
}

func newTestEnv(t *testing.T) *appEnv {
	t.Helper()
	baseDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	projects, err := store.New(baseDir, logger)
	require.NoError(t, err)
	templates, err := store.NewTemplateStore(baseDir, logger)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.OCR.QueueDelayMS = 10
	return &appEnv{
		baseDir:   baseDir,
		cfg:       cfg,
		logger:    logger,
		projects:  projects,
		templates: templates,
		capturer:  stubCapturer{},
		engine:    &fixedEngine{text: "Quarterly Report\ndetails below"},
	}
}

func run(t *testing.T, env *appEnv, args ...string) error {
	t.Helper()
	app := newCLIApp(env)
	return app.Run(append([]string{"snapocr"}, args...))
}

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, run(t, env, "project", "create", "-d", "monthly reports", "Reports"))

	all, err := env.projects.GetAllProjects()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "Reports", all[0].Name)
	require.Equal(t, "monthly reports", all[0].Description)

	require.NoError(t, run(t, env, "project", "list"))
	require.NoError(t, run(t, env, "project", "info", "Reports"))
	require.NoError(t, run(t, env, "project", "session", "-p", "Reports", "phase-two"))

	p, err := env.projects.FindProject("Reports")
	require.NoError(t, err)
	require.Len(t, p.Sessions, 1)
	require.Equal(t, "phase-two", p.Sessions[0].Name)

	require.NoError(t, run(t, env, "project", "delete", "Reports"))
	_, err = env.projects.FindProject("Reports")
	require.Error(t, err)
}

func TestProjectCreate_RequiresName(t *testing.T) {
	env := newTestEnv(t)
	err := run(t, env, "project", "create", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "INVALID_REQUEST")
}

func TestCaptureRegionWithOCR(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, run(t, env, "project", "create", "Shots"))

	require.NoError(t, run(t, env, "capture", "region", "-p", "Shots", "10,20,100,50"))

	p, err := env.projects.FindProject("Shots")
	require.NoError(t, err)
	require.Len(t, p.Sessions, 1)
	require.Len(t, p.Sessions[0].Captures, 1)

	c := p.Sessions[0].Captures[0]
	require.Equal(t, model.StatusCompleted, c.Status)
	require.NotNil(t, c.OCRResult)
	require.Equal(t, "Quarterly Report\ndetails below", c.OCRResult.Text)
	// Smart rename from the first OCR line.
	require.True(t, strings.HasPrefix(c.FileName, "quarterly_report_"), "FileName = %s", c.FileName)
	require.FileExists(t, c.FilePath)
}

func TestCaptureRegion_InvalidArg(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, run(t, env, "project", "create", "Shots"))

	for _, arg := range []string{"", "1,2,3", "a,b,c,d", "0,0,0,100"} {
		err := run(t, env, "capture", "region", "-p", "Shots", arg)
		require.Error(t, err, "region %q", arg)
	}
}

func TestCaptureFullscreenWithThumbnail(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, run(t, env, "project", "create", "Thumbs"))

	require.NoError(t, run(t, env, "capture", "fullscreen", "-p", "Thumbs", "--thumbnail"))

	p, _ := env.projects.FindProject("Thumbs")
	c := p.Sessions[0].Captures[0]
	require.NotEmpty(t, c.ThumbnailPath)
	require.FileExists(t, c.ThumbnailPath)
}

func TestOCRPending(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, run(t, env, "project", "create", "Pending"))
	// Capture without OCR leaves the capture in captured state.
	require.NoError(t, run(t, env, "capture", "region", "-p", "Pending", "--no-ocr", "0,0,50,50"))

	p, _ := env.projects.FindProject("Pending")
	require.Equal(t, model.StatusCaptured, p.Sessions[0].Captures[0].Status)

	require.NoError(t, run(t, env, "ocr", "pending", "-p", "Pending"))

	p, _ = env.projects.FindProject("Pending")
	require.Equal(t, model.StatusCompleted, p.Sessions[0].Captures[0].Status)
}

func TestTemplateCommands(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, run(t, env, "template", "list"))
	require.NoError(t, run(t, env, "template", "show", store.BuiltInInvoiceID))

	err := run(t, env, "template", "delete", store.BuiltInInvoiceID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "BUILTIN_TEMPLATE")

	require.NoError(t, run(t, env, "template", "duplicate", store.BuiltInInvoiceID))
	all := env.templates.All()
	require.Len(t, all, 4)

	exportPath := filepath.Join(t.TempDir(), "tpl.json")
	var cloneID string
	for _, tpl := range all {
		if !tpl.BuiltIn {
			cloneID = tpl.ID
		}
	}
	require.NoError(t, run(t, env, "template", "export", cloneID, exportPath))
	require.FileExists(t, exportPath)
	require.NoError(t, run(t, env, "template", "import", exportPath))
	require.Len(t, env.templates.All(), 5)
}

func TestTemplateApply(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, run(t, env, "project", "create", "Meta"))
	require.NoError(t, run(t, env, "capture", "region", "-p", "Meta", "0,0,40,40"))

	p, _ := env.projects.FindProject("Meta")
	captureID := p.Sessions[0].Captures[0].ID

	require.NoError(t, run(t, env, "template", "apply", "-p", "Meta", "-t", store.BuiltInInvoiceID,
		"--set", "invoice_number=INV-7", "--set", "vendor=Acme", "--set", "amount=10",
		captureID))

	p, _ = env.projects.FindProject("Meta")
	md := p.Sessions[0].Captures[0].TemplateMetadata
	require.NotNil(t, md)
	require.Equal(t, "Invoice", md.TemplateName)
	require.Equal(t, "Acme", md.Values["vendor"])

	// Missing required field fails.
	err := run(t, env, "template", "apply", "-p", "Meta", "-t", store.BuiltInInvoiceID,
		"--set", "vendor=Acme", captureID)
	require.Error(t, err)
}

func TestExportCaptures(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, run(t, env, "project", "create", "Exported"))
	require.NoError(t, run(t, env, "capture", "region", "-p", "Exported", "0,0,80,40"))

	jsonPath := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, run(t, env, "export", "captures", "-p", "Exported", "-f", "json", "-o", jsonPath, "--boxes"))
	require.FileExists(t, jsonPath)

	csvPath := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, run(t, env, "export", "captures", "-p", "Exported", "-f", "csv", "-o", csvPath))
	require.FileExists(t, csvPath)

	err := run(t, env, "export", "captures", "-p", "Exported", "-f", "xml")
	require.Error(t, err)
}

func TestExportAnalytics(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, run(t, env, "project", "create", "Stats"))
	require.NoError(t, run(t, env, "capture", "region", "-p", "Stats", "0,0,80,40"))

	require.NoError(t, run(t, env, "export", "analytics", "-p", "Stats"))
	require.NoError(t, run(t, env, "export", "analytics", "-p", "Stats", "--text"))
	require.Error(t, run(t, env, "export", "analytics", "-p", "Stats", "-s", "nope"))
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, run(t, env, "config", "show"))
	require.NoError(t, run(t, env, "config", "path"))
}

func TestOCRRun(t *testing.T) {
	env := newTestEnv(t)
	imgPath := filepath.Join(t.TempDir(), "input.png")
	require.NoError(t, capture.SaveImage(testImage(50, 50), imgPath, env.cfg.Capture))

	require.NoError(t, run(t, env, "ocr", "run", imgPath))
	require.NoError(t, run(t, env, "ocr", "run", "-f", "lines", imgPath))
	require.Error(t, run(t, env, "ocr", "run"))
	require.Error(t, run(t, env, "ocr", "run", filepath.Join(t.TempDir(), "missing.png")))
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/snapocr/snapocr/internal/analytics"
	"github.com/snapocr/snapocr/internal/capture"
	"github.com/snapocr/snapocr/internal/config"
	"github.com/snapocr/snapocr/internal/errors"
	"github.com/snapocr/snapocr/internal/export"
	"github.com/snapocr/snapocr/internal/model"
	"github.com/snapocr/snapocr/internal/naming"
	"github.com/snapocr/snapocr/internal/ocr"
	"github.com/snapocr/snapocr/internal/queue"
	"github.com/snapocr/snapocr/internal/store"
)

// appEnv carries the wired application state into command actions.
// capturer and engine are lazily constructed so commands that need neither
// (project list, config show) work without a display or Tesseract install;
// tests inject fakes.
type appEnv struct {
	baseDir   string
	cfg       *config.Config
	logger    *slog.Logger
	projects  *store.ProjectStore
	templates *store.TemplateStore

	capturer capture.Capturer
	engine   ocr.Engine
}

func (e *appEnv) getCapturer() capture.Capturer {
	if e.capturer == nil {
		e.capturer = capture.NewScreenCapturer()
	}
	return e.capturer
}

func (e *appEnv) getEngine() (ocr.Engine, error) {
	if e.engine == nil {
		engine, err := ocr.NewEngine(e.cfg.OCR)
		if err != nil {
			return nil, err
		}
		e.engine = engine
	}
	return e.engine, nil
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "snapocr",
		Usage:   "Screen capture and OCR pipeline",
		Version: Version,
		Commands: []*cli.Command{
			captureCmd(env),
			ocrCmd(env),
			projectCmd(env),
			templateCmd(env),
			exportCmd(env),
			configCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func projectFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Required: true, Usage: "Project ID or name"},
		&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Session ID or name (created if missing)"},
	}
}

// resolveTarget loads the project and session named by the --project and
// --session flags, creating the session when it does not exist yet.
func resolveTarget(env *appEnv, c *cli.Context) (*model.Project, *model.CaptureSession, error) {
	p, err := env.projects.FindProject(c.String("project"))
	if err != nil {
		return nil, nil, err
	}
	name := c.String("session")
	if name == "" {
		if len(p.Sessions) > 0 {
			return p, p.Sessions[len(p.Sessions)-1], nil
		}
		session, err := env.projects.CreateSession(p, "")
		return p, session, err
	}
	if session := p.FindSession(name); session != nil {
		return p, session, nil
	}
	session, err := env.projects.CreateSession(p, name)
	return p, session, err
}

// captureCmd creates the capture command group.
func captureCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Capture the screen into a project",
		Subcommands: []*cli.Command{
			captureFullscreenCmd(env),
			captureRegionCmd(env),
			captureContinuousCmd(env),
		},
	}
}

func captureFullscreenCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "fullscreen",
		Usage: "Capture the entire virtual screen",
		Flags: append(projectFlags(),
			&cli.BoolFlag{Name: "no-ocr", Usage: "Skip OCR, leave the capture pending"},
			&cli.BoolFlag{Name: "thumbnail", Usage: "Also write a thumbnail preview"},
		),
		Action: func(c *cli.Context) error {
			shot, err := env.getCapturer().CaptureFullScreen()
			if err != nil {
				return outputError(err)
			}
			return finishCapture(env, c, shot)
		},
	}
}

func captureRegionCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "region",
		Usage:     "Capture a fixed screen rectangle",
		ArgsUsage: "x,y,width,height",
		Flags: append(projectFlags(),
			&cli.BoolFlag{Name: "no-ocr", Usage: "Skip OCR, leave the capture pending"},
			&cli.BoolFlag{Name: "thumbnail", Usage: "Also write a thumbnail preview"},
		),
		Action: func(c *cli.Context) error {
			region, err := parseRegion(c.Args().First())
			if err != nil {
				return outputError(err)
			}
			shot, err := env.getCapturer().CaptureRegion(region)
			if err != nil {
				return outputError(err)
			}
			return finishCapture(env, c, shot)
		},
	}
}

// finishCapture saves the image, records the capture, and optionally runs
// OCR inline.
func finishCapture(env *appEnv, c *cli.Context, shot *capture.Result) error {
	p, session, err := resolveTarget(env, c)
	if err != nil {
		return outputError(err)
	}

	ext := capture.Extension(env.cfg.Capture)
	name := naming.InitialFilename(shot.Timestamp, ext, env.cfg.Naming)
	path := filepath.Join(env.projects.CapturesDir(p.ID), name)
	if err := capture.SaveImage(shot.Image, path, env.cfg.Capture); err != nil {
		return outputError(errors.NewCaptureFailed(err))
	}

	capt, err := env.projects.AddCapture(p, session, path)
	if err != nil {
		return outputError(err)
	}

	if c.Bool("thumbnail") {
		if thumbPath, err := capture.SaveThumbnail(shot.Image, path); err == nil {
			capt.ThumbnailPath = thumbPath
			if err := env.projects.SaveProject(p); err != nil {
				return outputError(err)
			}
		} else {
			env.logger.Warn("thumbnail generation failed", "error", err)
		}
	}

	if !c.Bool("no-ocr") {
		if err := processInline(env, p, session, capt); err != nil {
			return outputError(err)
		}
	}

	return outputJSON(capt)
}

// processInline runs one capture through the queue worker and waits for it.
func processInline(env *appEnv, p *model.Project, session *model.CaptureSession, capt *model.ScreenCapture) error {
	engine, err := env.getEngine()
	if err != nil {
		return err
	}
	q := queue.New()
	queue.EnqueueCapture(env.projects, q, &queue.Item{Project: p, Session: session, Capture: capt})

	worker := queue.NewWorker(q, engine, env.projects, env.cfg, nil, env.logger)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	worker.Start(ctx)
	defer worker.Stop()
	return worker.Drain(ctx)
}

func captureContinuousCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "continuous",
		Usage:     "Repeatedly capture a locked region on an interval",
		ArgsUsage: "x,y,width,height",
		Flags: append(projectFlags(),
			&cli.DurationFlag{Name: "interval", Aliases: []string{"i"}, Value: 2 * time.Second, Usage: "Capture interval"},
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 5, Usage: "Number of captures to take"},
		),
		Action: func(c *cli.Context) error {
			region, err := parseRegion(c.Args().First())
			if err != nil {
				return outputError(err)
			}
			p, session, err := resolveTarget(env, c)
			if err != nil {
				return outputError(err)
			}
			engine, err := env.getEngine()
			if err != nil {
				return outputError(err)
			}

			q := queue.New()
			worker := queue.NewWorker(q, engine, env.projects, env.cfg, nil, env.logger)
			runner := capture.NewContinuousRunner(env.getCapturer(), env.projects, q, env.cfg, env.logger)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			worker.Start(ctx)
			defer worker.Stop()

			interval := c.Duration("interval")
			count := c.Int("count")
			if err := runner.Start(ctx, p, session, region, interval); err != nil {
				return outputError(err)
			}
			for runner.Region() == nil || runner.Region().CaptureCount < count {
				time.Sleep(interval / 4)
			}
			runner.Stop()

			drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer drainCancel()
			if err := worker.Drain(drainCtx); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{
				"captures_taken": count,
				"project_id":     p.ID,
				"session_id":     session.ID,
			})
		},
	}
}

// ocrCmd creates the ocr command group.
func ocrCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "ocr",
		Usage: "Run text recognition",
		Subcommands: []*cli.Command{
			ocrRunCmd(env),
			ocrBatchCmd(env),
			ocrPendingCmd(env),
		},
	}
}

func ocrRunCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Recognize text in one image file",
		ArgsUsage: "<image>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Text format: continuous|lines|structured|json"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("image path is required"))
			}
			engine, err := env.getEngine()
			if err != nil {
				return outputError(err)
			}
			data, err := os.ReadFile(c.Args().First())
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			result, err := engine.Recognize(c.Context, data)
			if err != nil {
				return outputError(errors.NewOCRFailed(err))
			}

			mode := ocr.ParseDisplayMode(c.String("format"))
			if !c.IsSet("format") {
				mode = ocr.ParseDisplayMode(env.cfg.OCR.DisplayMode)
			}
			return outputJSON(map[string]any{
				"text":       ocr.FormatText(result, mode),
				"confidence": result.Confidence,
				"engine":     result.EngineName,
				"lines":      len(result.Lines),
			})
		},
	}
}

func ocrBatchCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Usage:     "Recognize every image in a directory and write a report",
		ArgsUsage: "<dir>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "report", Aliases: []string{"r"}, Usage: "Report file path (default: <dir>/ocr_report.<ext>)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "Report format: json|yaml|markdown|csv|text"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("directory is required"))
			}
			engine, err := env.getEngine()
			if err != nil {
				return outputError(err)
			}
			report, err := runBatch(c.Context, engine, c.Args().First())
			if err != nil {
				return outputError(err)
			}

			format := c.String("format")
			path := c.String("report")
			if path == "" {
				path = filepath.Join(c.Args().First(), "ocr_report."+reportExtension(format))
			}
			if err := writeReport(report, path, format); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{
				"report":    path,
				"processed": report.Processed,
				"failed":    report.Failed,
			})
		},
	}
}

func ocrPendingCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "pending",
		Usage: "Re-run OCR for captures that never completed",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Required: true, Usage: "Project ID or name"},
		},
		Action: func(c *cli.Context) error {
			p, err := env.projects.FindProject(c.String("project"))
			if err != nil {
				return outputError(err)
			}
			engine, err := env.getEngine()
			if err != nil {
				return outputError(err)
			}

			q := queue.New()
			n := queue.RequeuePending(env.projects, q, p)
			if n == 0 {
				return outputJSON(map[string]any{"requeued": 0})
			}

			worker := queue.NewWorker(q, engine, env.projects, env.cfg, nil, env.logger)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			worker.Start(ctx)
			defer worker.Stop()
			if err := worker.Drain(ctx); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"requeued": n})
		},
	}
}

// projectCmd creates the project command group.
func projectCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "project",
		Usage: "Manage projects",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a new project",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Project description"},
				},
				Action: func(c *cli.Context) error {
					p, err := env.projects.CreateProject(c.Args().First(), c.String("description"))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(p)
				},
			},
			{
				Name:  "list",
				Usage: "List projects, most recently modified first",
				Action: func(c *cli.Context) error {
					projects, err := env.projects.GetAllProjects()
					if err != nil {
						return outputError(err)
					}
					type row struct {
						ID       string    `json:"id"`
						Name     string    `json:"name"`
						Sessions int       `json:"sessions"`
						Captures int       `json:"captures"`
						Modified time.Time `json:"modified"`
					}
					rows := make([]row, 0, len(projects))
					for _, p := range projects {
						rows = append(rows, row{
							ID:       p.ID,
							Name:     p.Name,
							Sessions: len(p.Sessions),
							Captures: p.TotalCaptures(),
							Modified: p.Modified,
						})
					}
					return outputJSON(rows)
				},
			},
			{
				Name:      "info",
				Usage:     "Show one project with analytics",
				ArgsUsage: "<id-or-name>",
				Action: func(c *cli.Context) error {
					p, err := env.projects.FindProject(c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{
						"project":   p,
						"analytics": analytics.CalculateProject(p),
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a project and all its captures",
				ArgsUsage: "<id-or-name>",
				Action: func(c *cli.Context) error {
					p, err := env.projects.FindProject(c.Args().First())
					if err != nil {
						return outputError(err)
					}
					if err := env.projects.DeleteProject(p.ID); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"deleted": p.ID})
				},
			},
			{
				Name:      "session",
				Usage:     "Create a session in a project",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Required: true, Usage: "Project ID or name"},
				},
				Action: func(c *cli.Context) error {
					p, err := env.projects.FindProject(c.String("project"))
					if err != nil {
						return outputError(err)
					}
					session, err := env.projects.CreateSession(p, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(session)
				},
			},
		},
	}
}

// templateCmd creates the template command group.
func templateCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "template",
		Usage: "Manage metadata templates",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List built-in and user templates",
				Action: func(c *cli.Context) error {
					return outputJSON(env.templates.All())
				},
			},
			{
				Name:      "show",
				Usage:     "Show one template",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					t, err := env.templates.Get(c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(t)
				},
			},
			{
				Name:      "duplicate",
				Usage:     "Clone a template into a new editable copy",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					t, err := env.templates.Duplicate(c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(t)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a user template",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					if err := env.templates.Delete(c.Args().First()); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"deleted": c.Args().First()})
				},
			},
			{
				Name:      "import",
				Usage:     "Import a template from a JSON file",
				ArgsUsage: "<path>",
				Action: func(c *cli.Context) error {
					t, err := env.templates.Import(c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(t)
				},
			},
			{
				Name:      "export",
				Usage:     "Export a template to a JSON file",
				ArgsUsage: "<id> <path>",
				Action: func(c *cli.Context) error {
					if c.NArg() < 2 {
						return outputError(errors.NewInvalidRequest("template id and output path are required"))
					}
					if err := env.templates.Export(c.Args().Get(0), c.Args().Get(1)); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"exported": c.Args().Get(1)})
				},
			},
			{
				Name:      "apply",
				Usage:     "Apply a template with values to a capture",
				ArgsUsage: "<capture-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Required: true, Usage: "Project ID or name"},
					&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Required: true, Usage: "Template ID"},
					&cli.StringSliceFlag{Name: "set", Usage: "Field value as name=value (repeatable)"},
				},
				Action: func(c *cli.Context) error {
					p, err := env.projects.FindProject(c.String("project"))
					if err != nil {
						return outputError(err)
					}
					t, err := env.templates.Get(c.String("template"))
					if err != nil {
						return outputError(err)
					}

					captureID := c.Args().First()
					capt, _ := findCapture(p, captureID)
					if capt == nil {
						return outputError(errors.NewNotFound("capture", captureID))
					}

					values, err := parseFieldValues(c.StringSlice("set"))
					if err != nil {
						return outputError(err)
					}
					if err := store.ApplyTemplate(capt, t, values); err != nil {
						return outputError(err)
					}
					if err := env.projects.SaveProject(p); err != nil {
						return outputError(err)
					}
					env.templates.RecordUsage(t.ID)
					return outputJSON(capt)
				},
			},
		},
	}
}

// exportCmd creates the export command group.
func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export project data",
		Subcommands: []*cli.Command{
			exportCapturesCmd(env),
			exportAnalyticsCmd(env),
		},
	}
}

func exportCapturesCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "captures",
		Usage: "Export captures to JSON or CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Required: true, Usage: "Project ID or name"},
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Restrict to one session"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Export format: json|csv (default from config)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file path"},
			&cli.StringFlag{Name: "text-format", Usage: "OCR text format: continuous|lines|structured|json"},
			&cli.BoolFlag{Name: "boxes", Usage: "Include line geometry and layout analysis (JSON only)"},
			&cli.BoolFlag{Name: "thumbnails", Usage: "Embed thumbnails as base64 (JSON only)"},
			&cli.BoolFlag{Name: "compress", Usage: "Gzip the output (JSON only)"},
			&cli.BoolFlag{Name: "no-ocr", Usage: "Exclude OCR results"},
			&cli.BoolFlag{Name: "no-metadata", Usage: "Exclude template metadata"},
		},
		Action: func(c *cli.Context) error {
			p, err := env.projects.FindProject(c.String("project"))
			if err != nil {
				return outputError(err)
			}
			var session *model.CaptureSession
			if s := c.String("session"); s != "" {
				session = p.FindSession(s)
				if session == nil {
					return outputError(errors.NewNotFound("session", s))
				}
			}

			format := c.String("format")
			if format == "" {
				format = env.cfg.Export.DefaultFormat
			}
			var exporter export.Exporter
			switch strings.ToLower(format) {
			case "json", "":
				exporter = &export.JSONExporter{AppVersion: Version}
			case "csv":
				exporter = &export.CSVExporter{}
			default:
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("unsupported export format: %s", format)))
			}

			opts := export.DefaultOptions()
			opts.IncludeOCR = !c.Bool("no-ocr")
			opts.IncludeMetadata = !c.Bool("no-metadata")
			opts.IncludeBoundingBoxes = c.Bool("boxes")
			opts.IncludeThumbnails = c.Bool("thumbnails")
			opts.Compress = c.Bool("compress")
			if tf := c.String("text-format"); tf != "" {
				opts.OCRTextFormat = ocr.ParseDisplayMode(tf)
			}

			path := c.String("out")
			if path == "" {
				name := fmt.Sprintf("%s-%s.%s",
					naming.SanitizeFilename(p.Name),
					time.Now().Format("20060102_150405"),
					exporter.FileExtension())
				path = filepath.Join(env.baseDir, "exports", name)
				if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
					return outputError(err)
				}
			}

			result, err := exporter.Export(p, session, path, opts)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(result)
		},
	}
}

func exportAnalyticsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "analytics",
		Usage: "Compute analytics for a project or session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Required: true, Usage: "Project ID or name"},
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Restrict to one session"},
			&cli.BoolFlag{Name: "text", Usage: "Print a text summary instead of JSON"},
		},
		Action: func(c *cli.Context) error {
			p, err := env.projects.FindProject(c.String("project"))
			if err != nil {
				return outputError(err)
			}
			var data *analytics.Data
			if s := c.String("session"); s != "" {
				session := p.FindSession(s)
				if session == nil {
					return outputError(errors.NewNotFound("session", s))
				}
				data = analytics.CalculateSession(session)
			} else {
				data = analytics.CalculateProject(p)
			}
			if c.Bool("text") {
				fmt.Fprint(c.App.Writer, data.Summary())
				return nil
			}
			return outputJSON(data)
		},
	}
}

// configCmd creates the config command group.
func configCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective configuration",
				Action: func(c *cli.Context) error {
					return outputJSON(env.cfg)
				},
			},
			{
				Name:  "path",
				Usage: "Print the config file path",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, config.Path(env.baseDir))
					return nil
				},
			},
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if snapErr, ok := err.(*errors.SnapError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", snapErr.Code, snapErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseRegion parses "x,y,width,height". Negative x/y are valid in
// multi-display setups.
func parseRegion(s string) (capture.Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return capture.Region{}, errors.NewInvalidRequest("region must be x,y,width,height")
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return capture.Region{}, errors.NewInvalidRequest(fmt.Sprintf("invalid region component: %s", p))
		}
		vals[i] = v
	}
	r := capture.Region{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	if !r.Valid() {
		return capture.Region{}, errors.NewInvalidRequest("region width and height must be positive")
	}
	return r, nil
}

// parseFieldValues parses repeated name=value flags into a map.
func parseFieldValues(pairs []string) (map[string]string, error) {
	values := map[string]string{}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid field value %q, want name=value", pair))
		}
		values[name] = value
	}
	return values, nil
}

// findCapture locates a capture by id anywhere in the project.
func findCapture(p *model.Project, id string) (*model.ScreenCapture, *model.CaptureSession) {
	for _, s := range p.Sessions {
		for _, c := range s.Captures {
			if c.ID == id {
				return c, s
			}
		}
	}
	return nil, nil
}

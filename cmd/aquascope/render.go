package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"aquascope/internal/cache"
	"aquascope/internal/config"
	"aquascope/internal/facts"
	"aquascope/internal/session"
	"aquascope/internal/source"
	"aquascope/internal/ui"
	"aquascope/internal/view"
)

var renderCmd = &cobra.Command{
	Use:   "render [source analysis.json]",
	Short: "Render a source file decorated with its borrow facts",
	Long: `Render decorates a source file with the loan and move facts of its
analysis output. HTML output embeds the session id; the index behind it is
cached so that "aquascope reveal" can toggle regions in the export later.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().String("format", "html", "output format (html|ansi)")
	renderCmd.Flags().StringP("out", "o", "", "output file for a single document (default stdout)")
	renderCmd.Flags().String("out-dir", "", "output directory for --pair documents (default next to each source)")
	renderCmd.Flags().StringArray("pair", nil, "source=analysis pair to render; repeatable, rendered in parallel")
	renderCmd.Flags().Bool("watch", false, "re-render when the source or analysis changes")
	renderCmd.Flags().String("ui", "auto", "progress UI for --pair batches (auto|on|off)")
	renderCmd.Flags().Int("jobs", 0, "documents rendered at once (default GOMAXPROCS)")
}

// docPair is one source file with its analysis output.
type docPair struct {
	Source   string
	Analysis string
}

func parsePair(s string) (docPair, error) {
	src, analysis, ok := strings.Cut(s, "=")
	src, analysis = strings.TrimSpace(src), strings.TrimSpace(analysis)
	if !ok || src == "" || analysis == "" {
		return docPair{}, fmt.Errorf("invalid pair %q (expected source=analysis)", s)
	}
	return docPair{Source: src, Analysis: analysis}, nil
}

func collectPairs(args, flags []string) ([]docPair, error) {
	var pairs []docPair
	switch len(args) {
	case 0:
	case 2:
		pairs = append(pairs, docPair{Source: args[0], Analysis: args[1]})
	default:
		return nil, fmt.Errorf("expected a source file and its analysis output")
	}
	for _, f := range flags {
		p, err := parsePair(f)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("nothing to render: pass source and analysis, or --pair")
	}
	return pairs, nil
}

type renderOptions struct {
	format  string
	out     string
	outDir  string
	watch   bool
	ui      autoSwitch
	jobs    int
	timings bool
}

func readRenderOptions(cmd *cobra.Command) (renderOptions, error) {
	var opts renderOptions
	var err error
	if opts.format, err = cmd.Flags().GetString("format"); err != nil {
		return opts, err
	}
	opts.format = strings.ToLower(strings.TrimSpace(opts.format))
	if opts.format != "html" && opts.format != "ansi" {
		return opts, fmt.Errorf("unsupported format %q (must be html or ansi)", opts.format)
	}
	if opts.out, err = cmd.Flags().GetString("out"); err != nil {
		return opts, err
	}
	if opts.outDir, err = cmd.Flags().GetString("out-dir"); err != nil {
		return opts, err
	}
	if opts.watch, err = cmd.Flags().GetBool("watch"); err != nil {
		return opts, err
	}
	if opts.jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return opts, err
	}
	mode, err := cmd.Flags().GetString("ui")
	if err != nil {
		return opts, err
	}
	if opts.ui, err = readSwitch("ui", mode); err != nil {
		return opts, err
	}
	if opts.timings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return opts, err
	}
	return opts, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	opts, err := readRenderOptions(cmd)
	if err != nil {
		return err
	}
	pairFlags, err := cmd.Flags().GetStringArray("pair")
	if err != nil {
		return err
	}
	pairs, err := collectPairs(args, pairFlags)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg := configFrom(ctx)
	dc, err := openCache(cfg)
	if err != nil {
		// без кэша reveal не сработает, но рендер возможен
		fmt.Fprintf(cmd.ErrOrStderr(), "%s cache unavailable: %v\n", color.YellowString("warning:"), err)
		dc = nil
	}
	theme := renderTheme(cfg)

	if len(pairs) == 1 && len(pairFlags) == 0 {
		p := pairs[0]
		once := func() error {
			sess, err := renderDocument(ctx, p, cfg, dc, nil)
			if err != nil {
				return err
			}
			if err := writeTarget(cmd.OutOrStdout(), opts.out, sess, opts.format, theme); err != nil {
				return err
			}
			if opts.timings {
				fmt.Fprint(cmd.ErrOrStderr(), sess.Timer().Summary())
			}
			return nil
		}
		if err := once(); err != nil && !opts.watch {
			return err
		} else if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", color.RedString("error:"), err)
		}
		if !opts.watch {
			return nil
		}
		return watchPair(ctx, p, once, cmd.ErrOrStderr())
	}

	if opts.watch {
		return fmt.Errorf("--watch renders a single document")
	}
	if opts.out != "" {
		return fmt.Errorf("--out renders a single document; use --out-dir with --pair")
	}
	return renderBatch(ctx, cmd, pairs, cfg, dc, theme, opts)
}

func renderTheme(cfg config.Config) view.Theme {
	th := cfg.ViewTheme()
	if color.NoColor {
		th.Styles = nil
	}
	return th
}

// renderDocument indexes one pair and stores the index in dc. events, when
// non-nil, receives progress for the pair's source.
func renderDocument(ctx context.Context, p docPair, cfg config.Config, dc *cache.DiskCache, events chan<- ui.Event) (*session.Session, error) {
	report := func(stage ui.Stage, status ui.Status) {
		if events != nil {
			events <- ui.Event{File: p.Source, Stage: stage, Status: status}
		}
	}
	fail := func(stage ui.Stage, err error) (*session.Session, error) {
		report(stage, ui.StatusError)
		return nil, err
	}

	report(ui.StageLoad, ui.StatusWorking)
	text, err := source.Load(p.Source)
	if err != nil {
		return fail(ui.StageLoad, err)
	}
	out, err := facts.ReadFile(p.Analysis)
	if err != nil {
		return fail(ui.StageLoad, err)
	}

	report(ui.StageIndex, ui.StatusWorking)
	sess, err := session.Open(ctx, text, out, sessionOptions(cfg))
	if err != nil {
		return fail(ui.StageIndex, fmt.Errorf("%s: %w", p.Source, err))
	}

	report(ui.StageWrite, ui.StatusWorking)
	if dc != nil {
		payload := cache.NewPayload(sess.Facts(), sess.Records())
		payload.SourcePath = absOrSame(p.Source)
		payload.AnalysisPath = absOrSame(p.Analysis)
		if err := dc.Put(payload); err != nil {
			return fail(ui.StageWrite, fmt.Errorf("cache %s: %w", p.Source, err))
		}
	}
	return sess, nil
}

func renderBatch(ctx context.Context, cmd *cobra.Command, pairs []docPair, cfg config.Config, dc *cache.DiskCache, theme view.Theme, opts renderOptions) error {
	targets, err := batchTargets(pairs, opts.outDir, opts.format)
	if err != nil {
		return err
	}
	jobs := opts.jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// прогресс рисуется в stderr, stdout остаётся для списка файлов
	useTUI := opts.ui.resolve(os.Stderr)
	var events chan ui.Event
	var tuiDone chan error
	if useTUI {
		files := make([]string, len(pairs))
		for i, p := range pairs {
			files[i] = p.Source
		}
		// места хватает на все события, воркеры не ждут UI
		events = make(chan ui.Event, 4*len(pairs)+1)
		tuiDone = make(chan error, 1)
		program := tea.NewProgram(ui.NewProgressModel("render", files, events), tea.WithOutput(cmd.ErrOrStderr()))
		go func() {
			_, err := program.Run()
			tuiDone <- err
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	results := make([]string, len(pairs))
	for i, p := range pairs {
		g.Go(func() error {
			sess, err := renderDocument(gctx, p, cfg, dc, events)
			if err != nil {
				return err
			}
			if err := writeTarget(nil, targets[i], sess, opts.format, theme); err != nil {
				if events != nil {
					events <- ui.Event{File: p.Source, Stage: ui.StageWrite, Status: ui.StatusError}
				}
				return err
			}
			if events != nil {
				events <- ui.Event{File: p.Source, Status: ui.StatusDone}
			}
			results[i] = targets[i]
			return nil
		})
	}
	err = g.Wait()

	if useTUI {
		close(events)
		if tuiErr := <-tuiDone; tuiErr != nil && err == nil {
			err = tuiErr
		}
		return err
	}
	for i, target := range results {
		if target != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s\n", color.GreenString("rendered"), pairs[i].Source, target)
		}
	}
	return err
}

// outputPath places the rendering of src in dir, or next to src.
func outputPath(src, dir, format string) string {
	name := filepath.Base(src) + "." + format
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, name)
}

// batchTargets resolves the output file of every pair. Two sources that
// would land on the same file are rejected before anything is rendered.
func batchTargets(pairs []docPair, dir, format string) ([]string, error) {
	targets := make([]string, len(pairs))
	owners := make(map[string]string, len(pairs))
	for i, p := range pairs {
		targets[i] = outputPath(p.Source, dir, format)
		key := absOrSame(targets[i])
		if prev, ok := owners[key]; ok {
			return nil, fmt.Errorf("%s and %s both render to %s", prev, p.Source, targets[i])
		}
		owners[key] = p.Source
	}
	return targets, nil
}

// writeTarget writes to path, or to w when path is empty or "-".
func writeTarget(w io.Writer, path string, sess *session.Session, format string, th view.Theme) (err error) {
	if path == "" || path == "-" {
		if w == nil {
			return errors.New("no output")
		}
		return writeRendering(w, sess, format, th)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return writeRendering(f, sess, format, th)
}

func writeRendering(w io.Writer, sess *session.Session, format string, th view.Theme) error {
	if format == "ansi" {
		_, err := io.WriteString(w, sess.ANSI(th))
		return err
	}
	return sess.Markup(w)
}

func absOrSame(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

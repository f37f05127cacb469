package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/jointscope/internal/datasource"
	"github.com/vanderheijden86/jointscope/pkg/builder"
	"github.com/vanderheijden86/jointscope/pkg/config"
	"github.com/vanderheijden86/jointscope/pkg/controller"
	"github.com/vanderheijden86/jointscope/pkg/export"
	"github.com/vanderheijden86/jointscope/pkg/filter"
	"github.com/vanderheijden86/jointscope/pkg/loader"
	"github.com/vanderheijden86/jointscope/pkg/metrics"
	"github.com/vanderheijden86/jointscope/pkg/ui"
	"github.com/vanderheijden86/jointscope/pkg/version"
	"github.com/vanderheijden86/jointscope/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

// tagList collects repeated --tag flags.
type tagList []string

func (t *tagList) String() string { return strings.Join(*t, ",") }

func (t *tagList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return errors.New("empty tag")
	}
	if !strings.HasPrefix(v, "Tag:") {
		v = "Tag:" + v
	}
	*t = append(*t, v)
	return nil
}

// confirmReplace asks before a headless replace touches any document.
var confirmReplace = func(title string) (bool, error) {
	ok := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Affirmative("Replace").
			Negative("Cancel").
			Value(&ok),
	)).WithTheme(huh.ThemeDracula())
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		form = form.WithAccessible(true)
	}
	if err := form.Run(); err != nil {
		return false, err
	}
	return ok, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("jscope", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Config file (default: $XDG_CONFIG_HOME/jscope/config.yaml)")
	printTree := fs.Bool("print", false, "Build, filter and print the tree, then exit")
	exportPath := fs.String("export", "", "Build, filter and write the tree to a .svg, .png or .mmd file, then exit")
	query := fs.String("query", "", "Filter expression, e.g. 'Speaker && !Tag:FName'")
	var tags tagList
	fs.Var(&tags, "tag", "Enable a tag filter such as Tag:FText (repeatable)")
	flatten := fs.Bool("flatten", false, "List matches without their ancestors while filtering")
	noManagers := fs.Bool("no-managers", false, "Skip the manager pass")
	noNodes := fs.Bool("no-nodes", false, "Skip the node pass")
	noProperties := fs.Bool("no-properties", false, "Skip the property pass")
	replaceFrom := fs.String("replace-from", "", "Replace this text in visible string properties, then exit")
	replaceTo := fs.String("replace-to", "", "Replacement text (use with --replace-from)")
	replaceAll := fs.Bool("replace-all", false, "Replace every occurrence instead of the first")
	yes := fs.Bool("yes", false, "Skip confirmation prompts (use with --replace-from)")
	noWatch := fs.Bool("no-watch", false, "Do not reload documents when they change on disk")
	noHooks := fs.Bool("no-hooks", false, "Skip the save hooks in .jscope/hooks.yaml")
	metricsFlag := fs.Bool("metrics", false, "Print timing metrics as JSON to stderr on exit")
	versionFlag := fs.Bool("version", false, "Show version")
	cpuProfile := fs.String("cpu-profile", "", "Write CPU profile to file")
	checkSources := fs.Bool("check-sources", false, "List the documents in the document directory and report inconsistencies between them")
	help := fs.Bool("help", false, "Show help")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printHelp(stdout, fs)
			return 0
		}
		return 2
	}

	// CPU profiling support
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(stderr, "Could not create CPU profile: %v\n", err)
			return 1
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(stderr, "Could not start CPU profile: %v\n", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		printHelp(stdout, fs)
		return 0
	}
	if *versionFlag {
		fmt.Fprintf(stdout, "jscope %s\n", version.Version)
		return 0
	}
	if *metricsFlag {
		metrics.SetEnabled(true)
		defer writeMetrics(stderr)
	}
	if *checkSources {
		if err := reportSources(stdout); err != nil {
			fmt.Fprintf(stderr, "Error checking sources: %v\n", err)
			return 1
		}
		return 0
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		// Non-fatal: continue with defaults
		fmt.Fprintf(stderr, "Warning: %v\n", err)
		cfg = config.DefaultConfig()
	}
	cfg.ApplyEnv()

	paths, err := resolveDocuments(fs.Args(), cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error finding documents: %v\n", err)
		fmt.Fprintln(stderr, "Pass document paths, list them in the config file, or create a .jscope directory.")
		return 1
	}

	headless := *printTree || *replaceFrom != "" || *exportPath != ""
	logger := log.New(stderr, "jscope: ", 0)
	var ctlLogger *log.Logger
	if !headless {
		// The alt screen owns the terminal; keep logs off it.
		logFile := openLogFile()
		if logFile != nil {
			defer logFile.Close()
			logger = log.New(logFile, "jscope: ", log.LstdFlags)
		} else {
			logger = log.New(io.Discard, "", 0)
		}
		ctlLogger = logger
	}

	host := &builder.HostFlags{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := newSession(paths, host, logger)
	sess.noHooks = *noHooks
	if err := sess.Open(ctx); err != nil {
		fmt.Fprintf(stderr, "Error loading documents: %v\n", err)
		return 1
	}

	passes := cfg.BuilderArgs()
	if *noManagers {
		passes.ShowManagers = false
	}
	if *noNodes {
		passes.ShowNodes = false
	}
	if *noProperties {
		passes.ShowProperties = false
	}
	opts := []controller.Option{
		controller.WithHost(host),
		controller.WithBuilderArgs(passes),
		controller.WithTags(mergeTags(cfg.TagItems(), tags)...),
		controller.WithFlattenOnFilter(cfg.Filter.FlattenOnFilter || *flatten),
	}
	if ctlLogger != nil {
		opts = append(opts, controller.WithLogger(ctlLogger))
	}
	ctl := controller.New(sess.reg, opts...)
	defer ctl.Close()

	if *query != "" {
		if err := ctl.SetQueryText(*query); err != nil {
			fmt.Fprintf(stderr, "Invalid query: %v\n", err)
			return 2
		}
	}

	if headless {
		stop := handleSignals(host, cancel)
		defer stop()
		err := runHeadless(ctx, ctl, sess, headlessOptions{
			print:       *printTree,
			export:      *exportPath,
			from:        *replaceFrom,
			to:          *replaceTo,
			all:         *replaceAll,
			yes:         *yes,
			showTypes:   cfg.UI.ShowTypes,
			markMatches: cfg.HighlightMatches(),
			title:       documentsTitle(paths),
		}, stdout)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	var w *watcher.Watcher
	if cfg.WatchEnabled() && !*noWatch {
		w, err = watcher.NewWatcher(paths,
			watcher.WithDebounceDuration(cfg.Watch.Debounce),
			watcher.WithPollInterval(cfg.Watch.PollInterval),
			watcher.WithForcePoll(cfg.Watch.ForcePoll),
			watcher.WithOnError(func(err error) { logger.Printf("watcher: %v", err) }),
		)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			// Non-fatal: the browser works without live reload
			logger.Printf("live reload disabled: %v", err)
			w = nil
		} else {
			defer w.Stop()
		}
	}

	m := ui.New(ctl,
		ui.WithDocuments(sess),
		ui.WithWatcher(w),
		ui.WithContext(ctx),
		ui.WithShowTypes(cfg.UI.ShowTypes),
		ui.WithHighlightMatches(cfg.HighlightMatches()),
	)
	if err := runTUIProgram(m, host); err != nil {
		fmt.Fprintf(stderr, "Error running jscope: %v\n", err)
		return 1
	}
	return 0
}

func printHelp(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: jscope [options] [document ...]")
	fmt.Fprintln(w, "\nBrowse and filter node-graph documents as a tree.")
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		width, _, err := term.GetSize(int(f.Fd()))
		if err != nil {
			width = 80
		}
		fmt.Fprintln(w, ui.RenderHelp(width))
	}
	fmt.Fprintln(w, "Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

// resolveDocuments picks the documents to open: the command line first,
// then the config file, then the freshest valid source in the document
// directory.
func resolveDocuments(args []string, cfg config.Config) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(cfg.Documents) > 0 {
		return cfg.Documents, nil
	}
	dir, err := loader.GetDocumentDir("")
	if err != nil {
		return nil, err
	}
	sources, err := datasource.DiscoverSources(datasource.DiscoveryOptions{
		Dir:                    dir,
		ValidateAfterDiscovery: true,
	})
	if err != nil {
		return nil, err
	}
	best, err := datasource.SelectBestSource(sources)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	return []string{best.Path}, nil
}

// mergeTags enables the named tags on top of the configured presets.
func mergeTags(items []filter.FilterItem, names []string) []filter.FilterItem {
	out := append([]filter.FilterItem(nil), items...)
	for _, name := range names {
		found := false
		for i := range out {
			if out[i].Name == name {
				out[i].Enabled = true
				found = true
			}
		}
		if !found {
			out = append(out, filter.FilterItem{Name: name, Enabled: true})
		}
	}
	return out
}

func documentsTitle(paths []string) string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return strings.Join(names, ", ")
}

type headlessOptions struct {
	print       bool
	export      string
	from, to    string
	all         bool
	yes         bool
	showTypes   bool
	markMatches bool
	title       string
}

// runHeadless builds once, optionally replaces and saves, then prints or
// exports the resulting tree.
func runHeadless(ctx context.Context, ctl *controller.Controller, sess *session, opts headlessOptions, w io.Writer) error {
	ctl.RequestRebuild()
	if err := ctl.Await(ctx); err != nil {
		return fmt.Errorf("build: %w", err)
	}

	if opts.from != "" {
		mode := controller.ModeNext
		scope := "the first visible occurrence"
		if opts.all {
			mode = controller.ModeAll
			scope = "every visible occurrence"
		}
		if !opts.yes {
			ok, err := confirmReplace(fmt.Sprintf("Replace %s of %q with %q in %s?", scope, opts.from, opts.to, opts.title))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(w, "Replace cancelled")
				return nil
			}
		}
		report := ctl.Replace(opts.from, opts.to, mode)
		fmt.Fprintln(w, report.String())
		if report.Err != nil {
			return report.Err
		}
		if len(report.Changed) > 0 {
			if err := sess.Save(ctx, report.Changed); err != nil {
				return fmt.Errorf("save: %w", err)
			}
		}
	}

	if opts.export != "" {
		err := export.SaveSnapshot(export.SnapshotOptions{
			Path:  opts.export,
			Title: opts.title,
			Roots: ctl.FilteredItems(),
		})
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Fprintf(w, "Exported %s\n", opts.export)
	}

	if opts.print {
		filtering := filter.Combine(ctl.QueryText(), ctl.Tags()) != ""
		return ui.PrintTree(w, ctl.FilteredItems(), ui.PrintOptions{
			Title:       opts.title,
			ShowTypes:   opts.showTypes,
			MarkMatches: opts.markMatches && filtering,
		})
	}
	return nil
}

// handleSignals raises the shutdown flag so a running build stops at its
// next checkpoint.
func handleSignals(host *builder.HostFlags, cancel context.CancelFunc) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-done:
		case <-sigCh:
			host.ShuttingDown.Store(true)
			cancel()
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

func runTUIProgram(m ui.Model, host *builder.HostFlags) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		host.ShuttingDown.Store(true)
		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set JSCOPE_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("JSCOPE_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	host.ShuttingDown.Store(true)
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}

// reportSources lists every document in the document directory and the
// differences between the valid ones.
func reportSources(w io.Writer) error {
	dir, err := loader.GetDocumentDir("")
	if err != nil {
		return err
	}
	sources, err := datasource.DiscoverSources(datasource.DiscoveryOptions{
		Dir:                    dir,
		ValidateAfterDiscovery: true,
		IncludeInvalid:         true,
	})
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Fprintf(w, "No documents in %s\n", dir)
		return nil
	}
	for _, s := range sources {
		fmt.Fprintln(w, s.String())
	}
	report := datasource.GenerateInconsistencyReport(sources, datasource.DefaultDiffOptions())
	if report.TotalInconsistencies == 0 {
		fmt.Fprintln(w, "\nNo inconsistencies found.")
		return nil
	}
	fmt.Fprintf(w, "\n%d inconsistencies:\n", report.TotalInconsistencies)
	for _, d := range report.Diffs {
		fmt.Fprintln(w, d.Summary())
	}
	return nil
}

func writeMetrics(w io.Writer) {
	b, err := json.MarshalIndent(metrics.AllTimingStats(), "", "  ")
	if err != nil {
		fmt.Fprintf(w, "metrics: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(b))
}

// openLogFile opens the TUI log under the XDG state directory.
func openLogFile() *os.File {
	dir := config.StateDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, "jscope.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil
	}
	return f
}

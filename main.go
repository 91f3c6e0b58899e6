package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/metcalfc/leaf/internal/config"
	"github.com/metcalfc/leaf/internal/doc"
	"github.com/metcalfc/leaf/internal/fragment"
	"github.com/metcalfc/leaf/internal/measure"
	"github.com/metcalfc/leaf/internal/paginate"
	"github.com/metcalfc/leaf/internal/reader"
	"github.com/metcalfc/leaf/internal/state"
	"github.com/metcalfc/leaf/internal/structure"
	"github.com/metcalfc/leaf/internal/style"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	// the terminal viewer owns the screen
	console := cmd.Args().First() != "read" || guiBuild
	if env.Log, err = env.Cfg.Logging.Prepare(console); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", version), zap.String("runtime", runtime.Version()), zap.String("commit", commit))
	if len(configFile) == 0 {
		env.Log.Debug("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))

	// close logging
	env.RestoreStdLog()
	return nil
}

// Ignore urfave/cli default error handling, subcommands return regular errors.
var errWasHandled bool

// this is called before appContext is destroyed, so we have a chance to
// properly log any error from subcommand
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	env := state.EnvFromContext(ctx)
	if env.Cfg != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// do nothing special, error is reported either by exitErrHandler or on
	// exit directly to stderr.
	return err
}

var paginationFlags = []cli.Flag{
	&cli.StringFlag{Name: "strategy", Aliases: []string{"s"}, Usage: "pagination `STRATEGY` (fixed, adaptive, continuous), overrides configuration"},
	&cli.IntFlag{Name: "words", Aliases: []string{"w"}, Usage: "words per page for the fixed strategy, overrides configuration"},
	&cli.IntFlag{Name: "width", Value: 80, Usage: "layout width in cells for the adaptive strategy"},
	&cli.IntFlag{Name: "height", Value: 24, Usage: "layout height in cells for the adaptive strategy"},
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:            config.AppName,
		Usage:           "paged reader for long markdown documents",
		Description:     "Supported formats: " + strings.Join(reader.SupportedFormats(), ", ") + ".",
		Version:         version + " (" + runtime.Version() + ") : " + commit + " " + date,
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
		},
		Commands: []*cli.Command{
			{
				Name:         "read",
				Usage:        "Opens document in the paged viewer",
				OnUsageError: usageErrorHandler,
				Action:       readDocument,
				Flags: append([]cli.Flag{
					&cli.BoolFlag{Name: "fresh", Usage: "ignore saved reading position"},
					&cli.BoolFlag{Name: "toc", Usage: "show table of contents at startup"},
				}, paginationFlags...),
				ArgsUsage: "[SOURCE]",
			},
			{
				Name:         "outline",
				Usage:        "Prints numbered headings with their sections and pages",
				OnUsageError: usageErrorHandler,
				Action:       outlineDocument,
				Flags:        paginationFlags,
				ArgsUsage:    "[SOURCE]",
			},
			{
				Name:         "pages",
				Usage:        "Prints page boundaries",
				OnUsageError: usageErrorHandler,
				Action:       listPages,
				Flags:        paginationFlags,
				ArgsUsage:    "[SOURCE]",
			},
			{
				Name:         "fragments",
				Usage:        "Prints the fragment stream of a page",
				OnUsageError: usageErrorHandler,
				Action:       listFragments,
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Value: 1, Usage: "page `NUMBER` (1 based)"},
					&cli.BoolFlag{Name: "overview", Usage: "tokenize the whole document as one page"},
				}, paginationFlags...),
				ArgsUsage: "[SOURCE]",
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
			},
		},
	}
}

func main() {
	// allow graceful shutdown on interrupt.
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deffered functions after that
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = newApp().Run(ctx, os.Args)
}

// document is loaded source text and its identity.
type document struct {
	name string
	path string
	text string
	hash string
}

func loadDocument(cmd *cli.Command, stdin io.Reader, log *zap.Logger) (*document, error) {
	if cmd.Args().Len() > 0 {
		path := cmd.Args().First()
		text, err := reader.ExtractText(path, log)
		if err != nil {
			return nil, fmt.Errorf("failed to read file '%s': %w", path, err)
		}
		hash, err := state.ComputeHash(path)
		if err != nil {
			hash = state.HashText(text)
		}
		return &document{name: path, path: path, text: text, hash: hash}, nil
	}

	if f, ok := stdin.(*os.File); ok {
		if stat, err := f.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
			return nil, fmt.Errorf("no input provided, name a file or pipe text to stdin")
		}
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("unable to read stdin: %w", err)
	}
	text := string(data)
	return &document{name: "STDIN", text: text, hash: state.HashText(text)}, nil
}

// paginationOptions merges command line overrides into configuration.
func paginationOptions(cfg *config.Config, cmd *cli.Command, layout paginate.Layout) paginate.Options {
	opts := cfg.Pagination.Options(layout)
	if s := cmd.String("strategy"); s != "" {
		opts.Strategy = s
	}
	if n := cmd.Int("words"); n > 0 {
		opts.WordsPerPage = n
	}
	return opts
}

// openSession loads the document named on the command line and paginates it,
// terminal cells being the layout unit.
func openSession(ctx context.Context, cmd *cli.Command) (*reader.Session, *document, error) {
	env := state.EnvFromContext(ctx)
	d, err := loadDocument(cmd, cmd.Root().Reader, env.Log)
	if err != nil {
		return nil, nil, err
	}
	layout := env.Cfg.Pagination.TerminalLayout(cmd.Int("width"), cmd.Int("height"))
	strategy, err := paginate.New(paginationOptions(env.Cfg, cmd, layout), terminalOracle(env), env.Log)
	if err != nil {
		return nil, nil, err
	}
	parser := structure.NewParser(colors(env.Cfg), env.Log)
	return reader.NewSession(d.text, parser, strategy, env.Log), d, nil
}

func terminalOracle(env *state.LocalEnv) paginate.Oracle {
	return &measure.Terminal{ImageRows: env.Cfg.Pagination.Terminal.ImageRows, Log: env.Log}
}

func colors(cfg *config.Config) *style.Resolver {
	return style.New(cfg.Document.Palette, cfg.Document.FallbackColor)
}

func stackLabel(entries []doc.StackEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, style.Color(e.Color).Render(e.Type))
	}
	return strings.Join(parts, " > ")
}

func outlineDocument(ctx context.Context, cmd *cli.Command) error {
	s, d, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	out := cmd.Root().Writer
	_, total := s.Progress()
	fmt.Fprintf(out, "%s: %d headings, %d annotations, %d pages\n", d.name, len(s.Model.Headings), len(s.Model.Annotations), total)
	for _, e := range s.TOC() {
		line := strings.Repeat("  ", max(e.Level-1, 0)) + e.Number + " " + e.Title
		if e.Marker != nil {
			line += " " + style.Color(e.Marker.Color).Render("["+e.Marker.Type+"]")
		}
		if stack := s.Model.Stacks[e.Offset]; len(stack) > 0 {
			line += "  (" + stackLabel(stack) + ")"
		}
		fmt.Fprintf(out, "%-60s p.%d\n", line, e.Page+1)
	}
	return nil
}

func listPages(ctx context.Context, cmd *cli.Command) error {
	s, _, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	out := cmd.Root().Writer
	for _, p := range s.Pages {
		fmt.Fprintf(out, "%4d  words %5d  bytes %7d-%-7d  headings %d  annotations %d\n",
			p.Number+1, p.WordCount, p.Start, p.End, len(p.Headings), len(p.Annotations))
	}
	return nil
}

func listFragments(ctx context.Context, cmd *cli.Command) error {
	s, _, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	page := s.Overview()
	if !cmd.Bool("overview") {
		n := cmd.Int("page")
		if n < 1 || n > len(s.Pages) {
			return fmt.Errorf("page %d out of range, document has %d pages", n, len(s.Pages))
		}
		s.JumpToPage(n - 1)
		page = s.Page()
	}

	out := cmd.Root().Writer
	for f := range fragment.Tokenize(page) {
		detail := f.Text
		switch f.Kind {
		case doc.FragmentHeading:
			detail = fmt.Sprintf("h%d %s", f.Heading.Level, f.Text)
		case doc.FragmentImage:
			detail = fmt.Sprintf("%s -> %s", f.Alt, f.Link)
		case doc.FragmentAnnotation:
			detail = fmt.Sprintf("%s: %s", f.Annotation.Type, f.Annotation.ShortMessage())
		}
		fmt.Fprintf(out, "%-10s %7d-%-7d %s\n", f.Kind, f.Start, f.End, detail)
	}
	return nil
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		which string
	)

	out := cmd.Root().Writer
	if len(fname) > 0 {
		f, err := os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer f.Close()
		out = f
	}

	if cmd.Bool("default") {
		which = "default"
		data, err = config.Prepare()
	} else {
		which = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Debug("Outputing configuration", zap.String("state", which), zap.String("file", fname))

	if _, err = out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}

// pageLine is a run of fragments shown on one line.
type pageLine struct {
	fragments []doc.Fragment
	// paragraph is set when a blank line precedes the line
	paragraph bool
}

// pageLines groups the fragments of page into display lines: fragments
// separated by a line break in the source start a new line, headings always
// stand alone.
func pageLines(page doc.Page) []pageLine {
	var (
		lines []pageLine
		prev  *doc.Fragment
	)
	for f := range fragment.Tokenize(page) {
		gap := page.Content[prevEnd(prev, page)-page.Start : f.Start-page.Start]
		breaks := strings.Count(gap, "\n")
		switch {
		case prev == nil:
			lines = append(lines, pageLine{})
		case breaks > 0 || f.Kind == doc.FragmentHeading || prev.Kind == doc.FragmentHeading:
			lines = append(lines, pageLine{paragraph: breaks > 1 || f.Kind == doc.FragmentHeading || prev.Kind == doc.FragmentHeading})
		}
		last := &lines[len(lines)-1]
		last.fragments = append(last.fragments, f)
		prev = &last.fragments[len(last.fragments)-1]
	}
	return lines
}

func prevEnd(prev *doc.Fragment, page doc.Page) int {
	if prev == nil {
		return page.Start
	}
	return prev.End
}

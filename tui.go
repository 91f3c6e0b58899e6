//go:build !gui

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/metcalfc/leaf/internal/doc"
	"github.com/metcalfc/leaf/internal/paginate"
	"github.com/metcalfc/leaf/internal/reader"
	"github.com/metcalfc/leaf/internal/state"
	"github.com/metcalfc/leaf/internal/style"
)

const guiBuild = false

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true)

	imageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	completeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
)

type keyMap struct {
	Next     key.Binding
	Prev     key.Binding
	First    key.Binding
	Last     key.Binding
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	TOC      key.Binding
	Overview key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.TOC, k.Overview, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.First, k.Last},
		{k.Up, k.Down, k.Select},
		{k.TOC, k.Overview, k.Help, k.Quit},
	}
}

var keys = keyMap{
	Next:     key.NewBinding(key.WithKeys("right", "l", "pgdown", " "), key.WithHelp("→/space", "next page")),
	Prev:     key.NewBinding(key.WithKeys("left", "h", "pgup", "b"), key.WithHelp("←/b", "previous page")),
	First:    key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first page")),
	Last:     key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last page")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "jump to heading")),
	TOC:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "contents")),
	Overview: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "overview")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "Q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// relayoutFunc returns the strategy for a body of cols x rows cells.
type relayoutFunc func(cols, rows int) (paginate.Strategy, error)

type model struct {
	*reader.Session
	colors   *style.Resolver
	resolver *reader.FileResolver
	relayout relayoutFunc
	log      *zap.Logger

	keys keyMap
	help help.Model

	padX, padY int
	width      int
	height     int
	tocVisible bool
	tocCursor  int
	overview   bool
	scroll     int
	quitting   bool
}

func newModel(s *reader.Session, colors *style.Resolver, resolver *reader.FileResolver, log *zap.Logger) model {
	if log == nil {
		log = zap.NewNop()
	}
	return model{
		Session:  s,
		colors:   colors,
		resolver: resolver,
		log:      log,
		keys:     keys,
		help:     help.New(),
		width:    80,
		height:   24,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

// bodySize returns the cells available to page content.
func (m model) bodySize() (cols, rows int) {
	return max(m.width, 1), max(m.height-2, 1)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if m.relayout != nil {
			strategy, err := m.relayout(m.bodySize())
			if err != nil {
				m.log.Warn("Unable to repaginate for new window size", zap.Error(err))
				return m, nil
			}
			m.Repaginate(strategy)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil

		case key.Matches(msg, m.keys.TOC):
			if len(m.Model.Headings) > 0 {
				m.tocVisible = !m.tocVisible
				m.overview = false
				if m.tocVisible {
					m.tocCursor = max(m.CurrentHeading(), 0)
				}
			}
			return m, nil

		case key.Matches(msg, m.keys.Overview):
			m.overview = !m.overview
			m.tocVisible = false
			m.scroll = 0
			return m, nil
		}

		switch {
		case m.tocVisible:
			return m.updateTOC(msg), nil
		case m.overview:
			return m.updateOverview(msg), nil
		}

		switch {
		case key.Matches(msg, m.keys.Next):
			m.Next()
		case key.Matches(msg, m.keys.Prev):
			m.Prev()
		case key.Matches(msg, m.keys.First):
			m.JumpToPage(0)
		case key.Matches(msg, m.keys.Last):
			m.JumpToPage(len(m.Pages) - 1)
		}
	}

	return m, nil
}

func (m model) updateTOC(msg tea.KeyMsg) model {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.tocCursor = max(m.tocCursor-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.tocCursor = min(m.tocCursor+1, len(m.Model.Headings)-1)
	case key.Matches(msg, m.keys.Select):
		m.JumpToHeading(m.tocCursor)
		m.tocVisible = false
	}
	return m
}

func (m model) updateOverview(msg tea.KeyMsg) model {
	_, rows := m.bodySize()
	switch {
	case key.Matches(msg, m.keys.Up):
		m.scroll = max(m.scroll-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.scroll++
	case key.Matches(msg, m.keys.Next):
		m.scroll += rows
	case key.Matches(msg, m.keys.Prev):
		m.scroll = max(m.scroll-rows, 0)
	case key.Matches(msg, m.keys.Select):
		// leave the overview on the page shown at the top
		m.JumpToOffset(m.offsetAtLine(m.scroll))
		m.overview = false
	}
	return m
}

func (m model) View() string {
	if m.quitting {
		if m.AtEnd() && len(m.Pages) > 0 {
			return completeStyle.Render("\n  Reading complete!\n")
		}
		return ""
	}
	if len(m.Pages) == 0 {
		return "No text to read."
	}

	cols, rows := m.bodySize()
	var body []string
	switch {
	case m.tocVisible:
		body = m.tocLines(rows)
	case m.overview:
		lines := m.renderLines(m.Overview(), cols)
		body = lines[min(m.scroll, max(len(lines)-rows, 0)):]
	default:
		body = m.renderLines(m.Page(), cols)
	}
	if len(body) > rows {
		body = body[:rows]
	}
	for len(body) < rows {
		body = append(body, "")
	}

	var sb strings.Builder
	sb.WriteString(m.status())
	sb.WriteString("\n")
	sb.WriteString(strings.Join(body, "\n"))
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m model) status() string {
	current, total := m.Progress()
	mode := fmt.Sprintf("Page %d/%d", current, total)
	if m.overview {
		mode = "Overview"
	}
	title := m.CurrentTitle()
	if title == "" {
		title = "-"
	}
	line := statusStyle.Render(mode + " | " + title)
	if sections := m.Sections(); len(sections) > 0 {
		line += " " + stackLabel(sections)
	}
	return line
}

func (m model) tocLines(rows int) []string {
	toc := m.TOC()
	top := max(min(m.tocCursor-rows/2, len(toc)-rows), 0)
	var lines []string
	for i := top; i < len(toc) && len(lines) < rows; i++ {
		e := toc[i]
		line := strings.Repeat("  ", max(e.Level-1, 0)) + e.Number + " " + e.Title
		if e.Marker != nil {
			line += " " + m.colors.Style(e.Marker.Type).Render("["+e.Marker.Type+"]")
		}
		line += statusStyle.Render(fmt.Sprintf("p.%d", e.Page+1))
		if i == m.tocCursor {
			line = cursorStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return lines
}

// renderLines renders page fragments word wrapped to cols cells.
func (m model) renderLines(page doc.Page, cols int) []string {
	content := m.renderPage(page)
	rendered := lipgloss.NewStyle().
		Width(max(cols-m.padX, 1)).
		Padding(m.padY, 0, 0, m.padX).
		Render(content)
	return strings.Split(rendered, "\n")
}

// renderPage renders the display lines of page.
func (m model) renderPage(page doc.Page) string {
	var sb strings.Builder
	for i, l := range pageLines(page) {
		if i > 0 {
			sb.WriteString("\n")
			if l.paragraph {
				sb.WriteString("\n")
			}
		}
		for j, f := range l.fragments {
			if j > 0 && f.Start > l.fragments[j-1].End {
				sb.WriteString(" ")
			}
			sb.WriteString(m.renderFragment(f))
		}
	}
	return sb.String()
}

func (m model) renderFragment(f doc.Fragment) string {
	switch f.Kind {
	case doc.FragmentHeading:
		hs := headingStyle
		out := ""
		if mk := f.Heading.Marker; mk != nil {
			hs = hs.Foreground(lipgloss.Color(mk.Color))
			out = "\n" + m.colors.Style(mk.Type).Render("▌ "+mk.Title)
		}
		return hs.Render(f.Text) + out
	case doc.FragmentImage:
		label := f.Alt
		if label == "" {
			label = f.Link
		}
		if _, ok := m.resolver.Resolve(f.Link); ok {
			return imageStyle.Render("[image: " + label + "]")
		}
		return imageStyle.Render("[missing image: " + f.Link + "]")
	case doc.FragmentAnnotation:
		return style.Color(f.Annotation.Color).Render("[" + f.Annotation.Type + ": " + f.Annotation.ShortMessage() + "]")
	}
	return f.Text
}

// offsetAtLine maps an overview line back to a document offset, assuming
// lines are evenly spread over the document.
func (m model) offsetAtLine(line int) int {
	cols, _ := m.bodySize()
	lines := m.renderLines(m.Overview(), cols)
	if len(lines) == 0 {
		return 0
	}
	ov := m.Overview()
	return ov.Start + (ov.End-ov.Start)*min(line, len(lines))/len(lines)
}

func readDocument(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	s, d, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	if len(s.Pages) == 0 {
		return errors.New("no text to read")
	}

	store, er := env.Positions()
	if er != nil {
		env.Log.Warn("Reading positions will not be remembered", zap.Error(er))
	}
	if store != nil && !cmd.Bool("fresh") {
		s.JumpToOffset(store.GetPosition(d.hash))
	}

	m := newModel(s, colors(env.Cfg), reader.NewFileResolver(d.path), env.Log)
	m.padX, m.padY = env.Cfg.Pagination.Terminal.PaddingX, env.Cfg.Pagination.Terminal.PaddingY
	m.tocVisible = cmd.Bool("toc") && len(s.Model.Headings) > 0
	if paginationOptions(env.Cfg, cmd, paginate.Layout{}).Strategy == paginate.StrategyAdaptive {
		m.relayout = func(cols, rows int) (paginate.Strategy, error) {
			layout := env.Cfg.Pagination.TerminalLayout(cols, rows)
			return paginate.New(paginationOptions(env.Cfg, cmd, layout), terminalOracle(env), env.Log)
		}
	}

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if d.path == "" {
		// stdin carried the document
		opts = append(opts, tea.WithInputTTY())
	}
	if _, er := tea.NewProgram(m, opts...).Run(); er != nil {
		err = multierr.Append(err, fmt.Errorf("viewer failed: %w", er))
	}

	if store != nil {
		if er := store.SetPosition(d.hash, s.Offset()); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to save reading position: %w", er))
		}
	}
	env.Log.Debug("Viewer closed", zap.Int("page", s.CurrentPage), zap.Int("offset", s.Offset()))
	return err
}

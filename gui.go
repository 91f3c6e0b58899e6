//go:build gui

package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/metcalfc/leaf/internal/doc"
	"github.com/metcalfc/leaf/internal/measure"
	"github.com/metcalfc/leaf/internal/paginate"
	"github.com/metcalfc/leaf/internal/reader"
	"github.com/metcalfc/leaf/internal/state"
	"github.com/metcalfc/leaf/internal/structure"
)

const guiBuild = true

// headingSizes are text size multipliers of heading levels 1-6.
var headingSizes = [...]float32{1, 1.8, 1.5, 1.3, 1.15, 1.05, 1}

type viewer struct {
	*reader.Session
	resolver *reader.FileResolver
	fontSize float32
	overview bool
}

// hexColor parses "#rrggbb", anything else is gray.
func hexColor(s string) color.Color {
	var r, g, b uint8
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.Gray{Y: 0x80}
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

func (v *viewer) imageURI(link string) (fyne.URI, bool) {
	loc, ok := v.resolver.Resolve(link)
	if !ok {
		return nil, false
	}
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		u, err := storage.ParseURI(loc)
		return u, err == nil
	}
	return storage.NewFileURI(loc), true
}

// pageContent builds the widgets of one page.
func (v *viewer) pageContent(page doc.Page) fyne.CanvasObject {
	rows := container.NewVBox()
	for _, l := range pageLines(page) {
		if l.paragraph && len(rows.Objects) > 0 {
			spacer := canvas.NewRectangle(color.Transparent)
			spacer.SetMinSize(fyne.NewSize(1, v.fontSize/2))
			rows.Add(spacer)
		}
		if f := l.fragments[0]; f.Kind == doc.FragmentHeading {
			rows.Add(v.heading(f))
			continue
		}

		var segments []widget.RichTextSegment
		for i, f := range l.fragments {
			if i > 0 && f.Start > l.fragments[i-1].End {
				segments = append(segments, &widget.TextSegment{Text: " ", Style: widget.RichTextStyleInline})
			}
			segments = append(segments, v.segment(f))
		}
		rt := widget.NewRichText(segments...)
		rt.Wrapping = fyne.TextWrapWord
		rows.Add(rt)
	}
	return rows
}

func (v *viewer) heading(f doc.Fragment) fyne.CanvasObject {
	var fg color.Color = theme.Color(theme.ColorNameForeground)
	if f.Heading.Marker != nil {
		fg = hexColor(f.Heading.Marker.Color)
	}
	t := canvas.NewText(f.Text, fg)
	t.TextStyle.Bold = true
	t.TextSize = v.fontSize * headingSizes[min(f.Heading.Level, 6)]
	if f.Heading.Marker == nil {
		return t
	}
	bar := canvas.NewRectangle(fg)
	bar.SetMinSize(fyne.NewSize(4, t.TextSize))
	marker := widget.NewLabel(f.Heading.Marker.Title)
	marker.TextStyle.Italic = true
	return container.NewVBox(container.NewHBox(bar, t), marker)
}

func (v *viewer) segment(f doc.Fragment) widget.RichTextSegment {
	switch f.Kind {
	case doc.FragmentImage:
		if uri, ok := v.imageURI(f.Link); ok {
			return &widget.ImageSegment{Source: uri, Title: f.Alt, Alignment: fyne.TextAlignCenter}
		}
		return &widget.TextSegment{Text: "[missing image: " + f.Link + "]", Style: widget.RichTextStyle{
			Inline: true, ColorName: theme.ColorNameDisabled, TextStyle: fyne.TextStyle{Italic: true},
		}}
	case doc.FragmentAnnotation:
		name := theme.ColorNameWarning
		if f.Annotation.Type == doc.CommentType {
			name = theme.ColorNamePlaceHolder
		}
		return &widget.TextSegment{Text: "[" + f.Annotation.Type + ": " + f.Annotation.ShortMessage() + "]", Style: widget.RichTextStyle{
			Inline: true, ColorName: name, TextStyle: fyne.TextStyle{Bold: true},
		}}
	}
	return &widget.TextSegment{Text: f.Text, Style: widget.RichTextStyleInline}
}

// sectionBars shows the open section markers as colored bars.
func (v *viewer) sectionBars() fyne.CanvasObject {
	bars := container.NewHBox()
	for _, e := range v.Sections() {
		bar := canvas.NewRectangle(hexColor(e.Color))
		bar.SetMinSize(fyne.NewSize(6, 1))
		bars.Add(bar)
	}
	return bars
}

func readDocument(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	d, err := loadDocument(cmd, cmd.Root().Reader, env.Log)
	if err != nil {
		return err
	}

	a := app.New()
	w := a.NewWindow("leaf - " + d.name)

	cfg := env.Cfg
	strategyFor := func(size fyne.Size) (paginate.Strategy, error) {
		layout := cfg.Pagination.WindowLayout(float64(size.Width), float64(size.Height))
		return paginate.New(paginationOptions(cfg, cmd, layout), &measure.Window{Log: env.Log}, env.Log)
	}
	strategy, err := strategyFor(fyne.NewSize(0, 0))
	if err != nil {
		return err
	}
	s := reader.NewSession(d.text, structure.NewParser(colors(cfg), env.Log), strategy, env.Log)
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

	v := &viewer{Session: s, resolver: reader.NewFileResolver(d.path), fontSize: float32(cfg.Pagination.Window.FontSize)}
	toc := s.TOC()

	statusLabel := widget.NewLabel("")
	statusLabel.Alignment = fyne.TextAlignCenter
	controlsLabel := widget.NewLabel("←/→: page  Home/End: first/last  T: contents  O: overview  F: fullscreen  Q: quit")
	controlsLabel.Alignment = fyne.TextAlignCenter

	body := container.NewStack()
	bars := container.NewStack()
	scroll := container.NewVScroll(body)

	updateDisplay := func() {
		page := v.Page()
		if v.overview {
			page = v.Overview()
		}
		body.Objects = []fyne.CanvasObject{container.NewPadded(v.pageContent(page))}
		body.Refresh()
		scroll.ScrollToTop()
		bars.Objects = []fyne.CanvasObject{v.sectionBars()}
		bars.Refresh()

		current, total := v.Progress()
		mode := fmt.Sprintf("Page %d/%d", current, total)
		if v.overview {
			mode = "Overview"
		}
		statusLabel.SetText(mode + " | " + v.CurrentTitle())
	}

	readingContent := container.NewBorder(statusLabel, controlsLabel, bars, nil, scroll)

	var tocPanel *container.Split
	content := fyne.CanvasObject(readingContent)
	if len(toc) > 0 {
		tocList := widget.NewList(
			func() int { return len(toc) },
			func() fyne.CanvasObject {
				return container.NewVBox(widget.NewLabel("Title"), widget.NewLabel("Preview"))
			},
			func(id widget.ListItemID, obj fyne.CanvasObject) {
				entry := toc[id]
				vbox := obj.(*fyne.Container)
				titleLabel := vbox.Objects[0].(*widget.Label)
				previewLabel := vbox.Objects[1].(*widget.Label)

				indent := strings.Repeat("  ", max(entry.Level-1, 0))
				titleLabel.SetText(indent + entry.Number + " " + entry.Title)
				titleLabel.TextStyle.Bold = true
				previewLabel.SetText(indent + entry.Preview)
				previewLabel.Truncation = fyne.TextTruncateEllipsis
			},
		)
		tocList.OnSelected = func(id widget.ListItemID) {
			v.JumpToHeading(toc[id].Heading)
			v.overview = false
			updateDisplay()
		}

		tocContainer := container.NewBorder(
			widget.NewLabel("Table of Contents"),
			widget.NewLabel("Click to jump • T to close"),
			nil, nil,
			tocList,
		)
		tocPanel = container.NewHSplit(tocContainer, readingContent)
		tocPanel.Offset = 0.3
		if !cmd.Bool("toc") {
			tocContainer.Hide()
		}
		content = tocPanel
	}

	done := make(chan struct{})
	var closeOnce sync.Once
	savePosition := func() {
		if store == nil {
			return
		}
		if er := store.SetPosition(d.hash, v.Offset()); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to save reading position: %w", er))
		}
	}
	quit := func() {
		closeOnce.Do(func() {
			savePosition()
			close(done)
		})
	}

	w.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		switch key.Name {
		case fyne.KeyRight, fyne.KeyPageDown, fyne.KeySpace:
			if v.overview {
				return
			}
			v.Next()
		case fyne.KeyLeft, fyne.KeyPageUp:
			if v.overview {
				return
			}
			v.Prev()
		case fyne.KeyHome:
			v.JumpToPage(0)
		case fyne.KeyEnd:
			v.JumpToPage(len(v.Pages) - 1)
		case fyne.KeyF:
			w.SetFullScreen(!w.FullScreen())
			return
		case fyne.KeyQ, fyne.KeyEscape:
			quit()
			a.Quit()
			return
		default:
			return
		}
		updateDisplay()
	})

	w.Canvas().SetOnTypedRune(func(r rune) {
		switch r {
		case 't', 'T':
			if tocPanel != nil {
				if tocPanel.Leading.Visible() {
					tocPanel.Leading.Hide()
				} else {
					tocPanel.Leading.Show()
				}
				tocPanel.Refresh()
			}
		case 'o', 'O':
			v.overview = !v.overview
			updateDisplay()
		case '+', '=':
			if v.fontSize < 40 {
				v.fontSize += 2
				updateDisplay()
			}
		case '-':
			if v.fontSize > 10 {
				v.fontSize -= 2
				updateDisplay()
			}
		}
	})

	w.Resize(fyne.NewSize(float32(cfg.Pagination.Window.Width), float32(cfg.Pagination.Window.Height)))
	w.SetContent(content)

	// repaginate when the reading area changes size
	adaptive := paginationOptions(cfg, cmd, paginate.Layout{}).Strategy == paginate.StrategyAdaptive
	go func() {
		var last fyne.Size
		for {
			select {
			case <-done:
				return
			case <-time.After(250 * time.Millisecond):
				size := scroll.Size()
				if !adaptive || size.Width <= 0 || size == last {
					continue
				}
				last = size
				fyne.Do(func() {
					strategy, err := strategyFor(size)
					if err != nil {
						env.Log.Warn("Unable to repaginate for new window size", zap.Error(err))
						return
					}
					v.Repaginate(strategy)
					updateDisplay()
				})
			}
		}
	}()

	w.SetOnClosed(quit)

	go func() {
		time.Sleep(100 * time.Millisecond)
		fyne.Do(updateDisplay)
	}()

	w.ShowAndRun()
	quit()
	return err
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tusharganotra/portfolio/internal/content"
	"github.com/tusharganotra/portfolio/internal/typewriter"
)

var (
	styleNumber = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	styleCaret  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	classStyles = map[typewriter.Class]lipgloss.Style{
		typewriter.ClassKeyword:  lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		typewriter.ClassFunction: lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		typewriter.ClassString:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		typewriter.ClassComment:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
		typewriter.ClassPlain:    lipgloss.NewStyle(),
	}
)

func newTypeCmd() *cobra.Command {
	var variant string

	cmd := &cobra.Command{
		Use:   "type [script]",
		Short: "Play a terminal script in this terminal",
		Long: "Plays one of the site's terminal scripts with the same typewriter timing the\n" +
			"web page uses. Without a TTY the finished text is printed instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "home"
			if len(args) == 1 {
				name = args[0]
			}
			siteContent, err := content.Load()
			if err != nil {
				return err
			}
			t, ok := siteContent.Terminal(name)
			if !ok {
				return fmt.Errorf("unknown script %q", name)
			}

			var cfg typewriter.Config
			switch variant {
			case "once":
				cfg = typewriter.Once()
			case "loop":
				cfg = typewriter.Looping()
			default:
				return fmt.Errorf("unknown variant %q (want once or loop)", variant)
			}

			out := cmd.OutOrStdout()
			if !isTerminal(out) {
				return printFinal(out, t, cfg)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return play(ctx, out, t, cfg)
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "once", "once or loop")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printFinal writes the fully typed script without animating it.
func printFinal(w io.Writer, t content.Terminal, cfg typewriter.Config) error {
	script := t.Script()
	s := typewriter.Initial()
	for !s.Terminal(script) {
		s = typewriter.Advance(s, script)
	}
	f := typewriter.Render(s, script, cfg)
	f.Caret = false
	_, err := fmt.Fprintf(w, "%s\n%s", t.Title, drawFrame(f, false))
	return err
}

// play animates the script until it completes, or until ctx ends for the
// looping variant.
func play(ctx context.Context, w io.Writer, t content.Terminal, cfg typewriter.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	frames := make(chan typewriter.Frame, 16)
	anim := typewriter.New(t.Script(), cfg, func(f typewriter.Frame) {
		select {
		case frames <- f:
		case <-ctx.Done():
		}
	})
	// cancel first so a render blocked on frames lets Stop return
	defer anim.Stop()
	defer cancel()

	if _, err := fmt.Fprintln(w, styleTitle.Render(t.Title)); err != nil {
		return err
	}
	drawn := 0
	draw := func(f typewriter.Frame) error {
		// move back over the previous frame and clear it
		if drawn > 0 {
			if _, err := fmt.Fprintf(w, "\x1b[%dA\x1b[J", drawn); err != nil {
				return err
			}
		}
		text := drawFrame(f, true)
		if _, err := fmt.Fprint(w, text); err != nil {
			return err
		}
		drawn = strings.Count(text, "\n")
		return nil
	}

	anim.Start()
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-frames:
			if err := draw(f); err != nil {
				return err
			}
		case <-anim.Done():
			for {
				select {
				case f := <-frames:
					if err := draw(f); err != nil {
						return err
					}
				default:
					return nil
				}
			}
		}
	}
}

// drawFrame renders every revealed line as "NN  text", with the caret after
// the line being typed.
func drawFrame(f typewriter.Frame, color bool) string {
	var b strings.Builder
	if len(f.Lines) == 0 && f.Caret {
		b.WriteString(caret(color) + "\n")
		return b.String()
	}
	for i, line := range f.Lines {
		num, text := line.Number, line.Text
		if color {
			num = styleNumber.Render(num)
			text = classStyles[line.Class].Render(text)
		}
		b.WriteString(num + "  " + text)
		if f.Caret && i == len(f.Lines)-1 {
			b.WriteString(caret(color))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func caret(color bool) string {
	if color {
		return styleCaret.Render("▋")
	}
	return "▋"
}

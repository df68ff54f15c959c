package devsel

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/cwbudde/clkit/internal/errs"
)

// Prompter presents a device list to a human.
type Prompter interface {
	// Choose blocks until an option is picked and returns its index.
	Choose(title string, options []string) (int, error)

	// Show displays options with the selected one marked, without asking.
	Show(title string, options []string, selected int)

	// Warn displays a warning.
	Warn(msg string)
}

// Menu lets a human pick one candidate. A single candidate is picked
// without asking. A preselected index inside the list is used without
// asking, but the list is still shown with the choice marked. An index
// beyond the list is warned about and a prompt follows; a negative index
// always prompts.
//
// A nil prompter can still resolve the first two cases; anything that
// needs a prompt then fails with errs.Args.
func Menu(p Prompter, preselected int) Filter {
	name := "menu"
	if preselected >= 0 {
		name = fmt.Sprintf("menu=%d", preselected)
	}
	return NewDependent(name, func(cands []Candidate) ([]Candidate, error) {
		if len(cands) <= 1 {
			return cands, nil
		}
		options, err := DeviceStrings(cands)
		if err != nil {
			return nil, err
		}

		if preselected >= 0 && preselected < len(cands) {
			if p != nil {
				p.Show("Available devices", options, preselected)
			}
			return []Candidate{cands[preselected]}, nil
		}
		if p == nil {
			return nil, errs.New(errs.Args, "menu", "interactive device selection is not available")
		}
		if preselected >= 0 {
			p.Warn(fmt.Sprintf("No device at index %d!", preselected))
		}

		i, err := p.Choose("Select device", options)
		if err != nil {
			return nil, err
		}
		if i < 0 || i >= len(cands) {
			return nil, errs.New(errs.InvalidData, "menu", "prompter returned index %d for %d devices", i, len(cands))
		}
		return []Candidate{cands[i]}, nil
	})
}

// LinePrompter reads choices as decimal numbers, one per line. Invalid
// input is answered with a hint and asked again.
type LinePrompter struct {
	In  io.Reader
	Out io.Writer

	scanner *bufio.Scanner
}

func (p *LinePrompter) Show(title string, options []string, selected int) {
	fmt.Fprintf(p.Out, "\n   ===== %s =====\n\n", title)
	for i, o := range options {
		mark := "   "
		if i == selected {
			mark = "(*)"
		}
		fmt.Fprintf(p.Out, " %s %s\n", mark, o)
	}
	fmt.Fprintln(p.Out)
}

func (p *LinePrompter) Warn(msg string) {
	fmt.Fprintf(p.Out, "   (!) %s\n", msg)
}

func (p *LinePrompter) Choose(title string, options []string) (int, error) {
	if p.scanner == nil {
		p.scanner = bufio.NewScanner(p.In)
	}
	p.Show(title, options, -1)
	for {
		fmt.Fprintf(p.Out, "   (?) Select device (0-%d) > ", len(options)-1)
		if !p.scanner.Scan() {
			err := p.scanner.Err()
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return -1, errs.Wrap(err, errs.Args, "menu", "no selection read")
		}
		i, err := strconv.Atoi(strings.TrimSpace(p.scanner.Text()))
		if err == nil && i >= 0 && i < len(options) {
			return i, nil
		}
		fmt.Fprintf(p.Out, "   (!) Invalid choice, enter a number between 0 and %d.\n", len(options)-1)
	}
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	markStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// FormPrompter asks with an interactive terminal form.
type FormPrompter struct {
	Out io.Writer
}

func (p FormPrompter) Show(title string, options []string, selected int) {
	fmt.Fprintln(p.Out, titleStyle.Render(title))
	for i, o := range options {
		if i == selected {
			fmt.Fprintln(p.Out, markStyle.Render("(*) "+o))
		} else {
			fmt.Fprintln(p.Out, "    "+o)
		}
	}
}

func (p FormPrompter) Warn(msg string) {
	fmt.Fprintln(p.Out, warnStyle.Render("(!) "+msg))
}

func (p FormPrompter) Choose(title string, options []string) (int, error) {
	opts := make([]huh.Option[int], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, i)
	}

	selected := -1
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title(title).
				Description("Choose the device to run on").
				Options(opts...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return -1, errs.Wrap(err, errs.Args, "menu", "device selection cancelled")
	}
	return selected, nil
}

// DefaultPrompter returns a FormPrompter when in is a terminal and a
// LinePrompter otherwise.
func DefaultPrompter(in *os.File, out io.Writer) Prompter {
	if isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd()) {
		return FormPrompter{Out: out}
	}
	return &LinePrompter{In: in, Out: out}
}

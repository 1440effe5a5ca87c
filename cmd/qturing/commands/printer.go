package commands

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/theapemachine/qturing"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	attemptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	resultStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// printer renders search progress for humans.
type printer struct {
	out io.Writer
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out}
}

func (p *printer) title(msg string) {
	fmt.Fprintf(p.out, "\n%s\n", titleStyle.Render(msg))
}

func (p *printer) success(msg string) {
	fmt.Fprintf(p.out, "\n%s\n", successStyle.Render(msg))
}

func (p *printer) failure(msg string) {
	fmt.Fprintf(p.out, "\n%s\n", failureStyle.Render(msg))
}

func (p *printer) attempt(attempt qturing.Attempt, threshold float64) {
	fmt.Fprintf(p.out, "\n%s\n", attemptStyle.Render(fmt.Sprintf("Trying with %d steps...", attempt.Budget)))

	if attempt.Err != nil {
		p.failure(fmt.Sprintf("Execution failed at %d steps: %v", attempt.Budget, attempt.Err))
		return
	}

	fmt.Fprintln(p.out, headerStyle.Render("--- Final amplitudes ---"))
	for _, record := range attempt.Records {
		if record.Probability <= threshold {
			continue
		}

		fmt.Fprintf(
			p.out,
			"State: %3s | Head: %2d | Tape: %s | Amplitude: %.4f%+.4fi | Prob: %.4f\n",
			record.State,
			record.Head,
			record.Tape,
			record.AmplitudeReal,
			record.AmplitudeImag,
			record.Probability,
		)
	}
}

func (p *printer) outcome(result *qturing.SearchResult, limit int) {
	if result.Found {
		p.success(fmt.Sprintf("Accept state reached with %d steps.", result.Steps))
		return
	}

	p.failure(fmt.Sprintf("No accept state found within %d steps.", limit))
}

func (p *printer) evolution(result *qturing.SearchResult, threshold float64) {
	fmt.Fprintf(p.out, "\n%s\n", headerStyle.Render("--- Amplitude evolution ---"))

	for _, attempt := range result.Attempts {
		fmt.Fprintf(p.out, "\n%s\n", stepStyle.Render(fmt.Sprintf("Step %d:", attempt.Budget)))

		for _, record := range attempt.Records {
			if record.Probability <= threshold {
				continue
			}

			fmt.Fprintf(
				p.out,
				"  State: %3s | Head: %2d | Tape: %s | Prob: %.4f\n",
				record.State,
				record.Head,
				record.Tape,
				record.Probability,
			)
		}
	}
}

func (p *printer) measurement(result *qturing.SearchResult) {
	if result.FinalErr != nil {
		p.failure(fmt.Sprintf("Measurement failed: %v", result.FinalErr))
		return
	}

	fmt.Fprintf(p.out, "\n%s\n", resultStyle.Render("Measurement result:"))
	fmt.Fprintf(p.out, "Final state: %s\n", result.Final.State)
	fmt.Fprintf(p.out, "Final tape: %s\n", result.Final.Tape)
	fmt.Fprintf(p.out, "Head position: %d\n", result.Final.Head)
}

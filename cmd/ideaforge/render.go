package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"ideaforge/internal/progress"
	"ideaforge/internal/workflow"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	scoreStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	deltaUpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	deltaDownSty  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sectionStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Faint(true)
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	progressStyle = lipgloss.NewStyle().Faint(true)
)

// renderProgress prints progress events to stderr until the channel closes.
func renderProgress(events <-chan progress.Event) {
	for ev := range events {
		fmt.Fprintln(os.Stderr, progressStyle.Render(
			fmt.Sprintf("[%3.0f%%] %s", ev.Progress*100, ev.Message)))
	}
}

func renderResult(w io.Writer, res *workflow.Result) {
	fmt.Fprintf(w, "\n%s\n", titleStyle.Render(fmt.Sprintf("Topic: %s", res.Topic)))
	if res.Context != "" {
		fmt.Fprintf(w, "%s\n", dimStyle.Render("Context: "+res.Context))
	}
	fmt.Fprintf(w, "%s\n\n", dimStyle.Render(fmt.Sprintf(
		"run %s · %d tokens · %s%s",
		res.RunID, res.TokensUsed, res.Elapsed.Round(10*time.Millisecond),
		cacheTag(res.CacheHit))))

	for i, c := range res.Candidates {
		fmt.Fprintf(w, "%s\n", titleStyle.Render(fmt.Sprintf("#%d  %s", i+1, c.Idea)))
		fmt.Fprintf(w, "  %s %s", sectionStyle.Render("Initial:"), scoreStyle.Render(fmt.Sprintf("%.1f/10", c.InitialScore)))
		fmt.Fprintf(w, "  %s\n", dimStyle.Render(c.InitialCritique))

		if c.Advocacy != "" {
			fmt.Fprintf(w, "  %s %s\n", sectionStyle.Render("Advocate:"), c.Advocacy)
		}
		if c.Skepticism != "" {
			fmt.Fprintf(w, "  %s %s\n", sectionStyle.Render("Skeptic: "), c.Skepticism)
		}

		fmt.Fprintf(w, "  %s %s\n", sectionStyle.Render("Improved:"), c.ImprovedIdea)
		fmt.Fprintf(w, "  %s %s %s", sectionStyle.Render("Re-score:"),
			scoreStyle.Render(fmt.Sprintf("%.1f/10", c.ImprovedScore)),
			renderDelta(c.ScoreDelta))
		if !c.IsMeaningfulImprovement {
			fmt.Fprintf(w, "  %s", warnStyle.Render("(marginal rework)"))
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %s\n", dimStyle.Render(c.ImprovedCritique))

		if c.MultiDim != nil {
			fmt.Fprintf(w, "  %s %s\n", sectionStyle.Render("Dimensions:"), renderDimensions(c))
		}
		if c.Logical != nil {
			fmt.Fprintf(w, "  %s %s %s\n", sectionStyle.Render("Inference:"),
				c.Logical.Conclusion,
				dimStyle.Render(fmt.Sprintf("(confidence %.2f)", c.Logical.Confidence)))
		}
		for _, n := range c.PartialFailures {
			fmt.Fprintf(w, "  %s\n", warnStyle.Render(fmt.Sprintf("! %s degraded: %s", n.Stage, n.Message)))
		}
		fmt.Fprintln(w)
	}

	for _, n := range res.Failures {
		fmt.Fprintf(w, "%s\n", warnStyle.Render(fmt.Sprintf("! %s: %s", n.Stage, n.Message)))
	}
}

func renderDelta(delta float64) string {
	s := fmt.Sprintf("%+.1f", delta)
	if delta >= 0 {
		return deltaUpStyle.Render(s)
	}
	return deltaDownSty.Render(s)
}

func renderDimensions(c workflow.CandidateResult) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("weighted %.1f", c.MultiDim.Weighted))
	if c.ImprovedMultiDim != nil {
		parts = append(parts, fmt.Sprintf("improved %.1f", c.ImprovedMultiDim.Weighted))
	}
	parts = append(parts, fmt.Sprintf("confidence %.2f", c.MultiDim.ConfidenceInterval))
	return strings.Join(parts, " · ")
}

func cacheTag(hit bool) string {
	if hit {
		return " · cached"
	}
	return ""
}

package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/sitemirror/internal/model"
)

// Directions of a Comparison.
const (
	DirectionImproved  = "improved"
	DirectionWorsened  = "worsened"
	DirectionUnchanged = "unchanged"
)

// Run is a stored crawl that takes part in a comparison.
type Run struct {
	ID      int64
	Summary model.Summary
}

// RunInfo describes one side of a comparison.
type RunInfo struct {
	ID        int64        `json:"id"`
	StartedAt time.Time    `json:"started_at"`
	Counts    model.Counts `json:"counts"`
}

// Comparison is the difference between two runs of the same site.
type Comparison struct {
	BaseURL  string  `json:"base_url"`
	Previous RunInfo `json:"previous"`
	Current  RunInfo `json:"current"`

	// NewFailures failed in the current run but not in the previous one.
	NewFailures []string `json:"new_failures"`
	// Recovered failed previously and were mirrored this time.
	Recovered []string `json:"recovered"`
	// StillFailing failed in both runs.
	StillFailing []string `json:"still_failing"`
	// Added were mirrored now and not attempted before.
	Added []string `json:"added"`
	// Missing were mirrored before and not attempted now.
	Missing []string `json:"missing"`
	// Changed were mirrored in both runs with a different content digest.
	Changed []string `json:"changed"`

	// Direction compares the number of failures.
	Direction string `json:"direction"`
}

// Compare diffs two runs. Outcomes are used when present; otherwise only
// the URL lists are compared and Changed stays empty.
func Compare(previous, current Run) *Comparison {
	prev := indexRun(previous.Summary)
	curr := indexRun(current.Summary)

	c := &Comparison{
		BaseURL:      current.Summary.BaseURL,
		Previous:     runInfo(previous),
		Current:      runInfo(current),
		NewFailures:  []string{},
		Recovered:    []string{},
		StillFailing: []string{},
		Added:        []string{},
		Missing:      []string{},
		Changed:      []string{},
	}

	for u, now := range curr {
		before, seen := prev[u]
		switch {
		case !now.ok && (!seen || before.ok):
			c.NewFailures = append(c.NewFailures, u)
		case !now.ok:
			c.StillFailing = append(c.StillFailing, u)
		case seen && !before.ok:
			c.Recovered = append(c.Recovered, u)
		case !seen:
			c.Added = append(c.Added, u)
		case now.digest != "" && before.digest != "" && now.digest != before.digest:
			c.Changed = append(c.Changed, u)
		}
	}
	for u, before := range prev {
		if _, seen := curr[u]; !seen && before.ok {
			c.Missing = append(c.Missing, u)
		}
	}
	for _, list := range [][]string{c.NewFailures, c.Recovered, c.StillFailing, c.Added, c.Missing, c.Changed} {
		slices.Sort(list)
	}

	prevFailed := previous.Summary.Counts.FailedPages + previous.Summary.Counts.FailedAssets
	currFailed := current.Summary.Counts.FailedPages + current.Summary.Counts.FailedAssets
	switch {
	case currFailed < prevFailed:
		c.Direction = DirectionImproved
	case currFailed > prevFailed:
		c.Direction = DirectionWorsened
	default:
		c.Direction = DirectionUnchanged
	}
	return c
}

type urlState struct {
	ok     bool
	digest string
}

func indexRun(s model.Summary) map[string]urlState {
	index := make(map[string]urlState)
	if len(s.Outcomes) > 0 {
		for _, o := range s.Outcomes {
			index[o.URL] = urlState{ok: o.Succeeded(), digest: o.Digest}
		}
		return index
	}
	for _, u := range slices.Concat(s.SuccessPages, s.SuccessAssets) {
		index[u] = urlState{ok: true}
	}
	for _, u := range slices.Concat(s.FailedPages, s.FailedAssets) {
		index[u] = urlState{}
	}
	return index
}

func runInfo(r Run) RunInfo {
	return RunInfo{ID: r.ID, StartedAt: r.Summary.StartedAt, Counts: r.Summary.Counts}
}

// WriteJSON writes the comparison as indented JSON.
func (c *Comparison) WriteJSON(output io.Writer) error {
	_, err := writeJSON(output, c, "", "  ")
	return err
}

func (c *Comparison) lists() []struct {
	title string
	urls  []string
} {
	return []struct {
		title string
		urls  []string
	}{
		{"New Failures", c.NewFailures},
		{"Recovered", c.Recovered},
		{"Still Failing", c.StillFailing},
		{"Changed Content", c.Changed},
		{"Added", c.Added},
		{"Missing", c.Missing},
	}
}

func (c *Comparison) countRows() [][]string {
	p, n := c.Previous.Counts, c.Current.Counts
	row := func(label string, before, after int) []string {
		return []string{label, strconv.Itoa(before), strconv.Itoa(after), formatDelta(after - before)}
	}
	return [][]string{
		row("Successful pages", p.SuccessPages, n.SuccessPages),
		row("Failed pages", p.FailedPages, n.FailedPages),
		row("Successful assets", p.SuccessAssets, n.SuccessAssets),
		row("Failed assets", p.FailedAssets, n.FailedAssets),
	}
}

// WriteText writes a terminal friendly rendering.
func (c *Comparison) WriteText(output io.Writer) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Run comparison: %s\n", c.BaseURL)
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")
	fmt.Fprintf(&sb, "Status: %s\n\n", formatDirection(c.Direction))
	fmt.Fprintf(&sb, "Previous run: #%d %s\n", c.Previous.ID, c.Previous.StartedAt.Format(timeLayout))
	fmt.Fprintf(&sb, "Current run:  #%d %s\n\n", c.Current.ID, c.Current.StartedAt.Format(timeLayout))

	fmt.Fprintf(&sb, "  %-18s  %-8s  %-8s  %s\n", "Bucket", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 48) + "\n")
	for _, r := range c.countRows() {
		fmt.Fprintf(&sb, "  %-18s  %-8s  %-8s  %s\n", r[0], r[1], r[2], r[3])
	}

	for _, l := range c.lists() {
		if len(l.urls) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s (%d):\n", l.title, len(l.urls))
		for _, u := range l.urls {
			fmt.Fprintf(&sb, "  %s\n", u)
		}
	}

	_, err := io.WriteString(output, sb.String())
	return err
}

// WriteMarkdown writes the comparison as markdown.
func (c *Comparison) WriteMarkdown(output io.Writer) error {
	md := markdown.NewMarkdown(output)

	md.H1("Run Comparison")
	md.PlainText("")
	md.PlainTextf("**Site:** `%s`", c.BaseURL)
	md.PlainText("")
	md.PlainTextf("**Status:** %s", formatDirection(c.Direction))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Bucket", "Run #" + strconv.FormatInt(c.Previous.ID, 10), "Run #" + strconv.FormatInt(c.Current.ID, 10), "Change"},
		Rows:   c.countRows(),
	})
	md.PlainText("")

	if len(c.NewFailures) > 0 {
		md.Warningf("%d URL(s) started failing since run #%d.", len(c.NewFailures), c.Previous.ID)
		md.PlainText("")
	}

	for _, l := range c.lists() {
		if len(l.urls) == 0 {
			continue
		}
		md.H2(fmt.Sprintf("%s (%d)", l.title, len(l.urls)))
		md.PlainText("")
		md.BulletList(l.urls...)
		md.PlainText("")
	}
	return md.Build()
}

func formatDirection(direction string) string {
	switch direction {
	case DirectionImproved:
		return "IMPROVED (fewer failures)"
	case DirectionWorsened:
		return "WORSENED (more failures)"
	default:
		return "UNCHANGED"
	}
}

func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

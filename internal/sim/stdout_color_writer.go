// ColorStdoutWriter prints human-friendly, colorized traces to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"

	"netattack-sim/internal/network"
	"netattack-sim/internal/scenario"
	"netattack-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// outcomeColor maps outcome names to ANSI colors.
var outcomeColor = map[string]string{
	network.Succeeded.String():          colorGreen,
	network.ConnectionError.String():    colorRed,
	network.PermissionError.String():    colorMagenta,
	network.PreconditionFailed.String(): colorYellow,
	network.ChanceFailure.String():      colorCyan,
}

// ColorStdoutWriter prints step rows using ANSI colors.
type ColorStdoutWriter struct {
	def  *scenario.Definition
	out  io.Writer
	once sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
// def may be nil, in which case no overview is printed.
func NewColorStdoutWriter(def *scenario.Definition) *ColorStdoutWriter {
	return &ColorStdoutWriter{def: def, out: os.Stdout}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.def == nil {
		return
	}
	d := w.def
	fmt.Fprintln(w.out, "Scenario:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", d.Name)
	fmt.Fprintf(tw, "Hosts:\t%d in %d subnets\n", d.NumHosts(), len(d.Subnets)-1)
	fmt.Fprintf(tw, "Exploits:\t%s\n", strings.Join(d.ExploitNames(), ", "))
	fmt.Fprintf(tw, "Privilege escalations:\t%s\n", strings.Join(d.PrivEscNames(), ", "))
	fmt.Fprintf(tw, "Step limit:\t%d\n", d.StepLimit)
	tw.Flush()

	fmt.Fprintln(w.out, "\nSensitive hosts:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Address\tOS\tValue\n")
	for _, a := range d.SensitiveAddresses() {
		fmt.Fprintf(tw, "%s%s%s\t%s\t%.0f\n", colorYellow, a, colorReset, d.Hosts[a].OS, d.Sensitive[a])
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

// WriteStep outputs a single step row in colorized format.
func (w *ColorStdoutWriter) WriteStep(row telemetry.StepRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintln(w.out, formatStep(row))
	return nil
}

// WriteEpisode prints the episode summary.
func (w *ColorStdoutWriter) WriteEpisode(row telemetry.EpisodeRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintln(w.out, formatEpisode(row))
	return nil
}

func formatStep(row telemetry.StepRow) string {
	oc, ok := outcomeColor[row.Outcome]
	if !ok {
		oc = colorGray
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%04d]%s ", colorGray, row.Step, colorReset)
	fmt.Fprintf(&b, "%s%-40s%s ", colorBlue, row.Action, colorReset)
	fmt.Fprintf(&b, "%s%-19s%s ", oc, row.Outcome, colorReset)
	fmt.Fprintf(&b, "reward=%6.1f total=%7.1f", row.Reward, row.TotalReward)
	if row.Value > 0 {
		fmt.Fprintf(&b, " %svalue=%.0f%s", colorYellow, row.Value, colorReset)
	}
	if row.GoalReached {
		fmt.Fprintf(&b, " %sGOAL%s", colorGreen, colorReset)
	} else if row.StepLimitReached {
		fmt.Fprintf(&b, " %sSTEP LIMIT%s", colorRed, colorReset)
	}
	return b.String()
}

func formatEpisode(row telemetry.EpisodeRow) string {
	result := colorRed + "step limit" + colorReset
	if row.GoalReached {
		result = colorGreen + "goal reached" + colorReset
	}
	return fmt.Sprintf("%sEPISODE%s %s seed=%d steps=%d reward=%.1f compromised=%d %s",
		colorMagenta, colorReset, row.EpisodeID, row.Seed, row.Steps, row.TotalReward, row.Compromised, result)
}

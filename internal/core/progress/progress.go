package progress

import (
	"fmt"
	"strings"

	"github.com/schollz/progressbar/v3"
)

// maxStreams caps how many in-flight files the description lists
const maxStreams = 4

var Progress = progressCreate(-1, "") // init as spinner

func ProgressSpinner(desc string) {
	_ = Progress.Clear()
	ProgressReset(-1, desc)
	_ = Progress.RenderBlank()
}

func ProgressReset(max int, desc string) {
	Progress = progressCreate(max, desc)
}

func Add(n int) {
	_ = Progress.Add(n)
}

// Streams shows the reassembly state next to the frame count
func Streams(prefix string, done int, inFlight []float64) {
	Progress.Describe(DescribeStreams(prefix, done, inFlight))
}

// DescribeStreams formats completed files and the fraction received
// of each file still in flight
func DescribeStreams(prefix string, done int, inFlight []float64) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	fmt.Fprintf(&sb, "%d done", done)
	for i, f := range inFlight {
		if i == maxStreams {
			fmt.Fprintf(&sb, " +%d", len(inFlight)-maxStreams)
			break
		}
		if f > 1 {
			f = 1
		}
		fmt.Fprintf(&sb, " [%3.0f%%]", f*100)
	}
	return sb.String()
}

func Finish() {
	_ = Progress.Finish()
}

func progressCreate(max int, desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]/[reset]",
			SaucerHead:    "[green]/[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

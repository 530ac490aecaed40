// Package export writes averaged walker statistics out of the process.
package export

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/misterem/RandomWalker/internal/stats"
)

// FileName is the name of the text report for a walker.
func FileName(walker string) string {
	return fmt.Sprintf("Stats For %s.txt", walker)
}

// WriteText renders snap as the plain-text report. Values are rounded to two
// decimals.
func WriteText(w io.Writer, walker string, snap stats.Snapshot) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Statistics for %s\n", walker)
	if snap.Copies > 1 {
		fmt.Fprintf(bw, "Average of %d Walkers\n\n", snap.Copies)
	} else {
		bw.WriteString("Average of 1 Walker\n\n")
	}

	bw.WriteString("Average Distance From Center Per Step:\n")
	bw.WriteString(list(snap.Series(stats.DistanceFromCenter)))
	bw.WriteString("\n\nAverage Distance From Axis Per Step:\n")
	bw.WriteString("X axis: " + list(snap.Series(stats.DistanceFromX)) + "\n")
	bw.WriteString("Y axis: " + list(snap.Series(stats.DistanceFromY)))
	bw.WriteString("\n\nAverage Radius Crossed At Each Step:\n")
	bw.WriteString(list(snap.Series(stats.RadiusSteps)))
	bw.WriteString("\n\nAverage # of Times To Cross Axis Per Step:\n")
	bw.WriteString("X axis: " + list(snap.Series(stats.CrossedX)) + "\n")
	bw.WriteString("Y axis: " + list(snap.Series(stats.CrossedY)))
	return bw.Flush()
}

// WriteTextFile writes the report into dir and returns the file path.
func WriteTextFile(dir, walker string, snap stats.Snapshot) (string, error) {
	path := filepath.Join(dir, FileName(walker))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := WriteText(f, walker, snap); err != nil {
		f.Close()
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	return path, nil
}

// list formats values as "[0.0, 7.07, 10.0]".
func list(xs []float64) string {
	parts := make([]string, len(xs))
	for i, v := range xs {
		parts[i] = number(math.Round(v*100) / 100)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func number(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}

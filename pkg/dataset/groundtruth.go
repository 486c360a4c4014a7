package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/menta2k/template-synth/pkg/types"
)

// FormatGroundTruth renders "<x> <y> <w> <h><sep><label>". No trailing newline
// is written.
func FormatGroundTruth(box types.BoundingBox, label, sep string) string {
	return fmt.Sprintf("%d %d %d %d%s%s", box.X, box.Y, box.Width, box.Height, sep, label)
}

// ParseGroundTruth reads a ground-truth line back. It accepts both the spaced
// form ("12 34 56 78 stop") and the concatenated form ("12 34 56 78stop").
func ParseGroundTruth(line string) (types.BoundingBox, string, error) {
	rest := strings.TrimRight(line, "\r\n")
	var vals [4]int
	for i := range vals {
		rest = strings.TrimLeft(rest, " ")
		end := 0
		if end < len(rest) && rest[end] == '-' {
			end++
		}
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		v, err := strconv.Atoi(rest[:end])
		if err != nil {
			return types.BoundingBox{}, "", fmt.Errorf("ground truth %q: field %d is not an integer", line, i+1)
		}
		vals[i] = v
		rest = rest[end:]
	}
	label := strings.TrimPrefix(rest, " ")
	if label == "" {
		return types.BoundingBox{}, "", fmt.Errorf("ground truth %q: missing label", line)
	}
	return types.BoundingBox{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, label, nil
}

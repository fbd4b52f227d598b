// Package report prints fit comparisons as human-readable text.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/plantabyte/hillclimbfit/internal/config"
	"github.com/plantabyte/hillclimbfit/internal/fit"
)

// Write prints the true parameters, then each method's parameters and error
// vector, then the hill-climb iteration count if that method ran.
func Write(w io.Writer, cmp *fit.Comparison) error {
	var b strings.Builder

	fmt.Fprintf(&b, "real parameters: %s\n", FormatVector(cmp.Scenario.TrueParams))
	for _, res := range cmp.Results {
		fmt.Fprintf(&b, "%s-solved parameters: %s\n", res.Method, FormatVector(res.Params))
		fmt.Fprintf(&b, "\terror: %s\n", FormatVector(res.Errors))
	}
	if hc, ok := cmp.Result(config.MethodHillClimb); ok {
		fmt.Fprintf(&b, "took %d iterations\n", hc.Iterations)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatVector renders values as [v0 v1 ...] using the shortest exact form
func FormatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

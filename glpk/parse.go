package glpk

import (
	"math"
	"strconv"
	"strings"

	"gopkg.in/errgo.v1"

	"github.com/rogpeppe/gridplan/linprog"
)

// parseSolution parses the report written by glpsol --output.
// The report is fixed-width (see glp_print_sol in the GLPK source):
//
//	%6d %-12s %2s %13s %13s %13s %13s
//	No.    name        st activity      lower         upper         marginal
//
// with names longer than 12 characters printed on their own line and
// the remaining fields continued on the next one.
func parseSolution(report string, p *linprog.Problem) (*linprog.Solution, error) {
	sol := &linprog.Solution{
		Status: linprog.StatusUndefined,
	}
	colValue := make(map[string]float64)
	rowDual := make(map[string]float64)
	haveDuals := false

	const (
		secNone = iota
		secRows
		secCols
	)
	section := secNone
	lines := strings.Split(report, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, "Status:"):
			sol.Status = parseStatus(strings.TrimSpace(line[len("Status:"):]))
			continue
		case strings.HasPrefix(line, "Objective:"):
			obj, err := parseObjective(line)
			if err != nil {
				return nil, errgo.Mask(err)
			}
			sol.Objective = obj
			continue
		case strings.Contains(line, "Row name"):
			section = secRows
			continue
		case strings.Contains(line, "Column name"):
			section = secCols
			continue
		}
		if section == secNone || !isEntryLine(line) {
			continue
		}
		name, rest := splitEntry(line)
		if rest == "" && i+1 < len(lines) {
			// Long name: fields continue on the next line.
			i++
			rest = lines[i]
		}
		activity, marginal := entryValues(rest)
		switch section {
		case secRows:
			rowDual[name] = marginal
			if !math.IsNaN(marginal) {
				haveDuals = true
			}
		case secCols:
			if math.IsNaN(activity) {
				activity = 0
			}
			colValue[name] = activity
		}
	}

	if sol.Status == linprog.StatusInfeasible || sol.Status == linprog.StatusUnbounded {
		return sol, nil
	}
	sol.Values = make([]float64, p.NumVars())
	for v := 0; v < p.NumVars(); v++ {
		val, ok := colValue[p.SafeVarName(linprog.Var(v))]
		if !ok {
			return nil, errgo.Newf("no solution value for variable %q", p.VarName(linprog.Var(v)))
		}
		sol.Values[v] = val
	}
	if haveDuals {
		cons := p.Constraints()
		sol.Duals = make([]float64, len(cons))
		for i := range cons {
			d := rowDual[p.SafeConstraintName(i)]
			if math.IsNaN(d) {
				d = 0
			}
			sol.Duals[i] = d
		}
	}
	return sol, nil
}

func parseStatus(s string) linprog.Status {
	switch {
	case strings.Contains(s, "OPTIMAL"):
		return linprog.StatusOptimal
	case strings.Contains(s, "INFEASIBLE"), strings.Contains(s, "NO FEASIBLE"):
		return linprog.StatusInfeasible
	case strings.Contains(s, "UNBOUNDED"):
		return linprog.StatusUnbounded
	case strings.Contains(s, "UNDEFINED"):
		return linprog.StatusUndefined
	}
	// Pass unrecognised statuses through unchanged.
	return linprog.Status(s)
}

// parseObjective parses a line like
//
//	Objective:  obj = 186271.1 (MINimum)
func parseObjective(line string) (float64, error) {
	i := strings.Index(line, "=")
	if i < 0 {
		return 0, errgo.Newf("no objective value in %q", line)
	}
	fields := strings.Fields(line[i+1:])
	if len(fields) == 0 {
		return 0, errgo.Newf("no objective value in %q", line)
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, errgo.Newf("bad objective value in %q", line)
	}
	return v, nil
}

// isEntryLine reports whether the line starts with a right-aligned
// row/column sequence number.
func isEntryLine(line string) bool {
	if len(line) < 7 {
		return false
	}
	s := strings.TrimSpace(line[:6])
	if s == "" {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

// splitEntry splits an entry line into its name and the fixed-width
// remainder holding status and value fields. An empty remainder means
// the name was too long for its 12-character field (it then runs past
// the separator column) and the fields follow on the next line.
func splitEntry(line string) (name, rest string) {
	if len(line) <= 20 || line[19] != ' ' {
		return strings.TrimSpace(line[7:]), ""
	}
	return strings.TrimSpace(line[7:19]), line
}

// entryValues extracts the activity and marginal fields from a
// fixed-width entry line. Missing fields yield NaN; glpsol's "< eps"
// marker is treated as zero.
func entryValues(line string) (activity, marginal float64) {
	return valueField(line, 0), valueField(line, 3)
}

func valueField(line string, i int) float64 {
	start := 23 + 14*i
	if start >= len(line) {
		return math.NaN()
	}
	end := start + 13
	if end > len(line) {
		end = len(line)
	}
	s := strings.TrimSpace(line[start:end])
	if s == "" {
		return math.NaN()
	}
	if strings.Contains(s, "eps") {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

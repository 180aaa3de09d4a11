package linprog

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"gopkg.in/errgo.v1"
)

// WriteLP writes the problem in CPLEX LP format, as understood by
// glpsol, cbc, gurobi and friends. Variable and constraint names are
// sanitised (spaces and other separators become underscores) but kept
// otherwise intact so that solutions can be matched back by name.
func (p *Problem) WriteLP(w io.Writer) error {
	if err := p.checkNameCollisions(); err != nil {
		return errgo.Mask(err)
	}
	bw := bufio.NewWriter(w)
	bw.WriteString("\\ Problem: " + p.name + "\n")
	bw.WriteString("Minimize\n")
	if p.maximize {
		// The model builder only ever minimises; flipping the
		// sense here would silently change semantics.
		return errgo.New("maximisation is not supported")
	}
	bw.WriteString(" obj:")
	if len(p.obj.Terms) == 0 {
		if len(p.varNames) == 0 {
			return errgo.New("problem has no variables")
		}
		// LP format requires at least one term in the objective.
		bw.WriteString(" + 0 " + p.safeVarName(0))
	}
	writeExpr(bw, p, p.obj)
	bw.WriteString("\n")
	bw.WriteString("Subject To\n")
	for i, c := range p.cons {
		bw.WriteString(" " + p.safeConName(i) + ":")
		if len(c.Expr.Terms) == 0 {
			return errgo.Newf("constraint %q has no terms", c.Name)
		}
		writeExpr(bw, p, c.Expr)
		bw.WriteString(" " + c.Op.String() + " " + fmtFloat(c.RHS) + "\n")
	}
	bw.WriteString("Bounds\n")
	for v := range p.varNames {
		lo, hi := p.varLower[v], p.varUpper[v]
		name := p.safeVarName(Var(v))
		switch {
		case math.IsInf(lo, -1) && math.IsInf(hi, 1):
			bw.WriteString(" " + name + " free\n")
		case math.IsInf(hi, 1):
			if lo != 0 {
				bw.WriteString(" " + name + " >= " + fmtFloat(lo) + "\n")
			}
			// Default bound 0 <= x < +inf needs no entry.
		case math.IsInf(lo, -1):
			bw.WriteString(" -inf <= " + name + " <= " + fmtFloat(hi) + "\n")
		default:
			bw.WriteString(" " + fmtFloat(lo) + " <= " + name + " <= " + fmtFloat(hi) + "\n")
		}
	}
	bw.WriteString("End\n")
	return errgo.Mask(bw.Flush())
}

// SafeVarName returns the sanitised name of v as written by WriteLP,
// for matching solver output back to variables.
func (p *Problem) SafeVarName(v Var) string {
	return p.safeVarName(v)
}

// SafeConstraintName returns the sanitised name of constraint row i
// as written by WriteLP.
func (p *Problem) SafeConstraintName(i int) string {
	return p.safeConName(i)
}

func (p *Problem) safeVarName(v Var) string {
	return sanitizeName(p.varNames[v])
}

func (p *Problem) safeConName(i int) string {
	return sanitizeName(p.cons[i].Name)
}

func writeExpr(bw *bufio.Writer, p *Problem, e Expr) {
	for _, t := range e.Terms {
		c := t.Coef
		if c >= 0 {
			bw.WriteString(" + ")
		} else {
			bw.WriteString(" - ")
			c = -c
		}
		bw.WriteString(fmtFloat(c) + " " + p.safeVarName(t.Var))
	}
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// checkNameCollisions refuses to write a problem in which two
// distinct names sanitise to the same LP identifier: the solver would
// silently merge them and the solution could not be matched back.
func (p *Problem) checkNameCollisions() error {
	seen := make(map[string]string, len(p.varNames))
	for _, name := range p.varNames {
		s := sanitizeName(name)
		if prev, ok := seen[s]; ok && prev != name {
			return errgo.Newf("variable names %q and %q collide after sanitisation", prev, name)
		}
		seen[s] = name
	}
	seen = make(map[string]string, len(p.cons))
	for _, c := range p.cons {
		s := sanitizeName(c.Name)
		if prev, ok := seen[s]; ok && prev != c.Name {
			return errgo.Newf("constraint names %q and %q collide after sanitisation", prev, c.Name)
		}
		seen[s] = c.Name
	}
	return nil
}

// sanitizeName makes a name acceptable to the LP format reader.
// Letters, digits and a few punctuation characters survive;
// everything else (spaces in particular) becomes an underscore.
func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == '.', r == '(', r == ')', r == ',', r == '#':
			return r
		}
		return '_'
	}, s)
}

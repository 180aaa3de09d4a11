// Package linprog holds a sparse representation of a linear program:
// bounded continuous variables, named linear constraints and a linear
// objective. It knows nothing about energy systems - it is the neutral
// container handed to a Solver implementation.
package linprog

import (
	"math"

	"gopkg.in/errgo.v1"
)

// Var identifies a decision variable within a Problem.
// The zero value does not name a valid variable.
type Var int

// NoVar is returned by lookups that find no variable.
const NoVar Var = -1

// Term holds one coefficient-variable product within an expression.
type Term struct {
	Var  Var
	Coef float64
}

// Expr holds a linear expression sum(Terms) + Offset.
// The zero value is an empty expression.
type Expr struct {
	Terms  []Term
	Offset float64
}

// Add adds c*v to the expression. Zero coefficients are kept out
// so that the constraint matrix stays sparse.
func (e *Expr) Add(v Var, c float64) {
	if c == 0 {
		return
	}
	e.Terms = append(e.Terms, Term{Var: v, Coef: c})
}

// AddConst adds the constant c to the expression.
func (e *Expr) AddConst(c float64) {
	e.Offset += c
}

// AddExpr adds scale*e1 to the expression.
func (e *Expr) AddExpr(e1 Expr, scale float64) {
	if scale == 0 {
		return
	}
	for _, t := range e1.Terms {
		e.Add(t.Var, t.Coef*scale)
	}
	e.Offset += e1.Offset * scale
}

// Op holds the sense of a constraint relation.
type Op int

const (
	Eq Op = iota
	Le
	Ge
)

func (op Op) String() string {
	switch op {
	case Eq:
		return "="
	case Le:
		return "<="
	case Ge:
		return ">="
	}
	return "?"
}

// Constraint holds one named linear constraint
//
//	Expr Op RHS
//
// where any constant offset accumulated in Expr has already
// been folded into RHS by Problem.Add.
type Constraint struct {
	Name string
	Expr Expr
	Op   Op
	RHS  float64
}

// Problem holds a linear program under construction.
type Problem struct {
	name     string
	varNames []string
	varLower []float64
	varUpper []float64
	cons     []Constraint
	obj      Expr
	maximize bool
}

// New returns an empty problem with the given name.
// The name is informational only (it ends up in the LP file header).
func New(name string) *Problem {
	return &Problem{
		name: name,
	}
}

// Name returns the problem name given to New.
func (p *Problem) Name() string {
	return p.name
}

// AddVar adds a variable with the given name and bounds and returns
// its identifier. Use math.Inf for an unbounded side. Variable names
// must be unique within the problem; that invariant is the caller's
// to maintain (the model builder derives names from index tuples,
// which are unique by construction).
func (p *Problem) AddVar(name string, lower, upper float64) Var {
	p.varNames = append(p.varNames, name)
	p.varLower = append(p.varLower, lower)
	p.varUpper = append(p.varUpper, upper)
	return Var(len(p.varNames) - 1)
}

// NonNeg adds a variable bounded below by zero.
func (p *Problem) NonNeg(name string) Var {
	return p.AddVar(name, 0, math.Inf(1))
}

// Free adds a variable unbounded in both directions.
func (p *Problem) Free(name string) Var {
	return p.AddVar(name, math.Inf(-1), math.Inf(1))
}

// Add adds the constraint (e op rhs) under the given name and returns
// its row index. Any constant offset in e is moved over to the
// right-hand side.
func (p *Problem) Add(name string, e Expr, op Op, rhs float64) int {
	rhs -= e.Offset
	e.Offset = 0
	p.cons = append(p.cons, Constraint{
		Name: name,
		Expr: e,
		Op:   op,
		RHS:  rhs,
	})
	return len(p.cons) - 1
}

// Minimize sets the objective to minimise the given expression.
func (p *Problem) Minimize(e Expr) {
	p.obj = e
	p.maximize = false
}

// NumVars returns the number of variables added so far.
func (p *Problem) NumVars() int {
	return len(p.varNames)
}

// NumConstraints returns the number of constraints added so far.
func (p *Problem) NumConstraints() int {
	return len(p.cons)
}

// VarName returns the name of the given variable.
func (p *Problem) VarName(v Var) string {
	return p.varNames[v]
}

// Bounds returns the bounds of the given variable.
func (p *Problem) Bounds(v Var) (lower, upper float64) {
	return p.varLower[v], p.varUpper[v]
}

// Constraints returns the constraints in the order they were added.
// The returned slice is shared with the problem and must not be
// modified.
func (p *Problem) Constraints() []Constraint {
	return p.cons
}

// Objective returns the objective expression.
func (p *Problem) Objective() Expr {
	return p.obj
}

// Status holds the solver-reported status of a solve attempt.
// Values other than the named constants are passed through
// from the solver unchanged.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusInfeasible Status = "infeasible"
	StatusUnbounded  Status = "unbounded"
	StatusUndefined  Status = "undefined"
)

// Solution holds the result of solving a Problem.
type Solution struct {
	Status Status
	// Objective holds the objective value at the solution.
	Objective float64
	// Values holds one primal value per variable, indexed by Var.
	Values []float64
	// Duals holds one dual value per constraint row, in the order
	// returned by Problem.Constraints. It is nil unless dual
	// retention was requested from the solver.
	Duals []float64
}

// Value returns the primal value of v.
func (s *Solution) Value(v Var) float64 {
	return s.Values[v]
}

// Eval evaluates the expression at the solution.
func (s *Solution) Eval(e Expr) float64 {
	sum := e.Offset
	for _, t := range e.Terms {
		sum += t.Coef * s.Values[t.Var]
	}
	return sum
}

// ErrNotOptimal is the cause of errors returned by helpers that
// require an optimal solution.
var ErrNotOptimal = errgo.New("solution is not optimal")

// Package model turns a dataset into a linear program: the
// cost-minimisation problem of sizing and operating conversion
// processes, storage and transmission across sites so that demand is
// met in every timestep. Build is pure - it touches no solver and
// produces the same problem for the same input every time.
package model

import (
	"context"

	"gopkg.in/errgo.v1"

	"github.com/rogpeppe/gridplan/dataset"
	"github.com/rogpeppe/gridplan/linprog"
)

// CostType identifies one component of the objective.
type CostType string

const (
	CostInvest        CostType = "Invest"
	CostFixed         CostType = "Fixed"
	CostVariable      CostType = "Variable"
	CostFuel          CostType = "Fuel"
	CostRevenue       CostType = "Revenue"
	CostPurchase      CostType = "Purchase"
	CostStartup       CostType = "Startup"
	CostEnvironmental CostType = "Environmental"
)

// CostTypes holds all cost types in reporting order.
var CostTypes = []CostType{
	CostInvest,
	CostFixed,
	CostVariable,
	CostFuel,
	CostRevenue,
	CostPurchase,
	CostStartup,
	CostEnvironmental,
}

// ProCom identifies one flow of a commodity into or out of a process
// at a site.
type ProCom struct {
	Proc dataset.ProcKey
	Com  string
}

// TPro, TCom, TProCom, TTra, TSto and TSiteCom key per-timestep
// decision variables by timestep label plus entity key.
type TPro struct {
	T int
	K dataset.ProcKey
}

type TCom struct {
	T int
	K dataset.ComKey
}

type TProCom struct {
	T int
	K ProCom
}

type TTra struct {
	T int
	K dataset.TraKey
}

type TSto struct {
	T int
	K dataset.StoKey
}

type TSiteCom struct {
	T int
	K dataset.SiteCom
}

// TTSiteCom keys a demand shift scheduled at time TT that compensates
// an upshift at time T.
type TTSiteCom struct {
	T  int
	TT int
	K  dataset.SiteCom
}

// Options configures Build.
type Options struct {
	// Name names the problem. Defaults to "gridplan".
	Name string

	// Timesteps restricts the model to a contiguous run of the
	// dataset's timesteps. Nil means all of them. The first
	// selected step only seeds storage content; all flows range
	// over the remaining ones.
	Timesteps []int

	// DT holds the timestep duration in hours. Zero means 1.
	DT float64

	// Duals requests that constraint dual values be kept on the
	// solution returned by Solve.
	Duals bool
}

// Model holds a built problem together with the index sets and
// variable maps needed to interpret its solution.
type Model struct {
	Data    *dataset.Dataset
	Problem *linprog.Problem

	// DT holds the timestep duration in hours; Weight scales
	// per-timestep quantities to a full year.
	DT     float64
	Weight float64

	// Timesteps holds the selected steps including the initial
	// one; Modelled is Timesteps without it.
	Timesteps []int
	Modelled  []int

	// Derived index sets.
	ComTuples          []dataset.ComKey
	ProTuples          []dataset.ProcKey
	TraTuples          []dataset.TraKey
	StoTuples          []dataset.StoKey
	DSMTuples          []dataset.SiteCom
	ProInputTuples     []ProCom
	ProOutputTuples    []ProCom
	PartialTuples      []dataset.ProcKey
	PartialInputTuples []ProCom
	MaxGradTuples      []dataset.ProcKey

	// Decision variables.
	Cost       map[CostType]linprog.Var
	CapPro     map[dataset.ProcKey]linprog.Var
	CapProNew  map[dataset.ProcKey]linprog.Var
	TauPro     map[TPro]linprog.Var
	EProIn     map[TProCom]linprog.Var
	EProOut    map[TProCom]linprog.Var
	CapOnline  map[TPro]linprog.Var
	StartupPro map[TPro]linprog.Var
	ECoStock   map[TCom]linprog.Var
	ECoSell    map[TCom]linprog.Var
	ECoBuy     map[TCom]linprog.Var
	CapTra     map[dataset.TraKey]linprog.Var
	CapTraNew  map[dataset.TraKey]linprog.Var
	ETraIn     map[TTra]linprog.Var
	ETraOut    map[TTra]linprog.Var
	CapStoC    map[dataset.StoKey]linprog.Var
	CapStoCNew map[dataset.StoKey]linprog.Var
	CapStoP    map[dataset.StoKey]linprog.Var
	CapStoPNew map[dataset.StoKey]linprog.Var
	EStoIn     map[TSto]linprog.Var
	EStoOut    map[TSto]linprog.Var
	EStoCon    map[TSto]linprog.Var
	DSMUp      map[TSiteCom]linprog.Var
	DSMDown    map[TTSiteCom]linprog.Var

	rIn        map[dataset.ProcCom]float64
	rOut       map[dataset.ProcCom]float64
	rInMin     map[dataset.ProcCom]float64
	annuityPro map[dataset.ProcKey]float64
	annuityTra map[dataset.TraKey]float64
	annuitySto map[dataset.StoKey]float64
	tsPos      map[int]int
	duals      bool
}

// Build derives the model's index sets and parameters from data,
// declares the decision variables and generates the full constraint
// and cost structure. It fails fast on inconsistent input: dangling
// references, missing timeseries and numerically degenerate
// parameters are build errors, not solver surprises.
func Build(data *dataset.Dataset, opts Options) (*Model, error) {
	name := opts.Name
	if name == "" {
		name = "gridplan"
	}
	dt := opts.DT
	if dt == 0 {
		dt = 1
	}
	if dt < 0 {
		return nil, errgo.Newf("negative timestep duration %v", dt)
	}
	m := &Model{
		Data:    data,
		Problem: linprog.New(name),
		DT:      dt,
		duals:   opts.Duals,
	}
	if err := m.selectTimesteps(opts.Timesteps); err != nil {
		return nil, errgo.Mask(err)
	}
	m.Weight = 8760 / (float64(len(m.Modelled)) * m.DT)
	if err := m.validate(); err != nil {
		return nil, errgo.Mask(err)
	}
	m.deriveSets()
	if err := m.deriveParams(); err != nil {
		return nil, errgo.Mask(err)
	}
	m.declareVars()
	if err := m.addConstraints(); err != nil {
		return nil, errgo.Mask(err)
	}
	if err := m.addCosts(); err != nil {
		return nil, errgo.Mask(err)
	}
	return m, nil
}

// selectTimesteps checks the requested timesteps against the dataset
// and fills in Timesteps, Modelled and the series offset table.
func (m *Model) selectTimesteps(requested []int) error {
	pos := make(map[int]int, len(m.Data.Timesteps))
	for i, t := range m.Data.Timesteps {
		if _, ok := pos[t]; ok {
			return errgo.Newf("duplicate timestep %d in dataset", t)
		}
		pos[t] = i
	}
	steps := requested
	if steps == nil {
		steps = m.Data.Timesteps
	}
	if len(steps) < 2 {
		return errgo.Newf("need at least 2 timesteps; got %d", len(steps))
	}
	prev := -1
	for i, t := range steps {
		p, ok := pos[t]
		if !ok {
			return errgo.Newf("timestep %d is not in the dataset", t)
		}
		if i > 0 && p != prev+1 {
			return errgo.Newf("timesteps are not a contiguous run of the dataset's (%d does not follow %d)", t, steps[i-1])
		}
		prev = p
	}
	m.Timesteps = steps
	m.Modelled = steps[1:]
	m.tsPos = pos
	return nil
}

// Solve runs the problem through the given solver. Infeasibility is
// reported through the solution status, not an error. Dual values are
// dropped unless they were requested at build time.
func (m *Model) Solve(ctx context.Context, solver linprog.Solver) (*linprog.Solution, error) {
	sol, err := solver.Solve(ctx, m.Problem)
	if err != nil {
		return nil, errgo.Mask(err)
	}
	if !m.duals {
		sol.Duals = nil
	}
	return sol, nil
}

// series value lookups, by timestep label.

func (m *Model) demandAt(k dataset.SiteCom, t int) float64 {
	return m.Data.Demand[k][m.tsPos[t]]
}

func (m *Model) supimAt(k dataset.SiteCom, t int) float64 {
	return m.Data.SupIm[k][m.tsPos[t]]
}

// priceAt resolves the effective price of commodity c at timestep t.
func (m *Model) priceAt(c *dataset.Commodity, t int) (float64, error) {
	v, err := c.Price.At(m.Data.BuySellPrices, m.tsPos[t])
	if err != nil {
		return 0, errgo.Notef(err, "commodity %s.%s", c.Site, c.Name)
	}
	return v, nil
}

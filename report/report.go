// Package report extracts tables and timeseries from a solved model.
// Everything here is computed from the solution's variable values and
// the model's input data; no solver state is needed.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/errgo.v1"

	"github.com/rogpeppe/gridplan/dataset"
	"github.com/rogpeppe/gridplan/linprog"
	"github.com/rogpeppe/gridplan/model"
)

// Result gives access to a solved model instance.
type Result struct {
	m   *model.Model
	sol *linprog.Solution
}

// New returns a Result for the given model and solution. It fails
// with a linprog.ErrNotOptimal cause if the solution is anything but
// optimal, so callers cannot accidentally report garbage from an
// infeasible run.
func New(m *model.Model, sol *linprog.Solution) (*Result, error) {
	if sol.Status != linprog.StatusOptimal {
		return nil, errgo.WithCausef(nil, linprog.ErrNotOptimal, "solution status is %q", sol.Status)
	}
	return &Result{m: m, sol: sol}, nil
}

// Objective returns the objective value: total annualised system
// cost.
func (r *Result) Objective() float64 {
	return r.sol.Objective
}

// Costs returns the cost breakdown by type.
func (r *Result) Costs() map[model.CostType]float64 {
	costs := make(map[model.CostType]float64, len(model.CostTypes))
	for _, ct := range model.CostTypes {
		costs[ct] = r.sol.Value(r.m.Cost[ct])
	}
	return costs
}

// ProcessCap holds total and newly installed capacity of one process.
type ProcessCap struct {
	Site    string
	Process string
	Total   float64
	New     float64
}

// ProcessCaps returns process capacities in dataset order.
func (r *Result) ProcessCaps() []ProcessCap {
	caps := make([]ProcessCap, 0, len(r.m.ProTuples))
	for _, k := range r.m.ProTuples {
		caps = append(caps, ProcessCap{
			Site:    k.Site,
			Process: k.Process,
			Total:   r.sol.Value(r.m.CapPro[k]),
			New:     r.sol.Value(r.m.CapProNew[k]),
		})
	}
	return caps
}

// TransmissionCap holds total and new capacity of one directed link.
type TransmissionCap struct {
	SiteIn  string
	SiteOut string
	Tech    string
	Com     string
	Total   float64
	New     float64
}

// TransmissionCaps returns transmission capacities in dataset order.
func (r *Result) TransmissionCaps() []TransmissionCap {
	caps := make([]TransmissionCap, 0, len(r.m.TraTuples))
	for _, k := range r.m.TraTuples {
		caps = append(caps, TransmissionCap{
			SiteIn:  k.SiteIn,
			SiteOut: k.SiteOut,
			Tech:    k.Tech,
			Com:     k.Com,
			Total:   r.sol.Value(r.m.CapTra[k]),
			New:     r.sol.Value(r.m.CapTraNew[k]),
		})
	}
	return caps
}

// StorageCap holds power and energy capacities of one storage unit.
type StorageCap struct {
	Site        string
	Storage     string
	Com         string
	PowerTotal  float64
	PowerNew    float64
	EnergyTotal float64
	EnergyNew   float64
}

// StorageCaps returns storage capacities in dataset order.
func (r *Result) StorageCaps() []StorageCap {
	caps := make([]StorageCap, 0, len(r.m.StoTuples))
	for _, k := range r.m.StoTuples {
		caps = append(caps, StorageCap{
			Site:        k.Site,
			Storage:     k.Storage,
			Com:         k.Com,
			PowerTotal:  r.sol.Value(r.m.CapStoP[k]),
			PowerNew:    r.sol.Value(r.m.CapStoPNew[k]),
			EnergyTotal: r.sol.Value(r.m.CapStoC[k]),
			EnergyNew:   r.sol.Value(r.m.CapStoCNew[k]),
		})
	}
	return caps
}

// Timeseries holds the per-timestep breakdown of one commodity at one
// site, one value per entry of Timesteps.
type Timeseries struct {
	Timesteps []int

	// Demand holds the input demand; ShiftedDemand is demand after
	// applying DSM up- and downshifts. The two are identical when
	// no DSM entry exists.
	Demand        []float64
	ShiftedDemand []float64

	// Created and Consumed hold flows per process name.
	Created  map[string][]float64
	Consumed map[string][]float64

	// Stock, Bought and Sold hold the commodity source/sink flows,
	// non-nil only for the matching commodity type.
	Stock  []float64
	Bought []float64
	Sold   []float64

	// Storage flows, summed over all storage units for the
	// commodity at the site.
	StorageLevel []float64
	Charged      []float64
	Discharged   []float64

	// Imported and Exported hold transmission flows keyed by the
	// remote site, summed over technologies.
	Imported map[string][]float64
	Exported map[string][]float64

	// DSMUp and DSMDown hold the shift amounts per timestep.
	DSMUp   []float64
	DSMDown []float64
}

// Timeseries extracts the flows of the given commodity at the given
// site over the modelled timesteps.
func (r *Result) Timeseries(site, com string) (*Timeseries, error) {
	m := r.m
	d := m.Data
	c, ok := d.Commodity(site, com)
	if !ok {
		return nil, errgo.Newf("no commodity %s.%s", site, com)
	}
	steps := m.Modelled
	ts := &Timeseries{
		Timesteps: steps,
		Created:   make(map[string][]float64),
		Consumed:  make(map[string][]float64),
	}
	for _, k := range m.ProOutputTuples {
		if k.Proc.Site != site || k.Com != com {
			continue
		}
		ts.Created[k.Proc.Process] = r.values(steps, func(t int) linprog.Var {
			return m.EProOut[model.TProCom{T: t, K: k}]
		})
	}
	for _, k := range m.ProInputTuples {
		if k.Proc.Site != site || k.Com != com {
			continue
		}
		ts.Consumed[k.Proc.Process] = r.values(steps, func(t int) linprog.Var {
			return m.EProIn[model.TProCom{T: t, K: k}]
		})
	}
	ck := c.Key()
	switch c.Type {
	case dataset.Stock:
		ts.Stock = r.values(steps, func(t int) linprog.Var {
			return m.ECoStock[model.TCom{T: t, K: ck}]
		})
	case dataset.Buy:
		ts.Bought = r.values(steps, func(t int) linprog.Var {
			return m.ECoBuy[model.TCom{T: t, K: ck}]
		})
	case dataset.Sell:
		ts.Sold = r.values(steps, func(t int) linprog.Var {
			return m.ECoSell[model.TCom{T: t, K: ck}]
		})
	}

	for _, k := range m.StoTuples {
		if k.Site != site || k.Com != com {
			continue
		}
		ts.StorageLevel = addSeries(ts.StorageLevel, r.values(steps, func(t int) linprog.Var {
			return m.EStoCon[model.TSto{T: t, K: k}]
		}))
		ts.Charged = addSeries(ts.Charged, r.values(steps, func(t int) linprog.Var {
			return m.EStoIn[model.TSto{T: t, K: k}]
		}))
		ts.Discharged = addSeries(ts.Discharged, r.values(steps, func(t int) linprog.Var {
			return m.EStoOut[model.TSto{T: t, K: k}]
		}))
	}

	for _, k := range m.TraTuples {
		if k.Com != com {
			continue
		}
		if k.SiteOut == site {
			v := r.values(steps, func(t int) linprog.Var {
				return m.ETraOut[model.TTra{T: t, K: k}]
			})
			if ts.Imported == nil {
				ts.Imported = make(map[string][]float64)
			}
			ts.Imported[k.SiteIn] = addSeries(ts.Imported[k.SiteIn], v)
		}
		if k.SiteIn == site {
			v := r.values(steps, func(t int) linprog.Var {
				return m.ETraIn[model.TTra{T: t, K: k}]
			})
			if ts.Exported == nil {
				ts.Exported = make(map[string][]float64)
			}
			ts.Exported[k.SiteOut] = addSeries(ts.Exported[k.SiteOut], v)
		}
	}

	sc := dataset.SiteCom{Site: site, Com: com}
	if c.Type == dataset.Demand {
		ts.Demand = make([]float64, len(steps))
		for i, t := range steps {
			ts.Demand[i] = d.Demand[sc][indexOf(d.Timesteps, t)]
		}
		ts.ShiftedDemand = append([]float64(nil), ts.Demand...)
	}
	if dsm, ok := d.DSM(sc); ok {
		ts.DSMUp = r.values(steps, func(t int) linprog.Var {
			return m.DSMUp[model.TSiteCom{T: t, K: sc}]
		})
		ts.DSMDown = make([]float64, len(steps))
		for i, t := range steps {
			sum := 0.0
			for _, tUp := range steps {
				if tUp < t-dsm.Delay || tUp > t+dsm.Delay {
					continue
				}
				if v, ok := m.DSMDown[model.TTSiteCom{T: tUp, TT: t, K: sc}]; ok {
					sum += r.sol.Value(v)
				}
			}
			ts.DSMDown[i] = sum
		}
		if ts.ShiftedDemand != nil {
			for i := range ts.ShiftedDemand {
				ts.ShiftedDemand[i] += ts.DSMUp[i] - ts.DSMDown[i]
			}
		}
	}
	return ts, nil
}

func (r *Result) values(steps []int, v func(t int) linprog.Var) []float64 {
	vals := make([]float64, len(steps))
	for i, t := range steps {
		vals[i] = r.sol.Value(v(t))
	}
	return vals
}

func addSeries(dst, src []float64) []float64 {
	if dst == nil {
		return src
	}
	for i := range dst {
		dst[i] += src[i]
	}
	return dst
}

func indexOf(steps []int, t int) int {
	for i, s := range steps {
		if s == t {
			return i
		}
	}
	return -1
}

// WriteSummary writes the cost breakdown and all capacity tables as
// one CSV document.
func (r *Result) WriteSummary(w io.Writer) error {
	cw := csv.NewWriter(w)
	write := func(fields ...string) {
		cw.Write(fields)
	}
	write("Section", "Site", "Name", "Commodity", "Total", "New", "Value")
	costs := r.Costs()
	for _, ct := range model.CostTypes {
		write("Cost", "", string(ct), "", "", "", fmtValue(costs[ct]))
	}
	for _, pc := range r.ProcessCaps() {
		write("Process", pc.Site, pc.Process, "", fmtValue(pc.Total), fmtValue(pc.New), "")
	}
	for _, tc := range r.TransmissionCaps() {
		write("Transmission", fmt.Sprintf("%s>%s", tc.SiteIn, tc.SiteOut), tc.Tech, tc.Com, fmtValue(tc.Total), fmtValue(tc.New), "")
	}
	for _, sc := range r.StorageCaps() {
		write("Storage power", sc.Site, sc.Storage, sc.Com, fmtValue(sc.PowerTotal), fmtValue(sc.PowerNew), "")
		write("Storage energy", sc.Site, sc.Storage, sc.Com, fmtValue(sc.EnergyTotal), fmtValue(sc.EnergyNew), "")
	}
	cw.Flush()
	return errgo.Mask(cw.Error())
}

func fmtValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

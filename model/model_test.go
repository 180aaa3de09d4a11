package model_test

import (
	"bytes"
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/rogpeppe/gridplan/dataset"
	"github.com/rogpeppe/gridplan/linprog"
	"github.com/rogpeppe/gridplan/model"
)

var approx = qt.CmpEquals(cmpopts.EquateApprox(0, 1e-4))

// houseData returns a one-site dataset with a fuel-burning plant, an
// intermittent source and a battery, small enough to reason about by
// hand.
func houseData() *dataset.Dataset {
	inf := dataset.Unrestricted()
	return &dataset.Dataset{
		Sites: []dataset.Site{{Name: "House", Area: -1}},
		Commodities: []dataset.Commodity{{
			Site: "House", Name: "Gas", Type: dataset.Stock,
			Price: dataset.FixedPrice(0.07), Max: inf, MaxPerStep: inf,
		}, {
			Site: "House", Name: "Elec", Type: dataset.Demand,
			Max: inf, MaxPerStep: inf,
		}, {
			Site: "House", Name: "Solar", Type: dataset.SupIm,
			Max: inf, MaxPerStep: inf,
		}, {
			Site: "House", Name: "CO2", Type: dataset.Env,
			Max: inf, MaxPerStep: inf,
		}},
		Processes: []dataset.Process{{
			Site: "House", Name: "Gas plant",
			CapUp: 50, MaxGrad: inf,
			InvCost: 450, FixCost: 6, VarCost: 0.02,
			WACC: 0.07, Depreciation: 30, AreaPerCap: -1,
		}, {
			Site: "House", Name: "PV",
			CapUp: 40, MaxGrad: inf,
			InvCost: 600, FixCost: 15,
			WACC: 0.07, Depreciation: 25, AreaPerCap: -1,
		}},
		ProcessCommodities: []dataset.ProcessCommodity{
			{Process: "Gas plant", Commodity: "Gas", Direction: dataset.In, Ratio: 1.666},
			{Process: "Gas plant", Commodity: "Elec", Direction: dataset.Out, Ratio: 1},
			{Process: "Gas plant", Commodity: "CO2", Direction: dataset.Out, Ratio: 0.2},
			{Process: "PV", Commodity: "Solar", Direction: dataset.In, Ratio: 1},
			{Process: "PV", Commodity: "Elec", Direction: dataset.Out, Ratio: 1},
		},
		Storages: []dataset.Storage{{
			Site: "House", Name: "Battery", Com: "Elec",
			EffIn: 0.94, EffOut: 0.94,
			CapUpP: 20, CapUpC: 60,
			InvCostP: 75, InvCostC: 100,
			WACC: 0.07, Depreciation: 10,
			Init: 0.5,
		}},
		Timesteps: []int{0, 1, 2, 3, 4},
		Demand: map[dataset.SiteCom][]float64{
			{Site: "House", Com: "Elec"}: {0, 10, 14, 8, 12},
		},
		SupIm: map[dataset.SiteCom][]float64{
			{Site: "House", Com: "Solar"}: {0, 0.1, 0.7, 0.9, 0.3},
		},
	}
}

var annuityFactorTests = []struct {
	n      float64
	i      float64
	expect float64
}{
	{n: 20, i: 0.07, expect: 0.09439},
	{n: 1, i: 0.5, expect: 1.5},
	{n: 40, i: 0.03, expect: 0.04326},
}

func TestAnnuityFactor(t *testing.T) {
	c := qt.New(t)
	for _, test := range annuityFactorTests {
		c.Assert(model.AnnuityFactor(test.n, test.i), approx, test.expect)
	}
}

func TestWeightScalesToFullYear(t *testing.T) {
	c := qt.New(t)
	m, err := model.Build(houseData(), model.Options{DT: 0.25})
	c.Assert(err, qt.IsNil)
	c.Assert(m.Weight*float64(len(m.Modelled))*m.DT, approx, 8760.0)
}

func TestTimestepSelection(t *testing.T) {
	c := qt.New(t)
	m, err := model.Build(houseData(), model.Options{Timesteps: []int{1, 2, 3}})
	c.Assert(err, qt.IsNil)
	c.Assert(m.Modelled, qt.DeepEquals, []int{2, 3})

	_, err = model.Build(houseData(), model.Options{Timesteps: []int{0, 2}})
	c.Assert(err, qt.ErrorMatches, `timesteps are not a contiguous run of the dataset's \(2 does not follow 0\)`)

	_, err = model.Build(houseData(), model.Options{Timesteps: []int{4, 5}})
	c.Assert(err, qt.ErrorMatches, `timestep 5 is not in the dataset`)
}

func TestGradientConstraintsOnlyWhenBinding(t *testing.T) {
	c := qt.New(t)
	d := houseData()
	d.Processes[0].MaxGrad = 0.2 // binds: 0.2*1h < 1
	m, err := model.Build(d, model.Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(m.MaxGradTuples, qt.DeepEquals, []dataset.ProcKey{{Site: "House", Process: "Gas plant"}})
	c.Assert(countConstraints(m.Problem, "res_process_maxgrad_lower"), qt.Equals, 4)
	c.Assert(countConstraints(m.Problem, "res_process_maxgrad_upper"), qt.Equals, 4)

	// A gradient that frees the whole range within one step
	// generates nothing at all.
	d.Processes[0].MaxGrad = 1
	m, err = model.Build(d, model.Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(m.MaxGradTuples, qt.HasLen, 0)
	c.Assert(countConstraints(m.Problem, "res_process_maxgrad_lower"), qt.Equals, 0)
	c.Assert(countConstraints(m.Problem, "res_process_maxgrad_upper"), qt.Equals, 0)
}

func TestIntermittentSupplyAllowsCurtailment(t *testing.T) {
	c := qt.New(t)
	m, err := model.Build(houseData(), model.Options{})
	c.Assert(err, qt.IsNil)
	con, ok := findConstraint(m.Problem, "def_intermittent_supply(1,House,PV,Solar)")
	c.Assert(ok, qt.Equals, true)
	// Availability only bounds the intake; the plant may always
	// take less than cap_pro times the availability fraction.
	c.Assert(con.Op, qt.Equals, linprog.Le)
	c.Assert(con.RHS, qt.Equals, 0.0)
	c.Assert(con.Expr.Terms, qt.DeepEquals, []linprog.Term{
		{Var: m.EProIn[model.TProCom{T: 1, K: model.ProCom{Proc: dataset.ProcKey{Site: "House", Process: "PV"}, Com: "Solar"}}], Coef: 1},
		{Var: m.CapPro[dataset.ProcKey{Site: "House", Process: "PV"}], Coef: -0.1},
	})
}

// Flow variables are power, so capacity limits must not pick up the
// timestep duration: only the storage-state recurrence and the
// annual energy totals carry it.
func TestCapacityLimitsAreDurationFree(t *testing.T) {
	c := qt.New(t)
	proc := dataset.ProcKey{Site: "House", Process: "Gas plant"}
	sto := dataset.StoKey{Site: "House", Storage: "Battery", Com: "Elec"}

	d := houseData()
	d.Processes[0].MinFraction = 0.5
	d.ProcessCommodities[0].RatioMin = 2.2
	m, err := model.Build(d, model.Options{DT: 0.25})
	c.Assert(err, qt.IsNil)
	th, ok := findConstraint(m.Problem, "res_process_throughput_by_capacity(1,House,Gas plant)")
	c.Assert(ok, qt.Equals, true)
	c.Assert(termCoef(th.Expr, m.CapPro[proc]), qt.Equals, -1.0)
	lo, ok := findConstraint(m.Problem, "res_throughput_by_online_capacity_min(1,House,Gas plant)")
	c.Assert(ok, qt.Equals, true)
	c.Assert(termCoef(lo.Expr, m.CapOnline[model.TPro{T: 1, K: proc}]), qt.Equals, -0.5)
	hi, ok := findConstraint(m.Problem, "res_throughput_by_online_capacity_max(1,House,Gas plant)")
	c.Assert(ok, qt.Equals, true)
	c.Assert(termCoef(hi.Expr, m.CapOnline[model.TPro{T: 1, K: proc}]), qt.Equals, -1.0)

	m, err = model.Build(houseData(), model.Options{DT: 2})
	c.Assert(err, qt.IsNil)
	in, ok := findConstraint(m.Problem, "res_storage_input_by_power(1,House,Battery,Elec)")
	c.Assert(ok, qt.Equals, true)
	c.Assert(termCoef(in.Expr, m.CapStoP[sto]), qt.Equals, -1.0)
	out, ok := findConstraint(m.Problem, "res_storage_output_by_power(1,House,Battery,Elec)")
	c.Assert(ok, qt.Equals, true)
	c.Assert(termCoef(out.Expr, m.CapStoP[sto]), qt.Equals, -1.0)

	m, err = model.Build(twoSiteData(), model.Options{DT: 0.5})
	c.Assert(err, qt.IsNil)
	tra := dataset.TraKey{SiteIn: "North", SiteOut: "South", Tech: "hvac", Com: "Elec"}
	tin, ok := findConstraint(m.Problem, "res_transmission_input_by_capacity(1,North,South,hvac,Elec)")
	c.Assert(ok, qt.Equals, true)
	c.Assert(termCoef(tin.Expr, m.CapTra[tra]), qt.Equals, -1.0)
}

func TestStoragePinning(t *testing.T) {
	c := qt.New(t)
	m, err := model.Build(houseData(), model.Options{})
	c.Assert(err, qt.IsNil)

	init, ok := findConstraint(m.Problem, "res_initial_storage_state(House,Battery,Elec)")
	c.Assert(ok, qt.Equals, true)
	c.Assert(init.Op, qt.Equals, linprog.Eq)
	c.Assert(init.RHS, qt.Equals, 0.0)
	c.Assert(init.Expr.Terms, qt.DeepEquals, []linprog.Term{
		{Var: m.EStoCon[model.TSto{T: 0, K: dataset.StoKey{Site: "House", Storage: "Battery", Com: "Elec"}}], Coef: 1},
		{Var: m.CapStoC[dataset.StoKey{Site: "House", Storage: "Battery", Com: "Elec"}], Coef: -0.5},
	})

	fin, ok := findConstraint(m.Problem, "res_final_storage_state(House,Battery,Elec)")
	c.Assert(ok, qt.Equals, true)
	c.Assert(fin.Op, qt.Equals, linprog.Ge)
}

func TestStorageStateRecurrence(t *testing.T) {
	c := qt.New(t)
	m, err := model.Build(houseData(), model.Options{DT: 2})
	c.Assert(err, qt.IsNil)
	k := dataset.StoKey{Site: "House", Storage: "Battery", Com: "Elec"}
	state, ok := findConstraint(m.Problem, "def_storage_state(3,House,Battery,Elec)")
	c.Assert(ok, qt.Equals, true)
	c.Assert(state.Op, qt.Equals, linprog.Eq)
	c.Assert(state.Expr.Terms, approx, []linprog.Term{
		{Var: m.EStoCon[model.TSto{T: 3, K: k}], Coef: 1},
		{Var: m.EStoCon[model.TSto{T: 2, K: k}], Coef: -1},
		{Var: m.EStoIn[model.TSto{T: 3, K: k}], Coef: -0.94 * 2},
		{Var: m.EStoOut[model.TSto{T: 3, K: k}], Coef: 2 / 0.94},
	})
}

func TestTransmissionSymmetry(t *testing.T) {
	c := qt.New(t)
	d := twoSiteData()
	m, err := model.Build(d, model.Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(countConstraints(m.Problem, "res_transmission_symmetry"), qt.Equals, 1)
	sym, ok := findConstraint(m.Problem, "res_transmission_symmetry(North,South,hvac,Elec)")
	c.Assert(ok, qt.Equals, true)
	c.Assert(sym.Op, qt.Equals, linprog.Eq)

	// A one-way link is a configuration error.
	d.Transmissions = d.Transmissions[:1]
	_, err = model.Build(d, model.Options{})
	c.Assert(err, qt.ErrorMatches, `transmission North-South.hvac.Elec has no reverse direction entry`)
}

func twoSiteData() *dataset.Dataset {
	inf := dataset.Unrestricted()
	d := houseData()
	d.Sites = append(d.Sites, dataset.Site{Name: "North", Area: -1}, dataset.Site{Name: "South", Area: -1})
	d.Commodities = append(d.Commodities,
		dataset.Commodity{Site: "North", Name: "Elec", Type: dataset.Demand, Max: inf, MaxPerStep: inf},
		dataset.Commodity{Site: "South", Name: "Elec", Type: dataset.Demand, Max: inf, MaxPerStep: inf},
	)
	d.Demand[dataset.SiteCom{Site: "North", Com: "Elec"}] = []float64{0, 1, 1, 1, 1}
	d.Demand[dataset.SiteCom{Site: "South", Com: "Elec"}] = []float64{0, 2, 2, 2, 2}
	tra := dataset.Transmission{
		SiteIn: "North", SiteOut: "South", Tech: "hvac", Com: "Elec",
		Eff: 0.95, CapUp: 10, InvCost: 1200, WACC: 0.07, Depreciation: 40,
	}
	rev := tra
	rev.SiteIn, rev.SiteOut = tra.SiteOut, tra.SiteIn
	d.Transmissions = []dataset.Transmission{tra, rev}
	// Give each remote site a generator so the vertex rule has flows.
	d.Processes = append(d.Processes,
		dataset.Process{Site: "North", Name: "PV", CapUp: 40, MaxGrad: inf, InvCost: 600, WACC: 0.07, Depreciation: 25, AreaPerCap: -1},
		dataset.Process{Site: "South", Name: "PV", CapUp: 40, MaxGrad: inf, InvCost: 600, WACC: 0.07, Depreciation: 25, AreaPerCap: -1},
	)
	d.Commodities = append(d.Commodities,
		dataset.Commodity{Site: "North", Name: "Solar", Type: dataset.SupIm, Max: inf, MaxPerStep: inf},
		dataset.Commodity{Site: "South", Name: "Solar", Type: dataset.SupIm, Max: inf, MaxPerStep: inf},
	)
	d.SupIm[dataset.SiteCom{Site: "North", Com: "Solar"}] = []float64{0, 0.2, 0.6, 0.8, 0.4}
	d.SupIm[dataset.SiteCom{Site: "South", Com: "Solar"}] = []float64{0, 0.3, 0.5, 0.7, 0.2}
	return d
}

func TestDSMWindows(t *testing.T) {
	c := qt.New(t)
	d := dsmData()
	m, err := model.Build(d, model.Options{})
	c.Assert(err, qt.IsNil)

	// Delay 2 over modelled steps 1..6: windows clamp at the
	// edges, giving 3+4+5+5+4+3 shift pairs.
	c.Assert(m.DSMDown, qt.HasLen, 24)
	for k := range m.DSMDown {
		c.Assert(k.TT >= k.T-2 && k.TT <= k.T+2, qt.IsTrue)
		c.Assert(k.TT >= 1 && k.TT <= 6, qt.IsTrue)
	}

	// Every upshift must be compensated within its window.
	def, ok := findConstraint(m.Problem, "def_dsm_variables(1,House,Elec)")
	c.Assert(ok, qt.Equals, true)
	c.Assert(def.Op, qt.Equals, linprog.Eq)
	c.Assert(def.Expr.Terms, qt.HasLen, 4) // 3 downshifts + the upshift
	last := def.Expr.Terms[len(def.Expr.Terms)-1]
	c.Assert(last.Var, qt.Equals, m.DSMUp[model.TSiteCom{T: 1, K: dataset.SiteCom{Site: "House", Com: "Elec"}}])
	c.Assert(last.Coef, approx, -0.9)

	// Recovery windows are clamped to the modelled range too.
	rec, ok := findConstraint(m.Problem, "res_dsm_recovery(5,House,Elec)")
	c.Assert(ok, qt.Equals, true)
	c.Assert(rec.Expr.Terms, qt.HasLen, 2) // steps 5, 6 only
	c.Assert(rec.RHS, qt.Equals, 10.0)     // cap-max-up * delay
}

func dsmData() *dataset.Dataset {
	d := houseData()
	d.Timesteps = []int{0, 1, 2, 3, 4, 5, 6}
	d.Demand[dataset.SiteCom{Site: "House", Com: "Elec"}] = []float64{0, 10, 14, 8, 12, 9, 11}
	d.SupIm[dataset.SiteCom{Site: "House", Com: "Solar"}] = []float64{0, 0.1, 0.7, 0.9, 0.3, 0.5, 0.2}
	d.DSMs = []dataset.DSM{{
		Site: "House", Com: "Elec",
		Eff: 0.9, Delay: 2, Recovery: 3,
		CapMaxUp: 5, CapMaxDown: 5,
	}}
	return d
}

func TestSellBuySymmetry(t *testing.T) {
	c := qt.New(t)
	d := sellBuyData()
	m, err := model.Build(d, model.Options{})
	c.Assert(err, qt.IsNil)
	sym, ok := findConstraint(m.Problem, "res_sell_buy_symmetry(House,Purchase)")
	c.Assert(ok, qt.Equals, true)
	c.Assert(sym.Op, qt.Equals, linprog.Eq)
	c.Assert(sym.Expr.Terms, qt.DeepEquals, []linprog.Term{
		{Var: m.CapPro[dataset.ProcKey{Site: "House", Process: "Purchase"}], Coef: 1},
		{Var: m.CapPro[dataset.ProcKey{Site: "House", Process: "Feed-in"}], Coef: -1},
	})

	d.Processes[2].PairProcess = "Feedin"
	_, err = model.Build(d, model.Options{})
	c.Assert(err, qt.ErrorMatches, `process House.Purchase: pair process "Feedin" does not exist at site House`)
}

func sellBuyData() *dataset.Dataset {
	inf := dataset.Unrestricted()
	d := houseData()
	d.Commodities = append(d.Commodities,
		dataset.Commodity{Site: "House", Name: "Elec buy", Type: dataset.Buy, Price: dataset.SeriesPrice(1, "Buy"), Max: inf, MaxPerStep: inf},
		dataset.Commodity{Site: "House", Name: "Elec sell", Type: dataset.Sell, Price: dataset.SeriesPrice(1, "Sell"), Max: inf, MaxPerStep: inf},
	)
	d.Processes = append(d.Processes,
		dataset.Process{Site: "House", Name: "Purchase", CapUp: 30, MaxGrad: inf, WACC: 0.07, Depreciation: 20, AreaPerCap: -1, PairProcess: "Feed-in"},
		dataset.Process{Site: "House", Name: "Feed-in", CapUp: 30, MaxGrad: inf, WACC: 0.07, Depreciation: 20, AreaPerCap: -1},
	)
	d.ProcessCommodities = append(d.ProcessCommodities,
		dataset.ProcessCommodity{Process: "Purchase", Commodity: "Elec buy", Direction: dataset.In, Ratio: 1},
		dataset.ProcessCommodity{Process: "Purchase", Commodity: "Elec", Direction: dataset.Out, Ratio: 1},
		dataset.ProcessCommodity{Process: "Feed-in", Commodity: "Elec", Direction: dataset.In, Ratio: 1},
		dataset.ProcessCommodity{Process: "Feed-in", Commodity: "Elec sell", Direction: dataset.Out, Ratio: 1},
	)
	d.BuySellPrices = map[string][]float64{
		"Buy":  {70, 70, 80, 75, 72},
		"Sell": {60, 60, 70, 65, 62},
	}
	return d
}

var buildErrorTests = []struct {
	testName    string
	corrupt     func(*dataset.Dataset)
	expectError string
}{{
	testName: "missing-demand-series",
	corrupt: func(d *dataset.Dataset) {
		delete(d.Demand, dataset.SiteCom{Site: "House", Com: "Elec"})
	},
	expectError: `commodity House.Elec: no demand series`,
}, {
	testName: "missing-supim-series",
	corrupt: func(d *dataset.Dataset) {
		delete(d.SupIm, dataset.SiteCom{Site: "House", Com: "Solar"})
	},
	expectError: `process House.PV: no supply series for intermittent commodity "Solar"`,
}, {
	testName: "dangling-input-commodity",
	corrupt: func(d *dataset.Dataset) {
		d.ProcessCommodities[0].Commodity = "Coal"
	},
	expectError: `process House.Gas plant: input commodity "Coal" is not in the commodity table`,
}, {
	testName: "zero-discharge-efficiency",
	corrupt: func(d *dataset.Dataset) {
		d.Storages[0].EffOut = 0
	},
	expectError: `storage House.Battery: non-positive discharge efficiency 0`,
}, {
	testName: "zero-wacc",
	corrupt: func(d *dataset.Dataset) {
		d.Processes[0].WACC = 0
	},
	expectError: `process House.Gas plant: non-positive wacc 0`,
}, {
	testName: "zero-depreciation",
	corrupt: func(d *dataset.Dataset) {
		d.Storages[0].Depreciation = 0
	},
	expectError: `storage House.Battery: non-positive depreciation 0`,
}, {
	testName: "min-fraction-one",
	corrupt: func(d *dataset.Dataset) {
		d.Processes[0].MinFraction = 1
		d.ProcessCommodities[0].RatioMin = 2.2
	},
	expectError: `process House.Gas plant: min-fraction 1 leaves no partial-load range`,
}, {
	testName: "series-price-on-stock",
	corrupt: func(d *dataset.Dataset) {
		d.Commodities[0].Price = dataset.SeriesPrice(1, "Gas")
	},
	expectError: `commodity House.Gas: Stock commodities need a fixed price, not series "Gas"`,
}, {
	testName: "duplicate-commodity",
	corrupt: func(d *dataset.Dataset) {
		d.Commodities = append(d.Commodities, d.Commodities[0])
	},
	expectError: `duplicate commodity House.Gas`,
}}

func TestBuildErrors(t *testing.T) {
	c := qt.New(t)
	for _, test := range buildErrorTests {
		c.Run(test.testName, func(c *qt.C) {
			d := houseData()
			test.corrupt(d)
			_, err := model.Build(d, model.Options{})
			c.Assert(err, qt.ErrorMatches, test.expectError)
		})
	}
}

func TestCostStructure(t *testing.T) {
	c := qt.New(t)
	m, err := model.Build(houseData(), model.Options{})
	c.Assert(err, qt.IsNil)

	// The objective is the plain sum of the cost scalars.
	obj := m.Problem.Objective()
	c.Assert(obj.Terms, qt.HasLen, len(model.CostTypes))
	for i, ct := range model.CostTypes {
		c.Assert(obj.Terms[i], qt.Equals, linprog.Term{Var: m.Cost[ct], Coef: 1})
	}

	// Invest cost applies the annuity factor to new capacity only.
	def, ok := findConstraint(m.Problem, "def_costs(Invest)")
	c.Assert(ok, qt.Equals, true)
	coef := termCoef(def.Expr, m.CapProNew[dataset.ProcKey{Site: "House", Process: "Gas plant"}])
	c.Assert(coef, approx, -450*model.AnnuityFactor(30, 0.07))
	c.Assert(termCoef(def.Expr, m.CapPro[dataset.ProcKey{Site: "House", Process: "Gas plant"}]), qt.Equals, 0.0)

	// Fuel cost scales stock use by duration, weight and price.
	def, ok = findConstraint(m.Problem, "def_costs(Fuel)")
	c.Assert(ok, qt.Equals, true)
	gas := dataset.ComKey{Site: "House", Com: "Gas", Type: dataset.Stock}
	c.Assert(termCoef(def.Expr, m.ECoStock[model.TCom{T: 1, K: gas}]), approx, -m.DT*m.Weight*0.07)
}

func TestGlobalLimit(t *testing.T) {
	c := qt.New(t)
	d := houseData()
	d.GlobalLimits = map[string]float64{
		"CO2":   100000,
		"Noise": math.Inf(1),
	}
	m, err := model.Build(d, model.Options{})
	c.Assert(err, qt.IsNil)
	lim, ok := findConstraint(m.Problem, "res_global_limit(CO2)")
	c.Assert(ok, qt.Equals, true)
	c.Assert(lim.Op, qt.Equals, linprog.Le)
	c.Assert(lim.RHS, qt.Equals, 100000.0)
	// CO2 is created by the gas plant at 0.2 per unit throughput:
	// the limit sees its output flow scaled to a full year.
	out := m.EProOut[model.TProCom{T: 1, K: model.ProCom{Proc: dataset.ProcKey{Site: "House", Process: "Gas plant"}, Com: "CO2"}}]
	c.Assert(termCoef(lim.Expr, out), approx, m.DT*m.Weight)
	_, ok = findConstraint(m.Problem, "res_global_limit(Noise)")
	c.Assert(ok, qt.Equals, false)
}

func TestBuildIsDeterministic(t *testing.T) {
	c := qt.New(t)
	var buf1, buf2 bytes.Buffer
	m1, err := model.Build(sellBuyData(), model.Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(m1.Problem.WriteLP(&buf1), qt.IsNil)
	m2, err := model.Build(sellBuyData(), model.Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(m2.Problem.WriteLP(&buf2), qt.IsNil)
	c.Assert(buf1.String(), qt.Equals, buf2.String())
}

func findConstraint(p *linprog.Problem, name string) (linprog.Constraint, bool) {
	for _, con := range p.Constraints() {
		if con.Name == name {
			return con, true
		}
	}
	return linprog.Constraint{}, false
}

func countConstraints(p *linprog.Problem, prefix string) int {
	n := 0
	for _, con := range p.Constraints() {
		if len(con.Name) >= len(prefix) && con.Name[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func termCoef(e linprog.Expr, v linprog.Var) float64 {
	sum := 0.0
	for _, t := range e.Terms {
		if t.Var == v {
			sum += t.Coef
		}
	}
	return sum
}

package model

import (
	"math"
	"sort"

	"gopkg.in/errgo.v1"

	"github.com/rogpeppe/gridplan/dataset"
	"github.com/rogpeppe/gridplan/linprog"
)

func (m *Model) addConstraints() error {
	if err := m.addVertexConstraints(); err != nil {
		return errgo.Mask(err)
	}
	m.addCommodityCapConstraints()
	m.addProcessConstraints()
	m.addTransmissionConstraints()
	m.addStorageConstraints()
	m.addDSMConstraints()
	if err := m.addGlobalLimits(); err != nil {
		return errgo.Mask(err)
	}
	return nil
}

// balance returns the net consumption of a commodity at a site and
// timestep: process inputs and transmission/storage inflows count
// positive, process outputs and transmission/storage outflows count
// negative. A positive value must be covered by a source term in the
// vertex rule.
func (m *Model) balance(t int, site, com string) linprog.Expr {
	var e linprog.Expr
	for _, k := range m.ProInputTuples {
		if k.Proc.Site == site && k.Com == com {
			e.Add(m.EProIn[TProCom{T: t, K: k}], 1)
		}
	}
	for _, k := range m.ProOutputTuples {
		if k.Proc.Site == site && k.Com == com {
			e.Add(m.EProOut[TProCom{T: t, K: k}], -1)
		}
	}
	for _, k := range m.TraTuples {
		if k.Com != com {
			continue
		}
		if k.SiteIn == site {
			e.Add(m.ETraIn[TTra{T: t, K: k}], 1)
		}
		if k.SiteOut == site {
			e.Add(m.ETraOut[TTra{T: t, K: k}], -1)
		}
	}
	for _, k := range m.StoTuples {
		if k.Site == site && k.Com == com {
			e.Add(m.EStoIn[TSto{T: t, K: k}], 1)
			e.Add(m.EStoOut[TSto{T: t, K: k}], -1)
		}
	}
	return e
}

// addVertexConstraints generates the per-timestep power balance for
// every commodity except environmental ones (which are only capped)
// and intermittent supply (which is forced by availability).
func (m *Model) addVertexConstraints() error {
	for i := range m.Data.Commodities {
		c := &m.Data.Commodities[i]
		if c.Type == dataset.Env || c.Type == dataset.SupIm {
			continue
		}
		k := c.Key()
		sc := dataset.SiteCom{Site: c.Site, Com: c.Name}
		dsm, hasDSM := m.Data.DSM(sc)
		for _, t := range m.Modelled {
			var e linprog.Expr
			e.AddExpr(m.balance(t, c.Site, c.Name), -1)
			switch c.Type {
			case dataset.Stock:
				e.Add(m.ECoStock[TCom{T: t, K: k}], 1)
			case dataset.Sell:
				e.Add(m.ECoSell[TCom{T: t, K: k}], -1)
			case dataset.Buy:
				e.Add(m.ECoBuy[TCom{T: t, K: k}], 1)
			case dataset.Demand:
				e.AddConst(-m.demandAt(sc, t))
			}
			if hasDSM {
				e.Add(m.DSMUp[TSiteCom{T: t, K: sc}], -1)
				for _, tUp := range m.downshiftTimes(t, dsm.Delay) {
					e.Add(m.DSMDown[TTSiteCom{T: tUp, TT: t, K: sc}], 1)
				}
			}
			if len(e.Terms) == 0 {
				if e.Offset != 0 {
					return errgo.Newf("commodity %s.%s: demand at timestep %d but nothing can supply it", c.Site, c.Name, t)
				}
				continue
			}
			m.Problem.Add(vname("res_vertex", itoa(t), c.Site, c.Name), e, linprog.Eq, 0)
		}
	}
	return nil
}

// addCommodityCapConstraints caps stock/sell/buy source terms and
// environmental output per timestep and per (scaled) year. Infinite
// caps produce no constraint at all.
func (m *Model) addCommodityCapConstraints() {
	m.capComVars("stock", m.ECoStock, dataset.Stock)
	m.capComVars("sell", m.ECoSell, dataset.Sell)
	m.capComVars("buy", m.ECoBuy, dataset.Buy)

	for _, c := range m.comOfType(dataset.Env) {
		var total linprog.Expr
		for _, t := range m.Modelled {
			e := m.balance(t, c.Site, c.Name)
			if len(e.Terms) == 0 {
				continue
			}
			if !math.IsInf(c.MaxPerStep, 1) {
				var step linprog.Expr
				step.AddExpr(e, -1)
				m.Problem.Add(vname("res_env_step", itoa(t), c.Site, c.Name), step, linprog.Le, c.MaxPerStep)
			}
			total.AddExpr(e, -m.DT*m.Weight)
		}
		if !math.IsInf(c.Max, 1) && len(total.Terms) > 0 {
			m.Problem.Add(vname("res_env_total", c.Site, c.Name), total, linprog.Le, c.Max)
		}
	}
}

func (m *Model) capComVars(what string, vars map[TCom]linprog.Var, typ dataset.ComType) {
	for _, c := range m.comOfType(typ) {
		k := c.Key()
		var total linprog.Expr
		for _, t := range m.Modelled {
			v := vars[TCom{T: t, K: k}]
			if !math.IsInf(c.MaxPerStep, 1) {
				var e linprog.Expr
				e.Add(v, 1)
				m.Problem.Add(vname("res_"+what+"_step", itoa(t), c.Site, c.Name), e, linprog.Le, c.MaxPerStep)
			}
			total.Add(v, m.DT*m.Weight)
		}
		if !math.IsInf(c.Max, 1) {
			m.Problem.Add(vname("res_"+what+"_total", c.Site, c.Name), total, linprog.Le, c.Max)
		}
	}
}

func (m *Model) addProcessConstraints() {
	p := m.Problem
	partialInput := make(map[ProCom]bool, len(m.PartialInputTuples))
	for _, k := range m.PartialInputTuples {
		partialInput[k] = true
	}

	for i := range m.Data.Processes {
		pr := &m.Data.Processes[i]
		k := pr.Key()
		var e linprog.Expr
		e.Add(m.CapPro[k], 1)
		e.Add(m.CapProNew[k], -1)
		p.Add(vname("def_process_capacity", k.Site, k.Process), e, linprog.Eq, pr.InstCap)

		for _, t := range m.Modelled {
			var th linprog.Expr
			th.Add(m.TauPro[TPro{T: t, K: k}], 1)
			th.Add(m.CapPro[k], -1)
			p.Add(vname("res_process_throughput_by_capacity", itoa(t), k.Site, k.Process), th, linprog.Le, 0)
		}
	}

	for _, k := range m.ProInputTuples {
		r := m.rIn[dataset.ProcCom{Process: k.Proc.Process, Com: k.Com}]
		c, _ := m.Data.Commodity(k.Proc.Site, k.Com)
		sc := dataset.SiteCom{Site: k.Proc.Site, Com: k.Com}
		for _, t := range m.Modelled {
			if !partialInput[k] {
				var e linprog.Expr
				e.Add(m.EProIn[TProCom{T: t, K: k}], 1)
				e.Add(m.TauPro[TPro{T: t, K: k.Proc}], -r)
				p.Add(vname("def_process_input", itoa(t), k.Proc.Site, k.Proc.Process, k.Com), e, linprog.Eq, 0)
			}
			if c.Type == dataset.SupIm {
				// Availability bounds the intake; using less
				// (curtailing) is always allowed.
				var e linprog.Expr
				e.Add(m.EProIn[TProCom{T: t, K: k}], 1)
				e.Add(m.CapPro[k.Proc], -m.supimAt(sc, t))
				p.Add(vname("def_intermittent_supply", itoa(t), k.Proc.Site, k.Proc.Process, k.Com), e, linprog.Le, 0)
			}
		}
	}
	for _, k := range m.ProOutputTuples {
		r := m.rOut[dataset.ProcCom{Process: k.Proc.Process, Com: k.Com}]
		for _, t := range m.Modelled {
			var e linprog.Expr
			e.Add(m.EProOut[TProCom{T: t, K: k}], 1)
			e.Add(m.TauPro[TPro{T: t, K: k.Proc}], -r)
			p.Add(vname("def_process_output", itoa(t), k.Proc.Site, k.Proc.Process, k.Com), e, linprog.Eq, 0)
		}
	}

	for _, k := range m.MaxGradTuples {
		pr, _ := m.Data.Process(k)
		grad := pr.MaxGrad * m.DT
		for i, t := range m.Modelled {
			prev := m.Timesteps[i] // Timesteps[i] precedes Modelled[i]
			var lo linprog.Expr
			lo.Add(m.TauPro[TPro{T: t, K: k}], 1)
			lo.Add(m.TauPro[TPro{T: prev, K: k}], -1)
			lo.Add(m.CapPro[k], grad)
			p.Add(vname("res_process_maxgrad_lower", itoa(t), k.Site, k.Process), lo, linprog.Ge, 0)

			var hi linprog.Expr
			hi.Add(m.TauPro[TPro{T: prev, K: k}], 1)
			hi.Add(m.CapPro[k], grad)
			hi.Add(m.TauPro[TPro{T: t, K: k}], -1)
			p.Add(vname("res_process_maxgrad_upper", itoa(t), k.Site, k.Process), hi, linprog.Ge, 0)
		}
	}

	for _, k := range m.PartialTuples {
		pr, _ := m.Data.Process(k)
		for i, t := range m.Modelled {
			prev := m.Timesteps[i]

			var lo linprog.Expr
			lo.Add(m.TauPro[TPro{T: t, K: k}], 1)
			lo.Add(m.CapOnline[TPro{T: t, K: k}], -pr.MinFraction)
			p.Add(vname("res_throughput_by_online_capacity_min", itoa(t), k.Site, k.Process), lo, linprog.Ge, 0)

			var hi linprog.Expr
			hi.Add(m.TauPro[TPro{T: t, K: k}], 1)
			hi.Add(m.CapOnline[TPro{T: t, K: k}], -1)
			p.Add(vname("res_throughput_by_online_capacity_max", itoa(t), k.Site, k.Process), hi, linprog.Le, 0)

			var on linprog.Expr
			on.Add(m.CapOnline[TPro{T: t, K: k}], 1)
			on.Add(m.CapPro[k], -1)
			p.Add(vname("res_cap_online_by_cap_pro", itoa(t), k.Site, k.Process), on, linprog.Le, 0)

			var su linprog.Expr
			su.Add(m.StartupPro[TPro{T: t, K: k}], 1)
			su.Add(m.CapOnline[TPro{T: t, K: k}], -1)
			su.Add(m.CapOnline[TPro{T: prev, K: k}], 1)
			p.Add(vname("def_startup_capacity", itoa(t), k.Site, k.Process), su, linprog.Ge, 0)
		}
	}
	for _, k := range m.PartialInputTuples {
		pc := dataset.ProcCom{Process: k.Proc.Process, Com: k.Com}
		pr, _ := m.Data.Process(k.Proc)
		ratio := m.rIn[pc]
		ratioMin := m.rInMin[pc]
		mf := pr.MinFraction
		onlineFactor := mf * (ratioMin - ratio) / (1 - mf)
		throughputFactor := (ratio - mf*ratioMin) / (1 - mf)
		for _, t := range m.Modelled {
			var e linprog.Expr
			e.Add(m.EProIn[TProCom{T: t, K: k}], 1)
			e.Add(m.CapOnline[TPro{T: t, K: k.Proc}], -onlineFactor)
			e.Add(m.TauPro[TPro{T: t, K: k.Proc}], -throughputFactor)
			p.Add(vname("def_partial_process_input", itoa(t), k.Proc.Site, k.Proc.Process, k.Com), e, linprog.Eq, 0)
		}
	}

	for i := range m.Data.Sites {
		s := &m.Data.Sites[i]
		if s.Area < 0 {
			continue
		}
		var e linprog.Expr
		for j := range m.Data.Processes {
			pr := &m.Data.Processes[j]
			if pr.Site == s.Name && pr.AreaPerCap >= 0 {
				e.Add(m.CapPro[pr.Key()], pr.AreaPerCap)
			}
		}
		if len(e.Terms) > 0 {
			p.Add(vname("res_area", s.Name), e, linprog.Le, s.Area)
		}
	}

	for i := range m.Data.Processes {
		pr := &m.Data.Processes[i]
		if pr.PairProcess == "" {
			continue
		}
		var e linprog.Expr
		e.Add(m.CapPro[pr.Key()], 1)
		e.Add(m.CapPro[dataset.ProcKey{Site: pr.Site, Process: pr.PairProcess}], -1)
		p.Add(vname("res_sell_buy_symmetry", pr.Site, pr.Name), e, linprog.Eq, 0)
	}
}

func (m *Model) addTransmissionConstraints() {
	p := m.Problem
	for i := range m.Data.Transmissions {
		tr := &m.Data.Transmissions[i]
		k := tr.Key()
		var e linprog.Expr
		e.Add(m.CapTra[k], 1)
		e.Add(m.CapTraNew[k], -1)
		p.Add(vname("def_transmission_capacity", k.SiteIn, k.SiteOut, k.Tech, k.Com), e, linprog.Eq, tr.InstCap)

		for _, t := range m.Modelled {
			var out linprog.Expr
			out.Add(m.ETraOut[TTra{T: t, K: k}], 1)
			out.Add(m.ETraIn[TTra{T: t, K: k}], -tr.Eff)
			p.Add(vname("def_transmission_output", itoa(t), k.SiteIn, k.SiteOut, k.Tech, k.Com), out, linprog.Eq, 0)

			var in linprog.Expr
			in.Add(m.ETraIn[TTra{T: t, K: k}], 1)
			in.Add(m.CapTra[k], -1)
			p.Add(vname("res_transmission_input_by_capacity", itoa(t), k.SiteIn, k.SiteOut, k.Tech, k.Com), in, linprog.Le, 0)
		}

		// One symmetry constraint per undirected link.
		if k.SiteIn < k.SiteOut {
			var sym linprog.Expr
			sym.Add(m.CapTra[k], 1)
			sym.Add(m.CapTra[k.Reverse()], -1)
			p.Add(vname("res_transmission_symmetry", k.SiteIn, k.SiteOut, k.Tech, k.Com), sym, linprog.Eq, 0)
		}
	}
}

func (m *Model) addStorageConstraints() {
	p := m.Problem
	first := m.Timesteps[0]
	last := m.Timesteps[len(m.Timesteps)-1]
	for i := range m.Data.Storages {
		st := &m.Data.Storages[i]
		k := st.Key()

		var ec linprog.Expr
		ec.Add(m.CapStoC[k], 1)
		ec.Add(m.CapStoCNew[k], -1)
		p.Add(vname("def_storage_capacity", k.Site, k.Storage, k.Com), ec, linprog.Eq, st.InstCapC)

		var ep linprog.Expr
		ep.Add(m.CapStoP[k], 1)
		ep.Add(m.CapStoPNew[k], -1)
		p.Add(vname("def_storage_power", k.Site, k.Storage, k.Com), ep, linprog.Eq, st.InstCapP)

		for j, t := range m.Modelled {
			prev := m.Timesteps[j]
			var state linprog.Expr
			state.Add(m.EStoCon[TSto{T: t, K: k}], 1)
			state.Add(m.EStoCon[TSto{T: prev, K: k}], -1)
			state.Add(m.EStoIn[TSto{T: t, K: k}], -st.EffIn*m.DT)
			state.Add(m.EStoOut[TSto{T: t, K: k}], m.DT/st.EffOut)
			p.Add(vname("def_storage_state", itoa(t), k.Site, k.Storage, k.Com), state, linprog.Eq, 0)

			var in linprog.Expr
			in.Add(m.EStoIn[TSto{T: t, K: k}], 1)
			in.Add(m.CapStoP[k], -1)
			p.Add(vname("res_storage_input_by_power", itoa(t), k.Site, k.Storage, k.Com), in, linprog.Le, 0)

			var out linprog.Expr
			out.Add(m.EStoOut[TSto{T: t, K: k}], 1)
			out.Add(m.CapStoP[k], -1)
			p.Add(vname("res_storage_output_by_power", itoa(t), k.Site, k.Storage, k.Com), out, linprog.Le, 0)
		}
		for _, t := range m.Timesteps {
			var e linprog.Expr
			e.Add(m.EStoCon[TSto{T: t, K: k}], 1)
			e.Add(m.CapStoC[k], -1)
			p.Add(vname("res_storage_state_by_capacity", itoa(t), k.Site, k.Storage, k.Com), e, linprog.Le, 0)
		}

		var init linprog.Expr
		init.Add(m.EStoCon[TSto{T: first, K: k}], 1)
		init.Add(m.CapStoC[k], -st.Init)
		p.Add(vname("res_initial_storage_state", k.Site, k.Storage, k.Com), init, linprog.Eq, 0)

		var fin linprog.Expr
		fin.Add(m.EStoCon[TSto{T: last, K: k}], 1)
		fin.Add(m.CapStoC[k], -st.Init)
		p.Add(vname("res_final_storage_state", k.Site, k.Storage, k.Com), fin, linprog.Ge, 0)
	}
}

func (m *Model) addDSMConstraints() {
	p := m.Problem
	for i := range m.Data.DSMs {
		e := &m.Data.DSMs[i]
		k := e.Key()
		for _, t := range m.Modelled {
			var def linprog.Expr
			for _, tt := range m.downshiftTimes(t, e.Delay) {
				def.Add(m.DSMDown[TTSiteCom{T: t, TT: tt, K: k}], 1)
			}
			def.Add(m.DSMUp[TSiteCom{T: t, K: k}], -e.Eff)
			p.Add(vname("def_dsm_variables", itoa(t), k.Site, k.Com), def, linprog.Eq, 0)

			if !math.IsInf(e.CapMaxUp, 1) {
				var up linprog.Expr
				up.Add(m.DSMUp[TSiteCom{T: t, K: k}], 1)
				p.Add(vname("res_dsm_upward", itoa(t), k.Site, k.Com), up, linprog.Le, e.CapMaxUp)
			}

			// Downshift and combined caps at downshift time t.
			var down linprog.Expr
			for _, tUp := range m.downshiftTimes(t, e.Delay) {
				down.Add(m.DSMDown[TTSiteCom{T: tUp, TT: t, K: k}], 1)
			}
			if !math.IsInf(e.CapMaxDown, 1) {
				p.Add(vname("res_dsm_downward", itoa(t), k.Site, k.Com), down, linprog.Le, e.CapMaxDown)
			}
			max := math.Max(e.CapMaxUp, e.CapMaxDown)
			if !math.IsInf(max, 1) {
				var both linprog.Expr
				both.AddExpr(down, 1)
				both.Add(m.DSMUp[TSiteCom{T: t, K: k}], 1)
				p.Add(vname("res_dsm_maximum", itoa(t), k.Site, k.Com), both, linprog.Le, max)
			}

			if e.Recovery > 0 && !math.IsInf(e.CapMaxUp, 1) {
				var rec linprog.Expr
				for _, tt := range m.recoveryTimes(t, e.Recovery) {
					rec.Add(m.DSMUp[TSiteCom{T: tt, K: k}], 1)
				}
				p.Add(vname("res_dsm_recovery", itoa(t), k.Site, k.Com), rec, linprog.Le, e.CapMaxUp*float64(e.Delay))
			}
		}
	}
}

// addGlobalLimits caps system-wide annual net creation of named
// commodities across all sites.
func (m *Model) addGlobalLimits() error {
	names := make([]string, 0, len(m.Data.GlobalLimits))
	for name := range m.Data.GlobalLimits {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		limit := m.Data.GlobalLimits[name]
		if math.IsInf(limit, 1) {
			continue
		}
		var e linprog.Expr
		for i := range m.Data.Sites {
			site := m.Data.Sites[i].Name
			if _, ok := m.Data.Commodity(site, name); !ok {
				continue
			}
			for _, t := range m.Modelled {
				e.AddExpr(m.balance(t, site, name), -m.DT*m.Weight)
			}
		}
		if len(e.Terms) == 0 {
			if limit < 0 {
				return errgo.Newf("global limit on %q is negative but nothing creates it", name)
			}
			continue
		}
		m.Problem.Add(vname("res_global_limit", name), e, linprog.Le, limit)
	}
	return nil
}

package model

import (
	"fmt"
	"strings"

	"github.com/rogpeppe/gridplan/dataset"
	"github.com/rogpeppe/gridplan/linprog"
)

// declareVars adds every decision variable to the problem, in a
// deterministic order so that rebuilding the same dataset yields an
// identical LP file. Capacity bounds go straight onto the variables;
// everything time-indexed is non-negative and ranges over the
// modelled steps, except process throughput, online capacity and
// storage content, which include the initial step (the first two so
// that ramp and startup rules have a predecessor, the last to carry
// the seeded content).
func (m *Model) declareVars() {
	p := m.Problem

	m.Cost = make(map[CostType]linprog.Var, len(CostTypes))
	for _, ct := range CostTypes {
		m.Cost[ct] = p.Free(fmt.Sprintf("costs(%s)", ct))
	}

	m.CapPro = make(map[dataset.ProcKey]linprog.Var)
	m.CapProNew = make(map[dataset.ProcKey]linprog.Var)
	for i := range m.Data.Processes {
		pr := &m.Data.Processes[i]
		k := pr.Key()
		m.CapPro[k] = p.AddVar(vname("cap_pro", k.Site, k.Process), pr.CapLo, pr.CapUp)
		m.CapProNew[k] = p.NonNeg(vname("cap_pro_new", k.Site, k.Process))
	}
	m.TauPro = make(map[TPro]linprog.Var)
	for _, t := range m.Timesteps {
		for _, k := range m.ProTuples {
			m.TauPro[TPro{T: t, K: k}] = p.NonNeg(vname("tau_pro", itoa(t), k.Site, k.Process))
		}
	}
	m.EProIn = make(map[TProCom]linprog.Var)
	m.EProOut = make(map[TProCom]linprog.Var)
	for _, t := range m.Modelled {
		for _, k := range m.ProInputTuples {
			m.EProIn[TProCom{T: t, K: k}] = p.NonNeg(vname("e_pro_in", itoa(t), k.Proc.Site, k.Proc.Process, k.Com))
		}
		for _, k := range m.ProOutputTuples {
			m.EProOut[TProCom{T: t, K: k}] = p.NonNeg(vname("e_pro_out", itoa(t), k.Proc.Site, k.Proc.Process, k.Com))
		}
	}
	m.CapOnline = make(map[TPro]linprog.Var)
	m.StartupPro = make(map[TPro]linprog.Var)
	for _, t := range m.Timesteps {
		for _, k := range m.PartialTuples {
			m.CapOnline[TPro{T: t, K: k}] = p.NonNeg(vname("cap_online", itoa(t), k.Site, k.Process))
		}
	}
	for _, t := range m.Modelled {
		for _, k := range m.PartialTuples {
			m.StartupPro[TPro{T: t, K: k}] = p.NonNeg(vname("startup_pro", itoa(t), k.Site, k.Process))
		}
	}

	m.ECoStock = m.declareComVars("e_co_stock", dataset.Stock)
	m.ECoSell = m.declareComVars("e_co_sell", dataset.Sell)
	m.ECoBuy = m.declareComVars("e_co_buy", dataset.Buy)

	m.CapTra = make(map[dataset.TraKey]linprog.Var)
	m.CapTraNew = make(map[dataset.TraKey]linprog.Var)
	for i := range m.Data.Transmissions {
		tr := &m.Data.Transmissions[i]
		k := tr.Key()
		m.CapTra[k] = p.AddVar(vname("cap_tra", k.SiteIn, k.SiteOut, k.Tech, k.Com), tr.CapLo, tr.CapUp)
		m.CapTraNew[k] = p.NonNeg(vname("cap_tra_new", k.SiteIn, k.SiteOut, k.Tech, k.Com))
	}
	m.ETraIn = make(map[TTra]linprog.Var)
	m.ETraOut = make(map[TTra]linprog.Var)
	for _, t := range m.Modelled {
		for _, k := range m.TraTuples {
			m.ETraIn[TTra{T: t, K: k}] = p.NonNeg(vname("e_tra_in", itoa(t), k.SiteIn, k.SiteOut, k.Tech, k.Com))
			m.ETraOut[TTra{T: t, K: k}] = p.NonNeg(vname("e_tra_out", itoa(t), k.SiteIn, k.SiteOut, k.Tech, k.Com))
		}
	}

	m.CapStoC = make(map[dataset.StoKey]linprog.Var)
	m.CapStoCNew = make(map[dataset.StoKey]linprog.Var)
	m.CapStoP = make(map[dataset.StoKey]linprog.Var)
	m.CapStoPNew = make(map[dataset.StoKey]linprog.Var)
	for i := range m.Data.Storages {
		st := &m.Data.Storages[i]
		k := st.Key()
		m.CapStoC[k] = p.AddVar(vname("cap_sto_c", k.Site, k.Storage, k.Com), st.CapLoC, st.CapUpC)
		m.CapStoCNew[k] = p.NonNeg(vname("cap_sto_c_new", k.Site, k.Storage, k.Com))
		m.CapStoP[k] = p.AddVar(vname("cap_sto_p", k.Site, k.Storage, k.Com), st.CapLoP, st.CapUpP)
		m.CapStoPNew[k] = p.NonNeg(vname("cap_sto_p_new", k.Site, k.Storage, k.Com))
	}
	m.EStoIn = make(map[TSto]linprog.Var)
	m.EStoOut = make(map[TSto]linprog.Var)
	m.EStoCon = make(map[TSto]linprog.Var)
	for _, t := range m.Modelled {
		for _, k := range m.StoTuples {
			m.EStoIn[TSto{T: t, K: k}] = p.NonNeg(vname("e_sto_in", itoa(t), k.Site, k.Storage, k.Com))
			m.EStoOut[TSto{T: t, K: k}] = p.NonNeg(vname("e_sto_out", itoa(t), k.Site, k.Storage, k.Com))
		}
	}
	for _, t := range m.Timesteps {
		for _, k := range m.StoTuples {
			m.EStoCon[TSto{T: t, K: k}] = p.NonNeg(vname("e_sto_con", itoa(t), k.Site, k.Storage, k.Com))
		}
	}

	m.DSMUp = make(map[TSiteCom]linprog.Var)
	m.DSMDown = make(map[TTSiteCom]linprog.Var)
	for i := range m.Data.DSMs {
		e := &m.Data.DSMs[i]
		k := e.Key()
		for _, t := range m.Modelled {
			m.DSMUp[TSiteCom{T: t, K: k}] = p.NonNeg(vname("dsm_up", itoa(t), k.Site, k.Com))
		}
		for _, t := range m.Modelled {
			for _, tt := range m.downshiftTimes(t, e.Delay) {
				m.DSMDown[TTSiteCom{T: t, TT: tt, K: k}] = p.NonNeg(vname("dsm_down", itoa(t), itoa(tt), k.Site, k.Com))
			}
		}
	}
}

// declareComVars declares the per-timestep source/sink variables for
// commodities of the given type.
func (m *Model) declareComVars(prefix string, typ dataset.ComType) map[TCom]linprog.Var {
	vars := make(map[TCom]linprog.Var)
	for _, c := range m.comOfType(typ) {
		k := c.Key()
		for _, t := range m.Modelled {
			vars[TCom{T: t, K: k}] = m.Problem.NonNeg(vname(prefix, itoa(t), k.Site, k.Com, string(k.Type)))
		}
	}
	return vars
}

func vname(prefix string, parts ...string) string {
	return prefix + "(" + strings.Join(parts, ",") + ")"
}

func itoa(t int) string {
	return fmt.Sprint(t)
}

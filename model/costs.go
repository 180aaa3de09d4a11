package model

import (
	"gopkg.in/errgo.v1"

	"github.com/rogpeppe/gridplan/dataset"
	"github.com/rogpeppe/gridplan/linprog"
)

// addCosts adds one defining equality per cost type and the
// minimised objective. Per-timestep quantities are scaled by the
// timestep duration and by Weight, so every cost component is in
// money per year regardless of how much of the year is modelled.
func (m *Model) addCosts() error {
	d := m.Data

	var invest, fixed, variable linprog.Expr
	for i := range d.Processes {
		pr := &d.Processes[i]
		k := pr.Key()
		invest.Add(m.CapProNew[k], pr.InvCost*m.annuityPro[k])
		fixed.Add(m.CapPro[k], pr.FixCost)
		for _, t := range m.Modelled {
			variable.Add(m.TauPro[TPro{T: t, K: k}], m.DT*m.Weight*pr.VarCost)
		}
	}
	for i := range d.Transmissions {
		tr := &d.Transmissions[i]
		k := tr.Key()
		invest.Add(m.CapTraNew[k], tr.InvCost*m.annuityTra[k])
		fixed.Add(m.CapTra[k], tr.FixCost)
		for _, t := range m.Modelled {
			variable.Add(m.ETraIn[TTra{T: t, K: k}], m.DT*m.Weight*tr.VarCost)
		}
	}
	for i := range d.Storages {
		st := &d.Storages[i]
		k := st.Key()
		invest.Add(m.CapStoPNew[k], st.InvCostP*m.annuitySto[k])
		invest.Add(m.CapStoCNew[k], st.InvCostC*m.annuitySto[k])
		fixed.Add(m.CapStoP[k], st.FixCostP)
		fixed.Add(m.CapStoC[k], st.FixCostC)
		for _, t := range m.Modelled {
			// Content is valued per stored unit and year, without
			// the timestep duration factor.
			variable.Add(m.EStoCon[TSto{T: t, K: k}], m.Weight*st.VarCostC)
			variable.Add(m.EStoIn[TSto{T: t, K: k}], m.DT*m.Weight*st.VarCostP)
			variable.Add(m.EStoOut[TSto{T: t, K: k}], m.DT*m.Weight*st.VarCostP)
		}
	}

	var fuel linprog.Expr
	for _, c := range m.comOfType(dataset.Stock) {
		k := c.Key()
		for _, t := range m.Modelled {
			fuel.Add(m.ECoStock[TCom{T: t, K: k}], m.DT*m.Weight*c.Price.Value)
		}
	}

	var revenue, purchase linprog.Expr
	for _, c := range m.comOfType(dataset.Sell) {
		k := c.Key()
		for _, t := range m.Modelled {
			price, err := m.priceAt(c, t)
			if err != nil {
				return errgo.Mask(err)
			}
			// Sold energy earns money: the cost component is
			// negative.
			revenue.Add(m.ECoSell[TCom{T: t, K: k}], -m.DT*m.Weight*price)
		}
	}
	for _, c := range m.comOfType(dataset.Buy) {
		k := c.Key()
		for _, t := range m.Modelled {
			price, err := m.priceAt(c, t)
			if err != nil {
				return errgo.Mask(err)
			}
			purchase.Add(m.ECoBuy[TCom{T: t, K: k}], m.DT*m.Weight*price)
		}
	}

	var startup linprog.Expr
	for _, k := range m.PartialTuples {
		pr, _ := d.Process(k)
		for _, t := range m.Modelled {
			startup.Add(m.StartupPro[TPro{T: t, K: k}], m.DT*m.Weight*pr.StartupCost)
		}
	}

	var environmental linprog.Expr
	for _, c := range m.comOfType(dataset.Env) {
		for _, t := range m.Modelled {
			environmental.AddExpr(m.balance(t, c.Site, c.Name), -m.DT*m.Weight*c.Price.Value)
		}
	}

	exprs := map[CostType]linprog.Expr{
		CostInvest:        invest,
		CostFixed:         fixed,
		CostVariable:      variable,
		CostFuel:          fuel,
		CostRevenue:       revenue,
		CostPurchase:      purchase,
		CostStartup:       startup,
		CostEnvironmental: environmental,
	}
	var obj linprog.Expr
	for _, ct := range CostTypes {
		var e linprog.Expr
		e.Add(m.Cost[ct], 1)
		e.AddExpr(exprs[ct], -1)
		m.Problem.Add(vname("def_costs", string(ct)), e, linprog.Eq, 0)
		obj.Add(m.Cost[ct], 1)
	}
	m.Problem.Minimize(obj)
	return nil
}

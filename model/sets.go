package model

import (
	"github.com/rogpeppe/gridplan/dataset"
)

// deriveSets builds the tuple index sets that variables and
// constraints range over. Tuples that a rule does not apply to are
// left out of the set here, so the rules themselves need no skip
// logic: a process that can ramp across its whole range within one
// timestep simply never appears in MaxGradTuples.
func (m *Model) deriveSets() {
	d := m.Data
	for i := range d.Commodities {
		m.ComTuples = append(m.ComTuples, d.Commodities[i].Key())
	}
	for i := range d.Processes {
		m.ProTuples = append(m.ProTuples, d.Processes[i].Key())
	}
	for i := range d.Transmissions {
		m.TraTuples = append(m.TraTuples, d.Transmissions[i].Key())
	}
	for i := range d.Storages {
		m.StoTuples = append(m.StoTuples, d.Storages[i].Key())
	}
	for i := range d.DSMs {
		m.DSMTuples = append(m.DSMTuples, d.DSMs[i].Key())
	}

	m.rIn = make(map[dataset.ProcCom]float64)
	m.rOut = make(map[dataset.ProcCom]float64)
	m.rInMin = make(map[dataset.ProcCom]float64)
	for _, pc := range d.ProcessCommodities {
		k := dataset.ProcCom{Process: pc.Process, Com: pc.Commodity}
		switch pc.Direction {
		case dataset.In:
			m.rIn[k] = pc.Ratio
			if pc.RatioMin > 0 {
				m.rInMin[k] = pc.RatioMin
			}
		case dataset.Out:
			m.rOut[k] = pc.Ratio
		}
	}

	// Flow tuples: the cross product of installed processes and
	// their ratio-table entries.
	partial := make(map[dataset.ProcKey]bool)
	for _, p := range m.ProTuples {
		for _, pc := range d.ProcessCommodities {
			if pc.Process != p.Process {
				continue
			}
			t := ProCom{Proc: p, Com: pc.Commodity}
			switch pc.Direction {
			case dataset.In:
				m.ProInputTuples = append(m.ProInputTuples, t)
				if pc.RatioMin > 0 {
					m.PartialInputTuples = append(m.PartialInputTuples, t)
					partial[p] = true
				}
			case dataset.Out:
				m.ProOutputTuples = append(m.ProOutputTuples, t)
			}
		}
	}
	for _, p := range m.ProTuples {
		if partial[p] {
			m.PartialTuples = append(m.PartialTuples, p)
		}
	}
	for i := range d.Processes {
		p := &d.Processes[i]
		if p.MaxGrad*m.DT < 1 {
			m.MaxGradTuples = append(m.MaxGradTuples, p.Key())
		}
	}
}

// comOfType returns the commodity rows of the given type, in table
// order.
func (m *Model) comOfType(typ dataset.ComType) []*dataset.Commodity {
	var coms []*dataset.Commodity
	for i := range m.Data.Commodities {
		c := &m.Data.Commodities[i]
		if c.Type == typ {
			coms = append(coms, c)
		}
	}
	return coms
}

// downshiftTimes returns the modelled timesteps at which a downshift
// may compensate an upshift at step t: those within delay steps of t,
// clamped to the modelled range.
func (m *Model) downshiftTimes(t, delay int) []int {
	var times []int
	for _, tt := range m.Modelled {
		if tt >= t-delay && tt <= t+delay {
			times = append(times, tt)
		}
	}
	return times
}

// recoveryTimes returns the modelled timesteps in the recovery window
// starting at t, clamped to the modelled range.
func (m *Model) recoveryTimes(t, recovery int) []int {
	var times []int
	for _, tt := range m.Modelled {
		if tt >= t && tt < t+recovery {
			times = append(times, tt)
		}
	}
	return times
}

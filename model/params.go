package model

import (
	"math"

	"github.com/rogpeppe/gridplan/dataset"
)

// AnnuityFactor returns the factor that spreads an investment evenly
// over n years at interest rate i:
//
//	(1+i)^n * i / ((1+i)^n - 1)
//
// Callers must guarantee n > 0 and i > 0 (Build validates both).
func AnnuityFactor(n, i float64) float64 {
	q := math.Pow(1+i, n)
	return q * i / (q - 1)
}

// deriveParams computes the per-entity annuity factors applied to
// investment costs.
func (m *Model) deriveParams() error {
	d := m.Data
	m.annuityPro = make(map[dataset.ProcKey]float64, len(d.Processes))
	for i := range d.Processes {
		p := &d.Processes[i]
		m.annuityPro[p.Key()] = AnnuityFactor(p.Depreciation, p.WACC)
	}
	m.annuityTra = make(map[dataset.TraKey]float64, len(d.Transmissions))
	for i := range d.Transmissions {
		t := &d.Transmissions[i]
		m.annuityTra[t.Key()] = AnnuityFactor(t.Depreciation, t.WACC)
	}
	m.annuitySto = make(map[dataset.StoKey]float64, len(d.Storages))
	for i := range d.Storages {
		s := &d.Storages[i]
		m.annuitySto[s.Key()] = AnnuityFactor(s.Depreciation, s.WACC)
	}
	return nil
}

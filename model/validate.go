package model

import (
	"gopkg.in/errgo.v1"

	"github.com/rogpeppe/gridplan/dataset"
)

// validate checks the dataset for the classes of problem that would
// otherwise surface as panics, NaN-poisoned coefficients or silently
// absent constraints deep inside the build.
func (m *Model) validate() error {
	d := m.Data
	sites := make(map[string]bool, len(d.Sites))
	for _, s := range d.Sites {
		if sites[s.Name] {
			return errgo.Newf("duplicate site %q", s.Name)
		}
		sites[s.Name] = true
	}

	coms := make(map[dataset.SiteCom]*dataset.Commodity, len(d.Commodities))
	for i := range d.Commodities {
		c := &d.Commodities[i]
		if !sites[c.Site] {
			return errgo.Newf("commodity %s.%s: unknown site %q", c.Site, c.Name, c.Site)
		}
		k := dataset.SiteCom{Site: c.Site, Com: c.Name}
		if coms[k] != nil {
			return errgo.Newf("duplicate commodity %s.%s", c.Site, c.Name)
		}
		coms[k] = c
		switch c.Type {
		case dataset.Stock, dataset.Env:
			if c.Price.IsSeries() {
				return errgo.Newf("commodity %s.%s: %s commodities need a fixed price, not series %q", c.Site, c.Name, c.Type, c.Price.Series)
			}
		case dataset.Buy, dataset.Sell:
			if c.Price.IsSeries() {
				series, ok := d.BuySellPrices[c.Price.Series]
				if !ok {
					return errgo.Newf("commodity %s.%s: unknown price series %q", c.Site, c.Name, c.Price.Series)
				}
				if len(series) != len(d.Timesteps) {
					return errgo.Newf("commodity %s.%s: price series %q has %d values; want %d", c.Site, c.Name, c.Price.Series, len(series), len(d.Timesteps))
				}
			}
		case dataset.Demand:
			if _, ok := d.Demand[k]; !ok {
				return errgo.Newf("commodity %s.%s: no demand series", c.Site, c.Name)
			}
		}
	}

	inputs := make(map[string][]string) // process name -> input commodities
	ratioMin := make(map[string]bool)   // process name has partial-load inputs
	for _, pc := range d.ProcessCommodities {
		switch pc.Direction {
		case dataset.In:
			inputs[pc.Process] = append(inputs[pc.Process], pc.Commodity)
			if pc.RatioMin > 0 {
				ratioMin[pc.Process] = true
			}
		case dataset.Out:
		default:
			return errgo.Newf("process-commodity %s/%s: unknown direction %q", pc.Process, pc.Commodity, pc.Direction)
		}
	}

	procs := make(map[dataset.ProcKey]bool, len(d.Processes))
	for i := range d.Processes {
		p := &d.Processes[i]
		k := p.Key()
		if !sites[p.Site] {
			return errgo.Newf("process %s.%s: unknown site %q", p.Site, p.Name, p.Site)
		}
		if procs[k] {
			return errgo.Newf("duplicate process %s.%s", p.Site, p.Name)
		}
		procs[k] = true
		if err := checkAnnuityParams("process", p.Site+"."+p.Name, p.WACC, p.Depreciation); err != nil {
			return errgo.Mask(err)
		}
		if ratioMin[p.Name] && p.MinFraction >= 1 {
			return errgo.Newf("process %s.%s: min-fraction %v leaves no partial-load range", p.Site, p.Name, p.MinFraction)
		}
	}
	// Input/output commodities must exist at each site the process
	// is installed at; intermittent inputs additionally need their
	// availability series.
	for i := range d.Processes {
		p := &d.Processes[i]
		for _, com := range inputs[p.Name] {
			k := dataset.SiteCom{Site: p.Site, Com: com}
			c := coms[k]
			if c == nil {
				return errgo.Newf("process %s.%s: input commodity %q is not in the commodity table", p.Site, p.Name, com)
			}
			if c.Type == dataset.SupIm {
				if _, ok := d.SupIm[k]; !ok {
					return errgo.Newf("process %s.%s: no supply series for intermittent commodity %q", p.Site, p.Name, com)
				}
			}
		}
	}
	for _, pc := range d.ProcessCommodities {
		if pc.Direction != dataset.Out {
			continue
		}
		for i := range d.Processes {
			p := &d.Processes[i]
			if p.Name != pc.Process {
				continue
			}
			if coms[dataset.SiteCom{Site: p.Site, Com: pc.Commodity}] == nil {
				return errgo.Newf("process %s.%s: output commodity %q is not in the commodity table", p.Site, p.Name, pc.Commodity)
			}
		}
	}
	for i := range d.Processes {
		p := &d.Processes[i]
		if p.PairProcess == "" {
			continue
		}
		if !procs[dataset.ProcKey{Site: p.Site, Process: p.PairProcess}] {
			return errgo.Newf("process %s.%s: pair process %q does not exist at site %s", p.Site, p.Name, p.PairProcess, p.Site)
		}
	}

	tras := make(map[dataset.TraKey]bool, len(d.Transmissions))
	for i := range d.Transmissions {
		t := &d.Transmissions[i]
		k := t.Key()
		if tras[k] {
			return errgo.Newf("duplicate transmission %s-%s.%s.%s", k.SiteIn, k.SiteOut, k.Tech, k.Com)
		}
		tras[k] = true
		if !sites[t.SiteIn] || !sites[t.SiteOut] {
			return errgo.Newf("transmission %s-%s.%s.%s: unknown site", k.SiteIn, k.SiteOut, k.Tech, k.Com)
		}
		if coms[dataset.SiteCom{Site: t.SiteIn, Com: t.Com}] == nil || coms[dataset.SiteCom{Site: t.SiteOut, Com: t.Com}] == nil {
			return errgo.Newf("transmission %s-%s.%s.%s: commodity %q is not present at both sites", k.SiteIn, k.SiteOut, k.Tech, k.Com, t.Com)
		}
		if err := checkAnnuityParams("transmission", k.SiteIn+"-"+k.SiteOut+"."+k.Tech, t.WACC, t.Depreciation); err != nil {
			return errgo.Mask(err)
		}
	}
	for k := range tras {
		if !tras[k.Reverse()] {
			return errgo.Newf("transmission %s-%s.%s.%s has no reverse direction entry", k.SiteIn, k.SiteOut, k.Tech, k.Com)
		}
	}

	stos := make(map[dataset.StoKey]bool, len(d.Storages))
	for i := range d.Storages {
		s := &d.Storages[i]
		k := s.Key()
		if stos[k] {
			return errgo.Newf("duplicate storage %s.%s.%s", k.Site, k.Storage, k.Com)
		}
		stos[k] = true
		if !sites[s.Site] {
			return errgo.Newf("storage %s.%s: unknown site %q", s.Site, s.Name, s.Site)
		}
		if coms[dataset.SiteCom{Site: s.Site, Com: s.Com}] == nil {
			return errgo.Newf("storage %s.%s: commodity %q is not in the commodity table", s.Site, s.Name, s.Com)
		}
		if s.EffOut <= 0 {
			return errgo.Newf("storage %s.%s: non-positive discharge efficiency %v", s.Site, s.Name, s.EffOut)
		}
		if s.EffIn <= 0 {
			return errgo.Newf("storage %s.%s: non-positive charge efficiency %v", s.Site, s.Name, s.EffIn)
		}
		if err := checkAnnuityParams("storage", s.Site+"."+s.Name, s.WACC, s.Depreciation); err != nil {
			return errgo.Mask(err)
		}
	}

	dsms := make(map[dataset.SiteCom]bool, len(d.DSMs))
	for i := range d.DSMs {
		e := &d.DSMs[i]
		k := e.Key()
		if dsms[k] {
			return errgo.Newf("duplicate DSM entry %s.%s", k.Site, k.Com)
		}
		dsms[k] = true
		if coms[k] == nil {
			return errgo.Newf("DSM entry %s.%s: commodity is not in the commodity table", k.Site, k.Com)
		}
		if e.Delay < 0 || e.Recovery < 0 {
			return errgo.Newf("DSM entry %s.%s: negative delay or recovery window", k.Site, k.Com)
		}
		if e.Eff <= 0 {
			return errgo.Newf("DSM entry %s.%s: non-positive efficiency %v", k.Site, k.Com, e.Eff)
		}
	}
	return nil
}

func checkAnnuityParams(kind, name string, wacc, depreciation float64) error {
	if wacc <= 0 {
		return errgo.Newf("%s %s: non-positive wacc %v", kind, name, wacc)
	}
	if depreciation <= 0 {
		return errgo.Newf("%s %s: non-positive depreciation %v", kind, name, depreciation)
	}
	return nil
}

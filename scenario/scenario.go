// Package scenario derives model input variants from a common
// baseline dataset. A scenario is a named transformation; applying
// one always works on a deep copy, so a slice of scenarios can be
// run concurrently against the same baseline.
package scenario

import (
	"gopkg.in/errgo.v1"

	"github.com/rogpeppe/gridplan/dataset"
)

// Scenario describes one input variant.
type Scenario struct {
	// Name identifies the scenario in reports and result
	// directories.
	Name string

	// Transform mutates the dataset in place. It is only ever
	// called on a private copy. A nil Transform leaves the
	// baseline unchanged.
	Transform func(*dataset.Dataset) error
}

// Apply returns a transformed deep copy of base.
func (s Scenario) Apply(base *dataset.Dataset) (*dataset.Dataset, error) {
	d := base.Copy()
	if s.Transform == nil {
		return d, nil
	}
	if err := s.Transform(d); err != nil {
		return nil, errgo.Notef(err, "cannot apply scenario %q", s.Name)
	}
	return d, nil
}

// Base returns the do-nothing scenario.
func Base() Scenario {
	return Scenario{Name: "base"}
}

// Func returns a scenario with an arbitrary transformation.
func Func(name string, transform func(*dataset.Dataset) error) Scenario {
	return Scenario{Name: name, Transform: transform}
}

// CommodityPrices returns a scenario that overrides the price of
// the given commodities. Map keys are commodity rows (site, name,
// type); a key matching no row is an error, so a typo cannot
// silently yield the baseline.
func CommodityPrices(name string, prices map[dataset.ComKey]dataset.Price) Scenario {
	return Scenario{
		Name: name,
		Transform: func(d *dataset.Dataset) error {
			for k, price := range prices {
				i := commodityIndex(d, k)
				if i == -1 {
					return errgo.Newf("no commodity %s.%s (%s)", k.Site, k.Com, k.Type)
				}
				d.Commodities[i].Price = price
			}
			return nil
		},
	}
}

// InvestCosts returns a scenario that overrides process investment
// costs.
func InvestCosts(name string, costs map[dataset.ProcKey]float64) Scenario {
	return Scenario{
		Name: name,
		Transform: func(d *dataset.Dataset) error {
			for k, cost := range costs {
				found := false
				for i := range d.Processes {
					if d.Processes[i].Key() == k {
						d.Processes[i].InvCost = cost
						found = true
					}
				}
				if !found {
					return errgo.Newf("no process %s.%s", k.Site, k.Process)
				}
			}
			return nil
		},
	}
}

// StorageInvestCosts returns a scenario that overrides storage
// investment costs. The same factorless override applies to both the
// power and the energy cost component.
func StorageInvestCosts(name string, costs map[dataset.StoKey]struct{ Power, Energy float64 }) Scenario {
	return Scenario{
		Name: name,
		Transform: func(d *dataset.Dataset) error {
			for k, cost := range costs {
				found := false
				for i := range d.Storages {
					if d.Storages[i].Key() == k {
						d.Storages[i].InvCostP = cost.Power
						d.Storages[i].InvCostC = cost.Energy
						found = true
					}
				}
				if !found {
					return errgo.Newf("no storage %s.%s.%s", k.Site, k.Storage, k.Com)
				}
			}
			return nil
		},
	}
}

// GlobalLimit returns a scenario that sets the system-wide annual
// cap on net creation of the named commodity.
func GlobalLimit(name, com string, limit float64) Scenario {
	return Scenario{
		Name: name,
		Transform: func(d *dataset.Dataset) error {
			if d.GlobalLimits == nil {
				d.GlobalLimits = make(map[string]float64)
			}
			d.GlobalLimits[com] = limit
			return nil
		},
	}
}

// ScaleDemand returns a scenario that multiplies the demand series
// of the given site commodity by factor.
func ScaleDemand(name string, key dataset.SiteCom, factor float64) Scenario {
	return Scenario{
		Name: name,
		Transform: func(d *dataset.Dataset) error {
			series, ok := d.Demand[key]
			if !ok {
				return errgo.Newf("no demand series for %s.%s", key.Site, key.Com)
			}
			for i := range series {
				series[i] *= factor
			}
			return nil
		},
	}
}

func commodityIndex(d *dataset.Dataset, k dataset.ComKey) int {
	for i := range d.Commodities {
		if d.Commodities[i].Key() == k {
			return i
		}
	}
	return -1
}

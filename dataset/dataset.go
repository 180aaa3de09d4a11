// Package dataset holds the typed input bundle for an energy-system
// planning model: sites, commodities, conversion processes, storage,
// transmission links, demand-side management and the associated
// timeseries. A Dataset is loaded once and treated as immutable;
// scenarios work on deep copies (see Copy).
package dataset

import (
	"math"
)

// ComType classifies a commodity.
type ComType string

const (
	SupIm  ComType = "SupIm"
	Demand ComType = "Demand"
	Stock  ComType = "Stock"
	Sell   ComType = "Sell"
	Buy    ComType = "Buy"
	Env    ComType = "Env"
)

// SiteCom identifies a commodity at a site, the key used for
// demand/supply timeseries and DSM entries.
type SiteCom struct {
	Site string
	Com  string
}

// ComKey identifies a row of the commodity table.
type ComKey struct {
	Site string
	Com  string
	Type ComType
}

// ProcKey identifies a process at a site.
type ProcKey struct {
	Site    string
	Process string
}

// ProcCom identifies a process-commodity ratio entry for one
// direction (the direction is implied by which table the entry
// lives in).
type ProcCom struct {
	Process string
	Com     string
}

// TraKey identifies a directed transmission link.
type TraKey struct {
	SiteIn  string
	SiteOut string
	Tech    string
	Com     string
}

// Reverse returns the key of the opposite direction of the link.
func (k TraKey) Reverse() TraKey {
	return TraKey{
		SiteIn:  k.SiteOut,
		SiteOut: k.SiteIn,
		Tech:    k.Tech,
		Com:     k.Com,
	}
}

// StoKey identifies a storage unit.
type StoKey struct {
	Site    string
	Storage string
	Com     string
}

// Site holds one row of the site table.
type Site struct {
	Name string
	// Area holds the usable area of the site. A negative value
	// means unrestricted: no area constraint is generated.
	Area float64
}

// Commodity holds one row of the commodity table.
type Commodity struct {
	Site string
	Name string
	Type ComType

	// Price holds the commodity price. Stock and Env commodities
	// must use a fixed price; Buy and Sell commodities may refer
	// to a price timeseries.
	Price Price

	// Max holds the annual cap on weighted cumulative use or
	// creation. Use +Inf for no cap.
	Max float64

	// MaxPerStep holds the per-timestep power cap. Use +Inf for
	// no cap.
	MaxPerStep float64
}

// Key returns the composite key of the commodity row.
func (c *Commodity) Key() ComKey {
	return ComKey{Site: c.Site, Com: c.Name, Type: c.Type}
}

// Process holds one row of the process table.
type Process struct {
	Site string
	Name string

	// InstCap holds pre-installed capacity; CapLo and CapUp bound
	// the total capacity.
	InstCap float64
	CapLo   float64
	CapUp   float64

	// MaxGrad holds the maximum ramp gradient in fractions of
	// capacity per hour. A process that can swing its full range
	// within one timestep gets no ramp constraints.
	MaxGrad float64

	// MinFraction holds the partial-load threshold as a fraction
	// of online capacity. Together with RatioMin entries in the
	// process-commodity table it enables partial-load modelling.
	MinFraction float64

	InvCost     float64
	FixCost     float64
	VarCost     float64
	StartupCost float64

	// WACC and Depreciation parameterise the annuity factor
	// applied to InvCost.
	WACC         float64
	Depreciation float64

	// AreaPerCap holds the area used per unit capacity. A negative
	// value excludes the process from area accounting.
	AreaPerCap float64

	// PairProcess optionally names the sell process whose capacity
	// must equal this (buy) process's capacity, modelling a single
	// bidirectional grid connection priced by direction.
	PairProcess string
}

// Key returns the composite key of the process row.
func (p *Process) Key() ProcKey {
	return ProcKey{Site: p.Site, Process: p.Name}
}

// Direction tells whether a process-commodity ratio applies to an
// input or an output flow.
type Direction string

const (
	In  Direction = "In"
	Out Direction = "Out"
)

// ProcessCommodity holds one row of the process-commodity ratio
// table: the fixed conversion ratio between process throughput and
// the flow of one commodity.
type ProcessCommodity struct {
	Process   string
	Commodity string
	Direction Direction

	// Ratio holds the flow per unit throughput at full load.
	Ratio float64

	// RatioMin holds the input ratio at the minimum operation
	// point for partial-load processes. Zero or negative means
	// not applicable.
	RatioMin float64
}

// Transmission holds one row of the transmission table. Each physical
// link appears as two rows, one per direction, with equal capacities
// enforced by the model.
type Transmission struct {
	SiteIn  string
	SiteOut string
	Tech    string
	Com     string

	Eff float64

	InstCap float64
	CapLo   float64
	CapUp   float64

	InvCost float64
	FixCost float64
	VarCost float64

	WACC         float64
	Depreciation float64
}

// Key returns the composite key of the transmission row.
func (t *Transmission) Key() TraKey {
	return TraKey{SiteIn: t.SiteIn, SiteOut: t.SiteOut, Tech: t.Tech, Com: t.Com}
}

// Storage holds one row of the storage table. Power (charge and
// discharge rate) and energy capacity are sized independently.
type Storage struct {
	Site string
	Name string
	Com  string

	EffIn  float64
	EffOut float64

	InstCapP float64
	CapLoP   float64
	CapUpP   float64

	InstCapC float64
	CapLoC   float64
	CapUpC   float64

	InvCostP float64
	FixCostP float64
	VarCostP float64

	InvCostC float64
	FixCostC float64
	VarCostC float64

	WACC         float64
	Depreciation float64

	// Init holds the fraction of energy capacity that the content
	// is pinned to at the first timestep and must at least return
	// to at the last one.
	Init float64
}

// Key returns the composite key of the storage row.
func (s *Storage) Key() StoKey {
	return StoKey{Site: s.Site, Storage: s.Name, Com: s.Com}
}

// DSM holds one row of the demand-side management table.
type DSM struct {
	Site string
	Com  string

	// Eff holds the shift efficiency: every unit of upshift must
	// be matched by Eff units of downshift within the delay window.
	Eff float64

	// Delay holds the half-width, in timesteps, of the window
	// within which an upshift must be compensated.
	Delay int

	// Recovery holds the length, in timesteps, of the window over
	// which cumulative upshift is capped.
	Recovery int

	CapMaxUp   float64
	CapMaxDown float64
}

// Key returns the composite key of the DSM row.
func (d *DSM) Key() SiteCom {
	return SiteCom{Site: d.Site, Com: d.Com}
}

// Dataset holds one complete input bundle.
type Dataset struct {
	Sites              []Site
	Commodities        []Commodity
	Processes          []Process
	ProcessCommodities []ProcessCommodity
	Transmissions      []Transmission
	Storages           []Storage
	DSMs               []DSM

	// Timesteps holds the ordered, contiguous timestep labels
	// covered by the timeseries below. The first step only seeds
	// storage content.
	Timesteps []int

	// Demand and SupIm hold per-timestep demand power and
	// intermittent-supply availability fractions, one value per
	// entry of Timesteps.
	Demand map[SiteCom][]float64
	SupIm  map[SiteCom][]float64

	// BuySellPrices holds named per-timestep price series referred
	// to by commodity price fields.
	BuySellPrices map[string][]float64

	// GlobalLimits holds optional system-wide annual caps on the
	// net creation of a commodity, keyed by commodity name.
	// Infinite values are ignored.
	GlobalLimits map[string]float64
}

// Unrestricted is a convenient +Inf for cap fields.
func Unrestricted() float64 {
	return math.Inf(1)
}

// Copy returns a deep copy of the dataset, suitable for scenario
// transformation without disturbing the shared baseline.
func (d *Dataset) Copy() *Dataset {
	d1 := &Dataset{
		Sites:              append([]Site(nil), d.Sites...),
		Commodities:        append([]Commodity(nil), d.Commodities...),
		Processes:          append([]Process(nil), d.Processes...),
		ProcessCommodities: append([]ProcessCommodity(nil), d.ProcessCommodities...),
		Transmissions:      append([]Transmission(nil), d.Transmissions...),
		Storages:           append([]Storage(nil), d.Storages...),
		DSMs:               append([]DSM(nil), d.DSMs...),
		Timesteps:          append([]int(nil), d.Timesteps...),
		Demand:             copySeriesMap(d.Demand),
		SupIm:              copySeriesMap(d.SupIm),
		BuySellPrices:      copyNamedSeriesMap(d.BuySellPrices),
	}
	if d.GlobalLimits != nil {
		d1.GlobalLimits = make(map[string]float64, len(d.GlobalLimits))
		for k, v := range d.GlobalLimits {
			d1.GlobalLimits[k] = v
		}
	}
	return d1
}

func copySeriesMap(m map[SiteCom][]float64) map[SiteCom][]float64 {
	if m == nil {
		return nil
	}
	m1 := make(map[SiteCom][]float64, len(m))
	for k, v := range m {
		m1[k] = append([]float64(nil), v...)
	}
	return m1
}

func copyNamedSeriesMap(m map[string][]float64) map[string][]float64 {
	if m == nil {
		return nil
	}
	m1 := make(map[string][]float64, len(m))
	for k, v := range m {
		m1[k] = append([]float64(nil), v...)
	}
	return m1
}

// Commodity returns the commodity row with the given site and name,
// whatever its type.
func (d *Dataset) Commodity(site, name string) (*Commodity, bool) {
	for i := range d.Commodities {
		c := &d.Commodities[i]
		if c.Site == site && c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Process returns the process row with the given key.
func (d *Dataset) Process(k ProcKey) (*Process, bool) {
	for i := range d.Processes {
		p := &d.Processes[i]
		if p.Site == k.Site && p.Name == k.Process {
			return p, true
		}
	}
	return nil, false
}

// Storage returns the storage row with the given key.
func (d *Dataset) Storage(k StoKey) (*Storage, bool) {
	for i := range d.Storages {
		s := &d.Storages[i]
		if s.Key() == k {
			return s, true
		}
	}
	return nil, false
}

// Transmission returns the transmission row with the given key.
func (d *Dataset) Transmission(k TraKey) (*Transmission, bool) {
	for i := range d.Transmissions {
		t := &d.Transmissions[i]
		if t.Key() == k {
			return t, true
		}
	}
	return nil, false
}

// DSM returns the DSM row with the given key.
func (d *Dataset) DSM(k SiteCom) (*DSM, bool) {
	for i := range d.DSMs {
		e := &d.DSMs[i]
		if e.Key() == k {
			return e, true
		}
	}
	return nil, false
}

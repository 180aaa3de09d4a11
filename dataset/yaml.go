package dataset

import (
	"io/ioutil"
	"math"
	"strings"

	"gopkg.in/errgo.v1"
	"gopkg.in/yaml.v2"
)

// Load reads a YAML input bundle from path.
func Load(path string) (*Dataset, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errgo.Mask(err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, errgo.Notef(err, "cannot parse %q", path)
	}
	return d, nil
}

// Parse parses a YAML input bundle. Timeseries maps are keyed by
// "Site.Commodity"; the key is split at the first dot. Cap fields
// left out of the document default to unrestricted where that is the
// sensible absence (upper capacity bounds, per-step and annual
// commodity caps, ramp gradients) and to zero elsewhere.
func Parse(data []byte) (*Dataset, error) {
	var raw yamlBundle
	if err := yaml.UnmarshalStrict(data, &raw); err != nil {
		return nil, errgo.Mask(err)
	}
	d := &Dataset{
		BuySellPrices: raw.BuySellPrices,
		GlobalLimits:  raw.GlobalLimits,
	}
	var err error
	if d.Timesteps, err = raw.Timesteps.steps(); err != nil {
		return nil, errgo.Mask(err)
	}
	for _, s := range raw.Sites {
		d.Sites = append(d.Sites, Site{
			Name: s.Name,
			Area: f(s.Area, -1),
		})
	}
	for _, c := range raw.Commodities {
		typ, err := comType(c.Type)
		if err != nil {
			return nil, errgo.Notef(err, "commodity %s.%s", c.Site, c.Name)
		}
		d.Commodities = append(d.Commodities, Commodity{
			Site:       c.Site,
			Name:       c.Name,
			Type:       typ,
			Price:      c.Price.p,
			Max:        f(c.Max, math.Inf(1)),
			MaxPerStep: f(c.MaxPerStep, math.Inf(1)),
		})
	}
	for _, p := range raw.Processes {
		d.Processes = append(d.Processes, Process{
			Site:         p.Site,
			Name:         p.Name,
			InstCap:      f(p.InstCap, 0),
			CapLo:        f(p.CapLo, 0),
			CapUp:        f(p.CapUp, math.Inf(1)),
			MaxGrad:      f(p.MaxGrad, math.Inf(1)),
			MinFraction:  f(p.MinFraction, 0),
			InvCost:      f(p.InvCost, 0),
			FixCost:      f(p.FixCost, 0),
			VarCost:      f(p.VarCost, 0),
			StartupCost:  f(p.StartupCost, 0),
			WACC:         f(p.WACC, 0),
			Depreciation: f(p.Depreciation, 0),
			AreaPerCap:   f(p.AreaPerCap, -1),
			PairProcess:  p.PairProcess,
		})
	}
	for _, pc := range raw.ProcessCommodities {
		dir, err := direction(pc.Direction)
		if err != nil {
			return nil, errgo.Notef(err, "process-commodity %s/%s", pc.Process, pc.Commodity)
		}
		d.ProcessCommodities = append(d.ProcessCommodities, ProcessCommodity{
			Process:   pc.Process,
			Commodity: pc.Commodity,
			Direction: dir,
			Ratio:     f(pc.Ratio, 0),
			RatioMin:  f(pc.RatioMin, 0),
		})
	}
	for _, t := range raw.Transmissions {
		d.Transmissions = append(d.Transmissions, Transmission{
			SiteIn:       t.SiteIn,
			SiteOut:      t.SiteOut,
			Tech:         t.Tech,
			Com:          t.Commodity,
			Eff:          f(t.Eff, 1),
			InstCap:      f(t.InstCap, 0),
			CapLo:        f(t.CapLo, 0),
			CapUp:        f(t.CapUp, math.Inf(1)),
			InvCost:      f(t.InvCost, 0),
			FixCost:      f(t.FixCost, 0),
			VarCost:      f(t.VarCost, 0),
			WACC:         f(t.WACC, 0),
			Depreciation: f(t.Depreciation, 0),
		})
	}
	for _, s := range raw.Storages {
		d.Storages = append(d.Storages, Storage{
			Site:         s.Site,
			Name:         s.Name,
			Com:          s.Commodity,
			EffIn:        f(s.EffIn, 1),
			EffOut:       f(s.EffOut, 1),
			InstCapP:     f(s.InstCapP, 0),
			CapLoP:       f(s.CapLoP, 0),
			CapUpP:       f(s.CapUpP, math.Inf(1)),
			InstCapC:     f(s.InstCapC, 0),
			CapLoC:       f(s.CapLoC, 0),
			CapUpC:       f(s.CapUpC, math.Inf(1)),
			InvCostP:     f(s.InvCostP, 0),
			FixCostP:     f(s.FixCostP, 0),
			VarCostP:     f(s.VarCostP, 0),
			InvCostC:     f(s.InvCostC, 0),
			FixCostC:     f(s.FixCostC, 0),
			VarCostC:     f(s.VarCostC, 0),
			WACC:         f(s.WACC, 0),
			Depreciation: f(s.Depreciation, 0),
			Init:         f(s.Init, 0),
		})
	}
	for _, e := range raw.DSM {
		d.DSMs = append(d.DSMs, DSM{
			Site:       e.Site,
			Com:        e.Commodity,
			Eff:        f(e.Eff, 1),
			Delay:      e.Delay,
			Recovery:   e.Recovery,
			CapMaxUp:   f(e.CapMaxUp, 0),
			CapMaxDown: f(e.CapMaxDown, 0),
		})
	}
	if d.Demand, err = siteComSeries(raw.Demand, len(d.Timesteps), "demand"); err != nil {
		return nil, errgo.Mask(err)
	}
	if d.SupIm, err = siteComSeries(raw.SupIm, len(d.Timesteps), "supim"); err != nil {
		return nil, errgo.Mask(err)
	}
	for name, series := range d.BuySellPrices {
		if len(series) != len(d.Timesteps) {
			return nil, errgo.Newf("price series %q has %d values; want %d", name, len(series), len(d.Timesteps))
		}
	}
	return d, nil
}

// siteComSeries splits "Site.Commodity" map keys and checks that each
// series covers all timesteps.
func siteComSeries(m map[string][]float64, n int, what string) (map[SiteCom][]float64, error) {
	if len(m) == 0 {
		return nil, nil
	}
	m1 := make(map[SiteCom][]float64, len(m))
	for k, series := range m {
		i := strings.Index(k, ".")
		if i <= 0 || i == len(k)-1 {
			return nil, errgo.Newf("%s key %q is not in Site.Commodity form", what, k)
		}
		if len(series) != n {
			return nil, errgo.Newf("%s series %q has %d values; want %d", what, k, len(series), n)
		}
		m1[SiteCom{Site: k[:i], Com: k[i+1:]}] = series
	}
	return m1, nil
}

func comType(s string) (ComType, error) {
	switch t := ComType(s); t {
	case SupIm, Demand, Stock, Sell, Buy, Env:
		return t, nil
	}
	return "", errgo.Newf("unknown commodity type %q", s)
}

func direction(s string) (Direction, error) {
	switch d := Direction(s); d {
	case In, Out:
		return d, nil
	}
	return "", errgo.Newf("unknown direction %q", s)
}

// f dereferences an optional YAML number, substituting def when the
// field was left out of the document.
func f(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

type yamlBundle struct {
	Timesteps          yamlTimesteps        `yaml:"timesteps"`
	Sites              []yamlSite           `yaml:"sites"`
	Commodities        []yamlCommodity      `yaml:"commodities"`
	Processes          []yamlProcess        `yaml:"processes"`
	ProcessCommodities []yamlProcCom        `yaml:"process-commodities"`
	Transmissions      []yamlTransmission   `yaml:"transmissions"`
	Storages           []yamlStorage        `yaml:"storages"`
	DSM                []yamlDSM            `yaml:"dsm"`
	Demand             map[string][]float64 `yaml:"demand"`
	SupIm              map[string][]float64 `yaml:"supim"`
	BuySellPrices      map[string][]float64 `yaml:"buy-sell-prices"`
	GlobalLimits       map[string]float64   `yaml:"global-limits"`
}

// yamlTimesteps accepts either an explicit list of timestep labels or
// a compact {first, count} range.
type yamlTimesteps struct {
	list  []int
	first int
	count int
}

func (t *yamlTimesteps) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var list []int
	if err := unmarshal(&list); err == nil {
		t.list = list
		return nil
	}
	var r struct {
		First int `yaml:"first"`
		Count int `yaml:"count"`
	}
	if err := unmarshal(&r); err != nil {
		return err
	}
	t.first, t.count = r.First, r.Count
	return nil
}

func (t *yamlTimesteps) steps() ([]int, error) {
	if t.list != nil {
		return t.list, nil
	}
	if t.count < 2 {
		return nil, errgo.Newf("need at least 2 timesteps; got %d", t.count)
	}
	steps := make([]int, t.count)
	for i := range steps {
		steps[i] = t.first + i
	}
	return steps, nil
}

// yamlPrice accepts either a bare number or a price string such as
// "1.25xBuy".
type yamlPrice struct {
	p Price
}

func (y *yamlPrice) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var v float64
	if err := unmarshal(&v); err == nil {
		y.p = FixedPrice(v)
		return nil
	}
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	p, err := ParsePrice(s)
	if err != nil {
		return err
	}
	y.p = p
	return nil
}

type yamlSite struct {
	Name string   `yaml:"name"`
	Area *float64 `yaml:"area"`
}

type yamlCommodity struct {
	Site       string    `yaml:"site"`
	Name       string    `yaml:"name"`
	Type       string    `yaml:"type"`
	Price      yamlPrice `yaml:"price"`
	Max        *float64  `yaml:"max"`
	MaxPerStep *float64  `yaml:"max-per-step"`
}

type yamlProcess struct {
	Site         string   `yaml:"site"`
	Name         string   `yaml:"name"`
	InstCap      *float64 `yaml:"inst-cap"`
	CapLo        *float64 `yaml:"cap-lo"`
	CapUp        *float64 `yaml:"cap-up"`
	MaxGrad      *float64 `yaml:"max-grad"`
	MinFraction  *float64 `yaml:"min-fraction"`
	InvCost      *float64 `yaml:"inv-cost"`
	FixCost      *float64 `yaml:"fix-cost"`
	VarCost      *float64 `yaml:"var-cost"`
	StartupCost  *float64 `yaml:"startup-cost"`
	WACC         *float64 `yaml:"wacc"`
	Depreciation *float64 `yaml:"depreciation"`
	AreaPerCap   *float64 `yaml:"area-per-cap"`
	PairProcess  string   `yaml:"pair-process"`
}

type yamlProcCom struct {
	Process   string   `yaml:"process"`
	Commodity string   `yaml:"commodity"`
	Direction string   `yaml:"direction"`
	Ratio     *float64 `yaml:"ratio"`
	RatioMin  *float64 `yaml:"ratio-min"`
}

type yamlTransmission struct {
	SiteIn       string   `yaml:"site-in"`
	SiteOut      string   `yaml:"site-out"`
	Tech         string   `yaml:"tech"`
	Commodity    string   `yaml:"commodity"`
	Eff          *float64 `yaml:"eff"`
	InstCap      *float64 `yaml:"inst-cap"`
	CapLo        *float64 `yaml:"cap-lo"`
	CapUp        *float64 `yaml:"cap-up"`
	InvCost      *float64 `yaml:"inv-cost"`
	FixCost      *float64 `yaml:"fix-cost"`
	VarCost      *float64 `yaml:"var-cost"`
	WACC         *float64 `yaml:"wacc"`
	Depreciation *float64 `yaml:"depreciation"`
}

type yamlStorage struct {
	Site         string   `yaml:"site"`
	Name         string   `yaml:"name"`
	Commodity    string   `yaml:"commodity"`
	EffIn        *float64 `yaml:"eff-in"`
	EffOut       *float64 `yaml:"eff-out"`
	InstCapP     *float64 `yaml:"inst-cap-p"`
	CapLoP       *float64 `yaml:"cap-lo-p"`
	CapUpP       *float64 `yaml:"cap-up-p"`
	InstCapC     *float64 `yaml:"inst-cap-c"`
	CapLoC       *float64 `yaml:"cap-lo-c"`
	CapUpC       *float64 `yaml:"cap-up-c"`
	InvCostP     *float64 `yaml:"inv-cost-p"`
	FixCostP     *float64 `yaml:"fix-cost-p"`
	VarCostP     *float64 `yaml:"var-cost-p"`
	InvCostC     *float64 `yaml:"inv-cost-c"`
	FixCostC     *float64 `yaml:"fix-cost-c"`
	VarCostC     *float64 `yaml:"var-cost-c"`
	WACC         *float64 `yaml:"wacc"`
	Depreciation *float64 `yaml:"depreciation"`
	Init         *float64 `yaml:"init"`
}

type yamlDSM struct {
	Site       string   `yaml:"site"`
	Commodity  string   `yaml:"commodity"`
	Eff        *float64 `yaml:"eff"`
	Delay      int      `yaml:"delay"`
	Recovery   int      `yaml:"recovery"`
	CapMaxUp   *float64 `yaml:"cap-max-up"`
	CapMaxDown *float64 `yaml:"cap-max-down"`
}

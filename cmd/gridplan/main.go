// Gridplan builds and solves energy-system planning scenarios.
//
// It reads a run configuration naming an input bundle and a set of
// scenarios, solves each scenario independently through glpsol and
// writes one summary CSV (plus the solver log) per scenario into a
// timestamped result directory. Solved runs can additionally be
// recorded in a bolt database for later comparison.
//
// Usage:
//
//	gridplan [flags] run.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/errgo.v1"
	"gopkg.in/yaml.v2"

	"github.com/rogpeppe/gridplan/dataset"
	"github.com/rogpeppe/gridplan/glpk"
	"github.com/rogpeppe/gridplan/linprog"
	"github.com/rogpeppe/gridplan/model"
	"github.com/rogpeppe/gridplan/planstore"
	"github.com/rogpeppe/gridplan/report"
	"github.com/rogpeppe/gridplan/scenario"
)

var (
	parallel = flag.Int("parallel", 1, "number of scenarios to solve concurrently")
	duals    = flag.Bool("duals", false, "keep constraint dual values")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: gridplan [flags] run.yaml\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(flag.Arg(0)); err != nil {
		log.Fatalf("gridplan: %v", err)
	}
}

// runConfig holds the YAML run configuration.
type runConfig struct {
	// Bundle holds the path of the dataset bundle, relative to the
	// configuration file.
	Bundle string `yaml:"bundle"`

	// ResultDir holds the directory that per-run result
	// directories are created under. Defaults to "results".
	ResultDir string `yaml:"result-dir"`

	// Store optionally names a bolt database to record solved
	// runs in.
	Store string `yaml:"store"`

	DT        float64 `yaml:"dt"`
	Timesteps *struct {
		First int `yaml:"first"`
		Count int `yaml:"count"`
	} `yaml:"timesteps"`

	Solver struct {
		Path string `yaml:"path"`
		// TimeLimit bounds each solve, in seconds.
		TimeLimit int `yaml:"time-limit"`
	} `yaml:"solver"`

	Scenarios []scenarioConfig `yaml:"scenarios"`
}

type scenarioConfig struct {
	Name            string             `yaml:"name"`
	GlobalLimits    map[string]float64 `yaml:"global-limits"`
	CommodityPrices []struct {
		Site      string `yaml:"site"`
		Commodity string `yaml:"commodity"`
		Type      string `yaml:"type"`
		Price     string `yaml:"price"`
	} `yaml:"commodity-prices"`
	InvestCosts []struct {
		Site    string  `yaml:"site"`
		Process string  `yaml:"process"`
		Cost    float64 `yaml:"cost"`
	} `yaml:"invest-costs"`
	DemandScale []struct {
		Site      string  `yaml:"site"`
		Commodity string  `yaml:"commodity"`
		Factor    float64 `yaml:"factor"`
	} `yaml:"demand-scale"`
}

func run(configPath string) error {
	cfg, err := readConfig(configPath)
	if err != nil {
		return errgo.Mask(err)
	}
	base, err := dataset.Load(cfg.Bundle)
	if err != nil {
		return errgo.Mask(err)
	}
	scenarios, err := cfg.scenarios()
	if err != nil {
		return errgo.Mask(err)
	}
	runID := uuid.New().String()
	resultDir, err := prepareResultDir(cfg.ResultDir, cfg.Bundle)
	if err != nil {
		return errgo.Mask(err)
	}
	log.Printf("run %s: %d scenarios -> %s", runID, len(scenarios), resultDir)

	var store *planstore.Store
	if cfg.Store != "" {
		store, err = planstore.Open(cfg.Store)
		if err != nil {
			return errgo.Mask(err)
		}
		defer store.Close()
	}

	n := *parallel
	if n < 1 {
		n = 1
	}
	limit := make(chan struct{}, n)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for _, sc := range scenarios {
		sc := sc
		wg.Add(1)
		go func() {
			defer wg.Done()
			limit <- struct{}{}
			defer func() {
				<-limit
			}()
			err := runScenario(cfg, sc, base, resultDir, runID, store)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("scenario %s failed: %v", sc.Name, err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}()
	}
	wg.Wait()
	return errgo.Mask(firstErr, errgo.Any)
}

func runScenario(cfg *runConfig, sc scenario.Scenario, base *dataset.Dataset, resultDir, runID string, store *planstore.Store) error {
	start := time.Now()
	data, err := sc.Apply(base)
	if err != nil {
		return errgo.Mask(err)
	}
	opts := model.Options{
		Name:  sc.Name,
		DT:    cfg.DT,
		Duals: *duals,
	}
	if ts := cfg.Timesteps; ts != nil {
		steps := make([]int, ts.Count)
		for i := range steps {
			steps[i] = ts.First + i
		}
		opts.Timesteps = steps
	}
	m, err := model.Build(data, opts)
	if err != nil {
		return errgo.Notef(err, "cannot build model")
	}
	solver := &glpk.Solver{
		Path:      cfg.Solver.Path,
		TimeLimit: time.Duration(cfg.Solver.TimeLimit) * time.Second,
		LogFile:   filepath.Join(resultDir, sc.Name+".log"),
	}
	sol, err := m.Solve(context.Background(), solver)
	if err != nil {
		return errgo.Notef(err, "solver failed")
	}
	r, err := report.New(m, sol)
	if err != nil {
		return errgo.Mask(err, errgo.Is(linprog.ErrNotOptimal))
	}
	f, err := os.Create(filepath.Join(resultDir, sc.Name+".csv"))
	if err != nil {
		return errgo.Mask(err)
	}
	defer f.Close()
	if err := r.WriteSummary(f); err != nil {
		return errgo.Mask(err)
	}
	log.Printf("scenario %s: objective %.2f (%.1fs)", sc.Name, r.Objective(), time.Since(start).Seconds())

	if store == nil {
		return nil
	}
	costs := make(map[string]float64)
	for ct, v := range r.Costs() {
		costs[string(ct)] = v
	}
	err = store.PutRun(&planstore.Run{
		ID:               runID + "/" + sc.Name,
		Scenario:         sc.Name,
		Created:          time.Now(),
		Objective:        r.Objective(),
		Costs:            costs,
		ProcessCaps:      r.ProcessCaps(),
		TransmissionCaps: r.TransmissionCaps(),
		StorageCaps:      r.StorageCaps(),
	})
	return errgo.Mask(err)
}

func readConfig(path string) (*runConfig, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errgo.Mask(err)
	}
	var cfg runConfig
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, errgo.Notef(err, "cannot parse %q", path)
	}
	if cfg.Bundle == "" {
		return nil, errgo.Newf("no bundle in %q", path)
	}
	// Paths are relative to the configuration file.
	dir := filepath.Dir(path)
	if !filepath.IsAbs(cfg.Bundle) {
		cfg.Bundle = filepath.Join(dir, cfg.Bundle)
	}
	if cfg.ResultDir == "" {
		cfg.ResultDir = "results"
	}
	if !filepath.IsAbs(cfg.ResultDir) {
		cfg.ResultDir = filepath.Join(dir, cfg.ResultDir)
	}
	if cfg.Store != "" && !filepath.IsAbs(cfg.Store) {
		cfg.Store = filepath.Join(dir, cfg.Store)
	}
	if len(cfg.Scenarios) == 0 {
		cfg.Scenarios = []scenarioConfig{{Name: "base"}}
	}
	seen := make(map[string]bool)
	for _, sc := range cfg.Scenarios {
		if sc.Name == "" {
			return nil, errgo.Newf("scenario without a name in %q", path)
		}
		if seen[sc.Name] {
			return nil, errgo.Newf("duplicate scenario %q in %q", sc.Name, path)
		}
		seen[sc.Name] = true
	}
	return &cfg, nil
}

// scenarios converts the declarative scenario configurations into
// scenario values.
func (cfg *runConfig) scenarios() ([]scenario.Scenario, error) {
	scs := make([]scenario.Scenario, 0, len(cfg.Scenarios))
	for _, sc := range cfg.Scenarios {
		sc := sc
		prices := make(map[dataset.ComKey]dataset.Price)
		for _, o := range sc.CommodityPrices {
			price, err := dataset.ParsePrice(o.Price)
			if err != nil {
				return nil, errgo.Notef(err, "scenario %q", sc.Name)
			}
			prices[dataset.ComKey{Site: o.Site, Com: o.Commodity, Type: dataset.ComType(o.Type)}] = price
		}
		scs = append(scs, scenario.Func(sc.Name, func(d *dataset.Dataset) error {
			for _, s := range []scenario.Scenario{
				scenario.CommodityPrices(sc.Name, prices),
			} {
				if err := s.Transform(d); err != nil {
					return err
				}
			}
			for name, limit := range sc.GlobalLimits {
				if err := scenario.GlobalLimit(sc.Name, name, limit).Transform(d); err != nil {
					return err
				}
			}
			for _, o := range sc.InvestCosts {
				err := scenario.InvestCosts(sc.Name, map[dataset.ProcKey]float64{
					{Site: o.Site, Process: o.Process}: o.Cost,
				}).Transform(d)
				if err != nil {
					return err
				}
			}
			for _, o := range sc.DemandScale {
				err := scenario.ScaleDemand(sc.Name, dataset.SiteCom{Site: o.Site, Com: o.Commodity}, o.Factor).Transform(d)
				if err != nil {
					return err
				}
			}
			return nil
		}))
	}
	return scs, nil
}

// prepareResultDir creates a fresh directory named after the bundle
// and the current time, like results/house-20190601T1200.
func prepareResultDir(root, bundle string) (string, error) {
	name := strings.TrimSuffix(filepath.Base(bundle), filepath.Ext(bundle))
	dir := filepath.Join(root, name+"-"+time.Now().Format("20060102T1504"))
	if err := os.MkdirAll(dir, 0777); err != nil {
		return "", errgo.Mask(err)
	}
	return dir, nil
}

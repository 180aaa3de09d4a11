package planstore_test

import (
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"gopkg.in/errgo.v1"

	"github.com/rogpeppe/gridplan/planstore"
	"github.com/rogpeppe/gridplan/report"
)

func openStore(c *qt.C) *planstore.Store {
	store, err := planstore.Open(filepath.Join(c.Mkdir(), "runs.db"))
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestPutAndGetRun(t *testing.T) {
	c := qt.New(t)
	store := openStore(c)

	run := &planstore.Run{
		ID:        "run-1",
		Scenario:  "base",
		Created:   time.Date(2019, 6, 1, 12, 0, 0, 0, time.UTC),
		Objective: 186271.1,
		Costs: map[string]float64{
			"Invest": 1234.5,
			"Fuel":   456,
		},
		ProcessCaps: []report.ProcessCap{{
			Site: "House", Process: "Gas plant", Total: 10, New: 10,
		}},
		StorageCaps: []report.StorageCap{{
			Site: "House", Storage: "Battery", Com: "Elec",
			PowerTotal: 5, EnergyTotal: 15, EnergyNew: 15,
		}},
	}
	c.Assert(store.PutRun(run), qt.IsNil)

	got, err := store.Run("run-1")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, run)
}

func TestRunNotFound(t *testing.T) {
	c := qt.New(t)
	store := openStore(c)
	_, err := store.Run("nope")
	c.Assert(err, qt.ErrorMatches, `no run with ID "nope"`)
	c.Assert(errgo.Cause(err), qt.Equals, planstore.ErrNotFound)
}

func TestRunsSortedByCreation(t *testing.T) {
	c := qt.New(t)
	store := openStore(c)
	t0 := time.Date(2019, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"c", "a", "b"} {
		c.Assert(store.PutRun(&planstore.Run{
			ID:      id,
			Created: t0.Add(time.Duration(2-i) * time.Hour),
		}), qt.IsNil)
	}
	runs, err := store.Runs()
	c.Assert(err, qt.IsNil)
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	c.Assert(ids, qt.DeepEquals, []string{"b", "a", "c"})
}

func TestDeleteRun(t *testing.T) {
	c := qt.New(t)
	store := openStore(c)
	c.Assert(store.PutRun(&planstore.Run{ID: "x"}), qt.IsNil)
	c.Assert(store.DeleteRun("x"), qt.IsNil)
	_, err := store.Run("x")
	c.Assert(errgo.Cause(err), qt.Equals, planstore.ErrNotFound)
	// Deleting again is fine.
	c.Assert(store.DeleteRun("x"), qt.IsNil)
}

func TestEmptyRunID(t *testing.T) {
	c := qt.New(t)
	store := openStore(c)
	c.Assert(store.PutRun(&planstore.Run{}), qt.ErrorMatches, "run has no ID")
}

// Package planstore persists the outcome of solved planning runs in
// a bolt database, so that scenario results can be compared across
// invocations without re-solving. Records are stored as JSON under
// their run ID; the store knows nothing about models or solvers.
package planstore

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/boltdb/bolt"
	"gopkg.in/errgo.v1"

	"github.com/rogpeppe/gridplan/report"
)

// ErrNotFound is the cause of errors returned for missing runs.
var ErrNotFound = errgo.New("run not found")

var runBucket = []byte("runs")

// Store holds the database handle. It is safe for concurrent use.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: time.Second,
	})
	if err != nil {
		return nil, errgo.Notef(err, "cannot open database %q", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errgo.Mask(err)
	}
	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run holds the stored outcome of one solved scenario.
type Run struct {
	// ID uniquely identifies the run.
	ID string

	// Scenario names the scenario that produced the run.
	Scenario string

	// Created holds the time the run was stored.
	Created time.Time

	// Objective holds the total annualised system cost.
	Objective float64

	Costs            map[string]float64
	ProcessCaps      []report.ProcessCap
	TransmissionCaps []report.TransmissionCap
	StorageCaps      []report.StorageCap
}

// PutRun stores the given run, overwriting any run with the same ID.
func (s *Store) PutRun(r *Run) error {
	if r.ID == "" {
		return errgo.New("run has no ID")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return errgo.Mask(err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runBucket).Put([]byte(r.ID), data)
	})
	return errgo.Mask(err)
}

// Run returns the run with the given ID.
func (s *Store) Run(id string) (*Run, error) {
	var r *Run
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(runBucket).Get([]byte(id))
		if data == nil {
			return errgo.WithCausef(nil, ErrNotFound, "no run with ID %q", id)
		}
		r = new(Run)
		return errgo.Mask(json.Unmarshal(data, r))
	})
	if err != nil {
		return nil, errgo.Mask(err, errgo.Is(ErrNotFound))
	}
	return r, nil
}

// Runs returns all stored runs in creation order.
func (s *Store) Runs() ([]*Run, error) {
	var runs []*Run
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runBucket).ForEach(func(k, data []byte) error {
			r := new(Run)
			if err := json.Unmarshal(data, r); err != nil {
				return errgo.Notef(err, "corrupt run record %q", k)
			}
			runs = append(runs, r)
			return nil
		})
	})
	if err != nil {
		return nil, errgo.Mask(err)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Created.Before(runs[j].Created)
	})
	return runs, nil
}

// DeleteRun removes the run with the given ID. Deleting a missing
// run is not an error.
func (s *Store) DeleteRun(id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runBucket).Delete([]byte(id))
	})
	return errgo.Mask(err)
}

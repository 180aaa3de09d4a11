// Package glpk runs linear programs through the external glpsol
// binary from the GNU Linear Programming Kit. The problem is written
// to a temporary directory in CPLEX LP format, glpsol is invoked as a
// subprocess and its plain-text solution report is parsed back into a
// linprog.Solution.
package glpk

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"gopkg.in/errgo.v1"

	"github.com/rogpeppe/gridplan/linprog"
)

// Solver implements linprog.Solver by invoking glpsol.
// The zero value is ready to use with default settings.
type Solver struct {
	// Path holds the glpsol executable path.
	// If empty, "glpsol" is looked up in $PATH.
	Path string

	// LogFile, if non-empty, receives the solver's terminal output.
	LogFile string

	// TimeLimit bounds the solve time. Zero means no limit.
	// Note that glpsol only supports whole-second limits.
	TimeLimit time.Duration

	// WorkDir, if non-empty, is used instead of a fresh temporary
	// directory, and intermediate files are kept. Useful for
	// debugging unexpected solver results.
	WorkDir string
}

// Available reports whether the solver binary can be found.
func (s *Solver) Available() bool {
	_, err := exec.LookPath(s.path())
	return err == nil
}

func (s *Solver) path() string {
	if s.Path != "" {
		return s.Path
	}
	return "glpsol"
}

// Solve implements linprog.Solver. An infeasible or unbounded problem
// is not an error: the outcome is reported through Solution.Status,
// passed through from the solver unchanged.
func (s *Solver) Solve(ctx context.Context, p *linprog.Problem) (*linprog.Solution, error) {
	dir := s.WorkDir
	if dir == "" {
		d, err := ioutil.TempDir("", "glpk")
		if err != nil {
			return nil, errgo.Mask(err)
		}
		defer os.RemoveAll(d)
		dir = d
	}
	lpPath := filepath.Join(dir, "problem.lp")
	solPath := filepath.Join(dir, "solution.txt")

	f, err := os.Create(lpPath)
	if err != nil {
		return nil, errgo.Mask(err)
	}
	if err := p.WriteLP(f); err != nil {
		f.Close()
		return nil, errgo.Notef(err, "cannot write LP file")
	}
	if err := f.Close(); err != nil {
		return nil, errgo.Mask(err)
	}

	args := []string{"--lp", lpPath, "--output", solPath}
	if s.TimeLimit > 0 {
		secs := int(s.TimeLimit / time.Second)
		if secs < 1 {
			secs = 1
		}
		args = append(args, "--tmlim", fmt.Sprint(secs))
	}
	cmd := exec.CommandContext(ctx, s.path(), args...)
	if s.LogFile != "" {
		logf, err := os.Create(s.LogFile)
		if err != nil {
			return nil, errgo.Mask(err)
		}
		defer logf.Close()
		cmd.Stdout = logf
		cmd.Stderr = logf
	}
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, errgo.Mask(ctx.Err(), errgo.Any)
		}
		return nil, errgo.Notef(err, "glpsol failed")
	}
	data, err := ioutil.ReadFile(solPath)
	if err != nil {
		return nil, errgo.Notef(err, "cannot read solution file")
	}
	sol, err := parseSolution(string(data), p)
	if err != nil {
		return nil, errgo.Notef(err, "cannot parse solution file")
	}
	return sol, nil
}

package linprog

import (
	"context"
)

// Solver solves linear programs. Implementations are external
// collaborators (typically wrapping a solver binary or library);
// the solve call is synchronous and potentially long-running, so
// it takes a context for cancellation.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (*Solution, error)
}

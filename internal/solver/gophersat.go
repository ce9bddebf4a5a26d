package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	gs "github.com/crillab/gophersat/solver"
	"golang.org/x/sync/semaphore"
)

const integralEps = 1e-9

var (
	ErrFractionalCoef   = errors.New("coefficient is not integral")
	ErrUnknownVar       = errors.New("unknown variable")
	ErrLinearObjective  = errors.New("only constant objectives are supported")
	ErrSolveInterrupted = errors.New("solve interrupted")
	ErrBackendPanic     = errors.New("solver backend panicked")
)

// backendSlot admits one gophersat run per process. The library learns
// clauses through a package-level buffer shared by all solver instances,
// and a run cannot be stopped once started.
var backendSlot = semaphore.NewWeighted(1)

// Gophersat adapts the gophersat pseudo-boolean solver to Solver.
//
// Every constraint is normalized to sum(w_i * l_i) >= n with positive integer
// weights over literals, which is the native gophersat form. Constraints that
// are trivially satisfied are dropped; constraints that can never hold mark the
// model infeasible without calling the backend, as do constraints that exceed
// what the exactly-one slot choices can reach.
type Gophersat struct {
	names          []string
	constrs        []gs.PBConstr
	numConstraints int
	infeasible     bool
	err            error
	status         Status
	model          []bool
}

// NewGophersat returns an empty model.
func NewGophersat() *Gophersat {
	return &Gophersat{}
}

// NewGophersatFactory is a Factory producing Gophersat instances.
func NewGophersatFactory() Factory {
	return func() Solver { return NewGophersat() }
}

func (g *Gophersat) NewBinary(name string) Var {
	g.names = append(g.names, name)
	return Var(len(g.names))
}

func (g *Gophersat) NumVars() int        { return len(g.names) }
func (g *Gophersat) NumConstraints() int { return g.numConstraints }

// Name returns the name a variable was declared with.
func (g *Gophersat) Name(v Var) string {
	if int(v) < 1 || int(v) > len(g.names) {
		return ""
	}
	return g.names[v-1]
}

// Err reports why the last solve ended in StatusError.
func (g *Gophersat) Err() error { return g.err }

func (g *Gophersat) AddConstraint(terms []Term, sense Sense, rhs float64) {
	g.numConstraints++
	switch sense {
	case GE:
		g.addAtLeast(terms, rhs, 1)
	case LE:
		g.addAtLeast(terms, rhs, -1)
	case EQ:
		g.addAtLeast(terms, rhs, 1)
		g.addAtLeast(terms, rhs, -1)
	default:
		g.fail(fmt.Errorf("unknown constraint sense %d", sense))
	}
}

// addAtLeast adds sign*sum(terms) >= sign*rhs.
func (g *Gophersat) addAtLeast(terms []Term, rhs float64, sign float64) {
	bound := int(math.Ceil(sign*rhs - integralEps))

	order := make([]Var, 0, len(terms))
	coefs := make(map[Var]int, len(terms))
	for _, t := range terms {
		if int(t.Var) < 1 || int(t.Var) > len(g.names) {
			g.fail(fmt.Errorf("%w: %d", ErrUnknownVar, t.Var))
			return
		}
		c := sign * t.Coef
		if math.Abs(c-math.Round(c)) > integralEps {
			g.fail(fmt.Errorf("%w: %v on %s", ErrFractionalCoef, t.Coef, g.Name(t.Var)))
			return
		}
		if _, seen := coefs[t.Var]; !seen {
			order = append(order, t.Var)
		}
		coefs[t.Var] += int(math.Round(c))
	}

	lits := make([]int, 0, len(order))
	weights := make([]int, 0, len(order))
	total := 0
	for _, v := range order {
		c := coefs[v]
		switch {
		case c > 0:
			lits = append(lits, int(v))
			weights = append(weights, c)
			total += c
		case c < 0:
			// c*x == c + |c|*(not x)
			lits = append(lits, -int(v))
			weights = append(weights, -c)
			bound -= c
			total -= c
		}
	}

	if bound <= 0 {
		return
	}
	if total < bound {
		g.infeasible = true
		return
	}
	g.constrs = append(g.constrs, gs.PBConstr{Lits: lits, Weights: weights, AtLeast: bound})
}

func (g *Gophersat) SetObjective(terms []Term, constant float64) {
	for _, t := range terms {
		if t.Coef != 0 {
			g.fail(ErrLinearObjective)
			return
		}
	}
}

func (g *Gophersat) fail(err error) {
	if g.err == nil {
		g.err = err
	}
}

func (g *Gophersat) Solve(ctx context.Context) Status {
	g.model = nil
	switch {
	case g.err != nil:
		g.status = StatusError
		return g.status
	case g.infeasible:
		g.status = StatusInfeasible
		return g.status
	case len(g.constrs) == 0:
		g.model = make([]bool, len(g.names))
		g.status = StatusOptimal
		return g.status
	case boundsInfeasible(g.constrs):
		g.status = StatusInfeasible
		return g.status
	}

	if err := ctx.Err(); err != nil {
		g.err = fmt.Errorf("%w: %w", ErrSolveInterrupted, err)
		g.status = StatusError
		return g.status
	}

	type result struct {
		status gs.Status
		model  []bool
		err    error
	}
	constrs := g.constrs
	done := make(chan result, 1)
	go func() {
		// The slot is taken here, not by the caller, so a run that outlives
		// its caller's deadline keeps later runs waiting until it ends.
		if err := backendSlot.Acquire(ctx, 1); err != nil {
			done <- result{err: fmt.Errorf("%w: %w", ErrSolveInterrupted, err)}
			return
		}
		defer backendSlot.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: %v", ErrBackendPanic, r)}
			}
		}()

		s := gs.New(gs.ParsePBConstrs(constrs))
		res := result{status: s.Solve()}
		if res.status == gs.Sat {
			res.model = s.Model()
		}
		done <- res
	}()

	select {
	case <-ctx.Done():
		// The run goes on in the background until gophersat returns; its
		// result lands in the buffered channel and is dropped.
		g.err = fmt.Errorf("%w: %w", ErrSolveInterrupted, ctx.Err())
		g.status = StatusError
	case res := <-done:
		switch {
		case res.err != nil:
			g.err = res.err
			g.status = StatusError
		case res.status == gs.Sat:
			g.model = res.model
			g.status = StatusOptimal
		case res.status == gs.Unsat:
			g.status = StatusInfeasible
		default:
			g.err = errors.New("solver returned indeterminate status")
			g.status = StatusError
		}
	}
	return g.status
}

// Value returns 1 or 0 for a variable after an optimal solve, 0 otherwise.
// Variables that appear in no constraint are free and reported as 0.
func (g *Gophersat) Value(v Var) float64 {
	if g.status != StatusOptimal {
		return 0
	}
	idx := int(v) - 1
	if idx >= 0 && idx < len(g.model) && g.model[idx] {
		return 1
	}
	return 0
}

func (g *Gophersat) Status() Status { return g.status }

var _ Solver = (*Gophersat)(nil)

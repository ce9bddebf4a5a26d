package solver

import "context"

// Var identifies a binary decision variable declared on a Solver.
type Var int

// Term is a weighted variable in a linear expression.
type Term struct {
	Var  Var
	Coef float64
}

// Sense is the relation of a linear constraint to its right-hand side.
type Sense int

const (
	EQ Sense = iota
	LE
	GE
)

func (s Sense) String() string {
	switch s {
	case EQ:
		return "="
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "?"
	}
}

// Status is the overall outcome of a solve.
type Status int

const (
	StatusNotSolved Status = iota
	StatusOptimal
	StatusInfeasible
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusNotSolved:
		return "not_solved"
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Solver is the capability the planning engine needs from a 0/1 linear solver.
//
// A Solver instance holds one model and is not safe for concurrent use.
// Separate instances may solve concurrently.
//
// Solve blocks until the backend finishes or ctx is done; a solve cut short
// by ctx reports StatusError. Returning early does not stop the work: a
// backend without an interruption hook keeps computing in the background
// and may delay later solves that share it.
type Solver interface {
	NewBinary(name string) Var
	AddConstraint(terms []Term, sense Sense, rhs float64)
	SetObjective(terms []Term, constant float64)
	Solve(ctx context.Context) Status
	Value(v Var) float64
	Status() Status
	NumVars() int
	NumConstraints() int
}

// Factory builds a fresh Solver per model.
type Factory func() Solver

// Sum is a helper building unit-weight terms.
func Sum(vars ...Var) []Term {
	terms := make([]Term, len(vars))
	for i, v := range vars {
		terms[i] = Term{Var: v, Coef: 1}
	}
	return terms
}

package solver

import gs "github.com/crillab/gophersat/solver"

// choiceGroups partitions variables into disjoint at-most-one groups read off
// the normalized constraints. A group is exact when some at-least-one
// constraint lies entirely inside it, so exactly one member is true.
type choiceGroups struct {
	of      map[int]int
	members [][]int
	exact   []bool
}

func unitWeights(c gs.PBConstr) bool {
	for _, w := range c.Weights {
		if w != 1 {
			return false
		}
	}
	return true
}

func findChoiceGroups(constrs []gs.PBConstr) choiceGroups {
	gr := choiceGroups{of: make(map[int]int)}

	// sum(l_i) >= n-1 over unit weights: at most one literal is false, so at
	// most one of the variables appearing negated is true.
	for _, c := range constrs {
		if len(c.Lits) < 2 || c.AtLeast != len(c.Lits)-1 || !unitWeights(c) {
			continue
		}
		var fresh []int
		for _, l := range c.Lits {
			if l < 0 {
				if _, taken := gr.of[-l]; !taken {
					fresh = append(fresh, -l)
				}
			}
		}
		if len(fresh) < 2 {
			continue
		}
		id := len(gr.members)
		for _, v := range fresh {
			gr.of[v] = id
		}
		gr.members = append(gr.members, fresh)
		gr.exact = append(gr.exact, false)
	}

	for _, c := range constrs {
		if c.AtLeast != 1 || len(c.Lits) == 0 || !unitWeights(c) {
			continue
		}
		id, inside := -1, true
		for _, l := range c.Lits {
			g, ok := gr.of[l]
			if l < 0 || !ok || (id >= 0 && g != id) {
				inside = false
				break
			}
			id = g
		}
		if inside {
			gr.exact[id] = true
		}
	}
	return gr
}

// upperBound is the largest value the left-hand side of c can reach under
// the group structure alone.
func (gr choiceGroups) upperBound(c gs.PBConstr) int {
	type acc struct {
		negSum   int
		maxDelta int
		seen     int
	}
	touched := make(map[int]*acc)
	bound := 0

	for i, l := range c.Lits {
		w := c.Weights[i]
		v := l
		if v < 0 {
			v = -v
		}
		g, ok := gr.of[v]
		if !ok {
			bound += w
			continue
		}
		a := touched[g]
		if a == nil {
			a = &acc{maxDelta: -1 << 62}
			touched[g] = a
		}
		a.seen++
		// With v as the group's true member the literal contributes w if
		// positive; a negated literal loses w.
		delta := w
		if l < 0 {
			a.negSum += w
			delta = -w
		}
		if delta > a.maxDelta {
			a.maxDelta = delta
		}
	}

	for g, a := range touched {
		best := a.maxDelta
		// No member true, or a true member outside c, leaves every negated
		// literal satisfied.
		if (!gr.exact[g] || a.seen < len(gr.members[g])) && best < 0 {
			best = 0
		}
		bound += a.negSum + best
	}
	return bound
}

// boundsInfeasible reports a constraint that no assignment respecting the
// choice groups can satisfy, such as a daily protein floor above the best
// recipe of every slot combined.
func boundsInfeasible(constrs []gs.PBConstr) bool {
	gr := findChoiceGroups(constrs)
	if len(gr.members) == 0 {
		return false
	}
	for _, c := range constrs {
		if gr.upperBound(c) < c.AtLeast {
			return true
		}
	}
	return false
}

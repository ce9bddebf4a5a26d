package engine

const selectedThreshold = 0.5

// extract reads the solved assignment into a plan. It trusts the model and
// does not re-check any constraint.
func (m *model) extract() WeeklyPlan {
	plan := make(WeeklyPlan, 0, Days*len(m.rules.Slots))
	for d := 0; d < Days; d++ {
		for k, spec := range m.rules.Slots {
			if spec.Optional && m.s.Value(m.has[d][k]) <= selectedThreshold {
				continue
			}
			pool := m.pools.Pool(spec.Pool)
			for i, v := range m.x[d][k] {
				if m.s.Value(v) > selectedThreshold {
					plan = append(plan, SlotAssignment{Day: d, Slot: spec.Slot, Recipe: pool[i]})
					break
				}
			}
		}
	}
	return plan
}

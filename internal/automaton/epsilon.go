package automaton

// Closure returns the epsilon closure of state id in discovery order.
// The state itself is always the first element.
func (a *Automaton) Closure(id int) []int {
	seen := make([]bool, len(a.States))
	return a.closure(id, seen)
}

// closure computes the epsilon closure using seen as scratch space.
// seen must be all false on entry and is reset before returning.
func (a *Automaton) closure(id int, seen []bool) []int {
	result := []int{id}
	seen[id] = true
	stack := []int{id}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, next := range a.States[current].Epsilon {
			if !seen[next] {
				seen[next] = true
				result = append(result, next)
				stack = append(stack, next)
			}
		}
	}

	for _, s := range result {
		seen[s] = false
	}
	return result
}

// RemoveEpsilon returns an equivalent automaton without epsilon transitions.
// State ids, start and accept are preserved. For every state s and symbol x,
// the new targets are the closures of all x-targets of every state in the
// closure of s.
func RemoveEpsilon(a *Automaton) *Automaton {
	n := len(a.States)
	seen := make([]bool, n)

	closures := make([][]int, n)
	for id := 0; id < n; id++ {
		closures[id] = a.closure(id, seen)
	}

	states := make([]State, n)
	for id := 0; id < n; id++ {
		state := State{ID: id}
		for _, member := range closures[id] {
			src := &a.States[member]
			for k, symbol := range src.Symbols {
				for _, target := range src.Targets[k] {
					for _, t := range closures[target] {
						state.addTransition(symbol, t)
					}
				}
			}
		}
		states[id] = state
	}

	return &Automaton{
		States: states,
		Start:  a.Start,
		Accept: a.Accept,
	}
}

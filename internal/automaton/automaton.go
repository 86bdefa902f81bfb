// Package automaton compiles regex source into a nondeterministic automaton
// and removes its epsilon transitions.
package automaton

// State is a single automaton state. Its ID equals its index in the arena.
type State struct {
	ID int

	// Symbols and Targets are parallel: Targets[k] lists the states reached
	// by consuming Symbols[k]. Symbols keep first-insertion order.
	Symbols []string
	Targets [][]int

	// Epsilon lists states reachable without consuming input.
	Epsilon []int
}

// Automaton is an arena of states with a designated start and accept state.
type Automaton struct {
	States []State
	Start  int
	Accept int
}

// Len returns the number of states.
func (a *Automaton) Len() int {
	return len(a.States)
}

// TransitionCount returns the number of (symbol, target) pairs across all states.
func (a *Automaton) TransitionCount() int {
	count := 0
	for i := range a.States {
		for _, targets := range a.States[i].Targets {
			count += len(targets)
		}
	}
	return count
}

// EpsilonCount returns the number of epsilon edges across all states.
func (a *Automaton) EpsilonCount() int {
	count := 0
	for i := range a.States {
		count += len(a.States[i].Epsilon)
	}
	return count
}

// symbolIndex returns the position of symbol in s.Symbols, or -1.
func (s *State) symbolIndex(symbol string) int {
	for k, sym := range s.Symbols {
		if sym == symbol {
			return k
		}
	}
	return -1
}

// addTransition appends target under symbol unless the pair already exists.
func (s *State) addTransition(symbol string, target int) {
	k := s.symbolIndex(symbol)
	if k < 0 {
		s.Symbols = append(s.Symbols, symbol)
		s.Targets = append(s.Targets, []int{target})
		return
	}
	for _, t := range s.Targets[k] {
		if t == target {
			return
		}
	}
	s.Targets[k] = append(s.Targets[k], target)
}

// TargetsFor returns the targets reached from s by consuming symbol.
func (s *State) TargetsFor(symbol string) []int {
	if k := s.symbolIndex(symbol); k >= 0 {
		return s.Targets[k]
	}
	return nil
}

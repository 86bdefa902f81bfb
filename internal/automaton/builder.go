package automaton

import "strings"

// fragment is a partially built automaton identified by its entry and exit states.
type fragment struct {
	start  int
	accept int
}

// builder owns the state arena and id counter for a single Build call.
type builder struct {
	input  []rune
	states []State
}

// Build compiles pattern into an epsilon automaton.
// The pattern is expected to be stripped of anchors already (see TrimAnchors).
// Unsupported or malformed constructs are skipped rather than rejected.
func Build(pattern string) *Automaton {
	b := &builder{input: []rune(pattern)}
	frag := b.parse(0, len(b.input))

	return &Automaton{
		States: b.states,
		Start:  frag.start,
		Accept: frag.accept,
	}
}

// TrimAnchors strips a single leading '^' and a single unescaped trailing '$'.
func TrimAnchors(pattern string) string {
	pattern = strings.TrimPrefix(pattern, "^")
	if strings.HasSuffix(pattern, "$") && !escapedAt(pattern, len(pattern)-1) {
		pattern = pattern[:len(pattern)-1]
	}
	return pattern
}

// escapedAt reports whether the byte at pos is preceded by an odd number of backslashes.
func escapedAt(s string, pos int) bool {
	n := 0
	for i := pos - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// newState appends a fresh state to the arena and returns its id.
func (b *builder) newState() int {
	id := len(b.states)
	b.states = append(b.states, State{ID: id})
	return id
}

func (b *builder) addEpsilon(from int, to ...int) {
	b.states[from].Epsilon = append(b.states[from].Epsilon, to...)
}

// parse builds the fragment for input[start:end].
func (b *builder) parse(start, end int) fragment {
	if start >= end {
		return b.empty()
	}

	var fragments []fragment
	i := start

	for i < end {
		switch c := b.input[i]; {
		case c == '(':
			interiorEnd, next := b.groupEnd(i, end)
			group := b.parse(i+1, interiorEnd)
			var frag fragment
			frag, i = b.quantified(group, next, end)
			fragments = append(fragments, frag)

		case c == '[':
			next := b.classEnd(i, end)
			atom := b.atom(string(b.input[i:next]))
			var frag fragment
			frag, i = b.quantified(atom, next, end)
			fragments = append(fragments, frag)

		case c == '|':
			left := b.concat(fragments)
			right := b.parse(i+1, end)
			return b.alternate(left, right)

		case isQuantifier(c):
			// Nothing to repeat.
			i++

		default:
			next := i + 1
			if c == '\\' && next < end {
				next++
			}
			atom := b.atom(string(b.input[i:next]))
			var frag fragment
			frag, i = b.quantified(atom, next, end)
			fragments = append(fragments, frag)
		}
	}

	return b.concat(fragments)
}

// groupEnd finds the close paren matching the open paren at start.
// It returns the exclusive end of the group interior and the index just past
// the group. An unclosed group extends to end.
func (b *builder) groupEnd(start, end int) (interiorEnd, next int) {
	depth := 1
	j := start + 1
	for j < end && depth > 0 {
		switch b.input[j] {
		case '\\':
			j += 2
			continue
		case '(':
			depth++
		case ')':
			depth--
		}
		j++
	}
	if j > end {
		j = end
	}
	if depth > 0 {
		return j, j
	}
	return j - 1, j
}

// classEnd returns the index just past the bracket expression opened at start.
func (b *builder) classEnd(start, end int) int {
	j := start + 1
	for j < end && b.input[j] != ']' {
		if b.input[j] == '\\' {
			j++
		}
		j++
	}
	j++
	if j > end {
		j = end
	}
	return j
}

// quantified wraps frag with the quantifier at input[i], if any, and returns
// the index of the next unconsumed rune.
func (b *builder) quantified(frag fragment, i, end int) (fragment, int) {
	if i < end && isQuantifier(b.input[i]) {
		return b.quantify(frag, b.input[i]), i + 1
	}
	return frag, i
}

// atom builds start --symbol--> accept.
func (b *builder) atom(symbol string) fragment {
	s := b.newState()
	e := b.newState()
	b.states[s].addTransition(symbol, e)
	return fragment{start: s, accept: e}
}

// empty builds start --eps--> accept.
func (b *builder) empty() fragment {
	s := b.newState()
	e := b.newState()
	b.addEpsilon(s, e)
	return fragment{start: s, accept: e}
}

// concat chains fragments with epsilon edges from each accept to the next start.
func (b *builder) concat(fragments []fragment) fragment {
	if len(fragments) == 0 {
		return b.empty()
	}
	for k := 0; k < len(fragments)-1; k++ {
		b.addEpsilon(fragments[k].accept, fragments[k+1].start)
	}
	return fragment{
		start:  fragments[0].start,
		accept: fragments[len(fragments)-1].accept,
	}
}

// alternate joins left and right under a branching start and a shared accept.
func (b *builder) alternate(left, right fragment) fragment {
	s := b.newState()
	e := b.newState()
	b.addEpsilon(s, left.start, right.start)
	b.addEpsilon(left.accept, e)
	b.addEpsilon(right.accept, e)
	return fragment{start: s, accept: e}
}

// quantify applies *, + or ? to frag.
func (b *builder) quantify(frag fragment, q rune) fragment {
	s := b.newState()
	e := b.newState()

	switch q {
	case '*':
		b.addEpsilon(s, frag.start, e)
		b.addEpsilon(frag.accept, frag.start, e)
	case '+':
		b.addEpsilon(s, frag.start)
		b.addEpsilon(frag.accept, frag.start, e)
	case '?':
		b.addEpsilon(s, frag.start, e)
		b.addEpsilon(frag.accept, e)
	}

	return fragment{start: s, accept: e}
}

func isQuantifier(c rune) bool {
	return c == '*' || c == '+' || c == '?'
}

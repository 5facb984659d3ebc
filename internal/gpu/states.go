package gpu

// PendingStates tracks the states a command list moves textures into.
// Textures keep their committed state until the list is submitted, so a
// list that fails to close or submit leaves them untouched.
type PendingStates[T comparable] struct {
	states map[T]ResourceState
	order  []T
}

// State returns the state t is in at this point of the list, or committed
// when the list has not moved it.
func (p *PendingStates[T]) State(t T, committed ResourceState) ResourceState {
	if s, ok := p.states[t]; ok {
		return s
	}
	return committed
}

// Set records that t is in s from this point of the list on.
func (p *PendingStates[T]) Set(t T, s ResourceState) {
	if p.states == nil {
		p.states = make(map[T]ResourceState)
	}
	if _, ok := p.states[t]; !ok {
		p.order = append(p.order, t)
	}
	p.states[t] = s
}

// Commit calls apply with the final state of every texture the list moved,
// in the order they were first moved, then clears p.
func (p *PendingStates[T]) Commit(apply func(T, ResourceState)) {
	for _, t := range p.order {
		apply(t, p.states[t])
	}
	p.Reset()
}

// Reset drops every pending state.
func (p *PendingStates[T]) Reset() {
	p.states = nil
	p.order = nil
}

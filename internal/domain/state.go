package domain

// StateMachine describes a payment lifecycle: one initial state fanning out
// to disjoint terminal states. It has no cycles and no self-transitions.
type StateMachine struct {
	initial string
	next    map[string][]string
}

// NewStateMachine builds a machine whose initial state may move to any of terminals.
func NewStateMachine(initial string, terminals ...string) StateMachine {
	next := map[string][]string{initial: append([]string(nil), terminals...)}
	for _, t := range terminals {
		next[t] = nil
	}
	return StateMachine{initial: initial, next: next}
}

// LocalStates is the lifecycle of records settled by this service.
var LocalStates = NewStateMachine(StatusPending, StatusCompleted, StatusFailed)

// ProviderStates is the lifecycle reported by the upstream provider.
var ProviderStates = NewStateMachine(ProviderStatusPending, ProviderStatusConfirmed, ProviderStatusFailed, ProviderStatusExpired)

func (m StateMachine) Initial() string { return m.initial }

// Known reports whether s belongs to the machine.
func (m StateMachine) Known(s string) bool {
	_, ok := m.next[s]
	return ok
}

func (m StateMachine) IsTerminal(s string) bool {
	return m.Known(s) && len(m.next[s]) == 0
}

func (m StateMachine) CanTransition(from, to string) bool {
	for _, s := range m.next[from] {
		if s == to {
			return true
		}
	}
	return false
}

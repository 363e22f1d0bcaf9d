package alarm

import (
	"fmt"
	"strconv"
	"strings"
)

// InstanceState is the lifecycle state of an Instance, stored as an integer
// in alarm_instances.alarm_state.
type InstanceState int

const (
	StateSilent InstanceState = iota
	StateNotification
	StateSnooze
	StateFired
	StateMissed
	StateDismissed
	StatePredismissed
)

var stateNames = [...]string{
	StateSilent:       "SILENT",
	StateNotification: "NOTIFICATION",
	StateSnooze:       "SNOOZE",
	StateFired:        "FIRED",
	StateMissed:       "MISSED",
	StateDismissed:    "DISMISSED",
	StatePredismissed: "PREDISMISSED",
}

// transitions holds every declared state change. States without an entry
// (DISMISSED, PREDISMISSED) are terminal.
var transitions = map[InstanceState][]InstanceState{
	StateSilent:       {StateNotification},
	StateNotification: {StateDismissed, StateFired},
	StateSnooze:       {StateDismissed, StateFired},
	StateFired:        {StateDismissed, StateSnooze, StateMissed},
	StateMissed:       {StateDismissed},
}

// AllStates lists the states in numeric order.
func AllStates() []InstanceState {
	return []InstanceState{
		StateSilent, StateNotification, StateSnooze, StateFired,
		StateMissed, StateDismissed, StatePredismissed,
	}
}

func (s InstanceState) String() string {
	if s.Valid() {
		return stateNames[s]
	}
	return fmt.Sprintf("InstanceState(%d)", int(s))
}

// Valid reports whether s is one of the seven known states.
func (s InstanceState) Valid() bool {
	return s >= StateSilent && s <= StatePredismissed
}

// CanTransitionTo reports whether moving from s to next is a declared transition.
func (s InstanceState) CanTransitionTo(next InstanceState) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// CanPreemptivelyDismiss reports whether an instance in this state may be
// dismissed before it fires.
func (s InstanceState) CanPreemptivelyDismiss() bool {
	return s == StateSnooze || s == StateNotification
}

// IsTerminal reports whether no transition leaves s.
func (s InstanceState) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// ParseInstanceState accepts a state name (case-insensitive) or its number.
func ParseInstanceState(name string) (InstanceState, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range stateNames {
		if n == upper {
			return InstanceState(i), nil
		}
	}
	if n, err := strconv.Atoi(upper); err == nil && InstanceState(n).Valid() {
		return InstanceState(n), nil
	}
	return 0, fmt.Errorf("unknown instance state %q", name)
}

package alarm

import "fmt"

// AlarmWithInstance is one row of the joined alarm/instance view: a template
// and the instance that currently represents it, if any.
type AlarmWithInstance struct {
	Alarm    Alarm     `json:"alarm"`
	Instance *Instance `json:"instance,omitempty"`
}

// JoinedFromValues decodes a joined-view row. Alarm columns are unprefixed,
// instance columns carry InstancePrefix. A NULL instance _id means the alarm
// has no instance.
func JoinedFromValues(v Values) (AlarmWithInstance, error) {
	a, err := alarmFromPrefixed(v, "")
	if err != nil {
		return AlarmWithInstance{}, err
	}
	out := AlarmWithInstance{Alarm: a}
	if v[InstancePrefix+ColID] == nil {
		return out, nil
	}
	inst, err := instanceFromPrefixed(v, InstancePrefix)
	if err != nil {
		return AlarmWithInstance{}, fmt.Errorf("joined row for alarm %d: %w", a.ID, err)
	}
	out.Instance = &inst
	return out, nil
}

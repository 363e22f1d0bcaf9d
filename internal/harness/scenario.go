package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/deskclock/internal/alarm"
)

// Scenario is one lifecycle test: alarms to start from, steps to apply and
// checks on what happened.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start is the clock's initial time. Its location is the scheduling zone.
	Start time.Time `yaml:"start"`

	// SnoozeMinutes is the snooze length; 0 means the scheduler default.
	SnoozeMinutes int `yaml:"snooze_minutes,omitempty"`

	// Setup lists the alarms present before the flow runs.
	Setup []AlarmSetup `yaml:"setup,omitempty"`

	// Flow contains the steps to apply, in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the trace and the final database contents.
	Assertions []Assertion `yaml:"assertions"`
}

// AlarmSetup describes an alarm inserted before the flow.
type AlarmSetup struct {
	Time           string `yaml:"time"`           // "HH:MM"
	Days           string `yaml:"days,omitempty"` // as accepted by alarm.ParseWeekdays
	Label          string `yaml:"label,omitempty"`
	Enabled        bool   `yaml:"enabled,omitempty"`
	DeleteAfterUse bool   `yaml:"delete_after_use,omitempty"`
}

// alarm builds the unsaved alarm.
func (s AlarmSetup) alarm() (alarm.Alarm, error) {
	t, err := time.Parse("15:04", s.Time)
	if err != nil {
		return alarm.Alarm{}, fmt.Errorf("time %q: want HH:MM", s.Time)
	}
	days, err := alarm.ParseWeekdays(s.Days)
	if err != nil {
		return alarm.Alarm{}, err
	}
	a := alarm.New(t.Hour(), t.Minute())
	a.DaysOfWeek = days
	a.Label = s.Label
	a.Enabled = s.Enabled
	a.DeleteAfterUse = s.DeleteAfterUse
	return a, nil
}

// Step is one operation in the flow.
type Step struct {
	// Advance moves the clock forward before the step runs ("30m", "1h").
	Advance string `yaml:"advance,omitempty"`

	// Do is the operation: enable, disable, delete_alarm, set_state,
	// snooze or dismiss.
	Do string `yaml:"do"`

	// Alarm is the target of enable, disable and delete_alarm.
	Alarm int64 `yaml:"alarm,omitempty"`

	// Instance is the target of set_state, snooze and dismiss.
	Instance int64 `yaml:"instance,omitempty"`

	// State is the set_state target, by name or number.
	State string `yaml:"state,omitempty"`

	// Expect checks the step's result. Without it the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is a subset match on a step's result. Empty fields are not checked.
type Expect struct {
	Outcome string `yaml:"outcome,omitempty"`
	State   string `yaml:"state,omitempty"` // state of the resulting instance
	Time    string `yaml:"time,omitempty"`  // "2006-01-02 15:04" of the resulting instance
}

// Step operations.
const (
	DoEnable      = "enable"
	DoDisable     = "disable"
	DoDeleteAlarm = "delete_alarm"
	DoSetState    = "set_state"
	DoSnooze      = "snooze"
	DoDismiss     = "dismiss"
)

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Step and Outcome are used by step_outcome.
	Step    int    `yaml:"step,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`

	// URI and Op select changes for change_contains and change_count.
	URI string `yaml:"uri,omitempty"`
	Op  string `yaml:"op,omitempty"`

	// Count is the expected number of changes (change_count).
	Count int `yaml:"count,omitempty"`

	// URIs is the expected publication order (change_order).
	URIs []string `yaml:"uris,omitempty"`

	// Table, Where, Expect and Absent are used by final_state.
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
	Absent bool           `yaml:"absent,omitempty"`
}

// Assertion type constants.
const (
	AssertStepOutcome    = "step_outcome"
	AssertChangeContains = "change_contains"
	AssertChangeOrder    = "change_order"
	AssertChangeCount    = "change_count"
	AssertFinalState     = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields so "assertion:" vs "assertions:" typos fail.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Start.IsZero() {
		return fmt.Errorf("start is required")
	}
	if s.SnoozeMinutes < 0 {
		return fmt.Errorf("snooze_minutes must be non-negative")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, a := range s.Setup {
		if _, err := a.alarm(); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a, len(s.Flow)); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	if step.Advance != "" {
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return fmt.Errorf("advance: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("advance must not move the clock back")
		}
	}
	switch step.Do {
	case DoEnable, DoDisable, DoDeleteAlarm:
		if step.Alarm <= 0 {
			return fmt.Errorf("%s needs alarm", step.Do)
		}
	case DoSetState:
		if step.Instance <= 0 {
			return fmt.Errorf("set_state needs instance")
		}
		if _, err := alarm.ParseInstanceState(step.State); err != nil {
			return err
		}
	case DoSnooze, DoDismiss:
		if step.Instance <= 0 {
			return fmt.Errorf("%s needs instance", step.Do)
		}
	case "":
		return fmt.Errorf("do is required")
	default:
		return fmt.Errorf("unknown operation %q", step.Do)
	}
	if step.Expect != nil && step.Expect.State != "" {
		if _, err := alarm.ParseInstanceState(step.Expect.State); err != nil {
			return fmt.Errorf("expect: %w", err)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(a Assertion, steps int) error {
	switch a.Type {
	case AssertStepOutcome:
		if a.Step < 0 || a.Step >= steps {
			return fmt.Errorf("step %d out of range", a.Step)
		}
		if a.Outcome == "" {
			return fmt.Errorf("outcome is required for step_outcome")
		}
	case AssertChangeContains:
		if a.URI == "" {
			return fmt.Errorf("uri is required for change_contains")
		}
	case AssertChangeOrder:
		if len(a.URIs) == 0 {
			return fmt.Errorf("uris list is required for change_order")
		}
	case AssertChangeCount:
		if a.URI == "" {
			return fmt.Errorf("uri is required for change_count")
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for change_count")
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("table is required for final_state")
		}
		if !a.Absent && len(a.Expect) == 0 {
			return fmt.Errorf("expect is required for final_state")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

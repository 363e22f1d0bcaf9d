package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/deskclock/internal/alarm"
	"github.com/roach88/deskclock/internal/store"
)

// validIdentifier matches valid SQL identifiers (column names).
// Where keys are interpolated into SQL, so nothing else is allowed.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			switch event.Type {
			case EventStep:
				fmt.Fprintf(&buf, "  [%d] %s %d -> %s %s\n", event.Seq, event.Action, event.Target, event.Outcome, event.Instance)
			case EventChange:
				fmt.Fprintf(&buf, "  [%d]   %s %s\n", event.Seq, event.Op, event.URI)
			}
		}
	}
	return buf.String()
}

func (a Assertion) matchesChange(e TraceEvent) bool {
	return e.Type == EventChange && e.URI == a.URI && (a.Op == "" || e.Op == a.Op)
}

func describeChange(uri, op string) string {
	if op == "" {
		return uri
	}
	return op + " " + uri
}

// assertStepOutcome checks the outcome of one flow step.
func assertStepOutcome(result *Result, assertion Assertion) error {
	steps := result.steps()
	if assertion.Step >= len(steps) {
		return &AssertionError{
			Type:     AssertStepOutcome,
			Expected: fmt.Sprintf("step %d", assertion.Step),
			Actual:   fmt.Sprintf("%d steps ran", len(steps)),
			Trace:    result.Trace,
		}
	}
	if got := steps[assertion.Step].Outcome; got != assertion.Outcome {
		return &AssertionError{
			Type:     AssertStepOutcome,
			Expected: fmt.Sprintf("step %d outcome %s", assertion.Step, assertion.Outcome),
			Actual:   got,
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertChangeContains checks that a matching change was published.
func assertChangeContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if assertion.matchesChange(event) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertChangeContains,
		Expected: "change " + describeChange(assertion.URI, assertion.Op),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertChangeOrder checks that uris were first published in the given
// order. Other changes may come in between.
func assertChangeOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for _, event := range trace {
		if event.Type != EventChange {
			continue
		}
		if _, seen := positions[event.URI]; !seen {
			positions[event.URI] = event.Seq
		}
	}

	for _, uri := range assertion.URIs {
		if _, ok := positions[uri]; !ok {
			return &AssertionError{
				Type:     AssertChangeOrder,
				Expected: fmt.Sprintf("all uris present: %v", assertion.URIs),
				Actual:   fmt.Sprintf("missing uri: %s", uri),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.URIs); i++ {
		prev, curr := assertion.URIs[i-1], assertion.URIs[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertChangeOrder,
				Expected: fmt.Sprintf("uris in order: %v", assertion.URIs),
				Actual: fmt.Sprintf("%s (seq %d) should be before %s (seq %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertChangeCount checks the exact number of matching changes.
func assertChangeCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if assertion.matchesChange(event) {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertChangeCount,
			Expected: fmt.Sprintf("%d changes %s", assertion.Count, describeChange(assertion.URI, assertion.Op)),
			Actual:   fmt.Sprintf("%d changes", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks the rows of a table that match Where.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	sel, err := buildSelection(assertion.Where)
	if err != nil {
		return err
	}

	rows, err := st.QueryTable(ctx, assertion.Table, nil, sel)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	whereDesc := formatWhereClause(assertion.Where)
	if assertion.Absent {
		if len(rows) > 0 {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("no row in %s where %s", assertion.Table, whereDesc),
				Actual:   fmt.Sprintf("%d rows", len(rows)),
			}
		}
		return nil
	}

	switch len(rows) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, whereDesc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, whereDesc),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := rows[0]
	for _, key := range sortedKeys(assertion.Expect) {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns", key),
			}
		}
		if !stateValuesEqual(key, expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}
	return nil
}

// buildSelection turns where into a parameterized selection. Keys are
// sorted for determinism.
func buildSelection(where map[string]any) (store.Selection, error) {
	var sel store.Selection
	for _, key := range sortedKeys(where) {
		if !validIdentifier.MatchString(key) {
			return store.Selection{}, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		sel = sel.And(key+" = ?", toSQLValue(key, where[key]))
	}
	return sel, nil
}

// toSQLValue converts a YAML value to a query argument. State names are
// accepted for alarm_state.
func toSQLValue(key string, v any) any {
	if s, ok := v.(string); ok && key == alarm.ColAlarmState {
		if state, err := alarm.ParseInstanceState(s); err == nil {
			return int64(state)
		}
	}
	switch val := v.(type) {
	case string, int, int64, bool:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stateValuesEqual compares an expected YAML value with a column value.
// SQLite hands back int64 for integers and booleans, and string or []byte
// for text.
func stateValuesEqual(key string, expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}
	if b, ok := actual.([]byte); ok {
		actual = string(b)
	}

	switch exp := expected.(type) {
	case string:
		if key == alarm.ColAlarmState {
			if state, err := alarm.ParseInstanceState(exp); err == nil {
				n, ok := actual.(int64)
				return ok && n == int64(state)
			}
		}
		s, ok := actual.(string)
		return ok && exp == s
	case int:
		n, ok := actual.(int64)
		return ok && int64(exp) == n
	case int64:
		n, ok := actual.(int64)
		return ok && exp == n
	case bool:
		if b, ok := actual.(bool); ok {
			return exp == b
		}
		n, ok := actual.(int64)
		return ok && exp == (n != 0)
	}
	return reflect.DeepEqual(expected, actual)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(ctx context.Context, st *store.Store, result *Result, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertStepOutcome:
			err = assertStepOutcome(result, assertion)
		case AssertChangeContains:
			err = assertChangeContains(result.Trace, assertion)
		case AssertChangeOrder:
			err = assertChangeOrder(result.Trace, assertion)
		case AssertChangeCount:
			err = assertChangeCount(result.Trace, assertion)
		case AssertFinalState:
			if st == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires a database", i)
			} else {
				err = assertFinalState(ctx, st, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

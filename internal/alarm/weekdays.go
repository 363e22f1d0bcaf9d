package alarm

import (
	"fmt"
	"strings"
	"time"
)

// Weekdays is a 7-bit set of repeat days. Monday is bit 0, Sunday is bit 6.
type Weekdays int

const (
	Monday Weekdays = 1 << iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Common day sets.
const (
	NoDays   Weekdays = 0
	Workdays          = Monday | Tuesday | Wednesday | Thursday | Friday
	Weekend           = Saturday | Sunday
	Everyday          = Workdays | Weekend
)

var dayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// bit maps time.Weekday (Sunday = 0) onto the Monday-first bit layout.
func bit(d time.Weekday) Weekdays {
	return 1 << ((int(d) + 6) % 7)
}

// Has reports whether d is in the set.
func (w Weekdays) Has(d time.Weekday) bool {
	return w&bit(d) != 0
}

// Set returns w with d added.
func (w Weekdays) Set(d time.Weekday) Weekdays {
	return w | bit(d)
}

// Clear returns w with d removed.
func (w Weekdays) Clear(d time.Weekday) Weekdays {
	return w &^ bit(d)
}

// IsRepeating reports whether any day is set.
func (w Weekdays) IsRepeating() bool {
	return w&Everyday != 0
}

// DaysUntilNext returns how many days from t's weekday until the next day in
// the set, 0 if t's weekday is in the set and -1 if the set is empty.
func (w Weekdays) DaysUntilNext(t time.Time) int {
	if !w.IsRepeating() {
		return -1
	}
	d := t.Weekday()
	for i := 0; i < 7; i++ {
		if w.Has((d + time.Weekday(i)) % 7) {
			return i
		}
	}
	return -1
}

// String renders the set as "Mon,Wed,Fri"; an empty set renders as "".
func (w Weekdays) String() string {
	var parts []string
	for i, name := range dayNames {
		if w&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ",")
}

// ParseWeekdays parses a comma-separated list of day names ("mon,tue"),
// or one of the shorthands "workdays", "weekend", "everyday".
// An empty string is the empty set.
func ParseWeekdays(s string) (Weekdays, error) {
	var w Weekdays
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "":
			continue
		case "workdays", "weekdays":
			w |= Workdays
			continue
		case "weekend":
			w |= Weekend
			continue
		case "everyday", "daily":
			w |= Everyday
			continue
		}
		found := false
		for i, name := range dayNames {
			if strings.HasPrefix(part, strings.ToLower(name)) && len(part) >= 3 {
				w |= 1 << i
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown weekday %q", part)
		}
	}
	return w, nil
}

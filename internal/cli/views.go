package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/roach88/deskclock/internal/alarm"
)

// wallClock formats an instance's stored date and time as written.
func wallClock(i alarm.Instance) string {
	return i.AlarmTime(time.UTC).Format("Mon 2006-01-02 15:04")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func days(w alarm.Weekdays) string {
	if !w.IsRepeating() {
		return "once"
	}
	return w.String()
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

type alarmList []alarm.AlarmWithInstance

func (l alarmList) WriteText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "no alarms")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTIME\tDAYS\tENABLED\tLABEL\tNEXT\tSTATE")
	for _, row := range l {
		a := row.Alarm
		next, state := "-", "-"
		if row.Instance != nil {
			next, state = wallClock(*row.Instance), row.Instance.State.String()
		}
		fmt.Fprintf(tw, "%d\t%02d:%02d\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Hour, a.Minutes, days(a.DaysOfWeek), onOff(a.Enabled), a.Label, next, state)
	}
	return tw.Flush()
}

type instanceList []alarm.Instance

func (l instanceList) WriteText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "no instances")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tALARM\tTIME\tSTATE\tLABEL")
	for _, i := range l {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", i.ID, i.AlarmID, wallClock(i), i.State, i.Label)
	}
	return tw.Flush()
}

// alarmResult reports an alarm after a change, with the instance that was
// scheduled for it, if any.
type alarmResult struct {
	Action string          `json:"action"`
	Alarm  alarm.Alarm     `json:"alarm"`
	Next   *alarm.Instance `json:"next,omitempty"`
}

func (r alarmResult) WriteText(w io.Writer) error {
	a := r.Alarm
	fmt.Fprintf(w, "alarm %d %s: %02d:%02d %s", a.ID, r.Action, a.Hour, a.Minutes, days(a.DaysOfWeek))
	if r.Next != nil {
		fmt.Fprintf(w, ", next %s", wallClock(*r.Next))
	}
	_, err := fmt.Fprintln(w)
	return err
}

type instanceResult struct {
	Action   string         `json:"action"`
	Instance alarm.Instance `json:"instance"`
}

func (r instanceResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "instance %d %s: %s %s\n",
		r.Instance.ID, r.Action, r.Instance.State, wallClock(r.Instance))
	return err
}

type dismissResult struct {
	InstanceID    alarm.ID        `json:"instance_id"`
	Predismissed  bool            `json:"predismissed"`
	Next          *alarm.Instance `json:"next,omitempty"`
	AlarmDeleted  bool            `json:"alarm_deleted"`
	AlarmDisabled bool            `json:"alarm_disabled"`
}

func (r dismissResult) WriteText(w io.Writer) error {
	verb := "dismissed"
	if r.Predismissed {
		verb = "pre-dismissed"
	}
	fmt.Fprintf(w, "instance %d %s", r.InstanceID, verb)
	switch {
	case r.Next != nil:
		fmt.Fprintf(w, ", next %s", wallClock(*r.Next))
	case r.AlarmDeleted:
		fmt.Fprint(w, ", alarm deleted")
	case r.AlarmDisabled:
		fmt.Fprint(w, ", alarm disabled")
	}
	_, err := fmt.Fprintln(w)
	return err
}

type deleted struct {
	Kind  string   `json:"kind"`
	ID    alarm.ID `json:"id"`
	Count int64    `json:"count"`
}

func (d deleted) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "deleted %s %d\n", d.Kind, d.ID)
	return err
}

type dbInfo struct {
	Path      string `json:"path"`
	Version   int    `json:"version"`
	Alarms    int64  `json:"alarms"`
	Instances int64  `json:"instances"`
}

func (i dbInfo) WriteText(w io.Writer) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "path\t%s\n", i.Path)
	fmt.Fprintf(tw, "schema version\t%d\n", i.Version)
	fmt.Fprintf(tw, "alarms\t%d\n", i.Alarms)
	fmt.Fprintf(tw, "instances\t%d\n", i.Instances)
	return tw.Flush()
}

package provider

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/deskclock/internal/alarm"
)

// ErrUnknownURI is returned for a URI outside the table below, or for an
// operation the URI does not support.
var ErrUnknownURI = errors.New("unknown uri")

// Authority prefixes every canonical URI.
const Authority = "content://deskclock"

// Collection URIs.
const (
	AlarmsURI              = Authority + "/alarms"
	InstancesURI           = Authority + "/instances"
	AlarmsWithInstancesURI = Authority + "/alarms_with_instances"
)

// Match identifies which URI pattern matched.
type Match int

const (
	MatchAlarms Match = iota + 1
	MatchAlarmID
	MatchInstances
	MatchInstanceID
	MatchAlarmsWithInstances
)

func (m Match) String() string {
	switch m {
	case MatchAlarms:
		return "alarms"
	case MatchAlarmID:
		return "alarms/#"
	case MatchInstances:
		return "instances"
	case MatchInstanceID:
		return "instances/#"
	case MatchAlarmsWithInstances:
		return "alarms_with_instances"
	default:
		return fmt.Sprintf("Match(%d)", int(m))
	}
}

// Target is a parsed URI.
type Target struct {
	Match Match
	Table string   // empty for the joined view
	ID    alarm.ID // InvalidID for collections
}

// URI returns the canonical form of t.
func (t Target) URI() string {
	switch t.Match {
	case MatchAlarms:
		return AlarmsURI
	case MatchAlarmID:
		return ItemURI(AlarmsURI, t.ID)
	case MatchInstances:
		return InstancesURI
	case MatchInstanceID:
		return ItemURI(InstancesURI, t.ID)
	case MatchAlarmsWithInstances:
		return AlarmsWithInstancesURI
	default:
		return ""
	}
}

// isItem reports whether t addresses a single row.
func (t Target) isItem() bool {
	return t.Match == MatchAlarmID || t.Match == MatchInstanceID
}

// ItemURI appends id to a collection URI.
func ItemURI(collection string, id alarm.ID) string {
	return collection + "/" + strconv.FormatInt(int64(id), 10)
}

// Parse matches uri against the known patterns. Both the canonical
// content://deskclock/<path> form and a bare <path> are accepted.
func Parse(uri string) (Target, error) {
	path := uri
	switch {
	case strings.HasPrefix(path, Authority+"/"):
		path = strings.TrimPrefix(path, Authority+"/")
	case strings.Contains(path, "://"):
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownURI, uri)
	}
	path = strings.Trim(path, "/")

	segs := strings.Split(path, "/")
	switch {
	case len(segs) == 1 && segs[0] == "alarms":
		return Target{Match: MatchAlarms, Table: alarm.AlarmsTable, ID: alarm.InvalidID}, nil
	case len(segs) == 1 && segs[0] == "instances":
		return Target{Match: MatchInstances, Table: alarm.InstancesTable, ID: alarm.InvalidID}, nil
	case len(segs) == 1 && segs[0] == "alarms_with_instances":
		return Target{Match: MatchAlarmsWithInstances, ID: alarm.InvalidID}, nil
	case len(segs) == 2 && (segs[0] == "alarms" || segs[0] == "instances"):
		id, err := strconv.ParseInt(segs[1], 10, 64)
		if err != nil || id < 0 {
			return Target{}, fmt.Errorf("%w: bad id in %q", ErrUnknownURI, uri)
		}
		if segs[0] == "alarms" {
			return Target{Match: MatchAlarmID, Table: alarm.AlarmsTable, ID: alarm.ID(id)}, nil
		}
		return Target{Match: MatchInstanceID, Table: alarm.InstancesTable, ID: alarm.ID(id)}, nil
	default:
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownURI, uri)
	}
}

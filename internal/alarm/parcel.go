package alarm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ParcelVersion is the leading byte of every encoded record.
const ParcelVersion byte = 1

// Record kinds, written right after the version byte.
const (
	kindAlarm    byte = 'A'
	kindInstance byte = 'I'
)

// ErrBadParcel is returned for input that does not decode cleanly.
var ErrBadParcel = errors.New("bad parcel")

// alarmFields is the single field order used by both the writer and the
// reader for alarms.
func alarmFields(a *Alarm) []any {
	return []any{
		&a.ID,
		&a.Enabled,
		&a.Hour,
		&a.Minutes,
		&a.DaysOfWeek,
		&a.Vibrate,
		&a.Label,
		&a.Ringtone,
		&a.DeleteAfterUse,
		&a.IncreasingVolume,
		&a.Flash,
		&a.DismissOnRingtoneEnd,
		&a.SnoozeActions,
	}
}

func instanceFields(i *Instance) []any {
	return []any{
		&i.ID,
		&i.Year,
		&i.Month,
		&i.Day,
		&i.Hour,
		&i.Minutes,
		&i.Vibrate,
		&i.Label,
		&i.Ringtone,
		&i.AlarmID,
		&i.State,
		&i.IncreasingVolume,
		&i.Flash,
		&i.DismissOnRingtoneEnd,
		&i.SnoozeActions,
	}
}

// MarshalBinary encodes the alarm in the fixed cross-process layout.
func (a Alarm) MarshalBinary() ([]byte, error) {
	return encodeParcel(kindAlarm, alarmFields(&a))
}

// UnmarshalBinary decodes an alarm written by MarshalBinary.
func (a *Alarm) UnmarshalBinary(data []byte) error {
	var out Alarm
	if err := decodeParcel(data, kindAlarm, alarmFields(&out)); err != nil {
		return fmt.Errorf("unmarshal alarm: %w", err)
	}
	*a = out
	return nil
}

// MarshalBinary encodes the instance in the fixed cross-process layout.
func (i Instance) MarshalBinary() ([]byte, error) {
	return encodeParcel(kindInstance, instanceFields(&i))
}

// UnmarshalBinary decodes an instance written by MarshalBinary.
func (i *Instance) UnmarshalBinary(data []byte) error {
	var out Instance
	if err := decodeParcel(data, kindInstance, instanceFields(&out)); err != nil {
		return fmt.Errorf("unmarshal instance: %w", err)
	}
	*i = out
	return nil
}

func encodeParcel(kind byte, fields []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(ParcelVersion)
	buf.WriteByte(kind)
	for n, f := range fields {
		if err := writeField(&buf, f); err != nil {
			return nil, fmt.Errorf("field %d: %w", n, err)
		}
	}
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, f any) error {
	switch p := f.(type) {
	case *ID:
		return binary.Write(buf, binary.BigEndian, int64(*p))
	case *bool:
		var b byte
		if *p {
			b = 1
		}
		return buf.WriteByte(b)
	case *int:
		if *p > math.MaxInt32 || *p < math.MinInt32 {
			return fmt.Errorf("value %d overflows int32", *p)
		}
		return binary.Write(buf, binary.BigEndian, int32(*p))
	case *Weekdays:
		return binary.Write(buf, binary.BigEndian, int32(*p))
	case *InstanceState:
		return binary.Write(buf, binary.BigEndian, int32(*p))
	case *string:
		return writeString(buf, *p)
	case *Ringtone:
		if p.IsDefault() {
			return buf.WriteByte(0)
		}
		buf.WriteByte(1)
		return writeString(buf, string(*p))
	default:
		return fmt.Errorf("unsupported field type %T", f)
	}
}

func writeString(buf *bytes.Buffer, s string) error {
	if err := binary.Write(buf, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := buf.WriteString(s)
	return err
}

func decodeParcel(data []byte, kind byte, fields []any) error {
	r := bytes.NewReader(data)
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return fmt.Errorf("%w: short header", ErrBadParcel)
	}
	if header[0] != ParcelVersion {
		return fmt.Errorf("%w: version %d", ErrBadParcel, header[0])
	}
	if header[1] != kind {
		return fmt.Errorf("%w: kind %q, want %q", ErrBadParcel, header[1], kind)
	}
	for n, f := range fields {
		if err := readField(r, f); err != nil {
			return fmt.Errorf("%w: field %d: %v", ErrBadParcel, n, err)
		}
	}
	if r.Len() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrBadParcel, r.Len())
	}
	return nil
}

func readField(r *bytes.Reader, f any) error {
	switch p := f.(type) {
	case *ID:
		var v int64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return err
		}
		*p = ID(v)
	case *bool:
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if b > 1 {
			return fmt.Errorf("bool byte %d", b)
		}
		*p = b == 1
	case *int:
		v, err := readInt32(r)
		if err != nil {
			return err
		}
		*p = int(v)
	case *Weekdays:
		v, err := readInt32(r)
		if err != nil {
			return err
		}
		*p = Weekdays(v)
	case *InstanceState:
		v, err := readInt32(r)
		if err != nil {
			return err
		}
		*p = InstanceState(v)
	case *string:
		s, err := readString(r)
		if err != nil {
			return err
		}
		*p = s
	case *Ringtone:
		present, err := r.ReadByte()
		if err != nil {
			return err
		}
		switch present {
		case 0:
			*p = DefaultRingtone
		case 1:
			s, err := readString(r)
			if err != nil {
				return err
			}
			*p = Ringtone(s)
		default:
			return fmt.Errorf("ringtone presence byte %d", present)
		}
	default:
		return fmt.Errorf("unsupported field type %T", f)
	}
	return nil
}

func readInt32(r *bytes.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	if int64(n) > int64(r.Len()) {
		return "", fmt.Errorf("string length %d exceeds remaining %d bytes", n, r.Len())
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

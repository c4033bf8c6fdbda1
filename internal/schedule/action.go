package schedule

import (
	"encoding/json"
	"fmt"
	"time"
)

// Mode is the polling urgency, from most to least urgent.
type Mode int

const (
	Live Mode = iota
	Before5Min
	Before15Min
	Before30Min
	Before1Hour
	Before4Hour
	Before8Hour
	Before12Hour
	LongBefore
	After30Min
	LongAfter
)

var modeNames = [...]string{
	Live:         "LIVE",
	Before5Min:   "BEFORE_5_MIN",
	Before15Min:  "BEFORE_15_MIN",
	Before30Min:  "BEFORE_30_MIN",
	Before1Hour:  "BEFORE_1_HOUR",
	Before4Hour:  "BEFORE_4_HOUR",
	Before8Hour:  "BEFORE_8_HOUR",
	Before12Hour: "BEFORE_12_HOUR",
	LongBefore:   "LONG_BEFORE",
	After30Min:   "AFTER_30_MIN",
	LongAfter:    "LONG_AFTER",
}

// Modes lists every mode in urgency order.
func Modes() []Mode {
	out := make([]Mode, len(modeNames))
	for i := range modeNames {
		out[i] = Mode(i)
	}
	return out
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode resolves a mode from its name.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Action is the classification of a schedule at an instant.
type Action struct {
	Mode    Mode
	Timeout time.Duration
}

func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Mode      string `json:"mode"`
		TimeoutMS int64  `json:"timeout_ms"`
	}{a.Mode.String(), a.Timeout.Milliseconds()})
}

// TimeoutTable maps each mode to the wait before the next poll.
type TimeoutTable struct {
	Timeouts map[Mode]time.Duration
	Default  time.Duration
}

// DefaultTimeoutTable is used when no table file is configured.
func DefaultTimeoutTable() TimeoutTable {
	return TimeoutTable{
		Timeouts: map[Mode]time.Duration{
			Live:         10 * time.Second,
			Before5Min:   30 * time.Second,
			Before15Min:  time.Minute,
			Before30Min:  2 * time.Minute,
			Before1Hour:  5 * time.Minute,
			Before4Hour:  15 * time.Minute,
			Before8Hour:  30 * time.Minute,
			Before12Hour: time.Hour,
			LongBefore:   2 * time.Hour,
			After30Min:   time.Minute,
			LongAfter:    time.Hour,
		},
		Default: time.Minute,
	}
}

// Lookup returns the timeout of m, or the default when the table has none.
func (t TimeoutTable) Lookup(m Mode) time.Duration {
	if d, ok := t.Timeouts[m]; ok && d > 0 {
		return d
	}
	return t.Default
}

// MarshalJSON renders the table as mode name → milliseconds.
func (t TimeoutTable) MarshalJSON() ([]byte, error) {
	out := make(map[string]int64, len(t.Timeouts)+1)
	for m, d := range t.Timeouts {
		out[m.String()] = d.Milliseconds()
	}
	out["DEFAULT"] = t.Default.Milliseconds()
	return json.Marshal(out)
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (t *TimeoutTable) UnmarshalJSON(b []byte) error {
	var in map[string]int64
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	table := TimeoutTable{Timeouts: make(map[Mode]time.Duration, len(in))}
	for name, ms := range in {
		if ms <= 0 {
			return fmt.Errorf("timeout of %s must be positive", name)
		}
		d := time.Duration(ms) * time.Millisecond
		if name == "DEFAULT" {
			table.Default = d
			continue
		}
		m, err := ParseMode(name)
		if err != nil {
			return err
		}
		table.Timeouts[m] = d
	}
	if table.Default == 0 {
		table.Default = DefaultTimeoutTable().Default
	}
	*t = table
	return nil
}

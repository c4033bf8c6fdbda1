package schedule

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// LoadTimeoutTable reads a timeout table file (YAML, JSON or TOML). Keys are
// lower-case mode names plus "default"; values are Go durations ("90s") or
// plain milliseconds. Modes absent from the file keep their default timeout.
//
//	live: 10s
//	before_5_min: 30s
//	long_after: 1h
//	default: 60000
func LoadTimeoutTable(fs afero.Fs, path string) (TimeoutTable, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return TimeoutTable{}, fmt.Errorf("read timeout table %s: %w", path, err)
	}
	return tableFromViper(v)
}

// WatchTimeoutTable loads the table at path and calls onChange with every
// valid revision written afterwards. Invalid revisions are logged and ignored.
func WatchTimeoutTable(path string, logger *slog.Logger, onChange func(TimeoutTable)) (TimeoutTable, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return TimeoutTable{}, fmt.Errorf("read timeout table %s: %w", path, err)
	}
	table, err := tableFromViper(v)
	if err != nil {
		return TimeoutTable{}, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		next, err := tableFromViper(v)
		if err != nil {
			logger.Warn("Ignoring invalid timeout table", "file", e.Name, "error", err)
			return
		}
		logger.Info("Timeout table reloaded", "file", e.Name)
		onChange(next)
	})
	v.WatchConfig()
	return table, nil
}

func tableFromViper(v *viper.Viper) (TimeoutTable, error) {
	base := DefaultTimeoutTable()
	table := TimeoutTable{Timeouts: make(map[Mode]time.Duration, len(base.Timeouts)), Default: base.Default}
	for m, d := range base.Timeouts {
		table.Timeouts[m] = d
	}

	for _, key := range v.AllKeys() {
		d, err := parseTimeout(v.Get(key))
		if err != nil {
			return TimeoutTable{}, fmt.Errorf("timeout %s: %w", key, err)
		}
		if key == "default" {
			table.Default = d
			continue
		}
		m, err := ParseMode(strings.ToUpper(key))
		if err != nil {
			return TimeoutTable{}, err
		}
		table.Timeouts[m] = d
	}
	return table, nil
}

func parseTimeout(raw any) (time.Duration, error) {
	var d time.Duration
	switch val := raw.(type) {
	case int:
		d = time.Duration(val) * time.Millisecond
	case int64:
		d = time.Duration(val) * time.Millisecond
	case float64:
		d = time.Duration(val * float64(time.Millisecond))
	case string:
		if ms, err := strconv.Atoi(val); err == nil {
			d = time.Duration(ms) * time.Millisecond
			break
		}
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return 0, err
		}
		d = parsed
	default:
		return 0, fmt.Errorf("unsupported value %v", raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

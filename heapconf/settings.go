// Package heapconf is the allocator's configuration surface: a settings
// map with typed accessors, used for the large tier's hugepage threshold
// and for runtime toggles (boost, booster, per-thread-arenas, no-remap,
// report-leaks) that callers flip at Init time without recompiling. The
// server and debug keys are accepted but no tier reads them.
package heapconf

import "fmt"
import "strings"

// Settings is a map of configuration parameters.
type Settings map[string]interface{}

// Section creates a new settings object with parameters starting with
// `prefix`.
func (setts Settings) Section(prefix string) Settings {
	section := make(Settings)
	for key, value := range setts {
		if strings.HasPrefix(key, prefix) {
			section[key] = value
		}
	}
	return section
}

// Trim removes `prefix` from every key.
func (setts Settings) Trim(prefix string) Settings {
	trimmed := make(Settings)
	for key, value := range setts {
		trimmed[strings.TrimPrefix(key, prefix)] = value
	}
	return trimmed
}

// Filter keeps settings parameters whose key contains `subs`.
func (setts Settings) Filter(subs string) Settings {
	subsetts := make(Settings)
	for key, value := range setts {
		if strings.Contains(key, subs) {
			subsetts[key] = value
		}
	}
	return subsetts
}

// Mixin overrides `setts` with the key/value pairs from `settings`.
func (setts Settings) Mixin(settings ...interface{}) Settings {
	update := func(arg map[string]interface{}) {
		for key, value := range arg {
			setts[key] = value
		}
	}
	for _, arg := range settings {
		switch cnf := arg.(type) {
		case Settings:
			update(map[string]interface{}(cnf))
		case map[string]interface{}:
			update(cnf)
		}
	}
	return setts
}

// Bool returns the boolean value for key.
func (setts Settings) Bool(key string) bool {
	value, ok := setts[key]
	if !ok {
		panicerr("missing settings %q", key)
	}
	val, ok := value.(bool)
	if !ok {
		panicerr("settings %q not a bool: %T", key, value)
	}
	return val
}

// BoolOr returns the boolean value for key, or `deflt` if key is absent.
func (setts Settings) BoolOr(key string, deflt bool) bool {
	if _, ok := setts[key]; !ok {
		return deflt
	}
	return setts.Bool(key)
}

// Int64 returns the int64 value for key.
func (setts Settings) Int64(key string) int64 {
	value, ok := setts[key]
	if !ok {
		panicerr("missing settings %q", key)
	}
	return toint64(key, value)
}

// Int64Or returns the int64 value for key, or `deflt` if key is absent.
func (setts Settings) Int64Or(key string, deflt int64) int64 {
	if _, ok := setts[key]; !ok {
		return deflt
	}
	return setts.Int64(key)
}

// String returns the string value for key.
func (setts Settings) String(key string) string {
	value, ok := setts[key]
	if !ok {
		panicerr("missing settings %q", key)
	}
	val, ok := value.(string)
	if !ok {
		panicerr("settings %q not a string: %T", key, value)
	}
	return val
}

// StringOr returns the string value for key, or `deflt` if key is absent.
func (setts Settings) StringOr(key string, deflt string) string {
	if _, ok := setts[key]; !ok {
		return deflt
	}
	return setts.String(key)
}

func toint64(key string, value interface{}) int64 {
	switch val := value.(type) {
	case float64:
		return int64(val)
	case float32:
		return int64(val)
	case uint:
		return int64(val)
	case uint64:
		return int64(val)
	case uint32:
		return int64(val)
	case int:
		return int64(val)
	case int64:
		return val
	case int32:
		return int64(val)
	}
	panicerr("settings %v not a number: %T", key, value)
	return 0
}

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}

// Defaultsettings returns the allocator's default configuration: classic
// mimalloc-style sizing (tiny <= 128 bytes, small <= 2608 bytes, medium
// super-pools of 1.25MB), round-robin arena selection and no debug/leak
// instrumentation.
func Defaultsettings() Settings {
	return Settings{
		"boost":                     false,
		"booster":                   false,
		"server":                    false,
		"no-remap":                  false,
		"debug":                     false,
		"report-leaks":              false,
		"report-leaks.experimental": false,
		"per-thread-arenas":         false,
		"large.hugepage_threshold":  int64(4 * 1024 * 1024),
	}
}

package index

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
)

// Well-known configuration keys.
const (
	KeyDim        = "dim"
	KeyMetricType = "metric_type"
	KeyK          = "k"
	KeyRadius     = "radius"
)

// Config is a set of key/value settings passed to index operations.
//
// Values may come from Go code or from a JSON/YAML document, so the typed
// getters accept any numeric representation that converts without loss.
type Config map[string]any

// Has reports whether key is set.
func (c Config) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// Int returns the integer setting for key, or def when it is absent.
func (c Config) Int(key string, def int) (int, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		if n > math.MaxInt {
			return 0, &ConfigError{Key: key, Reason: "overflows int"}
		}
		return int(n), nil
	case float32:
		return floatToInt(key, float64(n))
	case float64:
		return floatToInt(key, n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("not an integer: %s", n)}
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("not an integer: %q", n)}
		}
		return i, nil
	default:
		return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

func floatToInt(key string, f float64) (int, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("not an integer: %v", f)}
	}
	return int(f), nil
}

// Float returns the floating point setting for key, or def when it is absent.
func (c Config) Float(key string, def float64) (float64, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("not a number: %s", n)}
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("not a number: %q", n)}
		}
		return f, nil
	default:
		return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

// String returns the string setting for key, or def when it is absent.
func (c Config) String(key string, def string) (string, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return def, nil
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return "", &ConfigError{Key: key, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

// Bool returns the boolean setting for key, or def when it is absent.
func (c Config) Bool(key string, def bool) (bool, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, &ConfigError{Key: key, Reason: fmt.Sprintf("not a boolean: %q", b)}
		}
		return parsed, nil
	default:
		return false, &ConfigError{Key: key, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

// Merge returns a new Config holding c overlaid with others, later values winning.
func (c Config) Merge(others ...Config) Config {
	out := c.Clone()
	for _, o := range others {
		maps.Copy(out, o)
	}
	return out
}

// Clone returns a shallow copy of c. A nil Config clones to an empty one.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	maps.Copy(out, c)
	return out
}

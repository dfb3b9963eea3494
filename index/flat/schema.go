package flat

import (
	"fmt"

	"github.com/hupe1980/vecmod/distance"
	"github.com/hupe1980/vecmod/index"
)

const (
	// DefaultK is the neighbor count used when k is not configured.
	DefaultK = 10
	// MaxK is the largest accepted neighbor count.
	MaxK = 1024
	// MaxDim is the largest accepted vector dimension.
	MaxDim = 32768
)

// settings is the parsed form of an index.Config.
type settings struct {
	dim       int
	metric    distance.Metric
	hasMetric bool
	k         int
	radius    float64
	hasRadius bool
}

func parseSettings(cfg index.Config) (settings, error) {
	var s settings
	var err error

	if s.dim, err = cfg.Int(index.KeyDim, 0); err != nil {
		return s, err
	}
	if s.dim < 0 || s.dim > MaxDim {
		return s, &index.ConfigError{Key: index.KeyDim, Reason: fmt.Sprintf("%d outside [0, %d]", s.dim, MaxDim)}
	}

	name, err := cfg.String(index.KeyMetricType, "")
	if err != nil {
		return s, err
	}
	s.metric = distance.L2
	if name != "" {
		m, err := distance.ParseMetric(name)
		if err != nil {
			return s, &index.ConfigError{Key: index.KeyMetricType, Reason: err.Error()}
		}
		s.metric, s.hasMetric = m, true
	}

	if s.k, err = cfg.Int(index.KeyK, DefaultK); err != nil {
		return s, err
	}
	if s.k < 1 || s.k > MaxK {
		return s, &index.ConfigError{Key: index.KeyK, Reason: fmt.Sprintf("%d outside [1, %d]", s.k, MaxK)}
	}

	if cfg.Has(index.KeyRadius) {
		if s.radius, err = cfg.Float(index.KeyRadius, 0); err != nil {
			return s, err
		}
		s.hasRadius = true
	}

	return s, nil
}

// Schema describes and validates the settings accepted by Flat.
// It satisfies the module configuration contract.
type Schema struct{}

// Defaults returns the default settings.
func (Schema) Defaults() index.Config {
	return index.Config{
		index.KeyDim:        0,
		index.KeyMetricType: distance.L2.String(),
		index.KeyK:          DefaultK,
	}
}

// Validate checks cfg without building anything.
func (Schema) Validate(cfg index.Config) error {
	_, err := parseSettings(cfg)
	return err
}

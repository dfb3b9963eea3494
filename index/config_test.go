package index

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Int(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int
		wantErr bool
	}{
		{"int", 7, 7, false},
		{"int64", int64(7), 7, false},
		{"float64 integral", float64(7), 7, false},
		{"float64 fractional", 7.5, 0, true},
		{"json number", json.Number("12"), 12, false},
		{"string", " 3 ", 3, false},
		{"bad string", "three", 0, true},
		{"bool", true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Config{KeyK: tt.value}.Int(KeyK, 10)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidArgument))
				var ce *ConfigError
				assert.True(t, errors.As(err, &ce))
				assert.Equal(t, KeyK, ce.Key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := Config{}.Int(KeyK, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, got)

	var nilCfg Config
	got, err = nilCfg.Int(KeyK, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, got)
}

func TestConfig_FloatStringBool(t *testing.T) {
	cfg := Config{
		KeyRadius:     2,
		KeyMetricType: "IP",
		"normalize":   "true",
	}

	r, err := cfg.Float(KeyRadius, 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, r)

	m, err := cfg.String(KeyMetricType, "L2")
	require.NoError(t, err)
	assert.Equal(t, "IP", m)

	b, err := cfg.Bool("normalize", false)
	require.NoError(t, err)
	assert.True(t, b)

	_, err = Config{KeyMetricType: 3}.String(KeyMetricType, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestConfig_MergeClone(t *testing.T) {
	base := Config{KeyK: 10, KeyMetricType: "L2"}
	merged := base.Merge(Config{KeyK: 5}, Config{KeyRadius: 1.5})

	assert.Equal(t, Config{KeyK: 5, KeyMetricType: "L2", KeyRadius: 1.5}, merged)
	assert.Equal(t, 10, base[KeyK])

	clone := base.Clone()
	clone[KeyK] = 1
	assert.Equal(t, 10, base[KeyK])
}

/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestByteSize_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ByteSize
		wantErr bool
	}{
		{"Valid Integer", `1024`, ByteSize(1024), false},
		{"Valid Human-Readable", `"10MB"`, ByteSize(10 * 1024 * 1024), false},
		{"Valid K8s Suffix", `"10Mi"`, ByteSize(10 * 1024 * 1024), false},
		{"Invalid Format", `"invalid"`, 0, true},
		{"Negative Value", `"-1024"`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b ByteSize
			err := json.Unmarshal([]byte(tt.input), &b)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.want, b)
			}
		})
	}
}

func TestByteSize_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ByteSize
		wantErr bool
	}{
		{"Valid Integer", "size: 2048", ByteSize(2048), false},
		{"Valid Human-Readable", "size: 20MB", ByteSize(20 * 1024 * 1024), false},
		{"Valid K8s Suffix", "size: 20Ki", ByteSize(20 * 1024), false},
		{"Invalid Format", "size: invalid", 0, true},
		{"Negative Value", "size: -1024", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg struct{ Size ByteSize }
			err := yaml.Unmarshal([]byte(tt.input), &cfg)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.want, cfg.Size)
			}
		})
	}
}

func TestByteSize_UnmarshalText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ByteSize
		wantErr bool
	}{
		{"Valid Integer", "4096", ByteSize(4096), false},
		{"Valid Human-Readable", "20MB", ByteSize(20 * 1024 * 1024), false},
		{"Invalid Format", "invalid", 0, true},
		{"Negative Value", "-1024", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b ByteSize
			err := b.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.want, b)
			}
		})
	}
}

func TestByteSize_String(t *testing.T) {
	tests := []struct {
		name  string
		input ByteSize
		want  string
	}{
		{"Bytes", ByteSize(512), "512B"},
		{"Kilobytes", ByteSize(1024), "1K"},
		{"Megabytes", ByteSize(2 * 1024 * 1024), "2M"},
		{"Gigabytes", ByteSize(3 * 1024 * 1024 * 1024), "3G"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.input.String())
		})
	}
}

func TestByteSize_MarshalJSON(t *testing.T) {
	b := ByteSize(256)
	data, err := json.Marshal(b)
	require.NoError(t, err)
	require.Equal(t, `"256B"`, string(data))
}

func TestByteSize_MarshalYAML(t *testing.T) {
	cfg := struct {
		Size ByteSize `yaml:"size"`
	}{Size: ByteSize(1024 * 1024)}
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	require.Equal(t, "size: 1M\n", string(data))
}

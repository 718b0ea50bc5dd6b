package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate values",
			args:    []string{"-a", ":50051", "-x", "ignored", "-d", "dsn"},
			allowed: []string{"-a", "-d"},
			want:    []string{"-a", ":50051", "-d", "dsn"},
		},
		{
			name:    "equals form",
			args:    []string{"--config=conf.json", "-fallback=local", "-z=1"},
			allowed: []string{"--config", "-fallback"},
			want:    []string{"--config=conf.json", "-fallback=local"},
		},
		{
			name:    "boolean flag followed by another flag",
			args:    []string{"-strict", "-a", ":1"},
			allowed: []string{"-strict", "-a"},
			want:    []string{"-strict", "-a", ":1"},
		},
		{
			name:    "nothing allowed",
			args:    []string{"-a", "1"},
			allowed: nil,
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	os.Args = []string{"bin", "-a", ":1", "-c", "short.json"}
	assert.Equal(t, "short.json", ConfigFileFlag())

	os.Args = []string{"bin", "-config=long.json"}
	assert.Equal(t, "long.json", ConfigFileFlag())

	os.Args = []string{"bin", "-d", "dsn"}
	assert.Equal(t, "", ConfigFileFlag())
}

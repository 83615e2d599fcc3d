package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("LENS_TEST_DIR", "/var/data")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain path untouched", "/tmp/lens.db", "/tmp/lens.db"},
		{"tilde alone", "~", home},
		{"tilde prefix", "~/share/lens.db", filepath.Join(home, "share", "lens.db")},
		{"env var", "$LENS_TEST_DIR/lens.db", "/var/data/lens.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

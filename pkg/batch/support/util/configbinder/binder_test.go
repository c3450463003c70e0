package configbinder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taskletProps struct {
	DBRef   string        `yaml:"dbRef"`
	Enabled bool          `yaml:"enabled"`
	Limit   int           `yaml:"limit"`
	Timeout time.Duration `yaml:"timeout"`
}

func TestBindProperties_WeakTyping(t *testing.T) {
	var p taskletProps
	err := BindProperties(map[string]string{
		"dbRef":   "workload",
		"enabled": "true",
		"limit":   "25",
		"timeout": "20s",
	}, &p)

	require.NoError(t, err)
	assert.Equal(t, taskletProps{DBRef: "workload", Enabled: true, Limit: 25, Timeout: 20 * time.Second}, p)
}

func TestBindProperties_EmptyKeepsDefaults(t *testing.T) {
	p := taskletProps{DBRef: "default"}
	require.NoError(t, BindProperties(nil, &p))
	assert.Equal(t, "default", p.DBRef)
}

func TestBindProperties_InvalidValue(t *testing.T) {
	var p taskletProps
	err := BindProperties(map[string]string{"limit": "many"}, &p)
	assert.ErrorContains(t, err, "taskletProps")
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationHash_OrderIndependent(t *testing.T) {
	first := ConfigurationHash("tpl-1", 1200, 1400, map[string]string{
		"glazing": "triple",
		"frame":   "oak",
		"handle":  "chrome",
	})
	second := ConfigurationHash("tpl-1", 1200, 1400, map[string]string{
		"handle":  "chrome",
		"frame":   "oak",
		"glazing": "triple",
	})

	assert.Equal(t, first, second)
}

func TestConfigurationHash_Deterministic(t *testing.T) {
	opts := map[string]string{"frame": "pvc"}

	assert.Equal(t,
		ConfigurationHash("tpl-1", 800, 600, opts),
		ConfigurationHash("tpl-1", 800, 600, opts),
	)
}

func TestConfigurationHash_DistinguishesConfigurations(t *testing.T) {
	base := ConfigurationHash("tpl-1", 1200, 1400, map[string]string{"frame": "oak"})

	assert.NotEqual(t, base, ConfigurationHash("tpl-2", 1200, 1400, map[string]string{"frame": "oak"}))
	assert.NotEqual(t, base, ConfigurationHash("tpl-1", 1300, 1400, map[string]string{"frame": "oak"}))
	assert.NotEqual(t, base, ConfigurationHash("tpl-1", 1200, 1400, map[string]string{"frame": "pvc"}))
	assert.NotEqual(t, base, ConfigurationHash("tpl-1", 1200, 1400, nil))
}

package config_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := config.Load(nil)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.NotEmpty(t, cfg.CORSOrigins)
}

func TestLoad_EnvThenFlags(t *testing.T) {
	// GIVEN: Environment settings
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_PATH", "env.db")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("TIME_ZONE", "Asia/Tokyo")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")

	// WHEN: Flags override some of them
	cfg, err := config.Load([]string{"-db", ":memory:", "-seed", "attendance-demo"})

	// THEN: Flags win, env fills the rest
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DatabasePath)
	assert.Equal(t, "attendance-demo", cfg.SeedScenario)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "Asia/Tokyo", cfg.Location().String())

	_, isJSON := cfg.Logger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"LOG_LEVEL":  "chatty",
		"LOG_FORMAT": "xml",
		"TIME_ZONE":  "Mars/Olympus",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := config.Load(nil)
			assert.Error(t, err)
		})
	}

	_, err := config.Load([]string{"-port", "0"})
	assert.Error(t, err)
}

package database

import (
	"testing"

	"reader_study_backend/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestMigrateOnStartup(t *testing.T) {
	cfg := &config.Config{}

	cfg.Server.Mode = "debug"
	assert.True(t, MigrateOnStartup(cfg))

	cfg.Server.Mode = "release"
	assert.False(t, MigrateOnStartup(cfg))

	cfg.ForceMigrate = true
	assert.True(t, MigrateOnStartup(cfg))
}

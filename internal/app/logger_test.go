package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campushq/lesson-engine/internal/config"
)

func TestNewLoggerBuildsForEachEnvironment(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		logger, err := NewLogger(&config.Config{Environment: env})
		require.NoError(t, err)
		require.NotNil(t, logger)
		logger.Sync()
	}
}

package observability_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"reviewhub/internal/adapters/observability"
)

func TestNewLogger_Level(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, observability.NewLogger("prod", "debug", "api").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, observability.NewLogger("dev", "loud", "api").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, observability.NewLogger("prod", "", "api").GetLevel())
}

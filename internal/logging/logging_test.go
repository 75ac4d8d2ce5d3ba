package logging

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"

	"github.com/Jay160412/jay-website/internal/config"
)

func TestSetup(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	Setup(config.LogConfig{Level: "debug"}, "test")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	assert.Same(t, &log.Logger, log.Ctx(context.Background()))

	Setup(config.LogConfig{Level: "loud", Pretty: true}, "test")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

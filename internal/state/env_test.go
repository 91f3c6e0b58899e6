package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/metcalfc/leaf/internal/config"
)

func TestContextWithEnv(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	require.NotNil(t, ctx)

	env := EnvFromContext(ctx)
	require.NotNil(t, env)
	assert.False(t, env.start.IsZero(), "environment start time not set")
	assert.NotNil(t, env.Log)
	assert.Same(t, env, EnvFromContext(ctx))
}

func TestEnvFromContextPanics(t *testing.T) {
	assert.Panics(t, func() { EnvFromContext(context.Background()) })
}

func TestLocalEnv_Uptime(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))
	time.Sleep(10 * time.Millisecond)
	assert.GreaterOrEqual(t, env.Uptime(), 10*time.Millisecond)
}

func TestLocalEnv_RedirectStdLog(t *testing.T) {
	env := &LocalEnv{
		Log: zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1))),
	}
	env.RedirectStdLog()
	assert.NotNil(t, env.restoreStdLog)
	env.RestoreStdLog()

	// nothing to restore
	(&LocalEnv{}).RestoreStdLog()
}

func TestLocalEnv_Positions(t *testing.T) {
	env := &LocalEnv{}
	store, err := env.Positions()
	require.NoError(t, err)
	assert.Nil(t, store, "no configuration, no store")

	cfg, err := config.LoadConfiguration("")
	require.NoError(t, err)
	cfg.State.Directory = t.TempDir()
	env.Cfg = cfg

	store, err = env.Positions()
	require.NoError(t, err)
	require.NotNil(t, store)

	cfg.State.RememberPosition = false
	store, err = env.Positions()
	require.NoError(t, err)
	assert.Nil(t, store)
}

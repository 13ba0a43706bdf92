package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "pawclause", rootCmd.Use)
}

func TestRootCmd_HasVerboseFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, flag, "verbose flag should exist")
	assert.Equal(t, "v", flag.Shorthand)
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{
		"index", "ask", "compare", "recommend", "stats", "companies",
		"feedback", "watch", "mcp", "settings", "version",
	} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestLoadEngine_NotConfigured(t *testing.T) {
	SetServices(Services{})

	_, err := loadEngine(context.Background())

	assert.EqualError(t, err, "engine not configured")
}

func TestLoadEngine_BuildsOnce(t *testing.T) {
	env := setupTestServices(t)

	first, err := loadEngine(context.Background())
	require.NoError(t, err)
	second, err := loadEngine(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, env.engines)
}

func TestLoadEngine_FactoryError(t *testing.T) {
	SetServices(Services{Engine: func(_ context.Context) (*Engine, error) {
		return nil, domain.ErrConfiguration
	}})
	t.Cleanup(func() { SetServices(Services{}) })

	_, err := loadEngine(context.Background())

	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestLoadIndexedEngine_BuildsOnlyWhenEmpty(t *testing.T) {
	env := setupTestServices(t)
	env.index.failing = map[string]string{"B": "no documents to index"}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ask", "수술비 보장되나요?"})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"ask", "입원비는?"})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, 1, env.index.buildAlls)
	assert.Contains(t, buf.String(), "skipped B: no documents to index")
}

func TestLoadIndexedEngine_NothingIndexed(t *testing.T) {
	env := setupTestServices(t)
	env.index.failing = map[string]string{"A": "missing", "B": "missing"}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ask", "수술비?"})

	err := rootCmd.Execute()

	assert.True(t, errors.Is(err, domain.ErrNoIndexAvailable))
}

func TestShutdown(t *testing.T) {
	env := setupTestServices(t)
	assert.NoError(t, Shutdown(), "no engine built yet")
	assert.Zero(t, env.closed)

	_, err := loadEngine(context.Background())
	require.NoError(t, err)

	assert.NoError(t, Shutdown())
	assert.Equal(t, 1, env.closed)
}

func TestSetVersion_IgnoresEmpty(t *testing.T) {
	original := version
	defer func() { version = original }()

	SetVersion("1.2.3")
	SetVersion("")

	assert.Equal(t, "1.2.3", version)
}

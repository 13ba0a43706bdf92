package cli

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompaniesCmd_ShowsFileStatus(t *testing.T) {
	env := setupTestServices(t)
	dir := t.TempDir()
	present := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(present, []byte("text\n약관\n"), 0600))
	require.NoError(t, env.settings.SetCompany("A", present))
	require.NoError(t, env.settings.SetCompany("B", filepath.Join(dir, "missing.csv")))

	out, err := execute(t, "companies")

	require.NoError(t, err)
	assert.Regexp(t, `ok\s+A\n\s+`+regexp.QuoteMeta(present), out)
	assert.Regexp(t, `missing\s+B`, out)
}

func TestCompaniesCmd_NotConfigured(t *testing.T) {
	setupTestServices(t)
	SetServices(Services{})

	_, err := execute(t, "companies")

	assert.EqualError(t, err, "settings service not configured")
}

func TestNewWatcher_WatchesConfiguredCompanies(t *testing.T) {
	env := setupTestServices(t)
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	settings, err := env.settings.Get()
	require.NoError(t, err)
	for _, name := range settings.CompanyNames() {
		require.NoError(t, env.settings.RemoveCompany(name))
	}
	require.NoError(t, env.settings.SetCompany("A", filepath.Join(dir, "a.csv")))
	require.NoError(t, env.settings.SetCompany("C", filepath.Join(sub, "c.pdf")))
	env.index.sources = map[string]string{
		"A": filepath.Join(dir, "a.csv"),
		"C": filepath.Join(sub, "c.pdf"),
	}
	e := &Engine{Index: env.index, Query: env.query}

	w := newWatcher(e)

	assert.Equal(t, []string{dir, sub}, w.Dirs(), "C is watched although it was never built")
}

func TestWatchCmd_HasDebounceFlag(t *testing.T) {
	flag := watchCmd.Flags().Lookup("debounce")
	require.NotNil(t, flag)
	assert.Equal(t, (500 * time.Millisecond).String(), flag.DefValue)
}

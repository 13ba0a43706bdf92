package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

func TestIndexCmd_Use(t *testing.T) {
	assert.Equal(t, "index", indexCmd.Use)
}

func TestIndexCmd_BuildsAll(t *testing.T) {
	env := setupTestServices(t)
	env.index.failing = map[string]string{"B": "load B: file not found"}

	out, err := execute(t, "index")

	require.NoError(t, err)
	assert.Equal(t, 1, env.index.buildAlls)
	assert.Contains(t, out, "ok  A: 3 records, 3 documents, 4 chunks indexed")
	assert.Contains(t, out, "skipped  B")
	assert.Contains(t, out, "load B: file not found")
	assert.Contains(t, out, "Indexed 1 of 2 insurers")
}

func TestIndexCmd_NothingIndexed(t *testing.T) {
	env := setupTestServices(t)
	env.index.failing = map[string]string{"A": "x", "B": "y"}

	_, err := execute(t, "index")

	assert.ErrorIs(t, err, domain.ErrNoIndexAvailable)
}

func TestIndexCmd_SingleCompany(t *testing.T) {
	env := setupTestServices(t)

	out, err := execute(t, "index", "--company", "B")

	require.NoError(t, err)
	assert.Zero(t, env.index.buildAlls)
	assert.Equal(t, []string{"B"}, env.index.rebuilt)
	assert.Contains(t, out, "B: 2 records, 2 documents, 2 chunks indexed")
}

func TestIndexCmd_UnknownCompany(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "index", "--company", "Z")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexCmd_JSON(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "index", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"company": "A"`)
	assert.Contains(t, out, `"indexed": 4`)
}

package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask [question]", askCmd.Use)
}

func TestAskCmd_Short(t *testing.T) {
	assert.Equal(t, "Ask a question about pet-insurance policies", askCmd.Short)
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "ask")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestAskCmd_HasCompanyFlag(t *testing.T) {
	flag := askCmd.Flags().Lookup("company")
	require.NotNil(t, flag, "company flag should exist")
	assert.Equal(t, "c", flag.Shorthand)
}

func TestAskCmd_PrintsAnswerAndSources(t *testing.T) {
	env := setupTestServices(t)

	out, err := execute(t, "ask", "예방접종", "비용", "보장되나요?")

	require.NoError(t, err)
	assert.Contains(t, out, "답변: 예방접종 비용 보장되나요?")
	assert.Contains(t, out, "Answered by: A")
	assert.Contains(t, out, "[1] A 약관 3페이지 - 내용: 예방접종 비용...")
	assert.Contains(t, out, "Time: 0.50s")
	assert.NotContains(t, out, "Summary:")
	assert.Equal(t, [][]string{nil}, env.query.processed)
}

func TestAskCmd_CompanyFlag(t *testing.T) {
	env := setupTestServices(t)

	_, err := execute(t, "ask", "-c", "A", "--company", "B", "수술비?")

	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "B"}}, env.query.processed)
}

func TestAskCmd_Summary(t *testing.T) {
	env := setupTestServices(t)

	out, err := execute(t, "ask", "--summary", "수술비?")

	require.NoError(t, err)
	assert.Equal(t, 1, env.query.summaries)
	assert.Contains(t, out, "Summary:")
	assert.Contains(t, out, "핵심 요약")
}

func TestAskCmd_SummarySkippedForRefusal(t *testing.T) {
	env := setupTestServices(t)
	env.query.status = domain.AnswerStatusRefusedOutOfScope

	out, err := execute(t, "ask", "--summary", "환불?")

	require.NoError(t, err)
	assert.Zero(t, env.query.summaries)
	assert.Contains(t, out, "Question refused")
}

func TestAskCmd_JSON(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "ask", "--json", "수술비?")

	require.NoError(t, err)
	var rec domain.AnswerRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "수술비?", rec.Question)
	assert.Equal(t, domain.AnswerStatusSuccess, rec.Status)
	require.Len(t, rec.Sources, 1)
	assert.Equal(t, "A", rec.Sources[0].(domain.StructuredSource).Company)
}

func TestCompareCmd_DefaultsToIndexedCompanies(t *testing.T) {
	env := setupTestServices(t)

	out, err := execute(t, "compare", "수술비?")

	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A"}, {"B"}}, env.query.processed)
	assert.Contains(t, out, "== A ==")
	assert.Contains(t, out, "== B ==")
	assert.Less(t, bytes.Index([]byte(out), []byte("== A ==")), bytes.Index([]byte(out), []byte("== B ==")))
}

func TestCompareCmd_CompanyFlag(t *testing.T) {
	env := setupTestServices(t)

	_, err := execute(t, "compare", "-c", "B", "수술비?")

	require.NoError(t, err)
	assert.Equal(t, [][]string{{"B"}}, env.query.processed)
}

func TestRecommendCmd(t *testing.T) {
	env := setupTestServices(t)

	out, err := execute(t, "recommend", "--top", "2", "수술비?", "  ", "입원비?")

	require.NoError(t, err)
	assert.Equal(t, 2, env.query.topN)
	require.Len(t, env.query.recommend, 4)
	assert.Equal(t, "수술비?", env.query.recommend[0].Question)
	assert.Equal(t, "B", env.query.recommend[3].AnsweredCompanies[0])
	assert.Contains(t, out, "Recommendation")
	assert.Contains(t, out, "1위: A")
}

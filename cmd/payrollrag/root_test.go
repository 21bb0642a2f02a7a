package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payrollrag/internal/dataset"
	"payrollrag/internal/domain"
)

// setupTestConfig writes a TF-IDF, cache-less config next to a copy of the
// fixture dataset and returns both paths.
func setupTestConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	raw, err := os.ReadFile(filepath.Join("testdata", "payroll.csv"))
	require.NoError(t, err)
	data := filepath.Join(dir, "payroll.csv")
	require.NoError(t, os.WriteFile(data, raw, 0o644))

	conf := "dataset:\n  path: " + data + "\nembedder:\n  type: tfidf\ncache:\n  type: none\nlog:\n  level: error\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o644))
	return path, data
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		datasetPath = ""
		searchLimit, searchJSON = 0, false
		filterName, filterCompetency, filterEmployeeID, filterJSON = "", "", "", false
		statsJSON, askJSON = false, false
		projectBase, projectOut = 0, ""
	}()
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	want := []string{"index", "search", "filter", "stats", "ask", "project", "serve", "tui"}
	var got []string
	for _, c := range rootCmd.Commands() {
		got = append(got, c.Name())
	}
	for _, name := range want {
		assert.Contains(t, got, name)
	}
	for _, flag := range []string{"config", "dataset", "verbose"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestIndexCmd(t *testing.T) {
	conf, _ := setupTestConfig(t)

	out, err := run(t, "--config", conf, "index")

	require.NoError(t, err)
	assert.Contains(t, out, "Records:   12")
	assert.Contains(t, out, "Embedder:  tfidf")
	assert.Contains(t, out, "Cache hit: false")
}

func TestSearchCmd(t *testing.T) {
	conf, _ := setupTestConfig(t)

	out, err := run(t, "--config", conf, "search", "-n", "1", "salário líquido da Ana em março")

	require.NoError(t, err)
	assert.Contains(t, out, "[1] chunk_2 - Ana Souza 2025-03")
	assert.Contains(t, out, "Pagamento Líquido: R$ 3.500,00")
	assert.NotContains(t, out, "[2]")
}

func TestSearchCmd_JSONAndRejected(t *testing.T) {
	conf, _ := setupTestConfig(t)

	out, err := run(t, "--config", conf, "search", "--json", "bônus do Bruno")
	require.NoError(t, err)
	var resp struct {
		Status  string `json:"status"`
		Results []any  `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Results, 3)

	_, err = run(t, "--config", conf, "search", "<script>alert(1)</script>")
	assert.ErrorContains(t, err, "rejected")
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	conf, _ := setupTestConfig(t)
	_, err := run(t, "--config", conf, "search")
	assert.ErrorContains(t, err, "accepts 1 arg(s)")
}

func TestFilterCmd(t *testing.T) {
	conf, _ := setupTestConfig(t)

	out, err := run(t, "--config", conf, "filter", "--competency", "2025-05")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana Souza")
	assert.Contains(t, out, "Bruno Lima")
	assert.Contains(t, out, "2 record(s)")

	out, err = run(t, "--config", conf, "filter", "--json", "--name", "ana", "--max", "3100")
	require.NoError(t, err)
	var records []domain.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, 3000.0, records[0].NetPay)
	assert.Equal(t, 3100.0, records[1].NetPay)
}

func TestStatsCmd(t *testing.T) {
	conf, _ := setupTestConfig(t)

	out, err := run(t, "--config", conf, "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "• Total de Registros: 12")
	assert.Contains(t, out, "• Funcionários Únicos: 2")
}

func TestAskCmd(t *testing.T) {
	conf, _ := setupTestConfig(t)

	out, err := run(t, "--config", conf, "ask", "Qual", "o", "salário", "líquido", "da", "Ana", "em", "março?")

	require.NoError(t, err)
	assert.Contains(t, out, "**Ana Souza** (ID: E001) - Competência: 2025-03")
	assert.Contains(t, out, "_Fonte: linhas 4")
}

func TestProjectCmd(t *testing.T) {
	conf, data := setupTestConfig(t)
	target := filepath.Join(filepath.Dir(data), "projected.csv")

	out, err := run(t, "--config", conf, "project", "-o", target, "reajuste os salários de 2026 em 10%")
	require.NoError(t, err)
	assert.Contains(t, out, "Projected 12 record(s) into 2026")

	ds, err := dataset.Load(target)
	require.NoError(t, err)
	require.Len(t, ds.Records, 24)
	p := ds.Records[14]
	assert.Equal(t, "2026-03", p.Competency)
	assert.InDelta(t, 3300.0, p.BaseSalary, 0.001)

	// the source dataset is untouched
	orig, err := dataset.Load(data)
	require.NoError(t, err)
	assert.Len(t, orig.Records, 12)

	_, err = run(t, "--config", conf, "project", "-o", target, "reajuste em 10%")
	assert.Error(t, err)
}

func TestDatasetFlagOverridesConfig(t *testing.T) {
	conf, _ := setupTestConfig(t)

	_, err := run(t, "--config", conf, "--dataset", filepath.Join(t.TempDir(), "missing.csv"), "stats")

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "missing.csv"), err.Error())
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder:\n  type: word2vec\n"), 0o644))

	_, err := run(t, "--config", path, "stats")

	assert.ErrorContains(t, err, "unknown embedder")
}

func TestEmployeeAliases(t *testing.T) {
	assert.Nil(t, employeeAliases(nil))
}

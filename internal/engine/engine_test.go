package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payrollrag/internal/cache"
	"payrollrag/internal/domain"
	"payrollrag/internal/embedding/embeddingtest"
)

func copyFixture(t *testing.T) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", "payroll.csv"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "payroll.csv")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func newEngine(t *testing.T, path string, store cache.Store) (*Engine, *embeddingtest.Counting) {
	t.Helper()
	emb := embeddingtest.NewCounting("")
	e, err := New(context.Background(), Options{DatasetPath: path, Embedder: emb, Store: store})
	require.NoError(t, err)
	return e, emb
}

func TestSearch_AnaSouzaMarch(t *testing.T) {
	e, _ := newEngine(t, copyFixture(t), nil)

	resp := e.Search(context.Background(), "salário líquido da Ana em março", 3)

	require.Equal(t, domain.StatusOK, resp.Status)
	require.NotEmpty(t, resp.Results)
	top := resp.Results[0].Chunk
	assert.Equal(t, "Ana Souza", top.Record.Name)
	assert.Equal(t, "2025-03", top.Record.Competency)
	assert.Contains(t, top.Text, "R$ 3.500,00")
	assert.Len(t, resp.Results, 3)
	for i := 1; i < len(resp.Results); i++ {
		assert.GreaterOrEqual(t, resp.Results[i-1].Score, resp.Results[i].Score)
	}
}

func TestSearch_EmptyQueryDoesNotEmbed(t *testing.T) {
	e, emb := newEngine(t, copyFixture(t), nil)

	for _, q := range []string{"", "   ", "\t\n"} {
		resp := e.Search(context.Background(), q, 3)
		assert.Equal(t, domain.StatusEmptyQuery, resp.Status)
		assert.Empty(t, resp.Results)
	}
	assert.Zero(t, emb.Queries())
}

func TestSearch_Rejected(t *testing.T) {
	e, emb := newEngine(t, copyFixture(t), nil)

	resp := e.Search(context.Background(), "Ana; DROP TABLE payroll", 3)

	assert.Equal(t, domain.StatusRejected, resp.Status)
	assert.Empty(t, resp.Results)
	assert.Zero(t, emb.Queries())
}

func TestSearch_DegradedWhenEmbedderFails(t *testing.T) {
	e, emb := newEngine(t, copyFixture(t), nil)
	emb.Fail()

	resp := e.Search(context.Background(), "salário da Ana", 3)

	assert.True(t, resp.Degraded())
	assert.Empty(t, resp.Results)
	assert.True(t, errors.Is(resp.Err, domain.ErrEmbeddingModel))
}

func TestSearch_DefaultTopK(t *testing.T) {
	e, _ := newEngine(t, copyFixture(t), nil)

	assert.Len(t, e.Search(context.Background(), "pagamento do Bruno", 0).Results, 3)
	assert.Len(t, e.Search(context.Background(), "pagamento do Bruno", 50).Results, 12)
}

func TestFilterAndStatistics(t *testing.T) {
	e, _ := newEngine(t, copyFixture(t), nil)

	got := e.Filter(domain.Criteria{Competency: "2025-03"})
	require.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, "2025-03", r.Competency)
	}

	st := e.Statistics()
	assert.Equal(t, 12, st.TotalRecords)
	assert.Equal(t, 2, st.UniqueEmployees)
	assert.InDelta(t, 47900.0/12, st.AvgNetPay, 1e-9)
}

func TestNew_Failures(t *testing.T) {
	emb := embeddingtest.NewCounting("")

	_, err := New(context.Background(), Options{DatasetPath: filepath.Join(t.TempDir(), "none.csv"), Embedder: emb})
	assert.True(t, errors.Is(err, domain.ErrDataLoad))

	bad := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("employee_id,name\nE001,Ana\n"), 0o644))
	_, err = New(context.Background(), Options{DatasetPath: bad, Embedder: emb})
	assert.True(t, errors.Is(err, domain.ErrSchema))

	failing := embeddingtest.NewCounting("")
	failing.Fail()
	_, err = New(context.Background(), Options{DatasetPath: copyFixture(t), Embedder: failing})
	assert.True(t, errors.Is(err, domain.ErrEmbeddingModel))

	_, err = New(context.Background(), Options{DatasetPath: copyFixture(t)})
	assert.Error(t, err)
}

func TestNew_SecondStartHitsCache(t *testing.T) {
	path := copyFixture(t)
	store, err := cache.NewFileStore(t.TempDir())
	require.NoError(t, err)

	first, emb1 := newEngine(t, path, store)
	second, emb2 := newEngine(t, path, store)

	assert.False(t, first.Info().CacheHit)
	assert.True(t, second.Info().CacheHit)
	assert.Equal(t, int64(12), emb1.Encoded())
	assert.Zero(t, emb2.Encoded())
	assert.Equal(t,
		first.Search(context.Background(), "bônus do Bruno em maio", 3).Results,
		second.Search(context.Background(), "bônus do Bruno em maio", 3).Results)
}

func TestReload(t *testing.T) {
	path := copyFixture(t)
	e, _ := newEngine(t, path, nil)
	before := e.Info()

	appendRow(t, path, "E003,Carla Dias,2025-06,2500.00,0.00,300.00,0.00,275.00,0.00,0.00,2525.00,2025-06-30\n")
	require.NoError(t, e.Reload(context.Background()))

	after := e.Info()
	assert.Equal(t, 13, after.Records)
	assert.NotEqual(t, before.Hash, after.Hash)
	resp := e.Search(context.Background(), "salário da Carla", 1)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Carla Dias", resp.Results[0].Chunk.Record.Name)
}

func TestReload_FailureKeepsSnapshot(t *testing.T) {
	path := copyFixture(t)
	e, _ := newEngine(t, path, nil)
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	err := e.Reload(context.Background())

	assert.Error(t, err)
	assert.Equal(t, 12, e.Info().Records)
	assert.Equal(t, domain.StatusOK, e.Search(context.Background(), "salário da Ana", 3).Status)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := copyFixture(t)
	emb := embeddingtest.NewCounting("")
	e, err := New(context.Background(), Options{DatasetPath: path, Embedder: emb, WatchDebounce: 50 * time.Millisecond})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	appendRow(t, path, "E003,Carla Dias,2025-06,2500.00,0.00,300.00,0.00,275.00,0.00,0.00,2525.00,2025-06-30\n")

	assert.Eventually(t, func() bool { return e.Info().Records == 13 }, 5*time.Second, 20*time.Millisecond)
}

func appendRow(t *testing.T, path, row string) {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimRight(string(raw), "\n")+"\n"+row), 0o644))
}

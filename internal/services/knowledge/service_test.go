package knowledge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"wyse/internal/clients/mindsdb"
	"wyse/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine answers SHOW statements from a set of existing names and
// records every statement it receives.
type fakeEngine struct {
	mu       sync.Mutex
	existing map[string]bool
	answers  map[string]*mindsdb.Result
	sql      []string
	// failOn makes any statement containing it fail.
	failOn string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{existing: map[string]bool{}, answers: map[string]*mindsdb.Result{}}
}

func (f *fakeEngine) EnsureConnected(context.Context) error { return nil }

func (f *fakeEngine) Query(_ context.Context, sql string) (*mindsdb.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sql = append(f.sql, sql)
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return nil, errors.New("engine rejected statement")
	}

	if strings.HasPrefix(sql, "SHOW ") {
		for name := range f.existing {
			if strings.Contains(sql, "'"+name+"'") {
				return &mindsdb.Result{Type: "table", ColumnNames: []string{"name"}, Data: [][]interface{}{{name}}}, nil
			}
		}
		return &mindsdb.Result{Type: "table"}, nil
	}
	for _, prefix := range []string{"CREATE KNOWLEDGE_BASE ", "CREATE MODEL ", "CREATE AGENT ", "CREATE JOB "} {
		if strings.HasPrefix(sql, prefix) {
			name := strings.Fields(strings.TrimPrefix(sql, prefix))[0]
			f.existing[name] = true
		}
	}
	for prefix, res := range f.answers {
		if strings.HasPrefix(sql, prefix) {
			return res, nil
		}
	}
	return &mindsdb.Result{Type: "ok"}, nil
}

func (f *fakeEngine) statements(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sql {
		if strings.HasPrefix(s, prefix) {
			out = append(out, s)
		}
	}
	return out
}

type memMarkers struct {
	mu  sync.Mutex
	set map[string]bool
}

func (m *memMarkers) IsProvisioned(_ context.Context, r string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set[r], nil
}

func (m *memMarkers) MarkProvisioned(_ context.Context, r string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.set == nil {
		m.set = map[string]bool{}
	}
	m.set[r] = true
	return nil
}

func TestNaming(t *testing.T) {
	id := uuid.MustParse("0b6b9c9e-7c1a-4e55-9c2f-1d0f5c3e2a10")
	assert.Equal(t, "wyse_transactions_0b6b9c9e_7c1a_4e55_9c2f_1d0f5c3e2a10", KnowledgeBaseName(id))
	assert.Equal(t, "wyse_ai_table_0b6b9c9e_7c1a_4e55_9c2f_1d0f5c3e2a10", AITableName(id))
	assert.Equal(t, "wyse_agent_0b6b9c9e_7c1a_4e55_9c2f_1d0f5c3e2a10", AgentName(id))
	assert.Equal(t, "wyse_sync_job_0b6b9c9e_7c1a_4e55_9c2f_1d0f5c3e2a10", JobName(id))
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "'plain'", Quote("plain"))
	assert.Equal(t, "'O''Reilly''s'", Quote("O'Reilly's"))
	assert.Equal(t, "''", Quote(""))
}

func TestEnsureKnowledgeBase_ShowThenCreate(t *testing.T) {
	ctx := context.Background()
	engine := newFakeEngine()
	svc := NewService(engine, nil, Config{GeminiAPIKey: "k"})
	userID := uuid.New()

	first, err := svc.EnsureKnowledgeBase(ctx, userID)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Len(t, engine.statements("CREATE KNOWLEDGE_BASE"), 1)
	assert.Len(t, engine.statements("CREATE INDEX ON KNOWLEDGE_BASE"), 1)

	second, err := svc.EnsureKnowledgeBase(ctx, userID)
	require.NoError(t, err)
	assert.True(t, second.Exists)
	assert.False(t, second.Created)
	assert.Len(t, engine.statements("CREATE KNOWLEDGE_BASE"), 1)
	assert.Len(t, engine.statements("SHOW KNOWLEDGE_BASES"), 2)
}

func TestEnsure_MarkersSkipShow(t *testing.T) {
	ctx := context.Background()
	engine := newFakeEngine()
	svc := NewService(engine, &memMarkers{}, Config{})
	userID := uuid.New()

	_, err := svc.EnsureAgent(ctx, userID)
	require.NoError(t, err)
	_, err = svc.EnsureAgent(ctx, userID)
	require.NoError(t, err)

	assert.Len(t, engine.statements("SHOW AGENTS"), 1)
	assert.Len(t, engine.statements("CREATE AGENT"), 1)
}

func TestInsertTransaction_EscapesText(t *testing.T) {
	ctx := context.Background()
	engine := newFakeEngine()
	svc := NewService(engine, nil, Config{})

	userID := uuid.New()
	account := &models.LinkedAccount{ID: uuid.New(), AccountID: "acc_1", Institution: models.Institution{Name: "St. Mary's Bank"}}
	tx := &models.Transaction{
		ID:        models.TransactionID(account.ID, "tx1"),
		MonoID:    "tx1",
		UserID:    userID,
		Narration: "Mama's kitchen",
		Amount:    decimal.NewFromInt(-2500),
		Type:      models.TransactionTypeDebit,
		Currency:  "NGN",
		Date:      time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
	}

	require.NoError(t, svc.InsertTransaction(ctx, tx, account))

	inserts := engine.statements("INSERT INTO")
	require.Len(t, inserts, 1)
	assert.Contains(t, inserts[0], "'Mama''s kitchen'")
	assert.Contains(t, inserts[0], "'St. Mary''s Bank'")
	assert.Contains(t, inserts[0], "'"+tx.ID.String()+"'")
	assert.Contains(t, inserts[0], "-2500")
	assert.Contains(t, inserts[0], "'2024-01-02T10:00:00Z'")
}

func TestMirrorTransactions_ProvisionsOnce(t *testing.T) {
	ctx := context.Background()
	engine := newFakeEngine()
	engine.failOn = "'broken narration'"
	svc := NewService(engine, nil, Config{})

	userID := uuid.New()
	account := &models.LinkedAccount{ID: uuid.New(), AccountID: "acc_1"}
	var txs []models.Transaction
	for _, narration := range []string{"coffee", "broken narration", "salary"} {
		txs = append(txs, models.Transaction{
			ID:        uuid.New(),
			UserID:    userID,
			Narration: narration,
			Amount:    decimal.NewFromInt(100),
		})
	}

	n, err := svc.MirrorTransactions(ctx, userID, account, txs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, engine.statements("SHOW "), 1)
	assert.Len(t, engine.statements("CREATE KNOWLEDGE_BASE"), 1)
	assert.Len(t, engine.statements("INSERT INTO"), 3)
}

func TestMirrorTransactions_UnavailableEngine(t *testing.T) {
	engine := newFakeEngine()
	engine.failOn = "SHOW"
	svc := NewService(engine, nil, Config{})

	userID := uuid.New()
	n, err := svc.MirrorTransactions(context.Background(), userID, nil, []models.Transaction{{ID: uuid.New(), UserID: userID}})
	assert.Error(t, err)
	assert.Zero(t, n)
	assert.Empty(t, engine.statements("INSERT INTO"))
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	engine := newFakeEngine()
	userID := uuid.New()
	engine.answers["SELECT * FROM "+KnowledgeBaseName(userID)] = &mindsdb.Result{
		Type:        "table",
		ColumnNames: []string{"chunk_content", "metadata", "relevance"},
		Data: [][]interface{}{
			{"Uber trip", `{"amount": -3500, "type": "debit", "category": "transport", "currency": "NGN", "transaction_date": "2024-01-03"}`, 0.91},
		},
	}
	svc := NewService(engine, nil, Config{})

	results, err := svc.Search(ctx, userID, "rides I took", SearchFilters{Category: "transport", Type: "debit"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Uber trip", results[0].Narration)
	assert.Equal(t, "transport", results[0].Category)
	assert.Equal(t, 0.91, results[0].Similarity)

	selects := engine.statements("SELECT * FROM")
	require.Len(t, selects, 1)
	assert.Contains(t, selects[0], "category = 'transport' AND type = 'debit'")
	assert.Contains(t, selects[0], "ORDER BY similarity DESC LIMIT 20")

	_, err = svc.Search(ctx, userID, "  ", SearchFilters{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestChat(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("agent answers", func(t *testing.T) {
		engine := newFakeEngine()
		engine.answers["SELECT answer FROM "+AgentName(userID)] = &mindsdb.Result{
			Type: "table", ColumnNames: []string{"answer"}, Data: [][]interface{}{{"You spent 12,000 on food."}},
		}
		reply, err := NewService(engine, nil, Config{}).Chat(ctx, userID, "How much on food?")
		require.NoError(t, err)
		assert.True(t, reply.Answered)
		assert.Equal(t, "You spent 12,000 on food.", reply.Content)
		assert.Len(t, engine.statements("CREATE MODEL"), 1)
		assert.Len(t, engine.statements("CREATE AGENT"), 1)
	})

	t.Run("no answer falls back", func(t *testing.T) {
		reply, err := NewService(newFakeEngine(), nil, Config{}).Chat(ctx, userID, "What's up?")
		require.NoError(t, err)
		assert.False(t, reply.Answered)
		assert.Equal(t, NoMatchReply, reply.Content)
	})
}

func TestSetup(t *testing.T) {
	engine := newFakeEngine()
	userID := uuid.New()
	res, err := NewService(engine, nil, Config{SourceDatabase: "pg"}).Setup(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, res.KnowledgeBase.Created)
	assert.True(t, res.AITable.Created)
	assert.True(t, res.Agent.Created)
	assert.True(t, res.SyncJob.Created)
	assert.Empty(t, res.Warnings)

	jobs := engine.statements("CREATE JOB")
	require.Len(t, jobs, 1)
	assert.Contains(t, jobs[0], "FROM pg.transactions t")
	assert.Contains(t, jobs[0], "EVERY 10 minutes")
}

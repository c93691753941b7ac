// Package knowledge mirrors transactions into a per-user MindsDB knowledge
// base and answers questions over it.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"wyse/internal/clients/mindsdb"
	"wyse/internal/logger"
	"wyse/internal/models"
	"wyse/internal/sideeffect"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	searchLimit = 20
	contextRows = 10
	// NoMatchReply is returned by Chat when the agent produced no answer.
	NoMatchReply = "I couldn't find any transactions matching your query. Try rephrasing or check if you have any transactions in that category."
)

var ErrEmptyQuery = errors.New("query must be a non-empty string")

// Engine is the subset of the MindsDB client the bridge needs.
type Engine interface {
	EnsureConnected(ctx context.Context) error
	Query(ctx context.Context, sql string) (*mindsdb.Result, error)
}

// Markers caches "already provisioned" flags so SHOW round trips can be
// skipped. Implemented by the redis cache service.
type Markers interface {
	IsProvisioned(ctx context.Context, resource string) (bool, error)
	MarkProvisioned(ctx context.Context, resource string, ttl time.Duration) error
}

type Config struct {
	GeminiAPIKey   string
	ModelEngine    string
	SourceDatabase string
	MarkerTTL      time.Duration
}

type Service interface {
	EnsureKnowledgeBase(ctx context.Context, userID uuid.UUID) (*Provisioned, error)
	EnsureAITable(ctx context.Context, userID uuid.UUID) (*Provisioned, error)
	EnsureAgent(ctx context.Context, userID uuid.UUID) (*Provisioned, error)
	EnsureSyncJob(ctx context.Context, userID uuid.UUID) (*Provisioned, error)
	Setup(ctx context.Context, userID uuid.UUID) (*SetupResult, error)
	InsertTransaction(ctx context.Context, tx *models.Transaction, account *models.LinkedAccount) error
	MirrorTransactions(ctx context.Context, userID uuid.UUID, account *models.LinkedAccount, txs []models.Transaction) (int, error)
	Search(ctx context.Context, userID uuid.UUID, query string, filters SearchFilters) ([]SearchResult, error)
	Chat(ctx context.Context, userID uuid.UUID, message string) (*ChatReply, error)
	Evaluate(ctx context.Context, userID uuid.UUID) ([]map[string]interface{}, error)
	LLMTableAnswer(ctx context.Context, userID uuid.UUID, question string, filters SearchFilters) (*TableAnswer, error)
}

type Provisioned struct {
	Name    string `json:"name"`
	Created bool   `json:"created"`
	Exists  bool   `json:"exists"`
}

type SetupResult struct {
	KnowledgeBase *Provisioned `json:"knowledgeBase"`
	AITable       *Provisioned `json:"aiTable,omitempty"`
	Agent         *Provisioned `json:"agent,omitempty"`
	SyncJob       *Provisioned `json:"syncJob,omitempty"`
	Warnings      []string     `json:"warnings,omitempty"`
}

type SearchFilters struct {
	Category  string `json:"category"`
	Type      string `json:"type"`
	Currency  string `json:"currency"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type SearchResult struct {
	Content         string      `json:"content"`
	Narration       string      `json:"narration"`
	Amount          interface{} `json:"amount"`
	Type            string      `json:"type"`
	Category        string      `json:"category"`
	Currency        string      `json:"currency"`
	Date            string      `json:"date"`
	InstitutionName string      `json:"institutionName"`
	Similarity      interface{} `json:"similarity"`
}

type ChatReply struct {
	Answered bool   `json:"-"`
	Type     string `json:"type"`
	Content  string `json:"content"`
}

type TableAnswer struct {
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Sources  []SearchResult `json:"sources"`
}

type service struct {
	engine  Engine
	markers Markers
	cfg     Config
}

// NewService creates the bridge. markers may be nil.
func NewService(engine Engine, markers Markers, cfg Config) Service {
	if cfg.MarkerTTL <= 0 {
		cfg.MarkerTTL = 24 * time.Hour
	}
	if cfg.ModelEngine == "" {
		cfg.ModelEngine = "google_gemini"
	}
	if cfg.SourceDatabase == "" {
		cfg.SourceDatabase = "wyse_db"
	}
	return &service{engine: engine, markers: markers, cfg: cfg}
}

func (s *service) query(ctx context.Context, sql string) (*mindsdb.Result, error) {
	if err := s.engine.EnsureConnected(ctx); err != nil {
		return nil, err
	}
	return s.engine.Query(ctx, sql)
}

// ensure runs show and, when it returns no rows, create. A cached marker
// short-circuits both.
func (s *service) ensure(ctx context.Context, kind, name, show string, create ...string) (*Provisioned, error) {
	marker := kind + ":" + name
	if s.markers != nil {
		if ok, err := s.markers.IsProvisioned(ctx, marker); err == nil && ok {
			return &Provisioned{Name: name, Exists: true}, nil
		} else if err != nil {
			logger.Log.Warn("provisioning marker read failed", zap.String("resource", marker), zap.Error(err))
		}
	}

	res, err := s.query(ctx, show)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s %s: %w", kind, name, err)
	}
	out := &Provisioned{Name: name, Exists: !res.Empty()}
	if !out.Exists {
		for _, stmt := range create {
			if _, err := s.query(ctx, stmt); err != nil {
				return nil, fmt.Errorf("failed to create %s %s: %w", kind, name, err)
			}
		}
		out.Created = true
		logger.Log.Info("provisioned mindsdb resource", zap.String("kind", kind), zap.String("name", name))
	}

	if s.markers != nil {
		if err := s.markers.MarkProvisioned(ctx, marker, s.cfg.MarkerTTL); err != nil {
			logger.Log.Warn("provisioning marker write failed", zap.String("resource", marker), zap.Error(err))
		}
	}
	return out, nil
}

func (s *service) EnsureKnowledgeBase(ctx context.Context, userID uuid.UUID) (*Provisioned, error) {
	kb := KnowledgeBaseName(userID)
	create := fmt.Sprintf(`CREATE KNOWLEDGE_BASE %s
USING
  embedding_model = {"provider": "gemini", "model_name": "text-embedding-004", "api_key": %s},
  metadata_columns = ['user_id', 'transaction_date', 'amount', 'type', 'category', 'currency', 'account_id', 'institution_name'],
  content_columns = ['transaction_description'],
  id_column = 'transaction_id';`, kb, jsonString(s.cfg.GeminiAPIKey))
	index := fmt.Sprintf("CREATE INDEX ON KNOWLEDGE_BASE %s;", kb)

	return s.ensure(ctx, "knowledge_base", kb,
		fmt.Sprintf("SHOW KNOWLEDGE_BASES WHERE name = %s;", Quote(kb)),
		create, index)
}

func (s *service) EnsureAITable(ctx context.Context, userID uuid.UUID) (*Provisioned, error) {
	name := AITableName(userID)
	create := fmt.Sprintf(`CREATE MODEL %s
PREDICT answer
USING
  engine = %s,
  model_name = 'gemini-2.0-flash-lite',
  api_key = %s,
  question_column = 'question',
  context_column = 'context';`, name, Quote(s.cfg.ModelEngine), Quote(s.cfg.GeminiAPIKey))

	return s.ensure(ctx, "ai_table", name,
		fmt.Sprintf("SHOW MODELS WHERE name = %s;", Quote(name)),
		create)
}

func (s *service) EnsureAgent(ctx context.Context, userID uuid.UUID) (*Provisioned, error) {
	name := AgentName(userID)
	kb := KnowledgeBaseName(userID)
	prompt := fmt.Sprintf("The knowledge base %s contains the user's bank transactions. "+
		"Each record has a description plus date, amount, type, category, currency and institution metadata. "+
		"Answer the user's questions about their spending and income using only this data.", kb)
	create := fmt.Sprintf(`CREATE AGENT %s
USING
  model = 'gemini-2.0-flash',
  google_api_key = %s,
  include_knowledge_bases = [%s],
  prompt_template = %s;`, name, Quote(s.cfg.GeminiAPIKey), Quote(kb), Quote(prompt))

	return s.ensure(ctx, "agent", name,
		fmt.Sprintf("SHOW AGENTS WHERE name = %s;", Quote(name)),
		create)
}

// EnsureSyncJob creates a recurring job that copies new rows from the
// application database into the user's knowledge base.
func (s *service) EnsureSyncJob(ctx context.Context, userID uuid.UUID) (*Provisioned, error) {
	name := JobName(userID)
	kb := KnowledgeBaseName(userID)
	create := fmt.Sprintf(`CREATE JOB %s AS (
  INSERT INTO %s
  SELECT
    t.id AS transaction_id,
    t.narration AS transaction_description,
    t.user_id AS user_id,
    t.date AS transaction_date,
    t.amount,
    t.type,
    t.category,
    t.currency,
    a.account_id AS account_id,
    a.institution_name AS institution_name
  FROM %s.transactions t
  JOIN %s.linked_accounts a ON a.id = t.linked_account_id
  WHERE t.user_id = %s AND t.date > LAST
) EVERY 10 minutes;`, name, kb, s.cfg.SourceDatabase, s.cfg.SourceDatabase, Quote(userID.String()))

	return s.ensure(ctx, "job", name,
		fmt.Sprintf("SHOW JOBS WHERE name = %s;", Quote(name)),
		create)
}

// Setup provisions every per-user resource. Only the knowledge base is
// required; the rest are reported as warnings on failure.
func (s *service) Setup(ctx context.Context, userID uuid.UUID) (*SetupResult, error) {
	kb, err := s.EnsureKnowledgeBase(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &SetupResult{KnowledgeBase: kb}

	if out.AITable, err = s.EnsureAITable(ctx, userID); err != nil {
		out.Warnings = append(out.Warnings, err.Error())
	}
	if out.Agent, err = s.EnsureAgent(ctx, userID); err != nil {
		out.Warnings = append(out.Warnings, err.Error())
	}
	if out.SyncJob, err = s.EnsureSyncJob(ctx, userID); err != nil {
		out.Warnings = append(out.Warnings, err.Error())
	}
	return out, nil
}

// InsertTransaction appends one record. The record id is the transaction's
// own id so mirroring the same transaction twice is idempotent.
func (s *service) InsertTransaction(ctx context.Context, tx *models.Transaction, account *models.LinkedAccount) error {
	if _, err := s.EnsureKnowledgeBase(ctx, tx.UserID); err != nil {
		return err
	}
	return s.insert(ctx, tx, account)
}

// MirrorTransactions provisions the user's knowledge base once, then appends
// every row, continuing past rows that fail. It returns how many were
// appended.
func (s *service) MirrorTransactions(ctx context.Context, userID uuid.UUID, account *models.LinkedAccount, txs []models.Transaction) (int, error) {
	if _, err := s.EnsureKnowledgeBase(ctx, userID); err != nil {
		return 0, err
	}
	return sideeffect.AttemptEach(ctx, "kb_insert", txs, func(ctx context.Context, tx models.Transaction) error {
		return s.insert(ctx, &tx, account)
	}), nil
}

func (s *service) insert(ctx context.Context, tx *models.Transaction, account *models.LinkedAccount) error {
	var accountID, institution string
	if account != nil {
		accountID = account.AccountID
		institution = account.Institution.Name
	}

	sql := fmt.Sprintf(`INSERT INTO %s (
  transaction_id, transaction_description, user_id, transaction_date, amount, type, category, currency, account_id, institution_name
) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s);`,
		KnowledgeBaseName(tx.UserID),
		Quote(tx.ID.String()),
		Quote(tx.Narration),
		Quote(tx.UserID.String()),
		Quote(tx.Date.UTC().Format(time.RFC3339)),
		tx.Amount.String(),
		Quote(tx.Type),
		Quote(tx.CategoryOrEmpty()),
		Quote(tx.Currency),
		Quote(accountID),
		Quote(institution),
	)
	_, err := s.query(ctx, sql)
	return err
}

func (s *service) Search(ctx context.Context, userID uuid.UUID, query string, filters SearchFilters) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if _, err := s.EnsureKnowledgeBase(ctx, userID); err != nil {
		return nil, err
	}

	where := []string{"content LIKE " + Quote(query)}
	if filters.Category != "" {
		where = append(where, "category = "+Quote(filters.Category))
	}
	if filters.Type != "" {
		where = append(where, "type = "+Quote(filters.Type))
	}
	if filters.Currency != "" {
		where = append(where, "currency = "+Quote(filters.Currency))
	}
	if filters.StartDate != "" {
		where = append(where, "transaction_date >= "+Quote(filters.StartDate))
	}
	if filters.EndDate != "" {
		where = append(where, "transaction_date <= "+Quote(filters.EndDate))
	}

	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s ORDER BY similarity DESC LIMIT %d;",
		KnowledgeBaseName(userID), strings.Join(where, " AND "), searchLimit)
	res, err := s.query(ctx, sql)
	if err != nil {
		return nil, err
	}

	rows := res.Rows()
	out := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSearchResult(row))
	}
	return out, nil
}

func (s *service) Chat(ctx context.Context, userID uuid.UUID, message string) (*ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyQuery
	}
	if _, err := s.EnsureKnowledgeBase(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.EnsureAITable(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.EnsureAgent(ctx, userID); err != nil {
		return nil, err
	}

	sql := fmt.Sprintf("SELECT answer FROM %s WHERE question = %s;", AgentName(userID), Quote(message))
	res, err := s.query(ctx, sql)
	if err != nil {
		return nil, err
	}

	if answer := firstCell(res); answer != "" {
		return &ChatReply{Answered: true, Type: "text", Content: answer}, nil
	}
	return &ChatReply{Type: "text", Content: NoMatchReply}, nil
}

func (s *service) Evaluate(ctx context.Context, userID uuid.UUID) ([]map[string]interface{}, error) {
	res, err := s.query(ctx, fmt.Sprintf("EVALUATE KNOWLEDGE_BASE %s;", KnowledgeBaseName(userID)))
	if err != nil {
		return nil, err
	}
	return res.Rows(), nil
}

// LLMTableAnswer retrieves the closest transactions and hands them to the
// AI table as context for the question.
func (s *service) LLMTableAnswer(ctx context.Context, userID uuid.UUID, question string, filters SearchFilters) (*TableAnswer, error) {
	sources, err := s.Search(ctx, userID, question, filters)
	if err != nil {
		return nil, err
	}
	if _, err := s.EnsureAITable(ctx, userID); err != nil {
		return nil, err
	}

	sql := fmt.Sprintf("SELECT answer FROM %s WHERE question = %s AND context = %s;",
		AITableName(userID), Quote(question), Quote(buildContext(sources)))
	res, err := s.query(ctx, sql)
	if err != nil {
		return nil, err
	}

	return &TableAnswer{Question: question, Answer: firstCell(res), Sources: sources}, nil
}

func buildContext(results []SearchResult) string {
	if len(results) == 0 {
		return "No matching transactions."
	}
	var b strings.Builder
	for i, r := range results {
		if i == contextRows {
			break
		}
		fmt.Fprintf(&b, "- %s | %v %s | %s | %s | %s\n", r.Narration, r.Amount, r.Currency, r.Type, r.Category, r.Date)
	}
	return b.String()
}

func firstCell(res *mindsdb.Result) string {
	if res.Empty() || len(res.Data[0]) == 0 || res.Data[0][0] == nil {
		return ""
	}
	if s, ok := res.Data[0][0].(string); ok {
		return s
	}
	return fmt.Sprint(res.Data[0][0])
}

// toSearchResult flattens a knowledge base row. Metadata may arrive as a JSON
// string or an object depending on the MindsDB version.
func toSearchResult(row map[string]interface{}) SearchResult {
	meta := map[string]interface{}{}
	for _, key := range []string{"metadata", "metadata_columns"} {
		switch v := row[key].(type) {
		case string:
			_ = json.Unmarshal([]byte(v), &meta)
		case map[string]interface{}:
			meta = v
		}
		if len(meta) > 0 {
			break
		}
	}

	content := str(row["chunk_content"])
	if content == "" {
		content = str(row["content"])
	}
	similarity := row["similarity"]
	if similarity == nil {
		similarity = row["relevance"]
	}

	return SearchResult{
		Content:         content,
		Narration:       content,
		Amount:          meta["amount"],
		Type:            str(meta["type"]),
		Category:        str(meta["category"]),
		Currency:        str(meta["currency"]),
		Date:            str(meta["transaction_date"]),
		InstitutionName: str(meta["institution_name"]),
		Similarity:      similarity,
	}
}

func str(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/betbot/internal/domain"
	"github.com/alanyoungcy/betbot/internal/platform/advisor"
	"github.com/alanyoungcy/betbot/internal/platform/betfair"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memBetStore is an in-memory BetStore enforcing the same transition guards
// as the SQL implementation.
type memBetStore struct {
	mu   sync.Mutex
	seq  int
	recs map[string]*domain.BetRecord
}

func newMemBetStore() *memBetStore {
	return &memBetStore{recs: make(map[string]*domain.BetRecord)}
}

func (m *memBetStore) Create(ctx context.Context, rec domain.BetRecord) (domain.BetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("bet-%d", m.seq)
	}
	rec.CreatedAt = time.Now().UTC()
	if rec.Settlements == nil {
		rec.Settlements = []domain.Settlement{}
	}
	cp := rec
	m.recs[rec.ID] = &cp
	return rec, nil
}

func (m *memBetStore) GetByID(ctx context.Context, id string) (domain.BetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return domain.BetRecord{}, domain.ErrNotFound
	}
	return *rec, nil
}

func (m *memBetStore) FindActiveByDate(ctx context.Context, targetDate string, sources []domain.BetSource) ([]domain.BetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BetRecord
	for _, rec := range m.recs {
		if rec.TargetDate != targetDate || rec.Status == domain.BetStatusFailed {
			continue
		}
		for _, src := range sources {
			if rec.Source == src {
				out = append(out, *rec)
				break
			}
		}
	}
	return out, nil
}

func (m *memBetStore) ListByStatus(ctx context.Context, status domain.BetStatus, limit int) ([]domain.BetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BetRecord
	for _, rec := range m.recs {
		if rec.Status == status {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memBetStore) ListHistory(ctx context.Context, f domain.HistoryFilter) (domain.HistoryPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BetRecord
	for _, rec := range m.recs {
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return domain.HistoryPage{Records: out}, nil
}

func (m *memBetStore) RecordAnalysis(ctx context.Context, id string, u domain.AnalysisUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.Status != domain.BetStatusIntent {
		return domain.ErrInvalidBet
	}
	now := time.Now().UTC()
	rec.Status = domain.BetStatusAnalyzed
	sel := u.Selections
	rec.Selections = &sel
	rec.Balance.Predicted = u.PredictedBalance
	rec.AIReasoning = u.AIReasoning
	rec.AnalyzedAt = &now
	return nil
}

func (m *memBetStore) Approve(ctx context.Context, id string, selections *domain.Selections, predicted *float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.Status != domain.BetStatusAnalyzed {
		return domain.ErrInvalidBet
	}
	now := time.Now().UTC()
	rec.Status = domain.BetStatusReady
	if selections != nil {
		rec.Selections = selections
	}
	if predicted != nil {
		rec.Balance.Predicted = predicted
	}
	rec.ApprovedAt = &now
	return nil
}

func (m *memBetStore) ClaimForPlacement(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.Status != domain.BetStatusReady {
		return domain.ErrAlreadyClaimed
	}
	rec.Status = domain.BetStatusProcessing
	return nil
}

func (m *memBetStore) RecordPlacement(ctx context.Context, id string, status domain.BetStatus, report domain.PlacementReport, items []domain.SelectionItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.Status != domain.BetStatusProcessing {
		return domain.ErrInvalidBet
	}
	now := time.Now().UTC()
	rec.Status = status
	rec.Placement = &report
	if rec.Selections != nil {
		rec.Selections.Items = items
	}
	rec.PlacedAt = &now
	return nil
}

func (m *memBetStore) RecordSettlements(ctx context.Context, id string, u domain.SettlementUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.Status != domain.BetStatusPlaced && rec.Status != domain.BetStatusPartial {
		return domain.ErrInvalidBet
	}
	now := time.Now().UTC()
	rec.Settlements = u.Settlements
	ending := u.EndingBalance
	rec.Balance.Ending = &ending
	rec.LastSettledAt = &now
	if u.Finished {
		rec.Status = domain.BetStatusFinished
		rec.FinishedAt = &now
	}
	return nil
}

func (m *memBetStore) MarkFailed(ctx context.Context, id string, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.Status.Terminal() {
		return domain.ErrInvalidBet
	}
	rec.Status = domain.BetStatusFailed
	rec.Error = msg
	return nil
}

func (m *memBetStore) MarkLearned(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	rec.LearnedAt = &now
	return nil
}

func (m *memBetStore) ListFinishedUnlearned(ctx context.Context, source domain.BetSource, limit int) ([]domain.BetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BetRecord
	for _, rec := range m.recs {
		if rec.Status == domain.BetStatusFinished && rec.Source == source && rec.LearnedAt == nil {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memBetStore) ListUnmigrated(ctx context.Context, version int, limit int) ([]domain.BetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BetRecord
	for _, rec := range m.recs {
		if rec.SchemaVersion < version {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memBetStore) Replace(ctx context.Context, rec domain.BetRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[rec.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := rec
	m.recs[rec.ID] = &cp
	return nil
}

// memSuggestionStore is an in-memory SuggestionStore.
type memSuggestionStore struct {
	mu   sync.Mutex
	seq  int
	recs map[string]*domain.BetRecord
}

func newMemSuggestionStore() *memSuggestionStore {
	return &memSuggestionStore{recs: make(map[string]*domain.BetRecord)}
}

func (m *memSuggestionStore) Create(ctx context.Context, rec domain.BetRecord) (domain.BetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("sug-%d", m.seq)
	}
	rec.CreatedAt = time.Now().UTC()
	cp := rec
	m.recs[rec.ID] = &cp
	return rec, nil
}

func (m *memSuggestionStore) GetByID(ctx context.Context, id string) (domain.BetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return domain.BetRecord{}, domain.ErrNotFound
	}
	return *rec, nil
}

func (m *memSuggestionStore) ListByDate(ctx context.Context, targetDate string) ([]domain.BetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BetRecord
	for _, rec := range m.recs {
		if rec.TargetDate == targetDate {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memSuggestionStore) RecordAnalysis(ctx context.Context, id string, u domain.AnalysisUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.Status != domain.BetStatusIntent {
		return domain.ErrInvalidBet
	}
	now := time.Now().UTC()
	rec.Status = domain.BetStatusAnalyzed
	sel := u.Selections
	rec.Selections = &sel
	rec.Balance.Predicted = u.PredictedBalance
	rec.AIReasoning = u.AIReasoning
	rec.AnalyzedAt = &now
	return nil
}

func (m *memSuggestionStore) MarkFailed(ctx context.Context, id string, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Status = domain.BetStatusFailed
	rec.Error = msg
	return nil
}

func (m *memSuggestionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.recs, id)
	return nil
}

// Singleton document stores.

type memWalletStore struct {
	mu  sync.Mutex
	rec *domain.WalletRecord
}

func (m *memWalletStore) Get(ctx context.Context) (domain.WalletRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return domain.WalletRecord{}, domain.ErrNotFound
	}
	return *m.rec, nil
}

func (m *memWalletStore) Put(ctx context.Context, w domain.WalletRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w.UpdatedAt = time.Now().UTC()
	m.rec = &w
	return nil
}

type memSettingsStore struct {
	mu  sync.Mutex
	rec *domain.Settings
}

func (m *memSettingsStore) Get(ctx context.Context) (domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return domain.Settings{}, domain.ErrNotFound
	}
	return *m.rec, nil
}

func (m *memSettingsStore) Put(ctx context.Context, s domain.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = &s
	return nil
}

type memLearningsStore struct {
	mu      sync.Mutex
	content *string
}

func (m *memLearningsStore) Get(ctx context.Context) (domain.LearningsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.content == nil {
		return domain.LearningsRecord{}, domain.ErrNotFound
	}
	return domain.LearningsRecord{Content: *m.content, UpdatedAt: time.Now().UTC()}, nil
}

func (m *memLearningsStore) Put(ctx context.Context, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = &content
	return nil
}

// Platform fakes.

type fakeFunds struct {
	balance  float64
	exposure float64
	err      error
}

func (f *fakeFunds) GetAccountFunds(ctx context.Context) (betfair.AccountFunds, error) {
	if f.err != nil {
		return betfair.AccountFunds{}, f.err
	}
	return betfair.AccountFunds{AvailableToBetBalance: f.balance, Exposure: f.exposure}, nil
}

type fakeRecommender struct {
	fn func(in advisor.AnalysisInput) (domain.AgentResponse, error)
}

func (f *fakeRecommender) Recommend(ctx context.Context, in advisor.AnalysisInput) (domain.AgentResponse, error) {
	return f.fn(in)
}

type fakeRewriter struct {
	got     []string
	current string
	out     string
	err     error
}

func (f *fakeRewriter) RewriteLearnings(ctx context.Context, current string, outcomes []string) (string, error) {
	f.current = current
	f.got = outcomes
	return f.out, f.err
}

type fakePlacer struct {
	mu    sync.Mutex
	calls int
	fn    func(marketID string, instructions []betfair.PlaceInstruction) (betfair.PlaceExecutionReport, error)
}

func (f *fakePlacer) PlaceOrders(ctx context.Context, marketID string, instructions []betfair.PlaceInstruction) (betfair.PlaceExecutionReport, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(marketID, instructions)
	}
	reports := make([]betfair.InstructionReport, 0, len(instructions))
	for i, ins := range instructions {
		reports = append(reports, betfair.InstructionReport{
			Status:      "SUCCESS",
			BetID:       fmt.Sprintf("%s-bet-%d", marketID, i),
			Instruction: ins,
		})
	}
	return betfair.PlaceExecutionReport{Status: "SUCCESS", MarketID: marketID, InstructionReports: reports}, nil
}

func (f *fakePlacer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCleared struct {
	report betfair.ClearedOrderSummaryReport
	err    error
}

func (f *fakeCleared) ListClearedOrders(ctx context.Context, betIDs []string) (betfair.ClearedOrderSummaryReport, error) {
	if f.err != nil {
		return betfair.ClearedOrderSummaryReport{}, f.err
	}
	return f.report, nil
}

// fakeLocks grants every acquire unless held is set.
type fakeLocks struct {
	mu       sync.Mutex
	held     bool
	acquired int
}

func (f *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held {
		return nil, domain.ErrLockHeld
	}
	f.acquired++
	return func() {}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) Notify(ctx context.Context, event, title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeBroadcaster) Broadcast(event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

type fakeMarketSource struct {
	catalogues []betfair.MarketCatalogue
	books      []betfair.MarketBook
}

func (f *fakeMarketSource) ListEventTypes(ctx context.Context, filter betfair.MarketFilter) ([]betfair.EventTypeResult, error) {
	return []betfair.EventTypeResult{
		{EventType: betfair.EventType{ID: "1", Name: "Soccer"}},
		{EventType: betfair.EventType{ID: "2", Name: "Tennis"}},
	}, nil
}

func (f *fakeMarketSource) ListCompetitions(ctx context.Context, filter betfair.MarketFilter) ([]betfair.CompetitionResult, error) {
	return []betfair.CompetitionResult{
		{Competition: betfair.Competition{ID: "10", Name: "English Premier League"}},
		{Competition: betfair.Competition{ID: "11", Name: "Spanish La Liga"}},
		{Competition: betfair.Competition{ID: "12", Name: "Serie A (Italy)"}},
	}, nil
}

func (f *fakeMarketSource) ListMarketCatalogue(ctx context.Context, filter betfair.MarketFilter) ([]betfair.MarketCatalogue, error) {
	return f.catalogues, nil
}

func (f *fakeMarketSource) ListMarketBook(ctx context.Context, marketIDs []string) ([]betfair.MarketBook, error) {
	return f.books, nil
}

package audit

import (
	"context"
	"sort"
	"sync"

	"github.com/assettrack/backend/internal/models"
	"github.com/assettrack/backend/internal/store"
)

// fakeStore is an in-memory store.Store. Getters return copies so tests
// cannot mutate stored rows by accident.
type fakeStore struct {
	mu            sync.Mutex
	nextID        int64
	plans         map[int64]models.Plan
	sessions      map[int64]models.Session
	expected      []models.ExpectedItem
	results       []models.ItemResult
	scans         []models.Scan
	discrepancies map[int64]models.Discrepancy
	actions       map[int64]models.Action
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		plans:         make(map[int64]models.Plan),
		sessions:      make(map[int64]models.Session),
		discrepancies: make(map[int64]models.Discrepancy),
		actions:       make(map[int64]models.Action),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) Tx(ctx context.Context, fn func(store.Querier) error) error {
	return fn(f)
}

// Plans

func (f *fakeStore) CreatePlan(ctx context.Context, p *models.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.id()
	f.plans[p.ID] = *p
	return nil
}

func (f *fakeStore) UpdatePlan(ctx context.Context, p *models.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.plans[p.ID]; !ok {
		return store.ErrNotFound
	}
	f.plans[p.ID] = *p
	return nil
}

func (f *fakeStore) GetPlan(ctx context.Context, id int64) (*models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := p
	return &out, nil
}

func (f *fakeStore) ListPlans(ctx context.Context, limit, offset int) ([]models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Plan
	for _, p := range f.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Sessions

func (f *fakeStore) CreateSession(ctx context.Context, s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = f.id()
	f.sessions[s.ID] = *s
	return nil
}

func (f *fakeStore) UpdateSession(ctx context.Context, s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[s.ID]; !ok {
		return store.ErrNotFound
	}
	f.sessions[s.ID] = *s
	return nil
}

func (f *fakeStore) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := s
	return &out, nil
}

func (f *fakeStore) ListSessions(ctx context.Context, filter store.SessionFilter) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, s := range f.sessions {
		if filter.LocationID != nil && s.LocationID != *filter.LocationID {
			continue
		}
		if filter.PlanID != nil && (s.PlanID == nil || *s.PlanID != *filter.PlanID) {
			continue
		}
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) ListSessionsByPlan(ctx context.Context, planID int64) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, s := range f.sessions {
		if s.PlanID != nil && *s.PlanID == planID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID < out[j].LocationID })
	return out, nil
}

// Expected snapshot

func (f *fakeStore) DeleteExpectedItems(ctx context.Context, sessionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.ExpectedItem
	for _, e := range f.expected {
		if e.SessionID != sessionID {
			kept = append(kept, e)
		}
	}
	f.expected = kept
	return nil
}

func (f *fakeStore) InsertExpectedItem(ctx context.Context, e *models.ExpectedItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cur := range f.expected {
		if cur.SessionID == e.SessionID && cur.ItemID == e.ItemID {
			return store.ErrDuplicate
		}
	}
	e.ID = f.id()
	f.expected = append(f.expected, *e)
	return nil
}

func (f *fakeStore) ListExpectedItems(ctx context.Context, sessionID int64) ([]models.ExpectedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ExpectedItem
	for _, e := range f.expected {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) GetExpectedItem(ctx context.Context, sessionID, itemID int64) (*models.ExpectedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.expected {
		if e.SessionID == sessionID && e.ItemID == itemID {
			out := e
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

// Item results

func (f *fakeStore) DeleteItemResults(ctx context.Context, sessionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.ItemResult
	for _, r := range f.results {
		if r.SessionID != sessionID {
			kept = append(kept, r)
		}
	}
	f.results = kept
	return nil
}

func (f *fakeStore) InsertItemResult(ctx context.Context, r *models.ItemResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cur := range f.results {
		if cur.SessionID == r.SessionID && cur.ItemID == r.ItemID {
			return store.ErrDuplicate
		}
	}
	r.ID = f.id()
	f.results = append(f.results, *r)
	return nil
}

func (f *fakeStore) UpdateItemResult(ctx context.Context, r *models.ItemResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, cur := range f.results {
		if cur.SessionID == r.SessionID && cur.ItemID == r.ItemID {
			r.ID = cur.ID
			f.results[i] = *r
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) GetItemResult(ctx context.Context, sessionID, itemID int64) (*models.ItemResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.results {
		if r.SessionID == sessionID && r.ItemID == itemID {
			out := r
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListItemResults(ctx context.Context, sessionID int64) ([]models.ItemResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ItemResult
	for _, r := range f.results {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

// Scans

func (f *fakeStore) InsertScan(ctx context.Context, s *models.Scan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cur := range f.scans {
		if cur.SessionID == s.SessionID && cur.ClientScanID == s.ClientScanID {
			return store.ErrDuplicate
		}
	}
	s.ID = f.id()
	f.scans = append(f.scans, *s)
	return nil
}

func (f *fakeStore) GetScanByClientID(ctx context.Context, sessionID int64, clientScanID string) (*models.Scan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.scans {
		if s.SessionID == sessionID && s.ClientScanID == clientScanID {
			out := s
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListScans(ctx context.Context, sessionID int64) ([]models.Scan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Scan
	for _, s := range f.scans {
		if s.SessionID == sessionID {
			out = append(out, s)
		}
	}
	return out, nil
}

// Discrepancies

func (f *fakeStore) InsertDiscrepancy(ctx context.Context, d *models.Discrepancy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d.ID = f.id()
	f.discrepancies[d.ID] = *d
	return nil
}

func (f *fakeStore) UpdateDiscrepancy(ctx context.Context, d *models.Discrepancy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.discrepancies[d.ID]; !ok {
		return store.ErrNotFound
	}
	f.discrepancies[d.ID] = *d
	return nil
}

func (f *fakeStore) GetDiscrepancy(ctx context.Context, id int64) (*models.Discrepancy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.discrepancies[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := d
	return &out, nil
}

func (f *fakeStore) FindOpenDiscrepancy(ctx context.Context, key store.DiscrepancyKey) (*models.Discrepancy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.discrepancies {
		if d.SessionID != key.SessionID || d.Type != key.Type {
			continue
		}
		if d.ResolutionStatus != models.ResolutionOpen {
			continue
		}
		if !int64PtrEqual(d.ItemID, key.ItemID) || !strPtrEqual(d.BarcodeValue, key.BarcodeValue) {
			continue
		}
		out := d
		return &out, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) DeleteDiscrepancies(ctx context.Context, sessionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, d := range f.discrepancies {
		if d.SessionID == sessionID {
			delete(f.discrepancies, id)
		}
	}
	return nil
}

func (f *fakeStore) ListDiscrepancies(ctx context.Context, sessionID int64) ([]models.Discrepancy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Discrepancy
	for _, d := range f.discrepancies {
		if d.SessionID == sessionID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) CountOpenDiscrepancies(ctx context.Context, sessionID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, d := range f.discrepancies {
		if d.SessionID == sessionID && d.ResolutionStatus == models.ResolutionOpen {
			n++
		}
	}
	return n, nil
}

// Actions

func (f *fakeStore) InsertAction(ctx context.Context, a *models.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cur := range f.actions {
		if cur.IdempotencyKey == a.IdempotencyKey {
			return store.ErrDuplicate
		}
	}
	a.ID = f.id()
	f.actions[a.ID] = *a
	return nil
}

func (f *fakeStore) UpdateActionStatus(ctx context.Context, id int64, status models.ActionStatus, lastError *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.actions[id]
	if !ok {
		return store.ErrNotFound
	}
	a.Status = status
	a.LastError = lastError
	f.actions[id] = a
	return nil
}

func (f *fakeStore) ListActions(ctx context.Context, sessionID int64) ([]models.Action, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Action
	for _, a := range f.actions {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListActionsByStatus(ctx context.Context, sessionID int64, status models.ActionStatus) ([]models.Action, error) {
	all, _ := f.ListActions(ctx, sessionID)
	var out []models.Action
	for _, a := range all {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

// Report aggregates

func (f *fakeStore) ItemResultCounts(ctx context.Context, sessionIDs []int64) (store.ResultCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(store.ResultCounts)
	for _, r := range f.results {
		if !containsID(sessionIDs, r.SessionID) {
			continue
		}
		if out[r.SessionID] == nil {
			out[r.SessionID] = make(map[models.ItemResultStatus]int)
		}
		out[r.SessionID][r.Status]++
	}
	return out, nil
}

func (f *fakeStore) ScanCounts(ctx context.Context, sessionIDs []int64) (map[int64]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]int)
	for _, s := range f.scans {
		if containsID(sessionIDs, s.SessionID) {
			out[s.SessionID]++
		}
	}
	return out, nil
}

func (f *fakeStore) CountDiscrepancies(ctx context.Context, sessionIDs []int64) (store.DiscrepancyCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(store.DiscrepancyCounts)
	for _, d := range f.discrepancies {
		if !containsID(sessionIDs, d.SessionID) {
			continue
		}
		if out[d.SessionID] == nil {
			out[d.SessionID] = make(map[store.DiscrepancyCountKey]int)
		}
		out[d.SessionID][store.DiscrepancyCountKey{Type: d.Type, Resolution: d.ResolutionStatus}]++
	}
	return out, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"quickbuck/internal/lease"
)

// memStore is the in-memory Store used across the engine tests. It mirrors
// the ordering and cursor contracts of the real backend closely enough that
// rotation and pagination behavior can be exercised without a database.
type memStore struct {
	mu     sync.Mutex
	nextID int64

	ticks       []TickRecord
	companies   map[int64]*Company
	products    map[int64]*Product
	employees   map[int64][]Employee
	instruments map[int64]*Instrument
	candles     map[int64][]Candle
	loans       map[int64]*Loan
	players     map[string]*Player
	holdings    map[string][]HoldingValue
	purchases   []Purchase

	failTickRecord bool
	failHoldings   bool
}

func newMemStore() *memStore {
	return &memStore{
		companies:   make(map[int64]*Company),
		products:    make(map[int64]*Product),
		employees:   make(map[int64][]Employee),
		instruments: make(map[int64]*Instrument),
		candles:     make(map[int64][]Candle),
		loans:       make(map[int64]*Loan),
		players:     make(map[string]*Player),
		holdings:    make(map[string][]HoldingValue),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addCompany(c Company) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == 0 {
		c.ID = m.id()
	}
	m.companies[c.ID] = &c
	return c.ID
}

func (m *memStore) addProduct(p Product) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.id()
	}
	m.products[p.ID] = &p
	return p.ID
}

func (m *memStore) addLoan(ln Loan) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ln.ID == 0 {
		ln.ID = m.id()
	}
	m.loans[ln.ID] = &ln
	return ln.ID
}

func (m *memStore) addPlayer(pl Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[pl.ID] = &pl
}

func (m *memStore) company(id int64) Company {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.companies[id]
}

func (m *memStore) product(id int64) Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.products[id]
}

func (m *memStore) loan(id int64) Loan {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.loans[id]
}

func (m *memStore) player(id string) Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.players[id]
}

func (m *memStore) instrument(id int64) Instrument {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.instruments[id]
}

func (m *memStore) LastTickNumber(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last int64
	for _, t := range m.ticks {
		if t.TickNumber > last {
			last = t.TickNumber
		}
	}
	return last, nil
}

func (m *memStore) InsertTickRecord(_ context.Context, rec TickRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTickRecord {
		return fmt.Errorf("memstore: tick insert refused")
	}
	m.ticks = append(m.ticks, rec)
	return nil
}

func (m *memStore) LatestTickRecord(context.Context) (TickRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ticks) == 0 {
		return TickRecord{}, ErrNotFound
	}
	return m.ticks[len(m.ticks)-1], nil
}

func (m *memStore) companiesSorted(stamp func(Company) time.Time, limit int) []Company {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Company, 0, len(m.companies))
	for _, c := range m.companies {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := stamp(out[i]), stamp(out[j])
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memStore) CompaniesByOldestBotPurchase(_ context.Context, limit int) ([]Company, error) {
	return m.companiesSorted(func(c Company) time.Time { return c.LastBotPurchase }, limit), nil
}

func (m *memStore) ActiveProductsByCompany(_ context.Context, companyID int64, limit int) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Product
	for _, p := range m.products {
		if p.CompanyID == companyID && p.Active && !p.Archived {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) RecordPurchase(_ context.Context, p Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prod, ok := m.products[p.ProductID]
	if !ok {
		return ErrNotFound
	}
	if prod.Stock != nil {
		if *prod.Stock < p.Quantity {
			return fmt.Errorf("insufficient stock: %w", ErrValidation)
		}
		*prod.Stock -= p.Quantity
	}
	prod.TotalSold += p.Quantity
	prod.TotalRevenueCents += p.TotalCents
	if c, ok := m.companies[p.CompanyID]; ok {
		c.BalanceCents += p.TotalCents
	}
	m.purchases = append(m.purchases, p)
	return nil
}

func (m *memStore) TouchCompanyBotPurchase(_ context.Context, companyIDs []int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range companyIDs {
		if c, ok := m.companies[id]; ok {
			c.LastBotPurchase = at
		}
	}
	return nil
}

func (m *memStore) CompaniesByOldestCosts(_ context.Context, limit int) ([]Company, error) {
	return m.companiesSorted(func(c Company) time.Time { return c.LastCostsAt }, limit), nil
}

func (m *memStore) CompanyEmployees(_ context.Context, companyID int64, limit int) ([]Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	emps := m.employees[companyID]
	if len(emps) > limit {
		emps = emps[:limit]
	}
	out := make([]Employee, len(emps))
	copy(out, emps)
	return out, nil
}

func (m *memStore) ApplyCompanyCosts(_ context.Context, companyID int64, costCents int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[companyID]
	if !ok {
		return ErrNotFound
	}
	c.BalanceCents -= costCents
	c.LastCostsAt = at
	return nil
}

func (m *memStore) InstrumentsByOldestUpdate(_ context.Context, kind AssetKind, limit int) ([]Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Instrument
	for _, inst := range m.instruments {
		if inst.Kind == kind {
			out = append(out, *inst)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUpdated.Equal(out[j].LastUpdated) {
			return out[i].LastUpdated.Before(out[j].LastUpdated)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) InstrumentBySymbol(_ context.Context, symbol string) (Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inst := range m.instruments {
		if inst.Symbol == symbol {
			return *inst, nil
		}
	}
	return Instrument{}, ErrNotFound
}

func (m *memStore) InstrumentByID(_ context.Context, id int64) (Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instruments[id]
	if !ok {
		return Instrument{}, ErrNotFound
	}
	return *inst, nil
}

func (m *memStore) ListInstruments(_ context.Context, kind AssetKind, limit int) ([]Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Instrument
	for _, inst := range m.instruments {
		if inst.Kind == kind {
			out = append(out, *inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CompanyByID(_ context.Context, id int64) (Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return Company{}, ErrNotFound
	}
	return *c, nil
}

func (m *memStore) RecentCloses(_ context.Context, instrumentID int64, limit int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	candles := m.candles[instrumentID]
	var out []int64
	for i := len(candles) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, candles[i].CloseCents)
	}
	return out, nil
}

func (m *memStore) RecentCandles(_ context.Context, instrumentID int64, limit int) ([]Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	candles := m.candles[instrumentID]
	var out []Candle
	for i := len(candles) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, candles[i])
	}
	return out, nil
}

func (m *memStore) UpdateInstrumentPrice(_ context.Context, inst Instrument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.instruments[inst.ID]
	if !ok {
		return ErrNotFound
	}
	*cur = inst
	return nil
}

func (m *memStore) InsertCandle(_ context.Context, c Candle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candles[c.InstrumentID] = append(m.candles[c.InstrumentID], c)
	return nil
}

func (m *memStore) SetCompanyMarketCap(_ context.Context, companyID, marketCapCents int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[companyID]
	if !ok {
		return ErrNotFound
	}
	c.MarketCapCents = marketCapCents
	return nil
}

func (m *memStore) CountInstruments(_ context.Context, kind AssetKind) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, inst := range m.instruments {
		if inst.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (m *memStore) InsertInstrument(_ context.Context, inst Instrument) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst.ID = m.id()
	m.instruments[inst.ID] = &inst
	return inst.ID, nil
}

func (m *memStore) ActiveLoans(_ context.Context, cursor Cursor, limit int) ([]Loan, Cursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []Loan
	for _, ln := range m.loans {
		if ln.Status == LoanActive {
			all = append(all, *ln)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].LastInterestApplied.Equal(all[j].LastInterestApplied) {
			return all[i].LastInterestApplied.Before(all[j].LastInterestApplied)
		}
		return all[i].ID < all[j].ID
	})

	afterTS, afterID, ok := decodeMemCursor(cursor)
	var out []Loan
	for _, ln := range all {
		if ok && !memCursorAfter(ln.LastInterestApplied, strconv.FormatInt(ln.ID, 10), afterTS, afterID) {
			continue
		}
		out = append(out, ln)
		if len(out) == limit {
			break
		}
	}
	var next Cursor
	if len(out) == limit {
		last := out[len(out)-1]
		next = encodeMemCursor(last.LastInterestApplied, strconv.FormatInt(last.ID, 10))
	}
	return out, next, nil
}

func (m *memStore) ApplyLoanInterest(_ context.Context, loanID int64, interestCents int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ln, ok := m.loans[loanID]
	if !ok {
		return ErrNotFound
	}
	ln.RemainingCents += interestCents
	ln.AccruedInterestCents += interestCents
	ln.LastInterestApplied = at
	if pl, ok := m.players[ln.PlayerID]; ok {
		pl.BalanceCents -= interestCents
	}
	return nil
}

func (m *memStore) PlayersByOldestNetWorth(_ context.Context, cursor Cursor, limit int) ([]Player, Cursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []Player
	for _, pl := range m.players {
		all = append(all, *pl)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].LastNetWorthUpdate.Equal(all[j].LastNetWorthUpdate) {
			return all[i].LastNetWorthUpdate.Before(all[j].LastNetWorthUpdate)
		}
		return all[i].ID < all[j].ID
	})

	afterTS, afterID, ok := decodeMemCursor(cursor)
	var out []Player
	for _, pl := range all {
		if ok && !memCursorAfter(pl.LastNetWorthUpdate, pl.ID, afterTS, afterID) {
			continue
		}
		out = append(out, pl)
		if len(out) == limit {
			break
		}
	}
	var next Cursor
	if len(out) == limit {
		last := out[len(out)-1]
		next = encodeMemCursor(last.LastNetWorthUpdate, last.ID)
	}
	return out, next, nil
}

func (m *memStore) PlayerHoldings(_ context.Context, playerID string, kind AssetKind, limit int) ([]HoldingValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failHoldings {
		return nil, fmt.Errorf("memstore: holdings unavailable")
	}
	var out []HoldingValue
	for _, h := range m.holdings[playerID] {
		inst, ok := m.instruments[h.InstrumentID]
		if !ok || inst.Kind != kind {
			continue
		}
		h.PriceCents = inst.CurrentPriceCents
		out = append(out, h)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) PlayerCompanies(_ context.Context, playerID string, limit int) ([]Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Company
	for _, c := range m.companies {
		if c.OwnerID == playerID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) PlayerActiveLoans(_ context.Context, playerID string, limit int) ([]Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Loan
	for _, ln := range m.loans {
		if ln.PlayerID == playerID && ln.Status == LoanActive {
			out = append(out, *ln)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) SetPlayerNetWorth(_ context.Context, playerID string, netWorthCents int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pl, ok := m.players[playerID]
	if !ok {
		return ErrNotFound
	}
	pl.NetWorthCents = netWorthCents
	pl.LastNetWorthUpdate = at
	return nil
}

func encodeMemCursor(ts time.Time, id string) Cursor {
	return Cursor(ts.UTC().Format(time.RFC3339Nano) + "|" + id)
}

func decodeMemCursor(c Cursor) (time.Time, string, bool) {
	if c == "" {
		return time.Time{}, "", false
	}
	parts := strings.SplitN(string(c), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", false
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", false
	}
	return ts, parts[1], true
}

// memCursorAfter reports whether (ts, id) sorts strictly after the cursor
// position.
func memCursorAfter(ts time.Time, id string, afterTS time.Time, afterID string) bool {
	if ts.After(afterTS) {
		return true
	}
	if ts.Equal(afterTS) {
		return id > afterID
	}
	return false
}

var _ Store = (*memStore)(nil)

// newTestEngine wires an Engine to the in-memory store with a deterministic
// clock and random source.
func newTestEngine(store Store, params Params) (*Engine, *lease.Memory) {
	ls := lease.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := New(store, ls, logger, params)
	e.rng = rand.New(rand.NewSource(7))
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	e.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}
	return e, ls
}

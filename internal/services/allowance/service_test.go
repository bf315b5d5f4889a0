package allowance

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	pgrepo "github.com/Douba03/Datingapp-sub001/internal/repo/postgres"
)

type counterStoreStub struct {
	record pgrepo.AllowanceRecord

	ensureCalls  int
	refillCalls  int
	refillResult bool
	refillErr    error

	consumeCalls   int
	consumeErr     error
	lastConsumeAt  time.Time
	lastRefillAt   time.Time
	consumedRecord *pgrepo.AllowanceRecord
	callOrder      []string
}

func (s *counterStoreStub) EnsureExists(_ context.Context, _ pgx.Tx, _ int64, _ int, _ time.Time) error {
	s.ensureCalls++
	return nil
}

func (s *counterStoreStub) Refill(_ context.Context, _ pgx.Tx, _ int64, full int, _ time.Time) (bool, error) {
	s.refillCalls++
	s.callOrder = append(s.callOrder, "refill")
	if s.refillErr != nil {
		return false, s.refillErr
	}
	if s.refillResult {
		s.record.Remaining = full
		s.record.LastExhaustedAt = nil
		s.record.NextRefillAt = nil
	}
	return s.refillResult, nil
}

func (s *counterStoreStub) Consume(_ context.Context, _ pgx.Tx, _ int64, now, refillAt time.Time) (pgrepo.AllowanceRecord, error) {
	s.consumeCalls++
	s.callOrder = append(s.callOrder, "consume")
	s.lastConsumeAt = now
	s.lastRefillAt = refillAt
	if s.consumeErr != nil {
		return pgrepo.AllowanceRecord{}, s.consumeErr
	}
	s.record.Remaining--
	if s.record.Remaining == 0 {
		exhausted := now
		deadline := refillAt
		s.record.LastExhaustedAt = &exhausted
		s.record.NextRefillAt = &deadline
	}
	rec := s.record
	s.consumedRecord = &rec
	return rec, nil
}

func (s *counterStoreStub) Get(_ context.Context, _ pgx.Tx, _ int64) (pgrepo.AllowanceRecord, error) {
	return s.record, nil
}

func newTestManager(store CounterStore, full int, period time.Duration, now time.Time) *Manager {
	m := NewManager(nil, store, Config{FullAllowance: full, RefillPeriod: period})
	m.now = func() time.Time { return now }
	return m
}

func TestTryConsumeDecrementsWithoutExhaustion(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	store := &counterStoreStub{record: pgrepo.AllowanceRecord{UserID: 7, Remaining: 5}}
	m := newTestManager(store, 10, 12*time.Hour, now)

	allowed, counter, err := m.TryConsumeTx(context.Background(), nil, 7)
	if err != nil {
		t.Fatalf("try consume: %v", err)
	}
	if !allowed {
		t.Fatalf("expected consume to be allowed")
	}
	if counter.Remaining != 4 {
		t.Fatalf("unexpected remaining: %d", counter.Remaining)
	}
	if counter.LastExhaustedAt != nil || counter.NextRefillAt != nil {
		t.Fatalf("non-last unit must not set exhaustion timestamps: %+v", counter)
	}
	if store.ensureCalls != 1 || store.refillCalls != 0 || store.consumeCalls != 1 {
		t.Fatalf("unexpected store calls: ensure=%d refill=%d consume=%d",
			store.ensureCalls, store.refillCalls, store.consumeCalls)
	}
}

func TestTryConsumeLastUnitSetsExhaustionAtomically(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	store := &counterStoreStub{record: pgrepo.AllowanceRecord{UserID: 7, Remaining: 1}}
	m := newTestManager(store, 10, 12*time.Hour, now)

	allowed, counter, err := m.TryConsumeTx(context.Background(), nil, 7)
	if err != nil {
		t.Fatalf("try consume: %v", err)
	}
	if !allowed {
		t.Fatalf("expected last unit to be consumable")
	}
	if counter.Remaining != 0 {
		t.Fatalf("unexpected remaining: %d", counter.Remaining)
	}
	if counter.LastExhaustedAt == nil || !counter.LastExhaustedAt.Equal(now) {
		t.Fatalf("unexpected last_exhausted_at: %v", counter.LastExhaustedAt)
	}
	want := now.Add(12 * time.Hour)
	if counter.NextRefillAt == nil || !counter.NextRefillAt.Equal(want) {
		t.Fatalf("unexpected next_refill_at: got %v want %v", counter.NextRefillAt, want)
	}
	if !store.lastRefillAt.Equal(want) {
		t.Fatalf("deadline passed to store mismatch: %v", store.lastRefillAt)
	}
}

func TestTryConsumeRefusesWhenExhausted(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	deadline := now.Add(3 * time.Hour)
	exhausted := now.Add(-9 * time.Hour)
	store := &counterStoreStub{
		record: pgrepo.AllowanceRecord{
			UserID:          7,
			Remaining:       0,
			LastExhaustedAt: &exhausted,
			NextRefillAt:    &deadline,
		},
		consumeErr: pgrepo.ErrAllowanceExhausted,
	}
	m := newTestManager(store, 10, 12*time.Hour, now)

	allowed, counter, err := m.TryConsumeTx(context.Background(), nil, 7)
	if err != nil {
		t.Fatalf("try consume: %v", err)
	}
	if allowed {
		t.Fatalf("expected refusal while exhausted")
	}
	if counter.Remaining != 0 {
		t.Fatalf("unexpected remaining: %d", counter.Remaining)
	}
	if counter.NextRefillAt == nil || !counter.NextRefillAt.Equal(deadline) {
		t.Fatalf("refusal must carry the refill deadline: %v", counter.NextRefillAt)
	}
	if store.refillCalls != 0 {
		t.Fatalf("refill must not be attempted before the deadline, got %d calls", store.refillCalls)
	}
}

func TestTryConsumeRefillsThenConsumes(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	deadline := now.Add(-time.Minute)
	exhausted := now.Add(-13 * time.Hour)
	store := &counterStoreStub{
		record: pgrepo.AllowanceRecord{
			UserID:          7,
			Remaining:       0,
			LastExhaustedAt: &exhausted,
			NextRefillAt:    &deadline,
		},
		refillResult: true,
	}
	m := newTestManager(store, 10, 12*time.Hour, now)

	allowed, counter, err := m.TryConsumeTx(context.Background(), nil, 7)
	if err != nil {
		t.Fatalf("try consume: %v", err)
	}
	if !allowed {
		t.Fatalf("a due refill must make the exhausted counter consumable again")
	}
	if counter.Remaining != 9 {
		t.Fatalf("expected refill to full then one consume, got remaining=%d", counter.Remaining)
	}
	if counter.LastExhaustedAt != nil || counter.NextRefillAt != nil {
		t.Fatalf("counter above zero must carry no exhaustion timestamps: %+v", counter)
	}
	if len(store.callOrder) != 2 || store.callOrder[0] != "refill" || store.callOrder[1] != "consume" {
		t.Fatalf("refill must precede consume, got %v", store.callOrder)
	}
}

func TestCheckAndRefillResetsWhenDue(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	deadline := now.Add(-time.Minute)
	exhausted := now.Add(-13 * time.Hour)
	store := &counterStoreStub{
		record: pgrepo.AllowanceRecord{
			UserID:          7,
			Remaining:       0,
			LastExhaustedAt: &exhausted,
			NextRefillAt:    &deadline,
		},
		refillResult: true,
	}
	m := newTestManager(store, 10, 12*time.Hour, now)

	counter, err := m.CheckAndRefillTx(context.Background(), nil, 7)
	if err != nil {
		t.Fatalf("check and refill: %v", err)
	}
	if counter.Remaining != 10 {
		t.Fatalf("expected hard reset to full allowance, got %d", counter.Remaining)
	}
	if counter.LastExhaustedAt != nil || counter.NextRefillAt != nil {
		t.Fatalf("refill must clear both timestamps: %+v", counter)
	}
}

func TestCheckAndRefillIsIdempotentOnceReset(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	// A concurrent caller already performed the reset: the counter is
	// full again and no further refill attempt is made.
	store := &counterStoreStub{
		record:       pgrepo.AllowanceRecord{UserID: 7, Remaining: 10},
		refillResult: false,
	}
	m := newTestManager(store, 10, 12*time.Hour, now)

	counter, err := m.CheckAndRefillTx(context.Background(), nil, 7)
	if err != nil {
		t.Fatalf("check and refill: %v", err)
	}
	if counter.Remaining != 10 {
		t.Fatalf("unexpected remaining: %d", counter.Remaining)
	}
	if store.refillCalls != 0 {
		t.Fatalf("full counter must not trigger a refill attempt, got %d calls", store.refillCalls)
	}
}

func TestTryConsumeRejectsInvalidUser(t *testing.T) {
	m := newTestManager(&counterStoreStub{}, 10, 12*time.Hour, time.Now().UTC())

	if _, _, err := m.TryConsumeTx(context.Background(), nil, 0); err != ErrValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

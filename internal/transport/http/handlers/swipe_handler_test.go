package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Douba03/Datingapp-sub001/internal/domain/model"
	pgrepo "github.com/Douba03/Datingapp-sub001/internal/repo/postgres"
	authsvc "github.com/Douba03/Datingapp-sub001/internal/services/auth"
	matchessvc "github.com/Douba03/Datingapp-sub001/internal/services/matches"
	swipesvc "github.com/Douba03/Datingapp-sub001/internal/services/swipes"
)

type gateStub struct{}

func (gateStub) TryConsumeTx(context.Context, pgx.Tx, int64) (bool, model.AllowanceCounter, error) {
	return true, model.AllowanceCounter{Remaining: 9}, nil
}

type ledgerStub struct{}

func (ledgerStub) Create(_ context.Context, _ pgx.Tx, swiperUserID, targetUserID int64, action string, now time.Time) (pgrepo.SwipeRecord, error) {
	return pgrepo.SwipeRecord{ID: 1, SwiperUserID: swiperUserID, TargetUserID: targetUserID, Action: action, CreatedAt: now}, nil
}

type noMatchStub struct{}

func (noMatchStub) DetectAndFormMatch(context.Context, pgx.Tx, int64, int64) (matchessvc.Result, error) {
	return matchessvc.Result{}, nil
}

type blockedLimiterStub struct{}

func (blockedLimiterStub) AllowSwipe(context.Context, int64) (int64, bool, error) {
	return 12, false, nil
}

func newSwipeRequest(t *testing.T, userID int64, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/swipe", strings.NewReader(body))
	if userID > 0 {
		ctx := authsvc.WithIdentity(req.Context(), authsvc.Identity{UserID: userID})
		req = req.WithContext(ctx)
	}
	return req
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	return payload.Code
}

func TestSwipeHandlerRequiresAuth(t *testing.T) {
	handler := NewSwipeHandler(swipesvc.NewService(swipesvc.Dependencies{
		Allowance:  gateStub{},
		SwipeStore: ledgerStub{},
		Detector:   noMatchStub{},
	}))

	rec := httptest.NewRecorder()
	handler.Handle(rec, newSwipeRequest(t, 0, `{"target_id":2,"action":"LIKE"}`))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "UNAUTHORIZED" {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestSwipeHandlerRejectsBadBody(t *testing.T) {
	handler := NewSwipeHandler(swipesvc.NewService(swipesvc.Dependencies{
		Allowance:  gateStub{},
		SwipeStore: ledgerStub{},
		Detector:   noMatchStub{},
	}))

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{"target_id":`},
		{"unknown field", `{"target_id":2,"action":"LIKE","boost":true}`},
		{"missing action", `{"target_id":2}`},
		{"missing target", `{"action":"LIKE"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.Handle(rec, newSwipeRequest(t, 1, tc.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("unexpected status: %d", rec.Code)
			}
			if code := decodeErrorCode(t, rec); code != "VALIDATION_ERROR" {
				t.Fatalf("unexpected code: %s", code)
			}
		})
	}
}

func TestSwipeHandlerUnsupportedAction(t *testing.T) {
	handler := NewSwipeHandler(swipesvc.NewService(swipesvc.Dependencies{
		Allowance:  gateStub{},
		SwipeStore: ledgerStub{},
		Detector:   noMatchStub{},
	}))

	rec := httptest.NewRecorder()
	handler.Handle(rec, newSwipeRequest(t, 1, `{"target_id":2,"action":"WINK"}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestSwipeHandlerTooFast(t *testing.T) {
	handler := NewSwipeHandler(swipesvc.NewService(swipesvc.Dependencies{
		Allowance:   gateStub{},
		SwipeStore:  ledgerStub{},
		Detector:    noMatchStub{},
		RateLimiter: blockedLimiterStub{},
	}))

	rec := httptest.NewRecorder()
	handler.Handle(rec, newSwipeRequest(t, 1, `{"target_id":2,"action":"LIKE"}`))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var payload struct {
		Code          string `json:"code"`
		RetryAfterSec int64  `json:"retry_after_sec"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Code != "TOO_FAST" || payload.RetryAfterSec != 12 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestSwipeHandlerStoreUnavailable(t *testing.T) {
	// No pool wired: the transaction runner refuses before touching
	// any store.
	handler := NewSwipeHandler(swipesvc.NewService(swipesvc.Dependencies{
		Allowance:  gateStub{},
		SwipeStore: ledgerStub{},
		Detector:   noMatchStub{},
	}))

	rec := httptest.NewRecorder()
	handler.Handle(rec, newSwipeRequest(t, 1, `{"target_id":2,"action":"LIKE"}`))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "STORE_UNAVAILABLE" {
		t.Fatalf("unexpected code: %s", code)
	}
}

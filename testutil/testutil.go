// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/quota-vote/auth"
	"github.com/danielhkuo/quota-vote/cliparse"
	"github.com/danielhkuo/quota-vote/db"
	"github.com/danielhkuo/quota-vote/models"
	"github.com/danielhkuo/quota-vote/store"
)

// SetupTestDB opens a fresh SQLite database file with the full schema
func SetupTestDB(t *testing.T) *db.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "quota-vote.db")
	st, err := db.Open(context.Background(), db.TypeSQLite, path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return st
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:                      3318,
		DatabaseURL:               "file:test.db",
		DatabaseType:              db.TypeSQLite,
		SessionSecret:             "test-session-secret",
		SessionTTL:                time.Hour,
		IPHashSalt:                "test-ip-salt",
		LogLevel:                  "error",
		VoteMaxAttempts:           3,
		VoteTimeout:               5 * time.Second,
		ObserverQueueSize:         16,
		OrderGapTimeout:           50 * time.Millisecond,
		SessionRevalidateInterval: time.Minute,
		WSPingInterval:            time.Minute,
		ExpirySweepInterval:       time.Minute,
	}
}

// Clock is a settable clock for lifecycle tests
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now.UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now.UTC()
	c.mu.Unlock()
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// CreateTestCampaign creates a campaign ending in one hour.
// state should be "created", "enabled", or "closed"; enabled and closed
// campaigns started a minute ago
func CreateTestCampaign(t *testing.T, st store.Store, state string, candidates ...string) models.Campaign {
	t.Helper()

	now := time.Now().UTC()
	var start *time.Time
	if state != models.StateCreated {
		s := now.Add(-time.Minute)
		start = &s
	}
	return CreateTestCampaignWindow(t, st, state, start, now.Add(time.Hour), candidates...)
}

// CreateTestCampaignWindow creates a campaign with an explicit time window
func CreateTestCampaignWindow(t *testing.T, st store.Store, state string, start *time.Time, end time.Time, candidates ...string) models.Campaign {
	t.Helper()
	ctx := context.Background()

	c := models.Campaign{
		ID:          auth.NewID(),
		Title:       "Test Campaign",
		Description: "A test campaign",
		State:       state,
		StartTime:   start,
		EndTime:     end.UTC(),
		CreatedAt:   time.Now().UTC(),
	}

	var created models.Campaign
	err := store.Transact(ctx, st, 1, func(tx store.Tx) error {
		if err := tx.InsertCampaign(ctx, c); err != nil {
			return err
		}
		for _, name := range candidates {
			if err := tx.InsertCandidate(ctx, models.Candidate{ID: auth.NewID(), CampaignID: c.ID, Name: name}); err != nil {
				return err
			}
		}
		var err error
		created, err = tx.CampaignWithCandidates(ctx, c.ID)
		return err
	})
	if err != nil {
		t.Fatalf("Failed to create test campaign: %v", err)
	}

	return created
}

// CreateTestElector creates an elector with the given quota
func CreateTestElector(t *testing.T, st store.Store, quota int, active bool) models.Elector {
	t.Helper()
	ctx := context.Background()

	id := auth.NewID()
	e := models.Elector{
		ID:        id,
		Code:      "E-" + id[:8],
		Name:      "Elector " + id[:8],
		Quota:     quota,
		Active:    active,
		CreatedAt: time.Now().UTC(),
	}
	err := store.Transact(ctx, st, 1, func(tx store.Tx) error {
		return tx.InsertElector(ctx, e)
	})
	if err != nil {
		t.Fatalf("Failed to create test elector: %v", err)
	}

	return e
}

// Sessions returns the session signer for cfg
func Sessions(t *testing.T, cfg cliparse.Config) *auth.Sessions {
	t.Helper()
	sessions, err := auth.NewSessions(cfg.SessionSecret)
	if err != nil {
		t.Fatalf("Failed to create sessions: %v", err)
	}
	return sessions
}

// ElectorToken issues an elector session token
func ElectorToken(t *testing.T, cfg cliparse.Config, electorID string) string {
	t.Helper()
	token, err := Sessions(t, cfg).Issue(models.RoleElector, electorID, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue elector token: %v", err)
	}
	return token
}

// AdminToken issues an admin session token
func AdminToken(t *testing.T, cfg cliparse.Config) string {
	t.Helper()
	token, err := Sessions(t, cfg).Issue(models.RoleAdmin, "", time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue admin token: %v", err)
	}
	return token
}

// BearerHeader builds the Authorization header map for MakeRequest
func BearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// CheckInvariants verifies that the campaign total equals the candidate
// tallies and the ledger, and that every ledger entry matches its ballots
// and stays within quota
func CheckInvariants(t *testing.T, st *db.Store, campaignID string) {
	t.Helper()
	conn := st.DB()

	var total, candidateSum, ledgerSum int64
	if err := conn.QueryRow(`SELECT total_votes FROM campaign WHERE id = ?`, campaignID).Scan(&total); err != nil {
		t.Fatalf("Failed to read campaign total: %v", err)
	}
	if err := conn.QueryRow(`SELECT COALESCE(SUM(vote_count), 0) FROM candidate WHERE campaign_id = ?`, campaignID).Scan(&candidateSum); err != nil {
		t.Fatalf("Failed to sum candidate tallies: %v", err)
	}
	if err := conn.QueryRow(`SELECT COALESCE(SUM(consumed), 0) FROM quota_ledger WHERE campaign_id = ?`, campaignID).Scan(&ledgerSum); err != nil {
		t.Fatalf("Failed to sum ledger: %v", err)
	}
	if total != candidateSum || total != ledgerSum {
		t.Errorf("Tally mismatch: total_votes=%d candidates=%d ledger=%d", total, candidateSum, ledgerSum)
	}

	type entry struct {
		electorID       string
		consumed, quota int
	}
	var entries []entry
	rows, err := conn.Query(`
		SELECT l.elector_id, l.consumed, e.quota
		FROM quota_ledger l JOIN elector e ON e.id = l.elector_id
		WHERE l.campaign_id = ?
	`, campaignID)
	if err != nil {
		t.Fatalf("Failed to read ledger: %v", err)
	}
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.electorID, &e.consumed, &e.quota); err != nil {
			rows.Close()
			t.Fatalf("Failed to scan ledger: %v", err)
		}
		entries = append(entries, e)
	}
	rows.Close()

	// the SQLite test store has a single connection, so count after the
	// ledger rows are released
	for _, e := range entries {
		if e.consumed > e.quota {
			t.Errorf("Elector %s consumed %d votes over quota %d", e.electorID, e.consumed, e.quota)
		}
		if ballots := CountBallots(t, st, campaignID, e.electorID); e.consumed != ballots {
			t.Errorf("Elector %s ledger=%d but ballots=%d", e.electorID, e.consumed, ballots)
		}
	}
}

// CountBallots returns the number of ballots for a campaign and elector
func CountBallots(t *testing.T, st store.Store, campaignID, electorID string) int {
	t.Helper()
	ctx := context.Background()
	var n int
	err := store.Transact(ctx, st, 1, func(tx store.Tx) error {
		var err error
		n, err = tx.CountBallots(ctx, campaignID, electorID)
		return err
	})
	if err != nil {
		t.Fatalf("Failed to count ballots: %v", err)
	}
	return n
}

// RecordingPublisher collects published events
type RecordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *RecordingPublisher) Publish(ev models.Event) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *RecordingPublisher) Events() []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Event(nil), p.events...)
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// AssertErrorCode checks the code field of a JSON error response
func AssertErrorCode(t *testing.T, w *httptest.ResponseRecorder, code string) {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error response: %v. Body: %s", err, w.Body.String())
	}
	if resp.Code != code {
		t.Errorf("Expected error code %s, got %s (%s)", code, resp.Code, resp.Message)
	}
}

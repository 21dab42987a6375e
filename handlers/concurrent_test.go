// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/quota-vote/models"
	"github.com/danielhkuo/quota-vote/testutil"
)

// TestConcurrentVotesRespectQuota verifies that simultaneous votes from
// one elector never spend more than its quota
func TestConcurrentVotesRespectQuota(t *testing.T) {
	env := newTestEnv(t)
	handler := NewVotingHandler(env.coord)

	c := testutil.CreateTestCampaign(t, env.st, models.StateEnabled, "Ana", "Luis")
	e := testutil.CreateTestElector(t, env.st, 3, true)

	numRequests := 10
	var successCount, exhaustedCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			body := models.CastVoteRequest{CampaignID: c.ID, CandidateID: c.Candidates[i%2].ID}
			req := asElector(testutil.MakeRequest("POST", "/votes", body, nil), e.ID)
			w := httptest.NewRecorder()

			handler.CastVote(w, req)

			switch w.Code {
			case http.StatusOK:
				successCount.Add(1)
			case http.StatusBadRequest:
				exhaustedCount.Add(1)
			case http.StatusConflict:
				// retry budget spent; not counted
			default:
				t.Errorf("Request %d: unexpected status %d: %s", i, w.Code, w.Body.String())
			}
		}(i)
	}

	wg.Wait()

	if successCount.Load() != 3 {
		t.Errorf("Expected exactly 3 successful votes, got %d", successCount.Load())
	}
	if n := testutil.CountBallots(t, env.st, c.ID, e.ID); n != 3 {
		t.Errorf("Expected 3 ballots, got %d", n)
	}
	testutil.CheckInvariants(t, env.st, c.ID)
}

// TestConcurrentElectors verifies tallies stay consistent when many
// electors vote at once
func TestConcurrentElectors(t *testing.T) {
	env := newTestEnv(t)
	handler := NewVotingHandler(env.coord)

	c := testutil.CreateTestCampaign(t, env.st, models.StateEnabled, "Ana", "Luis", "Mei")

	numElectors := 5
	electors := make([]models.Elector, numElectors)
	for i := range electors {
		electors[i] = testutil.CreateTestElector(t, env.st, 2, true)
	}

	var wg sync.WaitGroup
	for i, e := range electors {
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(e models.Elector, candidate models.Candidate) {
				defer wg.Done()

				body := models.CastVoteRequest{CampaignID: c.ID, CandidateID: candidate.ID}
				req := asElector(testutil.MakeRequest("POST", "/votes", body, nil), e.ID)
				w := httptest.NewRecorder()

				handler.CastVote(w, req)

				if w.Code != http.StatusOK {
					t.Errorf("Elector %s: expected 200, got %d: %s", e.ID, w.Code, w.Body.String())
				}
			}(e, c.Candidates[(i+j)%3])
		}
	}

	wg.Wait()

	got, err := env.svc.Get(t.Context(), c.ID)
	if err != nil {
		t.Fatalf("Failed to load campaign: %v", err)
	}
	if got.TotalVotes != int64(numElectors*2) {
		t.Errorf("Expected %d total votes, got %d", numElectors*2, got.TotalVotes)
	}
	testutil.CheckInvariants(t, env.st, c.ID)
}

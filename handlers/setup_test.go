// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"testing"

	"github.com/danielhkuo/quota-vote/broadcast"
	"github.com/danielhkuo/quota-vote/campaign"
	"github.com/danielhkuo/quota-vote/cliparse"
	"github.com/danielhkuo/quota-vote/db"
	"github.com/danielhkuo/quota-vote/middleware"
	"github.com/danielhkuo/quota-vote/models"
	"github.com/danielhkuo/quota-vote/testutil"
	"github.com/danielhkuo/quota-vote/vote"
)

type testEnv struct {
	st    *db.Store
	cfg   cliparse.Config
	hub   *broadcast.Hub
	svc   *campaign.Service
	coord *vote.Coordinator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	hub := broadcast.NewHub(broadcast.Options{})
	t.Cleanup(hub.Close)

	machine := campaign.NewMachine(nil)
	return &testEnv{
		st:  st,
		cfg: cfg,
		hub: hub,
		svc: campaign.NewService(st, machine, hub, cfg.VoteMaxAttempts),
		coord: vote.NewCoordinator(st, machine, hub, vote.Options{
			Attempts:   cfg.VoteMaxAttempts,
			Timeout:    cfg.VoteTimeout,
			IPHashSalt: cfg.IPHashSalt,
		}),
	}
}

// asElector attaches an elector session the way RequireElector would
func asElector(req *http.Request, electorID string) *http.Request {
	return req.WithContext(middleware.WithSession(req.Context(), models.Session{
		Subject:   electorID,
		Role:      models.RoleElector,
		ElectorID: electorID,
	}))
}

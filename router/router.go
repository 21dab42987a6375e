// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"fmt"
	"net/http"

	"github.com/danielhkuo/quota-vote/auth"
	"github.com/danielhkuo/quota-vote/broadcast"
	"github.com/danielhkuo/quota-vote/campaign"
	"github.com/danielhkuo/quota-vote/cliparse"
	"github.com/danielhkuo/quota-vote/handlers"
	"github.com/danielhkuo/quota-vote/middleware"
	"github.com/danielhkuo/quota-vote/store"
	"github.com/danielhkuo/quota-vote/vote"
)

// Deps are the long-lived components routes are served from
type Deps struct {
	Store     store.Store
	Hub       *broadcast.Hub
	Campaigns *campaign.Service
	Votes     *vote.Coordinator
	Sessions  *auth.Sessions
	Config    cliparse.Config
}

// NewDeps wires the campaign service and vote coordinator to st and hub
func NewDeps(st store.Store, hub *broadcast.Hub, clock campaign.Clock, cfg cliparse.Config) (Deps, error) {
	sessions, err := auth.NewSessions(cfg.SessionSecret)
	if err != nil {
		return Deps{}, fmt.Errorf("sessions: %w", err)
	}

	machine := campaign.NewMachine(clock)
	return Deps{
		Store:     st,
		Hub:       hub,
		Campaigns: campaign.NewService(st, machine, hub, cfg.VoteMaxAttempts),
		Votes: vote.NewCoordinator(st, machine, hub, vote.Options{
			Attempts:   cfg.VoteMaxAttempts,
			Timeout:    cfg.VoteTimeout,
			IPHashSalt: cfg.IPHashSalt,
		}),
		Sessions: sessions,
		Config:   cfg,
	}, nil
}

func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()
	cfg := d.Config

	// Initialize handlers
	campaignHandler := handlers.NewCampaignHandler(d.Campaigns)
	votingHandler := handlers.NewVotingHandler(d.Votes)
	electorHandler := handlers.NewElectorHandler(d.Store, d.Sessions, cfg.SessionTTL, cfg.VoteMaxAttempts)
	wsHandler := handlers.NewWebSocketHandler(d.Hub, d.Campaigns, d.Sessions, d.Store, handlers.WebSocketOptions{
		PingInterval:       cfg.WSPingInterval,
		RevalidateInterval: cfg.SessionRevalidateInterval,
		Attempts:           cfg.VoteMaxAttempts,
	})

	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAdmin(d.Sessions, h))
	}
	elector := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireElector(d.Sessions, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Campaign administration
	mux.HandleFunc("POST /admin/campaigns", admin(campaignHandler.CreateCampaign))
	mux.HandleFunc("PUT /admin/campaigns/{id}", admin(campaignHandler.UpdateCampaign))
	mux.HandleFunc("DELETE /admin/campaigns/{id}", admin(campaignHandler.DeleteCampaign))
	mux.HandleFunc("POST /admin/campaigns/{id}/candidates", admin(campaignHandler.AddCandidate))
	mux.HandleFunc("PUT /admin/campaigns/{id}/candidates/{candidateId}", admin(campaignHandler.UpdateCandidate))
	mux.HandleFunc("DELETE /admin/campaigns/{id}/candidates/{candidateId}", admin(campaignHandler.RemoveCandidate))
	mux.HandleFunc("POST /admin/campaigns/{id}/enable", admin(campaignHandler.EnableCampaign))
	mux.HandleFunc("POST /admin/campaigns/{id}/close", admin(campaignHandler.CloseCampaign))
	mux.HandleFunc("POST /admin/campaigns/{id}/reopen", admin(campaignHandler.ReopenCampaign))

	// Elector administration
	mux.HandleFunc("POST /admin/electors", admin(electorHandler.CreateElector))
	mux.HandleFunc("GET /admin/electors", admin(electorHandler.ListElectors))
	mux.HandleFunc("GET /admin/electors/{id}", admin(electorHandler.GetElector))
	mux.HandleFunc("PUT /admin/electors/{id}/active", admin(electorHandler.SetElectorActive))
	mux.HandleFunc("POST /admin/electors/{id}/session", admin(electorHandler.IssueSession))
	mux.HandleFunc("GET /admin/campaigns/{id}/electors", admin(electorHandler.CampaignUsage))

	// Public reads
	mux.HandleFunc("GET /campaigns", middleware.WithLogging(campaignHandler.ListCampaigns))
	mux.HandleFunc("GET /campaigns/{id}", middleware.WithLogging(campaignHandler.GetCampaign))

	// Voting (elector session)
	mux.HandleFunc("POST /votes", elector(votingHandler.CastVote))
	mux.HandleFunc("GET /votes/remaining/{campaignId}", elector(votingHandler.GetRemainingVotes))

	// Live tallies
	mux.HandleFunc("GET /ws", middleware.WithLogging(wsHandler.ServeWS))
	mux.HandleFunc("GET /ws/stats", admin(wsHandler.GetStats))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("quota-vote API v1"))
	})

	return mux
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"

	"github.com/danielhkuo/quota-vote/models"
	"github.com/danielhkuo/quota-vote/store"
	"github.com/danielhkuo/quota-vote/testutil"
	"github.com/danielhkuo/quota-vote/vote"
)

func newWSServer(t *testing.T, env *testEnv, opts WebSocketOptions) (*WebSocketHandler, *httptest.Server) {
	t.Helper()

	handler := NewWebSocketHandler(env.hub, env.svc, testutil.Sessions(t, env.cfg), env.st, opts)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", handler.ServeWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return handler, srv
}

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame models.ClientFrame) {
	t.Helper()
	if err := websocket.JSON.Send(conn, frame); err != nil {
		t.Fatalf("Failed to send %s frame: %v", frame.Type, err)
	}
}

func receive(t *testing.T, conn *websocket.Conn) models.ServerFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame models.ServerFrame
	if err := websocket.JSON.Receive(conn, &frame); err != nil {
		t.Fatalf("Failed to receive frame: %v", err)
	}
	return frame
}

func TestWebSocket_SubscribeAndReceiveVotes(t *testing.T) {
	env := newTestEnv(t)
	handler, srv := newWSServer(t, env, WebSocketOptions{})

	c := testutil.CreateTestCampaign(t, env.st, models.StateEnabled, "Ana", "Luis")
	e := testutil.CreateTestElector(t, env.st, 2, true)
	conn := dialWS(t, srv, testutil.ElectorToken(t, env.cfg, e.ID))

	send(t, conn, models.ClientFrame{Type: FrameSubscribe, CampaignID: c.ID})
	ack := receive(t, conn)
	if ack.Type != FrameSubscribed || ack.CampaignID != c.ID {
		t.Fatalf("Expected subscribed ack for %s, got %+v", c.ID, ack)
	}
	if ack.Data == nil {
		t.Error("Expected campaign snapshot in ack")
	}

	stats := httptest.NewRecorder()
	handler.GetStats(stats, httptest.NewRequest("GET", "/ws/stats", nil))
	var connStats models.ConnectionStats
	testutil.AssertJSON(t, stats, &connStats)
	if connStats.TotalConnections != 1 || connStats.TotalCampaigns != 1 {
		t.Errorf("Expected 1 connection on 1 campaign, got %+v", connStats)
	}

	_, err := env.coord.CastVote(context.Background(), c.ID, e.ID, c.Candidates[1].ID, vote.RequestMeta{IP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("Failed to cast vote: %v", err)
	}

	ev := receive(t, conn)
	if ev.Type != models.EventVoteCast {
		t.Fatalf("Expected vote_cast event, got %+v", ev)
	}
	if ev.Seq != ack.Seq+1 {
		t.Errorf("Expected event seq %d, got %d", ack.Seq+1, ev.Seq)
	}
	data, ok := ev.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected object payload, got %T", ev.Data)
	}
	if data["candidate_id"] != c.Candidates[1].ID {
		t.Errorf("Expected candidate %s, got %v", c.Candidates[1].ID, data["candidate_id"])
	}
	if data["new_total_votes"] != float64(1) {
		t.Errorf("Expected new_total_votes 1, got %v", data["new_total_votes"])
	}

	send(t, conn, models.ClientFrame{Type: FrameUnsubscribe, CampaignID: c.ID})
	if f := receive(t, conn); f.Type != FrameUnsubscribed {
		t.Errorf("Expected unsubscribed, got %+v", f)
	}
}

func TestWebSocket_ReceivesCampaignUpdates(t *testing.T) {
	env := newTestEnv(t)
	_, srv := newWSServer(t, env, WebSocketOptions{})

	c := testutil.CreateTestCampaign(t, env.st, models.StateCreated, "Ana")
	conn := dialWS(t, srv, testutil.AdminToken(t, env.cfg))

	send(t, conn, models.ClientFrame{Type: FrameSubscribe, CampaignID: c.ID})
	ack := receive(t, conn)
	if ack.Type != FrameSubscribed {
		t.Fatalf("Expected subscribed ack, got %+v", ack)
	}

	added, err := env.svc.AddCandidate(context.Background(), c.ID, "Luis")
	if err != nil {
		t.Fatalf("Failed to add candidate: %v", err)
	}
	if _, err := env.svc.UpdateCandidate(context.Background(), c.ID, added.ID, "Luis Miguel"); err != nil {
		t.Fatalf("Failed to rename candidate: %v", err)
	}

	for i, change := range []string{models.ChangeCandidateAdded, models.ChangeCandidateUpdated} {
		ev := receive(t, conn)
		if ev.Type != models.EventCampaignUpdated {
			t.Fatalf("Expected campaign_updated, got %+v", ev)
		}
		if ev.Seq != ack.Seq+int64(i)+1 {
			t.Errorf("Expected seq %d, got %d", ack.Seq+int64(i)+1, ev.Seq)
		}
		data, ok := ev.Data.(map[string]interface{})
		if !ok {
			t.Fatalf("Expected object payload, got %T", ev.Data)
		}
		if data["change"] != change {
			t.Errorf("Expected change %s, got %v", change, data["change"])
		}
		if data["candidate_id"] != added.ID {
			t.Errorf("Expected candidate %s, got %v", added.ID, data["candidate_id"])
		}
	}
}

func TestWebSocket_Frames(t *testing.T) {
	env := newTestEnv(t)
	_, srv := newWSServer(t, env, WebSocketOptions{})
	conn := dialWS(t, srv, testutil.AdminToken(t, env.cfg))

	tests := []struct {
		name         string
		frame        models.ClientFrame
		expectedType string
		expectedCode string
	}{
		{"ping", models.ClientFrame{Type: FramePing}, FramePong, ""},
		{"unknown frame", models.ClientFrame{Type: "shout"}, FrameError, "INVALID_ARGUMENT"},
		{"subscribe without campaign", models.ClientFrame{Type: FrameSubscribe}, FrameError, "INVALID_ARGUMENT"},
		{"subscribe to unknown campaign", models.ClientFrame{Type: FrameSubscribe, CampaignID: "nope"}, FrameError, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, conn, tt.frame)
			got := receive(t, conn)
			if got.Type != tt.expectedType {
				t.Errorf("Expected %s frame, got %+v", tt.expectedType, got)
			}
			if got.Code != tt.expectedCode {
				t.Errorf("Expected code %q, got %q", tt.expectedCode, got.Code)
			}
		})
	}

	// Malformed JSON keeps the connection open
	if _, err := conn.Write([]byte("{not json")); err != nil {
		t.Fatalf("Failed to write raw frame: %v", err)
	}
	if got := receive(t, conn); got.Type != FrameError {
		t.Errorf("Expected error frame for malformed JSON, got %+v", got)
	}
	send(t, conn, models.ClientFrame{Type: FramePing})
	if got := receive(t, conn); got.Type != FramePong {
		t.Errorf("Expected pong after malformed frame, got %+v", got)
	}
}

func TestWebSocket_RequiresSession(t *testing.T) {
	env := newTestEnv(t)
	_, srv := newWSServer(t, env, WebSocketOptions{})
	inactive := testutil.CreateTestElector(t, env.st, 1, false)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"bad token", "?token=garbage", http.StatusUnauthorized},
		{"inactive elector", "?token=" + testutil.ElectorToken(t, env.cfg, inactive.ID), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/ws" + tt.query)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, resp.StatusCode)
			}
		})
	}
}

func TestWebSocket_RevalidationClosesDeactivatedElector(t *testing.T) {
	env := newTestEnv(t)
	_, srv := newWSServer(t, env, WebSocketOptions{RevalidateInterval: 20 * time.Millisecond})

	e := testutil.CreateTestElector(t, env.st, 1, true)
	conn := dialWS(t, srv, testutil.ElectorToken(t, env.cfg, e.ID))

	ctx := context.Background()
	err := store.Transact(ctx, env.st, 1, func(tx store.Tx) error {
		return tx.SetElectorActive(ctx, e.ID, false)
	})
	if err != nil {
		t.Fatalf("Failed to deactivate elector: %v", err)
	}

	got := receive(t, conn)
	if got.Type != FrameError || got.Code != "ELECTOR_NOT_ELIGIBLE" {
		t.Fatalf("Expected ELECTOR_NOT_ELIGIBLE error frame, got %+v", got)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame models.ServerFrame
	if err := websocket.JSON.Receive(conn, &frame); err == nil {
		t.Errorf("Expected connection to close, got %+v", frame)
	}
}

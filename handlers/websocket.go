// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/danielhkuo/quota-vote/apperrors"
	"github.com/danielhkuo/quota-vote/auth"
	"github.com/danielhkuo/quota-vote/broadcast"
	"github.com/danielhkuo/quota-vote/campaign"
	"github.com/danielhkuo/quota-vote/middleware"
	"github.com/danielhkuo/quota-vote/models"
	"github.com/danielhkuo/quota-vote/store"
)

// Client frame types
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
	FramePong        = "pong"
)

// Server frame types besides broadcast events
const (
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FrameError        = "error"
)

const (
	maxDecodeErrorsPerConn = 3
	writeTimeout           = 10 * time.Second
)

// WebSocketOptions tunes keep-alive and session re-validation
type WebSocketOptions struct {
	PingInterval       time.Duration
	RevalidateInterval time.Duration
	Attempts           int
}

type WebSocketHandler struct {
	hub       *broadcast.Hub
	campaigns *campaign.Service
	sessions  middleware.SessionVerifier
	store     store.Store
	opts      WebSocketOptions
}

func NewWebSocketHandler(hub *broadcast.Hub, campaigns *campaign.Service, sessions middleware.SessionVerifier, st store.Store, opts WebSocketOptions) *WebSocketHandler {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	return &WebSocketHandler{
		hub:       hub,
		campaigns: campaigns,
		sessions:  sessions,
		store:     st,
		opts:      opts,
	}
}

// wsPeer serializes writes to one connection
type wsPeer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (p *wsPeer) writeFrame(frame models.ServerFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return websocket.JSON.Send(p.conn, frame)
}

func (p *wsPeer) writeError(campaignID string, err error) error {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.New(apperrors.CodeUnknown, "Internal error")
	}
	return p.writeFrame(models.ServerFrame{
		Type:       FrameError,
		CampaignID: campaignID,
		Code:       string(appErr.Code),
		Message:    appErr.Message,
	})
}

// ServeWS handles GET /ws. The session is checked before the upgrade so
// unauthenticated clients get a plain 401.
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	session, err := h.authorize(r.Context(), token)
	if err != nil {
		slog.Warn("websocket unauthorized", "remote", r.RemoteAddr, "error", err)
		middleware.AppError(w, err)
		return
	}

	websocket.Handler(func(conn *websocket.Conn) {
		h.serve(conn, token, session)
	}).ServeHTTP(w, r)
}

// GetStats handles GET /ws/stats
func (h *WebSocketHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, h.hub.Stats())
}

// authorize verifies the token and, for electors, that the elector may
// still take part
func (h *WebSocketHandler) authorize(ctx context.Context, token string) (models.Session, error) {
	if token == "" {
		return models.Session{}, apperrors.New(apperrors.CodeUnauthorized, "Session token required")
	}
	session, err := h.sessions.Verify(token)
	if err != nil {
		return models.Session{}, err
	}
	if session.Role == models.RoleElector {
		if err := electorActive(ctx, h.store, h.opts.Attempts, session.ElectorID); err != nil {
			return models.Session{}, err
		}
	}
	return session, nil
}

func (h *WebSocketHandler) serve(conn *websocket.Conn, token string, session models.Session) {
	defer conn.Close()

	o := h.hub.Connect()
	defer h.hub.Disconnect(o)

	logger := slog.With("observer_id", o.ID(), "role", session.Role)
	logger.Info("websocket connected")
	defer logger.Info("websocket disconnected", "dropped", o.Dropped())

	ctx, cancel := context.WithCancel(conn.Request().Context())
	defer cancel()

	peer := &wsPeer{conn: conn}
	go h.writeLoop(ctx, conn, peer, o, token, logger)

	decodeErrors := 0
	for {
		var frame models.ClientFrame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			if !isDecodeError(err) {
				return
			}
			decodeErrors++
			_ = peer.writeError("", apperrors.New(apperrors.CodeInvalidArgument, "invalid frame payload"))
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		campaignID := strings.TrimSpace(frame.CampaignID)
		switch frame.Type {
		case FrameSubscribe:
			h.subscribe(ctx, peer, o, campaignID, logger)
		case FrameUnsubscribe:
			h.hub.Unsubscribe(o, campaignID)
			_ = peer.writeFrame(models.ServerFrame{Type: FrameUnsubscribed, CampaignID: campaignID})
		case FramePing:
			_ = peer.writeFrame(models.ServerFrame{Type: FramePong})
		case FramePong:
		default:
			_ = peer.writeError(campaignID, apperrors.New(apperrors.CodeInvalidArgument, "unsupported frame type"))
		}
	}
}

// subscribe acks with the campaign snapshot. The observer joins before the
// snapshot is read and is anchored after the ack is written, so every event
// after the ack carries a higher seq than the snapshot and none is missed.
func (h *WebSocketHandler) subscribe(ctx context.Context, peer *wsPeer, o *broadcast.Observer, campaignID string, logger *slog.Logger) {
	if campaignID == "" {
		_ = peer.writeError("", apperrors.New(apperrors.CodeInvalidArgument, "campaign_id is required"))
		return
	}

	added := h.hub.Subscribe(o, campaignID, broadcast.UnknownSeq)

	c, err := h.campaigns.Get(ctx, campaignID)
	if err != nil {
		if added {
			h.hub.Unsubscribe(o, campaignID)
		}
		_ = peer.writeError(campaignID, err)
		return
	}

	_ = peer.writeFrame(models.ServerFrame{
		Type:       FrameSubscribed,
		CampaignID: campaignID,
		Seq:        c.Seq,
		Data:       c,
	})
	if h.hub.Anchor(o, campaignID, c.Seq) {
		logger.Debug("subscribed", "campaign_id", campaignID, "seq", c.Seq)
	}
}

// writeLoop forwards observer events, sends keep-alive pings and re-checks
// the session. Closing conn ends the read loop in serve.
func (h *WebSocketHandler) writeLoop(ctx context.Context, conn *websocket.Conn, peer *wsPeer, o *broadcast.Observer, token string, logger *slog.Logger) {
	defer conn.Close()

	ping := newTicker(h.opts.PingInterval)
	defer ping.Stop()
	revalidate := newTicker(h.opts.RevalidateInterval)
	defer revalidate.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.Done():
			return
		case ev := <-o.Events():
			err := peer.writeFrame(models.ServerFrame{
				Type:       ev.Type,
				CampaignID: ev.CampaignID,
				Seq:        ev.Seq,
				Data:       ev.Data,
			})
			if err != nil {
				logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := peer.writeFrame(models.ServerFrame{Type: FramePing}); err != nil {
				return
			}
		case <-revalidate.C:
			_, err := h.authorize(ctx, token)
			switch apperrors.CodeOf(err) {
			case apperrors.CodeUnauthorized, apperrors.CodeElectorNotEligible:
				logger.Info("websocket session no longer valid", "error", err)
				_ = peer.writeError("", err)
				return
			}
			if err != nil {
				// keep the connection; the next check decides
				logger.Warn("websocket session check failed", "error", err)
			}
		}
	}
}

// ticker wraps time.Ticker so a zero interval never fires
type ticker struct {
	t *time.Ticker
	C <-chan time.Time
}

func newTicker(d time.Duration) ticker {
	if d <= 0 {
		return ticker{}
	}
	t := time.NewTicker(d)
	return ticker{t: t, C: t.C}
}

func (t ticker) Stop() {
	if t.t != nil {
		t.t.Stop()
	}
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

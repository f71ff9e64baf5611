package api

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kalambet/larder/internal/metrics"
	"github.com/kalambet/larder/internal/session"
	"github.com/kalambet/larder/internal/voice"
)

const voiceWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     localOrigin,
}

// localOrigin accepts clients without an Origin header and pages served
// from the loopback interface.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// handleVoice upgrades to a websocket and feeds transcript events into a
// voice session. Each connection keeps its own capped conversation log, so
// follow-up utterances see earlier turns.
func handleVoice(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			deps.Logger.Warn("voice upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		metrics.VoiceSessions.Inc()
		defer metrics.VoiceSessions.Dec()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		uc := userFrom(r.Context())
		hist := session.New(deps.HistoryCap)

		turn := func(ctx context.Context, utterance string) (string, any, error) {
			res, err := deps.Assistant.Turn(ctx, uc, utterance, hist.Messages(0))
			if err != nil {
				return "", nil, err
			}
			action := ""
			if res.Outcome != nil {
				action = res.Outcome.Intent
			}
			hist.Append(session.RoleUser, utterance, "")
			hist.Append(session.RoleAssistant, res.Reply, action)
			return res.Reply, res, nil
		}
		emit := func(f voice.Frame) error {
			conn.SetWriteDeadline(time.Now().Add(voiceWriteWait))
			return conn.WriteJSON(f)
		}

		sess := voice.NewSession(turn, emit, deps.Logger.With("user_id", uc.UserID))
		defer sess.Close()

		deps.Logger.Debug("voice session opened", "user_id", uc.UserID)
		for {
			var ev voice.Event
			if err := conn.ReadJSON(&ev); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					deps.Logger.Warn("voice read failed", "user_id", uc.UserID, "error", err)
				}
				return
			}
			if err := sess.Handle(ctx, ev); err != nil {
				deps.Logger.Warn("voice write failed", "user_id", uc.UserID, "error", err)
				return
			}
		}
	}
}

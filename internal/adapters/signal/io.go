package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chathub/internal/app/dispatch"
	"github.com/dkeye/Chathub/internal/core"
	"github.com/dkeye/Chathub/internal/core/events"
	"github.com/dkeye/Chathub/internal/domain"
)

// inbound is the client frame envelope. RequestID is echoed in the ack or
// error reply.
type inbound struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

const codeRateLimited = "rate_limited"

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(c.ID())).Msg("writePump ctx done")
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
				time.Now().Add(ctl.opts.WriteWait))
			return
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.ID())).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.ID())).Msg("ping failed")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sess *core.Session, c *WsSignalConn) {
	defer func() {
		c.Close()
		ctl.Orch.OnDisconnect(sess)
		if ctl.Orch.Metrics != nil {
			ctl.Orch.Metrics.ConnectionClosed()
		}
		user, _ := sess.User()
		log.Info().Str("module", "signal").Str("conn", string(c.ID())).Str("user", string(user)).Msg("readPump closing")
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	if err := c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		ctl.Orch.Heartbeat(sess)
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.ID())).Msg("readPump read error")
			}
			return
		}
		if err := c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait)); err != nil {
			return
		}
		ctl.handleFrame(ctx, sess, data)
	}
}

func (ctl *SignalWSController) handleFrame(ctx context.Context, sess *core.Session, data []byte) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil || in.Type == "" {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(sess.ConnID())).Msg("bad frame")
		ctl.reply(sess, events.Error{Code: domain.Code(domain.ErrValidation), Message: "malformed frame"})
		return
	}

	switch in.Type {
	case "ping":
		ctl.handlePing(sess, in)
	case "heartbeat":
		ctl.handleHeartbeat(sess, in)
	case "registerUser":
		ctl.handleRegister(sess, in)
	default:
		ctl.handleRequest(ctx, sess, in)
	}
}

func (ctl *SignalWSController) handleRequest(ctx context.Context, sess *core.Session, in inbound) {
	if user, ok := sess.User(); ok && ctl.limiter != nil && !ctl.limiter.Allow(user) {
		log.Warn().Str("module", "signal").Str("user", string(user)).Str("kind", in.Type).Msg("rate limit exceeded")
		ctl.reply(sess, events.Error{
			RequestID: in.RequestID,
			Kind:      in.Type,
			Code:      codeRateLimited,
			Message:   "too many requests",
		})
		return
	}
	id, err := ctl.Orch.SubmitFrom(ctx, sess, in.Type, in.Data)
	if err != nil {
		ctl.replyError(sess, in, err)
		return
	}
	ctl.reply(sess, events.Ack{RequestID: in.RequestID, Kind: in.Type, ID: id})
}

func (ctl *SignalWSController) replyError(sess *core.Session, in inbound, err error) {
	ctl.reply(sess, events.Error{
		RequestID: in.RequestID,
		Kind:      in.Type,
		Code:      domain.Code(err),
		Message:   err.Error(),
	})
}

// reply goes to the originating connection only, even when it is not the
// user's authoritative one.
func (ctl *SignalWSController) reply(sess *core.Session, ev events.Event) {
	if err := dispatch.SendDirect(sess.Signal(), ev); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(sess.ConnID())).Str("event", ev.EventName()).Msg("reply dropped")
	}
}

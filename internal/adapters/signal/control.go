package signal

import (
	"encoding/json"

	"github.com/dkeye/Chathub/internal/core"
	"github.com/dkeye/Chathub/internal/core/events"
	"github.com/dkeye/Chathub/internal/domain"
)

func (ctl *SignalWSController) handlePing(sess *core.Session, _ inbound) {
	ctl.Orch.Heartbeat(sess)
	ctl.reply(sess, events.Pong{})
}

func (ctl *SignalWSController) handleHeartbeat(sess *core.Session, in inbound) {
	if !ctl.Orch.Heartbeat(sess) {
		ctl.reply(sess, events.Error{
			RequestID: in.RequestID,
			Kind:      in.Type,
			Code:      domain.Code(domain.ErrStaleState),
			Message:   "connection is not the active one",
		})
		return
	}
	ctl.reply(sess, events.Ack{RequestID: in.RequestID, Kind: in.Type})
}

func (ctl *SignalWSController) handleRegister(sess *core.Session, in inbound) {
	var p struct {
		UserID domain.UserID `json:"userId"`
	}
	if len(in.Data) > 0 {
		if err := json.Unmarshal(in.Data, &p); err != nil {
			ctl.replyError(sess, in, domain.Validation("signal.register", "bad payload"))
			return
		}
	}
	if p.UserID == "" {
		// Upstream identity already bound: registerUser without a body re-asserts it.
		p.UserID, _ = sess.User()
	}
	if _, err := ctl.Orch.RegisterConnection(sess, p.UserID); err != nil {
		ctl.replyError(sess, in, err)
		return
	}
	ctl.reply(sess, events.Ack{RequestID: in.RequestID, Kind: in.Type, ID: string(p.UserID)})
}

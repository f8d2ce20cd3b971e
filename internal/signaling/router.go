package signaling

import (
	"context"
	"encoding/json"
	"time"

	"CareHive/pkg/llm"
	"CareHive/pkg/logger"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// CompanionUserID is the built-in assistant elderly users can chat with.
const CompanionUserID = "companion"

// EventRouter decodes inbound payloads and calls into the business layer.
type EventRouter struct {
	hub       *Hub
	calls     *CallCoordinator
	companion llm.Companion // nil disables the assistant
}

func NewEventRouter(hub *Hub, calls *CallCoordinator, companion llm.Companion) *EventRouter {
	return &EventRouter{hub: hub, calls: calls, companion: companion}
}

// HandleEvent implements Router.
func (rt *EventRouter) HandleEvent(conn *Conn, env *Envelope) {
	ctx := context.Background()

	switch env.Event {
	case EventUserOnline:
		var p UserOnlinePayload
		if !decode(conn, env.Data, &p) {
			return
		}
		rt.hub.RegisterPresence(conn, p.UserID, p.Name, p.Role)

	case EventCallInitiate:
		var p CallInitiatePayload
		if !decode(conn, env.Data, &p) {
			return
		}
		rt.calls.Initiate(ctx, conn.ID, p)

	case EventCallAccept:
		var p CallAcceptPayload
		if !decode(conn, env.Data, &p) {
			return
		}
		rt.calls.Accept(ctx, conn.ID, p)

	case EventCallReject:
		var p CallRejectPayload
		if !decode(conn, env.Data, &p) {
			return
		}
		rt.calls.Reject(ctx, conn.ID, p)

	case EventCallCancel:
		var p CallCancelPayload
		if !decode(conn, env.Data, &p) {
			return
		}
		rt.calls.Cancel(ctx, conn.ID, p)

	case EventCallEnd:
		var p CallEndPayload
		if !decode(conn, env.Data, &p) {
			return
		}
		rt.calls.End(ctx, conn.ID, p)

	case EventChatSend:
		var p ChatSendPayload
		if !decode(conn, env.Data, &p) {
			return
		}
		rt.handleChat(conn, p)

	case EventUsersGetOnline:
		conn.Reply(EventUsersOnline, rt.hub.Presence().ListOthers(conn.ID))

	case EventGeofenceAck, EventGeofenceIgnore:
		// 看护端本地处理，服务端仅留痕
		var p GeofenceAckPayload
		if !decode(conn, env.Data, &p) {
			return
		}
		logger.Info("geofence alert resolved by caregiver",
			zap.String("alert_id", p.AlertID),
			zap.String("caregiver_id", p.CaregiverID),
			zap.String("action", env.Event))

	default:
		logrus.Warnf("未知的消息类型: %s", env.Event)
	}
}

// handleChat relays a direct message, or answers it with the companion
// assistant when addressed to the built-in user. No persistence.
func (rt *EventRouter) handleChat(conn *Conn, p ChatSendPayload) {
	if p.ToUserID == CompanionUserID {
		if rt.companion == nil {
			return
		}
		fromUserID := conn.UserID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			answer, err := rt.companion.Reply(ctx, fromUserID, p.Text)
			if err != nil {
				logger.Warn("companion reply failed", zap.Error(err))
				return
			}
			rt.hub.SendToUser(fromUserID, NewEnvelope(EventChatReceive, ChatReceivePayload{
				FromUserID: CompanionUserID,
				Text:       answer,
				SenderName: "Companion",
				SenderRole: "assistant",
			}))
		}()
		return
	}

	delivered := rt.hub.SendToUser(p.ToUserID, NewEnvelope(EventChatReceive, ChatReceivePayload{
		FromUserID: conn.UserID,
		Text:       p.Text,
		SenderName: p.SenderName,
		SenderRole: p.SenderRole,
	}))
	if !delivered {
		logrus.Debugf("聊天对象 %s 不在线，消息未送达", p.ToUserID)
	}
}

func decode(conn *Conn, raw json.RawMessage, v interface{}) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		logrus.Warnf("事件数据解析失败 (连接 %s): %v", conn.ID, err)
		return false
	}
	return true
}

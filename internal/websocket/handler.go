package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"relay-chat/internal/engine"
	"relay-chat/internal/observability"
	"relay-chat/internal/services"
	"relay-chat/pkg/logger"
)

// clientFrame is what a client sends: a subscription request or release.
type clientFrame struct {
	Type   string          `json:"type"` // "sub" | "unsub"
	ID     string          `json:"id"`
	Name   string          `json:"name,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// subParams covers every publication's parameters; unused fields are
// simply absent.
type subParams struct {
	ConversationID string `json:"conversation_id"`
	Cursor         string `json:"cursor"`
	Limit          int    `json:"limit"`
}

type errorFrame struct {
	Type  string `json:"type"`
	SubID string `json:"subId"`
	Error string `json:"error"`
}

// Handler upgrades connections and bridges sub/unsub frames to engine
// subscriptions. A missing or invalid token does not close the socket:
// auth-required publications just come up empty and ready.
type Handler struct {
	auth         *services.AuthService
	hub          *Hub
	engine       *engine.Engine
	publications *engine.Publications
}

func NewHandler(auth *services.AuthService, hub *Hub, eng *engine.Engine, pubs *engine.Publications) *Handler {
	return &Handler{auth: auth, hub: hub, engine: eng, publications: pubs}
}

func (h *Handler) Connect(c *gin.Context) {
	identity := h.auth.IdentityFromToken(c.Query("token"))

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	userID := ""
	if identity != nil {
		userID = identity.UserID
	}
	client := NewClient(conn, userID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	observability.AddWSConnection(1)
	go client.WriteLoop(ctx)

	// subs maps the client's frame ids to engine subscription ids.
	subs := make(map[string]string)
	defer func() {
		for _, engineID := range subs {
			h.engine.Unsubscribe(engineID)
		}
		observability.SetActiveSubscriptions(h.engine.ActiveCount())
		observability.AddWSConnection(-1)
		h.hub.Unregister(client)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		switch frame.Type {
		case "sub":
			h.handleSub(ctx, client, identity, frame, subs)
		case "unsub":
			if engineID, ok := subs[frame.ID]; ok {
				h.engine.Unsubscribe(engineID)
				delete(subs, frame.ID)
				observability.SetActiveSubscriptions(h.engine.ActiveCount())
			}
		}
	}
}

func (h *Handler) handleSub(ctx context.Context, client *Client, identity *services.Identity, frame clientFrame, subs map[string]string) {
	if _, exists := subs[frame.ID]; exists || frame.ID == "" {
		return
	}

	var params subParams
	if len(frame.Params) > 0 {
		_ = json.Unmarshal(frame.Params, &params)
	}

	spec, ok := h.buildSpec(ctx, identity, frame.Name, params)
	if !ok {
		h.sendError(client, frame.ID, "unknown publication")
		return
	}

	engineID := client.ID + ":" + frame.ID
	frameID := frame.ID
	sink := func(ev engine.Event) {
		if ev.Kind == engine.KindReady {
			ev.SubID = frameID
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return
		}
		client.SendMessage(payload)
	}

	if err := h.engine.Subscribe(ctx, engineID, spec, sink); err != nil {
		logger.GetGlobalLogger().Errorf("subscribe %s: %s", frame.Name, err.Error())
		h.sendError(client, frame.ID, "subscription failed")
		return
	}
	subs[frame.ID] = engineID
	observability.SetActiveSubscriptions(h.engine.ActiveCount())
}

func (h *Handler) buildSpec(ctx context.Context, identity *services.Identity, name string, params subParams) (engine.Spec, bool) {
	switch name {
	case engine.PubMessages:
		return h.publications.RecentMessages(identity, params.ConversationID), true
	case engine.PubMessagesPaginated:
		return h.publications.PaginatedMessages(ctx, identity, params.Cursor, params.Limit, params.ConversationID), true
	case engine.PubTyping:
		return h.publications.TypingIndicators(params.ConversationID), true
	case engine.PubUsers:
		return h.publications.UserDirectory(identity), true
	default:
		return engine.Spec{}, false
	}
}

func (h *Handler) sendError(client *Client, subID, msg string) {
	payload, err := json.Marshal(errorFrame{Type: "error", SubID: subID, Error: msg})
	if err != nil {
		return
	}
	client.SendMessage(payload)
}

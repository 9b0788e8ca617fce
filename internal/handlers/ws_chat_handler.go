package handlers

import (
	"net/http"
	"sync"

	"github.com/Bekzat2201/UniConnect/internal/models"
	"github.com/Bekzat2201/UniConnect/internal/presence"
	"github.com/Bekzat2201/UniConnect/internal/services"
	jwtutil "github.com/Bekzat2201/UniConnect/pkg/jwt"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WSFrame is the wire format of the chat websocket.
type WSFrame struct {
	Type     string `json:"type"` // "text", "image", "video", "audio", "file", "typing", "status"
	ChatID   string `json:"chat_id,omitempty"`
	SenderID string `json:"sender_id,omitempty"`
	Content  string `json:"content,omitempty"`
	FileURL  string `json:"file_url,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Typing   bool   `json:"typing,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Status   string `json:"status,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSChatHandler serves the realtime chat endpoint. Connection and typing
// events drive the presence tracker; persisted messages go through the chat
// service like their REST counterparts.
type WSChatHandler struct {
	Service   *services.ChatService
	Presence  *presence.Tracker
	JWTSecret string

	mu      sync.Mutex
	clients map[string]*websocket.Conn
}

// NewWSChatHandler initializes a new WSChatHandler.
func NewWSChatHandler(service *services.ChatService, tracker *presence.Tracker, jwtSecret string) *WSChatHandler {
	return &WSChatHandler{
		Service:   service,
		Presence:  tracker,
		JWTSecret: jwtSecret,
		clients:   make(map[string]*websocket.Conn),
	}
}

// ServeWS upgrades the connection and runs the read loop.
func (h *WSChatHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}
	claims, err := jwtutil.ValidateToken(token, h.JWTSecret)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket auth failed")
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}
	userID := claims.UserID

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[userID] = conn
	h.mu.Unlock()
	if h.Presence.Connect(userID) {
		h.broadcastStatus(userID, presence.StatusOnline)
	}
	logrus.WithField("userID", userID).Info("WebSocket connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, userID)
		h.mu.Unlock()
		if h.Presence.Disconnect(userID) {
			h.broadcastStatus(userID, presence.StatusOffline)
		}
		conn.Close()
		logrus.WithField("userID", userID).Info("WebSocket disconnected")
	}()

	for {
		var frame WSFrame
		if err := conn.ReadJSON(&frame); err != nil {
			break // client disconnected
		}
		h.handleFrame(r, userID, frame)
	}
}

func (h *WSChatHandler) handleFrame(r *http.Request, userID string, frame WSFrame) {
	senderID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return
	}
	chatID, err := primitive.ObjectIDFromHex(frame.ChatID)
	if err != nil {
		return
	}

	chat, err := h.Service.GetChat(r.Context(), chatID, senderID)
	if err != nil {
		logrus.WithError(err).Warnf("WebSocket frame rejected for user %s", userID)
		return
	}

	if frame.Type == "typing" {
		if frame.Typing {
			h.Presence.StartTyping(userID)
		} else {
			h.Presence.StopTyping(userID)
		}
		h.relay(chat, senderID, WSFrame{
			Type:     "typing",
			ChatID:   frame.ChatID,
			SenderID: userID,
			Typing:   frame.Typing,
		})
		return
	}

	msgType := frame.Type
	if msgType == "" {
		msgType = models.MessageText
	}

	msg, err := h.Service.SendMessage(r.Context(), chatID, senderID, msgType, frame.Content, frame.FileURL, frame.FileName)
	if err != nil {
		logrus.WithError(err).Warn("Failed to persist websocket message")
		return
	}
	h.Presence.StopTyping(userID)

	out := WSFrame{
		Type:     msg.Type,
		ChatID:   frame.ChatID,
		SenderID: userID,
		Content:  msg.Content,
		FileURL:  msg.FileURL,
		FileName: msg.FileName,
	}
	h.relay(chat, primitive.NilObjectID, out) // echo to sender too
}

// relay writes a frame to every connected participant of the chat except
// skip.
func (h *WSChatHandler) relay(chat *models.Chat, skip primitive.ObjectID, frame WSFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, participant := range chat.Participants {
		if participant == skip {
			continue
		}
		if conn, ok := h.clients[participant.Hex()]; ok {
			_ = conn.WriteJSON(frame)
		}
	}
}

// broadcastStatus announces a presence change to every connected client.
func (h *WSChatHandler) broadcastStatus(userID, status string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	frame := WSFrame{Type: "status", UserID: userID, Status: status}
	for _, conn := range h.clients {
		_ = conn.WriteJSON(frame)
	}
}

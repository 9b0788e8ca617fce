package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Bekzat2201/UniConnect/internal/services"
	"github.com/Bekzat2201/UniConnect/pkg/logger"
	"github.com/Bekzat2201/UniConnect/pkg/middleware"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatHandler manages the REST endpoints for conversations.
type ChatHandler struct {
	Service   *services.ChatService
	UploadDir string
}

// NewChatHandler initializes a new ChatHandler.
func NewChatHandler(service *services.ChatService, uploadDir string) *ChatHandler {
	return &ChatHandler{Service: service, UploadDir: uploadDir}
}

// ListChatsHandler returns the authenticated user's chats, most recently
// updated first.
func (h *ChatHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, _ := primitive.ObjectIDFromHex(claims.UserID)

	chats, err := h.Service.ListChats(r.Context(), userID)
	if err != nil {
		logger.Log.Errorf("Failed to list chats for %s: %v", claims.UserID, err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, chats)
}

// OpenDirectChatHandler finds or creates the direct chat with another user.
func (h *ChatHandler) OpenDirectChatHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	otherID, err := primitive.ObjectIDFromHex(mux.Vars(r)["userId"])
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	userID, _ := primitive.ObjectIDFromHex(claims.UserID)

	chat, err := h.Service.GetOrCreateDirectChat(r.Context(), userID, otherID)
	if err != nil {
		logger.Log.Warnf("Failed to open direct chat: %v", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, chat)
}

// GetMessagesHandler returns the chat's flat message sequence.
func (h *ChatHandler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	chatID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid chat ID", http.StatusBadRequest)
		return
	}
	userID, _ := primitive.ObjectIDFromHex(claims.UserID)

	messages, err := h.Service.GetChatMessages(r.Context(), chatID, userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// GetThreadsHandler returns the chat's messages grouped into threads.
func (h *ChatHandler) GetThreadsHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	chatID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid chat ID", http.StatusBadRequest)
		return
	}
	userID, _ := primitive.ObjectIDFromHex(claims.UserID)

	threads, err := h.Service.GetChatThreads(r.Context(), chatID, userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, threads)
}

// SendMessageHandler appends a message to a chat.
func (h *ChatHandler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	chatID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid chat ID", http.StatusBadRequest)
		return
	}

	var body struct {
		Type     string `json:"type"`
		Content  string `json:"content"`
		FileURL  string `json:"file_url"`
		FileName string `json:"file_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if body.Type == "" {
		body.Type = "text"
	}
	senderID, _ := primitive.ObjectIDFromHex(claims.UserID)

	msg, err := h.Service.SendMessage(r.Context(), chatID, senderID, body.Type, body.Content, body.FileURL, body.FileName)
	if err != nil {
		logger.Log.Warnf("Failed to send message: %v", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

// ReplyHandler appends a threaded reply under a root message.
func (h *ChatHandler) ReplyHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	chatID, err := primitive.ObjectIDFromHex(vars["id"])
	if err != nil {
		http.Error(w, "Invalid chat ID", http.StatusBadRequest)
		return
	}
	parentID, err := primitive.ObjectIDFromHex(vars["messageId"])
	if err != nil {
		http.Error(w, "Invalid message ID", http.StatusBadRequest)
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	senderID, _ := primitive.ObjectIDFromHex(claims.UserID)
	msg, err := h.Service.ReplyTo(r.Context(), chatID, parentID, senderID, body.Content)
	if err != nil {
		logger.Log.Warnf("Failed to reply: %v", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

// UploadFileHandler stores an uploaded file and returns its served URL.
func (h *ChatHandler) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.ParseMultipartForm(10 << 20) // max ~10MB
	file, handler, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Failed to read file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileName := fmt.Sprintf("%d_%s", time.Now().UnixNano(), handler.Filename)
	filePath := filepath.Join(h.UploadDir, fileName)

	out, err := h.createFile(filePath)
	if err != nil {
		http.Error(w, "Failed to save file", http.StatusInternalServerError)
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		http.Error(w, "Failed to save file", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"url":  "/uploads/" + fileName,
		"name": handler.Filename,
	})
}

func (h *ChatHandler) createFile(path string) (*os.File, error) {
	if _, err := os.Stat(h.UploadDir); os.IsNotExist(err) {
		os.MkdirAll(h.UploadDir, os.ModePerm)
	}
	return os.Create(path)
}

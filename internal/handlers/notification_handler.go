package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Bekzat2201/UniConnect/internal/models"
	"github.com/Bekzat2201/UniConnect/internal/services"
	"github.com/Bekzat2201/UniConnect/pkg/logger"
	"github.com/Bekzat2201/UniConnect/pkg/middleware"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationHandler serves the user notification feed and the admin
// broadcast surface.
type NotificationHandler struct {
	Service *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: service}
}

// GET /notifications
func (h *NotificationHandler) GetUserNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, _ := primitive.ObjectIDFromHex(claims.UserID)
	notifications, err := h.Service.GetUserNotifications(r.Context(), userID)
	if err != nil {
		logger.Log.Errorf("Failed to fetch notifications: %v", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, notifications)
}

// GET /notifications/unread-count
func (h *NotificationHandler) UnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, _ := primitive.ObjectIDFromHex(claims.UserID)
	count, err := h.Service.UnreadCount(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"unread": count})
}

// POST /notifications/{id}/read
func (h *NotificationHandler) MarkAsReadHandler(w http.ResponseWriter, r *http.Request) {
	notifID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid notification ID", http.StatusBadRequest)
		return
	}

	if err := h.Service.MarkNotificationAsRead(r.Context(), notifID); err != nil {
		logger.Log.Errorf("Failed to mark notification as read: %v", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// POST /notifications/read-all
func (h *NotificationHandler) MarkAllAsReadHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, _ := primitive.ObjectIDFromHex(claims.UserID)
	if err := h.Service.MarkAllAsRead(r.Context(), userID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "All notifications marked as read"})
}

// DELETE /notifications/{id}
func (h *NotificationHandler) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	notifID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid notification ID", http.StatusBadRequest)
		return
	}

	if err := h.Service.DeleteNotification(r.Context(), notifID); err != nil {
		logger.Log.Errorf("Failed to delete notification: %v", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Notification deleted"})
}

// POST /admin/broadcasts
func (h *NotificationHandler) CreateBroadcastHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req services.BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	senderID, _ := primitive.ObjectIDFromHex(claims.UserID)
	broadcast, err := h.Service.Broadcast(r.Context(), senderID, req)
	if err != nil {
		logger.Log.Warnf("Failed to create broadcast: %v", err)
		respondError(w, err)
		return
	}

	logger.Log.Infof("Admin %s created broadcast %s", claims.UserID, broadcast.ID.Hex())
	respondJSON(w, http.StatusCreated, broadcast)
}

// GET /admin/broadcasts
//
// Loading the history opportunistically runs the scheduled sweep, so an admin
// opening the page is enough to promote due broadcasts even if the cron
// scheduler is down.
func (h *NotificationHandler) ListBroadcastsHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.ProcessScheduledNotifications(r.Context()); err != nil {
		logger.Log.Warnf("Scheduled notification sweep failed: %v", err)
	}

	query := r.URL.Query()
	filter := models.BroadcastFilter{
		Type:        query.Get("type"),
		Priority:    query.Get("priority"),
		TargetGroup: query.Get("target_group"),
		Status:      query.Get("status"),
	}

	broadcasts, err := h.Service.GetBroadcasts(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, broadcasts)
}

// PATCH /admin/broadcasts/{id}
func (h *NotificationHandler) UpdateBroadcastHandler(w http.ResponseWriter, r *http.Request) {
	broadcastID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid broadcast ID", http.StatusBadRequest)
		return
	}

	var upd services.BroadcastUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.Service.UpdateBroadcast(r.Context(), broadcastID, upd); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Broadcast updated"})
}

// DELETE /admin/broadcasts/{id}
func (h *NotificationHandler) DeleteBroadcastHandler(w http.ResponseWriter, r *http.Request) {
	broadcastID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid broadcast ID", http.StatusBadRequest)
		return
	}

	if err := h.Service.DeleteBroadcast(r.Context(), broadcastID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Broadcast deleted"})
}

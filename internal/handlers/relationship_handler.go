package handlers

import (
	"context"
	"net/http"

	"github.com/Bekzat2201/UniConnect/internal/models"
	"github.com/Bekzat2201/UniConnect/internal/services"
	"github.com/Bekzat2201/UniConnect/pkg/logger"
	"github.com/Bekzat2201/UniConnect/pkg/middleware"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RelationshipHandler manages HTTP endpoints for the follow graph.
type RelationshipHandler struct {
	Service *services.RelationshipService
}

// NewRelationshipHandler initializes a new RelationshipHandler.
func NewRelationshipHandler(service *services.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{Service: service}
}

// FollowHandler makes the authenticated user follow the target user.
func (h *RelationshipHandler) FollowHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		logger.Log.Warn("Unauthorized attempt to follow")
		return
	}

	targetID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	actorID, _ := primitive.ObjectIDFromHex(claims.UserID)

	result, err := h.Service.Follow(r.Context(), actorID, targetID)
	if err != nil {
		logger.Log.Warnf("Follow failed: %v", err)
		respondError(w, err)
		return
	}

	logger.Log.Infof("User %s followed %s", claims.UserID, targetID.Hex())
	respondJSON(w, http.StatusOK, result)
}

// UnfollowHandler removes the follow edge. The client asks for confirmation
// before calling this; the endpoint itself is unconditional.
func (h *RelationshipHandler) UnfollowHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	targetID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	actorID, _ := primitive.ObjectIDFromHex(claims.UserID)

	if err := h.Service.Unfollow(r.Context(), actorID, targetID); err != nil {
		logger.Log.Warnf("Unfollow failed: %v", err)
		respondError(w, err)
		return
	}

	logger.Log.Infof("User %s unfollowed %s", claims.UserID, targetID.Hex())
	respondJSON(w, http.StatusOK, map[string]string{"message": "Unfollowed"})
}

// GetFollowersHandler lists a user's followers.
func (h *RelationshipHandler) GetFollowersHandler(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, h.Service.GetFollowers)
}

// GetFollowingHandler lists who a user follows.
func (h *RelationshipHandler) GetFollowingHandler(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, h.Service.GetFollowing)
}

// GetConnectionsHandler lists a user's mutual connections.
func (h *RelationshipHandler) GetConnectionsHandler(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, h.Service.GetConnections)
}

func (h *RelationshipHandler) listUsers(w http.ResponseWriter, r *http.Request, fetch func(context.Context, primitive.ObjectID) ([]models.PublicUser, error)) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// Default to the authenticated user, allow viewing others via {id}.
	idHex := mux.Vars(r)["id"]
	if idHex == "" {
		idHex = claims.UserID
	}
	userID, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	users, err := fetch(r.Context(), userID)
	if err != nil {
		logger.Log.Errorf("Failed to fetch relationship list for %s: %v", idHex, err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

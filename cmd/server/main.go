package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/Bekzat2201/UniConnect/internal/config"
	"github.com/Bekzat2201/UniConnect/internal/database"
	"github.com/Bekzat2201/UniConnect/internal/handlers"
	"github.com/Bekzat2201/UniConnect/internal/presence"
	"github.com/Bekzat2201/UniConnect/internal/repository"
	cronjobs "github.com/Bekzat2201/UniConnect/internal/scheduler"
	"github.com/Bekzat2201/UniConnect/internal/services"
	"github.com/Bekzat2201/UniConnect/pkg/email"
	"github.com/Bekzat2201/UniConnect/pkg/logger"
	"github.com/Bekzat2201/UniConnect/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()

	logger.InitLogger()
	logger.Log.Info("Logger initialized")

	// Connect to MongoDB
	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}

	// --- Repositories ---
	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// --- Services ---
	notificationService := services.NewNotificationService(notificationRepo, userRepo)
	userService := services.NewUserService(userRepo, email.SMTPMailer{}, notificationService, "http://localhost:"+cfg.Port)
	relationshipService := services.NewRelationshipService(userRepo, notificationService)
	chatService := services.NewChatService(chatRepo, userRepo, notificationService)

	// --- Handlers ---
	userHandler := handlers.NewUserHandler(userService, cfg)
	relationshipHandler := handlers.NewRelationshipHandler(relationshipService)
	chatHandler := handlers.NewChatHandler(chatService, cfg.UploadDir)
	wsChatHandler := handlers.NewWSChatHandler(chatService, presence.NewTracker(), cfg.JWTSecret)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Initialize Gorilla Mux router
	router := mux.NewRouter()

	// Public user routes
	router.HandleFunc("/users/register", userHandler.RegisterUserHandler).Methods("POST")
	router.HandleFunc("/users/login", userHandler.LoginUserHandler).Methods("POST")
	router.HandleFunc("/users/verify", userHandler.VerifyEmailHandler).Methods("GET")
	router.HandleFunc("/users/request-password-reset", userHandler.RequestPasswordResetHandler).Methods("POST")
	router.HandleFunc("/users/reset-password", userHandler.ResetPasswordHandler).Methods("POST")

	// Protected user routes
	protectedUserRoutes := router.PathPrefix("/users").Subrouter()
	protectedUserRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedUserRoutes.Use(middleware.ActivityMiddleware(userService))
	protectedUserRoutes.HandleFunc("/me", userHandler.GetMeHandler).Methods("GET")
	protectedUserRoutes.HandleFunc("/search", userHandler.SearchUsersHandler).Methods("GET")
	protectedUserRoutes.HandleFunc("/{id}", userHandler.GetUserHandler).Methods("GET")
	protectedUserRoutes.HandleFunc("/{id}", userHandler.UpdateUserHandler).Methods("PATCH")
	protectedUserRoutes.HandleFunc("/{id}/follow", relationshipHandler.FollowHandler).Methods("POST")
	protectedUserRoutes.HandleFunc("/{id}/follow", relationshipHandler.UnfollowHandler).Methods("DELETE")
	protectedUserRoutes.HandleFunc("/{id}/followers", relationshipHandler.GetFollowersHandler).Methods("GET")
	protectedUserRoutes.HandleFunc("/{id}/following", relationshipHandler.GetFollowingHandler).Methods("GET")
	protectedUserRoutes.HandleFunc("/{id}/connections", relationshipHandler.GetConnectionsHandler).Methods("GET")

	// Chat routes
	protectedChatRoutes := router.PathPrefix("/chats").Subrouter()
	protectedChatRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedChatRoutes.Use(middleware.ActivityMiddleware(userService))
	protectedChatRoutes.HandleFunc("", chatHandler.ListChatsHandler).Methods("GET")
	protectedChatRoutes.HandleFunc("/direct/{userId}", chatHandler.OpenDirectChatHandler).Methods("POST")
	protectedChatRoutes.HandleFunc("/{id}/messages", chatHandler.GetMessagesHandler).Methods("GET")
	protectedChatRoutes.HandleFunc("/{id}/messages", chatHandler.SendMessageHandler).Methods("POST")
	protectedChatRoutes.HandleFunc("/{id}/threads", chatHandler.GetThreadsHandler).Methods("GET")
	protectedChatRoutes.HandleFunc("/{id}/messages/{messageId}/reply", chatHandler.ReplyHandler).Methods("POST")
	protectedChatRoutes.HandleFunc("/upload", chatHandler.UploadFileHandler).Methods("POST")

	// WebSocket endpoint authenticates via token query param
	router.HandleFunc("/ws/chat", wsChatHandler.ServeWS)
	router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))

	// Notification routes
	protectedNotifRoutes := router.PathPrefix("/notifications").Subrouter()
	protectedNotifRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedNotifRoutes.HandleFunc("", notificationHandler.GetUserNotificationsHandler).Methods("GET")
	protectedNotifRoutes.HandleFunc("/unread-count", notificationHandler.UnreadCountHandler).Methods("GET")
	protectedNotifRoutes.HandleFunc("/read-all", notificationHandler.MarkAllAsReadHandler).Methods("POST")
	protectedNotifRoutes.HandleFunc("/{id}/read", notificationHandler.MarkAsReadHandler).Methods("POST")
	protectedNotifRoutes.HandleFunc("/{id}", notificationHandler.DeleteNotificationHandler).Methods("DELETE")

	// Admin routes
	adminRoutes := router.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	adminRoutes.Use(middleware.RequireRole("admin"))
	adminRoutes.HandleFunc("/users", userHandler.AdminGetAllUsersHandler).Methods("GET")
	adminRoutes.HandleFunc("/users/{id}/badges", userHandler.AwardBadgeHandler).Methods("POST")
	adminRoutes.HandleFunc("/broadcasts", notificationHandler.CreateBroadcastHandler).Methods("POST")
	adminRoutes.HandleFunc("/broadcasts", notificationHandler.ListBroadcastsHandler).Methods("GET")
	adminRoutes.HandleFunc("/broadcasts/{id}", notificationHandler.UpdateBroadcastHandler).Methods("PATCH")
	adminRoutes.HandleFunc("/broadcasts/{id}", notificationHandler.DeleteBroadcastHandler).Methods("DELETE")

	// Apply middleware for logging
	router.Use(middleware.LoggingMiddleware)

	// Background jobs: scheduled broadcast promotion and retention cleanup
	cronjobs.StartNotificationCronJobs(notificationService)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	handler := c.Handler(router)

	fmt.Printf("Server running on port %s\n", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handler))
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ExQueueSee/task-manager-web-app-sub000/handlers"
	"github.com/ExQueueSee/task-manager-web-app-sub000/logging"
	"github.com/ExQueueSee/task-manager-web-app-sub000/middleware"
	"github.com/ExQueueSee/task-manager-web-app-sub000/repositories"
	"github.com/ExQueueSee/task-manager-web-app-sub000/services"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	logging.InitLogger()
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting task-manager backend...")

	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}

	mongoURI := os.Getenv("MONGO_URI")
	mongoDBName := os.Getenv("MONGO_DB_NAME")
	if mongoURI == "" || mongoDBName == "" {
		logging.Logger.Fatal("Event ID: CONFIG_ERROR, Description: MONGO_URI and MONGO_DB_NAME must be set.")
	}
	if os.Getenv("JWT_SECRET") == "" {
		logging.Logger.Fatal("Event ID: CONFIG_ERROR, Description: JWT_SECRET is not set in the environment variables.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", mongoURI)

	usersCollection := client.Database(mongoDBName).Collection("users")
	tasksCollection := client.Database(mongoDBName).Collection("tasks")

	// Circuit breaker oko SMTP slanja: pad mejl servera ne sme da davi handlere.
	emailBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "email-cb",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	blackList, err := services.LoadBlackList("blacklist.txt")
	if err != nil {
		logging.Logger.Warnf("Event ID: BLACKLIST_LOAD_WARNING, Description: Password blacklist not loaded: %v", err)
		blackList = map[string]bool{}
	}

	// Cassandra inbox je opcionalan: bez njega rade svi tokovi osim in-app
	// notifikacija.
	notificationRepo, err := repositories.NewNotificationRepo()
	if err != nil {
		logging.Logger.Warnf("Event ID: CASS_UNAVAILABLE, Description: Notifications disabled, Cassandra not reachable: %v", err)
		notificationRepo = nil
	} else {
		defer notificationRepo.CloseSession()
	}

	fileService, err := services.NewFileService(ctx)
	if err != nil {
		logging.Logger.Warnf("Event ID: S3_UNAVAILABLE, Description: Attachments disabled, file store not configured: %v", err)
		fileService = nil
	}

	jwtService := &services.JWTService{}
	userService := services.NewUserService(usersCollection, jwtService, blackList, emailBreaker)
	taskService := services.NewTaskService(tasksCollection, userService, notificationRepo, fileService)
	overdueService := services.NewOverdueService(taskService, userService, emailBreaker)

	userHandler := handlers.NewUserHandler(userService)
	loginHandler := handlers.NewLoginHandler(userService)
	taskHandler := handlers.NewTaskHandler(taskService)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)

	authMiddleware := middleware.NewAuthMiddleware(userService)

	r := mux.NewRouter()

	// Javne rute
	r.HandleFunc("/api/auth/register", userHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/verify-email", userHandler.VerifyEmail).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", loginHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/forgot-password", loginHandler.ForgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/reset-password", loginHandler.ResetPassword).Methods(http.MethodPost)

	// Rute iza autentifikacije
	auth := r.NewRoute().Subrouter()
	auth.Use(authMiddleware.RequireAuth)
	auth.HandleFunc("/api/auth/logout", loginHandler.Logout).Methods(http.MethodPost)
	auth.HandleFunc("/api/auth/change-password", loginHandler.ChangePassword).Methods(http.MethodPost)
	auth.HandleFunc("/api/users/me", userHandler.Me).Methods(http.MethodGet)
	auth.HandleFunc("/api/users/me/rank", userHandler.Rank).Methods(http.MethodGet)
	auth.HandleFunc("/api/users/leaderboard", userHandler.Leaderboard).Methods(http.MethodGet)

	auth.HandleFunc("/api/tasks", taskHandler.CreateTask).Methods(http.MethodPost)
	auth.HandleFunc("/api/tasks", taskHandler.ListTasks).Methods(http.MethodGet)
	auth.HandleFunc("/api/tasks/export", taskHandler.ExportTasks).Methods(http.MethodGet)
	auth.HandleFunc("/api/tasks/{id}", taskHandler.GetTask).Methods(http.MethodGet)
	auth.HandleFunc("/api/tasks/{id}", taskHandler.UpdateTask).Methods(http.MethodPatch)
	auth.HandleFunc("/api/tasks/{id}", taskHandler.DeleteTask).Methods(http.MethodDelete)
	auth.HandleFunc("/api/tasks/{id}/assign", taskHandler.AssignTask).Methods(http.MethodPatch)
	auth.HandleFunc("/api/tasks/{id}/visibility", taskHandler.ChangeVisibility).Methods(http.MethodPatch)
	auth.HandleFunc("/api/tasks/{id}/attachment", taskHandler.UploadAttachment).Methods(http.MethodPost)
	auth.HandleFunc("/api/tasks/{id}/attachment", taskHandler.DownloadAttachment).Methods(http.MethodGet)

	auth.HandleFunc("/api/notifications", notificationHandler.ListNotifications).Methods(http.MethodGet)
	auth.HandleFunc("/api/notifications/{id}/read", notificationHandler.MarkAsRead).Methods(http.MethodPatch)

	// Administratorske rute
	admin := r.NewRoute().Subrouter()
	admin.Use(authMiddleware.RequireAuth, authMiddleware.RequireAdmin)
	admin.HandleFunc("/api/admin/users/pending", userHandler.PendingUsers).Methods(http.MethodGet)
	admin.HandleFunc("/api/admin/users/{id}/approve", userHandler.ApproveUser).Methods(http.MethodPatch)
	admin.HandleFunc("/api/admin/users/{id}/decline", userHandler.DeclineUser).Methods(http.MethodPatch)
	admin.HandleFunc("/api/admin/users/{id}/role", userHandler.ChangeRole).Methods(http.MethodPatch)
	admin.HandleFunc("/api/admin/users/{id}", userHandler.DeleteUser).Methods(http.MethodDelete)

	corsRouter := middleware.EnableCORS(r)

	// Periodični sweep: reklasifikacija probijenih rokova + podsetnici.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	overdueService.StartSweep(sweepCtx, time.Hour)

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		logging.Logger.Fatal("Event ID: CONFIG_ERROR, Description: SERVER_PORT is not set in the environment variables.")
	}

	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      corsRouter,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}

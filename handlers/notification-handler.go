package handlers

import (
	"net/http"

	"github.com/ExQueueSee/task-manager-web-app-sub000/repositories"
	"github.com/ExQueueSee/task-manager-web-app-sub000/services"

	"github.com/gorilla/mux"
)

type NotificationHandler struct {
	Repo *repositories.NotificationRepo
}

func NewNotificationHandler(repo *repositories.NotificationRepo) *NotificationHandler {
	return &NotificationHandler{Repo: repo}
}

// ListNotifications vraća inbox prijavljenog korisnika.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	if h.Repo == nil {
		writeError(w, services.NewDependencyError("notifications are not configured"))
		return
	}

	notifications, err := h.Repo.GetNotificationsByEmail(actor.Email)
	if err != nil {
		writeError(w, services.NewDependencyError("failed to fetch notifications"))
		return
	}

	writeJSON(w, http.StatusOK, notifications)
}

// MarkAsRead označava notifikaciju kao pročitanu; createdAt dolazi kao query
// parametar jer je deo klaster ključa.
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	if h.Repo == nil {
		writeError(w, services.NewDependencyError("notifications are not configured"))
		return
	}

	vars := mux.Vars(r)
	notificationID := vars["id"]
	createdAt := r.URL.Query().Get("createdAt")
	if createdAt == "" {
		writeError(w, services.NewValidationError("createdAt query parameter is required"))
		return
	}

	if err := h.Repo.MarkNotificationAsRead(actor.Email, notificationID, createdAt); err != nil {
		writeError(w, services.NewValidationError("failed to mark notification as read"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ExQueueSee/task-manager-web-app-sub000/middleware"
	"github.com/ExQueueSee/task-manager-web-app-sub000/models"
	"github.com/ExQueueSee/task-manager-web-app-sub000/services"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserHandler struct {
	UserService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{UserService: userService}
}

// Register upisuje nalog sa approvalStatus=pending i šalje verifikacioni kod.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		writeError(w, services.NewValidationError("invalid request data"))
		return
	}

	if err := h.UserService.RegisterUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Registration successful. Check your email for the verification code.",
	})
}

// VerifyEmail troši verifikacioni kod iz emaila.
func (h *UserHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Code == "" {
		writeError(w, services.NewValidationError("email and code are required"))
		return
	}

	if err := h.UserService.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Email verified. An admin still needs to approve your account."})
}

// Me vraća profil prijavljenog korisnika.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, services.NewUnauthorizedError("not authenticated"))
		return
	}
	user.Password = ""
	writeJSON(w, http.StatusOK, user)
}

// Leaderboard vraća rang listu po kreditima.
func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := int64(10)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			limit = parsed
		}
	}

	users, err := h.UserService.GetLeaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// Rank vraća poziciju prijavljenog korisnika na rang listi.
func (h *UserHandler) Rank(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, services.NewUnauthorizedError("not authenticated"))
		return
	}

	rank, err := h.UserService.GetRank(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rank":    rank,
		"credits": user.Credits,
	})
}

// PendingUsers vraća naloge koji čekaju odobrenje (admin).
func (h *UserHandler) PendingUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.GetPendingUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func userIDFromPath(r *http.Request) (primitive.ObjectID, error) {
	vars := mux.Vars(r)
	id, err := primitive.ObjectIDFromHex(vars["id"])
	if err != nil {
		return primitive.NilObjectID, services.NewValidationError("invalid user ID format")
	}
	return id, nil
}

// ApproveUser odobrava nalog (admin).
func (h *UserHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.UserService.SetApprovalStatus(r.Context(), id, models.ApprovalApproved); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User approved"})
}

// DeclineUser odbija nalog (admin).
func (h *UserHandler) DeclineUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.UserService.SetApprovalStatus(r.Context(), id, models.ApprovalDeclined); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User declined"})
}

// ChangeRole menja ulogu korisnika (admin).
func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Role models.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewValidationError("invalid request data"))
		return
	}

	if err := h.UserService.ChangeRole(r.Context(), id, req.Role); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Role updated"})
}

// DeleteUser briše nalog (admin).
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.UserService.DeleteUser(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}

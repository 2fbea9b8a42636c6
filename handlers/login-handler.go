package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ExQueueSee/task-manager-web-app-sub000/middleware"
	"github.com/ExQueueSee/task-manager-web-app-sub000/services"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type LoginHandler struct {
	UserService *services.UserService
}

func NewLoginHandler(userService *services.UserService) *LoginHandler {
	return &LoginHandler{UserService: userService}
}

// Login proverava kredencijale i vraća bearer token.
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewValidationError("invalid request format"))
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, services.NewValidationError("email and password are required"))
		return
	}

	user, token, err := h.UserService.LoginUser(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token: token,
		Email: user.Email,
		Role:  string(user.Role),
	})
}

// Logout poništava samo token iz ovog zahteva; ostale sesije ostaju aktivne.
func (h *LoginHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, services.NewUnauthorizedError("not authenticated"))
		return
	}

	token := middleware.TokenFromRequest(r)
	if err := h.UserService.LogoutUser(r.Context(), user.ID, token); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// ForgotPassword šalje email sa reset tokenom. Odgovor je isti postojao nalog
// ili ne, da se ne otkrivaju registrovane adrese.
func (h *LoginHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, services.NewValidationError("email is required"))
		return
	}

	if err := h.UserService.SendPasswordResetLink(r.Context(), req.Email); err != nil {
		appErr := services.AsAppError(err)
		if appErr.Kind != services.KindNotFound {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "If the account exists, a reset link has been sent"})
}

// ResetPassword postavlja novu lozinku na osnovu tokena iz emaila.
func (h *LoginHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.NewPassword == "" {
		writeError(w, services.NewValidationError("token and newPassword are required"))
		return
	}

	if err := h.UserService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

// ChangePassword menja lozinku prijavljenom korisniku.
func (h *LoginHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, services.NewUnauthorizedError("not authenticated"))
		return
	}

	var req struct {
		OldPassword     string `json:"oldPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewValidationError("invalid request format"))
		return
	}

	if err := h.UserService.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

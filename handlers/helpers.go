package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ExQueueSee/task-manager-web-app-sub000/logging"
	"github.com/ExQueueSee/task-manager-web-app-sub000/services"
)

// errorResponse je oblik svake greške koju backend vraća klijentu:
// mašinski čitljiv kind plus poruka, bez internih detalja.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	appErr := services.AsAppError(err)
	if appErr.Kind == services.KindDependency {
		// Interne greške se loguju u punom obliku, klijent dobija generičku poruku.
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	json.NewEncoder(w).Encode(errorResponse{
		Error:   string(appErr.Kind),
		Message: appErr.Message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

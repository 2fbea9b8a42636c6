package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ExQueueSee/task-manager-web-app-sub000/middleware"
	"github.com/ExQueueSee/task-manager-web-app-sub000/models"
	"github.com/ExQueueSee/task-manager-web-app-sub000/services"
	"github.com/ExQueueSee/task-manager-web-app-sub000/utils"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxAttachmentSize ograničava veličinu priloga na 10 MB.
const maxAttachmentSize = 10 << 20

type TaskHandler struct {
	TaskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{TaskService: taskService}
}

func taskIDFromPath(r *http.Request) (primitive.ObjectID, error) {
	vars := mux.Vars(r)
	id, err := primitive.ObjectIDFromHex(vars["id"])
	if err != nil {
		return primitive.NilObjectID, services.NewValidationError("invalid task ID format")
	}
	return id, nil
}

func actorFromContext(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, services.NewUnauthorizedError("not authenticated"))
		return models.User{}, false
	}
	return actor, true
}

// parseObjectIDs konvertuje hex stringove u ObjectID-jeve.
func parseObjectIDs(raw []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, services.NewValidationError("invalid account ID in visibleTo: %s", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CreateTask kreira novi task; vlasnik je kreator osim ako je izostavljen.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	var req services.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewValidationError("invalid request data"))
		return
	}

	task, err := h.TaskService.CreateTask(r.Context(), actor, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// ListTasks vraća taskove vidljive prijavljenom korisniku.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	tasks, err := h.TaskService.ListTasks(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

// GetTask vraća jedan task.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	taskID, err := taskIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	task, err := h.TaskService.GetTaskByID(r.Context(), actor, taskID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// taskUpdateRequest je dozvoljeni skup polja za opšti PATCH. Bilo koje drugo
// polje u telu obara ceo zahtev (DisallowUnknownFields), sve-ili-ništa.
type taskUpdateRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Status      *models.TaskStatus   `json:"status"`
	DueDate     *time.Time           `json:"dueDate"`
	Priority    *models.TaskPriority `json:"priority"`
	VisibleTo   *[]string            `json:"visibleTo"`
	IsPublic    *bool                `json:"isPublic"`
}

func (req taskUpdateRequest) toUpdate() (services.TaskUpdate, error) {
	update := services.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		IsPublic:    req.IsPublic,
	}
	if req.VisibleTo != nil {
		ids, err := parseObjectIDs(*req.VisibleTo)
		if err != nil {
			return services.TaskUpdate{}, err
		}
		update.VisibleTo = &ids
	}
	return update, nil
}

// UpdateTask je opšta izmena taska: okida autorizaciju, detektor probijenog
// roka i engine prelaza.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	taskID, err := taskIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req taskUpdateRequest
	if err := decoder.Decode(&req); err != nil {
		writeError(w, services.NewValidationError("request contains malformed or disallowed fields"))
		return
	}

	update, err := req.toUpdate()
	if err != nil {
		writeError(w, err)
		return
	}

	task, err := h.TaskService.UpdateTask(r.Context(), actor, taskID, update)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// AssignTask menja samo vlasnika; owner=null skida vlasnika sa taska.
func (h *TaskHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	taskID, err := taskIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Owner *string `json:"owner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewValidationError("invalid request data"))
		return
	}

	var newOwner *primitive.ObjectID
	if req.Owner != nil && *req.Owner != "" {
		id, err := primitive.ObjectIDFromHex(*req.Owner)
		if err != nil {
			writeError(w, services.NewValidationError("invalid owner ID format"))
			return
		}
		newOwner = &id
	}

	task, err := h.TaskService.AssignTask(r.Context(), actor, taskID, newOwner)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// ChangeVisibility menja samo vidljivost: ili isPublic ili lista naloga.
func (h *TaskHandler) ChangeVisibility(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	taskID, err := taskIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req struct {
		IsPublic  *bool     `json:"isPublic"`
		VisibleTo *[]string `json:"visibleTo"`
	}
	if err := decoder.Decode(&req); err != nil {
		writeError(w, services.NewValidationError("request contains malformed or disallowed fields"))
		return
	}

	update := services.TaskUpdate{IsPublic: req.IsPublic}
	if req.VisibleTo != nil {
		ids, err := parseObjectIDs(*req.VisibleTo)
		if err != nil {
			writeError(w, err)
			return
		}
		update.VisibleTo = &ids
	}

	task, err := h.TaskService.UpdateTask(r.Context(), actor, taskID, update)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// DeleteTask briše task.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	taskID, err := taskIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.TaskService.DeleteTask(r.Context(), actor, taskID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
}

// UploadAttachment prima multipart fajl i čuva ga u file store.
func (h *TaskHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	taskID, err := taskIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxAttachmentSize); err != nil {
		writeError(w, services.NewValidationError("invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, services.NewValidationError("file field is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentSize))
	if err != nil {
		writeError(w, services.NewDependencyError("failed to read uploaded file"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := h.TaskService.UploadAttachment(r.Context(), actor, taskID, header.Filename, contentType, data); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Attachment uploaded"})
}

// DownloadAttachment vraća sadržaj priloga.
func (h *TaskHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	taskID, err := taskIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	data, attachment, err := h.TaskService.DownloadAttachment(r.Context(), actor, taskID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", attachment.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.FileName))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ExportTasks vraća xlsx izveštaj sa vidljivim taskovima.
func (h *TaskHandler) ExportTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	tasks, owners, err := h.TaskService.GetExportData(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}

	buf, err := utils.ExportTasksToExcel(tasks, owners)
	if err != nil {
		writeError(w, services.NewDependencyError("failed to generate export"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\"tasks.xlsx\"")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

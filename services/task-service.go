package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ExQueueSee/task-manager-web-app-sub000/logging"
	"github.com/ExQueueSee/task-manager-web-app-sub000/models"
	"github.com/ExQueueSee/task-manager-web-app-sub000/repositories"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type TaskService struct {
	TasksCollection *mongo.Collection
	UserService     *UserService
	Notifications   *repositories.NotificationRepo
	Files           *FileService
}

func NewTaskService(
	tasksCollection *mongo.Collection,
	userService *UserService,
	notifications *repositories.NotificationRepo,
	files *FileService,
) *TaskService {
	return &TaskService{
		TasksCollection: tasksCollection,
		UserService:     userService,
		Notifications:   notifications,
		Files:           files,
	}
}

// CreateTaskRequest su polja koja klijent šalje pri kreiranju taska.
type CreateTaskRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	DueDate     *time.Time           `json:"dueDate,omitempty"`
	Priority    models.TaskPriority  `json:"priority,omitempty"`
	IsPublic    bool                 `json:"isPublic"`
	VisibleTo   []primitive.ObjectID `json:"visibleTo,omitempty"`
	// Unassigned: true znači da task ostaje bez vlasnika umesto da se
	// podrazumevano dodeli kreatoru.
	Unassigned bool `json:"unassigned,omitempty"`
}

// CreateTask kreira task; vlasnik je kreator osim ako je eksplicitno izostavljen.
func (s *TaskService) CreateTask(ctx context.Context, actor models.User, req CreateTaskRequest) (*models.Task, error) {
	if len(req.Title) < minTitleLength {
		return nil, NewValidationError("title must be at least %d characters long", minTitleLength)
	}
	if len(req.Description) < minDescriptionLength {
		return nil, NewValidationError("description must be at least %d characters long", minDescriptionLength)
	}
	if req.Priority != "" && !req.Priority.IsValid() {
		return nil, NewValidationError("invalid task priority: %s", req.Priority)
	}
	if req.IsPublic && len(req.VisibleTo) > 0 {
		return nil, NewValidationError("isPublic and visibleTo are mutually exclusive")
	}

	now := time.Now()
	task := &models.Task{
		ID:          primitive.NewObjectID(),
		Title:       req.Title,
		Description: req.Description,
		Status:      models.StatusPending,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		IsPublic:    req.IsPublic,
		VisibleTo:   req.VisibleTo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Task sa vlasnikom ne sme da ostane pending; dodela se upisuje u istoriju
	// kao i kod assign endpointa.
	if !req.Unassigned {
		owner := actor.ID
		task.Owner = &owner
		task.Status = models.StatusInProgress
		task.History = append(task.History, models.HistoryEntry{
			Action:      models.ActionAssigned,
			Date:        now,
			PerformedBy: actor.ID,
			AssignedTo:  &owner,
		})
	}

	if _, err := s.TasksCollection.InsertOne(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %v", err)
	}

	return task, nil
}

// GetTaskByID vraća task ako ga akter sme videti; usput lenjo reklasifikuje
// probijen rok.
func (s *TaskService) GetTaskByID(ctx context.Context, actor models.User, taskID primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	if err := s.TasksCollection.FindOne(ctx, bson.M{"_id": taskID}).Decode(&task); err != nil {
		return nil, NewNotFoundError("task not found")
	}

	if !task.VisibleBy(actor.ID, actor.Role) {
		// 404 umesto 403 da se ne otkriva postojanje tuđih taskova.
		return nil, NewNotFoundError("task not found")
	}

	reclassified := s.reclassifyIfOverdue(ctx, task, time.Now())
	return &reclassified, nil
}

// ListTasks vraća sve taskove vidljive akteru.
func (s *TaskService) ListTasks(ctx context.Context, actor models.User) ([]models.Task, error) {
	filter := bson.M{}
	if actor.Role != models.RoleAdmin {
		filter = bson.M{"$or": []bson.M{
			{"isPublic": true},
			{"owner": actor.ID},
			{"visibleTo": actor.ID},
		}}
	}

	cursor, err := s.TasksCollection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %v", err)
	}
	defer cursor.Close(ctx)

	var tasks []models.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %v", err)
	}

	now := time.Now()
	for i := range tasks {
		tasks[i] = s.reclassifyIfOverdue(ctx, tasks[i], now)
	}

	return tasks, nil
}

// UpdateTask je glavna operacija izmene: validacija pa autorizacija pre bilo
// kakve izmene, zatim lenja reklasifikacija, engine i upis.
func (s *TaskService) UpdateTask(ctx context.Context, actor models.User, taskID primitive.ObjectID, update TaskUpdate) (*models.Task, error) {
	if err := ValidateTaskUpdate(update); err != nil {
		return nil, err
	}

	var task models.Task
	if err := s.TasksCollection.FindOne(ctx, bson.M{"_id": taskID}).Decode(&task); err != nil {
		return nil, NewNotFoundError("task not found")
	}

	now := time.Now()
	if err := AuthorizeTaskUpdate(task, update, actor, now); err != nil {
		return nil, err
	}

	// Tiho probijen rok se prvo reklasifikuje (sa kaznom), pa se tek onda
	// primenjuje tražena izmena.
	task = s.reclassifyIfOverdue(ctx, task, now)

	result := ApplyTransition(task, update, actor, now)

	if err := s.persistTransition(ctx, task, result); err != nil {
		return nil, err
	}

	s.notifyAssignment(actor, result)

	return &result.Task, nil
}

// AssignTask menja vlasnika taska. Prazan newOwner vraća task u pending bez
// vlasnika (behind-schedule zadržava status, skida se samo vlasnik); dodela
// vlasnika pending tasku ga prevodi u in-progress.
func (s *TaskService) AssignTask(ctx context.Context, actor models.User, taskID primitive.ObjectID, newOwner *primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	if err := s.TasksCollection.FindOne(ctx, bson.M{"_id": taskID}).Decode(&task); err != nil {
		return nil, NewNotFoundError("task not found")
	}

	now := time.Now()
	if err := AuthorizeTaskAssign(task, newOwner, actor, now); err != nil {
		return nil, err
	}

	if newOwner != nil {
		if _, err := s.UserService.GetUserByID(ctx, *newOwner); err != nil {
			return nil, NewValidationError("assignee account does not exist")
		}
	}

	task = s.reclassifyIfOverdue(ctx, task, now)

	update := TaskUpdate{}
	if newOwner == nil {
		update.RemoveOwner = true
		// Skidanje vlasnika ide kroz eksplicitni pending, koji po pravilu
		// uvek čisti owner polje. Izuzetak je behind-schedule: puštanje ne
		// sme da izvuče task iz zaključanog statusa, skida se samo vlasnik.
		if task.Status != models.StatusBehindSchedule {
			pending := models.StatusPending
			update.Status = &pending
		}
	} else {
		update.Owner = newOwner
		if task.Status == models.StatusPending {
			inProgress := models.StatusInProgress
			update.Status = &inProgress
		}
	}

	result := ApplyTransition(task, update, actor, now)

	if err := s.persistTransition(ctx, task, result); err != nil {
		return nil, err
	}

	s.notifyAssignment(actor, result)

	return &result.Task, nil
}

// DeleteTask briše task i njegov prilog (best-effort).
func (s *TaskService) DeleteTask(ctx context.Context, actor models.User, taskID primitive.ObjectID) error {
	var task models.Task
	if err := s.TasksCollection.FindOne(ctx, bson.M{"_id": taskID}).Decode(&task); err != nil {
		return NewNotFoundError("task not found")
	}

	if err := AuthorizeTaskDelete(task, actor); err != nil {
		return err
	}

	if _, err := s.TasksCollection.DeleteOne(ctx, bson.M{"_id": taskID}); err != nil {
		return fmt.Errorf("failed to delete task: %v", err)
	}

	if task.Attachment != nil && s.Files != nil {
		if err := s.Files.DeleteAttachment(ctx, taskID.Hex()); err != nil {
			logging.Logger.Warnf("Event ID: ATTACHMENT_DELETE_FAILED, Description: Failed to delete attachment for task %s: %v", taskID.Hex(), err)
		}
	}

	return nil
}

// UploadAttachment čuva prilog u file store i upisuje metapodatke na task.
func (s *TaskService) UploadAttachment(ctx context.Context, actor models.User, taskID primitive.ObjectID, fileName, contentType string, data []byte) error {
	if len(data) == 0 {
		return NewValidationError("attachment is empty")
	}

	var task models.Task
	if err := s.TasksCollection.FindOne(ctx, bson.M{"_id": taskID}).Decode(&task); err != nil {
		return NewNotFoundError("task not found")
	}

	if err := AuthorizeTaskUpdate(task, TaskUpdate{}, actor, time.Now()); err != nil {
		return err
	}
	if s.Files == nil {
		return NewDependencyError("file store is not configured")
	}

	if err := s.Files.UploadAttachment(ctx, taskID.Hex(), contentType, data); err != nil {
		return NewDependencyError("failed to store attachment")
	}

	update := bson.M{"$set": bson.M{
		"attachment": models.Attachment{FileName: fileName, ContentType: contentType},
		"updatedAt":  time.Now(),
	}}
	if _, err := s.TasksCollection.UpdateOne(ctx, bson.M{"_id": taskID}, update); err != nil {
		return fmt.Errorf("failed to update attachment metadata: %v", err)
	}
	return nil
}

// DownloadAttachment vraća sadržaj i metapodatke priloga.
func (s *TaskService) DownloadAttachment(ctx context.Context, actor models.User, taskID primitive.ObjectID) ([]byte, *models.Attachment, error) {
	var task models.Task
	if err := s.TasksCollection.FindOne(ctx, bson.M{"_id": taskID}).Decode(&task); err != nil {
		return nil, nil, NewNotFoundError("task not found")
	}
	if !task.VisibleBy(actor.ID, actor.Role) {
		return nil, nil, NewNotFoundError("task not found")
	}
	if task.Attachment == nil || s.Files == nil {
		return nil, nil, NewNotFoundError("task has no attachment")
	}

	data, err := s.Files.DownloadAttachment(ctx, taskID.Hex())
	if err != nil {
		return nil, nil, NewDependencyError("failed to fetch attachment")
	}
	return data, task.Attachment, nil
}

// GetExportData vraća vidljive taskove i mapu vlasnika za Excel izveštaj.
func (s *TaskService) GetExportData(ctx context.Context, actor models.User) ([]models.Task, map[primitive.ObjectID]models.User, error) {
	tasks, err := s.ListTasks(ctx, actor)
	if err != nil {
		return nil, nil, err
	}

	owners := make(map[primitive.ObjectID]models.User)
	for _, task := range tasks {
		if task.Owner == nil {
			continue
		}
		if _, ok := owners[*task.Owner]; ok {
			continue
		}
		owner, err := s.UserService.GetUserByID(ctx, *task.Owner)
		if err != nil {
			continue // obrisan vlasnik, kolona ostaje prazna
		}
		owners[*task.Owner] = owner
	}

	return tasks, owners, nil
}

// reclassifyIfOverdue lenjo prevodi task sa probijenim rokom u behind-schedule
// i upisuje kaznu vlasniku. Za task koji nije probio rok vraća ulaz netaknut.
// now deli sa pozivaocem, da reklasifikacija i izmena nose isti timestamp.
func (s *TaskService) reclassifyIfOverdue(ctx context.Context, task models.Task, now time.Time) models.Task {
	reclassified, delta := ReclassifyOverdue(task, now)
	if reclassified.Status == task.Status {
		return task
	}

	update := bson.M{"$set": bson.M{
		"status":    reclassified.Status,
		"updatedAt": reclassified.UpdatedAt,
	}}
	if _, err := s.TasksCollection.UpdateOne(ctx, bson.M{"_id": task.ID}, update); err != nil {
		logging.Logger.Errorf("Event ID: OVERDUE_RECLASSIFY_FAILED, Description: Failed to persist behind-schedule status for task %s: %v", task.ID.Hex(), err)
		return task
	}

	logging.Logger.Infof("Event ID: TASK_BEHIND_SCHEDULE, Description: Task %s reclassified to behind-schedule", task.ID.Hex())

	if delta != 0 && task.Owner != nil {
		if err := s.UserService.ApplyCreditDelta(ctx, *task.Owner, delta); err != nil {
			logging.Logger.Errorf("Event ID: CREDIT_APPLY_FAILED, Description: Failed to apply credit delta %d for task %s: %v", delta, task.ID.Hex(), err)
		}
	}

	return reclassified
}

// persistTransition upisuje novo stanje taska, pa kredite vlasnika. Nema
// transakcije preko dva dokumenta: pad između dva upisa je prihvaćen
// best-effort (videti i dvostruko slanje iste tranzicije).
func (s *TaskService) persistTransition(ctx context.Context, original models.Task, result TransitionResult) error {
	newTask := result.Task

	update := bson.M{"$set": bson.M{
		"title":       newTask.Title,
		"description": newTask.Description,
		"status":      newTask.Status,
		"owner":       newTask.Owner,
		"dueDate":     newTask.DueDate,
		"priority":    newTask.Priority,
		"isPublic":    newTask.IsPublic,
		"visibleTo":   newTask.VisibleTo,
		"history":     newTask.History,
		"updatedAt":   newTask.UpdatedAt,
	}}

	res, err := s.TasksCollection.UpdateOne(ctx, bson.M{"_id": newTask.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update task: %v", err)
	}
	if res.MatchedCount == 0 {
		return NewNotFoundError("task not found")
	}

	// Krediti idu vlasniku koga je task imao pre izmene.
	if result.CreditDelta != 0 && original.Owner != nil {
		if err := s.UserService.ApplyCreditDelta(ctx, *original.Owner, result.CreditDelta); err != nil {
			logging.Logger.Errorf("Event ID: CREDIT_APPLY_FAILED, Description: Failed to apply credit delta %d for task %s: %v", result.CreditDelta, newTask.ID.Hex(), err)
		}
	}

	return nil
}

// notifyAssignment upisuje inbox notifikaciju novom vlasniku; pad se guta.
func (s *TaskService) notifyAssignment(actor models.User, result TransitionResult) {
	if s.Notifications == nil {
		return
	}
	for _, entry := range result.Appended {
		if entry.Action != models.ActionAssigned || entry.AssignedTo == nil {
			continue
		}
		assignee, err := s.UserService.GetUserByID(context.Background(), *entry.AssignedTo)
		if err != nil {
			continue
		}
		notification := models.Notification{
			UserID:  assignee.ID.Hex(),
			Email:   assignee.Email,
			Message: fmt.Sprintf("You have been assigned the task '%s'", result.Task.Title),
		}
		if err := s.Notifications.CreateNotification(&notification); err != nil {
			logging.Logger.Warnf("Event ID: NOTIFICATION_CREATE_FAILED, Description: Failed to create assignment notification: %v", err)
		}
	}
}

package services

import (
	"context"
	"time"

	"github.com/ExQueueSee/task-manager-web-app-sub000/logging"
	"github.com/ExQueueSee/task-manager-web-app-sub000/models"
	"github.com/ExQueueSee/task-manager-web-app-sub000/utils"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
)

// reminderWindow - podsetnici se šalju za taskove kojima rok ističe u
// narednih 24 sata.
const reminderWindow = 24 * time.Hour

// OverdueService periodično prolazi kroz taskove: probijene rokove
// reklasifikuje u behind-schedule, a za rokove koji se bliže šalje podsetnike.
// Podsetnici su best-effort i at-least-once: nema deduplikacije, isti task
// može dobiti podsetnik u više sweep-ova.
type OverdueService struct {
	Tasks        *TaskService
	Users        *UserService
	EmailBreaker *gobreaker.CircuitBreaker
}

func NewOverdueService(tasks *TaskService, users *UserService, emailBreaker *gobreaker.CircuitBreaker) *OverdueService {
	return &OverdueService{
		Tasks:        tasks,
		Users:        users,
		EmailBreaker: emailBreaker,
	}
}

// StartSweep pokreće sweep u pozadini sa zadatim intervalom (sat vremena u
// produkciji). Prvi prolaz ide odmah po startu.
func (s *OverdueService) StartSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.RunSweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunSweep(ctx)
			}
		}
	}()
}

// RunSweep izvršava jedan prolaz.
func (s *OverdueService) RunSweep(ctx context.Context) {
	now := time.Now()

	filter := bson.M{
		"status":  bson.M{"$in": []models.TaskStatus{models.StatusPending, models.StatusInProgress}},
		"dueDate": bson.M{"$lt": now.Add(reminderWindow)},
	}

	cursor, err := s.Tasks.TasksCollection.Find(ctx, filter)
	if err != nil {
		logging.Logger.Errorf("Event ID: SWEEP_QUERY_FAILED, Description: Overdue sweep query failed: %v", err)
		return
	}
	defer cursor.Close(ctx)

	var tasks []models.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		logging.Logger.Errorf("Event ID: SWEEP_DECODE_FAILED, Description: Overdue sweep decode failed: %v", err)
		return
	}

	reclassified, reminded := 0, 0
	for _, task := range tasks {
		if task.IsOverdue(now) {
			s.Tasks.reclassifyIfOverdue(ctx, task, now)
			reclassified++
			continue
		}
		s.sendReminders(ctx, task)
		reminded++
	}

	// Usputno čišćenje naloga kojima je istekao rok za verifikaciju.
	s.Users.DeleteExpiredUnverifiedUsers(ctx)

	if reclassified > 0 || reminded > 0 {
		logging.Logger.Infof("Event ID: SWEEP_COMPLETED, Description: Overdue sweep done, reclassified=%d, reminded=%d", reclassified, reminded)
	}
}

// sendReminders šalje podsetnik vlasniku i svim nalozima sa eksplicitnom
// vidljivošću. Pad slanja se loguje i ne ponavlja.
func (s *OverdueService) sendReminders(ctx context.Context, task models.Task) {
	if task.DueDate == nil {
		return
	}

	recipients := make(map[string]models.User)
	if task.Owner != nil {
		if owner, err := s.Users.GetUserByID(ctx, *task.Owner); err == nil {
			recipients[owner.Email] = owner
		}
	}
	for _, id := range task.VisibleTo {
		if user, err := s.Users.GetUserByID(ctx, id); err == nil {
			recipients[user.Email] = user
		}
	}

	for email, user := range recipients {
		_, err := s.EmailBreaker.Execute(func() (interface{}, error) {
			return nil, utils.SendReminderEmail(email, task.Title, *task.DueDate)
		})
		if err != nil {
			logging.Logger.Warnf("Event ID: REMINDER_SEND_FAILED, Description: Reminder for task %s to %s failed: %v", task.ID.Hex(), email, err)
			continue
		}

		if s.Tasks.Notifications != nil {
			notification := models.Notification{
				UserID:  user.ID.Hex(),
				Email:   email,
				Message: "Task '" + task.Title + "' is due on " + task.DueDate.Format("02 Jan 2006 15:04"),
			}
			if err := s.Tasks.Notifications.CreateNotification(&notification); err != nil {
				logging.Logger.Warnf("Event ID: NOTIFICATION_CREATE_FAILED, Description: Reminder notification failed: %v", err)
			}
		}
	}
}

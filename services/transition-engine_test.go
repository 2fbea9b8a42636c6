package services

import (
	"testing"
	"time"

	"github.com/ExQueueSee/task-manager-web-app-sub000/models"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func statusPtr(s models.TaskStatus) *models.TaskStatus { return &s }

func ownedTask(owner primitive.ObjectID, status models.TaskStatus, dueDate *time.Time) models.Task {
	return models.Task{
		ID:          primitive.NewObjectID(),
		Title:       "Quarterly report",
		Description: "Prepare the quarterly report",
		Status:      status,
		Owner:       &owner,
		DueDate:     dueDate,
	}
}

func TestApplyTransition_CompletedTwoDaysEarly(t *testing.T) {
	t.Parallel()

	now := time.Now()
	due := now.Add(3 * 24 * time.Hour)
	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusInProgress, &due)
	actor := models.User{ID: owner}

	result := ApplyTransition(task, TaskUpdate{Status: statusPtr(models.StatusCompleted)}, actor, now)

	require.Equal(t, models.StatusCompleted, result.Task.Status)
	require.Equal(t, 2, result.CreditDelta)
	require.Len(t, result.Appended, 1)
	require.Equal(t, models.ActionCompleted, result.Appended[0].Action)
	require.Equal(t, actor.ID, result.Appended[0].PerformedBy)
}

func TestApplyTransition_CompletedUnderTwoDaysEarly(t *testing.T) {
	t.Parallel()

	now := time.Now()
	due := now.Add(12 * time.Hour)
	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusInProgress, &due)

	result := ApplyTransition(task, TaskUpdate{Status: statusPtr(models.StatusCompleted)}, models.User{ID: owner}, now)

	require.Equal(t, 1, result.CreditDelta)
}

func TestApplyTransition_CompletedExactlyTwoDaysEarly(t *testing.T) {
	t.Parallel()

	now := time.Now()
	due := now.Add(2 * 24 * time.Hour)
	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusInProgress, &due)

	result := ApplyTransition(task, TaskUpdate{Status: statusPtr(models.StatusCompleted)}, models.User{ID: owner}, now)

	require.Equal(t, 2, result.CreditDelta)
}

func TestApplyTransition_CompletedLate(t *testing.T) {
	t.Parallel()

	now := time.Now()
	due := now.Add(-1 * time.Hour)
	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusBehindSchedule, &due)

	result := ApplyTransition(task, TaskUpdate{Status: statusPtr(models.StatusCompleted)}, models.User{ID: owner}, now)

	require.Equal(t, models.StatusCompleted, result.Task.Status)
	require.Equal(t, 0, result.CreditDelta)
	require.Len(t, result.Appended, 1)
	require.Equal(t, models.ActionCompleted, result.Appended[0].Action)
}

func TestApplyTransition_CompletedWithoutDueDate(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusInProgress, nil)

	result := ApplyTransition(task, TaskUpdate{Status: statusPtr(models.StatusCompleted)}, models.User{ID: owner}, time.Now())

	require.Equal(t, 0, result.CreditDelta)
}

func TestApplyTransition_CompletedWithoutOwnerGivesNoCredit(t *testing.T) {
	t.Parallel()

	now := time.Now()
	due := now.Add(5 * 24 * time.Hour)
	task := models.Task{
		ID:      primitive.NewObjectID(),
		Title:   "Unowned",
		Status:  models.StatusPending,
		DueDate: &due,
	}

	result := ApplyTransition(task, TaskUpdate{Status: statusPtr(models.StatusCompleted)}, models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}, now)

	require.Equal(t, 0, result.CreditDelta)
	require.Equal(t, models.StatusCompleted, result.Task.Status)
}

func TestApplyTransition_BehindScheduleSelfAssignedPenalty(t *testing.T) {
	t.Parallel()

	now := time.Now()
	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusInProgress, nil)
	task.History = []models.HistoryEntry{{
		Action:      models.ActionAssigned,
		Date:        now.Add(-48 * time.Hour),
		PerformedBy: owner,
		AssignedTo:  &owner,
	}}

	result := ApplyTransition(task, TaskUpdate{Status: statusPtr(models.StatusBehindSchedule)}, models.User{ID: owner}, now)

	require.Equal(t, -1, result.CreditDelta)
}

func TestApplyTransition_BehindScheduleAdminAssignedPenalty(t *testing.T) {
	t.Parallel()

	now := time.Now()
	owner := primitive.NewObjectID()
	admin := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusInProgress, nil)
	task.History = []models.HistoryEntry{{
		Action:      models.ActionAssigned,
		Date:        now.Add(-48 * time.Hour),
		PerformedBy: admin,
		AssignedTo:  &owner,
	}}

	result := ApplyTransition(task, TaskUpdate{Status: statusPtr(models.StatusBehindSchedule)}, models.User{ID: admin, Role: models.RoleAdmin}, now)

	require.Equal(t, -2, result.CreditDelta)
}

func TestApplyTransition_BehindScheduleNoAssignmentRecord(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusPending, nil)

	result := ApplyTransition(task, TaskUpdate{Status: statusPtr(models.StatusBehindSchedule)}, models.User{ID: owner}, time.Now())

	require.Equal(t, -1, result.CreditDelta)
}

func TestApplyTransition_CancelledFromBehindScheduleRefund(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusBehindSchedule, nil)

	result := ApplyTransition(task, TaskUpdate{Status: statusPtr(models.StatusCancelled)}, models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}, time.Now())

	require.Equal(t, models.StatusCancelled, result.Task.Status)
	require.Equal(t, 1, result.CreditDelta)
}

func TestApplyTransition_CancelledFromInProgressNoRefund(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusInProgress, nil)

	result := ApplyTransition(task, TaskUpdate{Status: statusPtr(models.StatusCancelled)}, models.User{ID: owner}, time.Now())

	require.Equal(t, 0, result.CreditDelta)
}

func TestApplyTransition_ExplicitPendingClearsOwner(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusInProgress, nil)

	result := ApplyTransition(task, TaskUpdate{Status: statusPtr(models.StatusPending)}, models.User{ID: owner}, time.Now())

	require.Nil(t, result.Task.Owner)
	require.Equal(t, models.StatusPending, result.Task.Status)
	require.Equal(t, 0, result.CreditDelta)
}

func TestApplyTransition_PendingClearsOwnerEvenWhenAlreadyPending(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusPending, nil)

	result := ApplyTransition(task, TaskUpdate{Status: statusPtr(models.StatusPending)}, models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}, time.Now())

	require.Nil(t, result.Task.Owner)
}

func TestApplyTransition_AssignmentAppendsHistory(t *testing.T) {
	t.Parallel()

	now := time.Now()
	admin := primitive.NewObjectID()
	newOwner := primitive.NewObjectID()
	task := models.Task{
		ID:     primitive.NewObjectID(),
		Title:  "Unowned",
		Status: models.StatusPending,
	}

	result := ApplyTransition(task, TaskUpdate{Owner: &newOwner}, models.User{ID: admin, Role: models.RoleAdmin}, now)

	require.NotNil(t, result.Task.Owner)
	require.Equal(t, newOwner, *result.Task.Owner)
	require.Len(t, result.Appended, 1)
	entry := result.Appended[0]
	require.Equal(t, models.ActionAssigned, entry.Action)
	require.Equal(t, admin, entry.PerformedBy)
	require.NotNil(t, entry.AssignedTo)
	require.Equal(t, newOwner, *entry.AssignedTo)
}

func TestApplyTransition_VisibleToForcesPrivate(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusInProgress, nil)
	task.IsPublic = true

	visibleTo := []primitive.ObjectID{primitive.NewObjectID()}
	result := ApplyTransition(task, TaskUpdate{VisibleTo: &visibleTo}, models.User{ID: owner}, time.Now())

	require.False(t, result.Task.IsPublic)
	require.Equal(t, visibleTo, result.Task.VisibleTo)
}

func TestApplyTransition_IsPublicClearsVisibleTo(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusInProgress, nil)
	task.VisibleTo = []primitive.ObjectID{primitive.NewObjectID()}

	isPublic := true
	result := ApplyTransition(task, TaskUpdate{IsPublic: &isPublic}, models.User{ID: owner}, time.Now())

	require.True(t, result.Task.IsPublic)
	require.Nil(t, result.Task.VisibleTo)
}

func TestApplyTransition_IdempotentStatusReapply(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusCompleted, nil)
	task.History = []models.HistoryEntry{{
		Action:      models.ActionCompleted,
		Date:        time.Now().Add(-time.Hour),
		PerformedBy: owner,
	}}

	result := ApplyTransition(task, TaskUpdate{Status: statusPtr(models.StatusCompleted)}, models.User{ID: owner}, time.Now())

	require.Equal(t, 0, result.CreditDelta)
	require.Empty(t, result.Appended)
	require.Len(t, result.Task.History, 1)
}

func TestApplyTransition_AdminDueDateExtensionResetsStatus(t *testing.T) {
	t.Parallel()

	now := time.Now()
	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusBehindSchedule, nil)

	newDue := now.Add(48 * time.Hour)
	result := ApplyTransition(task, TaskUpdate{DueDate: &newDue}, models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}, now)

	require.Equal(t, models.StatusInProgress, result.Task.Status)
	require.Equal(t, 0, result.CreditDelta)
}

func TestApplyTransition_AdminDueDateExtensionUnownedResetsToPending(t *testing.T) {
	t.Parallel()

	now := time.Now()
	task := models.Task{
		ID:     primitive.NewObjectID(),
		Title:  "Unowned",
		Status: models.StatusBehindSchedule,
	}

	newDue := now.Add(48 * time.Hour)
	result := ApplyTransition(task, TaskUpdate{DueDate: &newDue}, models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}, now)

	require.Equal(t, models.StatusPending, result.Task.Status)
}

func TestApplyTransition_UpdatedEntryForFieldChange(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusInProgress, nil)

	newTitle := "Quarterly report v2"
	result := ApplyTransition(task, TaskUpdate{Title: &newTitle}, models.User{ID: owner}, time.Now())

	require.Len(t, result.Appended, 1)
	require.Equal(t, models.ActionUpdated, result.Appended[0].Action)
	require.Equal(t, "Quarterly report v2", result.Task.Title)
}

func TestApplyTransition_NoChangeNoHistory(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusInProgress, nil)

	sameTitle := task.Title
	result := ApplyTransition(task, TaskUpdate{Title: &sameTitle}, models.User{ID: owner}, time.Now())

	require.Empty(t, result.Appended)
	require.Empty(t, result.Task.History)
}

func TestReclassifyOverdue(t *testing.T) {
	t.Parallel()

	now := time.Now()
	owner := primitive.NewObjectID()
	admin := primitive.NewObjectID()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	t.Run("overdue admin-assigned task gets -2", func(t *testing.T) {
		task := ownedTask(owner, models.StatusInProgress, &past)
		task.History = []models.HistoryEntry{{
			Action:      models.ActionAssigned,
			Date:        now.Add(-72 * time.Hour),
			PerformedBy: admin,
			AssignedTo:  &owner,
		}}

		reclassified, delta := ReclassifyOverdue(task, now)
		require.Equal(t, models.StatusBehindSchedule, reclassified.Status)
		require.Equal(t, -2, delta)
	})

	t.Run("overdue self-assigned task gets -1", func(t *testing.T) {
		task := ownedTask(owner, models.StatusPending, &past)

		reclassified, delta := ReclassifyOverdue(task, now)
		require.Equal(t, models.StatusBehindSchedule, reclassified.Status)
		require.Equal(t, -1, delta)
	})

	t.Run("overdue unowned task changes status without penalty", func(t *testing.T) {
		task := models.Task{ID: primitive.NewObjectID(), Status: models.StatusPending, DueDate: &past}

		reclassified, delta := ReclassifyOverdue(task, now)
		require.Equal(t, models.StatusBehindSchedule, reclassified.Status)
		require.Equal(t, 0, delta)
	})

	t.Run("future due date is a no-op", func(t *testing.T) {
		task := ownedTask(owner, models.StatusInProgress, &future)

		reclassified, delta := ReclassifyOverdue(task, now)
		require.Equal(t, models.StatusInProgress, reclassified.Status)
		require.Equal(t, 0, delta)
	})

	t.Run("already behind-schedule is a no-op", func(t *testing.T) {
		task := ownedTask(owner, models.StatusBehindSchedule, &past)

		reclassified, delta := ReclassifyOverdue(task, now)
		require.Equal(t, models.StatusBehindSchedule, reclassified.Status)
		require.Equal(t, 0, delta)
	})

	t.Run("completed task is never overdue", func(t *testing.T) {
		task := ownedTask(owner, models.StatusCompleted, &past)

		_, delta := ReclassifyOverdue(task, now)
		require.Equal(t, 0, delta)
	})
}

// Scenario iz prakse: task probije rok, pa ga admin otkaže - neto -1.
func TestScenario_OverduePenaltyThenCancelRefund(t *testing.T) {
	t.Parallel()

	now := time.Now()
	owner := primitive.NewObjectID()
	admin := primitive.NewObjectID()

	past := now.Add(-time.Hour)
	task := ownedTask(owner, models.StatusInProgress, &past)
	task.History = []models.HistoryEntry{{
		Action:      models.ActionAssigned,
		Date:        now.Add(-96 * time.Hour),
		PerformedBy: admin,
		AssignedTo:  &owner,
	}}

	reclassified, penalty := ReclassifyOverdue(task, now)
	require.Equal(t, -2, penalty)

	result := ApplyTransition(reclassified, TaskUpdate{Status: statusPtr(models.StatusCancelled)}, models.User{ID: admin, Role: models.RoleAdmin}, now)
	require.Equal(t, 1, result.CreditDelta)
	require.Equal(t, -1, penalty+result.CreditDelta)
}

// Puštanje zaključanog taska skida samo vlasnika: status ostaje
// behind-schedule, bez promene kredita.
func TestApplyTransition_ReleaseKeepsBehindSchedule(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusBehindSchedule, nil)
	admin := models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}

	result := ApplyTransition(task, TaskUpdate{RemoveOwner: true}, admin, time.Now())

	require.Equal(t, models.StatusBehindSchedule, result.Task.Status)
	require.Nil(t, result.Task.Owner)
	require.Zero(t, result.CreditDelta)
}

// Reklasifikacija i izmena koje dele isti trenutak moraju da proizvedu
// konzistentne timestampe: nijedan zapis istorije ne sme da prethodi
// upisanoj reklasifikaciji.
func TestReclassifyAndTransitionShareTimestamp(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	now := time.Now()
	past := now.Add(-time.Hour)
	task := ownedTask(owner, models.StatusInProgress, &past)

	reclassified, _ := ReclassifyOverdue(task, now)
	require.Equal(t, now, reclassified.UpdatedAt)

	result := ApplyTransition(reclassified, TaskUpdate{Status: statusPtr(models.StatusCancelled)}, models.User{ID: owner, Role: models.RoleAdmin}, now)
	require.Equal(t, now, result.Task.UpdatedAt)
	for _, entry := range result.Appended {
		require.False(t, entry.Date.Before(reclassified.UpdatedAt))
	}
}

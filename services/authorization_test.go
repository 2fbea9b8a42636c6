package services

import (
	"testing"
	"time"

	"github.com/ExQueueSee/task-manager-web-app-sub000/models"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, AsAppError(err).Kind)
}

func TestAuthorizeTaskUpdate_OwnerAllowed(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusInProgress, nil)
	actor := models.User{ID: owner, Role: models.RoleUser}

	newTitle := "New title"
	err := AuthorizeTaskUpdate(task, TaskUpdate{Title: &newTitle}, actor, time.Now())
	require.NoError(t, err)
}

func TestAuthorizeTaskUpdate_NonOwnerForbidden(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusInProgress, nil)
	actor := models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}

	newTitle := "New title"
	err := AuthorizeTaskUpdate(task, TaskUpdate{Title: &newTitle}, actor, time.Now())
	requireKind(t, err, KindForbidden)
}

func TestAuthorizeTaskUpdate_UnownedTaskAdminOnly(t *testing.T) {
	t.Parallel()

	task := models.Task{ID: primitive.NewObjectID(), Status: models.StatusPending}
	newTitle := "New title"

	err := AuthorizeTaskUpdate(task, TaskUpdate{Title: &newTitle}, models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}, time.Now())
	requireKind(t, err, KindForbidden)

	err = AuthorizeTaskUpdate(task, TaskUpdate{Title: &newTitle}, models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}, time.Now())
	require.NoError(t, err)
}

func TestAuthorizeTaskUpdate_LockoutNonAdminCannotTouchStatusOrDueDate(t *testing.T) {
	t.Parallel()

	now := time.Now()
	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusBehindSchedule, nil)
	actor := models.User{ID: owner, Role: models.RoleUser}

	newDue := now.Add(24 * time.Hour)
	err := AuthorizeTaskUpdate(task, TaskUpdate{DueDate: &newDue}, actor, now)
	requireKind(t, err, KindForbidden)

	err = AuthorizeTaskUpdate(task, TaskUpdate{Status: statusPtr(models.StatusInProgress)}, actor, now)
	requireKind(t, err, KindForbidden)

	// Ostala polja smeju da se menjaju i na zaključanom tasku.
	newTitle := "Still editable"
	err = AuthorizeTaskUpdate(task, TaskUpdate{Title: &newTitle}, actor, now)
	require.NoError(t, err)
}

func TestAuthorizeTaskUpdate_SilentlyOverdueCountsAsLocked(t *testing.T) {
	t.Parallel()

	now := time.Now()
	owner := primitive.NewObjectID()
	past := now.Add(-time.Hour)
	// Task je i dalje in-progress ali mu je rok tiho prošao.
	task := ownedTask(owner, models.StatusInProgress, &past)
	actor := models.User{ID: owner, Role: models.RoleUser}

	err := AuthorizeTaskUpdate(task, TaskUpdate{Status: statusPtr(models.StatusCompleted)}, actor, now)
	requireKind(t, err, KindForbidden)
}

func TestAuthorizeTaskUpdate_LockoutAdminTransitions(t *testing.T) {
	t.Parallel()

	now := time.Now()
	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusBehindSchedule, nil)
	admin := models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}

	err := AuthorizeTaskUpdate(task, TaskUpdate{Status: statusPtr(models.StatusCompleted)}, admin, now)
	require.NoError(t, err)

	err = AuthorizeTaskUpdate(task, TaskUpdate{Status: statusPtr(models.StatusCancelled)}, admin, now)
	require.NoError(t, err)

	// in-progress bez produženja roka je konflikt stanja
	err = AuthorizeTaskUpdate(task, TaskUpdate{Status: statusPtr(models.StatusInProgress)}, admin, now)
	requireKind(t, err, KindStateConflict)

	// sa produženjem roka u budućnost prolazi
	newDue := now.Add(48 * time.Hour)
	err = AuthorizeTaskUpdate(task, TaskUpdate{Status: statusPtr(models.StatusInProgress), DueDate: &newDue}, admin, now)
	require.NoError(t, err)

	// produženje u prošlost ne pomaže
	stillPast := now.Add(-time.Minute)
	err = AuthorizeTaskUpdate(task, TaskUpdate{Status: statusPtr(models.StatusInProgress), DueDate: &stillPast}, admin, now)
	requireKind(t, err, KindStateConflict)
}

func TestValidateTaskUpdate(t *testing.T) {
	t.Parallel()

	t.Run("empty update is rejected", func(t *testing.T) {
		err := ValidateTaskUpdate(TaskUpdate{})
		requireKind(t, err, KindValidation)
	})

	t.Run("short title is rejected", func(t *testing.T) {
		title := "ab"
		err := ValidateTaskUpdate(TaskUpdate{Title: &title})
		requireKind(t, err, KindValidation)
	})

	t.Run("short description is rejected", func(t *testing.T) {
		description := "too short"
		err := ValidateTaskUpdate(TaskUpdate{Description: &description})
		requireKind(t, err, KindValidation)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		status := models.TaskStatus("archived")
		err := ValidateTaskUpdate(TaskUpdate{Status: &status})
		requireKind(t, err, KindValidation)
	})

	t.Run("isPublic together with visibleTo is rejected", func(t *testing.T) {
		isPublic := true
		visibleTo := []primitive.ObjectID{primitive.NewObjectID()}
		err := ValidateTaskUpdate(TaskUpdate{IsPublic: &isPublic, VisibleTo: &visibleTo})
		requireKind(t, err, KindValidation)
	})

	t.Run("valid update passes", func(t *testing.T) {
		title := "Valid title"
		description := "A long enough description"
		status := models.StatusInProgress
		err := ValidateTaskUpdate(TaskUpdate{Title: &title, Description: &description, Status: &status})
		require.NoError(t, err)
	})
}

func TestAuthorizeTaskAssign(t *testing.T) {
	t.Parallel()

	now := time.Now()
	owner := primitive.NewObjectID()
	stranger := primitive.NewObjectID()
	admin := models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}

	t.Run("user can claim an unowned task for themselves", func(t *testing.T) {
		task := models.Task{ID: primitive.NewObjectID(), Status: models.StatusPending}
		actor := models.User{ID: stranger, Role: models.RoleUser}
		require.NoError(t, AuthorizeTaskAssign(task, &stranger, actor, now))
	})

	t.Run("user cannot claim an unowned task for someone else", func(t *testing.T) {
		task := models.Task{ID: primitive.NewObjectID(), Status: models.StatusPending}
		actor := models.User{ID: stranger, Role: models.RoleUser}
		other := primitive.NewObjectID()
		requireKind(t, AuthorizeTaskAssign(task, &other, actor, now), KindForbidden)
	})

	t.Run("non-owner cannot reassign", func(t *testing.T) {
		task := ownedTask(owner, models.StatusInProgress, nil)
		actor := models.User{ID: stranger, Role: models.RoleUser}
		requireKind(t, AuthorizeTaskAssign(task, &stranger, actor, now), KindForbidden)
	})

	t.Run("owner can release their own task", func(t *testing.T) {
		task := ownedTask(owner, models.StatusInProgress, nil)
		actor := models.User{ID: owner, Role: models.RoleUser}
		require.NoError(t, AuthorizeTaskAssign(task, nil, actor, now))
	})

	t.Run("owner cannot hand the task to someone else", func(t *testing.T) {
		task := ownedTask(owner, models.StatusInProgress, nil)
		actor := models.User{ID: owner, Role: models.RoleUser}
		requireKind(t, AuthorizeTaskAssign(task, &stranger, actor, now), KindForbidden)
	})

	t.Run("owner cannot release a behind-schedule task", func(t *testing.T) {
		task := ownedTask(owner, models.StatusBehindSchedule, nil)
		actor := models.User{ID: owner, Role: models.RoleUser}
		requireKind(t, AuthorizeTaskAssign(task, nil, actor, now), KindForbidden)
	})

	t.Run("owner cannot release a silently overdue task", func(t *testing.T) {
		past := now.Add(-time.Hour)
		task := ownedTask(owner, models.StatusInProgress, &past)
		actor := models.User{ID: owner, Role: models.RoleUser}
		requireKind(t, AuthorizeTaskAssign(task, nil, actor, now), KindForbidden)
	})

	t.Run("user cannot claim an unowned overdue task", func(t *testing.T) {
		past := now.Add(-time.Hour)
		task := models.Task{ID: primitive.NewObjectID(), Status: models.StatusPending, DueDate: &past}
		actor := models.User{ID: stranger, Role: models.RoleUser}
		requireKind(t, AuthorizeTaskAssign(task, &stranger, actor, now), KindForbidden)
	})

	t.Run("admin can assign anyone", func(t *testing.T) {
		task := ownedTask(owner, models.StatusInProgress, nil)
		require.NoError(t, AuthorizeTaskAssign(task, &stranger, admin, now))
	})

	t.Run("admin can release a behind-schedule task", func(t *testing.T) {
		task := ownedTask(owner, models.StatusBehindSchedule, nil)
		require.NoError(t, AuthorizeTaskAssign(task, nil, admin, now))
	})
}

func TestAuthorizeTaskDelete(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	task := ownedTask(owner, models.StatusInProgress, nil)

	require.NoError(t, AuthorizeTaskDelete(task, models.User{ID: owner, Role: models.RoleUser}))
	require.NoError(t, AuthorizeTaskDelete(task, models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}))
	requireKind(t, AuthorizeTaskDelete(task, models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}), KindForbidden)

	unowned := models.Task{ID: primitive.NewObjectID(), Status: models.StatusPending}
	requireKind(t, AuthorizeTaskDelete(unowned, models.User{ID: owner, Role: models.RoleUser}), KindForbidden)
}

func TestAuthorizeAdmin(t *testing.T) {
	t.Parallel()

	require.NoError(t, AuthorizeAdmin(models.User{Role: models.RoleAdmin}))
	requireKind(t, AuthorizeAdmin(models.User{Role: models.RoleUser}), KindForbidden)
}

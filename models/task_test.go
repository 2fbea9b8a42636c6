package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTaskIsOverdue(t *testing.T) {
	t.Parallel()

	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	cases := []struct {
		name string
		task Task
		want bool
	}{
		{"no due date", Task{Status: StatusInProgress}, false},
		{"due date in future", Task{Status: StatusInProgress, DueDate: &future}, false},
		{"in-progress past due", Task{Status: StatusInProgress, DueDate: &past}, true},
		{"pending past due", Task{Status: StatusPending, DueDate: &past}, true},
		{"due date exactly now", Task{Status: StatusInProgress, DueDate: &now}, true},
		{"completed past due", Task{Status: StatusCompleted, DueDate: &past}, false},
		{"cancelled past due", Task{Status: StatusCancelled, DueDate: &past}, false},
		{"already behind schedule", Task{Status: StatusBehindSchedule, DueDate: &past}, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, tc.task.IsOverdue(now))
		})
	}
}

func TestTaskLatestAssignment(t *testing.T) {
	t.Parallel()

	first := primitive.NewObjectID()
	second := primitive.NewObjectID()
	admin := primitive.NewObjectID()

	task := Task{History: []HistoryEntry{
		{Action: ActionAssigned, PerformedBy: first, AssignedTo: &first},
		{Action: ActionUpdated, PerformedBy: first},
		{Action: ActionAssigned, PerformedBy: admin, AssignedTo: &second},
		{Action: ActionUpdated, PerformedBy: second},
	}}

	entry := task.LatestAssignment()
	require.NotNil(t, entry)
	require.Equal(t, admin, entry.PerformedBy)
	require.Equal(t, second, *entry.AssignedTo)

	require.Nil(t, Task{}.LatestAssignment())
}

func TestTaskVisibleBy(t *testing.T) {
	t.Parallel()

	owner := primitive.NewObjectID()
	invited := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	task := Task{Owner: &owner, VisibleTo: []primitive.ObjectID{invited}}

	require.True(t, task.VisibleBy(owner, RoleUser))
	require.True(t, task.VisibleBy(invited, RoleUser))
	require.False(t, task.VisibleBy(stranger, RoleUser))
	require.True(t, task.VisibleBy(stranger, RoleAdmin))

	public := Task{IsPublic: true}
	require.True(t, public.VisibleBy(stranger, RoleUser))

	unowned := Task{}
	require.False(t, unowned.VisibleBy(stranger, RoleUser))
}

func TestTaskStatusValidity(t *testing.T) {
	t.Parallel()

	for _, s := range []TaskStatus{StatusPending, StatusInProgress, StatusCompleted, StatusBehindSchedule, StatusCancelled} {
		require.True(t, s.IsValid())
	}
	require.False(t, TaskStatus("archived").IsValid())

	require.True(t, StatusCompleted.IsTerminal())
	require.True(t, StatusCancelled.IsTerminal())
	require.False(t, StatusBehindSchedule.IsTerminal())
}

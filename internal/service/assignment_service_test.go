package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/classroom-assignments/internal/models"
	"github.com/RubachokBoss/classroom-assignments/internal/validation"
)

func TestCreate_KeepsQuestionOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.assignments.Create(ctx, teacher, assignmentRequest("Math", models.StatusDraft, "q one", "q two", "q three"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, created.Status)
	assert.Equal(t, 1, created.Version)

	got, err := env.assignments.Get(ctx, teacher, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Questions, 3)
	assert.Equal(t, "q one", got.Questions[0].Question)
	assert.Equal(t, "q two", got.Questions[1].Question)
	assert.Equal(t, "q three", got.Questions[2].Question)
	for _, q := range got.Questions {
		assert.NotEmpty(t, q.ID)
	}
	assert.Equal(t, "2030-06-01", got.DueDate.String())
}

func TestCreate_StatusRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	published, err := env.assignments.Create(ctx, teacher, assignmentRequest("Physics", models.StatusPublished))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, published.Status)
	assert.Equal(t, []string{models.EventAssignmentPublished}, env.publisher.keys)

	_, err = env.assignments.Create(ctx, teacher, assignmentRequest("History", models.StatusCompleted))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.assignments.Create(ctx, student, assignmentRequest("History", models.StatusDraft))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreate_ValidationError(t *testing.T) {
	env := newTestEnv(t)

	req := assignmentRequest("", models.StatusDraft)
	req.Questions = nil
	_, err := env.assignments.Create(context.Background(), teacher, req)

	var vErr *validation.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.True(t, vErr.Has("title"))
	assert.True(t, vErr.Has("questions"))
}

func TestDelete_OnlyDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft := env.create(t, "Math", models.StatusDraft)
	require.NoError(t, env.assignments.Delete(ctx, teacher, draft.ID))
	_, err := env.assignments.Get(ctx, teacher, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	published := env.create(t, "Math", models.StatusPublished)
	assert.ErrorIs(t, env.assignments.Delete(ctx, teacher, published.ID), ErrInvalidTransition)

	completed := env.create(t, "Math", models.StatusCompleted)
	assert.ErrorIs(t, env.assignments.Delete(ctx, teacher, completed.ID), ErrInvalidTransition)

	assert.ErrorIs(t, env.assignments.Delete(ctx, teacher, "missing"), ErrNotFound)
}

func TestEdit_PublishedAllowedCompletedRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	published := env.create(t, "Math", models.StatusPublished)
	req := assignmentRequest("Math v2", models.StatusPublished)
	req.ID = published.ID
	edited, err := env.assignments.Edit(ctx, teacher, req)
	require.NoError(t, err)
	assert.Equal(t, "Math v2", edited.Title)
	assert.Equal(t, published.Version+1, edited.Version)

	completed := env.create(t, "Science", models.StatusCompleted)
	req = assignmentRequest("Science v2", models.StatusCompleted)
	req.ID = completed.ID
	_, err = env.assignments.Edit(ctx, teacher, req)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := env.assignments.Get(ctx, teacher, completed.ID)
	require.NoError(t, err)
	assert.Equal(t, "Science", got.Title)
	assert.True(t, got.Locked)
	assert.Equal(t, []models.Action{models.ActionView}, got.AllowedActions)
}

func TestEdit_TransitionRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft := env.create(t, "Math", models.StatusDraft)

	req := assignmentRequest("Math", models.StatusCompleted)
	req.ID = draft.ID
	_, err := env.assignments.Edit(ctx, teacher, req)
	assert.ErrorIs(t, err, ErrInvalidTransition, "Draft cannot skip to Completed")

	req.Status = models.StatusPublished.String()
	published, err := env.assignments.Edit(ctx, teacher, req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, published.Status)

	req.Status = models.StatusDraft.String()
	_, err = env.assignments.Edit(ctx, teacher, req)
	assert.ErrorIs(t, err, ErrInvalidTransition, "no backward moves")

	req.Status = models.StatusPublished.String()
	_, err = env.assignments.Edit(ctx, otherTeacher, req)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestEdit_VersionConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft := env.create(t, "Math", models.StatusDraft)

	first := assignmentRequest("First", models.StatusDraft)
	first.ID = draft.ID
	first.Version = draft.Version
	_, err := env.assignments.Edit(ctx, teacher, first)
	require.NoError(t, err)

	stale := assignmentRequest("Stale", models.StatusDraft)
	stale.ID = draft.ID
	stale.Version = draft.Version
	_, err = env.assignments.Edit(ctx, teacher, stale)
	assert.ErrorIs(t, err, ErrConflict)

	// без версии побеждает последняя запись
	blind := assignmentRequest("Blind", models.StatusDraft)
	blind.ID = draft.ID
	got, err := env.assignments.Edit(ctx, teacher, blind)
	require.NoError(t, err)
	assert.Equal(t, "Blind", got.Title)
}

func TestPublishAndComplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft := env.create(t, "Math", models.StatusDraft)

	_, err := env.assignments.Complete(ctx, teacher, draft.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	published, err := env.assignments.Publish(ctx, teacher, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Action{models.ActionView, models.ActionEdit}, published.AllowedActions)

	_, err = env.assignments.Publish(ctx, teacher, draft.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	completed, err := env.assignments.Complete(ctx, teacher, draft.ID)
	require.NoError(t, err)
	assert.True(t, completed.Locked)

	assert.Equal(t, []string{models.EventAssignmentPublished, models.EventAssignmentCompleted}, env.publisher.keys)
}

func TestList_PaginationAndFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		env.create(t, fmt.Sprintf("Published %02d", i), models.StatusPublished)
	}
	env.create(t, "Draft", models.StatusDraft)
	_, err := env.assignments.Create(ctx, otherTeacher, assignmentRequest("Foreign", models.StatusPublished))
	require.NoError(t, err)

	page, err := env.assignments.List(ctx, teacher, &models.DatatableRequest{Page: 1, Limit: 5, Status: "Published"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, "Published 00", page.Items[0].Title)

	page, err = env.assignments.List(ctx, teacher, &models.DatatableRequest{Page: 3, Limit: 5, Status: "Published"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, "Published 11", page.Items[1].Title)

	page, err = env.assignments.List(ctx, teacher, &models.DatatableRequest{Page: 0, Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, 13, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, models.DefaultPageLimit, page.Limit)

	page, err = env.assignments.List(ctx, teacher, &models.DatatableRequest{Page: 1, Limit: 5, Status: "Completed"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.TotalPages)

	_, err = env.assignments.List(ctx, teacher, &models.DatatableRequest{Status: "Archived"})
	var vErr *validation.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestGet_Visibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft := env.create(t, "Draft", models.StatusDraft)
	published := env.create(t, "Published", models.StatusPublished)

	_, err := env.assignments.Get(ctx, otherTeacher, draft.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.assignments.Get(ctx, student, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	view, err := env.assignments.Get(ctx, student, published.ID)
	require.NoError(t, err)
	require.NotNil(t, view.IsSubmit)
	assert.False(t, *view.IsSubmit)
	assert.Equal(t, []models.Action{models.ActionView}, view.AllowedActions)
}

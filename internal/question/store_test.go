package question

import (
	"context"
	"testing"

	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

func TestMemoryStoreVersionBumpsOnEveryMutation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	v0, err := store.Version(ctx)
	require.NoError(t, err)

	ok, err := store.Update(ctx, "q1", model.QuestionPatch{Text: strPtr("What is 10 + 32?")})
	require.NoError(t, err)
	require.True(t, ok)

	v1, err := store.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, v0+1, v1)

	require.NoError(t, store.Add(ctx, model.Question{
		QuestionID:         "q11",
		Text:               "Placeholder",
		Options:            []string{"a", "b", "c", "d"},
		Difficulty:         model.DifficultyEasy,
		MinExpectedSeconds: 5,
	}))
	require.NoError(t, store.Reset(ctx))

	v3, err := store.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, v0+3, v3)
}

func TestMemoryStoreUpdateAppliesPartialPatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ok, err := store.Update(ctx, "q4", model.QuestionPatch{
		Text:               strPtr("Solve for x: 3x - 7 = 20"),
		MinExpectedSeconds: intPtr(40),
	})
	require.NoError(t, err)
	require.True(t, ok)

	questions, err := store.Questions(ctx)
	require.NoError(t, err)

	var q4 model.Question
	for _, q := range questions {
		if q.QuestionID == "q4" {
			q4 = q
		}
	}
	assert.Equal(t, "Solve for x: 3x - 7 = 20", q4.Text)
	assert.Equal(t, 40, q4.MinExpectedSeconds)
	// Untouched fields survive.
	assert.Equal(t, model.DifficultyMedium, q4.Difficulty)
	assert.Len(t, q4.Options, 4)
}

func TestMemoryStoreUpdateUnknownID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ok, err := store.Update(ctx, "ghost", model.QuestionPatch{Text: strPtr("x")})
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := store.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestMemoryStoreResetRestoresDefaults(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Add(ctx, model.Question{QuestionID: "extra", Options: []string{"a", "b", "c", "d"}}))
	_, err := store.Update(ctx, "q1", model.QuestionPatch{Text: strPtr("changed")})
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx))

	questions, err := store.Questions(ctx)
	require.NoError(t, err)
	assert.Len(t, questions, len(DefaultBank()))
	assert.Equal(t, DefaultBank()[0].Text, questions[0].Text)
}

func TestUpdateDetachesOptionsFromCaller(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	options := []string{"2", "4", "8", "16"}
	ok, err := store.Update(ctx, "q1", model.QuestionPatch{Options: options})
	require.NoError(t, err)
	require.True(t, ok)

	options[0] = "mutated by caller"

	questions, err := store.Questions(ctx)
	require.NoError(t, err)
	for _, q := range questions {
		if q.QuestionID == "q1" {
			assert.Equal(t, []string{"2", "4", "8", "16"}, q.Options)
		}
	}
}

func TestQuestionsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	questions, err := store.Questions(ctx)
	require.NoError(t, err)
	questions[0].Text = "mutated by caller"

	again, err := store.Questions(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated by caller", again[0].Text)
}

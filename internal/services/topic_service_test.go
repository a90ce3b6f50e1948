package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/periodical/internal/models"
	"github.com/yukikurage/periodical/internal/policy"
	"github.com/yukikurage/periodical/internal/repository"
	"gorm.io/gorm"
)

type topicTestEnv struct {
	db      *gorm.DB
	gists   *GistService
	topics  *TopicService
	org     *models.Organization
	author  *models.User
	manager *models.User
	gist    *models.Gist
}

func setupTopicTestEnv(t *testing.T) topicTestEnv {
	t.Helper()
	db := newTestDB(t)

	gistRepo := repository.NewGistRepository(db)
	userRepo := repository.NewUserRepository(db)
	env := topicTestEnv{
		db:     db,
		gists:  NewGistService(gistRepo, userRepo),
		topics: NewTopicService(repository.NewTopicRepository(db), gistRepo),
	}

	env.org = createTestOrg(t, db, "acme", models.PlanFree)
	env.author = createTestUser(t, db, "author@acme.test", models.RoleContentWriter, env.org)
	env.manager = createTestUser(t, db, "manager@acme.test", models.RoleManager, env.org)

	gist, err := env.gists.CreateGist(context.Background(), policy.NewActor(env.author), CreateGistInput{
		Title: "Weekly Digest",
		From:  time.Now(),
		To:    time.Now().Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)
	env.gist = gist

	return env
}

func (env topicTestEnv) addTopics(t *testing.T, titles ...string) []*models.Topic {
	t.Helper()
	var topics []*models.Topic
	for _, title := range titles {
		topic, err := env.topics.CreateTopic(context.Background(), policy.NewActor(env.author), CreateTopicInput{
			GistID:  env.gist.ID,
			Title:   title,
			Content: "<p>" + title + "</p>",
		})
		require.NoError(t, err)
		topics = append(topics, topic)
	}
	return topics
}

func TestTopicService_CreateAppends(t *testing.T) {
	env := setupTopicTestEnv(t)
	topics := env.addTopics(t, "First", "Second", "Third")

	for i, topic := range topics {
		assert.Equal(t, i, topic.Order)
	}
}

func TestTopicService_CreateAuthorOnly(t *testing.T) {
	env := setupTopicTestEnv(t)

	_, err := env.topics.CreateTopic(context.Background(), policy.NewActor(env.manager), CreateTopicInput{
		GistID: env.gist.ID,
		Title:  "Intrusion",
	})
	assert.ErrorIs(t, err, ErrNotGistAuthor)

	_, err = env.topics.CreateTopic(context.Background(), policy.NewActor(env.author), CreateTopicInput{
		GistID: env.gist.ID,
		Title:  "",
	})
	assert.ErrorIs(t, err, ErrInvalidTopicTitle)
}

func TestTopicService_ReorderSwap(t *testing.T) {
	env := setupTopicTestEnv(t)
	topics := env.addTopics(t, "A", "B")

	reordered, err := env.topics.ReorderTopics(context.Background(), policy.NewActor(env.author), []TopicOrderInput{
		{ID: topics[0].ID, Order: 1},
		{ID: topics[1].ID, Order: 0},
	})
	require.NoError(t, err)
	require.Len(t, reordered, 2)
	assert.Equal(t, "B", reordered[0].Title)
	assert.Equal(t, 0, reordered[0].Order)
	assert.Equal(t, "A", reordered[1].Title)
	assert.Equal(t, 1, reordered[1].Order)
}

func TestTopicService_ReorderRejectsNonAuthor(t *testing.T) {
	env := setupTopicTestEnv(t)
	topics := env.addTopics(t, "A", "B")

	_, err := env.topics.ReorderTopics(context.Background(), policy.NewActor(env.manager), []TopicOrderInput{
		{ID: topics[0].ID, Order: 1},
		{ID: topics[1].ID, Order: 0},
	})
	assert.ErrorIs(t, err, ErrNotGistAuthor)

	unchanged, err := env.topics.GetTopic(context.Background(), policy.NewActor(env.manager), topics[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unchanged.Order)
}

func TestTopicService_ReorderValidation(t *testing.T) {
	env := setupTopicTestEnv(t)
	topics := env.addTopics(t, "A", "B", "C")
	actor := policy.NewActor(env.author)
	ctx := context.Background()

	tests := []struct {
		name  string
		pairs []TopicOrderInput
		want  error
	}{
		{"empty", nil, ErrInvalidReorder},
		{"duplicate id", []TopicOrderInput{{ID: topics[0].ID, Order: 0}, {ID: topics[0].ID, Order: 1}}, ErrInvalidReorder},
		{"duplicate order", []TopicOrderInput{{ID: topics[0].ID, Order: 0}, {ID: topics[1].ID, Order: 0}}, ErrInvalidReorder},
		{"out of range", []TopicOrderInput{{ID: topics[0].ID, Order: 5}}, ErrInvalidReorder},
		{"partial", []TopicOrderInput{{ID: topics[0].ID, Order: 1}, {ID: topics[1].ID, Order: 0}}, ErrInvalidReorder},
		{"unknown topic", []TopicOrderInput{{ID: 9999, Order: 0}}, ErrTopicNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.topics.ReorderTopics(ctx, actor, tt.pairs)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	other, err := env.gists.CreateGist(ctx, actor, CreateGistInput{Title: "Other", From: time.Now(), To: time.Now()})
	require.NoError(t, err)
	foreign, err := env.topics.CreateTopic(ctx, actor, CreateTopicInput{GistID: other.ID, Title: "X"})
	require.NoError(t, err)

	_, err = env.topics.ReorderTopics(ctx, actor, []TopicOrderInput{{ID: topics[0].ID, Order: 0}, {ID: foreign.ID, Order: 1}})
	var reorderErr *ReorderError
	require.ErrorAs(t, err, &reorderErr)
	assert.Contains(t, reorderErr.Reason, "same gist")
}

func TestTopicService_UpdateAndDelete(t *testing.T) {
	env := setupTopicTestEnv(t)
	topics := env.addTopics(t, "A", "B", "C")
	ctx := context.Background()
	author := policy.NewActor(env.author)

	_, err := env.topics.UpdateTopic(ctx, policy.NewActor(env.manager), topics[0].ID, UpdateTopicInput{Title: strPtr("Hijack")})
	assert.ErrorIs(t, err, ErrNotGistAuthor)

	updated, err := env.topics.UpdateTopic(ctx, author, topics[0].ID, UpdateTopicInput{Content: strPtr("<p>new</p>")})
	require.NoError(t, err)
	assert.Equal(t, "A", updated.Title)
	assert.Equal(t, "<p>new</p>", updated.Content)

	require.NoError(t, env.topics.DeleteTopic(ctx, author, topics[1].ID))

	gist, err := env.gists.GetGist(ctx, author, env.gist.Slug)
	require.NoError(t, err)
	require.Len(t, gist.Topics, 2)
	assert.Equal(t, "A", gist.Topics[0].Title)
	assert.Equal(t, 0, gist.Topics[0].Order)
	assert.Equal(t, "C", gist.Topics[1].Title)
	assert.Equal(t, 1, gist.Topics[1].Order)
}

func TestTopicService_OtherOrganizationSeesNotFound(t *testing.T) {
	env := setupTopicTestEnv(t)
	topics := env.addTopics(t, "A")

	globex := createTestOrg(t, env.db, "globex", models.PlanFree)
	outsider := createTestUser(t, env.db, "admin@globex.test", models.RoleOrgAdmin, globex)

	_, err := env.topics.GetTopic(context.Background(), policy.NewActor(outsider), topics[0].ID)
	assert.ErrorIs(t, err, ErrTopicNotFound)

	_, err = env.topics.ReorderTopics(context.Background(), policy.NewActor(outsider), []TopicOrderInput{{ID: topics[0].ID, Order: 0}})
	assert.ErrorIs(t, err, ErrTopicNotFound)
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/periodical/internal/models"
	"github.com/yukikurage/periodical/internal/policy"
	"github.com/yukikurage/periodical/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTopicNotFound     = errors.New("topic not found")
	ErrInvalidTopicTitle = errors.New("title must be between 1 and 100 characters")
	ErrNotGistAuthor     = errors.New("only the gist author can change its topics")
	ErrTopicsChanged     = errors.New("topics changed during reorder, reload and try again")
)

// ErrInvalidReorder matches any ReorderError.
var ErrInvalidReorder = errors.New("invalid reorder")

// ReorderError explains why a reorder batch was rejected.
type ReorderError struct {
	Reason string
}

func (e *ReorderError) Error() string {
	return "invalid reorder: " + e.Reason
}

func (e *ReorderError) Is(target error) bool {
	return target == ErrInvalidReorder
}

// TopicService provides business logic for topics and their order.
type TopicService struct {
	topicRepo repository.TopicRepository
	gistRepo  repository.GistRepository
}

// NewTopicService creates a new TopicService.
func NewTopicService(topicRepo repository.TopicRepository, gistRepo repository.GistRepository) *TopicService {
	return &TopicService{
		topicRepo: topicRepo,
		gistRepo:  gistRepo,
	}
}

// authoredGist loads a gist the actor can see and checks they wrote it.
func (s *TopicService) authoredGist(ctx context.Context, actor policy.Actor, gistID uint64) (*models.Gist, error) {
	gist, err := s.gistRepo.FindByID(ctx, gistID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGistNotFound
		}
		return nil, fmt.Errorf("failed to find gist: %w", err)
	}
	if !policy.CanAccessOrganization(actor, gist.OrganizationID) {
		return nil, ErrGistNotFound
	}
	if gist.AuthorID != actor.UserID {
		return nil, ErrNotGistAuthor
	}
	return gist, nil
}

// CreateTopicInput represents parameters to add a topic to a gist.
type CreateTopicInput struct {
	GistID  uint64
	Title   string
	Content string
}

// CreateTopic appends a topic to the end of the gist.
func (s *TopicService) CreateTopic(ctx context.Context, actor policy.Actor, input CreateTopicInput) (*models.Topic, error) {
	title, ok := validateTitle(input.Title)
	if !ok {
		return nil, ErrInvalidTopicTitle
	}
	if _, err := s.authoredGist(ctx, actor, input.GistID); err != nil {
		return nil, err
	}

	topic := &models.Topic{
		Title:   title,
		Content: input.Content,
		GistID:  input.GistID,
	}
	if err := s.topicRepo.CreateAppended(ctx, topic); err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}
	return topic, nil
}

// GetTopic returns a topic to any member of its gist's organization.
func (s *TopicService) GetTopic(ctx context.Context, actor policy.Actor, id uint64) (*models.Topic, error) {
	topic, err := s.topicRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopicNotFound
		}
		return nil, fmt.Errorf("failed to find topic: %w", err)
	}
	if !policy.CanAccessOrganization(actor, topic.Gist.OrganizationID) {
		return nil, ErrTopicNotFound
	}
	return topic, nil
}

func (s *TopicService) authoredTopic(ctx context.Context, actor policy.Actor, id uint64) (*models.Topic, error) {
	topic, err := s.GetTopic(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if topic.Gist.AuthorID != actor.UserID {
		return nil, ErrNotGistAuthor
	}
	return topic, nil
}

// UpdateTopicInput holds the optional fields of a topic update.
type UpdateTopicInput struct {
	Title   *string
	Content *string
}

// UpdateTopic changes a topic's title or content. Author only.
func (s *TopicService) UpdateTopic(ctx context.Context, actor policy.Actor, id uint64, input UpdateTopicInput) (*models.Topic, error) {
	topic, err := s.authoredTopic(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title, ok := validateTitle(*input.Title)
		if !ok {
			return nil, ErrInvalidTopicTitle
		}
		topic.Title = title
	}
	if input.Content != nil {
		topic.Content = *input.Content
	}

	if err := s.topicRepo.Update(ctx, topic); err != nil {
		return nil, fmt.Errorf("failed to update topic: %w", err)
	}
	return topic, nil
}

// DeleteTopic removes a topic and closes the gap in the gist's order. Author only.
func (s *TopicService) DeleteTopic(ctx context.Context, actor policy.Actor, id uint64) error {
	topic, err := s.authoredTopic(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.topicRepo.Delete(ctx, topic); err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}
	return nil
}

// TopicOrderInput is one (topic, new position) pair of a reorder.
type TopicOrderInput struct {
	ID    uint64
	Order int
}

// ReorderTopics applies a complete new order to one gist's topics. The batch
// must name every topic of the gist exactly once with positions 0..n-1.
// Either every row is updated or none is.
func (s *TopicService) ReorderTopics(ctx context.Context, actor policy.Actor, pairs []TopicOrderInput) ([]models.Topic, error) {
	if len(pairs) == 0 {
		return nil, &ReorderError{Reason: "at least one topic is required"}
	}

	ids := make([]uint64, 0, len(pairs))
	seenIDs := make(map[uint64]struct{}, len(pairs))
	seenOrders := make(map[int]struct{}, len(pairs))
	for _, p := range pairs {
		if _, dup := seenIDs[p.ID]; dup {
			return nil, &ReorderError{Reason: fmt.Sprintf("topic %d appears more than once", p.ID)}
		}
		if p.Order < 0 || p.Order >= len(pairs) {
			return nil, &ReorderError{Reason: fmt.Sprintf("order %d is out of range", p.Order)}
		}
		if _, dup := seenOrders[p.Order]; dup {
			return nil, &ReorderError{Reason: fmt.Sprintf("order %d is used more than once", p.Order)}
		}
		seenIDs[p.ID] = struct{}{}
		seenOrders[p.Order] = struct{}{}
		ids = append(ids, p.ID)
	}

	topics, err := s.topicRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load topics: %w", err)
	}
	if len(topics) != len(pairs) {
		return nil, ErrTopicNotFound
	}

	gistID := topics[0].GistID
	for _, t := range topics[1:] {
		if t.GistID != gistID {
			return nil, &ReorderError{Reason: "topics must belong to the same gist"}
		}
	}

	if _, err := s.authoredGist(ctx, actor, gistID); err != nil {
		if errors.Is(err, ErrGistNotFound) {
			return nil, ErrTopicNotFound
		}
		return nil, err
	}

	total, err := s.topicRepo.CountByGist(ctx, gistID)
	if err != nil {
		return nil, fmt.Errorf("failed to count topics: %w", err)
	}
	if total != int64(len(pairs)) {
		return nil, &ReorderError{Reason: "every topic of the gist must be included"}
	}

	orders := make([]repository.TopicOrder, len(pairs))
	for i, p := range pairs {
		orders[i] = repository.TopicOrder{ID: p.ID, Order: p.Order}
	}
	if err := s.topicRepo.Reorder(ctx, gistID, orders); err != nil {
		if errors.Is(err, repository.ErrStaleTopicOrder) {
			return nil, ErrTopicsChanged
		}
		return nil, fmt.Errorf("failed to reorder topics: %w", err)
	}

	return s.topicRepo.ListByGist(ctx, gistID)
}

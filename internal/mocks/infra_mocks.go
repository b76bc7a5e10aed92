package mocks

import (
	"context"

	"storyboard-server/internal/interfaces"
	"storyboard-server/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockArtifactStore is a mock type for the ArtifactStore type
type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Persist(ctx context.Context, sourceURL, nameHint string) (string, error) {
	args := m.Called(ctx, sourceURL, nameHint)
	return args.String(0), args.Error(1)
}

// NewMockArtifactStore creates a new instance of MockArtifactStore and asserts expectations on cleanup.
func NewMockArtifactStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockArtifactStore {
	m := &MockArtifactStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockStoryboardEventPublisher is a mock type for the StoryboardEventPublisher type
type MockStoryboardEventPublisher struct {
	mock.Mock
}

func (m *MockStoryboardEventPublisher) PublishStoryboardGenerated(ctx context.Context, event models.StoryboardGeneratedEvent) error {
	return m.Called(ctx, event).Error(0)
}

// NewMockStoryboardEventPublisher creates a new instance of MockStoryboardEventPublisher and asserts expectations on cleanup.
func NewMockStoryboardEventPublisher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStoryboardEventPublisher {
	m := &MockStoryboardEventPublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var (
	_ interfaces.ArtifactStore            = (*MockArtifactStore)(nil)
	_ interfaces.StoryboardEventPublisher = (*MockStoryboardEventPublisher)(nil)
)

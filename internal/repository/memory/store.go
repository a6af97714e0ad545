// Package memory is an in-process implementation of the repository
// contracts. A single mutex stands in for row locks and unique indexes.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/repository"
	"github.com/google/uuid"
)

type eventKey struct {
	storyID uuid.UUID
	kind    models.IdentityKind
	key     string
}

type Store struct {
	mu      sync.Mutex
	seq     int64
	order   map[uuid.UUID]int64
	stories map[uuid.UUID]*models.Story
	views   map[eventKey]models.StoryView
	likes   map[eventKey]models.StoryLike
	reports map[eventKey]models.StoryReport
	users   map[uuid.UUID]models.User
}

var (
	_ repository.StoryRepository      = (*Store)(nil)
	_ repository.EngagementRepository = (*Store)(nil)
	_ repository.UserRepository       = (*Store)(nil)
)

func New() *Store {
	return &Store{
		order:   make(map[uuid.UUID]int64),
		stories: make(map[uuid.UUID]*models.Story),
		views:   make(map[eventKey]models.StoryView),
		likes:   make(map[eventKey]models.StoryLike),
		reports: make(map[eventKey]models.StoryReport),
		users:   make(map[uuid.UUID]models.User),
	}
}

func (s *Store) Create(_ context.Context, story *models.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if story.ID == uuid.Nil {
		story.ID = uuid.New()
	}
	if _, exists := s.stories[story.ID]; exists {
		return repository.ErrDuplicate
	}
	now := time.Now().UTC()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = now
	}
	story.UpdatedAt = now
	if story.Status == "" {
		story.Status = models.StatusPending
	}

	s.seq++
	s.order[story.ID] = s.seq
	stored := *story
	stored.Reports = nil
	s.stories[story.ID] = &stored
	return nil
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (*models.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	story, ok := s.stories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *story
	return &out, nil
}

func (s *Store) List(_ context.Context, filter repository.StoryFilter) ([]models.Story, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*models.Story, 0, len(s.stories))
	for _, story := range s.stories {
		if filter.Status != "" && story.Status != filter.Status {
			continue
		}
		if filter.ReportedOnly && story.ReportCount == 0 {
			continue
		}
		matched = append(matched, story)
	}

	sort.Slice(matched, func(i, j int) bool {
		if filter.ReportedOnly && matched[i].ReportCount != matched[j].ReportCount {
			return matched[i].ReportCount > matched[j].ReportCount
		}
		return s.order[matched[i].ID] > s.order[matched[j].ID]
	})

	total := int64(len(matched))
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	out := make([]models.Story, len(matched))
	for i, story := range matched {
		out[i] = *story
		if filter.WithReports {
			out[i].Reports = s.reportsFor(story.ID)
		}
	}
	return out, total, nil
}

func (s *Store) reportsFor(id uuid.UUID) []models.StoryReport {
	var reports []models.StoryReport
	for key, report := range s.reports {
		if key.storyID == id {
			reports = append(reports, report)
		}
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.Before(reports[j].CreatedAt)
	})
	return reports
}

func (s *Store) TransitionFromPending(_ context.Context, id uuid.UUID, status string, featured bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	story, ok := s.stories[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if story.Status != models.StatusPending {
		return false, nil
	}

	if featured {
		for otherID, other := range s.stories {
			if otherID != id {
				other.Featured = false
			}
		}
	}
	story.Status = status
	story.Featured = featured
	story.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *Store) BumpCounter(_ context.Context, id uuid.UUID, kind models.CounterKind, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	story, ok := s.stories[id]
	if !ok {
		return repository.ErrNotFound
	}

	var counter *int64
	switch kind {
	case models.CounterView:
		counter = &story.ViewCount
	case models.CounterLike:
		counter = &story.LikeCount
	case models.CounterReport:
		counter = &story.ReportCount
	default:
		return fmt.Errorf("unknown counter kind %q", kind)
	}

	*counter += int64(delta)
	if *counter < 0 {
		*counter = 0
	}
	return nil
}

func (s *Store) SetCounters(_ context.Context, id uuid.UUID, cached, counts repository.EventCounts) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	story, ok := s.stories[id]
	if !ok || story.ViewCount != cached.Views || story.LikeCount != cached.Likes || story.ReportCount != cached.Reports {
		return false, nil
	}
	story.ViewCount = counts.Views
	story.LikeCount = counts.Likes
	story.ReportCount = counts.Reports
	return true, nil
}

func (s *Store) Featured(_ context.Context) (*models.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, story := range s.stories {
		if story.Featured && story.Status == models.StatusApproved {
			out := *story
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) CountByStatus(_ context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := map[string]int64{
		models.StatusPending:  0,
		models.StatusApproved: 0,
		models.StatusDeclined: 0,
	}
	for _, story := range s.stories {
		counts[story.Status]++
	}
	return counts, nil
}

func (s *Store) IDs(_ context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(s.stories))
	for id := range s.stories {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stories[id]; !ok {
		return repository.ErrNotFound
	}
	for key := range s.views {
		if key.storyID == id {
			delete(s.views, key)
		}
	}
	for key := range s.likes {
		if key.storyID == id {
			delete(s.likes, key)
		}
	}
	for key := range s.reports {
		if key.storyID == id {
			delete(s.reports, key)
		}
	}
	delete(s.stories, id)
	delete(s.order, id)
	return nil
}

func (s *Store) InsertView(_ context.Context, view *models.StoryView) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventKey{view.StoryID, view.IdentityKind, view.IdentityKey}
	if _, exists := s.views[key]; exists {
		return repository.ErrDuplicate
	}
	if _, ok := s.stories[view.StoryID]; !ok {
		return repository.ErrNotFound
	}
	stamp(&view.ID, &view.CreatedAt)
	s.views[key] = *view
	return nil
}

func (s *Store) InsertLike(_ context.Context, like *models.StoryLike) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventKey{like.StoryID, like.IdentityKind, like.IdentityKey}
	if _, exists := s.likes[key]; exists {
		return repository.ErrDuplicate
	}
	if _, ok := s.stories[like.StoryID]; !ok {
		return repository.ErrNotFound
	}
	stamp(&like.ID, &like.CreatedAt)
	s.likes[key] = *like
	return nil
}

func (s *Store) InsertReport(_ context.Context, report *models.StoryReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventKey{report.StoryID, report.IdentityKind, report.IdentityKey}
	if _, exists := s.reports[key]; exists {
		return repository.ErrDuplicate
	}
	if _, ok := s.stories[report.StoryID]; !ok {
		return repository.ErrNotFound
	}
	stamp(&report.ID, &report.CreatedAt)
	s.reports[key] = *report
	return nil
}

func (s *Store) DeleteLike(_ context.Context, storyID uuid.UUID, kind models.IdentityKind, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := eventKey{storyID, kind, key}
	if _, exists := s.likes[k]; !exists {
		return false, nil
	}
	delete(s.likes, k)
	return true, nil
}

func (s *Store) Count(_ context.Context, storyID uuid.UUID) (repository.EventCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var counts repository.EventCounts
	for key := range s.views {
		if key.storyID == storyID {
			counts.Views++
		}
	}
	for key := range s.likes {
		if key.storyID == storyID {
			counts.Likes++
		}
	}
	for key := range s.reports {
		if key.storyID == storyID {
			counts.Reports++
		}
	}
	return counts, nil
}

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	stamp(&user.ID, &user.CreatedAt)
	user.UpdatedAt = user.CreatedAt
	if user.Role == "" {
		user.Role = "user"
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func stamp(id *uuid.UUID, createdAt *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
}

package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"traipulse/internal/database"
	"traipulse/internal/pulse"
)

// The writers below keep the repository in sync with what the user logs in
// the app. Each one drops the cached pattern profile and pushes a refresh.

func (s *Service) SaveProfile(ctx context.Context, userID string, p pulse.UserProfile) error {
	if p.CalorieGoal < 0 || p.ProteinGoal < 0 || p.CarbGoal < 0 || p.FatGoal < 0 || p.WorkoutsPerWeek < 0 {
		return fmt.Errorf("%w: goals must not be negative", ErrInvalidInput)
	}
	switch p.Goal {
	case "", pulse.GoalLoseWeight, pulse.GoalMaintain, pulse.GoalBuildMuscle:
	default:
		return fmt.Errorf("%w: unknown goal %q", ErrInvalidInput, p.Goal)
	}
	p.UserID = userID
	if err := s.repo.UpsertUserProfile(ctx, p); err != nil {
		return err
	}
	s.changed(userID)
	return nil
}

func (s *Service) LogFood(ctx context.Context, userID string, e pulse.FoodEntry) (string, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if e.Calories < 0 || e.Protein < 0 || e.Carbs < 0 || e.Fat < 0 {
		return "", fmt.Errorf("%w: nutrition values must not be negative", ErrInvalidInput)
	}
	if e.LoggedAt.IsZero() {
		e.LoggedAt = s.Now()
	}
	id, err := s.repo.AddFoodEntry(ctx, userID, e)
	if err != nil {
		return "", err
	}
	s.changed(userID)
	return id, nil
}

func (s *Service) LogWorkout(ctx context.Context, userID string, w pulse.WorkoutSession) (string, error) {
	if w.Duration < 0 {
		return "", fmt.Errorf("%w: duration must not be negative", ErrInvalidInput)
	}
	if w.StartedAt.IsZero() {
		w.StartedAt = s.Now()
	}
	for i, g := range w.MuscleGroups {
		w.MuscleGroups[i] = strings.ToLower(strings.TrimSpace(g))
	}
	id, err := s.repo.AddWorkout(ctx, userID, w)
	if err != nil {
		return "", err
	}
	s.changed(userID)
	return id, nil
}

// TrackLiveWorkout starts a live session, or finishes it when CompletedAt
// is set on an existing id. A completion without started_at is checked
// against the stored start.
func (s *Service) TrackLiveWorkout(ctx context.Context, userID string, w pulse.LiveWorkout) (string, error) {
	if w.StartedAt.IsZero() && w.ID != "" {
		stored, err := s.repo.LiveWorkout(ctx, userID, w.ID)
		switch {
		case err == nil:
			w.StartedAt = stored.StartedAt
		case !errors.Is(err, database.ErrNotFound):
			return "", err
		}
	}
	if w.StartedAt.IsZero() {
		w.StartedAt = s.Now()
	}
	if !w.CompletedAt.IsZero() && w.CompletedAt.Before(w.StartedAt) {
		return "", fmt.Errorf("%w: completed_at precedes started_at", ErrInvalidInput)
	}
	id, err := s.repo.UpsertLiveWorkout(ctx, userID, w)
	if err != nil {
		return "", err
	}
	s.changed(userID)
	return id, nil
}

func (s *Service) LogWeight(ctx context.Context, userID string, w database.WeightLog) (string, error) {
	if w.WeightKg <= 0 {
		return "", fmt.Errorf("%w: weight_kg must be positive", ErrInvalidInput)
	}
	if w.LoggedAt.IsZero() {
		w.LoggedAt = s.Now()
	}
	id, err := s.repo.AddWeightLog(ctx, userID, w)
	if err != nil {
		return "", err
	}
	s.notify(userID)
	return id, nil
}

func (s *Service) AddReminder(ctx context.Context, userID string, r pulse.ReminderCandidate) (string, error) {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" || r.DueAt.IsZero() {
		return "", fmt.Errorf("%w: title and due_at are required", ErrInvalidInput)
	}
	r.Completed = false
	id, err := s.repo.AddReminder(ctx, userID, r)
	if err != nil {
		return "", err
	}
	s.notify(userID)
	return id, nil
}

func (s *Service) CompleteReminder(ctx context.Context, userID, reminderID string) error {
	if err := s.repo.CompleteReminder(ctx, userID, reminderID); err != nil {
		return err
	}
	s.notify(userID)
	return nil
}

func (s *Service) changed(userID string) {
	s.invalidate(userID, s.Now())
	s.notify(userID)
}

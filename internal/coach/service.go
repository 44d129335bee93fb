/*
Package coach runs the pulse pipeline for one user: it loads the user's
history from the repository, assembles the daily context, produces the
brief and surface, and optionally asks the generative collaborator for a
richer card before the policy engine has the final say.
*/
package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"traipulse/internal/behavior"
	"traipulse/internal/database"
	"traipulse/internal/pulse"
)

// Generator is the generative collaborator. *geminiservice.Client satisfies it.
type Generator interface {
	Enabled() bool
	GenerateContent(ctx context.Context, log *zerolog.Logger, userPrompt string) (string, error)
}

// Notifier is told when a user's recommendation may have changed.
type Notifier interface {
	Notify(userID string)
}

// Lookback horizons for the parallel loads.
const (
	readyMuscleWindow = 48 * time.Hour
	liveWorkoutWindow = 2 * 24 * time.Hour
	activeUserWindow  = 7
)

// ErrInvalidInput marks caller mistakes that map to 400 responses.
var ErrInvalidInput = errors.New("invalid input")

type Service struct {
	repo     database.Repository
	gen      Generator
	notifier Notifier
	policy   *pulse.PolicyEngine
	profiles *expirable.LRU[string, *pulse.PatternProfile]
	loc      *time.Location
	now      func() time.Time
}

type Option func(*Service)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func WithGenerator(g Generator) Option {
	return func(s *Service) { s.gen = g }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// NewService wires the pipeline around repo. The repository also backs the
// plan-proposal cooldown.
func NewService(repo database.Repository, cacheSize int, cacheTTL time.Duration, opts ...Option) *Service {
	if cacheSize <= 0 {
		cacheSize = 512
	}
	s := &Service{
		repo:     repo,
		policy:   pulse.NewPolicyEngine(repo),
		profiles: expirable.NewLRU[string, *pulse.PatternProfile](cacheSize, nil, cacheTTL),
		loc:      time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now is the service clock in the configured location.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

/* =================================================================================
								CONTEXT ASSEMBLY
=================================================================================*/

type history struct {
	profile  *pulse.UserProfile
	food     []pulse.FoodEntry
	workouts []pulse.WorkoutSession
	live     []pulse.LiveWorkout
	usage    []pulse.SuggestionUsage
	signals  []pulse.CoachSignal
	remind   []pulse.ReminderCandidate
	weight   *database.WeightLog
	events   []behavior.Event
}

// loadHistory runs every repository read in parallel. The first failure
// cancels the rest.
func (s *Service) loadHistory(ctx context.Context, userID string, now time.Time) (*history, error) {
	h := &history{}
	dayStart := behavior.StartOfDay(now)
	foodSince := dayStart.AddDate(0, 0, -(pulse.PatternWindowDays - 1))
	workoutSince := dayStart.AddDate(0, 0, -pulse.WorkoutLookbackDays)
	eventSince := dayStart.AddDate(0, 0, -behavior.DefaultWindowDays)

	g, grpCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := s.repo.GetUserProfile(grpCtx, userID)
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		h.profile = &p
		return nil
	})
	g.Go(func() (err error) {
		h.food, err = s.repo.ListFoodEntries(grpCtx, userID, foodSince)
		return err
	})
	g.Go(func() (err error) {
		h.workouts, err = s.repo.ListWorkouts(grpCtx, userID, workoutSince)
		return err
	})
	g.Go(func() (err error) {
		h.live, err = s.repo.ListLiveWorkouts(grpCtx, userID, workoutSince)
		return err
	})
	g.Go(func() (err error) {
		h.usage, err = s.repo.ListSuggestionUsage(grpCtx, userID)
		return err
	})
	g.Go(func() (err error) {
		h.signals, err = s.repo.ListActiveSignals(grpCtx, userID, now)
		return err
	})
	g.Go(func() (err error) {
		h.remind, err = s.repo.ListPendingReminders(grpCtx, userID)
		return err
	})
	g.Go(func() error {
		w, err := s.repo.LastWeightLog(grpCtx, userID)
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		h.weight = &w
		return nil
	})
	g.Go(func() (err error) {
		h.events, err = s.repo.ListBehaviorEvents(grpCtx, userID, eventSince)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load history for %s: %w", userID, err)
	}
	return h, nil
}

// BuildContext assembles the full DailyCoachContext for userID at now,
// including the pattern profile, trend and context packet.
func (s *Service) BuildContext(ctx context.Context, userID string, now time.Time) (pulse.DailyCoachContext, error) {
	h, err := s.loadHistory(ctx, userID, now)
	if err != nil {
		return pulse.DailyCoachContext{}, err
	}

	// 1. Today's raw state
	today := pulse.TotalsForDay(h.food, now)
	dc := pulse.DailyCoachContext{
		Now:              now,
		Profile:          h.profile,
		CaloriesToday:    today.Calories,
		ProteinToday:     today.Protein,
		CarbsToday:       today.Carbs,
		FatToday:         today.Fat,
		FoodEntriesToday: today.Entries,
		HasWorkoutToday:  workedOutToday(h.workouts, h.live, now),
		HasActiveWorkout: hasActiveWorkout(h.live, now),
		ReadyMuscleCount: readyMuscleCount(h.workouts, now),
		ActiveSignals:    pulse.ActiveSignals(h.signals, now),
		Reminders:        h.remind,
	}
	if h.weight != nil {
		days := behavior.DaysBetween(h.weight.LoggedAt, now)
		dc.DaysSinceWeightLog = &days
	}

	// 2. Behavior history
	snap := behavior.BuildProfile(now, h.events, behavior.DefaultWindowDays)
	dc.Behavior = &snap
	dc.TodayOutcomes = behavior.TodayOutcomes(h.events, now)

	// 3. Patterns (cached per user and day) and trend
	dc.Patterns = s.patternProfile(userID, now, h)
	dc.Trend = pulse.BuildTrendSnapshot(now, h.food, h.workouts, h.live, h.profile, pulse.DefaultTrendWindowDays)

	// 4. Context packet
	packet := pulse.AssemblePacket(dc.Patterns, dc.ActiveSignals, dc, pulse.DefaultTokenBudget)
	dc.Packet = &packet

	return dc, nil
}

func profileCacheKey(userID string, now time.Time) string {
	return userID + "|" + now.Format("2006-01-02")
}

func (s *Service) patternProfile(userID string, now time.Time, h *history) *pulse.PatternProfile {
	key := profileCacheKey(userID, now)
	if p, ok := s.profiles.Get(key); ok {
		return p
	}
	p := pulse.BuildPatternProfile(now, h.food, h.workouts, h.live, h.usage, h.profile)
	s.profiles.Add(key, &p)
	return &p
}

// invalidate drops cached pattern profiles after a write that changes them.
func (s *Service) invalidate(userID string, now time.Time) {
	s.profiles.Remove(profileCacheKey(userID, now))
}

func workedOutToday(workouts []pulse.WorkoutSession, live []pulse.LiveWorkout, now time.Time) bool {
	for _, w := range workouts {
		if behavior.DaysBetween(w.StartedAt, now) == 0 && !w.StartedAt.After(now) {
			return true
		}
	}
	for _, w := range live {
		if !w.IsActive() && behavior.DaysBetween(w.CompletedAt, now) == 0 {
			return true
		}
	}
	return false
}

func hasActiveWorkout(live []pulse.LiveWorkout, now time.Time) bool {
	for _, w := range live {
		if w.RunningAt(now) {
			return true
		}
	}
	return false
}

// readyMuscleCount is the number of muscle groups not trained in the last
// 48 hours.
func readyMuscleCount(workouts []pulse.WorkoutSession, now time.Time) int {
	trained := make(map[string]bool)
	for _, w := range workouts {
		if w.StartedAt.After(now) || now.Sub(w.StartedAt) > readyMuscleWindow {
			continue
		}
		for _, g := range w.MuscleGroups {
			trained[g] = true
		}
	}
	ready := int(pulse.TotalMuscleGroups) - len(trained)
	if ready < 0 {
		return 0
	}
	return ready
}

/* =================================================================================
								RECOMMENDATION
=================================================================================*/

// Pulse is everything a dashboard needs for one render.
type Pulse struct {
	Brief   pulse.Brief          `json:"brief"`
	Surface pulse.SurfaceSpec    `json:"surface"`
	Ranked  []pulse.RankedAction `json:"ranked_actions"`
	Packet  *pulse.ContextPacket `json:"packet"`
	Trend   *pulse.TrendSnapshot `json:"trend,omitempty"`
}

// Pulse runs the deterministic pipeline for userID.
func (s *Service) Pulse(ctx context.Context, userID string) (Pulse, pulse.DailyCoachContext, error) {
	now := s.Now()
	dc, err := s.BuildContext(ctx, userID, now)
	if err != nil {
		return Pulse{}, dc, err
	}

	brief := pulse.MakeBrief(dc)
	answer := pulse.RecentAnswer(dc.ActiveSignals, now)

	return Pulse{
		Brief:   brief,
		Surface: pulse.Compose(brief, now, answer),
		Ranked:  pulse.RankActions(dc, now, pulse.DefaultRankLimit),
		Packet:  dc.Packet,
		Trend:   dc.Trend,
	}, dc, nil
}

// ContentResult reports which path produced the card.
type ContentResult struct {
	Content   pulse.ContentSnapshot `json:"content"`
	Generated bool                  `json:"generated"`
}

// Content produces the dashboard card. When a generator is configured its
// output is parsed and policy-gated; any failure falls back to the brief.
func (s *Service) Content(ctx context.Context, logger *zerolog.Logger, userID string) (ContentResult, error) {
	p, dc, err := s.Pulse(ctx, userID)
	if err != nil {
		return ContentResult{}, err
	}
	fallback := ContentResult{Content: pulse.ContentFromBrief(p.Brief)}

	if s.gen == nil || !s.gen.Enabled() {
		return fallback, nil
	}

	raw, err := s.gen.GenerateContent(ctx, logger, pulse.BuildPrompt(dc, p.Brief))
	if err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("generative content failed, using brief")
		return fallback, nil
	}

	snap, err := pulse.ParseContent([]byte(raw))
	if err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("generative content rejected, using brief")
		return fallback, nil
	}

	req := pulse.PolicyRequest{Scope: userID, Trend: dc.Trend, Signals: dc.ActiveSignals}
	snap = s.policy.Apply(ctx, snap, req, dc.Now)

	logger.Info().
		Str("user_id", userID).
		Str("surface_type", string(snap.SurfaceType)).
		Str("phase", string(p.Brief.Phase)).
		Msg("generative content served")

	return ContentResult{Content: snap, Generated: true}, nil
}

/* =================================================================================
								INGESTION
=================================================================================*/

// RecordEvent stores one instrumentation event. A "suggestion_type" metadata
// entry on a performed or opened event also counts as a suggestion tap.
func (s *Service) RecordEvent(ctx context.Context, userID string, ev behavior.Event) (string, error) {
	if _, err := behavior.ParseActionKey(string(ev.ActionKey)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !ev.Outcome.Valid() {
		return "", fmt.Errorf("%w: unknown outcome %q", ErrInvalidInput, ev.Outcome)
	}
	now := s.Now()
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = now
	}

	id, err := s.repo.AddBehaviorEvent(ctx, userID, ev)
	if err != nil {
		return "", err
	}

	if st := ev.Metadata["suggestion_type"]; st != "" && ev.Outcome != behavior.OutcomeDismissed {
		if err := s.repo.RecordSuggestionTap(ctx, userID, st, ev.OccurredAt); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("suggestion tap not recorded")
		}
		s.invalidate(userID, now)
	}

	s.notify(userID)
	return id, nil
}

// Answer stores a follow-up answer as a note signal so later briefs carry
// it and do not ask again.
func (s *Service) Answer(ctx context.Context, userID, questionID, text string) (pulse.CoachSignal, error) {
	if questionID == "" || text == "" {
		return pulse.CoachSignal{}, fmt.Errorf("%w: question_id and text are required", ErrInvalidInput)
	}
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n == 0 || n > pulse.NoteMaxLength {
		return pulse.CoachSignal{}, fmt.Errorf("%w: text must be 1 to %d characters", ErrInvalidInput, pulse.NoteMaxLength)
	}
	sig := pulse.AnswerSignal(uuid.NewString(), questionID, text, s.Now())
	if _, err := s.repo.AddSignal(ctx, userID, sig); err != nil {
		return pulse.CoachSignal{}, err
	}
	s.notify(userID)
	return sig, nil
}

// AddSignal stores an externally produced coach signal.
func (s *Service) AddSignal(ctx context.Context, userID string, sig pulse.CoachSignal) (string, error) {
	if sig.Title == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if sig.Severity < 0 || sig.Severity > 1 || sig.Confidence < 0 || sig.Confidence > 1 {
		return "", fmt.Errorf("%w: severity and confidence must be within 0..1", ErrInvalidInput)
	}
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = s.Now()
	}
	id, err := s.repo.AddSignal(ctx, userID, sig)
	if err != nil {
		return "", err
	}
	s.notify(userID)
	return id, nil
}

func (s *Service) notify(userID string) {
	if s.notifier != nil {
		s.notifier.Notify(userID)
	}
}

// Warmup precomputes today's pattern profiles for users active in the last
// week. Per-user failures are logged and skipped.
func (s *Service) Warmup(ctx context.Context) (int, error) {
	now := s.Now()
	users, err := s.repo.ListActiveUsers(ctx, behavior.StartOfDay(now).AddDate(0, 0, -activeUserWindow))
	if err != nil {
		return 0, fmt.Errorf("list active users: %w", err)
	}

	warmed := 0
	for _, userID := range users {
		if ctx.Err() != nil {
			return warmed, ctx.Err()
		}
		h, err := s.loadHistory(ctx, userID, now)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("warmup skipped user")
			continue
		}
		s.invalidate(userID, now)
		s.patternProfile(userID, now, h)
		warmed++
	}
	return warmed, nil
}

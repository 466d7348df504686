package handlers

import (
	"context"

	"github.com/devapeu/aomstats-crawler/internal/logic"
	"github.com/devapeu/aomstats-crawler/internal/models"
)

// MockStatsService
type MockStatsService struct {
	BreakdownFunc func(ctx context.Context, profileID int64, mode logic.BreakdownMode, after int64) (*models.PlayerBreakdown, error)
	WinStreakFunc func(ctx context.Context, profileID int64) (int, error)
	GodUsageFunc  func(ctx context.Context, profileID, after int64) ([]models.UsageStat, error)
	MapUsageFunc  func(ctx context.Context, profileID, after int64) ([]models.UsageStat, error)
}

func (m *MockStatsService) Breakdown(ctx context.Context, profileID int64, mode logic.BreakdownMode, after int64) (*models.PlayerBreakdown, error) {
	if m.BreakdownFunc != nil {
		return m.BreakdownFunc(ctx, profileID, mode, after)
	}
	return &models.PlayerBreakdown{Players: map[int64]models.PairRecord{}}, nil
}

func (m *MockStatsService) WinStreak(ctx context.Context, profileID int64) (int, error) {
	if m.WinStreakFunc != nil {
		return m.WinStreakFunc(ctx, profileID)
	}
	return 0, nil
}

func (m *MockStatsService) GodUsage(ctx context.Context, profileID, after int64) ([]models.UsageStat, error) {
	if m.GodUsageFunc != nil {
		return m.GodUsageFunc(ctx, profileID, after)
	}
	return nil, nil
}

func (m *MockStatsService) MapUsage(ctx context.Context, profileID, after int64) ([]models.UsageStat, error) {
	if m.MapUsageFunc != nil {
		return m.MapUsageFunc(ctx, profileID, after)
	}
	return nil, nil
}

// MockEloService
type MockEloService struct {
	AdvanceFunc func(ctx context.Context, recalculateAll bool) error
	RatingFunc  func(ctx context.Context, profileID int64) (float64, error)
}

func (m *MockEloService) Advance(ctx context.Context, recalculateAll bool) error {
	if m.AdvanceFunc != nil {
		return m.AdvanceFunc(ctx, recalculateAll)
	}
	return nil
}

func (m *MockEloService) Rating(ctx context.Context, profileID int64) (float64, error) {
	if m.RatingFunc != nil {
		return m.RatingFunc(ctx, profileID)
	}
	return models.EloDefaultRating, nil
}

func (m *MockEloService) Reset(ctx context.Context) error { return nil }

// MockMatchupService
type MockMatchupService struct {
	PredictFunc func(ctx context.Context, team1, team2 []int64) (*models.MatchupPrediction, error)
}

func (m *MockMatchupService) Predict(ctx context.Context, team1, team2 []int64) (*models.MatchupPrediction, error) {
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, team1, team2)
	}
	return &models.MatchupPrediction{}, nil
}

// MockGlobalService
type MockGlobalService struct {
	GlobalStatsFunc func(ctx context.Context) (*models.GlobalStats, error)
}

func (m *MockGlobalService) GlobalStats(ctx context.Context) (*models.GlobalStats, error) {
	if m.GlobalStatsFunc != nil {
		return m.GlobalStatsFunc(ctx)
	}
	return &models.GlobalStats{}, nil
}

// MockTournamentStore
type MockTournamentStore struct {
	CreateTournamentFunc   func(ctx context.Context, name string) (models.Tournament, error)
	TournamentsFunc        func(ctx context.Context) ([]models.Tournament, error)
	AddTournamentMatchFunc func(ctx context.Context, tournamentID, matchID int64) error
	TournamentMatchesFunc  func(ctx context.Context, tournamentID int64) ([]models.TournamentMatch, error)
}

func (m *MockTournamentStore) CreateTournament(ctx context.Context, name string) (models.Tournament, error) {
	if m.CreateTournamentFunc != nil {
		return m.CreateTournamentFunc(ctx, name)
	}
	return models.Tournament{TournamentID: 1, Name: name, IsOpen: true}, nil
}

func (m *MockTournamentStore) Tournaments(ctx context.Context) ([]models.Tournament, error) {
	if m.TournamentsFunc != nil {
		return m.TournamentsFunc(ctx)
	}
	return nil, nil
}

func (m *MockTournamentStore) AddTournamentMatch(ctx context.Context, tournamentID, matchID int64) error {
	if m.AddTournamentMatchFunc != nil {
		return m.AddTournamentMatchFunc(ctx, tournamentID, matchID)
	}
	return nil
}

func (m *MockTournamentStore) TournamentMatches(ctx context.Context, tournamentID int64) ([]models.TournamentMatch, error) {
	if m.TournamentMatchesFunc != nil {
		return m.TournamentMatchesFunc(ctx, tournamentID)
	}
	return nil, nil
}

// MockSyncer
type MockSyncer struct {
	SyncOnceFunc   func(ctx context.Context) error
	SyncPlayerFunc func(ctx context.Context, profileID int64) (int, error)
}

func (m *MockSyncer) SyncOnce(ctx context.Context) error {
	if m.SyncOnceFunc != nil {
		return m.SyncOnceFunc(ctx)
	}
	return nil
}

func (m *MockSyncer) SyncPlayer(ctx context.Context, profileID int64) (int, error) {
	if m.SyncPlayerFunc != nil {
		return m.SyncPlayerFunc(ctx, profileID)
	}
	return 0, nil
}

// MockPlannerSender
type MockPlannerSender struct {
	SendPlannerImageFunc func(ctx context.Context, image []byte, message string) error
}

func (m *MockPlannerSender) SendPlannerImage(ctx context.Context, image []byte, message string) error {
	if m.SendPlannerImageFunc != nil {
		return m.SendPlannerImageFunc(ctx, image, message)
	}
	return nil
}

// MockPinger
type MockPinger struct {
	PingFunc func(ctx context.Context) error
}

func (m *MockPinger) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

package logic

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/devapeu/aomstats-crawler/internal/models"
)

// matchupFixture holds three meetings of 10,20 vs 30,40: the pair side won
// the first and third, lost the second.
func matchupFixture() *memStore {
	store := newMemStore()
	outcomes := []bool{true, false, true}
	for i, teamOneWon := range outcomes {
		id := int64(i + 1)
		start := int64((i + 1) * 100)
		store.addRows(
			row(id, 10, start, 0, teamOneWon), row(id, 20, start, 0, teamOneWon),
			row(id, 30, start, 1, !teamOneWon), row(id, 40, start, 1, !teamOneWon),
		)
	}
	store.regroup()
	return store
}

func TestPredictBlendsHistory(t *testing.T) {
	store := matchupFixture()
	svc := NewMatchupService(store, store, models.DefaultEloParams(), zap.NewNop())

	got, err := svc.Predict(context.Background(), []int64{10, 20}, []int64{30, 40})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	// Ratings are all default, so the ratings signal is 0.5. Each of the
	// four cross pairs contributes log-odds of a 1-in-3 rate, the four
	// samples weigh in at 0.4, and the blend lands at 43.33%.
	if got.Team1.Probability != 43.33 {
		t.Errorf("Team1.Probability = %v, want 43.33", got.Team1.Probability)
	}
	if got.Team2.Probability != 56.67 {
		t.Errorf("Team2.Probability = %v, want 56.67", got.Team2.Probability)
	}
	if got.Team1.Wins != 2 || got.Team2.Wins != 1 {
		t.Errorf("tally = %d-%d, want 2-1", got.Team1.Wins, got.Team2.Wins)
	}
}

func TestPredictSymmetric(t *testing.T) {
	store := matchupFixture()
	svc := NewMatchupService(store, store, models.DefaultEloParams(), zap.NewNop())

	forward, err := svc.Predict(context.Background(), []int64{10, 20}, []int64{30, 40})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	reverse, err := svc.Predict(context.Background(), []int64{30, 40}, []int64{10, 20})
	if err != nil {
		t.Fatalf("Predict() reversed error = %v", err)
	}

	if forward.Team1.Probability != reverse.Team2.Probability {
		t.Errorf("forward Team1 = %v, reverse Team2 = %v, want equal",
			forward.Team1.Probability, reverse.Team2.Probability)
	}
	if sum := forward.Team1.Probability + forward.Team2.Probability; math.Abs(sum-100) > 1e-9 {
		t.Errorf("probabilities sum to %v, want 100", sum)
	}
	if reverse.Team1.Wins != 1 || reverse.Team2.Wins != 2 {
		t.Errorf("reversed tally = %d-%d, want 1-2", reverse.Team1.Wins, reverse.Team2.Wins)
	}
}

func TestPredictNoHistoryUsesRatingsOnly(t *testing.T) {
	store := newMemStore()
	store.PutRating(context.Background(), 10, 1700, 0)

	svc := NewMatchupService(store, store, models.DefaultEloParams(), zap.NewNop())
	got, err := svc.Predict(context.Background(), []int64{10}, []int64{30})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	// Pure logistic expectation for a 200-point gap.
	if got.Team1.Probability != 75.97 {
		t.Errorf("Team1.Probability = %v, want 75.97", got.Team1.Probability)
	}
	if got.Team1.Wins != 0 || got.Team2.Wins != 0 {
		t.Errorf("tally = %d-%d, want 0-0", got.Team1.Wins, got.Team2.Wins)
	}
}

func TestPredictEvenWithNoData(t *testing.T) {
	store := newMemStore()
	svc := NewMatchupService(store, store, models.DefaultEloParams(), zap.NewNop())

	got, err := svc.Predict(context.Background(), []int64{10, 20}, []int64{30, 40})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if got.Team1.Probability != 50 || got.Team2.Probability != 50 {
		t.Errorf("probabilities = %v/%v, want 50/50",
			got.Team1.Probability, got.Team2.Probability)
	}
}

func TestPredictUnevenSides(t *testing.T) {
	store := newMemStore()
	// Two meetings of 10,20 vs 30, one win each.
	for i, teamOneWon := range []bool{true, false} {
		id := int64(i + 1)
		start := int64((i + 1) * 100)
		store.addRows(
			row(id, 10, start, 0, teamOneWon), row(id, 20, start, 0, teamOneWon),
			row(id, 30, start, 1, !teamOneWon),
		)
	}
	store.regroup()

	svc := NewMatchupService(store, store, models.DefaultEloParams(), zap.NewNop())
	got, err := svc.Predict(context.Background(), []int64{10, 20}, []int64{30})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	// Ratings signal carries the +250 size bonus (~0.808), the even
	// historical record scales by 1.2 for the extra player (0.6), two
	// samples weigh 0.2.
	if got.Team1.Probability != 76.67 {
		t.Errorf("Team1.Probability = %v, want 76.67", got.Team1.Probability)
	}
}

func TestPredictEmptyTeam(t *testing.T) {
	store := newMemStore()
	svc := NewMatchupService(store, store, models.DefaultEloParams(), zap.NewNop())

	if _, err := svc.Predict(context.Background(), nil, []int64{30}); !errors.Is(err, ErrEmptyTeam) {
		t.Errorf("Predict(nil, team) error = %v, want ErrEmptyTeam", err)
	}
	if _, err := svc.Predict(context.Background(), []int64{10}, nil); !errors.Is(err, ErrEmptyTeam) {
		t.Errorf("Predict(team, nil) error = %v, want ErrEmptyTeam", err)
	}
}

package logic

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/devapeu/aomstats-crawler/internal/models"
)

type eloService struct {
	matches MatchReader
	ratings RatingStore
	roster  map[int64]string
	params  models.EloParams
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// NewEloService builds the rating ledger over the given stores. The roster
// restricts rating updates to the tracked player pool.
func NewEloService(matches MatchReader, ratings RatingStore, roster map[int64]string, params models.EloParams, logger *zap.Logger) EloService {
	return &eloService{
		matches: matches,
		ratings: ratings,
		roster:  roster,
		params:  params,
		logger:  logger.Sugar(),
		now:     time.Now,
	}
}

// Advance walks every match holding a team key in chronological order and
// folds unprocessed results into the ledger. Data-quality anomalies skip the
// match and log; only storage failures surface as errors. Advance is
// idempotent across invocations via the per-player watermark but must not run
// concurrently with itself: the per-player read-modify-write has no isolation
// beyond the store's own transaction boundary.
func (s *eloService) Advance(ctx context.Context, recalculateAll bool) error {
	matches, err := s.matches.MatchesWithTeamKeys(ctx)
	if err != nil {
		return fmt.Errorf("load matches for replay: %w", err)
	}

	for _, m := range matches {
		sides, err := models.ParseTeamKey(m.TeamKey)
		if err != nil {
			s.logger.Warnw("Skipping match with unusable team key",
				"match_id", m.MatchID, "team_match_id", m.TeamKey, "error", err)
			continue
		}

		if !recalculateAll {
			processed, err := s.alreadyProcessed(ctx, sides.Players(), m.StartGameTime)
			if err != nil {
				return err
			}
			if processed {
				continue
			}
		}

		if !s.allInRoster(sides.Players()) {
			continue
		}
		// Head-to-head games are excluded from rating updates by policy.
		if len(sides.SideA) == 1 && len(sides.SideB) == 1 {
			continue
		}

		row, ok, err := s.matches.PlayerRow(ctx, m.MatchID, sides.SideA[0])
		if err != nil {
			return err
		}
		if !ok {
			s.logger.Warnw("No outcome row for match",
				"match_id", m.MatchID, "profile_id", sides.SideA[0])
			continue
		}

		meanA, err := s.meanRating(ctx, sides.SideA)
		if err != nil {
			return err
		}
		meanB, err := s.meanRating(ctx, sides.SideB)
		if err != nil {
			return err
		}

		sizeAdvantage := float64(len(sides.SideA)-len(sides.SideB)) * s.params.SizeBonusPerPlayer
		adjustedA := meanA + sizeAdvantage

		score := 0.0
		if row.Win {
			score = 1
		}
		delta := eloDelta(adjustedA, meanB, score, s.params.KFactor, s.params.Divisor)

		if err := s.applyDelta(ctx, sides.SideA, delta); err != nil {
			return err
		}
		if err := s.applyDelta(ctx, sides.SideB, -delta); err != nil {
			return err
		}
	}

	return nil
}

func (s *eloService) Rating(ctx context.Context, profileID int64) (float64, error) {
	r, err := s.ratings.Rating(ctx, profileID)
	if err != nil {
		return 0, err
	}
	return r.Rating, nil
}

func (s *eloService) Reset(ctx context.Context) error {
	return s.ratings.ResetAllRatings(ctx, s.params.DefaultRating)
}

// alreadyProcessed reports whether every participant's watermark lies strictly
// after the match start time. The watermark is global per player, not per
// match, so two matches sharing a start time can race this check; accepted as
// an approximation.
func (s *eloService) alreadyProcessed(ctx context.Context, players []int64, startTime int64) (bool, error) {
	for _, id := range players {
		r, err := s.ratings.Rating(ctx, id)
		if err != nil {
			return false, err
		}
		if r.LastUpdated <= startTime {
			return false, nil
		}
	}
	return true, nil
}

func (s *eloService) allInRoster(players []int64) bool {
	for _, id := range players {
		if _, ok := s.roster[id]; !ok {
			return false
		}
	}
	return true
}

func (s *eloService) meanRating(ctx context.Context, players []int64) (float64, error) {
	var sum float64
	for _, id := range players {
		r, err := s.ratings.Rating(ctx, id)
		if err != nil {
			return 0, err
		}
		sum += r.Rating
	}
	return sum / float64(len(players)), nil
}

// applyDelta adds delta to every listed player's stored rating. Each rating is
// re-read immediately before the write and the watermark follows in the same
// call, keeping the processed check consistent with what was actually applied.
func (s *eloService) applyDelta(ctx context.Context, players []int64, delta float64) error {
	for _, id := range players {
		r, err := s.ratings.Rating(ctx, id)
		if err != nil {
			return err
		}
		if err := s.ratings.PutRating(ctx, id, r.Rating+delta, s.now().Unix()); err != nil {
			return fmt.Errorf("update rating for %d: %w", id, err)
		}
	}
	return nil
}

// eloDelta is the standard logistic Elo update, rounded to a whole point.
func eloDelta(ratingA, ratingB, actualScoreA, k, divisor float64) float64 {
	expectedA := 1 / (1 + math.Pow(10, (ratingB-ratingA)/divisor))
	return math.Round(k * (actualScoreA - expectedA))
}

// eloExpectation is the win expectation for side A used by the predictor.
func eloExpectation(ratingA, ratingB, divisor float64) float64 {
	return 1 / (1 + math.Pow(10, (ratingB-ratingA)/divisor))
}

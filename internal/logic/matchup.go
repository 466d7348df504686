package logic

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/devapeu/aomstats-crawler/internal/models"
)

// ErrEmptyTeam is returned when a predictor input side has no players.
var ErrEmptyTeam = errors.New("matchup: both teams must be non-empty")

const (
	// historicalPairTarget is the pair-sample count at which the historical
	// signal reaches its weight cap.
	historicalPairTarget = 10
	// historicalWeightCap keeps ratings as at least half the blended signal
	// no matter how much head-to-head history exists.
	historicalWeightCap = 0.5

	historicalProbFloor   = 0.05
	historicalProbCeiling = 0.95
)

type matchupService struct {
	matches MatchReader
	ratings RatingStore
	params  models.EloParams
	logger  *zap.SugaredLogger
}

// NewMatchupService builds the predictor over the match store and rating
// ledger.
func NewMatchupService(matches MatchReader, ratings RatingStore, params models.EloParams, logger *zap.Logger) MatchupService {
	return &matchupService{matches: matches, ratings: ratings, params: params, logger: logger.Sugar()}
}

// Predict blends the ratings-based and historical-frequency signals into one
// win probability for team1 and reports the literal win tally between exactly
// these two sides. Probabilities are on a 0-100 scale at two decimals; team2's
// is team1's complement.
func (s *matchupService) Predict(ctx context.Context, team1, team2 []int64) (*models.MatchupPrediction, error) {
	if len(team1) == 0 || len(team2) == 0 {
		return nil, ErrEmptyTeam
	}

	prob, err := s.winProbability(ctx, team1, team2)
	if err != nil {
		return nil, err
	}
	wins1, wins2, err := s.historicalWins(ctx, team1, team2)
	if err != nil {
		return nil, err
	}

	p1 := math.Round(prob*10000) / 100
	return &models.MatchupPrediction{
		Team1: models.MatchupSide{Wins: wins1, Probability: p1},
		Team2: models.MatchupSide{Wins: wins2, Probability: math.Round((100-p1)*100) / 100},
	}, nil
}

func (s *matchupService) winProbability(ctx context.Context, team1, team2 []int64) (float64, error) {
	mean1, err := s.meanRating(ctx, team1)
	if err != nil {
		return 0, err
	}
	mean2, err := s.meanRating(ctx, team2)
	if err != nil {
		return 0, err
	}

	sizeAdvantage := float64(len(team1)-len(team2)) * s.params.SizeBonusPerPlayer
	eloProb := eloExpectation(mean1+sizeAdvantage, mean2, s.params.Divisor)

	// Historical signal: mean log-odds over every cross pair with usable
	// head-to-head data. 0% and 100% rates are skipped to avoid infinite
	// log-odds.
	var logits []float64
	for _, p1 := range team1 {
		rows, err := s.matches.PlayerRows(ctx, p1, 0)
		if err != nil {
			return 0, fmt.Errorf("load rows for player %d: %w", p1, err)
		}
		for _, p2 := range team2 {
			bd := breakdownRows(rows, p1, ModeRivals, map[int64]bool{p2: true})
			rec, ok := bd.Players[p2]
			if !ok || rec.Total == 0 {
				continue
			}
			rate := float64(rec.Wins) / float64(rec.Total)
			if rate <= 0 || rate >= 1 {
				continue
			}
			logits = append(logits, math.Log(rate/(1-rate)))
		}
	}

	historicalProb := 0.5
	if len(logits) > 0 {
		var sum float64
		for _, l := range logits {
			sum += l
		}
		historicalProb = 1 / (1 + math.Exp(-sum/float64(len(logits))))

		multiplier := math.Pow(s.params.HistSizeMultiplierBase, float64(len(team1)-len(team2)))
		historicalProb = math.Min(historicalProbCeiling, math.Max(historicalProbFloor, historicalProb*multiplier))
	}

	historicalWeight := math.Min(float64(len(logits))/historicalPairTarget, historicalWeightCap)
	return eloProb*(1-historicalWeight) + historicalProb*historicalWeight, nil
}

// historicalWins counts prior meetings of exactly these two sides through the
// canonical team key, reading outcome flags from the first input side's first
// player so the flags are interpreted from team1's perspective regardless of
// which segment of the key that side landed in.
func (s *matchupService) historicalWins(ctx context.Context, team1, team2 []int64) (int, int, error) {
	key := models.NewTeamSides(team1, team2).Key()
	perspective := team1[0]

	rows, err := s.matches.RowsByTeamKey(ctx, key, perspective)
	if err != nil {
		return 0, 0, fmt.Errorf("load rows for key %q: %w", key, err)
	}

	var wins1, wins2 int
	for _, row := range rows {
		if row.Win {
			wins1++
		} else {
			wins2++
		}
	}
	return wins1, wins2, nil
}

func (s *matchupService) meanRating(ctx context.Context, players []int64) (float64, error) {
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

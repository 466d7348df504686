package logic

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/devapeu/aomstats-crawler/internal/models"
)

type statsService struct {
	matches MatchReader
	roster  map[int64]string
	logger  *zap.SugaredLogger
}

// NewStatsService builds the per-player query surface. The roster bounds the
// per-id breakdown output; rows involving untracked players still count toward
// totals.
func NewStatsService(matches MatchReader, roster map[int64]string, logger *zap.Logger) StatsService {
	return &statsService{matches: matches, roster: roster, logger: logger.Sugar()}
}

func (s *statsService) Breakdown(ctx context.Context, profileID int64, mode BreakdownMode, after int64) (*models.PlayerBreakdown, error) {
	if mode != ModePartners && mode != ModeRivals {
		return nil, fmt.Errorf("unknown breakdown mode %q", mode)
	}

	rows, err := s.matches.PlayerRows(ctx, profileID, after)
	if err != nil {
		return nil, fmt.Errorf("load rows for player %d: %w", profileID, err)
	}

	pool := make(map[int64]bool, len(s.roster))
	for id := range s.roster {
		pool[id] = true
	}
	return breakdownRows(rows, profileID, mode, pool), nil
}

// breakdownRows buckets a player's outcomes by teammate or opponent. Rows
// whose team key fails to parse (null, corrupted, malformed) are skipped
// entirely and do not count toward Total. Ids outside pool are dropped from
// the per-id map but the row still counts toward Total.
func breakdownRows(rows []models.MatchRecord, profileID int64, mode BreakdownMode, pool map[int64]bool) *models.PlayerBreakdown {
	out := &models.PlayerBreakdown{Players: make(map[int64]models.PairRecord)}

	for _, row := range rows {
		sides, err := models.ParseTeamKey(row.TeamKey)
		if err != nil {
			continue
		}
		own, opposing, ok := sides.SideOf(profileID)
		if !ok {
			continue
		}
		out.Total++

		var targets []int64
		if mode == ModePartners {
			for _, id := range own {
				if id != profileID {
					targets = append(targets, id)
				}
			}
		} else {
			targets = opposing
		}

		// In partners mode a hit is the subject winning alongside the
		// partner; in rivals mode it is the rival beating the subject.
		hit := (mode == ModePartners && row.Win) || (mode == ModeRivals && !row.Win)

		for _, id := range targets {
			if !pool[id] {
				continue
			}
			rec := out.Players[id]
			rec.Total++
			if hit {
				rec.Wins++
			}
			out.Players[id] = rec
		}
	}

	return out
}

// WinStreak returns the length of the unbroken run of wins ending at the
// player's most recent match, 0 when that match was a loss or no matches
// exist.
func (s *statsService) WinStreak(ctx context.Context, profileID int64) (int, error) {
	rows, err := s.matches.PlayerRows(ctx, profileID, 0)
	if err != nil {
		return 0, fmt.Errorf("load rows for player %d: %w", profileID, err)
	}

	streak := 0
	for i := len(rows) - 1; i >= 0 && rows[i].Win; i-- {
		streak++
	}
	return streak, nil
}

func (s *statsService) GodUsage(ctx context.Context, profileID, after int64) ([]models.UsageStat, error) {
	return s.usage(ctx, profileID, after, func(r models.MatchRecord) string { return r.God })
}

func (s *statsService) MapUsage(ctx context.Context, profileID, after int64) ([]models.UsageStat, error) {
	return s.usage(ctx, profileID, after, func(r models.MatchRecord) string { return r.MapName })
}

func (s *statsService) usage(ctx context.Context, profileID, after int64, keyOf func(models.MatchRecord) string) ([]models.UsageStat, error) {
	rows, err := s.matches.PlayerRows(ctx, profileID, after)
	if err != nil {
		return nil, fmt.Errorf("load rows for player %d: %w", profileID, err)
	}

	type tally struct{ total, wins int }
	buckets := make(map[string]*tally)
	for _, row := range rows {
		name := keyOf(row)
		if name == "" {
			continue
		}
		t := buckets[name]
		if t == nil {
			t = &tally{}
			buckets[name] = t
		}
		t.total++
		if row.Win {
			t.wins++
		}
	}

	stats := make([]models.UsageStat, 0, len(buckets))
	for name, t := range buckets {
		stats = append(stats, models.UsageStat{
			Name:           name,
			TotalGames:     t.total,
			WinratePercent: roundPct(float64(t.wins) * 100 / float64(t.total)),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TotalGames != stats[j].TotalGames {
			return stats[i].TotalGames > stats[j].TotalGames
		}
		return stats[i].Name < stats[j].Name
	})
	return stats, nil
}

// roundPct rounds to two decimal places on the 0-100 scale.
func roundPct(v float64) float64 {
	return math.Round(v*100) / 100
}

package logic

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devapeu/aomstats-crawler/internal/models"
)

const (
	globalStatsCacheKey = "aomstats:global_stats"
	globalStatsCacheTTL = 60 * time.Second

	rankedMapPrefix = "rm_"
	topListLimit    = 10
)

type globalService struct {
	matches MatchReader
	ratings RatingStore
	roster  map[int64]string
	cache   RedisClient
	logger  *zap.SugaredLogger
}

// NewGlobalService builds the dashboard aggregate. cache may be nil, in which
// case every call recomputes.
func NewGlobalService(matches MatchReader, ratings RatingStore, roster map[int64]string, cache RedisClient, logger *zap.Logger) GlobalService {
	return &globalService{matches: matches, ratings: ratings, roster: roster, cache: cache, logger: logger.Sugar()}
}

func (s *globalService) GlobalStats(ctx context.Context) (*models.GlobalStats, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, globalStatsCacheKey).Bytes(); err == nil {
			var cached models.GlobalStats
			if json.Unmarshal(data, &cached) == nil {
				return &cached, nil
			}
		}
	}

	maps, err := s.matches.TopMaps(ctx, rankedMapPrefix, topListLimit)
	if err != nil {
		return nil, err
	}

	freqs, err := s.matches.TeamKeyFrequencies(ctx)
	if err != nil {
		return nil, err
	}
	matchups := make([]models.MatchupCount, 0, len(freqs))
	for _, f := range freqs {
		sides, err := models.ParseTeamKey(f.TeamKey)
		if err != nil || sides.Corrupted() {
			continue
		}
		if len(sides.SideA) == 1 && len(sides.SideB) == 1 {
			continue
		}
		matchups = append(matchups, f)
	}
	sort.Slice(matchups, func(i, j int) bool {
		if matchups[i].Count != matchups[j].Count {
			return matchups[i].Count > matchups[j].Count
		}
		return strings.Compare(matchups[i].TeamKey, matchups[j].TeamKey) < 0
	})
	if len(matchups) > topListLimit {
		matchups = matchups[:topListLimit]
	}

	rosterIDs := make([]int64, 0, len(s.roster))
	for id := range s.roster {
		rosterIDs = append(rosterIDs, id)
	}
	sort.Slice(rosterIDs, func(i, j int) bool { return rosterIDs[i] < rosterIDs[j] })

	elo, err := s.ratings.Ratings(ctx, rosterIDs)
	if err != nil {
		return nil, err
	}

	stats := &models.GlobalStats{Maps: maps, Matchups: matchups, Elo: elo}

	if s.cache != nil {
		if data, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, globalStatsCacheKey, data, globalStatsCacheTTL).Err(); err != nil {
				s.logger.Warnw("Failed to cache global stats", "error", err)
			}
		}
	}

	return stats, nil
}

package logic

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/devapeu/aomstats-crawler/internal/models"
)

// MatchReader is the read surface of the match store consumed by the
// analytics services. Tests supply an in-memory implementation.
type MatchReader interface {
	// MatchesWithTeamKeys returns one summary per distinct match holding a
	// team key, ordered by start time ascending with arrival order breaking
	// ties. The ledger depends on this ordering being stable.
	MatchesWithTeamKeys(ctx context.Context) ([]models.MatchSummary, error)
	// PlayerRow returns the (matchID, profileID) row; ok is false when the
	// row does not exist.
	PlayerRow(ctx context.Context, matchID, profileID int64) (models.MatchRecord, bool, error)
	// PlayerRows returns all of a player's rows with StartGameTime > after,
	// ordered chronologically with match id breaking ties.
	PlayerRows(ctx context.Context, profileID, after int64) ([]models.MatchRecord, error)
	// RowsByTeamKey returns a player's rows holding exactly the given key.
	RowsByTeamKey(ctx context.Context, teamKey string, profileID int64) ([]models.MatchRecord, error)
	// TopMaps returns the most-played maps whose name starts with prefix.
	TopMaps(ctx context.Context, prefix string, limit int) ([]models.MapCount, error)
	// TeamKeyFrequencies returns distinct-match counts per team key.
	TeamKeyFrequencies(ctx context.Context) ([]models.MatchupCount, error)
}

// RatingStore is the rating ledger's persistence surface.
type RatingStore interface {
	// Rating returns the player's ledger row, or a default-rating row with a
	// zero watermark when the player has never been rated.
	Rating(ctx context.Context, profileID int64) (models.PlayerRating, error)
	PutRating(ctx context.Context, profileID int64, rating float64, updatedAt int64) error
	// ResetAllRatings rewinds every row to the given rating with a zero
	// watermark, forcing the next replay to process everything.
	ResetAllRatings(ctx context.Context, rating float64) error
	// Ratings returns ledger rows for the given players, best rating first.
	Ratings(ctx context.Context, profileIDs []int64) ([]models.PlayerRating, error)
}

// RedisClient defines the Redis surface used for read-side caching.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// EloService maintains per-player ratings over the match log.
type EloService interface {
	// Advance replays unprocessed matches in chronological order, updating
	// ratings and watermarks. With recalculateAll the watermark check is
	// bypassed; the caller must have reset the ledger first.
	Advance(ctx context.Context, recalculateAll bool) error
	Rating(ctx context.Context, profileID int64) (float64, error)
	// Reset rewinds all ratings to the default and zeroes all watermarks.
	Reset(ctx context.Context) error
}

// BreakdownMode selects whose outcomes the aggregator buckets.
type BreakdownMode string

const (
	ModePartners BreakdownMode = "partners"
	ModeRivals   BreakdownMode = "rivals"
)

// StatsService is the per-player read-side query surface.
type StatsService interface {
	Breakdown(ctx context.Context, profileID int64, mode BreakdownMode, after int64) (*models.PlayerBreakdown, error)
	WinStreak(ctx context.Context, profileID int64) (int, error)
	GodUsage(ctx context.Context, profileID, after int64) ([]models.UsageStat, error)
	MapUsage(ctx context.Context, profileID, after int64) ([]models.UsageStat, error)
}

// MatchupService predicts the outcome of an arbitrary two-sided matchup.
type MatchupService interface {
	Predict(ctx context.Context, team1, team2 []int64) (*models.MatchupPrediction, error)
}

// GlobalService serves the aggregate dashboard payload.
type GlobalService interface {
	GlobalStats(ctx context.Context) (*models.GlobalStats, error)
}

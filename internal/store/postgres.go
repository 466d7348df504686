package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/devapeu/aomstats-crawler/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS matches (
	id            BIGSERIAL PRIMARY KEY,
	match_id      BIGINT NOT NULL,
	profile_id    BIGINT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	startgametime BIGINT NOT NULL,
	win           BOOLEAN NOT NULL,
	team          INT NOT NULL,
	god           TEXT NOT NULL DEFAULT '',
	mapname       TEXT NOT NULL DEFAULT '',
	raw_data      JSONB,
	team_match_id TEXT NOT NULL DEFAULT '',
	UNIQUE (match_id, profile_id)
);
CREATE INDEX IF NOT EXISTS idx_matches_player_time ON matches (profile_id, startgametime);
CREATE INDEX IF NOT EXISTS idx_matches_team_key ON matches (team_match_id);

CREATE TABLE IF NOT EXISTS elo_ratings (
	profile_id   BIGINT PRIMARY KEY,
	elo          DOUBLE PRECISION NOT NULL,
	last_updated BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tournaments (
	tournament_id BIGSERIAL PRIMARY KEY,
	name          TEXT NOT NULL,
	is_open       BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS tournament_matches (
	tournament_id BIGINT NOT NULL REFERENCES tournaments (tournament_id),
	match_id      BIGINT NOT NULL,
	PRIMARY KEY (tournament_id, match_id)
);
`

// Tournament pass-through errors surfaced to the HTTP layer.
var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTournamentClosed   = errors.New("tournament is closed")
)

// querier is the query surface shared by the pool and an open transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is the Postgres persistence layer for matches, ratings and
// tournaments. It implements logic.MatchReader and logic.RatingStore.
type Store struct {
	pool          *pgxpool.Pool
	defaultRating float64
	logger        *zap.SugaredLogger
}

// New connects to Postgres, verifies the connection and ensures the schema
// exists. defaultRating fills in ledger rows for players never rated.
func New(ctx context.Context, databaseURL string, defaultRating float64, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &Store{pool: pool, defaultRating: defaultRating, logger: logger.Sugar()}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping reports database reachability for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// IngestBatch inserts the qualifying rows and recomputes the grouping key of
// every match it touched, all inside one transaction: a reader never observes
// new participant rows with a stale key. Duplicate (match_id, profile_id)
// rows are dropped silently. Returns the number of rows actually inserted.
func (s *Store) IngestBatch(ctx context.Context, raws []models.RawMatch) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin ingest: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	touched := make(map[int64]bool)
	for _, raw := range raws {
		if raw.Disqualified() {
			continue
		}
		rec := raw.Record()
		tag, err := tx.Exec(ctx, `
			INSERT INTO matches
				(match_id, profile_id, description, startgametime, win, team, god, mapname, raw_data)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (match_id, profile_id) DO NOTHING
		`, rec.MatchID, rec.ProfileID, rec.Description, rec.StartGameTime,
			rec.Win, rec.Team, rec.God, rec.MapName, rec.RawData)
		if err != nil {
			return 0, fmt.Errorf("failed to insert match %d row: %w", rec.MatchID, err)
		}
		if tag.RowsAffected() > 0 {
			inserted++
			touched[rec.MatchID] = true
		}
	}

	for matchID := range touched {
		if err := s.regroup(ctx, tx, matchID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit ingest: %w", err)
	}
	return inserted, nil
}

// RegroupAll recomputes the grouping key of every stored match.
func (s *Store) RegroupAll(ctx context.Context) error {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT match_id FROM matches`)
	if err != nil {
		return fmt.Errorf("failed to list matches: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return fmt.Errorf("failed to scan match ids: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin regroup: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, id := range ids {
		if err := s.regroup(ctx, tx, id); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// regroup rebuilds one match's canonical team key from its participant rows
// and writes it back to every row of the match.
func (s *Store) regroup(ctx context.Context, q querier, matchID int64) error {
	rows, err := q.Query(ctx, `
		SELECT profile_id, team FROM matches WHERE match_id = $1 ORDER BY id
	`, matchID)
	if err != nil {
		return fmt.Errorf("failed to load participants of match %d: %w", matchID, err)
	}

	var participants []models.MatchRecord
	for rows.Next() {
		var rec models.MatchRecord
		if err := rows.Scan(&rec.ProfileID, &rec.Team); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan participant of match %d: %w", matchID, err)
		}
		participants = append(participants, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read participants of match %d: %w", matchID, err)
	}

	sides, anomalies := models.SidesFromParticipants(participants)
	if anomalies > 0 {
		s.logger.Warnw("Match has rows with unknown team assignment",
			"match_id", matchID, "anomalies", anomalies)
	}

	if _, err := q.Exec(ctx, `
		UPDATE matches SET team_match_id = $1 WHERE match_id = $2
	`, sides.Key(), matchID); err != nil {
		return fmt.Errorf("failed to update team key of match %d: %w", matchID, err)
	}
	return nil
}

const matchColumns = `match_id, profile_id, description, startgametime, win, team, god, mapname, team_match_id`

func scanMatch(row pgx.CollectableRow) (models.MatchRecord, error) {
	var rec models.MatchRecord
	err := row.Scan(&rec.MatchID, &rec.ProfileID, &rec.Description, &rec.StartGameTime,
		&rec.Win, &rec.Team, &rec.God, &rec.MapName, &rec.TeamKey)
	return rec, err
}

// MatchesWithTeamKeys returns one summary per keyed match in replay order:
// start time ascending, arrival order breaking ties.
func (s *Store) MatchesWithTeamKeys(ctx context.Context) ([]models.MatchSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT match_id, team_match_id, startgametime
		FROM (
			SELECT DISTINCT ON (match_id) match_id, team_match_id, startgametime, id
			FROM matches
			WHERE team_match_id <> ''
			ORDER BY match_id, id
		) m
		ORDER BY startgametime ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keyed matches: %w", err)
	}
	defer rows.Close()

	var out []models.MatchSummary
	for rows.Next() {
		var m models.MatchSummary
		if err := rows.Scan(&m.MatchID, &m.TeamKey, &m.StartGameTime); err != nil {
			return nil, fmt.Errorf("failed to scan match summary: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) PlayerRow(ctx context.Context, matchID, profileID int64) (models.MatchRecord, bool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+matchColumns+` FROM matches WHERE match_id = $1 AND profile_id = $2
	`, matchID, profileID)
	if err != nil {
		return models.MatchRecord{}, false, fmt.Errorf("failed to load row (%d, %d): %w", matchID, profileID, err)
	}
	rec, err := pgx.CollectOneRow(rows, scanMatch)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.MatchRecord{}, false, nil
	}
	if err != nil {
		return models.MatchRecord{}, false, fmt.Errorf("failed to scan row (%d, %d): %w", matchID, profileID, err)
	}
	return rec, true, nil
}

func (s *Store) PlayerRows(ctx context.Context, profileID, after int64) ([]models.MatchRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE profile_id = $1 AND startgametime > $2
		ORDER BY startgametime ASC, match_id ASC
	`, profileID, after)
	if err != nil {
		return nil, fmt.Errorf("failed to load rows of player %d: %w", profileID, err)
	}
	out, err := pgx.CollectRows(rows, scanMatch)
	if err != nil {
		return nil, fmt.Errorf("failed to scan rows of player %d: %w", profileID, err)
	}
	return out, nil
}

func (s *Store) RowsByTeamKey(ctx context.Context, teamKey string, profileID int64) ([]models.MatchRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE team_match_id = $1 AND profile_id = $2
		ORDER BY startgametime ASC, id ASC
	`, teamKey, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rows for key %q: %w", teamKey, err)
	}
	out, err := pgx.CollectRows(rows, scanMatch)
	if err != nil {
		return nil, fmt.Errorf("failed to scan rows for key %q: %w", teamKey, err)
	}
	return out, nil
}

// AllRows returns every stored row in replay order, for exports.
func (s *Store) AllRows(ctx context.Context) ([]models.MatchRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+matchColumns+` FROM matches ORDER BY startgametime ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load all rows: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanMatch)
	if err != nil {
		return nil, fmt.Errorf("failed to scan all rows: %w", err)
	}
	return out, nil
}

func (s *Store) TopMaps(ctx context.Context, prefix string, limit int) ([]models.MapCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT mapname, COUNT(*) AS games
		FROM matches
		WHERE mapname <> '' AND mapname LIKE $1 || '%'
		GROUP BY mapname
		ORDER BY games DESC, mapname ASC
		LIMIT $2
	`, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to count maps: %w", err)
	}
	defer rows.Close()

	var out []models.MapCount
	for rows.Next() {
		var mc models.MapCount
		if err := rows.Scan(&mc.MapName, &mc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan map count: %w", err)
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

func (s *Store) TeamKeyFrequencies(ctx context.Context) ([]models.MatchupCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT team_match_id, COUNT(DISTINCT match_id)
		FROM matches
		WHERE team_match_id <> ''
		GROUP BY team_match_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count matchups: %w", err)
	}
	defer rows.Close()

	var out []models.MatchupCount
	for rows.Next() {
		var mc models.MatchupCount
		if err := rows.Scan(&mc.TeamKey, &mc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan matchup count: %w", err)
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

// LatestStartTime returns the newest stored start time for a player, 0 when
// the player has no rows. The crawler uses it as its incremental watermark.
func (s *Store) LatestStartTime(ctx context.Context, profileID int64) (int64, error) {
	var latest int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(startgametime), 0) FROM matches WHERE profile_id = $1
	`, profileID).Scan(&latest)
	if err != nil {
		return 0, fmt.Errorf("failed to read latest start time of player %d: %w", profileID, err)
	}
	return latest, nil
}

func (s *Store) Rating(ctx context.Context, profileID int64) (models.PlayerRating, error) {
	var r models.PlayerRating
	err := s.pool.QueryRow(ctx, `
		SELECT profile_id, elo, last_updated FROM elo_ratings WHERE profile_id = $1
	`, profileID).Scan(&r.ProfileID, &r.Rating, &r.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.PlayerRating{ProfileID: profileID, Rating: s.defaultRating}, nil
	}
	if err != nil {
		return models.PlayerRating{}, fmt.Errorf("failed to load rating of player %d: %w", profileID, err)
	}
	return r, nil
}

func (s *Store) PutRating(ctx context.Context, profileID int64, rating float64, updatedAt int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO elo_ratings (profile_id, elo, last_updated)
		VALUES ($1, $2, $3)
		ON CONFLICT (profile_id) DO UPDATE SET elo = $2, last_updated = $3
	`, profileID, rating, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to store rating of player %d: %w", profileID, err)
	}
	return nil
}

func (s *Store) ResetAllRatings(ctx context.Context, rating float64) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE elo_ratings SET elo = $1, last_updated = 0
	`, rating); err != nil {
		return fmt.Errorf("failed to reset ratings: %w", err)
	}
	return nil
}

// Ratings returns ledger rows for the given players, best rating first.
// Players without a stored row appear at the default rating.
func (s *Store) Ratings(ctx context.Context, profileIDs []int64) ([]models.PlayerRating, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT profile_id, elo, last_updated FROM elo_ratings WHERE profile_id = ANY($1)
	`, profileIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}
	defer rows.Close()

	stored := make(map[int64]models.PlayerRating)
	for rows.Next() {
		var r models.PlayerRating
		if err := rows.Scan(&r.ProfileID, &r.Rating, &r.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		stored[r.ProfileID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.PlayerRating, 0, len(profileIDs))
	for _, id := range profileIDs {
		if r, ok := stored[id]; ok {
			out = append(out, r)
			continue
		}
		out = append(out, models.PlayerRating{ProfileID: id, Rating: s.defaultRating})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return out, nil
}

// CreateTournament opens a new tournament and returns it.
func (s *Store) CreateTournament(ctx context.Context, name string) (models.Tournament, error) {
	t := models.Tournament{Name: name, IsOpen: true}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tournaments (name) VALUES ($1) RETURNING tournament_id
	`, name).Scan(&t.TournamentID)
	if err != nil {
		return models.Tournament{}, fmt.Errorf("failed to create tournament: %w", err)
	}
	return t, nil
}

// Tournaments lists all tournaments, newest first.
func (s *Store) Tournaments(ctx context.Context) ([]models.Tournament, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tournament_id, name, is_open FROM tournaments ORDER BY tournament_id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	var out []models.Tournament
	for rows.Next() {
		var t models.Tournament
		if err := rows.Scan(&t.TournamentID, &t.Name, &t.IsOpen); err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddTournamentMatch links a match to an open tournament. Linking twice is a
// no-op; linking to a closed or unknown tournament fails.
func (s *Store) AddTournamentMatch(ctx context.Context, tournamentID, matchID int64) error {
	var isOpen bool
	err := s.pool.QueryRow(ctx, `
		SELECT is_open FROM tournaments WHERE tournament_id = $1
	`, tournamentID).Scan(&isOpen)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrTournamentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	if !isOpen {
		return ErrTournamentClosed
	}

	if _, err := s.pool.Exec(ctx, `
		INSERT INTO tournament_matches (tournament_id, match_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, tournamentID, matchID); err != nil {
		return fmt.Errorf("failed to link match %d: %w", matchID, err)
	}
	return nil
}

// TournamentMatches lists the match ids linked to a tournament.
func (s *Store) TournamentMatches(ctx context.Context, tournamentID int64) ([]models.TournamentMatch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tournament_id, match_id FROM tournament_matches
		WHERE tournament_id = $1 ORDER BY match_id
	`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament matches: %w", err)
	}
	defer rows.Close()

	var out []models.TournamentMatch
	for rows.Next() {
		var tm models.TournamentMatch
		if err := rows.Scan(&tm.TournamentID, &tm.MatchID); err != nil {
			return nil, fmt.Errorf("failed to scan tournament match: %w", err)
		}
		out = append(out, tm)
	}
	return out, rows.Err()
}

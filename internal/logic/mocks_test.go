package logic

import (
	"context"
	"sort"
	"strings"

	"github.com/devapeu/aomstats-crawler/internal/models"
)

// memStore is an in-memory MatchReader + RatingStore used across the logic
// tests. Rows keep arrival order so the ledger's tie-break is observable.
type memStore struct {
	rows    []models.MatchRecord
	ratings map[int64]models.PlayerRating
	defRate float64
}

func newMemStore() *memStore {
	return &memStore{ratings: make(map[int64]models.PlayerRating), defRate: models.EloDefaultRating}
}

func (m *memStore) addRows(rows ...models.MatchRecord) {
	m.rows = append(m.rows, rows...)
}

// regroup recomputes team keys for every stored match, mirroring the store's
// resolver: partition by the promoted team assignment, canonicalize, write the
// key back to every participant row.
func (m *memStore) regroup() {
	byMatch := make(map[int64][]int)
	for i, r := range m.rows {
		byMatch[r.MatchID] = append(byMatch[r.MatchID], i)
	}
	for _, idxs := range byMatch {
		group := make([]models.MatchRecord, 0, len(idxs))
		for _, i := range idxs {
			group = append(group, m.rows[i])
		}
		sides, _ := models.SidesFromParticipants(group)
		key := sides.Key()
		for _, i := range idxs {
			m.rows[i].TeamKey = key
		}
	}
}

func (m *memStore) MatchesWithTeamKeys(ctx context.Context) ([]models.MatchSummary, error) {
	seen := make(map[int64]bool)
	var out []models.MatchSummary
	for _, r := range m.rows {
		if r.TeamKey == "" || seen[r.MatchID] {
			continue
		}
		seen[r.MatchID] = true
		out = append(out, models.MatchSummary{MatchID: r.MatchID, TeamKey: r.TeamKey, StartGameTime: r.StartGameTime})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartGameTime < out[j].StartGameTime })
	return out, nil
}

func (m *memStore) PlayerRow(ctx context.Context, matchID, profileID int64) (models.MatchRecord, bool, error) {
	for _, r := range m.rows {
		if r.MatchID == matchID && r.ProfileID == profileID {
			return r, true, nil
		}
	}
	return models.MatchRecord{}, false, nil
}

func (m *memStore) PlayerRows(ctx context.Context, profileID, after int64) ([]models.MatchRecord, error) {
	var out []models.MatchRecord
	for _, r := range m.rows {
		if r.ProfileID == profileID && r.StartGameTime > after {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartGameTime != out[j].StartGameTime {
			return out[i].StartGameTime < out[j].StartGameTime
		}
		return out[i].MatchID < out[j].MatchID
	})
	return out, nil
}

func (m *memStore) RowsByTeamKey(ctx context.Context, teamKey string, profileID int64) ([]models.MatchRecord, error) {
	var out []models.MatchRecord
	for _, r := range m.rows {
		if r.TeamKey == teamKey && r.ProfileID == profileID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) TopMaps(ctx context.Context, prefix string, limit int) ([]models.MapCount, error) {
	counts := make(map[string]int)
	for _, r := range m.rows {
		if r.MapName != "" && strings.HasPrefix(r.MapName, prefix) {
			counts[r.MapName]++
		}
	}
	out := make([]models.MapCount, 0, len(counts))
	for name, c := range counts {
		out = append(out, models.MapCount{MapName: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].MapName < out[j].MapName
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) TeamKeyFrequencies(ctx context.Context) ([]models.MatchupCount, error) {
	perKey := make(map[string]map[int64]bool)
	for _, r := range m.rows {
		if r.TeamKey == "" {
			continue
		}
		if perKey[r.TeamKey] == nil {
			perKey[r.TeamKey] = make(map[int64]bool)
		}
		perKey[r.TeamKey][r.MatchID] = true
	}
	out := make([]models.MatchupCount, 0, len(perKey))
	for key, matches := range perKey {
		out = append(out, models.MatchupCount{TeamKey: key, Count: len(matches)})
	}
	return out, nil
}

func (m *memStore) Rating(ctx context.Context, profileID int64) (models.PlayerRating, error) {
	if r, ok := m.ratings[profileID]; ok {
		return r, nil
	}
	return models.PlayerRating{ProfileID: profileID, Rating: m.defRate}, nil
}

func (m *memStore) PutRating(ctx context.Context, profileID int64, rating float64, updatedAt int64) error {
	m.ratings[profileID] = models.PlayerRating{ProfileID: profileID, Rating: rating, LastUpdated: updatedAt}
	return nil
}

func (m *memStore) ResetAllRatings(ctx context.Context, rating float64) error {
	for id := range m.ratings {
		m.ratings[id] = models.PlayerRating{ProfileID: id, Rating: rating}
	}
	return nil
}

func (m *memStore) Ratings(ctx context.Context, profileIDs []int64) ([]models.PlayerRating, error) {
	out := make([]models.PlayerRating, 0, len(profileIDs))
	for _, id := range profileIDs {
		r, _ := m.Rating(ctx, id)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return out, nil
}

// row is a shorthand constructor for test fixtures.
func row(matchID, profileID int64, start int64, team int, win bool) models.MatchRecord {
	return models.MatchRecord{
		MatchID:       matchID,
		ProfileID:     profileID,
		StartGameTime: start,
		Team:          team,
		Win:           win,
	}
}

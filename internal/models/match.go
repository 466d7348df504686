package models

import "encoding/json"

// Ingest disqualification rules. Matches carrying the automatch description,
// an aborted result code, or a duration under the minimum are dropped before
// they ever reach the store.
const (
	DescriptionAutomatch = "AUTOMATCH"
	ResultTypeAborted    = 4
	MinMatchDuration     = 300
)

// RawMatch is one row of the upstream profile-match feed: a single player's
// view of a single match. The full payload travels with the record so team
// assignment and any later-promoted fields can be re-derived after the fact.
type RawMatch struct {
	MatchID       int64  `json:"match_id"`
	ProfileID     int64  `json:"profile_id"`
	Description   string `json:"description"`
	StartGameTime int64  `json:"startgametime"`
	Win           bool   `json:"win"`
	Team          int    `json:"team"`
	God           string `json:"god"`
	MapName       string `json:"mapname"`
	ResultType    int    `json:"resulttype"`
	Duration      int64  `json:"duration"`

	// RawData carries the original, untouched source row. The typed fields
	// above only cover what the pipeline promotes; unknown upstream fields
	// survive here and nowhere else.
	RawData json.RawMessage `json:"-"`
}

// Disqualified reports whether the row must be excluded at ingest time.
func (m RawMatch) Disqualified() bool {
	return m.Description == DescriptionAutomatch ||
		m.ResultType == ResultTypeAborted ||
		m.Duration < MinMatchDuration
}

// Record converts the feed row into a storable MatchRecord, promoting the
// frequently-read fields to columns and keeping the original payload as the
// audit copy. A re-marshal of the typed fields stands in only when no source
// payload was captured. The team key stays empty until the grouping resolver
// runs.
func (m RawMatch) Record() MatchRecord {
	raw := m.RawData
	if raw == nil {
		raw, _ = json.Marshal(m)
	}
	return MatchRecord{
		MatchID:       m.MatchID,
		ProfileID:     m.ProfileID,
		Description:   m.Description,
		StartGameTime: m.StartGameTime,
		Win:           m.Win,
		Team:          m.Team,
		God:           m.God,
		MapName:       m.MapName,
		RawData:       raw,
	}
}

// MatchRecord is one stored (match_id, profile_id) row. Insertion is
// idempotent on that pair; duplicates are silently dropped, never overwritten.
type MatchRecord struct {
	MatchID       int64           `json:"match_id"`
	ProfileID     int64           `json:"profile_id"`
	Description   string          `json:"description"`
	StartGameTime int64           `json:"startgametime"`
	Win           bool            `json:"win"`
	Team          int             `json:"team"`
	God           string          `json:"god,omitempty"`
	MapName       string          `json:"mapname,omitempty"`
	RawData       json.RawMessage `json:"-"`
	TeamKey       string          `json:"team_match_id,omitempty"`
}

// MatchSummary is the per-match view consumed by the rating ledger: one entry
// per distinct match holding a team key, in replay order.
type MatchSummary struct {
	MatchID       int64
	TeamKey       string
	StartGameTime int64
}

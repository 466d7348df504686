package models

// PairRecord is a win/total tally against or alongside one other player.
type PairRecord struct {
	Wins  int `json:"wins"`
	Total int `json:"total"`
}

// PlayerBreakdown is the partner/rival aggregation result: per-player tallies
// plus the grand total of rows considered (rows with corrupted team keys are
// excluded from Total).
type PlayerBreakdown struct {
	Players map[int64]PairRecord `json:"players"`
	Total   int                  `json:"total"`
}

// UsageStat is a god or map usage line with its win rate over the window.
type UsageStat struct {
	Name           string  `json:"name"`
	TotalGames     int     `json:"total_games"`
	WinratePercent float64 `json:"winrate_percent"`
}

// MapCount is a map frequency line for global stats.
type MapCount struct {
	MapName string `json:"mapname"`
	Count   int    `json:"count"`
}

// MatchupCount is a team-matchup frequency line for global stats.
type MatchupCount struct {
	TeamKey string `json:"team_match_id"`
	Count   int    `json:"count"`
}

// GlobalStats is the dashboard payload: most-played ranked maps, most-played
// team matchups and the full roster rating leaderboard.
type GlobalStats struct {
	Maps     []MapCount     `json:"maps"`
	Matchups []MatchupCount `json:"matchups"`
	Elo      []PlayerRating `json:"elo"`
}

// MatchupSide is one half of a prediction result.
type MatchupSide struct {
	Wins        int     `json:"wins"`
	Probability float64 `json:"probability"`
}

// MatchupPrediction pairs the calibrated win probabilities with the literal
// historical tally between exactly these two sides.
type MatchupPrediction struct {
	Team1 MatchupSide `json:"team1"`
	Team2 MatchupSide `json:"team2"`
}

package models

// Tournament scopes a set of external match ids under a name. Pure
// pass-through entity; it carries no analytics of its own.
type Tournament struct {
	TournamentID int64  `json:"tournament_id"`
	Name         string `json:"name"`
	IsOpen       bool   `json:"is_open"`
}

// TournamentMatch links a stored match to a tournament.
type TournamentMatch struct {
	TournamentID int64 `json:"tournament_id"`
	MatchID      int64 `json:"match_id"`
}

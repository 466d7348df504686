package models

// MatchupRequest is the predictor input: two arbitrary, possibly uneven-sized
// id lists. Empty teams are an input-contract violation and rejected with 400.
type MatchupRequest struct {
	Team1 []int64 `json:"team1" validate:"required,min=1"`
	Team2 []int64 `json:"team2" validate:"required,min=1"`
}

// CreateTournamentRequest creates a named open tournament.
type CreateTournamentRequest struct {
	Name string `json:"name" validate:"required"`
}

// AddMatchRequest links an existing match to a tournament.
type AddMatchRequest struct {
	MatchID int64 `json:"match_id" validate:"required"`
}

// PlannerRequest forwards a rendered team-planner image to the Discord
// webhook. The image travels base64-encoded.
type PlannerRequest struct {
	ImageBase64 string `json:"imageBase64" validate:"required"`
	Message     string `json:"message"`
}

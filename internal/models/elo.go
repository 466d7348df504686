package models

// EloDefaultRating is the rating assigned to a player on first reference.
const EloDefaultRating = 1500

// PlayerRating is one row of the rating ledger. LastUpdated is a processing
// watermark (unix seconds of the last ledger write), not a domain timestamp;
// the ledger compares it against match start times to decide whether a match
// is already reflected in current ratings.
type PlayerRating struct {
	ProfileID   int64   `json:"profile_id"`
	Rating      float64 `json:"elo"`
	LastUpdated int64   `json:"-"`
}

// EloParams are the tunables of the rating system.
type EloParams struct {
	DefaultRating float64
	KFactor       float64
	Divisor       float64
	// SizeBonusPerPlayer is added to the first side's mean rating per player
	// of numeric advantage before computing the expectation.
	SizeBonusPerPlayer float64
	// HistSizeMultiplierBase scales the predictor's historical signal by
	// base^(sizeDiff) for uneven matchups.
	HistSizeMultiplierBase float64
}

// DefaultEloParams returns the production defaults.
func DefaultEloParams() EloParams {
	return EloParams{
		DefaultRating:          EloDefaultRating,
		KFactor:                32,
		Divisor:                400,
		SizeBonusPerPlayer:     250,
		HistSizeMultiplierBase: 1.2,
	}
}

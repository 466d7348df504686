package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TeamKeySeparator joins the two side segments of a team match key.
const TeamKeySeparator = " vs "

// TeamSides is the canonical identity of a team matchup: two opposing sets of
// profile ids. SideA is always the lexicographically smaller side (comparing
// the comma-joined forms of the ascending-sorted id lists), so the same pair of
// teams always produces the same TeamSides regardless of how the source API
// labeled team 0 and team 1. The string key is a derived serialization of this
// struct, never the other way around.
type TeamSides struct {
	SideA []int64
	SideB []int64
}

// NewTeamSides normalizes two raw id lists into canonical form.
func NewTeamSides(t1, t2 []int64) TeamSides {
	a := append([]int64(nil), t1...)
	b := append([]int64(nil), t2...)
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
	sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })

	if joinIDs(b) < joinIDs(a) {
		a, b = b, a
	}
	return TeamSides{SideA: a, SideB: b}
}

// Key serializes the sides into the stored team match key, e.g. "10,20 vs 30".
func (s TeamSides) Key() string {
	return joinIDs(s.SideA) + TeamKeySeparator + joinIDs(s.SideB)
}

// Corrupted reports whether either side is empty. Corrupted keys are stored so
// the offending match stays visible for re-derivation, but every consumer must
// skip them.
func (s TeamSides) Corrupted() bool {
	return len(s.SideA) == 0 || len(s.SideB) == 0
}

// Players returns all participant ids across both sides.
func (s TeamSides) Players() []int64 {
	out := make([]int64, 0, len(s.SideA)+len(s.SideB))
	out = append(out, s.SideA...)
	out = append(out, s.SideB...)
	return out
}

// SideOf splits the sides into the team containing id and the opposing team.
// ok is false when id is on neither side.
func (s TeamSides) SideOf(id int64) (own, opposing []int64, ok bool) {
	for _, p := range s.SideA {
		if p == id {
			return s.SideA, s.SideB, true
		}
	}
	for _, p := range s.SideB {
		if p == id {
			return s.SideB, s.SideA, true
		}
	}
	return nil, nil, false
}

// ParseTeamKey parses a stored team match key back into its two sides.
// It fails on keys missing the separator, on empty segments, and on segments
// containing non-numeric ids; callers treat a failure as a data-quality
// anomaly, not a fatal error.
func ParseTeamKey(key string) (TeamSides, error) {
	parts := strings.Split(key, TeamKeySeparator)
	if len(parts) != 2 {
		return TeamSides{}, fmt.Errorf("team key %q: missing %q separator", key, TeamKeySeparator)
	}

	sides := make([][]int64, 2)
	for i, seg := range parts {
		if seg == "" {
			return TeamSides{}, fmt.Errorf("team key %q: empty side segment", key)
		}
		for _, tok := range strings.Split(seg, ",") {
			id, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return TeamSides{}, fmt.Errorf("team key %q: bad id %q", key, tok)
			}
			sides[i] = append(sides[i], id)
		}
	}

	return TeamSides{SideA: sides[0], SideB: sides[1]}, nil
}

// SidesFromParticipants reconstructs the two sides of a match from its
// participant rows using the promoted team assignment (0 or 1). Rows with any
// other assignment are data-quality anomalies: they are counted and reported
// but contribute to neither side. The caller decides whether the resulting key
// (possibly corrupted when a side ends up empty) is usable.
func SidesFromParticipants(rows []MatchRecord) (sides TeamSides, anomalies int) {
	var t0, t1 []int64
	for _, r := range rows {
		switch r.Team {
		case 0:
			t0 = append(t0, r.ProfileID)
		case 1:
			t1 = append(t1, r.ProfileID)
		default:
			anomalies++
		}
	}
	return NewTeamSides(t0, t1), anomalies
}

func joinIDs(ids []int64) string {
	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(id, 10))
	}
	return sb.String()
}

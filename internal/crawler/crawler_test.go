package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/devapeu/aomstats-crawler/internal/models"
)

// historyServer serves a fixed match history two rows per page, newest first,
// honoring the before cursor the way the real API does.
func historyServer(t *testing.T, rows map[int64][]models.RawMatch) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var profileID int64
		if _, err := fmt.Sscanf(r.URL.Path, "/api/profile/%d/matches", &profileID); err != nil {
			http.NotFound(w, r)
			return
		}
		before, err := strconv.ParseInt(r.URL.Query().Get("before"), 10, 64)
		if err != nil {
			http.Error(w, "bad before", http.StatusBadRequest)
			return
		}

		var page []models.RawMatch
		for _, m := range rows[profileID] {
			if m.StartGameTime <= before {
				page = append(page, m)
			}
			if len(page) == 2 {
				break
			}
		}
		json.NewEncoder(w).Encode(page)
	}))
}

func historyRows(profileID int64, startTimes ...int64) []models.RawMatch {
	out := make([]models.RawMatch, 0, len(startTimes))
	for _, ts := range startTimes {
		out = append(out, models.RawMatch{
			MatchID:       ts, // distinct per row, value irrelevant
			ProfileID:     profileID,
			Description:   "Ranked",
			StartGameTime: ts,
			Duration:      900,
		})
	}
	return out
}

func TestFetchSincePaginates(t *testing.T) {
	srv := historyServer(t, map[int64][]models.RawMatch{
		42: historyRows(42, 1000, 900, 800, 700, 600),
	})
	defer srv.Close()

	c := NewClient(srv.URL, 0, zap.NewNop())
	got, err := c.FetchSince(context.Background(), 42, 0)
	if err != nil {
		t.Fatalf("FetchSince() error = %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("FetchSince() returned %d rows, want 5", len(got))
	}
	if got[0].StartGameTime != 1000 || got[4].StartGameTime != 600 {
		t.Errorf("rows out of order: first=%d last=%d", got[0].StartGameTime, got[4].StartGameTime)
	}
}

func TestFetchSinceStopsAtBeforeLimit(t *testing.T) {
	srv := historyServer(t, map[int64][]models.RawMatch{
		42: historyRows(42, 1000, 900, 800, 700, 600),
	})
	defer srv.Close()

	c := NewClient(srv.URL, 0, zap.NewNop())
	got, err := c.FetchSince(context.Background(), 42, 1500)
	if err != nil {
		t.Fatalf("FetchSince() error = %v", err)
	}
	// The whole first page falls before the watermark, so the crawl stops
	// after it.
	if len(got) != 2 {
		t.Errorf("FetchSince() returned %d rows, want 2", len(got))
	}
}

func TestFetchSinceRetriesTransientFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode([]models.RawMatch{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, zap.NewNop())
	if _, err := c.FetchSince(context.Background(), 42, 0); err != nil {
		t.Fatalf("FetchSince() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("server saw %d calls, want 2", calls)
	}
}

func TestFetchSinceKeepsSourcePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"match_id":1,"profile_id":42,"description":"Ranked",`+
			`"startgametime":900,"win":true,"team":0,"god":"Zeus","mapname":"rm_oasis",`+
			`"resulttype":0,"duration":900,"civilization_rating":1710,"winning_team":1}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, zap.NewNop())
	got, err := c.FetchSince(context.Background(), 42, 1000)
	if err != nil {
		t.Fatalf("FetchSince() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("FetchSince() returned %d rows, want 1", len(got))
	}
	if got[0].God != "Zeus" || !got[0].Win {
		t.Errorf("typed fields not decoded: %+v", got[0])
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(got[0].RawData, &payload); err != nil {
		t.Fatalf("RawData is not valid JSON: %v", err)
	}
	if payload["civilization_rating"] != float64(1710) {
		t.Errorf("unpromoted field civilization_rating missing from RawData: %s", got[0].RawData)
	}
	if payload["winning_team"] != float64(1) {
		t.Errorf("unpromoted field winning_team missing from RawData: %s", got[0].RawData)
	}
}

func TestFetchPageFailsFast(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, zap.NewNop())
	c.retryBackoff = 20 * time.Millisecond

	start := time.Now()
	_, err := c.FetchSince(context.Background(), 42, 0)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("FetchSince() expected error after exhausted retries")
	}
	if calls != maxPageAttempts {
		t.Errorf("server saw %d calls, want %d", calls, maxPageAttempts)
	}
	// Two waits between three attempts (20ms + 40ms); a wait after the last
	// failure would add another 80ms.
	if elapsed >= 100*time.Millisecond {
		t.Errorf("FetchSince() took %v, want return without a final backoff wait", elapsed)
	}
}

func TestFetchAllDeduplicates(t *testing.T) {
	shared := models.RawMatch{MatchID: 5, ProfileID: 42, Description: "Ranked", StartGameTime: 500, Duration: 900}
	srv := historyServer(t, map[int64][]models.RawMatch{
		42: {shared, shared},
		7:  historyRows(7, 400),
	})
	defer srv.Close()

	c := NewClient(srv.URL, 0, zap.NewNop())
	got, err := c.FetchAll(context.Background(), []int64{42, 7}, nil)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("FetchAll() returned %d rows, want 2 after dedupe", len(got))
	}
}

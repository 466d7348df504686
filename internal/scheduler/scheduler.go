package scheduler

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/devapeu/aomstats-crawler/internal/logic"
	"github.com/devapeu/aomstats-crawler/internal/models"
)

const (
	// dailySyncSpec runs the roster sync every morning.
	dailySyncSpec = "0 9 * * *"
	// weeklyExportSpec runs the CSV export on Sunday mornings.
	weeklyExportSpec = "30 9 * * 0"

	// exportsKept caps how many export files survive pruning.
	exportsKept = 7

	jobTimeout = 30 * time.Minute
)

// Prometheus metrics
var (
	syncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aomstats_sync_runs_total",
		Help: "Total number of roster sync runs by outcome",
	}, []string{"outcome"})

	rowsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aomstats_rows_ingested_total",
		Help: "Total number of match rows inserted by sync runs",
	})

	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aomstats_sync_duration_seconds",
		Help:    "Duration of roster sync runs",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
)

// MatchIngestor is the store surface the sync jobs write through.
type MatchIngestor interface {
	IngestBatch(ctx context.Context, raws []models.RawMatch) (int, error)
	LatestStartTime(ctx context.Context, profileID int64) (int64, error)
	AllRows(ctx context.Context) ([]models.MatchRecord, error)
}

// Fetcher crawls the upstream match feed.
type Fetcher interface {
	FetchSince(ctx context.Context, profileID, beforeLimit int64) ([]models.RawMatch, error)
	FetchAll(ctx context.Context, profileIDs []int64, since map[int64]int64) ([]models.RawMatch, error)
}

// Notifier reports sync outcomes. May be nil when no webhook is configured.
type Notifier interface {
	SendSyncReport(ctx context.Context, runID string, inserted, players int, took time.Duration, runErr error) error
}

// Syncer pulls fresh match history for the roster, ingests it and advances
// the rating ledger. The ledger's read-modify-write has no isolation of its
// own, so mu serializes every ingest+advance run regardless of whether the
// cron job, the sync endpoint or an on-demand player fetch triggered it.
type Syncer struct {
	store    MatchIngestor
	fetcher  Fetcher
	elo      logic.EloService
	notifier Notifier
	roster   map[int64]string
	logger   *zap.SugaredLogger
	mu       sync.Mutex
}

func NewSyncer(store MatchIngestor, fetcher Fetcher, elo logic.EloService, notifier Notifier, roster map[int64]string, logger *zap.Logger) *Syncer {
	return &Syncer{
		store:    store,
		fetcher:  fetcher,
		elo:      elo,
		notifier: notifier,
		roster:   roster,
		logger:   logger.Sugar(),
	}
}

// SyncOnce runs one full roster sync: incremental crawl per player, one
// atomic ingest of the deduplicated rows, then a ledger replay.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	runID := uuid.NewString()
	start := time.Now()

	inserted, err := s.sync(ctx)

	took := time.Since(start)
	syncDuration.Observe(took.Seconds())
	if err != nil {
		syncRuns.WithLabelValues("error").Inc()
		s.logger.Errorw("Roster sync failed", "run_id", runID, "error", err)
	} else {
		syncRuns.WithLabelValues("ok").Inc()
		rowsIngested.Add(float64(inserted))
		s.logger.Infow("Roster sync finished",
			"run_id", runID, "inserted", inserted, "players", len(s.roster), "took", took)
	}

	if s.notifier != nil {
		if nerr := s.notifier.SendSyncReport(ctx, runID, inserted, len(s.roster), took, err); nerr != nil {
			s.logger.Warnw("Failed to send sync report", "run_id", runID, "error", nerr)
		}
	}
	return err
}

func (s *Syncer) sync(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.roster))
	since := make(map[int64]int64, len(s.roster))
	for id := range s.roster {
		latest, err := s.store.LatestStartTime(ctx, id)
		if err != nil {
			return 0, err
		}
		ids = append(ids, id)
		since[id] = latest
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows, err := s.fetcher.FetchAll(ctx, ids, since)
	if err != nil {
		return 0, err
	}

	inserted, err := s.store.IngestBatch(ctx, rows)
	if err != nil {
		return 0, err
	}

	if err := s.elo.Advance(ctx, false); err != nil {
		return inserted, fmt.Errorf("advance ratings: %w", err)
	}
	return inserted, nil
}

// SyncPlayer crawls and ingests one player's full unseen history, then
// advances the ledger. Backs the on-demand fetch endpoint.
func (s *Syncer) SyncPlayer(ctx context.Context, profileID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest, err := s.store.LatestStartTime(ctx, profileID)
	if err != nil {
		return 0, err
	}
	rows, err := s.fetcher.FetchSince(ctx, profileID, latest)
	if err != nil {
		return 0, err
	}
	inserted, err := s.store.IngestBatch(ctx, rows)
	if err != nil {
		return 0, err
	}
	rowsIngested.Add(float64(inserted))

	if err := s.elo.Advance(ctx, false); err != nil {
		return inserted, fmt.Errorf("advance ratings: %w", err)
	}
	return inserted, nil
}

// Exporter writes per-match winner/loser CSV snapshots, keeping the most
// recent few files.
type Exporter struct {
	store  MatchIngestor
	dir    string
	keep   int
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewExporter(store MatchIngestor, dir string, logger *zap.Logger) *Exporter {
	return &Exporter{store: store, dir: dir, keep: exportsKept, logger: logger.Sugar(), now: time.Now}
}

// ExportOnce writes one CSV snapshot and prunes old ones. Returns the path of
// the file written.
func (e *Exporter) ExportOnce(ctx context.Context) (string, error) {
	rows, err := e.store.AllRows(ctx)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(e.dir, fmt.Sprintf("matches-%s.csv", e.now().UTC().Format("20060102-150405")))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"match_id", "startgametime", "mapname", "team_match_id", "winners", "losers"}); err != nil {
		return "", err
	}
	for _, m := range exportRows(rows) {
		if err := w.Write(m); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}

	e.prune()
	e.logger.Infow("Export written", "path", path, "matches", len(rows))
	return path, nil
}

// exportRows folds participant rows into one CSV line per match, winners and
// losers as comma-joined id lists, ordered by start time.
func exportRows(rows []models.MatchRecord) [][]string {
	type matchAgg struct {
		start   int64
		mapName string
		teamKey string
		winners []string
		losers  []string
	}

	byMatch := make(map[int64]*matchAgg)
	var order []int64
	for _, r := range rows {
		agg := byMatch[r.MatchID]
		if agg == nil {
			agg = &matchAgg{start: r.StartGameTime, mapName: r.MapName, teamKey: r.TeamKey}
			byMatch[r.MatchID] = agg
			order = append(order, r.MatchID)
		}
		id := strconv.FormatInt(r.ProfileID, 10)
		if r.Win {
			agg.winners = append(agg.winners, id)
		} else {
			agg.losers = append(agg.losers, id)
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return byMatch[order[i]].start < byMatch[order[j]].start })

	out := make([][]string, 0, len(order))
	for _, id := range order {
		agg := byMatch[id]
		sort.Strings(agg.winners)
		sort.Strings(agg.losers)
		out = append(out, []string{
			strconv.FormatInt(id, 10),
			strconv.FormatInt(agg.start, 10),
			agg.mapName,
			agg.teamKey,
			strings.Join(agg.winners, ","),
			strings.Join(agg.losers, ","),
		})
	}
	return out
}

// prune deletes all but the newest kept export files.
func (e *Exporter) prune() {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		e.logger.Warnw("Failed to list export dir", "dir", e.dir, "error", err)
		return
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "matches-") && strings.HasSuffix(name, ".csv") {
			names = append(names, name)
		}
	}
	// Timestamped names sort chronologically.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, name := range names[min(len(names), e.keep):] {
		if err := os.Remove(filepath.Join(e.dir, name)); err != nil {
			e.logger.Warnw("Failed to delete old export", "file", name, "error", err)
		} else {
			e.logger.Infow("Deleted old export", "file", name)
		}
	}
}

// Scheduler owns the cron jobs around the syncer and exporter.
type Scheduler struct {
	cron     *cron.Cron
	syncer   *Syncer
	exporter *Exporter
	logger   *zap.SugaredLogger
}

func NewScheduler(syncer *Syncer, exporter *Exporter, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		syncer:   syncer,
		exporter: exporter,
		logger:   logger.Sugar(),
	}
}

// Start registers the daily sync and weekly export jobs and starts the cron
// loop in the background.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(dailySyncSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := s.syncer.SyncOnce(ctx); err != nil {
			s.logger.Errorw("Scheduled sync failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule sync: %w", err)
	}

	if _, err := s.cron.AddFunc(weeklyExportSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := s.exporter.ExportOnce(ctx); err != nil {
			s.logger.Errorw("Scheduled export failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule export: %w", err)
	}

	s.cron.Start()
	s.logger.Infow("Scheduler started", "sync", dailySyncSpec, "export", weeklyExportSpec)
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/devapeu/aomstats-crawler/internal/logic"
	"github.com/devapeu/aomstats-crawler/internal/models"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

// TournamentStore is the tournament pass-through surface of the store.
type TournamentStore interface {
	CreateTournament(ctx context.Context, name string) (models.Tournament, error)
	Tournaments(ctx context.Context) ([]models.Tournament, error)
	AddTournamentMatch(ctx context.Context, tournamentID, matchID int64) error
	TournamentMatches(ctx context.Context, tournamentID int64) ([]models.TournamentMatch, error)
}

// Syncer triggers crawls from the HTTP surface.
type Syncer interface {
	SyncOnce(ctx context.Context) error
	SyncPlayer(ctx context.Context, profileID int64) (int, error)
}

// PlannerSender forwards planner images to the Discord webhook.
type PlannerSender interface {
	SendPlannerImage(ctx context.Context, image []byte, message string) error
}

// Pinger reports database reachability for the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB     Pinger
	Redis  *redis.Client
	Logger *zap.Logger
	APIKey string
	Roster map[int64]string
	// Services
	Elo         logic.EloService
	Stats       logic.StatsService
	Matchup     logic.MatchupService
	Global      logic.GlobalService
	Tournaments TournamentStore
	Syncer      Syncer
	Planner     PlannerSender
}

type Handler struct {
	db          Pinger
	redis       *redis.Client
	logger      *zap.SugaredLogger
	validator   *validator.Validate
	apiKey      string
	roster      map[int64]string
	elo         logic.EloService
	stats       logic.StatsService
	matchup     logic.MatchupService
	global      logic.GlobalService
	tournaments TournamentStore
	syncer      Syncer
	planner     PlannerSender
}

func New(cfg Config) *Handler {
	return &Handler{
		db:          cfg.DB,
		redis:       cfg.Redis,
		logger:      cfg.Logger.Sugar(),
		validator:   validator.New(),
		apiKey:      cfg.APIKey,
		roster:      cfg.Roster,
		elo:         cfg.Elo,
		stats:       cfg.Stats,
		matchup:     cfg.Matchup,
		global:      cfg.Global,
		tournaments: cfg.Tournaments,
		syncer:      cfg.Syncer,
		planner:     cfg.Planner,
	}
}

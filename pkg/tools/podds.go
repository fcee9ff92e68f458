package tools

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/protocol"
	"github.com/richard-senior/podds/pkg/store"
	"github.com/richard-senior/podds/pkg/teamdata"
)

// HandlerFunc executes one tool call.
type HandlerFunc func(ctx context.Context, params map[string]any) (any, error)

// Registration pairs a tool definition with its handler.
type Registration struct {
	Tool    protocol.Tool
	Handler HandlerFunc
}

// ErrNoStore is returned by tools that need the prediction history when no
// database is configured.
var ErrNoStore = errors.New("no database configured (set db_path)")

// Service holds everything the podds tools work on.
type Service struct {
	cfg       *podds.PoddsConfig
	predictor *podds.Predictor
	store     *store.Store
	teams     atomic.Pointer[teamdata.Table]
}

// NewService wires the tools. db and teams may be nil.
func NewService(cfg *podds.PoddsConfig, predictor *podds.Predictor, db *store.Store, teams *teamdata.Table) *Service {
	s := &Service{cfg: cfg, predictor: predictor, store: db}
	if teams == nil {
		teams = teamdata.Empty()
	}
	s.SetTeams(teams)
	return s
}

// SetTeams swaps the team table and moves the shrinkage target to its league mean.
func (s *Service) SetTeams(t *teamdata.Table) {
	s.teams.Store(t)
	if t.Len() > 0 {
		s.predictor.SetPriors(t.GlobalPriors(s.cfg))
	}
}

func (s *Service) Teams() *teamdata.Table {
	return s.teams.Load()
}

// Registrations lists every podds tool.
func (s *Service) Registrations() []Registration {
	return []Registration{
		{PredictTool(), s.HandlePredict},
		{RecordResultTool(), s.HandleRecordResult},
		{AccuracyTool(), s.HandleAccuracy},
		{CacheTool(), s.HandleCache},
		{TeamsTool(), s.HandleTeams},
	}
}

var teamStatsDescription = `Inline statistics, used instead of the team table. Fields: avg_gf, avg_ga, std_gf, std_ga (goals per match),
matches (how many matches the averages cover, drives shrinkage), recent_gf and recent_ga (per match goal counts, most recent last).`

func PredictTool() protocol.Tool {
	return protocol.Tool{
		Name: "podds_predict",
		Description: `
		Predicts a football match by Monte Carlo simulation.
		Team rates are estimated from each side's goal statistics, then thousands of matches are simulated minute by minute.
		Returns win/draw/loss percentages with Monte Carlo standard errors, expected goals, the most likely scorelines,
		half time scorelines, over 1.5 / 2.5 goals and both teams to score percentages.
		Teams are looked up by name in the loaded team table unless inline stats are given.
		`,
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"home":         {Type: "string", Description: "Home team name"},
				"away":         {Type: "string", Description: "Away team name"},
				"home_stats":   {Type: "object", Description: teamStatsDescription},
				"away_stats":   {Type: "object", Description: teamStatsDescription},
				"fidelity":     {Type: "string", Description: "Posterior fit effort, quick (default) or full", Enum: []string{"quick", "full"}},
				"simulations":  {Type: "number", Description: "Number of simulated matches (default 10200)"},
				"seed":         {Type: "number", Description: "Random seed; the same inputs and seed give the same prediction"},
				"no_shrinkage": {Type: "boolean", Description: "Use the team statistics as given instead of blending them toward the league mean"},
				"detail":       {Type: "boolean", Description: "Include the full scoreline table and per minute goal timelines"},
			},
			Required: []string{"home", "away"},
		},
	}
}

// resolveTeam prefers inline stats and falls back to the team table.
func (s *Service) resolveTeam(params map[string]any, nameKey, statsKey string) (*podds.TeamStats, string, error) {
	name, err := stringParam(params, nameKey)
	if err != nil {
		return nil, "", err
	}
	var ts podds.TeamStats
	found, err := objectParam(params, statsKey, &ts)
	if err != nil {
		return nil, "", err
	}
	if found {
		if ts.Name == "" {
			ts.Name = name
		}
		return &ts, name, nil
	}
	if name == "" {
		return nil, "", fmt.Errorf("%s or %s is required", nameKey, statsKey)
	}
	ts, err = s.Teams().Stats(name)
	if err == nil {
		return &ts, ts.Name, nil
	}
	if s.store != nil && errors.Is(err, teamdata.ErrUnknownTeam) {
		h, herr := s.store.TeamHistory(name, s.cfg.HistoryMatches, s.cfg)
		if herr == nil {
			logger.Debug("Using match history for", name, h.Played)
			return &h.Stats, h.Stats.Name, nil
		}
		if !errors.Is(herr, store.ErrNotFound) {
			return nil, "", herr
		}
	}
	return nil, "", err
}

// predictionView trims the bulky parts of a prediction unless asked for.
type predictionView struct {
	*podds.Prediction
	Saved bool `json:"saved"`
}

func (s *Service) HandlePredict(ctx context.Context, params map[string]any) (any, error) {
	logger.Info("Handling podds_predict tool invocation")

	home, homeName, err := s.resolveTeam(params, "home", "home_stats")
	if err != nil {
		return nil, err
	}
	away, awayName, err := s.resolveTeam(params, "away", "away_stats")
	if err != nil {
		return nil, err
	}
	req := podds.PredictionRequest{Home: home, Away: away, HomeLabel: homeName, AwayLabel: awayName}
	if req.Fidelity, err = stringParam(params, "fidelity"); err != nil {
		return nil, err
	}
	if n, ok, err := intParam(params, "simulations"); err != nil {
		return nil, err
	} else if ok {
		if n < 1 {
			return nil, fmt.Errorf("%w: got %d", podds.ErrInvalidSimulationCount, n)
		}
		req.Simulations = n
	}
	if seed, ok, err := intParam(params, "seed"); err != nil {
		return nil, err
	} else if ok {
		if seed < 0 {
			return nil, fmt.Errorf("seed must not be negative, got: %d", seed)
		}
		u := uint64(seed)
		req.Seed = &u
	}
	if req.NoShrinkage, err = boolParam(params, "no_shrinkage", false); err != nil {
		return nil, err
	}
	detail, err := boolParam(params, "detail", false)
	if err != nil {
		return nil, err
	}

	pred, err := s.predictor.Predict(ctx, req)
	if err != nil {
		return nil, err
	}

	view := predictionView{Prediction: pred}
	if s.store != nil {
		if err := s.store.SavePrediction(pred); err != nil {
			logger.Warn("Failed to save prediction", err)
		} else {
			view.Saved = true
		}
	}
	if !detail {
		trimmed := *pred
		summary := *pred.Summary
		summary.Scorelines = nil
		summary.HomeTimeline = nil
		summary.AwayTimeline = nil
		trimmed.Summary = &summary
		view.Prediction = &trimmed
	}
	return view, nil
}

func RecordResultTool() protocol.Tool {
	return protocol.Tool{
		Name: "podds_record_result",
		Description: `
		Records the final score of a match.
		Give the prediction id returned by podds_predict to score that prediction, or home and away team names to record a match that was not predicted.
		Recorded matches build the statistics of teams missing from the team data.
		`,
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"id":         {Type: "string", Description: "The prediction id returned by podds_predict"},
				"home":       {Type: "string", Description: "Home team name, when there is no prediction id"},
				"away":       {Type: "string", Description: "Away team name, when there is no prediction id"},
				"home_goals": {Type: "number", Description: "Home team goals at full time"},
				"away_goals": {Type: "number", Description: "Away team goals at full time"},
				"home_ht":    {Type: "number", Description: "Home team goals at half time (optional)"},
				"away_ht":    {Type: "number", Description: "Away team goals at half time (optional)"},
				"season":     {Type: "string", Description: "Season label such as 2025/26 (optional)"},
			},
			Required: []string{"home_goals", "away_goals"},
		},
	}
}

func requiredGoals(params map[string]any, key string) (int, error) {
	n, ok, err := intParam(params, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative, got: %d", key, n)
	}
	return n, nil
}

func optionalGoals(params map[string]any, key string) (int, error) {
	n, ok, err := intParam(params, key)
	if err != nil || !ok {
		return -1, err
	}
	return n, nil
}

func (s *Service) HandleRecordResult(ctx context.Context, params map[string]any) (any, error) {
	logger.Info("Handling podds_record_result tool invocation")
	if s.store == nil {
		return nil, ErrNoStore
	}
	id, err := stringParam(params, "id")
	if err != nil {
		return nil, err
	}
	homeGoals, err := requiredGoals(params, "home_goals")
	if err != nil {
		return nil, err
	}
	awayGoals, err := requiredGoals(params, "away_goals")
	if err != nil {
		return nil, err
	}
	match := &store.MatchRecord{HomeGoals: homeGoals, AwayGoals: awayGoals}
	if match.HomeHT, err = optionalGoals(params, "home_ht"); err != nil {
		return nil, err
	}
	if match.AwayHT, err = optionalGoals(params, "away_ht"); err != nil {
		return nil, err
	}
	if match.Season, err = stringParam(params, "season"); err != nil {
		return nil, err
	}

	if id == "" {
		if match.HomeTeam, err = stringParam(params, "home"); err != nil {
			return nil, err
		}
		if match.AwayTeam, err = stringParam(params, "away"); err != nil {
			return nil, err
		}
		if match.HomeTeam == "" || match.AwayTeam == "" {
			return nil, fmt.Errorf("id, or both home and away, is required")
		}
		if err := s.store.SaveMatch(match); err != nil {
			return nil, err
		}
		return map[string]any{"match": match.ID, "score": match.ScoreString()}, nil
	}

	rec, err := s.store.RecordResult(id, homeGoals, awayGoals)
	if err != nil {
		return nil, err
	}
	match.ID = rec.ID
	match.HomeTeam = rec.HomeTeam
	match.AwayTeam = rec.AwayTeam
	match.Kickoff = rec.CreatedAt
	if err := s.store.SaveMatch(match); err != nil {
		logger.Warn("Failed to save match", err)
	}
	return podds.EvaluatePrediction(rec.Outcome()), nil
}

func AccuracyTool() protocol.Tool {
	return protocol.Tool{
		Name:        "podds_accuracy",
		Description: "Reports how accurate past predictions have been, over every prediction with a recorded result: result accuracy, exact score accuracy, goal errors and mean Brier score.",
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"recent": {Type: "number", Description: "Also list this many of the most recent predictions (default 0)"},
			},
			Required: []string{},
		},
	}
}

func (s *Service) HandleAccuracy(ctx context.Context, params map[string]any) (any, error) {
	logger.Info("Handling podds_accuracy tool invocation")
	if s.store == nil {
		return nil, ErrNoStore
	}
	outcomes, err := s.store.CompletedPredictions()
	if err != nil {
		return nil, err
	}
	result := map[string]any{
		"evaluated": len(outcomes),
		"aggregate": podds.EvaluateAll(outcomes),
	}
	if n, ok, err := intParam(params, "recent"); err != nil {
		return nil, err
	} else if ok && n > 0 {
		recs, err := s.store.RecentPredictions(n)
		if err != nil {
			return nil, err
		}
		recent := make([]podds.PredictionOutcome, len(recs))
		for i, r := range recs {
			recent[i] = r.Outcome()
		}
		result["recent"] = recent
	}
	return result, nil
}

func CacheTool() protocol.Tool {
	return protocol.Tool{
		Name:        "podds_cache",
		Description: "Inspects or clears the cache of fitted team rate posteriors.",
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"action": {Type: "string", Description: "stats (default) or clear", Enum: []string{"stats", "clear"}},
			},
			Required: []string{},
		},
	}
}

func (s *Service) HandleCache(ctx context.Context, params map[string]any) (any, error) {
	logger.Info("Handling podds_cache tool invocation")
	action, err := stringParam(params, "action")
	if err != nil {
		return nil, err
	}
	cache := s.predictor.Estimator().Cache()
	if cache == nil {
		return nil, fmt.Errorf("posterior cache is disabled")
	}
	switch action {
	case "", "stats":
	case "clear":
		if err := cache.Clear(); err != nil {
			return nil, err
		}
		logger.Info("Posterior cache cleared")
	default:
		return nil, fmt.Errorf("unknown action %q (expected stats or clear)", action)
	}
	result := map[string]any{
		"cache": cache.Stats(),
		"fits":  s.predictor.Estimator().FitCount(),
	}
	if s.store != nil {
		if n, err := s.store.PosteriorCount(); err == nil {
			result["stored"] = n
		}
	}
	return result, nil
}

func TeamsTool() protocol.Tool {
	return protocol.Tool{
		Name:        "podds_teams",
		Description: "Lists the teams podds_predict can look up by name, or returns one team's statistics and recorded match history. Also reports the league means predictions are shrunk toward.",
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"name": {Type: "string", Description: "Return statistics for this team only"},
			},
			Required: []string{},
		},
	}
}

func (s *Service) HandleTeams(ctx context.Context, params map[string]any) (any, error) {
	logger.Info("Handling podds_teams tool invocation")
	name, err := stringParam(params, "name")
	if err != nil {
		return nil, err
	}
	table := s.Teams()
	if name == "" {
		return map[string]any{
			"source": table.Source(),
			"teams":  table.Names(),
			"priors": s.predictor.Priors(),
		}, nil
	}

	result := map[string]any{}
	ts, err := table.Stats(name)
	if err == nil {
		result["stats"] = ts
	}
	if s.store != nil {
		h, herr := s.store.TeamHistory(name, s.cfg.HistoryMatches, s.cfg)
		if herr == nil {
			result["history"] = h
		} else if !errors.Is(herr, store.ErrNotFound) {
			return nil, herr
		}
	}
	if len(result) == 0 {
		return nil, err
	}
	return result, nil
}

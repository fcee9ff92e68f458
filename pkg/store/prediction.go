package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/richard-senior/podds/pkg/podds"
)

// PredictionRecord is a stored prediction plus, once known, the actual score.
// Actual goals are -1 until RecordResult is called.
type PredictionRecord struct {
	ID            string  `column:"id" dbtype:"TEXT NOT NULL" primary:"true"`
	HomeTeam      string  `column:"home_team" dbtype:"TEXT" index:"true"`
	AwayTeam      string  `column:"away_team" dbtype:"TEXT" index:"true"`
	Fidelity      string  `column:"fidelity" dbtype:"TEXT"`
	Seed          int64   `column:"seed" dbtype:"INTEGER"`
	Simulations   int     `column:"simulations" dbtype:"INTEGER"`
	HomeWinPct    float64 `column:"home_win_pct" dbtype:"REAL"`
	DrawPct       float64 `column:"draw_pct" dbtype:"REAL"`
	AwayWinPct    float64 `column:"away_win_pct" dbtype:"REAL"`
	HomeXG        float64 `column:"home_xg" dbtype:"REAL"`
	AwayXG        float64 `column:"away_xg" dbtype:"REAL"`
	PredictedHome int     `column:"predicted_home" dbtype:"INTEGER"`
	PredictedAway int     `column:"predicted_away" dbtype:"INTEGER"`
	ActualHome    int     `column:"actual_home" dbtype:"INTEGER DEFAULT -1"`
	ActualAway    int     `column:"actual_away" dbtype:"INTEGER DEFAULT -1"`
	CreatedAt     int64   `column:"created_at" dbtype:"INTEGER" index:"true"` // unix millis
	Detail        string  `column:"detail" dbtype:"TEXT"`                     // full prediction as JSON
}

func (r *PredictionRecord) GetTableName() string {
	return "prediction"
}

func (r *PredictionRecord) GetPrimaryKey() map[string]any {
	return map[string]any{"id": r.ID}
}

func (r *PredictionRecord) BeforeSave() error {
	if r.ID == "" {
		return errors.New("prediction id is empty")
	}
	return nil
}

// Outcome converts the record into the form podds.EvaluatePrediction scores.
func (r *PredictionRecord) Outcome() podds.PredictionOutcome {
	return podds.PredictionOutcome{
		ID:                 r.ID,
		HomeTeam:           r.HomeTeam,
		AwayTeam:           r.AwayTeam,
		HomeWinPct:         r.HomeWinPct,
		DrawPct:            r.DrawPct,
		AwayWinPct:         r.AwayWinPct,
		ExpectedHomeGoals:  r.HomeXG,
		ExpectedAwayGoals:  r.AwayXG,
		PredictedHomeGoals: r.PredictedHome,
		PredictedAwayGoals: r.PredictedAway,
		ActualHomeGoals:    r.ActualHome,
		ActualAwayGoals:    r.ActualAway,
	}
}

// Prediction decodes the full prediction stored alongside the record.
func (r *PredictionRecord) Prediction() (*podds.Prediction, error) {
	var p podds.Prediction
	if err := json.Unmarshal([]byte(r.Detail), &p); err != nil {
		return nil, fmt.Errorf("failed to decode prediction %s: %w", r.ID, err)
	}
	return &p, nil
}

// SavePrediction stores a new prediction with no result.
func (s *Store) SavePrediction(p *podds.Prediction) error {
	if p == nil || p.Summary == nil {
		return errors.New("prediction has no summary")
	}
	detail, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode prediction: %w", err)
	}
	o := p.Outcome()
	return s.Save(&PredictionRecord{
		ID:            p.ID,
		HomeTeam:      p.HomeTeam,
		AwayTeam:      p.AwayTeam,
		Fidelity:      p.Fidelity.Name,
		Seed:          int64(p.Seed),
		Simulations:   p.Simulations,
		HomeWinPct:    o.HomeWinPct,
		DrawPct:       o.DrawPct,
		AwayWinPct:    o.AwayWinPct,
		HomeXG:        o.ExpectedHomeGoals,
		AwayXG:        o.ExpectedAwayGoals,
		PredictedHome: o.PredictedHomeGoals,
		PredictedAway: o.PredictedAwayGoals,
		ActualHome:    -1,
		ActualAway:    -1,
		CreatedAt:     p.CreatedAt.UnixMilli(),
		Detail:        string(detail),
	})
}

// FindPrediction returns the record with the given id, or an error wrapping
// ErrNotFound.
func (s *Store) FindPrediction(id string) (*PredictionRecord, error) {
	rec := &PredictionRecord{ID: id}
	if err := s.FindByPrimaryKey(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RecordResult sets the actual score of a stored prediction.
func (s *Store) RecordResult(id string, homeGoals, awayGoals int) (*PredictionRecord, error) {
	if homeGoals < 0 || awayGoals < 0 {
		return nil, fmt.Errorf("goals must not be negative, got: %d-%d", homeGoals, awayGoals)
	}
	rec, err := s.FindPrediction(id)
	if err != nil {
		return nil, err
	}
	rec.ActualHome = homeGoals
	rec.ActualAway = awayGoals
	if err := s.Save(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RecentPredictions returns up to limit predictions, newest first.
func (s *Store) RecentPredictions(limit int) ([]*PredictionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return FindWhere[PredictionRecord](s, "1=1 ORDER BY created_at DESC LIMIT ?", limit)
}

// CompletedPredictions returns the outcomes of every prediction with a
// recorded result, oldest first.
func (s *Store) CompletedPredictions() ([]podds.PredictionOutcome, error) {
	recs, err := FindWhere[PredictionRecord](s, "actual_home >= 0 AND actual_away >= 0 ORDER BY created_at ASC")
	if err != nil {
		return nil, err
	}
	out := make([]podds.PredictionOutcome, len(recs))
	for i, r := range recs {
		out[i] = r.Outcome()
	}
	return out, nil
}

// PredictionsSince returns predictions created at or after t.
func (s *Store) PredictionsSince(t time.Time) ([]*PredictionRecord, error) {
	return FindWhere[PredictionRecord](s, "created_at >= ? ORDER BY created_at ASC", t.UnixMilli())
}

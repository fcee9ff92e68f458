// Package teamdata loads the per team statistics fed into predictions.
//
// The document format is
//
//	{"teams":[{"name":"Arsenal","avg_gf":1.9,"avg_ga":0.8,"std_gf":1.1,"std_ga":0.7,
//	           "matches":19,"recent_gf":[2,1,3],"recent_ga":[0,1,1]}]}
//
// Teams that only carry recent goal sequences have their averages derived
// from those sequences.
package teamdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/transport"
)

// ErrUnknownTeam is returned by Stats for names not in the table.
var ErrUnknownTeam = errors.New("unknown team")

type document struct {
	Teams []podds.TeamStats `json:"teams"`
}

// Table is an immutable set of team statistics keyed by lower cased name.
type Table struct {
	teams  map[string]podds.TeamStats
	names  []string
	source string
}

// Parse builds a table from a JSON document.
func Parse(data []byte, cfg *podds.PoddsConfig) (*Table, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse team data: %w", err)
	}
	t := &Table{teams: make(map[string]podds.TeamStats, len(doc.Teams))}
	for i, ts := range doc.Teams {
		name := strings.TrimSpace(ts.Name)
		if name == "" {
			return nil, fmt.Errorf("team %d has no name", i)
		}
		key := strings.ToLower(name)
		if _, dup := t.teams[key]; dup {
			return nil, fmt.Errorf("team %q appears more than once", name)
		}
		ts.Name = name
		if ts.AvgGoalsFor == 0 && ts.AvgGoalsAgainst == 0 && len(ts.RecentGoalsFor) > 0 {
			ts = podds.NewTeamStats(name, ts.RecentGoalsFor, ts.RecentGoalsAgainst, cfg)
		}
		t.teams[key] = ts
		t.names = append(t.names, name)
	}
	slices.Sort(t.names)
	return t, nil
}

// LoadFile reads a team data document from disk.
func LoadFile(path string, cfg *podds.PoddsConfig) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read team data: %w", err)
	}
	t, err := Parse(data, cfg)
	if err != nil {
		return nil, err
	}
	t.source = path
	logger.Info("Loaded team data", path, len(t.names))
	return t, nil
}

// LoadURL fetches a team data document over http(s).
func LoadURL(ctx context.Context, url string, cfg *podds.PoddsConfig) (*Table, error) {
	data, err := transport.Fetch(ctx, url, "application/json")
	if err != nil {
		return nil, err
	}
	t, err := Parse(data, cfg)
	if err != nil {
		return nil, err
	}
	t.source = url
	logger.Info("Loaded team data", url, len(t.names))
	return t, nil
}

// Load picks LoadURL or LoadFile by the shape of source.
func Load(ctx context.Context, source string, cfg *podds.PoddsConfig) (*Table, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return LoadURL(ctx, source, cfg)
	}
	return LoadFile(source, cfg)
}

// Empty returns a table with no teams.
func Empty() *Table {
	return &Table{teams: map[string]podds.TeamStats{}}
}

// Stats returns a copy of the named team's statistics. Matching is case
// insensitive but otherwise exact.
func (t *Table) Stats(name string) (podds.TeamStats, error) {
	ts, ok := t.teams[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return podds.TeamStats{}, fmt.Errorf("%w: %q", ErrUnknownTeam, name)
	}
	ts.RecentGoalsFor = slices.Clone(ts.RecentGoalsFor)
	ts.RecentGoalsAgainst = slices.Clone(ts.RecentGoalsAgainst)
	return ts, nil
}

// Names lists every team, sorted.
func (t *Table) Names() []string {
	return slices.Clone(t.names)
}

func (t *Table) Len() int {
	return len(t.names)
}

func (t *Table) Source() string {
	return t.source
}

// GlobalPriors is the league mean of the table, used as the shrinkage target.
func (t *Table) GlobalPriors(cfg *podds.PoddsConfig) podds.GlobalPriors {
	all := make([]podds.TeamStats, 0, len(t.names))
	for _, name := range t.names {
		all = append(all, t.teams[strings.ToLower(name)])
	}
	return podds.ComputeGlobalPriors(all, cfg)
}

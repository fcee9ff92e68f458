package store

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/richard-senior/podds/pkg/podds"
)

// Compile-time check to ensure MatchRecord implements Persistable interface
var _ Persistable = (*MatchRecord)(nil)

// MatchRecord is one played fixture. Half time goals are -1 when unknown.
type MatchRecord struct {
	ID        string `column:"id" dbtype:"TEXT NOT NULL" primary:"true"`
	Kickoff   int64  `column:"kickoff" dbtype:"INTEGER" index:"true"` // unix millis
	Season    string `column:"season" dbtype:"TEXT" index:"true"`
	HomeTeam  string `column:"home_team" dbtype:"TEXT NOT NULL" index:"true"`
	AwayTeam  string `column:"away_team" dbtype:"TEXT NOT NULL" index:"true"`
	HomeGoals int    `column:"home_goals" dbtype:"INTEGER DEFAULT -1"`
	AwayGoals int    `column:"away_goals" dbtype:"INTEGER DEFAULT -1"`
	HomeHT    int    `column:"home_ht" dbtype:"INTEGER DEFAULT -1"`
	AwayHT    int    `column:"away_ht" dbtype:"INTEGER DEFAULT -1"`
}

func (m *MatchRecord) GetTableName() string {
	return "fixture"
}

func (m *MatchRecord) GetPrimaryKey() map[string]any {
	return map[string]any{"id": m.ID}
}

// BeforeSave fills in an id and kickoff and checks the teams.
func (m *MatchRecord) BeforeSave() error {
	m.HomeTeam = strings.TrimSpace(m.HomeTeam)
	m.AwayTeam = strings.TrimSpace(m.AwayTeam)
	if m.HomeTeam == "" || m.AwayTeam == "" {
		return errors.New("match needs both team names")
	}
	if strings.EqualFold(m.HomeTeam, m.AwayTeam) {
		return fmt.Errorf("team %q cannot play itself", m.HomeTeam)
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Kickoff == 0 {
		m.Kickoff = time.Now().UnixMilli()
	}
	return nil
}

// HasBeenPlayed determines if match has been completed
func (m *MatchRecord) HasBeenPlayed() bool {
	return m.HomeGoals >= 0 && m.AwayGoals >= 0
}

// ScoreString renders the score as "h - a", or "" before the match is played.
func (m *MatchRecord) ScoreString() string {
	if !m.HasBeenPlayed() {
		return ""
	}
	return fmt.Sprintf("%d - %d", m.HomeGoals, m.AwayGoals)
}

func (s *Store) SaveMatch(m *MatchRecord) error {
	return s.Save(m)
}

// MatchesForTeam returns up to limit played matches involving team, newest
// first. Team names match case insensitively.
func (s *Store) MatchesForTeam(team string, limit int) ([]*MatchRecord, error) {
	if limit <= 0 {
		limit = 38
	}
	return FindWhere[MatchRecord](s,
		"(lower(home_team) = lower(?) OR lower(away_team) = lower(?)) AND home_goals >= 0 AND away_goals >= 0 ORDER BY kickoff DESC LIMIT ?",
		team, team, limit)
}

// TeamHistory is a team's record over its recent matches.
type TeamHistory struct {
	Stats  podds.TeamStats `json:"stats"`
	Played int             `json:"played"`
	Won    int             `json:"won"`
	Drawn  int             `json:"drawn"`
	Lost   int             `json:"lost"`
	Points int             `json:"points"`
	Form   string          `json:"form"` // most recent last, e.g. "WWDLW"
}

// TeamHistory builds model input from the last limit matches of team.
// Returns an error wrapping ErrNotFound when the team has no played matches.
func (s *Store) TeamHistory(team string, limit int, cfg *podds.PoddsConfig) (*TeamHistory, error) {
	matches, err := s.MatchesForTeam(team, limit)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no matches for %q: %w", team, ErrNotFound)
	}
	// oldest first, so recent sequences end with the latest match
	slices.Reverse(matches)

	h := &TeamHistory{}
	name := team
	gf := make([]int, 0, len(matches))
	ga := make([]int, 0, len(matches))
	var form strings.Builder
	for _, m := range matches {
		var scored, conceded int
		if strings.EqualFold(m.HomeTeam, team) {
			scored, conceded, name = m.HomeGoals, m.AwayGoals, m.HomeTeam
		} else {
			scored, conceded, name = m.AwayGoals, m.HomeGoals, m.AwayTeam
		}
		gf = append(gf, scored)
		ga = append(ga, conceded)
		h.Played++
		switch {
		case scored > conceded:
			h.Won++
			h.Points += 3
			form.WriteByte('W')
		case scored == conceded:
			h.Drawn++
			h.Points++
			form.WriteByte('D')
		default:
			h.Lost++
			form.WriteByte('L')
		}
	}
	h.Form = form.String()
	h.Stats = podds.NewTeamStats(name, gf, ga, cfg)
	return h, nil
}

package provider

// Record is a played/won/drawn/lost line of a standing entry.
type Record struct {
	GamesPlayed  int `json:"games_played"`
	Won          int `json:"won"`
	Draw         int `json:"draw"`
	Lost         int `json:"lost"`
	GoalsScored  int `json:"goals_scored"`
	GoalsAgainst int `json:"goals_against"`
	Points       int `json:"points,omitempty"`
}

type Total struct {
	GoalDifference any `json:"goal_difference"`
	Points         int `json:"points"`
}

// StandingEntry is one team's row in a table. Group stages nest the rows of
// their rounds in Standings.
type StandingEntry struct {
	Position   int                       `json:"position"`
	TeamID     int                       `json:"team_id"`
	TeamName   string                    `json:"team_name"`
	RoundID    *int                      `json:"round_id"`
	RoundName  any                       `json:"round_name"`
	GroupID    *int                      `json:"group_id"`
	GroupName  *string                   `json:"group_name"`
	Overall    Record                    `json:"overall"`
	Home       Record                    `json:"home"`
	Away       Record                    `json:"away"`
	Total      Total                     `json:"total"`
	Result     *string                   `json:"result"`
	Points     int                       `json:"points"`
	RecentForm string                    `json:"recent_form"`
	Status     *string                   `json:"status"`
	Standings  *Include[[]StandingEntry] `json:"standings,omitempty"`
}

// Standing is the table of a stage or group.
type Standing struct {
	ID        int                      `json:"id"`
	Name      string                   `json:"name"`
	LeagueID  int                      `json:"league_id"`
	SeasonID  int                      `json:"season_id"`
	RoundID   *int                     `json:"round_id"`
	RoundName any                      `json:"round_name"`
	Type      string                   `json:"type"`
	StageID   *int                     `json:"stage_id"`
	StageName string                   `json:"stage_name"`
	Resource  string                   `json:"resource"`
	Standings Include[[]StandingEntry] `json:"standings"`
}

// FlattenStandings returns every leaf entry of the tables in insertion order.
// An entry with nested rows contributes its rows, not itself.
func FlattenStandings(tables []Standing) []StandingEntry {
	var out []StandingEntry
	for _, t := range tables {
		out = appendLeaves(out, t.Standings.Data)
	}
	return out
}

func appendLeaves(out []StandingEntry, entries []StandingEntry) []StandingEntry {
	for _, e := range entries {
		if e.Standings != nil && len(e.Standings.Data) > 0 {
			out = appendLeaves(out, e.Standings.Data)
			continue
		}
		out = append(out, e)
	}
	return out
}

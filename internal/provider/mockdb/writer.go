package mockdb

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"

	"github.com/spf13/afero"

	"github.com/albapepper/scoracle-crawl/internal/provider"
)

// Writer stores crawled payloads in the layout Source reads, so a live crawl
// can be replayed offline later.
type Writer struct {
	fs     afero.Fs
	root   string
	logger *slog.Logger
}

func NewWriter(fsys afero.Fs, root string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{fs: fsys, root: root, logger: logger}
}

// WriteSeason writes {root}/{id}/{id}.json and teams.json. It returns the
// season directory.
func (w *Writer) WriteSeason(season provider.Season, teams []provider.Team) (string, error) {
	if season.League == nil {
		return "", fmt.Errorf("write season %d: league is missing", season.ID)
	}
	dir := path.Join(w.root, strconv.Itoa(season.ID))
	if err := w.writeJSON(path.Join(dir, strconv.Itoa(season.ID)+".json"), season); err != nil {
		return "", err
	}
	if err := w.writeJSON(path.Join(dir, "teams.json"), teams); err != nil {
		return "", err
	}
	return dir, nil
}

// WriteStandings writes {root}/{id}/standing.json.
func (w *Writer) WriteStandings(seasonID int, tables []provider.Standing) error {
	return w.writeJSON(path.Join(w.root, strconv.Itoa(seasonID), "standing.json"), tables)
}

// WriteAll writes an aggregate list to {root}/_all/{name}.json.
func (w *Writer) WriteAll(name string, data any) error {
	return w.writeJSON(path.Join(w.root, AllDir, name+".json"), data)
}

func (w *Writer) writeJSON(p string, data any) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", p, err)
	}
	if err := w.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", path.Dir(p), err)
	}
	if err := afero.WriteFile(w.fs, p, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	w.logger.Debug("Snapshot written", "file", p)
	return nil
}

// --------------------------------------------------------------------------
// Fixture overview
// --------------------------------------------------------------------------

// FixtureSummary is a fixture with team names resolved, ordered for display.
type FixtureSummary struct {
	ID                int    `json:"id"`
	DateTime          string `json:"date_time"`
	LocalTeam         string `json:"local_team"`
	VisitingTeam      string `json:"visiting_team"`
	LocalTeamScore    int    `json:"local_team_score"`
	VisitingTeamScore int    `json:"visiting_team_score"`
	Status            string `json:"status"`
}

// SummarizeFixtures resolves team names and sorts by kickoff.
func SummarizeFixtures(fixtures []provider.Fixture, teams []provider.Team) []FixtureSummary {
	names := make(map[int]string, len(teams))
	for _, t := range teams {
		names[t.ID] = t.Name
	}
	out := make([]FixtureSummary, 0, len(fixtures))
	for _, f := range fixtures {
		out = append(out, FixtureSummary{
			ID:                f.ID,
			DateTime:          f.Time.StartingAt.DateTime,
			LocalTeam:         names[f.LocalTeamID],
			VisitingTeam:      names[f.VisitorTeamID],
			LocalTeamScore:    f.Scores.LocalTeamScore,
			VisitingTeamScore: f.Scores.VisitorTeamScore,
			Status:            f.Time.Status,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateTime < out[j].DateTime })
	return out
}

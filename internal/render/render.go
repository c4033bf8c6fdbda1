// Package render turns provider entities into SQL statement text using the
// templates embedded under templates/. Values are inlined as escaped
// literals because a single save may carry many statements.
package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/albapepper/scoracle-crawl/internal/cache"
	"github.com/albapepper/scoracle-crawl/internal/provider"
)

// Template names.
const (
	Continents  = "continents"
	Countries   = "countries"
	Leagues     = "leagues"
	League      = "league"
	Teams       = "teams"
	SeasonTeams = "season_teams"
	Season      = "season"
	Stages      = "stages"
	Rounds      = "rounds"
	Groups      = "groups"
	Fixtures    = "fixtures"
	Standings   = "standings"
	LiveFixture = "live_fixture"
	ScannerLog  = "scanner_log"
)

//go:embed templates/*.sql.tmpl
var templateFS embed.FS

// Context is what every template is executed with.
type Context struct {
	Data any
	Meta *cache.Entry
}

// SeasonTeamsData links the teams of a season to it.
type SeasonTeamsData struct {
	SeasonID int
	Teams    []provider.Team
}

// StandingsData carries the flattened entries of one season's tables.
type StandingsData struct {
	SeasonID int
	Tables   []provider.Standing
	Entries  []provider.StandingEntry
}

// Renderer executes the embedded statement templates.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("sql").Funcs(Funcs()).ParseFS(templateFS, "templates/*.sql.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render executes the named template. An empty slice or map renders to "".
func (r *Renderer) Render(name string, data any, meta *cache.Entry) (string, error) {
	if isEmpty(data) {
		return "", nil
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, Context{Data: data, Meta: meta}); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func isEmpty(data any) bool {
	if data == nil {
		return true
	}
	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Pointer:
		return v.IsNil()
	}
	return false
}

// --------------------------------------------------------------------------
// Template functions
// --------------------------------------------------------------------------

// Funcs returns the helpers available inside statement templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"lit":     Literal,
		"jsonb":   JSONB,
		"kickoff": kickoff,
		"status":  status,
	}
}

func kickoff(f provider.Fixture) string {
	return Literal(f.StartingAt().UTC().Format(time.RFC3339)) + "::timestamptz"
}

func status(code string) string {
	return Literal(string(provider.NormalizeStatus(code)))
}

// Literal renders v as a SQL literal. Nil values and nil pointers become NULL,
// strings are single-quoted with embedded quotes doubled.
func Literal(v any) string {
	if v == nil {
		return "NULL"
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "NULL"
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return quote(rv.String())
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	}
	return quote(fmt.Sprint(rv.Interface()))
}

// JSONB renders v as a jsonb literal.
func JSONB(v any) (string, error) {
	if raw, ok := v.(json.RawMessage); ok {
		if len(raw) == 0 {
			return "NULL", nil
		}
		return quote(string(raw)) + "::jsonb", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return quote(string(b)) + "::jsonb", nil
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Package pager implements keyset pagination over form submissions ordered
// by (created_at, id) descending.
package pager

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/app/models"
)

// DefaultSearchField is the payload key matched by the text filter.
const DefaultSearchField = "email"

var fieldPattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Options are the raw listing parameters of one page request.
type Options struct {
	Limit  int
	Cursor string
	Search string
	Range  string
}

type Page struct {
	Items      []models.Submission `json:"items"`
	NextCursor *string             `json:"next_cursor"`
}

type Pager struct {
	db          *gorm.DB
	searchField string
	loc         *time.Location
	now         func() time.Time
}

type Option func(*Pager)

func WithSearchField(field string) Option {
	return func(p *Pager) { p.searchField = field }
}

func WithLocation(loc *time.Location) Option {
	return func(p *Pager) { p.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pager) { p.now = now }
}

func New(db *gorm.DB, opts ...Option) (*Pager, error) {
	p := &Pager{
		db:          db,
		searchField: DefaultSearchField,
		loc:         time.UTC,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if !fieldPattern.MatchString(p.searchField) {
		return nil, fmt.Errorf("pager: invalid search field %q", p.searchField)
	}
	return p, nil
}

// Filter applies form scope, text search and range bound to q. It is shared
// by FetchPage and the CSV export so both see the same rows.
func (p *Pager) Filter(q *gorm.DB, formID string, search, rangeName string) *gorm.DB {
	q = q.Where("form_id = ?", formID)

	if s := strings.TrimSpace(search); s != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		q = q.Where(p.searchExpr(q)+" LIKE ? ESCAPE '!'", pattern)
	}
	if start := RangeStart(rangeName, p.now(), p.loc); start != nil {
		q = q.Where("created_at >= ?", *start)
	}
	return q
}

// FetchPage returns up to opts.Limit submissions older than opts.Cursor.
// Limit is clamped to [1, MaxLimit]; callers parsing a query string use
// ClampLimit to get the default for missing input. An invalid cursor yields
// the first page.
func (p *Pager) FetchPage(ctx context.Context, formID string, opts Options) (*Page, error) {
	limit := clamp(opts.Limit)

	q := p.Filter(p.db.WithContext(ctx).Model(&models.Submission{}), formID, opts.Search, opts.Range)
	if c, ok := Decode(opts.Cursor); ok {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
	}

	var rows []models.Submission
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch submissions page: %w", err)
	}

	page := &Page{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		last := page.Items[limit-1]
		next := Encode(last.CreatedAt, last.ID)
		page.NextCursor = &next
	}
	if page.Items == nil {
		page.Items = []models.Submission{}
	}
	return page, nil
}

func (p *Pager) searchExpr(q *gorm.DB) string {
	path := "'$." + p.searchField + "'"
	if q.Dialector != nil && q.Dialector.Name() == "mysql" {
		return "LOWER(JSON_UNQUOTE(JSON_EXTRACT(payload, " + path + ")))"
	}
	return "LOWER(json_extract(payload, " + path + "))"
}

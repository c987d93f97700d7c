// Package csvexport renders form submissions as CSV.
package csvexport

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/ManuelReschke/FormFox/app/models"
)

// TimeLayout is used for the created_at column.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Columns returns the header: id, created_at, then the sorted union of payload keys.
func Columns(subs []models.Submission) []string {
	seen := map[string]struct{}{}
	var keys []string
	for _, s := range subs {
		for k := range s.Payload {
			if k == "id" || k == "created_at" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return append([]string{"id", "created_at"}, keys...)
}

// Write renders subs in the given order. Quoting follows RFC 4180 and every
// cell goes through Sanitize.
func Write(w io.Writer, subs []models.Submission) error {
	cols := Columns(subs)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}

	row := make([]string, len(cols))
	for _, s := range subs {
		row[0] = Sanitize(s.ID)
		row[1] = s.CreatedAt.UTC().Format(TimeLayout)
		for i, k := range cols[2:] {
			row[i+2] = Sanitize(FormatValue(s.Payload[k]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Sanitize prefixes cells that spreadsheet software would evaluate as a formula.
func Sanitize(cell string) string {
	if cell == "" {
		return cell
	}
	switch cell[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + cell
	}
	return cell
}

// FormatValue turns a decoded JSON payload value into cell text.
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int, int64, uint, uint64:
		return fmt.Sprint(t)
	case time.Time:
		return t.UTC().Format(TimeLayout)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// Filename returns the download name for a form export.
func Filename(slug string, now time.Time) string {
	return fmt.Sprintf("%s-submissions-%s.csv", slug, now.UTC().Format("20060102-150405"))
}

package csvexport

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/FormFox/app/models"
)

func TestWrite(t *testing.T) {
	ts := time.Date(2026, 1, 30, 8, 15, 0, 123000000, time.UTC)
	subs := []models.Submission{
		{ID: "a", CreatedAt: ts, Payload: map[string]interface{}{"name": "Alice", "msg": "line1\nline2, \"quoted\""}},
		{ID: "b", CreatedAt: ts.Add(time.Second), Payload: map[string]interface{}{"age": float64(42), "name": "=HYPERLINK(\"x\")"}},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, subs))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"id", "created_at", "age", "msg", "name"}, records[0])
	assert.Equal(t, []string{"a", "2026-01-30T08:15:00.123Z", "", "line1\nline2, \"quoted\"", "Alice"}, records[1])
	assert.Equal(t, []string{"b", "2026-01-30T08:15:01.123Z", "42", "", "'=HYPERLINK(\"x\")"}, records[2])
}

func TestWrite_EmptyHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil))
	assert.Equal(t, "id,created_at\n", buf.String())
}

func TestColumns_ReservedKeysNotDuplicated(t *testing.T) {
	cols := Columns([]models.Submission{{Payload: map[string]interface{}{"id": "x", "created_at": "y", "b": 1, "a": 2}}})
	assert.Equal(t, []string{"id", "created_at", "a", "b"}, cols)
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"":          "",
		"hello":     "hello",
		"=1+1":      "'=1+1",
		"+49 123":   "'+49 123",
		"-5":        "'-5",
		"@SUM(A1)":  "'@SUM(A1)",
		"\tcmd":     "'\tcmd",
		"\rcmd":     "'\rcmd",
		"a=b":       "a=b",
		" =leading": " =leading",
	}
	for in, want := range tests {
		assert.Equal(t, want, Sanitize(in), "input %q", in)
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "3.5", FormatValue(3.5))
	assert.Equal(t, "7", FormatValue(7))
	assert.Equal(t, `["a","b"]`, FormatValue([]interface{}{"a", "b"}))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "contact-submissions-20260130-081500.csv", Filename("contact", time.Date(2026, 1, 30, 8, 15, 0, 0, time.UTC)))
}

package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true, "METHOD", "PATTERN", "RESOURCE").
		ColorCells(func(column int, value string) *color.Color {
			if column == 0 {
				return MethodColor(value)
			}
			return nil
		})
	table.AddRow("GET", "/users", "User")
	table.AddRow("DELETE", "/users/{id}/comments/{sid}")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "METHOD  PATTERN                     RESOURCE", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "──────  "))
	assert.Equal(t, "GET     /users                      User", lines[2])
	assert.Equal(t, "DELETE  /users/{id}/comments/{sid}  ", lines[3])
}

func TestTableWithoutHeadersRendersNothing(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, true).Render()
	assert.Empty(t, buf.String())
}

func TestFormatError(t *testing.T) {
	out := FormatError(ErrorOptions{
		Context:     "config",
		Problem:     `store.driver "mongo" is not supported`,
		Suggestions: []string{"use one of memory, sqlite3, postgres, pgx, redis"},
		NoColor:     true,
	})
	assert.Equal(t, "✗ CONFIG: store.driver \"mongo\" is not supported\n  → use one of memory, sqlite3, postgres, pgx, redis\n", out)

	assert.Equal(t, "✗ boom\n", FormatError(ErrorOptions{Problem: "boom", NoColor: true}))
	assert.Equal(t, "✓ done", FormatSuccess("done", true))
}

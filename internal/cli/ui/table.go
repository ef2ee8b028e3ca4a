// Package ui renders terminal output for the CLI.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table renders aligned columns with a colored header
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
	// cellColor picks a color per cell; nil leaves the cell plain
	cellColor func(column int, value string) *color.Color
}

// NewTable creates a table with the given headers
func NewTable(w io.Writer, noColor bool, headers ...string) *Table {
	return &Table{writer: w, headers: headers, noColor: noColor}
}

// ColorCells sets the per-cell colorizer
func (t *Table) ColorCells(fn func(column int, value string) *color.Color) *Table {
	t.cellColor = fn
	return t
}

// AddRow adds a row. Missing cells render empty.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the header, a separator and every row
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}

	header := t.color(color.Bold, color.FgCyan)
	t.line(widths, t.headers, func(int, string) *color.Color { return header })

	rule := t.color(color.FgHiBlack)
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("─", w)
	}
	t.line(widths, sep, func(int, string) *color.Color { return rule })

	for _, row := range t.rows {
		t.line(widths, row, t.cellColor)
	}
}

func (t *Table) line(widths []int, cells []string, pick func(int, string) *color.Color) {
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		padded := padRight(cell, width)
		if i == len(widths)-1 {
			padded = cell
		}

		var c *color.Color
		if pick != nil {
			c = pick(i, cell)
		}
		if c != nil {
			if t.noColor {
				c.DisableColor()
			}
			c.Fprint(t.writer, padded)
		} else {
			fmt.Fprint(t.writer, padded)
		}
		if i < len(widths)-1 {
			fmt.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)
}

func (t *Table) color(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if t.noColor {
		c.DisableColor()
	}
	return c
}

// MethodColor colors HTTP verbs the way route listings usually do
func MethodColor(method string) *color.Color {
	switch method {
	case "GET":
		return color.New(color.FgGreen)
	case "POST":
		return color.New(color.FgYellow)
	case "PUT", "PATCH":
		return color.New(color.FgBlue)
	case "DELETE":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgWhite)
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

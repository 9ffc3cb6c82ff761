package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"wiki-quiz/internal/dto"
	"wiki-quiz/internal/service"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

const (
	outputJSON  = "json"
	outputYAML  = "yaml"
	outputTable = "table"
)

// Column widths of the history table, in terminal cells.
const (
	titleWidth = 40
	urlWidth   = 60
)

func render(w io.Writer, format string, v interface{}) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return renderTable(w, v)
	}
}

func renderTable(w io.Writer, v interface{}) error {
	switch t := v.(type) {
	case dto.HistoryResponse:
		return writeHistoryTable(w, t)
	case dto.QuizResponse:
		return writeQuiz(w, t)
	case service.BatchReport:
		return writeBatchTable(w, t)
	default:
		return fmt.Errorf("no table layout for %T", v)
	}
}

func writeHistoryTable(w io.Writer, h dto.HistoryResponse) error {
	rows := [][]string{{"ID", "CREATED", "TITLE", "URL"}}
	for _, item := range h.Items {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.CreatedAt.Format("2006-01-02 15:04"),
			runewidth.Truncate(deref(item.Title), titleWidth, "…"),
			runewidth.Truncate(item.URL, urlWidth, "…"),
		})
	}
	return writeRows(w, rows)
}

func writeBatchTable(w io.Writer, r service.BatchReport) error {
	rows := [][]string{{"ID", "STATUS", "URL"}}
	for _, item := range r.Items {
		id, status := "-", "generated"
		switch {
		case item.Error != "":
			status = "failed: " + item.Error
		case item.Cached:
			status = "cached"
		case item.Degraded:
			status = "degraded"
		}
		if item.Error == "" {
			id = strconv.FormatInt(item.ID, 10)
		}
		rows = append(rows, []string{id, runewidth.Truncate(status, titleWidth, "…"), runewidth.Truncate(item.URL, urlWidth, "…")})
	}
	if err := writeRows(w, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d succeeded, %d failed\n", r.Succeeded, r.Failed)
	return err
}

// writeRows pads every column but the last to its widest cell.
func writeRows(w io.Writer, rows [][]string) error {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	var sb strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString("  ")
		}
		sb.WriteString("\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeQuiz(w io.Writer, q dto.QuizResponse) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d %s\n", q.ID, deref(q.Title))
	fmt.Fprintf(&sb, "URL:     %s\n", q.URL)
	if q.Summary != nil {
		fmt.Fprintf(&sb, "Summary: %s\n", *q.Summary)
	}
	fmt.Fprintf(&sb, "Cached:  %t  Degraded: %t\n", q.Cached, q.Degraded)
	if len(q.Sections) > 0 {
		fmt.Fprintf(&sb, "Sections: %s\n", strings.Join(q.Sections, ", "))
	}

	for i, item := range q.Quiz {
		fmt.Fprintf(&sb, "\n%d. [%s] %s\n", i+1, item.Difficulty, item.Question)
		for j, opt := range item.Options {
			marker := " "
			if opt == item.Answer {
				marker = "*"
			}
			fmt.Fprintf(&sb, "   %s %c) %s\n", marker, 'A'+rune(j), opt)
		}
		if item.Explanation != "" {
			fmt.Fprintf(&sb, "   %s\n", item.Explanation)
		}
	}

	if len(q.RelatedTopics) > 0 {
		fmt.Fprintf(&sb, "\nRelated: %s\n", strings.Join(q.RelatedTopics, ", "))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

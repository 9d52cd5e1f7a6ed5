package exporter

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

var monthNames = [...]string{"", "Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro"}

const reportTemplate = `# Relatório de Mercado - {{ monthName .Report.Month }} de {{ .Report.Year }}
{{ if .Report.Category }}
Categoria: **{{ .Report.Category }}**
{{ end }}
Janela de taxas: {{ .Report.Window }} meses
{{ range .Tables }}
## {{ title .Name }}
{{ if .Records }}
| {{ join .Headers " | " }} |
|{{ range .Headers }}---|{{ end }}
{{ range .Records }}| {{ cells . }} |
{{ end }}{{ else }}
_Sem dados para o período._
{{ end }}{{ end }}`

var sectionTitles = map[string]string{
	"retorno":      "Retorno",
	"volatilidade": "Volatilidade",
	"inflacao":     "Inflação",
	"taxas":        "Taxas",
}

var markdown = template.Must(template.New("report").Funcs(template.FuncMap{
	"join": strings.Join,
	"monthName": func(m int) string {
		if m < 1 || m > 12 {
			return fmt.Sprintf("%02d", m)
		}
		return monthNames[m]
	},
	"title": func(name string) string {
		if t, ok := sectionTitles[name]; ok {
			return t
		}
		return name
	},
	"cells": func(record []string) string {
		out := make([]string, len(record))
		for i, c := range record {
			if c == "" {
				c = "-"
			}
			out[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		return strings.Join(out, " | ")
	},
}).Parse(reportTemplate))

// WriteMarkdown renders the monthly report as a markdown document
func WriteMarkdown(w io.Writer, report *domain.MonthlyReport) error {
	if report == nil {
		return fmt.Errorf("nil report")
	}

	data := struct {
		Report *domain.MonthlyReport
		Tables []Table
	}{
		Report: report,
		Tables: ReportTables(report),
	}

	if err := markdown.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// WriteReport renders the report in format, "markdown" (default) or "csv"
func WriteReport(w io.Writer, report *domain.MonthlyReport, format string) error {
	switch strings.ToLower(format) {
	case "", "markdown", "md":
		return WriteMarkdown(w, report)
	case "csv":
		if report == nil {
			return fmt.Errorf("nil report")
		}
		return NewCSVWriter(WriteOptions{SectionBreak: true}, nil).Write(w, ReportTables(report)...)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var sheetOrder = []string{"Retorno", "Risco", "Inflacao", "Taxas", "Duration"}

func sampleSheets() map[string][][]interface{} {
	return map[string][][]interface{}{
		"Retorno": {
			{"Data", "CDI", "Ibovespa"},
			{"2024-01-31", "0,97%", "-4,79%"},
			{"2024-02-29", "0,80%", "0,99%"},
			{"2024-03-28", "0,83%", "-0,71%"},
		},
		"Risco": {
			{"Data", "Ibovespa"},
			{"2024-03-28", "12,5%"},
		},
		"Inflacao": {
			{"Data", "IPCA"},
			{"01/12/2023", 6800.5},
			{"01/01/2024", 6830.1},
			{"01/02/2024", 6885.4},
			{"01/03/2024", 6896.4},
		},
		"Taxas": {
			{"Data", "NTN-B 2035"},
			{"2024-03-28", "5,80%"},
		},
		"Duration": {
			{"Data", "NTN-B 2035"},
			{"2024-03-28", 1890},
		},
	}
}

func writeWorkbook(t *testing.T, order []string, sheets map[string][][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			for c, v := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(name, cell, v))
			}
		}
	}

	path := filepath.Join(t.TempDir(), "Base - Indicadores.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

// run executes the root command with args and returns stdout
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MERCADO_LOGGING_LEVEL", "error")
	t.Setenv("MERCADO_CONFIG_FILE", "")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Dash Mercado")
	assert.Contains(t, out, "build:")
}

func TestCheckCommand(t *testing.T) {
	path := writeWorkbook(t, sheetOrder, sampleSheets())

	out, err := run(t, "check", "--workbook", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Workbook: "+path)
	assert.Contains(t, out, "SHEET")
	assert.Contains(t, out, "return")
	assert.Contains(t, out, "2024-01-31")
	assert.Contains(t, out, "2024-03-28")
}

func TestCheckCommand_JSON(t *testing.T) {
	path := writeWorkbook(t, sheetOrder, sampleSheets())

	out, err := run(t, "check", "--json", "--workbook", path)
	require.NoError(t, err)

	var info struct {
		Source  string `json:"source"`
		Version int64  `json:"version"`
		Sheets  []struct {
			Sheet string `json:"sheet"`
			Rows  int    `json:"rows"`
		} `json:"sheets"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, path, info.Source)
	assert.Equal(t, int64(1), info.Version)
	require.Len(t, info.Sheets, 5)
	assert.Equal(t, "return", info.Sheets[0].Sheet)
	assert.Equal(t, 3, info.Sheets[0].Rows)
}

func TestCheckCommand_InvalidWorkbook(t *testing.T) {
	path := writeWorkbook(t, sheetOrder[:4], sampleSheets())

	_, err := run(t, "check", "--workbook", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workbook invalid")
	assert.Contains(t, err.Error(), "duration")
}

func TestCheckCommand_MissingWorkbook(t *testing.T) {
	_, err := run(t, "check", "--workbook", filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required files missing")
}

func TestReportCommand_Markdown(t *testing.T) {
	path := writeWorkbook(t, sheetOrder, sampleSheets())

	out, err := run(t, "report", "--workbook", path, "--year", "2024", "--month", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "# Relatório de Mercado - Março de 2024")
	assert.Contains(t, out, "## Retorno")
	assert.Contains(t, out, "| CDI |")
}

func TestReportCommand_SaveCSV(t *testing.T) {
	path := writeWorkbook(t, sheetOrder, sampleSheets())
	reports := t.TempDir()
	t.Setenv("MERCADO_DATA_REPORTS_DIR", reports)

	out, err := run(t, "report", "--workbook", path, "--year", "2024", "--month", "3", "--format", "csv", "--save")
	require.NoError(t, err)

	want := filepath.Join(reports, "relatorio_2024_03.csv")
	assert.Contains(t, out, want)
	content, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Contains(t, string(content), "CDI")

	leftovers, err := filepath.Glob(filepath.Join(reports, ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestReportCommand_InvalidOptions(t *testing.T) {
	path := writeWorkbook(t, sheetOrder, sampleSheets())

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"month out of range", []string{"--year", "2024", "--month", "13"}, "--month"},
		{"unknown format", []string{"--year", "2024", "--month", "3", "--format", "pdf"}, "--format"},
		{"bad window", []string{"--year", "2024", "--month", "3", "--window", "5"}, "--window"},
		{"missing year", []string{"--month", "3"}, "year"},
		{"output and save", []string{"--year", "2024", "--month", "3", "--save", "-o", "x.md"}, "save"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"report", "--workbook", path}, tt.args...)
			_, err := run(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

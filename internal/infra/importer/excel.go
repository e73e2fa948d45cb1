package importer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/seedlane/outreach/internal/usecase"
)

// ImportResult resume uma carga de planilha.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// ExcelImporter carrega leads de uma planilha .xlsx. O mapeamento de
// colunas vem da linha de cabeçalho; email e first_name são
// obrigatórios. Linhas duplicadas ou incompletas contam como skipped.
type ExcelImporter struct {
	importUC *usecase.ImportLeadUseCase
}

func NewExcelImporter(importUC *usecase.ImportLeadUseCase) *ExcelImporter {
	return &ExcelImporter{importUC: importUC}
}

func (i *ExcelImporter) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir planilha: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler planilha: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("planilha vazia")
	}

	colMap := map[string]int{}
	for idx, header := range rows[0] {
		colMap[strings.ToLower(strings.TrimSpace(header))] = idx
	}

	for _, required := range []string{"email", "first_name"} {
		if _, ok := colMap[required]; !ok {
			return nil, fmt.Errorf("planilha precisa das colunas email e first_name, achou: %v", rows[0])
		}
	}

	result := &ImportResult{}

	for _, row := range rows[1:] {
		email := cell(row, colMap, "email")
		if email == "" {
			continue
		}

		input := usecase.ImportLeadInput{
			Email:       strings.ToLower(email),
			FirstName:   cell(row, colMap, "first_name"),
			LastName:    cell(row, colMap, "last_name"),
			Company:     cell(row, colMap, "company"),
			Title:       cell(row, colMap, "title"),
			LinkedInURL: cell(row, colMap, "linkedin_url"),
		}

		if input.FirstName == "" {
			log.Printf("⚠️ Linha sem first_name, pulando: %s", email)
			result.Skipped++
			continue
		}

		output, err := i.importUC.Execute(ctx, input)
		if err != nil {
			log.Printf("⚠️ Linha inválida (%s): %v", email, err)
			result.Skipped++
			continue
		}

		if output.Skipped {
			result.Skipped++
		} else {
			result.Imported++
		}
	}

	return result, nil
}

func cell(row []string, colMap map[string]int, name string) string {
	idx, ok := colMap[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

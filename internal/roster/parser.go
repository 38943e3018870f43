package roster

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"classroom-photo-sync/internal/model"
	"classroom-photo-sync/pkg/errors"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

type YAMLParser struct{}

func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

type rosterFile struct {
	Teachers []model.Teacher `yaml:"teachers"`
}

func (p *YAMLParser) Parse(ctx context.Context, data []byte) ([]model.Teacher, error) {
	var file rosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse roster YAML: %w", err)
	}
	return file.Teachers, nil
}

type ExcelParser struct{}

func NewExcelParser() *ExcelParser {
	return &ExcelParser{}
}

var requiredColumns = []string{"id", "name", "mobile", "school", "branch", "class", "otp", "email"}

func (p *ExcelParser) Parse(ctx context.Context, data []byte) ([]model.Teacher, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ErrInvalidFileFormat
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	if len(rows) < 2 { // Header + at least one teacher
		return nil, errors.ErrInvalidFileFormat
	}

	columnMap := make(map[string]int)
	for i, col := range rows[0] {
		columnMap[strings.ToLower(strings.TrimSpace(col))] = i
	}

	for _, col := range requiredColumns {
		if _, exists := columnMap[col]; !exists {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	var teachers []model.Teacher
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		teachers = append(teachers, p.parseRow(row, columnMap))
	}

	return teachers, nil
}

func (p *ExcelParser) parseRow(row []string, columnMap map[string]int) model.Teacher {
	getValue := func(colName string) string {
		if idx, exists := columnMap[colName]; exists && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	return model.Teacher{
		ID:     getValue("id"),
		Name:   getValue("name"),
		Mobile: getValue("mobile"),
		School: getValue("school"),
		Branch: getValue("branch"),
		Class:  getValue("class"),
		OTP:    getValue("otp"),
		Email:  getValue("email"),
	}
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

package roster

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"classroom-photo-sync/internal/model"
)

//go:embed seed.yaml
var seedYAML []byte

type ParsingStrategy interface {
	Parse(ctx context.Context, data []byte) ([]model.Teacher, error)
	Validate(ctx context.Context, teachers []model.Teacher) error
}

type yamlStrategy struct {
	parser    *YAMLParser
	validator *Validator
}

func (s *yamlStrategy) Parse(ctx context.Context, data []byte) ([]model.Teacher, error) {
	return s.parser.Parse(ctx, data)
}

func (s *yamlStrategy) Validate(ctx context.Context, teachers []model.Teacher) error {
	return s.validator.Validate(ctx, teachers)
}

type excelStrategy struct {
	parser    *ExcelParser
	validator *Validator
}

func (s *excelStrategy) Parse(ctx context.Context, data []byte) ([]model.Teacher, error) {
	return s.parser.Parse(ctx, data)
}

func (s *excelStrategy) Validate(ctx context.Context, teachers []model.Teacher) error {
	return s.validator.Validate(ctx, teachers)
}

func NewYAMLStrategy() ParsingStrategy {
	return &yamlStrategy{parser: NewYAMLParser(), validator: NewValidator()}
}

func NewExcelStrategy() ParsingStrategy {
	return &excelStrategy{parser: NewExcelParser(), validator: NewValidator()}
}

// StrategyFor picks a parser by file extension.
func StrategyFor(path string) (ParsingStrategy, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYAMLStrategy(), nil
	case ".xlsx":
		return NewExcelStrategy(), nil
	default:
		return nil, fmt.Errorf("unsupported roster file type: %s", path)
	}
}

// Load reads the roster at path, or the embedded seed when path is empty.
func Load(ctx context.Context, path string) (*Roster, error) {
	if path == "" {
		return parse(ctx, NewYAMLStrategy(), seedYAML)
	}

	strategy, err := StrategyFor(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}

	return parse(ctx, strategy, data)
}

func parse(ctx context.Context, strategy ParsingStrategy, data []byte) (*Roster, error) {
	teachers, err := strategy.Parse(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := strategy.Validate(ctx, teachers); err != nil {
		return nil, err
	}
	return New(teachers), nil
}

package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/BartekS5/commentflow/pkg/models"
)

// ConvertToInt parses a base-10 integer cell. The whole cell must match:
// no surrounding spaces, no thousands separators, no exponent.
// Leading zeros are accepted ("007" is 7).
func ConvertToInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// ConvertToFloat parses a finite decimal float cell. NaN, infinities and
// hexadecimal floats are rejected even though strconv accepts them.
func ConvertToFloat(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "0x") || strings.Contains(lower, "_") {
		return 0, fmt.Errorf("unsupported float syntax: %q", s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite float: %q", s)
	}
	return f, nil
}

// ConvertToBool accepts only "true" and "false", case-insensitively.
func ConvertToBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("cannot convert %q to bool", s)
	}
}

// DetectColumnType tries integer, then float, then boolean, and falls back to STRING.
func DetectColumnType(cell string) models.ColumnType {
	if _, err := ConvertToInt(cell); err == nil {
		return models.TypeInteger
	}
	if _, err := ConvertToFloat(cell); err == nil {
		return models.TypeFloat
	}
	if _, err := ConvertToBool(cell); err == nil {
		return models.TypeBoolean
	}
	return models.TypeString
}

// ValidateCell reports whether cell is acceptable for a column of type t.
// Empty cells are treated as NULL and always accepted.
func ValidateCell(cell string, t models.ColumnType) error {
	if cell == "" {
		return nil
	}
	var err error
	switch t {
	case models.TypeInteger:
		_, err = ConvertToInt(cell)
	case models.TypeFloat:
		_, err = ConvertToFloat(cell)
	case models.TypeBoolean:
		_, err = ConvertToBool(cell)
	case models.TypeString:
	default:
		err = fmt.Errorf("unknown column type %q", t)
	}
	return err
}

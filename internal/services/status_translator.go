package services

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"route-audit-service/internal/domain"
	"strings"

	"gopkg.in/yaml.v3"
)

// PendingStatus stands in for a missing reason code in reports.
const PendingStatus = "pending"

//go:embed status_table.yaml
var defaultStatusTable []byte

// StatusTranslator maps delivery-failure reason codes to display text.
// Unknown codes translate to themselves.
type StatusTranslator struct {
	table map[string]string
}

// NewStatusTranslator loads the embedded table, overlaid with overridePath
// when it is non-empty.
func NewStatusTranslator(overridePath string) (*StatusTranslator, error) {
	table, err := parseStatusTable(defaultStatusTable)
	if err != nil {
		return nil, fmt.Errorf("status translator: embedded table: %w", err)
	}

	if overridePath != "" {
		raw, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("status translator: read %q: %w", overridePath, err)
		}
		extra, err := parseStatusTable(raw)
		if err != nil {
			return nil, fmt.Errorf("status translator: %q: %w", overridePath, err)
		}
		maps.Copy(table, extra)
	}

	return &StatusTranslator{table: table}, nil
}

// DefaultStatusTranslator returns the translator for the embedded table.
func DefaultStatusTranslator() *StatusTranslator {
	t, err := NewStatusTranslator("")
	if err != nil {
		panic(err)
	}
	return t
}

func parseStatusTable(raw []byte) (map[string]string, error) {
	table := map[string]string{}
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return table, nil
}

// Translate returns the display text for code, or code itself when unknown.
func (t *StatusTranslator) Translate(code string) string {
	if text, ok := t.table[strings.TrimSpace(code)]; ok {
		return text
	}
	return code
}

// TranslateReason translates rc, using PendingStatus for null or empty codes.
func (t *StatusTranslator) TranslateReason(rc domain.ReasonCode) string {
	if !rc.Valid || rc.Code == "" {
		return t.Translate(PendingStatus)
	}
	return t.Translate(rc.Code)
}

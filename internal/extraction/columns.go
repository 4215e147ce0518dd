package extraction

import (
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

type columnChoice struct {
	name   string
	source model.ColumnSource
	index  int
}

// resolveColumn picks the value column for a target line. Order: confirmed client
// preference, the default column name in the nearest header, the per-type default
// position.
func (e *Extractor) resolveColumn(docType model.DocumentType, header []string, prefs []model.ColumnPreference) columnChoice {
	for _, pref := range prefs {
		if pref.ColumnName != "" {
			if idx, ok := headerIndex(header, pref.ColumnName); ok {
				return columnChoice{index: idx, name: header[idx-1], source: model.ColumnSourceOverride}
			}
		}
		if pref.Column > 0 {
			return columnChoice{
				index:  pref.Column,
				name:   nameAt(header, pref.Column, pref.ColumnName),
				source: model.ColumnSourceOverride,
			}
		}
	}

	if idx, ok := headerIndex(header, e.defaultColumnName); ok {
		return columnChoice{index: idx, name: header[idx-1], source: model.ColumnSourceDefaultHeader}
	}

	if idx, ok := e.defaultColumns[docType]; ok {
		return columnChoice{
			index:  idx,
			name:   nameAt(header, idx, ""),
			source: model.ColumnSourceDefaultPosition,
		}
	}
	return columnChoice{source: model.ColumnSourceNone}
}

func nameAt(header []string, idx int, fallback string) string {
	if idx >= 1 && idx <= len(header) {
		return strings.TrimSpace(header[idx-1])
	}
	return fallback
}

// Package manifest reads the xlsx ingestion manifest listing media items to
// process. Column positions are detected from header names so operators can
// hand over spreadsheets without a rigid template.
package manifest

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"media-insights-go/internal/types"
)

// Load reads the first sheet of the manifest, detecting columns by header
// heuristics. Rows without a usable source locator are skipped quietly.
func Load(path string) ([]types.MediaItem, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("manifest has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read manifest rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("manifest has no data rows")
	}

	idIdx, ownerIdx, bucketIdx, keyIdx, titleIdx := -1, -1, -1, -1, -1
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case idIdx == -1 && (l == "id" || strings.Contains(l, "media id") || strings.Contains(l, "mediaid")):
			idIdx = i
		case ownerIdx == -1 && strings.Contains(l, "owner"):
			ownerIdx = i
		case bucketIdx == -1 && strings.Contains(l, "bucket"):
			bucketIdx = i
		case keyIdx == -1 && (strings.Contains(l, "key") || strings.Contains(l, "object") || strings.Contains(l, "path")):
			keyIdx = i
		case titleIdx == -1 && (strings.Contains(l, "title") || strings.Contains(l, "name")):
			titleIdx = i
		}
	}

	cell := func(r []string, idx int) string {
		if idx >= 0 && idx < len(r) {
			return strings.TrimSpace(r[idx])
		}
		return ""
	}

	var out []types.MediaItem
	for i, r := range rows {
		if i == 0 {
			continue
		}
		item := types.MediaItem{
			ID:      cell(r, idIdx),
			OwnerID: cell(r, ownerIdx),
			Title:   cell(r, titleIdx),
			Source: types.SourceLocator{
				Bucket: cell(r, bucketIdx),
				Key:    cell(r, keyIdx),
			},
		}
		// rows without a locator can't be processed; skip quietly
		if item.Source.Bucket == "" || item.Source.Key == "" {
			continue
		}
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		if item.OwnerID == "" {
			item.OwnerID = "default"
		}
		out = append(out, item)
	}
	return out, nil
}

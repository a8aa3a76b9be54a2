package manifest

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeManifest(t *testing.T, headers []string, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, h))
	}
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}

	path := filepath.Join(t.TempDir(), "manifest.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoad_DetectsColumnsByHeader(t *testing.T) {
	path := writeManifest(t,
		[]string{"Media ID", "Owner", "Bucket", "Object Key", "Title"},
		[][]string{
			{"m1", "alice", "media", "videos/keynote.mp4", "Keynote"},
			{"m2", "bob", "media", "videos/demo.mp4", "Demo Day"},
		})

	items, err := Load(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "m1", items[0].ID)
	assert.Equal(t, "alice", items[0].OwnerID)
	assert.Equal(t, "media", items[0].Source.Bucket)
	assert.Equal(t, "videos/keynote.mp4", items[0].Source.Key)
	assert.Equal(t, "Keynote", items[0].Title)
	assert.Equal(t, "Demo Day", items[1].Title)
}

func TestLoad_SkipsRowsWithoutLocator(t *testing.T) {
	path := writeManifest(t,
		[]string{"id", "owner", "bucket", "key", "title"},
		[][]string{
			{"m1", "alice", "media", "a.mp4", "ok"},
			{"m2", "alice", "", "b.mp4", "no bucket"},
			{"m3", "alice", "media", "", "no key"},
		})

	items, err := Load(path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "m1", items[0].ID)
}

func TestLoad_FillsMissingIDAndOwner(t *testing.T) {
	path := writeManifest(t,
		[]string{"id", "owner", "bucket", "key"},
		[][]string{
			{"", "", "media", "a.mp4"},
		})

	items, err := Load(path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	_, err = uuid.Parse(items[0].ID)
	assert.NoError(t, err, "missing id gets a generated uuid")
	assert.Equal(t, "default", items[0].OwnerID)
}

func TestLoad_AlternateHeaderSpellings(t *testing.T) {
	path := writeManifest(t,
		[]string{"MediaId", "Owner Email", "S3 Bucket", "Object Path", "Video Name"},
		[][]string{
			{"m1", "alice@example.com", "media", "clips/one.mp4", "Clip One"},
		})

	items, err := Load(path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "alice@example.com", items[0].OwnerID)
	assert.Equal(t, "clips/one.mp4", items[0].Source.Key)
	assert.Equal(t, "Clip One", items[0].Title)
}

func TestLoad_NoDataRowsIsAnError(t *testing.T) {
	path := writeManifest(t, []string{"id", "owner", "bucket", "key"}, nil)
	_, err := Load(path)
	require.Error(t, err)
}

package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novaocr/novaocr/constants"
	"github.com/novaocr/novaocr/internal/common"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}
}

func baseNames(files []*SourceFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = filepath.Base(f.Path)
	}
	return out
}

func TestScan_FiltersAndNaturallySorts(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "page10.png", "page2.jpg", "page1.pdf", "notes.txt", ".hidden.png", "cover.webp")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	touch(t, filepath.Join(dir, "sub"), "nested.png") // not scanned: top level only

	files, err := Scan(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"cover.webp", "page1.pdf", "page2.jpg", "page10.png"}, baseNames(files))

	for _, f := range files {
		assert.True(t, filepath.IsAbs(f.Path))
		assert.Equal(t, constants.StatusPending, f.Status())
	}
	assert.Equal(t, constants.MediaKindPDF, files[1].Kind)
	assert.Equal(t, constants.MediaKindImage, files[2].Kind)
}

func TestScan_EmptyFolderFails(t *testing.T) {
	dir := t.TempDir()

	_, err := Scan(dir, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoValidFiles)
}

func TestScan_NoMatchingFilesFails(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "readme.md", "data.csv")

	_, err := Scan(dir, nil)
	assert.ErrorIs(t, err, common.ErrNoValidFiles)
}

func TestScan_MissingFolderFails(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "nope"), nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrNoValidFiles)
}

func TestScan_FileInsteadOfFolderFails(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "single.png")

	_, err := Scan(filepath.Join(dir, "single.png"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestDetectDuplicates(t *testing.T) {
	dups := detectDuplicates([]string{"Page1.PNG", "page1.png", "page2.png"})
	require.Len(t, dups, 1)
	assert.Contains(t, dups[0], "Page1.PNG")

	assert.Empty(t, detectDuplicates([]string{"a.png", "b.png"}))
}

package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/novaocr/novaocr/constants"
	"github.com/novaocr/novaocr/internal/common"
)

// Scan lists the recognized files directly under folder, naturally sorted by
// name. It fails with a NoValidFilesError when nothing matches; that check
// runs before any network call is made.
func Scan(folder string, logger *slog.Logger) ([]*SourceFile, error) {
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("stat folder: %w", err)
	}
	if !info.IsDir() {
		return nil, common.NewAppError("NOT_A_DIRECTORY", folder, common.ErrInvalidInput)
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read folder: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if constants.IsAllowedExt(filepath.Ext(e.Name())) {
			names = append(names, e.Name())
		}
	}

	if len(names) == 0 {
		return nil, common.NewNoValidFilesError(folder)
	}

	sort.Slice(names, func(i, j int) bool {
		return naturalLess(names[i], names[j])
	})

	files := make([]*SourceFile, 0, len(names))
	for _, name := range names {
		abs, err := filepath.Abs(filepath.Join(folder, name))
		if err != nil {
			abs = filepath.Join(folder, name)
		}
		files = append(files, NewSourceFile(abs))
	}

	if dups := detectDuplicates(names); len(dups) > 0 {
		logger.Warn("scan.duplicate_names", "folder", folder, "duplicates", dups)
	}

	logger.Info("scan.ok", "folder", folder, "files", len(files))
	return files, nil
}

// detectDuplicates finds names colliding case-insensitively. Such pairs end
// up adjacent in the sorted output and usually mean a stray copy.
func detectDuplicates(names []string) []string {
	seen := map[string]string{}
	var dups []string
	for _, n := range names {
		key := strings.ToLower(n)
		if prev, ok := seen[key]; ok {
			dups = append(dups, prev+" / "+n)
		} else {
			seen[key] = n
		}
	}
	return dups
}

package logging

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Cleaner deletes run logs older than the retention period.
type Cleaner struct {
	baseDir       string
	retentionDays int
	now           func() time.Time
}

// NewCleaner creates a new Cleaner with the specified base directory and retention period.
func NewCleaner(baseDir string, retentionDays int) *Cleaner {
	return &Cleaner{baseDir: baseDir, retentionDays: retentionDays, now: time.Now}
}

// Cleanup removes .log files older than the retention period, then any
// directories left empty. Returns the number of files deleted.
func (c *Cleaner) Cleanup() (int, error) {
	threshold := c.now().AddDate(0, 0, -c.retentionDays)
	var deleted int
	var dirs []string

	err := filepath.WalkDir(c.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are left for the next pass.
			return nil
		}
		if d.IsDir() {
			if path != c.baseDir {
				dirs = append(dirs, path)
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".log") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(threshold) && os.Remove(path) == nil {
			deleted++
		}
		return nil
	})

	c.removeEmptyDirs(dirs)

	return deleted, err
}

// removeEmptyDirs removes empty directories deepest first, so a parent
// emptied by removing its children goes in the same pass.
func (c *Cleaner) removeEmptyDirs(dirs []string) {
	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], string(os.PathSeparator)) > strings.Count(dirs[j], string(os.PathSeparator))
	})
	for _, dir := range dirs {
		if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
			os.Remove(dir)
		}
	}
}

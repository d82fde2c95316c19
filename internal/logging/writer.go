package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RunEntry identifies one review run for its log file.
type RunEntry struct {
	RunID      string
	Repository string // owner/name, possibly with nested groups
	Number     int
	Timestamp  time.Time
}

// Writer manages log files organized by repository and change request.
type Writer struct {
	baseDir string
}

// NewWriter creates a new Writer with the specified base directory.
func NewWriter(baseDir string) *Writer {
	return &Writer{baseDir: baseDir}
}

// Create creates a new log file for the given entry and returns the path.
// Directory structure: baseDir/owner/repo/number/timestamp-runID.log
func (w *Writer) Create(entry RunEntry) (string, error) {
	parts := []string{w.baseDir}
	for _, seg := range strings.Split(entry.Repository, "/") {
		parts = append(parts, safeSegment(seg))
	}
	parts = append(parts, fmt.Sprint(entry.Number))
	dir := filepath.Join(parts...)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating log directory: %w", err)
	}

	filename := fmt.Sprintf("%s-%s.log",
		entry.Timestamp.UTC().Format("2006-01-02T15-04-05"),
		safeSegment(entry.RunID),
	)

	path := filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating log file: %w", err)
	}
	f.Close()

	return path, nil
}

// safeSegment keeps repository names from escaping the base directory.
func safeSegment(s string) string {
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return strings.NewReplacer(`\`, "_", string(os.PathSeparator), "_").Replace(s)
}

// RunLogger returns a logger that writes to base and, as JSON, to a fresh log
// file for the run. The returned func flushes and closes the file. Fields
// already attached to base are not written to the file; add them afterwards.
func (w *Writer) RunLogger(base *zap.SugaredLogger, entry RunEntry) (*zap.SugaredLogger, func() error, error) {
	path, err := w.Create(entry)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zapcore.DebugLevel)

	logger := base.Desugar().WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	})).Sugar()

	closeFn := func() error {
		_ = fileCore.Sync()
		return f.Close()
	}
	return logger, closeFn, nil
}

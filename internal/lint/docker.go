package lint

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/drewdunne/codecritic/internal/analysis"
	"github.com/drewdunne/codecritic/internal/config"
	"github.com/drewdunne/codecritic/internal/docker"
	"github.com/drewdunne/codecritic/internal/provider"
)

const (
	// SourceDir is where the snippet directory is mounted in the container.
	SourceDir = "/src"

	// FilePlaceholder in the configured command is replaced by the snippet
	// path. Without it the path is appended.
	FilePlaceholder = "{file}"
)

// ContainerRunner is the subset of docker.Client the analyzer needs.
type ContainerRunner interface {
	CreateContainer(ctx context.Context, cfg docker.ContainerConfig) (string, error)
	StartContainer(ctx context.Context, id string) error
	WaitContainer(ctx context.Context, id string) (int64, error)
	GetContainerLogs(ctx context.Context, id string) (io.ReadCloser, error)
	RemoveContainer(ctx context.Context, id string, force bool) error
}

// DockerAnalyzer runs an external linter image over the new side of a diff.
type DockerAnalyzer struct {
	runner  ContainerRunner
	image   string
	command []string
	timeout time.Duration
	logger  *zap.SugaredLogger
}

var _ analysis.StaticAnalyzer = (*DockerAnalyzer)(nil)

// NewDockerAnalyzer creates an analyzer running cfg.Image with cfg.Command.
func NewDockerAnalyzer(runner ContainerRunner, cfg config.DockerConfig, logger *zap.SugaredLogger) *DockerAnalyzer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &DockerAnalyzer{
		runner:  runner,
		image:   cfg.Image,
		command: cfg.Command,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		logger:  logger,
	}
}

// AnalyzeStatic writes the reconstructed snippet to a temp dir, lints it in
// a throwaway container, and maps findings on added lines back to file
// line numbers.
func (d *DockerAnalyzer) AnalyzeStatic(ctx context.Context, file provider.ChangedFile) ([]analysis.Issue, error) {
	lines := ParseDiff(file.Diff)
	if len(AddedLines(lines)) == 0 {
		return nil, nil
	}

	dir, err := os.MkdirTemp("", "codecritic-lint-")
	if err != nil {
		return nil, fmt.Errorf("creating snippet dir: %w", err)
	}
	defer os.RemoveAll(dir)

	name := path.Base(file.Path)
	if err := os.WriteFile(filepath.Join(dir, name), []byte(snippet(lines)), 0o644); err != nil {
		return nil, fmt.Errorf("writing snippet: %w", err)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	output, err := d.run(ctx, dir, name)
	if err != nil {
		return nil, err
	}

	return mapFindings(ParseOutput(output, name), lines), nil
}

func (d *DockerAnalyzer) run(ctx context.Context, dir, name string) (string, error) {
	id, err := d.runner.CreateContainer(ctx, docker.ContainerConfig{
		Image:       d.image,
		WorkDir:     SourceDir,
		Cmd:         d.buildCommand(SourceDir + "/" + name),
		Mounts:      []docker.Mount{{Source: dir, Target: SourceDir, ReadOnly: true}},
		NetworkMode: "none",
		Labels:      map[string]string{"codecritic.role": "lint"},
	})
	if err != nil {
		return "", err
	}
	defer func() {
		// The run context may already be done.
		rmCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.runner.RemoveContainer(rmCtx, id, true); err != nil {
			d.logger.Warnw("failed to remove lint container", "container_id", id, "error", err)
		}
	}()

	if err := d.runner.StartContainer(ctx, id); err != nil {
		return "", fmt.Errorf("starting lint container: %w", err)
	}

	code, err := d.runner.WaitContainer(ctx, id)
	if err != nil {
		return "", err
	}

	logs, err := d.runner.GetContainerLogs(ctx, id)
	if err != nil {
		return "", fmt.Errorf("reading lint output: %w", err)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if err := docker.ReadLogs(logs, &stdout, &stderr); err != nil {
		return "", err
	}

	// Linters exit non-zero when they find something; only an empty report
	// with a failing exit code is an error.
	if code != 0 && strings.TrimSpace(stdout.String()) == "" {
		return "", fmt.Errorf("linter exited with code %d: %s", code, firstLine(stderr.String()))
	}

	d.logger.Debugw("lint container finished", "container_id", id, "exit_code", code)
	return stdout.String() + stderr.String(), nil
}

func (d *DockerAnalyzer) buildCommand(file string) []string {
	cmd := make([]string, 0, len(d.command)+1)
	replaced := false
	for _, arg := range d.command {
		if strings.Contains(arg, FilePlaceholder) {
			arg = strings.ReplaceAll(arg, FilePlaceholder, file)
			replaced = true
		}
		cmd = append(cmd, arg)
	}
	if !replaced {
		cmd = append(cmd, file)
	}
	return cmd
}

// snippet joins the new-side lines. Line i of the snippet is lines[i-1].
func snippet(lines []Line) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Finding is one parsed linter message, positioned in the snippet.
type Finding struct {
	Line     int
	Column   *int
	Severity analysis.Severity
	Message  string
}

var findingPattern = regexp.MustCompile(`^(?:\[(ERROR|WARN|WARNING|INFO)\]\s+)?(\S+?):(\d+)(?::(\d+))?:\s*(.+)$`)

// ParseOutput extracts `path:line[:col]: message` findings for file name.
// A leading `[ERROR]` maps to medium severity, anything else to low.
func ParseOutput(output, name string) []Finding {
	var findings []Finding
	for _, raw := range strings.Split(output, "\n") {
		m := findingPattern.FindStringSubmatch(strings.TrimSpace(raw))
		if m == nil || path.Base(m[2]) != name {
			continue
		}

		f := Finding{Severity: analysis.SeverityLow, Message: strings.TrimSpace(m[5])}
		if m[1] == "ERROR" {
			f.Severity = analysis.SeverityMedium
		}
		f.Line, _ = strconv.Atoi(m[3])
		if m[4] != "" {
			col, _ := strconv.Atoi(m[4])
			f.Column = &col
		}
		findings = append(findings, f)
	}
	return findings
}

func mapFindings(findings []Finding, lines []Line) []analysis.Issue {
	var issues []analysis.Issue
	for _, f := range findings {
		if f.Line < 1 || f.Line > len(lines) {
			continue
		}
		src := lines[f.Line-1]
		if !src.Added {
			continue
		}
		issues = append(issues, analysis.Issue{
			Description: f.Message,
			Severity:    f.Severity,
			Line:        src.Number,
			Column:      f.Column,
		})
	}
	return issues
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

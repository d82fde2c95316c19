package lint

import (
	"context"

	"github.com/drewdunne/codecritic/internal/analysis"
	"github.com/drewdunne/codecritic/internal/provider"
)

// Chain runs analyzers in order and concatenates their issues. The first
// error fails the whole file.
type Chain []analysis.StaticAnalyzer

var _ analysis.StaticAnalyzer = Chain(nil)

// AnalyzeStatic implements analysis.StaticAnalyzer.
func (c Chain) AnalyzeStatic(ctx context.Context, file provider.ChangedFile) ([]analysis.Issue, error) {
	var all []analysis.Issue
	for _, a := range c {
		issues, err := a.AnalyzeStatic(ctx, file)
		if err != nil {
			return nil, err
		}
		all = append(all, issues...)
	}
	return all, nil
}

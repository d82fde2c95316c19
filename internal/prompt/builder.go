package prompt

import (
	"fmt"
	"path"
	"strings"

	"github.com/drewdunne/codecritic/internal/provider"
)

// language describes how a file type is named and fenced.
type language struct {
	name  string
	fence string
}

var languages = map[string]language{
	".java":  {"Java", "java"},
	".kt":    {"Kotlin", "kotlin"},
	".go":    {"Go", "go"},
	".py":    {"Python", "python"},
	".js":    {"JavaScript", "javascript"},
	".ts":    {"TypeScript", "typescript"},
	".rb":    {"Ruby", "ruby"},
	".rs":    {"Rust", "rust"},
	".cs":    {"C#", "csharp"},
	".scala": {"Scala", "scala"},
}

// Checklist is the set of aspects every review is asked to cover.
var Checklist = []string{
	"Code quality and maintainability",
	"Potential bugs or edge cases",
	"Performance issues",
	"Security vulnerabilities",
	"Adherence to %s best practices",
}

// Builder constructs review prompts for the generative reviewer.
type Builder struct{}

// NewBuilder creates a new prompt builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build returns the system and user prompts for reviewing one file's diff.
func (b *Builder) Build(file provider.ChangedFile) (system, user string) {
	lang := languageFor(file.Path)
	return b.buildSystem(lang), b.buildUser(file, lang)
}

func languageFor(p string) language {
	if lang, ok := languages[strings.ToLower(path.Ext(p))]; ok {
		return lang
	}
	return language{name: "source", fence: ""}
}

func (b *Builder) buildSystem(lang language) string {
	return fmt.Sprintf("You are CodeCritic, an expert %s code reviewer with deep knowledge of best practices, "+
		"design patterns, and performance optimization. Review the following %s code diff and "+
		"provide constructive feedback.", lang.name, lang.name)
}

func (b *Builder) buildUser(file provider.ChangedFile, lang language) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Here is the %s code to review from `%s`:\n\n", lang.name, file.Path)
	fmt.Fprintf(&sb, "```%s\n%s\n```\n\n", lang.fence, strings.TrimRight(file.Diff, "\n"))

	sb.WriteString("Please analyze for:\n")
	for i, item := range Checklist {
		if strings.Contains(item, "%s") {
			item = fmt.Sprintf(item, lang.name)
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, item)
	}
	sb.WriteString("\nFormat your response with section headers and bullet points as appropriate.")

	return sb.String()
}

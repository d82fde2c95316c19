package prompt

import (
	"strings"
	"testing"

	"github.com/drewdunne/codecritic/internal/provider"
)

func TestBuilder_Build(t *testing.T) {
	builder := NewBuilder()

	file := provider.ChangedFile{
		Path: "src/main/java/App.java",
		Kind: provider.ChangeModified,
		Diff: "@@ -1,3 +1,4 @@\n class App {\n+  int x;\n }\n",
	}

	system, user := builder.Build(file)

	if !strings.Contains(system, "You are CodeCritic, an expert Java code reviewer") {
		t.Errorf("system prompt missing persona: %q", system)
	}
	if !strings.Contains(user, "```java\n@@ -1,3 +1,4 @@") {
		t.Errorf("user prompt missing fenced diff: %q", user)
	}
	if !strings.Contains(user, "`src/main/java/App.java`") {
		t.Error("user prompt missing file path")
	}
	if !strings.Contains(user, "5. Adherence to Java best practices") {
		t.Errorf("user prompt missing checklist: %q", user)
	}
	if strings.Contains(user, "%s") {
		t.Error("user prompt has unformatted verb")
	}
}

func TestBuilder_LanguageFromExtension(t *testing.T) {
	tests := []struct {
		path  string
		name  string
		fence string
	}{
		{"main.go", "Go", "```go\n"},
		{"Main.KT", "Kotlin", "```kotlin\n"},
		{"Makefile", "source", "```\n"},
	}

	builder := NewBuilder()
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			system, user := builder.Build(provider.ChangedFile{Path: tt.path, Diff: "+x"})
			if !strings.Contains(system, "expert "+tt.name+" code reviewer") {
				t.Errorf("system = %q, want language %q", system, tt.name)
			}
			if !strings.Contains(user, tt.fence) {
				t.Errorf("user prompt missing fence %q", tt.fence)
			}
		})
	}
}

func TestBuilder_Deterministic(t *testing.T) {
	builder := NewBuilder()
	file := provider.ChangedFile{Path: "A.java", Diff: "+class A {}"}

	s1, u1 := builder.Build(file)
	s2, u2 := builder.Build(file)
	if s1 != s2 || u1 != u2 {
		t.Error("Build() is not deterministic")
	}
}

package app

import "testing"

func TestExtractCodeBlocks(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "single fenced block is stripped of fences",
			raw:  "Here is the function:\n```go\nfunc add(a, b int) int { return a + b }\n```\nHope that helps!",
			want: "func add(a, b int) int { return a + b }",
		},
		{
			name: "two blocks joined by a blank line in order",
			raw:  "First:\n```python\nprint(\"a\")\n```\nThen:\n```python\nprint(\"b\")\n```",
			want: "print(\"a\")\n\nprint(\"b\")",
		},
		{
			name: "info string on the fence is dropped",
			raw:  "```typescript\nconst x: number = 1;\n```",
			want: "const x: number = 1;",
		},
		{
			name: "no fenced block returns raw text verbatim",
			raw:  "Sorry, I can only explain the concept in prose.",
			want: "Sorry, I can only explain the concept in prose.",
		},
		{
			name: "empty reply stays empty",
			raw:  "",
			want: "",
		},
		{
			name: "fence without closing marker is not a block",
			raw:  "```go\nfunc main() {}",
			want: "```go\nfunc main() {}",
		},
		{
			name: "only empty blocks falls back to raw text",
			raw:  "```\n\n```",
			want: "```\n\n```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractCodeBlocks(tt.raw)
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestRunFilter_Heuristic(t *testing.T) {
	tests := []struct {
		title string
		url   string
		want  string
	}{
		{"Chiefs sign veteran NFL tackle after Eagles visit", "", "NFL"},
		{"Stock markets rally on rate cut", "", "NON_NFL"},
		{"Chiefs notebook", "", "AMBIGUOUS"},
		{"New headline drops", "https://example.com/nfl/report", "NFL"},
	}
	for _, tt := range tests {
		filterTitle = tt.title
		filterURL = tt.url
		filterUseLLM = false

		cmd := &cobra.Command{}
		var out bytes.Buffer
		cmd.SetOut(&out)

		if err := runFilter(cmd, nil); err != nil {
			t.Fatalf("runFilter(%q): %v", tt.title, err)
		}
		if !strings.HasPrefix(out.String(), tt.want+" ") {
			t.Errorf("runFilter(%q) = %q, want label %q", tt.title, out.String(), tt.want)
		}
	}
}

func TestRunFilter_UseLLMWithoutKey(t *testing.T) {
	t.Setenv("GRIDWIRE_OPENAI_API_KEY", "")
	filterTitle = "Chiefs win opener"
	filterURL = ""
	filterUseLLM = true
	t.Cleanup(func() { filterUseLLM = false })

	if err := runFilter(&cobra.Command{}, nil); err == nil {
		t.Error("--use-llm without an API key should fail")
	}
}

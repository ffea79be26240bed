package prober_test

import (
	"strings"
	"testing"

	"github.com/citegap/citegap/internal/prober"
)

func TestExtractor_Extract_ProductMention(t *testing.T) {
	e := prober.NewExtractor("Acme", []string{"acme-tool"}, []string{"Rival", "Contender"})

	citation := e.Extract("For error tracking, Acme is a solid choice.")

	if !citation.ProductMentioned {
		t.Fatal("ProductMentioned = false, want true")
	}
	if citation.ProductPosition == nil || *citation.ProductPosition != 1 {
		t.Errorf("ProductPosition = %v, want 1", citation.ProductPosition)
	}
	if len(citation.CompetitorMentioned) != 0 {
		t.Errorf("CompetitorMentioned = %v, want empty", citation.CompetitorMentioned)
	}
	if citation.ProductContext == nil || !strings.Contains(*citation.ProductContext, "Acme") {
		t.Errorf("ProductContext = %v, want to contain the match", citation.ProductContext)
	}
}

func TestExtractor_Extract_PositionsFollowScanOrder(t *testing.T) {
	e := prober.NewExtractor("Acme", nil, []string{"Rival", "Contender"})

	// Contender appears first in the text, but positions follow the
	// tracked-name scan order, so Rival still ranks ahead of it.
	citation := e.Extract("Contender and Rival both beat Acme here.")

	if len(citation.MentionedTools) != 3 {
		t.Fatalf("MentionedTools count = %d, want 3", len(citation.MentionedTools))
	}

	wantOrder := []struct {
		tool     string
		position int
	}{
		{"Acme", 1},
		{"Rival", 2},
		{"Contender", 3},
	}
	for i, want := range wantOrder {
		got := citation.MentionedTools[i]
		if got.Tool != want.tool || got.Position != want.position {
			t.Errorf("mention[%d] = {%s %d}, want {%s %d}", i, got.Tool, got.Position, want.tool, want.position)
		}
	}
}

func TestExtractor_Extract_CaseInsensitive(t *testing.T) {
	e := prober.NewExtractor("Acme", nil, []string{"Rival"})

	citation := e.Extract("ACME and RIVAL are both popular.")

	if !citation.ProductMentioned {
		t.Error("ProductMentioned = false, want true")
	}
	if len(citation.CompetitorMentioned) != 1 || citation.CompetitorMentioned[0] != "Rival" {
		t.Errorf("CompetitorMentioned = %v, want [Rival]", citation.CompetitorMentioned)
	}
}

func TestExtractor_Extract_AliasCountsAsProduct(t *testing.T) {
	e := prober.NewExtractor("Acme", []string{"acme-cloud"}, []string{"Rival"})

	citation := e.Extract("Try acme-cloud for this workload.")

	if !citation.ProductMentioned {
		t.Fatal("ProductMentioned = false, want true")
	}
	if len(citation.CompetitorMentioned) != 0 {
		t.Errorf("CompetitorMentioned = %v, want empty", citation.CompetitorMentioned)
	}
}

func TestExtractor_Extract_NoMentions(t *testing.T) {
	e := prober.NewExtractor("Acme", nil, []string{"Rival"})

	citation := e.Extract("Nothing relevant in this answer.")

	if citation.ProductMentioned {
		t.Error("ProductMentioned = true, want false")
	}
	if citation.ProductPosition != nil {
		t.Errorf("ProductPosition = %v, want nil", citation.ProductPosition)
	}
	if len(citation.MentionedTools) != 0 {
		t.Errorf("MentionedTools = %v, want empty", citation.MentionedTools)
	}
}

func TestExtractor_Extract_ContextIsBounded(t *testing.T) {
	e := prober.NewExtractor("Acme", nil, nil)

	padding := strings.Repeat("x", 200)
	citation := e.Extract(padding + " Acme " + padding)

	if len(citation.MentionedTools) != 1 {
		t.Fatalf("MentionedTools count = %d, want 1", len(citation.MentionedTools))
	}

	context := citation.MentionedTools[0].Context
	// 50 chars either side plus the match itself.
	if len(context) > 50+len("acme")+50 {
		t.Errorf("context length = %d, want <= %d", len(context), 104)
	}
	if !strings.Contains(context, "Acme") {
		t.Errorf("context %q does not contain the match", context)
	}
}

func TestExtractor_Extract_RecordsResponse(t *testing.T) {
	e := prober.NewExtractor("Acme", nil, nil)

	response := "A short answer."
	citation := e.Extract(response)

	if citation.FullResponse != response {
		t.Errorf("FullResponse = %q, want %q", citation.FullResponse, response)
	}
	if citation.ResponseLength != len(response) {
		t.Errorf("ResponseLength = %d, want %d", citation.ResponseLength, len(response))
	}
}

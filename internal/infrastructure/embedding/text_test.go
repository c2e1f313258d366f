package embedding

import (
	"strings"
	"testing"

	"feedranker/internal/domain"
)

func TestBuildEmbedTextStripsMarkup(t *testing.T) {
	t.Parallel()

	article := domain.Article{
		ID:      "a1",
		Title:   "Plain title",
		Summary: "<p>First paragraph.</p>\n<p>Second &amp; <b>bold</b>.</p>",
	}

	got := BuildEmbedText(article, false)
	if strings.Contains(got, "<") || strings.Contains(got, "&amp;") {
		t.Fatalf("markup leaked into embed text: %q", got)
	}
	if !strings.Contains(got, "First paragraph.") || !strings.Contains(got, "Second & bold.") {
		t.Fatalf("summary prose missing: %q", got)
	}
}

func TestBuildEmbedTextMetadata(t *testing.T) {
	t.Parallel()

	article := domain.Article{
		ID:         "a1",
		Title:      "Title",
		Summary:    "Summary",
		CategoryID: "tech",
		SourceID:   "wire",
	}

	without := BuildEmbedText(article, false)
	if strings.Contains(without, "category:") || strings.Contains(without, "source:") {
		t.Fatalf("metadata must be omitted by default: %q", without)
	}

	with := BuildEmbedText(article, true)
	if !strings.Contains(with, "category: tech") || !strings.Contains(with, "source: wire") {
		t.Fatalf("metadata labels missing: %q", with)
	}
}

func TestBuildEmbedTextSkipsEmptyParts(t *testing.T) {
	t.Parallel()

	article := domain.Article{ID: "a1", Title: "Only title"}
	got := BuildEmbedText(article, true)
	if got != "Only title" {
		t.Fatalf("expected bare title, got %q", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()

	if got := collapseWhitespace("  a \n\t b  "); got != "a b" {
		t.Fatalf("expected %q, got %q", "a b", got)
	}
}

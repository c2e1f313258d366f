package embedding

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"feedranker/internal/domain"
)

// BuildEmbedText assembles the text the provider should embed for an
// article. Aggregated summaries frequently carry HTML markup; it is stripped
// so the vector reflects the prose, not the tags. Category and source labels
// are appended only when the user's settings ask for metadata in embeddings.
func BuildEmbedText(article domain.Article, includeMetadata bool) string {
	parts := []string{
		stripMarkup(article.Title),
		stripMarkup(article.Summary),
	}
	if includeMetadata {
		if article.CategoryID != "" {
			parts = append(parts, "category: "+article.CategoryID)
		}
		if article.SourceID != "" {
			parts = append(parts, "source: "+article.SourceID)
		}
	}

	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}

func stripMarkup(text string) string {
	if !strings.Contains(text, "<") {
		return collapseWhitespace(text)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return collapseWhitespace(text)
	}
	return collapseWhitespace(doc.Text())
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

package bgg

import (
	"strconv"

	"github.com/go-bgg-gateway/internal/domain"
)

// ParseSearch maps a search response to results in BGG's order. Items without a numeric
// id are skipped.
func ParseSearch(doc *Document) []domain.SearchResult {
	results := make([]domain.SearchResult, 0)
	if doc == nil {
		return results
	}
	for _, item := range doc.Root.All("item") {
		id, err := strconv.Atoi(item.Attr("id"))
		if err != nil {
			continue
		}
		res := domain.SearchResult{ID: id, Name: primaryName(item)}
		if y, err := strconv.Atoi(item.First("yearpublished").Attr("value")); err == nil {
			res.Year = &y
		}
		results = append(results, res)
	}
	return results
}

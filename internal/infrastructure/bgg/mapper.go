package bgg

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-bgg-gateway/internal/domain"
)

// Complexity weight thresholds, following BGG community conventions.
const (
	hardWeight   = 3.25
	mediumWeight = 2.25
)

// BGG double-encodes these two entities in descriptions; nothing else is decoded.
var descriptionReplacer = strings.NewReplacer("&#10;", "\n", "&quot;", `"`)

// MapThing converts a BGG thing <item> into the cached game document, stamped with now.
func MapThing(item *Node, now time.Time) domain.Game {
	id, _ := strconv.Atoi(item.Attr("id"))

	minPlayers := intValue(item.First("minplayers"))
	maxPlayers := intValue(item.First("maxplayers"))
	minPlaytime := intValue(item.First("minplaytime"))
	maxPlaytime := intValue(item.First("maxplaytime"))
	weight := number(item.Path("statistics", "ratings", "averageweight").Attr("value"))

	categories := make([]string, 0)
	for _, link := range item.All("link") {
		if link.Attr("type") == "boardgamecategory" {
			categories = append(categories, link.Attr("value"))
		}
	}
	category := domain.DefaultCategory
	if len(categories) > 0 {
		category = categories[0]
	}

	return domain.Game{
		BggID:         id,
		Name:          primaryName(item),
		Picture:       picture(item),
		Description:   descriptionReplacer.Replace(item.First("description").Text()),
		MinPlayers:    minPlayers,
		MaxPlayers:    maxPlayers,
		MinPlaytime:   minPlaytime,
		MaxPlaytime:   maxPlaytime,
		Duration:      Duration(minPlaytime, maxPlaytime),
		Players:       Players(minPlayers, maxPlayers),
		Weight:        weight,
		Difficulty:    Difficulty(weight),
		Category:      category,
		Categories:    categories,
		Rank:          boardgameRank(item),
		LastFetchedAt: now.Unix(),
	}
}

// Difficulty buckets a BGG complexity weight.
func Difficulty(weight float64) string {
	switch {
	case weight >= hardWeight:
		return domain.DifficultyHard
	case weight >= mediumWeight:
		return domain.DifficultyMedium
	default:
		return domain.DifficultyEasy
	}
}

// Duration renders a playtime range, e.g. "60–90 min".
func Duration(minPlaytime, maxPlaytime int) string {
	switch {
	case minPlaytime != 0 && maxPlaytime != 0:
		return fmt.Sprintf("%d–%d min", minPlaytime, maxPlaytime)
	case minPlaytime != 0:
		return fmt.Sprintf("%d min", minPlaytime)
	default:
		return ""
	}
}

// Players renders a player-count range, e.g. "3-4 Players".
func Players(minPlayers, maxPlayers int) string {
	switch {
	case minPlayers != 0 && maxPlayers != 0:
		return fmt.Sprintf("%d-%d Players", minPlayers, maxPlayers)
	case minPlayers != 0:
		return fmt.Sprintf("%d+ Players", minPlayers)
	default:
		return ""
	}
}

// primaryName prefers the name marked primary, then the first name listed.
func primaryName(item *Node) string {
	names := item.All("name")
	for _, n := range names {
		if n.Attr("type") == "primary" {
			return n.Attr("value")
		}
	}
	if len(names) > 0 {
		return names[0].Attr("value")
	}
	return ""
}

func picture(item *Node) string {
	if img := item.First("image").Text(); img != "" {
		return img
	}
	return item.First("thumbnail").Text()
}

// boardgameRank returns nil for unranked games; BGG reports those as "Not Ranked".
func boardgameRank(item *Node) *int {
	for _, r := range item.Path("statistics", "ratings", "ranks").All("rank") {
		if r.Attr("name") != "boardgame" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Attr("value")), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return nil
		}
		rank := int(v)
		return &rank
	}
	return nil
}

func intValue(n *Node) int {
	return int(number(n.Attr("value")))
}

func number(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

package domain

import "time"

// GameCacheTTL is how long a cached game document is served before it is refetched from BGG.
const GameCacheTTL = 30 * 24 * time.Hour

const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"

	// DefaultCategory is used when BGG lists no boardgamecategory links.
	DefaultCategory = "Other"
)

// Game is the normalized, cacheable form of a BGG "thing".
// PK: bgg_id.
type Game struct {
	BggID         int      `json:"bggId" dynamodbav:"bgg_id"`
	Name          string   `json:"name" dynamodbav:"name"`
	Picture       string   `json:"picture" dynamodbav:"picture"`
	Description   string   `json:"description" dynamodbav:"description"`
	MinPlayers    int      `json:"minPlayers" dynamodbav:"min_players"`
	MaxPlayers    int      `json:"maxPlayers" dynamodbav:"max_players"`
	MinPlaytime   int      `json:"minPlaytime" dynamodbav:"min_playtime"`
	MaxPlaytime   int      `json:"maxPlaytime" dynamodbav:"max_playtime"`
	Duration      string   `json:"duration" dynamodbav:"duration"`
	Players       string   `json:"players" dynamodbav:"players"`
	Weight        float64  `json:"weight" dynamodbav:"weight"`
	Difficulty    string   `json:"difficulty" dynamodbav:"difficulty"`
	Category      string   `json:"category" dynamodbav:"category"`
	Categories    []string `json:"categories" dynamodbav:"categories"`
	Rank          *int     `json:"rank" dynamodbav:"rank"`
	LastFetchedAt int64    `json:"lastFetchedAt" dynamodbav:"last_fetched_at"` // Unix seconds
}

// IsFresh reports whether the document was fetched less than GameCacheTTL before now.
func (g *Game) IsFresh(now time.Time) bool {
	return now.Unix()-g.LastFetchedAt < int64(GameCacheTTL/time.Second)
}

// SearchResult is a single BGG search hit. Year is nil when BGG lists no publication year.
type SearchResult struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Year *int   `json:"year"`
}

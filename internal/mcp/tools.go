package mcp

import "github.com/mark3labs/mcp-go/mcp"

var listToolDef = mcp.NewTool("breeds_list",
	mcp.WithDescription("List cached cat breeds. Fetches from TheCatAPI when the cache is empty or refresh is true. "+
		"A failed refresh falls back to the cache when one exists."),
	mcp.WithBoolean("refresh",
		mcp.Description("Query the remote API even when a cache exists (default false)"),
	),
)

var searchToolDef = mcp.NewTool("breeds_search",
	mcp.WithDescription("Search cached breeds by name. Matching is a case-sensitive substring match; an empty query returns all breeds."),
	mcp.WithString("query",
		mcp.Description("Substring of the breed name"),
	),
)

var getToolDef = mcp.NewTool("breeds_get",
	mcp.WithDescription("Get one cached breed by id."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Breed id, e.g. abys"),
	),
)

var toggleFavoriteToolDef = mcp.NewTool("breeds_toggle_favorite",
	mcp.WithDescription("Flip the favorite flag of a cached breed and return the updated record."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Breed id"),
	),
)

var favoritesToolDef = mcp.NewTool("breeds_favorites",
	mcp.WithDescription("List favorite breeds ordered by name."),
)

var statusToolDef = mcp.NewTool("breeds_status",
	mcp.WithDescription("Show the number of cached breeds and recent refresh attempts, newest first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum refresh attempts to return (default 10)"),
	),
)

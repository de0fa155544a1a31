package config

// Default paths for databases
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./savepoint.db"
)

// Default upstream endpoints
const (
	DefaultSteamBaseURL   = "https://api.steampowered.com"
	DefaultIGDBBaseURL    = "https://api.igdb.com/v4"
	DefaultTwitchTokenURL = "https://id.twitch.tv/oauth2/token"
)

package config

// Default paths used when the config leaves them unset.
const (
	DefaultConfigPath   = "/usr/local/etc/habitsim/config.yaml"
	DefaultModelPath    = "/usr/local/var/habitsim/models/habit_tfidf.json"
	DefaultDatabasePath = "/usr/local/var/habitsim/data/habits.db"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst <= 0 {
		cfg.Server.RateBurst = 20
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = DefaultDatabasePath
	}
	if cfg.Model.Path == "" {
		cfg.Model.Path = DefaultModelPath
	}
	if cfg.Model.DefaultTopN <= 0 {
		cfg.Model.DefaultTopN = 5
	}
	if cfg.Model.CacheSize == 0 {
		cfg.Model.CacheSize = 16
	}
	if cfg.Model.Watch == nil {
		t := true
		cfg.Model.Watch = &t
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.KeywordWeight == 0 && cfg.Search.SemanticWeight == 0 {
		cfg.Search.KeywordWeight = 0.5
		cfg.Search.SemanticWeight = 0.5
	}
	if cfg.Search.DefaultLimit > cfg.Search.MaxLimit {
		cfg.Search.DefaultLimit = cfg.Search.MaxLimit
	}
}

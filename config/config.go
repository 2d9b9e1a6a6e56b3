package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Logging             LoggingConfig `yaml:"logging"`
	MongoURI            string        `yaml:"mongo_uri"`
	MongoDBName         string        `yaml:"mongo_db_name"`
	GeminiModel         string        `yaml:"gemini_model"`
	GeminiMaxTokens     int           `yaml:"gemini_max_tokens"`
	GeminiApiKey        string        `yaml:"-"`
	EmbeddingModel      string        `yaml:"embedding_model"`
	EmbeddingDimensions int           `yaml:"embedding_dimensions"`
	Engine              EngineConfig  `yaml:"engine"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// EngineConfig holds every tunable of the personalization and
// story-intelligence engine. Zero values are replaced by defaults in
// applyDefaults so a partial config.yaml stays valid.
type EngineConfig struct {
	// Interest profile
	LongTermWeight          float64 `yaml:"long_term_weight"`
	SessionWeight           float64 `yaml:"session_weight"`
	TimeDecayDays           int     `yaml:"time_decay_days"`
	InteractionLookbackDays int     `yaml:"interaction_lookback_days"`
	SessionLastN            int     `yaml:"session_last_n"`

	// Feed ranking
	FeedLookbackDays        int     `yaml:"feed_lookback_days"`
	DiversityPercentage     int     `yaml:"diversity_percentage"`
	DiversityMinSimilarity  float64 `yaml:"diversity_min_similarity"`
	DiversityMaxSimilarity  float64 `yaml:"diversity_max_similarity"`
	DiversityMinCredibility int     `yaml:"diversity_min_credibility"`

	// Story clustering
	ClusterEps            float64 `yaml:"cluster_eps"`
	ClusterMinPoints      int     `yaml:"cluster_min_points"`
	ClusterMatchThreshold float64 `yaml:"cluster_match_threshold"`
	ClusterLookbackDays   int     `yaml:"cluster_lookback_days"`
	ClusterIntervalHours  int     `yaml:"cluster_interval_hours"`

	// Deep research
	ResearchTopK            int `yaml:"research_top_k"`
	ResearchLookbackDays    int `yaml:"research_lookback_days"`
	ResearchMinCredibility  int `yaml:"research_min_credibility"`
	ResearchCacheTTLHours   int `yaml:"research_cache_ttl_hours"`
	InvalidationThreshold   int `yaml:"invalidation_threshold"`
	DefaultCredibilityScore int `yaml:"default_credibility_score"`
}

var config *AppConfig

func InitApp() {
	// load environment variables
	godotenv.Load(filepath.Join(GetBasePath(), ENV_FILE))

	// load configuration file
	data, err := os.ReadFile(filepath.Join(GetBasePath(), CONFIG_FILE))
	if err != nil {
		panic(err)
	}

	var c AppConfig
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		panic(err)
	}
	applyEnvOverrides(&c)
	applyDefaults(&c)
	config = &c
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

func applyEnvOverrides(c *AppConfig) {
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.MongoURI = v
	}
	if v := os.Getenv("MONGO_DB_NAME"); v != "" {
		c.MongoDBName = v
	}
	c.GeminiApiKey = os.Getenv("GEMINI_API_KEY")
}

func applyDefaults(c *AppConfig) {
	if c.MongoDBName == "" {
		c.MongoDBName = "newsiq"
	}
	if c.GeminiModel == "" {
		c.GeminiModel = "gemini-2.5-flash"
	}
	if c.GeminiMaxTokens == 0 {
		c.GeminiMaxTokens = 1024
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "text-embedding-004"
	}
	if c.EmbeddingDimensions == 0 {
		c.EmbeddingDimensions = 768
	}
	c.Engine = c.Engine.withDefaults()
}

func (e EngineConfig) withDefaults() EngineConfig {
	if e.LongTermWeight == 0 {
		e.LongTermWeight = 0.7
	}
	if e.SessionWeight == 0 {
		e.SessionWeight = 0.3
	}
	if e.TimeDecayDays == 0 {
		e.TimeDecayDays = 30
	}
	if e.InteractionLookbackDays == 0 {
		e.InteractionLookbackDays = 30
	}
	if e.SessionLastN == 0 {
		e.SessionLastN = 5
	}
	if e.FeedLookbackDays == 0 {
		e.FeedLookbackDays = 7
	}
	if e.DiversityPercentage == 0 {
		e.DiversityPercentage = 25
	}
	if e.DiversityMinSimilarity == 0 {
		e.DiversityMinSimilarity = 0.4
	}
	if e.DiversityMaxSimilarity == 0 {
		e.DiversityMaxSimilarity = 0.75
	}
	if e.DiversityMinCredibility == 0 {
		e.DiversityMinCredibility = 70
	}
	if e.ClusterEps == 0 {
		e.ClusterEps = 0.3
	}
	if e.ClusterMinPoints == 0 {
		e.ClusterMinPoints = 5
	}
	if e.ClusterMatchThreshold == 0 {
		e.ClusterMatchThreshold = 0.85
	}
	if e.ClusterLookbackDays == 0 {
		e.ClusterLookbackDays = 7
	}
	if e.ClusterIntervalHours == 0 {
		e.ClusterIntervalHours = 6
	}
	if e.ResearchTopK == 0 {
		e.ResearchTopK = 5
	}
	if e.ResearchLookbackDays == 0 {
		e.ResearchLookbackDays = 30
	}
	if e.ResearchMinCredibility == 0 {
		e.ResearchMinCredibility = 60
	}
	if e.ResearchCacheTTLHours == 0 {
		e.ResearchCacheTTLHours = 24
	}
	if e.InvalidationThreshold == 0 {
		e.InvalidationThreshold = 3
	}
	if e.DefaultCredibilityScore == 0 {
		e.DefaultCredibilityScore = 70
	}
	return e
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

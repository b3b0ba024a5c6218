package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Engine   EngineConfig
	Advisory AdvisoryConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EngineConfig tunes the genetic optimization loop.
type EngineConfig struct {
	PopulationSize  int
	Generations     int
	ElitismCount    int
	TournamentSize  int
	MutationRate    float64
	Workers         int
	CandidateCount  int
	ProposalTTL     time.Duration
	StagnationExit  int
	StagnationNudge int
}

// AdvisoryConfig wires the optional LLM advisor. Leaving BaseURL empty
// disables advisory calls entirely.
type AdvisoryConfig struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Engine = EngineConfig{
		PopulationSize:  v.GetInt("ENGINE_POPULATION_SIZE"),
		Generations:     v.GetInt("ENGINE_GENERATIONS"),
		ElitismCount:    v.GetInt("ENGINE_ELITISM_COUNT"),
		TournamentSize:  v.GetInt("ENGINE_TOURNAMENT_SIZE"),
		MutationRate:    v.GetFloat64("ENGINE_MUTATION_RATE"),
		Workers:         v.GetInt("ENGINE_WORKERS"),
		CandidateCount:  v.GetInt("ENGINE_CANDIDATE_COUNT"),
		ProposalTTL:     parseDuration(v.GetString("ENGINE_PROPOSAL_TTL"), 30*time.Minute),
		StagnationExit:  v.GetInt("ENGINE_STAGNATION_EXIT"),
		StagnationNudge: v.GetInt("ENGINE_STAGNATION_NUDGE"),
	}

	cfg.Advisory = AdvisoryConfig{
		BaseURL: v.GetString("ADVISORY_BASE_URL"),
		Model:   v.GetString("ADVISORY_MODEL"),
		APIKey:  v.GetString("ADVISORY_API_KEY"),
		Timeout: parseDuration(v.GetString("ADVISORY_TIMEOUT"), 15*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "uctp_engine")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENGINE_POPULATION_SIZE", 40)
	v.SetDefault("ENGINE_GENERATIONS", 120)
	v.SetDefault("ENGINE_ELITISM_COUNT", 2)
	v.SetDefault("ENGINE_TOURNAMENT_SIZE", 3)
	v.SetDefault("ENGINE_MUTATION_RATE", 0.25)
	v.SetDefault("ENGINE_WORKERS", 0)
	v.SetDefault("ENGINE_CANDIDATE_COUNT", 3)
	v.SetDefault("ENGINE_PROPOSAL_TTL", "30m")
	v.SetDefault("ENGINE_STAGNATION_EXIT", 25)
	v.SetDefault("ENGINE_STAGNATION_NUDGE", 10)

	v.SetDefault("ADVISORY_BASE_URL", "")
	v.SetDefault("ADVISORY_MODEL", "gpt-4o-mini")
	v.SetDefault("ADVISORY_API_KEY", "")
	v.SetDefault("ADVISORY_TIMEOUT", "15s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings holds the values that can change between deployments. Everything else lives in the constants above.
type Settings struct {
	Server struct {
		ListenAddr   string `yaml:"listen_addr"`
		AuthToken    string `yaml:"auth_token"`
		NoAuthBypass bool   `yaml:"no_auth_bypass"`
		RateLimit    bool   `yaml:"rate_limit"`
	} `yaml:"server"`

	Index struct {
		Directory string `yaml:"directory"`
	} `yaml:"index"`

	Retrieval struct {
		BM25Weight   float64 `yaml:"bm25_weight"`
		VectorWeight float64 `yaml:"vector_weight"`
		FetchK       int     `yaml:"fetch_k"`

		// dense hits with a raw similarity below this are ignored
		MinVectorScore float64 `yaml:"min_vector_score"`
	} `yaml:"retrieval"`

	Memory struct {
		MaxTurns int `yaml:"max_turns"`
	} `yaml:"memory"`

	LLM struct {
		Provider       string `yaml:"provider"` // gemini | openai
		GeminiAPIKey   string `yaml:"gemini_api_key"`
		GeminiModel    string `yaml:"gemini_model"`
		EmbeddingModel string `yaml:"embedding_model"`
		OpenAIAPIKey   string `yaml:"openai_api_key"`
		OpenAIModel    string `yaml:"openai_model"`

		// EmbeddingProvider must match the model that produced the stored chunk vectors.
		EmbeddingProvider    string `yaml:"embedding_provider"` // gemini | openai, defaults to provider
		OpenAIEmbeddingModel string `yaml:"openai_embedding_model"`
	} `yaml:"llm"`

	Qdrant struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"qdrant"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
	} `yaml:"redis"`
}

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadSettings reads an optional .env file, an optional YAML file and then the environment, in that order of precedence
// (environment wins). An empty path means defaults plus environment.
func LoadSettings(path string) (*Settings, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	settings := &Settings{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading settings file: %w", err)
		}
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("error parsing settings file: %w", err)
		}
	}

	mergeWithEnv(settings)
	applyDefaults(settings)
	return settings, nil
}

func applyDefaults(s *Settings) {
	if s.Server.ListenAddr == "" {
		s.Server.ListenAddr = ServerListenAddr
	}
	if s.Index.Directory == "" {
		s.Index.Directory = "data/indexes"
	}
	if s.Retrieval.BM25Weight == 0 && s.Retrieval.VectorWeight == 0 {
		s.Retrieval.BM25Weight = FusionBM25Weight
		s.Retrieval.VectorWeight = FusionVectorWeight
	}
	if s.Retrieval.FetchK == 0 {
		s.Retrieval.FetchK = FusionFetchK
	}
	if s.Memory.MaxTurns == 0 {
		s.Memory.MaxTurns = MemoryMaxTurns
	}
	if s.LLM.Provider == "" {
		s.LLM.Provider = "gemini"
	}
	if s.LLM.EmbeddingProvider == "" {
		s.LLM.EmbeddingProvider = s.LLM.Provider
	}
	if s.LLM.GeminiModel == "" {
		s.LLM.GeminiModel = GeminiModelName
	}
	if s.LLM.EmbeddingModel == "" {
		s.LLM.EmbeddingModel = GoogleEmbeddingModel
	}
	if s.LLM.OpenAIModel == "" {
		s.LLM.OpenAIModel = OpenAIModelName
	}
	if s.LLM.OpenAIEmbeddingModel == "" {
		s.LLM.OpenAIEmbeddingModel = OpenAIEmbeddingModel
	}
	if s.Qdrant.Port == 0 {
		s.Qdrant.Port = QdrantGrpcPort
	}
	if s.Redis.Addr == "" {
		s.Redis.Addr = RedisAddr
	}
}

func mergeWithEnv(s *Settings) {
	if v := os.Getenv("THREADQA_LISTEN_ADDR"); v != "" {
		s.Server.ListenAddr = v
	}
	if v := os.Getenv("THREADQA_AUTH_TOKEN"); v != "" {
		s.Server.AuthToken = v
	}
	if v := os.Getenv("THREADQA_NO_AUTH"); v != "" {
		s.Server.NoAuthBypass = parseBool(v, s.Server.NoAuthBypass)
	}
	if v := os.Getenv("THREADQA_INDEX_DIR"); v != "" {
		s.Index.Directory = v
	}
	if v := os.Getenv("THREADQA_BM25_WEIGHT"); v != "" {
		s.Retrieval.BM25Weight = parseFloat(v, s.Retrieval.BM25Weight)
	}
	if v := os.Getenv("THREADQA_VECTOR_WEIGHT"); v != "" {
		s.Retrieval.VectorWeight = parseFloat(v, s.Retrieval.VectorWeight)
	}
	if v := os.Getenv("THREADQA_MIN_VECTOR_SCORE"); v != "" {
		s.Retrieval.MinVectorScore = parseFloat(v, s.Retrieval.MinVectorScore)
	}
	if v := os.Getenv("THREADQA_LLM_PROVIDER"); v != "" {
		s.LLM.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("THREADQA_EMBEDDING_PROVIDER"); v != "" {
		s.LLM.EmbeddingProvider = strings.ToLower(v)
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		s.LLM.GeminiAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		s.LLM.OpenAIAPIKey = v
	}
	if v := os.Getenv("QDRANT_HOST"); v != "" {
		s.Qdrant.Host = v
		s.Qdrant.Enabled = true
	}
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			s.Qdrant.Port = port
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		s.Redis.Addr = v
		s.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		s.Redis.Password = v
	}
}

func (s *Settings) Validate() []ValidationError {
	var errs []ValidationError

	if s.Retrieval.BM25Weight < 0 || s.Retrieval.VectorWeight < 0 {
		errs = append(errs, ValidationError{Field: "retrieval", Message: "fusion weights must be non-negative"})
	}
	if s.Retrieval.BM25Weight+s.Retrieval.VectorWeight == 0 {
		errs = append(errs, ValidationError{Field: "retrieval", Message: "at least one fusion weight must be positive"})
	}
	if s.Retrieval.MinVectorScore < 0 || s.Retrieval.MinVectorScore > 1 {
		errs = append(errs, ValidationError{Field: "retrieval.min_vector_score", Message: "min_vector_score must be between 0 and 1"})
	}
	if s.Retrieval.FetchK < 1 {
		errs = append(errs, ValidationError{Field: "retrieval.fetch_k", Message: "fetch_k must be positive"})
	}
	if s.Memory.MaxTurns < 1 {
		errs = append(errs, ValidationError{Field: "memory.max_turns", Message: "max_turns must be positive"})
	}
	switch s.LLM.Provider {
	case "gemini":
		if s.LLM.GeminiAPIKey == "" {
			errs = append(errs, ValidationError{Field: "llm.gemini_api_key", Message: "GEMINI_API_KEY is required for the gemini provider"})
		}
	case "openai":
		if s.LLM.OpenAIAPIKey == "" {
			errs = append(errs, ValidationError{Field: "llm.openai_api_key", Message: "OPENAI_API_KEY is required for the openai provider"})
		}
	default:
		errs = append(errs, ValidationError{Field: "llm.provider", Message: fmt.Sprintf("unknown provider %q", s.LLM.Provider)})
	}
	switch s.LLM.EmbeddingProvider {
	case "gemini", "openai":
	default:
		errs = append(errs, ValidationError{Field: "llm.embedding_provider", Message: fmt.Sprintf("unknown embedding provider %q", s.LLM.EmbeddingProvider)})
	}
	if !s.Server.NoAuthBypass && s.Server.AuthToken == "" {
		errs = append(errs, ValidationError{Field: "server.auth_token", Message: "auth token is required unless no_auth_bypass is set"})
	}
	if s.Qdrant.Enabled && s.Qdrant.Host == "" {
		errs = append(errs, ValidationError{Field: "qdrant.host", Message: "host is required when qdrant is enabled"})
	}
	return errs
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func parseFloat(v string, fallback float64) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

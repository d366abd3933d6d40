package config

import (
	"log/slog"
	"time"
)

type traceKey string

const (
	IS_PROD                     = false
	LOG_LEVEL_PROD              = slog.LevelInfo
	TRACE_ID_KEY       traceKey = "traceId"
	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5
	RateLimiterIdleTTL          = 10 * time.Minute

	EmbeddingOutputDimensionality int32 = 768
	EmbeddingDBName                     = "thread-chunks"
	EmbeddingBatchSize                  = 100
	EmbeddingRetryDelay                 = 5 * time.Second

	//retrieval
	DefaultTopK        = 5
	MaxTopK            = 10
	FusionFetchK       = 10
	FusionBM25Weight   = 0.5
	FusionVectorWeight = 0.5
	// cosine floor for dense hits, 0 disables it
	FusionMinVectorScore = 0.0
	BM25K1             = 1.5
	BM25B              = 0.75

	//memory
	MemoryMaxTurns = 5

	//answer
	AnswerContextChunks  = 5
	AnswerChunkCharLimit = 500
	AnswerRetryDelay     = 500 * time.Millisecond
	InsufficientInfoText = "I don't have enough information to answer that question."
	CannotAnswerText     = "I'm unable to answer right now because the answer service is unavailable. Please try again."

	//sessions
	SessionIdleTTL         = 2 * time.Hour
	SessionJanitorInterval = 10 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 90 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//vectorDB
	QdrantConnectionTimeout = 30 * time.Second
	QdrantHost              = ""
	QdrantPort              = 6333 //http
	QdrantGrpcPort          = 6334
	QdrantUseTLS            = false
	QdrantPoolSize          = 1 //2-5 is preferred for prod according to documentation

	//llm
	GenerationTimeout           = 30 * time.Second
	GeminiModelName             = "gemini-2.5-flash-lite"
	GoogleEmbeddingModel        = "gemini-embedding-001"
	OpenAIModelName             = "gpt-4o-mini"
	OpenAIEmbeddingModel        = "text-embedding-3-small"
	ModelTemperature    float32 = 0.1
	RewriteTemperature  float32 = 0.0
	BreakerMaxRequests          = 3
	BreakerInterval             = 30 * time.Second
	BreakerOpenTimeout          = 60 * time.Second
	GenerationRequestsPerSecond = 5
	GenerationBurst             = 10

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisTraceStore = 2

	RedisTraceStoreTTL  = 24 * time.Hour
	RedisTraceKeyPrefix = "trace:"
	MaxEventsPerSession = 200
)

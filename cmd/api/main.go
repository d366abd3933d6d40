// @title           ThreadQA API
// @version         1.0
// @description     Conversational question answering over a single email thread and its attachments

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/customHttpClient"
	"github.com/akolanti/ThreadQA/internal/data/store"
	"github.com/akolanti/ThreadQA/internal/handlers"
	"github.com/akolanti/ThreadQA/internal/middleware"
	"github.com/akolanti/ThreadQA/internal/rag/answer"
	"github.com/akolanti/ThreadQA/internal/rag/embedding"
	"github.com/akolanti/ThreadQA/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/ThreadQA/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/ThreadQA/internal/rag/ingest"
	"github.com/akolanti/ThreadQA/internal/rag/llm"
	"github.com/akolanti/ThreadQA/internal/rag/llm/gemini"
	"github.com/akolanti/ThreadQA/internal/rag/llm/openaiLLM"
	"github.com/akolanti/ThreadQA/internal/rag/retrieval"
	"github.com/akolanti/ThreadQA/internal/rag/vectorDB"
	"github.com/akolanti/ThreadQA/internal/rag/vectorDB/memoryVector"
	"github.com/akolanti/ThreadQA/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/ThreadQA/internal/server"
	"github.com/akolanti/ThreadQA/internal/session"
	"github.com/akolanti/ThreadQA/internal/trace"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
)

func main() {
	var settingsPath, listenAddr string
	flag.StringVar(&settingsPath, "config", "", "optional YAML settings file")
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address (overrides settings)")
	flag.Parse()

	logger_i.Init()
	logger := logger_i.NewLogger("main")

	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		logger.Error("Could not load settings", "error", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		settings.Server.ListenAddr = listenAddr
	}
	if errs := settings.Validate(); len(errs) > 0 {
		for _, e := range errs {
			logger.Error("Invalid setting", "field", e.Field, "message", e.Message)
		}
		os.Exit(1)
	}

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	httpClient := customHttpClient.GetClient()

	var embedder embedding.Embedder
	switch settings.LLM.EmbeddingProvider {
	case "openai":
		if settings.LLM.OpenAIAPIKey != "" {
			embedder = openaiEmbedding.NewClient(settings.LLM.OpenAIEmbeddingModel, settings.LLM.OpenAIAPIKey, httpClient)
		}
	default:
		if settings.LLM.GeminiAPIKey != "" {
			embedder = googleEmbedding.GetGoogleEmbeddingClient(serviceContext, settings.LLM.EmbeddingModel, settings.LLM.GeminiAPIKey, httpClient)
		}
	}
	if embedder == nil {
		logger.Warn("No embedding service, retrieval is keyword only")
	}

	var provider llm.Provider
	switch settings.LLM.Provider {
	case "openai":
		provider = openaiLLM.NewClient(settings.LLM.OpenAIModel, settings.LLM.OpenAIAPIKey, httpClient)
	default:
		provider = gemini.GetGeminiClient(serviceContext, settings.LLM.GeminiModel, settings.LLM.GeminiAPIKey, httpClient)
	}
	if provider == nil {
		logger.Warn("No generation provider, answers and rewrites will fall back", "provider", settings.LLM.Provider)
	} else {
		provider = llm.Guard(provider, config.GenerationTimeout)
	}

	var searcher vectorDB.ThreadSearcher
	if settings.Qdrant.Enabled {
		// assigned only when non-nil so the interface never holds a typed nil
		if q := qdrantDB.GetQdrantClient(serviceContext, settings.Qdrant.Host, settings.Qdrant.Port); q != nil {
			searcher = q
		} else {
			logger.Error("Qdrant is offline, using the in-memory vector store")
		}
	}
	if searcher == nil {
		searcher = memoryVector.NewStore()
	}

	catalog, err := ingest.NewLoader(embedder, searcher).LoadDirectory(serviceContext, settings.Index.Directory)
	if err != nil {
		logger.Error("Could not load thread indexes", "dir", settings.Index.Directory, "error", err)
		os.Exit(1)
	}
	if catalog.Len() == 0 {
		logger.Warn("No thread indexes found", "dir", settings.Index.Directory)
	}

	var eventStore store.EventStore
	if settings.Redis.Enabled {
		if rs := store.GetRedisEventStore(serviceContext, settings.Redis.Addr, settings.Redis.Password); rs != nil {
			eventStore = rs
		} else {
			logger.Error("Redis is offline, keeping turn events in memory")
		}
	}
	if eventStore == nil {
		eventStore = store.InitInMemoryEventStore()
	}
	events := trace.NewStoreSink(eventStore)

	service := session.NewService(session.Dependencies{
		Catalog:  catalog,
		Provider: provider,
		Fusion: retrieval.FusionConfig{
			BM25Weight:     settings.Retrieval.BM25Weight,
			VectorWeight:   settings.Retrieval.VectorWeight,
			FetchK:         settings.Retrieval.FetchK,
			MinVectorScore: settings.Retrieval.MinVectorScore,
		},
		MaxTurns: settings.Memory.MaxTurns,
		Answer:   answer.DefaultOptions(),
		Sink:     trace.MultiSink{trace.NewLogSink(), events},
		Events:   events,
	})
	service.StartJanitor(serviceContext, config.SessionJanitorInterval, config.SessionIdleTTL)

	handlers.InitSessionHandler(service)
	middleware.Configure(*settings)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	go server.ShutDownHandler(server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		CloseServices:    closeExternalServices,
	})
	go server.CreateServer(settings.Server.ListenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}

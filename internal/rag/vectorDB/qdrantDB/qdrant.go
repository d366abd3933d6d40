package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
	"github.com/akolanti/ThreadQA/internal/rag/vectorDB"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

var logger *logger_i.Logger
var qdrantInstance *qdrant.Client
var once sync.Once
var dimension = uint64(config.EmbeddingOutputDimensionality)

type ClientHolder struct {
	QObj           *qdrant.Client
	collectionName string
}

// GetQdrantClient returns nil when the server is unreachable; callers fall back to the in-memory store.
func GetQdrantClient(ctx context.Context, host string, port int) *ClientHolder {
	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		res := newClient(ctx, host, port)
		if res != nil {
			qdrantInstance = res
			go closeQdrant(ctx, qdrantInstance)
		}
	})

	if qdrantInstance == nil {
		return nil
	}
	return &ClientHolder{
		QObj:           qdrantInstance,
		collectionName: config.EmbeddingDBName,
	}
}

func newClient(ctx context.Context, host string, port int) *qdrant.Client {
	if host == "" {
		host = config.QdrantHost
	}
	if port == 0 {
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate", "error", err)
		return nil
	}

	initCtx, cancel := context.WithTimeout(ctx, config.QdrantConnectionTimeout)
	defer cancel()
	if err = createCollection(initCtx, client, config.EmbeddingDBName); err != nil {
		logger.Error("could not create collection", "collectionName", config.EmbeddingDBName, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	if err := qi.Close(); err != nil {
		logger.Error("could not close Qdrant", "error", err)
	}
}

// pointId derives a stable UUID so re-loading a thread overwrites its points instead of duplicating them.
func pointId(threadId, chunkId string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(threadId+"/"+chunkId)).String()
}

func (db *ClientHolder) Index(ctx context.Context, threadId string, chunks []commonModels.Chunk) error {
	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		payload := map[string]any{
			"thread_id":  threadId,
			"chunk_id":   chunk.ChunkId,
			"message_id": chunk.MessageId,
			"doc_type":   string(chunk.DocType),
		}
		if chunk.PageNo != nil {
			payload["page_no"] = int64(*chunk.PageNo)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointId(threadId, chunk.ChunkId)),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: qdrant.NewValueMap(payload),
		})
	}
	if len(points) == 0 {
		return nil
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: db.collectionName,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	logger.Debug("upserted thread", "threadId", threadId, "points", len(points))
	return nil
}

func (db *ClientHolder) Search(ctx context.Context, threadId string, vector []float32, k int) ([]vectorDB.Hit, error) {
	loggr := logger.FromContext(ctx)
	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: db.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("thread_id", threadId)},
		},
		Limit:       qdrant.PtrOf(uint64(k)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Error querying Qdrant", "error", err)
		return nil, err
	}

	hits := make([]vectorDB.Hit, 0, len(result))
	for _, point := range result {
		chunkId := point.Payload["chunk_id"].GetStringValue()
		if chunkId == "" {
			continue
		}
		hits = append(hits, vectorDB.Hit{ChunkId: chunkId, Score: float64(point.Score)})
	}
	return hits, nil
}

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return err
	}

	_, err = client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collectionName,
		FieldName:      "thread_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	return err
}

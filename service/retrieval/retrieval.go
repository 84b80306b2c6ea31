// Package retrieval searches the knowledge collection for documents
// relevant to a prompt. Hits are injected into the user turn as reference
// docs; indexing of the collection is owned by a separate pipeline.
package retrieval

import (
	"context"
	"converse-backend/config"
	"converse-backend/model"
	"fmt"
	"net/http"
	"time"

	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/vectorstores"
	v2 "github.com/tmc/langchaingo/vectorstores/milvus/v2"
)

const (
	defaultEmbeddingModel     = "text-embedding-v4"
	defaultEmbeddingBatchSize = 10
	defaultTopK               = 4

	CollectionName = "knowledge_doc"
)

type Service struct {
	store vectorstores.VectorStore
}

var Instance *Service

func Init() error {
	client, err := openai.New(
		openai.WithEmbeddingModel(defaultEmbeddingModel),
		openai.WithToken(config.Cfg.Model.APIKey),
		openai.WithBaseURL(config.Cfg.Model.BaseURL),
		openai.WithHTTPClient(&http.Client{
			Timeout: 60 * time.Second,
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create embedder client: %v", err)
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(defaultEmbeddingBatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %v", err)
	}

	clientConfig := milvusclient.ClientConfig{
		Address: config.Cfg.Milvus.Endpoint,
		APIKey:  config.Cfg.Milvus.APIKey,
	}

	store, err := v2.New(context.Background(), clientConfig,
		v2.WithEmbedder(embedder),
		v2.WithCollectionName(CollectionName),
	)
	if err != nil {
		return fmt.Errorf("failed to create milvus client: %v", err)
	}

	Instance = &Service{store: store}
	return nil
}

func (s *Service) Search(ctx context.Context, query string, topK int) ([]model.ReferenceDoc, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	docs, err := s.store.SimilaritySearch(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge collection: %v", err)
	}

	refs := make([]model.ReferenceDoc, 0, len(docs))
	for _, doc := range docs {
		title, _ := doc.Metadata["object_name"].(string)
		refs = append(refs, model.ReferenceDoc{
			Title:   title,
			Content: doc.PageContent,
		})
	}
	return refs, nil
}

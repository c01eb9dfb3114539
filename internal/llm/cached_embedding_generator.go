package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ai-health-advisor/internal/logger"
)

// CachedEmbeddingGenerator memoises embeddings in a JSON file so repeated
// history queries and test runs do not hit the embedding API again.
type CachedEmbeddingGenerator struct {
	realGen       EmbeddingGenerator
	cache         map[string][]float32
	cacheFilePath string
	log           *logger.Logger
	mu            sync.Mutex
}

// NewCachedEmbeddingGenerator creates a new CachedEmbeddingGenerator and
// loads any cache previously saved at cacheFilePath.
func NewCachedEmbeddingGenerator(realGen EmbeddingGenerator, cacheFilePath string, log *logger.Logger) (*CachedEmbeddingGenerator, error) {
	c := &CachedEmbeddingGenerator{
		realGen:       realGen,
		cache:         make(map[string][]float32),
		cacheFilePath: cacheFilePath,
		log:           log,
	}

	cacheDir := filepath.Dir(cacheFilePath)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", cacheDir, err)
	}

	data, err := os.ReadFile(cacheFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("embedding cache not found, starting empty", "path", cacheFilePath)
			return c, nil
		}
		return nil, fmt.Errorf("failed to read cache file %s: %w", cacheFilePath, err)
	}

	if err := json.Unmarshal(data, &c.cache); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data from %s: %w", cacheFilePath, err)
	}

	log.Info("embedding cache loaded", "path", cacheFilePath, "entries", len(c.cache))
	return c, nil
}

// GenerateEmbedding checks the cache first and falls through to the real generator.
func (c *CachedEmbeddingGenerator) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	if embedding, ok := c.cache[text]; ok {
		c.mu.Unlock()
		return embedding, nil
	}
	c.mu.Unlock()

	embedding, err := c.realGen.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding using real generator: %w", err)
	}
	if len(embedding) == 0 {
		return embedding, nil
	}

	c.mu.Lock()
	c.cache[text] = embedding
	c.mu.Unlock()
	return embedding, nil
}

// SaveCache persists the current in-memory cache to the file system.
func (c *CachedEmbeddingGenerator) SaveCache() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(c.cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := os.WriteFile(c.cacheFilePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file %s: %w", c.cacheFilePath, err)
	}

	c.log.Info("embedding cache saved", "path", c.cacheFilePath, "entries", len(c.cache))
	return nil
}

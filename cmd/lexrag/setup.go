package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/juridai/lexrag"
	"github.com/juridai/lexrag/blobstore"
	minioblob "github.com/juridai/lexrag/blobstore/minio"
	s3blob "github.com/juridai/lexrag/blobstore/s3"
	"github.com/juridai/lexrag/chat"
	"github.com/juridai/lexrag/config"
	"github.com/juridai/lexrag/conversation"
	"github.com/juridai/lexrag/provider"
)

func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.Load(cfgPath)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

func buildLogger(cfg *config.Config) (*lexrag.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Logging.Level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}

	if cfg.Logging.Format == "json" {
		return lexrag.NewJSONLogger(level), nil
	}
	return lexrag.NewTextLogger(level), nil
}

func buildBlobStore(ctx context.Context, cfg *config.Config) (blobstore.BlobStore, error) {
	switch cfg.Storage.Type {
	case "local", "":
		return blobstore.NewLocalStore(cfg.DataDir()), nil

	case "memory":
		return blobstore.NewMemoryStore(), nil

	case "s3":
		if cfg.Storage.S3 == nil {
			return nil, fmt.Errorf("storage type s3 requires an s3 section")
		}
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Storage.S3.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Storage.S3.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg)
		return s3blob.NewStore(client, cfg.Storage.S3.Bucket, cfg.Storage.S3.Prefix), nil

	case "minio":
		mc := cfg.Storage.MinIO
		if mc == nil {
			return nil, fmt.Errorf("storage type minio requires a minio section")
		}
		client, err := minio.New(mc.Endpoint, &minio.Options{
			Creds:  miniocreds.NewEnvMinio(),
			Secure: mc.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("creating MinIO client: %w", err)
		}
		return minioblob.NewStore(client, mc.Bucket, ""), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

func buildEngine(ctx context.Context, cfg *config.Config, logger *lexrag.Logger) (*lexrag.Engine, error) {
	providerCfg := provider.GoogleConfig{
		APIKey:            cfg.APIKey(),
		BaseURL:           cfg.Provider.BaseURL,
		Timeout:           time.Duration(cfg.Provider.TimeoutSecs) * time.Second,
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
	}

	embedderCfg := providerCfg
	embedderCfg.Model = cfg.Provider.EmbeddingModel
	embedder, err := provider.NewGoogleEmbedder(embedderCfg)
	if err != nil {
		return nil, fmt.Errorf("configuring embedder: %w", err)
	}

	generatorCfg := providerCfg
	generatorCfg.Model = cfg.Provider.GenerationModel
	generator, err := provider.NewGoogleGenerator(generatorCfg)
	if err != nil {
		return nil, fmt.Errorf("configuring generator: %w", err)
	}

	store, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return lexrag.New(embedder, generator, store,
		lexrag.WithChunkSize(cfg.Engine.ChunkSize),
		lexrag.WithChunkOverlap(cfg.Engine.ChunkOverlap),
		lexrag.WithRetrievalK(cfg.Engine.RetrievalK),
		lexrag.WithSnapshotName(cfg.Engine.SnapshotName),
		lexrag.WithCompression(cfg.Engine.Compression),
		lexrag.WithLogger(logger),
	)
}

func buildConversationStore(ctx context.Context, cfg *config.Config) (conversation.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Conversations.Type {
	case "sqlite", "":
		dir := cfg.DataDir()
		if cfg.Conversations.SQLite != nil && cfg.Conversations.SQLite.Dir != "" {
			dir = cfg.Conversations.SQLite.Dir
		}
		store, err := conversation.NewSQLiteStore(dir)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	case "memory":
		return conversation.NewMemoryStore(), noop, nil

	case "dynamodb":
		dc := cfg.Conversations.DynamoDB
		if dc == nil {
			return nil, nil, fmt.Errorf("conversation type dynamodb requires a dynamodb section")
		}
		var loadOpts []func(*awsconfig.LoadOptions) error
		if dc.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(dc.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("loading AWS config: %w", err)
		}
		return conversation.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), dc.Table), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown conversation store type %q", cfg.Conversations.Type)
	}
}

func buildChatService(ctx context.Context, cfg *config.Config, logger *lexrag.Logger) (*chat.Service, func() error, error) {
	engine, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := buildConversationStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	svc, err := chat.NewService(engine, store, chat.WithLogger(logger))
	if err != nil {
		closeStore() //nolint:errcheck
		return nil, nil, err
	}
	return svc, closeStore, nil
}

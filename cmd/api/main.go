package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"media-insights-go/internal/capability"
	"media-insights-go/internal/config"
	"media-insights-go/internal/logger"
	"media-insights-go/internal/manifest"
	"media-insights-go/internal/pipeline"
	"media-insights-go/internal/poll"
	"media-insights-go/internal/pool"
	"media-insights-go/internal/store"
	"media-insights-go/internal/tool"
	"media-insights-go/internal/types"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "media-insights-go").Info("starting service")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx := context.Background()

	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to primary store")
	}
	defer pgPool.Close()

	primary := store.NewPostgresTier(pgPool)
	if err := primary.EnsureSchema(ctx); err != nil {
		log.WithError(err).Fatal("failed to prepare primary store schema")
	}

	blobClient, err := minio.New(cfg.BlobEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.BlobAccessKey, cfg.BlobSecretKey, ""),
		Secure: cfg.BlobUseSSL,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to blob store")
	}
	blob := store.NewMinioTier(blobClient, cfg.BlobBucket)
	if err := blob.EnsureBucket(ctx); err != nil {
		log.WithError(err).Fatal("failed to prepare blob bucket")
	}

	cache := store.NewCache(cfg.CacheFreshness)
	records := store.NewMultiTierStore(primary, blob, cache, log.Component("store"))

	understanding := &capability.UnderstandingClient{
		URL:    cfg.UnderstandingURL,
		APIKey: cfg.GatewayAPIKey,
		Model:  cfg.GatewayModel,
		Log:    log.Component("understanding"),
	}
	embedder := &capability.EmbeddingClient{
		URL:       cfg.EmbeddingURL,
		APIKey:    cfg.GatewayAPIKey,
		Dimension: cfg.EmbeddingDimension,
		Blob:      blobClient,
		Bucket:    cfg.BlobBucket,
		Log:       log.Component("embedding"),
	}
	transcriber := &capability.TranscribeClient{
		URL:          cfg.TranscribeURL,
		PollInterval: cfg.PollInterval,
		PollMaxWait:  cfg.PollMaxWait,
		Log:          log.Component("transcription"),
	}
	entities := &capability.EntitiesClient{
		URL:    cfg.UnderstandingURL,
		APIKey: cfg.GatewayAPIKey,
		Model:  cfg.GatewayModel,
		Log:    log.Component("entities"),
	}

	orchestrator := pipeline.NewOrchestrator(
		understanding, embedder, embedder, transcriber, entities,
		poll.Wait, records,
		pipeline.Config{
			EmbeddingDimension:    cfg.EmbeddingDimension,
			SegmentDurationSecond: cfg.SegmentDurationSecond,
			PollInterval:          cfg.PollInterval,
			PollMaxWait:           cfg.PollMaxWait,
		},
		log.Component("pipeline"),
	)

	kit := tool.NewToolkit(orchestrator, records, log.Component("tool"))

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})

	// process one media item
	mux.HandleFunc("/process", func(w http.ResponseWriter, r *http.Request) {
		reqLog := log.WithRequest(r).WithField("handler", "process")
		q := r.URL.Query()
		item := types.MediaItem{
			ID:      q.Get("id"),
			OwnerID: q.Get("owner"),
			Title:   q.Get("title"),
			Source: types.SourceLocator{
				Bucket: q.Get("bucket"),
				Key:    q.Get("key"),
			},
		}
		if item.ID == "" || item.Source.Bucket == "" || item.Source.Key == "" {
			writeEnvelope(w, http.StatusBadRequest, tool.Envelope{Error: "id, bucket and key are required"})
			return
		}
		reqLog.WithField("media_id", item.ID).Info("process request received")
		writeResult(w, kit.ProcessMedia(r.Context(), item))
	})

	mux.HandleFunc("/record", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			writeEnvelope(w, http.StatusBadRequest, tool.Envelope{Error: "id is required"})
			return
		}
		writeResult(w, kit.GetRecord(r.Context(), id))
	})

	mux.HandleFunc("/records", func(w http.ResponseWriter, r *http.Request) {
		owner := r.URL.Query().Get("owner")
		if owner == "" {
			writeEnvelope(w, http.StatusBadRequest, tool.Envelope{Error: "owner is required"})
			return
		}
		writeResult(w, kit.ListRecords(r.Context(), owner))
	})

	mux.HandleFunc("/reconcile", func(w http.ResponseWriter, r *http.Request) {
		owner := r.URL.Query().Get("owner")
		if owner == "" {
			writeEnvelope(w, http.StatusBadRequest, tool.Envelope{Error: "owner is required"})
			return
		}
		writeResult(w, kit.Reconcile(r.Context(), owner))
	})

	// batch ingestion: run the whole manifest through the pipeline pool
	mux.HandleFunc("/ingest", func(w http.ResponseWriter, r *http.Request) {
		reqLog := log.WithRequest(r).WithField("handler", "ingest")
		items, err := manifest.Load(cfg.ManifestPath)
		if err != nil {
			reqLog.WithError(err).Error("manifest load failed")
			writeEnvelope(w, http.StatusInternalServerError, tool.Envelope{Error: "manifest load failed: " + err.Error()})
			return
		}
		reqLog.WithField("items", len(items)).Info("ingestion started")

		in := make(chan types.MediaItem, len(items))
		results := make(chan pool.Result, len(items))
		workers := pool.NewWorkerPool(cfg.PoolSize, in, results, orchestrator.Process, log.Component("pool"))
		workers.Start(r.Context())
		for _, item := range items {
			in <- item
		}
		close(in)
		workers.Wait()
		close(results)

		summary := struct {
			Processed int      `json:"processed"`
			Failed    []string `json:"failed"`
		}{Failed: []string{}}
		for res := range results {
			if res.Err != nil {
				summary.Failed = append(summary.Failed, res.Item.ID)
				continue
			}
			summary.Processed++
		}
		writeResult(w, tool.Envelope{Success: len(summary.Failed) == 0, Data: summary})
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

func writeResult(w http.ResponseWriter, env tool.Envelope) {
	status := http.StatusOK
	if !env.Success {
		status = http.StatusInternalServerError
	}
	writeEnvelope(w, status, env)
}

func writeEnvelope(w http.ResponseWriter, status int, env tool.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(env)
}

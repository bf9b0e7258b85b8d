package cmd

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"
	"gorm.io/gorm"

	"courserag/src/core/course"
	"courserag/src/core/ingest"
	"courserag/src/core/search"
	"courserag/src/fsutil"
	"courserag/src/infrastructure/job"
	"courserag/src/infrastructure/log"
	"courserag/src/ollama"
	"courserag/src/storage/minioctrl"
	"courserag/src/storage/postgres/coursectrl"
	"courserag/src/storage/weaviate"
)

var (
	ingestReplace bool
	ingestAsync   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <directory>",
	Short: "Ingest a directory of course transcripts",
	Long: `The ingest command parses every .txt transcript in the directory, chunks the
lessons and writes them into the vector index. With --async the files are
enqueued for the background worker instead of being processed inline.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolVar(&ingestReplace, "replace", false, "re-index courses whose title already exists")
	ingestCmd.Flags().BoolVar(&ingestAsync, "async", false, "enqueue files for the background worker")

	settingDefaultConfig()
}

func runIngest(cmd *cobra.Command, args []string) error {
	dir := args[0]

	fs := fsutil.NewLocalFileStore()
	files, err := fs.ListFiles(dir, ".txt")
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %v", dir, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no .txt transcripts found in %s", dir)
	}

	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	if ingestAsync {
		return enqueueFiles(cmd.Context(), db, fs, dir, files)
	}

	return ingestFiles(cmd.Context(), db, fs, dir, files)
}

func ingestFiles(ctx context.Context, db *gorm.DB, fs fsutil.FileStore, dir string, files []string) error {
	if err := db.AutoMigrate(&coursectrl.CourseRecord{}); err != nil {
		return fmt.Errorf("failed to migrate course catalog: %v", err)
	}

	svc, err := buildIngestService(db)
	if err != nil {
		return err
	}

	bar := progressbar.Default(int64(len(files)), "ingesting courses")

	var ingested, skipped, failed int
	for _, name := range files {
		data, err := fs.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Error(err, "failed to read transcript", "file", name)
			failed++
			bar.Add(1)
			continue
		}

		result, err := svc.IngestFile(ctx, name, data, ingestReplace)
		if err != nil {
			// One malformed transcript must not abort the corpus.
			log.Error(err, "failed to ingest transcript", "file", name)
			failed++
			bar.Add(1)
			continue
		}

		if result.Skipped {
			skipped++
		} else {
			ingested++
		}
		bar.Add(1)
	}

	log.Info("ingestion complete", "ingested", ingested, "skipped", skipped, "failed", failed)
	return nil
}

func enqueueFiles(ctx context.Context, db *gorm.DB, fs fsutil.FileStore, dir string, files []string) error {
	if err := db.AutoMigrate(&job.Job{}); err != nil {
		return fmt.Errorf("failed to migrate jobs table: %v", err)
	}

	logger := watermill.NewStdLogger(false, false)

	publisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create amqp publisher: %v", err)
	}
	defer publisher.Close()

	jobRepo := job.NewPostgresJobRepository(db)
	jobService := job.NewJobService(publisher, jobRepo, logger, nil)

	bar := progressbar.Default(int64(len(files)), "enqueueing courses")

	for _, name := range files {
		data, err := fs.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Error(err, "failed to read transcript", "file", name)
			bar.Add(1)
			continue
		}

		if _, err := jobService.EnqueueIngest(ctx, name, data, ingestReplace); err != nil {
			return fmt.Errorf("failed to enqueue %s: %v", name, err)
		}
		bar.Add(1)
	}

	log.Info("enqueued transcripts for background ingestion", "count", len(files))
	return nil
}

// buildIngestService wires the full inline ingestion stack: ollama embedder,
// weaviate index, postgres catalog and the optional minio archive.
func buildIngestService(db *gorm.DB) (*ingest.Service, error) {
	timeout, err := time.ParseDuration(viper.GetString("ollama.timeout"))
	if err != nil {
		timeout = 120 * time.Second
	}
	oc := ollama.NewClient(viper.GetString("ollama.url"), &http.Client{
		Timeout: timeout,
	})

	wc := weaviateClient.New(weaviateClient.Config{
		Host:   viper.GetString("weaviate.host"),
		Scheme: "http",
	})
	wsdk := weaviate.NewSDK(wc)

	index := search.NewIndex(
		wsdk,
		oc,
		viper.GetString("rag.embedding_model"),
		viper.GetFloat64("rag.resolve_certainty"),
	)
	if err := index.EnsureSchemas(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure vector schemas: %v", err)
	}

	courseService, err := coursectrl.NewCourseService(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create course service: %v", err)
	}

	var archive ingest.Archive
	if viper.GetBool("minio.enabled") {
		minioService, err := minioctrl.NewMinioService(
			viper.GetString("minio.endpoint"),
			viper.GetString("minio.access_key"),
			viper.GetString("minio.secret_key"),
			viper.GetBool("minio.use_ssl"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize minio service: %v", err)
		}
		archive = minioService
	}

	chunker := course.NewChunker(viper.GetInt("rag.chunk_size"), viper.GetInt("rag.chunk_overlap"))

	return ingest.NewService(chunker, index, courseService, archive), nil
}

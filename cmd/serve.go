package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	httpHdlr "courserag/handler/http"
	"courserag/src/core/rag"
	"courserag/src/core/search"
	"courserag/src/core/system"
	"courserag/src/infrastructure/log"
	"courserag/src/ollama"
	"courserag/src/storage/postgres/coursectrl"
	"courserag/src/storage/weaviate"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the course question-answering server",
	Long:  `The serve command starts an HTTP server that answers questions over the ingested course corpus.`,
	Run:   RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	settingDefaultConfig()
}

func RunServer(cmd *cobra.Command, args []string) {
	// Initialize PostgreSQL connection
	db, err := openDatabase()
	if err != nil {
		log.Error(err, "Failed to connect to database")
		return
	}

	if err := db.AutoMigrate(&coursectrl.CourseRecord{}); err != nil {
		log.Error(err, "Failed to migrate course catalog")
		return
	}

	// Initialize Ollama client
	timeout, err := time.ParseDuration(viper.GetString("ollama.timeout"))
	if err != nil {
		timeout = 120 * time.Second
	}
	oc := ollama.NewClient(viper.GetString("ollama.url"), &http.Client{
		Timeout: timeout,
	})

	// Initialize Weaviate client
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
		log.Error(err, "Failed to ensure vector schemas")
		return
	}

	courseService, err := coursectrl.NewCourseService(db)
	if err != nil {
		log.Error(err, "Failed to create course service")
		return
	}

	sessions := rag.NewSessionStore(viper.GetInt("rag.max_history"))
	registry := rag.NewRegistry(
		rag.NewSearchTool(index, viper.GetInt("rag.top_k")),
		rag.NewOutlineTool(index),
	)
	orchestrator := rag.NewOrchestrator(oc, viper.GetString("rag.chat_model"), registry, viper.GetInt("rag.max_tokens"))
	pipeline := rag.NewPipeline(sessions, orchestrator)

	sqlDB, err := db.DB()
	if err != nil {
		log.Error(err, "Failed to get underlying *sql.DB")
		return
	}
	systemService := system.NewService(sqlDB, wsdk, oc)

	handler := httpHdlr.NewHandler(pipeline, courseService, systemService)

	// Setup gin router
	r := gin.Default()
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Failed to start server")
			return
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	timeoutStr := viper.GetString("server.shutdown_timeout")
	shutdownTimeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		shutdownTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := sqlDB.Close(); err != nil {
		log.Error(err, "Error closing database connection")
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	log.Info("Server exited")
}

func openDatabase() (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		viper.GetString("postgres.host"),
		viper.GetString("postgres.user"),
		viper.GetString("postgres.password"),
		viper.GetString("postgres.db"),
		viper.GetString("postgres.port"))

	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

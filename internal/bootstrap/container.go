package bootstrap

import (
	"log"

	"ai-knowledgebase-be/internal/commands"
	"ai-knowledgebase-be/internal/config"
	"ai-knowledgebase-be/internal/controller"
	"ai-knowledgebase-be/internal/executor"
	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/queue"
	"ai-knowledgebase-be/internal/search"
	"ai-knowledgebase-be/internal/service"
	"ai-knowledgebase-be/internal/storage"
	"ai-knowledgebase-be/internal/storage/postgres"
	"ai-knowledgebase-be/internal/storage/sqlite"
	"ai-knowledgebase-be/pkg/embedding"
	"ai-knowledgebase-be/pkg/filestore"

	pktNats "ai-knowledgebase-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type Container struct {
	// Controllers
	AuthController     controller.IAuthController
	NotebookController controller.INotebookController
	SourceController   controller.ISourceController
	NoteController     controller.INoteController
	ChatController     controller.IChatController
	SearchController   controller.ISearchController
	SettingsController controller.ISettingsController
	CommandController  controller.ICommandController

	// Background worker (exposed for main.go to run)
	Worker *queue.Worker

	Logger logger.ILogger

	closers []func() error
}

// Close releases the database and bus connections in reverse order of
// construction.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Logger.Warn("bootstrap", "close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	c.Logger.Sync()
}

func NewContainer(cfg *config.Config) *Container {
	c := &Container{}

	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c.Logger = sysLogger

	// 2. Storage driver. The settings singleton key is backend specific:
	// the relational key space is uuid, the embedded one is rowid.
	var (
		driver       storage.IDriver
		searchDriver storage.ISearchDriver
		jobStore     queue.IStore
		singletonKey string
	)
	switch cfg.Database.Backend {
	case "postgres":
		d, err := postgres.Open(cfg.Database.Connection)
		if err != nil {
			log.Fatalf("[FATAL] Failed to open postgres: %v", err)
		}
		driver, searchDriver = d, d
		jobStore = queue.NewPostgresStore(d.DB())
		singletonKey = uuid.NewSHA1(uuid.NameSpaceOID, []byte(storage.CollectionContentSettings)).String()
		c.closers = append(c.closers, d.Close)
	default:
		d, err := sqlite.Open(cfg.Database.Connection)
		if err != nil {
			log.Fatalf("[FATAL] Failed to open sqlite: %v", err)
		}
		driver, searchDriver = d, d
		jobStore = queue.NewSqliteStore(d.DB())
		singletonKey = "1"
		c.closers = append(c.closers, d.Close)
	}

	// 3. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, pubSub.Close)

	// 4. Embedding provider
	var embeddingProvider embedding.Provider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	case "jina":
		embeddingProvider = embedding.NewJinaProvider(cfg.Ai.JinaAPIKey)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	default:
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiAPIKey)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	// 5. Command queue
	q := queue.New(jobStore, pubSub, sysLogger)
	registry := queue.NewRegistry()
	commands.Register(registry, commands.Deps{
		Driver:       driver,
		Embedder:     embeddingProvider,
		Log:          sysLogger,
		ChunkSize:    cfg.Worker.ChunkSize,
		ChunkOverlap: cfg.Worker.ChunkOverlap,
	})

	var notifier queue.INotifier
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			notifier = queue.NewNatsNotifier(natsPub, sysLogger)
			c.closers = append(c.closers, func() error { natsPub.Close(); return nil })
		}
	}

	c.Worker = queue.NewWorker(jobStore, registry, pubSub, sysLogger, notifier, queue.WorkerConfig{
		PollInterval:     cfg.Worker.PollInterval,
		RecoveryInterval: cfg.Worker.RecoveryInterval,
		StuckTimeout:     cfg.Worker.StuckTimeout,
		MaxAttempts:      uint(cfg.Worker.MaxAttempts),
		InitialBackoff:   cfg.Worker.InitialBackoff,
		MaxBackoff:       cfg.Worker.MaxBackoff,
	})

	// 6. Execution strategy, fixed per deployment by backend type
	direct := executor.NewDirect(registry, cfg.Worker.DirectTimeout, sysLogger)
	queued := executor.NewQueued(q, direct)
	exec := executor.ForBackend(cfg.Database.Backend, direct, queued)

	// 7. Services
	files := filestore.NewRouter(nil)
	searchCore := search.NewService(searchDriver, sysLogger)

	authService := service.NewAuthService(driver, cfg.App.JWTSecret, cfg.App.TokenTTL)
	noteService := service.NewNoteService(driver, exec, sysLogger)
	sourceService := service.NewSourceService(driver, exec, files, sysLogger)
	notebookService := service.NewNotebookService(driver, sourceService, noteService, sysLogger)
	chatService := service.NewChatSessionService(driver)
	searchService := service.NewSearchService(searchCore, embeddingProvider)
	settingsService := service.NewContentSettingsService(driver, singletonKey)
	commandService := service.NewCommandService(exec, q)

	// 8. Controllers
	c.AuthController = controller.NewAuthController(authService)
	c.NotebookController = controller.NewNotebookController(notebookService)
	c.SourceController = controller.NewSourceController(sourceService)
	c.NoteController = controller.NewNoteController(noteService)
	c.ChatController = controller.NewChatController(chatService)
	c.SearchController = controller.NewSearchController(searchService)
	c.SettingsController = controller.NewSettingsController(settingsService)
	c.CommandController = controller.NewCommandController(commandService)

	return c
}

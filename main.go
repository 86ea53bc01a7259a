package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"venuepilot/config"
	"venuepilot/database"
	claimRepo "venuepilot/database/repository/claim"
	clientRepo "venuepilot/database/repository/client"
	eventRepo "venuepilot/database/repository/event"
	roomRepo "venuepilot/database/repository/room"
	turnRepo "venuepilot/database/repository/turn"
	"venuepilot/handlers"
	"venuepilot/middleware"
	"venuepilot/routes"
	"venuepilot/services/engine"
	ai "venuepilot/services/intelligence"
	"venuepilot/services/mailer"
	"venuepilot/services/notification"
	"venuepilot/services/offerdoc"
	"venuepilot/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"venuepilot/cron"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()

	eventRepo.EnsureIndexes()
	claimRepo.EnsureIndexes()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// Repositories.
	events := eventRepo.NewMongoEventRepo()
	clients := clientRepo.NewMongoClientRepo()
	rooms := roomRepo.NewMongoRoomRepo()
	turns := turnRepo.NewMongoTurnRepo()
	claims := claimRepo.NewMongoClaimRepo()

	// Task queue client shared by notifications and mail delivery.
	queueClient := asynq.NewClient(utils.QueueRedisOpt())
	defer queueClient.Close()

	notifier := &notification.DefaultNotificationService{
		Queue: queueClient,
		Log:   logger,
	}
	deliverer := &mailer.AsynqDeliverer{
		Queue: queueClient,
		Log:   logger,
	}

	// Engine assembly.
	policy := engine.PolicyFromConfig(config.AppConfig)

	resolver := &engine.ConflictResolver{
		Claims:   claims,
		Notifier: notifier,
		Compare:  policy.Comparator,
		Log:      logger,
	}

	detector, extractor, polisher := ai.SelectProviders(config.AppConfig)

	machine := &engine.Machine{
		Rooms:     rooms,
		Resolver:  resolver,
		Extractor: extractor,
		Policy:    policy,
		Log:       logger,
	}

	gate := &engine.HILGate{
		Turns:     turns,
		Events:    events,
		Deliverer: deliverer,
		Policy:    policy,
		Log:       logger,
	}

	verbalizer := &engine.Verbalizer{
		Polisher:   polisher,
		MaxRetries: policy.ProviderMaxRetries,
		Log:        logger,
	}

	offerRenderer := &offerdoc.Renderer{
		VenueName: config.AppConfig.VenueName,
	}

	workflowService := &engine.DefaultWorkflowService{
		Events:     events,
		Clients:    clients,
		Rooms:      rooms,
		Turns:      turns,
		Machine:    machine,
		Gate:       gate,
		Detector:   detector,
		Verbalizer: verbalizer,
		Notifier:   notifier,
		OfferDoc:   offerRenderer,
		Policy:     policy,
		Log:        logger,
	}

	// Handlers.
	mailHandler := handlers.NewMailHandler(workflowService, utils.GetCacheClient())
	draftHandler := handlers.NewDraftHandler(workflowService, turns)
	conflictHandler := handlers.NewConflictHandler(workflowService, claims)
	eventHandler := handlers.NewEventHandler(workflowService, events, turns)
	unmatchedHandler := handlers.NewUnmatchedHandler(workflowService, turns)
	roomHandler := handlers.NewRoomHandler(rooms)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		InboundMailHandler: mailHandler.InboundHandler,

		ManagerLoginHandler: handlers.ManagerLoginHandler,

		ListDraftsHandler:   draftHandler.ListDraftsHandler,
		ApproveDraftHandler: draftHandler.ApproveDraftHandler,
		EditDraftHandler:    draftHandler.EditDraftHandler,
		DiscardDraftHandler: draftHandler.DiscardDraftHandler,

		ListConflictsHandler:   conflictHandler.ListConflictsHandler,
		ResolveConflictHandler: conflictHandler.ResolveConflictHandler,

		GetEventHandler:        eventHandler.GetEventHandler,
		MarkDepositPaidHandler: eventHandler.MarkDepositPaidHandler,

		ListUnmatchedHandler:   unmatchedHandler.ListUnmatchedHandler,
		AssignUnmatchedHandler: unmatchedHandler.AssignUnmatchedHandler,

		ListRoomsHandler:  roomHandler.ListRoomsHandler,
		UpsertRoomHandler: roomHandler.UpsertRoomHandler,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Background workers: outbound mail delivery, manager alerts and the
	// stale-event sweep.
	deliveryWorker := &mailer.DeliveryWorker{
		Turns:     turns,
		Events:    events,
		Clients:   clients,
		Transport: &mailer.LogTransport{Log: logger},
		Log:       logger,
	}
	go cron.InitWorkers(deliveryWorker, events, resolver)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}

// launching the server, artifact storage, cleanup worker and kafka events
package appServer

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/imagefilter/config"
	"github.com/ds124wfegd/imagefilter/internal/entity"
	"github.com/ds124wfegd/imagefilter/internal/pkg/fetcher"
	"github.com/ds124wfegd/imagefilter/internal/pkg/kafka"
	"github.com/ds124wfegd/imagefilter/internal/pkg/processor"
	"github.com/ds124wfegd/imagefilter/internal/pkg/sniffer"
	"github.com/ds124wfegd/imagefilter/internal/pkg/storage"
	"github.com/ds124wfegd/imagefilter/internal/service"
	"github.com/ds124wfegd/imagefilter/internal/transport"
	"github.com/ds124wfegd/imagefilter/internal/worker"
	"github.com/gin-gonic/gin"

	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(logrus.StandardLogger().WriterLevel(logrus.ErrorLevel), "", 0),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func configureLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logrus.Warnf("Unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func newProducer(cfg *config.Config) kafka.Producer {
	if !cfg.Kafka.Enabled {
		logrus.Info("Kafka events disabled, using mock producer")
		return kafka.NewMockProducer()
	}
	return kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}

func NewServer(cfg *config.Config) {

	configureLogger(cfg)

	fileStorage, err := storage.NewFileStorage(cfg.Storage.Dir)
	if err != nil {
		logrus.Fatalf("Failed to initialize artifact storage: %v", err)
	}

	producer := newProducer(cfg)
	defer func() {
		if err := producer.Close(); err != nil {
			logrus.Errorf("error occured on closing kafka producer: %s", err.Error())
		}
	}()

	imgFetcher := fetcher.NewHTTPFetcher(cfg.Fetch.Timeout, cfg.Fetch.MaxBytes)
	imgProcessor := processor.NewImageProcessor(imgFetcher, fileStorage, entity.FilterOptions{
		Width:     cfg.Filter.Width,
		Height:    cfg.Filter.Height,
		Quality:   cfg.Filter.Quality,
		Grayscale: cfg.Filter.Grayscale,
		MaxPixels: cfg.Filter.MaxPixels,
	})
	imgService := service.NewImageService(fileStorage, imgProcessor, sniffer.New(), producer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanupWorker := worker.NewArtifactCleanupWorker(fileStorage, cfg.Storage.SweepInterval, cfg.Storage.MaxAge)
	go cleanupWorker.Start(ctx)

	imgHandler := transport.NewImageHandler(imgService).WithStats(cleanupWorker.GetStats)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(imgHandler)); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.Printf("server running http://localhost:%s", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}

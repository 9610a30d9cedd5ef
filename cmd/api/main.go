package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"

	"github.com/bryanwahyu/metaselect/internal/application"
	appsession "github.com/bryanwahyu/metaselect/internal/application/session"
	"github.com/bryanwahyu/metaselect/internal/config"
	"github.com/bryanwahyu/metaselect/internal/infra/bootstrap"
	"github.com/bryanwahyu/metaselect/internal/infra/httpserver"
	"github.com/bryanwahyu/metaselect/internal/metrics"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.WithError(err).Fatal("env load error")
	}

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Fatal("config load error")
	}
	if err := config.InitLogger(cfg); err != nil {
		log.WithError(err).Fatal("logger init error")
	}
	metrics.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// init classifier
	classifier, err := bootstrap.NewClassifier(cfg)
	if err != nil {
		log.WithError(err).Fatal("classifier init error")
	}

	// init history store
	store, closeStore, err := bootstrap.NewHistoryStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("history store init error")
	}
	defer closeStore()

	// init service
	svc := &appsession.Service{
		Classifier: classifier,
		Store:      store,
		Clock:      application.SystemClock{},
		Capacity:   cfg.History.Capacity,
		HistoryKey: cfg.History.Key,
	}
	go svc.RunJanitor(ctx, cfg.SessionSweep(), cfg.SessionIdle())

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     httpserver.NewRouter(svc, cfg),
		ReadTimeout: 30 * time.Second,
		// a submit waits for the classifier
		WriteTimeout: cfg.ClassifierTimeout() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.WithFields(log.Fields{
			"addr":       addr,
			"classifier": cfg.Classifier.Provider,
			"history":    cfg.History.Driver,
		}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down server...")
	cancel()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.WithError(err).Error("shutdown error")
	}
}

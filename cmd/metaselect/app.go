package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/bryanwahyu/metaselect/internal/application"
	appsession "github.com/bryanwahyu/metaselect/internal/application/session"
	"github.com/bryanwahyu/metaselect/internal/config"
	"github.com/bryanwahyu/metaselect/internal/domain/auth"
	infraauth "github.com/bryanwahyu/metaselect/internal/infra/auth"
	"github.com/bryanwahyu/metaselect/internal/infra/bootstrap"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	serviceURL string
	historyDB  string
	name       string
	email      string
	logLevel   string
	jsonOut    bool
}

// loadConfig reads --config when given and applies the flag overrides on top.
func (o *options) loadConfig() (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if o.serviceURL != "" {
		cfg.Classifier.Provider = "http"
		cfg.Classifier.URL = o.serviceURL
	}
	if o.historyDB != "" {
		cfg.History.Driver = "sqlite"
		cfg.History.SQLitePath = o.historyDB
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// user is the analyst named on the command line, if any.
func (o *options) user() *auth.User {
	name := strings.TrimSpace(o.name)
	email := strings.TrimSpace(o.email)
	if name == "" && email == "" {
		return nil
	}
	id := email
	if id == "" {
		id = name
	}
	return &auth.User{ID: id, Name: name, Email: email, Role: "analyst"}
}

// app is one CLI invocation: a session over the configured adapters.
type app struct {
	cfg     *config.Config
	svc     *appsession.Service
	session *appsession.Manager
	close   func() error
}

func newApp(ctx context.Context, o *options) (*app, error) {
	if err := config.InitCLILogger(o.logLevel); err != nil {
		return nil, err
	}
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	classifier, err := bootstrap.NewClassifier(cfg)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := bootstrap.NewHistoryStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc := &appsession.Service{
		Classifier: classifier,
		Store:      store,
		Clock:      application.SystemClock{},
		Capacity:   cfg.History.Capacity,
		HistoryKey: cfg.History.Key,
	}
	m := svc.Open(ctx, infraauth.NewSessionProvider(o.user()))
	return &app{cfg: cfg, svc: svc, session: m, close: closeStore}, nil
}

func (a *app) Close() error {
	return a.close()
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gao-dev/doclife/internal/config"
	"github.com/gao-dev/doclife/internal/governance"
	"github.com/gao-dev/doclife/internal/health"
	"github.com/gao-dev/doclife/internal/lifecycle"
	"github.com/gao-dev/doclife/internal/retention"
	"github.com/gao-dev/doclife/internal/scanner"
	"github.com/gao-dev/doclife/internal/search"
	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/storage/sqlite"
)

// version is stamped by the release build via -ldflags.
var version = "dev"

// app holds the lazily-opened project state shared by commands.
type app struct {
	cfg     *config.Config
	store   storage.Storage
	manager *lifecycle.Manager
	engine  *search.Engine
}

var currentApp *app

// openApp discovers the project, opens the registry, and wires the
// lifecycle manager and search engine. Commands call this at the top of
// Run; a missing project is fatal.
func openApp(ctx context.Context) *app {
	if currentApp != nil {
		return currentApp
	}

	dir := projectDirFlag
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			FatalError("getwd: %v", err)
		}
		dir = cwd
	}
	root, err := config.FindProjectRoot(dir)
	if err != nil {
		FatalError("%v", err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		FatalError("%v", err)
	}

	store, err := sqlite.New(ctx, cfg.AbsDBPath())
	if err != nil {
		FatalError("open registry: %v", err)
	}

	manager := lifecycle.New(store, lifecycle.Config{
		Root:       cfg.AbsDocsRoot(),
		ArchiveDir: cfg.Resolve(cfg.ArchiveDir),
	})
	currentApp = &app{
		cfg:     cfg,
		store:   store,
		manager: manager,
		engine:  search.New(store, cfg.AbsDocsRoot()),
	}
	return currentApp
}

func closeApp() {
	if currentApp != nil {
		_ = currentApp.store.Close()
		currentApp = nil
	}
}

// author resolves the audit-trail author: flag, then config, then $USER.
func (a *app) author() string {
	if authorFlag != "" {
		return authorFlag
	}
	if a.cfg.Author != "" {
		return a.cfg.Author
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "unknown"
}

// retentionEngine loads the retention policy file and builds the engine.
func (a *app) retentionEngine() *retention.Engine {
	policies, err := retention.LoadPolicies(a.cfg.Resolve(a.cfg.RetentionConfig))
	if err != nil {
		FatalError("%v", err)
	}
	return retention.New(a.store, a.manager, policies, a.cfg.AbsDocsRoot())
}

// governanceEngine loads the governance config file and builds the
// engine.
func (a *app) governanceEngine() *governance.Engine {
	cfg, err := governance.LoadConfig(a.cfg.Resolve(a.cfg.GovernanceConfig))
	if err != nil {
		FatalError("%v", err)
	}
	return governance.New(a.store, cfg)
}

func (a *app) healthChecker() *health.Checker {
	cfg, err := governance.LoadConfig(a.cfg.Resolve(a.cfg.GovernanceConfig))
	if err != nil {
		FatalError("%v", err)
	}
	return health.New(a.store, cfg, a.cfg.AbsDocsRoot())
}

func (a *app) scanner() *scanner.Scanner {
	return scanner.New(a.store, a.manager, a.engine, a.cfg.AbsDocsRoot(), a.author())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("doclife %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Package main is the habitsim CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/habitsim/internal/cli"
	"github.com/hyperjump/habitsim/internal/config"
	"github.com/hyperjump/habitsim/internal/extract"
	"github.com/hyperjump/habitsim/internal/indexer"
	"github.com/hyperjump/habitsim/internal/keyword"
	"github.com/hyperjump/habitsim/internal/model"
	"github.com/hyperjump/habitsim/internal/models"
	"github.com/hyperjump/habitsim/internal/recommend"
	"github.com/hyperjump/habitsim/internal/search"
	"github.com/hyperjump/habitsim/internal/server"
	"github.com/hyperjump/habitsim/internal/storage"
	"github.com/hyperjump/habitsim/internal/watcher"
	"github.com/hyperjump/habitsim/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

// loadConfig loads config from path. When path is the default, a missing file falls
// back to config.yaml in the current directory and then to built-in defaults.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == config.DefaultConfigPath || path == "" {
		candidates := []string{config.DefaultConfigPath}
		if cwd, err := os.Getwd(); err == nil {
			candidates = append(candidates, filepath.Join(cwd, "config.yaml"))
		}
		return config.LoadOrDefault(candidates...)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || (strings.HasPrefix(args[0], "-") && !isMetaFlag(args[0])) {
		return runPipe(args, stdin, stdout, stderr)
	}
	command := args[0]
	switch command {
	case "server":
		return runServer(args[1:], stderr)
	case "import":
		return runImport(args[1:], stdout, stderr)
	case "export":
		return runExport(args[1:], stdout, stderr)
	case "status":
		return runStatus(args[1:], stdout, stderr)
	case "search":
		return runSearch(args[1:], stdout, stderr)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "habitsim version %s\n", version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}
}

func isMetaFlag(arg string) bool {
	switch arg {
	case "--version", "-v", "--help", "-h":
		return true
	}
	return false
}

// runPipe reads one request from stdin and writes one JSON document to stdout. It exits
// 0 whenever a document was written, including error bodies.
func runPipe(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("habitsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	train := fs.Bool("train", false, "vectorize the request's habits and save the model instead of recommending")
	output := fs.String("output", "", "model file path (default from config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, _, err := loadConfig("")
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config, using defaults: %v\n", err)
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}
	logger := utils.MustLogger(cfg.Debug)
	defer logger.Sync()

	modelPath := cfg.Model.Path
	if *output != "" {
		modelPath = *output
	}
	store := model.NewStore(modelPath, model.WithLogger(logger))
	svc := recommend.NewService(store, recommend.WithLogger(logger))

	if err := cli.NewPipe(svc, logger).Run(context.Background(), stdin, stdout, *train); err != nil {
		fmt.Fprintf(stderr, "Failed to write response: %v\n", err)
		return 1
	}
	return 0
}

func runServer(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (model reloads, requests, etc.)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		logger.Error("Failed to initialize components", zap.Error(err))
		return 1
	}
	defer components.Close()

	srv := server.NewServer(components.Service, components.Storage, components.KeywordIndex, cfg, logger)
	srv.ReloadModel()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	for _, path := range cfg.Storage.ImportPaths {
		n, err := components.Indexer.ImportFile(ctx, path)
		if err != nil {
			logger.Warn("habit import failed", zap.String("path", path), zap.Error(err))
			continue
		}
		logger.Info("habits imported", zap.String("path", path), zap.Int("habits", n))
	}
	if err := srv.SyncIndex(ctx); err != nil {
		logger.Error("Failed to build habit index", zap.Error(err))
		return 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	if cfg.Model.WatchOrDefault() {
		files := append([]string{cfg.Model.Path}, cfg.Storage.ImportPaths...)
		onChange, onRemove := changeHandlers(cfg.Model.Path, func() { srv.ReloadModel() }, func(path string) {
			n, err := components.Indexer.ImportFile(gctx, path)
			if err != nil {
				logger.Warn("habit re-import failed", zap.String("path", path), zap.Error(err))
				return
			}
			logger.Info("habits re-imported", zap.String("path", path), zap.Int("habits", n))
		}, components.Indexer.Forget)
		w := watcher.NewWatcher(files, onChange,
			watcher.WithLogger(logger),
			watcher.WithRemoveHandler(onRemove),
		)
		g.Go(func() error { return w.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return 1
	}
	return 0
}

// changeHandlers routes watcher callbacks: the model file reloads the model, any other
// watched file is re-imported on change and forgotten on removal.
func changeHandlers(modelPath string, reload func(), reimport, forget func(path string)) (onChange, onRemove func(path string)) {
	modelPath = cleanAbs(modelPath)
	onChange = func(path string) {
		if cleanAbs(path) == modelPath {
			reload()
			return
		}
		reimport(path)
	}
	onRemove = func(path string) {
		if cleanAbs(path) == modelPath {
			reload()
			return
		}
		forget(path)
	}
	return onChange, onRemove
}

func cleanAbs(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// argsReorder moves flags that follow positional arguments to the front so that
// "import habits.json --train" parses like "import --train habits.json".
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runImport(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultConfigPath, "config file path")
	train := fs.Bool("train", false, "retrain the model from all stored habits after importing")
	if err := fs.Parse(argsReorder(args)); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: habitsim import [--config path] [--train] <habits.json|habits.xlsx|habits.txt>")
		return 1
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	logger := utils.MustLogger(cfg.Debug)
	defer logger.Sync()

	habits, err := extract.NewExtractor(extract.WithLogger(logger)).Load(path)
	if err != nil {
		fmt.Fprintf(stderr, "Import failed: %v\n", err)
		return 1
	}

	components, err := initializeComponents(cfg, logger, false)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize: %v\n", err)
		return 1
	}
	defer components.Close()

	ctx := context.Background()
	n, err := components.Indexer.ImportHabits(ctx, habits)
	if err != nil {
		fmt.Fprintf(stderr, "Import failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Imported %d habits from %s\n", n, path)
	cli.WriteHabits(stdout, habits)

	if *train {
		all, err := components.Storage.ListHabits(ctx, 0, 0)
		if err != nil {
			fmt.Fprintf(stderr, "Train failed: %v\n", err)
			return 1
		}
		resp, err := components.Service.Train(ctx, all)
		if err != nil {
			fmt.Fprintf(stderr, "Train failed: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Model saved to %s (%d habits)\n", resp.Saved, resp.HabitCount)
	}
	return 0
}

func runExport(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultConfigPath, "config file path")
	out := fs.String("out", "-", "output file (.json or .xlsx); - writes JSON to stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	logger := utils.MustLogger(cfg.Debug)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, false)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize: %v\n", err)
		return 1
	}
	defer components.Close()

	habits, err := components.Storage.ListHabits(context.Background(), 0, 0)
	if err != nil {
		fmt.Fprintf(stderr, "Export failed: %v\n", err)
		return 1
	}
	if *out == "-" {
		err = extract.WriteJSON(stdout, habits)
	} else {
		err = extract.Export(*out, habits)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Export failed: %v\n", err)
		return 1
	}
	if *out != "-" {
		fmt.Fprintf(stdout, "Exported %d habits to %s\n", len(habits), *out)
	}
	return 0
}

func runStatus(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "", "server URL; empty reads the model and database directly")
	outputFormat := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *outputFormat != "text" && *outputFormat != "json" {
		fmt.Fprintf(stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		return 1
	}

	var status *models.StatusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(stderr, "Status failed: %v\n", err)
			return 1
		}
		status = res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
			return 1
		}
		logger := utils.MustLogger(cfg.Debug)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, false)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to initialize: %v\n", err)
			return 1
		}
		defer components.Close()
		status, err = components.Service.Status(context.Background(), components.Storage, cfg.Storage.DatabasePath)
		if err != nil {
			fmt.Fprintf(stderr, "Status failed: %v\n", err)
			return 1
		}
	}

	if err := cli.WriteStatus(stdout, status, cli.ParseOutputFormat(*outputFormat)); err != nil {
		fmt.Fprintf(stderr, "Output failed: %v\n", err)
		return 1
	}
	return 0
}

func runSearch(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "", "server URL; empty searches the database directly")
	limit := fs.Int("limit", 0, "number of results (default from config)")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	outputFormat := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(argsReorder(args)); err != nil {
		return 2
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Fprintln(stderr, "Usage: habitsim search [flags] <query>")
		return 1
	}

	var resp *models.SearchResponse
	if *serverURL != "" {
		res, err := searchViaHTTP(*serverURL, query, *limit, *fuzzy)
		if err != nil {
			fmt.Fprintf(stderr, "Search failed: %v\n", err)
			return 1
		}
		resp = res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
			return 1
		}
		logger := utils.MustLogger(cfg.Debug)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, true)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to initialize: %v\n", err)
			return 1
		}
		defer components.Close()

		ctx := context.Background()
		habits, err := components.Storage.ListHabits(ctx, 0, 0)
		if err == nil {
			err = components.KeywordIndex.Rebuild(ctx, habits)
		}
		if err != nil {
			fmt.Fprintf(stderr, "Search failed: %v\n", err)
			return 1
		}
		n := *limit
		if n <= 0 {
			n = cfg.Search.DefaultLimit
		}
		engine := search.NewEngine(components.Storage, components.KeywordIndex, &cfg.Search)
		results, err := engine.Search(ctx, search.Query{
			Text:  query,
			Limit: utils.ClampInt(n, 1, cfg.Search.MaxLimit),
			Fuzzy: *fuzzy,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Search failed: %v\n", err)
			return 1
		}
		resp = &models.SearchResponse{Query: query, Results: results}
	}

	if err := cli.WriteSearch(stdout, resp, cli.ParseOutputFormat(*outputFormat)); err != nil {
		fmt.Fprintf(stderr, "Output failed: %v\n", err)
		return 1
	}
	return 0
}

func searchViaHTTP(serverURL, query string, limit int, fuzzy bool) (*models.SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if fuzzy {
		params.Set("fuzzy", "true")
	}
	var resp models.SearchResponse
	if err := getJSON(strings.TrimSuffix(serverURL, "/")+"/api/v1/habits/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func statusViaHTTP(serverURL string) (*models.StatusResponse, error) {
	var status models.StatusResponse
	if err := getJSON(strings.TrimSuffix(serverURL, "/")+"/api/v1/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func getJSON(u string, v interface{}) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(u)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e models.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds the long-lived pieces shared by subcommands.
type Components struct {
	Storage      *storage.SQLiteStorage
	Store        *model.Store
	Service      *recommend.Service
	KeywordIndex keyword.HabitIndex
	Indexer      *indexer.Indexer
}

// Close releases storage and index handles.
func (c *Components) Close() {
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, withIndex bool) (*Components, error) {
	db, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	store := model.NewStore(cfg.Model.Path, model.WithLogger(logger))
	svc := recommend.NewService(store,
		recommend.WithLogger(logger),
		recommend.WithCache(cfg.Model.CacheSize),
	)
	c := &Components{Storage: db, Store: store, Service: svc}

	if withIndex {
		idx, err := keyword.NewBleveIndex()
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
		}
		c.KeywordIndex = idx
	}
	c.Indexer = indexer.NewIndexer(db, c.KeywordIndex, extract.NewExtractor(extract.WithLogger(logger)),
		indexer.WithLogger(logger))
	return c, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `habitsim - TF-IDF habit recommender

Usage:
  habitsim [--train] [--output path] < request.json
                                  Answer one JSON request on stdin with one JSON document
  habitsim server [flags]         Start the HTTP server
  habitsim import [flags] <file>  Load habits from .json, .xlsx or .txt into the database
  habitsim export [flags]         Write stored habits as JSON or .xlsx
  habitsim status [flags]         Show model and database status
  habitsim search [flags] <query> Find habits by keyword and TF-IDF similarity
  habitsim version                Show version
  habitsim help                   Show this help

Pipe Flags:
  --train            Vectorize the request's habits and save the model
  --output string    Model file path (default from config: `+config.DefaultModelPath+`)

Server Flags:
  --config string    Config file path (default: `+config.DefaultConfigPath+`)
  --debug            Enable debug logging

Import Flags:
  --config string    Config file path
  --train            Retrain the model from all stored habits afterwards

Export Flags:
  --config string    Config file path
  --out string       Output file (.json or .xlsx); - for stdout (default: -)

Status Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL; empty reads files directly
  --output string    Output format: text or json (default: text)

Search Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL; empty searches the database directly
  --limit int        Number of results (default from config)
  --fuzzy            Enable fuzzy matching for typo tolerance
  --output string    Output format: text or json (default: text)

Examples:
  echo '{"habits":[{"id":"a","name":"Morning Run"},{"id":"b","name":"Evening Run"}],"targetHabitId":"a"}' | habitsim
  habitsim --train --output ./models/habit_tfidf.json < habits.json
  habitsim import --train habits.xlsx
  habitsim export --out habits.json
  habitsim status --output json
  habitsim search --fuzzy mornin run`)
}

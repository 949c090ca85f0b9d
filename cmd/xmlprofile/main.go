// CLAUDE:SUMMARY CLI entry point for xmlprofile — learn/check documents, query and prune a profile, serve MCP or HTTP.
// Command xmlprofile learns the structure of XML documents into a profile
// and checks new documents against it.
//
// Usage:
//
//	xmlprofile -db app.profile learn a.xml b.xml
//	xmlprofile -db app.profile check c.xml
//	xmlprofile -db app.profile children config
//	xmlprofile -db app.profile delete server
//	xmlprofile -db app.profile serve-mcp
//	xmlprofile -config xmlprofile.yaml serve-http :8080
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/xmlprofile/doctree"
	"github.com/hazyhaar/xmlprofile/profile"
	"github.com/hazyhaar/xmlprofile/registry"
)

const usage = `usage: xmlprofile [-config file] [-db path] [-log-level level] <command> [args]

commands:
  learn <file>...          learn XML (or .html) documents
  check <file>             exit 0 if the document only uses known structure
  diff <file>              list unknown elements, edges and attributes
  elements                 list known elements
  children <element>       list known children of an element
  attributes <element>     list known attribute names of an element
  values <element> <attr>  list known values of an attribute
  roots                    list known root elements
  is-root <profile> <name> check a root in another profile without opening it
  delete <element>         cascade-delete an element
  unlink <parent> <child>  remove an edge, deleting the child if orphaned
  stats                    record counts
  ingestions [n]           recent learn runs
  normalize                re-encode every stored field
  profiles                 list registered profiles
  serve-mcp                serve MCP tools on stdio
  serve-http <addr>        serve the HTTP API`

func main() {
	configPath := flag.String("config", "", "path to xmlprofile.yaml config file")
	dbPath := flag.String("db", "", "path to the profile database")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code, err := run(ctx, logger, *configPath, *dbPath, flag.Args())
	if err != nil {
		logger.Error("xmlprofile: fatal", "error", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func resolveConfig(configPath, dbPath string) (*profile.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &profile.Config{}
	if configPath != "" {
		loaded, err := profile.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func run(ctx context.Context, logger *slog.Logger, configPath, dbPath string, args []string) (int, error) {
	cfg, err := resolveConfig(configPath, dbPath)
	if err != nil {
		return 1, err
	}
	cmd, args := args[0], args[1:]

	reg := registry.New(cfg.RegistryPath)
	switch cmd {
	case "profiles":
		list, err := reg.List()
		if err != nil {
			return 1, err
		}
		return 0, printJSON(list)
	case "is-root":
		if len(args) != 2 {
			return 2, errors.New("is-root: want <profile> <name>")
		}
		ok, err := profile.IsKnownRoot(ctx, args[0], args[1])
		if err != nil {
			return 1, err
		}
		return boolCode(ok), printJSON(map[string]bool{"known_root": ok})
	}

	session := registry.NewSession(reg, *cfg, logger)
	defer session.Close()
	p, err := session.Activate(ctx, cfg.DBPath)
	if err != nil {
		return 1, err
	}
	return dispatch(ctx, logger, p, cmd, args)
}

func dispatch(ctx context.Context, logger *slog.Logger, p *profile.Profile, cmd string, args []string) (int, error) {
	need := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s: want %d argument(s), got %d", cmd, n, len(args))
		}
		return nil
	}

	switch cmd {
	case "learn":
		if len(args) == 0 {
			return 2, errors.New("learn: no files")
		}
		for _, path := range args {
			doc, err := parseFile(path)
			if err != nil {
				return 1, err
			}
			in, err := p.Learn(ctx, doc, profile.LearnOptions{
				Source:   path,
				Progress: func(step string) { logger.Debug("xmlprofile: learn step", "file", path, "step", step) },
			})
			if err != nil {
				return 1, fmt.Errorf("learn %s: %w", path, err)
			}
			logger.Info("xmlprofile: learned", "file", path, "id", in.ID, "elements", in.Elements)
		}
		return 0, nil

	case "check", "diff":
		if err := need(1); err != nil {
			return 2, err
		}
		doc, err := parseFile(args[0])
		if err != nil {
			return 1, err
		}
		rep, err := p.Diff(ctx, doc)
		if err != nil {
			return 1, err
		}
		if cmd == "check" {
			return boolCode(rep.Compatible()), printJSON(map[string]bool{"compatible": rep.Compatible()})
		}
		return boolCode(rep.Compatible()), printJSON(rep)

	case "elements":
		return result(p.KnownElements(ctx))
	case "roots":
		return result(p.KnownRoots(ctx))
	case "children":
		if err := need(1); err != nil {
			return 2, err
		}
		return result(p.ChildrenOf(ctx, args[0]))
	case "attributes":
		if err := need(1); err != nil {
			return 2, err
		}
		return result(p.AttributesOf(ctx, args[0]))
	case "values":
		if err := need(2); err != nil {
			return 2, err
		}
		return result(p.ValuesOf(ctx, args[0], args[1]))

	case "delete":
		if err := need(1); err != nil {
			return 2, err
		}
		return result(p.CascadeDelete(ctx, args[0]))
	case "unlink":
		if err := need(2); err != nil {
			return 2, err
		}
		return result(p.UnlinkChild(ctx, args[0], args[1]))

	case "stats":
		return result(p.Stats(ctx))
	case "ingestions":
		limit := 20
		if len(args) == 1 {
			if _, err := fmt.Sscanf(args[0], "%d", &limit); err != nil {
				return 2, fmt.Errorf("ingestions: bad count %q", args[0])
			}
		}
		return result(p.Ingestions(ctx, limit))
	case "normalize":
		n, err := p.Normalize(ctx)
		if err != nil {
			return 1, err
		}
		return 0, printJSON(map[string]int{"rewritten": n})

	case "serve-mcp":
		srv := mcp.NewServer(&mcp.Implementation{Name: "xmlprofile", Version: "0.1.0"}, nil)
		p.RegisterMCP(srv)
		logger.Info("xmlprofile: serving MCP on stdio", "db", p.Path())
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return 1, err
		}
		return 0, nil

	case "serve-http":
		if err := need(1); err != nil {
			return 2, err
		}
		return serveHTTP(ctx, logger, p, args[0])
	}
	return 2, fmt.Errorf("unknown command %q", cmd)
}

func serveHTTP(ctx context.Context, logger *slog.Logger, p *profile.Profile, addr string) (int, error) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           p.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("xmlprofile: serving HTTP", "addr", addr, "db", p.Path())

	select {
	case err := <-errCh:
		return 1, err
	case <-ctx.Done():
	}
	logger.Info("xmlprofile: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return 1, err
	}
	return 0, nil
}

func parseFile(path string) (*doctree.Element, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return doctree.ParseHTML(f)
	}
	doc, err := doctree.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func result[T any](v T, err error) (int, error) {
	if err != nil {
		return 1, err
	}
	return 0, printJSON(v)
}

func boolCode(ok bool) int {
	if ok {
		return 0
	}
	return 3
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

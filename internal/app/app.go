// Package app wires the load pipeline together: it discovers .cob files,
// feeds them to the cache, renders any diagnostics, and optionally dumps
// the resolved output as JSON.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/coblang/cob/internal/cache"
	"github.com/coblang/cob/internal/ctxlog"
	"github.com/coblang/cob/internal/ctyconv"
	"github.com/coblang/cob/internal/fsutil"
)

// App is the top-level application object.
type App struct {
	outW   io.Writer
	errW   io.Writer
	logger *slog.Logger
	config *Config
	cache  *cache.Cache
}

// NewApp constructs an App from a validated Config. Normal output goes to
// outW, diagnostics and logs to errW.
func NewApp(outW, errW io.Writer, cfg *Config) *App {
	return &App{
		outW:   outW,
		errW:   errW,
		logger: newLogger(cfg.LogLevel, cfg.LogFormat, errW),
		config: cfg,
		cache:  cache.New(),
	}
}

// Cache exposes the underlying cache, mainly for tests.
func (a *App) Cache() *cache.Cache {
	return a.cache
}

// Run loads every discovered file into the cache, prints diagnostics for
// files that did not resolve, and returns an error if any file failed.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Info("starting load", "path", a.config.Path)

	paths, err := a.collectPaths()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .cob files found under %q", a.config.Path)
	}

	sources := make(map[string]*hcl.File, len(paths))
	for _, p := range paths {
		src, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading %q: %w", p, err)
		}
		sources[p] = &hcl.File{Bytes: src}
		a.cache.Submit(ctx, p, src)
	}

	var failed []string
	var diags hcl.Diagnostics
	for _, p := range paths {
		if errs := a.cache.Errors(p); errs.HasErrors() {
			failed = append(failed, p)
			diags = append(diags, errs.Diagnostics()...)
		} else if a.cache.State(p) != cache.StateResolved {
			failed = append(failed, p)
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unresolved imports",
				Detail:   fmt.Sprintf("File %q imports files that were never loaded.", p),
			})
		}
	}

	if len(diags) > 0 {
		wr := hcl.NewDiagnosticTextWriter(a.errW, sources, 100, false)
		if err := wr.WriteDiagnostics(diags); err != nil {
			return err
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed to resolve: %s",
			len(failed), len(paths), strings.Join(failed, ", "))
	}

	a.logger.Info("load complete", "files", len(paths))
	if a.config.DumpResolved {
		return a.dumpResolved(paths)
	}
	return nil
}

// collectPaths turns the configured path into the concrete list of files
// to load: the path itself when it is a file, otherwise every .cob file
// under it.
func (a *App) collectPaths() ([]string, error) {
	info, err := os.Stat(a.config.Path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{a.config.Path}, nil
	}
	paths, err := fsutil.FindFilesByExtension(a.config.Path, ".cob")
	if err != nil {
		return nil, fmt.Errorf("scanning %q: %w", a.config.Path, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// dumpResolved writes each resolved file as one JSON document to outW.
func (a *App) dumpResolved(paths []string) error {
	for _, p := range paths {
		rf, ok := a.cache.Resolved(p)
		if !ok {
			continue
		}
		cv, err := ctyconv.Resolved(rf)
		if err != nil {
			return fmt.Errorf("converting %q: %w", p, err)
		}
		buf, err := ctyjson.Marshal(cv, cv.Type())
		if err != nil {
			return fmt.Errorf("encoding %q: %w", p, err)
		}
		if _, err := fmt.Fprintf(a.outW, "%s\n", buf); err != nil {
			return err
		}
	}
	return nil
}

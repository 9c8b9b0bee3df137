/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"stagescript/internal/backend"
	"stagescript/internal/config"
	"stagescript/internal/crash"
	"stagescript/internal/domain"
	applog "stagescript/internal/log"
	"stagescript/internal/script"
	"stagescript/internal/storage"
	"stagescript/internal/telemetry"
	"stagescript/internal/version"
)

// currentPlay is set once a command has a workspace open so the crash
// handler can autosave the in-memory document.
var currentPlay *storage.PlayHandle

func usage() {
	fmt.Println("Stagescript — stageplay script tooling")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  stagescript version|-v|--version           Show version")
	fmt.Println("  stagescript lint <file>                    Parse a script and report diagnostics")
	fmt.Println("  stagescript convert <file> [out.json]      Parse a script and write the interchange form")
	fmt.Println("  stagescript validate <file.json>           Check an interchange file against the schema")
	fmt.Println("  stagescript init <dir>                     Create an empty play workspace at <dir>")
	fmt.Println("  stagescript import <dir> <file>            Parse <file> into the workspace and index it")
	fmt.Println("  stagescript search <dir> <query>           Full-text search over the workspace index")
	fmt.Println("  stagescript characters <dir>               List characters registered in the index")
	fmt.Println("  stagescript push <dir> [title]             Publish the workspace play to the backend")
	fmt.Println("  stagescript plays                          List plays known to the backend")
	fmt.Println()
	fmt.Println("Parse mode comes from the user config or SGS_PARSE_MODE (lenient|strict).")
}

func main() {
	cfg, token, cfgErr := config.Load()
	if cfgErr != nil {
		cfg = config.Defaults()
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	defer func() { crash.Recover(currentPlay) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("Stagescript — stageplay script tooling")
			fmt.Println(version.String())
			return
		case "lint":
			if len(args) < 3 {
				fmt.Println("lint requires <file>")
				usage()
				os.Exit(2)
			}
			os.Exit(runLint(l, cfg, args[2]))
		case "convert":
			if len(args) < 3 {
				fmt.Println("convert requires <file>")
				usage()
				os.Exit(2)
			}
			out := ""
			if len(args) >= 4 {
				out = args[3]
			}
			os.Exit(runConvert(l, cfg, args[2], out))
		case "validate":
			if len(args) < 3 {
				fmt.Println("validate requires <file.json>")
				usage()
				os.Exit(2)
			}
			os.Exit(runValidate(l, args[2]))
		case "init":
			if len(args) < 3 {
				fmt.Println("init requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("init workspace", slog.String("root", abs))
			h, err := storage.InitWorkspace(abs, domain.Document{})
			if err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			currentPlay = h
			fmt.Println("Created workspace at", abs)
			return
		case "import":
			if len(args) < 4 {
				fmt.Println("import requires <dir> and <file>")
				usage()
				os.Exit(2)
			}
			os.Exit(runImport(l, cfg, args[2], args[3]))
		case "search":
			if len(args) < 4 {
				fmt.Println("search requires <dir> and <query>")
				usage()
				os.Exit(2)
			}
			os.Exit(runSearch(l, args[2], args[3]))
		case "characters":
			if len(args) < 3 {
				fmt.Println("characters requires <dir>")
				usage()
				os.Exit(2)
			}
			os.Exit(runCharacters(l, args[2]))
		case "push":
			if len(args) < 3 {
				fmt.Println("push requires <dir>")
				usage()
				os.Exit(2)
			}
			title := ""
			if len(args) >= 4 {
				title = args[3]
			}
			os.Exit(runPush(l, cfg, token, args[2], title))
		case "plays":
			os.Exit(runPlays(l, cfg, token))
		}
	}

	usage()
}

func parseMode(cfg config.AppConfig) script.Mode {
	if cfg.Parse.Mode == "strict" {
		return script.Strict
	}
	return script.Lenient
}

func parseOptions(cfg config.AppConfig) []script.Option {
	var opts []script.Option
	if cfg.Parse.RejectActLevelElements {
		opts = append(opts, script.RejectActLevelElements())
	}
	return opts
}

func parseFile(l *slog.Logger, cfg config.AppConfig, path string) (*domain.Document, []domain.Diagnostic, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return script.Parse(string(b), parseMode(cfg), parseOptions(cfg)...)
}

func printDiagnostics(diags []domain.Diagnostic) (errors int) {
	for _, d := range diags {
		fmt.Printf("%s: line %d: %s: %s\n", d.Severity, d.Line, d.Kind, d.Message)
		if d.Severity == domain.SeverityError {
			errors++
		}
	}
	return errors
}

func runLint(l *slog.Logger, cfg config.AppConfig, path string) int {
	l = applog.WithOperation(l, "lint").With(slog.String("file", path))
	doc, diags, err := parseFile(l, cfg, path)
	nerr := printDiagnostics(diags)
	if err != nil {
		l.Error("parse aborted", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	fmt.Printf("%s: %d diagnostics (%d errors), %d characters\n", path, len(diags), nerr, len(doc.Characters))
	emitEvent(telemetry.EventLint, map[string]any{"diagnostics": len(diags), "errors": nerr})
	if nerr > 0 {
		return 1
	}
	return 0
}

// emitEvent sends an opt-in usage event and drains the queue so the
// short-lived CLI process does not exit before delivery.
func emitEvent(name string, props map[string]any) {
	if !telemetry.Enabled() {
		return
	}
	telemetry.Event(name, props)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	telemetry.Flush(ctx)
}

func runConvert(l *slog.Logger, cfg config.AppConfig, path, out string) int {
	l = applog.WithOperation(l, "convert").With(slog.String("file", path))
	doc, diags, err := parseFile(l, cfg, path)
	printDiagnostics(diags)
	if err != nil {
		l.Error("parse aborted", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	data, err := domain.Marshal(doc)
	if err != nil {
		l.Error("marshal failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	if out == "" {
		_, _ = os.Stdout.Write(data)
		return 0
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		l.Error("write failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	fmt.Println("Wrote", out)
	return 0
}

func runValidate(l *slog.Logger, path string) int {
	l = applog.WithOperation(l, "validate").With(slog.String("file", path))
	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("Error:", err)
		return 1
	}
	violations, err := storage.ValidateInterchange(b)
	if err != nil {
		l.Error("validate failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	if len(violations) > 0 {
		for _, v := range violations {
			fmt.Println("schema:", v)
		}
		return 1
	}
	fmt.Println(path, "conforms to the interchange schema")
	return 0
}

func runImport(l *slog.Logger, cfg config.AppConfig, dir, file string) int {
	abs, _ := filepath.Abs(dir)
	l = applog.WithOperation(l, "import").With(slog.String("root", abs), slog.String("file", file))
	doc, diags, err := parseFile(l, cfg, file)
	nerr := printDiagnostics(diags)
	if err != nil {
		l.Error("parse aborted", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	if nerr > 0 {
		fmt.Println("Refusing to import a script with errors.")
		return 1
	}
	ph, err := storage.InitWorkspace(abs, *doc)
	if err != nil {
		l.Error("workspace init failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	currentPlay = ph
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := storage.IndexDocument(ctx, abs, file, &ph.Document); err != nil {
		l.Error("index failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	fmt.Printf("Imported %s into %s (%d characters)\n", file, abs, len(doc.Characters))
	emitEvent(telemetry.EventImport, map[string]any{"characters": len(doc.Characters), "diagnostics": len(diags)})
	return 0
}

func runSearch(l *slog.Logger, dir, query string) int {
	abs, _ := filepath.Abs(dir)
	l = applog.WithOperation(l, "search").With(slog.String("root", abs))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := storage.Search(ctx, abs, storage.SearchQuery{Text: query})
	if err != nil {
		l.Error("search failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	for _, r := range res {
		loc := r.Act
		if r.Scene != "" {
			if loc != "" {
				loc += " / "
			}
			loc += r.Scene
		}
		if loc == "" {
			loc = "-"
		}
		fmt.Printf("%s:%d [%s] (%s) %s\n", r.PlayPath, r.StartLine, r.Kind, loc, r.Snippet)
	}
	fmt.Printf("%d results\n", len(res))
	return 0
}

func runPush(l *slog.Logger, cfg config.AppConfig, token, dir, title string) int {
	abs, _ := filepath.Abs(dir)
	l = applog.WithOperation(l, "push").With(slog.String("root", abs))
	ph, err := storage.Open(abs)
	if err != nil {
		l.Error("open workspace failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	currentPlay = ph
	if title == "" {
		title = ph.Document.Title
	}
	data, err := domain.Marshal(&ph.Document)
	if err != nil {
		l.Error("marshal failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	cli := backend.NewClient(cfg.Backend.BaseURL, token)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := cli.PublishPlay(ctx, title, data)
	if err != nil {
		l.Error("publish failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	fmt.Printf("Published %q as play %d (version %d)\n", title, res.PlayID, res.Version)
	emitEvent(telemetry.EventPush, map[string]any{"version": res.Version})
	return 0
}

func runPlays(l *slog.Logger, cfg config.AppConfig, token string) int {
	l = applog.WithOperation(l, "plays")
	cli := backend.NewClient(cfg.Backend.BaseURL, token)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	plays, err := cli.ListPlays(ctx)
	if err != nil {
		l.Error("list plays failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	for _, p := range plays {
		fmt.Printf("%d\t%s\tv%d\t%s\n", p.ID, p.Title, p.Version, p.UpdatedAt.Format(time.RFC3339))
	}
	fmt.Printf("%d plays\n", len(plays))
	return 0
}

func runCharacters(l *slog.Logger, dir string) int {
	abs, _ := filepath.Abs(dir)
	l = applog.WithOperation(l, "characters").With(slog.String("root", abs))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	rows, err := storage.Characters(ctx, abs, "")
	if err != nil {
		l.Error("characters failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	for _, c := range rows {
		fmt.Printf("@%s\tfirst at line %d (%s)\t%s\n", c.Name, c.FirstLine, c.FirstUse, c.PlayPath)
	}
	fmt.Printf("%d characters\n", len(rows))
	return 0
}

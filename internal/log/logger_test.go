/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
		{" Debug ", slog.LevelDebug},
	}
	for _, c := range cases {
		got := parseLevel(c.in)
		if got.Level() != c.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", c.in, got.Level(), c.want)
		}
	}
}

func TestPrettyHandlerOutput(t *testing.T) {
	var sb strings.Builder
	h := &prettyTextHandler{opts: prettyOpts{Level: slog.LevelDebug}, w: &sb}
	logger := slog.New(h)
	logger.Info("parsed play", slog.String("title", "Hamlet"), slog.Int("acts", 5))

	out := sb.String()
	if !strings.Contains(out, " INF ") {
		t.Fatalf("expected INF marker in %q", out)
	}
	if !strings.Contains(out, "parsed play") {
		t.Fatalf("expected message in %q", out)
	}
	if !strings.Contains(out, "title=Hamlet") || !strings.Contains(out, "acts=5") {
		t.Fatalf("expected attrs in %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("expected trailing newline in %q", out)
	}
}

func TestPrettyHandlerGroupsAndAttrs(t *testing.T) {
	var sb strings.Builder
	var h slog.Handler = &prettyTextHandler{opts: prettyOpts{Level: slog.LevelDebug}, w: &sb}
	h = h.WithAttrs([]slog.Attr{slog.String("component", "script")})
	h = h.WithGroup("parse")
	logger := slog.New(h)
	logger.Warn("odd line", slog.Int("line", 12))

	out := sb.String()
	if !strings.Contains(out, " WRN ") {
		t.Fatalf("expected WRN marker in %q", out)
	}
	if !strings.Contains(out, "parse.line=12") {
		t.Fatalf("expected grouped attr key in %q", out)
	}
}

func TestPrettyHandlerLevelFilter(t *testing.T) {
	h := &prettyTextHandler{opts: prettyOpts{Level: slog.LevelWarn}, w: &strings.Builder{}}
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should be filtered at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should pass at warn level")
	}
}

func TestMultiHandlerFanOut(t *testing.T) {
	var a, b strings.Builder
	h := multiHandler(
		&prettyTextHandler{opts: prettyOpts{Level: slog.LevelDebug}, w: &a},
		&prettyTextHandler{opts: prettyOpts{Level: slog.LevelDebug}, w: &b},
	)
	logger := slog.New(h)
	logger.Info("hello")
	if !strings.Contains(a.String(), "hello") || !strings.Contains(b.String(), "hello") {
		t.Fatalf("expected record in both sinks, got %q and %q", a.String(), b.String())
	}
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("SGS_LOG_LEVEL", "")
	t.Setenv("SGS_LOG_FORMAT", "")
	t.Setenv("SGS_LOG_SOURCE", "")
	t.Setenv("SGS_LOG_FILE", "")
	opts := FromEnv()
	if opts.Level != "info" || opts.Format != "console" || opts.AddSource || opts.File != "" {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SGS_LOG_LEVEL", "debug")
	t.Setenv("SGS_LOG_FORMAT", "json")
	t.Setenv("SGS_LOG_SOURCE", "true")
	opts := FromEnv()
	if opts.Level != "debug" || opts.Format != "json" || !opts.AddSource {
		t.Fatalf("unexpected overrides: %+v", opts)
	}
}

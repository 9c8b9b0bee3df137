/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"stagescript/internal/domain"
)

func TestInitWorkspaceScaffoldsAndWrites(t *testing.T) {
	root := filepath.Join(t.TempDir(), "hamlet")
	ph, err := InitWorkspace(root, *samplePlay())
	if err != nil {
		t.Fatalf("InitWorkspace error: %v", err)
	}
	for _, d := range []string{"source", "exports", BackupsDirName} {
		if st, err := os.Stat(filepath.Join(root, d)); err != nil || !st.IsDir() {
			t.Fatalf("expected subdir %s: %v", d, err)
		}
	}
	if _, err := os.Stat(ph.PlayPath); err != nil {
		t.Fatalf("play.json missing: %v", err)
	}
}

func TestOpenRoundTripsDocument(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ws")
	want := samplePlay()
	if _, err := InitWorkspace(root, *want); err != nil {
		t.Fatalf("InitWorkspace error: %v", err)
	}
	ph, err := Open(root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if diff := cmp.Diff(want, &ph.Document); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveCreatesTimestampedBackup(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ws")
	ph, err := InitWorkspace(root, *samplePlay())
	if err != nil {
		t.Fatalf("InitWorkspace error: %v", err)
	}
	ph.Document.Title = "Revised Title"
	if err := Save(ph); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	ents, err := os.ReadDir(filepath.Join(root, BackupsDirName))
	if err != nil {
		t.Fatalf("read backups dir: %v", err)
	}
	found := false
	for _, e := range ents {
		if strings.HasPrefix(e.Name(), PlayFileName+".") && strings.HasSuffix(e.Name(), ".bak") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a timestamped backup after second save")
	}
	// The live file carries the new title
	reopened, err := Open(root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if reopened.Document.Title != "Revised Title" {
		t.Fatalf("title = %q after save", reopened.Document.Title)
	}
}

func TestOpenFallsBackToLatestBackup(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ws")
	ph, err := InitWorkspace(root, *samplePlay())
	if err != nil {
		t.Fatalf("InitWorkspace error: %v", err)
	}
	// Second save creates a backup of the original
	if err := Save(ph); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	// Corrupt the live interchange file
	if err := os.WriteFile(ph.PlayPath, []byte("{ not json"), 0o644); err != nil {
		t.Fatalf("corrupt play.json: %v", err)
	}
	reopened, err := Open(root)
	if err != nil {
		t.Fatalf("expected backup fallback, got error: %v", err)
	}
	if reopened.Document.Title != "The Index Test" {
		t.Fatalf("unexpected recovered title %q", reopened.Document.Title)
	}
}

func TestAutosaveCrashSnapshotWritesFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ws")
	ph, err := InitWorkspace(root, *samplePlay())
	if err != nil {
		t.Fatalf("InitWorkspace error: %v", err)
	}

	path, err := AutosaveCrashSnapshot(ph)
	if err != nil {
		t.Fatalf("AutosaveCrashSnapshot error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot file does not exist: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	got, err := domain.Unmarshal(b)
	if err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if got.Title != ph.Document.Title {
		t.Fatalf("snapshot content mismatch: got %q want %q", got.Title, ph.Document.Title)
	}
}

func TestValidateInterchangeAcceptsParsedDocument(t *testing.T) {
	data, err := domain.Marshal(samplePlay())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	violations, err := ValidateInterchange(data)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("unexpected schema violations: %v", violations)
	}
}

func TestValidateInterchangeRejectsBadKind(t *testing.T) {
	bad := []byte(`{"items":[{"kind":"soliloquy","line":1}]}`)
	violations, err := ValidateInterchange(bad)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(violations) == 0 {
		t.Fatalf("expected schema violations for unknown kind")
	}
}

func TestValidateInterchangeRejectsMissingItems(t *testing.T) {
	violations, err := ValidateInterchange([]byte(`{"title":"No Items"}`))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(violations) == 0 {
		t.Fatalf("expected a violation for missing items")
	}
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"stagescript/internal/domain"
)

const (
	PlayFileName   = "play.json"
	BackupsDirName = "backups"
)

// Standard subfolders of a play workspace.
var standardSubDirs = []string{
	"source",
	"exports",
	BackupsDirName,
}

//go:embed stagescript.schema.json
var interchangeSchema []byte

// PlayHandle keeps track of the play state loaded/saved from disk.
// Root is the workspace directory containing play.json and subfolders.
// Document holds the in-memory representation of the interchange file.
type PlayHandle struct {
	Root     string
	PlayPath string
	Document domain.Document
}

// InitWorkspace creates a new workspace directory at root (creating it if it doesn't exist),
// scaffolds the standard subfolders, and writes the given document transactionally.
func InitWorkspace(root string, doc domain.Document) (*PlayHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}

	ph := &PlayHandle{
		Root:     root,
		PlayPath: filepath.Join(root, PlayFileName),
		Document: doc,
	}
	if err := Save(ph); err != nil {
		return nil, err
	}
	return ph, nil
}

// Open loads an existing play from the given workspace root.
// If the current interchange file cannot be read or parsed, it will attempt the last backup.
func Open(root string) (*PlayHandle, error) {
	ppath := filepath.Join(root, PlayFileName)
	b, err := os.ReadFile(ppath)
	if err != nil {
		// try backup
		doc, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open play: %w; backup attempt: %v", err, berr)
		}
		return &PlayHandle{Root: root, PlayPath: ppath, Document: *doc}, nil
	}
	d, uerr := domain.Unmarshal(b)
	if uerr != nil {
		doc, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("parse play: %w; backup attempt: %v", uerr, berr)
		}
		return &PlayHandle{Root: root, PlayPath: ppath, Document: *doc}, nil
	}
	return &PlayHandle{Root: root, PlayPath: ppath, Document: *d}, nil
}

// Save writes the current PlayHandle.Document to disk with transactional semantics
// and a timestamped backup of the previous interchange file (if present).
func Save(ph *PlayHandle) error {
	if ph == nil {
		return errors.New("nil PlayHandle")
	}
	if ph.Root == "" || ph.PlayPath == "" {
		return errors.New("invalid PlayHandle: missing paths")
	}
	data, err := domain.Marshal(&ph.Document)
	if err != nil {
		return fmt.Errorf("marshal play: %w", err)
	}

	// Ensure backups dir exists
	bdir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	// If a current interchange file exists, copy it to a timestamped backup before replacing
	if _, statErr := os.Stat(ph.PlayPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bname := fmt.Sprintf("%s.%s.bak", PlayFileName, stamp)
		bpath := filepath.Join(bdir, bname)
		if cerr := copyFile(ph.PlayPath, bpath); cerr != nil {
			return fmt.Errorf("backup current play: %w", cerr)
		}
	}

	// Transactional write: to temp file in same directory, then rename over target
	dir := filepath.Dir(ph.PlayPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", PlayFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp play: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(ph.PlayPath); err == nil {
		_ = os.Remove(ph.PlayPath)
	}
	if rerr := os.Rename(temp, ph.PlayPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace play: %w", rerr)
	}
	return nil
}

// AutosaveCrashSnapshot writes the in-memory document to a timestamped
// snapshot file in the backups directory without touching play.json.
// It is meant to be called from a panic handler, so it avoids the
// backup-then-rename dance of Save.
func AutosaveCrashSnapshot(ph *PlayHandle) (string, error) {
	if ph == nil {
		return "", errors.New("nil PlayHandle")
	}
	if ph.Root == "" {
		return "", errors.New("invalid PlayHandle: missing root")
	}
	data, err := domain.Marshal(&ph.Document)
	if err != nil {
		return "", fmt.Errorf("marshal play: %w", err)
	}
	bdir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(bdir, fmt.Sprintf("autosave-crash-%s.json", stamp))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return path, nil
}

// ValidateInterchange checks interchange JSON bytes against the embedded schema.
// It returns a list of human-readable violations; an empty list means the document conforms.
func ValidateInterchange(data []byte) ([]string, error) {
	schemaLoader := gojsonschema.NewBytesLoader(interchangeSchema)
	docLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validate: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	var out []string
	for _, e := range result.Errors() {
		out = append(out, e.String())
	}
	return out, nil
}

// writeFileSync writes data to a file and ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	if err := df.Sync(); err != nil {
		return err
	}
	return nil
}

// openFromLatestBackup tries to open the latest timestamped backup.
func openFromLatestBackup(root string) (*domain.Document, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, PlayFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	d, err := domain.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	return d, nil
}

package tracker

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// skipDirs are never watched.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
}

// maxWatchedFileSize bounds the files Watch reads.
const maxWatchedFileSize = 1 << 20

// Watch feeds file writes under dir into t as user edits until ctx is done.
// Paths are reported relative to dir with a leading slash.
func Watch(ctx context.Context, dir string, t *Tracker) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := addTree(w, dir); err != nil {
		return err
	}
	t.logger.Info().Str("dir", dir).Msg("watching directory")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			handleEvent(w, dir, t, event)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			t.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

func handleEvent(w *fsnotify.Watcher, root string, t *Tracker, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) && !skipDirs[info.Name()] {
			if err := addTree(w, event.Name); err != nil {
				t.logger.Warn().Err(err).Str("dir", event.Name).Msg("failed to watch new directory")
			}
		}
		return
	}
	if info.Size() > maxWatchedFileSize {
		return
	}
	content, err := os.ReadFile(event.Name)
	if err != nil {
		t.logger.Warn().Err(err).Str("file", event.Name).Msg("failed to read changed file")
		return
	}
	rel, err := ProjectPath(root, event.Name)
	if err != nil {
		return
	}
	if err := t.TrackChange(rel, string(content), SourceUserEdit); err != nil {
		t.logger.Warn().Err(err).Str("path", rel).Msg("failed to track change")
	}
}

// ProjectPath converts a file under root into a project path ("/src/a.ts").
func ProjectPath(root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside %s", file, root)
	}
	return "/" + filepath.ToSlash(rel), nil
}

func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// DirFile is a file read from disk by ReadDir.
type DirFile struct {
	Path       string
	Content    string
	ModifiedAt time.Time
}

// ReadDir reads every file under dir, skipping ignored directories and
// files larger than the watch limit. Paths are project paths.
func ReadDir(dir string) ([]DirFile, error) {
	var files []DirFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxWatchedFileSize {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := ProjectPath(dir, path)
		if err != nil {
			return err
		}
		files = append(files, DirFile{Path: rel, Content: string(content), ModifiedAt: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	return files, nil
}

// ScanDir queues every file under dir as an import. Used to seed a tracker
// before watching.
func ScanDir(dir string, t *Tracker) (int, error) {
	files, err := ReadDir(dir)
	if err != nil {
		return 0, err
	}
	updates := make([]Update, len(files))
	for i, f := range files {
		updates[i] = Update{Path: f.Path, Content: f.Content, Source: SourceImport}
	}
	return len(updates), t.TrackChanges(updates)
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/knowledge"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/storage"
)

// openStore opens the knowledge database, migrates it and wraps it in the read cache.
// The returned close function must be called when the command is done.
func openStore(ctx context.Context) (*storage.SQLiteStorage, knowledge.Store, func(), error) {
	db, err := storage.NewSQLiteStorage(appConfig.Database.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open knowledge database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cached := knowledge.NewCachedStore(db, appConfig.Cache.TTL, appConfig.Cache.Cleanup)
	return db, cached, func() { _ = db.Close() }, nil
}

// loadDocuments reads the text documents named by args. A directory contributes
// every *.txt file directly inside it, in filename order.
func loadDocuments(args []string) ([]model.DocumentInput, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
				continue
			}
			found = append(found, filepath.Join(arg, e.Name()))
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}

	inputs := make([]model.DocumentInput, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		if seen[name] {
			return nil, fmt.Errorf("duplicate document name %s", name)
		}
		seen[name] = true

		text, err := os.ReadFile(p) //nolint:gosec // user supplied document paths
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		inputs = append(inputs, model.DocumentInput{
			ID:       name,
			Filename: name,
			Text:     string(text),
		})
	}
	return inputs, nil
}

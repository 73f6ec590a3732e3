package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/model"
)

// collectAssets walks root and reads every regular file into a FileAsset,
// using the path relative to root as its Path. The loader sniffs the content,
// keys images by this path and keeps it as OriginalPath, which Plan copies
// into each task's SourcePath.
func collectAssets(root string) ([]model.FileAsset, error) {
	var assets []model.FileAsset
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		assets = append(assets, model.FileAsset{Path: rel, Data: data})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return assets, nil
}

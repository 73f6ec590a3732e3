package main

import (
	"archive/zip"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/session"
)

var (
	optimizeBufferPct float64
	optimizePageSize  int
	optimizePadding   int
	optimizePack      bool
	optimizeOut       string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize <project-dir>",
	Short: "Ingest, analyze, and produce a resized (and optionally repacked) image set",
	Args:  cobra.ExactArgs(1),
	RunE:  runOptimize,
}

func init() {
	optimizeCmd.Flags().Float64Var(&optimizeBufferPct, "buffer", 0, "safety buffer percentage applied to every target size")
	optimizeCmd.Flags().IntVar(&optimizePageSize, "page-size", 2048, "atlas page size in pixels, used only with --pack")
	optimizeCmd.Flags().IntVar(&optimizePadding, "padding", 2, "padding in pixels between packed rects, used only with --pack")
	optimizeCmd.Flags().BoolVar(&optimizePack, "pack", false, "also compute and log an atlas page layout for the resized images; the archive still holds the loose files")
	optimizeCmd.Flags().StringVar(&optimizeOut, "out", "optimized.zip", "output archive path")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	assets, err := collectAssets(args[0])
	if err != nil {
		return err
	}

	inv := session.NewInvoker()
	issues, err := inv.Ingest(assets)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	for _, iss := range issues {
		log.Printf("ingest warning [%s]: %s (%s)", iss.Kind, iss.Message, iss.Context)
	}

	if _, err := inv.Analyze(); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	tasks, err := inv.Plan(optimizeBufferPct)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	log.Printf("planned %d tasks", len(tasks))

	results, err := inv.Resample(ctx, tasks)
	if err != nil {
		return fmt.Errorf("resample: %w", err)
	}

	out, err := os.Create(optimizeOut)
	if err != nil {
		return fmt.Errorf("create output archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	if optimizePack {
		pages, packIssues, err := inv.Pack(tasks, optimizePageSize, optimizePadding)
		if err != nil {
			return fmt.Errorf("pack: %w", err)
		}
		for _, iss := range packIssues {
			log.Printf("pack warning [%s]: %s (%s)", iss.Kind, iss.Message, iss.Context)
		}
		for _, page := range pages {
			log.Printf("page %d: %d rects, %.1f%% efficient", page.Index, len(page.Rects), page.Efficiency*100)
		}
		// Packing places rects; the pixel compositing of the final page
		// surfaces is the renderer's concern and out of scope for this thin
		// driver, so the loose resized images are still what gets archived.
	}

	for _, r := range results {
		for _, iss := range r.Issues {
			log.Printf("resample warning [%s]: %s (%s)", iss.Kind, iss.Message, iss.Context)
		}
		name := "images_optimized/" + toPNGName(r.ImageKey)
		w, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("add %s to archive: %w", name, err)
		}
		if _, err := w.Write(r.PNG); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	log.Printf("wrote %d images to %s", len(results), optimizeOut)
	return nil
}

func toPNGName(imageKey string) string {
	if strings.HasSuffix(strings.ToLower(imageKey), ".png") {
		return imageKey
	}
	if idx := strings.LastIndex(imageKey, "."); idx > strings.LastIndex(imageKey, "/") {
		return imageKey[:idx] + ".png"
	}
	return imageKey + ".png"
}

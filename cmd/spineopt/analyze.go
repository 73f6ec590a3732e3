package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/session"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <project-dir>",
	Short: "Ingest a project directory and print its maximum-resolution report",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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

	report, err := inv.Analyze()
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	fmt.Printf("skins: %v\n", report.SkinNames)
	fmt.Printf("events: %v\n", report.EventNames)
	fmt.Printf("control bones: %v\n", report.ControlBoneNames)
	fmt.Printf("canonical data missing: %v\n", report.IsCanonicalDataMissing)
	fmt.Printf("unused assets: %d\n", len(report.UnusedAssets))
	fmt.Printf("missing images: %d\n", len(report.MissingImages))
	fmt.Println()
	for _, s := range report.GlobalStats {
		fmt.Printf("%-40s %4dx%-4d <- %-20s %s (skin %s)\n",
			s.ImageKey, s.MaxRenderWidth, s.MaxRenderHeight, s.SourceAnimation, s.SourceSkeleton, s.Skin)
	}

	return nil
}

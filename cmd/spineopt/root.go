package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "spineopt",
	Short: "Analyze and optimize 2D skeletal-animation image assets",
	Long: `spineopt inspects a Spine/DragonBones-style project (skeleton documents,
atlas manifests, loose images), determines the maximum resolution every image
is ever rendered at across all animations and skins, and produces a resized
asset set sized to that maximum plus a safety buffer.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(optimizeCmd)
}

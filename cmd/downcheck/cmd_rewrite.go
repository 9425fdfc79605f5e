package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"downcheck/internal/manifest"
)

var rewriteFlags struct {
	manifestPath  string
	library       string
	libraryPath   string
	drop          []string
	propagateFrom string
	output        string
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "Rewrite one dependency manifest against a local library checkout",
	Long: `Rewrite applies only the manifest transformation: the line naming the
library is redirected to a file:// reference, the library's own VCS
requirements are propagated, and dropped dependencies are stripped.
Useful from shell CI steps that manage cloning and building themselves.`,
	RunE: runRewrite,
}

func init() {
	f := rewriteCmd.Flags()
	f.StringVar(&rewriteFlags.manifestPath, "manifest", "", "Manifest file to rewrite (required)")
	f.StringVar(&rewriteFlags.library, "library", "", "Registry name of the library under test (required)")
	f.StringVar(&rewriteFlags.libraryPath, "library-path", ".", "Local checkout of the library under test")
	f.StringArrayVar(&rewriteFlags.drop, "drop", nil, "Strip this dependency from the manifest (repeatable)")
	f.StringVar(&rewriteFlags.propagateFrom, "propagate-from", "", "Library requirements file whose VCS lines are appended")
	f.StringVarP(&rewriteFlags.output, "output", "o", "", "Output path (default: rewrite in place)")
	_ = rewriteCmd.MarkFlagRequired("manifest")
	_ = rewriteCmd.MarkFlagRequired("library")
}

func runRewrite(cmd *cobra.Command, _ []string) error {
	m, err := manifest.LoadFile(rewriteFlags.manifestPath)
	if err != nil {
		return err
	}

	rw := manifest.Rewriter{
		Library:       rewriteFlags.library,
		LocalPath:     rewriteFlags.libraryPath,
		Drop:          rewriteFlags.drop,
		PropagateFrom: rewriteFlags.propagateFrom,
	}
	if err := rw.Rewrite(m); err != nil {
		return err
	}

	dest := rewriteFlags.output
	if dest == "" {
		dest = rewriteFlags.manifestPath
	}
	if err := m.WriteFile(dest); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Rewrote %s (%d lines)\n", dest, m.Len())
	return nil
}

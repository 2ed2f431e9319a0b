// Command dedupe scans one or more directory roots on a single filesystem
// and replaces byte-identical regular files with hardlinks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/filedup/dedupe/internal/config"
	"github.com/filedup/dedupe/internal/digestgroup"
	"github.com/filedup/dedupe/internal/fsutil"
	"github.com/filedup/dedupe/internal/hasher"
	"github.com/filedup/dedupe/internal/relinker"
	"github.com/filedup/dedupe/internal/report"
	"github.com/filedup/dedupe/internal/scanner"
	"github.com/filedup/dedupe/internal/sizegroup"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// newRootCmd builds the single top-level command: this binary does one
// thing, so there's no "dedupe" subcommand nested under a multi-purpose
// root — the whole surface is one command.
func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:     "dedupe [options] [roots...]",
		Short:   "Find duplicate files on one filesystem and replace them with hardlinks",
		Version: version + " (" + commit + ")",
		Args:    cobra.ArbitraryArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if opts.whatis {
				return c.Help()
			}
			return runDedupe(c, opts.toConfig(args))
		},
	}

	cmd.Flags().BoolVarP(&opts.boring, "boring", "b", false, "disable color/animation even on a terminal")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "report every relink performed")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "report what would be relinked without changing anything")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "confirm before relinking each group")
	cmd.Flags().BoolVarP(&opts.useXattrs, "use-xattrs", "x", false, "cache content digests in extended attributes")
	cmd.Flags().StringArrayVarP(&opts.excludes, "exclude", "e", nil, "glob pattern to exclude, matched against each entry's basename (repeatable)")
	// cobra has no bare "-?" shorthand (pflag reserves "?" for shorthand
	// lookup failures); --whatis gives the "-h/-?/--help" triple the same
	// effect without fighting pflag's parser.
	cmd.Flags().BoolVar(&opts.whatis, "whatis", false, "alias for --help")

	return cmd
}

// runDedupe runs the full scan -> group-by-size -> hash -> group-by-digest
// -> relink pipeline once, reporting per-path failures to stderr and
// returning a non-nil error only for the fatal configuration-error path.
func runDedupe(cmd *cobra.Command, cfg config.Config) error {
	if err := fsutil.ValidateGlobs(cfg.Excludes); err != nil {
		return fmt.Errorf("invalid --exclude: %w", err)
	}

	stderr := cmd.ErrOrStderr()
	stdout := cmd.OutOrStdout()
	reporter := report.New(stderr)
	showBar := cfg.Verbose

	table, err := scanner.New(cfg.Roots, cfg.Excludes, reporter, showBar, cfg.Boring).Run()
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if table.Len() == 0 {
		return nil
	}

	sizeGroups := sizegroup.Group(table.Records())
	if len(sizeGroups) == 0 {
		return nil
	}

	digestMap := hasher.New(cfg.UseXattrs, reporter, showBar, cfg.Boring).Run(sizeGroups)
	digestGroups := digestgroup.Group(digestMap)
	if len(digestGroups) == 0 {
		return nil
	}

	result := relinker.New(cfg.DryRun, cfg.Interactive, cfg.Verbose, showBar, cfg.Boring, reporter, cmd.InOrStdin(), stdout).
		Run(digestGroups)

	if cfg.Verbose && result.Relinks >= 1 {
		fmt.Fprintf(stdout, "Performed %d relink(s), saved %d bytes.\n", result.Relinks, result.SavedBytes)
	}

	return nil
}

package main

import "github.com/filedup/dedupe/internal/config"

// cliOptions holds the raw flag destinations bound by newRootCmd, one
// field per flag.
type cliOptions struct {
	boring      bool
	verbose     bool
	dryRun      bool
	interactive bool
	useXattrs   bool
	excludes    []string
	whatis      bool
}

// toConfig builds the immutable run configuration from parsed flags and
// positional arguments.
func (o *cliOptions) toConfig(roots []string) config.Config {
	return config.Config{
		Boring:      o.boring,
		Verbose:     o.verbose,
		DryRun:      o.dryRun,
		Interactive: o.interactive,
		UseXattrs:   o.useXattrs,
		Excludes:    o.excludes,
		Roots:       roots,
	}.WithDefaultRoots()
}

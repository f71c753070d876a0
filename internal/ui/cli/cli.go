package cli

import (
	"flag"
	"io"
)

const versionString = "0.4.0"

type cliOptions struct {
	configPath     string
	awaitProvision bool
	provision      bool
	format         string
	outputPath     string
	history        string
	since          string
	initDir        string
	verbose        bool
	version        bool
	args           []string
}

func parseOptions(args []string, output io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("scopebind", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&opts.configPath, "config", "", "Path to config file (default: ./scopebind.toml or ./data/config/scopebind.toml)")
	fs.BoolVar(&opts.awaitProvision, "await-provision", false, "Wait for pending indirection objects to be provisioned, then run once more")
	fs.BoolVar(&opts.provision, "provision", false, "Promote pending indirection requests whose proxy types are registered and exit")
	fs.StringVar(&opts.format, "format", "", "Report format: text or json (overrides output.format)")
	fs.StringVar(&opts.outputPath, "output", "", "Write the report to this path (overrides output.path)")
	fs.StringVar(&opts.history, "history", "", "Print recorded runs of this hierarchy as TSV (json with --format json) and exit")
	fs.StringVar(&opts.since, "since", "", "Only include runs at/after this timestamp (RFC3339 or YYYY-MM-DD, requires --history)")
	fs.StringVar(&opts.initDir, "init", "", "Write the example project into this directory and exit")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}

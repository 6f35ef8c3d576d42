// Command omnilisp-memcore-sweep drains the dismantle queues of a fleet of
// thread-local component pools concurrently. It exists for operators who
// want to force a maintenance sweep (e.g. before a checkpoint or at
// shutdown) rather than waiting for each pool to drain lazily on its own
// hot path.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/omnilisp-lang/omnilisp/internal/cli"
	"github.com/omnilisp-lang/omnilisp/internal/diagnostics"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/component"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/sweep"
)

// runCommand describes the tool's one real subcommand, used both for the
// top-level usage banner and for "help"'s detailed per-flag usage.
func runCommand() cli.CommandInfo {
	return cli.CommandInfo{
		Name:        "run",
		Usage:       "omnilisp-memcore-sweep run [OPTIONS]",
		Description: "drain the dismantle queue of every registered component pool",
		Examples: []string{
			"omnilisp-memcore-sweep run --pools 8 --concurrency 4",
			"omnilisp-memcore-sweep run --timeout 10s --verbose",
		},
		Flags: []cli.FlagInfo{
			{Name: "pools", Usage: "number of component pools to simulate and drain", Default: "4"},
			{Name: "concurrency", Usage: "maximum number of pools drained at once", Default: "8"},
			{Name: "batch", Usage: "components dismantled per pool per call (0 drains everything queued)", Default: "0"},
			{Name: "timeout", Usage: "overall sweep deadline", Default: "30s"},
			{Name: "verbose", Usage: "log each pool as it drains", Default: "false"},
		},
	}
}

func main() {
	var (
		poolCount   int
		concurrency int
		batchSize   int
		timeout     time.Duration
		verbose     bool
		jsonOutput  bool
		showVersion bool
	)

	flag.IntVar(&poolCount, "pools", 4, "number of component pools to simulate and drain")
	flag.IntVar(&concurrency, "concurrency", 8, "maximum number of pools drained at once")
	flag.IntVar(&batchSize, "batch", 0, "components dismantled per pool per call (0 drains everything queued)")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "overall sweep deadline")
	flag.BoolVar(&verbose, "verbose", false, "log each pool as it drains")
	flag.BoolVar(&jsonOutput, "json", false, "print --version output as JSON")
	flag.BoolVar(&showVersion, "version", false, "show version information and exit")
	flag.BoolVar(&showVersion, "v", false, "shorthand for -version")

	flag.Usage = func() {
		cli.PrintUsage("omnilisp-memcore-sweep", []cli.CommandInfo{runCommand()})
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		cli.PrintVersion("omnilisp-memcore-sweep", jsonOutput)

		return
	}

	logger := cli.NewLogger(verbose, false)

	args := flag.Args()
	if err := cli.ValidateArgs(args, 1, "omnilisp-memcore-sweep <run|help> [OPTIONS]"); err != nil {
		cli.ExitWithCode(2, "%v", err)
	}

	switch args[0] {
	case "help":
		cli.PrintCommandUsage("omnilisp-memcore-sweep", runCommand())

		return
	case "run":
		// flags may also follow the subcommand, as in runCommand's examples
		_ = flag.CommandLine.Parse(args[1:])
		logger.Verbose = verbose
	default:
		cli.ExitWithCode(2, "unknown subcommand %q (expected run or help)", args[0])
	}

	pools := make([]*component.Pool, poolCount)
	for i := range pools {
		pools[i] = component.NewPool()
	}

	sink := diagnostics.NewSink(1024)

	s := sweep.New(pools, sink, sweep.WithMaxConcurrency(concurrency), sweep.WithBatchSize(batchSize))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("sweeping %d pools with concurrency %d", len(pools), concurrency)

	result, err := s.Run(ctx)
	cli.HandleError(err, logger)

	fmt.Printf("dismantled %d components across %d pools\n", result.Total, len(pools))

	if report := sink.Format(); report != "" {
		fmt.Println(report)
	}
}

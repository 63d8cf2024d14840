// Command cortexd is the autonomous work-cycle orchestrator's process
// entrypoint: it wires every component (store, ledger, budget guard,
// router, recall index, sandbox build worker, config manager, orchestrator)
// and serves the control surface (spec §6.3) as NDJSON over stdio. Grounded
// on the teacher's cmd/repl/main.go flag/bootstrap structure and
// stdio_runner.go's protocol loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	fs := flag.NewFlagSet("cortexd", flag.ExitOnError)
	repoFlag := fs.String("repo", "", "working directory the engine operates in (default: current directory)")
	seedFlag := fs.Bool("seed-objective", false, "seed a placeholder objective if none exist, then continue")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("cortexd: %v", err)
	}

	// Logs go to stderr so they never interleave with the stdout protocol.
	log.SetOutput(os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *repoFlag, *seedFlag); err != nil {
		fmt.Fprintf(os.Stderr, "cortexd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, repoFlag string, seed bool) error {
	env, err := prepareRuntimeEnv(ctx, repoFlag)
	if err != nil {
		return fmt.Errorf("prepare runtime env: %w", err)
	}
	defer env.Close()

	if seed {
		if err := seedDefaultObjectiveIfEmpty(ctx, env.Store); err != nil {
			log.Printf("cortexd: seed objective: %v", err)
		}
	}

	if err := env.Orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("start orchestrator: %w", err)
	}
	defer env.Orchestrator.Stop(context.Background())

	runner := newStdioRunner(os.Stdin, os.Stdout, env)
	log.Println("cortexd: ready, serving control surface over stdio")
	return runner.Run(ctx)
}

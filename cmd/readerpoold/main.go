// Command readerpoold runs a reader pool primary around a stub data
// runtime. It is the operational harness for the pool: the same binary
// serves as primary and, when re-executed with the worker marker in the
// environment, as a worker.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forkserve/readerpool/spawner"
)

var rootCmd = &cobra.Command{
	Use:   "readerpoold",
	Short: "Reader pool daemon",
	Long: `readerpoold maintains a pool of forked read-only worker processes,
rotating the whole generation when configuration changes or the workers
grow stale, and replacing crashed workers one for one.`,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func initConfig() {
	viper.SetEnvPrefix("READERPOOL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

func main() {
	// A worker is this same binary re-executed with the marker set. It
	// must never run primary startup or command parsing.
	if spawner.IsWorkerProcess() {
		if err := runWorker(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "worker error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

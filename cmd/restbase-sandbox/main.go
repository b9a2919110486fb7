// Command restbase-sandbox runs the in-memory restbase API server for local
// development. It serves the full HTTP contract the SDK clients speak, so an
// application can be pointed at it with two environment exports.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/napassornsp/restbase-go/internal/sandbox"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "restbase-sandbox",
		Short:         "Run an in-memory restbase API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	flags := cmd.Flags()
	flags.String("addr", ":8787", "listen address")
	flags.String("seed", "", "path to a JSON seed file for the collection store")
	flags.Duration("latency", 0, "artificial latency to inject per request")
	flags.Float64("fail-rate", 0, "probability (0..1) of injecting a failure response")
	flags.Int("fail-code", http.StatusInternalServerError, "HTTP status used for injected failures")
	flags.String("jwt-secret", "", "secret for signing session cookies (random when empty)")

	viper.SetEnvPrefix("RESTBASE_SANDBOX")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}

	return cmd
}

func run() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	srv := sandbox.New(sandbox.Config{
		Latency:   viper.GetDuration("latency"),
		FailRate:  viper.GetFloat64("fail-rate"),
		FailCode:  viper.GetInt("fail-code"),
		JWTSecret: viper.GetString("jwt-secret"),
	})

	if path := viper.GetString("seed"); path != "" {
		if err := srv.Store().LoadSeedFile(path); err != nil {
			return fmt.Errorf("load seed: %w", err)
		}
		logger.Info("seed loaded", "path", path)
	}

	addr := viper.GetString("addr")
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("restbase-sandbox listening", "addr", addr)
	printExports(addr)

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func printExports(addr string) {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	fmt.Println()
	fmt.Println("export RESTBASE_RUNTIME_MODE=http")
	fmt.Printf("export RESTBASE_API_URL=http://%s\n", host)
	fmt.Println()
}

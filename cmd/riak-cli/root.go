package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pior/riak"
)

var (
	client *riak.Client

	rootCmd = &cobra.Command{
		Use:   "riak-cli",
		Short: "Talk to a Riak cluster over Protocol Buffers",
		Long: `riak-cli runs single operations against a Riak cluster.

Every flag can also be set with a RIAK_ environment variable, for example
RIAK_NODES=10.0.0.1:8087,10.0.0.2:8087, or in a .env file.`,
		SilenceUsage:       true,
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: closeClient,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("nodes", "127.0.0.1:8087", "comma-separated node addresses")
	flags.Int32("max-conns", 4, "maximum connections per node")
	flags.Duration("timeout", 10*time.Second, "timeout of each operation")
	flags.String("bucket-type", riak.DefaultBucketType, "bucket type")
	flags.String("client-id", "", "seed of the client id sent on each connection")
	flags.Bool("verbose", false, "log debug messages")

	rootCmd.AddCommand(pingCmd, infoCmd, bucketsCmd)
	rootCmd.AddCommand(getCmd, putCmd, deleteCmd, keysCmd, propsCmd)
	rootCmd.AddCommand(counterCmd, setCmd, indexCmd, mapReduceCmd, statsCmd)
}

// initConfig loads .env files and maps RIAK_* variables to flags.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("riak")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func setupClient(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	nodes := strings.Split(viper.GetString("nodes"), ",")
	var err error
	client, err = riak.NewClient(riak.NewStaticNodes(nodes...), riak.Config{
		MaxSize:           viper.GetInt32("max-conns"),
		ClientID:          viper.GetString("client-id"),
		Logger:            logger,
		NewCircuitBreaker: riak.NewCircuitBreakerConfig(1, time.Minute, 5*time.Second),
	})
	return err
}

func closeClient(*cobra.Command, []string) error {
	if client != nil {
		client.Close()
	}
	return nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), viper.GetDuration("timeout"))
}

func bucket(name string) *riak.Bucket {
	return client.BucketType(bucketType()).Bucket(name)
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

func bucketType() string {
	return viper.GetString("bucket-type")
}

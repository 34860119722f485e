package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/surjbayarea/actionsync/pkg/everyaction"
	"github.com/surjbayarea/actionsync/pkg/logging"
)

// Environment variables the CLI reads, typically from a .env file.
const (
	EnvAppName = "EVERYACTION_APP_NAME"
	EnvAPIKey  = "EVERYACTION_API_KEY"
	EnvCSV     = "ACTIONNETWORK_ACTIVIST_CSV"
)

var (
	envFile string
	verbose bool

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "actionsync",
	Short: "Action Network to EveryAction sync CLI",
	Long: `Actionsync reconciles Action Network activist CSV exports against an
EveryAction (VAN) committee database.

It matches each row to a contact by email, creates missing contacts,
and pushes subscription, phone, and activist code deltas. Every row's
outcome is journaled to a checkpoint log so an interrupted run can be
resumed without repeating work.

Credentials are read from EVERYACTION_APP_NAME and EVERYACTION_API_KEY,
typically via a .env file.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file with credentials (default .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		panic(fmt.Sprintf("Failed to bind verbose flag: %v", err))
	}

	rootCmd.SilenceUsage = true
}

// initConfig loads env files and binds environment variables.
func initConfig() {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	bindCredentials()

	configureLogging()
}

// loadEnvFiles loads environment variables from .env files. An explicit
// --env file must exist; the implicit defaults are best effort.
func loadEnvFiles() {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", envFile, err)
			os.Exit(1)
		}
		return
	}

	for _, name := range []string{".env", ".env.local"} {
		if err := godotenv.Load(name); err == nil && verbose {
			fmt.Fprintf(os.Stderr, "Loaded %s\n", name)
		}
	}
}

// bindCredentials explicitly binds the credential environment variables
// so viper can see them even when no config file references them.
func bindCredentials() {
	for _, key := range []string{EnvAppName, EnvAPIKey, EnvCSV} {
		if err := viper.BindEnv(key); err != nil {
			fmt.Printf("Warning: failed to bind environment variable %s: %v\n", key, err)
		}
	}
}

// configureLogging sets up the logging system based on configuration.
func configureLogging() {
	level := zerolog.InfoLevel
	if verbose || viper.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		if parsed, err := zerolog.ParseLevel(envLevel); err == nil {
			level = parsed
		}
	}

	config := &logging.Config{
		Level:     level.String(),
		Format:    os.Getenv("LOG_FORMAT"),
		Output:    os.Getenv("LOG_OUTPUT"),
		AddCaller: level <= zerolog.DebugLevel,
	}
	if config.Format == "" {
		config.Format = "auto"
	}
	if config.Output == "" {
		config.Output = "stderr"
	}

	logging.Configure(config)
}

// newClient builds an EveryAction client from the bound credentials.
func newClient() (*everyaction.Client, error) {
	return everyaction.New(viper.GetString(EnvAppName), viper.GetString(EnvAPIKey))
}

// Package cmd holds the cobra commands of secret-expiration-notifier
package cmd

import (
	"os"
	"time"

	defaultlog "log"

	"github.com/app-sre/secret-expiration-notifier/pkg/util"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile  string
	envFile  string
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "secret-expiration-notifier",
		Short: "Notify on expiring application secrets",
		Long:  "Integrations checking credential expiration of application registrations in Microsoft Entra ID",
	}

	secretExpirationNotifierCmd = &cobra.Command{
		Use:   "secret-expiration-notifier",
		Short: "Notify on expiring secrets",
		Long:  "Send an email for every application credential expiring in exactly the configured number of days",
		Run: func(cmd *cobra.Command, args []string) {
			secretExpirationNotifier()
		},
	}

	secretExpirationCheckCmd = &cobra.Command{
		Use:   "secret-expiration-check",
		Short: "Validate secret expiration",
		Long:  "Fail if any application credential expires within the configured number of days",
		Run: func(cmd *cobra.Command, args []string) {
			secretExpirationCheck()
		},
	}
)

// Execute executes the rootCmd
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(secretExpirationNotifierCmd)
	rootCmd.AddCommand(secretExpirationCheckCmd)
	rootCmd.PersistentFlags().StringVarP(&logLevel, "logLevel", "l", "info", "Log level")
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "cfgFile", "c", "", "Configuration File")
	rootCmd.PersistentFlags().StringVarP(&envFile, "envFile", "e", "", "File with environment variables to load")

	cobra.OnInitialize(configureLogging)
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			util.Log().Fatalw("Error while loading environment file", "file", envFile, "error", err.Error())
		}
	}

	viper.AutomaticEnv()
	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		util.Log().Fatalw("Error while reading configuration", "config", cfgFile, "error", err.Error())
	}
	util.Log().Debugw("Using configuration", "config", cfgFile)
}

func configureLogging() {
	loggerConfig := zap.NewProductionConfig()

	switch logLevel {
	case "info":
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "debug":
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "error":
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	case "warn":
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "fatal":
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.FatalLevel)
	case "panic":
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.PanicLevel)
	default:
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)

	logger, err := loggerConfig.Build()
	if err != nil {
		defaultlog.Fatal(err)
	}
	zap.ReplaceGlobals(logger)
}

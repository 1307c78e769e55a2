// Package cmd provides the command-line interface for folio.
//
// Configuration System:
//
//	Settings come from several sources with clear precedence:
//	1. Command-line flags (--config, --port, etc.) - highest priority
//	2. FOLIO_CONFIG_FILE environment variable - custom settings file path
//	3. Individual environment variables (FOLIO_SERVER_PORT, etc.)
//	4. Settings file (.folio.yml) - lowest priority
//
// The site document (config.json by default) is a separate file read on
// every build; see package sitedata.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/folio/internal/config"
	"github.com/conneroisu/folio/internal/logging"
	"github.com/conneroisu/folio/internal/version"
)

var (
	cfgFile   string
	logLevel  = levelValue(logging.LevelInfo)
	logFormat = "text"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Build and serve a static front-end from Sass, templates and SVG icons",
	Long: `folio compiles a small front-end project into a static dist/ tree and
serves it with live reload while you work.

Tasks:
  folio sass            Compile stylesheets into dist/assets/css
  folio templates       Render page templates into dist
  folio generate-svg    Build one SVG sprite per page from the site document
  folio live            Serve dist on localhost:4300
  folio run             Run every build task once
  folio watch           Build everything, serve dist and rebuild on change

Running folio without a task is the same as folio watch.`,
	SilenceUsage: true,
	RunE:         runWatch,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Version = version.GetShortVersion()
	rootCmd.SetVersionTemplate(version.GetDetailedVersion() + "\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default is .folio.yml, can also use FOLIO_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().VarP(&logLevel, "log-level", "l", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logFormat, "log format (text, json)")
	AddFlagValidation(rootCmd.PersistentFlags(), "log-format", ValidateLogFormat)

	addServerFlags(rootCmd)
}

// initConfig points viper at the settings file and the FOLIO_ environment.
//
// Settings File Priority (highest to lowest):
//  1. --config flag
//  2. FOLIO_CONFIG_FILE environment variable
//  3. .folio.yml in the current directory
//
// A missing settings file is not an error; the defaults reproduce the
// conventional project layout.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("FOLIO_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".folio")
	}

	config.BindEnvironment(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger() logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LogLevel(logLevel),
		Format: strings.ToLower(logFormat),
		Output: os.Stderr,
	})
}

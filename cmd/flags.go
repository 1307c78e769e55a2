package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/conneroisu/folio/internal/config"
	"github.com/conneroisu/folio/internal/logging"
)

// Server flags shared by live, watch and the bare folio command.
var (
	serverPort int
	serverHost string
)

func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&serverPort, "port", "p", 4300, "Port to serve on")
	cmd.Flags().StringVar(&serverHost, "host", "localhost", "Host to bind to")
	AddFlagValidation(cmd.Flags(), "port", ValidatePort)
}

// applyServerFlags lets explicitly set flags override the settings file.
func applyServerFlags(cmd *cobra.Command, cfg *config.Config) {
	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		cfg.Server.Port = serverPort
	}
	if f := cmd.Flags().Lookup("host"); f != nil && f.Changed {
		cfg.Server.Host = serverHost
	}
}

// levelValue is a pflag.Value for --log-level.
type levelValue logging.LogLevel

func (l *levelValue) String() string {
	return logging.LogLevel(*l).String()
}

func (l *levelValue) Set(s string) error {
	level, err := logging.ParseLevel(s)
	if err != nil {
		return err
	}
	*l = levelValue(level)
	return nil
}

func (l *levelValue) Type() string {
	return "level"
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(flags *pflag.FlagSet, flagName string, validator func(string) error) {
	flag := flags.Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// Port validation helper
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}

	return nil
}

// ValidateLogFormat accepts the formats the logger understands.
func ValidateLogFormat(format string) error {
	switch strings.ToLower(format) {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("invalid log format %s, must be one of: text, json", format)
}

package showconfig

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/netrixframework/timeoutd/config"
	"github.com/spf13/cobra"
)

// ConfigCmd prints the effective configuration as yaml
func ConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.ParseConfig(config.ConfigPath)
			if err != nil {
				return fmt.Errorf("failed to parse config: %w", err)
			}
			redact(conf)
			b, err := config.Dump(conf)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}

// mask matches what url.URL.Redacted puts in place of a password
const mask = "xxxxx"

var dsnPassword = regexp.MustCompile(`(?i)(password\s*=\s*)('(?:[^'\\]|\\.)*'|\S+)`)

// redact hides the credentials of the sinks
func redact(conf *config.Config) {
	if conf.Redis.Password != "" {
		conf.Redis.Password = mask
	}
	conf.Postgres.DSN = maskDSN(conf.Postgres.DSN)
}

// maskDSN hides the password of a postgres url or keyword/value DSN
func maskDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.User != nil {
		return u.Redacted()
	}
	return dsnPassword.ReplaceAllString(dsn, "${1}"+mask)
}

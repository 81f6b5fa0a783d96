package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"daybook/internal/config"
)

type commandContext struct {
	configFlag *string
	addrFlag   *string

	cfg     *config.Config
	cfgPath string
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, path, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	c.cfgPath = path
	return cfg, nil
}

// apiBase resolves the daemon address: the --addr flag wins, then the
// configured bind address.
func (c *commandContext) apiBase() (string, error) {
	if addr := strings.TrimSpace(*c.addrFlag); addr != "" {
		return normalizeBase(addr), nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return "", fmt.Errorf("no daemon address: set paths.api_bind or pass --addr")
	}
	return normalizeBase(bind), nil
}

func (c *commandContext) client() (*apiClient, error) {
	base, err := c.apiBase()
	if err != nil {
		return nil, err
	}
	return newAPIClient(base), nil
}

func normalizeBase(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimRight(addr, "/")
	}
	return "http://" + addr
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var addrFlag string

	ctx := &commandContext{configFlag: &configFlag, addrFlag: &addrFlag}

	rootCmd := &cobra.Command{
		Use:           "daybook",
		Short:         "Daybook transcription and journaling daemon CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "Daemon API address (host:port or URL)")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newHealthCommand(ctx))
	rootCmd.AddCommand(newJobsCommand(ctx))
	rootCmd.AddCommand(newViewsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))

	return rootCmd
}

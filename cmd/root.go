// Package cmd holds the sentinel CLI.
package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/interviewlab/sentinel/config"
)

var (
	cfgPath string
	cfg     *config.Root
	log     = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:           "sentinel",
	Short:         "Interview orchestration and integrity monitoring service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = logrus.InfoLevel
		}
		log.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to sentinel.yaml")
}

func Execute() error {
	return rootCmd.Execute()
}

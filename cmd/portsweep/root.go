package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"portsweep/internal/config"
	"portsweep/internal/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "portsweep",
	Short: "A concurrent TCP port scanner",
	Long: `portsweep drives a continuous-replenishment probe pipeline over one
or more hosts, with FD-budgeted concurrency and a bounded retry policy.

Examples:
  portsweep scan -t 192.168.1.0/24 -p 1-1000
  portsweep scan -t 10.0.0.5 -p 22,80,443 --technique syn
`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initCLILogger(cmd)
	},
}

func Execute() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n[FATAL] portsweep crashed: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(versionCmd)
}

var loadedConfig *config.Config

func initConfig() {
	path := cfgFile
	if path == "" {
		path = "./config.yaml" // a missing file is not an error
	}

	loader := config.NewConfigLoader()
	cfg, err := loader.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		cfg = config.Default()
	}
	loadedConfig = cfg

	watcher := config.NewConfigWatcher(loader)
	watcher.OnChange(func(lc config.LogConfig) {
		if logger.LoggerInstance != nil {
			_ = logger.LoggerInstance.UpdateConfig(&lc)
		}
	})
	_ = watcher.Watch()
}

func initCLILogger(cmd *cobra.Command) {
	level := "info"
	if loadedConfig != nil {
		level = loadedConfig.Log.Level
	}
	if flag := cmd.Flags().Lookup("log-level"); flag != nil && flag.Changed {
		level = flag.Value.String()
	}

	logConfig := &config.LogConfig{
		Level:  level,
		Format: "text",
		Output: "stdout",
		Caller: false,
	}
	if loadedConfig != nil {
		logConfig.Format = loadedConfig.Log.Format
		logConfig.Output = loadedConfig.Log.Output
		logConfig.FilePath = loadedConfig.Log.FilePath
		logConfig.MaxSize = loadedConfig.Log.MaxSize
		logConfig.MaxBackups = loadedConfig.Log.MaxBackups
		logConfig.MaxAge = loadedConfig.Log.MaxAge
		logConfig.Compress = loadedConfig.Log.Compress
	}

	if _, err := logger.InitLogger(logConfig); err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
	}
}

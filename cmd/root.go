package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/symtab/internal/config"
	"github.com/zjrosen/symtab/internal/presentation"
)

// localConfigPath is checked before the user config directory.
const localConfigPath = ".symtab/config.yaml"

// envPrefix namespaces environment overrides: SYMTAB_SERVER_ADDR, SYMTAB_MEMORY_LIMIT_BYTES.
const envPrefix = "SYMTAB"

var (
	version    = "dev"
	cfgFile    string
	cfgPath    string // file actually loaded, "" when running on defaults
	cfg        config.Config
	addrFlag   string
	jsonOutput bool
	debugFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "symtab",
	Short: "A named array registry daemon and client",
	Long: `symtab keeps typed arrays in memory under internal id_<n> names and
user-registered aliases. Run "symtab serve" to start the daemon, then use the
client commands to create, inspect and remove symbols over its HTTP API.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .symtab/config.yaml, then ~/.config/symtab/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "",
		"daemon address (overrides server.addr)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"print JSON instead of tables")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"enable debug logging")
}

func initConfig() {
	loaded, path, err := loadConfig(viper.GetViper(), cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using defaults\n", err)
	}
	cfg = loaded
	cfgPath = path
}

// loadConfig resolves, reads and validates the configuration.
// A missing file is not an error: the defaults are used instead.
func loadConfig(v *viper.Viper, explicit string) (config.Config, string, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		// Config lookup order:
		// 1. .symtab/config.yaml (current directory)
		// 2. ~/.config/symtab/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			v.SetConfigFile(localConfigPath)
		} else {
			if dir := config.DefaultConfigDir(); dir != "" {
				v.AddConfigPath(dir)
			}
			v.SetConfigName("config")
			v.SetConfigType("yaml")
		}
	}

	path := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return config.Defaults(), "", fmt.Errorf("reading config: %w", err)
		}
	} else {
		path = v.ConfigFileUsed()
	}

	var c config.Config
	if err := v.Unmarshal(&c); err != nil {
		return config.Defaults(), path, fmt.Errorf("decoding config: %w", err)
	}
	if err := config.Validate(c); err != nil {
		return config.Defaults(), path, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, path, nil
}

func setDefaults(v *viper.Viper) {
	d := config.Defaults()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("registry.verbose", d.Registry.Verbose)
	v.SetDefault("registry.preview_threshold", d.Registry.PreviewThreshold)
	v.SetDefault("memory.enabled", d.Memory.Enabled)
	v.SetDefault("memory.limit_bytes", d.Memory.LimitBytes)
	v.SetDefault("memory.limit_percent", d.Memory.LimitPercent)
	v.SetDefault("cache.idempotency_ttl", d.Cache.IdempotencyTTL)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
}

// configWritePath is where commands that edit the config write to.
func configWritePath() string {
	switch {
	case cfgFile != "":
		return cfgFile
	case cfgPath != "":
		return cfgPath
	default:
		return config.DefaultConfigPath()
	}
}

func daemonAddr() string {
	if addrFlag != "" {
		return addrFlag
	}
	return cfg.Server.Addr
}

func newFormatter(w io.Writer) *presentation.Formatter {
	if jsonOutput {
		return presentation.NewJSONFormatter(w)
	}
	return presentation.NewFormatter(w)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"whisperctl/internal/api"
	"whisperctl/internal/dirs"
	"whisperctl/internal/model"
)

// Keys, as used in config.{yaml|json|toml} and, upper-cased with the
// WHISPERCTL_ prefix, in the environment.
const (
	KeyServer       = "server"
	KeyOutDir       = "out_dir"
	KeyVerbose      = "verbose"
	KeyPollInterval = "poll_interval"
	KeyTimeout      = "timeout"
	KeyModel        = "model"
	KeyLanguage     = "language"
)

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"server":        KeyServer,
	"out-dir":       KeyOutDir,
	"verbose":       KeyVerbose,
	"poll-interval": KeyPollInterval,
	"timeout":       KeyTimeout,
	"model":         KeyModel,
	"language":      KeyLanguage,
}

// Init wires Viper with config paths, env, defaults, and the flags of cmd
// (local and inherited). Precedence is flag > env > config file > default.
// A missing config file is not an error.
func Init(cmd *cobra.Command) error {
	if cfgDir, err := dirs.ConfigDir(); err == nil {
		viper.AddConfigPath(cfgDir)
	}
	viper.SetConfigName("config")

	viper.SetEnvPrefix("WHISPERCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault(KeyServer, api.DefaultServer)
	viper.SetDefault(KeyOutDir, ".")
	viper.SetDefault(KeyPollInterval, 2*time.Second)
	viper.SetDefault(KeyTimeout, time.Duration(0))
	viper.SetDefault(KeyModel, model.DefaultModel)
	viper.SetDefault(KeyLanguage, model.DefaultLanguage)

	for name, key := range flagKeys {
		if f := cmd.Flag(name); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	return nil
}

// Options assembles the effective CLI options from Viper.
func Options() model.CLIOptions {
	return model.CLIOptions{
		Server:       strings.TrimRight(viper.GetString(KeyServer), "/"),
		OutDir:       viper.GetString(KeyOutDir),
		Verbose:      viper.GetBool(KeyVerbose),
		PollInterval: viper.GetDuration(KeyPollInterval),
		Timeout:      viper.GetDuration(KeyTimeout),
		Transcribe: model.TranscribeOptions{
			ModelSize: viper.GetString(KeyModel),
			Language:  viper.GetString(KeyLanguage),
		},
	}
}

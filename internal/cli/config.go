package cli

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the resolved CLI configuration. Flags win over ZODIOS_*
// environment variables, which win over the config file.
type Config struct {
	ConfigFile string
	Catalog    string
	BaseURL    string
	Output     string
	Timeout    time.Duration
	Retries    int
	NoValidate bool
	Token      string
	Verbose    bool
	LogLevel   string
	LogFormat  string
	Headers    map[string]string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("ZODIOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("retries", 3)
	v.SetDefault("log-level", "warn")
	v.SetDefault("log-format", "auto")
	return v
}

// loadConfig reads .env files and the config file, then binds the flags of
// cmd so explicitly set flags take precedence.
func loadConfig(v *viper.Viper, cmd *cobra.Command) (*Config, error) {
	loadEnvFiles()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName(".zodios")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		// a missing default config file is fine
		_ = v.ReadInConfig()
	}

	cfg := &Config{
		ConfigFile: v.ConfigFileUsed(),
		Catalog:    v.GetString("catalog"),
		BaseURL:    v.GetString("base-url"),
		Output:     v.GetString("output"),
		Timeout:    v.GetDuration("timeout"),
		Retries:    v.GetInt("retries"),
		NoValidate: v.GetBool("no-validate"),
		Token:      v.GetString("token"),
		Verbose:    v.GetBool("verbose"),
		LogLevel:   v.GetString("log-level"),
		LogFormat:  v.GetString("log-format"),
		Headers:    v.GetStringMapString("headers"),
	}
	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// loadEnvFiles loads .env.local and .env. godotenv never overrides a set
// variable, so the environment wins, then .env.local, then .env.
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		_ = godotenv.Load(file)
	}
}

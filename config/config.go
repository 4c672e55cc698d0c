package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode    string `mapstructure:"mode"`
	Dotenv  string `mapstructure:"dotenv"`
	Service string `mapstructure:"service"`
	Server  struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Handlers struct {
		Prometheus struct {
			Port    string `mapstructure:"port"`
			Enabled bool   `mapstructure:"enabled"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Storage struct {
		// Driver is "sqlite" for a local file store or "postgres".
		Driver     string `mapstructure:"driver"`
		SQLitePath string `mapstructure:"sqlitePath"`
	} `mapstructure:"storage"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Geoapify struct {
		PlacesURL       string        `mapstructure:"placesURL"`
		DetailsURL      string        `mapstructure:"detailsURL"`
		AutocompleteURL string        `mapstructure:"autocompleteURL"`
		Lang            string        `mapstructure:"lang"`
		Timeout         time.Duration `mapstructure:"timeout"`
		SearchLimit     int           `mapstructure:"searchLimit"`
		SuggestLimit    int           `mapstructure:"suggestLimit"`
		CacheTTL        time.Duration `mapstructure:"cacheTTL"`
		RateLimitRPS    float64       `mapstructure:"rateLimitRPS"`
		RateLimitBurst  int           `mapstructure:"rateLimitBurst"`
	} `mapstructure:"geoapify"`
	Explore struct {
		DefaultLat      float64       `mapstructure:"defaultLat"`
		DefaultLon      float64       `mapstructure:"defaultLon"`
		DefaultRadiusKm float64       `mapstructure:"defaultRadiusKm"`
		DebounceDelay   time.Duration `mapstructure:"debounceDelay"`
		FetchTimeout    time.Duration `mapstructure:"fetchTimeout"`
		Locale          string        `mapstructure:"locale"`
	} `mapstructure:"explore"`
	Secrets map[string]string `mapstructure:"secrets"`

	secrets SecretSource
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix("EXPLORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.secrets = &viperSecrets{v: v}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// Package config loads the small set of runtime-configurable
// behaviors the decoding core is willing to observe: whether to print
// debug diagnostics, and whether to tolerate checksum mismatches
// instead of failing a decode. Everything else about how a disk image
// is found, read, or written is the caller's business.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/zellyn/diskii/lib/diskimage"
)

// Settings mirrors the two core-observable keys: "debug" and
// "ignore-checksums".
type Settings struct {
	Debug           bool
	IgnoreChecksums bool
}

// Load reads config/image-rider.toml relative to the current working
// directory, if present, then overlays any APP_DEBUG /
// APP_IGNORE_CHECKSUMS environment variables. A missing config file is
// not an error: both keys default to false, matching spec's "reads of
// absent keys default to false."
func Load() (Settings, error) {
	v := viper.New()
	v.SetConfigName("image-rider")
	v.SetConfigType("toml")
	v.AddConfigPath("config")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("debug", false)
	v.SetDefault("ignore-checksums", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Settings{}, err
		}
	}

	return Settings{
		Debug:           v.GetBool("debug"),
		IgnoreChecksums: v.GetBool("ignore-checksums"),
	}, nil
}

// Options converts Settings into the small value the decoding core
// actually accepts; the core never sees a viper.Viper.
func (s Settings) Options() diskimage.Options {
	return diskimage.Options{IgnoreChecksums: s.IgnoreChecksums}
}

package config

import (
	"context"

	"github.com/dmitrijs2005/diagnexus/internal/flagx"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// parseEnv overlays values from environment variables onto config using the
// `env` struct tags. Only variables that are actually set override the
// current value.
//
// When -env-file is given, that dotenv file is loaded into the process
// environment first (existing variables are not overwritten). A nil lookuper
// reads the process environment.
func parseEnv(config *Config, lookuper envconfig.Lookuper) {
	if envFile := flagx.EnvFileFlags(); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			panic(err)
		}
	}

	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}

	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:           config,
		Lookuper:         envconfig.PrefixLookuper("DIAGNEXUS_", lookuper),
		DefaultOverwrite: true,
	})
	if err != nil {
		panic(err)
	}
}

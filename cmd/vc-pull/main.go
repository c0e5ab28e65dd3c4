// Command vc-pull fetches a Veracross resource collection and prints the
// records as JSON. Configuration comes from the environment (see
// pkg/config); filters are passed as key=value arguments.
//
//	VC_SCHOOL_SHORT_NAME=abc VC_USER=user VC_PASS=pass \
//	  vc-pull -updated-after 2019-01-01 facstaff
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/schooldata/veracross-client/pkg/client"
	"github.com/schooldata/veracross-client/pkg/config"
	"github.com/schooldata/veracross-client/pkg/logging"
	"github.com/schooldata/veracross-client/pkg/ratelimit"
)

func main() {
	updatedAfter := flag.String("updated-after", "", "only records updated after this date (YYYY-MM-DD)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: vc-pull [flags] resource [key=value ...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vc-pull: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(2)
	}
	resource := args[0]

	params, err := parseParams(args[1:])
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid parameters")
	}
	if *updatedAfter != "" {
		params[client.ParamUpdatedAfter] = *updatedAfter
	}

	ctx := context.Background()

	clientCfg := cfg.ClientConfig()
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("redis", cfg.RedisURL).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		clientCfg.RateLimitStore = ratelimit.NewRedisStore(redisClient)
		logger.Info().Str("redis", cfg.RedisURL).Msg("Sharing rate limit state via Redis")
	}

	vc, err := client.New(clientCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create client")
	}
	logger.Debug().Msg(vc.String())

	records, err := vc.Pull(ctx, resource, params)
	if err != nil {
		logger.Fatal().Err(err).Str("resource", resource).Msg("Pull failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		logger.Fatal().Err(err).Msg("Failed to write output")
	}
}

// parseParams converts key=value arguments into a filter map.
func parseParams(args []string) (map[string]any, error) {
	params := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("parameter %q is not key=value", arg)
		}
		params[key] = value
	}
	return params, nil
}

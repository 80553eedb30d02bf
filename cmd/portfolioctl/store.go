package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utsingh/portfolio-api/internal/config"
	"github.com/utsingh/portfolio-api/internal/database"
	"github.com/utsingh/portfolio-api/internal/portfolio/cache"
	"github.com/utsingh/portfolio-api/internal/portfolio/repository"
	"github.com/utsingh/portfolio-api/internal/portfolio/service"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	// openService connects to the configured store and, when the API's read
	// cache is enabled, to Redis so edits invalidate it. The returned func
	// releases both.
	openService = openMongoService
)

func openMongoService(ctx context.Context) (service.Service, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	store := database.NewStore(cfg.MongoDB)
	col, err := store.Collection(ctx, cfg.MongoDB.Collection)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	repo := repository.NewMongoRepo(col)
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = store.Disconnect(ctx)
		return nil, nil, err
	}

	c, rdb, err := connectCache(ctx, cfg.Redis, cfg.Cache)
	if err != nil {
		_ = store.Disconnect(ctx)
		return nil, nil, err
	}
	var opts []service.Option
	if c != nil {
		opts = append(opts, service.WithCache(c))
	}

	closeFn := func() {
		if rdb != nil {
			_ = rdb.Close()
		}
		_ = store.Disconnect(context.Background())
	}
	return service.NewService(repo, opts...), closeFn, nil
}

// connectCache returns the API's read cache when it is enabled and Redis is
// configured, and nil otherwise. An unreachable Redis is an error: editing
// behind the cache's back would leave the API serving stale data.
func connectCache(ctx context.Context, rc config.RedisConfig, cc config.CacheConfig) (*cache.RedisCache, *redis.Client, error) {
	addr := rc.Addr()
	if addr == "" || !cc.Enabled {
		return nil, nil, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: rc.Password, DB: rc.DB})
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect to Redis (%s): %w", addr, err)
	}
	return cache.NewRedisCache(rdb, cc.Key, cc.TTL), rdb, nil
}

// readJSONFile decodes a JSON file, or stdin when name is "-".
func readJSONFile(name string) (interface{}, error) {
	var r io.Reader
	if name == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var v interface{}
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return v, nil
}

func readItemFile(name string) (map[string]interface{}, error) {
	v, err := readJSONFile(name)
	if err != nil {
		return nil, err
	}
	item, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("item must be a JSON object, got %T", v)
	}
	return item, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

/*
Copyright 2025 Nivasa Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package nivasa

import (
	"embed"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nivasa/nivasa/cache"
	"github.com/nivasa/nivasa/config"
	"github.com/nivasa/nivasa/database"
	redis_db "github.com/nivasa/nivasa/internal/redis-db"
)

// Nivasa is the main service struct, carrying the datasource, the redis
// client and the cache tier shared by all operations.
type Nivasa struct {
	redis      redis.UniversalClient
	datasource database.IDataSource
	cache      cache.Cache
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewNivasa initializes the service with the provided datasource, fetching
// configuration and connecting the Redis client.
func NewNivasa(db database.IDataSource) (*Nivasa, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}
	cacheInstance, err := cache.NewCache()
	if err != nil {
		return nil, err
	}
	return &Nivasa{datasource: db, redis: redisClient.Client(), cache: cacheInstance}, nil
}

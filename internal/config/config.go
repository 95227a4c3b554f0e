/**
 * Copyright 2025-present EzDawg Labs
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"ezdawg-sip-go/internal/models"
)

func Load() (*models.Config, error) {
	shutdownTimeout, err := getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	exchangeTimeout, err := getEnvDuration("EXCHANGE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	universeTTL, err := getEnvDuration("EXCHANGE_UNIVERSE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	freshnessWindow, err := getEnvDuration("SIG_FRESHNESS_WINDOW", 60*time.Second)
	if err != nil {
		return nil, err
	}

	maxClockSkew, err := getEnvDuration("SIG_MAX_CLOCK_SKEW", 5*time.Second)
	if err != nil {
		return nil, err
	}

	reconcileInterval, err := getEnvDuration("AGENT_RECONCILE_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	postgresURL := getEnvString("DATABASE_URL", "")

	// Backend defaults to postgres when a DATABASE_URL is present, otherwise
	// the local SQLite prototype store.
	defaultBackend := "sqlite"
	if postgresURL != "" {
		defaultBackend = "postgres"
	}
	backend := getEnvString("STORE_BACKEND", defaultBackend)
	if backend != "sqlite" && backend != "postgres" {
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: must be sqlite or postgres", backend)
	}
	if backend == "postgres" && postgresURL == "" {
		return nil, fmt.Errorf("STORE_BACKEND=postgres requires DATABASE_URL")
	}

	return &models.Config{
		Server: models.ServerConfig{
			Addr:            getEnvString("SERVER_ADDR", ":8080"),
			ShutdownTimeout: shutdownTimeout,
		},
		Store: models.StoreConfig{
			Backend: backend,
		},
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "ezdawg.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			CreateDemoUsers: getEnvBool("CREATE_DEMO_USERS", false),
		},
		Postgres: models.PostgresConfig{
			URL:             postgresURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			PingTimeout:     pingTimeout,
		},
		Exchange: models.ExchangeConfig{
			BaseURL:     getEnvString("EXCHANGE_BASE_URL", ""),
			Timeout:     exchangeTimeout,
			AssetsFile:  getEnvString("ASSETS_FILE", "assets.yaml"),
			UniverseTTL: universeTTL,
		},
		Signature: models.SignatureConfig{
			FreshnessWindow: freshnessWindow,
			MaxClockSkew:    maxClockSkew,
		},
		Agent: models.AgentConfig{
			MasterKey:        getEnvString("AGENT_MASTER_KEY", ""),
			AgentLabel:       getEnvString("AGENT_LABEL", "ezdawg-sip"),
			MaxRetryAttempts: getEnvInt("AGENT_MAX_RETRY_ATTEMPTS", 5),
		},
		Reconciler: models.ReconcilerConfig{
			Interval: reconcileInterval,
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

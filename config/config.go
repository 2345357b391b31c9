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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5400"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"NIVASA_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"NIVASA_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"NIVASA_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"NIVASA_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"NIVASA_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"NIVASA_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"NIVASA_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"NIVASA_REDIS_DNS"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"NIVASA_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"NIVASA_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"NIVASA_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

// ReconcilerConfig is the tuning surface for the unified-ledger engine.
// The keyword lists are deployment data, not algorithm: every deployment's
// transaction-type vocabulary differs, so they are injected here instead of
// living as constants next to the heuristics that consume them.
type ReconcilerConfig struct {
	// Cost-centre aliases that count as "Maintenance & Interior".
	MICostCentreAliases []string `json:"mi_cost_centre_aliases" envconfig:"NIVASA_MI_CC_ALIASES"`
	// Transaction-type name fragments that count as M&I.
	MITransactionTypeAliases []string `json:"mi_transaction_type_aliases" envconfig:"NIVASA_MI_TTYPE_ALIASES"`
	// Type-label fragments that mark a single-amount row as an outflow.
	DebitKeywords []string `json:"debit_keywords" envconfig:"NIVASA_DEBIT_KEYWORDS"`
	// Type-label fragments that mark a single-amount row as an inflow.
	CreditKeywords []string `json:"credit_keywords" envconfig:"NIVASA_CREDIT_KEYWORDS"`
}

// AccessControlConfig is the role -> module -> action policy table consulted
// by the API middleware before any core operation runs. The core never reads
// it; it is an external oracle as far as the ledger engine is concerned.
type AccessControlConfig struct {
	// Perms maps module -> action -> roles allowed.
	Perms map[string]map[string][]string `json:"perms"`
}

type Configuration struct {
	ProjectName   string              `json:"project_name" envconfig:"NIVASA_PROJECT_NAME"`
	Server        ServerConfig        `json:"server"`
	DataSource    DataSourceConfig    `json:"data_source"`
	Redis         RedisConfig         `json:"redis"`
	RateLimit     RateLimitConfig     `json:"rate_limit"`
	Reconciler    ReconcilerConfig    `json:"reconciler"`
	AccessControl AccessControlConfig `json:"access_control"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("nivasa", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called nivasa.json with your config")
	}
	return c, nil
}

// MockConfig stores a configuration directly, for tests that need to vary the
// reconciler keyword lists or the permission table per test case.
func MockConfig(cnf *Configuration) error {
	err := cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}
	ConfigStore.Store(cnf)
	return nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Nivasa Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	cnf.Reconciler.applyDefaults()
	cnf.AccessControl.applyDefaults()

	return nil
}

func (rc *ReconcilerConfig) applyDefaults() {
	if len(rc.MICostCentreAliases) == 0 {
		rc.MICostCentreAliases = []string{"maintenance", "interior", "mi", "maint", "m & i"}
	}
	if len(rc.MITransactionTypeAliases) == 0 {
		rc.MITransactionTypeAliases = []string{"maint", "interior", "m & i", "mi"}
	}
	if len(rc.DebitKeywords) == 0 {
		rc.DebitKeywords = []string{
			"paid", "payment", "payout", "to landlord", "rent out", "landlord payout",
			"rent paid", "refund paid", "withdraw", "withdrawal",
			"expense", "expenses", "maint", "maintenance", "interior", "m & i",
			"repair", "repairs", "service charge", "bank charge", "bank charges",
			"charge", "charges", "fee", "fees", "commission", "interest paid",
			"penalty", "fine", "salary", "wages", "tds", "tax", "gst",
		}
	}
	if len(rc.CreditKeywords) == 0 {
		rc.CreditKeywords = []string{
			"rent in", "rent received", "token received", "token", "received",
			"receipt", "inflow", "deposit", "advance received", "refund received",
		}
	}
}

func (ac *AccessControlConfig) applyDefaults() {
	if ac.Perms != nil {
		return
	}
	full := []string{"SUPER_USER", "ACCOUNTANT"}
	readers := []string{"SUPER_USER", "CENTER_HEAD", "ACCOUNTANT", "PROPERTY_MANAGER"}
	ac.Perms = map[string]map[string][]string{
		"bank_uploads": {
			"list":   {"SUPER_USER", "CENTER_HEAD", "ACCOUNTANT"},
			"create": full,
		},
		"classifications": {
			"list":   readers,
			"create": full,
			"update": full,
		},
		"cash_ledger": {
			"list":   readers,
			"create": full,
			"update": full,
			"delete": full,
		},
		"entities": {
			"list": readers,
		},
		"reports": {
			"list":   readers,
			"create": readers, // pivot queries POST their body
		},
	}
}

// Allows answers the policy question (role, module, action) -> allow/deny.
func (ac AccessControlConfig) Allows(role, module, action string) bool {
	actions, ok := ac.Perms[module]
	if !ok {
		return false
	}
	roles, ok := actions[action]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}

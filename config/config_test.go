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
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Configuration {
	return &Configuration{
		ProjectName: "Test",
		DataSource:  DataSourceConfig{Dns: "postgres://localhost:5432/nivasa"},
		Redis:       RedisConfig{Dns: "localhost:6379"},
	}
}

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := validConfig()
	require.NoError(t, cnf.validateAndAddDefaults())

	assert.Equal(t, DEFAULT_PORT, cnf.Server.Port)
	assert.NotEmpty(t, cnf.Reconciler.DebitKeywords)
	assert.NotEmpty(t, cnf.Reconciler.CreditKeywords)
	assert.NotEmpty(t, cnf.Reconciler.MICostCentreAliases)
	assert.NotNil(t, cnf.AccessControl.Perms)
}

func TestValidate_RequiredFields(t *testing.T) {
	cnf := validConfig()
	cnf.DataSource.Dns = ""
	assert.Error(t, cnf.validateAndAddDefaults())

	cnf = validConfig()
	cnf.Redis.Dns = ""
	assert.Error(t, cnf.validateAndAddDefaults())
}

func TestEnvOverride(t *testing.T) {
	os.Setenv("NIVASA_DATA_SOURCE_DNS", "postgres://env:5432/nivasa")
	os.Setenv("NIVASA_REDIS_DNS", "env:6379")
	defer os.Unsetenv("NIVASA_DATA_SOURCE_DNS")
	defer os.Unsetenv("NIVASA_REDIS_DNS")

	require.NoError(t, loadConfigFromFile("does-not-exist.json"))
	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "postgres://env:5432/nivasa", cnf.DataSource.Dns)
	assert.Equal(t, "env:6379", cnf.Redis.Dns)
}

func TestRateLimitDefaults(t *testing.T) {
	rps := 10.0
	cnf := validConfig()
	cnf.RateLimit.RequestsPerSecond = &rps
	require.NoError(t, cnf.validateAndAddDefaults())
	require.NotNil(t, cnf.RateLimit.Burst)
	assert.Equal(t, 20, *cnf.RateLimit.Burst)
}

func TestAccessControl_Allows(t *testing.T) {
	cnf := validConfig()
	require.NoError(t, cnf.validateAndAddDefaults())

	ac := cnf.AccessControl
	assert.True(t, ac.Allows("SUPER_USER", "bank_uploads", "create"))
	assert.True(t, ac.Allows("ACCOUNTANT", "cash_ledger", "delete"))
	assert.False(t, ac.Allows("PROPERTY_MANAGER", "bank_uploads", "create"))
	assert.False(t, ac.Allows("CENTER_HEAD", "cash_ledger", "update"))
	assert.False(t, ac.Allows("SUPER_USER", "unknown_module", "list"))
}

func TestMockConfig_OverridesKeywords(t *testing.T) {
	cnf := validConfig()
	cnf.Reconciler.DebitKeywords = []string{"outgoing"}
	require.NoError(t, MockConfig(cnf))

	got, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, []string{"outgoing"}, got.Reconciler.DebitKeywords)
}

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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivasa/nivasa"
	"github.com/nivasa/nivasa/api/middleware"
	"github.com/nivasa/nivasa/config"
	"github.com/nivasa/nivasa/database"
	"github.com/nivasa/nivasa/model"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	if s.Response != nil {
		if err := json.NewDecoder(resp.Body).Decode(&s.Response); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func setupRouter(t *testing.T, ds database.IDataSource, server config.ServerConfig) *gin.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	err := config.MockConfig(&config.Configuration{
		Server:     server,
		Redis:      config.RedisConfig{Dns: mr.Addr()},
		DataSource: config.DataSourceConfig{Dns: "postgres://postgres:@localhost:5432/nivasa?sslmode=disable"},
	})
	require.NoError(t, err)
	svc, err := nivasa.NewNivasa(ds)
	require.NoError(t, err)
	return NewAPI(svc).Router()
}

func identityHeaders(role, companies string) map[string]string {
	headers := map[string]string{
		middleware.HeaderUserID: "user_1",
		middleware.HeaderRole:   role,
	}
	if companies != "" {
		headers[middleware.HeaderCompanies] = companies
	}
	return headers
}

func classifiableMock() *nivasa.MockDataSource {
	return &nivasa.MockDataSource{
		MockGetBankTransaction: func(_ context.Context, id string) (*model.BankTransaction, error) {
			return &model.BankTransaction{
				TransactionID: id,
				BankAccountID: 7,
				SignedAmount:  decimal.RequireFromString("-600"),
			}, nil
		},
		MockGetBankAccount: func(_ context.Context, id int64) (*model.BankAccount, error) {
			return &model.BankAccount{ID: id, CompanyID: 1}, nil
		},
	}
}

func TestClassifyTransaction(t *testing.T) {
	router := setupRouter(t, classifiableMock(), config.ServerConfig{})

	payload := map[string]interface{}{
		"transaction_type_id": 2,
		"cost_centre_id":      3,
		"entity_id":           4,
		"amount":              "600.00",
	}
	body, _ := json.Marshal(payload)

	var response model.Classification
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  bytes.NewReader(body),
		Router:   router,
		Response: &response,
		Method:   "POST",
		Route:    "/transactions/btxn_1/classify",
		Header:   identityHeaders(model.RoleSuperUser, ""),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "btxn_1", response.BankTxnID)
	assert.Equal(t, int64(1), response.CompanyID)

	// Missing entity fails validation before the core is consulted.
	bad, _ := json.Marshal(map[string]interface{}{
		"transaction_type_id": 2,
		"cost_centre_id":      3,
		"amount":              "600.00",
	})
	resp, err = SetUpTestRequest(TestRequest{
		Payload: bytes.NewReader(bad),
		Router:  router,
		Method:  "POST",
		Route:   "/transactions/btxn_1/classify",
		Header:  identityHeaders(model.RoleSuperUser, ""),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSplitTransaction_RequiresTwoRows(t *testing.T) {
	router := setupRouter(t, classifiableMock(), config.ServerConfig{})

	body, _ := json.Marshal(map[string]interface{}{
		"rows": []map[string]interface{}{
			{"transaction_type_id": 2, "cost_centre_id": 3, "entity_id": 4, "amount": "600.00"},
		},
	})
	resp, err := SetUpTestRequest(TestRequest{
		Payload: bytes.NewReader(body),
		Router:  router,
		Method:  "POST",
		Route:   "/transactions/btxn_1/split",
		Header:  identityHeaders(model.RoleSuperUser, ""),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestIdentityHeadersRequired(t *testing.T) {
	router := setupRouter(t, &nivasa.MockDataSource{}, config.ServerConfig{})

	resp, err := SetUpTestRequest(TestRequest{
		Router: router,
		Method: "GET",
		Route:  "/ledger",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRoleMatrix(t *testing.T) {
	router := setupRouter(t, &nivasa.MockDataSource{}, config.ServerConfig{})

	// Property managers can read the ledger but not write cash entries.
	resp, err := SetUpTestRequest(TestRequest{
		Router: router,
		Method: "GET",
		Route:  "/ledger",
		Header: identityHeaders(model.RolePropertyManager, "3"),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	body, _ := json.Marshal(map[string]interface{}{})
	resp, err = SetUpTestRequest(TestRequest{
		Payload: bytes.NewReader(body),
		Router:  router,
		Method:  "POST",
		Route:   "/cash-entries",
		Header:  identityHeaders(model.RolePropertyManager, "3"),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestSecretKeyAuth(t *testing.T) {
	router := setupRouter(t, &nivasa.MockDataSource{}, config.ServerConfig{
		Secure:    true,
		SecretKey: "test-secret",
	})

	resp, err := SetUpTestRequest(TestRequest{
		Router: router,
		Method: "GET",
		Route:  "/ledger",
		Header: identityHeaders(model.RoleSuperUser, ""),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	headers := identityHeaders(model.RoleSuperUser, "")
	headers[middleware.KeyHeader] = "test-secret"
	resp, err = SetUpTestRequest(TestRequest{
		Router: router,
		Method: "GET",
		Route:  "/ledger",
		Header: headers,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRecordCashEntry(t *testing.T) {
	var created *model.CashEntry
	ds := &nivasa.MockDataSource{
		MockCreateCashEntry: func(_ context.Context, entry *model.CashEntry) error {
			entry.CashEntryID = "cash_1"
			created = entry
			return nil
		},
	}
	router := setupRouter(t, ds, config.ServerConfig{})

	remarks := gofakeit.Sentence(3)
	body, _ := json.Marshal(map[string]interface{}{
		"transaction_type_id": 2,
		"cost_centre_id":      3,
		"entity_id":           4,
		"amount":              "250.00",
		"entry_date":          "2025-03-10",
		"remarks":             remarks,
	})

	// A super user must say which company the entry belongs to.
	resp, err := SetUpTestRequest(TestRequest{
		Payload: bytes.NewReader(body),
		Router:  router,
		Method:  "POST",
		Route:   "/cash-entries",
		Header:  identityHeaders(model.RoleSuperUser, ""),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	// A single-company accountant gets the company filled in.
	resp, err = SetUpTestRequest(TestRequest{
		Payload: bytes.NewReader(body),
		Router:  router,
		Method:  "POST",
		Route:   "/cash-entries",
		Header:  identityHeaders(model.RoleAccountant, "6"),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)
	require.NotNil(t, created)
	assert.Equal(t, int64(6), created.CompanyID)
	assert.Equal(t, "2025-03-10", created.EntryDate.Format("2006-01-02"))
	assert.Equal(t, remarks, created.Remarks)
}

func TestCashBalance(t *testing.T) {
	ds := &nivasa.MockDataSource{
		MockCurrentCashBalance: func(_ context.Context, companyIDs []int64) (decimal.Decimal, error) {
			return decimal.RequireFromString("123.45"), nil
		},
	}
	router := setupRouter(t, ds, config.ServerConfig{})

	var response map[string]string
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   "GET",
		Route:    "/cash-entries/balance",
		Header:   identityHeaders(model.RoleSuperUser, ""),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "123.45", response["balance"])
}

func TestUploadStatement(t *testing.T) {
	statement := "Date,Narration,Debit,Credit,Balance\n" +
		"01/03/2025,March rent Skyline,,\"1,000.00\",\"1,000.00\"\n" +
		"03/03/2025,Plumbing repair,200.00,,800.00\n" +
		"05/03/2025,Token advance,,500.00,\"1,300.00\"\n"

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "statement.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(statement))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	router := setupRouter(t, &nivasa.MockDataSource{}, config.ServerConfig{})

	headers := identityHeaders(model.RoleSuperUser, "")
	headers["Content-Type"] = writer.FormDataContentType()

	var response model.UploadSummary
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  body,
		Router:   router,
		Response: &response,
		Method:   "POST",
		Route:    "/uploads/7",
		Header:   headers,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, 3, response.UploadedCount)
	assert.Equal(t, model.ContinuityValid, response.Continuity)
	assert.Equal(t, "0.00", response.OpeningBalanceInFile)
}

func TestEntityQuickSearch(t *testing.T) {
	var seenLimit int
	ds := &nivasa.MockDataSource{
		MockSearchEntities: func(_ context.Context, query string, companyIDs []int64, limit int) ([]model.Entity, error) {
			seenLimit = limit
			return []model.Entity{{ID: 4, Name: "Skyline Apartments"}}, nil
		},
	}
	router := setupRouter(t, ds, config.ServerConfig{})

	var response []model.Entity
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   "GET",
		Route:    "/entities/search?q=sky&limit=500",
		Header:   identityHeaders(model.RoleSuperUser, ""),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, response, 1)
	assert.Equal(t, "Skyline Apartments", response[0].Name)
	assert.Equal(t, 50, seenLimit)

	resp, err = SetUpTestRequest(TestRequest{
		Router: router,
		Method: "GET",
		Route:  "/entities/search",
		Header: identityHeaders(model.RoleSuperUser, ""),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

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
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/nivasa/nivasa/internal/apierror"
	"github.com/nivasa/nivasa/model"
)

const sampleStatement = "Date,Narration,Debit,Credit,Balance,UTR Number\n" +
	"01-Mar-2025,Opening rent,,1000.00,1000.00,UTR00011223\n" +
	"02-Mar-2025,Maintenance paid,200.00,,800.00,\n" +
	"03-Mar-2025,Token received,,500.00,1300.00,UTR00033445\n"

func superUser() model.Actor {
	return model.Actor{UserID: "user_super", Role: model.RoleSuperUser}
}

// storeBackedMock simulates persistence of dedupe keys across uploads.
func storeBackedMock() *MockDataSource {
	stored := make(map[string]struct{})
	ds := &MockDataSource{}
	ds.MockExistingDedupeKeys = func(_ context.Context, _ int64, keys []string) (map[string]struct{}, error) {
		out := make(map[string]struct{})
		for _, k := range keys {
			if _, ok := stored[k]; ok {
				out[k] = struct{}{}
			}
		}
		return out, nil
	}
	ds.MockInsertBankTransactions = func(_ context.Context, _ string, txns []*model.BankTransaction, _, _ int) (int, error) {
		for _, txn := range txns {
			stored[txn.DedupeKey] = struct{}{}
		}
		return len(txns), nil
	}
	return ds
}

func TestUploadStatement_FirstUploadStoresEverything(t *testing.T) {
	svc := newTestService(storeBackedMock())

	summary, err := svc.UploadStatement(context.Background(), superUser(), 7, "march.csv", strings.NewReader(sampleStatement))
	assert.NoError(t, err)
	assert.Equal(t, model.ContinuityValid, summary.Continuity)
	assert.Equal(t, 3, summary.UploadedCount)
	assert.Equal(t, 0, summary.SkippedCount)
	assert.Equal(t, "0.00", summary.OpeningBalanceInFile)
}

func TestUploadStatement_ReuploadIsIdempotent(t *testing.T) {
	ds := storeBackedMock()
	svc := newTestService(ds)

	_, err := svc.UploadStatement(context.Background(), superUser(), 7, "march.csv", strings.NewReader(sampleStatement))
	assert.NoError(t, err)

	// second upload of the same file: nothing new, every row echoed back
	summary, err := svc.UploadStatement(context.Background(), superUser(), 7, "march.csv", strings.NewReader(sampleStatement))
	assert.NoError(t, err)
	assert.Equal(t, 0, summary.UploadedCount)
	assert.Equal(t, 3, summary.SkippedCount)
	assert.Len(t, summary.SkippedRows, 3)
	assert.Equal(t, "Duplicate", summary.SkippedRows[0].Reason)
}

func TestUploadStatement_DuplicateWithinFileSkipped(t *testing.T) {
	dupFile := "Date,Narration,Credit,Balance\n" +
		"01-Mar-2025,Token received,100.00,1100.00\n" +
		"01-Mar-2025,Token received,100.00,1200.00\n"

	ds := storeBackedMock()
	ds.MockGetLastBankTransaction = func(context.Context, int64) (*model.BankTransaction, error) {
		return &model.BankTransaction{BalanceAmount: decimal.NewFromInt(1000)}, nil
	}
	svc := newTestService(ds)

	summary, err := svc.UploadStatement(context.Background(), superUser(), 7, "dup.csv", strings.NewReader(dupFile))
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.UploadedCount)
	assert.Equal(t, 1, summary.SkippedCount)
}

func TestUploadStatement_BrokenContinuityRejectsFile(t *testing.T) {
	badFile := "Date,Narration,Debit,Credit,Balance\n" +
		"01-Mar-2025,rent,,1000.00,1000.00\n" +
		"02-Mar-2025,upkeep,200.00,,850.00\n"

	ds := storeBackedMock()
	var batchCreated *model.UploadBatch
	ds.MockCreateUploadBatch = func(_ context.Context, b *model.UploadBatch) error {
		b.BatchID = "batch_test"
		batchCreated = b
		return nil
	}
	inserts := 0
	ds.MockInsertBankTransactions = func(_ context.Context, _ string, txns []*model.BankTransaction, _, _ int) (int, error) {
		inserts += len(txns)
		return len(txns), nil
	}
	svc := newTestService(ds)

	summary, err := svc.UploadStatement(context.Background(), superUser(), 7, "bad.csv", strings.NewReader(badFile))
	assert.NoError(t, err)
	assert.Equal(t, model.ContinuityInvalid, summary.Continuity)
	assert.NotEmpty(t, summary.Errors)
	assert.Equal(t, 0, inserts)
	// the rejection itself is audited, as a screened file that failed
	assert.NotNil(t, batchCreated)
	assert.True(t, batchCreated.Screened)
	assert.False(t, batchCreated.BalanceContinuityInFile)
}

func TestUploadStatement_StoreFailureReportsNothingPersisted(t *testing.T) {
	ds := storeBackedMock()
	ds.MockInsertBankTransactions = func(context.Context, string, []*model.BankTransaction, int, int) (int, error) {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "connection reset", nil)
	}
	svc := newTestService(ds)

	summary, err := svc.UploadStatement(context.Background(), superUser(), 7, "march.csv", strings.NewReader(sampleStatement))
	assert.Error(t, err)
	assert.Nil(t, summary)
}

func TestUploadStatement_CountsTravelWithTheInsert(t *testing.T) {
	dupFile := "Date,Narration,Credit,Balance\n" +
		"01-Mar-2025,Token received,100.00,1100.00\n" +
		"01-Mar-2025,Token received,100.00,1200.00\n" +
		"02-Mar-2025,notadate-row,abc,xyz\n"

	ds := storeBackedMock()
	ds.MockGetLastBankTransaction = func(context.Context, int64) (*model.BankTransaction, error) {
		return &model.BankTransaction{BalanceAmount: decimal.NewFromInt(1000)}, nil
	}
	var gotBatchID string
	var gotSkippedInFile, gotErrors int
	ds.MockInsertBankTransactions = func(_ context.Context, batchID string, txns []*model.BankTransaction, skippedInFile, errorsCount int) (int, error) {
		gotBatchID = batchID
		gotSkippedInFile = skippedInFile
		gotErrors = errorsCount
		return len(txns), nil
	}
	var createdBatchID string
	ds.MockCreateUploadBatch = func(_ context.Context, b *model.UploadBatch) error {
		b.BatchID = "batch_counts"
		createdBatchID = b.BatchID
		return nil
	}
	svc := newTestService(ds)

	summary, err := svc.UploadStatement(context.Background(), superUser(), 7, "dup.csv", strings.NewReader(dupFile))
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.UploadedCount)
	// duplicate and parse-error counts reach the datasource in the same call
	// that stores the rows, never as a separate write
	assert.Equal(t, createdBatchID, gotBatchID)
	assert.Equal(t, 1, gotSkippedInFile)
	assert.Equal(t, 1, gotErrors)
}

func TestUploadStatement_UnreadableFileAuditedAsUnscreened(t *testing.T) {
	ds := &MockDataSource{}
	var batchCreated *model.UploadBatch
	ds.MockCreateUploadBatch = func(_ context.Context, b *model.UploadBatch) error {
		b.BatchID = "batch_unreadable"
		batchCreated = b
		return nil
	}
	svc := newTestService(ds)

	_, err := svc.UploadStatement(context.Background(), superUser(), 7, "odd.csv", strings.NewReader("Foo,Bar\n1,2\n"))
	assert.Error(t, err)
	// the audit row records that the continuity checks never ran, rather
	// than presenting the file as a continuity failure
	if assert.NotNil(t, batchCreated) {
		assert.False(t, batchCreated.Screened)
		assert.Equal(t, 1, batchCreated.ErrorsCount)
		assert.False(t, batchCreated.Passed())
	}
}

func TestUploadStatement_PreviousBalanceMismatchRejects(t *testing.T) {
	ds := storeBackedMock()
	ds.MockGetLastBankTransaction = func(context.Context, int64) (*model.BankTransaction, error) {
		return &model.BankTransaction{BalanceAmount: decimal.NewFromInt(555)}, nil
	}
	svc := newTestService(ds)

	summary, err := svc.UploadStatement(context.Background(), superUser(), 7, "march.csv", strings.NewReader(sampleStatement))
	assert.NoError(t, err)
	assert.Equal(t, model.ContinuityInvalid, summary.Continuity)
	assert.Contains(t, strings.Join(summary.Errors, " "), "Previous ending balance")
	assert.Equal(t, "0.00", summary.OpeningBalanceInFile)
}

func TestUploadStatement_RejectsNonCSV(t *testing.T) {
	svc := newTestService(&MockDataSource{})

	_, err := svc.UploadStatement(context.Background(), superUser(), 7, "statement.xlsx", strings.NewReader(""))
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrBadRequest, apiErr.Code)
}

func TestUploadStatement_ScopedActorCannotTouchForeignAccount(t *testing.T) {
	ds := &MockDataSource{}
	ds.MockGetBankAccount = func(_ context.Context, id int64) (*model.BankAccount, error) {
		return &model.BankAccount{ID: id, CompanyID: 9}, nil
	}
	svc := newTestService(ds)

	actor := model.Actor{UserID: "user_1", Role: model.RoleAccountant, CompanyIDs: []int64{1, 2}}
	_, err := svc.UploadStatement(context.Background(), actor, 7, "march.csv", strings.NewReader(sampleStatement))
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrForbidden, apiErr.Code)
}

func TestUploadStatement_MissingColumnsReportsDetectedHeaders(t *testing.T) {
	svc := newTestService(&MockDataSource{})

	_, err := svc.UploadStatement(context.Background(), superUser(), 7, "odd.csv", strings.NewReader("Foo,Bar\n1,2\n"))
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrBadRequest, apiErr.Code)
	details, ok := apiErr.Details.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, []string{"Foo", "Bar"}, details["detected_headers"])
}

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
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/nivasa/nivasa/api/model"
)

// RecordCashEntry creates a manual cash movement. Company resolution follows
// the actor's scope, so single-company actors may omit company_id.
func (a Api) RecordCashEntry(c *gin.Context) {
	var req model2.CreateCashEntry
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateCreateCashEntry(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	entry, err := req.ToCashEntry()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := a.nivasa.RecordCashEntry(c.Request.Context(), actorFromRequest(c), entry)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListCashEntries returns active cash entries under the shared ledger
// filter parameters.
func (a Api) ListCashEntries(c *gin.Context) {
	filter, err := parseLedgerFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := a.nivasa.ListCashEntries(c.Request.Context(), actorFromRequest(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// RemoveCashEntry soft deletes a cash entry. Later balances are not
// recomputed.
func (a Api) RemoveCashEntry(c *gin.Context) {
	entryID, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	if err := a.nivasa.RemoveCashEntry(c.Request.Context(), actorFromRequest(c), entryID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// CashBalance returns the latest active cash balance, optionally scoped to
// one company via the company_id query parameter.
func (a Api) CashBalance(c *gin.Context) {
	companyID, err := queryInt64(c, "company_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	balance, err := a.nivasa.CashBalance(c.Request.Context(), actorFromRequest(c), companyID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

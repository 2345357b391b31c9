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

	"github.com/nivasa/nivasa"
	model2 "github.com/nivasa/nivasa/api/model"
)

// UnifiedLedger returns the reconciled transaction view under the shared
// ledger filter parameters.
func (a Api) UnifiedLedger(c *gin.Context) {
	filter, err := parseLedgerFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := a.nivasa.UnifiedLedger(c.Request.Context(), actorFromRequest(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

// Pivot builds the dashboard pivot over the unified ledger.
func (a Api) Pivot(c *gin.Context) {
	var req model2.PivotQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidatePivotQuery(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	from, to, err := req.Period()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := a.nivasa.Pivot(c.Request.Context(), actorFromRequest(c), nivasa.PivotRequest{
		Dims:            req.Dims,
		Values:          req.Values,
		DateGranularity: req.DateGranularity,
		From:            from,
		To:              to,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

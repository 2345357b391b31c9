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
)

// EntityStatement returns one entity's month statement with running
// balances. The month travels as ?month=YYYY-MM.
func (a Api) EntityStatement(c *gin.Context) {
	entityID, err := paramInt64(c, "entity_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	month := c.Query("month")
	if month == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month is required. pass it as ?month=YYYY-MM"})
		return
	}

	rows, err := a.nivasa.EntityStatement(c.Request.Context(), actorFromRequest(c), entityID, month)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

// MIExpensesSummary returns the net maintenance and interior position for
// the period, defaulting to the current year so far.
func (a Api) MIExpensesSummary(c *gin.Context) {
	from, err := queryDate(c, "from")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := queryDate(c, "to")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := a.nivasa.MIExpensesSummary(c.Request.Context(), actorFromRequest(c), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// MIExpensesByEntity groups the M&I position per entity.
func (a Api) MIExpensesByEntity(c *gin.Context) {
	from, err := queryDate(c, "from")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := queryDate(c, "to")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	balances, err := a.nivasa.MIExpensesByEntity(c.Request.Context(), actorFromRequest(c), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, balances)
}

// MIExpensesTransactions lists the M&I rows with running balances,
// optionally narrowed to one entity.
func (a Api) MIExpensesTransactions(c *gin.Context) {
	from, err := queryDate(c, "from")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := queryDate(c, "to")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entityID, err := queryInt64(c, "entity_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := a.nivasa.MIExpensesTransactions(c.Request.Context(), actorFromRequest(c), from, to, entityID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

// ProjectProfitability returns inflow/outflow/net per project label.
func (a Api) ProjectProfitability(c *gin.Context) {
	from, err := queryDate(c, "from")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := queryDate(c, "to")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	projectID, err := queryInt64(c, "project_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := a.nivasa.ProjectProfitability(c.Request.Context(), actorFromRequest(c), from, to, projectID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

// ProjectProfitabilityTransactions lists the underlying project rows.
func (a Api) ProjectProfitabilityTransactions(c *gin.Context) {
	from, err := queryDate(c, "from")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := queryDate(c, "to")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	projectID, err := queryInt64(c, "project_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := a.nivasa.ProjectProfitabilityTransactions(c.Request.Context(), actorFromRequest(c), from, to, projectID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

// EntityQuickSearch is the classification-screen typeahead.
func (a Api) EntityQuickSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entities, err := a.nivasa.EntityQuickSearch(c.Request.Context(), actorFromRequest(c), query, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entities)
}

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
	"github.com/gin-gonic/gin"

	"github.com/nivasa/nivasa"
	"github.com/nivasa/nivasa/api/middleware"
	"github.com/nivasa/nivasa/config"
	"github.com/nivasa/nivasa/internal/apierror"
	"github.com/nivasa/nivasa/model"
)

type Api struct {
	nivasa *nivasa.Nivasa
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/uploads/:account_id", a.UploadStatement)
	router.GET("/uploads", a.RecentUploads)
	router.GET("/uploads/batches/:id", a.GetBatchDetails)

	router.POST("/transactions/:id/classify", a.ClassifyTransaction)
	router.POST("/transactions/:id/split", a.SplitTransaction)
	router.GET("/transactions/:id/classifications", a.TransactionClassifications)
	router.POST("/classifications/:id/resplit", a.ResplitClassification)
	router.PUT("/classifications/:id/reclassify", a.ReclassifyClassification)

	router.POST("/cash-entries", a.RecordCashEntry)
	router.GET("/cash-entries", a.ListCashEntries)
	router.GET("/cash-entries/balance", a.CashBalance)
	router.DELETE("/cash-entries/:id", a.RemoveCashEntry)

	router.GET("/ledger", a.UnifiedLedger)

	router.POST("/reports/pivot", a.Pivot)
	router.GET("/reports/entity-statement/:entity_id", a.EntityStatement)
	router.GET("/reports/mi-expenses/summary", a.MIExpensesSummary)
	router.GET("/reports/mi-expenses/by-entity", a.MIExpensesByEntity)
	router.GET("/reports/mi-expenses/transactions", a.MIExpensesTransactions)
	router.GET("/reports/project-profitability", a.ProjectProfitability)
	router.GET("/reports/project-profitability/transactions", a.ProjectProfitabilityTransactions)

	router.GET("/entities/search", a.EntityQuickSearch)

	return a.router
}

func NewAPI(n *nivasa.Nivasa) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}
	r.Use(middleware.ActorMiddleware())
	r.Use(middleware.AuthorizeMiddleware())

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{nivasa: n, router: r}
}

// actorFromRequest returns the principal the middleware resolved. The
// middleware rejects unauthenticated requests before any handler runs, so
// the zero actor is only ever seen in tests that bypass the middleware.
func actorFromRequest(c *gin.Context) model.Actor {
	actor, _ := middleware.ActorFromContext(c)
	return actor
}

// respondError maps a core error onto an HTTP status, surfacing the stable
// code and details when the error is a structured one.
func respondError(c *gin.Context, err error) {
	status := apierror.MapErrorToHTTPStatus(err)
	if apiErr, ok := err.(apierror.APIError); ok {
		c.JSON(status, gin.H{"error": apiErr.Message, "code": apiErr.Code, "details": apiErr.Details})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

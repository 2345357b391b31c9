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
	"github.com/sirupsen/logrus"
)

// UploadStatement ingests a bank statement CSV for the account in the route.
// The file travels as the "file" multipart field. A statement that fails the
// balance-continuity checks is audited and reported, not an HTTP error, so
// the summary comes back 201 either way.
func (a Api) UploadStatement(c *gin.Context) {
	accountID, err := paramInt64(c, "account_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required. attach the statement as multipart field 'file'"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer func() {
		_ = file.Close()
	}()

	summary, err := a.nivasa.UploadStatement(c.Request.Context(), actorFromRequest(c), accountID, fileHeader.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, summary)
}

// RecentUploads lists the latest batches for a bank account.
func (a Api) RecentUploads(c *gin.Context) {
	accountID, err := queryInt64(c, "account_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if accountID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id is required"})
		return
	}

	uploads, err := a.nivasa.RecentUploads(c.Request.Context(), *accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, uploads)
}

// GetBatchDetails returns the rows of one upload batch with totals.
func (a Api) GetBatchDetails(c *gin.Context) {
	batchID, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	details, err := a.nivasa.GetBatchDetails(c.Request.Context(), batchID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

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
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nivasa/nivasa/model"
)

const queryDateLayout = "2006-01-02"

// parseLedgerFilter reads the shared ledger query parameters:
// from, to (YYYY-MM-DD), entity_id, project_id, apartment_id, cost_centre
// and only_mi. Absent parameters leave the filter open.
func parseLedgerFilter(c *gin.Context) (model.LedgerFilter, error) {
	var filter model.LedgerFilter

	from, err := queryDate(c, "from")
	if err != nil {
		return filter, err
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return filter, err
	}
	filter.From = from
	filter.To = to

	filter.EntityID, err = queryInt64(c, "entity_id")
	if err != nil {
		return filter, err
	}
	filter.ProjectID, err = queryInt64(c, "project_id")
	if err != nil {
		return filter, err
	}
	filter.ApartmentID, err = queryInt64(c, "apartment_id")
	if err != nil {
		return filter, err
	}

	filter.CostCentreSlug = c.Query("cost_centre")
	filter.OnlyMaintInt = c.Query("only_mi") == "true"

	return filter, nil
}

func queryDate(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(queryDateLayout, raw)
	if err != nil {
		return nil, errors.New(name + " must be formatted as YYYY-MM-DD")
	}
	t = t.UTC()
	return &t, nil
}

func queryInt64(c *gin.Context, name string) (*int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errors.New(name + " must be an integer")
	}
	return &id, nil
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return v, nil
}

func paramInt64(c *gin.Context, name string) (int64, error) {
	raw, passed := c.Params.Get(name)
	if !passed {
		return 0, errors.New(name + " is required. pass it in the route /:" + name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return id, nil
}

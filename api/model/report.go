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

package model

import "time"

// PivotQuery is the request body for the dashboard pivot. Dates are
// YYYY-MM-DD strings; omitted bounds default to the current year so far.
type PivotQuery struct {
	Dims            []string            `json:"dims,omitempty"`
	Values          map[string][]string `json:"values,omitempty"`
	DateGranularity string              `json:"date_granularity,omitempty"`
	From            string              `json:"from,omitempty"`
	To              string              `json:"to,omitempty"`
}

// Period converts the optional bounds into time values.
func (q PivotQuery) Period() (*time.Time, *time.Time, error) {
	from, err := parseOptionalDate(q.From)
	if err != nil {
		return nil, nil, err
	}
	to, err := parseOptionalDate(q.To)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

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

package middleware

import "strings"

// Module is a policy module name as used in the access-control table.
type Module string

// Action is the policy action derived from the HTTP method.
type Action string

const (
	ActionList   Action = "list"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"

	ModuleBankUploads     Module = "bank_uploads"
	ModuleClassifications Module = "classifications"
	ModuleCashLedger      Module = "cash_ledger"
	ModuleEntities        Module = "entities"
	ModuleReports         Module = "reports"
)

// pathToModule maps the first URL segment to its policy module. Routes that
// share a module (uploads and batches, ledger and reports) point at the same
// entry.
var pathToModule = map[string]Module{
	"uploads":      ModuleBankUploads,
	"transactions": ModuleClassifications,
	"cash-entries": ModuleCashLedger,
	"entities":     ModuleEntities,
	"ledger":       ModuleReports,
	"reports":      ModuleReports,
}

// methodToAction maps HTTP methods to policy actions. Pivot and report
// queries POST their body, so POST under the reports module is still a read
// as far as the policy table is concerned; the table itself encodes that.
var methodToAction = map[string]Action{
	"GET":    ActionList,
	"HEAD":   ActionList,
	"POST":   ActionCreate,
	"PUT":    ActionUpdate,
	"PATCH":  ActionUpdate,
	"DELETE": ActionDelete,
}

// moduleFromPath determines the policy module from the URL path.
func moduleFromPath(path string) Module {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) == 0 {
		return ""
	}

	// Classification edits address the classification row, not the
	// transaction, but they live in the same policy module.
	if parts[0] == "classifications" {
		return ModuleClassifications
	}

	if module, ok := pathToModule[parts[0]]; ok {
		return module
	}

	return ""
}

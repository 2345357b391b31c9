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

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nivasa/nivasa/config"
	"github.com/nivasa/nivasa/model"
)

// Identity headers set by the upstream gateway after it has authenticated
// the user. The service never sees credentials, only the resolved principal.
const (
	HeaderUserID    = "X-Nivasa-User-Id"
	HeaderUserName  = "X-Nivasa-User-Name"
	HeaderRole      = "X-Nivasa-Role"
	HeaderCompanies = "X-Nivasa-Company-Ids"
)

const actorContextKey = "actor"

// ActorMiddleware resolves the acting principal from the gateway identity
// headers and stores it in the request context. Requests without a user and
// role are rejected; company IDs are optional and empty for super users.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/" {
			c.Next()
			return
		}

		userID := c.GetHeader(HeaderUserID)
		role := c.GetHeader(HeaderRole)
		if userID == "" || role == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "Authentication required. Identity headers missing"})
			return
		}

		companyIDs, err := parseCompanyIDs(c.GetHeader(HeaderCompanies))
		if err != nil {
			c.AbortWithStatusJSON(400, gin.H{"error": "Invalid company id header"})
			return
		}

		c.Set(actorContextKey, model.Actor{
			UserID:     userID,
			Name:       c.GetHeader(HeaderUserName),
			Role:       role,
			CompanyIDs: companyIDs,
		})
		c.Next()
	}
}

// AuthorizeMiddleware consults the role policy table for every request. The
// module is derived from the first path segment and the action from the HTTP
// method.
func AuthorizeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/" {
			c.Next()
			return
		}

		conf, err := config.Fetch()
		if err != nil {
			c.AbortWithStatusJSON(500, gin.H{"error": "Access policy is not configured"})
			return
		}

		actor, ok := ActorFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(401, gin.H{"error": "Authentication required. Identity headers missing"})
			return
		}

		module := moduleFromPath(c.Request.URL.Path)
		if module == "" {
			c.AbortWithStatusJSON(403, gin.H{"error": "Unknown resource type"})
			return
		}

		action := methodToAction[c.Request.Method]
		if action == "" || !conf.AccessControl.Allows(actor.Role, string(module), string(action)) {
			c.AbortWithStatusJSON(403, gin.H{"error": "Insufficient permissions for " + string(module) + ":" + string(action)})
			return
		}

		c.Next()
	}
}

// ActorFromContext retrieves the principal stored by ActorMiddleware.
func ActorFromContext(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}

func parseCompanyIDs(header string) ([]int64, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}
	parts := strings.Split(header, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

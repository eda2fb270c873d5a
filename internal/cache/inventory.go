package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix       = "user:%d"
	TemplateKeyPrefix   = "template:%d"
	DepartmentKeyPrefix = "department:%d"
	DashboardKeyPrefix  = "dashboard:%s:%d"
)

const (
	UserTTL       = 5 * time.Minute
	TemplateTTL   = 10 * time.Minute
	DepartmentTTL = 10 * time.Minute
	DashboardTTL  = 1 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func TemplateKey(templateID uint) string {
	return fmt.Sprintf(TemplateKeyPrefix, templateID)
}

func DepartmentKey(departmentID uint) string {
	return fmt.Sprintf(DepartmentKeyPrefix, departmentID)
}

// DashboardKey identifies a cached dashboard stats payload. Scope is
// "global", "department" or "user"; id scopes the payload (0 for the
// global view).
func DashboardKey(scope string, id uint) string {
	return fmt.Sprintf(DashboardKeyPrefix, scope, id)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateTemplate(ctx context.Context, templateID uint) {
	Invalidate(ctx, TemplateKey(templateID))
}

func InvalidateDepartment(ctx context.Context, departmentID uint) {
	Invalidate(ctx, DepartmentKey(departmentID))
}

// InvalidateDashboards drops every cached dashboard payload. Called after a
// lifecycle transition so stats are rebuilt on next read.
func InvalidateDashboards(ctx context.Context) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, "dashboard:*", 100).Iterator()
	for iter.Next(ctx) {
		client.Del(ctx, iter.Val())
	}
}

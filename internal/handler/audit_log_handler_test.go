package handler_test

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ebulletin-go-api/internal/dto"
	"github.com/noah-isme/ebulletin-go-api/internal/handler"
	"github.com/noah-isme/ebulletin-go-api/internal/models"
)

const auditListSchema = `{
  "type": "object",
  "required": ["success", "message", "data", "pagination", "filters"],
  "properties": {
    "success": {"const": true},
    "message": {"type": "string"},
    "data": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["log_id", "user_type", "user_id", "user_name", "user_email", "action_type",
          "target_table", "target_id", "old_values", "new_values", "description", "ip_address",
          "user_agent", "performed_at"],
        "properties": {
          "log_id": {"type": "integer", "minimum": 1},
          "user_type": {"enum": ["admin", "student", "system"]},
          "user_id": {"type": ["integer", "null"]},
          "user_name": {"type": ["string", "null"]},
          "action_type": {"type": "string", "minLength": 1},
          "target_table": {"type": "string", "minLength": 1},
          "target_id": {"type": ["integer", "null"]},
          "performed_at": {"type": "string", "format": "date-time"}
        }
      }
    },
    "pagination": {
      "type": "object",
      "required": ["current_page", "per_page", "total_records", "total_pages", "has_next_page", "has_prev_page"],
      "properties": {
        "current_page": {"type": "integer", "minimum": 1},
        "per_page": {"type": "integer", "minimum": 1},
        "total_records": {"type": "integer", "minimum": 0},
        "total_pages": {"type": "integer", "minimum": 0},
        "has_next_page": {"type": "boolean"},
        "has_prev_page": {"type": "boolean"}
      }
    },
    "filters": {"type": "object"}
  }
}`

func newAuditLogApp(env *testEnv) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/audit-logs", env.guards.Admin...)
	handler.NewAuditLogHandler(env.audit, env.validate, env.logger, true).Register(group, env.auditor, env.guards)
	return app
}

func seedAuditLogs(t *testing.T, env *testEnv, count int, userType string, userID uint, action, table string, at time.Time) {
	t.Helper()
	for i := 0; i < count; i++ {
		id := userID
		target := uint(i + 1)
		entry := models.AuditLog{
			UserType:    userType,
			UserID:      &id,
			ActionType:  action,
			TargetTable: table,
			TargetID:    &target,
			Description: fmt.Sprintf("%s %s #%d", action, table, i),
			PerformedAt: at.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, env.db.Create(&entry).Error)
	}
}

func TestAuditLogHandlerListPaginatesAndAuditsRead(t *testing.T) {
	env := newTestEnv(t)
	grace := env.seedAdmin(t, "grace@school.test", models.AdminPositionSuperAdmin, "Grace", "Hopper")
	seedAuditLogs(t, env, 12, models.AuditUserAdmin, grace.AdminID, models.AuditActionUpdate, "categories", time.Now().UTC().Add(-time.Hour))
	app := newAuditLogApp(env)

	resp := doRequest(t, app, http.MethodGet, "/api/audit-logs?page=2&limit=5&target_table=categories", adminToken(t, grace), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, "audit logs retrieved", body.Message)
	require.Equal(t, "categories", body.Filters["target_table"])

	var pagination dto.AuditPaginationMeta
	require.NoError(t, json.Unmarshal(body.Pagination, &pagination))
	require.Equal(t, dto.AuditPaginationMeta{
		CurrentPage:  2,
		PerPage:      5,
		TotalRecords: 12,
		TotalPages:   3,
		HasNextPage:  true,
		HasPrevPage:  true,
	}, pagination)

	var items []dto.AuditLogResponse
	require.NoError(t, json.Unmarshal(body.Data, &items))
	require.Len(t, items, 5)
	require.NotNil(t, items[0].UserName)
	require.Equal(t, "Grace Hopper", *items[0].UserName)
	require.Equal(t, "grace@school.test", *items[0].UserEmail)

	reads := env.auditRows(t, models.AuditActionRead, "audit_logs")
	require.Len(t, reads, 1)
	require.Equal(t, models.AuditUserAdmin, reads[0].UserType)
	require.Equal(t, grace.AdminID, *reads[0].UserID)
	require.Equal(t, "Admin grace@school.test performed READ on audit_logs", reads[0].Description)
}

func TestAuditLogHandlerDateFilters(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedAdmin(t, "ops@school.test", models.AdminPositionAdmin, "Ops", "Team")
	seedAuditLogs(t, env, 1, models.AuditUserAdmin, admin.AdminID, models.AuditActionCreate, "announcements", time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC))
	seedAuditLogs(t, env, 1, models.AuditUserAdmin, admin.AdminID, models.AuditActionCreate, "announcements", time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC))
	seedAuditLogs(t, env, 1, models.AuditUserAdmin, admin.AdminID, models.AuditActionCreate, "announcements", time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC))
	app := newAuditLogApp(env)
	token := adminToken(t, admin)

	resp := doRequest(t, app, http.MethodGet, "/api/audit-logs?start_date=2026-03-10&end_date=2026-03-10&target_table=announcements", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	var pagination dto.AuditPaginationMeta
	require.NoError(t, json.Unmarshal(body.Pagination, &pagination))
	require.Equal(t, int64(1), pagination.TotalRecords)
	require.Equal(t, "2026-03-10T00:00:00Z", body.Filters["start_date"])
	require.Equal(t, "2026-03-10T23:59:59Z", body.Filters["end_date"])

	resp = doRequest(t, app, http.MethodGet, "/api/audit-logs?start_date=2026-03-11&end_date=2026-03-10", token, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, "/api/audit-logs?start_date=yesterday", token, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, "/api/audit-logs?sort_by=password", token, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuditLogHandlerRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	student := env.seedStudent(t, "2024-0042", "Ada", "Lovelace")
	app := newAuditLogApp(env)

	resp := doRequest(t, app, http.MethodGet, "/api/audit-logs", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, "/api/audit-logs", studentToken(t, student), nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	require.Empty(t, env.auditRows(t, models.AuditActionRead, "audit_logs"))
}

func TestAuditLogHandlerCleanupRestrictedToSuperAdmin(t *testing.T) {
	env := newTestEnv(t)
	grace := env.seedAdmin(t, "grace@school.test", models.AdminPositionSuperAdmin, "Grace", "Hopper")
	staff := env.seedAdmin(t, "staff@school.test", models.AdminPositionAdmin, "Sam", "Staff")
	seedAuditLogs(t, env, 2, models.AuditUserAdmin, staff.AdminID, models.AuditActionDelete, "categories", time.Now().UTC().AddDate(0, 0, -120))
	seedAuditLogs(t, env, 1, models.AuditUserAdmin, staff.AdminID, models.AuditActionDelete, "categories", time.Now().UTC().Add(-time.Hour))
	app := newAuditLogApp(env)

	resp := doRequest(t, app, http.MethodDelete, "/api/audit-logs/cleanup", adminToken(t, staff), fiber.Map{"days_to_keep": 90})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, app, http.MethodDelete, "/api/audit-logs/cleanup", adminToken(t, grace), fiber.Map{"days_to_keep": 7})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var rejected envelope
	decodeResponse(t, resp, &rejected)
	require.Equal(t, "days_to_keep must be between 30 and 3650", rejected.Message)

	resp = doRequest(t, app, http.MethodDelete, "/api/audit-logs/cleanup", adminToken(t, grace), fiber.Map{"days_to_keep": 90})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body envelope
	decodeResponse(t, resp, &body)
	var result dto.AuditCleanupResponse
	require.NoError(t, json.Unmarshal(body.Data, &result))
	require.Equal(t, dto.AuditCleanupResponse{DeletedCount: 2, DaysToKeep: 90}, result)

	cleanups := env.auditRows(t, models.AuditActionCleanup, "system")
	require.Len(t, cleanups, 1)
	require.Equal(t, models.AuditUserSystem, cleanups[0].UserType)
	require.Nil(t, cleanups[0].UserID)
	require.Equal(t, "Audit log cleanup deleted 2 entries older than 90 days", cleanups[0].Description)
	require.Len(t, env.auditRows(t, models.AuditActionDelete, "categories"), 1)
}

func TestAuditLogHandlerExportCSV(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedAdmin(t, "ops@school.test", models.AdminPositionAdmin, "Ops", "Team")
	seedAuditLogs(t, env, 3, models.AuditUserAdmin, admin.AdminID, models.AuditActionUpdate, "welcome_cards", time.Now().UTC().Add(-time.Hour))
	app := newAuditLogApp(env)
	token := adminToken(t, admin)

	resp := doRequest(t, app, http.MethodGet, "/api/audit-logs/export?format=csv", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/csv; charset=utf-8", resp.Header.Get(fiber.HeaderContentType))
	disposition := resp.Header.Get(fiber.HeaderContentDisposition)
	require.True(t, strings.HasPrefix(disposition, `attachment; filename="audit-logs-`), disposition)
	require.True(t, strings.HasSuffix(disposition, `.csv"`), disposition)
	require.Equal(t, "3", resp.Header.Get("X-Export-Count"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	records, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, "log_id", records[0][0])
	require.Equal(t, "performed_at", records[0][11])
	require.Equal(t, "Ops Team", records[1][3])

	exports := env.auditRows(t, models.AuditActionExport, "audit_logs")
	require.Len(t, exports, 1)

	resp = doRequest(t, app, http.MethodGet, "/api/audit-logs/export?format=xml", token, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body envelope
	decodeResponse(t, resp, &body)
	require.Contains(t, body.Message, "xml")
}

func TestAuditLogHandlerGetByID(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedAdmin(t, "ops@school.test", models.AdminPositionAdmin, "Ops", "Team")
	seedAuditLogs(t, env, 1, models.AuditUserAdmin, admin.AdminID, models.AuditActionDelete, "announcements", time.Now().UTC().Add(-time.Minute))
	app := newAuditLogApp(env)
	token := adminToken(t, admin)

	var row models.AuditLog
	require.NoError(t, env.db.Where("target_table = ?", "announcements").First(&row).Error)

	resp := doRequest(t, app, http.MethodGet, fmt.Sprintf("/api/audit-logs/%d", row.LogID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body envelope
	decodeResponse(t, resp, &body)
	var entry dto.AuditLogResponse
	require.NoError(t, json.Unmarshal(body.Data, &entry))
	require.Equal(t, row.LogID, entry.LogID)
	require.Equal(t, "Ops Team", *entry.UserName)

	resp = doRequest(t, app, http.MethodGet, "/api/audit-logs/999999", token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, "/api/audit-logs/abc", token, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuditLogHandlerStatsSummaryAndScopes(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedAdmin(t, "ops@school.test", models.AdminPositionAdmin, "Ops", "Team")
	student := env.seedStudent(t, "2024-0042", "Ada", "Lovelace")
	recent := time.Now().UTC().Add(-time.Hour)
	seedAuditLogs(t, env, 2, models.AuditUserAdmin, admin.AdminID, models.AuditActionCreate, "announcements", recent)
	seedAuditLogs(t, env, 1, models.AuditUserAdmin, admin.AdminID, models.AuditActionDelete, "welcome_cards", recent)
	seedAuditLogs(t, env, 1, models.AuditUserStudent, student.StudentID, models.AuditActionLogin, "authentication", recent)
	app := newAuditLogApp(env)
	token := adminToken(t, admin)

	resp := doRequest(t, app, http.MethodGet, "/api/audit-logs/stats", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body envelope
	decodeResponse(t, resp, &body)
	var stats dto.AuditStatsResponse
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	require.Equal(t, int64(4), stats.TotalLogs)
	require.Equal(t, int64(2), stats.UniqueUsers)
	require.Equal(t, int64(2), stats.CreateCount)
	require.Equal(t, int64(1), stats.DeleteCount)
	require.Equal(t, int64(1), stats.LoginCount)
	require.Equal(t, int64(3), stats.AdminCount)
	require.Equal(t, int64(1), stats.StudentCount)

	resp = doRequest(t, app, http.MethodGet, "/api/audit-logs/summary?days=7", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeResponse(t, resp, &body)
	var summary dto.AuditSummaryResponse
	require.NoError(t, json.Unmarshal(body.Data, &summary))
	require.Equal(t, 7, summary.Days)
	require.Len(t, summary.RecentDeletes, 1)
	require.Equal(t, "welcome_cards", summary.RecentDeletes[0].TargetTable)

	resp = doRequest(t, app, http.MethodGet, fmt.Sprintf("/api/audit-logs/user/%d?user_type=student", student.StudentID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeResponse(t, resp, &body)
	var byUser []dto.AuditLogResponse
	require.NoError(t, json.Unmarshal(body.Data, &byUser))
	require.Len(t, byUser, 1)
	require.Equal(t, "Ada Lovelace", *byUser[0].UserName)
	require.Equal(t, "student", body.Filters["user_type"])

	resp = doRequest(t, app, http.MethodGet, "/api/audit-logs/table/announcements", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeResponse(t, resp, &body)
	var byTable []dto.AuditLogResponse
	require.NoError(t, json.Unmarshal(body.Data, &byTable))
	require.Len(t, byTable, 2)

	resp = doRequest(t, app, http.MethodGet, "/api/audit-logs/user/zero", token, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuditLogListContract(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedAdmin(t, "ops@school.test", models.AdminPositionAdmin, "Ops", "Team")
	seedAuditLogs(t, env, 2, models.AuditUserAdmin, admin.AdminID, models.AuditActionUpdate, "announcements", time.Now().UTC().Add(-time.Hour))
	app := newAuditLogApp(env)

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	require.NoError(t, compiler.AddResource("audit_log_list.schema.json", strings.NewReader(auditListSchema)))
	schema, err := compiler.Compile("audit_log_list.schema.json")
	require.NoError(t, err)

	resp := doRequest(t, app, http.MethodGet, "/api/audit-logs", adminToken(t, admin), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	var payload interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.NoError(t, schema.Validate(payload))
}

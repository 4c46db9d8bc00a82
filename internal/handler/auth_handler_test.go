package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ebulletin-go-api/internal/dto"
	"github.com/noah-isme/ebulletin-go-api/internal/handler"
	"github.com/noah-isme/ebulletin-go-api/internal/models"
	"github.com/noah-isme/ebulletin-go-api/internal/repository"
	"github.com/noah-isme/ebulletin-go-api/internal/service"
)

func newAuthApp(env *testEnv) *fiber.App {
	authService := service.NewAuthService(repository.NewAccountRepository(env.db), env.revoker, env.validate, testSecret, time.Hour, env.logger)
	app := fiber.New()
	passthrough := func(c *fiber.Ctx) error { return c.Next() }
	handler.NewAuthHandler(authService, env.logger, true).Register(app.Group("/api/auth"), env.auditor, env.guards, passthrough)
	return app
}

func TestAuthHandlerAdminLoginAudited(t *testing.T) {
	env := newTestEnv(t)
	grace := env.seedAdmin(t, "grace@school.test", models.AdminPositionSuperAdmin, "Grace", "Hopper")
	app := newAuthApp(env)

	resp := doRequest(t, app, http.MethodPost, "/api/auth/admin/login", "", fiber.Map{"email": "grace@school.test", "password": "wrong-pass"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPost, "/api/auth/admin/login", "", fiber.Map{"email": "Grace@School.test", "password": "secret-pass"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body envelope
	decodeResponse(t, resp, &body)
	var login dto.LoginResponse
	require.NoError(t, json.Unmarshal(body.Data, &login))
	require.NotEmpty(t, login.Token)
	require.Equal(t, "Grace Hopper", login.User.Name)

	rows := env.auditRows(t, models.AuditActionLogin, "authentication")
	require.Len(t, rows, 2)

	require.Equal(t, models.AuditUserAdmin, rows[0].UserType)
	require.Nil(t, rows[0].UserID)
	require.Equal(t, "LOGIN failed for grace@school.test. invalid credentials", rows[0].Description)
	require.NotNil(t, rows[0].NewValues)
	require.NotContains(t, *rows[0].NewValues, "wrong-pass")

	require.Equal(t, grace.AdminID, *rows[1].UserID)
	require.Equal(t, grace.AdminID, *rows[1].TargetID)
	require.Equal(t, "LOGIN successful for grace@school.test.", rows[1].Description)
}

func TestAuthHandlerStudentLoginFailures(t *testing.T) {
	env := newTestEnv(t)
	student := env.seedStudent(t, "2024-0042", "Ada", "Lovelace")
	require.NoError(t, env.db.Model(&models.StudentAccount{}).Where("student_id = ?", student.StudentID).Update("is_active", false).Error)
	app := newAuthApp(env)

	resp := doRequest(t, app, http.MethodPost, "/api/auth/student/login", "", fiber.Map{"student_number": "2024-0042", "password": "secret-pass"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPost, "/api/auth/student/login", "", fiber.Map{"student_number": "", "password": "x"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	rows := env.auditRows(t, models.AuditActionLogin, "authentication")
	require.Len(t, rows, 2)
	require.Equal(t, models.AuditUserStudent, rows[0].UserType)
	require.Equal(t, "LOGIN failed for 2024-0042. account is inactive", rows[0].Description)
	require.Equal(t, models.AuditUserAdmin, rows[1].UserType)
}

func TestAuthHandlerLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	grace := env.seedAdmin(t, "grace@school.test", models.AdminPositionSuperAdmin, "Grace", "Hopper")
	app := newAuthApp(env)
	token := adminToken(t, grace)

	resp := doRequest(t, app, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me envelope
	decodeResponse(t, resp, &me)
	var actor service.Actor
	require.NoError(t, json.Unmarshal(me.Data, &actor))
	require.Equal(t, service.ActorAdmin, actor.Kind)
	require.Equal(t, "grace@school.test", actor.Email)

	resp = doRequest(t, app, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	rows := env.auditRows(t, models.AuditActionLogout, "authentication")
	require.Len(t, rows, 1)
	require.Equal(t, grace.AdminID, *rows[0].UserID)
	require.Equal(t, "LOGOUT successful for grace@school.test.", rows[0].Description)
}

func TestAuthHandlerLogoutAllRevokesEveryToken(t *testing.T) {
	env := newTestEnv(t)
	student := env.seedStudent(t, "2024-0042", "Ada", "Lovelace")
	app := newAuthApp(env)
	first := studentToken(t, student)
	second := studentToken(t, student)

	resp := doRequest(t, app, http.MethodPost, "/api/auth/logout-all", first, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, "/api/auth/me", second, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPost, "/api/auth/logout-all", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	rows := env.auditRows(t, models.AuditActionLogoutAll, "authentication")
	require.Len(t, rows, 1)
	require.Equal(t, models.AuditUserStudent, rows[0].UserType)
	require.Equal(t, "LOGOUT_ALL successful for 2024-0042.", rows[0].Description)
}

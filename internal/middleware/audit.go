package middleware

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ebulletin-go-api/internal/models"
	"github.com/noah-isme/ebulletin-go-api/internal/service"
)

const oldValuesLocalsKey = "audit_old_values"

// resourceParamPriority is the order in which route parameters are tried as the target id.
var resourceParamPriority = []string{
	"adminId",
	"studentId",
	"announcementId",
	"calendarId",
	"categoryId",
	"subcategoryId",
	"commentId",
	"cardId",
	"id",
}

var redactedBodyFields = map[string]struct{}{
	"password":              {},
	"password_confirmation": {},
	"current_password":      {},
	"new_password":          {},
}

// AuditSink accepts finished entries. Implementations must not block.
type AuditSink interface {
	Record(input service.LogActionInput)
}

// AuditSnapshot is the request and response state captured after the handler ran.
// Every field is a copy, so it remains valid after the request context is recycled.
type AuditSnapshot struct {
	Method    string
	Path      string
	Params    map[string]string
	Body      map[string]interface{}
	Files     []service.FileInfo
	Status    int
	Response  map[string]interface{}
	Actor     service.Actor
	HasActor  bool
	Request   service.RequestMeta
	OldValues interface{}
	Err       error
}

// Succeeded reports whether the handler signalled success.
func (s AuditSnapshot) Succeeded() bool {
	if s.Err != nil || s.Status >= fiber.StatusBadRequest {
		return false
	}
	if flag, ok := s.Response["success"].(bool); ok && !flag {
		return false
	}
	return true
}

// ResponseData returns the response "data" object, if any.
func (s AuditSnapshot) ResponseData() map[string]interface{} {
	data, _ := s.Response["data"].(map[string]interface{})
	return data
}

// AuditOptions overrides the derived fields of an entry. Zero values fall back to defaults.
type AuditOptions struct {
	Action      string
	Table       string
	TargetID    func(AuditSnapshot) *uint
	OldValues   func(AuditSnapshot) interface{}
	NewValues   func(AuditSnapshot) interface{}
	Description func(AuditSnapshot) string
	Skip        func(AuditSnapshot) bool
}

type entryBuilder func(snap AuditSnapshot, event service.AuditEvent) []service.LogActionInput

// Auditor builds audit middleware that hands entries to a sink.
type Auditor struct {
	sink   AuditSink
	logger zerolog.Logger
}

// NewAuditor constructs an Auditor.
func NewAuditor(sink AuditSink, logger zerolog.Logger) *Auditor {
	return &Auditor{
		sink:   sink,
		logger: logger.With().Str("component", "audit_middleware").Logger(),
	}
}

// SetAuditOldValues records the pre-change state of the resource a handler modified.
func SetAuditOldValues(c *fiber.Ctx, value interface{}) {
	c.Locals(oldValuesLocalsKey, value)
}

// Audit records one entry per successful response using the generic derivation rules.
func (a *Auditor) Audit(opts AuditOptions) fiber.Handler {
	return a.intercept(opts, []string{"id"}, func(snap AuditSnapshot, event service.AuditEvent) []service.LogActionInput {
		if event.Description == "" {
			event.Description = fmt.Sprintf("%s performed %s on %s%s", event.Actor.Label(), event.Action, event.Table, targetSuffix(event.TargetID))
		}
		return []service.LogActionInput{event.Input()}
	})
}

// AuditCRUD fixes the target table.
func (a *Auditor) AuditCRUD(table string, opts ...AuditOptions) fiber.Handler {
	o := firstOptions(opts)
	o.Table = table
	return a.intercept(o, resourceParamPriority, single(service.CRUDEntry))
}

// AuditAdminAction records an administrative action on table.
func (a *Auditor) AuditAdminAction(action, table string, opts ...AuditOptions) fiber.Handler {
	o := firstOptions(opts)
	o.Action, o.Table = action, table
	return a.intercept(o, resourceParamPriority, single(service.AdminEntry))
}

// AuditStudentAction records an action on a student record.
func (a *Auditor) AuditStudentAction(action, table string, opts ...AuditOptions) fiber.Handler {
	o := firstOptions(opts)
	o.Action = action
	if table == "" {
		table = "students"
	}
	o.Table = table
	return a.intercept(o, resourceParamPriority, single(service.StudentEntry))
}

// AuditContentAction records an action on published content.
func (a *Auditor) AuditContentAction(action, table string, opts ...AuditOptions) fiber.Handler {
	o := firstOptions(opts)
	o.Action, o.Table = action, table
	return a.intercept(o, resourceParamPriority, single(service.ContentEntry))
}

// AuditFileAction records one entry per uploaded file.
func (a *Auditor) AuditFileAction(action string, opts ...AuditOptions) fiber.Handler {
	o := firstOptions(opts)
	o.Action = action
	o.Table = "files"
	return a.intercept(o, resourceParamPriority, func(snap AuditSnapshot, event service.AuditEvent) []service.LogActionInput {
		files := snap.Files
		if len(files) == 0 {
			files = []service.FileInfo{{}}
		}
		inputs := make([]service.LogActionInput, 0, len(files))
		for _, file := range files {
			input := service.FileEntry(event.Actor, event.Action, file, event.Request)
			input.TargetID = event.TargetID
			if event.Description != "" {
				input.Description = event.Description
			}
			inputs = append(inputs, input)
		}
		return inputs
	})
}

// AuditSystemEvent records a system entry after a successful response.
func (a *Auditor) AuditSystemEvent(action string, opts ...AuditOptions) fiber.Handler {
	o := firstOptions(opts)
	o.Action = action
	o.Table = "system"
	return a.intercept(o, nil, func(snap AuditSnapshot, event service.AuditEvent) []service.LogActionInput {
		details := event.NewValues
		if details == nil {
			details = map[string]interface{}{"method": snap.Method, "path": snap.Path}
		}
		input := service.SystemEntry(event.Action, event.Description, details)
		input.Request = event.Request
		input.IPAddress, input.UserAgent = "", ""
		return []service.LogActionInput{input}
	})
}

// AuditSecurityEvent records a security entry before the handler runs, regardless of outcome.
func (a *Auditor) AuditSecurityEvent(event, severity string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a.RecordSecurityEvent(c, event, severity, nil)
		return c.Next()
	}
}

// RecordSecurityEvent records a security entry for the current request.
func (a *Auditor) RecordSecurityEvent(c *fiber.Ctx, event, severity string, details map[string]interface{}) {
	a.guard(func() {
		payload := map[string]interface{}{
			"method": c.Method(),
			"path":   strings.Clone(c.Path()),
		}
		for key, value := range details {
			payload[key] = value
		}
		if actor, ok := ActorFromContext(c); ok {
			payload["actor"] = service.PrincipalKey(actor)
		}
		meta := requestMeta(c)
		a.sink.Record(service.SecurityEntry(event, severity, payload, &meta))
	})
}

// AuditAuth records login and logout attempts, successful or not. LOGOUT and
// LOGOUT_ALL are always recorded as successful with no failure reason.
func (a *Auditor) AuditAuth(action string, opts ...AuditOptions) fiber.Handler {
	action = strings.ToUpper(strings.TrimSpace(action))
	o := firstOptions(opts)

	return func(c *fiber.Ctx) error {
		err := c.Next()

		a.guard(func() {
			snap := captureSnapshot(c, err)
			if o.Skip != nil && o.Skip(snap) {
				return
			}

			success := snap.Succeeded()
			reason := ""
			if !success {
				reason = responseMessage(snap)
			}
			if action == models.AuditActionLogout || action == models.AuditActionLogoutAll {
				success = true
				reason = ""
			}

			actor, identifier := authIdentity(snap, success)
			a.sink.Record(service.AuthEntry(service.AuthEvent{
				Actor:      actor,
				Action:     action,
				Identifier: identifier,
				Success:    success,
				Reason:     reason,
				Request:    &snap.Request,
			}))
		})

		return err
	}
}

func (a *Auditor) intercept(opts AuditOptions, params []string, build entryBuilder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		a.guard(func() {
			snap := captureSnapshot(c, err)
			if !snap.Succeeded() {
				return
			}
			if opts.Skip != nil && opts.Skip(snap) {
				return
			}
			for _, input := range build(snap, deriveEvent(snap, opts, params)) {
				a.sink.Record(input)
			}
		})

		return err
	}
}

// guard keeps audit failures away from the response.
func (a *Auditor) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Msg("audit entry could not be recorded")
		}
	}()
	fn()
}

func deriveEvent(snap AuditSnapshot, opts AuditOptions, params []string) service.AuditEvent {
	event := service.AuditEvent{
		Actor:   snap.Actor,
		Action:  strings.ToUpper(strings.TrimSpace(opts.Action)),
		Table:   strings.TrimSpace(opts.Table),
		Request: &snap.Request,
	}
	if event.Action == "" {
		event.Action = actionFromMethod(snap.Method)
	}
	if event.Table == "" {
		event.Table = lastPathSegment(snap.Path)
	}

	if opts.TargetID != nil {
		event.TargetID = opts.TargetID(snap)
	} else {
		event.TargetID = targetIDFromSnapshot(snap, params)
	}

	if opts.OldValues != nil {
		event.OldValues = opts.OldValues(snap)
	} else {
		event.OldValues = snap.OldValues
	}

	if opts.NewValues != nil {
		event.NewValues = opts.NewValues(snap)
	} else if event.Action == models.AuditActionCreate || event.Action == models.AuditActionUpdate {
		if len(snap.Body) > 0 {
			event.NewValues = snap.Body
		}
	}

	if opts.Description != nil {
		event.Description = opts.Description(snap)
	}

	return event
}

func captureSnapshot(c *fiber.Ctx, handlerErr error) AuditSnapshot {
	snap := AuditSnapshot{
		Method:    strings.Clone(c.Method()),
		Path:      strings.Clone(c.Path()),
		Params:    make(map[string]string),
		Status:    c.Response().StatusCode(),
		Request:   requestMeta(c),
		OldValues: c.Locals(oldValuesLocalsKey),
		Err:       handlerErr,
	}

	for key, value := range c.AllParams() {
		snap.Params[strings.Clone(key)] = strings.Clone(value)
	}

	if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		if form, err := c.MultipartForm(); err == nil {
			snap.Files = filesFromForm(form)
			snap.Body = redactBody(formValues(form))
		}
	} else if body := c.Body(); len(body) > 0 {
		var parsed map[string]interface{}
		if err := json.Unmarshal(body, &parsed); err == nil {
			snap.Body = redactBody(parsed)
		}
	}

	if body := c.Response().Body(); len(body) > 0 {
		var parsed map[string]interface{}
		if err := json.Unmarshal(body, &parsed); err == nil {
			snap.Response = parsed
		}
	}

	snap.Actor, snap.HasActor = ActorFromContext(c)
	return snap
}

func requestMeta(c *fiber.Ctx) service.RequestMeta {
	meta := service.RequestMeta{
		IP:        strings.Clone(c.IP()),
		UserAgent: strings.Clone(c.Get(fiber.HeaderUserAgent)),
	}
	if addr := c.Context().RemoteAddr(); addr != nil {
		meta.RemoteAddr = addr.String()
	}
	return meta
}

func filesFromForm(form *multipart.Form) []service.FileInfo {
	files := make([]service.FileInfo, 0)
	for _, headers := range form.File {
		for _, header := range headers {
			files = append(files, service.FileInfo{
				Name:     header.Filename,
				Size:     header.Size,
				MimeType: header.Header.Get(fiber.HeaderContentType),
			})
		}
	}
	return files
}

func formValues(form *multipart.Form) map[string]interface{} {
	values := make(map[string]interface{}, len(form.Value))
	for key, items := range form.Value {
		if len(items) == 1 {
			values[key] = items[0]
			continue
		}
		values[key] = append([]string(nil), items...)
	}
	return values
}

func redactBody(body map[string]interface{}) map[string]interface{} {
	for key := range body {
		if _, ok := redactedBodyFields[strings.ToLower(key)]; ok {
			delete(body, key)
		}
	}
	return body
}

func actionFromMethod(method string) string {
	switch strings.ToUpper(method) {
	case fiber.MethodPost:
		return models.AuditActionCreate
	case fiber.MethodPut, fiber.MethodPatch:
		return models.AuditActionUpdate
	case fiber.MethodDelete:
		return models.AuditActionDelete
	case fiber.MethodGet:
		return models.AuditActionRead
	default:
		return strings.ToUpper(method)
	}
}

func lastPathSegment(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segment := strings.TrimSpace(segments[i]); segment != "" {
			return segment
		}
	}
	return "unknown"
}

func targetIDFromSnapshot(snap AuditSnapshot, params []string) *uint {
	for _, name := range params {
		if id, ok := parseID(snap.Params[name]); ok {
			return &id
		}
	}
	if data := snap.ResponseData(); data != nil {
		if id, ok := parseID(data["id"]); ok {
			return &id
		}
	}
	return nil
}

func parseID(value interface{}) (uint, bool) {
	switch v := value.(type) {
	case float64:
		if v <= 0 || v != float64(uint(v)) {
			return 0, false
		}
		return uint(v), true
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil || parsed == 0 {
			return 0, false
		}
		return uint(parsed), true
	default:
		return 0, false
	}
}

func targetSuffix(id *uint) string {
	if id == nil {
		return ""
	}
	return fmt.Sprintf("(ID: %d)", *id)
}

// authIdentity resolves who attempted an auth action. A successful login names the
// user returned in the response; otherwise the bound actor or the submitted identifier.
func authIdentity(snap AuditSnapshot, success bool) (service.Actor, string) {
	if success {
		if user, ok := snap.ResponseData()["user"].(map[string]interface{}); ok {
			actor := actorFromUser(user)
			return actor, ""
		}
	}
	if snap.HasActor {
		return snap.Actor, ""
	}

	if number, ok := snap.Body["student_number"].(string); ok && strings.TrimSpace(number) != "" {
		return service.Actor{Kind: service.ActorStudent}, strings.TrimSpace(number)
	}
	email, _ := snap.Body["email"].(string)
	return service.Actor{Kind: service.ActorAdmin}, strings.TrimSpace(email)
}

func actorFromUser(user map[string]interface{}) service.Actor {
	actor := service.Actor{}
	actor.Email, _ = user["email"].(string)
	actor.StudentNumber, _ = user["student_number"].(string)
	actor.Position, _ = user["position"].(string)

	role, _ := user["role"].(string)
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(service.ActorStudent):
		actor.Kind = service.ActorStudent
	case string(service.ActorAdmin):
		actor.Kind = service.ActorAdmin
	default:
		if actor.StudentNumber != "" {
			actor.Kind = service.ActorStudent
		} else {
			actor.Kind = service.ActorAdmin
		}
	}

	for _, key := range []string{"id", "admin_id", "student_id"} {
		if id, ok := parseID(user[key]); ok {
			actor.ID = &id
			break
		}
	}
	return actor
}

func responseMessage(snap AuditSnapshot) string {
	if message, ok := snap.Response["message"].(string); ok && message != "" {
		return message
	}
	if snap.Err != nil {
		return snap.Err.Error()
	}
	return fmt.Sprintf("HTTP %d", snap.Status)
}

func firstOptions(opts []AuditOptions) AuditOptions {
	if len(opts) == 0 {
		return AuditOptions{}
	}
	return opts[0]
}

func single(build func(service.AuditEvent) service.LogActionInput) entryBuilder {
	return func(_ AuditSnapshot, event service.AuditEvent) []service.LogActionInput {
		return []service.LogActionInput{build(event)}
	}
}

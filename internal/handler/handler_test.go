package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nutri_chat_server/internal/dto/request"
	"nutri_chat_server/internal/dto/respond"
	"nutri_chat_server/internal/infrastructure/middleware"
	"nutri_chat_server/internal/model"
	"nutri_chat_server/internal/service"
	"nutri_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConversations struct {
	service.ConversationService
	created request.CreateConversationRequest
	err     error
}

func (s *stubConversations) CreateConversation(_ context.Context, op request.Operator, req request.CreateConversationRequest) (*respond.ConversationRespond, error) {
	s.created = req
	if s.err != nil {
		return nil, s.err
	}
	return &respond.ConversationRespond{ConversationId: "C1", SubjectUserId: op.UserId, Topic: req.Topic}, nil
}

type stubAssignments struct {
	service.AssignmentService
	err error
}

func (s *stubAssignments) Accept(_ context.Context, op request.Operator, conversationId string) (*respond.ConversationRespond, error) {
	return nil, s.err
}

func (s *stubAssignments) AcceptIfUnassigned(context.Context, string, string) (*model.Conversation, error) {
	return nil, s.err
}

type stubMessages struct {
	service.MessageService
	listed request.GetMessageListRequest
}

func (s *stubMessages) GetMessageList(_ context.Context, _ request.Operator, req request.GetMessageListRequest) (*respond.MessageListRespond, error) {
	s.listed = req
	return &respond.MessageListRespond{Messages: []respond.MessageRespond{}}, nil
}

type stubGateway struct{ count int }

func (g *stubGateway) ServeWS(http.ResponseWriter, *http.Request, string, string) error { return nil }
func (g *stubGateway) ConnectionCount() int                                             { return g.count }

type envelope struct {
	Code int             `json:"code"`
	Msg  json.RawMessage `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func newEngine(userId, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserIdKey, userId)
		c.Set(middleware.ContextRoleKey, role)
	})
	return engine
}

func do(t *testing.T, engine *gin.Engine, method, target, body string) envelope {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestCreatePassesOperatorAndTopic(t *testing.T) {
	convs := &stubConversations{}
	h := NewConversationHandler(convs, &stubAssignments{})
	engine := newEngine("U1", "user")
	engine.POST("/conversation/create", h.Create)

	env := do(t, engine, http.MethodPost, "/conversation/create", `{"topic":"减脂"}`)
	assert.Equal(t, errorx.CodeSuccess, env.Code)
	assert.Equal(t, "减脂", convs.created.Topic)

	var data respond.ConversationRespond
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "U1", data.SubjectUserId)
}

func TestCreateRejectsMissingTopic(t *testing.T) {
	require.NoError(t, InitTrans("en"))
	h := NewConversationHandler(&stubConversations{}, &stubAssignments{})
	engine := newEngine("U1", "user")
	engine.POST("/conversation/create", h.Create)

	env := do(t, engine, http.MethodPost, "/conversation/create", `{}`)
	assert.Equal(t, errorx.CodeInvalidParam, env.Code)
	assert.Contains(t, string(env.Msg), "topic")
}

func TestBusinessErrorCarriesData(t *testing.T) {
	dup := errorx.New(errorx.CodeDuplicateTopic, "已存在同主题会话").WithData(map[string]string{"conversation_id": "C9"})
	h := NewConversationHandler(&stubConversations{err: dup}, &stubAssignments{})
	engine := newEngine("U1", "user")
	engine.POST("/conversation/create", h.Create)

	env := do(t, engine, http.MethodPost, "/conversation/create", `{"topic":"减脂"}`)
	assert.Equal(t, errorx.CodeDuplicateTopic, env.Code)
	assert.JSONEq(t, `{"conversation_id":"C9"}`, string(env.Data))
}

func TestUnknownErrorBecomesServerBusy(t *testing.T) {
	h := NewConversationHandler(&stubConversations{}, &stubAssignments{err: errors.New("boom")})
	engine := newEngine("A1", "agent")
	engine.POST("/conversation/accept", h.Accept)

	env := do(t, engine, http.MethodPost, "/conversation/accept", `{"conversation_id":"C1"}`)
	assert.Equal(t, errorx.CodeServerBusy, env.Code)
}

func TestMessageListBindsQuery(t *testing.T) {
	msgs := &stubMessages{}
	h := NewMessageHandler(msgs)
	engine := newEngine("U1", "user")
	engine.GET("/message/list", h.List)

	env := do(t, engine, http.MethodGet, "/message/list?conversation_id=C1&cursor=7&limit=20", "")
	assert.Equal(t, errorx.CodeSuccess, env.Code)
	assert.Equal(t, "C1", msgs.listed.ConversationId)
	assert.EqualValues(t, 7, msgs.listed.Cursor)
	assert.Equal(t, 20, msgs.listed.Limit)

	env = do(t, engine, http.MethodGet, "/message/list?conversation_id=C1&limit=999", "")
	assert.Equal(t, errorx.CodeInvalidParam, env.Code)
}

func TestHealthReportsDegradedDependency(t *testing.T) {
	h := NewHealthHandler(&stubGateway{count: 3},
		HealthCheck{Name: "mysql", Ping: func(context.Context) error { return nil }},
		HealthCheck{Name: "redis", Ping: func(context.Context) error { return errors.New("refused") }},
	)
	engine := newEngine("", "")
	engine.GET("/health", h.Health)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.EqualValues(t, 3, body["connections"])
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "ok", deps["mysql"])
	assert.Equal(t, "refused", deps["redis"])
}

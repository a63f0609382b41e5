package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"roomcast/internal/broker"
	"roomcast/internal/handler"
	"roomcast/internal/journal"
	"roomcast/internal/repository"
	"roomcast/internal/service"
	"roomcast/internal/subscription"
	"roomcast/internal/testutil"
	"roomcast/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RoomHandlerIntegrationTestSuite defines test suite
type RoomHandlerIntegrationTestSuite struct {
	suite.Suite
	testDB *testutil.TestDatabase
	router *gin.Engine
}

// SetupSuite runs before all tests
func (s *RoomHandlerIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	logger.Init(false)

	s.testDB = testutil.SetupTestDatabase(s.T())

	roomRepo := repository.NewRoomRepository(s.testDB.DB)
	messageRepo := repository.NewMessageRepository(s.testDB.DB)
	roomBroker := broker.NewMemoryRoomBroker()

	sendJournal, err := journal.New(s.T().TempDir() + "/send_journal.log")
	assert.NoError(s.T(), err)

	roomService := service.NewRoomService(roomRepo, messageRepo, roomBroker)
	messageService := service.NewMessageService(messageRepo, roomBroker, sendJournal)

	subManager, err := subscription.NewManager(messageRepo, roomBroker)
	assert.NoError(s.T(), err)

	roomHandler := handler.NewRoomHandler(roomService)
	messageHandler := handler.NewMessageHandler(roomService, messageService)
	wsHandler := handler.NewWebSocketHandler(roomService, messageService, subManager, 5*time.Second)

	s.router = gin.New()
	api := s.router.Group("/api")
	api.POST("/rooms", roomHandler.Create)
	api.GET("/rooms/:code", roomHandler.GetActive)
	api.DELETE("/rooms/:code", roomHandler.Delete)
	api.POST("/rooms/:code/messages", messageHandler.Send)
	api.GET("/rooms/:code/messages", messageHandler.Snapshot)
	api.GET("/rooms/:code/ws", wsHandler.HandleWebSocket)
}

// TearDownSuite runs after all tests
func (s *RoomHandlerIntegrationTestSuite) TearDownSuite() {
	s.testDB.Teardown(s.T())
}

// SetupTest runs before each test (clean database)
func (s *RoomHandlerIntegrationTestSuite) SetupTest() {
	testutil.CleanDatabase(s.T(), s.testDB.DB)
}

func (s *RoomHandlerIntegrationTestSuite) postJSON(path string, body interface{}) *httptest.ResponseRecorder {
	bodyBytes, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RoomHandlerIntegrationTestSuite) do(method, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RoomHandlerIntegrationTestSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(s.T(), err)
	return response
}

func (s *RoomHandlerIntegrationTestSuite) TestCreateRoomSuccess() {
	w := s.postJSON("/api/rooms", map[string]string{
		"code":       "R1AB22",
		"created_by": "Ms. Lee",
	})

	assert.Equal(s.T(), http.StatusCreated, w.Code)

	response := s.decode(w)
	room := response["room"].(map[string]interface{})
	assert.Equal(s.T(), "R1AB22", room["code"])
	assert.Equal(s.T(), "Ms. Lee", room["created_by"])
	assert.Equal(s.T(), true, room["active"])
}

func (s *RoomHandlerIntegrationTestSuite) TestCreateRoomConflict() {
	w := s.postJSON("/api/rooms", map[string]string{"code": "R1AB22", "created_by": "Ms. Lee"})
	assert.Equal(s.T(), http.StatusCreated, w.Code)

	w = s.postJSON("/api/rooms", map[string]string{"code": "r1ab22", "created_by": "Eve"})
	assert.Equal(s.T(), http.StatusConflict, w.Code)
}

func (s *RoomHandlerIntegrationTestSuite) TestCreateRoomValidation() {
	// Missing fields
	w := s.postJSON("/api/rooms", map[string]string{"code": "R1AB22"})
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	// Malformed code
	w = s.postJSON("/api/rooms", map[string]string{"code": "no spaces!", "created_by": "Ms. Lee"})
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *RoomHandlerIntegrationTestSuite) TestActiveCheckHidesHistory() {
	// Unknown code
	w := s.do(http.MethodGet, "/api/rooms/NOSUCH")
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), false, s.decode(w)["active"])

	// Deleted room answers exactly the same way
	s.postJSON("/api/rooms", map[string]string{"code": "R1AB22", "created_by": "Ms. Lee"})
	s.do(http.MethodDelete, "/api/rooms/R1AB22")

	w = s.do(http.MethodGet, "/api/rooms/R1AB22")
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), false, s.decode(w)["active"])
}

func (s *RoomHandlerIntegrationTestSuite) TestSendRejectsEmptyContent() {
	s.postJSON("/api/rooms", map[string]string{"code": "R1AB22", "created_by": "Ms. Lee"})

	w := s.postJSON("/api/rooms/R1AB22/messages", map[string]string{
		"author":  "Bob",
		"content": "   ",
		"role":    "member",
	})
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *RoomHandlerIntegrationTestSuite) TestSendToUnknownRoom() {
	w := s.postJSON("/api/rooms/NOSUCH/messages", map[string]string{
		"author":  "Bob",
		"content": "hi",
		"role":    "member",
	})
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *RoomHandlerIntegrationTestSuite) TestDeleteUnknownRoom() {
	w := s.do(http.MethodDelete, "/api/rooms/NOSUCH")
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

// TestRoomLifecycleScenario walks the full journey: create, check, two
// sends, snapshot order, delete, empty snapshot, inactive check.
func (s *RoomHandlerIntegrationTestSuite) TestRoomLifecycleScenario() {
	// Create. Short typed-in codes are fine; only generated ones are 6 chars.
	w := s.postJSON("/api/rooms", map[string]string{"code": "R1", "created_by": "Ms. Lee"})
	require.Equal(s.T(), http.StatusCreated, w.Code)

	// Active
	w = s.do(http.MethodGet, "/api/rooms/R1")
	assert.Equal(s.T(), true, s.decode(w)["active"])

	// Two sends
	w = s.postJSON("/api/rooms/R1/messages", map[string]string{
		"author": "Bob", "content": "hi", "role": "member",
	})
	require.Equal(s.T(), http.StatusCreated, w.Code)

	w = s.postJSON("/api/rooms/R1/messages", map[string]string{
		"author": "Ms. Lee", "content": "hello", "role": "leader",
	})
	require.Equal(s.T(), http.StatusCreated, w.Code)

	// Snapshot lists them in send order
	w = s.do(http.MethodGet, "/api/rooms/R1/messages")
	require.Equal(s.T(), http.StatusOK, w.Code)
	response := s.decode(w)
	messages := response["messages"].([]interface{})
	require.Len(s.T(), messages, 2)

	first := messages[0].(map[string]interface{})
	second := messages[1].(map[string]interface{})
	assert.Equal(s.T(), "hi", first["content"])
	assert.Equal(s.T(), "Bob", first["author"])
	assert.Equal(s.T(), "hello", second["content"])
	assert.Equal(s.T(), "Ms. Lee", second["author"])

	// Delete cascades
	w = s.do(http.MethodDelete, "/api/rooms/R1")
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), float64(2), s.decode(w)["deleted_messages"])

	w = s.do(http.MethodGet, "/api/rooms/R1/messages")
	assert.Equal(s.T(), float64(0), s.decode(w)["count"])

	w = s.do(http.MethodGet, "/api/rooms/R1")
	assert.Equal(s.T(), false, s.decode(w)["active"])

	// The code is burned forever
	w = s.postJSON("/api/rooms", map[string]string{"code": "R1", "created_by": "Someone"})
	assert.Equal(s.T(), http.StatusConflict, w.Code)
}

func (s *RoomHandlerIntegrationTestSuite) TestWebSocketRejectsInactiveRoom() {
	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/api/rooms/%s/ws?name=Bob&role=member", "NOSUCH"), nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func TestRoomHandlerIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(RoomHandlerIntegrationTestSuite))
}

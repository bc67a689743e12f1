package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gopkg.in/DATA-DOG/go-sqlmock.v1"
	"gorm.io/gorm"

	"slopcel/constants"
	"slopcel/custom/hof"
	"slopcel/custom/util"
)

const selectOrderByIdSQL = `SELECT \* FROM \"orders\" WHERE id = .+`
const selectProjectByIdSQL = `SELECT \* FROM \"projects\" WHERE id = .+`
const updateOrderSQL = `UPDATE \"orders\" SET .+`
const selectPositionsSQL = `SELECT \"hall_of_fame_position\" FROM \"orders\" WHERE hall_of_fame_position BETWEEN .+`
const updatePositionSQL = `UPDATE \"orders\" SET \"hall_of_fame_position\"=.+`
const selectUsersSQL = `SELECT profiles.id, profiles.email, profiles.full_name, COUNT\(orders.id\) AS order_count FROM \"profiles\" LEFT JOIN orders ON orders.user_id = profiles.id`

var orderColumns = []string{
	"id", "provider", "provider_session_id", "provider_payment_id",
	"amount", "tier", "status", "user_id", "payer_email", "hall_of_fame_position",
}

func testRouter(db *gorm.DB) (*gin.Engine, *HandlerContext) {
	gin.SetMode(gin.TestMode)
	ctx := HandlerContext{}
	ctx.InitialHandlerContext(db, hof.NewAllocator(db))
	return gin.New(), &ctx
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// Forcing a stuck pending order to completed also assigns its position.
func TestUpdateOrderStatusForcesCompletion(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	router, ctx := testRouter(gormDB)
	router.PATCH("/api/admin/orders/:id/status", ctx.UpdateOrderStatus)

	mock.ExpectQuery(selectOrderByIdSQL).WillReturnRows(
		sqlmock.NewRows(orderColumns).AddRow(
			"order-1", "paypal", "ord_1", nil,
			int64(30000), "premium", "pending", "user-1", nil, nil,
		))
	mock.ExpectBegin()
	mock.ExpectExec(updateOrderSQL).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(selectPositionsSQL).WillReturnRows(
		sqlmock.NewRows([]string{"hall_of_fame_position"}))
	mock.ExpectExec(updatePositionSQL).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doJSON(router, http.MethodPatch, "/api/admin/orders/order-1/status",
		gin.H{"status": "completed"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, mock.ExpectationsWereMet())
	assert.Contains(t, w.Body.String(), constants.ORDER_STATUS_COMPLETED)
	assert.Contains(t, w.Body.String(), `"hall_of_fame_position":1`)
}

func TestUpdateOrderStatusRejectsOtherTransitions(t *testing.T) {
	sqlDB, gormDB, _ := util.DbMock(t)
	defer sqlDB.Close()
	router, ctx := testRouter(gormDB)
	router.PATCH("/api/admin/orders/:id/status", ctx.UpdateOrderStatus)

	w := doJSON(router, http.MethodPatch, "/api/admin/orders/order-1/status",
		gin.H{"status": "failed"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateOrderStatusRejectsNonPendingOrder(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	router, ctx := testRouter(gormDB)
	router.PATCH("/api/admin/orders/:id/status", ctx.UpdateOrderStatus)

	mock.ExpectQuery(selectOrderByIdSQL).WillReturnRows(
		sqlmock.NewRows(orderColumns).AddRow(
			"order-1", "stripe", "cs_1", "pi_1",
			int64(15000), "standard", "completed", "user-1", nil, 4,
		))

	w := doJSON(router, http.MethodPatch, "/api/admin/orders/order-1/status",
		gin.H{"status": "completed"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestAssignProject(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	router, ctx := testRouter(gormDB)
	router.POST("/api/admin/orders/:id/project", ctx.AssignProject)

	mock.ExpectQuery(selectProjectByIdSQL).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "is_published"}).
			AddRow("project-1", "slopcel.com", true))
	mock.ExpectQuery(selectOrderByIdSQL).WillReturnRows(
		sqlmock.NewRows(orderColumns).AddRow(
			"order-1", "stripe", "cs_1", "pi_1",
			int64(15000), "standard", "completed", "user-1", nil, 4,
		))
	mock.ExpectBegin()
	mock.ExpectExec(updateOrderSQL).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doJSON(router, http.MethodPost, "/api/admin/orders/order-1/project",
		gin.H{"project_id": "project-1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, mock.ExpectationsWereMet())
	assert.Contains(t, w.Body.String(), "slopcel.com")
}

func TestAssignProjectUnknownProject(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	router, ctx := testRouter(gormDB)
	router.POST("/api/admin/orders/:id/project", ctx.AssignProject)

	mock.ExpectQuery(selectProjectByIdSQL).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := doJSON(router, http.MethodPost, "/api/admin/orders/order-1/project",
		gin.H{"project_id": "nope"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestListOrdersByStatus(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	router, ctx := testRouter(gormDB)
	router.GET("/api/admin/orders", ctx.ListOrders)

	mock.ExpectQuery(`SELECT \* FROM \"orders\" WHERE status = .+`).WillReturnRows(
		sqlmock.NewRows(orderColumns).AddRow(
			"order-1", "dodo", "pay_1", "pay_1",
			int64(7500), "hall_of_fame", "pending", nil, nil, nil,
		))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders?status=pending", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, mock.ExpectationsWereMet())
	assert.Contains(t, w.Body.String(), "order-1")
}

func TestListUsers(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	router, ctx := testRouter(gormDB)
	router.GET("/api/admin/users", ctx.ListUsers)

	mock.ExpectQuery(selectUsersSQL).WillReturnRows(
		sqlmock.NewRows([]string{"id", "email", "full_name", "order_count"}).
			AddRow("user-1", "a@test.com", "Alice", 2).
			AddRow("user-2", "b@test.com", nil, 0))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, mock.ExpectationsWereMet())
	rows := []UserRow{}
	assert.Nil(t, json.Unmarshal(w.Body.Bytes(), &rows))
	assert.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[0].OrderCount)
}

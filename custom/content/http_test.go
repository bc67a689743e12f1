package content

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

	"slopcel/custom/util"
	"slopcel/model"
)

func testRouter(db *gorm.DB) (*gin.Engine, *HandlerContext) {
	gin.SetMode(gin.TestMode)
	ctx := HandlerContext{}
	ctx.InitialHandlerContext(db)
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

// Public list hides unpublished projects at the query level.
func TestListProjectsPublishedOnly(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	router, ctx := testRouter(gormDB)
	router.GET("/api/projects", ctx.ListProjects)

	mock.ExpectQuery(`SELECT \* FROM \"projects\" WHERE is_published = .+`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "is_published"}).
			AddRow("project-1", "slopcel.com", true))

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, mock.ExpectationsWereMet())
	assert.Contains(t, w.Body.String(), "slopcel.com")
}

func TestGetBlogPostBySlug(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	router, ctx := testRouter(gormDB)
	router.GET("/api/blog/:slug", ctx.GetBlogPost)

	mock.ExpectQuery(`SELECT \* FROM \"blog_posts\" WHERE slug = .+ AND is_published = .+`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "title", "slug", "body", "is_published"}).
			AddRow("post-1", "Launch", "launch", "We are live.", true))

	req := httptest.NewRequest(http.MethodGet, "/api/blog/launch", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, mock.ExpectationsWereMet())
	assert.Contains(t, w.Body.String(), "We are live.")
}

func TestGetBlogPostUnknownSlug(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	router, ctx := testRouter(gormDB)
	router.GET("/api/blog/:slug", ctx.GetBlogPost)

	mock.ExpectQuery(`SELECT \* FROM \"blog_posts\"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req := httptest.NewRequest(http.MethodGet, "/api/blog/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateProject(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	router, ctx := testRouter(gormDB)
	router.POST("/api/admin/projects", ctx.CreateProject)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO \"projects\" .+`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doJSON(router, http.MethodPost, "/api/admin/projects",
		gin.H{"name": "slopcel.com", "is_published": true})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, mock.ExpectationsWereMet())
	project := model.Project{}
	assert.Nil(t, json.Unmarshal(w.Body.Bytes(), &project))
	assert.Equal(t, "slopcel.com", project.Name)
	assert.NotEmpty(t, project.ID)
}

func TestCreateProjectRequiresName(t *testing.T) {
	sqlDB, gormDB, _ := util.DbMock(t)
	defer sqlDB.Close()
	router, ctx := testRouter(gormDB)
	router.POST("/api/admin/projects", ctx.CreateProject)

	w := doJSON(router, http.MethodPost, "/api/admin/projects", gin.H{"is_published": true})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateBlogPost(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	router, ctx := testRouter(gormDB)
	router.PUT("/api/admin/blog/:id", ctx.UpdateBlogPost)

	mock.ExpectQuery(`SELECT \* FROM \"blog_posts\" WHERE id = .+`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "title", "slug", "body", "is_published"}).
			AddRow("post-1", "Draft", "draft", "wip", false))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE \"blog_posts\" SET .+`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doJSON(router, http.MethodPut, "/api/admin/blog/post-1",
		gin.H{"title": "Launch", "slug": "launch", "body": "We are live.", "is_published": true})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, mock.ExpectationsWereMet())
	assert.Contains(t, w.Body.String(), "launch")
}

func TestListIdeaCategories(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	router, ctx := testRouter(gormDB)
	router.GET("/api/idea-categories", ctx.ListIdeaCategories)

	mock.ExpectQuery(`SELECT \* FROM \"idea_categories\"`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).
			AddRow("cat-1", "AI Slop").
			AddRow("cat-2", "E-commerce"))

	req := httptest.NewRequest(http.MethodGet, "/api/idea-categories", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, mock.ExpectationsWereMet())
	assert.Contains(t, w.Body.String(), "AI Slop")
}

func TestCreateIdeaCategory(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	router, ctx := testRouter(gormDB)
	router.POST("/api/admin/idea-categories", ctx.CreateIdeaCategory)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO \"idea_categories\" .+`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doJSON(router, http.MethodPost, "/api/admin/idea-categories", gin.H{"name": "AI Slop"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, mock.ExpectationsWereMet())
	category := model.IdeaCategory{}
	assert.Nil(t, json.Unmarshal(w.Body.Bytes(), &category))
	assert.Equal(t, "AI Slop", category.Name)
	assert.NotEmpty(t, category.ID)
}

func TestCreateIdeaCategoryRequiresName(t *testing.T) {
	sqlDB, gormDB, _ := util.DbMock(t)
	defer sqlDB.Close()
	router, ctx := testRouter(gormDB)
	router.POST("/api/admin/idea-categories", ctx.CreateIdeaCategory)

	w := doJSON(router, http.MethodPost, "/api/admin/idea-categories", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteIdeaNotFound(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	router, ctx := testRouter(gormDB)
	router.DELETE("/api/admin/ideas/:id", ctx.DeleteIdea)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM \"ideas\" WHERE id = .+`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/ideas/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Nil(t, mock.ExpectationsWereMet())
}

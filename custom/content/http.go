package content

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/romana/rlog"
	"gorm.io/gorm"

	"slopcel/model"
)

// HandlerContext serves the public project/idea/blog reads and their admin
// CRUD counterparts.
type HandlerContext struct {
	db *gorm.DB
}

type ProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Url         *string `json:"url"`
	IsPublished bool    `json:"is_published"`
}

type IdeaCategoryRequest struct {
	Name string `json:"name"`
}

type IdeaRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	CategoryId  *string `json:"category_id"`
}

type BlogPostRequest struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Body        string `json:"body"`
	IsPublished bool   `json:"is_published"`
}

func (ctx *HandlerContext) InitialHandlerContext(db *gorm.DB) {
	ctx.db = db
}

// ListProjects is the public project list: published entries only.
func (ctx *HandlerContext) ListProjects(c *gin.Context) {
	projects := make([]model.Project, 0)
	errDb := ctx.db.Where("is_published = ?", true).Order("created_at DESC").Find(&projects).Error
	if errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "project lookup failed"})
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (ctx *HandlerContext) ListIdeas(c *gin.Context) {
	ideas := make([]model.Idea, 0)
	query := ctx.db.Order("created_at DESC")
	if categoryId := c.Query("category_id"); categoryId != "" {
		query = query.Where("category_id = ?", categoryId)
	}
	if errDb := query.Find(&ideas).Error; errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idea lookup failed"})
		return
	}
	c.JSON(http.StatusOK, ideas)
}

// ListIdeaCategories backs the category filter on the public idea list.
func (ctx *HandlerContext) ListIdeaCategories(c *gin.Context) {
	categories := make([]model.IdeaCategory, 0)
	if errDb := ctx.db.Order("name").Find(&categories).Error; errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "category lookup failed"})
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (ctx *HandlerContext) ListBlogPosts(c *gin.Context) {
	posts := make([]model.BlogPost, 0)
	errDb := ctx.db.Where("is_published = ?", true).Order("created_at DESC").Find(&posts).Error
	if errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "blog lookup failed"})
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (ctx *HandlerContext) GetBlogPost(c *gin.Context) {
	post := model.BlogPost{}
	errDb := ctx.db.Where("slug = ? AND is_published = ?", c.Param("slug"), true).First(&post).Error
	if errDb != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	c.JSON(http.StatusOK, post)
}

// Admin CRUD below. All routes are behind the admin allowlist; unpublished
// rows are visible here.

func (ctx *HandlerContext) AdminListProjects(c *gin.Context) {
	projects := make([]model.Project, 0)
	if errDb := ctx.db.Order("created_at DESC").Find(&projects).Error; errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "project lookup failed"})
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (ctx *HandlerContext) CreateProject(c *gin.Context) {
	req := ProjectRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	project := model.Project{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Url:         req.Url,
		IsPublished: req.IsPublished,
	}
	if errDb := ctx.db.Create(&project).Error; errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "project save failed"})
		return
	}
	c.JSON(http.StatusOK, project)
}

func (ctx *HandlerContext) UpdateProject(c *gin.Context) {
	req := ProjectRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project := model.Project{}
	if errDb := ctx.db.Where("id = ?", c.Param("id")).First(&project).Error; errDb != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	updates := map[string]interface{}{
		"name":         req.Name,
		"description":  req.Description,
		"url":          req.Url,
		"is_published": req.IsPublished,
	}
	if errDb := ctx.db.Model(&model.Project{}).Where("id = ?", project.ID).Updates(updates).Error; errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "project save failed"})
		return
	}
	project.Name = req.Name
	project.Description = req.Description
	project.Url = req.Url
	project.IsPublished = req.IsPublished
	c.JSON(http.StatusOK, project)
}

func (ctx *HandlerContext) DeleteProject(c *gin.Context) {
	result := ctx.db.Where("id = ?", c.Param("id")).Delete(&model.Project{})
	if result.Error != nil {
		rlog.Error(result.Error.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "project delete failed"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (ctx *HandlerContext) CreateIdea(c *gin.Context) {
	req := IdeaRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	idea := model.Idea{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		CategoryId:  req.CategoryId,
	}
	if errDb := ctx.db.Create(&idea).Error; errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idea save failed"})
		return
	}
	c.JSON(http.StatusOK, idea)
}

func (ctx *HandlerContext) UpdateIdea(c *gin.Context) {
	req := IdeaRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	idea := model.Idea{}
	if errDb := ctx.db.Where("id = ?", c.Param("id")).First(&idea).Error; errDb != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "idea not found"})
		return
	}

	updates := map[string]interface{}{
		"title":       req.Title,
		"description": req.Description,
		"category_id": req.CategoryId,
	}
	if errDb := ctx.db.Model(&model.Idea{}).Where("id = ?", idea.ID).Updates(updates).Error; errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idea save failed"})
		return
	}
	idea.Title = req.Title
	idea.Description = req.Description
	idea.CategoryId = req.CategoryId
	c.JSON(http.StatusOK, idea)
}

func (ctx *HandlerContext) DeleteIdea(c *gin.Context) {
	result := ctx.db.Where("id = ?", c.Param("id")).Delete(&model.Idea{})
	if result.Error != nil {
		rlog.Error(result.Error.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idea delete failed"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "idea not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (ctx *HandlerContext) CreateIdeaCategory(c *gin.Context) {
	req := IdeaCategoryRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	category := model.IdeaCategory{
		ID:   uuid.NewString(),
		Name: req.Name,
	}
	if errDb := ctx.db.Create(&category).Error; errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "category save failed"})
		return
	}
	c.JSON(http.StatusOK, category)
}

func (ctx *HandlerContext) DeleteIdeaCategory(c *gin.Context) {
	result := ctx.db.Where("id = ?", c.Param("id")).Delete(&model.IdeaCategory{})
	if result.Error != nil {
		rlog.Error(result.Error.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "category delete failed"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (ctx *HandlerContext) CreateBlogPost(c *gin.Context) {
	req := BlogPostRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Title == "" || req.Slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and slug are required"})
		return
	}

	post := model.BlogPost{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Slug:        req.Slug,
		Body:        req.Body,
		IsPublished: req.IsPublished,
	}
	if errDb := ctx.db.Create(&post).Error; errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "post save failed"})
		return
	}
	c.JSON(http.StatusOK, post)
}

func (ctx *HandlerContext) UpdateBlogPost(c *gin.Context) {
	req := BlogPostRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post := model.BlogPost{}
	if errDb := ctx.db.Where("id = ?", c.Param("id")).First(&post).Error; errDb != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}

	updates := map[string]interface{}{
		"title":        req.Title,
		"slug":         req.Slug,
		"body":         req.Body,
		"is_published": req.IsPublished,
	}
	if errDb := ctx.db.Model(&model.BlogPost{}).Where("id = ?", post.ID).Updates(updates).Error; errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "post save failed"})
		return
	}
	post.Title = req.Title
	post.Slug = req.Slug
	post.Body = req.Body
	post.IsPublished = req.IsPublished
	c.JSON(http.StatusOK, post)
}

func (ctx *HandlerContext) DeleteBlogPost(c *gin.Context) {
	result := ctx.db.Where("id = ?", c.Param("id")).Delete(&model.BlogPost{})
	if result.Error != nil {
		rlog.Error(result.Error.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "post delete failed"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

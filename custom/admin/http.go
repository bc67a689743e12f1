package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/romana/rlog"
	"gorm.io/gorm"

	"slopcel/constants"
	"slopcel/custom/hof"
	"slopcel/model"
)

type HandlerContext struct {
	db        *gorm.DB
	allocator *hof.Allocator
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

type AssignProjectRequest struct {
	ProjectId string `json:"project_id"`
}

// UserRow is a profile joined with its order count for the admin user list.
type UserRow struct {
	ID         string  `json:"id"`
	Email      string  `json:"email"`
	FullName   *string `json:"full_name,omitempty"`
	OrderCount int64   `json:"order_count"`
}

func (ctx *HandlerContext) InitialHandlerContext(db *gorm.DB, allocator *hof.Allocator) {
	ctx.db = db
	ctx.allocator = allocator
}

// ListOrders returns all orders, newest first, optionally filtered by status.
func (ctx *HandlerContext) ListOrders(c *gin.Context) {
	orders := make([]model.Order, 0)
	query := ctx.db.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if errDb := query.Find(&orders).Error; errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "order lookup failed"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// UpdateOrderStatus is the manual force for stuck payments. The only
// transition allowed is pending to completed; everything else stays under the
// reconciler's control.
func (ctx *HandlerContext) UpdateOrderStatus(c *gin.Context) {
	req := UpdateOrderStatusRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status != constants.ORDER_STATUS_COMPLETED {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only completion can be forced"})
		return
	}

	order := model.Order{}
	if errDb := ctx.db.Where("id = ?", c.Param("id")).First(&order).Error; errDb != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": constants.ORDER_NOT_FOUND})
		return
	}
	if order.Status != constants.ORDER_STATUS_PENDING {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order is not pending"})
		return
	}

	errDb := ctx.db.Model(&model.Order{}).Where("id = ?", order.ID).
		Update("status", constants.ORDER_STATUS_COMPLETED).Error
	if errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": constants.SAVE_ORDER_FAILED})
		return
	}
	order.Status = constants.ORDER_STATUS_COMPLETED
	rlog.Infof("Order %s force-completed by admin", order.ID)

	// Forced completion earns a slot the same way a reconciled payment does,
	// and allocation failure is just as non-fatal here.
	if order.HallOfFamePosition == nil {
		pos, errAlloc := ctx.allocator.AllocateNext(order.ID, order.Amount)
		if errAlloc != nil {
			rlog.Errorf("Position allocation failed for forced order %s: %s", order.ID, errAlloc.Error())
		} else if pos != nil {
			order.HallOfFamePosition = pos
		}
	}
	c.JSON(http.StatusOK, order)
}

// AssignProject links a built project to the order that paid for it.
func (ctx *HandlerContext) AssignProject(c *gin.Context) {
	req := AssignProjectRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ProjectId == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_id is required"})
		return
	}

	project := model.Project{}
	if errDb := ctx.db.Where("id = ?", req.ProjectId).First(&project).Error; errDb != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	order := model.Order{}
	if errDb := ctx.db.Where("id = ?", c.Param("id")).First(&order).Error; errDb != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": constants.ORDER_NOT_FOUND})
		return
	}

	errDb := ctx.db.Model(&model.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
		"project_id":   project.ID,
		"project_name": project.Name,
	}).Error
	if errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": constants.SAVE_ORDER_FAILED})
		return
	}
	order.ProjectId = &project.ID
	order.ProjectName = &project.Name
	c.JSON(http.StatusOK, order)
}

// ListUsers returns every profile with its order count.
func (ctx *HandlerContext) ListUsers(c *gin.Context) {
	users := make([]UserRow, 0)
	errDb := ctx.db.Model(&model.Profile{}).
		Select("profiles.id, profiles.email, profiles.full_name, COUNT(orders.id) AS order_count").
		Joins("LEFT JOIN orders ON orders.user_id = profiles.id").
		Group("profiles.id, profiles.email, profiles.full_name").
		Order("profiles.created_at DESC").
		Scan(&users).Error
	if errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
		return
	}
	c.JSON(http.StatusOK, users)
}

package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raizurai/userhub/internal/domain/user"
	"github.com/raizurai/userhub/internal/service"
)

type UserService interface {
	CreateUser(ctx context.Context, req user.CreateUserRequest) (user.Response, error)
	GetUser(ctx context.Context, id int64) (user.Response, error)
	GetUsers(ctx context.Context, page, pageSize int) (user.ListResponse, error)
	UpdateUser(ctx context.Context, id int64, patch user.UpdateUserRequest) (user.Response, error)
	DeleteUser(ctx context.Context, id int64) error
}

var _ UserService = (*service.UserService)(nil)

type UsersHandler struct {
	svc UserService
}

func NewUsersHandler(svc UserService) *UsersHandler {
	return &UsersHandler{svc: svc}
}

type userIDParam struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

type listUsersQuery struct {
	Page     int `form:"page,default=1" binding:"min=1"`
	PageSize int `form:"page_size,default=10" binding:"min=1,max=100"`
}

func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	resp, err := h.svc.CreateUser(ctx.Request.Context(), req)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, resp)
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	var q listUsersQuery

	if !BindQuery(ctx, &q) {
		return
	}

	resp, err := h.svc.GetUsers(ctx.Request.Context(), q.Page, q.PageSize)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

func (h *UsersHandler) GetUser(ctx *gin.Context) {
	var p userIDParam

	if !BindURI(ctx, &p) {
		return
	}

	resp, err := h.svc.GetUser(ctx.Request.Context(), p.ID)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, resp)
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	var p userIDParam

	if !BindURI(ctx, &p) {
		return
	}

	var patch user.UpdateUserRequest

	if !BindJSON(ctx, &patch) {
		return
	}

	resp, err := h.svc.UpdateUser(ctx.Request.Context(), p.ID, patch)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	var p userIDParam

	if !BindURI(ctx, &p) {
		return
	}

	if err := h.svc.DeleteUser(ctx.Request.Context(), p.ID); err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, user.MessageResponse{
		Message: fmt.Sprintf("User with ID %d deleted successfully", p.ID),
		Success: true,
	})
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledge-studio-server/internal/service"
	"knowledge-studio-server/pkg/response"
)

// SpaceHandler 知识空间请求处理器
type SpaceHandler struct {
	spaceService *service.SpaceService
}

// NewSpaceHandler 创建 SpaceHandler 实例
func NewSpaceHandler(spaceService *service.SpaceService) *SpaceHandler {
	return &SpaceHandler{
		spaceService: spaceService,
	}
}

// ListSpaces 获取知识空间列表
// @Summary 获取空间列表
// @Tags 知识空间
// @Produce json
// @Success 200 {array} service.SpaceResponse
// @Router /api/spaces [get]
func (h *SpaceHandler) ListSpaces(c *gin.Context) {
	spaces, err := h.spaceService.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, "获取空间列表失败")
		return
	}

	c.JSON(http.StatusOK, spaces)
}

// CreateSpace 创建知识空间
// @Summary 创建空间
// @Description 名称在全部空间内唯一，重复名称返回 409
// @Tags 知识空间
// @Accept json
// @Produce json
// @Param body body service.CreateSpaceRequest true "空间配置"
// @Success 201 {object} service.SpaceResponse
// @Router /api/spaces [post]
func (h *SpaceHandler) CreateSpace(c *gin.Context) {
	var req service.CreateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "无效的请求参数")
		return
	}

	space, err := h.spaceService.Create(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSpaceNameExists):
			response.SpaceNameExists(c)
		case errors.Is(err, service.ErrSpaceNameInvalid):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, "创建空间失败")
		}
		return
	}

	c.JSON(http.StatusCreated, space)
}

// UpdateSpace 更新知识空间
// @Summary 更新空间
// @Description 只应用请求中携带的字段
// @Tags 知识空间
// @Accept json
// @Produce json
// @Param space_id path string true "空间ID"
// @Param body body service.UpdateSpaceRequest true "更新内容"
// @Success 200 {object} service.SpaceResponse
// @Router /api/spaces/{space_id} [put]
func (h *SpaceHandler) UpdateSpace(c *gin.Context) {
	var req service.UpdateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "无效的请求参数")
		return
	}

	space, err := h.spaceService.Update(c.Request.Context(), c.Param("space_id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSpaceNotFound):
			response.NotFound(c, "空间不存在")
		case errors.Is(err, service.ErrSpaceNameExists):
			response.SpaceNameExists(c)
		case errors.Is(err, service.ErrSpaceNameInvalid):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, "更新空间失败")
		}
		return
	}

	c.JSON(http.StatusOK, space)
}

// DeleteSpace 删除知识空间
// @Summary 删除空间
// @Tags 知识空间
// @Produce json
// @Param space_id path string true "空间ID"
// @Success 200 {object} response.Response
// @Router /api/spaces/{space_id} [delete]
func (h *SpaceHandler) DeleteSpace(c *gin.Context) {
	err := h.spaceService.Delete(c.Request.Context(), c.Param("space_id"))
	if err != nil {
		if errors.Is(err, service.ErrSpaceNotFound) {
			response.NotFound(c, "空间不存在")
			return
		}
		response.InternalError(c, "删除空间失败")
		return
	}

	response.SuccessWithMessage(c, "空间已删除", nil)
}

package controller

import (
	"errors"
	"strconv"

	"reader_study_backend/internal/model"
	"reader_study_backend/internal/service"
	"reader_study_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CaseController struct {
	CaseService *service.CaseService
}

func NewCaseController(caseService *service.CaseService) *CaseController {
	return &CaseController{CaseService: caseService}
}

// GetCase godoc
// @Summary 读取病例
// @Description 金标准永不下发；AI 输出在完成该病例 PRE 阶段后可见
// @Tags 病例
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "病例 ID"
// @Success 200 {object} util.Response{data=service.CaseView}
// @Failure 404 {object} util.Response "病例不存在"
// @Router /api/cases/{id} [get]
func (c *CaseController) GetCase(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	caseID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid case id")
		return
	}

	view, err := c.CaseService.GetCaseForReader(claims.UserID, uint(caseID), claims.Role == model.Admin)
	if err != nil {
		if errors.Is(err, util.ErrCaseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, view)
}

// CreateCase godoc
// @Summary 创建病例
// @Tags 病例管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CaseInput true "病例信息"
// @Success 201 {object} util.Response{data=model.Case}
// @Failure 400 {object} util.Response "金标准术语不存在"
// @Router /api/admin/cases [post]
func (c *CaseController) CreateCase(ctx *gin.Context) {
	var input service.CaseInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	created, err := c.CaseService.CreateCase(&input)
	if err != nil {
		if errors.Is(err, util.ErrTermNotFound) {
			util.BadRequest(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, created)
}

// AddAIOutput godoc
// @Summary 录入 AI 排名输出
// @Tags 病例管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.AIOutputInput true "AI 输出"
// @Success 201 {object} util.Response{data=model.AIOutput}
// @Failure 400 {object} util.Response "病例或术语不存在"
// @Router /api/admin/ai-outputs [post]
func (c *CaseController) AddAIOutput(ctx *gin.Context) {
	var input service.AIOutputInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	out, err := c.CaseService.AddAIOutput(&input)
	if err != nil {
		if errors.Is(err, util.ErrCaseNotFound) || errors.Is(err, util.ErrTermNotFound) {
			util.BadRequest(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, out)
}

// UploadImage godoc
// @Summary 上传病例图片
// @Tags 病例管理
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "病例 ID"
// @Param   file formData file true "图片文件"
// @Success 201 {object} util.Response{data=model.CaseImage}
// @Failure 404 {object} util.Response "病例不存在"
// @Router /api/admin/cases/{id}/images [post]
func (c *CaseController) UploadImage(ctx *gin.Context) {
	caseID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid case id")
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	img, err := c.CaseService.UploadImage(ctx.Request.Context(), uint(caseID), file)
	if err != nil {
		if errors.Is(err, util.ErrCaseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, img)
}

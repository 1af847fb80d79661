package controller

import (
	"errors"
	"strconv"

	"reader_study_backend/internal/service"
	"reader_study_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	AssessmentService *service.AssessmentService
}

func NewAssessmentController(assessmentService *service.AssessmentService) *AssessmentController {
	return &AssessmentController{AssessmentService: assessmentService}
}

// Submit godoc
// @Summary 提交阶段评估
// @Description 按 (assignment, phase) 创建或更新；重复名次、POST 先于 PRE 均返回 400
// @Tags 评估
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.AssessmentInput true "评估内容"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 400 {object} util.Response "参数错误"
// @Failure 404 {object} util.Response "分配不存在"
// @Router /api/assessments [post]
func (c *AssessmentController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var input service.AssessmentInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AssessmentService.Submit(claims.UserID, &input)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAssignmentNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrInvalidPhase),
			errors.Is(err, util.ErrDuplicateRank),
			errors.Is(err, util.ErrPreRequired):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}

// ForAssignment godoc
// @Summary 某分配下的全部评估
// @Tags 评估
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "分配 ID"
// @Success 200 {object} util.Response{data=[]model.Assessment}
// @Failure 404 {object} util.Response "分配不存在"
// @Router /api/assessments/assignment/{id} [get]
func (c *AssessmentController) ForAssignment(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	assignmentID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid assignment id")
		return
	}

	assessments, err := c.AssessmentService.AssessmentsForAssignment(claims.UserID, uint(assignmentID))
	if err != nil {
		if errors.Is(err, util.ErrAssignmentNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, assessments)
}

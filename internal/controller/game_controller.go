package controller

import (
	"errors"
	"strconv"

	"reader_study_backend/internal/service"
	"reader_study_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GameController struct {
	GameService   *service.GameService
	ReportService *service.ReportService
}

func NewGameController(gameService *service.GameService, reportService *service.ReportService) *GameController {
	return &GameController{
		GameService:   gameService,
		ReportService: reportService,
	}
}

// StartBlock godoc
// @Summary 开启或恢复一个病例区块
// @Description 存在未完成区块时幂等返回，否则随机分配新区块；无可用病例时返回 400
// @Tags 阅读流程
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=object} "区块分配列表"
// @Failure 400 {object} util.Response "无可用病例"
// @Router /api/game/start [post]
func (c *GameController) StartBlock(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	assignments, err := c.GameService.StartBlock(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if len(assignments) == 0 {
		util.BadRequest(ctx, "No cases available for new block")
		return
	}

	util.Success(ctx, gin.H{
		"blockIndex":  assignments[0].BlockIndex,
		"assignments": assignments,
	})
}

// ActiveBlock godoc
// @Summary 当前活跃区块
// @Description 最近区块尚未完成时返回其全部分配，否则 blockIndex 为 -1
// @Tags 阅读流程
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/game/active [get]
func (c *GameController) ActiveBlock(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	block, err := c.GameService.ActiveBlock(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if len(block) == 0 {
		util.Success(ctx, gin.H{"blockIndex": -1, "assignments": []any{}, "remaining": 0})
		return
	}

	remaining := 0
	for _, a := range block {
		if a.CompletedPostAt == nil {
			remaining++
		}
	}
	util.Success(ctx, gin.H{
		"blockIndex":  block[0].BlockIndex,
		"assignments": block,
		"remaining":   remaining,
	})
}

// NextAssignment godoc
// @Summary 下一个待完成分配
// @Description 继续活跃区块或开启新区块；status 为 continuing/started/exhausted
// @Tags 阅读流程
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.NextAssignmentResult}
// @Router /api/game/next [post]
func (c *GameController) NextAssignment(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.GameService.NextAssignment(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Progress godoc
// @Summary 整体进度统计
// @Tags 阅读流程
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.GameProgress}
// @Router /api/game/progress [get]
func (c *GameController) Progress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	progress, err := c.GameService.Progress(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// Report godoc
// @Summary 区块成绩报告
// @Description 区块不存在或未完成时返回 404，携带 block_not_found / block_incomplete 细节
// @Tags 阅读流程
// @Produce  json
// @Security BearerAuth
// @Param   blockIndex path int true "区块序号"
// @Success 200 {object} util.Response{data=service.BlockReport}
// @Failure 404 {object} util.Response{data=service.BlockIncompleteInfo}
// @Router /api/game/report/{blockIndex} [get]
func (c *GameController) Report(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	blockIndex, err := strconv.Atoi(ctx.Param("blockIndex"))
	if err != nil {
		util.BadRequest(ctx, "invalid block index")
		return
	}

	report, info, err := c.ReportService.BuildReport(claims.UserID, blockIndex)
	if err != nil {
		if errors.Is(err, util.ErrBlockNotFound) || errors.Is(err, util.ErrBlockIncomplete) {
			util.NotFoundWith(ctx, info)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, report)
}

// ListReports godoc
// @Summary 全部已完成区块的报告
// @Tags 阅读流程
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.BlockReport}
// @Router /api/game/reports [get]
func (c *GameController) ListReports(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	reports, err := c.ReportService.ListReports(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, reports)
}

// LatestReport godoc
// @Summary 最近一份报告
// @Tags 阅读流程
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.BlockReport}
// @Failure 404 {object} util.Response "尚无报告"
// @Router /api/game/report/latest [get]
func (c *GameController) LatestReport(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	report, err := c.ReportService.LatestReport(claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrNoReports) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, report)
}

// ReportAvailable godoc
// @Summary 报告可用性检查
// @Description 前端点击卡片前的轻量检查
// @Tags 阅读流程
// @Produce  json
// @Security BearerAuth
// @Param   blockIndex path int true "区块序号"
// @Success 200 {object} util.Response{data=service.ReportAvailability}
// @Router /api/game/report-available/{blockIndex} [get]
func (c *GameController) ReportAvailable(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	blockIndex, err := strconv.Atoi(ctx.Param("blockIndex"))
	if err != nil {
		util.BadRequest(ctx, "invalid block index")
		return
	}

	availability, err := c.ReportService.CanViewReport(claims.UserID, blockIndex)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, availability)
}

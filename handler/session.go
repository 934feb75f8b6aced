package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chaos-io/tryon/config"
	"github.com/chaos-io/tryon/model"
	"github.com/chaos-io/tryon/store"
	"github.com/chaos-io/tryon/tryon"
	"github.com/chaos-io/tryon/util"
)

type SessionHandler struct {
	cfg   *config.Config
	store *store.SessionStore
}

func NewSessionHandler(cfg *config.Config, sessions *store.SessionStore) *SessionHandler {
	return &SessionHandler{cfg: cfg, store: sessions}
}

// Register 挂载 /sessions 路由
func (h *SessionHandler) Register(api *gin.RouterGroup) {
	sessions := api.Group("/sessions")
	{
		sessions.POST("", h.Create)
		sessions.GET("/:id", h.Get)
		sessions.DELETE("/:id", h.Delete)
		sessions.POST("/:id/base", h.ReplaceBase)
		sessions.POST("/:id/items", h.ApplyItem)
		sessions.PUT("/:id/selection", h.Render)
		sessions.POST("/:id/reset", h.Reset)
		sessions.GET("/:id/export", h.Export)
	}
}

// badRequest 请求本身不合法，对应 400
type badRequest struct {
	msg string
	err error
}

func (e *badRequest) Error() string {
	if e.err == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %v", e.msg, e.err)
}

// Create 创建会话并加载用户照片，支持 multipart 上传或 JSON image_url
func (h *SessionHandler) Create(c *gin.Context) {
	var profile tryon.Profile
	var src tryon.Source
	var err error

	if isMultipart(c) {
		profile = tryon.Profile{ID: c.PostForm("profile_id"), Name: c.PostForm("profile_name")}
		src, err = h.readUpload(c)
	} else {
		var req model.CreateSessionRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			err = &badRequest{msg: "请求参数错误", err: bindErr}
		} else if req.ImageURL == "" {
			err = &badRequest{msg: "请上传图片文件或提供 image_url"}
		} else {
			profile = tryon.Profile{ID: req.ProfileID, Name: req.ProfileName}
			src = tryon.FromURL(req.ImageURL)
		}
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	id, session := h.store.Create(profile)
	if err := session.LoadBaseImage(c.Request.Context(), src); err != nil {
		h.store.Delete(id)
		h.fail(c, err)
		return
	}

	util.Logger.Info("session created",
		zap.String("session", id),
		zap.String("profile", profile.ID),
		zap.String("source", src.String()))

	c.JSON(http.StatusCreated, model.Response{
		Success: true,
		Message: "会话已创建",
		Data:    model.NewSessionView(id, session),
	})
}

// Get 查询会话状态、区域和图层
func (h *SessionHandler) Get(c *gin.Context) {
	id, session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "查询成功",
		Data:    model.NewSessionView(id, session),
	})
}

// ReplaceBase 更换用户照片，已叠加的图层全部丢弃
func (h *SessionHandler) ReplaceBase(c *gin.Context) {
	id, session, ok := h.session(c)
	if !ok {
		return
	}

	var src tryon.Source
	var err error
	if isMultipart(c) {
		src, err = h.readUpload(c)
	} else {
		var req model.BaseImageRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			err = &badRequest{msg: "请求参数错误", err: bindErr}
		} else {
			src = tryon.FromURL(req.ImageURL)
		}
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := session.LoadBaseImage(c.Request.Context(), src); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "底图已更新",
		Data:    model.NewSessionView(id, session),
	})
}

// ApplyItem 叠加单件商品
func (h *SessionHandler) ApplyItem(c *gin.Context) {
	id, session, ok := h.session(c)
	if !ok {
		return
	}

	var req model.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, &badRequest{msg: "请求参数错误", err: err})
		return
	}
	item, err := req.ToItem()
	if err != nil {
		h.fail(c, &badRequest{msg: "商品类别错误", err: err})
		return
	}

	if err := session.ApplyClothing(c.Request.Context(), item, item.Category); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "试穿成功",
		Data:    model.NewSessionView(id, session),
	})
}

// Render 按完整选择重绘
func (h *SessionHandler) Render(c *gin.Context) {
	id, session, ok := h.session(c)
	if !ok {
		return
	}

	var req model.SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, &badRequest{msg: "请求参数错误", err: err})
		return
	}

	if err := session.Render(c.Request.Context(), req.ToSelection()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "渲染成功",
		Data:    model.NewSessionView(id, session),
	})
}

// Reset 清空图层
func (h *SessionHandler) Reset(c *gin.Context) {
	id, session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.ResetCanvas(); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "已重置",
		Data:    model.NewSessionView(id, session),
	})
}

// Export 下载合成结果 PNG
func (h *SessionHandler) Export(c *gin.Context) {
	id, session, ok := h.session(c)
	if !ok {
		return
	}
	data, err := session.ExportOutfit()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="outfit-%s.png"`, id))
	c.Data(http.StatusOK, "image/png", data)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if !h.store.Delete(id) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Success: false,
			Message: "会话不存在",
		})
		return
	}
	c.JSON(http.StatusOK, model.Response{Success: true, Message: "会话已删除"})
}

func (h *SessionHandler) session(c *gin.Context) (string, *tryon.Session, bool) {
	id := c.Param("id")
	session, ok := h.store.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Success: false,
			Message: "会话不存在",
		})
		return "", nil, false
	}
	return id, session, true
}

// readUpload 读取 multipart 字段 image，检查大小和类型
func (h *SessionHandler) readUpload(c *gin.Context) (tryon.Source, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return tryon.Source{}, &badRequest{msg: "请上传图片文件", err: err}
	}

	if file.Size > h.cfg.Upload.MaxSize {
		return tryon.Source{}, &badRequest{msg: fmt.Sprintf("文件大小超过限制 (%d MB)", h.cfg.Upload.MaxSize/(1024*1024))}
	}

	contentType := file.Header.Get("Content-Type")
	if !h.isAllowedType(contentType) {
		return tryon.Source{}, &badRequest{msg: "不支持的文件类型，仅支持 JPEG/PNG/WebP"}
	}

	f, err := file.Open()
	if err != nil {
		return tryon.Source{}, fmt.Errorf("open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return tryon.Source{}, fmt.Errorf("read uploaded file: %w", err)
	}
	return tryon.FromBytes(data), nil
}

func (h *SessionHandler) isAllowedType(contentType string) bool {
	for _, allowed := range h.cfg.Upload.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}

// fail 把引擎错误映射成 HTTP 状态码
func (h *SessionHandler) fail(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, "处理失败"

	var br *badRequest
	switch {
	case errors.As(err, &br):
		status, message = http.StatusBadRequest, br.msg
	case errors.Is(err, tryon.ErrImageDecode):
		status, message = http.StatusUnprocessableEntity, "图片无法解码"
	case errors.Is(err, tryon.ErrProcessing):
		status, message = http.StatusUnprocessableEntity, "图片处理失败"
	case errors.Is(err, tryon.ErrInvalidState):
		status, message = http.StatusConflict, "当前状态不允许该操作"
	case errors.Is(err, tryon.ErrStaleRender):
		status, message = http.StatusConflict, "渲染已被更新的操作取代"
	}

	if status >= http.StatusInternalServerError {
		util.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		util.Logger.Warn("request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	_ = c.Error(err)

	c.JSON(status, model.ErrorResponse{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

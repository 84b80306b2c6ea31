package controller

import (
	"converse-backend/dao"
	"converse-backend/model"
	"converse-backend/request"
	"converse-backend/response"
	"converse-backend/service/chat"
	"converse-backend/utils"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func CreateChat(c *gin.Context) {
	email := c.GetString("email")
	record := model.Chat{
		UserEmail: email,
		ChatID:    uuid.New().String(),
		Title:     model.DefaultChatTitle,
	}
	if err := dao.CreateChat(&record); err != nil {
		slog.Error(ErrCreateChat.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCreateChat.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: response.ChatResponse{
			ChatID: record.ChatID,
			Title:  record.Title,
		},
	})
}

func GetChats(c *gin.Context) {
	email := c.GetString("email")
	chats, err := dao.GetChatsByEmail(email)
	if err != nil {
		slog.Error(ErrGetChats.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetChats.Error(),
		})
		return
	}

	var resp response.GetChatsResponse
	for _, record := range chats {
		resp.Chats = append(resp.Chats, response.ChatResponse{
			ChatID:       record.ChatID,
			Title:        record.Title,
			AssistantID:  record.AssistantID,
			Model:        record.Model,
			LastChatTime: record.LastChatTime,
		})
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}

func DeleteChat(c *gin.Context) {
	email := c.GetString("email")
	chatID := c.Param("id")
	if err := dao.DeleteChat(email, chatID); err != nil {
		slog.Error(ErrDeleteChat.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrDeleteChat.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{})
}

func GetChatMessages(c *gin.Context) {
	email := c.GetString("email")
	chatID := c.Param("id")
	messages, err := dao.GetMessagesByChat(email, chatID)
	if err != nil {
		slog.Error(ErrGetChatMessages.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetChatMessages.Error(),
		})
		return
	}

	var resp response.GetChatMessagesResponse
	for _, m := range messages {
		resp.Messages = append(resp.Messages, response.MessageResponse{
			ID:              m.ID,
			CreatedAt:       m.CreatedAt,
			Role:            m.Role,
			Content:         m.Content,
			Parts:           m.Parts,
			Context:         m.Context,
			Model:           m.Model,
			Terminated:      m.Terminated,
			Error:           m.Error,
			PreviousSummary: m.PreviousSummary,
		})
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}

func UpdateChatTitle(c *gin.Context) {
	var req request.UpdateChatTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	email := c.GetString("email")
	if err := dao.UpdateChatTitle(email, req.ChatID, req.Title); err != nil {
		slog.Error(ErrUpdateChatTitle.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUpdateChatTitle.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{})
}

func GetChatUsage(c *gin.Context) {
	email := c.GetString("email")
	chatID := c.Param("id")
	records, err := dao.GetUsageByChat(email, chatID)
	if err != nil {
		slog.Error(ErrGetChatUsage.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetChatUsage.Error(),
		})
		return
	}

	var resp response.GetChatUsageResponse
	for _, r := range records {
		resp.Usage = append(resp.Usage, response.UsageResponse{
			CreatedAt:         r.CreatedAt,
			Model:             r.Model,
			Task:              r.Task,
			MessageID:         r.MessageID,
			InputTokens:       r.InputTokens,
			OutputTokens:      r.OutputTokens,
			TotalTokens:       r.TotalTokens,
			ReasoningTokens:   r.ReasoningTokens,
			CachedInputTokens: r.CachedInputTokens,
		})
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}

// Chat streams one completion over SSE.
func Chat(c *gin.Context) {
	utils.SetSSEHeaders(c)

	var req request.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		utils.SendSSEMessage(c, utils.EventError, ErrParseRequest.Error())
		utils.SendSSEMessage(c, utils.EventDone, "")
		return
	}

	email := c.GetString("email")
	if err := chat.RunCompletion(c, email, req); err != nil {
		slog.Error(ErrStartCompletion.Error(), "err", err)
		utils.SendSSEMessage(c, utils.EventError, ErrStartCompletion.Error())
		utils.SendSSEMessage(c, utils.EventDone, "")
	}
}

// RegenerateChat re-runs the latest assistant message and streams the new
// completion over SSE.
func RegenerateChat(c *gin.Context) {
	utils.SetSSEHeaders(c)

	var req request.RegenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		utils.SendSSEMessage(c, utils.EventError, ErrParseRequest.Error())
		utils.SendSSEMessage(c, utils.EventDone, "")
		return
	}

	email := c.GetString("email")
	if err := chat.RunRegenerate(c, email, req); err != nil {
		slog.Error(ErrRegenerate.Error(), "err", err)
		utils.SendSSEMessage(c, utils.EventError, ErrRegenerate.Error())
		utils.SendSSEMessage(c, utils.EventDone, "")
	}
}

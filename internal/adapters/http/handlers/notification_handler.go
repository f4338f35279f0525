package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"stockvel-tracker/internal/core/services"
	"stockvel-tracker/internal/pkg/pagination"
	"stockvel-tracker/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// streamHeartbeat keeps idle streams open through proxies
const streamHeartbeat = 30 * time.Second

// NotificationHandler handles the member inbox
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List returns the signed-in member's notifications, newest first
// @Summary List my notifications
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param unread query bool false "Only unread"
// @Success 200 {object} response.Response
// @Router /notifications [get]
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	memberID, ok := currentMemberID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	params := pagination.FromQuery(c)

	result, err := h.notificationService.List(c.Context(), memberID, c.QueryBool("unread"), params.Page, params.Limit)
	if err != nil {
		return serviceError(c, err, "Failed to list notifications")
	}

	return response.Success(c, "Notifications retrieved successfully",
		pagination.NewResponse(result.Notifications, result.Page, result.Limit, result.Total))
}

// MarkRead marks one notification as read
// @Summary Mark notification read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	memberID, ok := currentMemberID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid notification ID")
	}

	if err := h.notificationService.MarkRead(c.Context(), id, memberID); err != nil {
		return serviceError(c, err, "Failed to mark notification read")
	}

	return response.Success(c, "Notification marked as read", nil)
}

// MarkAllRead marks every unread notification as read
// @Summary Mark all notifications read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /notifications/read-all [patch]
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	memberID, ok := currentMemberID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	updated, err := h.notificationService.MarkAllRead(c.Context(), memberID)
	if err != nil {
		return serviceError(c, err, "Failed to mark notifications read")
	}

	return response.Success(c, "Notifications marked as read", fiber.Map{"updated": updated})
}

// Stream pushes new notifications to the signed-in member as server-sent events
// @Summary Notification stream
// @Tags Notifications
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {string} string "event stream"
// @Failure 503 {object} response.Response
// @Router /notifications/stream [get]
func (h *NotificationHandler) Stream(c *fiber.Ctx) error {
	memberID, ok := currentMemberID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	hub := h.notificationService.Hub()
	if hub == nil {
		return response.ServiceUnavailable(c, "Live notifications are disabled")
	}

	clientID := uuid.NewString()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set(fiber.HeaderTransferEncoding, "chunked")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		client := hub.Subscribe(clientID, memberID)
		defer hub.Unsubscribe(clientID)

		fmt.Fprintf(w, "event: connected\ndata: {\"client_id\":%q}\n\n", clientID)
		if err := w.Flush(); err != nil {
			return
		}

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case event, ok := <-client.Channel:
				if !ok {
					return
				}
				if err := writeEvent(w, event); err != nil {
					log.Printf("📡 Stream %s disconnected: %v", clientID, err)
					return
				}
			case <-heartbeat.C:
				fmt.Fprint(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					log.Printf("📡 Stream %s disconnected", clientID)
					return
				}
			}
		}
	})

	return nil
}

// writeEvent writes one SSE frame and flushes it
func writeEvent(w *bufio.Writer, event services.HubEvent) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
	return w.Flush()
}

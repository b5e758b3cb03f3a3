package apiv1

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/PayButton/paybutton-server/app/models"
	"github.com/PayButton/paybutton-server/app/repository"
	"github.com/PayButton/paybutton-server/internal/pkg/dispatch"
	"github.com/PayButton/paybutton-server/internal/pkg/jobqueue"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// Enqueuer hands broadcast batches to the background queue.
type Enqueuer interface {
	EnqueuePaymentBatch(batch []dispatch.BroadcastTxData, networkID uint) (*jobqueue.Job, error)
}

// APIServer holds the handler dependencies
type APIServer struct {
	queue Enqueuer
	logs  repository.TriggerLogRepository
}

// NewAPIServer creates a new API server instance
func NewAPIServer(queue Enqueuer, logs repository.TriggerLogRepository) *APIServer {
	return &APIServer{queue: queue, logs: logs}
}

// RegisterRoutes attaches the API routes to the fiber app
func RegisterRoutes(app *fiber.App, s *APIServer) {
	api := app.Group("/api")
	api.Get("/health", s.GetHealth)
	api.Post("/payments/broadcast", s.PostPaymentBroadcast)
	api.Get("/paybuttons/:id/triggers/logs", s.GetTriggerLogs)
}

// GetHealth handles the health endpoint
func (s *APIServer) GetHealth(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}

// broadcastRequest is the body of POST /api/payments/broadcast
type broadcastRequest struct {
	NetworkID uint                       `json:"networkId"`
	Batch     []dispatch.BroadcastTxData `json:"batch"`
}

// PostPaymentBroadcast accepts a batch of address-grouped payments and
// enqueues it for trigger dispatch. The batch is processed asynchronously;
// a 202 with the job ID is returned immediately.
func (s *APIServer) PostPaymentBroadcast(c *fiber.Ctx) error {
	var req broadcastRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "invalid JSON body",
		})
	}

	if !models.ValidNetworkID(req.NetworkID) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "unknown networkId",
		})
	}

	payments := 0
	for _, txData := range req.Batch {
		if txData.Address == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "bad_request",
				"message": "batch entry with empty address",
			})
		}
		payments += len(txData.Txs)
	}
	if payments == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "batch contains no payments",
		})
	}

	job, err := s.queue.EnqueuePaymentBatch(req.Batch, req.NetworkID)
	if err != nil {
		log.Errorf("[API] Failed to enqueue payment batch: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": "failed to enqueue batch",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"jobId":    job.ID,
		"payments": payments,
	})
}

// GetTriggerLogs returns a page of trigger logs for a payment button,
// newest first.
func (s *APIServer) GetTriggerLogs(c *fiber.Ctx) error {
	buttonID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || buttonID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "invalid paybutton id",
		})
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("pageSize", defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	desc := c.Query("order", "desc") != "asc"

	logs, total, err := s.logs.ListForPaybutton(uint(buttonID), (page-1)*pageSize, pageSize, desc)
	if err != nil {
		log.Errorf("[API] Failed to list trigger logs for button %d: %v", buttonID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": "failed to load trigger logs",
		})
	}

	return c.JSON(fiber.Map{
		"data":     logs,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

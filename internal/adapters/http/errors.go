package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/locus/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, rejected, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// RejectionResponse is the 422 body for a proposal that failed validation.
type RejectionResponse struct {
	APIError
	Reason   domain.RejectReason   `json:"reason"`
	Index    *int                  `json:"index,omitempty"`
	Location *domain.Location      `json:"location,omitempty"`
	Conflict *domain.LocationSetID `json:"conflict,omitempty"`
}

func requestID(c *fiber.Ctx) string {
	reqID, _ := c.Locals("requestid").(string)
	return reqID
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: requestID(c),
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusConflict, "conflict", msg)
}

// errInternal returns a 500 error. The cause is logged, not returned.
func errInternal(c *fiber.Ctx, err error) error {
	LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	return newError(c, fiber.StatusInternalServerError, "internal_error", "internal server error")
}

// errRejected returns a 422 carrying the rejection reason.
func errRejected(c *fiber.Ctx, rej *domain.RejectionError) error {
	resp := RejectionResponse{
		APIError: APIError{
			Status:    fiber.StatusUnprocessableEntity,
			Code:      "rejected",
			Message:   rej.Error(),
			RequestID: requestID(c),
		},
		Reason:   rej.Reason,
		Location: rej.Location,
		Conflict: rej.Conflict,
	}
	if rej.Index >= 0 {
		idx := rej.Index
		resp.Index = &idx
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
}

// writeServiceError maps service errors onto HTTP responses.
func writeServiceError(c *fiber.Ctx, err error) error {
	var rej *domain.RejectionError
	switch {
	case errors.As(err, &rej):
		return errRejected(c, rej)
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, "location set not found")
	case errors.Is(err, domain.ErrDuplicate):
		return errConflict(c, err.Error())
	case errors.Is(err, domain.ErrInvalidLocation):
		return errBadRequest(c, err.Error())
	default:
		return errInternal(c, err)
	}
}

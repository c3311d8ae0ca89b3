package rpc

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/ablaqll/pmpk-website-sub000/shared/middleware"
	"github.com/gin-gonic/gin"
)

const maxBatch = 50

// HandlePost serves POST /api/rpc with a single call or a batch array.
// A batch always answers 200 with one response per call, in order.
func (r *Router) HandlePost(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(nil, apperrors.Validation("Failed to read request body")))
		return
	}
	body = bytes.TrimSpace(body)
	caller := middleware.GetUserInfoFromContext(c)
	ctx := c.Request.Context()

	if len(body) > 0 && body[0] == '[' {
		var batch []Request
		if err := json.Unmarshal(body, &batch); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(nil, apperrors.Validation("Malformed batch")))
			return
		}
		if len(batch) == 0 || len(batch) > maxBatch {
			c.JSON(http.StatusBadRequest, errorResponse(nil, apperrors.Validation("Batch must hold between 1 and 50 calls")))
			return
		}
		responses := make([]Response, len(batch))
		for i, req := range batch {
			responses[i] = r.Dispatch(ctx, caller, req, false)
		}
		c.JSON(http.StatusOK, responses)
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(nil, apperrors.Validation("Malformed request")))
		return
	}
	respond(c, r.Dispatch(ctx, caller, req, false))
}

// HandleGet serves GET /api/rpc/:method?input=<json> for queries
func (r *Router) HandleGet(c *gin.Context) {
	req := Request{Method: c.Param("method")}
	if input := c.Query("input"); input != "" {
		if !json.Valid([]byte(input)) {
			c.JSON(http.StatusBadRequest, errorResponse(nil, apperrors.Validation("input must be JSON")))
			return
		}
		req.Params = json.RawMessage(input)
	}
	respond(c, r.Dispatch(c.Request.Context(), middleware.GetUserInfoFromContext(c), req, true))
}

func respond(c *gin.Context, res Response) {
	status := http.StatusOK
	if res.Error != nil {
		status = apperrors.HTTPStatus(res.Error.Code)
	}
	c.JSON(status, res)
}

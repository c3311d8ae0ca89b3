package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/ablaqll/pmpk-website-sub000/shared/metrics"
	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"github.com/sirupsen/logrus"
)

// Call is one procedure invocation
type Call struct {
	Ctx    context.Context
	Caller *models.UserInfo
	Method string
	Params json.RawMessage
}

// Handler runs a procedure and returns a JSON-encodable result
type Handler func(call *Call) (any, error)

type procedure struct {
	handler   Handler
	protected bool
	mutation  bool
}

// CallerRefresher reloads the stored identity behind a token before a
// protected procedure runs
type CallerRefresher func(ctx context.Context, caller *models.UserInfo) (*models.UserInfo, error)

// Router maps dotted procedure names such as "news.listPublished" to handlers
type Router struct {
	procedures map[string]procedure
	refresh    CallerRefresher
}

func NewRouter() *Router {
	registerValidators()
	return &Router{procedures: make(map[string]procedure)}
}

// Query registers a public read
func (r *Router) Query(name string, h Handler) {
	r.register(name, procedure{handler: h})
}

// Mutation registers a public write
func (r *Router) Mutation(name string, h Handler) {
	r.register(name, procedure{handler: h, mutation: true})
}

// ProtectedQuery registers a read that requires a caller
func (r *Router) ProtectedQuery(name string, h Handler) {
	r.register(name, procedure{handler: h, protected: true})
}

// ProtectedMutation registers a write that requires a caller
func (r *Router) ProtectedMutation(name string, h Handler) {
	r.register(name, procedure{handler: h, protected: true, mutation: true})
}

// RefreshCallers makes protected procedures run with the caller returned by
// fn instead of the token claims
func (r *Router) RefreshCallers(fn CallerRefresher) {
	r.refresh = fn
}

func (r *Router) register(name string, p procedure) {
	if _, exists := r.procedures[name]; exists {
		panic(fmt.Sprintf("rpc: procedure %q registered twice", name))
	}
	r.procedures[name] = p
}

// Methods lists registered procedure names
func (r *Router) Methods() []string {
	names := make([]string, 0, len(r.procedures))
	for name := range r.procedures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Request is the wire form of a call
type Request struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Error is the wire form of a failed call
type Error struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

// Response carries either a result or an error
type Response struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

func errorResponse(id json.RawMessage, err *apperrors.Error) Response {
	return Response{ID: id, Error: &Error{Code: err.Code, Message: err.Message}}
}

// Dispatch runs one request. Queries only reaches procedures that do not
// mutate state.
func (r *Router) Dispatch(ctx context.Context, caller *models.UserInfo, req Request, queriesOnly bool) Response {
	p, ok := r.procedures[req.Method]
	if !ok {
		metrics.RPCCallsTotal.WithLabelValues("unknown", string(apperrors.CodeNotFound)).Inc()
		return errorResponse(req.ID, apperrors.NotFound(fmt.Sprintf("No procedure %q", req.Method)))
	}
	if queriesOnly && p.mutation {
		return errorResponse(req.ID, apperrors.Validation(fmt.Sprintf("Procedure %q must be called with POST", req.Method)))
	}
	if p.protected && caller == nil {
		metrics.RPCCallsTotal.WithLabelValues(req.Method, string(apperrors.CodeUnauthorized)).Inc()
		return errorResponse(req.ID, apperrors.ErrUnauthorized)
	}
	if p.protected && r.refresh != nil {
		fresh, err := r.refresh(ctx, caller)
		if err != nil {
			appErr := apperrors.As(err)
			metrics.RPCCallsTotal.WithLabelValues(req.Method, string(appErr.Code)).Inc()
			return errorResponse(req.ID, appErr)
		}
		caller = fresh
	}

	start := time.Now()
	result, err := p.handler(&Call{Ctx: ctx, Caller: caller, Method: req.Method, Params: req.Params})
	metrics.RPCCallDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

	if err == nil {
		var encoded []byte
		encoded, err = json.Marshal(result)
		if err == nil {
			metrics.RPCCallsTotal.WithLabelValues(req.Method, "OK").Inc()
			return Response{ID: req.ID, Result: encoded}
		}
		err = apperrors.Internal(fmt.Errorf("encode result: %w", err))
	}

	appErr := apperrors.As(err)
	metrics.RPCCallsTotal.WithLabelValues(req.Method, string(appErr.Code)).Inc()
	if appErr.Code == apperrors.CodeInternal || appErr.Code == apperrors.CodeServiceUnavailable {
		fields := logrus.Fields{"method": req.Method, "code": appErr.Code}
		if caller != nil {
			fields["user_id"] = caller.ID
		}
		logrus.WithFields(fields).WithError(err).Error("Procedure failed")
	}
	return errorResponse(req.ID, appErr)
}

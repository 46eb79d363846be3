package editor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"

	"github.com/gogotex/pagebuilder/internal/authz"
	"github.com/gogotex/pagebuilder/internal/content"
	"github.com/gogotex/pagebuilder/internal/hooks"
	"github.com/gogotex/pagebuilder/pkg/logger"
	"github.com/gogotex/pagebuilder/pkg/metrics"
)

// ActionFunc handles one ajax action for the request's content.
type ActionFunc func(ctx context.Context, data json.RawMessage, c *content.Content) (any, error)

type action struct {
	fn  ActionFunc
	acl string
}

// ActionRequest is one entry of an ajax batch.
type ActionRequest struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Result answers one ActionRequest.
type Result struct {
	Success bool `json:"success"`
	Code    int  `json:"code"`
	Data    any  `json:"data"`
}

// Ajax dispatches batched editor actions. Actions are registered lazily
// through the "ajax/register_actions" extension point.
type Ajax struct {
	authz    authz.Authorizer
	register *hooks.Action[*Ajax]
	once     sync.Once

	mu      sync.RWMutex
	actions map[string]action
}

func NewAjax(az authz.Authorizer) *Ajax {
	return &Ajax{
		authz:    az,
		register: hooks.NewAction[*Ajax]("ajax/register_actions"),
		actions:  make(map[string]action),
	}
}

func (a *Ajax) OnRegister() *hooks.Action[*Ajax] { return a.register }

// RegisterAction adds or replaces a named action. A non-empty acl is checked
// as the content's role, e.g. "save" -> "pagebuilder::page_save".
func (a *Ajax) RegisterAction(name, acl string, fn ActionFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions[name] = action{fn: fn, acl: acl}
}

func (a *Ajax) ensureRegistered() {
	a.once.Do(func() { a.register.Do(a) })
}

// Actions lists the registered action names.
func (a *Ajax) Actions() []string {
	a.ensureRegistered()
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.actions))
	for name := range a.actions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Handle runs every request against c and returns results keyed like the
// input. Requests run in key order.
func (a *Ajax) Handle(ctx context.Context, reqs map[string]ActionRequest, c *content.Content) map[string]Result {
	a.ensureRegistered()
	keys := make([]string, 0, len(reqs))
	for k := range reqs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]Result, len(reqs))
	for _, k := range keys {
		out[k] = a.run(ctx, reqs[k], c)
	}
	return out
}

func (a *Ajax) run(ctx context.Context, req ActionRequest, c *content.Content) Result {
	a.mu.RLock()
	act, ok := a.actions[req.Action]
	a.mu.RUnlock()
	if !ok {
		metrics.AjaxActions.WithLabelValues("unknown", "invalid").Inc()
		return Result{Code: http.StatusBadRequest, Data: "Action not found."}
	}
	if act.acl != "" && !a.authz.IsAllowed(ctx, c.RoleName(act.acl)) {
		metrics.AjaxActions.WithLabelValues(req.Action, "forbidden").Inc()
		return Result{Code: http.StatusForbidden, Data: "Sorry, you need permissions to do this action."}
	}

	data, err := act.fn(ctx, req.Data, c)
	if err != nil {
		code := StatusFor(err)
		metrics.AjaxActions.WithLabelValues(req.Action, "error").Inc()
		if code == http.StatusInternalServerError {
			logger.Errorf("ajax action %s on content %d: %v", req.Action, c.ID, err)
			return Result{Code: code, Data: "Something went wrong while saving the content."}
		}
		return Result{Code: code, Data: content.Message(err)}
	}
	metrics.AjaxActions.WithLabelValues(req.Action, "ok").Inc()
	return Result{Success: true, Code: http.StatusOK, Data: data}
}

// StatusFor maps the error taxonomy to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, content.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, content.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, content.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

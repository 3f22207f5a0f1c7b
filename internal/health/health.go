// Package health tracks the state of the store and each platform connection.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/abdulachik/socialgate/internal/social"
)

// Status represents the health of a component.
type Status struct {
	Healthy     bool      `json:"healthy"`
	LastCheck   time.Time `json:"last_check"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	LastError   error     `json:"-"`
	Message     string    `json:"message"`
}

// Health tracks the health of various components.
type Health struct {
	mu         sync.RWMutex
	components map[string]*Status
	now        func() time.Time
}

// New creates a new health tracker.
func New() *Health {
	return &Health{
		components: make(map[string]*Status),
		now:        time.Now,
	}
}

// SetHealthy marks a component as healthy.
func (h *Health) SetHealthy(component, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	status := h.component(component)
	status.Healthy = true
	status.LastCheck = now
	status.LastSuccess = now
	status.LastError = nil
	status.Message = message
}

// SetUnhealthy marks a component as unhealthy. LastSuccess is kept.
func (h *Health) SetUnhealthy(component string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := h.component(component)
	status.Healthy = false
	status.LastCheck = h.now()
	status.LastError = err
	status.Message = err.Error()
}

func (h *Health) component(name string) *Status {
	status, ok := h.components[name]
	if !ok {
		status = &Status{}
		h.components[name] = status
	}
	return status
}

// GetStatus returns a copy of a component's status, or nil if unknown.
func (h *Health) GetStatus(component string) *Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if status, ok := h.components[component]; ok {
		cp := *status
		return &cp
	}
	return nil
}

// GetAllStatuses returns copies of all component statuses.
func (h *Health) GetAllStatuses() map[string]*Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[string]*Status, len(h.components))
	for name, status := range h.components {
		cp := *status
		result[name] = &cp
	}
	return result
}

// Components returns the tracked component names in order.
func (h *Health) Components() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.components))
	for name := range h.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsOverallHealthy returns true if all components are healthy.
func (h *Health) IsOverallHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, status := range h.components {
		if !status.Healthy {
			return false
		}
	}
	return true
}

// Check probes one component and returns a short description on success.
type Check struct {
	Name string
	Run  func(ctx context.Context) (string, error)
}

// Run executes checks in order and records each result.
func (h *Health) Run(ctx context.Context, checks []Check) {
	for _, c := range checks {
		start := time.Now()
		msg, err := c.Run(ctx)
		if err != nil {
			slog.Warn("health check failed", "component", c.Name, "error", err)
			h.SetUnhealthy(c.Name, err)
			continue
		}
		slog.Debug("health check passed", "component", c.Name, "duration", time.Since(start))
		h.SetHealthy(c.Name, msg)
	}
}

// CredentialValidator is the part of an adapter a credential check needs.
type CredentialValidator interface {
	ValidateCredential(ctx context.Context, cred social.Credential) (*social.AccountInfo, error)
}

// CredentialCheck validates cred against the platform and reports the
// account it belongs to.
func CredentialCheck(v CredentialValidator, cred social.Credential) Check {
	return Check{
		Name: string(cred.Platform),
		Run: func(ctx context.Context) (string, error) {
			info, err := v.ValidateCredential(ctx, cred)
			if err != nil {
				return "", err
			}
			return describe(info), nil
		},
	}
}

func describe(info *social.AccountInfo) string {
	switch {
	case info.Username != "":
		return fmt.Sprintf("authenticated as @%s (%s)", info.Username, info.ID)
	case info.Name != "":
		return fmt.Sprintf("authenticated as %s (%s)", info.Name, info.ID)
	}
	return fmt.Sprintf("authenticated as %s", info.ID)
}

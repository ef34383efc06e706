package lsp

import (
	"context"

	"go.uber.org/zap"
)

// statusMethod is a custom notification the editor extension renders as a
// status-bar item. Clients that do not know the method ignore it.
const statusMethod = "mcglsl/status"

const (
	statusLoading = "loading"
	statusReady   = "ready"
)

type statusParams struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Icon    string `json:"icon"`
}

var statusIcons = map[string]string{
	statusLoading: "$(loading~spin)",
	statusReady:   "$(check)",
}

func (s *Server) sendStatus(ctx context.Context, status, message string) {
	if s.notifier == nil {
		return
	}
	params := statusParams{
		Status:  status,
		Message: message,
		Icon:    statusIcons[status],
	}
	if err := s.notifier.Notify(ctx, statusMethod, params); err != nil {
		s.logger.Debug("status notification failed", zap.String("status", status), zap.Error(err))
	}
}

package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/taskbridge/taskbridge/internal/asana"
	"github.com/taskbridge/taskbridge/internal/logging"
	"go.uber.org/zap"
)

const hookSecretHeader = "X-Hook-Secret"

type webhookPayload struct {
	UUID   string        `json:"uuid"`
	Events []asana.Event `json:"events"`
}

// handleNotification receives Asana webhook deliveries. The response is
// always 200 with an acknowledgment body: redelivery storms are worse than a
// dropped notification. The handshake header is echoed even when routing
// fails.
func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	subscriptionID := r.URL.Query().Get("subscriptionId")

	var payload webhookPayload
	if body, err := io.ReadAll(r.Body); err == nil && len(body) > 0 {
		// A handshake delivery carries no body; decode failures are treated
		// the same way and acknowledged.
		if err := json.Unmarshal(body, &payload); err != nil {
			s.log.Warn("undecodable webhook body", zap.Error(err))
		}
	}

	deliveryID := payload.UUID
	if deliveryID == "" {
		// Handshake deliveries carry no uuid; synthesize one for log
		// correlation. Random ids never collide in the dedupe window.
		deliveryID = logging.GenerateRequestID()
	}
	ctx := logging.WithDeliveryID(r.Context(), deliveryID)
	if err := s.router.Handle(ctx, subscriptionID, payload.Events); err != nil {
		s.log.Error("webhook delivery processing failed",
			zap.String("subscription", subscriptionID),
			zap.String("delivery", deliveryID),
			zap.Error(err))
	}

	if secret := r.Header.Get(hookSecretHeader); secret != "" {
		w.Header().Set(hookSecretHeader, secret)
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "OK"})
}

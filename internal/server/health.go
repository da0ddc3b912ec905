package server

import (
	"context"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	checks := map[string]string{}
	status := "healthy"

	if err := s.client.Ping(ctx); err != nil {
		// The pages degrade to fallback content rather than erroring,
		// so an unreachable content API only degrades health.
		checks["content_api"] = "unhealthy"
		status = "degraded"
	} else {
		checks["content_api"] = "ok"
	}

	if s.cfg.RabbitMQURL != "" {
		conn, err := amqp.Dial(s.cfg.RabbitMQURL)
		if err != nil {
			checks["rabbitmq"] = "unhealthy"
			status = "degraded"
		} else {
			_ = conn.Close()
			checks["rabbitmq"] = "ok"
		}
	} else {
		checks["rabbitmq"] = "skipped"
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: status, Checks: checks})
}

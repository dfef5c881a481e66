package sms

import (
	"context"
	"log/slog"
)

// Delivery states reported per number.
const (
	StateSuccess     = "success"
	StateServerError = "server_error"
)

// Number is one recipient of a batch message.
type Number struct {
	Number string `json:"number"`
	UUID   string `json:"uuid"`
}

// BatchMessage is a body sent to several numbers.
type BatchMessage struct {
	Content string   `json:"content"`
	Numbers []Number `json:"numbers"`
}

// BatchResult reports the outcome for one number.
type BatchResult struct {
	UUID          string  `json:"uuid"`
	State         string  `json:"state"`
	FailureReason *string `json:"failure_reason"`
}

// SendBatch sends every message to each of its numbers in order and reports per-number results.
func (g *Gateway) SendBatch(ctx context.Context, messages []BatchMessage) []BatchResult {
	var results []BatchResult
	for _, msg := range messages {
		for _, n := range msg.Numbers {
			res := g.Send(ctx, n.Number, msg.Content)
			out := BatchResult{UUID: n.UUID, State: StateSuccess}
			if !res.OK {
				reason := res.Response
				out.State = StateServerError
				out.FailureReason = &reason
			}
			results = append(results, out)
		}
	}
	g.logger.Info("sms batch finished", slog.Int("results", len(results)))
	return results
}

package ordersync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Event is the payload of an externally-triggered invocation. The
// fields are trigger metadata only; they carry no sync parameters.
type Event struct {
	Source string `json:"source,omitempty"`
	ID     string `json:"id,omitempty"`
}

// Response is the structured status result of a triggered invocation.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Handle is a thin adapter over Run for external triggers (scheduler
// webhooks, function invocations). It carries no sync logic of its own;
// it only maps the run outcome to an HTTP-style status and JSON body.
func (r *Runner) Handle(ctx context.Context, event Event) Response {
	logger := r.logger.With().
		Str("event_source", event.Source).
		Str("event_id", event.ID).
		Logger()
	logger.Debug().Msg("Handling sync trigger")

	report, err := r.Run(ctx)

	switch {
	case errors.Is(err, ErrLockHeld):
		return response(http.StatusConflict, "Sync already running")
	case errors.Is(err, ErrFetchFailed):
		return response(http.StatusBadGateway, fmt.Sprintf("Failed to fetch orders: %v", err))
	case err != nil:
		return response(http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
	}

	return response(http.StatusOK, fmt.Sprintf(
		"Data inserted successfully! orders=%d inserted=%d duplicates=%d failed=%d",
		report.OrdersFetched, report.Rows.Inserted, report.Rows.Duplicates, report.Rows.Failed))
}

// response marshals msg as the JSON body of a Response.
func response(status int, msg string) Response {
	body, _ := json.Marshal(msg)
	return Response{StatusCode: status, Body: string(body)}
}

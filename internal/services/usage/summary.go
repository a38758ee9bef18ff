package usage

import (
	"context"
	"fmt"
	"time"
)

// ServiceSummary aggregates usage per service over a window.
type ServiceSummary struct {
	ServiceName   string `json:"service_name"`
	RequestCount  int64  `json:"request_count"`
	TokensInput   int64  `json:"tokens_input"`
	TokensOutput  int64  `json:"tokens_output"`
	FailureCount  int64  `json:"failure_count"`
	AvgDurationMs int64  `json:"avg_duration_ms"`
}

// Summarize aggregates recorded usage per service since the cutoff.
func (t *Tracker) Summarize(ctx context.Context, since time.Time) ([]ServiceSummary, error) {
	if t.pool == nil {
		return nil, fmt.Errorf("usage database not configured")
	}

	rows, err := t.pool.Query(ctx, `
		SELECT
			service_name,
			COUNT(*),
			COALESCE(SUM(tokens_input), 0),
			COALESCE(SUM(tokens_output), 0),
			COUNT(*) FILTER (WHERE NOT success),
			COALESCE(AVG(duration_ms), 0)::BIGINT
		FROM llm_usage
		WHERE created_at >= $1
		GROUP BY service_name
		ORDER BY service_name`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage summary: %w", err)
	}
	defer rows.Close()

	var summaries []ServiceSummary
	for rows.Next() {
		var s ServiceSummary
		if err := rows.Scan(&s.ServiceName, &s.RequestCount, &s.TokensInput, &s.TokensOutput, &s.FailureCount, &s.AvgDurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan usage summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

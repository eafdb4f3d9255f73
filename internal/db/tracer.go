package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/justestif/movie-recommender/internal/logging"
	"github.com/justestif/movie-recommender/internal/metrics"
)

type traceKey struct{}

type traceData struct {
	sql   string
	start time.Time
}

// queryTracer logs every statement with its duration and feeds the query metrics.
type queryTracer struct {
	slow time.Duration
}

func newQueryTracer(slow time.Duration) *queryTracer {
	return &queryTracer{slow: slow}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, traceData{sql: data.SQL, start: time.Now()})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	td, ok := ctx.Value(traceKey{}).(traceData)
	if !ok {
		return
	}
	elapsed := time.Since(td.start)
	op := statementKind(td.sql)
	metrics.RecordDBQuery(op, elapsed, data.Err)

	log := logging.Ctx(ctx)
	switch {
	case data.Err != nil:
		log.Error().Err(data.Err).Str("op", op).Str("sql", compactSQL(td.sql)).Dur("duration", elapsed).Msg("query failed")
	case t.slow > 0 && elapsed > t.slow:
		metrics.DBSlowQueries.Inc()
		log.Warn().Str("op", op).Str("sql", compactSQL(td.sql)).Dur("duration", elapsed).Msg("slow query")
	default:
		log.Debug().Str("op", op).Dur("duration", elapsed).Int64("rows", data.CommandTag.RowsAffected()).Msg("query")
	}
}

// statementKind returns the leading keyword of a statement, lower-cased.
// CTEs report the statement they wrap as "with".
func statementKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}

// compactSQL collapses whitespace so statements fit on one log line.
func compactSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type queryStartKey struct{}

// DBTracingOptions controls GORM span detail
type DBTracingOptions struct {
	// LogFullSQL keeps bind variables in db.statement; development only
	LogFullSQL bool
	// SlowQuery marks spans slower than this; zero means 200ms
	SlowQuery time.Duration
}

// InstrumentGorm registers otelgorm on db and tags slow statements
func InstrumentGorm(db *gorm.DB, opts DBTracingOptions, logger *zap.Logger) error {
	pluginOpts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
	if !opts.LogFullSQL {
		pluginOpts = append(pluginOpts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(pluginOpts...)); err != nil {
		return err
	}

	threshold := opts.SlowQuery
	if threshold <= 0 {
		threshold = 200 * time.Millisecond
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) {
		markSlow(tx, threshold, logger)
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("pos_timing:before_create", before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("pos_timing:after_create", after); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("pos_timing:before_query", before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("pos_timing:after_query", after); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("pos_timing:before_update", before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("pos_timing:after_update", after); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("pos_timing:before_delete", before); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("pos_timing:after_delete", after); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("pos_timing:before_raw", before); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("pos_timing:after_raw", after); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", opts.LogFullSQL),
		zap.Duration("slow_query_threshold", threshold))
	return nil
}

func markSlow(tx *gorm.DB, threshold time.Duration, logger *zap.Logger) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if elapsed < threshold {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Bool("db.slow_query", true),
		attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
	)
	logger.Warn("Slow query",
		zap.String("table", tx.Statement.Table),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", tx.Statement.RowsAffected))
}

package controller

import (
	"context"
	"time"

	"github.com/agentshield/api/pkg/domain/audit"
	"github.com/agentshield/api/pkg/logger"
)

// AuditRetentionControllerConfig configures the AuditRetentionController.
type AuditRetentionControllerConfig struct {
	// Interval is how often to run the retention check.
	// Default: 24 hours.
	Interval time.Duration

	// Retention is how long to keep audit trail entries.
	// Default: 365 days.
	Retention time.Duration

	// Logger for logging.
	Logger *logger.Logger
}

// AuditRetentionController prunes aged audit trail entries. Pruning is the
// only path that ever deletes from the trail; lifecycle transitions only
// append. The newest entry of every recommendation is always kept so a
// trail never goes empty.
type AuditRetentionController struct {
	auditRepo audit.Repository
	config    *AuditRetentionControllerConfig
	logger    *logger.Logger
}

// NewAuditRetentionController creates a new AuditRetentionController.
func NewAuditRetentionController(
	auditRepo audit.Repository,
	config *AuditRetentionControllerConfig,
) *AuditRetentionController {
	if config == nil {
		config = &AuditRetentionControllerConfig{}
	}
	if config.Interval == 0 {
		config.Interval = 24 * time.Hour
	}
	if config.Retention == 0 {
		config.Retention = 365 * 24 * time.Hour
	}
	if config.Logger == nil {
		config.Logger = logger.NewNop()
	}

	return &AuditRetentionController{
		auditRepo: auditRepo,
		config:    config,
		logger:    config.Logger,
	}
}

// Name returns the controller name.
func (c *AuditRetentionController) Name() string {
	return "audit-retention"
}

// Interval returns the reconciliation interval.
func (c *AuditRetentionController) Interval() time.Duration {
	return c.config.Interval
}

// Reconcile deletes audit entries older than the retention period.
func (c *AuditRetentionController) Reconcile(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-c.config.Retention)

	deleted, err := c.auditRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		c.logger.Error("failed to prune audit entries",
			"cutoff", cutoff,
			"error", err,
		)
		return 0, err
	}

	if deleted > 0 {
		c.logger.Info("pruned aged audit entries",
			"deleted", deleted,
			"cutoff", cutoff,
		)
	}

	return int(deleted), nil
}

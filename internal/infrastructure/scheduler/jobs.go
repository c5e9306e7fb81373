package scheduler

import (
	"context"
	"time"
)

// Job names
const (
	JobBillingSweep        = "billing.sweep"
	JobExpirePendingOrders = "sales.expire_pending"
	JobRetryFailedSMS      = "notification.retry_failed_sms"
)

// BillingSweeper moves subscriptions through trial, grace and expiry
type BillingSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// PendingOrderExpirer cancels gateway orders left unpaid
type PendingOrderExpirer interface {
	ExpirePendingOrders(ctx context.Context) (int, error)
}

// FailedSMSRetrier resends failed SMS within the attempt limit
type FailedSMSRetrier interface {
	RetryFailed(ctx context.Context) (int, error)
}

// BillingSweepJob runs hourly
func BillingSweepJob(svc BillingSweeper) Job {
	return Job{Name: JobBillingSweep, Interval: time.Hour, Run: svc.Sweep}
}

// ExpirePendingOrdersJob runs every five minutes
func ExpirePendingOrdersJob(svc PendingOrderExpirer) Job {
	return Job{Name: JobExpirePendingOrders, Interval: 5 * time.Minute, Run: svc.ExpirePendingOrders}
}

// RetryFailedSMSJob runs every ten minutes
func RetryFailedSMSJob(svc FailedSMSRetrier) Job {
	return Job{Name: JobRetryFailedSMS, Interval: 10 * time.Minute, Run: svc.RetryFailed}
}

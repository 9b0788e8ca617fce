package cron

import (
	"context"

	"github.com/Bekzat2201/UniConnect/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartNotificationCronJobs runs the notification background work: promoting
// due scheduled broadcasts and expiring old notification records.
func StartNotificationCronJobs(notificationService *services.NotificationService) *cron.Cron {
	c := cron.New()

	// Scheduled broadcasts are promoted at most a minute late.
	c.AddFunc("@every 1m", func() {
		if err := notificationService.ProcessScheduledNotifications(context.Background()); err != nil {
			logrus.WithError(err).Error("ProcessScheduledNotifications failed")
		}
	})

	// Retention cleanup once a day.
	c.AddFunc("@daily", func() {
		if err := notificationService.CleanupExpiredNotifications(context.Background()); err != nil {
			logrus.WithError(err).Error("CleanupExpiredNotifications failed")
		}
	})

	c.Start()
	return c
}

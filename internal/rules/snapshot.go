// Package rules computes per-user auto-shutdown decisions from central
// policy, an admin override map, and each user's current preference record.
// It is pure: all I/O belongs to the caller.
package rules

import "fmt"

// Config keys read from the central config store, namespace "common".
const (
	ConfigNamespace = "common"

	KeyAutoShutdownEnabled    = "workspaceAutoShutdown.isEnabled"
	KeyGlobalMaxLifetime      = "workspaceAutoShutdown.globalMaximumLifetimeInSeconds"
	KeyGlobalDefaultLifetime  = "workspaceAutoShutdown.globalDefaultLifetimeInSeconds"
	KeyNotificationsEnabled   = "workloadNotifications.isEnabled"
	KeyNotificationPeriodSecs = "workloadNotifications.longRunningWorkloadDefinitionInSeconds"
)

// Snapshot holds central auto-shutdown policy, read once per operation and
// never mutated afterwards.
type Snapshot struct {
	AutoShutdownEnabled          bool
	GlobalMaxLifetimeSeconds     int64
	GlobalDefaultLifetimeSeconds int64
	NotificationsEnabled         bool
	NotificationPeriodSeconds    int64
}

// ShortCircuit reports why the whole operation must stop before any per-user
// decision is made. An empty string means per-user resolution may proceed.
func (s Snapshot) ShortCircuit() string {
	if !s.AutoShutdownEnabled {
		return fmt.Sprintf("%s is false. No changes made", KeyAutoShutdownEnabled)
	}
	if s.GlobalDefaultLifetimeSeconds == 0 {
		return fmt.Sprintf("%s not set. No changes made", KeyGlobalDefaultLifetime)
	}
	if s.GlobalDefaultLifetimeSeconds > s.GlobalMaxLifetimeSeconds {
		return fmt.Sprintf("%s is greater than %s. No changes made",
			KeyGlobalDefaultLifetime, KeyGlobalMaxLifetime)
	}
	return ""
}

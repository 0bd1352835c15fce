package rules

// OverrideRequest is the admin-supplied input: explicit per-user lifetimes
// keyed by login id, plus a blanket reset-to-default for everyone else.
type OverrideRequest struct {
	Users             map[string]int64
	OverrideToDefault bool
}

// Preference is a user's existing preference record as read from the store.
// Nil pointer fields mean the field was never set on the record.
type Preference struct {
	UserID                      string
	EnableAutoShutdown          bool
	MaxLifetimeSeconds          *int64
	EnableSessionNotifications  *bool
	SessionNotificationPeriod   *int64
	NotifyCollaboratorAdditions *bool
}

// PreferencePatch is a partial update to a preference record. Nil fields are
// left untouched by the store; ClearMaxLifetime unsets the lifetime cap,
// which is distinct from both "set to zero" and "leave alone".
type PreferencePatch struct {
	EnableAutoShutdown          *bool
	MaxLifetimeSeconds          *int64
	ClearMaxLifetime            bool
	EnableSessionNotifications  *bool
	SessionNotificationPeriod   *int64
	NotifyCollaboratorAdditions *bool
}

// ActionKind discriminates what the reconciler must do for one user.
type ActionKind int

const (
	// ActionNone means no rule applied: the user keeps their current state
	// and no write of any kind is issued.
	ActionNone ActionKind = iota
	// ActionUpsert merges the patch into the record, creating it if absent.
	ActionUpsert
	// ActionDelete removes the whole preference record.
	ActionDelete
)

func (k ActionKind) String() string {
	switch k {
	case ActionUpsert:
		return "upsert"
	case ActionDelete:
		return "delete"
	default:
		return "none"
	}
}

// Decision is the computed outcome for a single user. Patch is only
// meaningful when Kind is ActionUpsert.
type Decision struct {
	UserID  string
	LoginID string
	Kind    ActionKind
	Patch   PreferencePatch
}

// Resolve computes the decision for one user. The snapshot must already have
// passed ShortCircuit; Resolve assumes auto-shutdown is enabled and the
// default/max relationship is valid.
//
// Precedence: an explicit override wins and is taken verbatim (never clamped
// to the global max, negative values allowed); otherwise OverrideToDefault
// applies the global default; otherwise the user is untouched.
func Resolve(cfg Snapshot, req OverrideRequest, userID, loginID string, prior *Preference) Decision {
	lifetime, ok := effectiveLifetime(cfg, req, loginID)
	if !ok {
		return Decision{UserID: userID, LoginID: loginID, Kind: ActionNone}
	}

	if lifetime < 0 {
		return Decision{UserID: userID, LoginID: loginID, Kind: ActionDelete}
	}

	patch := PreferencePatch{
		EnableAutoShutdown: boolPtr(cfg.AutoShutdownEnabled),
	}
	if lifetime > 0 {
		patch.MaxLifetimeSeconds = int64Ptr(lifetime)
	} else {
		patch.ClearMaxLifetime = true
	}
	if cfg.NotificationsEnabled {
		patch.EnableSessionNotifications = boolPtr(true)
		patch.SessionNotificationPeriod = int64Ptr(cfg.NotificationPeriodSeconds)
	}
	if prior == nil {
		// One-time default, never re-applied to existing records.
		patch.NotifyCollaboratorAdditions = boolPtr(true)
	}

	return Decision{UserID: userID, LoginID: loginID, Kind: ActionUpsert, Patch: patch}
}

func effectiveLifetime(cfg Snapshot, req OverrideRequest, loginID string) (int64, bool) {
	if lifetime, found := req.Users[loginID]; found {
		return lifetime, true
	}
	if req.OverrideToDefault {
		return cfg.GlobalDefaultLifetimeSeconds, true
	}
	return 0, false
}

func boolPtr(v bool) *bool    { return &v }
func int64Ptr(v int64) *int64 { return &v }

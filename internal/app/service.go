package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"autoshutdown/api/internal/authz"
	"autoshutdown/api/internal/rules"
	"autoshutdown/api/internal/store"
)

type dataStore interface {
	LoadConfigSnapshot(context.Context) (rules.Snapshot, error)
	EnumerateUsers(context.Context) ([]store.UserPreference, error)
	ApplyPreferencePatch(context.Context, string, rules.PreferencePatch) error
	DeletePreference(context.Context, string) error
	Ping(context.Context) error
}

type Service struct {
	store      dataStore
	authorizer authz.Authorizer
}

func New(dataStore dataStore, authorizer authz.Authorizer) *Service {
	return &Service{store: dataStore, authorizer: authorizer}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ApplyRulesResult is the success body of the rules endpoint. A policy
// short-circuit is still a success: Message explains it and every count is
// zero.
type ApplyRulesResult struct {
	Message string `json:"msg"`
	Updated int    `json:"updated"`
	Deleted int    `json:"deleted"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// ApplyRules runs the whole operation: one authorization check, one config
// read, one enumeration, then a sequential per-user resolve-and-apply loop.
// A failure applying one user's decision is logged and counted but never
// blocks the remaining users.
func (s *Service) ApplyRules(ctx context.Context, credential string, req rules.OverrideRequest) (ApplyRulesResult, error) {
	allowed, err := s.authorizer.Authorize(ctx, credential)
	if err != nil {
		return ApplyRulesResult{}, fmt.Errorf("authorize: %w", err)
	}
	if !allowed {
		return ApplyRulesResult{}, domainError(http.StatusForbidden, "FORBIDDEN",
			"Unauthorized - must be an admin or one of the allowed users")
	}

	snapshot, err := s.store.LoadConfigSnapshot(ctx)
	if err != nil {
		return ApplyRulesResult{}, fmt.Errorf("load config: %w", err)
	}
	if reason := snapshot.ShortCircuit(); reason != "" {
		log.Printf("rules: policy short-circuit: %s", reason)
		return ApplyRulesResult{Message: reason}, nil
	}

	users, err := s.store.EnumerateUsers(ctx)
	if err != nil {
		return ApplyRulesResult{}, fmt.Errorf("enumerate users: %w", err)
	}

	var result ApplyRulesResult
	for _, entry := range users {
		decision := rules.Resolve(snapshot, req, entry.User.ID, entry.User.LoginID, entry.Preference)
		if decision.Kind == rules.ActionNone {
			result.Skipped++
			log.Printf("rules: user=%s action=none", entry.User.LoginID)
			continue
		}
		if err := s.applyDecision(ctx, decision); err != nil {
			result.Failed++
			log.Printf("rules: user=%s action=%s failed: %v", entry.User.LoginID, decision.Kind, err)
			continue
		}
		switch decision.Kind {
		case rules.ActionDelete:
			result.Deleted++
		case rules.ActionUpsert:
			result.Updated++
		}
		log.Printf("rules: user=%s action=%s ok", entry.User.LoginID, decision.Kind)
	}

	attempted := result.Updated + result.Deleted + result.Failed
	if attempted > 0 && result.Failed == attempted {
		return ApplyRulesResult{}, domainError(http.StatusInternalServerError, "STORE_ERROR",
			fmt.Sprintf("all %d preference writes failed", attempted))
	}

	result.Message = "Workspace shutdown durations updated"
	return result, nil
}

func (s *Service) applyDecision(ctx context.Context, decision rules.Decision) error {
	switch decision.Kind {
	case rules.ActionDelete:
		return s.store.DeletePreference(ctx, decision.UserID)
	case rules.ActionUpsert:
		return s.store.ApplyPreferencePatch(ctx, decision.UserID, decision.Patch)
	default:
		return nil
	}
}

// Package suggest supplies the policy functions the suggestion sync
// collaborator runs with: composite identity keys, new-suggestion mapping,
// and the merge rule that protects human edits across automated re-runs.
package suggest

import (
	"context"
	"fmt"
	"strings"

	"github.com/a11ykit/remedia/internal/models"
	"github.com/a11ykit/remedia/internal/opportunity"
	"github.com/a11ykit/remedia/pkg/logger"
)

const keySeparator = "|"

// BuildKey derives the identity key a candidate group is matched on across
// runs: url|issueType|targetSelector, plus |source when present. The key is
// always built from the FIRST issue in the group, one key per page, issue and
// selector. Missing issues or selectors degrade to shorter or trailing-empty
// keys instead of failing; key stability is what makes synchronization
// idempotent, so the shape must never change.
func BuildKey(group models.CandidateGroup) string {
	parts := []string{group.URL}

	if len(group.Issues) > 0 {
		first := group.Issues[0]
		selector := ""
		if len(first.HTMLWithIssues) > 0 {
			selector = first.HTMLWithIssues[0].TargetSelector
		}
		parts = append(parts, first.Type, selector)
	}

	if group.Source != "" {
		parts = append(parts, group.Source)
	}

	return strings.Join(parts, keySeparator)
}

// MapNewSuggestion returns the mapping function that turns an unmatched
// candidate group into a new store row for the given opportunity. Rank is
// the sum of occurrences across the group's issues.
func MapNewSuggestion(opportunityID string) func(models.CandidateGroup) models.NewSuggestion {
	return func(group models.CandidateGroup) models.NewSuggestion {
		rank := 0
		for _, issue := range group.Issues {
			rank += issue.Occurrences
		}

		return models.NewSuggestion{
			OpportunityID: opportunityID,
			Type:          models.SuggestionTypeCodeChange,
			Status:        models.SuggestionStatusNew,
			Rank:          rank,
			Data: models.SuggestionData{
				URL:      group.URL,
				Source:   group.Source,
				Issues:   group.Issues,
				JiraLink: "",
			},
		}
	}
}

// MergeData merges freshly aggregated data into a previously stored
// suggestion. Incoming fields win, except a human-edited recommendedAction,
// which survives the re-run.
func MergeData(existing, incoming models.SuggestionData) models.SuggestionData {
	merged := incoming
	if existing.IsEdited && existing.RecommendedAction != nil {
		merged.RecommendedAction = existing.RecommendedAction
	}
	return merged
}

// KeepLatestMergeData replaces stored data wholesale. Used by auditors whose
// suggestions carry no user-editable fields.
func KeepLatestMergeData(_, incoming models.SuggestionData) models.SuggestionData {
	return incoming
}

// SyncParams carries one synchronization request to the sync collaborator.
type SyncParams struct {
	Opportunity      opportunity.Opportunity
	NewData          []models.CandidateGroup
	BuildKey         func(models.CandidateGroup) string
	MapNewSuggestion func(models.CandidateGroup) models.NewSuggestion
	MergeData        func(existing, incoming models.SuggestionData) models.SuggestionData
}

// Syncer performs the actual diff/create/update of suggestion rows.
type Syncer interface {
	SyncSuggestions(ctx context.Context, params SyncParams) error
}

// Synchronizer binds the standard policy functions to a Syncer.
type Synchronizer struct {
	syncer Syncer
	log    logger.Logger
}

// NewSynchronizer creates a synchronizer over the given sync collaborator.
func NewSynchronizer(syncer Syncer, log logger.Logger) *Synchronizer {
	return &Synchronizer{syncer: syncer, log: log}
}

// Sync reconciles the opportunity's stored suggestions against fresh
// candidate groups. A write failure is logged and rethrown; the caller sees
// the batch as failed and no partial writes are retried here.
func (s *Synchronizer) Sync(ctx context.Context, opp opportunity.Opportunity, groups []models.CandidateGroup) error {
	params := SyncParams{
		Opportunity:      opp,
		NewData:          groups,
		BuildKey:         BuildKey,
		MapNewSuggestion: MapNewSuggestion(opp.ID()),
		MergeData:        MergeData,
	}

	if err := s.syncer.SyncSuggestions(ctx, params); err != nil {
		s.log.Error("[A11yProcessingError] Failed to sync suggestions",
			"opportunity", opp.ID(), "error", err)
		return fmt.Errorf("syncing suggestions for opportunity %s: %w", opp.ID(), err)
	}

	return nil
}

package rules

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service owns the rule lifecycle: the template catalog, instantiation,
// CRUD, and evaluation runs against trade snapshots.
type Service struct {
	repo      *Repository
	templates []RuleTemplate
	log       zerolog.Logger
}

// NewService creates the rules service with the built-in template catalog
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		templates: BuiltinTemplates(),
		log:       log.With().Str("service", "rules").Logger(),
	}
}

// GroupedTemplates returns the catalog bucketed in fixed category order
func (s *Service) GroupedTemplates() []TemplateGroup {
	return GroupTemplates(s.templates)
}

// Template looks up a catalog template by id
func (s *Service) Template(id string) (*RuleTemplate, bool) {
	for i := range s.templates {
		if s.templates[i].ID == id {
			return &s.templates[i], true
		}
	}
	return nil, false
}

// Instantiate turns a template into a live rule: fresh id, enabled,
// trigger counter at zero, conditions copied so later edits to the rule
// never reach back into the catalog.
func Instantiate(template *RuleTemplate) Rule {
	now := time.Now().UTC()

	conditions := make([]Condition, len(template.Conditions))
	copy(conditions, template.Conditions)

	params := make(map[string]any, len(template.Action.Params))
	for k, v := range template.Action.Params {
		params[k] = v
	}
	if len(params) == 0 {
		params = nil
	}

	return Rule{
		ID:             uuid.NewString(),
		Name:           template.Name,
		Description:    template.Description,
		StrategyType:   template.StrategyType,
		Conditions:     conditions,
		Action:         Action{ActionType: template.Action.ActionType, Params: params},
		IsEnabled:      true,
		TimesTriggered: 0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Toggle returns a copy of the rule with only is_enabled changed
func Toggle(rule Rule, enabled bool) Rule {
	rule.IsEnabled = enabled
	return rule
}

// InstantiateTemplate creates and persists a rule from a catalog template
func (s *Service) InstantiateTemplate(templateID string) (*Rule, error) {
	template, ok := s.Template(templateID)
	if !ok {
		return nil, fmt.Errorf("unknown rule template %q", templateID)
	}

	rule := Instantiate(template)
	if err := s.repo.Create(&rule); err != nil {
		return nil, err
	}

	s.log.Info().Str("template", templateID).Str("rule_id", rule.ID).Msg("Rule instantiated")
	return &rule, nil
}

// CreateRule persists a user-authored rule, assigning an id when absent
func (s *Service) CreateRule(rule Rule) (*Rule, error) {
	if rule.Name == "" {
		return nil, fmt.Errorf("rule name is required")
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	rule.TimesTriggered = 0

	if err := s.repo.Create(&rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// List returns all persisted rules
func (s *Service) List() ([]Rule, error) {
	rules, err := s.repo.List()
	if err != nil {
		return nil, err
	}
	if rules == nil {
		rules = []Rule{}
	}
	return rules, nil
}

// SetEnabled toggles a rule and returns its updated state
func (s *Service) SetEnabled(id string, enabled bool) (*Rule, error) {
	if err := s.repo.SetEnabled(id, enabled); err != nil {
		return nil, err
	}
	return s.repo.GetByID(id)
}

// Delete removes a rule
func (s *Service) Delete(id string) error {
	return s.repo.Delete(id)
}

// EvaluateSnapshots runs all enabled rules against the snapshots,
// persists trigger counts for matched rules and returns the matches.
func (s *Service) EvaluateSnapshots(snapshots []TradeSnapshot) ([]Match, error) {
	enabled, err := s.repo.ListEnabled()
	if err != nil {
		return nil, err
	}

	matches := Evaluate(enabled, snapshots)

	for _, m := range matches {
		if err := s.repo.IncrementTriggered(m.RuleID); err != nil {
			// Counter failures don't invalidate the evaluation
			s.log.Warn().Err(err).Str("rule_id", m.RuleID).Msg("Failed to bump trigger counter")
		}
	}

	s.log.Debug().
		Int("rules", len(enabled)).
		Int("snapshots", len(snapshots)).
		Int("matches", len(matches)).
		Msg("Rule evaluation completed")
	return matches, nil
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/ports"
)

// RuleEvaluator decides per source whether new items trigger generation.
type RuleEvaluator struct {
	rules   ports.RuleRepository
	items   ports.FeedItemRepository
	monitor *GenerationMonitor
	logger  *slog.Logger
}

// NewRuleEvaluator wires the evaluator.
func NewRuleEvaluator(rules ports.RuleRepository, items ports.FeedItemRepository, monitor *GenerationMonitor, logger *slog.Logger) *RuleEvaluator {
	return &RuleEvaluator{
		rules:   rules,
		items:   items,
		monitor: monitor,
		logger:  componentLogger(logger, "automation"),
	}
}

// Evaluation counts what the rules did with a batch.
type Evaluation struct {
	Queued  int
	Skipped int
	Ignored int
}

// Evaluate applies the first matching enabled rule to every item. Sources
// without autoGenerate ignore the batch; sources without rules get a rule that
// generates every item up to the source's maxItems.
func (e *RuleEvaluator) Evaluate(ctx context.Context, source domain.Source, items []domain.FeedItem) (Evaluation, error) {
	var eval Evaluation
	if !source.Config.AutoGenerate {
		eval.Ignored = len(items)
		return eval, nil
	}

	rules, err := e.rules.ListBySource(ctx, source.ID)
	if err != nil {
		return eval, fmt.Errorf("load rules for source %s: %w", source.ID, err)
	}
	rules = lo.Filter(rules, func(r domain.AutomationRule, _ int) bool { return r.Enabled })
	if len(rules) == 0 {
		rules = []domain.AutomationRule{defaultRule(source)}
	}

	queued := map[string]int{}
	for _, item := range items {
		rule, ok := lo.Find(rules, func(r domain.AutomationRule) bool { return r.Conditions.Matches(item) })
		if !ok {
			eval.Ignored++
			continue
		}
		for _, action := range rule.Actions {
			if err := e.apply(ctx, source, rule, action, item, queued, &eval); err != nil {
				return eval, err
			}
		}
	}

	e.logger.Info("rules evaluated",
		"source_id", source.ID,
		"queued", eval.Queued,
		"skipped", eval.Skipped,
		"ignored", eval.Ignored)
	return eval, nil
}

func (e *RuleEvaluator) apply(ctx context.Context, source domain.Source, rule domain.AutomationRule, action domain.Action, item domain.FeedItem, queued map[string]int, eval *Evaluation) error {
	switch a := action.(type) {
	case domain.GenerateArticles:
		limit := a.MaxItems
		if limit <= 0 {
			limit = source.Config.MaxItems
		}
		if limit > 0 && queued[rule.ID] >= limit {
			eval.Ignored++
			return nil
		}
		_, created, err := e.monitor.Create(ctx, item, a.Priority)
		if err != nil {
			return err
		}
		if created {
			queued[rule.ID]++
			eval.Queued++
		}
	case domain.SkipItems:
		if err := e.items.MarkProcessed(ctx, item.ID, ""); err != nil {
			return fmt.Errorf("skip item %s: %w", item.ID, err)
		}
		e.logger.Debug("item skipped", "feed_item_id", item.ID, "rule", rule.Name, "reason", a.Reason)
		eval.Skipped++
	default:
		return fmt.Errorf("rule %s: action %T: %w", rule.ID, action, domain.ErrUnknownStatus)
	}
	return nil
}

func defaultRule(source domain.Source) domain.AutomationRule {
	return domain.AutomationRule{
		ID:       "default:" + source.ID,
		SourceID: source.ID,
		Name:     "generate all",
		Enabled:  true,
		Actions:  domain.Actions{domain.GenerateArticles{MaxItems: source.Config.MaxItems}},
	}
}

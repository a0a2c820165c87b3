package promo

import (
	"slices"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Item is the engine's view of one cart line: a stable key, the product it
// references, the unit price already resolved for the selected variant, and
// the quantity in the cart.
type Item struct {
	Key       string
	ProductID string
	UnitPrice decimal.Decimal
	Quantity  int
}

// FreeItem records the free units granted on one cart line.
type FreeItem struct {
	Item
	FreeQuantity int
	Savings      decimal.Decimal
}

// DiscountedItem records the paid/free quantity split of one applicable line.
type DiscountedItem struct {
	Item
	OriginalQuantity int
	PaidQuantity     int
	FreeQuantity     int
}

// Info carries the descriptive counters of an evaluation, for display.
type Info struct {
	Type                 Type
	BuyQuantity          int
	FreeQuantity         int
	SetsEligible         int
	TotalFreeItems       int
	TotalApplicableItems int
}

// Result is the outcome of evaluating a single rule against a cart.
type Result struct {
	Savings         decimal.Decimal
	FreeItems       []FreeItem
	DiscountedItems []DiscountedItem
	Info            Info
}

// Applied pairs the winning rule with its evaluation result.
type Applied struct {
	Rule   Rule
	Result Result
}

// Summary is the single discount applied to a cart. Applied holds at most
// one entry: promotions are mutually exclusive and never stack.
type Summary struct {
	TotalSavings    decimal.Decimal
	Applied         []Applied
	FreeItems       []FreeItem
	DiscountedItems []DiscountedItem
}

// Progress reports how close the cart is to satisfying one rule, for
// upsell messaging.
type Progress struct {
	Rule             Rule
	Eligible         bool
	ItemsNeeded      int
	CurrentQuantity  int
	PotentialSavings decimal.Decimal
	Description      string
}

// Engine evaluates promotion rules against cart lines. All methods are pure
// and never fail: malformed rules and unknown types degrade to zero savings.
type Engine struct {
	lg *zap.Logger
}

// NewEngine creates an Engine. A nil logger disables diagnostics.
func NewEngine(lg *zap.Logger) *Engine {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Engine{lg: lg}
}

func zeroResult() Result {
	return Result{Savings: decimal.Zero}
}

// Evaluate computes the concrete savings of one buy-X-get-Y rule.
//
// The rule only fires when the cart holds at least one complete bundle of
// buy+free applicable units: partial bundles never grant partial discounts.
// Free units go to the cheapest applicable lines first, so the shop gives
// away the least revenue possible.
func (e *Engine) Evaluate(items []Item, rule Rule) Result {
	applicable := make([]Item, 0, len(items))
	for _, it := range items {
		if rule.AppliesTo(it.ProductID) {
			applicable = append(applicable, it)
		}
	}
	if len(applicable) == 0 || rule.BuyQuantity <= 0 || rule.FreeQuantity <= 0 {
		return zeroResult()
	}

	totalQuantity := 0
	for _, it := range applicable {
		totalQuantity += it.Quantity
	}

	bundleSize := rule.BuyQuantity + rule.FreeQuantity
	if totalQuantity < bundleSize {
		e.lg.Debug("promotion below bundle threshold",
			zap.String("rule", rule.ID),
			zap.Int("required", bundleSize),
			zap.Int("in_cart", totalQuantity),
		)
		return zeroResult()
	}

	setsEligible := totalQuantity / bundleSize
	freeBudget := setsEligible * rule.FreeQuantity
	if freeBudget == 0 {
		return zeroResult()
	}

	// Cheapest lines first. The sort is stable so equally priced lines keep
	// cart order, which keeps the whole computation deterministic.
	cheapest := slices.Clone(applicable)
	sort.SliceStable(cheapest, func(i, j int) bool {
		return cheapest[i].UnitPrice.LessThan(cheapest[j].UnitPrice)
	})

	savings := decimal.Zero
	freeItems := make([]FreeItem, 0, len(cheapest))
	discounted := make([]DiscountedItem, 0, len(applicable))
	freeByKey := make(map[string]int, len(cheapest))

	remaining := freeBudget
	for _, it := range cheapest {
		if remaining <= 0 {
			break
		}
		free := min(remaining, it.Quantity)
		lineSavings := it.UnitPrice.Mul(decimal.NewFromInt(int64(free)))

		freeItems = append(freeItems, FreeItem{
			Item:         it,
			FreeQuantity: free,
			Savings:      lineSavings,
		})
		discounted = append(discounted, DiscountedItem{
			Item:             it,
			OriginalQuantity: it.Quantity,
			PaidQuantity:     it.Quantity - free,
			FreeQuantity:     free,
		})
		freeByKey[it.Key] = free
		savings = savings.Add(lineSavings)
		remaining -= free
	}

	// Lines untouched by the free budget are fully paid.
	for _, it := range applicable {
		if _, ok := freeByKey[it.Key]; ok {
			continue
		}
		discounted = append(discounted, DiscountedItem{
			Item:             it,
			OriginalQuantity: it.Quantity,
			PaidQuantity:     it.Quantity,
			FreeQuantity:     0,
		})
	}

	e.lg.Debug("promotion evaluated",
		zap.String("rule", rule.ID),
		zap.Int("sets_eligible", setsEligible),
		zap.Int("free_items", freeBudget),
		zap.String("savings", savings.String()),
	)

	return Result{
		Savings:         savings,
		FreeItems:       freeItems,
		DiscountedItems: discounted,
		Info: Info{
			Type:                 rule.Type,
			BuyQuantity:          rule.BuyQuantity,
			FreeQuantity:         rule.FreeQuantity,
			SetsEligible:         setsEligible,
			TotalFreeItems:       freeBudget,
			TotalApplicableItems: totalQuantity,
		},
	}
}

// SelectBest evaluates every active rule and applies exactly one: the rule
// with the highest savings, then the most free items, then the highest buy
// requirement. Rules of unknown type are skipped with a warning. When no
// rule produces savings, the summary is all-zero with empty slices.
func (e *Engine) SelectBest(items []Item, rules []Rule) Summary {
	var candidates []Applied
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		if rule.Type != TypeBuyXGetY {
			e.lg.Warn("unknown promotion type, skipping",
				zap.String("rule", rule.ID),
				zap.String("type", string(rule.Type)),
			)
			continue
		}
		res := e.Evaluate(items, rule)
		if res.Savings.IsPositive() {
			candidates = append(candidates, Applied{Rule: rule, Result: res})
		}
	}

	if len(candidates) == 0 {
		return Summary{
			TotalSavings:    decimal.Zero,
			Applied:         []Applied{},
			FreeItems:       []FreeItem{},
			DiscountedItems: []DiscountedItem{},
		}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if betterDiscount(c, best) {
			best = c
		}
	}

	e.lg.Debug("promotion selected",
		zap.String("rule", best.Rule.ID),
		zap.String("savings", best.Result.Savings.String()),
		zap.Int("candidates", len(candidates)),
	)

	return Summary{
		TotalSavings:    best.Result.Savings,
		Applied:         []Applied{best},
		FreeItems:       best.Result.FreeItems,
		DiscountedItems: best.Result.DiscountedItems,
	}
}

// betterDiscount reports whether a beats b under the selection priority:
// higher savings, then more free items, then higher buy requirement.
func betterDiscount(a, b Applied) bool {
	if c := a.Result.Savings.Cmp(b.Result.Savings); c != 0 {
		return c > 0
	}
	if a.Result.Info.TotalFreeItems != b.Result.Info.TotalFreeItems {
		return a.Result.Info.TotalFreeItems > b.Result.Info.TotalFreeItems
	}
	return a.Rule.BuyQuantity > b.Rule.BuyQuantity
}

// Progress reports, for every active rule with at least one applicable line,
// how many more items the shopper needs and what they would save.
//
// The eligibility threshold here is the looser buy-quantity check, not the
// evaluator's full bundle size. The storefront has always surfaced "you
// qualify" banners slightly before the discount engine actually fires;
// keep the two thresholds separate.
func (e *Engine) Progress(items []Item, rules []Rule) []Progress {
	var out []Progress
	for _, rule := range rules {
		if !rule.Active || rule.Type != TypeBuyXGetY {
			continue
		}

		quantity := 0
		matched := false
		for _, it := range items {
			if rule.AppliesTo(it.ProductID) {
				quantity += it.Quantity
				matched = true
			}
		}
		if !matched {
			continue
		}

		eligible := quantity >= rule.BuyQuantity
		potential := decimal.Zero
		if eligible {
			potential = e.Evaluate(items, rule).Savings
		}

		out = append(out, Progress{
			Rule:             rule,
			Eligible:         eligible,
			ItemsNeeded:      max(0, rule.BuyQuantity-quantity),
			CurrentQuantity:  quantity,
			PotentialSavings: potential,
			Description:      rule.Description(),
		})
	}

	// Highest payoff first.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PotentialSavings.GreaterThan(out[j].PotentialSavings)
	})
	return out
}

package clause_engine

import (
	"regexp"
	"sort"

	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// ─────────────────────────────────────────────────────────────────────────────
// Payout amount rules
//
// The payout amount is the richest field: tiered schedules staged by policy
// year or insured age, flat percentages of the basic sum insured, multiples,
// fixed amounts, and premium refunds.  Tier recognition tolerates several
// word orders; tiers are always normalized to chronological order, never
// match order.
// ─────────────────────────────────────────────────────────────────────────────

var (
	// One policy-year tier segment: "前3个保单年度…基本保险金额的150%",
	// "第4个保单年度起…基本保险金额的100%", "第2至5个保单年度…".
	// A base with no explicit percentage implies 100%.
	yearTierSegRe = regexp.MustCompile(
		`((?:前|头|首)(` + numCls + `)个?保单年度|` +
			`第(` + numCls + `)(?:至|到)(` + numCls + `)个?保单年度|` +
			`第(` + numCls + `)个?保单年度(?:起|开始|及以后)?)` +
			`[^。；]{0,30}?` + sumBase + `(?:的(` + decCls + `)[%％])?`)

	// The reversed word order: "按基本保险金额的150%给付（前3个保单年度）".
	yearTierSegRevRe = regexp.MustCompile(
		sumBase + `的(` + decCls + `)[%％][^，。；]{0,10}?[（(]?` +
			`((?:前|头|首)(` + numCls + `)个?保单年度|第(` + numCls + `)个?保单年度(?:起|开始|及以后)?)[）)]?`)

	// One insured-age tier segment: "18周岁前…30%", "年满18周岁后…100%",
	// "18周岁至60周岁…80%".
	ageTierSegRe = regexp.MustCompile(
		`((` + numCls + `)周?岁(?:至|到)(` + numCls + `)周?岁|` +
			`(?:被保险人)?(?:年满)?(` + numCls + `)周?岁(?:前|之前|以前)|` +
			`(?:被保险人)?(?:年满)?(` + numCls + `)周?岁(?:后|之后|以后|起))` +
			`[^。；]{0,30}?` + sumBase + `(?:的(` + decCls + `)[%％])?`)

	amountPercentRe = regexp.MustCompile(
		`(?:按|给付)?(基本保险金额|保险金额)的(` + decCls + `)[%％]`)

	amountMultipleRe = regexp.MustCompile(
		`(基本保险金额|保险金额)的(` + decCls + `)倍|(` + decCls + `)倍(?:的)?(?:基本)?保险金额`)

	amountBasicPlainRe = regexp.MustCompile(
		`按(?:本合同|本附加合同)?基本保险金额(?:向[^，。；]{0,10})?给付`)

	amountPremiumPctRe = regexp.MustCompile(
		`(累计已交保险费|已交保险费|所交保险费)的(` + decCls + `)[%％]`)

	amountPremiumRefundRe = regexp.MustCompile(
		`(?:无息)?(?:返还|退还|给付)(?:您|投保人)?(?:本合同)?(?:累计)?(?:所交|已交)(?:的)?保险费`)

	amountFixedRe = regexp.MustCompile(
		`(?:给付|赔付|支付)(?:保险金)?(?:人民币)?(` + decCls + `)(万)?元`)
)

// mapBase converts a captured base phrase to its AmountBase.
func mapBase(phrase string) types.AmountBase {
	switch phrase {
	case "累计已交保险费", "已交保险费", "所交保险费":
		return types.BasePaidPremium
	default:
		return types.BaseBasicSumInsured
	}
}

// amountSentinel is the payout-amount "no information" result.
func amountSentinel() Result {
	return &types.PayoutAmountResult{FieldCore: types.SentinelCore()}
}

// NewPayoutAmountRuleSet builds the payout-amount rule set for a category.
// The skip-leading-paid-premium policy is enabled for disease and death,
// where the waiting-window refund convention is attested; for the remaining
// categories it stays off pending evidence that the convention generalizes.
func NewPayoutAmountRuleSet(cat types.CoverageCategory) *RuleSet {
	return &RuleSet{
		Field:                  types.FieldPayoutAmount,
		Category:               cat,
		Sentinel:               amountSentinel,
		SkipLeadingPaidPremium: cat == types.CategoryDisease || cat == types.CategoryDeath,
		Rules: []Rule{
			{Name: "amount_tiered_policy_year", Pattern: yearTierSegRe, Handler: tieredYearHandler},
			{Name: "amount_tiered_age", Pattern: ageTierSegRe, Handler: tieredAgeHandler},
			{Name: "amount_percentage", Pattern: amountPercentRe, Handler: percentHandler},
			{Name: "amount_multiple", Pattern: amountMultipleRe, Handler: multipleHandler},
			{Name: "amount_basic_sum_plain", Pattern: amountBasicPlainRe, Handler: basicPlainHandler},
			{Name: "amount_paid_premium_pct", Pattern: amountPremiumPctRe, Handler: premiumPctHandler},
			{Name: "amount_premium_refund", Pattern: amountPremiumRefundRe, Handler: premiumRefundHandler},
			{Name: "amount_fixed", Pattern: amountFixedRe, Handler: fixedHandler},
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Tier collection
// ─────────────────────────────────────────────────────────────────────────────

// collectedTier is one tier segment in positional order, before the
// chronological sort.
type collectedTier struct {
	tier  types.Tier
	order int
	start int
	end   int
}

// collectYearTiers gathers policy-year tier segments in both word orders.
func collectYearTiers(clause string) ([]collectedTier, bool) {
	var out []collectedTier
	clean := true

	for _, idx := range yearTierSegRe.FindAllStringSubmatchIndex(clause, -1) {
		m := Match{Clause: clause, Start: idx[0], End: idx[1], Index: idx}
		period := m.Group(1)
		base := mapBase(m.Group(6))

		value := 100.0
		if raw := m.Group(7); raw != "" {
			v, ok := ParseDecimal(raw)
			if !ok {
				clean = false
			}
			value = v
		}

		order := 1 // 前N covers years 1..N
		switch {
		case m.Group(3) != "":
			if n, ok := ParseCount(m.Group(3)); ok {
				order = n
			} else {
				clean = false
			}
		case m.Group(5) != "":
			if n, ok := ParseCount(m.Group(5)); ok {
				order = n
			} else {
				clean = false
			}
		}

		out = append(out, collectedTier{
			tier:  types.Tier{Period: period, Value: value, Unit: types.TierUnitPercentage, Base: base},
			order: order,
			start: idx[0],
			end:   idx[1],
		})
	}

	if len(out) < 2 {
		for _, idx := range yearTierSegRevRe.FindAllStringSubmatchIndex(clause, -1) {
			m := Match{Clause: clause, Start: idx[0], End: idx[1], Index: idx}
			value, ok := ParseDecimal(m.Group(2))
			if !ok {
				clean = false
			}
			order := 1
			if raw := m.Group(5); raw != "" {
				if n, ok := ParseCount(raw); ok {
					order = n
				} else {
					clean = false
				}
			}
			out = append(out, collectedTier{
				tier:  types.Tier{Period: m.Group(3), Value: value, Unit: types.TierUnitPercentage, Base: mapBase(m.Group(1))},
				order: order,
				start: idx[0],
				end:   idx[1],
			})
		}
	}
	return out, clean
}

// collectAgeTiers gathers insured-age tier segments.
func collectAgeTiers(clause string) ([]collectedTier, bool) {
	var out []collectedTier
	clean := true

	for _, idx := range ageTierSegRe.FindAllStringSubmatchIndex(clause, -1) {
		m := Match{Clause: clause, Start: idx[0], End: idx[1], Index: idx}
		tier := types.Tier{
			Period: m.Group(1),
			Value:  100,
			Unit:   types.TierUnitPercentage,
			Base:   mapBase(m.Group(6)),
		}
		if raw := m.Group(7); raw != "" {
			v, ok := ParseDecimal(raw)
			if !ok {
				clean = false
			}
			tier.Value = v
		}

		order := 0
		switch {
		case m.Group(2) != "": // lo至hi
			lo, okLo := ParseCount(m.Group(2))
			hi, okHi := ParseCount(m.Group(3))
			if !okLo || !okHi {
				clean = false
			}
			tier.StartAge = &lo
			tier.EndAge = &hi
			order = lo
		case m.Group(4) != "": // N岁前
			n, ok := ParseCount(m.Group(4))
			if !ok {
				clean = false
			}
			zero := 0
			tier.StartAge = &zero
			tier.EndAge = &n
			order = 0
		case m.Group(5) != "": // N岁后
			n, ok := ParseCount(m.Group(5))
			if !ok {
				clean = false
			}
			tier.StartAge = &n
			order = n
		}

		out = append(out, collectedTier{tier: tier, order: order, start: idx[0], end: idx[1]})
	}
	return out, clean
}

// buildTieredResult normalizes collected tiers into a chronological tiered
// result with per-tier evidence spans.
func buildTieredResult(clause string, segs []collectedTier, clean bool, baseConf float64) Result {
	if len(segs) < 2 {
		return nil
	}

	// Evidence region and positional periods first.
	positional := make([]collectedTier, len(segs))
	copy(positional, segs)
	sort.SliceStable(positional, func(i, j int) bool { return positional[i].start < positional[j].start })

	regionStart, regionEnd := positional[0].start, positional[len(positional)-1].end
	region := ExtractCompleteSentence(regionStart, regionEnd, clause, false)

	periods := make([]string, len(positional))
	for i, s := range positional {
		periods[i] = s.tier.Period
	}
	spans := ExtractTieredText(region, periods)

	// Chronological order for the outward-facing tiers.
	chron := make([]int, len(positional))
	for i := range chron {
		chron[i] = i
	}
	sort.SliceStable(chron, func(i, j int) bool {
		return positional[chron[i]].order < positional[chron[j]].order
	})

	tiers := make([]types.Tier, len(chron))
	evidence := make(types.ExtractedText, len(chron))
	for outIdx, posIdx := range chron {
		tiers[outIdx] = positional[posIdx].tier
		if posIdx < len(spans) {
			evidence[outIdx] = spans[posIdx]
		} else {
			evidence[outIdx] = region
		}
	}

	conf := baseConf
	if !clean {
		conf = degrade(conf)
	}

	return &types.PayoutAmountResult{
		FieldCore: types.FieldCore{
			Type:          types.AmountTypeTiered,
			Confidence:    conf,
			ExtractedText: evidence,
		},
		Details: &types.AmountDetails{Tiers: tiers},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────────────────────────────────────

// tieredYearHandler recognizes multi-tier policy-year schedules.  A single
// segment is not a tiered structure; the handler withdraws and leaves the
// clause to the flat-percentage rules.
func tieredYearHandler(m Match) Result {
	segs, clean := collectYearTiers(m.Clause)
	return buildTieredResult(m.Clause, segs, clean, 0.98)
}

// tieredAgeHandler recognizes multi-tier insured-age schedules.
func tieredAgeHandler(m Match) Result {
	segs, clean := collectAgeTiers(m.Clause)
	return buildTieredResult(m.Clause, segs, clean, 0.97)
}

func percentHandler(m Match) Result {
	conf := 0.90
	value, ok := ParseDecimal(m.Group(2))
	if !ok {
		conf = degrade(conf)
	}
	return &types.PayoutAmountResult{
		FieldCore: types.FieldCore{
			Type:          types.AmountTypePercentage,
			Confidence:    conf,
			ExtractedText: types.ExtractedText{ExtractCompleteSentence(m.Start, m.End, m.Clause, false)},
		},
		Details: &types.AmountDetails{Value: value, Base: types.BaseBasicSumInsured},
	}
}

func multipleHandler(m Match) Result {
	raw := m.Group(2)
	if raw == "" {
		raw = m.Group(3)
	}
	conf := 0.88
	n, ok := ParseDecimal(raw)
	if !ok {
		conf = degrade(conf)
	}
	return &types.PayoutAmountResult{
		FieldCore: types.FieldCore{
			Type:          types.AmountTypePercentage,
			Confidence:    conf,
			ExtractedText: types.ExtractedText{ExtractCompleteSentence(m.Start, m.End, m.Clause, false)},
		},
		Details: &types.AmountDetails{Value: n * 100, Base: types.BaseBasicSumInsured},
	}
}

// basicPlainHandler covers "按基本保险金额给付" with no explicit percentage,
// which implies 100%.
func basicPlainHandler(m Match) Result {
	return &types.PayoutAmountResult{
		FieldCore: types.FieldCore{
			Type:          types.AmountTypePercentage,
			Confidence:    0.85,
			ExtractedText: types.ExtractedText{ExtractCompleteSentence(m.Start, m.End, m.Clause, false)},
		},
		Details: &types.AmountDetails{Value: 100, Base: types.BaseBasicSumInsured},
	}
}

func premiumPctHandler(m Match) Result {
	conf := 0.89
	value, ok := ParseDecimal(m.Group(2))
	if !ok {
		conf = degrade(conf)
	}
	return &types.PayoutAmountResult{
		FieldCore: types.FieldCore{
			Type:          types.AmountTypePaidPremium,
			Confidence:    conf,
			ExtractedText: types.ExtractedText{ExtractCompleteSentence(m.Start, m.End, m.Clause, false)},
		},
		Details: &types.AmountDetails{Value: value, Base: types.BasePaidPremium},
	}
}

func premiumRefundHandler(m Match) Result {
	return &types.PayoutAmountResult{
		FieldCore: types.FieldCore{
			Type:          types.AmountTypePaidPremium,
			Confidence:    0.88,
			ExtractedText: types.ExtractedText{ExtractCompleteSentence(m.Start, m.End, m.Clause, false)},
		},
		Details: &types.AmountDetails{Value: 100, Base: types.BasePaidPremium},
	}
}

func fixedHandler(m Match) Result {
	conf := 0.86
	amount, ok := ParseDecimal(m.Group(1))
	if !ok {
		conf = degrade(conf)
	}
	if m.Group(2) == "万" {
		amount *= 10000
	}
	return &types.PayoutAmountResult{
		FieldCore: types.FieldCore{
			Type:          types.AmountTypeFixed,
			Confidence:    conf,
			ExtractedText: types.ExtractedText{ExtractCompleteSentence(m.Start, m.End, m.Clause, false)},
		},
		Details: &types.AmountDetails{Value: amount},
	}
}

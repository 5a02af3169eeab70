package clause_engine

import (
	"sort"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Text span extraction
//
// Given a match location, these functions return the precise original
// substring — full clause, bounded sentence, or tiered sub-segment — to
// present as evidence.  The multi-stage fallbacks compensate for inconsistent
// clause punctuation (em dashes, nested parentheses, missing periods); their
// precision determines reviewer trust in the evidence shown.
// ─────────────────────────────────────────────────────────────────────────────

const (
	// backwardStopWindow bounds the backward scan for a sentence start, in runes.
	backwardStopWindow = 30
	// relatedLookahead bounds the search for a co-occurring qualifier, in runes.
	relatedLookahead = 200
	// maxSentenceRunes bounds the final evidence span; beyond it the span is
	// re-anchored to the delimiters immediately surrounding the match.
	maxSentenceRunes = 200
)

// relatedQualifiers are phrases that commonly co-occur with a match in a
// following sub-clause and change its reading (e.g. a same-disease
// exclusivity rider after an aggregate payout cap).
var relatedQualifiers = []string{
	"每种仅限",
	"每种疾病仅限",
	"仅限给付一次",
	"仅给付一次",
	"为限",
}

func isHardStop(r rune) bool {
	switch r {
	case '。', '！', '？', '!', '?', '\n':
		return true
	}
	return false
}

func isSoftStop(r rune) bool {
	switch r {
	case '，', '、', '；', ',', ';', '：', ':':
		return true
	}
	return false
}

func isForwardStop(r rune) bool {
	switch r {
	case '，', '；', '。', ',', ';', '.':
		return true
	}
	return false
}

func isEmDash(r rune) bool {
	return r == '—' || r == '─'
}

// ExtractCompleteSentence returns the bounded sentence around a match.
// matchStart/matchEnd are byte offsets into original, as produced by regexp.
//
// Backward: the nearest full-stop/newline within ~30 runes opens the
// sentence; failing that the nearest comma/semicolon; failing that the match
// itself.  Forward: an em-dash stops the span *before* it — dash asides are
// explanatory, not clause content — otherwise the nearest stop punctuation
// closes it.  One trailing soft-punctuation mark is trimmed, a full stop
// never is.
//
// With includeRelated set, a known co-occurring qualifier within 200 runes
// ahead extends the window (re-applying the forward stop scan); a span still
// exceeding 200 runes is re-anchored to the delimiters immediately
// surrounding the original match.
func ExtractCompleteSentence(matchStart, matchEnd int, original string, includeRelated bool) string {
	if original == "" || matchStart < 0 || matchEnd > len(original) || matchStart >= matchEnd {
		return ""
	}

	runes := []rune(original)
	starts := runeStarts(original)
	ms := runeIndexOf(starts, matchStart)
	me := runeIndexOf(starts, matchEnd)

	start := scanBackward(runes, ms)
	end := scanForward(runes, me)

	if includeRelated {
		if ext, ok := extendToQualifier(runes, start, end, me); ok {
			end = ext
		}
		if end-start > maxSentenceRunes {
			start, end = reanchor(runes, ms, me)
		}
	}

	start, end = balanceParens(runes, start, end)
	end = trimTrailingSoft(runes, start, end)

	if start >= end {
		return string(runes[ms:me])
	}
	return string(runes[start:end])
}

// scanBackward finds the sentence start before position ms.
func scanBackward(runes []rune, ms int) int {
	lo := ms - backwardStopWindow
	if lo < 0 {
		lo = 0
	}
	for i := ms - 1; i >= lo; i-- {
		if isHardStop(runes[i]) {
			return i + 1
		}
	}
	for i := ms - 1; i >= lo; i-- {
		if isSoftStop(runes[i]) {
			return i + 1
		}
	}
	return ms
}

// scanForward finds the exclusive sentence end at or after position me.
// An em-dash ends the span before itself; stop punctuation is included.
func scanForward(runes []rune, me int) int {
	for j := me; j < len(runes); j++ {
		if isEmDash(runes[j]) {
			return j
		}
		if isForwardStop(runes[j]) {
			return j + 1
		}
	}
	return len(runes)
}

// extendToQualifier searches ahead of the match for a known co-occurring
// qualifier and, when the current sentence lacks one, returns the extended
// end position after re-applying the forward stop scan.
func extendToQualifier(runes []rune, start, end, me int) (int, bool) {
	_ = start
	// Only the text after the match matters: the match itself frequently
	// contains a qualifier phrase ("以N次为限"), which must not veto the
	// lookahead for a rider that follows it.
	tail := ""
	if me < end {
		tail = string(runes[me:end])
	}
	for _, q := range relatedQualifiers {
		if strings.Contains(tail, q) {
			return 0, false
		}
	}

	hi := me + relatedLookahead
	if hi > len(runes) {
		hi = len(runes)
	}
	window := string(runes[me:hi])

	best := -1
	bestLen := 0
	for _, q := range relatedQualifiers {
		if at := strings.Index(window, q); at >= 0 {
			runeAt := len([]rune(window[:at]))
			if best == -1 || runeAt < best {
				best = runeAt
				bestLen = len([]rune(q))
			}
		}
	}
	if best < 0 {
		return 0, false
	}
	return scanForward(runes, me+best+bestLen), true
}

// reanchor clamps an over-long span to the delimiters immediately
// surrounding the original match.
func reanchor(runes []rune, ms, me int) (int, int) {
	start := ms
	for i := ms - 1; i >= 0; i-- {
		if isHardStop(runes[i]) || isSoftStop(runes[i]) {
			start = i + 1
			break
		}
		if i == 0 {
			start = 0
		}
	}
	end := len(runes)
	for j := me; j < len(runes); j++ {
		if isHardStop(runes[j]) || isSoftStop(runes[j]) {
			end = j + 1
			break
		}
	}
	return start, end
}

// balanceParens widens the span so it never splits a parenthesized aside
// relative to the source text.
func balanceParens(runes []rune, start, end int) (int, int) {
	open := 0
	for i := start; i < end; i++ {
		switch runes[i] {
		case '（', '(':
			open++
		case '）', ')':
			if open > 0 {
				open--
			} else {
				// Unmatched close: pull the start back to its opener.
				for j := start - 1; j >= 0; j-- {
					if runes[j] == '（' || runes[j] == '(' {
						start = j
						break
					}
				}
			}
		}
	}
	for open > 0 && end < len(runes) {
		if runes[end] == '）' || runes[end] == ')' {
			open--
		}
		end++
	}
	return start, end
}

// trimTrailingSoft drops one trailing soft-punctuation mark.  A full stop is
// never trimmed.
func trimTrailingSoft(runes []rune, start, end int) int {
	if end > start && isSoftStop(runes[end-1]) {
		return end - 1
	}
	return end
}

// ─────────────────────────────────────────────────────────────────────────────
// Tiered sub-segment extraction
// ─────────────────────────────────────────────────────────────────────────────

// circledEnumerators are single-rune list markers (①②③…).
const circledEnumerators = "①②③④⑤⑥⑦⑧⑨⑩"

// ExtractTieredText splits one multi-tier match into per-tier evidence spans.
// matchText is the whole tiered region; periods are the per-tier period
// phrases in order of appearance.  Boundaries are located, in order of
// preference, by enumerator markers ((1)、（2）、①…), by the period phrases
// themselves, or by semicolon/full-stop alternation; absent any internal
// boundary every tier receives the full match text rather than an empty
// string.
func ExtractTieredText(matchText string, periods []string) []string {
	n := len(periods)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []string{matchText}
	}

	if parts, ok := splitAt(matchText, enumeratorOffsets(matchText), n); ok {
		return parts
	}
	if parts, ok := splitAt(matchText, periodOffsets(matchText, periods), n); ok {
		return parts
	}
	if parts, ok := splitOnSeparators(matchText, n); ok {
		return parts
	}

	out := make([]string, n)
	for i := range out {
		out[i] = matchText
	}
	return out
}

// enumeratorOffsets returns the byte offsets of enumerator markers.
func enumeratorOffsets(s string) []int {
	var offs []int
	runes := []rune(s)
	byteOff := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if strings.ContainsRune(circledEnumerators, r) {
			offs = append(offs, byteOff)
		} else if (r == '（' || r == '(') && i+2 < len(runes) {
			next := runes[i+1]
			closer := runes[i+2]
			if (next >= '0' && next <= '9' || chineseDigitRune(next)) &&
				(closer == '）' || closer == ')') {
				offs = append(offs, byteOff)
			}
		}
		byteOff += len(string(r))
	}
	return offs
}

func chineseDigitRune(r rune) bool {
	_, ok := chineseDigit[r]
	return ok
}

// periodOffsets returns the offsets of each period phrase, provided every
// phrase is found and the offsets are strictly increasing.
func periodOffsets(s string, periods []string) []int {
	offs := make([]int, 0, len(periods))
	prev := -1
	from := 0
	for _, p := range periods {
		if p == "" {
			return nil
		}
		at := strings.Index(s[from:], p)
		if at < 0 {
			return nil
		}
		abs := from + at
		if abs <= prev {
			return nil
		}
		offs = append(offs, abs)
		prev = abs
		from = abs + len(p)
	}
	return offs
}

// splitAt cuts s at the given offsets when their count matches the tier count.
func splitAt(s string, offs []int, n int) ([]string, bool) {
	if len(offs) != n {
		return nil, false
	}
	sort.Ints(offs)
	out := make([]string, n)
	for i, off := range offs {
		end := len(s)
		if i+1 < n {
			end = offs[i+1]
		}
		seg := strings.Trim(s[off:end], "，；。,; \t")
		if seg == "" {
			return nil, false
		}
		out[i] = seg
	}
	return out, true
}

// splitOnSeparators splits on semicolons / full stops when the piece count
// matches the tier count.
func splitOnSeparators(s string, n int) ([]string, bool) {
	pieces := strings.FieldsFunc(s, func(r rune) bool {
		return r == '；' || r == ';' || r == '。'
	})
	kept := pieces[:0]
	for _, p := range pieces {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	if len(kept) != n {
		return nil, false
	}
	return append([]string(nil), kept...), true
}

// ─────────────────────────────────────────────────────────────────────────────
// Byte ↔ rune offset bookkeeping
// ─────────────────────────────────────────────────────────────────────────────

// runeStarts returns the byte offset of every rune in s.
func runeStarts(s string) []int {
	starts := make([]int, 0, len(s))
	for i := range s {
		starts = append(starts, i)
	}
	return starts
}

// runeIndexOf converts a byte offset to a rune index.  Offsets inside a
// multi-byte rune snap to that rune; the end-of-string offset maps past the
// last rune.
func runeIndexOf(starts []int, byteOff int) int {
	i := sort.SearchInts(starts, byteOff)
	if i == len(starts) || starts[i] == byteOff {
		return i
	}
	if i > 0 {
		return i - 1
	}
	return 0
}

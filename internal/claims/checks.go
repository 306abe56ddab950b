// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package claims

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var sha256Hex = regexp.MustCompile(`^[0-9a-f]{64}$`)

func checkRequired(r *run) bool {
	if len(r.settings.RequiredFields) == 0 {
		return false
	}
	for _, field := range r.settings.RequiredFields {
		v, ok := lookup(r.claim.Value, field)
		missing := isNull(v, ok)
		r.grade(DimensionLogical, !missing)
		if missing {
			r.report(SeverityError, CategoryNullCheck, field,
				"populate the field at extraction time",
				"required field %q is missing or null", field)
		}
	}
	return true
}

func checkRanges(r *run) bool {
	applied := false
	for _, l := range leaves(r.claim.Value) {
		kind := inferKind(leafName(l.path))
		if kind == kindPlain || kind == kindCount {
			continue
		}
		v, ok := numeric(l.value)
		if !ok {
			if l.value != nil {
				r.report(SeverityWarning, CategoryRange, l.path, "",
					"field %q looks numeric by name but holds %T", l.path, l.value)
			}
			continue
		}
		applied = true

		lo, hi, dim, label := rangeFor(kind, r.settings.YearWindow)
		ok = v >= lo && v <= hi
		r.grade(dim, ok)
		if !ok {
			suggestion := ""
			if kind == kindRate && v > 1 && v <= 100 {
				suggestion = "value looks like a percentage; store rates as fractions"
			}
			if kind == kindPercent && v > 0 && v < 1 {
				suggestion = "value may be a fraction; percentages are expected in [0,100]"
			}
			r.report(SeverityError, CategoryRange, l.path, suggestion,
				"%s field %q = %g outside [%g, %g]", label, l.path, v, lo, hi)
		}
	}
	return applied
}

func rangeFor(kind fieldKind, window YearWindow) (lo, hi float64, dim Dimension, label string) {
	switch kind {
	case kindPercent:
		return 0, 100, DimensionLogical, "percentage"
	case kindRate:
		return 0, 1, DimensionLogical, "rate"
	case kindYear:
		return float64(window.Min), float64(window.Max), DimensionTemporal, "year"
	default:
		return 0, 1, DimensionLogical, "score"
	}
}

func checkCounts(r *run) bool {
	applied := false
	for _, l := range leaves(r.claim.Value) {
		if inferKind(leafName(l.path)) != kindCount {
			continue
		}
		v, ok := numeric(l.value)
		if !ok {
			continue
		}
		applied = true
		r.grade(DimensionLogical, v >= 0)
		if v < 0 {
			r.report(SeverityError, CategoryNegativeCount, l.path, "",
				"count field %q is negative (%g)", l.path, v)
		}
	}
	return applied
}

// resolve looks up every field a rule names. applicable is false when none
// of them is present, in which case the rule silently does not apply.
// A partially resolvable rule is a configuration error and is reported.
func resolve(r *run, rule string, fields ...string) (values []float64, applicable bool) {
	values = make([]float64, len(fields))
	var missing, bad []string
	for i, field := range fields {
		raw, ok := lookup(r.claim.Value, field)
		if !ok || raw == nil {
			missing = append(missing, field)
			continue
		}
		v, ok := orderable(raw)
		if !ok {
			bad = append(bad, field)
			continue
		}
		values[i] = v
	}
	if len(missing) == len(fields) {
		return nil, false
	}
	if len(missing) > 0 || len(bad) > 0 {
		var parts []string
		if len(missing) > 0 {
			parts = append(parts, "unresolvable "+strings.Join(quoteAll(missing), ", "))
		}
		if len(bad) > 0 {
			parts = append(parts, "non-numeric "+strings.Join(quoteAll(bad), ", "))
		}
		r.report(SeverityWarning, CategoryMisconfiguration, "",
			"check the rule's field names against the claims it is applied to",
			"%s rule %s skipped: %s", r.check, rule, strings.Join(parts, "; "))
		return nil, false
	}
	return values, true
}

func quoteAll(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = fmt.Sprintf("%q", f)
	}
	return out
}

func (r *run) within(actual, expected float64) bool {
	return math.Abs(actual-expected) <= r.settings.Tolerance*math.Max(1, math.Abs(expected))
}

func checkTotals(r *run) bool {
	applied := false
	for _, rule := range r.settings.Totals {
		name := rule.Total + " = " + strings.Join(rule.Parts, " + ")
		values, ok := resolve(r, name, append([]string{rule.Total}, rule.Parts...)...)
		if !ok {
			continue
		}
		applied = true
		sum := 0.0
		for _, v := range values[1:] {
			sum += v
		}
		ok = r.within(values[0], sum)
		r.grade(DimensionLogical, ok)
		if !ok {
			r.report(SeverityError, CategoryTotals, rule.Total, "recompute the total from its parts",
				"total %q = %g but parts sum to %g", rule.Total, values[0], sum)
		}
	}
	return applied
}

func checkComplements(r *run) bool {
	applied := false
	for _, rule := range r.settings.Complements {
		values, ok := resolve(r, rule.A+" + "+rule.B, rule.A, rule.B)
		if !ok {
			continue
		}
		applied = true
		expected := 1.0
		if inferKind(leafName(rule.A)) == kindPercent && inferKind(leafName(rule.B)) == kindPercent {
			expected = 100
		}
		sum := values[0] + values[1]
		ok = r.within(sum, expected)
		r.grade(DimensionLogical, ok)
		if !ok {
			r.report(SeverityError, CategoryComplement, rule.A, "",
				"complementary fields %q and %q sum to %g, expected %g", rule.A, rule.B, sum, expected)
		}
	}
	return applied
}

func checkOrderings(r *run) bool {
	rules := append([]OrderingRule(nil), r.settings.Orderings...)
	seen := make(map[OrderingRule]bool, len(rules))
	for _, rule := range rules {
		seen[rule] = true
	}
	for _, rule := range inferredOrderings(r.claim.Value) {
		if !seen[rule] {
			rules = append(rules, rule)
			seen[rule] = true
		}
	}

	applied := false
	for _, rule := range rules {
		values, ok := resolve(r, rule.Start+" <= "+rule.End, rule.Start, rule.End)
		if !ok {
			continue
		}
		applied = true
		ok = values[0] <= values[1]
		r.grade(DimensionTemporal, ok)
		if !ok {
			r.report(SeverityError, CategoryOrdering, rule.Start, "",
				"%q is after %q", rule.Start, rule.End)
		}
	}
	return applied
}

func checkParentChild(r *run) bool {
	applied := false
	for _, rule := range r.settings.ParentChild {
		values, ok := resolve(r, rule.Child+" <= "+rule.Parent, rule.Parent, rule.Child)
		if !ok {
			continue
		}
		applied = true
		ok = values[1] <= values[0]
		r.grade(DimensionLogical, ok)
		if !ok {
			r.report(SeverityError, CategoryParentChild, rule.Child, "",
				"child %q = %g exceeds parent %q = %g", rule.Child, values[1], rule.Parent, values[0])
		}
	}
	return applied
}

func checkCrossSource(r *run) bool {
	type sourceValue struct {
		id    string
		value float64
	}
	var values []sourceValue
	seen := make(map[string]bool)
	for i, s := range r.claim.Sources {
		if s.Value == nil {
			continue
		}
		id := s.ID
		if id == "" {
			id = fmt.Sprintf("sources[%d]", i)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		values = append(values, sourceValue{id: id, value: *s.Value})
	}
	if len(values) < 2 {
		r.report(SeverityInfo, CategoryCrossSource, "", "",
			"%d independent source value(s); cross-source agreement not assessed", len(values))
		return false
	}

	mean := 0.0
	for _, v := range values {
		mean += v.value
	}
	mean /= float64(len(values))

	var outliers []string
	for _, v := range values {
		var deviation float64
		switch {
		case mean != 0:
			deviation = math.Abs(v.value-mean) / math.Abs(mean)
		case v.value != 0:
			deviation = math.Inf(1)
		}
		if deviation > r.settings.DeviationThreshold {
			outliers = append(outliers, fmt.Sprintf("%s=%g (%.1f%%)", v.id, v.value, deviation*100))
		}
	}
	r.gradePartial(DimensionSourceAgreement, float64(len(values)-len(outliers)), float64(len(values)))
	if len(outliers) > 0 {
		r.report(SeverityError, CategoryCrossSource, "", "reconcile the disagreeing sources before publication",
			"source values deviate from mean %g by more than %.1f%%: %s",
			mean, r.settings.DeviationThreshold*100, strings.Join(outliers, ", "))
	}
	return true
}

func checkEvidence(r *run) bool {
	claimType := r.claim.ClaimType
	required, ok := r.settings.EvidenceMinimums[claimType]
	if !ok {
		r.report(SeverityWarning, CategoryMisconfiguration, "claim_type",
			"set claim_type to one of the configured evidence minimums",
			"no evidence minimum configured for claim_type %q", claimType)
		return false
	}

	independent := make(map[string]bool)
	authoritative := false
	for i, e := range r.claim.Evidence {
		key := e.SourceID
		if key == "" {
			key = "evidence:" + e.ID
		}
		if e.SourceID == "" && e.ID == "" {
			r.report(SeverityWarning, CategoryEvidence, fmt.Sprintf("evidence[%d]", i), "",
				"evidence item %d has neither id nor source_id and is not counted", i)
			continue
		}
		independent[key] = true
		if e.Authoritative || r.authoritativeRegistry(e.Registry) {
			authoritative = true
		}
	}

	count := len(independent)
	sufficient := count >= required
	if claimType == ClaimBombshell && authoritative {
		sufficient = true
	}

	credited := math.Min(float64(count), float64(required))
	if sufficient {
		credited = float64(required)
	}
	r.gradePartial(DimensionEvidenceQuality, credited, float64(required))

	if !sufficient {
		alternative := ""
		if claimType == ClaimBombshell {
			alternative = " or an authoritative registry record"
		}
		r.report(SeverityError, CategoryEvidence, "evidence",
			"gather additional independent evidence",
			"claim_type %s requires %d independent evidence item(s)%s; found %d",
			claimType, required, alternative, count)
	}
	return true
}

func (r *run) authoritativeRegistry(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	for _, reg := range r.settings.AuthoritativeRegistries {
		if strings.ToLower(reg) == name {
			return true
		}
	}
	return false
}

func checkAuditTrail(r *run) bool {
	a := r.claim.Audit
	if a == nil {
		r.grade(DimensionEvidenceQuality, false)
		r.report(SeverityError, CategoryAuditTrail, "audit", "record capture metadata when the data is extracted",
			"audit trail missing")
		return true
	}

	present := map[string]bool{
		"captured_at":       a.CapturedAt != nil && !a.CapturedAt.IsZero(),
		"source_id":         strings.TrimSpace(a.SourceID) != "",
		"extraction_method": strings.TrimSpace(a.ExtractionMethod) != "",
		"version":           strings.TrimSpace(a.Version) != "",
		"integrity_hash":    strings.TrimSpace(a.IntegrityHash) != "",
	}
	names := make([]string, 0, len(present))
	for name := range present {
		names = append(names, name)
	}
	sort.Strings(names)

	found := 0
	for _, name := range names {
		if present[name] {
			found++
			continue
		}
		r.report(SeverityError, CategoryAuditTrail, "audit."+name, "",
			"audit trail field %q missing", name)
	}
	r.gradePartial(DimensionEvidenceQuality, float64(found), float64(len(names)))

	if present["captured_at"] {
		future := a.CapturedAt.After(r.now)
		r.grade(DimensionTemporal, !future)
		if future {
			r.report(SeverityError, CategoryAuditTrail, "audit.captured_at", "",
				"audit capture time %s is in the future", a.CapturedAt.UTC().Format("2006-01-02T15:04:05Z"))
		}
	}
	return true
}

func checkProvenance(r *run) bool {
	p := r.claim.Provenance
	if p == nil {
		r.grade(DimensionEvidenceQuality, false)
		r.report(SeverityError, CategoryProvenance, "provenance", "keep the source URL, capture time, method and content hash",
			"provenance missing")
		return true
	}

	u, err := url.Parse(strings.TrimSpace(p.SourceURL))
	urlOK := p.SourceURL != "" && err == nil && u.Host != "" &&
		(u.Scheme == "http" || u.Scheme == "https" || u.Scheme == "s3" || u.Scheme == "ftp")
	r.grade(DimensionEvidenceQuality, urlOK)
	if !urlOK {
		r.report(SeverityError, CategoryProvenance, "provenance.source_url", "",
			"source URL %q is missing or not an absolute URL", p.SourceURL)
	}

	methodOK := strings.TrimSpace(p.CaptureMethod) != ""
	r.grade(DimensionEvidenceQuality, methodOK)
	if !methodOK {
		r.report(SeverityError, CategoryProvenance, "provenance.capture_method", "", "capture method missing")
	}

	if p.CapturedAt == nil || p.CapturedAt.IsZero() {
		r.grade(DimensionEvidenceQuality, false)
		r.report(SeverityError, CategoryProvenance, "provenance.captured_at", "", "capture time missing")
	} else {
		future := p.CapturedAt.After(r.now)
		r.grade(DimensionTemporal, !future)
		if future {
			r.report(SeverityError, CategoryProvenance, "provenance.captured_at", "",
				"capture time %s is in the future", p.CapturedAt.UTC().Format("2006-01-02T15:04:05Z"))
		}
	}

	hash := strings.ToLower(strings.TrimSpace(p.IntegrityHash))
	hashOK := sha256Hex.MatchString(hash)
	if !hashOK {
		r.report(SeverityError, CategoryProvenance, "provenance.integrity_hash", "store the SHA-256 of the captured content",
			"integrity hash %q is not a SHA-256 hex digest", p.IntegrityHash)
	} else if p.Content != "" {
		sum := sha256.Sum256([]byte(p.Content))
		if actual := hex.EncodeToString(sum[:]); actual != hash {
			hashOK = false
			r.report(SeverityCritical, CategoryProvenance, "provenance.integrity_hash", "",
				"integrity hash does not match captured content (computed %s)", actual)
		}
	}
	r.grade(DimensionEvidenceQuality, hashOK)
	return true
}

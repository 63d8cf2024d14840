package phase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cortexloop/engine/internal/domain"
	"github.com/cortexloop/engine/internal/providers"
	"github.com/cortexloop/engine/internal/router"
)

// Scan runs the SCAN phase (spec §4.6 SCAN, role: research).
func Scan(ctx context.Context, deps *Deps, cyc *Context) Result {
	objectives, err := activeObjectives(ctx, deps)
	if err != nil {
		return failed(err)
	}
	if len(objectives) == 0 {
		return failed(&domain.PreconditionError{Reason: "SCAN requires at least one active objective"})
	}

	adm, err := admitAdapter(deps, cyc, router.RoleResearch, estimateScan, "")
	if err != nil {
		return failed(err)
	}

	recalled := recallForObjectives(deps, objectives)

	prompt := buildScanPrompt(objectives, recalled)
	genResult, err := adm.adapter.Generate(ctx, providers.GenerateRequest{
		SystemPrompt: "You are the SCAN phase of an autonomous work cycle. Surface findings relevant to the active objectives.",
		UserPrompt:   prompt,
		JSONMode:     true,
	})
	if err != nil {
		return failed(&domain.AdapterError{Phase: "scan", Err: err})
	}

	findings := parseScanFindings(genResult.Text)
	findings = append(findings, recalledFindings(recalled)...)

	scan := &domain.Scan{
		ID:           domain.NewID(),
		CycleID:      cyc.CycleID,
		ObjectiveIDs: objectiveIDs(objectives),
		Findings:     findings,
		CostUsd:      genResult.CostUsd,
		Tokens:       genResult.InputTokens + genResult.OutputTokens,
		LatencyMs:    genResult.LatencyMs,
		CreatedAt:    time.Now().UTC(),
	}

	if err := deps.Store.AppendScan(ctx, scan); err != nil {
		return failed(fmt.Errorf("phase: persist scan: %w", err))
	}

	deps.Ledger.Record(domain.CostRecord{
		Timestamp:    scan.CreatedAt,
		Phase:        "scan",
		Provider:     adm.provider,
		Model:        adm.adapter.Model(),
		InputTokens:  genResult.InputTokens,
		OutputTokens: genResult.OutputTokens,
		CostUsd:      genResult.CostUsd,
		LatencyMs:    genResult.LatencyMs,
	})

	cyc.LastScan = scan
	return Result{Success: true, CostUsd: genResult.CostUsd}
}

func objectiveIDs(objectives []domain.Objective) []string {
	ids := make([]string, len(objectives))
	for i, o := range objectives {
		ids[i] = o.ID
	}
	return ids
}

func buildScanPrompt(objectives []domain.Objective, recalled []recalledEntry) string {
	var b strings.Builder
	b.WriteString("Active objectives:\n")
	for _, o := range objectives {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", o.ID, o.Title, o.Description)
	}
	if len(recalled) > 0 {
		b.WriteString("\nPrior confirmed findings and insights relevant to these objectives:\n")
		for _, r := range recalled {
			fmt.Fprintf(&b, "- (%s) %s\n", r.kind, r.text)
		}
	}
	b.WriteString("\nReturn findings as JSON: {\"findings\": [{\"title\":...,\"detail\":...,\"relevance\":0..1,\"truthStatus\":...,\"confidence\":...,\"sources\":[...]}]}")
	return b.String()
}

// parseScanFindings applies the SCAN parsing discipline (spec §4.6 SCAN,
// SPEC_FULL §4.6.1): validate against scanSchema, then clamp/coerce each
// field. A syntax or schema failure yields a single Parse-Error finding.
func parseScanFindings(raw string) []domain.Finding {
	doc, ok := validateJSON(scanSchema, raw)
	if !ok {
		return []domain.Finding{domain.ParseErrorFinding("scan response failed schema validation")}
	}

	rawFindings, _ := doc["findings"].([]interface{})
	findings := make([]domain.Finding, 0, len(rawFindings))
	for _, rf := range rawFindings {
		m, ok := rf.(map[string]interface{})
		if !ok {
			continue
		}
		f := domain.Finding{
			Title:       asString(m["title"]),
			Detail:      asString(m["detail"]),
			Relevance:   domain.ClampRelevance(asFloat(m["relevance"])),
			TruthStatus: coerceScanTruthStatus(asString(m["truthStatus"])),
			Confidence:  domain.CoerceConfidence(asString(m["confidence"]), domain.ConfidenceLow),
			Sources:     asStringSlice(m["sources"]),
		}
		findings = append(findings, f)
	}
	if len(findings) == 0 {
		return []domain.Finding{domain.ParseErrorFinding("scan response contained no findings")}
	}
	return findings
}

// coerceScanTruthStatus restricts a finding's reported truthStatus to the
// two values SCAN is allowed to emit (spec §4.6 SCAN: "coerce truthStatus
// ∈ {speculative, hypothesis}, default speculative"). Unlike the general
// domain.CoerceTruthStatus, verified/implemented/failed/archived are never
// let through here even though they're valid TruthStatus values elsewhere.
func coerceScanTruthStatus(raw string) domain.TruthStatus {
	switch domain.TruthStatus(raw) {
	case domain.TruthSpeculative, domain.TruthHypothesis:
		return domain.TruthStatus(raw)
	default:
		return domain.TruthSpeculative
	}
}

type recalledEntry struct {
	kind string
	text string
}

// recallForObjectives queries the recall index for each objective's
// title/tags. A nil index or any query error degrades to adapter-only
// context, per SPEC_FULL §4.6.3.
func recallForObjectives(deps *Deps, objectives []domain.Objective) []recalledEntry {
	if deps.Recall == nil {
		return nil
	}
	var out []recalledEntry
	for _, o := range objectives {
		query := o.Title
		if len(o.Tags) > 0 {
			query += " " + strings.Join(o.Tags, " ")
		}
		for _, e := range deps.Recall.Recall(query, 3) {
			out = append(out, recalledEntry{kind: e.Kind, text: e.Text})
		}
	}
	return out
}

// recalledFindings re-labels recalled entries as verified findings, per
// SPEC_FULL §4.6.3: "re-labeled truthStatus=verified, since they are prior,
// confirmed records".
func recalledFindings(recalled []recalledEntry) []domain.Finding {
	findings := make([]domain.Finding, 0, len(recalled))
	for _, r := range recalled {
		findings = append(findings, domain.Finding{
			Title:       "Recalled " + r.kind,
			Detail:      r.text,
			Relevance:   0.5,
			TruthStatus: domain.TruthVerified,
			Confidence:  domain.ConfidenceMedium,
		})
	}
	return findings
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFloat(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

func asStringSlice(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

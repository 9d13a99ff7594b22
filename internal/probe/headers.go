package probe

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/finding"
	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
)

const (
	headersKey       = "headers"
	headersLocation  = "HTTP Headers"
	headerScanFailed = "Header Scan Failed"
)

const (
	ruleMissing       = "missing"
	ruleEmpty         = "empty"
	ruleMisconfigured = "misconfigured"
	ruleDisclosure    = "disclosure"
)

// headerVerdict is the outcome of a policy predicate on a present header.
type headerVerdict struct {
	ok    bool
	rule  string
	issue string
}

var headerValid = headerVerdict{ok: true}

func headerInvalid(issue string) headerVerdict {
	return headerVerdict{rule: ruleMisconfigured, issue: issue}
}

// headerPolicy is one row of the fixed header rule table
type headerPolicy struct {
	Header      string
	Severity    finding.Severity
	Purpose     string
	Remediation string
	Check       func(value string) headerVerdict
}

// headerPolicies is evaluated in order; findings follow the same order.
var headerPolicies = []headerPolicy{
	{
		Header:      "Content-Security-Policy",
		Severity:    finding.SeverityMedium,
		Purpose:     "restricts where scripts, styles and frames may be loaded from",
		Remediation: "Implement a strict Content-Security-Policy and avoid 'unsafe-inline' and 'unsafe-eval'",
		Check:       checkCSP,
	},
	{
		Header:      "X-Frame-Options",
		Severity:    finding.SeverityMedium,
		Purpose:     "prevents the page from being framed by other origins (clickjacking)",
		Remediation: "Add 'X-Frame-Options: DENY' or 'X-Frame-Options: SAMEORIGIN'",
		Check:       checkXFrameOptions,
	},
	{
		Header:      "X-Content-Type-Options",
		Severity:    finding.SeverityLow,
		Purpose:     "stops browsers from MIME-sniffing responses",
		Remediation: "Add 'X-Content-Type-Options: nosniff'",
		Check:       checkXContentTypeOptions,
	},
	{
		Header:      "Strict-Transport-Security",
		Severity:    finding.SeverityHigh,
		Purpose:     "forces browsers to use HTTPS for future requests",
		Remediation: "Add 'Strict-Transport-Security: max-age=31536000; includeSubDomains'",
		Check:       checkHSTS,
	},
	{
		Header:      "X-XSS-Protection",
		Severity:    finding.SeverityLow,
		Purpose:     "controls the legacy browser XSS filter",
		Remediation: "Set 'X-XSS-Protection: 1; mode=block' or rely on a strict Content-Security-Policy",
		Check:       checkXXSSProtection,
	},
	{
		Header:      "Referrer-Policy",
		Severity:    finding.SeverityLow,
		Purpose:     "limits how much referrer information leaves the site",
		Remediation: "Add 'Referrer-Policy: strict-origin-when-cross-origin' or 'no-referrer'",
		Check:       checkReferrerPolicy,
	},
	{
		Header:      "Permissions-Policy",
		Severity:    finding.SeverityLow,
		Purpose:     "restricts access to powerful browser features",
		Remediation: "Add a Permissions-Policy such as 'geolocation=(), microphone=(), camera=()'",
		Check:       checkPermissionsPolicy,
	},
}

// disclosureHeaders reveal server software when present
var disclosureHeaders = []string{
	"Server",
	"X-Powered-By",
	"X-AspNet-Version",
}

var referrerPolicyTokens = map[string]bool{
	"no-referrer":                     true,
	"no-referrer-when-downgrade":      true,
	"origin":                          true,
	"origin-when-cross-origin":        true,
	"same-origin":                     true,
	"strict-origin":                   true,
	"strict-origin-when-cross-origin": true,
	"unsafe-url":                      true,
}

// HeaderPolicyProbe fetches the target once and evaluates its response headers.
type HeaderPolicyProbe struct {
	Fetcher Fetcher
	Timeout time.Duration
	Pool    *Pool
}

// Name implements Probe.
func (p *HeaderPolicyProbe) Name() string {
	return "HeaderPolicyProbe"
}

func (p *HeaderPolicyProbe) Location() string {
	return headersLocation
}

// Scan implements Probe.
func (p *HeaderPolicyProbe) Scan(ctx context.Context, target string) (findings []finding.Finding) {
	defer recoverScan(&findings, headersKey, headerScanFailed, headersLocation)

	t, err := ParseTarget(target)
	if err != nil {
		return []finding.Finding{headerFailure(target, err)}
	}
	if p.Fetcher == nil {
		return []finding.Finding{headerFailure(t.URL, fmt.Errorf("no fetcher configured"))}
	}

	opCtx, cancel := context.WithTimeout(ctx, timeoutOrDefault(p.Timeout))
	defer cancel()

	res, err := Blocking(opCtx, p.Pool, func(ctx context.Context) (*FetchResult, error) {
		return p.Fetcher.Fetch(ctx, t.URL)
	})
	if err != nil {
		return []finding.Finding{headerFailure(t.URL, err)}
	}
	var header http.Header
	if res != nil {
		header = res.Header
	}
	return EvaluateHeaders(header)
}

func headerFailure(url string, err error) finding.Finding {
	f := finding.Error(finding.NewID(headersKey, "fetch-failed"), headerScanFailed, headersLocation, err)
	f.Evidence = f.Evidence.With("url", url)
	return f
}

// EvaluateHeaders applies the header policy table and the disclosure checks to a
// response header map. Header names are matched case-insensitively.
func EvaluateHeaders(header http.Header) []finding.Finding {
	var findings []finding.Finding

	for _, policy := range headerPolicies {
		value, present := lookupHeader(header, policy.Header)
		if !present {
			findings = append(findings, missingHeaderFinding(policy))
			continue
		}
		verdict := policy.Check(value)
		if verdict.ok {
			continue
		}
		findings = append(findings, invalidHeaderFinding(policy, value, verdict))
	}

	for _, name := range disclosureHeaders {
		value, present := lookupHeader(header, name)
		if !present {
			continue
		}
		findings = append(findings, finding.Finding{
			ID:            finding.NewID(headersKey, ruleDisclosure, name, value),
			Type:          finding.TypeInformationDisclosure,
			Severity:      finding.SeverityLow,
			Title:         fmt.Sprintf("Information Disclosure: %s Header", name),
			Description:   fmt.Sprintf("The %s header reveals server software details: %q", name, value),
			Remediation:   fmt.Sprintf("Remove the %s header or replace its value with a generic one", name),
			OWASPCategory: finding.OWASPSecurityMisconfiguration,
			Location:      headersLocation,
			Evidence:      finding.NewEvidence().With("header", name).With("value", value),
		})
	}

	return findings
}

func missingHeaderFinding(policy headerPolicy) finding.Finding {
	return finding.Finding{
		ID:            finding.NewID(headersKey, ruleMissing, policy.Header),
		Type:          finding.TypeMisconfiguration,
		Severity:      policy.Severity,
		Title:         fmt.Sprintf("Missing Security Header: %s", policy.Header),
		Description:   fmt.Sprintf("The %s header is not set. It %s.", policy.Header, policy.Purpose),
		Remediation:   policy.Remediation,
		OWASPCategory: finding.OWASPSecurityMisconfiguration,
		Location:      headersLocation,
		Evidence:      finding.NewEvidence().With("header", policy.Header),
	}
}

func invalidHeaderFinding(policy headerPolicy, value string, verdict headerVerdict) finding.Finding {
	title := fmt.Sprintf("Misconfigured Security Header: %s", policy.Header)
	if verdict.rule == ruleEmpty {
		title = fmt.Sprintf("Empty Security Header: %s", policy.Header)
	}
	return finding.Finding{
		ID:            finding.NewID(headersKey, verdict.rule, policy.Header, verdict.issue),
		Type:          finding.TypeMisconfiguration,
		Severity:      policy.Severity,
		Title:         title,
		Description:   fmt.Sprintf("The %s header is present but ineffective: %s.", policy.Header, verdict.issue),
		Remediation:   policy.Remediation,
		OWASPCategory: finding.OWASPSecurityMisconfiguration,
		Location:      headersLocation,
		Evidence: finding.NewEvidence().
			With("header", policy.Header).
			With("value", value).
			With("issue", verdict.issue),
	}
}

func lookupHeader(header http.Header, name string) (string, bool) {
	if values, ok := header[http.CanonicalHeaderKey(name)]; ok {
		return firstValue(values), true
	}
	for key, values := range header {
		if strings.EqualFold(key, name) {
			return firstValue(values), true
		}
	}
	return "", false
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func checkCSP(value string) headerVerdict {
	if value == "" {
		return headerVerdict{rule: ruleEmpty, issue: "empty policy"}
	}
	var offending []string
	for _, directive := range strings.Split(value, ";") {
		directive = strings.TrimSpace(directive)
		lower := strings.ToLower(directive)
		if strings.Contains(lower, "unsafe-inline") || strings.Contains(lower, "unsafe-eval") {
			offending = append(offending, directive)
		}
	}
	if len(offending) > 0 {
		return headerInvalid(strings.Join(offending, "; "))
	}
	return headerValid
}

func checkXFrameOptions(value string) headerVerdict {
	switch strings.ToUpper(value) {
	case "DENY", "SAMEORIGIN":
		return headerValid
	}
	return headerInvalid("value must be DENY or SAMEORIGIN")
}

func checkXContentTypeOptions(value string) headerVerdict {
	if strings.EqualFold(value, "nosniff") {
		return headerValid
	}
	return headerInvalid("value must be nosniff")
}

func checkHSTS(value string) headerVerdict {
	if value == "" {
		return headerInvalid("empty value")
	}
	for _, directive := range strings.Split(value, ";") {
		name, raw, _ := strings.Cut(strings.TrimSpace(directive), "=")
		if !strings.EqualFold(strings.TrimSpace(name), "max-age") {
			continue
		}
		raw = strings.Trim(strings.TrimSpace(raw), `"`)
		maxAge, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return headerInvalid(fmt.Sprintf("invalid max-age value %q", raw))
		}
		if maxAge < constants.HSTSMinMaxAge {
			return headerInvalid(fmt.Sprintf("max-age too short (%d < %d)", maxAge, constants.HSTSMinMaxAge))
		}
		return headerValid
	}
	return headerInvalid("missing max-age")
}

func checkXXSSProtection(value string) headerVerdict {
	switch strings.TrimSpace(value) {
	case "1", "1; mode=block":
		return headerValid
	}
	return headerInvalid("value must be 1 or 1; mode=block")
}

// single token only, fallback lists are not accepted
func checkReferrerPolicy(value string) headerVerdict {
	token := strings.ToLower(strings.TrimSpace(value))
	if referrerPolicyTokens[token] {
		return headerValid
	}
	return headerInvalid(fmt.Sprintf("unrecognised policy %q", strings.TrimSpace(value)))
}

func checkPermissionsPolicy(value string) headerVerdict {
	if value == "" {
		return headerInvalid("empty value")
	}
	return headerValid
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return constants.DefaultOpTimeout
	}
	return d
}

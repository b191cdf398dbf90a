// Package classify implements the response classifier: the map from a
// Response to an Accept/Reject verdict that strategies use to decide
// whether another attempt is warranted.
package classify

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/resiliate/resiliate/pkg/rresponse"
)

// Verdict is the classifier's decision for a single response.
type Verdict int

const (
	// Accept means the response is final; no further attempt is needed.
	Accept Verdict = iota
	// Reject means another attempt is warranted, if one is available.
	Reject
)

// Classifier maps a response to a Verdict.
type Classifier interface {
	Classify(r rresponse.Response) Verdict
}

// Func adapts a plain function to a Classifier.
type Func func(r rresponse.Response) Verdict

func (f Func) Classify(r rresponse.Response) Verdict { return f(r) }

// Default is the response classifier described in spec section 4.3.
// Rules are evaluated in order; the first match wins:
//  1. an explicit status override
//  2. X-Do-Not-Retry present -> Accept regardless of status
//  3. 5xx -> Reject
//  4. synthetic network-error status -> Reject
//  5. synthetic too-many-redirects status -> Accept
//  6. 408 -> Reject
//  7. 429 -> Reject
//  8. otherwise Accept
type Default struct {
	NetworkErrorStatus     int
	TooManyRedirectsStatus int
	VerdictForStatus       map[int]Verdict

	// JSONRejectPath, if set, is evaluated with gjson against JSON
	// response bodies (Content-Type containing "json"); a truthy result
	// forces Reject even on an otherwise-accepted status. This is a
	// domain-stack extension beyond the literal spec classifier, useful
	// for APIs that report soft failures with a 200 status and an
	// {"error": true}-shaped body.
	JSONRejectPath string
}

// NewDefault builds a Default classifier with the documented synthetic
// status code defaults.
func NewDefault() *Default {
	return &Default{
		NetworkErrorStatus:     rresponse.StatusNetworkError,
		TooManyRedirectsStatus: rresponse.StatusTooManyRedirects,
	}
}

func (c *Default) Classify(r rresponse.Response) Verdict {
	if c.VerdictForStatus != nil {
		if v, ok := c.VerdictForStatus[r.Status()]; ok {
			return v
		}
	}
	if r.Headers().Get(rresponse.HeaderDoNotRetry) != "" {
		return Accept
	}
	if rresponse.IsServerError(r) {
		return Reject
	}
	if r.Status() == c.NetworkErrorStatus {
		return Reject
	}
	if r.Status() == c.TooManyRedirectsStatus {
		return Accept
	}
	if r.Status() == 408 {
		return Reject
	}
	if r.Status() == 429 {
		return Reject
	}
	if c.JSONRejectPath != "" && c.bodyRejects(r) {
		return Reject
	}
	return Accept
}

func (c *Default) bodyRejects(r rresponse.Response) bool {
	ct := r.Headers().Get("Content-Type")
	if !strings.Contains(ct, "json") {
		return false
	}
	body, err := r.Read()
	if err != nil || len(body) == 0 {
		return false
	}
	result := gjson.GetBytes(body, c.JSONRejectPath)
	return result.Exists() && result.Bool()
}

// Package debug runs a single traced request through a resiliate
// Client and prints request/response/verdict/breaker-state detail to
// the terminal, trading step chaining, variable extraction, and
// assertion checks for classifier verdicts and circuit-breaker state.
package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/resiliate/resiliate/internal/breaker"
	"github.com/resiliate/resiliate/internal/classify"
	"github.com/resiliate/resiliate/pkg/resiliate"
	"github.com/resiliate/resiliate/pkg/rrequest"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// Trace is the single request this mode issues.
type Trace struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// Run issues one request through client and prints a detailed trace:
// the request as sent, the response (or error), the classifier
// verdict, and the breaker's state for the request's endpoint key.
func Run(ctx context.Context, client *resiliate.Client, endpoint string, b *breaker.Breaker, trace Trace) error {
	fmt.Println()
	fmt.Printf("%s%s🛠️  DEBUG TRACE (single request) 🛠️%s\n", colorBold, colorCyan, colorReset)
	printSeparator()

	req := rrequest.New(trace.Method, trace.URL)
	if len(trace.Headers) > 0 {
		h := make(map[string][]string, len(trace.Headers))
		for k, v := range trace.Headers {
			h[k] = []string{v}
		}
		req = req.UpdateHeaders(h)
	}
	if trace.Body != "" {
		req.Body = []byte(trace.Body)
	}

	printRequest(req)

	start := time.Now()
	resp, err := client.Request(ctx, req)
	latency := time.Since(start)

	if err != nil {
		printRequestError(err, latency)
		printSeparator()
		fmt.Printf("%s%s❌ TRACE FAILED%s\n\n", colorBold, colorRed, colorReset)
		return nil
	}
	defer resp.Close()

	body, _ := resp.Read()
	verdict := classify.NewDefault().Classify(resp)
	printResponse(resp.Status(), resp.Headers(), body, latency, verdict)

	if b != nil {
		fmt.Printf("\n%s[CIRCUIT BREAKER]%s state for %q: %s%s%s\n",
			colorBold, colorReset, endpoint, colorYellow, b.State(endpoint), colorReset)
	}

	printSeparator()
	fmt.Printf("%s%s✅ TRACE COMPLETE%s\n\n", colorBold, colorGreen, colorReset)
	return nil
}

func printSeparator() {
	fmt.Printf("%s----------------------------------------------------%s\n", colorDim, colorReset)
}

func printRequest(req rrequest.Request) {
	url, err := req.BuildURL()
	if err != nil {
		url = req.URL
	}
	fmt.Printf("\n%s[REQUEST]%s\n", colorBold, colorReset)
	fmt.Printf("%s%s%s %s%s%s\n", colorBold, colorGreen, req.Method, colorCyan, url, colorReset)

	if len(req.Headers) > 0 {
		fmt.Printf("%sHeaders:%s\n", colorDim, colorReset)
		var keys []string
		for k := range req.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, v := range req.Headers[k] {
				fmt.Printf("  %s%s:%s %s\n", colorYellow, k, colorReset, v)
			}
		}
	}

	if len(req.Body) > 0 {
		fmt.Printf("%sBody:%s\n", colorDim, colorReset)
		printFormattedJSON(string(req.Body), "  ")
	}
}

func printResponse(status int, headers map[string][]string, body []byte, latency time.Duration, verdict classify.Verdict) {
	fmt.Printf("\n%s[RESPONSE]%s\n", colorBold, colorReset)

	statusColor := colorGreen
	if status >= 400 {
		statusColor = colorRed
	} else if status >= 300 {
		statusColor = colorYellow
	}
	fmt.Printf("%sStatus:%s %s%d%s %s(Time: %s)%s\n",
		colorDim, colorReset,
		statusColor, status, colorReset,
		colorDim, latency.Round(time.Millisecond), colorReset)

	verdictColor, verdictLabel := colorGreen, "ACCEPT"
	if verdict == classify.Reject {
		verdictColor, verdictLabel = colorRed, "REJECT"
	}
	fmt.Printf("%sVerdict:%s %s%s%s\n", colorDim, colorReset, verdictColor, verdictLabel, colorReset)

	if len(headers) > 0 {
		fmt.Printf("%sHeaders:%s\n", colorDim, colorReset)
		var keys []string
		for k := range headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, v := range headers[k] {
				fmt.Printf("  %s%s:%s %s\n", colorYellow, k, colorReset, v)
			}
		}
	}

	if len(body) > 0 {
		fmt.Printf("%sBody:%s\n", colorDim, colorReset)
		bodyStr := string(body)
		if len(bodyStr) > 2000 {
			bodyStr = bodyStr[:2000] + fmt.Sprintf("\n  ... (truncated, %d bytes total)", len(body))
		}
		printFormattedJSON(bodyStr, "  ")
	}
}

func printRequestError(err error, latency time.Duration) {
	fmt.Printf("\n%s[RESPONSE]%s\n", colorBold, colorReset)
	fmt.Printf("%s❌ Request Failed%s %s(Time: %s)%s\n",
		colorRed, colorReset,
		colorDim, latency.Round(time.Millisecond), colorReset)
	fmt.Printf("  %sError:%s %v\n", colorRed, colorReset, err)
}

func printFormattedJSON(s string, prefix string) {
	var jsonObj interface{}
	if err := json.Unmarshal([]byte(s), &jsonObj); err == nil {
		pretty, err := json.MarshalIndent(jsonObj, prefix, "  ")
		if err == nil {
			fmt.Printf("%s%s\n", prefix, string(pretty))
			return
		}
	}
	for _, line := range strings.Split(s, "\n") {
		fmt.Printf("%s%s\n", prefix, line)
	}
}

// Package rrequest defines the immutable Request value and the URL
// composition helper that substitutes path parameters and merges query
// parameters. URL parsing/templating is an external collaborator per the
// core's scope, but this package is the reference adapter used by the
// bundled transport.
package rrequest

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// MaxRedirects is the default redirect cap for a Request.
const MaxRedirects = 10

// QueryValue is either a single string, a sequence of strings, or nil
// (meaning "omit this parameter"). Nil elements inside a slice are
// dropped rather than emitted as empty values.
type QueryValue any

// Request is an immutable value describing one logical HTTP call.
type Request struct {
	Method         string
	URL            string
	PathParameters map[string]string
	QueryParameters map[string]QueryValue
	Headers        http.Header
	Body           []byte
	AllowRedirects bool
	MaxRedirects   int
}

// New builds a Request with the method uppercased and sane redirect
// defaults.
func New(method, url string) Request {
	return Request{
		Method:         strings.ToUpper(method),
		URL:            url,
		AllowRedirects: true,
		MaxRedirects:   MaxRedirects,
	}
}

// UpdateHeaders returns a new Request whose headers are the receiver's
// headers merged with extra; extra wins on duplicate keys.
func (r Request) UpdateHeaders(extra http.Header) Request {
	merged := http.Header{}
	for k, v := range r.Headers {
		merged[k] = append([]string(nil), v...)
	}
	for k, v := range extra {
		merged[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
	}
	r.Headers = merged
	return r
}

// BuildURL substitutes {name} path parameters and merges query
// parameters into the request URL's query string. Scalar values are
// stringified; nil values and nil list elements are dropped; list values
// produce repeated keys.
func (r Request) BuildURL() (string, error) {
	raw := r.URL
	for name, value := range r.PathParameters {
		raw = strings.ReplaceAll(raw, "{"+name+"}", url.PathEscape(value))
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	if len(r.QueryParameters) > 0 {
		q := parsed.Query()
		for name, value := range r.QueryParameters {
			switch v := value.(type) {
			case nil:
				continue
			case string:
				q.Add(name, v)
			case []string:
				for _, item := range v {
					q.Add(name, item)
				}
			case []any:
				for _, item := range v {
					if item == nil {
						continue
					}
					q.Add(name, fmt.Sprint(item))
				}
			default:
				q.Add(name, fmt.Sprint(v))
			}
		}
		parsed.RawQuery = q.Encode()
	}

	return parsed.String(), nil
}

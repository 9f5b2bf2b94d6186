// Package util contains helper functions used around the code.
package util

import (
	"net/url"
	"strings"
)

// In returns true if s is found in ss, false otherwise
func In(ss []string, s string) bool {
	for _, v := range ss {
		if s == v {
			return true
		}
	}
	return false
}

// HashQueryParams returns the parameters found in the query and in the fragment of rawURL. Fragment parameters
// (ie. https://app.io/#_pid=1&state=x) override query ones with the same name. Malformed urls yield no parameters.
func HashQueryParams(rawURL string) map[string]string {
	m := make(map[string]string)

	u, err := url.Parse(rawURL)
	if err != nil {
		return m
	}

	for k, v := range u.Query() {
		if len(v) > 0 {
			m[k] = v[0]
		}
	}

	frag := strings.TrimPrefix(u.Fragment, "/")
	if i := strings.IndexByte(frag, '?'); i >= 0 {
		frag = frag[i+1:]
	}

	if hv, err := url.ParseQuery(frag); err == nil {
		for k, v := range hv {
			if len(v) > 0 {
				m[k] = v[0]
			}
		}
	}

	return m
}

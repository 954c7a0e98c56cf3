// Package sanitize applies the HTML policies for user-generated content.
// Message bodies may carry rich text from the composer; everything else
// is stripped to plain text.
package sanitize

import "github.com/microcosm-cc/bluemonday"

var (
	bodyPolicy  = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// Body sanitizes a message body, keeping common formatting tags and
// removing scripts, event handlers, and unsafe URLs.
func Body(s string) string {
	return bodyPolicy.Sanitize(s)
}

// Plain strips all HTML, for names and status text.
func Plain(s string) string {
	return plainPolicy.Sanitize(s)
}

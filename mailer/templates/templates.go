// Package templates embeds the email bodies so the binary carries them.
package templates

import "embed"

// Files holds the html and plain text email templates.
//
//go:embed *.html *.txt
var Files embed.FS

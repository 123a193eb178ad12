// ABOUTME: Reply rendering for Matrix
// ABOUTME: Converts engine replies into plain plus HTML-formatted message content

package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"maunium.net/go/mautrix/event"

	"torrentbutler/internal/dialog"
)

// renderReply builds Matrix message content from an engine reply. The plain
// body always carries the full text; the formatted body is a markdown
// rendering with the reply options shown as a prompt line.
func renderReply(reply dialog.Reply) *event.MessageEventContent {
	body := reply.Text
	markdown := reply.Text

	if len(reply.Options) > 0 {
		body += "\n" + optionsLine(reply.Options, false)
		markdown += "\n\n" + optionsLine(reply.Options, true)
	}

	content := &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    body,
	}

	var htmlBuf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &htmlBuf); err == nil {
		content.Format = event.FormatHTML
		content.FormattedBody = strings.TrimSpace(htmlBuf.String())
	}

	return content
}

// optionsLine joins reply options into a single hint line.
func optionsLine(options []string, markdown bool) string {
	parts := make([]string, len(options))
	for i, opt := range options {
		if markdown {
			parts[i] = fmt.Sprintf("`%s`", opt)
		} else {
			parts[i] = opt
		}
	}
	return "Reply with: " + strings.Join(parts, " | ")
}

package entities

import "strings"

// Report text travels inside the chat history as a system message framed
// by these markers. The history is the only durable carrier for report
// context, so the framing has to survive round-trips through storage.
const (
	reportTextMarker    = "__REPORT_TEXT__"
	reportTextEndMarker = "__END_REPORT_TEXT__"
)

// EncodeReportContext wraps report text for storage as a system message.
func EncodeReportContext(text string) string {
	return reportTextMarker + "\n" + text + "\n" + reportTextEndMarker
}

// HasReportContext reports whether message content embeds report text.
func HasReportContext(content string) bool {
	return strings.Contains(content, reportTextMarker)
}

// ExtractReportContext pulls report text back out of a system message.
// It returns false when either marker is missing or malformed.
func ExtractReportContext(content string) (string, bool) {
	start := strings.Index(content, reportTextMarker+"\n")
	if start == -1 {
		return "", false
	}
	start += len(reportTextMarker) + 1
	end := strings.Index(content[start:], "\n"+reportTextEndMarker)
	if end == -1 {
		return "", false
	}
	return content[start : start+end], true
}

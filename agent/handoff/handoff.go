// Package handoff implements the control-signal protocol between agents.
//
// Tool results are plain text, so control decisions travel as fixed sentinel
// substrings. The sentinel is parsed exactly once at the tool boundary into a
// typed Signal; everything downstream (routing branches) operates on the
// typed value and never re-matches substrings.
package handoff

import (
	"fmt"
	"strings"

	contractx "github.com/styletto/stylist-agent/agent/contract"
)

const (
	transferPrefix = "TRANSFER_TO_"
	handBackMark   = "TRANSFER_BACK_TO_MANAGER"
	blockedMark    = "BLOCKED:"
	summaryMark    = "SUMMARY:"
)

// Signal is the closed set of control-flow values a tool result can carry.
type Signal interface {
	signal()
}

// Transfer delegates the current turn from the manager to a specialist.
type Transfer struct {
	Target contractx.AgentType
	Task   string
}

// HandBack returns control from a specialist to the manager. BlockedReason is
// non-empty when the specialist needs input only the end user can provide.
type HandBack struct {
	Summary       string
	BlockedReason string
}

func (Transfer) signal() {}
func (HandBack) signal() {}

// EncodeTransfer renders the manager-to-specialist sentinel. The format is
// load-bearing: routing matches it bit-exact.
func EncodeTransfer(target contractx.AgentType, task string) string {
	return fmt.Sprintf("%s%s: %s", transferPrefix, strings.ToUpper(string(target)), task)
}

// EncodeHandBack renders the specialist-to-manager sentinel, with the
// optional BLOCKED segment ahead of the summary.
func EncodeHandBack(summary, blockedReason string) string {
	if strings.TrimSpace(blockedReason) != "" {
		return fmt.Sprintf("%s | %s %s | %s %s", handBackMark, blockedMark, blockedReason, summaryMark, summary)
	}
	return fmt.Sprintf("%s | %s %s", handBackMark, summaryMark, summary)
}

// Parse extracts the signal embedded in a single tool result, if any.
// Matching is substring containment; transfer targets are tried in the fixed
// specialist order, first match wins. Callers guarantee sentinel strings do
// not overlap.
func Parse(text string) (Signal, bool) {
	if strings.Contains(text, handBackMark) {
		return HandBack{
			Summary:       segmentAfter(text, summaryMark),
			BlockedReason: segmentAfter(text, blockedMark),
		}, true
	}

	for _, target := range contractx.Specialists() {
		mark := transferPrefix + strings.ToUpper(string(target))
		idx := strings.Index(text, mark)
		if idx < 0 {
			continue
		}
		task := text[idx+len(mark):]
		task = strings.TrimPrefix(task, ":")
		return Transfer{Target: target, Task: strings.TrimSpace(task)}, true
	}

	return nil, false
}

// FromResults scans tool results in execution order and returns the first
// embedded signal.
func FromResults(results []string) (Signal, bool) {
	for _, r := range results {
		if sig, ok := Parse(r); ok {
			return sig, true
		}
	}
	return nil, false
}

// segmentAfter returns the text following mark up to the next segment
// separator ("|") or end of string.
func segmentAfter(text, mark string) string {
	idx := strings.Index(text, mark)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(mark):]
	if sep := strings.Index(rest, "|"); sep >= 0 {
		rest = rest[:sep]
	}
	return strings.TrimSpace(rest)
}

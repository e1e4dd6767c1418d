// Package botpolicy parses {{bots}}/{{nobots}} exclusion templates (C8) to
// decide whether a given bot is permitted to edit a page. Unknown or
// ambiguous constructs fail closed (Denied), never Allowed.
package botpolicy

import (
	"regexp"
	"strings"
)

// Decision is the outcome of checking a page against a bot name.
type Decision struct {
	Allowed bool
	Reason  string
}

func allowed() Decision { return Decision{Allowed: true} }

func denied(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

var nobotsRe = regexp.MustCompile(`(?i)\{\{\s*nobots\s*\}\}`)

// Check evaluates markup against botName per spec.md §4.7.
func Check(markup, botName string) Decision {
	if !strings.Contains(markup, "{{") {
		return allowed()
	}
	if nobotsRe.MatchString(markup) {
		return denied("nobots")
	}

	for _, m := range findBotsTemplates(markup) {
		if strings.Contains(m, "{{") {
			return denied("nested templates — cannot parse")
		}
		d := evaluateParams(m, botName)
		if !d.Allowed {
			return d
		}
	}
	return allowed()
}

// findBotsTemplates returns, for every top-level "{{bots" occurrence, the
// substring between the opening "{{bots...|" and the matching "}}" — using
// brace-depth counting so a nested template inside the parameters does not
// terminate the scan early. The returned substring itself may still contain
// "{{" (a nested template), which the caller rejects.
func findBotsTemplates(markup string) []string {
	var out []string
	lower := strings.ToLower(markup)
	for idx := 0; ; {
		pos := strings.Index(lower[idx:], "{{")
		if pos < 0 {
			break
		}
		start := idx + pos
		head := strings.TrimLeft(lower[start+2:], " \t\n")
		if !strings.HasPrefix(head, "bots") {
			idx = start + 2
			continue
		}

		depth := 1
		i := start + 2
		end := -1
		for i < len(markup) {
			switch {
			case strings.HasPrefix(markup[i:], "{{"):
				depth++
				i += 2
			case strings.HasPrefix(markup[i:], "}}"):
				depth--
				i += 2
				if depth == 0 {
					end = i
				}
			default:
				i++
			}
			if end >= 0 {
				break
			}
		}
		if end < 0 {
			break
		}

		inner := markup[start+2 : end-2]
		if pipeIdx := strings.Index(inner, "|"); pipeIdx >= 0 {
			out = append(out, inner[pipeIdx+1:])
		}
		idx = end
	}
	return out
}

// evaluateParams parses the pipe-separated key=value pairs of a single
// {{bots|...}} occurrence's parameter substring.
func evaluateParams(params, botName string) Decision {
	botName = strings.ToLower(strings.TrimSpace(botName))
	for _, part := range strings.Split(params, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return denied("unknown parameter")
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		value := strings.TrimSpace(kv[1])
		switch key {
		case "deny":
			switch strings.ToLower(value) {
			case "all":
				return denied("deny=all")
			case "none":
				continue
			default:
				if containsBotName(value, botName) {
					return denied("deny=list")
				}
			}
		case "allow":
			switch strings.ToLower(value) {
			case "all":
				continue
			case "none":
				return denied("allow=none")
			default:
				if !containsBotName(value, botName) {
					return denied("allow=list")
				}
			}
		case "optout":
			return denied("optout")
		default:
			return denied("unknown parameter")
		}
	}
	return allowed()
}

func containsBotName(list, botName string) bool {
	for _, name := range strings.Split(list, ",") {
		if strings.ToLower(strings.TrimSpace(name)) == botName {
			return true
		}
	}
	return false
}

package proposer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jatzz10/mcp-gateway/gateway"
)

// ParseReply turns a model reply into a query descriptor for the given
// backend kind. Refusal text is passed through in Target.Text untouched so
// the gateway's non-operational sniffing sees it verbatim.
func ParseReply(backendKind, reply string, limit int) (gateway.Descriptor, error) {
	reply = stripFences(reply)
	if reply == "" {
		return gateway.Descriptor{}, fmt.Errorf("model returned an empty reply")
	}

	switch backendKind {
	case "sql":
		return parseSQLReply(reply, limit), nil
	case "filesystem":
		return parseFilesystemReply(reply, limit)
	case "jira":
		return parseJiraReply(reply, limit)
	case "rest":
		return parseRESTReply(reply, limit)
	default:
		return gateway.Descriptor{}, fmt.Errorf("no reply parser for backend kind %q", backendKind)
	}
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag, and trims whitespace.
func stripFences(reply string) string {
	reply = strings.TrimSpace(reply)
	if !strings.HasPrefix(reply, "```") {
		return reply
	}
	reply = strings.TrimPrefix(reply, "```")
	if idx := strings.IndexByte(reply, '\n'); idx >= 0 {
		// Drop the language tag line if the fence carried one.
		first := strings.TrimSpace(reply[:idx])
		if first != "" && !strings.ContainsAny(first, " \t{") {
			reply = reply[idx+1:]
		}
	}
	reply = strings.TrimSuffix(strings.TrimSpace(reply), "```")
	return strings.TrimSpace(reply)
}

func parseSQLReply(reply string, limit int) gateway.Descriptor {
	kind := gateway.KindSelect
	upper := strings.ToUpper(gateway.CanonicalText(reply))
	if strings.HasPrefix(upper, "SHOW") {
		kind = gateway.KindShow
	}
	return gateway.Descriptor{
		Kind:   kind,
		Target: gateway.Target{Text: reply},
		Limit:  limit,
	}
}

type fsReply struct {
	QueryType  string `json:"query_type"`
	Path       string `json:"path"`
	SearchTerm string `json:"search_term"`
	Extension  string `json:"extension"`
	Limit      int    `json:"limit"`
}

func parseFilesystemReply(reply string, limit int) (gateway.Descriptor, error) {
	var parsed fsReply
	if err := json.Unmarshal([]byte(reply), &parsed); err != nil {
		// Plain text is the refusal path.
		return refusalDescriptor(reply, limit), nil
	}

	var kind gateway.Kind
	switch parsed.QueryType {
	case "list":
		kind = gateway.KindList
	case "search":
		kind = gateway.KindSearch
	case "read":
		kind = gateway.KindRead
	case "info":
		kind = gateway.KindInfo
	default:
		if gateway.IsNonOperational(parsed.QueryType) {
			return refusalDescriptor(parsed.QueryType, limit), nil
		}
		return gateway.Descriptor{}, fmt.Errorf("model proposed unknown filesystem operation %q", parsed.QueryType)
	}

	return gateway.Descriptor{
		Kind: kind,
		Target: gateway.Target{
			Path: parsed.Path,
			Term: parsed.SearchTerm,
			Ext:  parsed.Extension,
		},
		Limit: effectiveLimit(parsed.Limit, limit),
	}, nil
}

type jiraReply struct {
	QueryType string `json:"query_type"`
	JQL       string `json:"jql"`
	IssueKey  string `json:"issue_key"`
	Limit     int    `json:"limit"`
}

func parseJiraReply(reply string, limit int) (gateway.Descriptor, error) {
	var parsed jiraReply
	if err := json.Unmarshal([]byte(reply), &parsed); err != nil {
		return refusalDescriptor(reply, limit), nil
	}

	var kind gateway.Kind
	switch parsed.QueryType {
	case "search":
		kind = gateway.KindIssueSearch
	case "issue":
		kind = gateway.KindIssue
	case "components":
		kind = gateway.KindComponentList
	case "versions":
		kind = gateway.KindVersionList
	default:
		if gateway.IsNonOperational(parsed.QueryType) {
			return refusalDescriptor(parsed.QueryType, limit), nil
		}
		return gateway.Descriptor{}, fmt.Errorf("model proposed unknown jira operation %q", parsed.QueryType)
	}

	return gateway.Descriptor{
		Kind: kind,
		Target: gateway.Target{
			Text: parsed.JQL,
			Key:  parsed.IssueKey,
		},
		Limit: effectiveLimit(parsed.Limit, limit),
	}, nil
}

type restReply struct {
	Endpoint string            `json:"endpoint"`
	Method   string            `json:"method"`
	Params   map[string]string `json:"params"`
	Limit    int               `json:"limit"`
}

func parseRESTReply(reply string, limit int) (gateway.Descriptor, error) {
	var parsed restReply
	if err := json.Unmarshal([]byte(reply), &parsed); err != nil {
		return refusalDescriptor(reply, limit), nil
	}
	if gateway.IsNonOperational(parsed.Endpoint) {
		return refusalDescriptor(parsed.Endpoint, limit), nil
	}

	return gateway.Descriptor{
		Kind: gateway.KindFetch,
		Target: gateway.Target{
			Path:   parsed.Endpoint,
			Method: parsed.Method,
			Params: parsed.Params,
		},
		Limit: effectiveLimit(parsed.Limit, limit),
	}, nil
}

// refusalDescriptor carries non-operational text to the gateway, which will
// short-circuit it into a generic response before validation.
func refusalDescriptor(text string, limit int) gateway.Descriptor {
	return gateway.Descriptor{
		Kind:   gateway.Kind("proposed"),
		Target: gateway.Target{Text: text},
		Limit:  limit,
	}
}

func effectiveLimit(proposed, fallback int) int {
	if proposed > 0 {
		return proposed
	}
	return fallback
}

// Package events maps vendor webhook payloads (payment processor,
// source-control, chat) onto one canonical event shape. Each mapper is a pure
// function of the payload; missing fields stay absent and invalid timestamps
// fall back to current UTC with a trace marker.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ingresskit/ingresskit/pkg/repair"
)

// ErrUnsupportedSource is returned for a source outside {stripe, github, slack}.
var ErrUnsupportedSource = errors.New("events: unsupported source")

// occurredAtLayout renders RFC 3339 UTC with an explicit +00:00 offset.
const occurredAtLayout = "2006-01-02T15:04:05+00:00"

// CanonicalEvent is the harmonized event record shared by every source.
type CanonicalEvent struct {
	EventID    string              `json:"event_id"`
	Source     string              `json:"source"`
	OccurredAt string              `json:"occurred_at"`
	Actor      map[string]any      `json:"actor,omitempty"`
	Subject    map[string]any      `json:"subject,omitempty"`
	Action     string              `json:"action"`
	Metadata   map[string]any      `json:"metadata,omitempty"`
	Trace      []repair.TraceEntry `json:"trace,omitempty"`
}

// Clock supplies the fallback timestamp; overridable in tests.
type Clock func() time.Time

// Normalize dispatches a payload to the mapper for source.
func Normalize(source string, payload map[string]any) (*CanonicalEvent, error) {
	return normalizeAt(source, payload, time.Now)
}

func normalizeAt(source string, payload map[string]any, now Clock) (*CanonicalEvent, error) {
	switch source {
	case "stripe":
		return normalizeStripe(payload, now), nil
	case "github":
		return normalizeGitHub(payload, now), nil
	case "slack":
		return normalizeSlack(payload, now), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, source)
	}
}

// normalizeStripe maps a payment-processor event. The charged object becomes
// the subject; everything else on it lands in metadata.
func normalizeStripe(payload map[string]any, now Clock) *CanonicalEvent {
	obj := childObject(payload, "data", "object")

	ev := &CanonicalEvent{
		EventID: stringField(payload, "id"),
		Source:  "stripe",
		Action:  stringFieldDefault(payload, "type", "unknown"),
	}
	ev.OccurredAt, ev.Trace = unixTimestamp(payload["created"], now, ev.Trace)

	if customer, ok := obj["customer"]; ok && customer != nil {
		ev.Actor = map[string]any{"id": customer}
	}
	subject := map[string]any{}
	if t, ok := obj["object"]; ok && t != nil {
		subject["type"] = t
	}
	if id, ok := obj["id"]; ok && id != nil {
		subject["id"] = id
	}
	if len(subject) > 0 {
		ev.Subject = subject
	}

	metadata := map[string]any{}
	for k, v := range obj {
		switch k {
		case "id", "object", "customer":
		default:
			metadata[k] = v
		}
	}
	if len(metadata) > 0 {
		ev.Metadata = metadata
		ev.Trace = append(ev.Trace, repair.TraceEntry{
			Op: repair.OpMapHeader, Field: "metadata", From: "data.object", To: "metadata",
		})
	}
	return ev
}

// normalizeGitHub maps a source-control event. The subject is the issue or
// pull request sub-object, whichever is present; delivery payloads carry no
// event timestamp, so occurred_at is current UTC.
func normalizeGitHub(payload map[string]any, now Clock) *CanonicalEvent {
	ev := &CanonicalEvent{
		EventID:    stringField(payload, "id"),
		Source:     "github",
		OccurredAt: now().UTC().Format(occurredAtLayout),
		Action:     stringFieldDefault(payload, "action", "unknown"),
	}

	if sender := childObject(payload, "sender"); len(sender) > 0 {
		actor := map[string]any{}
		if id, ok := sender["id"]; ok && id != nil {
			actor["id"] = id
		}
		if login, ok := sender["login"]; ok && login != nil {
			actor["login"] = login
		}
		if len(actor) > 0 {
			ev.Actor = actor
		}
	}

	subjectType := "issue"
	sub := childObject(payload, "issue")
	if pr := childObject(payload, "pull_request"); len(pr) > 0 {
		subjectType = "pull_request"
		sub = pr
	}
	if len(sub) > 0 {
		subject := map[string]any{"type": subjectType}
		if id, ok := sub["id"]; ok && id != nil {
			subject["id"] = id
		}
		if number, ok := sub["number"]; ok && number != nil {
			subject["number"] = number
		}
		ev.Subject = subject

		metadata := map[string]any{}
		if title, ok := sub["title"]; ok && title != nil {
			metadata["title"] = title
		}
		if url, ok := sub["html_url"]; ok && url != nil {
			metadata["url"] = url
		}
		if repo := childObject(payload, "repository"); len(repo) > 0 {
			if full, ok := repo["full_name"]; ok && full != nil {
				metadata["repository"] = full
			}
		}
		if len(metadata) > 0 {
			ev.Metadata = metadata
			ev.Trace = append(ev.Trace, repair.TraceEntry{
				Op: repair.OpMapHeader, Field: "title", From: subjectType + ".title", To: "metadata.title",
			})
		}
	}
	return ev
}

// normalizeSlack maps a chat event. The envelope's event_time drives
// occurred_at; the inner event minus routing keys becomes metadata.
func normalizeSlack(payload map[string]any, now Clock) *CanonicalEvent {
	inner := childObject(payload, "event")

	ev := &CanonicalEvent{
		EventID: stringField(payload, "event_id"),
		Source:  "slack",
		Action:  stringFieldDefault(inner, "type", "message"),
	}
	ev.OccurredAt, ev.Trace = unixTimestamp(payload["event_time"], now, ev.Trace)

	if user, ok := inner["user"]; ok && user != nil {
		ev.Actor = map[string]any{"id": user}
	}
	subject := map[string]any{"type": ev.Action}
	if ch, ok := inner["channel"]; ok && ch != nil {
		subject["channel"] = ch
	}
	ev.Subject = subject

	metadata := map[string]any{}
	for k, v := range inner {
		switch k {
		case "user", "channel", "type":
		default:
			metadata[k] = v
		}
	}
	if len(metadata) > 0 {
		ev.Metadata = metadata
		ev.Trace = append(ev.Trace, repair.TraceEntry{
			Op: repair.OpMapHeader, Field: "text", From: "event.text", To: "metadata.text",
		})
	}
	return ev
}

// unixTimestamp converts a unix-seconds payload value to canonical form.
// Missing or unparseable values fall back to current UTC and record a
// timestamp_fallback trace entry.
func unixTimestamp(v any, now Clock, trace []repair.TraceEntry) (string, []repair.TraceEntry) {
	if secs, ok := unixSeconds(v); ok {
		return time.Unix(secs, 0).UTC().Format(occurredAtLayout), trace
	}
	trace = append(trace, repair.TraceEntry{
		Op: repair.OpParseDate, Field: "occurred_at", Detail: "timestamp_fallback",
	})
	return now().UTC().Format(occurredAtLayout), trace
}

func unixSeconds(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return int64(f), true
	case float64:
		return int64(t), true
	case int64:
		return t, true
	case int:
		return int64(t), true
	default:
		return 0, false
	}
}

func childObject(payload map[string]any, path ...string) map[string]any {
	cur := payload
	for _, p := range path {
		next, ok := cur[p].(map[string]any)
		if !ok {
			return map[string]any{}
		}
		cur = next
	}
	return cur
}

func stringField(payload map[string]any, key string) string {
	switch t := payload[key].(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func stringFieldDefault(payload map[string]any, key, def string) string {
	if s := stringField(payload, key); s != "" {
		return s
	}
	return def
}

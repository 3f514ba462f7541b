package events

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ingresskit/ingresskit/pkg/repair"
)

func decodePayload(t *testing.T, raw string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var payload map[string]any
	require.NoError(t, dec.Decode(&payload))
	return payload
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestNormalizeStripe(t *testing.T) {
	payload := decodePayload(t, `{
		"id": "evt_1",
		"type": "charge.succeeded",
		"created": 1700000000,
		"data": {"object": {
			"object": "charge",
			"id": "ch_9",
			"customer": "cus_42",
			"amount": 1299,
			"currency": "usd"
		}}
	}`)

	ev, err := Normalize("stripe", payload)
	require.NoError(t, err)

	require.Equal(t, "evt_1", ev.EventID)
	require.Equal(t, "stripe", ev.Source)
	require.Equal(t, "charge.succeeded", ev.Action)
	require.Equal(t, "2023-11-14T22:13:20+00:00", ev.OccurredAt)
	require.Equal(t, map[string]any{"id": "cus_42"}, ev.Actor)
	require.Equal(t, map[string]any{"type": "charge", "id": "ch_9"}, ev.Subject)
	require.Equal(t, json.Number("1299"), ev.Metadata["amount"])
	require.Equal(t, "usd", ev.Metadata["currency"])
	require.NotContains(t, ev.Metadata, "customer")

	require.NoError(t, Validate(ev))
}

func TestNormalizeStripe_MissingCreated(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ev, err := normalizeAt("stripe", decodePayload(t, `{"id":"evt_2"}`), fixedClock(now))
	require.NoError(t, err)

	require.Equal(t, "2024-06-01T12:00:00+00:00", ev.OccurredAt)
	require.Equal(t, "unknown", ev.Action)

	var fallback bool
	for _, e := range ev.Trace {
		if e.Op == repair.OpParseDate && e.Detail == "timestamp_fallback" {
			fallback = true
		}
	}
	require.True(t, fallback)
}

func TestNormalizeGitHub_Issue(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	payload := decodePayload(t, `{
		"action": "opened",
		"sender": {"id": 7, "login": "octocat"},
		"issue": {"id": 99, "number": 5, "title": "Crash on start", "html_url": "https://example.com/i/5"},
		"repository": {"full_name": "octo/repo"}
	}`)

	ev, err := normalizeAt("github", payload, fixedClock(now))
	require.NoError(t, err)

	require.Equal(t, "github", ev.Source)
	require.Equal(t, "opened", ev.Action)
	require.Equal(t, "2024-06-01T12:00:00+00:00", ev.OccurredAt)
	require.Equal(t, json.Number("7"), ev.Actor["id"])
	require.Equal(t, "octocat", ev.Actor["login"])
	require.Equal(t, "issue", ev.Subject["type"])
	require.Equal(t, json.Number("5"), ev.Subject["number"])
	require.Equal(t, "Crash on start", ev.Metadata["title"])
	require.Equal(t, "octo/repo", ev.Metadata["repository"])
}

func TestNormalizeGitHub_PullRequestWins(t *testing.T) {
	payload := decodePayload(t, `{
		"action": "closed",
		"issue": {"id": 1},
		"pull_request": {"id": 2, "number": 8, "title": "Fix"}
	}`)

	ev, err := Normalize("github", payload)
	require.NoError(t, err)
	require.Equal(t, "pull_request", ev.Subject["type"])
	require.Equal(t, json.Number("2"), ev.Subject["id"])
}

func TestNormalizeSlack(t *testing.T) {
	payload := decodePayload(t, `{
		"event_id": "Ev01",
		"event_time": 1700000000,
		"event": {
			"type": "message",
			"user": "U123",
			"channel": "C456",
			"text": "hello"
		}
	}`)

	ev, err := Normalize("slack", payload)
	require.NoError(t, err)

	require.Equal(t, "Ev01", ev.EventID)
	require.Equal(t, "slack", ev.Source)
	require.Equal(t, "message", ev.Action)
	require.Equal(t, "2023-11-14T22:13:20+00:00", ev.OccurredAt)
	require.Equal(t, map[string]any{"id": "U123"}, ev.Actor)
	require.Equal(t, "C456", ev.Subject["channel"])
	require.Equal(t, "hello", ev.Metadata["text"])
	require.NotContains(t, ev.Metadata, "user")

	require.NoError(t, Validate(ev))
}

func TestNormalizeSlack_MissingEventTime(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	payload := decodePayload(t, `{"event_id":"Ev02","event":{"type":"message"}}`)

	ev, err := normalizeAt("slack", payload, fixedClock(now))
	require.NoError(t, err)
	require.Equal(t, "2025-01-02T03:04:05+00:00", ev.OccurredAt)

	require.Len(t, ev.Trace, 1)
	require.Equal(t, repair.OpParseDate, ev.Trace[0].Op)
	require.Equal(t, "occurred_at", ev.Trace[0].Field)
	require.Equal(t, "timestamp_fallback", ev.Trace[0].Detail)
}

func TestNormalize_FallbackIsRecent(t *testing.T) {
	before := time.Now().UTC().Add(-5 * time.Second)
	ev, err := Normalize("slack", map[string]any{"event_id": "Ev03"})
	require.NoError(t, err)

	got, err := time.Parse("2006-01-02T15:04:05+00:00", ev.OccurredAt)
	require.NoError(t, err)
	require.True(t, got.After(before))
	require.True(t, got.Before(time.Now().UTC().Add(5*time.Second)))
}

func TestNormalize_UnsupportedSource(t *testing.T) {
	_, err := Normalize("pagerduty", map[string]any{})
	require.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestNormalize_Deterministic(t *testing.T) {
	payload := decodePayload(t, `{
		"id": "evt_1", "type": "charge.succeeded", "created": 1700000000,
		"data": {"object": {"id": "ch_9", "object": "charge", "amount": 5}}
	}`)

	a, err := Normalize("stripe", payload)
	require.NoError(t, err)
	b, err := Normalize("stripe", payload)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestValidate_RejectsBadEvent(t *testing.T) {
	ev := &CanonicalEvent{
		EventID:    "x",
		Source:     "stripe",
		OccurredAt: "yesterday",
		Action:     "charge.succeeded",
	}
	require.Error(t, Validate(ev))
}

func TestSchemaJSON_Parses(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal(SchemaJSON(), &doc))
	require.Equal(t, "object", doc["type"])
}

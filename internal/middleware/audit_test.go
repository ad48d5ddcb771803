package middleware

import (
	"encoding/json"
	"testing"
)

func TestRedactAuditBodyAdminPath(t *testing.T) {
	body := []byte(`{"collection":"0xabc","api_key":"sk-secret","nested":{"admin_key":"root","signature":"0xdead"}}`)
	out := redactAuditBody("/v1/admin/accounts", body)

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	if data["api_key"] == "sk-secret" {
		t.Fatalf("api_key not redacted")
	}
	if data["collection"] != "0xabc" {
		t.Fatalf("non-sensitive field mangled: %v", data["collection"])
	}
	nested, ok := data["nested"].(map[string]interface{})
	if !ok {
		t.Fatalf("nested object missing")
	}
	if nested["admin_key"] == "root" || nested["signature"] == "0xdead" {
		t.Fatalf("nested secrets not redacted")
	}
}

func TestRedactAuditBodyNonSensitivePath(t *testing.T) {
	body := []byte(`{"amount":"1e18"}`)
	out := redactAuditBody("/v1/vault/loans", body)
	if out != string(body) {
		t.Fatalf("unexpected redaction on loan path")
	}
}

func TestRedactAuditBodyInvalidJSON(t *testing.T) {
	out := redactAuditBody("/v1/admin/fund", []byte("not-json"))
	if out != "[redacted]" {
		t.Fatalf("expected redacted placeholder for invalid json, got %q", out)
	}
}

func TestRedactAuditBodyEmpty(t *testing.T) {
	if out := redactAuditBody("/v1/admin/fund", nil); out != "" {
		t.Fatalf("empty body produced %q", out)
	}
}

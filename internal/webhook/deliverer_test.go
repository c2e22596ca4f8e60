package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestSign(t *testing.T) {
	payload := []byte(`{"event":"prompt.activated"}`)
	secret := "whsec_abc123"

	got := Sign(payload, secret)
	if !strings.HasPrefix(got, "sha256=") {
		t.Fatalf("signature missing scheme prefix: %q", got)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if got != want {
		t.Errorf("signature = %q, want %q", got, want)
	}

	if Sign(payload, "other-secret") == got {
		t.Error("different secrets produced the same signature")
	}
}

func TestGenerateSecret(t *testing.T) {
	a, err := generateSecret()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(a, "whsec_") {
		t.Errorf("secret prefix: %q", a)
	}
	b, _ := generateSecret()
	if a == b {
		t.Error("secrets are not unique")
	}
}

package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestWriteCIResult(t *testing.T) {
	var buf bytes.Buffer
	WriteCIResult(&buf, false, "anivault login", []string{"phase=ready"}, errors.New("Неверный email или пароль"))

	var got CIResult
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.OK || got.Title != "anivault login" || len(got.Details) != 1 || got.Error != "Неверный email или пароль" {
		t.Fatalf("unexpected result %+v", got)
	}
	if bytes.Contains(buf.Bytes(), []byte(`\u`)) {
		t.Fatalf("expected unescaped output, got %s", buf.String())
	}
}

func TestWriteCIResultOmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	WriteCIResult(&buf, true, "anivault whoami", nil, nil)
	if got := buf.String(); got != "{\"ok\":true,\"title\":\"anivault whoami\"}\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

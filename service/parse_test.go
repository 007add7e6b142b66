package service

import "testing"

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"prose around object", "Here is the result:\n{\"a\":1}\nHope that helps.", `{"a":1}`, true},
		{"code fence", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"nested braces", `{"a":{"b":2}}`, `{"a":{"b":2}}`, true},
		{"no object", "no json here", "", false},
		{"only open brace", "{oops", "", false},
		{"empty input", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSONObject(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeJSONObject(t *testing.T) {
	var out struct {
		Applicability string `json:"applicability"`
	}

	if !decodeJSONObject(`Sure! {"applicability": "Applies"}`, &out) {
		t.Fatal("decode failed on valid wrapped JSON")
	}
	if out.Applicability != "Applies" {
		t.Errorf("Applicability = %q", out.Applicability)
	}

	if decodeJSONObject(`{"applicability": `, &out) {
		t.Error("decode succeeded on truncated JSON")
	}
	if decodeJSONObject("no braces", &out) {
		t.Error("decode succeeded without JSON object")
	}
}

package client

import (
	"testing"
)

func TestParseDetection(t *testing.T) {
	raw := "```json\n{\n  // the sign\n  \"present\": true,\n  \"label\": \"stop\",\n  \"confidence\": 0.9,\n  \"box\": {\"x\": 0.1, \"y\": 0.2, \"w\": 1.4, \"h\": 0.5},\n}\n```"

	d := ParseDetection(raw)
	if d.Fallback {
		t.Fatalf("unexpected fallback: %s", d.Description)
	}
	if !d.Present || d.Label != "stop" || d.Confidence != 0.9 {
		t.Errorf("unexpected detection %+v", d)
	}
	if d.Box.W != 1 {
		t.Errorf("box width not clamped: %f", d.Box.W)
	}
}

func TestParseDetectionFallbacks(t *testing.T) {
	for _, raw := range []string{"I see a red sign.", "{not json}", ""} {
		d := ParseDetection(raw)
		if !d.Fallback || d.Present {
			t.Errorf("ParseDetection(%q) = %+v, want fallback", raw, d)
		}
	}
}

func TestParseDetectionNoneLabel(t *testing.T) {
	d := ParseDetection(`{"present": true, "label": "None", "confidence": 0.2}`)
	if d.Present {
		t.Error("label none must not count as present")
	}
}

func TestSanitizeModelJSON(t *testing.T) {
	got := SanitizeModelJSON("Here you go: {\"a\": [1, 2,], /* note */ \"b\": 2,} thanks")
	want := `{"a": [1, 2],  "b": 2}`
	if got != want {
		t.Errorf("SanitizeModelJSON = %q, want %q", got, want)
	}
}

package motion

import (
	"encoding/json"
	"testing"
)

func TestFromString(t *testing.T) {
	cases := []struct {
		in   string
		want Context
	}{
		{"Stationary", ContextStationary},
		{"still", ContextStationary},
		{"Walking", ContextWalking},
		{"running", ContextWalking},
		{"Vehicle", ContextVehicle},
		{"Automotive", ContextVehicle},
		{"Indoor", ContextIndoor},
		{"", ContextUnknown},
		{"yoga", ContextUnknown},
	}
	for _, c := range cases {
		if got := FromString(c.in); got != c.want {
			t.Errorf("FromString(%q) = %v, want %v", c.in, got, c.want)
		}
	}
	for _, c := range AllContexts {
		if FromString(c.String()) != c {
			t.Errorf("round trip failed for %v", c)
		}
	}
}

func TestInferFromSpeed(t *testing.T) {
	cases := []struct {
		speed    float64
		previous Context
		want     Context
	}{
		{0.1, ContextUnknown, ContextStationary},
		{1.2, ContextUnknown, ContextWalking},
		{1.2, ContextVehicle, ContextVehicle},
		{3.0, ContextWalking, ContextWalking},
		{3.0, ContextVehicle, ContextVehicle},
		{12, ContextWalking, ContextVehicle},
	}
	for _, c := range cases {
		got := InferFromSpeed(c.speed, 0.5, 2.0, 5.0, c.previous)
		if got != c.want {
			t.Errorf("speed %v prev %v: got %v want %v", c.speed, c.previous, got, c.want)
		}
	}
}

func TestContext_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		C Context `json:"c"`
	}{ContextVehicle})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"c":"Vehicle"}` {
		t.Errorf("got %s", b)
	}
	var out struct {
		C Context `json:"c"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if out.C != ContextVehicle {
		t.Errorf("got %v", out.C)
	}
	if err := json.Unmarshal([]byte(`{"c":4}`), &out); err != nil || out.C != ContextIndoor {
		t.Errorf("numeric decode: %v %v", out.C, err)
	}
}

package integration

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestHealthLiveAndReadyEndpoints(t *testing.T) {
	d := newDeployment(t)
	r := d.start()

	t.Run("live endpoint stable 200 payload", func(t *testing.T) {
		resp, env := doJSON(t, r.client, http.MethodGet, r.baseURL+"/health/live", nil)
		if resp.StatusCode != http.StatusOK || !env.Success {
			t.Fatalf("health live failed: status=%d success=%v", resp.StatusCode, env.Success)
		}
	})

	t.Run("ready endpoint probes database and identity provider", func(t *testing.T) {
		resp, env := doJSON(t, r.client, http.MethodGet, r.baseURL+"/health/ready", nil)
		if resp.StatusCode != http.StatusOK || !env.Success {
			t.Fatalf("health ready failed: status=%d success=%v", resp.StatusCode, env.Success)
		}
		var data struct {
			Status string `json:"status"`
			Checks []struct {
				Name    string `json:"name"`
				Healthy bool   `json:"healthy"`
			} `json:"checks"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatalf("decode ready data: %v", err)
		}
		if data.Status != "ready" || len(data.Checks) != 2 {
			t.Fatalf("unexpected ready payload %+v", data)
		}
		for _, c := range data.Checks {
			if !c.Healthy {
				t.Fatalf("check %s unhealthy", c.Name)
			}
		}
	})
}

package docs

import (
	"encoding/json"
	"testing"

	"github.com/swaggo/swag"
)

func TestRegisteredDocIsValidJSON(t *testing.T) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		t.Fatalf("ReadDoc: %v", err)
	}

	var parsed struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("doc is not JSON: %v", err)
	}
	if parsed.Info.Title != SwaggerInfo.Title {
		t.Errorf("title = %q", parsed.Info.Title)
	}
	for _, path := range []string{"/api/inventory/add", "/api/orders", "/api/reports/summary", "/health"} {
		if _, ok := parsed.Paths[path]; !ok {
			t.Errorf("path %s missing", path)
		}
	}
}

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbellec/ladingd/internal/record"
)

func newTestServer(t *testing.T, response string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]string{"response": response})
	}))
	return srv, &captured
}

func TestExtractFields(t *testing.T) {
	modelJSON := `{
		"bl_number": "MEDUXY987654",
		"shipper_name": "ACME EXPORTS PTE LTD",
		"shipper_address": "1 HARBOUR RD, SINGAPORE",
		"consignee_name": "GLOBEX IMPORT GMBH",
		"port_of_loading": "SINGAPORE",
		"port_of_discharge": "ROTTERDAM",
		"vessel_name": "MSC OSCAR",
		"voyage_number": "FA832A",
		"container_numbers": ["MSCU1234567", "TCNU7654321"],
		"freight_terms": "PREPAID"
	}`
	srv, captured := newTestServer(t, modelJSON)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Model: "gemma3:12b", Timeout: 5 * time.Second}, nil)
	partial, raw, err := c.ExtractFields(context.Background(), ExtractRequest{Text: "some ocr text"})
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	assert.Equal(t, record.SourceLLM, partial.Source)
	rec := partial.Fields
	assert.Equal(t, "MEDUXY987654", rec.BLNumber)
	require.NotNil(t, rec.Shipper)
	assert.Equal(t, "ACME EXPORTS PTE LTD", rec.Shipper.Name)
	require.NotNil(t, rec.Transport)
	assert.Equal(t, "MSC OSCAR", rec.Transport.VesselName)
	assert.Len(t, rec.Containers, 2)
	assert.Greater(t, partial.Confidence, float32(0.5))

	// request shape is the ollama generate contract
	req := *captured
	assert.Equal(t, "gemma3:12b", req["model"])
	assert.Equal(t, false, req["stream"])
	assert.Equal(t, "json", req["format"])
	opts, ok := req["options"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 0.1, opts["temperature"], 1e-6)
}

func TestExtractFieldsFencedResponse(t *testing.T) {
	srv, _ := newTestServer(t, "```json\n{\"bl_number\": \"ABCD1234\"}\n```")
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	partial, _, err := c.ExtractFields(context.Background(), ExtractRequest{Text: "t"})
	require.NoError(t, err)
	assert.Equal(t, "ABCD1234", partial.Fields.BLNumber)
}

func TestExtractFieldsSanitizeRetry(t *testing.T) {
	// unknown key plus a literal "null" string; the first validation
	// fails and the sanitized document passes
	srv, _ := newTestServer(t, `{
		"bl_number": "ABCD1234",
		"consignee_name": "null",
		"reasoning": "I found the number at the top"
	}`)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	partial, _, err := c.ExtractFields(context.Background(), ExtractRequest{Text: "t"})
	require.NoError(t, err)
	assert.Equal(t, "ABCD1234", partial.Fields.BLNumber)
	assert.Nil(t, partial.Fields.Consignee)
}

func TestExtractFieldsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	_, _, err := c.ExtractFields(context.Background(), ExtractRequest{Text: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestCleanModelResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"chatter", `Here is the JSON: {"a":1} hope it helps`, `{"a":1}`},
		{"nested braces", `{"a":{"b":2}}`, `{"a":{"b":2}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanModelResponse(tc.input))
		})
	}
}

func TestSanitizeModelOutput(t *testing.T) {
	cleaned, dropped, err := SanitizeModelOutput([]byte(`{
		"bl_number": "X1",
		"weight": "NULL",
		"commentary": "the model explains itself"
	}`))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"weight", "commentary"}, dropped)

	var m map[string]any
	require.NoError(t, json.Unmarshal(cleaned, &m))
	assert.Equal(t, map[string]any{"bl_number": "X1"}, m)
}

func TestConfidenceBonusClipped(t *testing.T) {
	rec := Fields{
		BLNumber:         "ABCD1234",
		BookingNumber:    "BK1",
		ShipperName:      "A",
		ConsigneeName:    "B",
		PortOfLoading:    "X",
		PortOfDischarge:  "Y",
		VesselName:       "V",
		CargoDescription: "C",
		FreightTerms:     "PREPAID",
		ContainerNumbers: []string{"ABCD1234567"},
	}.ToRecord()
	conf := Confidence(rec)
	assert.Equal(t, float32(1.0), conf)
}

func TestConfidenceSparse(t *testing.T) {
	conf := Confidence(Fields{BLNumber: "ABCD1234"}.ToRecord())
	assert.Greater(t, conf, float32(0))
	assert.Less(t, conf, float32(0.3))
}

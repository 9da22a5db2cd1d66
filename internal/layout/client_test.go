package layout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/analyze", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(8<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "bl.pdf", header.Filename)

		_ = json.NewEncoder(w).Encode(Analysis{
			Text:  "BILL OF LADING ...",
			Title: "BILL OF LADING",
			Sections: map[string]string{
				"header_info": "B/L NO MEDUXY987654",
				"parties":     "SHIPPER ACME",
			},
			Pages: 2,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, nil)
	a, err := c.Analyze(context.Background(), []byte("%PDF-1.4 fake"), "bl.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, a.Pages)
	assert.Contains(t, a.Sections["header_info"], "MEDUXY987654")
}

func TestAnalyzeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "conversion failed", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, nil)
	_, err := c.Analyze(context.Background(), []byte("junk"), "bl.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestComplete(t *testing.T) {
	tests := []struct {
		name     string
		analysis *Analysis
		want     bool
	}{
		{"nil analysis", nil, false},
		{"no sections", &Analysis{Text: "whatever"}, false},
		{"one section", &Analysis{Sections: map[string]string{"parties": "X"}}, false},
		{"two sections", &Analysis{Sections: map[string]string{
			"parties": "X", "ports": "Y",
		}}, true},
		{"blank sections ignored", &Analysis{Sections: map[string]string{
			"parties": "  ", "ports": "Y", "header_info": "",
		}}, false},
		{"all three", &Analysis{Sections: map[string]string{
			"parties": "X", "ports": "Y", "header_info": "Z",
		}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.analysis.Complete())
		})
	}
}

package gemini

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/nominas/internal/llm"
	"github.com/joseph-ayodele/nominas/internal/nomina"
)

const answer = `{"empresa":{"cif":"B12345678"},"trabajador":{},"periodo":{"dias":30},"devengo_items":[{"concepto":"SALARIO BASE","importe":1000}],"deduccion_items":[],"aportacion_empresa_items":[]}`

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/"+DefaultModel+":generateContent"), r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(b), "application/json")
		assert.Contains(t, string(b), "inlineData")

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": answer}},
				},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c, err := NewClient(t.Context(), Config{APIKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	r, raw, err := c.Verify(t.Context(), llm.VerifyRequest{
		Page:     1,
		Image:    []byte("\x89PNG\r\n\x1a\nfake"),
		MimeType: "image/png",
		Parsed:   nomina.ParseText(""),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	require.NotNil(t, r.Empresa.CIF)
	assert.Equal(t, "B12345678", *r.Empresa.CIF)
	assert.Equal(t, "1000.00", r.Totales.LiquidoAPercibir.String())
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	_, err := NewClient(t.Context(), Config{}, nil)
	assert.Error(t, err)
}

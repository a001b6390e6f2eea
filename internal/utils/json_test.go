package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", ` {"riskLevel":"low"} `, `{"riskLevel":"low"}`},
		{"json fence", "```json\n{\"riskLevel\":\"low\"}\n```", `{"riskLevel":"low"}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Voici l'analyse :\n{\"a\":{\"b\":2}}\nBonne journée.", `{"a":{"b":2}}`},
		{"fence after prose", "Résultat:\n```json\n{\"a\":1}\n```\nfin", `{"a":1}`},
		{"no object", "  pas de json  ", "pas de json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSONObject(tt.input))
		})
	}
}

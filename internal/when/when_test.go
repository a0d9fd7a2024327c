package when

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	e := NewEvaluator()

	tests := []struct {
		name       string
		expression string
		vars       Variables
		want       bool
	}{
		{"empty is always true", "", Variables{}, true},
		{"terminal focus true", "terminalFocus", Variables{TerminalFocus: true}, true},
		{"terminal focus false", "terminalFocus", Variables{}, false},
		{"negation", "!terminalFocus", Variables{}, true},
		{
			"conjunction",
			"terminalFocus && windowFocus",
			Variables{TerminalFocus: true, WindowFocus: true},
			true,
		},
		{
			"string comparison",
			`hyperlinkProtocol == "https"`,
			Variables{HyperlinkProtocol: "https"},
			true,
		},
		{
			"domain and extension",
			`hyperlinkDomain == "example.com" && hyperlinkFileExtension == "png"`,
			Variables{HyperlinkDomain: "example.com", HyperlinkFileExtension: "png"},
			true,
		},
		{"broken expression is false", "terminalFocus &&", Variables{TerminalFocus: true}, false},
		{"non-boolean result is false", `hyperlinkURL`, Variables{HyperlinkURL: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Evaluate(tt.expression, tt.vars))
		})
	}
}

func TestEvaluateCachesPrograms(t *testing.T) {
	e := NewEvaluator()

	for i := 0; i < 5; i++ {
		e.Evaluate("terminalFocus", Variables{TerminalFocus: true})
	}
	assert.Equal(t, 1, e.Len())

	e.Evaluate("windowFocus", Variables{})
	assert.Equal(t, 2, e.Len())
}

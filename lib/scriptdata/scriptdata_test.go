package scriptdata

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFromCall(t *testing.T) {
	testCases := []struct {
		name      string
		script    string
		target    string
		delimiter string
		expected  map[string]string
	}{
		{
			name:      "only the matching line is parsed",
			script:    "a=1,\t+b:\"2\",\t+target(c:\"3\")",
			target:    "target",
			delimiter: "\t+",
			expected:  map[string]string{"c": "3"},
		},
		{
			name:      "first match wins",
			script:    "x(a:\"1\")\t+x(a:\"2\",b:\"3\")",
			target:    "x(",
			delimiter: "\t+",
			expected:  map[string]string{"a": "1"},
		},
		{
			name:      "object argument with quoted keys",
			script:    "\t+BuildHover( 'item', {\"id\":\"42\",\"name\":\"Foo\\u0020Bar\",\"count\":5} );",
			target:    "BuildHover",
			delimiter: "",
			expected:  map[string]string{"id": "42", "name": "Foo Bar"},
		},
		{
			name:      "malformed segments are skipped",
			script:    `f(a:"1",b,c:"x:"y",d:"4")`,
			target:    "f(",
			delimiter: "\n",
			expected:  map[string]string{"a": "1", "d": "4"},
		},
		{
			name:      "no matching line",
			script:    "a:\"1\"\t+b:\"2\"",
			target:    "missing",
			delimiter: "\t+",
			expected:  map[string]string{},
		},
		{
			name:      "escapes are decoded",
			script:    `g(msg:"line\none\ttab\/slash \x41 \u00e9 \ud83d\ude00 \q")`,
			target:    "g(",
			delimiter: "\n",
			expected:  map[string]string{"msg": "line\none\ttab/slash A é 😀 \\q"},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			result := FromCall(test.script, test.target, test.delimiter)
			diff := cmp.Diff(test.expected, result)
			if diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestAssignments(t *testing.T) {
	testCases := []struct {
		name      string
		script    string
		delimiter string
		expected  map[string]any
	}{
		{
			name:      "simple var",
			script:    "var foo = \"bar\";\n",
			delimiter: "\n",
			expected:  map[string]any{"foo": "bar"},
		},
		{
			name: "mixed statements",
			script: "\t\tvar g_steamID = \"76561198000000000\";\r\n" +
				"\t\tg_rgWalletInfo = {\"wallet_currency\":7,\"wallet_balance\":\"599\"};\r\n" +
				"\t\tInitMiniprofileHovers();\r\n" +
				"\t\tlet count = 3;\r\n" +
				"\t\tconst broken = {not json};\r\n",
			delimiter: "\n",
			expected: map[string]any{
				"g_steamID": "76561198000000000",
				"g_rgWalletInfo": map[string]any{
					"wallet_currency": float64(7),
					"wallet_balance":  "599",
				},
				"count": float64(3),
			},
		},
		{
			name:      "default delimiter",
			script:    "var a = [1, 2];\nvar b = null;",
			delimiter: "",
			expected:  map[string]any{"a": []any{float64(1), float64(2)}, "b": nil},
		},
		{
			name:      "nothing to extract",
			script:    "console.log('hi');",
			delimiter: "\n",
			expected:  map[string]any{},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			result := Assignments(test.script, test.delimiter)
			diff := cmp.Diff(test.expected, result)
			if diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

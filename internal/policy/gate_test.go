package policy

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGateAllowsTabularSnippets(t *testing.T) {
	gate := NewGate()

	tests := []struct {
		name string
		code string
	}{
		{"mean of a column", `answer = df.Col("age").Mean()`},
		{"filter sort head chain", `top := df.Where("revenue", ">", 1000).SortBy("revenue", false).Head(5)
answer = top`},
		{"group aggregate", `answer = df.GroupBy("region").Sum("units")`},
		{"math over materialized values", `total := 0.0
for _, v := range df.Col("price").Float64s() {
	total += math.Sqrt(v)
}
answer = total`},
		{"var declaration and if", `var label string
if df.NumRows() > 100 {
	label = "large"
} else {
	label = "small"
}
answer = label`},
		{"allowlisted import", `import "math"
answer = math.Round(df.Col("age").Mean())`},
		{"switch on a local", `kind := df.Col("age").Kind()
switch kind {
case "numeric":
	answer = df.Col("age").Mean()
default:
	answer = kind
}`},
		{"composite literal accumulator", `counts := map[string]int{}
for _, r := range df.Col("region").Strings() {
	counts[r]++
}
answer = counts`},
		{"make with small literal sizes", `xs := make([]float64, 0, 100)
seen := make(map[string]bool)
for _, r := range df.Col("region").Strings() {
	if !seen[r] {
		seen[r] = true
		xs = append(xs, 1)
	}
}
answer = len(xs)`},
		{"make without a size", `groups := make(map[string][]string)
answer = len(groups)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, prog := gate.Inspect(tt.code)
			if !verdict.Allowed {
				t.Fatalf("expected allowed, got violations: %v", verdict.Reasons())
			}
			if prog == nil {
				t.Fatal("allowed verdict must carry a program")
			}
		})
	}
}

func TestGateRejections(t *testing.T) {
	gate := NewGate()

	tests := []struct {
		name        string
		code        string
		kind        ViolationKind
		descContain string
	}{
		{
			name:        "disallowed import",
			code:        "import \"os\"\nanswer = os.Getenv(\"HOME\")",
			kind:        ViolationDisallowedImport,
			descContain: `"os"`,
		},
		{
			name:        "disallowed import in block",
			code:        "import (\n\t\"net/http\"\n)\nanswer = 1",
			kind:        ViolationDisallowedImport,
			descContain: "net/http",
		},
		{
			name:        "undeclared package name",
			code:        `answer = exec.Command("whoami")`,
			kind:        ViolationDisallowedName,
			descContain: `"exec"`,
		},
		{
			name:        "network wait loop",
			code:        "for {\n\tresp := http.Get(\"http://example.com\")\n\tanswer = resp\n}",
			kind:        ViolationUnboundedLoop,
			descContain: "iteration bound",
		},
		{
			name:        "condition loop over counter",
			code:        "i := 0\nfor i < 10 {\n\ti++\n}\nanswer = i",
			kind:        ViolationUnboundedLoop,
			descContain: "materialized",
		},
		{
			name:        "syntactically invalid",
			code:        `answer = df.Col("age".Mean(`,
			kind:        ViolationParseError,
			descContain: "does not parse",
		},
		{
			name:        "function literal",
			code:        `f := func() int { return 1 }
answer = f`,
			kind:        ViolationDisallowedStatement,
			descContain: "function literal",
		},
		{
			name:        "goroutine launch",
			code:        `go df.Col("age").Mean()
answer = 1`,
			kind:        ViolationDisallowedStatement,
			descContain: "goroutine",
		},
		{
			name:        "defer",
			code:        `defer df.Col("age").Mean()
answer = 1`,
			kind:        ViolationDisallowedStatement,
			descContain: "defer",
		},
		{
			name:        "dunder member access",
			code:        `answer = df.__internals__`,
			kind:        ViolationDisallowedAttribute,
			descContain: "internal members",
		},
		{
			name:        "panic call",
			code:        `panic("boom")`,
			kind:        ViolationDisallowedCall,
			descContain: "panic",
		},
		{
			name:        "rebind dataset binding",
			code:        `df := 1
answer = df`,
			kind:        ViolationDisallowedAssignment,
			descContain: `"df"`,
		},
		{
			name:        "assignment to undeclared name",
			code:        `result = df.NumRows()
answer = result`,
			kind:        ViolationDisallowedAssignment,
			descContain: "undeclared",
		},
		{
			name:        "short-declare the result binding",
			code:        `answer := df.NumRows()`,
			kind:        ViolationDisallowedAssignment,
			descContain: "not :=",
		},
		{
			name:        "wrapper brace escape",
			code:        "answer = 1\n}\nfunc evil() {\n\tanswer := 2\n\t_ = answer\n",
			kind:        ViolationDisallowedStatement,
			descContain: "top-level",
		},
		{
			name:        "type assertion",
			code:        `answer = interface{}(df).(int)`,
			kind:        ViolationDisallowedStatement,
			descContain: "not permitted",
		},
		{
			name:        "make size from shift expression",
			code:        "big := make([]float64, 1<<22)\nanswer = len(big)",
			kind:        ViolationDisallowedCall,
			descContain: "integer literals",
		},
		{
			name:        "make with oversized literal",
			code:        "big := make([]float64, 4194304)\nanswer = len(big)",
			kind:        ViolationDisallowedCall,
			descContain: "exceeds the limit",
		},
		{
			name:        "make with computed size",
			code:        "n := df.NumRows()\nbuf := make([]int, n*n)\nanswer = len(buf)",
			kind:        ViolationDisallowedCall,
			descContain: "integer literals",
		},
		{
			name:        "make oversized capacity",
			code:        "buf := make([]byte, 0, 2000000)\nanswer = cap(buf)",
			kind:        ViolationDisallowedCall,
			descContain: "exceeds the limit",
		},
		{
			name:        "strings repeat amplifier",
			code:        `answer = strings.Repeat("x", 1073741824)`,
			kind:        ViolationDisallowedCall,
			descContain: "strings.Repeat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, prog := gate.Inspect(tt.code)
			if verdict.Allowed {
				t.Fatal("expected rejection")
			}
			if prog != nil {
				t.Fatal("rejected snippet must not produce a program")
			}

			found := false
			for _, v := range verdict.Violations {
				if v.Kind == tt.kind && strings.Contains(v.Message, tt.descContain) {
					found = true
				}
			}
			if !found {
				t.Errorf("want %s containing %q, got %v", tt.kind, tt.descContain, verdict.Reasons())
			}
		})
	}
}

func TestGateCollectsAllViolations(t *testing.T) {
	gate := NewGate()
	code := "import \"os\"\n" +
		"for {\n" +
		"\tx := net.Dial()\n" +
		"\tanswer = x\n" +
		"}"

	verdict, _ := gate.Inspect(code)
	if verdict.Allowed {
		t.Fatal("expected rejection")
	}

	kinds := make(map[ViolationKind]bool)
	for _, v := range verdict.Violations {
		kinds[v.Kind] = true
	}
	for _, want := range []ViolationKind{ViolationDisallowedImport, ViolationUnboundedLoop, ViolationDisallowedName} {
		if !kinds[want] {
			t.Errorf("missing %s in %v", want, verdict.Reasons())
		}
	}
}

func TestGateDeterministic(t *testing.T) {
	gate := NewGate()
	code := "import \"os\"\nfor {\n\tanswer = os.Getpid()\n}"

	first, _ := gate.Inspect(code)
	second, _ := gate.Inspect(code)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("verdicts differ between runs (-first +second):\n%s", diff)
	}
}

func TestSplitHeader(t *testing.T) {
	imports, body, headerLines := splitHeader("package main\nimport (\n\t\"math\"\n\t\"os\"\n)\n\nanswer = math.Pi")
	if len(imports) != 2 || imports[0].path != "math" || imports[1].path != "os" {
		t.Fatalf("imports = %+v", imports)
	}
	if body != "answer = math.Pi" {
		t.Errorf("body = %q", body)
	}
	if headerLines != 6 {
		t.Errorf("headerLines = %d, want 6", headerLines)
	}
}

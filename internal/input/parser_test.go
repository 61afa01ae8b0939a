package input

import (
	"testing"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantType ResultType
	}{
		{"bare expression", "1 + 1", ResultProgram},
		{"statement", "x := 5", ResultProgram},
		{"declaration", "func add(a, b int) int { return a + b }", ResultProgram},
		{"import", `import "strings"`, ResultProgram},
		{"empty", "   \n\t", ResultEmpty},
		{"command", ":type 1 + 1", ResultCommand},
		{"unbalanced brace", "func f() {", ResultMore},
		{"unbalanced paren", "add(1,", ResultMore},
		{"unterminated string", "s := \"abc", ResultMore},
		{"hard error", "a ,, b", ResultError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.text)
			if res.Type != tt.wantType {
				t.Fatalf("Parse(%q).Type = %v, want %v (err %q)", tt.text, res.Type, tt.wantType, res.Err)
			}
		})
	}
}

func TestParseExpression(t *testing.T) {
	res := Parse("1 + 1")
	if res.Type != ResultProgram {
		t.Fatalf("unexpected result %v", res.Type)
	}
	in := res.Program
	if len(in.Statements) != 1 || in.Statements[0] != "1 + 1" {
		t.Fatalf("statements = %q", in.Statements)
	}
	if !in.LastExpr {
		t.Error("bare expression should set LastExpr")
	}
	if len(in.Items) != 0 || len(in.ViewItems) != 0 {
		t.Error("expression round should produce no declarations")
	}
}

func TestParseTerminatedExpression(t *testing.T) {
	res := Parse("f();")
	if res.Type != ResultProgram {
		t.Fatalf("unexpected result %v", res.Type)
	}
	if res.Program.LastExpr {
		t.Error("explicit terminator should clear LastExpr")
	}
}

func TestParseDeclaration(t *testing.T) {
	res := Parse("func add(a, b int) int { return a + b }")
	if res.Type != ResultProgram {
		t.Fatalf("unexpected result %v", res.Type)
	}
	in := res.Program
	if len(in.Items) != 1 {
		t.Fatalf("items = %q", in.Items)
	}
	if len(in.Statements) != 0 {
		t.Fatalf("statements = %q", in.Statements)
	}
}

func TestParseImportKinds(t *testing.T) {
	tests := []struct {
		text string
		kind ViewKind
	}{
		{`import "strings"`, KindUse},
		{`import "net/http"`, KindUse},
		{`import "github.com/pkg/errors"`, KindExtern},
		{`import e "github.com/pkg/errors"`, KindExtern},
	}
	for _, tt := range tests {
		res := Parse(tt.text)
		if res.Type != ResultProgram || len(res.Program.ViewItems) != 1 {
			t.Fatalf("Parse(%q) did not produce one view-item", tt.text)
		}
		if got := res.Program.ViewItems[0].Kind; got != tt.kind {
			t.Errorf("Parse(%q) kind = %v, want %v", tt.text, got, tt.kind)
		}
	}
}

func TestParseGroupedImport(t *testing.T) {
	res := Parse("import (\n\t\"strings\"\n\ts \"sort\"\n)")
	if res.Type != ResultProgram {
		t.Fatalf("unexpected result %v", res.Type)
	}
	vi := res.Program.ViewItems
	if len(vi) != 2 {
		t.Fatalf("view-items = %v", vi)
	}
	if vi[0].Text != `import "strings"` || vi[1].Text != `import s "sort"` {
		t.Errorf("rendered imports = %q, %q", vi[0].Text, vi[1].Text)
	}
}

func TestParseMixedRound(t *testing.T) {
	res := Parse("func double(n int) int { return 2 * n }\ndouble(21)")
	if res.Type != ResultProgram {
		t.Fatalf("unexpected result %v (err %q)", res.Type, res.Err)
	}
	in := res.Program
	if len(in.Items) != 1 {
		t.Fatalf("items = %q", in.Items)
	}
	if len(in.Statements) != 1 || in.Statements[0] != "double(21)" {
		t.Fatalf("statements = %q", in.Statements)
	}
	if !in.LastExpr {
		t.Error("trailing bare call should set LastExpr")
	}
}

func TestParseFuncLiteralIsStatement(t *testing.T) {
	res := Parse("func() { x := 1; _ = x }()")
	if res.Type != ResultProgram {
		t.Fatalf("unexpected result %v (err %q)", res.Type, res.Err)
	}
	in := res.Program
	if len(in.Items) != 0 {
		t.Fatalf("func literal call misclassified as item: %q", in.Items)
	}
	if len(in.Statements) != 1 {
		t.Fatalf("statements = %q", in.Statements)
	}
}

func TestParseAttributes(t *testing.T) {
	res := Parse("//go:noinline\nfunc f() {}")
	if res.Type != ResultProgram {
		t.Fatalf("unexpected result %v", res.Type)
	}
	in := res.Program
	if len(in.Attributes) != 1 || in.Attributes[0] != "//go:noinline" {
		t.Fatalf("attributes = %q", in.Attributes)
	}
	if len(in.Items) != 1 {
		t.Fatalf("items = %q", in.Items)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text     string
		name     string
		args     string
		hasArgs  bool
		wantType ResultType
	}{
		{"type 1 + 1", "type", "1 + 1", true, ResultCommand},
		{"block", "block", "", false, ResultCommand},
		{"b", "b", "", false, ResultCommand},
		{"  t  x  ", "t", "x", true, ResultCommand},
		{"", "", "", false, ResultError},
	}
	for _, tt := range tests {
		res := ParseCommand(tt.text)
		if res.Type != tt.wantType {
			t.Errorf("ParseCommand(%q).Type = %v, want %v", tt.text, res.Type, tt.wantType)
			continue
		}
		if res.Type != ResultCommand {
			continue
		}
		if res.Name != tt.name || res.Args != tt.args || res.HasArgs != tt.hasArgs {
			t.Errorf("ParseCommand(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.text, res.Name, res.Args, res.HasArgs, tt.name, tt.args, tt.hasArgs)
		}
	}
}

func TestParseMultiStatement(t *testing.T) {
	res := Parse("x := 2\ny := 3\nx * y")
	if res.Type != ResultProgram {
		t.Fatalf("unexpected result %v (err %q)", res.Type, res.Err)
	}
	in := res.Program
	if len(in.Statements) != 3 {
		t.Fatalf("statements = %q", in.Statements)
	}
	if !in.LastExpr {
		t.Error("final bare expression should set LastExpr")
	}
}

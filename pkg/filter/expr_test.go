package filter

import (
	"errors"
	"sync"
	"testing"
)

func TestParse_Matching(t *testing.T) {
	tests := []struct {
		expr  string
		input string
		want  bool
	}{
		{"alpha", "Node Alpha_2", true},
		{"ALPHA", "alpha", true},
		{"alpha beta", "alpha gamma", false},
		{"alpha beta", "beta alpha", true},
		{"alpha && beta", "alpha beta", true},
		{"alpha AND beta", "alpha", false},
		{"alpha || beta", "beta", true},
		{"alpha OR beta", "gamma", false},
		{"!alpha", "beta", true},
		{"-alpha", "alpha", false},
		{"NOT alpha", "alpha", false},
		{"(alpha || beta) && Tag:FName", "beta Tag:FName", true},
		{"(alpha || beta) && Tag:FName", "beta Tag:FString", false},
		{`"two words"`, "has two words here", true},
		{`"two words"`, "two-words", false},
		{`"say \"hi\""`, `say "hi" now`, true},
		{"a || b c", "b c", true},
		{"a || b c", "b", false},
		{"ÉCOLE", "école", true},
	}
	for _, tt := range tests {
		q, err := Parse(tt.expr)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.expr, err)
			continue
		}
		if got := q.Match(tt.input); got != tt.want {
			t.Errorf("%q on %q: expected %v, got %v (parsed %s)", tt.expr, tt.input, tt.want, got, q)
		}
	}
}

func TestParse_Blank(t *testing.T) {
	q, err := Parse("   ")
	if err != nil || q != nil {
		t.Fatalf("expected nil query for blank input, got %v, %v", q, err)
	}
	if !q.Match("anything") {
		t.Error("nil query must match everything")
	}
}

func TestParse_Errors(t *testing.T) {
	for _, expr := range []string{"(alpha", "alpha)", `"open`, "alpha &&", "|| beta", "!"} {
		_, err := Parse(expr)
		if err == nil {
			t.Errorf("Parse(%q): expected error", expr)
			continue
		}
		if !errors.Is(err, ErrSyntax) {
			t.Errorf("Parse(%q): expected ErrSyntax, got %v", expr, err)
		}
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("Parse(%q): expected *SyntaxError", expr)
		}
	}
}

func TestParse_Terms(t *testing.T) {
	q, err := Parse(`alpha -beta ("gamma delta" || NOT eps)`)
	if err != nil {
		t.Fatal(err)
	}
	terms := q.Terms()
	want := []string{"alpha", "gamma delta"}
	if len(terms) != len(want) {
		t.Fatalf("expected terms %v, got %v", want, terms)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Errorf("term %d: expected %q, got %q", i, want[i], terms[i])
		}
	}
}

func TestQuote_Literal(t *testing.T) {
	for _, s := range []string{"a && b", `with "quotes"`, `back\slash`, "NOT", "-x", "(paren)"} {
		q, err := Parse(Quote(s))
		if err != nil {
			t.Errorf("Parse(Quote(%q)): %v", s, err)
			continue
		}
		if !q.Match("prefix " + s + " suffix") {
			t.Errorf("quoted %q did not match itself", s)
		}
	}
}

func TestQuery_MatchConcurrent(t *testing.T) {
	q, err := Parse("straße || ALPHA")
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if !q.Match("Node STRASSE_1") || !q.Match("alpha") || q.Match("beta") {
					t.Error("unexpected match result")
					return
				}
			}
		}()
	}
	wg.Wait()
}

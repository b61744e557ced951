package main

import "testing"

func TestCurveName(t *testing.T) {
	for _, c := range []struct {
		base, checkpoint string
		many             bool
		want             string
	}{
		{"precision_yield_curve.json", "saved/pair_baseline.json.lzw", false, "precision_yield_curve.json"},
		{"precision_yield_curve.json", "saved/pair_baseline.json.lzw", true, "precision_yield_curve.pair_baseline.json"},
		{"out/py.json", "neg_abs.lzw", true, "out/py.neg_abs.json"},
		{"decoded.jsonl", "saved/pair_neg_abs.json.lzw", true, "decoded.pair_neg_abs.jsonl"},
	} {
		if got := curveName(c.base, c.checkpoint, c.many); got != c.want {
			t.Errorf("curveName(%q, %q, %v) = %q, want %q", c.base, c.checkpoint, c.many, got, c.want)
		}
	}
}

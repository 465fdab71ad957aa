package suggest

import "testing"

func TestNormalizeDescription(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Mercado  Pago!!", "mercado pago"},
		{"mercado pago", "mercado pago"},
		{"MERCADO PAGO", "mercado pago"},
		{"Desconto antecipação", "desconto antecipacao"},
		{"Café da Manhã", "cafe da manha"},
		{"  uber *trip 042  ", "uber trip 042"},
		{"a---b___c", "a b c"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			if got := NormalizeDescription(tc.in); got != tc.want {
				t.Fatalf("NormalizeDescription(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeDescriptionIdempotent(t *testing.T) {
	inputs := []string{"Mercado  Pago!!", "Pão de Açúcar", "NETFLIX.COM"}
	for _, in := range inputs {
		once := NormalizeDescription(in)
		twice := NormalizeDescription(once)
		if once != twice {
			t.Fatalf("normalization not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

package sanitize

import "testing"

func TestTextStripsEncodedMarkup(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"<b>Olá</b>  mundo", "Olá mundo"},
		{"&lt;script&gt;alert(1)&lt;/script&gt;T2 Lisboa", "alert(1)T2 Lisboa"},
		{"  sem tags  ", "sem tags"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := Text(tc.in); got != tc.want {
			t.Errorf("Text(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestListDropsEmptyEntries(t *testing.T) {
	got := List([]string{"Porto", "<i></i>", " Braga "})
	if len(got) != 2 || got[0] != "Porto" || got[1] != "Braga" {
		t.Fatalf("unexpected list: %#v", got)
	}
	if List(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
}

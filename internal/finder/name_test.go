package finder

import "testing"

func TestExtractName(t *testing.T) {
	cases := map[string]string{
		"/path/to/file.js":                     "file.js",
		"https://example.com/assets/style.css": "style.css",
		"image.png":                            "image.png",
		"/":                                    "",
		"":                                     "",
		"https://example.com/dir/":             "",
		"a/b?x=/y":                             "y",
	}
	for in, want := range cases {
		if got := ExtractName(in); got != want {
			t.Fatalf("ExtractName(%q)=%q，期望 %q", in, got, want)
		}
	}
}

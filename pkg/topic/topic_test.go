package topic

import "testing"

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		base string
		ext  string
		want string
	}{
		{"plain", "a", "b", "a/b"},
		{"trailing slash on base", "a/", "b", "a/b"},
		{"leading slash on ext", "a", "/b", "a/b"},
		{"both slashes", "a/", "/b", "a/b"},
		{"nested base", "sensors/dir", "created", "sensors/dir/created"},
		{"nested base with slash", "sensors/dir/", "deleted", "sensors/dir/deleted"},
		{"only one trailing slash stripped", "a//", "b", "a//b"},
		{"empty ext", "a/", "", "a/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.base, tt.ext); got != tt.want {
				t.Errorf("Render(%q, %q) = %q, want %q", tt.base, tt.ext, got, tt.want)
			}
		})
	}
}

func TestRenderEquivalentForms(t *testing.T) {
	forms := []string{
		Render("a/", "b"),
		Render("a", "/b"),
		Render("a", "b"),
	}

	for i, got := range forms {
		if got != "a/b" {
			t.Errorf("form %d = %q, want %q", i, got, "a/b")
		}
	}
}

func BenchmarkRender(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Render("sensors/dir/", "modified")
	}
}

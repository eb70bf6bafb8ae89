package language

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Code
		wantErr bool
	}{
		{"ru", Russian, false},
		{"EN", English, false},
		{" es ", Spanish, false},
		{"zh", Chinese, false},
		{"source", Source, false},
		{"fr", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNeedsTranslation(t *testing.T) {
	tests := []struct {
		selection Code
		want      bool
	}{
		{Source, false},
		{Russian, false},
		{English, true},
		{Spanish, true},
		{Chinese, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.selection), func(t *testing.T) {
			if got := NeedsTranslation(tt.selection, DefaultSource); got != tt.want {
				t.Errorf("NeedsTranslation(%q) = %v, want %v", tt.selection, got, tt.want)
			}
		})
	}
}

func TestTargetFallsBackToRussian(t *testing.T) {
	if got := Target(Chinese); got != Russian {
		t.Errorf("Target(zh) = %q, want ru", got)
	}
	if got := Target(Source); got != Russian {
		t.Errorf("Target(source) = %q, want ru", got)
	}
	if got := Target(Spanish); got != Spanish {
		t.Errorf("Target(es) = %q, want es", got)
	}
}

func TestTargetName(t *testing.T) {
	tests := map[Code]string{
		Russian: "Russian",
		English: "English",
		Spanish: "Spanish",
		Chinese: "Russian",
	}
	for code, want := range tests {
		if got := TargetName(code); got != want {
			t.Errorf("TargetName(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestListIsCopy(t *testing.T) {
	list := List()
	if len(list) != 5 {
		t.Fatalf("len(List()) = %d, want 5", len(list))
	}
	list[0].Code = "mutated"
	if List()[0].Code != Source {
		t.Error("List() should return a copy")
	}
}

func TestSupported(t *testing.T) {
	for _, c := range []Code{Russian, English, Spanish} {
		if !Supported(c) {
			t.Errorf("Supported(%q) = false, want true", c)
		}
	}
	for _, c := range []Code{Source, Chinese} {
		if Supported(c) {
			t.Errorf("Supported(%q) = true, want false", c)
		}
	}
}

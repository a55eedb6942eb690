package imap

import (
	"testing"
)

// --- NumRange tests ---

func TestNumRange_String(t *testing.T) {
	tests := []struct {
		name string
		r    NumRange
		want string
	}{
		{"single number", NumRange{Start: 5, Stop: 5}, "5"},
		{"range", NumRange{Start: 1, Stop: 10}, "1:10"},
		{"star range", NumRange{Start: 10, Stop: 0}, "10:*"},
		{"single 1", NumRange{Start: 1, Stop: 1}, "1"},
		{"large range", NumRange{Start: 100, Stop: 200}, "100:200"},
		{"star alone", NumRange{Start: 0, Stop: 0}, "*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.r.String()
			if got != tt.want {
				t.Errorf("NumRange%+v.String() = %q, want %q", tt.r, got, tt.want)
			}
		})
	}
}

func TestNumRange_Contains(t *testing.T) {
	tests := []struct {
		name string
		r    NumRange
		num  uint32
		want bool
	}{
		{"in single", NumRange{Start: 5, Stop: 5}, 5, true},
		{"not in single", NumRange{Start: 5, Stop: 5}, 6, false},
		{"in range low", NumRange{Start: 1, Stop: 10}, 1, true},
		{"in range high", NumRange{Start: 1, Stop: 10}, 10, true},
		{"in range mid", NumRange{Start: 1, Stop: 10}, 5, true},
		{"below range", NumRange{Start: 5, Stop: 10}, 4, false},
		{"above range", NumRange{Start: 5, Stop: 10}, 11, false},
		{"star range contains high", NumRange{Start: 10, Stop: 0}, 999, true},
		{"star range contains start", NumRange{Start: 10, Stop: 0}, 10, true},
		{"star range excludes low", NumRange{Start: 10, Stop: 0}, 9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.r.Contains(tt.num)
			if got != tt.want {
				t.Errorf("NumRange%+v.Contains(%d) = %v, want %v", tt.r, tt.num, got, tt.want)
			}
		})
	}
}

// --- ParseSeqSet tests ---

func TestParseSeqSet(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantStr string
		wantErr bool
	}{
		{"single number", "1", "1", false},
		{"multiple singles", "1,2,3", "1,2,3", false},
		{"range", "1:5", "1:5", false},
		{"star range", "10:*", "10:*", false},
		{"mixed", "1,3:5,10:*", "1,3:5,10:*", false},
		{"just star", "*", "*", false},
		{"saved result", "$", "$", false},
		{"all form", "1:*", "1:*", false},
		{"empty string", "", "", true},
		{"empty part", "1,,2", "", true},
		{"zero", "0", "", true},
		{"not a number", "abc", "", true},
		{"too large", "4294967296", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ParseSeqSet(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSeqSet(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := set.String(); got != tt.wantStr {
				t.Errorf("ParseSeqSet(%q).String() = %q, want %q", tt.input, got, tt.wantStr)
			}
		})
	}
}

// Reversed ranges are canonicalised so the smaller endpoint comes first.
func TestParseSeqSet_Normalisation(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"10:1", "1:10"},
		{"5:5", "5"},
		{"*:7", "7:*"},
		{"3:9,20:11", "3:9,11:20"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			set, err := ParseSeqSet(tt.input)
			if err != nil {
				t.Fatalf("ParseSeqSet(%q) error: %v", tt.input, err)
			}
			if got := set.String(); got != tt.want {
				t.Errorf("ParseSeqSet(%q).String() = %q, want %q", tt.input, got, tt.want)
			}
			for _, r := range set.Ranges() {
				if r.Stop != 0 && r.Start > r.Stop {
					t.Errorf("range %+v not normalised", r)
				}
			}
		})
	}
}

func TestSeqSet_Contains(t *testing.T) {
	set, err := ParseSeqSet("1,3:5,10:*")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		num  uint32
		want bool
	}{
		{1, true}, {2, false}, {3, true}, {4, true}, {5, true},
		{6, false}, {9, false}, {10, true}, {1000, true},
	}
	for _, tt := range tests {
		if got := set.Contains(tt.num); got != tt.want {
			t.Errorf("Contains(%d) = %v, want %v", tt.num, got, tt.want)
		}
	}
}

func TestSeqSet_Dynamic(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1:5", false},
		{"10:*", true},
		{"*", true},
		{"$", true},
		{"1,2,3", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			set, err := ParseSeqSet(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if got := set.Dynamic(); got != tt.want {
				t.Errorf("Dynamic() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeqSet_AddRange(t *testing.T) {
	var set SeqSet
	set.AddNum(7)
	set.AddRange(9, 3)
	if got := set.String(); got != "7,3:9" {
		t.Errorf("String() = %q, want %q", got, "7,3:9")
	}
}

// --- UIDSet tests ---

func TestParseUIDSet(t *testing.T) {
	set, err := ParseUIDSet("42,100:200")
	if err != nil {
		t.Fatal(err)
	}
	if set.Kind() != NumKindUID {
		t.Errorf("Kind() = %v, want uid", set.Kind())
	}
	if !set.Contains(150) {
		t.Error("Contains(150) = false, want true")
	}
	if set.Contains(99) {
		t.Error("Contains(99) = true, want false")
	}
	if got := set.String(); got != "42,100:200" {
		t.Errorf("String() = %q", got)
	}
}

func TestSearchResSets(t *testing.T) {
	ss := SearchResSeqSet()
	if !ss.SearchRes || ss.String() != "$" || !ss.Dynamic() {
		t.Errorf("SearchResSeqSet() = %+v", ss)
	}
	if ss.IsEmpty() {
		t.Error("saved-result set must not report empty")
	}
	us := SearchResUIDSet()
	if !us.SearchRes || us.String() != "$" {
		t.Errorf("SearchResUIDSet() = %+v", us)
	}
}

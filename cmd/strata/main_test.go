package main

import (
	"testing"

	"github.com/alecthomas/kong"
)

func TestBaseName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"doc.txt", "doc"},
		{"/data/corpus/doc.txt", "doc"},
		{"dir/doc.tei.xml", "doc.tei"},
		{"noext", "noext"},
		{".hidden", ".hidden"},
		{"win\\style\\doc.txt", "doc"},
	}
	for _, tt := range tests {
		if got := baseName(tt.path); got != tt.want {
			t.Errorf("baseName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestCLIGrammar(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"doc list", []string{"doc", "list"}, false},
		{"doc get", []string{"doc", "get", "mydoc"}, false},
		{"corpus export", []string{"corpus", "export", "out.tar.xz"}, false},
		{"tag with layer names", []string{"tag", "mydoc", "--tokens", "t", "--sentences", "s"}, false},
		{"inspect with filter", []string{"inspect", "mydoc", "tokens", "--where", `kind == "word"`}, false},
		{"resolve MIN", []string{"resolve", "mydoc", "words", "--strategy", "MIN"}, false},
		{"resolve bad strategy", []string{"resolve", "mydoc", "words", "--strategy", "BEST"}, true},
		{"serve", []string{"serve", "--addr", ":9999"}, false},
		{"version", []string{"version"}, false},
		{"unknown command", []string{"frobnicate"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cli = CLI
			parser, err := kong.New(&cli, kong.Name("strata"))
			if err != nil {
				t.Fatalf("kong.New: %v", err)
			}
			_, err = parser.Parse(tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

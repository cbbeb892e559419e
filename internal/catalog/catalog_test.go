// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package catalog

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/3leaps/taintsentry/internal/types"
)

func TestIsSource(t *testing.T) {
	c := Builtin(types.LanguagePython)

	tests := []struct {
		name string
		want bool
	}{
		{"input", true},
		{"request.args", true},
		{"request.args.get", true},
		{"request.form.get", true},
		{"flask.request.args.get", true},
		{"sys.stdin.read", true},
		{"request.argsx", false},
		{"inputs", false},
		{"print", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsSource(tt.name); got != tt.want {
				t.Errorf("IsSource(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestSinkInfo(t *testing.T) {
	c := Builtin(types.LanguagePython)

	tests := []struct {
		name   string
		kind   types.VulnerabilityKind
		wantOK bool
	}{
		{"eval", types.KindCodeInjection, true},
		{"os.system", types.KindCommandInjection, true},
		{"subprocess.run", types.KindCommandInjection, true},
		{"cursor.execute", types.KindSQLInjection, true},
		{"pickle.loads", types.KindDeserialization, true},
		{"yaml.load", types.KindDeserialization, true},
		{"open", types.KindPathTraversal, true},
		{"os.system.extra", "", false},
		{"print", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, ok := c.SinkInfo(tt.name)
			if ok != tt.wantOK {
				t.Fatalf("SinkInfo(%q) ok = %v, want %v", tt.name, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if sig.Kind != tt.kind {
				t.Errorf("SinkInfo(%q).Kind = %s, want %s", tt.name, sig.Kind, tt.kind)
			}
			if sig.Remediation() == "" {
				t.Errorf("SinkInfo(%q) has no remediation", tt.name)
			}
		})
	}
}

func TestTaintedParam(t *testing.T) {
	c := Builtin(types.LanguagePython)

	tests := []struct {
		name string
		want bool
	}{
		{"user_id", true},
		{"userInput", true},
		{"REQUEST", true},
		{"query_param", true},
		{"count", false},
		{"self", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.TaintedParam(tt.name); got != tt.want {
				t.Errorf("TaintedParam(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestBuiltin_Integrity(t *testing.T) {
	langs := []types.Language{
		types.LanguagePython,
		types.LanguageShell,
		types.LanguageJavaScript,
		types.LanguageTypeScript,
		types.LanguagePHP,
		types.LanguageRuby,
	}

	for _, lang := range langs {
		t.Run(string(lang), func(t *testing.T) {
			c := Builtin(lang)
			if c == nil {
				t.Fatalf("Builtin(%s) = nil", lang)
			}
			if c.Language() != lang {
				t.Errorf("Language() = %s, want %s", c.Language(), lang)
			}
			if len(c.Sources()) == 0 {
				t.Error("expected sources, got none")
			}

			remediations := make(map[types.VulnerabilityKind]string)
			for _, sink := range c.Sinks() {
				if !sink.Kind.Valid() {
					t.Errorf("sink %s has unknown kind %q", sink.Name, sink.Kind)
				}
				rem := sink.Remediation()
				if prev, ok := remediations[sink.Kind]; ok && prev != rem {
					t.Errorf("kind %s has two remediations", sink.Kind)
				}
				remediations[sink.Kind] = rem
			}
		})
	}

	if Builtin(types.LanguageUnknown) != nil {
		t.Error("Builtin(unknown) should be nil")
	}
}

func TestBuiltin_ReturnsCopies(t *testing.T) {
	c := Builtin(types.LanguagePython)
	sinks := c.Sinks()
	sinks[0].Kind = types.KindXSS

	again, _ := c.SinkInfo(sinks[0].Name)
	if again.Kind == types.KindXSS {
		t.Error("mutating Sinks() result changed the catalog")
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr string
	}{
		{
			name:    "missing language",
			spec:    Spec{Sources: []string{"input"}},
			wantErr: "language is required",
		},
		{
			name:    "unknown language",
			spec:    Spec{Language: "cobol"},
			wantErr: "unknown language",
		},
		{
			name: "unknown kind",
			spec: Spec{
				Language: types.LanguagePython,
				Sinks:    []SinkSignature{{Name: "danger", Kind: "rce"}},
			},
			wantErr: "unknown kind",
		},
		{
			name: "empty sink name",
			spec: Spec{
				Language: types.LanguagePython,
				Sinks:    []SinkSignature{{Kind: types.KindXSS}},
			},
			wantErr: "sink[0]",
		},
		{
			name: "conflicting kinds",
			spec: Spec{
				Language: types.LanguagePython,
				Sinks: []SinkSignature{
					{Name: "run", Kind: types.KindCodeInjection},
					{Name: "run", Kind: types.KindSQLInjection},
				},
			},
			wantErr: "mapped to both",
		},
		{
			name: "control characters",
			spec: Spec{
				Language: types.LanguagePython,
				Sources:  []string{"in\x00put"},
			},
			wantErr: "control characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.spec)
			if err == nil {
				t.Fatal("New() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("New() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_ReplaceAndExtend(t *testing.T) {
	doc := `catalogs:
  - language: python
    extend: true
    sources:
      - "websocket.receive"
    sinks:
      - name: "jinja2.Template"
        kind: xss
  - language: ruby
    sources:
      - "params["
    sinks:
      - name: "eval("
        kind: code-injection
`

	set, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}

	py := set.Lookup(types.LanguagePython)
	if !py.IsSource("websocket.receive") {
		t.Error("extended python catalog missing added source")
	}
	if !py.IsSource("request.args.get") {
		t.Error("extended python catalog lost builtin source")
	}
	if sig, ok := py.SinkInfo("jinja2.Template"); !ok || sig.Kind != types.KindXSS {
		t.Errorf("SinkInfo(jinja2.Template) = %v, %v; want xss", sig, ok)
	}

	rb := set.Lookup(types.LanguageRuby)
	if len(rb.Sinks()) != 1 {
		t.Errorf("replaced ruby catalog has %d sinks, want 1", len(rb.Sinks()))
	}

	if sh := set.Lookup(types.LanguageShell); sh == nil || !sh.IsSource("read") {
		t.Error("Lookup(shell) should fall back to the builtin")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"empty", "", "empty"},
		{"no catalogs", "catalogs: []\n", "no catalogs"},
		{"unknown field", "catalogs:\n  - language: python\n    sauces: [x]\n", "failed to parse"},
		{"bad kind", "catalogs:\n  - language: python\n    sinks:\n      - name: x\n        kind: nope\n", "unknown kind"},
		{"duplicate language", "catalogs:\n  - language: php\n  - language: php\n", "duplicate language"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Parse() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.yaml")
	if err := os.WriteFile(path, make([]byte, maxCatalogSize+1), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(path)
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("LoadFile() error = %v, want size error", err)
	}
}

func TestLoadVerifiedFile_MissingSignature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := "catalogs:\n  - language: python\n    extend: true\n    sources: [\"x.y\"]\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadVerifiedFile(path, "RWTdRLXTdEKhwFNzVN2VGxfIb5djqGpY3x9eVIwPfKCqVlPqKfIZVFEL")
	if !errors.Is(err, ErrUnsigned) {
		t.Errorf("LoadVerifiedFile() error = %v, want ErrUnsigned", err)
	}

	// No key configured: accepted without a signature.
	set, err := LoadVerifiedFile(path, "")
	if err != nil {
		t.Fatalf("LoadVerifiedFile() error = %v, want nil", err)
	}
	if !set.Lookup(types.LanguagePython).IsSource("x.y") {
		t.Error("loaded catalog missing source")
	}
}

func TestVerify_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		pubkey  string
		sig     string
		wantErr string
	}{
		{"no key", "", "", "no minisign public key"},
		{"comment only", "untrusted comment: key\n", "", "no minisign public key"},
		{"bad key", "not-a-key", "", "parse public key"},
		{"bad signature", "RWTdRLXTdEKhwFNzVN2VGxfIb5djqGpY3x9eVIwPfKCqVlPqKfIZVFEL", "garbage", "decode signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify([]byte("catalogs: []"), []byte(tt.sig), tt.pubkey)
			if err == nil {
				t.Fatal("Verify() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestPublicKeyLine(t *testing.T) {
	raw := "untrusted comment: minisign public key DE44B5D37442A1C0\n\nRWTdRLXTdEKhwFNzVN2VGxfIb5djqGpY3x9eVIwPfKCqVlPqKfIZVFEL\n"
	want := "RWTdRLXTdEKhwFNzVN2VGxfIb5djqGpY3x9eVIwPfKCqVlPqKfIZVFEL"
	if got := PublicKeyLine(raw); got != want {
		t.Errorf("PublicKeyLine() = %q, want %q", got, want)
	}
}

// minisignPair returns a minisign public key line and a signer that produces
// .minisig contents for it.
func minisignPair(t *testing.T, keyID [8]byte) (string, func(message []byte) []byte) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	keyBin := append([]byte("Ed"), keyID[:]...)
	keyBin = append(keyBin, pub...)
	pubkey := base64.StdEncoding.EncodeToString(keyBin)

	sign := func(message []byte) []byte {
		sig := ed25519.Sign(priv, message)
		trusted := "timestamp:1760832000\tfile:catalog.yaml"
		global := ed25519.Sign(priv, append(append([]byte(nil), sig...), trusted...))

		sigBin := append([]byte("Ed"), keyID[:]...)
		sigBin = append(sigBin, sig...)
		return []byte("untrusted comment: signature from minisign secret key\n" +
			base64.StdEncoding.EncodeToString(sigBin) + "\n" +
			"trusted comment: " + trusted + "\n" +
			base64.StdEncoding.EncodeToString(global) + "\n")
	}
	return pubkey, sign
}

func TestLoadVerifiedFile_Signed(t *testing.T) {
	pubkey, sign := minisignPair(t, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})
	otherKey, _ := minisignPair(t, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})

	doc := []byte("catalogs:\n  - language: python\n    extend: true\n    sources: [\"tenant.payload\"]\n")

	writeSigned := func(t *testing.T, content, sig []byte) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		if err := os.WriteFile(path, content, 0o600); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path+SignatureSuffix, sig, 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("valid signature", func(t *testing.T) {
		path := writeSigned(t, doc, sign(doc))
		set, err := LoadVerifiedFile(path, pubkey)
		if err != nil {
			t.Fatalf("LoadVerifiedFile() error = %v", err)
		}
		if !set.Lookup(types.LanguagePython).IsSource("tenant.payload") {
			t.Error("verified catalog missing source")
		}
	})

	t.Run("public key file contents", func(t *testing.T) {
		path := writeSigned(t, doc, sign(doc))
		pubFile := "untrusted comment: minisign public key 0807060504030201\n" + pubkey + "\n"
		if _, err := LoadVerifiedFile(path, pubFile); err != nil {
			t.Fatalf("LoadVerifiedFile() error = %v", err)
		}
	})

	t.Run("tampered catalog", func(t *testing.T) {
		tampered := append(append([]byte(nil), doc...), []byte("    sinks: []\n")...)
		path := writeSigned(t, tampered, sign(doc))
		if _, err := LoadVerifiedFile(path, pubkey); err == nil {
			t.Fatal("LoadVerifiedFile() accepted a modified catalog")
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		path := writeSigned(t, doc, sign(doc))
		_, err := LoadVerifiedFile(path, otherKey)
		if err == nil || !strings.Contains(err.Error(), "verification failed") {
			t.Fatalf("LoadVerifiedFile() error = %v, want verification failure", err)
		}
	})
}

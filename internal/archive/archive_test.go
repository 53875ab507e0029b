package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filippo.io/age"

	"github.com/tis24dev/dynasave/internal/logging"
	"github.com/tis24dev/dynasave/internal/types"
)

func testLogger() *logging.Logger {
	return logging.New(types.LogLevelNone, false)
}

func makeSourceDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "backup_20260314_150405")
	if err := os.MkdirAll(filepath.Join(dir, "project/dashboard"), 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"manifest.yaml":                  "manifestVersion: \"1.0\"\n",
		"project/dashboard/config.json":  `{"name":"overview"}`,
		"project/dashboard/config2.json": `{"name":"errors"}`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func readTarNames(t *testing.T, r io.Reader) map[string]string {
	t.Helper()
	gz, err := gzip.NewReader(r)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	entries := map[string]string{}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("tar: %v", err)
		}
		var content strings.Builder
		io.Copy(&content, tr)
		entries[hdr.Name] = content.String()
	}
	return entries
}

func TestCreatePlainArchive(t *testing.T) {
	dir := makeSourceDir(t)
	archiver := NewArchiver(nil, testLogger())

	path, size, err := archiver.Create(context.Background(), dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasSuffix(path, "backup_20260314_150405.tar.gz") {
		t.Errorf("path = %q", path)
	}
	if size <= 0 {
		t.Errorf("size = %d", size)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	entries := readTarNames(t, f)
	if got := entries["project/dashboard/config.json"]; got != `{"name":"overview"}` {
		t.Errorf("config.json content = %q", got)
	}
	if _, ok := entries["manifest.yaml"]; !ok {
		t.Errorf("manifest.yaml missing from archive; entries: %v", entries)
	}
}

func TestCreateEncryptedArchive(t *testing.T) {
	dir := makeSourceDir(t)

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}
	archiver := NewArchiver([]age.Recipient{identity.Recipient()}, testLogger())

	path, _, err := archiver.Create(context.Background(), dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasSuffix(path, ".tar.gz.age") {
		t.Errorf("path = %q, want .tar.gz.age suffix", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	decrypted, err := age.Decrypt(f, identity)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	entries := readTarNames(t, decrypted)
	if len(entries) < 3 {
		t.Errorf("decrypted archive has %d entries, want at least 3", len(entries))
	}
}

func TestPassphraseRoundTrip(t *testing.T) {
	const passphrase = "correct horse battery staple"

	encoded, err := DeriveRecipientFromPassphrase(passphrase)
	if err != nil {
		t.Fatalf("DeriveRecipientFromPassphrase: %v", err)
	}
	if !strings.HasPrefix(encoded, "age1") {
		t.Errorf("recipient = %q, want age1 prefix", encoded)
	}

	// Derivation is deterministic.
	again, _ := DeriveRecipientFromPassphrase(passphrase)
	if encoded != again {
		t.Error("derivation should be deterministic")
	}

	recipient, err := age.ParseX25519Recipient(encoded)
	if err != nil {
		t.Fatalf("ParseX25519Recipient: %v", err)
	}

	dir := makeSourceDir(t)
	archiver := NewArchiver([]age.Recipient{recipient}, testLogger())
	path, _, err := archiver.Create(context.Background(), dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	identity, err := DeriveIdentityFromPassphrase(passphrase)
	if err != nil {
		t.Fatalf("DeriveIdentityFromPassphrase: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := age.Decrypt(f, identity); err != nil {
		t.Fatalf("passphrase identity cannot decrypt its own archive: %v", err)
	}
}

func TestBuildRecipients(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}

	recipientFile := filepath.Join(t.TempDir(), "recipients.txt")
	content := "# team keys\n" + identity.Recipient().String() + "\n\n"
	if err := os.WriteFile(recipientFile, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	passFile := filepath.Join(t.TempDir(), "passphrase")
	if err := os.WriteFile(passFile, []byte("s3cret passphrase\n"), 0600); err != nil {
		t.Fatal(err)
	}

	recipients, err := BuildRecipients(
		[]string{identity.Recipient().String()},
		recipientFile, passFile)
	if err != nil {
		t.Fatalf("BuildRecipients: %v", err)
	}
	if len(recipients) != 3 {
		t.Errorf("got %d recipients, want 3 (literal + file + passphrase)", len(recipients))
	}
}

func TestBuildRecipientsEmpty(t *testing.T) {
	if _, err := BuildRecipients(nil, "", ""); !errors.Is(err, ErrNoRecipients) {
		t.Errorf("err = %v, want ErrNoRecipients", err)
	}
}

func TestBuildRecipientsInvalidLiteral(t *testing.T) {
	if _, err := BuildRecipients([]string{"not-a-key"}, "", ""); err == nil {
		t.Fatal("BuildRecipients should reject malformed recipients")
	}
}

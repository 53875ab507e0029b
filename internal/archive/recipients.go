package archive

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"filippo.io/age"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/scrypt"

	"github.com/tis24dev/dynasave/pkg/bech32"
)

const (
	passphraseRecipientSalt = "dynasave/age-passphrase/v1"
	passphraseScryptN       = 1 << 15
	passphraseScryptR       = 8
	passphraseScryptP       = 1
)

// ErrNoRecipients is returned when encryption is requested but no
// recipient source yields a usable key.
var ErrNoRecipients = errors.New("no age recipients configured")

// BuildRecipients assembles the age recipient set from literal recipient
// strings, a recipients file (one per line, # comments allowed) and a
// passphrase file. At least one source must produce a recipient.
func BuildRecipients(literals []string, recipientFile, passphraseFile string) ([]age.Recipient, error) {
	var recipients []age.Recipient

	for _, literal := range literals {
		r, err := age.ParseX25519Recipient(strings.TrimSpace(literal))
		if err != nil {
			return nil, fmt.Errorf("invalid age recipient %q: %w", literal, err)
		}
		recipients = append(recipients, r)
	}

	if recipientFile != "" {
		fromFile, err := readRecipientFile(recipientFile)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, fromFile...)
	}

	if passphraseFile != "" {
		data, err := os.ReadFile(passphraseFile)
		if err != nil {
			return nil, fmt.Errorf("cannot read passphrase file: %w", err)
		}
		passphrase := strings.TrimSpace(string(data))
		if passphrase == "" {
			return nil, errors.New("passphrase file is empty")
		}
		encoded, err := DeriveRecipientFromPassphrase(passphrase)
		if err != nil {
			return nil, err
		}
		r, err := age.ParseX25519Recipient(encoded)
		if err != nil {
			return nil, fmt.Errorf("derived recipient did not parse: %w", err)
		}
		recipients = append(recipients, r)
	}

	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	return recipients, nil
}

func readRecipientFile(path string) ([]age.Recipient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open recipient file: %w", err)
	}
	defer f.Close()

	var recipients []age.Recipient
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r, err := age.ParseX25519Recipient(line)
		if err != nil {
			return nil, fmt.Errorf("invalid recipient in %s: %w", path, err)
		}
		recipients = append(recipients, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read recipient file: %w", err)
	}
	return recipients, nil
}

// DeriveRecipientFromPassphrase deterministically maps a passphrase to an
// age recipient. The same passphrase always yields the same keypair, so
// backups taken on different hosts stay decryptable with one secret.
func DeriveRecipientFromPassphrase(passphrase string) (string, error) {
	key, err := deriveCurve25519Scalar(passphrase)
	if err != nil {
		return "", err
	}
	public, err := curve25519.X25519(key, curve25519.Basepoint)
	if err != nil {
		return "", fmt.Errorf("derive X25519 public key: %w", err)
	}
	recipient, err := bech32.Encode("age", public)
	if err != nil {
		return "", fmt.Errorf("encode passphrase recipient: %w", err)
	}
	return recipient, nil
}

// DeriveIdentityFromPassphrase is the decryption-side counterpart of
// DeriveRecipientFromPassphrase.
func DeriveIdentityFromPassphrase(passphrase string) (age.Identity, error) {
	key, err := deriveCurve25519Scalar(passphrase)
	if err != nil {
		return nil, err
	}
	secret, err := bech32.Encode("AGE-SECRET-KEY-", key)
	if err != nil {
		return nil, fmt.Errorf("encode secret key: %w", err)
	}
	return age.ParseX25519Identity(strings.ToUpper(secret))
}

func deriveCurve25519Scalar(passphrase string) ([]byte, error) {
	key, err := scrypt.Key([]byte(passphrase), []byte(passphraseRecipientSalt),
		passphraseScryptN, passphraseScryptR, passphraseScryptP, curve25519.ScalarSize)
	if err != nil {
		return nil, fmt.Errorf("derive key from passphrase: %w", err)
	}
	clampCurve25519Scalar(key)
	return key, nil
}

func clampCurve25519Scalar(k []byte) {
	if len(k) != curve25519.ScalarSize {
		return
	}
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

// unsetenv unsets key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Setenv(key, "")
	os.Unsetenv(key)
}

// withLedgerFile points the -ledger-file flag to name for the duration of the test.
func withLedgerFile(t *testing.T, name string) {
	old := *ledgerFile
	*ledgerFile = name
	t.Cleanup(func() { *ledgerFile = old })
}

func TestLoadEnv(t *testing.T) {
	unsetenv(t, EnvCurrency)
	unsetenv(t, EnvLedgerFile)
	t.Setenv(EnvVerbose, "false")

	dir := t.TempDir()
	if err := LoadEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnv(missing) = %v, want nil", err)
	}
	if got := LedgerFile(); got != defaultLedgerFile {
		t.Errorf("LedgerFile() = %q, want %q", got, defaultLedgerFile)
	}

	env := filepath.Join(dir, ".env")
	content := EnvCurrency + "=USD\n" + EnvLedgerFile + "=books.jsonl\n" + EnvVerbose + "=true\n"
	if err := os.WriteFile(env, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := LoadEnv(env); err != nil {
		t.Fatalf("LoadEnv() = %v", err)
	}
	cur, err := Currency()
	if err != nil {
		t.Fatal(err)
	}
	if cur.Code() != "USD" {
		t.Errorf("Currency() = %s, want USD", cur)
	}
	if got := LedgerFile(); got != "books.jsonl" {
		t.Errorf("LedgerFile() = %q, want books.jsonl", got)
	}
	if Verbose() {
		t.Error("Verbose() = true, variables already set must be kept")
	}

	withLedgerFile(t, "flag.jsonl")
	if got := LedgerFile(); got != "flag.jsonl" {
		t.Errorf("LedgerFile() = %q, the flag must win", got)
	}
}

func TestOpenSaveStore(t *testing.T) {
	unsetenv(t, EnvCurrency)
	withLedgerFile(t, filepath.Join(t.TempDir(), "ledger.jsonl"))

	s, err := OpenStore()
	if err != nil {
		t.Fatalf("OpenStore() on a missing file = %v", err)
	}
	if s.Currency().Code() != defaultCurrency {
		t.Errorf("new ledger currency = %s, want %s", s.Currency(), defaultCurrency)
	}
	if _, err := s.AddAccount("Checking", decimal.NewFromInt(10)); err != nil {
		t.Fatal(err)
	}
	if err := SaveStore(s); err != nil {
		t.Fatalf("SaveStore() = %v", err)
	}

	s, err = OpenStore()
	if err != nil {
		t.Fatalf("OpenStore() = %v", err)
	}
	a := s.AccountByName("checking")
	if a == nil {
		t.Fatal("saved account not found")
	}
	if !a.InitialBalance().Equal(decimal.NewFromInt(10)) {
		t.Errorf("initial balance = %s, want 10", a.InitialBalance())
	}
}

func TestCommandsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range Commands {
		if seen[c.Name()] {
			t.Errorf("command %q registered twice", c.Name())
		}
		seen[c.Name()] = true
		if c.Synopsis() == "" || c.Usage() == "" {
			t.Errorf("command %q is not documented", c.Name())
		}
	}
}

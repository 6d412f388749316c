package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"

	"offs-core/internal/testutil"
)

func TestLoadConfigDefaults(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	defer sb.Cleanup()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(sb.Root); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	LoadConfig("")

	if AppConfig.Store.PrimePool != "default" {
		t.Fatalf("PrimePool = %s, want default", AppConfig.Store.PrimePool)
	}
	if AppConfig.Offs.TupleSize != 3 {
		t.Fatalf("TupleSize = %d, want 3", AppConfig.Offs.TupleSize)
	}
	if AppConfig.Offs.CacheFraction != 0.5 {
		t.Fatalf("CacheFraction = %v, want 0.5", AppConfig.Offs.CacheFraction)
	}
}

func TestLoadConfigSandboxOverride(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	defer sb.Cleanup()

	if err := os.Mkdir(sb.Path("config"), 0700); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	data := []byte("store:\n  prime_pool: sandbox-pool\noffs:\n  tuple_size: 5\n")
	if err := sb.WriteFile("config/default.yaml", data, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(sb.Root); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	LoadConfig("")

	if AppConfig.Store.PrimePool != "sandbox-pool" {
		t.Fatalf("PrimePool = %s, want sandbox-pool", AppConfig.Store.PrimePool)
	}
	if AppConfig.Offs.TupleSize != 5 {
		t.Fatalf("TupleSize = %d, want 5", AppConfig.Offs.TupleSize)
	}
	// A setting the override omits keeps its default.
	if AppConfig.Store.WhitenerPool != "soup" {
		t.Fatalf("WhitenerPool = %s, want default soup", AppConfig.Store.WhitenerPool)
	}
}

func TestLoadConfigEnvironmentMerge(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	defer sb.Cleanup()

	if err := os.Mkdir(sb.Path("config"), 0700); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := sb.WriteFile("config/default.yaml", []byte("store:\n  prime_pool: base\n"), 0600); err != nil {
		t.Fatalf("WriteFile default: %v", err)
	}
	if err := sb.WriteFile("config/staging.yaml", []byte("store:\n  prime_pool: staging\n"), 0600); err != nil {
		t.Fatalf("WriteFile staging: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(sb.Root); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	LoadConfig("staging")

	if AppConfig.Store.PrimePool != "staging" {
		t.Fatalf("PrimePool = %s, want staging (env override wins)", AppConfig.Store.PrimePool)
	}
}

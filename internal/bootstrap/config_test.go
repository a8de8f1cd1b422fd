package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSetup(t *testing.T) {
	path := writeEnv(t, `SERVER_PORT=9090
REDIS_URL=localhost:6379
MONGO_URI=mongodb://localhost:27017
MONGO_DATABASE=battle
LOCAL_CORS=true
STREAK_WINDOW_MS=5000
`)

	cfg, err := Setup(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.MongoDatabase != "battle" {
		t.Errorf("MongoDatabase = %q, want battle", cfg.MongoDatabase)
	}
	if !cfg.IsLocalCors {
		t.Error("IsLocalCors = false, want true")
	}
	if cfg.StreakWindowMs != 5000 {
		t.Errorf("StreakWindowMs = %d, want 5000", cfg.StreakWindowMs)
	}
}

func TestSetup_Defaults(t *testing.T) {
	path := writeEnv(t, `REDIS_URL=localhost:6379
`)

	cfg, err := Setup(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want default 8080", cfg.ServerPort)
	}
	if cfg.StreakWindowMs != 3000 {
		t.Errorf("StreakWindowMs = %d, want default 3000", cfg.StreakWindowMs)
	}
	if cfg.PresenceTopLimit != 3 {
		t.Errorf("PresenceTopLimit = %d, want default 3", cfg.PresenceTopLimit)
	}
	if cfg.AutoClickIntervalMs != 1000 {
		t.Errorf("AutoClickIntervalMs = %d, want default 1000", cfg.AutoClickIntervalMs)
	}
	if cfg.ClickMaxRetries != 4 {
		t.Errorf("ClickMaxRetries = %d, want default 4", cfg.ClickMaxRetries)
	}
}

func TestSetup_MissingFile(t *testing.T) {
	if _, err := Setup(filepath.Join(t.TempDir(), "nope.env")); err == nil {
		t.Error("Setup() succeeded for a missing config file")
	}
}
